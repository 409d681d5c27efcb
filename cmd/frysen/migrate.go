package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thejonthinator/frysen/pkg/db"
	"github.com/thejonthinator/frysen/pkg/migrate"
)

// newMigrateCmd manages the family database schema. Commands that touch the
// database run the migrations compiled into the binary unless --dir is set.
func newMigrateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Family database schema migrations",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "migrations directory (default: embedded)")

	gooseCmd := func(use, short, command string) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(cmd, command, func(ctx context.Context, client *db.Client) error {
					sqlDB, err := client.DB().DB()
					if err != nil {
						return fmt.Errorf("sql database: %w", err)
					}
					return migrate.Run(ctx, sqlDB, dir, command)
				})
			},
		}
	}
	cmd.AddCommand(
		gooseCmd("up", "Apply all pending migrations", "up"),
		gooseCmd("down", "Roll back the latest migration", "down"),
		gooseCmd("status", "Print migration status", "status"),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "to <version>",
		Short: "Migrate up or down to a version (YYYYMMDDHHMMSS)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd, "version", func(ctx context.Context, client *db.Client) error {
				sqlDB, err := client.DB().DB()
				if err != nil {
					return fmt.Errorf("sql database: %w", err)
				}
				return migrate.MigrateToVersion(ctx, sqlDB, dir, args[0])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Write a new SQL migration skeleton",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := dir
			if target == "" {
				target = migrate.DefaultDir
			}
			path, err := migrate.CreateSQLMigration(target, args[0])
			if err != nil {
				return fmt.Errorf("create migration: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "created migration:", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check migration files for goose annotations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := dir
			if target == "" {
				target = migrate.DefaultDir
			}
			if err := migrate.ValidateDir(target); err != nil {
				return fmt.Errorf("migration validation failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration validation passed")
			return nil
		},
	})
	return cmd
}

func withDatabase(cmd *cobra.Command, command string, fn func(context.Context, *db.Client) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logg, err := loadConfig(ctx, "migrate", cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if !cfg.DB.Enabled() {
		return errors.New("no family database configured (set FRYSEN_DB_DSN)")
	}
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": command})

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "resource not working: database", err)
		return err
	}
	defer client.Close()

	logg.Info(ctx, "migrate ready")
	return fn(ctx, client)
}
