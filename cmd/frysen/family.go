package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newFamilyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "family",
		Short: "Manage the family this device syncs with",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show sync status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(_ context.Context, a *app) error {
				return printJSON(cmd.OutOrStdout(), a.engine.SyncStatus())
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create a family seeded with this device's data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				id, err := a.engine.CreateFamily(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "join <family-id>",
		Short: "Join an existing family, replacing local data with the family's",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.engine.JoinFamily(ctx, args[0]); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), a.engine.SyncStatus())
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "leave",
		Short: "Stop syncing; local data is kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				return a.engine.LeaveFamily(ctx)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "refetch",
		Short: "Overwrite local data with the family's stored snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				outcome, err := a.engine.RefetchFromRemote(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), outcome)
				return nil
			})
		},
	})

	return cmd
}
