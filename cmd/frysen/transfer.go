package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/thejonthinator/frysen/internal/engine"
)

func newExportCmd() *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the inventory snapshot as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(_ context.Context, a *app) error {
				raw, err := a.engine.ExportAs(format)
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					_, err = cmd.OutOrStdout().Write(raw)
					return err
				}
				if err := os.WriteFile(output, raw, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "exported to %s\n", output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", engine.FormatJSON, "output format: json|yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Replace local data with a modular snapshot or a complete legacy drawer map",
		Long: `Import reads a snapshot previously written by "frysen export", or a legacy
drawer map that lists all eight drawers. Without a file argument it reads stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if len(args) == 0 || args[0] == "-" {
				raw, err = io.ReadAll(cmd.InOrStdin())
			} else {
				raw, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.engine.Import(ctx, raw); err != nil {
					return err
				}
				state := a.engine.State()
				count := len(state.DefaultDrawer.Items)
				for _, c := range state.Containers {
					for _, d := range c.Drawers {
						count += len(d.Items)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d items in %d containers\n", count, len(state.Containers))
				return nil
			})
		},
	}
}
