package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newUpdatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "updates",
		Short: "Release checks",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Ask the release feed whether a newer version exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				result, err := a.engine.CheckForUpdates(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	})
	return cmd
}
