package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

const serviceName = "frysen"

// newRootCmd builds the command tree. Commands that need the engine call
// withApp, which bootstraps and tears it down around the command body.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "frysen",
		Short:         "Household freezer inventory with family sync",
		SilenceUsage: true,
	}
	root.AddCommand(
		newServeCmd(),
		newExportCmd(),
		newImportCmd(),
		newFamilyCmd(),
		newUpdatesCmd(),
		newMigrateCmd(),
	)
	return root
}

func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := bootstrap(ctx, serviceName, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(context.Background()); closeErr != nil && err == nil {
			err = fmt.Errorf("shutdown: %w", closeErr)
		}
	}()
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
