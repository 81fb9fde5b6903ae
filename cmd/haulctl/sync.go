package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/haulbook/internal/syncer"
)

func syncCmd(a *app) *cobra.Command {
	var includeFailed bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass against the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.drain(cmd, syncer.DrainOptions{IncludeFailed: includeFailed})
		},
	}

	cmd.Flags().BoolVar(&includeFailed, "include-failed", false, "retry failed items too")

	return cmd
}

func (a *app) drain(cmd *cobra.Command, opts syncer.DrainOptions) error {
	store, err := a.openOutbox()
	if err != nil {
		return err
	}
	defer store.Close()

	res := a.newEngine(store).Drain(cmd.Context(), opts)

	fmt.Fprintf(cmd.OutOrStdout(), "synced %d item(s)\n", res.Synced)

	if res.Err != nil {
		if res.FailedID != "" {
			return fmt.Errorf("item %s failed: %w", res.FailedID, res.Err)
		}

		return res.Err
	}

	return nil
}
