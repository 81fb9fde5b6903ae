package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/haulbook/internal/outbox"
	"github.com/MrJamesThe3rd/haulbook/internal/syncer"
)

var errNotFailed = errors.New("only failed items can be discarded; use --force for pending ones")

func queueCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the local outbox",
	}

	cmd.AddCommand(queueListCmd(a))
	cmd.AddCommand(queueRetryCmd(a))
	cmd.AddCommand(queueDiscardCmd(a))

	return cmd
}

func queueListCmd(a *app) *cobra.Command {
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued mutations, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openOutbox()
			if err != nil {
				return err
			}
			defer store.Close()

			statuses := []outbox.Status{outbox.StatusPending, outbox.StatusSyncing, outbox.StatusFailed}
			if failedOnly {
				statuses = []outbox.Status{outbox.StatusFailed}
			}

			items, err := store.ListByStatus(cmd.Context(), statuses...)
			if err != nil {
				return err
			}

			return printItems(cmd.OutOrStdout(), items)
		},
	}

	cmd.Flags().BoolVar(&failedOnly, "failed", false, "show failed items only")

	return cmd
}

func printItems(out io.Writer, items []*outbox.Item) error {
	if len(items) == 0 {
		fmt.Fprintln(out, "outbox is empty")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tACTION\tREQUEST\tATTEMPTS\tQUEUED\tLAST ERROR")

	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s %s\t%s %s\t%d\t%s\t%s\n",
			it.ID, it.Status, it.Action, it.EntityType, it.Method, it.URL,
			it.Attempts, humanize.Time(it.CreatedAt), it.LastError,
		)
	}

	return w.Flush()
}

func queueRetryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Replay failed and pending items in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.drain(cmd, syncer.DrainOptions{IncludeFailed: true})
		},
	}
}

func queueDiscardCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "discard <id>",
		Short: "Drop a queued mutation without sending it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openOutbox()
			if err != nil {
				return err
			}
			defer store.Close()

			item, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			switch {
			case item.Status == outbox.StatusSyncing:
				return fmt.Errorf("%s is being sent right now", item.ID)
			case item.Status != outbox.StatusFailed && !force:
				return errNotFailed
			}

			if err := a.newEngine(store).Discard(cmd.Context(), item.ID); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "discarded %s (%s %s)\n", item.ID, item.Action, item.EntityType)

			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "also discard pending items")

	return cmd
}
