package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"apiary-voice/config"
)

// newSyncCmd creates the "apiary-voice sync" subcommand.
func newSyncCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Upload queued inspections to the database",
		Long: "Insert every queued inspection into the database, oldest first, and\n" +
			"remove each queue file once its insert succeeds. With --watch the\n" +
			"queue directory is watched and synced until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			if watch {
				interval := config.Duration(a.cfg.Storage.SyncInterval)
				a.logger.Info("watching queue", "dir", a.queue.Dir(), "interval", interval)
				a.router.WatchAndReconcile(ctx, a.queue.Changes(ctx), interval)
				return ctx.Err()
			}

			report, err := a.router.Reconcile(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "synced %d, remaining %d\n", report.Synced, report.Remaining)
			if err != nil {
				return fmt.Errorf("sync: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep running and sync whenever the queue changes")
	return cmd
}
