package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newPendingCmd creates the "apiary-voice pending" subcommand.
func newPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List inspections waiting in the local queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			pending, err := a.router.Pending(cmd.Context())
			if err != nil {
				return fmt.Errorf("pending: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(pending) == 0 {
				fmt.Fprintln(out, "No pending inspections.")
				return nil
			}
			for _, p := range pending {
				fmt.Fprintf(out, "%s  %s\n", p.FileID, describeRecord(p.Record))
			}
			return nil
		},
	}
}
