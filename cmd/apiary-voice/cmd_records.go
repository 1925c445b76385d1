package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"apiary-voice/internal/domain"
	"apiary-voice/internal/infra/sqlstore"
)

// newRecordsCmd creates the "apiary-voice records" command group.
func newRecordsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List stored inspections, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			total, err := a.store.CountRecords(ctx)
			if err != nil {
				return fmt.Errorf("records: %w", err)
			}
			records, err := a.store.ListRecords(ctx, limit)
			if err != nil {
				return fmt.Errorf("records: %w", err)
			}

			out := cmd.OutOrStdout()
			if total == 0 {
				fmt.Fprintln(out, "No stored inspections.")
				return nil
			}
			for _, r := range records {
				fmt.Fprintln(out, describeRecord(r))
			}
			fmt.Fprintf(out, "%d of %d inspections\n", len(records), total)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum inspections to list, 0 for all")
	cmd.AddCommand(newRecordsShowCmd())
	return cmd
}

func newRecordsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <record_id>",
		Short: "Show one stored inspection with its answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			record, err := a.store.Get(cmd.Context(), args[0])
			if errors.Is(err, sqlstore.ErrNotFound) {
				return fmt.Errorf("records show: inspection %s not found", args[0])
			}
			if err != nil {
				return fmt.Errorf("records show: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, describeRecord(record))
			fmt.Fprintf(out, "completado=%s\n", record.CompletedAt.Format("2006-01-02 15:04"))
			record.Answers.Each(func(id string, v domain.Answer) {
				fmt.Fprintf(out, "  %-28s %s\n", id, v)
			})
			return nil
		},
	}
}
