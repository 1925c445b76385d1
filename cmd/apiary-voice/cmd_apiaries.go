package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newApiariesCmd creates the "apiary-voice apiaries" command group.
func newApiariesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apiaries",
		Short: "List or register apiaries and their hives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			apiaries, err := a.store.ListApiaries(ctx)
			if err != nil {
				return fmt.Errorf("apiaries: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, ap := range apiaries {
				hives, err := a.store.ListHives(ctx, ap.ID)
				if err != nil {
					return fmt.Errorf("apiaries: %w", err)
				}
				fmt.Fprintf(out, "%d  %-10s %-30s colmenas=%d\n", ap.ID, ap.Name, ap.Location, len(hives))
			}
			return nil
		},
	}
	cmd.AddCommand(newApiariesAddCmd())
	return cmd
}

func newApiariesAddCmd() *cobra.Command {
	var (
		location string
		hives    int
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register an apiary with hives numbered 1..N",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			id, err := a.store.AddApiary(ctx, args[0], location)
			if err != nil {
				return fmt.Errorf("apiaries add: %w", err)
			}
			for n := 1; n <= hives; n++ {
				if err := a.store.AddHive(ctx, id, n); err != nil {
					return fmt.Errorf("apiaries add: %w", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added apiary %d %s with %d hives\n", id, args[0], hives)
			return nil
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "where the apiary is")
	cmd.Flags().IntVar(&hives, "hives", 10, "number of hives to create")
	return cmd
}
