package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"apiary-voice/internal/application"
	"apiary-voice/internal/domain"
)

// newInterviewCmd creates the "apiary-voice interview" subcommand.
func newInterviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interview",
		Short: "Run one spoken hive inspection",
		Long: "Select an apiary and hive by voice, answer the active questions and\n" +
			"save the inspection. Offline devices queue it for a later sync.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			engineCfg, err := engineConfig(a.cfg.Interview)
			if err != nil {
				return err
			}
			svc, stop, err := a.services(ctx)
			if err != nil {
				return err
			}
			defer stop()

			a.logger.Info("starting interview",
				"audio_source", a.cfg.Audio.Source,
				"offline", a.detector.Offline(),
				"range_policy", svc.Validator.Policy(),
				"dependency_rule", a.cfg.Interview.DependencyRule,
			)

			result, err := application.NewEngine(svc, engineCfg).Run(ctx)
			if err != nil {
				if errors.Is(err, domain.ErrCancelled) {
					fmt.Fprintln(cmd.OutOrStdout(), "Monitoreo cancelado.")
					return nil
				}
				return fmt.Errorf("interview: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", result.Commit.Mode, describeRecord(result.Session.Record()))

			// A stored record means the database is reachable; push anything
			// queued from earlier offline runs.
			if result.Commit.Mode == application.CommitStored {
				if report, err := a.router.Reconcile(ctx); err != nil {
					a.logger.Warn("pending records not synced", "error", err)
				} else if report.Synced > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "sincronizados %d monitoreos pendientes\n", report.Synced)
				}
			}
			return nil
		},
	}
}
