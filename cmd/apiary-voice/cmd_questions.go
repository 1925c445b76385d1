package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"apiary-voice/internal/application"
	"apiary-voice/internal/domain"
	"apiary-voice/internal/infra/catalog"
)

// newQuestionsCmd creates the "apiary-voice questions" command group.
func newQuestionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Manage the inspection question catalog",
	}
	cmd.AddCommand(
		newQuestionsListCmd(),
		newQuestionsSeedCmd(),
		newQuestionsImportCmd(),
		newQuestionsExportCmd(),
		newQuestionsActiveCmd("activate", "Ask these questions in new interviews", true),
		newQuestionsActiveCmd("deactivate", "Stop asking these questions", false),
	)
	return cmd
}

// allQuestions returns active and inactive questions in order.
func (a *app) allQuestions(cmd *cobra.Command) ([]domain.QuestionSpec, error) {
	if a.cfg.Questions.Source == "file" {
		return catalog.LoadFile(a.cfg.Questions.File)
	}
	return a.store.AllQuestions(cmd.Context())
}

func newQuestionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show all questions in asking order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			questions, err := a.allQuestions(cmd)
			if err != nil {
				return fmt.Errorf("questions list: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, q := range questions {
				mark := " "
				if q.Active {
					mark = "*"
				}
				detail := string(q.Kind)
				switch q.Kind {
				case domain.KindNumber:
					detail = fmt.Sprintf("number %d-%d", q.Min, q.Max)
				case domain.KindChoice:
					detail = "choice " + strings.Join(q.Options, "|")
				}
				if q.DependsOn != "" {
					detail += " depends_on=" + q.DependsOn
				}
				fmt.Fprintf(out, "%s %3d  %-28s %s\n", mark, q.Order, q.ID, detail)
			}
			return nil
		},
	}
}

func newQuestionsSeedCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the built-in hive inspection questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			empty, err := a.questionsEmpty(ctx)
			if err != nil {
				return fmt.Errorf("questions seed: %w", err)
			}
			if !empty && !force {
				return fmt.Errorf("questions seed: catalog is not empty, use --force to replace it")
			}
			defaults := catalog.DefaultQuestions()
			if err := a.questions.ReplaceAll(ctx, defaults); err != nil {
				return fmt.Errorf("questions seed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d questions\n", len(defaults))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing catalog")
	return cmd
}

func newQuestionsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the catalog with a YAML or TOML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			questions, err := catalog.LoadFile(args[0])
			if err != nil {
				return fmt.Errorf("questions import: %w", err)
			}
			if err := application.ValidateQuestions(questions); err != nil {
				return fmt.Errorf("questions import: %w", err)
			}
			if err := a.questions.ReplaceAll(cmd.Context(), questions); err != nil {
				return fmt.Errorf("questions import: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d questions\n", len(questions))
			return nil
		},
	}
}

func newQuestionsExportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the catalog as YAML or TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			questions, err := a.allQuestions(cmd)
			if err != nil {
				return fmt.Errorf("questions export: %w", err)
			}
			data, err := catalog.Encode(questions, catalog.Format(format))
			if err != nil {
				return fmt.Errorf("questions export: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", string(catalog.FormatYAML), "output format: yaml or toml")
	return cmd
}

func newQuestionsActiveCmd(use, short string, active bool) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   use + " [id...]",
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return fmt.Errorf("questions %s: give question ids or --all", use)
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.cfg.Questions.Source == "file" {
				return fmt.Errorf("questions %s: edit %s directly when questions come from a file", use, a.cfg.Questions.File)
			}

			existing, err := a.store.AllQuestions(cmd.Context())
			if err != nil {
				return fmt.Errorf("questions %s: %w", use, err)
			}
			known := make(map[string]bool, len(existing))
			for _, q := range existing {
				known[q.ID] = true
			}
			for _, id := range args {
				if !known[id] {
					return fmt.Errorf("questions %s: question %q not found", use, id)
				}
			}

			ids := args
			if all {
				ids = []string{""}
			}
			var changed int64
			for _, id := range ids {
				n, err := a.store.SetActive(cmd.Context(), id, active)
				if err != nil {
					return fmt.Errorf("questions %s: %w", use, err)
				}
				changed += n
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d questions\n", changed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "apply to every question")
	return cmd
}
