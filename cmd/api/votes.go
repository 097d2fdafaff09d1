package main

import (
	"github.com/spf13/cobra"

	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/app"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/survey"
)

func newGroupsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List poll groups with their current definition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.environment(cmd.Context())
			if err != nil {
				return err
			}
			groups, err := env.votes.ListGroupsWithLatest(cmd.Context())
			if err != nil {
				return err
			}
			return opts.print(groups)
		},
	}
}

func newDefinitionCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "definition",
		Short: "Create and manage poll definitions",
	}

	var createQuestions string
	create := &cobra.Command{
		Use:   "create <group>",
		Short: "Create an active definition for a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var questions []survey.Question
			if err := readJSON(cmd, createQuestions, &questions); err != nil {
				return err
			}
			env, err := opts.environment(cmd.Context())
			if err != nil {
				return err
			}
			d, err := env.votes.CreateDefinition(cmd.Context(), args[0], questions)
			if err != nil {
				return err
			}
			return opts.print(d)
		},
	}
	create.Flags().StringVar(&createQuestions, "questions", "-", "JSON file with the questions (- for stdin)")

	var updateQuestions string
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace the questions of a definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var questions []survey.Question
			if err := readJSON(cmd, updateQuestions, &questions); err != nil {
				return err
			}
			env, err := opts.environment(cmd.Context())
			if err != nil {
				return err
			}
			d, err := env.votes.UpdateDefinition(cmd.Context(), args[0], questions)
			if err != nil {
				return err
			}
			return opts.print(d)
		},
	}
	update.Flags().StringVar(&updateQuestions, "questions", "-", "JSON file with the questions (- for stdin)")

	cmd.AddCommand(
		create,
		update,
		newSetActiveCommand(opts, "open", "Accept responses for a definition", true),
		newSetActiveCommand(opts, "close", "Stop accepting responses for a definition", false),
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a definition, keeping its responses",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				env, err := opts.environment(cmd.Context())
				if err != nil {
					return err
				}
				if err := env.votes.DeleteDefinition(cmd.Context(), args[0]); err != nil {
					return err
				}
				return opts.print(map[string]bool{"ok": true})
			},
		},
	)
	return cmd
}

func newSetActiveCommand(opts *rootOptions, use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.environment(cmd.Context())
			if err != nil {
				return err
			}
			d, err := env.votes.SetActive(cmd.Context(), args[0], active)
			if err != nil {
				return err
			}
			return opts.print(d)
		},
	}
}

func newVoterCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "voter <cpf>",
		Short: "Check whether a cpf may vote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.environment(cmd.Context())
			if err != nil {
				return err
			}
			check, err := env.votes.ValidateVoter(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return opts.print(check)
		},
	}
}

func newVoteCommand(opts *rootOptions) *cobra.Command {
	var (
		answersPath string
		durationMs  int64
	)
	cmd := &cobra.Command{
		Use:   "vote <definition-id> <cpf>",
		Short: "Record or replace a voter's answers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var answers []survey.Answer
			if err := readJSON(cmd, answersPath, &answers); err != nil {
				return err
			}
			env, err := opts.environment(cmd.Context())
			if err != nil {
				return err
			}
			res, err := env.votes.SubmitResponse(cmd.Context(), app.SubmitInput{
				DefinitionID: args[0],
				Identifier:   args[1],
				Answers:      answers,
				DurationMs:   durationMs,
			})
			if err != nil {
				return err
			}
			return opts.print(res)
		},
	}
	cmd.Flags().StringVar(&answersPath, "answers", "-", "JSON file with the answers (- for stdin)")
	cmd.Flags().Int64Var(&durationMs, "duration-ms", 0, "time the voter spent answering")
	return cmd
}

func newResponseCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "response <definition-id> <cpf>",
		Short: "Show a voter's stored answers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.environment(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := env.votes.GetResponse(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return opts.print(map[string]any{"found": resp != nil, "response": resp})
		},
	}
}

func newResultsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "results <definition-id>",
		Short: "Tally the responses of a definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.environment(cmd.Context())
			if err != nil {
				return err
			}
			res, err := env.votes.GetResults(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return opts.print(res)
		},
	}
}
