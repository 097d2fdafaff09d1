package main

import (
	"github.com/spf13/cobra"

	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/app"
)

func newListCommand(opts *rootOptions) *cobra.Command {
	var (
		status string
		query  string
		page   app.Page
	)
	cmd := &cobra.Command{
		Use:   "list <profile>",
		Short: "List registrations of a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.environment(cmd.Context())
			if err != nil {
				return err
			}
			res, err := env.records.List(cmd.Context(), args[0], app.Status(status), query, page)
			if err != nil {
				return err
			}
			return opts.print(res)
		},
	}
	cmd.Flags().StringVar(&status, "status", string(app.StatusAll), "review status: active, done or all")
	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by name, code or cpf")
	cmd.Flags().IntVar(&page.Limit, "limit", 50, "page size")
	cmd.Flags().IntVar(&page.Offset, "offset", 0, "rows to skip")
	return cmd
}

func newFindCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "find <profile> <cpf>",
		Short: "Find a registration by cpf",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.environment(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := env.records.FindByIdentifier(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return opts.print(map[string]any{"found": rec != nil, "record": rec})
		},
	}
}

func newCreateCommand(opts *rootOptions) *cobra.Command {
	var fields []string
	cmd := &cobra.Command{
		Use:   "create <profile>",
		Short: "Register a participant and assign a code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := parseFields(fields)
			if err != nil {
				return err
			}
			env, err := opts.environment(cmd.Context())
			if err != nil {
				return err
			}
			code, err := env.records.Create(cmd.Context(), args[0], form)
			if err != nil {
				return err
			}
			return opts.print(map[string]string{"code": code})
		},
	}
	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "form field as key=value (repeatable)")
	return cmd
}

func newUpdateCommand(opts *rootOptions) *cobra.Command {
	var fields []string
	cmd := &cobra.Command{
		Use:   "update <profile> <row>",
		Short: "Change fields of an existing registration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := parseRow(args[1])
			if err != nil {
				return err
			}
			form, err := parseFields(fields)
			if err != nil {
				return err
			}
			env, err := opts.environment(cmd.Context())
			if err != nil {
				return err
			}
			if err := env.records.Update(cmd.Context(), args[0], row, form); err != nil {
				return err
			}
			return opts.print(map[string]bool{"ok": true})
		},
	}
	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "form field as key=value (repeatable)")
	return cmd
}

func newConfirmCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <profile> <row>",
		Short: "Give a registration its code if it has none",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := parseRow(args[1])
			if err != nil {
				return err
			}
			env, err := opts.environment(cmd.Context())
			if err != nil {
				return err
			}
			code, err := env.records.Confirm(cmd.Context(), args[0], row)
			if err != nil {
				return err
			}
			return opts.print(map[string]string{"code": code})
		},
	}
}

func newCancelCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <profile> <row>",
		Short: "Delete a registration row",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := parseRow(args[1])
			if err != nil {
				return err
			}
			env, err := opts.environment(cmd.Context())
			if err != nil {
				return err
			}
			if err := env.records.Cancel(cmd.Context(), args[0], row); err != nil {
				return err
			}
			return opts.print(map[string]bool{"ok": true})
		},
	}
}

func newReviewCommand(opts *rootOptions) *cobra.Command {
	var (
		by   string
		undo bool
	)
	cmd := &cobra.Command{
		Use:   "review <profile> <row>",
		Short: "Mark a registration as checked at the desk",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := parseRow(args[1])
			if err != nil {
				return err
			}
			env, err := opts.environment(cmd.Context())
			if err != nil {
				return err
			}
			in := app.ReviewInput{RowIndex: row, ReviewedBy: by, Reviewed: !undo}
			if err := env.records.MarkReviewed(cmd.Context(), args[0], in); err != nil {
				return err
			}
			return opts.print(map[string]bool{"ok": true, "reviewed": !undo})
		},
	}
	cmd.Flags().StringVar(&by, "by", "", "name of the reviewer")
	cmd.Flags().BoolVar(&undo, "undo", false, "clear the review columns instead")
	return cmd
}
