package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/search"
)

func newExportCommand(opts *rootOptions) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "export <profile>",
		Short: "Write a profile table to an xlsx file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.environment(cmd.Context())
			if err != nil {
				return err
			}
			svc, err := env.exporter(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.Export(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			path := filepath.Join(outDir, res.Filename)
			if err := os.WriteFile(path, res.Data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			return opts.print(map[string]any{
				"path":      path,
				"rows":      res.Rows,
				"objectKey": res.ObjectKey,
			})
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory for the exported file")
	return cmd
}

func newSearchCommand(opts *rootOptions) *cobra.Command {
	var q search.Query
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Search participants across profiles",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				q.Text = args[0]
			}
			env, err := opts.environment(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := env.search.Search(cmd.Context(), q)
			if err != nil {
				return err
			}
			return opts.print(resp)
		},
	}
	cmd.Flags().StringVar(&q.Profile, "profile", "", "restrict to one profile")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "page size")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "results to skip")
	return cmd
}

func newReindexCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the Meilisearch index from the tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.environment(cmd.Context())
			if err != nil {
				return err
			}
			n, err := env.search.ReindexAll(cmd.Context())
			if err != nil {
				return err
			}
			return opts.print(map[string]int{"indexed": n})
		},
	}
}
