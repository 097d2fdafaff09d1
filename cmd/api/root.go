package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/config"
)

type rootOptions struct {
	cfg    config.Config
	logger *slog.Logger
	out    io.Writer

	env *environment
}

// environment builds the services on first use so that --help and flag
// errors never touch the backend.
func (o *rootOptions) environment(ctx context.Context) (*environment, error) {
	if o.env != nil {
		return o.env, nil
	}
	env, err := newEnvironment(ctx, o.cfg, o.logger)
	if err != nil {
		return nil, err
	}
	o.env = env
	return env, nil
}

func (o *rootOptions) close() {
	if o.env != nil {
		o.env.close()
		o.env = nil
	}
}

func (o *rootOptions) print(v any) error {
	return writeJSON(o.out, v)
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "inscricoes",
		Short:         "Manage event registrations and attendee polls",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.cfg.Backend, "backend", opts.cfg.Backend, "table backend: memory, sql or xlsx")
	flags.StringVar(&opts.cfg.XLSXPath, "xlsx", opts.cfg.XLSXPath, "workbook path for the xlsx backend")
	flags.StringVar(&opts.cfg.CatalogPath, "catalog", opts.cfg.CatalogPath, "catalog YAML (defaults to the built-in one)")

	cmd.AddCommand(
		newListCommand(opts),
		newFindCommand(opts),
		newCreateCommand(opts),
		newUpdateCommand(opts),
		newConfirmCommand(opts),
		newCancelCommand(opts),
		newReviewCommand(opts),
		newGroupsCommand(opts),
		newDefinitionCommand(opts),
		newVoterCommand(opts),
		newVoteCommand(opts),
		newResponseCommand(opts),
		newResultsCommand(opts),
		newExportCommand(opts),
		newSearchCommand(opts),
		newReindexCommand(opts),
	)
	return cmd
}

func parseRow(arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, fmt.Errorf("row must be a number, got %q", arg)
	}
	return n, nil
}

// parseFields turns repeated key=value flags into a form map.
func parseFields(pairs []string) (map[string]string, error) {
	form := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("field %q is not key=value", pair)
		}
		form[strings.TrimSpace(key)] = value
	}
	return form, nil
}

// readJSON decodes the file at path into v; "-" reads stdin.
func readJSON(cmd *cobra.Command, path string, v any) error {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
