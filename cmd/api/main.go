package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/app"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/config"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := &rootOptions{cfg: cfg, logger: logger, out: stdout}
	defer opts.close()

	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		writeError(stderr, err)
		return 1
	}
	return 0
}

type errorBody struct {
	Kind    app.ErrorKind `json:"kind,omitempty"`
	Code    string        `json:"code,omitempty"`
	Message string        `json:"message"`
	Details any           `json:"details,omitempty"`
}

// writeError prints err as JSON. Domain errors keep their kind and code so
// scripts can branch on them.
func writeError(w io.Writer, err error) {
	body := errorBody{Message: err.Error()}
	var de *app.DomainError
	if errors.As(err, &de) {
		body = errorBody{Kind: de.Kind, Code: de.Code, Message: de.Message, Details: de.Details}
		if de.Err != nil {
			body.Message += ": " + de.Err.Error()
		}
	}
	_ = writeJSON(w, map[string]errorBody{"error": body})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
