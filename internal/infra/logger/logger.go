// Package logger builds the crew's slog logger. Records logged with a
// context that carries a run ID are tagged with it, so nested agent runs
// and tool calls can be traced back to the run that started them.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"content-crew/internal/domain"
	"content-crew/internal/infra/config"
)

// Option adjusts New.
type Option func(*options)

type options struct {
	reserveStdout bool
}

// WithStdoutReserved sends stdout-bound logs to stderr instead. Commands
// whose stdout carries the final post or the MCP stream use it.
func WithStdoutReserved() Option {
	return func(o *options) { o.reserveStdout = true }
}

// New returns a logger for cfg and a closer for any file it opened.
func New(cfg config.LoggerConfig, opts ...Option) (*slog.Logger, func() error, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	w, closer, err := openOutput(outputTarget(cfg.Output, o.reserveStdout), cfg.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("open log output: %w", err)
	}

	hopts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var h slog.Handler = slog.NewTextHandler(w, hopts)
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, hopts)
	}
	return slog.New(runHandler{h}), closer, nil
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// runHandler adds run_id from the record's context.
type runHandler struct{ slog.Handler }

func (h runHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := domain.RunIDFromContext(ctx); id != "" {
		r.AddAttrs(slog.String("run_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h runHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return runHandler{h.Handler.WithAttrs(attrs)}
}

func (h runHandler) WithGroup(name string) slog.Handler {
	return runHandler{h.Handler.WithGroup(name)}
}

// outputTarget normalizes a configured output name.
func outputTarget(output string, reserveStdout bool) string {
	target := strings.ToLower(strings.TrimSpace(output))
	if reserveStdout && target == "stdout" {
		return "stderr"
	}
	return target
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// openOutput resolves target (already lower-cased) to a writer. Anything
// that is not a stream name is a file path, taken verbatim from raw.
func openOutput(target, raw string) (io.Writer, func() error, error) {
	nop := func() error { return nil }
	switch target {
	case "", "stderr":
		return os.Stderr, nop, nil
	case "stdout":
		return os.Stdout, nop, nil
	case "discard":
		return io.Discard, nop, nil
	}
	f, err := os.OpenFile(raw, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
