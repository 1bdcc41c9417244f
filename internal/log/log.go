// Package log wires a slog JSON handler which enriches every record with
// attributes carried by the request context. The server stores per-request
// attributes (invocation id, method, path) once and every log call made
// below the handler picks them up.
package log

import (
	"context"
	"log/slog"
	"os"
)

type attrsKeyT struct{}

var attrsKey attrsKeyT

// ContextHandler decorates another slog.Handler and appends attributes
// stored in the context by ContextAttrs to every record.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(handler slog.Handler) ContextHandler {
	return ContextHandler{
		Handler: handler,
	}
}

func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if a, ok := ctx.Value(attrsKey).([]slog.Attr); ok {
		r.AddAttrs(a...)
	}

	return h.Handler.Handle(ctx, r)
}

// ContextAttrs returns a context carrying attrs in addition to whatever
// attributes the parent context already carried.
func ContextAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	a, ok := ctx.Value(attrsKey).([]slog.Attr)
	if !ok || a == nil {
		a = make([]slog.Attr, 0, len(attrs))
	}
	a = append(a, attrs...)
	return context.WithValue(ctx, attrsKey, a)
}

// New builds the process-wide logger: JSON records on stderr, so log output
// never interleaves with anything the process itself writes to stdout.
func New(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	base := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: false,
		Level:     level,
	})
	return slog.New(NewContextHandler(base))
}
