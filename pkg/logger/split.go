package logger

import (
	"context"
	"errors"
	"log/slog"
)

// NewSplitHandler returns a handler which writes each record to every given
// handler.
func NewSplitHandler(handlers ...slog.Handler) slog.Handler {
	return splitHandler(handlers)
}

type splitHandler []slog.Handler

// Enabled reports true if any handler accepts the level.  Handle re-checks
// each handler so that a quiet handler never receives records.
func (s splitHandler) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range s {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (s splitHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs error
	for _, h := range s {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		errs = errors.Join(errs, h.Handle(ctx, record.Clone()))
	}
	return errs
}

func (s splitHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(splitHandler, len(s))
	for i, h := range s {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (s splitHandler) WithGroup(name string) slog.Handler {
	out := make(splitHandler, len(s))
	for i, h := range s {
		out[i] = h.WithGroup(name)
	}
	return out
}
