package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

type stdlibKey struct{}

type handler int

const (
	JSONHandler handler = iota
	TextHandler
	DevHandler
)

// NOTE: reference
// https://go.dev/src/log/slog/example_custom_levels_test.go
const (
	DefaultStdlibLevel = slog.LevelInfo

	LevelTrace     = slog.Level(-8)
	LevelDebug     = slog.LevelDebug
	LevelInfo      = slog.LevelInfo
	LevelNotice    = slog.Level(2)
	LevelWarning   = slog.LevelWarn
	LevelError     = slog.LevelError
	LevelEmergency = slog.Level(12)
)

// Logger is the logger available to functions and to the SDK itself.  It
// wraps slog, adding the trace, notice and emergency levels.
type Logger interface {
	Debug(msg string, args ...any)
	DebugContext(ctx context.Context, msg string, args ...any)
	Info(msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	Warn(msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	Error(msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
	Log(ctx context.Context, level slog.Level, msg string, args ...any)
	LogAttrs(ctx context.Context, level slog.Level, msg string, args ...slog.Attr)
	Handler() slog.Handler
	Level() slog.Level
	With(args ...any) Logger

	Trace(msg string, args ...any)
	TraceContext(ctx context.Context, msg string, args ...any)
	Notice(msg string, args ...any)
	NoticeContext(ctx context.Context, msg string, args ...any)
	Emergency(msg string, args ...any)
	EmergencyContext(ctx context.Context, msg string, args ...any)
	SLog() *slog.Logger
}

type LoggerOpt func(o *loggerOpts)

type loggerOpts struct {
	writer  io.Writer
	level   slog.Level
	handler handler
}

func WithLoggerLevel(lvl slog.Level) LoggerOpt {
	return func(o *loggerOpts) {
		o.level = lvl
	}
}

func WithLoggerWriter(w io.Writer) LoggerOpt {
	return func(o *loggerOpts) {
		o.writer = w
	}
}

func WithHandler(h handler) LoggerOpt {
	return func(o *loggerOpts) {
		o.handler = h
	}
}

// ParseHandler returns the handler for the given name, as used by the
// LOG_HANDLER env var.  Unknown names return the dev handler.
func ParseHandler(name string) handler {
	switch strings.ToLower(name) {
	case "json":
		return JSONHandler
	case "txt", "text":
		return TextHandler
	default:
		return DevHandler
	}
}

// New creates a logger, reading defaults from LOG_HANDLER and LOG_LEVEL.
func New(opts ...LoggerOpt) Logger {
	o := &loggerOpts{
		level:   StdlibLevel(os.Getenv("LOG_LEVEL")),
		writer:  os.Stderr,
		handler: ParseHandler(os.Getenv("LOG_HANDLER")),
	}
	for _, apply := range opts {
		apply(o)
	}
	return FromSlog(slog.New(NewHandler(o.writer, o.handler, o.level)), o.level)
}

// NewHandler returns the slog handler used for the given kind.
func NewHandler(w io.Writer, kind handler, lvl slog.Level) slog.Handler {
	switch kind {
	case DevHandler:
		return tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: "[15:04:05.000]",
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key != slog.LevelKey || len(groups) > 0 {
					return a
				}
				// ref: https://en.wikipedia.org/wiki/ANSI_escape_code#8-bit
				switch a.Value.Any() {
				case LevelTrace:
					return tint.Attr(13, slog.String(a.Key, "TRC"))
				case LevelDebug:
					return tint.Attr(3, slog.String(a.Key, "DBG"))
				case LevelInfo:
					return tint.Attr(14, slog.String(a.Key, "INF"))
				case LevelNotice:
					return tint.Attr(10, slog.String(a.Key, "NTC"))
				case LevelEmergency:
					return tint.Attr(9, slog.String(a.Key, "EMR"))
				}
				return a
			},
		})
	case TextHandler:
		return slog.NewTextHandler(w, handlerOpts(lvl))
	default:
		return slog.NewJSONHandler(w, handlerOpts(lvl))
	}
}

func handlerOpts(lvl slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if attr.Key != slog.LevelKey || len(groups) > 0 {
				return attr
			}
			switch attr.Value.Any() {
			case LevelTrace:
				return slog.String(attr.Key, "TRACE")
			case LevelNotice:
				return slog.String(attr.Key, "NOTICE")
			case LevelEmergency:
				return slog.String(attr.Key, "EMERGENCY")
			}
			return attr
		},
	}
}

// StdlibLogger returns the logger in context, or a new logger if none is
// stored.
func StdlibLogger(ctx context.Context, opts ...LoggerOpt) Logger {
	if l, ok := ctx.Value(stdlibKey{}).(Logger); ok {
		return l
	}
	return New(opts...)
}

func VoidLogger() Logger {
	return New(WithLoggerWriter(io.Discard))
}

func WithStdlib(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, stdlibKey{}, l)
}

func StdlibLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "notice":
		return LevelNotice
	case "warn", "warning":
		return LevelWarning
	case "error":
		return LevelError
	case "emergency":
		return LevelEmergency
	default:
		return DefaultStdlibLevel
	}
}

func FromSlog(l *slog.Logger, level slog.Level) Logger {
	return &logger{
		Logger: l,
		level:  level,
	}
}

// logger is a wrapper over slog with additional levels
type logger struct {
	*slog.Logger
	level slog.Level
}

func (l *logger) Level() slog.Level {
	return l.level
}

func (l *logger) With(args ...any) Logger {
	if len(args) == 0 {
		return l
	}
	return &logger{
		Logger: l.Logger.With(args...),
		level:  l.level,
	}
}

func (l *logger) Trace(msg string, args ...any) {
	l.Logger.Log(context.Background(), LevelTrace, msg, args...)
}

func (l *logger) TraceContext(ctx context.Context, msg string, args ...any) {
	l.Logger.Log(ctx, LevelTrace, msg, args...)
}

func (l *logger) Notice(msg string, args ...any) {
	l.Logger.Log(context.Background(), LevelNotice, msg, args...)
}

func (l *logger) NoticeContext(ctx context.Context, msg string, args ...any) {
	l.Logger.Log(ctx, LevelNotice, msg, args...)
}

func (l *logger) Emergency(msg string, args ...any) {
	l.Logger.Log(context.Background(), LevelEmergency, msg, args...)
}

func (l *logger) EmergencyContext(ctx context.Context, msg string, args ...any) {
	l.Logger.Log(ctx, LevelEmergency, msg, args...)
}

func (l *logger) SLog() *slog.Logger {
	return l.Logger
}
