package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	out := []map[string]any{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestProxyDropsWhileDisabled(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProxy(slog.NewJSONHandler(buf, nil))
	l := slog.New(p)

	l.Info("replayed")
	require.Equal(t, 0, p.Buffered())

	p.Enable()
	l.Info("new")
	require.Equal(t, 1, p.Buffered())
	require.Empty(t, buf.String())

	require.NoError(t, p.Flush())
	out := lines(t, buf)
	require.Len(t, out, 1)
	require.Equal(t, "new", out[0]["msg"])
}

func TestProxyFlushesOnce(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProxy(slog.NewJSONHandler(buf, nil))
	p.Enable()
	l := slog.New(p)

	l.Info("a")
	l.Info("b")
	require.NoError(t, p.Flush())
	require.Len(t, lines(t, buf), 2)

	l.Info("after")
	require.NoError(t, p.Flush())
	require.Len(t, lines(t, buf), 2)
}

func TestProxyEmptyFlush(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProxy(slog.NewJSONHandler(buf, nil))
	require.NoError(t, p.Flush())
	require.Empty(t, buf.String())
}

func TestProxyAttrsAndGroups(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProxy(slog.NewJSONHandler(buf, nil))
	p.Enable()

	l := slog.New(p).With("run_id", "r1").WithGroup("fn").With("id", "f")
	l.Info("hi", "n", 1)
	slog.New(p).Info("plain")

	require.NoError(t, p.Flush())
	out := lines(t, buf)
	require.Len(t, out, 2)
	require.Equal(t, "r1", out[0]["run_id"])
	require.Equal(t, map[string]any{"id": "f", "n": float64(1)}, out[0]["fn"])
	require.NotContains(t, out[1], "run_id")
}

func TestProxyRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProxy(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	p.Enable()
	l := FromSlog(slog.New(p), slog.LevelWarn)

	l.Info("skip")
	l.Warn("keep")
	require.NoError(t, p.Flush())
	out := lines(t, buf)
	require.Len(t, out, 1)
	require.Equal(t, "keep", out[0]["msg"])
}

func TestSplitHandler(t *testing.T) {
	a, b := &bytes.Buffer{}, &bytes.Buffer{}
	h := NewSplitHandler(
		slog.NewJSONHandler(a, nil),
		slog.NewJSONHandler(b, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	l := slog.New(h).With("k", "v")

	l.Info("info")
	l.Error("error")

	require.Len(t, lines(t, a), 2)
	out := lines(t, b)
	require.Len(t, out, 1)
	require.Equal(t, "v", out[0]["k"])
}

func TestStdlibLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(WithHandler(JSONHandler), WithLoggerWriter(buf), WithLoggerLevel(LevelTrace))
	ctx := WithStdlib(context.Background(), l)

	got := StdlibLogger(ctx)
	require.Same(t, l, got)

	got.Trace("trace")
	got.With("a", 1).Notice("notice")
	out := lines(t, buf)
	require.Len(t, out, 2)
	require.Equal(t, "TRACE", out[0]["level"])
	require.Equal(t, "NOTICE", out[1]["level"])
	require.Equal(t, LevelTrace, got.With("a", 1).Level())

	require.Equal(t, LevelWarning, StdlibLevel("WARN"))
	require.Equal(t, DefaultStdlibLevel, StdlibLevel("nope"))
	require.Equal(t, TextHandler, ParseHandler("txt"))
	require.Equal(t, DevHandler, ParseHandler(""))
}
