package serve

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/inngest/inngestsdk/pkg/config"
	"github.com/inngest/inngestsdk/pkg/enums"
	"github.com/inngest/inngestsdk/pkg/execution/state"
	"github.com/inngest/inngestsdk/pkg/logger"
	"github.com/stretchr/testify/require"
)

func TestFunctions(t *testing.T) {
	fns, err := Functions()
	require.NoError(t, err)
	require.Len(t, fns, 2)
	require.Equal(t, "onboard-user", fns[0].Slug())
	require.True(t, fns[0].HasFailureHandler())
	require.Equal(t, "daily-digest", fns[1].Slug())
}

func TestNewLogger(t *testing.T) {
	t.Run("without a file", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l, closeLog, err := newLogger(buf, "", "json", logger.LevelInfo)
		require.NoError(t, err)
		l.Info("hello")
		l.Debug("hidden")
		require.NoError(t, closeLog())
		require.Contains(t, buf.String(), `"msg":"hello"`)
		require.NotContains(t, buf.String(), "hidden")
	})

	t.Run("mirrors logs to a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "serve.log")
		buf := &bytes.Buffer{}
		l, closeLog, err := newLogger(buf, path, "text", logger.LevelInfo)
		require.NoError(t, err)
		l.Info("serving functions", "port", 3000)
		require.NoError(t, closeLog())

		require.Contains(t, buf.String(), "serving functions")
		byt, err := os.ReadFile(path)
		require.NoError(t, err)
		line := map[string]any{}
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(byt), &line))
		require.Equal(t, "serving functions", line["msg"])
		require.EqualValues(t, 3000, line["port"])
	})

	t.Run("invalid paths", func(t *testing.T) {
		_, _, err := newLogger(&bytes.Buffer{}, filepath.Join(t.TempDir(), "missing", "serve.log"), "json", logger.LevelInfo)
		require.ErrorContains(t, err, "error opening log file")
	})
}

func TestRouter(t *testing.T) {
	cfg := config.Default()
	cfg.Serve.RegisterURL = ""
	cfg.Serve.Origin = "https://demo.example.com/"

	ctx := logger.WithStdlib(context.Background(), logger.VoidLogger())
	router, err := NewRouter(ctx, cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(router)
	defer srv.Close()

	t.Run("introspection", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/inngest?introspect")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotEmpty(t, resp.Header.Get("X-Inngest-SDK"))

		body := struct {
			FunctionCount int `json:"function_count"`
			Functions     []struct {
				ID    string `json:"id"`
				Steps map[string]struct {
					Runtime map[string]any `json:"runtime"`
				} `json:"steps"`
			} `json:"functions"`
		}{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Equal(t, 2, body.FunctionCount)
		require.Len(t, body.Functions, 3)
		require.Equal(t, "onboard-user-failure", body.Functions[1].ID)
		require.Equal(t,
			"https://demo.example.com/api/inngest?fnId=daily-digest&stepId=step",
			body.Functions[2].Steps["step"].Runtime["url"],
		)
	})

	t.Run("register is disabled", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/inngest", nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	})

	t.Run("parallel steps are discovered", func(t *testing.T) {
		resp, err := http.Post(
			srv.URL+"/api/inngest?fnId=daily-digest&stepId=step",
			"application/json",
			strings.NewReader(`{"event": {"name": "inngest/scheduled.timer", "data": {}}, "steps": {}, "ctx": {"stack": {"stack": []}}}`),
		)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusPartialContent, resp.StatusCode)

		ops := []state.GeneratorOpcode{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&ops))
		require.Len(t, ops, 2)
		require.ElementsMatch(t, []string{"count-signups", "count-orders"}, []string{ops[0].Name, ops[1].Name})
		require.Equal(t, enums.OpcodeStepPlanned, ops[0].Op)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		byt, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Contains(t, string(byt), `inngestsdk_ticks_total{outcome="discovery"} 1`)
		require.Contains(t, string(byt), `inngestsdk_http_requests_total{code="501",method="PUT"} 1`)
		require.Contains(t, string(byt), `inngestsdk_http_requests_total{code="206",method="POST"} 1`)
	})
}
