package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAuthMiddleware creates a test auth middleware
func mockAuthMiddleware(requireAuth bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requireAuth && r.Header.Get("Authorization") == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.IncrTick("complete")
	r.IncrTick("complete")
	r.IncrTick("discovery")
	r.IncrViolation("NON_DETERMINISTIC_FUNCTION")
	r.ObserveStep("success", 20*time.Millisecond)

	families, err := r.Registry().Gather()
	require.NoError(t, err)

	got := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, l := range m.GetLabel() {
				key += ":" + l.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				got[key] = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				got[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}

	assert.Equal(t, map[string]float64{
		"inngestsdk_ticks_total:complete":                                    2,
		"inngestsdk_ticks_total:discovery":                                   1,
		"inngestsdk_determinism_violations_total:NON_DETERMINISTIC_FUNCTION": 1,
		"inngestsdk_step_duration_seconds:success":                           1,
	}, got)
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.IncrTick("complete")
		r.IncrViolation("x")
		r.ObserveStep("error", time.Second)
	})
	assert.Nil(t, r.Registry())
}

func TestMetricsAPI(t *testing.T) {
	tests := []struct {
		name       string
		opts       Opts
		header     string
		wantErr    bool
		wantStatus int
	}{
		{
			name:       "serves metrics",
			opts:       Opts{Recorder: NewRecorder()},
			wantStatus: http.StatusOK,
		},
		{
			name:       "requires auth when configured",
			opts:       Opts{Recorder: NewRecorder(), AuthMiddleware: mockAuthMiddleware(true)},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "passes auth",
			opts:       Opts{Recorder: NewRecorder(), AuthMiddleware: mockAuthMiddleware(true)},
			header:     "Bearer foo",
			wantStatus: http.StatusOK,
		},
		{
			name:    "fails without a recorder",
			opts:    Opts{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, err := NewMetricsAPI(tt.opts)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.opts.Recorder.IncrTick("complete")

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			api.Router.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Contains(t, w.Body.String(), `inngestsdk_ticks_total{outcome="complete"} 1`)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	r := NewRecorder()
	h := r.Middleware(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodPut {
			w.WriteHeader(http.StatusNotImplemented)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, method := range []string{http.MethodGet, http.MethodGet, http.MethodPut} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(method, "/", nil))
	}

	api, err := NewMetricsAPI(Opts{Recorder: r})
	require.NoError(t, err)
	w := httptest.NewRecorder()
	api.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, w.Body.String(), `inngestsdk_http_requests_total{code="200",method="GET"} 2`)
	assert.Contains(t, w.Body.String(), `inngestsdk_http_requests_total{code="501",method="PUT"} 1`)

	var nilRecorder *Recorder
	assert.NotNil(t, nilRecorder.Middleware(h))
}
