package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "inngestsdk"

// Recorder records metrics for executed ticks.  A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	registry   *prometheus.Registry
	ticks      *prometheus.CounterVec
	violations *prometheus.CounterVec
	steps      *prometheus.HistogramVec
	requests   *prometheus.CounterVec
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "The total number of function ticks executed, by outcome",
		}, []string{"outcome"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "determinism_violations_total",
			Help:      "The total number of ticks aborted due to non-deterministic functions",
		}, []string{"code"}),
		steps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Distribution of step callback durations",
			Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5, 10, 30, 60},
		}, []string{"outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "The total number of HTTP requests served, by method and status code",
		}, []string{"method", "code"}),
	}
	r.registry.MustRegister(r.ticks, r.violations, r.steps, r.requests)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) IncrTick(outcome string) {
	if r == nil {
		return
	}
	r.ticks.WithLabelValues(outcome).Inc()
}

func (r *Recorder) IncrViolation(code string) {
	if r == nil {
		return
	}
	r.violations.WithLabelValues(code).Inc()
}

func (r *Recorder) ObserveStep(outcome string, dur time.Duration) {
	if r == nil {
		return
	}
	r.steps.WithLabelValues(outcome).Observe(dur.Seconds())
}

// Middleware counts each request served by next once it completes.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, req)
		r.requests.WithLabelValues(req.Method, strconv.Itoa(m.Code)).Inc()
	})
}

// Opts holds the configuration options for the metrics API
type Opts struct {
	AuthMiddleware func(http.Handler) http.Handler
	Recorder       *Recorder
}

// MetricsAPI provides Prometheus-compatible metrics endpoints
type MetricsAPI struct {
	opts   Opts
	Router chi.Router
}

// NewMetricsAPI creates a new metrics API serving the recorder's registry.
func NewMetricsAPI(opts Opts) (*MetricsAPI, error) {
	if opts.Recorder == nil {
		return nil, errNoRecorder
	}
	api := &MetricsAPI{
		opts:   opts,
		Router: chi.NewRouter(),
	}
	api.setupRoutes()
	return api, nil
}

func (api *MetricsAPI) setupRoutes() {
	var handler http.Handler = http.HandlerFunc(api.handleMetrics)
	if api.opts.AuthMiddleware != nil {
		handler = api.opts.AuthMiddleware(handler)
	}
	api.Router.Method(http.MethodGet, "/", handler)
}

// handleMetrics serves Prometheus-formatted metrics
func (api *MetricsAPI) handleMetrics(w http.ResponseWriter, r *http.Request) {
	families, err := api.opts.Recorder.registry.Gather()
	if err != nil {
		http.Error(w, "Failed to gather metrics", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", string(expfmt.FmtText))
	encoder := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err := encoder.Encode(mf); err != nil {
			http.Error(w, "Failed to encode metrics", http.StatusInternalServerError)
			return
		}
	}
}
