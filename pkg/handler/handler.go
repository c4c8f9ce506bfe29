// Package handler serves an app's functions to the orchestrator.  The
// Handler is framework agnostic:  each request is read via an
// adapter.Adapter, and ServeHTTP glues the handler to net/http.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/inngest/inngestsdk/pkg/adapter"
	"github.com/inngest/inngestsdk/pkg/adapter/httpadapter"
	"github.com/inngest/inngestsdk/pkg/consts"
	"github.com/inngest/inngestsdk/pkg/event"
	"github.com/inngest/inngestsdk/pkg/execution"
	"github.com/inngest/inngestsdk/pkg/execution/executor"
	"github.com/inngest/inngestsdk/pkg/function"
	"github.com/inngest/inngestsdk/pkg/headers"
	"github.com/inngest/inngestsdk/pkg/logger"
	"github.com/inngest/inngestsdk/pkg/publicerr"
	"github.com/inngest/inngestsdk/pkg/sdk"
	"github.com/inngest/inngestsdk/pkg/sdkrequest"
)

const (
	ModeDev   = "dev"
	ModeCloud = "cloud"
)

type Opts struct {
	// AppName is the name of the app, sent when registering.
	AppName string
	// URL is the public URL of the serve handler.  If nil, the URL of the
	// incoming request is used.
	URL *url.URL
	// Env is the environment the app is registered within.
	Env string
	// Mode is reported via introspection.  Defaults to ModeDev.
	Mode string
	// Executor runs ticks.  A default executor is created if nil.
	Executor execution.Executor
	// Registrar syncs functions with the orchestrator.  Register requests
	// respond with 501 when nil.
	Registrar sdk.Registrar
	Logger    logger.Logger
	// MaxBodySize limits the size of run requests read by ServeHTTP.
	MaxBodySize int64
}

// Handler serves the functions of a single app.
type Handler struct {
	opts Opts
	log  logger.Logger

	mu        sync.RWMutex
	functions []function.ServableFunction
	bySlug    map[string]function.ServableFunction
}

func New(opts Opts) (*Handler, error) {
	if opts.AppName == "" {
		return nil, fmt.Errorf("an app name is required")
	}
	if opts.Mode == "" {
		opts.Mode = ModeDev
	}
	if opts.Logger == nil {
		opts.Logger = logger.VoidLogger()
	}
	if opts.Executor == nil {
		exec, err := executor.NewExecutor(executor.WithLogger(opts.Logger))
		if err != nil {
			return nil, err
		}
		opts.Executor = exec
	}

	return &Handler{
		opts:   opts,
		log:    opts.Logger.With("app", opts.AppName),
		bySlug: map[string]function.ServableFunction{},
	}, nil
}

// Register adds functions to the handler.  Function IDs must be unique.
func (h *Handler) Register(fns ...function.ServableFunction) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	for _, fn := range fns {
		if _, ok := h.bySlug[fn.Slug()]; ok {
			err = multierror.Append(err, fmt.Errorf("duplicate function ID: %s", fn.Slug()))
			continue
		}
		h.bySlug[fn.Slug()] = fn
		h.functions = append(h.functions, fn)
	}
	return err
}

func (h *Handler) Functions() []function.ServableFunction {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]function.ServableFunction{}, h.functions...)
}

// lookup returns the function for the given ID, and whether the ID is
// the function's failure handler.
func (h *Handler) lookup(id string) (function.ServableFunction, bool, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if fn, ok := h.bySlug[id]; ok {
		return fn, false, true
	}
	if base, ok := strings.CutSuffix(id, consts.FailureSuffix); ok {
		if fn, ok := h.bySlug[base]; ok && fn.HasFailureHandler() {
			return fn, true, true
		}
	}
	return nil, false, false
}

// Handle answers a single request read via a.  Errors returned are
// publicerr.Errors, or internal errors which must not be shown.
func (h *Handler) Handle(ctx context.Context, a adapter.Adapter) (*execution.Response, error) {
	run, err := a.Run(ctx)
	if err != nil {
		return nil, err
	}
	if run != nil {
		return h.run(ctx, run)
	}

	reg, err := a.Register(ctx)
	if err != nil {
		return nil, err
	}
	if reg != nil {
		return h.register(ctx, a, reg)
	}

	view, err := a.View(ctx)
	if err != nil {
		return nil, err
	}
	if view != nil {
		return h.view(ctx, a, view)
	}

	return nil, publicerr.HTTPErr(http.StatusMethodNotAllowed)
}

func (h *Handler) run(ctx context.Context, action *adapter.RunAction) (*execution.Response, error) {
	fn, failure, ok := h.lookup(action.FnID)
	if !ok {
		return nil, publicerr.Errorf(http.StatusGone, "function not found: %q", action.FnID)
	}

	req := &sdkrequest.Request{}
	if err := json.Unmarshal(action.Data, req); err != nil {
		return nil, publicerr.Wrap(err, http.StatusBadRequest, "invalid run request")
	}
	if !failure && fn.HasFailureHandler() && event.IsFailureEvent(req.Event) {
		failure = true
	}

	r, err := execution.NewRequest(req, action.StepID, failure)
	if err != nil {
		return nil, publicerr.Wrap(err, http.StatusBadRequest, fmt.Sprintf("invalid run request: %s", err))
	}
	timer := executor.NewTimer(h.opts.Executor)
	r.Timer = timer

	l := h.log.With(
		"function", fn.Slug(),
		"run_id", req.CallCtx.RunID,
		"step_id", action.StepID,
		"attempt", req.CallCtx.Attempt,
	)
	l.Debug("running function", "stack", len(r.Steps), "failure_handler", failure)

	out, err := h.opts.Executor.Execute(ctx, fn, r)

	var resp execution.Response
	if err != nil {
		l.Warn("function errored", "error", err)
		resp = execution.ErrorResponse(err)
	} else if resp, err = out.HTTPResponse(); err != nil {
		l.Error("error encoding outcome", "error", err, "outcome", out.Type)
		resp = execution.ErrorResponse(err)
	} else {
		l.Debug("function tick finished", "outcome", out.Type)
	}

	if st := timer.Header(); st != "" {
		resp.Header.Set(headers.HeaderKeyServerTiming, st)
	}
	return &resp, nil
}

func (h *Handler) register(ctx context.Context, a adapter.Adapter, action *adapter.RegisterAction) (*execution.Response, error) {
	if h.opts.Registrar == nil {
		return nil, publicerr.Errorf(http.StatusNotImplemented, "registration is not configured for this app")
	}

	appURL, err := h.appURL(a)
	if err != nil {
		return nil, err
	}

	rr := sdk.RegisterRequest{
		V:          fmt.Sprintf("%d", consts.RequestVersion),
		URL:        appURL.String(),
		DeployType: sdk.DeployTypePing,
		SDK:        headers.SDK(),
		Framework:  a.Framework(),
		AppName:    h.opts.AppName,
		Functions:  h.configs(appURL),
		Headers:    sdk.Headers{Env: h.opts.Env},
	}
	rr.Normalize(false)
	if err := rr.Validate(ctx); err != nil {
		return nil, publicerr.Wrap(err, http.StatusInternalServerError, err.Error())
	}

	if err := h.opts.Registrar.Register(ctx, action.DeployID, rr); err != nil {
		h.log.Error("error registering functions", "error", err, "deploy_id", action.DeployID)
		return nil, publicerr.Wrap(err, http.StatusInternalServerError, "error registering functions")
	}
	h.log.Info("registered functions", "count", len(rr.Functions), "deploy_id", action.DeployID)

	return jsonResponse(http.StatusOK, map[string]any{
		"message":  "Successfully registered",
		"modified": true,
	})
}

// Introspection is returned for GET requests.
type Introspection struct {
	FunctionCount int               `json:"function_count"`
	Functions     []sdk.SDKFunction `json:"functions,omitempty"`
	HasSigningKey bool              `json:"has_signing_key"`
	Mode          string            `json:"mode"`
}

func (h *Handler) view(ctx context.Context, a adapter.Adapter, action *adapter.ViewAction) (*execution.Response, error) {
	fns := h.Functions()
	body := Introspection{
		FunctionCount: len(fns),
		Mode:          h.opts.Mode,
	}
	if action.IsIntrospection {
		appURL, err := h.appURL(a)
		if err != nil {
			return nil, err
		}
		body.Functions = h.configs(appURL)
	}
	return jsonResponse(http.StatusOK, body)
}

func (h *Handler) configs(appURL *url.URL) []sdk.SDKFunction {
	cfgs := []sdk.SDKFunction{}
	for _, fn := range h.Functions() {
		cfgs = append(cfgs, function.Config(fn, appURL)...)
	}
	return cfgs
}

// appURL returns the URL functions are served from, without any query.
func (h *Handler) appURL(a adapter.Adapter) (*url.URL, error) {
	if h.opts.URL != nil {
		u := *h.opts.URL
		return &u, nil
	}
	u, err := a.URL()
	if err != nil {
		return nil, publicerr.Wrap(err, http.StatusBadRequest, "unable to determine the app URL")
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func jsonResponse(status int, body any) (*execution.Response, error) {
	byt, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	resp := &execution.Response{
		Status: status,
		Header: http.Header{},
		Body:   byt,
	}
	resp.Header.Set(headers.HeaderKeyContentType, "application/json")
	return resp, nil
}

// ServeHTTP serves the handler via net/http.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	headers.SetStatic(w.Header(), httpadapter.Framework)

	resp, err := h.Handle(r.Context(), httpadapter.New(r, h.opts.MaxBodySize))
	if err != nil {
		if werr := publicerr.WriteHTTP(w, err); werr != nil {
			h.log.Warn("error writing response", "error", werr)
		}
		return
	}
	if err := resp.Write(w); err != nil {
		h.log.Warn("error writing response", "error", err)
	}
}
