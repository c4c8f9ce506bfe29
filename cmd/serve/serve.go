package serve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/inngest/inngestsdk/pkg/config"
	"github.com/inngest/inngestsdk/pkg/execution/executor"
	"github.com/inngest/inngestsdk/pkg/handler"
	"github.com/inngest/inngestsdk/pkg/logger"
	"github.com/inngest/inngestsdk/pkg/metrics"
	"github.com/inngest/inngestsdk/pkg/sdk"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the demo functions to the orchestrator over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a config file.  Searched for from the working directory if unset",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "The host to listen on",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "The port to listen on",
			},
			&cli.StringFlag{
				Name:  "path",
				Usage: "The path to mount the serve handler at",
			},
			&cli.StringFlag{
				Name:  "origin",
				Usage: "The public origin of the app, eg. https://example.com",
			},
			&cli.StringFlag{
				Name:  "register-url",
				Usage: "The orchestrator's register endpoint.  Registration is disabled if empty",
			},
			&cli.StringFlag{
				Name:  "async-boundary",
				Usage: "How long the function may run without using a step before it's considered to be awaiting other work, eg. 100ms",
			},
			&cli.BoolFlag{
				Name:  "disable-immediate-execution",
				Usage: "Always report discovered steps instead of running a single step immediately",
			},
		},
		Action: action,
	}
}

func action(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.NewLoader().Load(ctx, cmd.String("config"))
	if err != nil {
		return err
	}
	cfg.Serve.Host = config.StringFlag(cmd, "host", cfg.Serve.Host)
	cfg.Serve.Port = config.IntFlag(cmd, "port", cfg.Serve.Port)
	cfg.Serve.Path = config.StringFlag(cmd, "path", cfg.Serve.Path)
	cfg.Serve.Origin = config.StringFlag(cmd, "origin", cfg.Serve.Origin)
	cfg.Serve.RegisterURL = config.StringFlag(cmd, "register-url", cfg.Serve.RegisterURL)
	cfg.Execution.AsyncBoundary = config.StringFlag(cmd, "async-boundary", cfg.Execution.AsyncBoundary)
	cfg.Execution.DisableImmediateExecution = config.BoolFlag(cmd, "disable-immediate-execution", cfg.Execution.DisableImmediateExecution)

	// Global flags take priority over the config file.
	level := cfg.Log.Level
	if cmd.IsSet("log-level") || cmd.Bool("verbose") {
		level = os.Getenv("LOG_LEVEL")
	}
	kind := cfg.Log.Handler
	if h := os.Getenv("LOG_HANDLER"); h != "" {
		kind = h
	}
	l, closeLog, err := newLogger(os.Stderr, cfg.Log.File, kind, logger.StdlibLevel(level))
	if err != nil {
		return err
	}
	defer closeLog()
	ctx = logger.WithStdlib(ctx, l)

	router, err := NewRouter(ctx, *cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.Serve.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	eg := errgroup.Group{}
	eg.Go(func() error {
		l.Info("serving functions", "addr", srv.Addr, "path", cfg.Serve.Path, "app", cfg.App.ID)
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		// Unblocks the shutdown routine when the listener fails.
		stop()
		return err
	})
	eg.Go(func() error {
		<-ctx.Done()
		l.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

// newLogger writes to w using the given handler kind.  When file is set,
// records are also appended to it as JSON.
func newLogger(w io.Writer, file, kind string, lvl slog.Level) (logger.Logger, func() error, error) {
	h := logger.NewHandler(w, logger.ParseHandler(kind), lvl)
	if file == "" {
		return logger.FromSlog(slog.New(h), lvl), func() error { return nil }, nil
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening log file: %w", err)
	}
	h = logger.NewSplitHandler(h, logger.NewHandler(f, logger.JSONHandler, lvl))
	return logger.FromSlog(slog.New(h), lvl), f.Close, nil
}

// NewRouter returns the router serving the demo functions at
// cfg.Serve.Path, and metrics at /metrics.
func NewRouter(ctx context.Context, cfg config.Config) (http.Handler, error) {
	l := logger.StdlibLogger(ctx)

	boundary, err := cfg.Execution.Boundary()
	if err != nil {
		return nil, err
	}

	recorder := metrics.NewRecorder()
	exec, err := executor.NewExecutor(
		executor.WithLogger(l),
		executor.WithAsyncBoundary(boundary),
		executor.WithMetrics(recorder),
		executor.WithImmediateExecution(!cfg.Execution.DisableImmediateExecution),
	)
	if err != nil {
		return nil, err
	}

	opts := handler.Opts{
		AppName:  cfg.App.ID,
		Executor: exec,
		Logger:   l,
	}
	if cfg.Serve.RegisterURL != "" {
		opts.Registrar = sdk.HTTPRegistrar{URL: cfg.Serve.RegisterURL}
	}
	if cfg.Serve.Origin != "" {
		u, err := url.Parse(strings.TrimSuffix(cfg.Serve.Origin, "/") + cfg.Serve.Path)
		if err != nil {
			return nil, fmt.Errorf("invalid serve.origin: %w", err)
		}
		opts.URL = u
	}

	h, err := handler.New(opts)
	if err != nil {
		return nil, err
	}
	fns, err := Functions()
	if err != nil {
		return nil, err
	}
	if err := h.Register(fns...); err != nil {
		return nil, err
	}

	api, err := metrics.NewMetricsAPI(metrics.Opts{Recorder: recorder})
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(recorder.Middleware)
	r.Handle(cfg.Serve.Path, h)
	r.Mount("/metrics", api.Router)
	return r, nil
}
