// Package app wires configuration into a running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/examgen/internal/config"
	"github.com/abhisek/examgen/internal/generation"
	"github.com/abhisek/examgen/internal/identity"
	"github.com/abhisek/examgen/internal/llm"
	"github.com/abhisek/examgen/internal/metrics"
	"github.com/abhisek/examgen/internal/ratelimit"
	"github.com/abhisek/examgen/internal/ratelimit/redisstore"
	"github.com/abhisek/examgen/internal/server"
	"github.com/abhisek/examgen/internal/store"
)

const shutdownTimeout = 10 * time.Second

// App holds every long-lived dependency of the service.
type App struct {
	Config         config.Config
	Logger         *slog.Logger
	Store          *store.Store
	Registry       *prometheus.Registry
	Metrics        *metrics.Metrics
	TracerProvider *sdktrace.TracerProvider
	Quota          ratelimit.QuotaStore
	Orchestrator   *generation.Orchestrator
	Verifier       *identity.Verifier
	Handler        http.Handler

	closers []io.Closer
}

// New opens the store, selects the quota backend and builds the provider
// chain, orchestrator and HTTP handler. Close releases what New opened.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &App{Config: cfg, Logger: logger}

	st, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	a.Store = st
	a.closers = append(a.closers, st)

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.New(a.Registry)

	if a.Quota, err = a.openQuotaStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	providers, err := llm.NewChain(ctx, cfg.LLM, st.EventRepo(), logger, a.Metrics)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build provider chain: %w", err)
	}

	if a.TracerProvider, err = newTracerProvider(cfg.TraceExporter, os.Stderr); err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, shutdownFunc(a.TracerProvider.Shutdown))

	a.Orchestrator = generation.New(providers, st.DocumentRepo(), st.ExamRepo(), cfg.Generation,
		generation.WithLogger(logger),
		generation.WithMetrics(a.Metrics),
		generation.WithTracer(a.TracerProvider.Tracer(serviceName+"/generation")))

	a.Verifier = identity.NewVerifier(cfg.JWTSigningKey, cfg.JWTIssuer, logger)

	limiter := ratelimit.NewLimiter(a.Quota, logger, ratelimit.WithMetrics(a.Metrics))
	mw := ratelimit.NewMiddleware(limiter, cfg.Policies, logger,
		ratelimit.WithUserID(identity.UserID),
		ratelimit.WithDisabled(cfg.RateLimitDisabled))

	a.Handler = server.New(server.Deps{
		Generator: a.Orchestrator,
		Documents: st.DocumentRepo(),
		Exams:     st.ExamRepo(),
		Limiter:   mw,
		Auth:      a.Verifier,
		Health:    st.Ping,
		Gatherer:  a.Registry,
		Logger:    logger,
	}).Routes()

	return a, nil
}

// OpenStore opens the configured database. An empty sqlite DSN resolves
// to the default data path.
func OpenStore(cfg config.Config) (*store.Store, error) {
	dsn := cfg.DBDSN
	if dsn == "" && cfg.DBDriver != store.DriverPostgres {
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
		dsn = p
	}
	st, err := store.Open(cfg.DBDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

func (a *App) openQuotaStore(ctx context.Context) (ratelimit.QuotaStore, error) {
	switch a.Config.QuotaBackend {
	case config.QuotaMemory:
		return ratelimit.NewMemoryStore(), nil
	case config.QuotaRedis:
		client, err := redisstore.Dial(ctx, a.Config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect quota store: %w", err)
		}
		a.closers = append(a.closers, client)
		return redisstore.New(client), nil
	default:
		return a.Store.QuotaStore(), nil
	}
}

// Run serves HTTP and sweeps expired quota entries until ctx is done, then
// shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := server.NewHTTPServer(a.Config.Addr, a.Handler)
	sweeper := ratelimit.NewSweeper(a.Quota, a.Config.SweepInterval, a.Logger, a.Metrics)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info("listening", "addr", a.Config.Addr, "quota_backend", a.Config.QuotaBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		a.Logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close flushes traces and releases the store and any quota backend
// connection.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
