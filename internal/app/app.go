package app

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/personachat-backend/internal/data/db"
	"github.com/yungbote/personachat-backend/internal/modules/chat/breaker"
	"github.com/yungbote/personachat-backend/internal/observability"
	"github.com/yungbote/personachat-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
}

// New connects every dependency and wires the HTTP stack. It does not
// migrate; run the migrate command first.
func New(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)
	metrics := observability.Init(log)

	pg, err := db.NewPostgresService(log, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	theDB := pg.DB()

	clients, err := wireClients(log, cfg)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, clients)
	handlerset := wireHandlers(log, theDB, serviceset)
	middleware := wireMiddleware(log, cfg)

	var reg prometheus.Registerer
	if metrics != nil {
		reg = metrics.Registry()
	}
	router := wireRouter(log, cfg, reg, handlerset, middleware)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		Metrics:      metrics,
		pg:           pg,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves the API and, when metrics are enabled, the scrape endpoint
// until ctx is cancelled or either listener fails.
func (a *App) Run(ctx context.Context, addr, metricsAddr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	a.Metrics.StartBreakerCollector(gctx, func() map[string]int {
		return breakerStateCounts(a.Services.Breakers)
	})
	a.Metrics.StartPostgresCollector(gctx, a.Log, a.DB)
	if a.Clients.AuditBus != nil {
		a.Metrics.StartRedisCollector(gctx, a.Log, a.Clients.AuditBus.Client())
	}

	g.Go(func() error {
		a.Log.Info("api listening", "addr", addr)
		return serve(gctx, &nethttp.Server{Addr: addr, Handler: a.Router, ReadHeaderTimeout: 10 * time.Second})
	})
	if a.Metrics != nil && metricsAddr != "" {
		mux := nethttp.NewServeMux()
		mux.Handle("/metrics", a.Metrics.Handler())
		g.Go(func() error {
			a.Log.Info("metrics listening", "addr", metricsAddr)
			return serve(gctx, &nethttp.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second})
		})
	}
	return g.Wait()
}

func serve(ctx context.Context, srv *nethttp.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case err := <-errCh:
		if errors.Is(err, nethttp.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func breakerStateCounts(r *breaker.Registry) map[string]int {
	counts := map[string]int{
		string(breaker.StateClosed):   0,
		string(breaker.StateOpen):     0,
		string(breaker.StateHalfOpen): 0,
	}
	for _, s := range r.Snapshot() {
		counts[string(s.State)]++
	}
	return counts
}

// Close flushes pending audit writes before releasing connections.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Services.Audit != nil {
		a.Services.Audit.Wait()
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			a.Log.Warn("postgres close failed", "error", err)
		}
	}
	a.Log.Sync()
}
