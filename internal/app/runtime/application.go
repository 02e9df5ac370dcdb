// Package runtime turns configuration into a running HTTP server.
package runtime

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	app "github.com/marcelomcerri-bot/feridas/internal/app"
	"github.com/marcelomcerri-bot/feridas/internal/app/httpapi"
	"github.com/marcelomcerri-bot/feridas/internal/app/storage"
	"github.com/marcelomcerri-bot/feridas/internal/app/storage/memory"
	"github.com/marcelomcerri-bot/feridas/internal/app/storage/postgres"
	"github.com/marcelomcerri-bot/feridas/internal/config"
	"github.com/marcelomcerri-bot/feridas/internal/middleware"
	"github.com/marcelomcerri-bot/feridas/internal/platform/migrations"
	"github.com/marcelomcerri-bot/feridas/pkg/logger"
)

const (
	pingTimeout      = 5 * time.Second
	shutdownTimeout  = 10 * time.Second
	rateLimiterSweep = 5 * time.Minute
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg         *config.Config
	log         *logger.Logger
	app         *app.Application
	httpServer  *http.Server
	rateLimiter *middleware.RateLimiter
	db          *sql.DB
}

// NewApplication constructs the service from cfg. Database trouble is not
// fatal: the service falls back to the in-memory store.
func NewApplication(ctx context.Context, cfg *config.Config, log *logger.Logger, opts ...app.Option) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("runtime")
	}

	store, db := buildStore(ctx, cfg.Database, log)
	application, err := app.New(ctx, cfg, app.Stores{Assessments: store}, log, opts...)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}

	a := &Application{cfg: cfg, log: log, app: application, db: db}
	if cfg.Server.RateLimitRPS > 0 {
		a.rateLimiter = middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, log.WithComponent("ratelimit"))
	}

	a.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           a.handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout(cfg, log),
		IdleTimeout:       120 * time.Second,
	}
	return a, nil
}

// writeTimeout keeps the server's write deadline at least as long as a
// comparison can run, so a slow model never drops a response whose records
// were already saved. Zero keeps the deadline disabled.
func writeTimeout(cfg *config.Config, log *logger.Logger) time.Duration {
	configured := cfg.Server.WriteTimeout
	budget := cfg.CompareBudget()
	if configured > 0 && configured < budget {
		log.WithField("configured", configured.String()).
			WithField("effective", budget.String()).
			Warn("HTTP_WRITE_TIMEOUT shorter than a comparison; raising it")
		return budget
	}
	return configured
}

// Handler exposes the fully wrapped router.
func (a *Application) Handler() http.Handler {
	return a.httpServer.Handler
}

// handler wraps the router outside mux so preflight and unmatched requests
// still pass through CORS, tracing and metrics.
func (a *Application) handler() http.Handler {
	var h http.Handler = httpapi.NewHandler(a.app, a.log.WithComponent("httpapi"), httpapi.Options{StaticDir: a.cfg.Server.StaticDir})

	h = middleware.BodyLimit(a.cfg.Server.MaxBodyBytes)(h)
	if a.rateLimiter != nil {
		h = a.rateLimiter.Handler(h)
	}
	h = middleware.NewCORSMiddleware(a.cfg.Server.Origins()).Handler(h)
	h = middleware.MetricsMiddleware()(h)
	h = middleware.NewTracingMiddleware(a.log.WithComponent("http")).Handler(h)
	return h
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	if a.rateLimiter != nil {
		a.rateLimiter.StartCleanup(ctx, rateLimiterSweep)
	}

	go func() {
		a.log.Infof("HTTP server listening on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully shuts down the HTTP server.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}

	return nil
}

func buildStore(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (storage.Store, *sql.DB) {
	if cfg.DSN == "" {
		log.Info("DATABASE_URL not set; using in-memory storage")
		return memory.New(), nil
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("database unavailable; using in-memory storage")
		return memory.New(), nil
	}

	if cfg.AutoMigrate {
		if err := migrations.Apply(ctx, db); err != nil {
			log.WithError(err).Warn("apply migrations; using in-memory storage")
			_ = db.Close()
			return memory.New(), nil
		}
	}

	log.Info("using PostgreSQL storage")
	return postgres.New(db), db
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}
