// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/studyping/studyping/internal/canvas"
	"github.com/studyping/studyping/internal/config"
	"github.com/studyping/studyping/internal/digest"
	"github.com/studyping/studyping/internal/llm"
	"github.com/studyping/studyping/internal/pkg/ctxlog"
	"github.com/studyping/studyping/internal/pkg/httputil"
	"github.com/studyping/studyping/internal/pkg/metrics"
	"github.com/studyping/studyping/internal/pkg/postgres"
	"github.com/studyping/studyping/internal/registry"
	registryfile "github.com/studyping/studyping/internal/registry/file"
	registrypostgres "github.com/studyping/studyping/internal/registry/postgres"
	"github.com/studyping/studyping/internal/reminder"
	"github.com/studyping/studyping/internal/scheduler"
	"github.com/studyping/studyping/internal/sms"
	"github.com/studyping/studyping/internal/version"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool // nil with the file registry driver
	server        *http.Server
	metricsServer *http.Server
	bgCancel      context.CancelFunc
	scheduler     *scheduler.Scheduler
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	app := &App{
		config: cfg,
		logger: logger,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	app.bgCancel = bgCancel

	reg, err := app.setupRegistry(bgCtx)
	if err != nil {
		bgCancel()
		return nil, err
	}

	router := app.setupRouter(bgCtx, reg)

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on its own port.
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers and blocks until the main server exits.
func (a *App) Run() error {
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.bgCancel()

	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	if a.db != nil {
		a.db.Close()
	}

	return errors.Join(errs...)
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// Scheduler returns the scheduler instance for the tests and the manual
// trigger. Never nil.
func (a *App) Scheduler() *scheduler.Scheduler {
	return a.scheduler
}

func (a *App) setupRegistry(ctx context.Context) (registry.Repository, error) {
	switch a.config.Storage.Driver {
	case "postgres":
		connectCtx, cancel := context.WithTimeout(ctx, a.config.Database.ConnectTimeout)
		defer cancel()

		db, err := postgres.Connect(connectCtx, postgres.Config{
			URL:             a.config.Database.URL,
			MaxOpenConns:    a.config.Database.MaxOpenConns,
			MaxIdleConns:    a.config.Database.MaxIdleConns,
			ConnMaxLifetime: a.config.Database.ConnMaxLifetime,
			ConnectAttempts: a.config.Database.ConnectAttempts,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db

		go a.collectDBMetrics(ctx)

		return registrypostgres.NewRepository(db), nil

	default:
		slog.Info("using file subscription registry", "path", a.config.Storage.FilePath)
		return registryfile.NewStore(a.config.Storage.FilePath), nil
	}
}

func (a *App) setupRouter(ctx context.Context, reg registry.Repository) *chi.Mux {
	r := chi.NewRouter()

	// Metrics first so the full request time is measured; CORS early so
	// preflights never hit the rest of the stack.
	r.Use(httputil.MetricsMiddleware)
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		http.ServeFile(w, r, "api/openapi/openapi.yaml")
	})

	canvasClient := canvas.NewClient(canvas.Config{BaseURL: a.config.Canvas.BaseURL})
	llmClient := llm.NewClient(llm.Config{
		BaseURL: a.config.LLM.BaseURL,
		APIKey:  a.config.LLM.APIKey,
		Model:   a.config.LLM.Model,
	})
	smsSender := sms.NewSender(sms.Config{
		BaseURL:         a.config.SMS.BaseURL,
		APIKey:          a.config.SMS.APIKey,
		Sender:          a.config.SMS.Sender,
		ReplyWebhookURL: a.config.SMS.ReplyWebhookURL,
		RateLimit:       a.config.SMS.RateLimit,
	})

	if !llmClient.Configured() {
		slog.Warn("text-generation api key is not set: reminder cycles will fail until configured")
	}
	if !smsSender.Configured() {
		slog.Warn("sms api key is not set: deliveries will fail until configured")
	}

	aggregator := digest.NewAggregator(canvasClient)
	composer := reminder.NewComposer(llmClient)
	cycleService := reminder.NewService(
		aggregator,
		composer,
		smsSender,
		llmClient.Configured(),
		smsSender.Configured(),
	)

	loc, err := time.LoadLocation(a.config.Scheduler.Timezone)
	if err != nil {
		// Config validation already checked the zone; fall back defensively.
		loc = time.UTC
	}
	a.scheduler = scheduler.New(scheduler.Config{
		Hour:     a.config.Scheduler.Hour,
		Minute:   a.config.Scheduler.Minute,
		Location: loc,
	}, reg, cycleService)

	if a.config.Scheduler.Enabled {
		a.scheduler.Start(ctx)
	} else {
		slog.Info("daily scheduler disabled; only manual triggers will run batches")
	}

	replyRouter := sms.NewReplyRouter(composer, smsSender)

	reminder.NewHandler(cycleService, canvasClient, reg).RegisterRoutes(r)
	sms.NewHandler(replyRouter, smsSender, a.config.SMS.WebhookSecret).RegisterRoutes(r)
	scheduler.NewHandler(a.scheduler).RegisterRoutes(r)

	return r
}

func (a *App) collectDBMetrics(ctx context.Context) {
	metrics.RecordDBPoolMetrics(a.db)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(a.db)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	if a.db == nil {
		httputil.Text(w, http.StatusOK, "OK")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
