package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/gorm"

	"github.com/simp-lee/recordsvc/internal/config"
	"github.com/simp-lee/recordsvc/internal/domain"
	"github.com/simp-lee/recordsvc/internal/events"
	"github.com/simp-lee/recordsvc/internal/middleware"
	"github.com/simp-lee/recordsvc/internal/module/record"
	"github.com/simp-lee/recordsvc/internal/pkg"
)

const serviceName = "recordsvc"

// App holds the core application dependencies and the HTTP server.
type App struct {
	engine     *gin.Engine
	db         *gorm.DB
	logger     *logger.Logger
	cfg        *config.Config
	ready      *atomic.Bool
	subscriber *events.Subscriber
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var newHTTPServer = func(addr string, handler http.Handler) httpServer {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

var notifyContext = func(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// New creates and wires a fully configured App from the given Config.
//
// It sets up logging, database, migrations, the record store, gateway and
// handlers, middleware, routes and, when enabled, the event subscriber.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	success := false

	// 1. Setup logger.
	log, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	if cfg.Server.Mode == gin.DebugMode && cfg.Server.Host == "0.0.0.0" {
		log.Warn("insecure server config: debug mode on 0.0.0.0 may expose debug behavior and permissive CORS")
	}
	defer func() {
		if success {
			return
		}
		if err := log.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}()

	// 2. Setup database.
	db, err := config.SetupDatabase(&cfg.Database, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}
	defer func() {
		if success {
			return
		}
		if err := config.CloseDatabase(db); err != nil {
			slog.Error("database close error", slog.Any("error", err))
		}
	}()

	// 3. Schema migrations.
	if cfg.Database.Migrate {
		if err := config.MigrateDatabase(db, cfg.Database.Driver, log.Logger, &domain.Record{}); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	// 4. Manual dependency injection: store → gateway → handler → module.
	pages := pkg.PageDefaults{
		DefaultLimit: cfg.Pagination.DefaultLimit,
		MaxLimit:     cfg.Pagination.MaxLimit,
	}
	store := record.NewRecordRepository(db)
	gateway := record.NewGateway(store, record.GatewayConfig{
		DefaultLimit:    pages.DefaultLimit,
		MaxLimit:        pages.MaxLimit,
		ConsistentCount: cfg.Pagination.ConsistentCount,
	}, log.Logger)
	recordModule := record.NewModule(record.NewRecordHandler(gateway, pages))

	// 5. Create Gin engine with custom middleware (not gin.Default()).
	if err := validateGinMode(cfg.Server.Mode); err != nil {
		return nil, err
	}
	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()

	engine.Use(
		middleware.Recovery(log.Logger),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			TrustUpstream: false,
		}),
		middleware.Logger(log.Logger, healthzPath, readyzPath),
		middleware.CORSWithConfig(resolveCORSConfig(cfg.Server.Mode, cfg.Server.CORS)),
	)
	if cfg.Server.RateLimit.Enabled {
		engine.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RPS:   cfg.Server.RateLimit.RPS,
			Burst: cfg.Server.RateLimit.Burst,
		}))
	}
	if timeout := config.Duration(cfg.Server.Timeout, 0); timeout > 0 {
		engine.Use(middleware.Timeout(timeout))
	}

	// 6. Event subscriber.
	var subscriber *events.Subscriber
	if cfg.Events.Enabled {
		subscriber, err = startSubscriber(&cfg.Events, log.Logger)
		if err != nil {
			return nil, fmt.Errorf("start event subscriber: %w", err)
		}
	}
	defer func() {
		if success || subscriber == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = subscriber.Drain(ctx)
	}()

	// 7. Register all routes.
	ready := &atomic.Bool{}
	deps := &RouteDeps{
		Modules: []Module{recordModule},
		DB:      db,
		Ready:   ready,
	}
	if subscriber != nil {
		deps.Events = subscriber
	}
	if err := RegisterRoutes(engine, deps); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	success = true
	return &App{
		engine:     engine,
		db:         db,
		logger:     log,
		cfg:        cfg,
		ready:      ready,
		subscriber: subscriber,
	}, nil
}

func startSubscriber(cfg *config.EventsConfig, log *slog.Logger) (*events.Subscriber, error) {
	registry := events.NewRegistry()
	if err := events.RegisterDefaults(registry, log); err != nil {
		return nil, err
	}

	nc, err := events.Connect(cfg.NATSURL, serviceName, log)
	if err != nil {
		return nil, err
	}

	sub := events.NewSubscriber(nc, registry, events.SubscriberConfig{
		Subject:        cfg.Subject,
		QueueGroup:     cfg.QueueGroup,
		HandlerTimeout: 30 * time.Second,
	}, log)
	if err := sub.Start(); err != nil {
		nc.Close()
		return nil, err
	}
	return sub, nil
}

// resolveCORSConfig merges configured CORS settings over the defaults.
// In release mode, when no allowlist is configured, cross-origin requests are
// not answered with CORS headers.
func resolveCORSConfig(mode string, configured config.CORSConfig) middleware.CORSConfig {
	corsConfig := middleware.DefaultCORSConfig()

	if len(configured.AllowMethods) > 0 {
		corsConfig.AllowMethods = configured.AllowMethods
	}
	if len(configured.AllowHeaders) > 0 {
		corsConfig.AllowHeaders = configured.AllowHeaders
	}
	corsConfig.AllowCredentials = configured.AllowCredentials
	corsConfig.MaxAge = config.Duration(configured.MaxAge, corsConfig.MaxAge)

	if len(configured.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = configured.AllowOrigins
		return corsConfig
	}

	if mode == gin.ReleaseMode {
		corsConfig.AllowOrigins = []string{}
	}

	return corsConfig
}

func validateGinMode(mode string) error {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return nil
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}
}

// Handler returns the HTTP handler served by Run: the gin engine wrapped with
// OpenTelemetry server instrumentation.
func (a *App) Handler() http.Handler {
	return otelhttp.NewHandler(a.engine, serviceName)
}

// Run starts the HTTP server and blocks until a shutdown signal is received.
// Shutdown marks the app unready, drains the event subscriber, stops the HTTP
// server with a 5-second deadline, then closes the database and logger.
func (a *App) Run() error {
	if a == nil {
		return errors.New("app is nil")
	}
	if a.cfg == nil {
		return errors.New("app config is nil")
	}
	if a.engine == nil {
		return errors.New("app engine is nil")
	}

	log := slog.Default()
	if a.logger != nil {
		log = a.logger.Logger
	}

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := newHTTPServer(addr, a.Handler())

	// Listen for SIGINT / SIGTERM.
	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	if a.ready != nil {
		a.ready.Store(true)
	}

	var runErr error

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	if a.ready != nil {
		a.ready.Store(false)
	}

	if a.subscriber != nil {
		drainCtx, cancel := context.WithTimeout(context.Background(), config.Duration(a.cfg.Events.DrainTimeout, 10*time.Second))
		if err := a.subscriber.Drain(drainCtx); err != nil {
			log.Error("event subscriber drain error", slog.Any("error", err))
		} else {
			log.Info("event subscriber drained")
		}
		cancel()
	}

	if runErr == nil {
		// Graceful shutdown with 5-second deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", slog.Any("error", err))
		}
	}

	if a.db != nil {
		if err := config.CloseDatabase(a.db); err != nil {
			log.Error("database close error", slog.Any("error", err))
		} else {
			log.Info("database connection closed")
		}
	}

	log.Info("server stopped")
	if a.logger != nil {
		if err := a.logger.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}

	return runErr
}
