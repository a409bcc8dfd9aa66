package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/freekieb7/neurovault-users/internal/account"
	"github.com/freekieb7/neurovault-users/internal/cache"
	"github.com/freekieb7/neurovault-users/internal/config"
	"github.com/freekieb7/neurovault-users/internal/database"
	"github.com/freekieb7/neurovault-users/internal/events"
	"github.com/freekieb7/neurovault-users/internal/form"
	"github.com/freekieb7/neurovault-users/internal/health"
	"github.com/freekieb7/neurovault-users/internal/oauth"
	"github.com/freekieb7/neurovault-users/internal/session"
	"github.com/freekieb7/neurovault-users/internal/web/handler"
	"github.com/freekieb7/neurovault-users/internal/web/middleware"
	"github.com/freekieb7/neurovault-users/web"
)

// Set at build time with -ldflags "-X main.version=..."
var version = "dev"

const (
	defaultApplicationName = "NeuroVault"
	sessionSweepInterval   = 15 * time.Minute
	maxRequestBytes        = 1 << 20
	slowRequestThreshold   = time.Second
)

func main() {
	ctx := context.Background()

	if err := Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.Server.Environment)
	slog.SetDefault(logger)

	if cfg.Database.MigrateOnStart {
		if err := database.NewMigrator(cfg.Database.URL, logger).Up(); err != nil {
			return errors.Join(errors.New("migration up failed"), err)
		}
	}

	db := database.NewDatabase()
	if err := db.Connect(ctx, cfg.Database); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	cacheConfig := cache.DefaultConfig()
	cacheConfig.Enabled = cfg.Cache.Enabled
	cacheConfig.Addr = cfg.Cache.RedisAddr
	cacheConfig.Password = cfg.Cache.RedisPassword
	cacheConfig.DB = cfg.Cache.RedisDB
	cacheConfig.PoolSize = cfg.Cache.RedisPoolSize

	cacheService, err := cache.NewService(ctx, cacheConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to create cache service: %w", err)
	}
	defer cacheService.Close()

	publisher, err := newPublisher(cfg.Events, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to event broker: %w", err)
	}
	defer publisher.Close()

	sessionStore := session.NewStore(db.Pool)
	sessions := cache.NewSessionStore(cacheService, sessionStore, logger, cfg.Cache.SessionTTL)

	accountService := account.NewService(db.Pool)
	applicationService := oauth.NewApplicationService(db.Pool)
	tokenService := oauth.NewTokenService(db.Pool, cfg.OAuth.PersonalTokenLength)
	connectionService := oauth.NewConnectionService(db.Pool)

	if err := applicationService.EnsureDefault(ctx, cfg.OAuth.DefaultApplicationID, defaultApplicationName); err != nil {
		return fmt.Errorf("failed to register default application: %w", err)
	}

	renderer, err := handler.NewRenderer(web.GetTemplateFS())
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	validator := form.NewValidator()

	base := handler.NewBase(&cfg, logger, sessions, renderer, publisher)
	accountHandler := handler.NewAccountHandler(base, accountService, validator)
	tokenHandler := handler.NewTokenHandler(base, tokenService, applicationService, cfg.OAuth.DefaultApplicationID)
	applicationHandler := handler.NewApplicationHandler(base, applicationService, validator)
	connectionHandler := handler.NewConnectionHandler(base, connectionService)

	healthChecker := health.NewChecker(db.Pool, cacheService, logger, version, string(cfg.Server.Environment))
	healthHandler := handler.NewHealthHandler(&healthChecker)

	mux := http.NewServeMux()
	accountHandler.RegisterRoutes(mux)
	tokenHandler.RegisterRoutes(mux)
	applicationHandler.RegisterRoutes(mux)
	connectionHandler.RegisterRoutes(mux)
	healthHandler.RegisterRoutes(mux)
	handler.RegisterStaticRoutes(mux)

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: middleware.Chain(
			middleware.Recover(logger),
			middleware.MetricsMiddleware(middleware.NewLogMetricsCollector(logger, slowRequestThreshold)),
			middleware.Timeout(cfg.Server.RequestTimeout),
			middleware.RequestSizeMiddleware(maxRequestBytes, logger),
		)(mux),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go sweepSessions(ctx, sessionStore, logger)

	srvErr := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "Listening and serving", "addr", server.Addr, "base_url", cfg.GetBaseURL(), "version", version)
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}

		logger.Info("Shutdown completed")
	}

	return nil
}

func setupLogger(env config.Environment) *slog.Logger {
	switch env {
	case config.EnvProduction:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case config.EnvTesting:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

func newPublisher(cfg config.Events, logger *slog.Logger) (events.Publisher, error) {
	if !cfg.Enabled() {
		logger.Info("No event broker configured, account events are only logged")
		return events.NewNopPublisher(logger), nil
	}
	return events.NewAMQPPublisher(cfg.AMQPURL, cfg.Exchange)
}

// sweepSessions deletes expired sessions until ctx is done.
func sweepSessions(ctx context.Context, store *session.Store, logger *slog.Logger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := store.DeleteExpired(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to delete expired sessions", "error", err)
				continue
			}
			if deleted > 0 {
				logger.InfoContext(ctx, "Deleted expired sessions", "count", deleted)
			}
		}
	}
}
