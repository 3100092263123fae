package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	database "github.com/FACorreiaa/easystock/app/db"
	appLogger "github.com/FACorreiaa/easystock/app/logger"
	"github.com/FACorreiaa/easystock/app/observability/metrics"
	"github.com/FACorreiaa/easystock/app/tracer"
	"github.com/FACorreiaa/easystock/config"
	"github.com/FACorreiaa/easystock/internal/api/auth"
	"github.com/FACorreiaa/easystock/internal/container"
	"github.com/FACorreiaa/easystock/internal/router"
)

// @title        EasyStock Auth API
// @version      1.0
// @description  Session, identity and profile endpoints for the EasyStock inventory app.
// @BasePath     /api
func main() {
	// Use standard log until slog is configured, in case godotenv fails
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := appLogger.New(os.Stdout, cfg.Mode)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Application exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Application shut down complete.")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Observability ---
	shutdownTelemetry, err := tracer.InitTracingAndMetrics(ctx, cfg.Observability)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Error("Telemetry shutdown failed", slog.Any("error", err))
		}
	}()
	metrics.InitAppMetrics()

	// --- Database Migrations ---
	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		return err
	}
	if err := database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		return err
	}

	// --- Dependency Injection ---
	c, err := container.NewContainer(ctx, &cfg, logger)
	if err != nil {
		return fmt.Errorf("build container: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.Close(closeCtx); err != nil {
			logger.Error("Failed to release resources", slog.Any("error", err))
		}
	}()

	// --- Router Setup ---
	var pages http.Handler
	if cfg.Server.WebDir != "" {
		pages = router.SPAHandler(cfg.Server.WebDir)
	}
	mainRouter := router.SetupRouter(&router.Config{
		AuthHandler:    c.AuthHandler,
		OAuthHandler:   c.OAuthHandler,
		OAuthEnabled:   len(c.OAuthProviders) > 0,
		UserHandler:    c.UserHandler,
		RequireSession: auth.RequireSession(c.AuthService, c.Cookie, logger),
		Guard:          c.Guard.Handler,
		Pages:          pages,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	r := chi.NewMux()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appLogger.StructuredLogger(logger))
	r.Use(middleware.Recoverer)
	if cfg.Server.Timeout > 0 {
		r.Use(middleware.Timeout(cfg.Server.Timeout))
	}
	r.Use(middleware.Compress(5, "application/json"))
	r.Mount("/", mainRouter)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.HTTPPort),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received, starting graceful shutdown...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		logger.Info("HTTP server gracefully stopped")
		return nil
	})

	if cfg.Observability.MetricsPort != "" {
		g.Go(func() error {
			return tracer.ServeMetrics(gctx, cfg.Observability.MetricsPort, logger)
		})
	}

	if cfg.Auth.PurgeInterval > 0 {
		g.Go(func() error {
			runJanitor(gctx, c.AuthService, cfg.Auth.PurgeInterval, logger)
			return nil
		})
	}

	return g.Wait()
}

type purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// runJanitor deletes expired sessions and tokens every interval until ctx ends.
func runJanitor(ctx context.Context, p purger, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("Expired row purge failed", slog.Any("error", err))
				continue
			}
			if n > 0 {
				logger.Info("Purged expired rows", slog.Int64("rows", n))
			}
		}
	}
}
