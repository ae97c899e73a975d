package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gateproof/authcore/internal/app"
	"github.com/gateproof/authcore/internal/config"
)

// RunServer starts the HTTP server with graceful shutdown support.
// Loads configuration, initializes the DI container, and starts the Gin HTTP
// server alongside the background workers: the outbox processor, the token
// re-encryption job and the periodic expired-row sweeps. Blocks until
// receiving SIGINT/SIGTERM or encountering a fatal error.
func RunServer(ctx context.Context, version string) error {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode based on log level
	gin.SetMode(cfg.GetGinMode())

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("starting server", slog.String("version", version))

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Get HTTP server from container (this initializes all dependencies)
	server, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	// Get Metrics server from container
	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	outboxUseCase, err := container.OutboxUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize outbox use case: %w", err)
	}

	reencryptionJob, err := container.ReencryptionJob()
	if err != nil {
		return fmt.Errorf("failed to initialize re-encryption job: %w", err)
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Start servers in goroutines
	serverErr := make(chan error, 2)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErr <- fmt.Errorf("api server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				serverErr <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	// Start background workers
	go func() {
		if err := outboxUseCase.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", slog.Any("error", err))
		}
	}()
	go reencryptionJob.Start(ctx)
	go runCleanupLoop(ctx, container, logger, cfg.CleanupInterval)

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DBConnMaxLifetime)
		defer shutdownCancel()

		var shutdownErrors []error

		if err := server.Shutdown(shutdownCtx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("api server shutdown: %w", err))
		}

		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
			}
		}

		if len(shutdownErrors) > 0 {
			return errors.Join(shutdownErrors...)
		}
	case err := <-serverErr:
		// Attempt graceful shutdown if one server fails
		logger.Error("server error, initiating shutdown", slog.Any("error", err))
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DBConnMaxLifetime)
		defer shutdownCancel()

		var shutdownErrors []error
		shutdownErrors = append(shutdownErrors, err)

		if server != nil {
			if shutErr := server.Shutdown(shutdownCtx); shutErr != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("api server shutdown: %w", shutErr))
			}
		}

		if metricsServer != nil {
			if shutErr := metricsServer.Shutdown(shutdownCtx); shutErr != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", shutErr))
			}
		}

		return errors.Join(shutdownErrors...)
	}

	return nil
}

// runCleanupLoop sweeps expired sessions, OAuth states, API tokens and audit
// logs on a fixed interval until the context is cancelled.
func runCleanupLoop(ctx context.Context, container *app.Container, logger *slog.Logger, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCleanupSweep(ctx, container, logger)
		}
	}
}

// runCleanupSweep runs one pass of all expired-row sweeps. Failures are
// logged and never abort the remaining sweeps.
func runCleanupSweep(ctx context.Context, container *app.Container, logger *slog.Logger) {
	if sessionUseCase, err := container.SessionUseCase(); err == nil {
		if count, err := sessionUseCase.CleanExpired(ctx); err != nil {
			logger.Error("failed to clean expired sessions", slog.Any("error", err))
		} else if count > 0 {
			logger.Info("cleaned expired sessions", slog.Int64("count", count))
		}
	}

	if oauthUseCase, err := container.OAuthUseCase(); err == nil {
		if count, err := oauthUseCase.CleanExpiredStates(ctx); err != nil {
			logger.Error("failed to clean expired oauth states", slog.Any("error", err))
		} else if count > 0 {
			logger.Info("cleaned expired oauth states", slog.Int64("count", count))
		}
	}

	if tokenUseCase, err := container.TokenUseCase(); err == nil {
		if count, err := tokenUseCase.CleanExpired(ctx); err != nil {
			logger.Error("failed to clean expired tokens", slog.Any("error", err))
		} else if count > 0 {
			logger.Info("cleaned expired tokens", slog.Int64("count", count))
		}
	}

	if auditLogUseCase, err := container.AuditLogUseCase(); err == nil {
		if count, err := auditLogUseCase.CleanExpired(ctx); err != nil {
			logger.Error("failed to clean expired audit logs", slog.Any("error", err))
		} else if count > 0 {
			logger.Info("cleaned expired audit logs", slog.Int64("count", count))
		}
	}
}
