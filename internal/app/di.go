// Package app provides the dependency injection container for assembling
// application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	apiauthUseCase "github.com/gateproof/authcore/internal/apiauth/usecase"
	auditUseCase "github.com/gateproof/authcore/internal/audit/usecase"
	"github.com/gateproof/authcore/internal/cache"
	"github.com/gateproof/authcore/internal/config"
	cryptoDomain "github.com/gateproof/authcore/internal/crypto/domain"
	cryptoUseCase "github.com/gateproof/authcore/internal/crypto/usecase"
	"github.com/gateproof/authcore/internal/database"
	"github.com/gateproof/authcore/internal/http"
	"github.com/gateproof/authcore/internal/metrics"
	oauthUsecase "github.com/gateproof/authcore/internal/oauth/usecase"
	outboxUsecase "github.com/gateproof/authcore/internal/outbox/usecase"
	"github.com/gateproof/authcore/internal/resilience"
	sessionService "github.com/gateproof/authcore/internal/session/service"
	sessionUsecase "github.com/gateproof/authcore/internal/session/usecase"
	userUsecase "github.com/gateproof/authcore/internal/user/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	txManager       database.TxManager
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	breakers        *resilience.BreakerRegistry
	httpClient      *resilience.Client
	cache           *cache.TieredCache

	// Repositories
	userRepo    userStore
	outboxRepo  outboxUsecase.OutboxEventRepository
	sessionRepo sessionUsecase.SessionRepository
	stateRepo   oauthUsecase.StateRepository
	accountRepo oauthUsecase.AccountRepository
	auditRepo   auditUseCase.AuditLogRepository
	clientRepo  apiauthUseCase.ClientRepository
	tokenRepo   apiauthUseCase.TokenRepository
	keyRepo     cryptoUseCase.KeyRepository

	// Services
	jwtService sessionService.TokenService
	keeper     cryptoDomain.KMSKeeper
	keyChain   *cryptoDomain.KeyChain

	// Use Cases
	userUseCase     userUsecase.UseCase
	outboxUseCase   outboxUsecase.UseCase
	sessionUseCase  sessionUsecase.UseCase
	oauthUseCase    oauthUsecase.OAuthUseCase
	auditLogUseCase auditUseCase.AuditLogUseCase
	clientUseCase   apiauthUseCase.ClientUseCase
	tokenUseCase    apiauthUseCase.TokenUseCase
	keyUseCase      cryptoUseCase.KeyUseCase
	reencryptionJob *cryptoUseCase.ReencryptionJob

	// Servers and Workers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	txManagerInit       sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	breakersInit        sync.Once
	httpClientInit      sync.Once
	cacheInit           sync.Once
	userRepoInit        sync.Once
	outboxRepoInit      sync.Once
	sessionRepoInit     sync.Once
	stateRepoInit       sync.Once
	accountRepoInit     sync.Once
	auditRepoInit       sync.Once
	clientRepoInit      sync.Once
	tokenRepoInit       sync.Once
	keyRepoInit         sync.Once
	jwtServiceInit      sync.Once
	keeperInit          sync.Once
	keyChainInit        sync.Once
	userUseCaseInit     sync.Once
	outboxUseCaseInit   sync.Once
	sessionUseCaseInit  sync.Once
	oauthUseCaseInit    sync.Once
	auditLogUseCaseInit sync.Once
	clientUseCaseInit   sync.Once
	tokenUseCaseInit    sync.Once
	keyUseCaseInit      sync.Once
	reencryptionInit    sync.Once
	httpServerInit      sync.Once
	metricsServerInit   sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MetricsProvider returns the OpenTelemetry metrics provider, or nil when
// metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. A no-op recorder is
// returned when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// HTTPServer returns the HTTP server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics HTTP server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		var provider *metrics.Provider
		provider, err = c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = err
			return
		}
		var tiered *cache.TieredCache
		tiered, err = c.Cache()
		if err != nil {
			c.initErrors["metricsServer"] = err
			return
		}
		err = metrics.RegisterResilienceMetrics(
			provider.MeterProvider(), c.config.MetricsNamespace, tiered, c.BreakerRegistry())
		if err != nil {
			c.initErrors["metricsServer"] = err
			return
		}
		c.metricsServer = http.NewMetricsServer(
			c.config.ServerHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// OutboxUseCase returns the outbox use case instance.
func (c *Container) OutboxUseCase() (outboxUsecase.UseCase, error) {
	var err error
	c.outboxUseCaseInit.Do(func() {
		c.outboxUseCase, err = c.initOutboxUseCase()
		if err != nil {
			c.initErrors["outboxUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxUseCase"]; exists {
		return nil, storedErr
	}
	return c.outboxUseCase, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	// Shutdown HTTP servers if initialized
	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}
	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	// Flush metrics if initialized
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// Zero unwrapped key material if a keychain was loaded
	if c.keyChain != nil {
		c.keyChain.Close()
	}

	// Close database connection if initialized
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	// Return combined errors if any occurred
	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

// initBusinessMetrics creates the business metrics recorder.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	if !c.config.MetricsEnabled {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}

	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return businessMetrics, nil
}

// initHTTPServer creates the HTTP server with the full route table.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	oauthHandler, err := c.oauthHandler()
	if err != nil {
		return nil, err
	}
	sessionHandler, err := c.sessionHandler()
	if err != nil {
		return nil, err
	}
	tokenHandler, err := c.tokenHandler()
	if err != nil {
		return nil, err
	}
	clientHandler, err := c.clientHandler()
	if err != nil {
		return nil, err
	}
	auditLogHandler, err := c.auditLogHandler()
	if err != nil {
		return nil, err
	}
	keyHandler, err := c.keyHandler()
	if err != nil {
		return nil, err
	}

	sessionUseCase, err := c.SessionUseCase()
	if err != nil {
		return nil, err
	}
	tokenUseCase, err := c.TokenUseCase()
	if err != nil {
		return nil, err
	}
	auditLogUseCase, err := c.AuditLogUseCase()
	if err != nil {
		return nil, err
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)
	server.SetupRouter(http.RouterConfig{
		OAuthHandler:    oauthHandler,
		SessionHandler:  sessionHandler,
		TokenHandler:    tokenHandler,
		ClientHandler:   clientHandler,
		AuditLogHandler: auditLogHandler,
		KeyHandler:      keyHandler,

		SessionUseCase: sessionUseCase,
		TokenUseCase:   tokenUseCase,
		TokenService:   c.APITokenService(),
		SecurityEvents: auditLogUseCase,

		CORSEnabled:      c.config.CORSEnabled,
		CORSAllowOrigins: c.config.CORSAllowOrigins,

		RateLimitEnabled:        c.config.RateLimitEnabled,
		RateLimitRequestsPerSec: c.config.RateLimitRequestsPerSec,
		RateLimitBurst:          c.config.RateLimitBurst,

		CallbackRateLimitEnabled:        c.config.RateLimitCallbackEnabled,
		CallbackRateLimitRequestsPerSec: c.config.RateLimitCallbackRequestsPerSec,
		CallbackRateLimitBurst:          c.config.RateLimitCallbackBurst,
	})

	return server, nil
}

// initOutboxUseCase creates the outbox use case with all its dependencies.
func (c *Container) initOutboxUseCase() (outboxUsecase.UseCase, error) {
	logger := c.Logger()

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for outbox use case: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for outbox use case: %w", err)
	}

	useCaseConfig := outboxUsecase.Config{
		Interval:      c.config.WorkerInterval,
		BatchSize:     c.config.WorkerBatchSize,
		MaxRetries:    c.config.WorkerMaxRetries,
		RetryInterval: c.config.WorkerRetryInterval,
	}

	eventProcessor := outboxUsecase.NewDefaultEventProcessor(logger)
	useCase := outboxUsecase.NewOutboxUseCase(useCaseConfig, txManager, outboxRepo, eventProcessor, logger)

	return useCase, nil
}
