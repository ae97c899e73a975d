package app

import (
	"fmt"

	auditHTTP "github.com/gateproof/authcore/internal/audit/http"
	auditRepository "github.com/gateproof/authcore/internal/audit/repository"
	auditService "github.com/gateproof/authcore/internal/audit/service"
	auditUseCase "github.com/gateproof/authcore/internal/audit/usecase"
)

// AuditLogRepository returns the audit log repository instance.
func (c *Container) AuditLogRepository() (auditUseCase.AuditLogRepository, error) {
	var err error
	c.auditRepoInit.Do(func() {
		c.auditRepo, err = c.initAuditLogRepository()
		if err != nil {
			c.initErrors["auditRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditRepo"]; exists {
		return nil, storedErr
	}
	return c.auditRepo, nil
}

// AuditLogUseCase returns the audit log use case instance.
func (c *Container) AuditLogUseCase() (auditUseCase.AuditLogUseCase, error) {
	var err error
	c.auditLogUseCaseInit.Do(func() {
		c.auditLogUseCase, err = c.initAuditLogUseCase()
		if err != nil {
			c.initErrors["auditLogUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditLogUseCase"]; exists {
		return nil, storedErr
	}
	return c.auditLogUseCase, nil
}

// initAuditLogRepository creates the audit log repository instance.
func (c *Container) initAuditLogRepository() (auditUseCase.AuditLogRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for audit log repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return auditRepository.NewMySQLAuditLogRepository(db), nil
	case "postgres":
		return auditRepository.NewPostgreSQLAuditLogRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initAuditLogUseCase creates the audit log use case with all its dependencies.
func (c *Container) initAuditLogUseCase() (auditUseCase.AuditLogUseCase, error) {
	auditRepo, err := c.AuditLogRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log repository for audit log use case: %w", err)
	}

	locker, err := c.AccountLocker()
	if err != nil {
		return nil, fmt.Errorf("failed to get account locker for audit log use case: %w", err)
	}

	// Alerting is optional; without a webhook URL critical events are only logged.
	var alerter auditUseCase.Alerter
	if c.config.AlertWebhookURL != "" {
		httpClient, err := c.ResilienceClient()
		if err != nil {
			return nil, fmt.Errorf("failed to get http client for webhook alerter: %w", err)
		}
		alerter = auditService.NewWebhookAlerter(httpClient, c.config.AlertWebhookURL)
	}

	lockout := auditUseCase.LockoutPolicy{
		MaxAttempts:  c.config.LockoutMaxAttempts,
		Window:       c.config.LockoutWindow,
		LockDuration: c.config.LockoutDuration,
	}

	useCase := auditUseCase.NewAuditLogUseCase(
		auditRepo,
		auditService.NewChecksumService(),
		auditService.NewAnomalyDetector(),
		locker,
		alerter,
		c.Logger(),
		lockout,
		c.config.Environment,
	)

	tiered, err := c.Cache()
	if err != nil {
		return nil, fmt.Errorf("failed to get cache for audit log use case: %w", err)
	}

	return auditUseCase.NewAuditLogUseCaseWithCache(useCase, tiered, c.Logger()), nil
}

// auditLogHandler creates the audit log HTTP handler.
func (c *Container) auditLogHandler() (*auditHTTP.AuditLogHandler, error) {
	auditLogUseCase, err := c.AuditLogUseCase()
	if err != nil {
		return nil, err
	}
	return auditHTTP.NewAuditLogHandler(auditLogUseCase, c.Logger()), nil
}
