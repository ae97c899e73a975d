package app

import (
	"fmt"

	sessionHTTP "github.com/gateproof/authcore/internal/session/http"
	sessionRepository "github.com/gateproof/authcore/internal/session/repository"
	sessionService "github.com/gateproof/authcore/internal/session/service"
	sessionUsecase "github.com/gateproof/authcore/internal/session/usecase"
)

// SessionRepository returns the session repository instance.
func (c *Container) SessionRepository() (sessionUsecase.SessionRepository, error) {
	var err error
	c.sessionRepoInit.Do(func() {
		c.sessionRepo, err = c.initSessionRepository()
		if err != nil {
			c.initErrors["sessionRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionRepo"]; exists {
		return nil, storedErr
	}
	return c.sessionRepo, nil
}

// SessionTokenService returns the JWT session token service.
func (c *Container) SessionTokenService() (sessionService.TokenService, error) {
	var err error
	c.jwtServiceInit.Do(func() {
		c.jwtService, err = sessionService.NewJWTService(c.config.SessionSigningSecret)
		if err != nil {
			c.initErrors["jwtService"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["jwtService"]; exists {
		return nil, storedErr
	}
	return c.jwtService, nil
}

// SessionUseCase returns the session use case instance.
func (c *Container) SessionUseCase() (sessionUsecase.UseCase, error) {
	var err error
	c.sessionUseCaseInit.Do(func() {
		c.sessionUseCase, err = c.initSessionUseCase()
		if err != nil {
			c.initErrors["sessionUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionUseCase"]; exists {
		return nil, storedErr
	}
	return c.sessionUseCase, nil
}

// initSessionRepository creates the session repository instance.
func (c *Container) initSessionRepository() (sessionUsecase.SessionRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for session repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return sessionRepository.NewMySQLSessionRepository(db), nil
	case "postgres":
		return sessionRepository.NewPostgreSQLSessionRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initSessionUseCase creates the session use case with all its dependencies.
func (c *Container) initSessionUseCase() (sessionUsecase.UseCase, error) {
	sessionRepo, err := c.SessionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get session repository for session use case: %w", err)
	}

	tokenService, err := c.SessionTokenService()
	if err != nil {
		return nil, fmt.Errorf("failed to get token service for session use case: %w", err)
	}

	auditLogUseCase, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for session use case: %w", err)
	}

	return sessionUsecase.NewSessionUseCase(
		sessionRepo,
		tokenService,
		auditLogUseCase,
		c.Logger(),
		c.config.SessionExpiration,
	), nil
}

// sessionHandler creates the session HTTP handler.
func (c *Container) sessionHandler() (*sessionHTTP.SessionHandler, error) {
	sessionUseCase, err := c.SessionUseCase()
	if err != nil {
		return nil, err
	}
	return sessionHTTP.NewSessionHandler(sessionUseCase, c.Logger()), nil
}
