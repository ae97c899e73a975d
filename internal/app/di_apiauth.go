package app

import (
	"fmt"

	apiauthHTTP "github.com/gateproof/authcore/internal/apiauth/http"
	apiauthRepository "github.com/gateproof/authcore/internal/apiauth/repository"
	apiauthService "github.com/gateproof/authcore/internal/apiauth/service"
	apiauthUseCase "github.com/gateproof/authcore/internal/apiauth/usecase"
)

// ClientRepository returns the admin client repository instance.
func (c *Container) ClientRepository() (apiauthUseCase.ClientRepository, error) {
	var err error
	c.clientRepoInit.Do(func() {
		c.clientRepo, err = c.initClientRepository()
		if err != nil {
			c.initErrors["clientRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["clientRepo"]; exists {
		return nil, storedErr
	}
	return c.clientRepo, nil
}

// APITokenRepository returns the bearer token repository instance.
func (c *Container) APITokenRepository() (apiauthUseCase.TokenRepository, error) {
	var err error
	c.tokenRepoInit.Do(func() {
		c.tokenRepo, err = c.initTokenRepository()
		if err != nil {
			c.initErrors["tokenRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenRepo"]; exists {
		return nil, storedErr
	}
	return c.tokenRepo, nil
}

// APITokenService returns the bearer token service. It is stateless, so no
// lazy initialization is needed.
func (c *Container) APITokenService() apiauthService.TokenService {
	return apiauthService.NewTokenService()
}

// ClientUseCase returns the admin client use case instance.
func (c *Container) ClientUseCase() (apiauthUseCase.ClientUseCase, error) {
	var err error
	c.clientUseCaseInit.Do(func() {
		c.clientUseCase, err = c.initClientUseCase()
		if err != nil {
			c.initErrors["clientUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["clientUseCase"]; exists {
		return nil, storedErr
	}
	return c.clientUseCase, nil
}

// TokenUseCase returns the token use case instance.
func (c *Container) TokenUseCase() (apiauthUseCase.TokenUseCase, error) {
	var err error
	c.tokenUseCaseInit.Do(func() {
		c.tokenUseCase, err = c.initTokenUseCase()
		if err != nil {
			c.initErrors["tokenUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenUseCase"]; exists {
		return nil, storedErr
	}
	return c.tokenUseCase, nil
}

// initClientRepository creates the admin client repository instance.
func (c *Container) initClientRepository() (apiauthUseCase.ClientRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for client repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return apiauthRepository.NewMySQLClientRepository(db), nil
	case "postgres":
		return apiauthRepository.NewPostgreSQLClientRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initTokenRepository creates the bearer token repository instance.
func (c *Container) initTokenRepository() (apiauthUseCase.TokenRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for token repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return apiauthRepository.NewMySQLTokenRepository(db), nil
	case "postgres":
		return apiauthRepository.NewPostgreSQLTokenRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initClientUseCase creates the client use case with all its dependencies.
func (c *Container) initClientUseCase() (apiauthUseCase.ClientUseCase, error) {
	clientRepo, err := c.ClientRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get client repository for client use case: %w", err)
	}

	auditLog, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for client use case: %w", err)
	}

	return apiauthUseCase.NewClientUseCase(
		clientRepo, apiauthService.NewSecretService(), auditLog, c.Logger()), nil
}

// initTokenUseCase creates the token use case with all its dependencies.
func (c *Container) initTokenUseCase() (apiauthUseCase.TokenUseCase, error) {
	clientRepo, err := c.ClientRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get client repository for token use case: %w", err)
	}

	tokenRepo, err := c.APITokenRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get token repository for token use case: %w", err)
	}

	opts := apiauthUseCase.TokenOptions{
		TokenExpiration:   c.config.AuthTokenExpiration,
		MaxFailedAttempts: c.config.LockoutMaxAttempts,
		LockDuration:      c.config.LockoutDuration,
	}

	return apiauthUseCase.NewTokenUseCase(
		clientRepo,
		tokenRepo,
		apiauthService.NewSecretService(),
		c.APITokenService(),
		opts,
	), nil
}

// tokenHandler creates the token HTTP handler.
func (c *Container) tokenHandler() (*apiauthHTTP.TokenHandler, error) {
	tokenUseCase, err := c.TokenUseCase()
	if err != nil {
		return nil, err
	}
	return apiauthHTTP.NewTokenHandler(tokenUseCase, c.Logger()), nil
}

// clientHandler creates the client HTTP handler.
func (c *Container) clientHandler() (*apiauthHTTP.ClientHandler, error) {
	clientUseCase, err := c.ClientUseCase()
	if err != nil {
		return nil, err
	}
	return apiauthHTTP.NewClientHandler(clientUseCase, c.Logger()), nil
}
