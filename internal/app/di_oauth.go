package app

import (
	"fmt"

	oauthHTTP "github.com/gateproof/authcore/internal/oauth/http"
	oauthRepository "github.com/gateproof/authcore/internal/oauth/repository"
	oauthService "github.com/gateproof/authcore/internal/oauth/service"
	oauthUsecase "github.com/gateproof/authcore/internal/oauth/usecase"
)

// StateRepository returns the OAuth state repository instance.
func (c *Container) StateRepository() (oauthUsecase.StateRepository, error) {
	var err error
	c.stateRepoInit.Do(func() {
		c.stateRepo, err = c.initStateRepository()
		if err != nil {
			c.initErrors["stateRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["stateRepo"]; exists {
		return nil, storedErr
	}
	return c.stateRepo, nil
}

// AccountRepository returns the linked OAuth account repository instance.
func (c *Container) AccountRepository() (oauthUsecase.AccountRepository, error) {
	var err error
	c.accountRepoInit.Do(func() {
		c.accountRepo, err = c.initAccountRepository()
		if err != nil {
			c.initErrors["accountRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["accountRepo"]; exists {
		return nil, storedErr
	}
	return c.accountRepo, nil
}

// OAuthUseCase returns the OAuth flow use case instance.
func (c *Container) OAuthUseCase() (oauthUsecase.OAuthUseCase, error) {
	var err error
	c.oauthUseCaseInit.Do(func() {
		c.oauthUseCase, err = c.initOAuthUseCase()
		if err != nil {
			c.initErrors["oauthUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["oauthUseCase"]; exists {
		return nil, storedErr
	}
	return c.oauthUseCase, nil
}

// initStateRepository creates the OAuth state repository instance.
func (c *Container) initStateRepository() (oauthUsecase.StateRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for state repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return oauthRepository.NewMySQLStateRepository(db), nil
	case "postgres":
		return oauthRepository.NewPostgreSQLStateRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initAccountRepository creates the OAuth account repository instance.
func (c *Container) initAccountRepository() (oauthUsecase.AccountRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for account repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return oauthRepository.NewMySQLAccountRepository(db), nil
	case "postgres":
		return oauthRepository.NewPostgreSQLAccountRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initProviderRegistry builds the provider registry from the configured
// provider credentials. Providers without credentials are not registered.
func (c *Container) initProviderRegistry() (*oauthService.ProviderRegistry, error) {
	httpClient, err := c.ResilienceClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get http client for provider registry: %w", err)
	}

	var clients []oauthService.ProviderClient
	if c.config.GithubClientID != "" {
		clients = append(clients, oauthService.NewGithubProvider(
			httpClient,
			c.config.GithubClientID,
			c.config.GithubClientSecret,
		))
	}
	if c.config.GoogleClientID != "" {
		clients = append(clients, oauthService.NewGoogleProvider(
			httpClient,
			c.config.GoogleClientID,
			c.config.GoogleClientSecret,
		))
	}

	return oauthService.NewProviderRegistry(clients...), nil
}

// initOAuthUseCase creates the OAuth use case with all its dependencies.
func (c *Container) initOAuthUseCase() (oauthUsecase.OAuthUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for oauth use case: %w", err)
	}

	stateRepo, err := c.StateRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get state repository for oauth use case: %w", err)
	}

	accountRepo, err := c.AccountRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get account repository for oauth use case: %w", err)
	}

	userUseCase, err := c.UserUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get user use case for oauth use case: %w", err)
	}

	providers, err := c.initProviderRegistry()
	if err != nil {
		return nil, err
	}

	keyChain, err := c.KeyChain()
	if err != nil {
		return nil, fmt.Errorf("failed to get key chain for oauth use case: %w", err)
	}

	auditLogUseCase, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for oauth use case: %w", err)
	}

	opts := oauthUsecase.Options{
		StateTTL:        c.config.OAuthStateTTL,
		MinStateLookup:  c.config.OAuthMinStateLookup,
		EntropyFloor:    c.config.OAuthEntropyFloor,
		ExchangeTimeout: c.config.OAuthExchangeTimeout,
	}

	useCase := oauthUsecase.NewOAuthUseCase(
		txManager,
		stateRepo,
		accountRepo,
		userUseCase,
		providers,
		oauthService.NewStateTokenGenerator(),
		oauthService.NewRedirectValidator(c.config.OAuthAllowedRedirectURIs),
		oauthService.NewAttackDetector(),
		c.TokenCipher(),
		keyChain,
		auditLogUseCase,
		c.Logger(),
		opts,
	)

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for oauth use case: %w", err)
	}

	return oauthUsecase.NewOAuthUseCaseWithMetrics(useCase, businessMetrics), nil
}

// oauthHandler creates the OAuth HTTP handler.
func (c *Container) oauthHandler() (*oauthHTTP.OAuthHandler, error) {
	oauthUseCase, err := c.OAuthUseCase()
	if err != nil {
		return nil, err
	}
	sessionUseCase, err := c.SessionUseCase()
	if err != nil {
		return nil, err
	}
	return oauthHTTP.NewOAuthHandler(oauthUseCase, sessionUseCase, c.Logger()), nil
}
