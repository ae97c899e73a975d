package app

import (
	"context"
	"fmt"

	cryptoDomain "github.com/gateproof/authcore/internal/crypto/domain"
	cryptoHTTP "github.com/gateproof/authcore/internal/crypto/http"
	cryptoRepository "github.com/gateproof/authcore/internal/crypto/repository"
	cryptoService "github.com/gateproof/authcore/internal/crypto/service"
	cryptoUseCase "github.com/gateproof/authcore/internal/crypto/usecase"
)

// KeyRepository returns the encryption key repository instance.
func (c *Container) KeyRepository() (cryptoUseCase.KeyRepository, error) {
	var err error
	c.keyRepoInit.Do(func() {
		c.keyRepo, err = c.initKeyRepository()
		if err != nil {
			c.initErrors["keyRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyRepo"]; exists {
		return nil, storedErr
	}
	return c.keyRepo, nil
}

// KMSKeeper returns the KMS keeper that wraps encryption key material.
func (c *Container) KMSKeeper() (cryptoDomain.KMSKeeper, error) {
	var err error
	c.keeperInit.Do(func() {
		c.keeper, err = cryptoService.NewKMSService().OpenKeeper(context.Background(), c.config.KMSKeyURI)
		if err != nil {
			c.initErrors["keeper"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keeper"]; exists {
		return nil, storedErr
	}
	return c.keeper, nil
}

// KeyUseCase returns the encryption key use case instance.
func (c *Container) KeyUseCase() (cryptoUseCase.KeyUseCase, error) {
	var err error
	c.keyUseCaseInit.Do(func() {
		c.keyUseCase, err = c.initKeyUseCase()
		if err != nil {
			c.initErrors["keyUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyUseCase"]; exists {
		return nil, storedErr
	}
	return c.keyUseCase, nil
}

// KeyChain returns the unwrapped encryption key chain, loading it on first
// access. Retired keys are included so tokens awaiting re-encryption stay
// decryptable.
func (c *Container) KeyChain() (*cryptoDomain.KeyChain, error) {
	var err error
	c.keyChainInit.Do(func() {
		var keyUseCase cryptoUseCase.KeyUseCase
		keyUseCase, err = c.KeyUseCase()
		if err != nil {
			c.initErrors["keyChain"] = err
			return
		}
		c.keyChain, err = keyUseCase.LoadKeyChain(context.Background())
		if err != nil {
			c.initErrors["keyChain"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyChain"]; exists {
		return nil, storedErr
	}
	return c.keyChain, nil
}

// TokenCipher returns the token cipher service. It is stateless, so no lazy
// initialization is needed.
func (c *Container) TokenCipher() cryptoService.TokenCipher {
	return cryptoService.NewTokenCipher(cryptoService.NewAEADManager())
}

// ReencryptionJob returns the background job that re-encrypts stored tokens
// after a key rotation.
func (c *Container) ReencryptionJob() (*cryptoUseCase.ReencryptionJob, error) {
	var err error
	c.reencryptionInit.Do(func() {
		c.reencryptionJob, err = c.initReencryptionJob()
		if err != nil {
			c.initErrors["reencryptionJob"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["reencryptionJob"]; exists {
		return nil, storedErr
	}
	return c.reencryptionJob, nil
}

// initKeyRepository creates the encryption key repository instance.
func (c *Container) initKeyRepository() (cryptoUseCase.KeyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for key repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return cryptoRepository.NewMySQLKeyRepository(db), nil
	case "postgres":
		return cryptoRepository.NewPostgreSQLKeyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initKeyUseCase creates the key use case with all its dependencies.
func (c *Container) initKeyUseCase() (cryptoUseCase.KeyUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for key use case: %w", err)
	}

	keyRepo, err := c.KeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get key repository for key use case: %w", err)
	}

	keeper, err := c.KMSKeeper()
	if err != nil {
		return nil, fmt.Errorf("failed to get kms keeper for key use case: %w", err)
	}

	auditLog, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for key use case: %w", err)
	}

	return cryptoUseCase.NewKeyUseCase(
		txManager, keyRepo, cryptoService.NewKeyManager(), keeper, auditLog, c.Logger()), nil
}

// initReencryptionJob creates the re-encryption job with all its dependencies.
func (c *Container) initReencryptionJob() (*cryptoUseCase.ReencryptionJob, error) {
	accountRepo, err := c.AccountRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get account repository for re-encryption job: %w", err)
	}

	keyChain, err := c.KeyChain()
	if err != nil {
		return nil, fmt.Errorf("failed to get key chain for re-encryption job: %w", err)
	}

	return cryptoUseCase.NewReencryptionJob(
		accountRepo,
		c.TokenCipher(),
		keyChain,
		c.Logger(),
		c.config.KeyRotationBatchSize,
		c.config.KeyRotationInterval,
	), nil
}

// keyHandler creates the encryption key HTTP handler.
func (c *Container) keyHandler() (*cryptoHTTP.KeyHandler, error) {
	keyUseCase, err := c.KeyUseCase()
	if err != nil {
		return nil, err
	}
	return cryptoHTTP.NewKeyHandler(keyUseCase, c.Logger()), nil
}
