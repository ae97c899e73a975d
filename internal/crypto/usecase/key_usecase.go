package usecase

import (
	"context"
	"log/slog"
	"time"

	auditDomain "github.com/gateproof/authcore/internal/audit/domain"
	auditUseCase "github.com/gateproof/authcore/internal/audit/usecase"
	cryptoDomain "github.com/gateproof/authcore/internal/crypto/domain"
	cryptoService "github.com/gateproof/authcore/internal/crypto/service"
	"github.com/gateproof/authcore/internal/database"
	apperrors "github.com/gateproof/authcore/internal/errors"
)

// keyUseCase implements KeyUseCase for managing token encryption keys.
//
// Rotation is transactional: retiring the old key and inserting its
// replacement either both happen or neither does, preserving the invariant
// that exactly one key is active at a time.
type keyUseCase struct {
	txManager  database.TxManager
	keyRepo    KeyRepository
	keyManager cryptoService.KeyManager
	keeper     cryptoDomain.KMSKeeper
	auditor    RotationAuditor
	logger     *slog.Logger
}

// NewKeyUseCase creates a new KeyUseCase with the provided dependencies.
// auditor may be nil, disabling rotation audit events.
func NewKeyUseCase(
	txManager database.TxManager,
	keyRepo KeyRepository,
	keyManager cryptoService.KeyManager,
	keeper cryptoDomain.KMSKeeper,
	auditor RotationAuditor,
	logger *slog.Logger,
) KeyUseCase {
	return &keyUseCase{
		txManager:  txManager,
		keyRepo:    keyRepo,
		keyManager: keyManager,
		keeper:     keeper,
		auditor:    auditor,
		logger:     logger,
	}
}

// CreateKey creates the initial active encryption key.
// Returns errors.ErrConflict if an active key already exists.
func (k *keyUseCase) CreateKey(
	ctx context.Context,
	alg cryptoDomain.Algorithm,
) (*cryptoDomain.EncryptionKey, error) {
	_, err := k.keyRepo.GetActive(ctx)
	if err == nil {
		return nil, apperrors.Wrap(apperrors.ErrConflict, "active encryption key already exists")
	}
	if !apperrors.Is(err, cryptoDomain.ErrNoActiveKey) {
		return nil, err
	}

	key, err := k.keyManager.GenerateKey(ctx, k.keeper, alg)
	if err != nil {
		return nil, err
	}

	if err := k.keyRepo.Create(ctx, key); err != nil {
		return nil, err
	}

	return key, nil
}

// LoadKeyChain loads all keys, unwraps their material via the KMS keeper, and
// assembles them into a KeyChain. Retired keys are included so tokens that
// have not been re-encrypted yet remain decryptable.
func (k *keyUseCase) LoadKeyChain(ctx context.Context) (*cryptoDomain.KeyChain, error) {
	keys, err := k.keyRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, key := range keys {
		if err := k.keyManager.UnwrapKey(ctx, k.keeper, key); err != nil {
			return nil, apperrors.Wrap(err, "failed to unwrap encryption key "+key.ID.String())
		}
	}

	return cryptoDomain.NewKeyChain(keys), nil
}

// Rotate creates a new active key and retires the previous one atomically.
//
// The new key's version is the previous maximum plus one. When no key exists
// yet, Rotate degenerates to initial creation, making it safe to call whether
// or not the system has been initialized. Re-encryption of stored tokens under
// the new key is performed by the ReencryptionJob afterwards.
func (k *keyUseCase) Rotate(
	ctx context.Context,
	alg cryptoDomain.Algorithm,
) (*cryptoDomain.EncryptionKey, error) {
	var newKey *cryptoDomain.EncryptionKey

	err := k.txManager.WithTx(ctx, func(ctx context.Context) error {
		current, err := k.keyRepo.GetActive(ctx)
		if err != nil && !apperrors.Is(err, cryptoDomain.ErrNoActiveKey) {
			return err
		}

		maxVersion, err := k.keyRepo.MaxVersion(ctx)
		if err != nil {
			return err
		}

		newKey, err = k.keyManager.GenerateKey(ctx, k.keeper, alg)
		if err != nil {
			return err
		}
		newKey.Version = maxVersion + 1
		newKey.CreatedAt = time.Now().UTC()

		if current != nil {
			if err := k.keyRepo.Deactivate(ctx, current.ID); err != nil {
				return err
			}
		}

		return k.keyRepo.Create(ctx, newKey)
	})
	if err != nil {
		return nil, err
	}

	// the key is committed at this point, so audit delivery is best effort
	if k.auditor != nil {
		_, logErr := k.auditor.LogSecurityEvent(ctx, auditUseCase.LogEntry{
			EventType: auditDomain.EventKeyRotation,
			Success:   true,
			Payload: auditDomain.RawPayload{
				"key_id":  newKey.ID.String(),
				"version": newKey.Version,
			},
		})
		if logErr != nil {
			k.logger.Warn("failed to record key rotation event",
				slog.String("key_id", newKey.ID.String()),
				slog.String("error", logErr.Error()))
		}
	}

	return newKey, nil
}
