package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/gateproof/authcore/internal/crypto/domain"
	cryptoService "github.com/gateproof/authcore/internal/crypto/service"
)

// ReencryptionJob re-encrypts stored tokens under the active key after a
// rotation. It runs in the background, processing tokens in batches so a
// rotation never blocks request handling.
//
// Records that fail to re-encrypt (for example tokens whose key material is
// gone from the keychain) are logged, excluded from subsequent batches, and
// left encrypted under their old key. Old keys stay in the keychain until
// every token has moved off them, so a failed record remains readable.
type ReencryptionJob struct {
	store       EncryptedTokenStore
	tokenCipher cryptoService.TokenCipher
	keyChain    *cryptoDomain.KeyChain
	logger      *slog.Logger
	batchSize   int
	interval    time.Duration
	skipped     []uuid.UUID
}

// NewReencryptionJob creates a new ReencryptionJob.
func NewReencryptionJob(
	store EncryptedTokenStore,
	tokenCipher cryptoService.TokenCipher,
	keyChain *cryptoDomain.KeyChain,
	logger *slog.Logger,
	batchSize int,
	interval time.Duration,
) *ReencryptionJob {
	return &ReencryptionJob{
		store:       store,
		tokenCipher: tokenCipher,
		keyChain:    keyChain,
		logger:      logger,
		batchSize:   batchSize,
		interval:    interval,
	}
}

// RunOnce processes a single batch of tokens still encrypted under a retired
// key and returns the number of tokens successfully re-encrypted.
func (j *ReencryptionJob) RunOnce(ctx context.Context) (int, error) {
	active, ok := j.keyChain.Active()
	if !ok {
		return 0, cryptoDomain.ErrNoActiveKey
	}

	records, err := j.store.ListByKeyIDNot(ctx, active.ID, j.skipped, j.batchSize)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, record := range records {
		if err := j.reencryptRecord(ctx, record, active); err != nil {
			j.logger.Error("failed to re-encrypt token record, skipping",
				"record_id", record.ID,
				"old_key_id", record.KeyID,
				"error", err,
			)
			j.skipped = append(j.skipped, record.ID)
			continue
		}
		processed++
	}

	return processed, nil
}

func (j *ReencryptionJob) reencryptRecord(
	ctx context.Context,
	record *ReencryptableToken,
	active *cryptoDomain.EncryptionKey,
) error {
	oldKey, ok := j.keyChain.Get(record.KeyID)
	if !ok {
		return cryptoDomain.ErrKeyNotFound
	}

	updated := &ReencryptableToken{ID: record.ID, KeyID: active.ID, AAD: record.AAD}

	if record.AccessToken != nil {
		plaintext, err := j.tokenCipher.DecryptToken(record.AccessToken, oldKey, record.AAD)
		if err != nil {
			return err
		}
		updated.AccessToken, err = j.tokenCipher.EncryptToken(plaintext, active, record.AAD)
		cryptoDomain.Zero(plaintext)
		if err != nil {
			return err
		}
	}

	if record.RefreshToken != nil {
		plaintext, err := j.tokenCipher.DecryptToken(record.RefreshToken, oldKey, record.AAD)
		if err != nil {
			return err
		}
		updated.RefreshToken, err = j.tokenCipher.EncryptToken(plaintext, active, record.AAD)
		cryptoDomain.Zero(plaintext)
		if err != nil {
			return err
		}
	}

	return j.store.UpdateEncryptedTokens(ctx, updated)
}

// Start runs the job loop until the context is canceled. A batch is processed
// every interval; when a batch comes back full another one likely follows, so
// the next tick is not skipped.
func (j *ReencryptionJob) Start(ctx context.Context) {
	j.logger.Info("starting token re-encryption job",
		"batch_size", j.batchSize,
		"interval", j.interval,
	)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("token re-encryption job stopped")
			return
		case <-ticker.C:
			processed, err := j.RunOnce(ctx)
			if err != nil {
				j.logger.Error("re-encryption batch failed", "error", err)
				continue
			}
			if processed > 0 {
				j.logger.Info("re-encrypted token batch", "count", processed)
			}
		}
	}
}
