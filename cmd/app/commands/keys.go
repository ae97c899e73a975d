package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	cryptoDomain "github.com/gateproof/authcore/internal/crypto/domain"
	cryptoUseCase "github.com/gateproof/authcore/internal/crypto/usecase"
)

// RunCreateEncryptionKey creates the initial token encryption key.
// Fails if an active key already exists; use rotate-encryption-key instead.
//
// Requirements: Database must be migrated and the KMS keeper reachable.
func RunCreateEncryptionKey(
	ctx context.Context,
	keyUseCase cryptoUseCase.KeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	algorithm string,
	format string,
) error {
	alg, err := parseAlgorithm(algorithm)
	if err != nil {
		return err
	}

	logger.Info("creating encryption key", slog.String("algorithm", string(alg)))

	key, err := keyUseCase.CreateKey(ctx, alg)
	if err != nil {
		return fmt.Errorf("failed to create encryption key: %w", err)
	}

	if err := outputKey(writer, key, format); err != nil {
		return err
	}

	logger.Info("encryption key created successfully",
		slog.String("key_id", key.ID.String()),
		slog.Uint64("version", uint64(key.Version)),
	)

	return nil
}

// RunRotateEncryptionKey creates a new active encryption key and retires the
// previous one. Stored tokens are re-encrypted in the background by the
// running server.
//
// Requirements: Database must be migrated and the KMS keeper reachable.
func RunRotateEncryptionKey(
	ctx context.Context,
	keyUseCase cryptoUseCase.KeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	algorithm string,
	format string,
) error {
	alg, err := parseAlgorithm(algorithm)
	if err != nil {
		return err
	}

	logger.Info("rotating encryption key", slog.String("algorithm", string(alg)))

	key, err := keyUseCase.Rotate(ctx, alg)
	if err != nil {
		return fmt.Errorf("failed to rotate encryption key: %w", err)
	}

	if err := outputKey(writer, key, format); err != nil {
		return err
	}

	logger.Info("encryption key rotated successfully",
		slog.String("key_id", key.ID.String()),
		slog.Uint64("version", uint64(key.Version)),
	)

	return nil
}

// parseAlgorithm validates an algorithm flag value.
func parseAlgorithm(algorithm string) (cryptoDomain.Algorithm, error) {
	alg := cryptoDomain.Algorithm(algorithm)
	if !alg.Valid() {
		return "", fmt.Errorf(
			"invalid algorithm: %s (valid options: aes-gcm, chacha20-poly1305)",
			algorithm,
		)
	}
	return alg, nil
}

// outputKey writes the key metadata in the requested format. Key material is
// never written.
func outputKey(writer io.Writer, key *cryptoDomain.EncryptionKey, format string) error {
	if format == "json" {
		result := map[string]interface{}{
			"key_id":    key.ID,
			"algorithm": key.Algorithm,
			"version":   key.Version,
		}
		jsonBytes, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, _ = fmt.Fprintln(writer, string(jsonBytes))
		return nil
	}

	_, _ = fmt.Fprintf(writer, "Key ID:    %s\n", key.ID)
	_, _ = fmt.Fprintf(writer, "Algorithm: %s\n", key.Algorithm)
	_, _ = fmt.Fprintf(writer, "Version:   %d\n", key.Version)
	return nil
}
