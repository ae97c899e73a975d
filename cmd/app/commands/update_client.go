package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	apiauthDomain "github.com/gateproof/authcore/internal/apiauth/domain"
	apiauthUseCase "github.com/gateproof/authcore/internal/apiauth/usecase"
)

// RunUpdateClient updates an existing admin API client's name, active flag
// and scopes. The client ID and secret are fixed.
//
// Requirements: Database must be migrated and accessible.
func RunUpdateClient(
	ctx context.Context,
	clientUseCase apiauthUseCase.ClientUseCase,
	logger *slog.Logger,
	writer io.Writer,
	clientIDStr string,
	name string,
	isActive bool,
	scopeValues []string,
) error {
	clientID, err := uuid.Parse(clientIDStr)
	if err != nil {
		return fmt.Errorf("invalid client ID: %w", err)
	}

	scopes, err := parseScopes(scopeValues)
	if err != nil {
		return err
	}
	if len(scopes) == 0 {
		return fmt.Errorf("at least one scope is required")
	}

	logger.Info("updating client",
		slog.String("client_id", clientID.String()),
		slog.String("name", name),
	)

	input := &apiauthDomain.UpdateClientInput{
		Name:     name,
		IsActive: isActive,
		Scopes:   scopes,
	}

	if err := clientUseCase.Update(ctx, clientID, input); err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}

	_, _ = fmt.Fprintf(writer, "Client %s updated successfully\n", clientID)

	logger.Info("client updated successfully",
		slog.String("client_id", clientID.String()),
	)

	return nil
}

// RunUnlockClient clears the lockout state for an admin API client.
//
// Requirements: Database must be migrated and accessible.
func RunUnlockClient(
	ctx context.Context,
	clientUseCase apiauthUseCase.ClientUseCase,
	logger *slog.Logger,
	writer io.Writer,
	clientIDStr string,
) error {
	clientID, err := uuid.Parse(clientIDStr)
	if err != nil {
		return fmt.Errorf("invalid client ID: %w", err)
	}

	logger.Info("unlocking client", slog.String("client_id", clientID.String()))

	if err := clientUseCase.Unlock(ctx, clientID); err != nil {
		return fmt.Errorf("failed to unlock client: %w", err)
	}

	_, _ = fmt.Fprintf(writer, "Client %s unlocked successfully\n", clientID)
	return nil
}
