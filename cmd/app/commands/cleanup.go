package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	apiauthUseCase "github.com/gateproof/authcore/internal/apiauth/usecase"
	auditUseCase "github.com/gateproof/authcore/internal/audit/usecase"
	oauthUseCase "github.com/gateproof/authcore/internal/oauth/usecase"
	sessionUseCase "github.com/gateproof/authcore/internal/session/usecase"
)

// RunCleanAuditLogs deletes audit logs past their per-row retention period.
//
// Requirements: Database must be migrated and accessible.
func RunCleanAuditLogs(
	ctx context.Context,
	useCase auditUseCase.AuditLogUseCase,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	logger.Info("cleaning expired audit logs")

	count, err := useCase.CleanExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to clean audit logs: %w", err)
	}

	if err := outputSweepResult(writer, "audit log", count, format); err != nil {
		return err
	}

	logger.Info("cleanup completed", slog.Int64("count", count))
	return nil
}

// RunCleanExpiredTokens deletes API tokens past their expiry.
//
// Requirements: Database must be migrated and accessible.
func RunCleanExpiredTokens(
	ctx context.Context,
	useCase apiauthUseCase.TokenUseCase,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	logger.Info("cleaning expired tokens")

	count, err := useCase.CleanExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to clean expired tokens: %w", err)
	}

	if err := outputSweepResult(writer, "token", count, format); err != nil {
		return err
	}

	logger.Info("cleanup completed", slog.Int64("count", count))
	return nil
}

// RunCleanExpiredSessions deletes sessions past their expiry.
//
// Requirements: Database must be migrated and accessible.
func RunCleanExpiredSessions(
	ctx context.Context,
	useCase sessionUseCase.UseCase,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	logger.Info("cleaning expired sessions")

	count, err := useCase.CleanExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to clean expired sessions: %w", err)
	}

	if err := outputSweepResult(writer, "session", count, format); err != nil {
		return err
	}

	logger.Info("cleanup completed", slog.Int64("count", count))
	return nil
}

// RunCleanExpiredStates deletes OAuth states past their TTL.
//
// Requirements: Database must be migrated and accessible.
func RunCleanExpiredStates(
	ctx context.Context,
	useCase oauthUseCase.OAuthUseCase,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	logger.Info("cleaning expired oauth states")

	count, err := useCase.CleanExpiredStates(ctx)
	if err != nil {
		return fmt.Errorf("failed to clean expired oauth states: %w", err)
	}

	if err := outputSweepResult(writer, "oauth state", count, format); err != nil {
		return err
	}

	logger.Info("cleanup completed", slog.Int64("count", count))
	return nil
}

// outputSweepResult writes the sweep result in the requested format.
func outputSweepResult(writer io.Writer, noun string, count int64, format string) error {
	if format == "json" {
		result := map[string]interface{}{
			"count": count,
		}
		jsonBytes, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, _ = fmt.Fprintln(writer, string(jsonBytes))
		return nil
	}

	_, _ = fmt.Fprintf(writer, "Successfully deleted %d expired %s(s)\n", count, noun)
	return nil
}
