// Package commands contains CLI command implementations for the application.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"

	apiauthDomain "github.com/gateproof/authcore/internal/apiauth/domain"
	"github.com/gateproof/authcore/internal/app"
)

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// closeContainer closes all resources in the container and logs any errors.
func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

// closeMigrate closes the migration instance and logs any errors.
func closeMigrate(migrate *migrate.Migrate, logger *slog.Logger) {
	sourceError, databaseError := migrate.Close()
	if sourceError != nil || databaseError != nil {
		logger.Error(
			"failed to close the migrate",
			slog.Any("source_error", sourceError),
			slog.Any("database_error", databaseError),
		)
	}
}

// parseDate parses a date string in format "YYYY-MM-DD" or "YYYY-MM-DD HH:MM:SS" to time.Time.
func parseDate(dateStr string) (time.Time, error) {
	// Try full datetime format first
	t, err := time.Parse("2006-01-02 15:04:05", dateStr)
	if err == nil {
		return t, nil
	}

	// Try date-only format (defaults to start of day)
	t, err = time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf(
			"invalid date format (expected YYYY-MM-DD or YYYY-MM-DD HH:MM:SS): %s",
			dateStr,
		)
	}

	return t, nil
}

// parseScopes converts scope strings to domain scopes, rejecting unknown values.
func parseScopes(values []string) ([]apiauthDomain.Scope, error) {
	known := map[apiauthDomain.Scope]bool{
		apiauthDomain.ScopeAuditRead:    true,
		apiauthDomain.ScopeAuditAdmin:   true,
		apiauthDomain.ScopeKeysRotate:   true,
		apiauthDomain.ScopeClientsAdmin: true,
	}

	scopes := make([]apiauthDomain.Scope, 0, len(values))
	for _, value := range values {
		scope := apiauthDomain.Scope(value)
		if !known[scope] {
			return nil, fmt.Errorf(
				"invalid scope: %s (valid options: audit:read, audit:admin, keys:rotate, clients:admin)",
				value,
			)
		}
		scopes = append(scopes, scope)
	}

	return scopes, nil
}
