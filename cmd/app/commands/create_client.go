package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	apiauthDomain "github.com/gateproof/authcore/internal/apiauth/domain"
	apiauthUseCase "github.com/gateproof/authcore/internal/apiauth/usecase"
)

// RunCreateClient creates a new admin API client with the given scopes.
// Outputs the client ID and one-time plain secret in either text or JSON
// format. The secret is never stored and cannot be recovered later.
//
// Requirements: Database must be migrated and accessible.
func RunCreateClient(
	ctx context.Context,
	clientUseCase apiauthUseCase.ClientUseCase,
	logger *slog.Logger,
	writer io.Writer,
	name string,
	isActive bool,
	scopeValues []string,
	format string,
) error {
	logger.Info("creating new client", slog.String("name", name))

	scopes, err := parseScopes(scopeValues)
	if err != nil {
		return err
	}
	if len(scopes) == 0 {
		return fmt.Errorf("at least one scope is required")
	}

	input := &apiauthDomain.CreateClientInput{
		Name:     name,
		IsActive: isActive,
		Scopes:   scopes,
	}

	output, err := clientUseCase.Create(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	// Output result based on format
	if format == "json" {
		if err := outputClientJSON(writer, output, scopes); err != nil {
			return err
		}
	} else {
		outputClientText(writer, output, scopes)
	}

	logger.Info("client created successfully",
		slog.String("client_id", output.ID.String()),
		slog.String("name", name),
		slog.Bool("is_active", isActive),
	)

	return nil
}

// outputClientText outputs the new client credentials in human-readable text format.
func outputClientText(writer io.Writer, output *apiauthDomain.CreateClientOutput, scopes []apiauthDomain.Scope) {
	_, _ = fmt.Fprintf(writer, "Client created successfully\n\n")
	_, _ = fmt.Fprintf(writer, "Client ID:     %s\n", output.ID)
	_, _ = fmt.Fprintf(writer, "Client Secret: %s\n", output.PlainSecret)
	_, _ = fmt.Fprintf(writer, "Scopes:        %v\n\n", scopes)
	_, _ = fmt.Fprintf(writer, "Store the secret now. It cannot be recovered later.\n")
}

// outputClientJSON outputs the new client credentials in JSON format.
func outputClientJSON(writer io.Writer, output *apiauthDomain.CreateClientOutput, scopes []apiauthDomain.Scope) error {
	result := map[string]interface{}{
		"client_id":     output.ID,
		"client_secret": output.PlainSecret,
		"scopes":        scopes,
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	_, _ = fmt.Fprintln(writer, string(jsonBytes))
	return nil
}
