// Package repository implements persistence for OAuth states and linked
// provider accounts, with PostgreSQL and MySQL implementations behind the
// same interfaces. All operations are transaction-aware via database.GetTx.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/gateproof/authcore/internal/database"
	apperrors "github.com/gateproof/authcore/internal/errors"
	oauthDomain "github.com/gateproof/authcore/internal/oauth/domain"
)

// PostgreSQLStateRepository persists pending OAuth states in PostgreSQL.
type PostgreSQLStateRepository struct {
	db *sql.DB
}

// NewPostgreSQLStateRepository creates a new PostgreSQL OAuth state repository.
func NewPostgreSQLStateRepository(db *sql.DB) *PostgreSQLStateRepository {
	return &PostgreSQLStateRepository{db: db}
}

// Create inserts a pending state row.
func (p *PostgreSQLStateRepository) Create(ctx context.Context, state *oauthDomain.OAuthState) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO oauth_states (id, state, code_verifier, provider, redirect_uri, user_id,
			  entropy, challenge_method, security_version, created_at, expires_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := querier.ExecContext(
		ctx,
		query,
		state.ID,
		state.State,
		state.CodeVerifier,
		string(state.Provider),
		state.RedirectURI,
		state.UserID,
		state.SecurityMetadata.Entropy,
		state.SecurityMetadata.ChallengeMethod,
		state.SecurityMetadata.SecurityVersion,
		state.CreatedAt,
		state.ExpiresAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create oauth state")
	}
	return nil
}

// Consume deletes the state row and returns it in one round trip. Zero rows
// means the state is unknown or already consumed; two concurrent callbacks
// racing on the same state cannot both get the row back.
func (p *PostgreSQLStateRepository) Consume(ctx context.Context, state string) (*oauthDomain.OAuthState, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM oauth_states WHERE state = $1
			  RETURNING id, state, code_verifier, provider, redirect_uri, user_id,
			  entropy, challenge_method, security_version, created_at, expires_at`

	row := querier.QueryRowContext(ctx, query, state)
	result, err := scanStatePG(row)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, oauthDomain.ErrStateInvalid
		}
		return nil, apperrors.Wrap(err, "failed to consume oauth state")
	}
	return result, nil
}

// DeleteExpired removes state rows that expired before now.
func (p *PostgreSQLStateRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM oauth_states WHERE expires_at < $1`, now)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired oauth states")
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return deleted, nil
}

func scanStatePG(row *sql.Row) (*oauthDomain.OAuthState, error) {
	var state oauthDomain.OAuthState
	var provider string
	var userID uuid.NullUUID

	err := row.Scan(
		&state.ID,
		&state.State,
		&state.CodeVerifier,
		&provider,
		&state.RedirectURI,
		&userID,
		&state.SecurityMetadata.Entropy,
		&state.SecurityMetadata.ChallengeMethod,
		&state.SecurityMetadata.SecurityVersion,
		&state.CreatedAt,
		&state.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	state.Provider = oauthDomain.Provider(provider)
	if userID.Valid {
		state.UserID = &userID.UUID
	}
	return &state, nil
}
