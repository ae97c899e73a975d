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

// MySQLStateRepository persists pending OAuth states in MySQL. UUIDs are
// stored as BINARY(16). MySQL has no DELETE RETURNING, so Consume must run
// inside a transaction: it locks the row, reads it, then deletes it.
type MySQLStateRepository struct {
	db *sql.DB
}

// NewMySQLStateRepository creates a new MySQL OAuth state repository.
func NewMySQLStateRepository(db *sql.DB) *MySQLStateRepository {
	return &MySQLStateRepository{db: db}
}

// Create inserts a pending state row.
func (m *MySQLStateRepository) Create(ctx context.Context, state *oauthDomain.OAuthState) error {
	querier := database.GetTx(ctx, m.db)

	id, err := state.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal state id")
	}
	var userID []byte
	if state.UserID != nil {
		userID, err = state.UserID.MarshalBinary()
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal user id")
		}
	}

	query := `INSERT INTO oauth_states (id, state, code_verifier, provider, redirect_uri, user_id,
			  entropy, challenge_method, security_version, created_at, expires_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		state.State,
		state.CodeVerifier,
		string(state.Provider),
		state.RedirectURI,
		userID,
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

// Consume locks, reads and deletes the state row. The caller must run it
// inside a transaction so the SELECT FOR UPDATE and DELETE are atomic; two
// concurrent callbacks racing on the same state cannot both get the row back.
func (m *MySQLStateRepository) Consume(ctx context.Context, state string) (*oauthDomain.OAuthState, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, state, code_verifier, provider, redirect_uri, user_id,
			  entropy, challenge_method, security_version, created_at, expires_at
			  FROM oauth_states WHERE state = ? FOR UPDATE`

	row := querier.QueryRowContext(ctx, query, state)
	result, err := scanStateMySQL(row)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, oauthDomain.ErrStateInvalid
		}
		return nil, apperrors.Wrap(err, "failed to read oauth state")
	}

	if _, err := querier.ExecContext(ctx, `DELETE FROM oauth_states WHERE state = ?`, state); err != nil {
		return nil, apperrors.Wrap(err, "failed to consume oauth state")
	}
	return result, nil
}

// DeleteExpired removes state rows that expired before now.
func (m *MySQLStateRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM oauth_states WHERE expires_at < ?`, now)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired oauth states")
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return deleted, nil
}

func scanStateMySQL(row *sql.Row) (*oauthDomain.OAuthState, error) {
	var state oauthDomain.OAuthState
	var idBytes, userIDBytes []byte
	var provider string

	err := row.Scan(
		&idBytes,
		&state.State,
		&state.CodeVerifier,
		&provider,
		&state.RedirectURI,
		&userIDBytes,
		&state.SecurityMetadata.Entropy,
		&state.SecurityMetadata.ChallengeMethod,
		&state.SecurityMetadata.SecurityVersion,
		&state.CreatedAt,
		&state.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	if err := state.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal state id")
	}
	if len(userIDBytes) > 0 {
		var userID uuid.UUID
		if err := userID.UnmarshalBinary(userIDBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal user id")
		}
		state.UserID = &userID
	}
	state.Provider = oauthDomain.Provider(provider)
	return &state, nil
}
