// Package repository provides data persistence implementations for admin API
// clients and tokens.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gateproof/authcore/internal/apiauth/domain"
	"github.com/gateproof/authcore/internal/database"

	apperrors "github.com/gateproof/authcore/internal/errors"
)

// PostgreSQLClientRepository handles client persistence for PostgreSQL
type PostgreSQLClientRepository struct {
	db *sql.DB
}

// NewPostgreSQLClientRepository creates a new PostgreSQLClientRepository
func NewPostgreSQLClientRepository(db *sql.DB) *PostgreSQLClientRepository {
	return &PostgreSQLClientRepository{
		db: db,
	}
}

// Create inserts a new client
func (r *PostgreSQLClientRepository) Create(ctx context.Context, client *domain.Client) error {
	querier := database.GetTx(ctx, r.db)

	scopes, err := marshalScopes(client.Scopes)
	if err != nil {
		return err
	}

	query := `INSERT INTO clients (id, secret, name, is_active, scopes, failed_attempts, locked_until, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = querier.ExecContext(ctx, query,
		client.ID, client.Secret, client.Name, client.IsActive,
		scopes, client.FailedAttempts, client.LockedUntil, client.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create client")
	}
	return nil
}

// Update modifies name, active flag and scopes
func (r *PostgreSQLClientRepository) Update(ctx context.Context, client *domain.Client) error {
	querier := database.GetTx(ctx, r.db)

	scopes, err := marshalScopes(client.Scopes)
	if err != nil {
		return err
	}

	query := `UPDATE clients SET name = $2, is_active = $3, scopes = $4 WHERE id = $1`

	result, err := querier.ExecContext(ctx, query, client.ID, client.Name, client.IsActive, scopes)
	if err != nil {
		return apperrors.Wrap(err, "failed to update client")
	}
	return checkAffected(result, domain.ErrClientNotFound)
}

// Get retrieves a client by ID
func (r *PostgreSQLClientRepository) Get(ctx context.Context, clientID uuid.UUID) (*domain.Client, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, secret, name, is_active, scopes, failed_attempts, locked_until, created_at
			  FROM clients WHERE id = $1`

	var client domain.Client
	var scopes []byte
	var lockedUntil sql.NullTime
	err := querier.QueryRowContext(ctx, query, clientID).Scan(
		&client.ID, &client.Secret, &client.Name, &client.IsActive,
		&scopes, &client.FailedAttempts, &lockedUntil, &client.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrClientNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get client")
	}
	if err := json.Unmarshal(scopes, &client.Scopes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal client scopes")
	}
	if lockedUntil.Valid {
		client.LockedUntil = &lockedUntil.Time
	}
	return &client, nil
}

// List retrieves clients ordered by id with pagination
func (r *PostgreSQLClientRepository) List(ctx context.Context, offset, limit int) ([]*domain.Client, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, secret, name, is_active, scopes, failed_attempts, locked_until, created_at
			  FROM clients ORDER BY id DESC OFFSET $1 LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list clients")
	}
	defer func() { _ = rows.Close() }()

	var clients []*domain.Client
	for rows.Next() {
		var client domain.Client
		var scopes []byte
		var lockedUntil sql.NullTime
		err := rows.Scan(
			&client.ID, &client.Secret, &client.Name, &client.IsActive,
			&scopes, &client.FailedAttempts, &lockedUntil, &client.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan client")
		}
		if err := json.Unmarshal(scopes, &client.Scopes); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal client scopes")
		}
		if lockedUntil.Valid {
			client.LockedUntil = &lockedUntil.Time
		}
		clients = append(clients, &client)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate clients")
	}
	return clients, nil
}

// UpdateLockState sets the failure counter and lock expiry
func (r *PostgreSQLClientRepository) UpdateLockState(ctx context.Context, clientID uuid.UUID, failedAttempts int, lockedUntil *time.Time) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE clients SET failed_attempts = $2, locked_until = $3 WHERE id = $1`

	result, err := querier.ExecContext(ctx, query, clientID, failedAttempts, lockedUntil)
	if err != nil {
		return apperrors.Wrap(err, "failed to update client lock state")
	}
	return checkAffected(result, domain.ErrClientNotFound)
}

func marshalScopes(scopes []domain.Scope) ([]byte, error) {
	if scopes == nil {
		scopes = []domain.Scope{}
	}
	data, err := json.Marshal(scopes)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal client scopes")
	}
	return data, nil
}

func checkAffected(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to check affected rows")
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
