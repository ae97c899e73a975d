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

// MySQLClientRepository handles client persistence for MySQL
type MySQLClientRepository struct {
	db *sql.DB
}

// NewMySQLClientRepository creates a new MySQLClientRepository
func NewMySQLClientRepository(db *sql.DB) *MySQLClientRepository {
	return &MySQLClientRepository{
		db: db,
	}
}

// Create inserts a new client
func (r *MySQLClientRepository) Create(ctx context.Context, client *domain.Client) error {
	querier := database.GetTx(ctx, r.db)

	scopes, err := marshalScopes(client.Scopes)
	if err != nil {
		return err
	}
	idBytes, err := client.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal UUID")
	}

	query := `INSERT INTO clients (id, secret, name, is_active, scopes, failed_attempts, locked_until, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(ctx, query,
		idBytes, client.Secret, client.Name, client.IsActive,
		scopes, client.FailedAttempts, client.LockedUntil, client.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create client")
	}
	return nil
}

// Update modifies name, active flag and scopes
func (r *MySQLClientRepository) Update(ctx context.Context, client *domain.Client) error {
	querier := database.GetTx(ctx, r.db)

	scopes, err := marshalScopes(client.Scopes)
	if err != nil {
		return err
	}
	idBytes, err := client.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal UUID")
	}

	query := `UPDATE clients SET name = ?, is_active = ?, scopes = ? WHERE id = ?`

	result, err := querier.ExecContext(ctx, query, client.Name, client.IsActive, scopes, idBytes)
	if err != nil {
		return apperrors.Wrap(err, "failed to update client")
	}
	return checkAffected(result, domain.ErrClientNotFound)
}

// Get retrieves a client by ID
func (r *MySQLClientRepository) Get(ctx context.Context, clientID uuid.UUID) (*domain.Client, error) {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := clientID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal UUID")
	}

	query := `SELECT id, secret, name, is_active, scopes, failed_attempts, locked_until, created_at
			  FROM clients WHERE id = ?`

	row := querier.QueryRowContext(ctx, query, idBytes)
	client, err := scanClientMySQL(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrClientNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get client")
	}
	return client, nil
}

// List retrieves clients ordered by id with pagination
func (r *MySQLClientRepository) List(ctx context.Context, offset, limit int) ([]*domain.Client, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, secret, name, is_active, scopes, failed_attempts, locked_until, created_at
			  FROM clients ORDER BY id DESC LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list clients")
	}
	defer func() { _ = rows.Close() }()

	var clients []*domain.Client
	for rows.Next() {
		var client domain.Client
		var idBytes, scopes []byte
		var lockedUntil sql.NullTime
		err := rows.Scan(
			&idBytes, &client.Secret, &client.Name, &client.IsActive,
			&scopes, &client.FailedAttempts, &lockedUntil, &client.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan client")
		}
		if err := client.ID.UnmarshalBinary(idBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal UUID")
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
func (r *MySQLClientRepository) UpdateLockState(ctx context.Context, clientID uuid.UUID, failedAttempts int, lockedUntil *time.Time) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := clientID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal UUID")
	}

	query := `UPDATE clients SET failed_attempts = ?, locked_until = ? WHERE id = ?`

	result, err := querier.ExecContext(ctx, query, failedAttempts, lockedUntil, idBytes)
	if err != nil {
		return apperrors.Wrap(err, "failed to update client lock state")
	}
	return checkAffected(result, domain.ErrClientNotFound)
}

func scanClientMySQL(row *sql.Row) (*domain.Client, error) {
	var client domain.Client
	var idBytes, scopes []byte
	var lockedUntil sql.NullTime
	err := row.Scan(
		&idBytes, &client.Secret, &client.Name, &client.IsActive,
		&scopes, &client.FailedAttempts, &lockedUntil, &client.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := client.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal UUID")
	}
	if err := json.Unmarshal(scopes, &client.Scopes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal client scopes")
	}
	if lockedUntil.Valid {
		client.LockedUntil = &lockedUntil.Time
	}
	return &client, nil
}
