// Package repository provides data persistence implementations for sessions.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gateproof/authcore/internal/database"
	"github.com/gateproof/authcore/internal/session/domain"

	apperrors "github.com/gateproof/authcore/internal/errors"
)

// PostgreSQLSessionRepository handles session persistence for PostgreSQL
type PostgreSQLSessionRepository struct {
	db *sql.DB
}

// NewPostgreSQLSessionRepository creates a new PostgreSQLSessionRepository
func NewPostgreSQLSessionRepository(db *sql.DB) *PostgreSQLSessionRepository {
	return &PostgreSQLSessionRepository{
		db: db,
	}
}

// Create inserts a new session
func (r *PostgreSQLSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO sessions (id, user_id, ip_address, user_agent, created_at, expires_at, last_seen_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := querier.ExecContext(ctx, query,
		session.ID, session.UserID, session.IPAddress, session.UserAgent,
		session.CreatedAt, session.ExpiresAt, session.LastSeenAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create session")
	}
	return nil
}

// GetByID retrieves a session by ID
func (r *PostgreSQLSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, user_id, ip_address, user_agent, created_at, expires_at, last_seen_at
			  FROM sessions WHERE id = $1`

	var session domain.Session
	err := querier.QueryRowContext(ctx, query, id).Scan(
		&session.ID, &session.UserID, &session.IPAddress, &session.UserAgent,
		&session.CreatedAt, &session.ExpiresAt, &session.LastSeenAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get session by id")
	}
	return &session, nil
}

// Touch records activity on the session, extending its expiry.
func (r *PostgreSQLSessionRepository) Touch(ctx context.Context, id uuid.UUID, lastSeen, expiresAt time.Time) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE sessions SET last_seen_at = $2, expires_at = $3 WHERE id = $1`

	result, err := querier.ExecContext(ctx, query, id, lastSeen, expiresAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to touch session")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to check touch result")
	}
	if rows == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Delete removes a session
func (r *PostgreSQLSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete session")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to check delete result")
	}
	if rows == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// DeleteByUser removes every session belonging to the user.
func (r *PostgreSQLSessionRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete user sessions")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count deleted sessions")
	}
	return rows, nil
}

// DeleteExpired removes sessions whose expiry has passed.
func (r *PostgreSQLSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired sessions")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count deleted sessions")
	}
	return rows, nil
}
