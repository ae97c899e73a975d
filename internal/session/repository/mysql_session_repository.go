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

// MySQLSessionRepository handles session persistence for MySQL
type MySQLSessionRepository struct {
	db *sql.DB
}

// NewMySQLSessionRepository creates a new MySQLSessionRepository
func NewMySQLSessionRepository(db *sql.DB) *MySQLSessionRepository {
	return &MySQLSessionRepository{
		db: db,
	}
}

// Create inserts a new session
func (r *MySQLSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO sessions (id, user_id, ip_address, user_agent, created_at, expires_at, last_seen_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	idBytes, err := session.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal UUID")
	}
	userBytes, err := session.UserID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal UUID")
	}

	_, err = querier.ExecContext(ctx, query,
		idBytes, userBytes, session.IPAddress, session.UserAgent,
		session.CreatedAt, session.ExpiresAt, session.LastSeenAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create session")
	}
	return nil
}

// GetByID retrieves a session by ID
func (r *MySQLSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, user_id, ip_address, user_agent, created_at, expires_at, last_seen_at
			  FROM sessions WHERE id = ?`

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal UUID")
	}

	var session domain.Session
	var rowID, rowUser []byte
	err = querier.QueryRowContext(ctx, query, idBytes).Scan(
		&rowID, &rowUser, &session.IPAddress, &session.UserAgent,
		&session.CreatedAt, &session.ExpiresAt, &session.LastSeenAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get session by id")
	}
	if err := session.ID.UnmarshalBinary(rowID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal UUID")
	}
	if err := session.UserID.UnmarshalBinary(rowUser); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal UUID")
	}
	return &session, nil
}

// Touch records activity on the session, extending its expiry.
func (r *MySQLSessionRepository) Touch(ctx context.Context, id uuid.UUID, lastSeen, expiresAt time.Time) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE sessions SET last_seen_at = ?, expires_at = ? WHERE id = ?`

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal UUID")
	}

	result, err := querier.ExecContext(ctx, query, lastSeen, expiresAt, idBytes)
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
func (r *MySQLSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal UUID")
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, idBytes)
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
func (r *MySQLSessionRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	userBytes, err := userID.MarshalBinary()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to marshal UUID")
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userBytes)
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
func (r *MySQLSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired sessions")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count deleted sessions")
	}
	return rows, nil
}
