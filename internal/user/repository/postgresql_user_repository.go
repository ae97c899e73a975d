// Package repository provides data persistence implementations for user entities.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gateproof/authcore/internal/database"
	"github.com/gateproof/authcore/internal/user/domain"

	apperrors "github.com/gateproof/authcore/internal/errors"
)

// PostgreSQLUserRepository handles user persistence for PostgreSQL
type PostgreSQLUserRepository struct {
	db *sql.DB
}

// NewPostgreSQLUserRepository creates a new PostgreSQLUserRepository
func NewPostgreSQLUserRepository(db *sql.DB) *PostgreSQLUserRepository {
	return &PostgreSQLUserRepository{
		db: db,
	}
}

// Create inserts a new user
func (r *PostgreSQLUserRepository) Create(ctx context.Context, user *domain.User) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO users (id, username, email, locked_until, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, user.ID, user.Username, user.Email, user.LockedUntil)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return domain.ErrUserAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create user")
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *PostgreSQLUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, username, email, locked_until, created_at, updated_at
			  FROM users WHERE id = $1`

	user, err := scanUserPG(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user by id")
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *PostgreSQLUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, username, email, locked_until, created_at, updated_at
			  FROM users WHERE email = $1`

	user, err := scanUserPG(querier.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user by email")
	}
	return user, nil
}

// Lock sets the account lock expiry.
func (r *PostgreSQLUserRepository) Lock(ctx context.Context, userID uuid.UUID, until time.Time) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE users SET locked_until = $2, updated_at = NOW() WHERE id = $1`

	result, err := querier.ExecContext(ctx, query, userID, until)
	if err != nil {
		return apperrors.Wrap(err, "failed to lock user")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to check lock result")
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// IsLocked reports whether the user's lock expiry is in the future. An
// unknown user is reported as not locked so the audit path can still record
// failures for identifiers that never resolved to an account.
func (r *PostgreSQLUserRepository) IsLocked(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT locked_until FROM users WHERE id = $1`

	var lockedUntil sql.NullTime
	err := querier.QueryRowContext(ctx, query, userID).Scan(&lockedUntil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, apperrors.Wrap(err, "failed to check user lock")
	}
	return lockedUntil.Valid && now.Before(lockedUntil.Time), nil
}

func scanUserPG(row *sql.Row) (*domain.User, error) {
	var user domain.User
	var lockedUntil sql.NullTime
	err := row.Scan(&user.ID, &user.Username, &user.Email, &lockedUntil, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lockedUntil.Valid {
		user.LockedUntil = &lockedUntil.Time
	}
	return &user, nil
}

// isPostgreSQLUniqueViolation checks if the error is a PostgreSQL unique constraint violation
func isPostgreSQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}
