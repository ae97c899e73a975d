// Package repository implements data persistence for encryption key management.
//
// Each repository type has two implementations:
//   - PostgreSQL: native UUID type and BYTEA for binary data
//   - MySQL: CHAR(36) for UUIDs and BLOB for binary data
//
// All repositories support transaction-aware operations via database.GetTx(),
// enabling atomic multi-step operations such as key rotation.
package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	cryptoDomain "github.com/gateproof/authcore/internal/crypto/domain"
	"github.com/gateproof/authcore/internal/database"
	apperrors "github.com/gateproof/authcore/internal/errors"
)

// PostgreSQLKeyRepository implements encryption key persistence for PostgreSQL.
type PostgreSQLKeyRepository struct {
	db *sql.DB
}

// NewPostgreSQLKeyRepository creates a new PostgreSQL encryption key repository.
func NewPostgreSQLKeyRepository(db *sql.DB) *PostgreSQLKeyRepository {
	return &PostgreSQLKeyRepository{db: db}
}

// Create inserts a new encryption key. Only the wrapped material is persisted;
// the plaintext Key field is never written.
func (p *PostgreSQLKeyRepository) Create(ctx context.Context, key *cryptoDomain.EncryptionKey) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO encryption_keys (id, algorithm, encrypted_key, version, is_active, created_at, rotated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := querier.ExecContext(
		ctx,
		query,
		key.ID,
		string(key.Algorithm),
		key.EncryptedKey,
		key.Version,
		key.IsActive,
		key.CreatedAt,
		key.RotatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create encryption key")
	}

	return nil
}

// Get retrieves an encryption key by ID. Returns ErrKeyNotFound if absent.
func (p *PostgreSQLKeyRepository) Get(ctx context.Context, id uuid.UUID) (*cryptoDomain.EncryptionKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, algorithm, encrypted_key, version, is_active, created_at, rotated_at
			  FROM encryption_keys WHERE id = $1`

	return p.scanKey(querier.QueryRowContext(ctx, query, id))
}

// GetActive retrieves the currently active encryption key.
// Returns ErrNoActiveKey if no key is active.
func (p *PostgreSQLKeyRepository) GetActive(ctx context.Context) (*cryptoDomain.EncryptionKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, algorithm, encrypted_key, version, is_active, created_at, rotated_at
			  FROM encryption_keys WHERE is_active = true AND rotated_at IS NULL`

	key, err := p.scanKey(querier.QueryRowContext(ctx, query))
	if apperrors.Is(err, cryptoDomain.ErrKeyNotFound) {
		return nil, cryptoDomain.ErrNoActiveKey
	}
	return key, err
}

// List retrieves all encryption keys ordered by version descending (newest first).
func (p *PostgreSQLKeyRepository) List(ctx context.Context) ([]*cryptoDomain.EncryptionKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, algorithm, encrypted_key, version, is_active, created_at, rotated_at
			  FROM encryption_keys ORDER BY version DESC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list encryption keys")
	}
	defer func() {
		_ = rows.Close()
	}()

	keys := make([]*cryptoDomain.EncryptionKey, 0)
	for rows.Next() {
		var key cryptoDomain.EncryptionKey
		var algorithm string
		if err := rows.Scan(
			&key.ID,
			&algorithm,
			&key.EncryptedKey,
			&key.Version,
			&key.IsActive,
			&key.CreatedAt,
			&key.RotatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan encryption key")
		}
		key.Algorithm = cryptoDomain.Algorithm(algorithm)
		keys = append(keys, &key)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate encryption keys")
	}

	return keys, nil
}

// MaxVersion returns the highest key version, or 0 when no keys exist.
func (p *PostgreSQLKeyRepository) MaxVersion(ctx context.Context) (uint, error) {
	querier := database.GetTx(ctx, p.db)

	var version uint
	query := `SELECT COALESCE(MAX(version), 0) FROM encryption_keys`
	if err := querier.QueryRowContext(ctx, query).Scan(&version); err != nil {
		return 0, apperrors.Wrap(err, "failed to get max key version")
	}
	return version, nil
}

// Deactivate marks the currently active key as rotated. Intended to run in the
// same transaction that inserts the replacement key.
func (p *PostgreSQLKeyRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE encryption_keys SET is_active = false, rotated_at = NOW() WHERE id = $1`
	result, err := querier.ExecContext(ctx, query, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to deactivate encryption key")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if affected == 0 {
		return cryptoDomain.ErrKeyNotFound
	}

	return nil
}

func (p *PostgreSQLKeyRepository) scanKey(row *sql.Row) (*cryptoDomain.EncryptionKey, error) {
	var key cryptoDomain.EncryptionKey
	var algorithm string

	err := row.Scan(
		&key.ID,
		&algorithm,
		&key.EncryptedKey,
		&key.Version,
		&key.IsActive,
		&key.CreatedAt,
		&key.RotatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, cryptoDomain.ErrKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan encryption key")
	}

	key.Algorithm = cryptoDomain.Algorithm(algorithm)
	return &key, nil
}
