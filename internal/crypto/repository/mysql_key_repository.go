package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	cryptoDomain "github.com/gateproof/authcore/internal/crypto/domain"
	"github.com/gateproof/authcore/internal/database"
	apperrors "github.com/gateproof/authcore/internal/errors"
)

// MySQLKeyRepository implements encryption key persistence for MySQL.
// UUIDs are stored as BINARY(16) and binary material as BLOB.
type MySQLKeyRepository struct {
	db *sql.DB
}

// NewMySQLKeyRepository creates a new MySQL encryption key repository.
func NewMySQLKeyRepository(db *sql.DB) *MySQLKeyRepository {
	return &MySQLKeyRepository{db: db}
}

// Create inserts a new encryption key. Only the wrapped material is persisted.
func (m *MySQLKeyRepository) Create(ctx context.Context, key *cryptoDomain.EncryptionKey) error {
	querier := database.GetTx(ctx, m.db)

	id, err := key.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal key id")
	}

	query := `INSERT INTO encryption_keys (id, algorithm, encrypted_key, version, is_active, created_at, rotated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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
func (m *MySQLKeyRepository) Get(ctx context.Context, id uuid.UUID) (*cryptoDomain.EncryptionKey, error) {
	querier := database.GetTx(ctx, m.db)

	binID, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal key id")
	}

	query := `SELECT id, algorithm, encrypted_key, version, is_active, created_at, rotated_at
			  FROM encryption_keys WHERE id = ?`

	return m.scanKey(querier.QueryRowContext(ctx, query, binID))
}

// GetActive retrieves the currently active encryption key.
// Returns ErrNoActiveKey if no key is active.
func (m *MySQLKeyRepository) GetActive(ctx context.Context) (*cryptoDomain.EncryptionKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, algorithm, encrypted_key, version, is_active, created_at, rotated_at
			  FROM encryption_keys WHERE is_active = true AND rotated_at IS NULL`

	key, err := m.scanKey(querier.QueryRowContext(ctx, query))
	if apperrors.Is(err, cryptoDomain.ErrKeyNotFound) {
		return nil, cryptoDomain.ErrNoActiveKey
	}
	return key, err
}

// List retrieves all encryption keys ordered by version descending (newest first).
func (m *MySQLKeyRepository) List(ctx context.Context) ([]*cryptoDomain.EncryptionKey, error) {
	querier := database.GetTx(ctx, m.db)

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
		var id []byte
		var algorithm string
		if err := rows.Scan(
			&id,
			&algorithm,
			&key.EncryptedKey,
			&key.Version,
			&key.IsActive,
			&key.CreatedAt,
			&key.RotatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan encryption key")
		}
		if err := key.ID.UnmarshalBinary(id); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal key id")
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
func (m *MySQLKeyRepository) MaxVersion(ctx context.Context) (uint, error) {
	querier := database.GetTx(ctx, m.db)

	var version uint
	query := `SELECT COALESCE(MAX(version), 0) FROM encryption_keys`
	if err := querier.QueryRowContext(ctx, query).Scan(&version); err != nil {
		return 0, apperrors.Wrap(err, "failed to get max key version")
	}
	return version, nil
}

// Deactivate marks the currently active key as rotated. Intended to run in the
// same transaction that inserts the replacement key.
func (m *MySQLKeyRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	binID, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal key id")
	}

	query := `UPDATE encryption_keys SET is_active = false, rotated_at = UTC_TIMESTAMP() WHERE id = ?`
	result, err := querier.ExecContext(ctx, query, binID)
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

func (m *MySQLKeyRepository) scanKey(row *sql.Row) (*cryptoDomain.EncryptionKey, error) {
	var key cryptoDomain.EncryptionKey
	var id []byte
	var algorithm string

	err := row.Scan(
		&id,
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

	if err := key.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal key id")
	}
	key.Algorithm = cryptoDomain.Algorithm(algorithm)
	return &key, nil
}
