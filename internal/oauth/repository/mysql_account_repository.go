package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	cryptoDomain "github.com/gateproof/authcore/internal/crypto/domain"
	cryptoService "github.com/gateproof/authcore/internal/crypto/service"
	cryptoUseCase "github.com/gateproof/authcore/internal/crypto/usecase"
	"github.com/gateproof/authcore/internal/database"
	apperrors "github.com/gateproof/authcore/internal/errors"
	oauthDomain "github.com/gateproof/authcore/internal/oauth/domain"
)

// MySQLAccountRepository persists linked OAuth accounts in MySQL. UUIDs are
// stored as BINARY(16).
type MySQLAccountRepository struct {
	db *sql.DB
}

// NewMySQLAccountRepository creates a new MySQL OAuth account repository.
func NewMySQLAccountRepository(db *sql.DB) *MySQLAccountRepository {
	return &MySQLAccountRepository{db: db}
}

// Upsert inserts the account or refreshes the existing row for the provider
// account, including the encrypted token material.
func (m *MySQLAccountRepository) Upsert(ctx context.Context, account *oauthDomain.OAuthAccount) error {
	querier := database.GetTx(ctx, m.db)

	args, err := upsertArgsMySQL(account)
	if err != nil {
		return err
	}

	query := `INSERT INTO oauth_accounts (` + accountColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) AS new
			  ON DUPLICATE KEY UPDATE
			  user_id = new.user_id,
			  username = new.username,
			  email = new.email,
			  key_id = new.key_id,
			  access_ciphertext = new.access_ciphertext,
			  access_nonce = new.access_nonce,
			  access_algorithm = new.access_algorithm,
			  refresh_ciphertext = new.refresh_ciphertext,
			  refresh_nonce = new.refresh_nonce,
			  refresh_algorithm = new.refresh_algorithm,
			  token_expires_at = new.token_expires_at,
			  scopes = new.scopes,
			  updated_at = new.updated_at`

	if _, err := querier.ExecContext(ctx, query, args...); err != nil {
		return apperrors.Wrap(err, "failed to upsert oauth account")
	}
	return nil
}

// GetByUserAndProvider returns the account linking the user to the provider.
func (m *MySQLAccountRepository) GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider oauthDomain.Provider) (*oauthDomain.OAuthAccount, error) {
	querier := database.GetTx(ctx, m.db)

	userIDBytes, err := userID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal user id")
	}

	query := `SELECT ` + accountColumns + ` FROM oauth_accounts WHERE user_id = ? AND provider = ?`
	account, err := scanAccountMySQL(querier.QueryRowContext(ctx, query, userIDBytes, string(provider)))
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, oauthDomain.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get oauth account")
	}
	return account, nil
}

// ListByUser returns every account linked to the user.
func (m *MySQLAccountRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*oauthDomain.OAuthAccount, error) {
	querier := database.GetTx(ctx, m.db)

	userIDBytes, err := userID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal user id")
	}

	query := `SELECT ` + accountColumns + ` FROM oauth_accounts WHERE user_id = ? ORDER BY created_at`
	rows, err := querier.QueryContext(ctx, query, userIDBytes)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list oauth accounts")
	}
	defer func() {
		_ = rows.Close()
	}()

	accounts := make([]*oauthDomain.OAuthAccount, 0)
	for rows.Next() {
		account, err := scanAccountMySQL(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan oauth account")
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate oauth accounts")
	}
	return accounts, nil
}

// CountByUser returns how many provider accounts the user has linked.
func (m *MySQLAccountRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	querier := database.GetTx(ctx, m.db)

	userIDBytes, err := userID.MarshalBinary()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to marshal user id")
	}

	var count int
	err = querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM oauth_accounts WHERE user_id = ?`, userIDBytes).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count oauth accounts")
	}
	return count, nil
}

// Delete removes the account linking the user to the provider.
func (m *MySQLAccountRepository) Delete(ctx context.Context, userID uuid.UUID, provider oauthDomain.Provider) error {
	querier := database.GetTx(ctx, m.db)

	userIDBytes, err := userID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal user id")
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM oauth_accounts WHERE user_id = ? AND provider = ?`, userIDBytes, string(provider))
	if err != nil {
		return apperrors.Wrap(err, "failed to delete oauth account")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if affected == 0 {
		return oauthDomain.ErrAccountNotFound
	}
	return nil
}

// ListByKeyIDNot returns up to limit accounts whose tokens are encrypted
// under any key other than keyID, skipping the excluded record IDs.
func (m *MySQLAccountRepository) ListByKeyIDNot(ctx context.Context, keyID uuid.UUID, exclude []uuid.UUID, limit int) ([]*cryptoUseCase.ReencryptableToken, error) {
	querier := database.GetTx(ctx, m.db)

	keyIDBytes, err := keyID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal key id")
	}

	var builder strings.Builder
	builder.WriteString(`SELECT id, user_id, provider, key_id,
		access_ciphertext, access_nonce, access_algorithm,
		refresh_ciphertext, refresh_nonce, refresh_algorithm
		FROM oauth_accounts WHERE key_id <> ?`)
	args := []any{keyIDBytes}

	if len(exclude) > 0 {
		builder.WriteString(" AND id NOT IN (")
		for i, id := range exclude {
			if i > 0 {
				builder.WriteString(", ")
			}
			builder.WriteString("?")
			idBytes, err := id.MarshalBinary()
			if err != nil {
				return nil, apperrors.Wrap(err, "failed to marshal excluded id")
			}
			args = append(args, idBytes)
		}
		builder.WriteString(")")
	}
	builder.WriteString(" ORDER BY created_at LIMIT ?")
	args = append(args, limit)

	rows, err := querier.QueryContext(ctx, builder.String(), args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list accounts for re-encryption")
	}
	defer func() {
		_ = rows.Close()
	}()

	tokens := make([]*cryptoUseCase.ReencryptableToken, 0)
	for rows.Next() {
		token, err := scanReencryptableMySQL(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan account for re-encryption")
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate accounts for re-encryption")
	}
	return tokens, nil
}

// UpdateEncryptedTokens persists re-encrypted token material for a record.
func (m *MySQLAccountRepository) UpdateEncryptedTokens(ctx context.Context, token *cryptoUseCase.ReencryptableToken) error {
	querier := database.GetTx(ctx, m.db)

	keyIDBytes, err := token.AccessToken.KeyID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal key id")
	}
	idBytes, err := token.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal account id")
	}

	query := `UPDATE oauth_accounts SET key_id = ?,
			  access_ciphertext = ?, access_nonce = ?, access_algorithm = ?,
			  refresh_ciphertext = ?, refresh_nonce = ?, refresh_algorithm = ?,
			  updated_at = UTC_TIMESTAMP()
			  WHERE id = ?`

	args := []any{keyIDBytes, token.AccessToken.Ciphertext, token.AccessToken.Nonce, string(token.AccessToken.Algorithm)}
	if refresh := token.RefreshToken; refresh != nil {
		args = append(args, refresh.Ciphertext, refresh.Nonce, string(refresh.Algorithm))
	} else {
		args = append(args, nil, nil, nil)
	}
	args = append(args, idBytes)

	result, err := querier.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.Wrap(err, "failed to update encrypted tokens")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if affected == 0 {
		return oauthDomain.ErrAccountNotFound
	}
	return nil
}

func upsertArgsMySQL(account *oauthDomain.OAuthAccount) ([]any, error) {
	id, err := account.ID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal account id")
	}
	userID, err := account.UserID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal user id")
	}
	access := account.AccessToken
	keyID, err := access.KeyID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal key id")
	}

	args := []any{
		id,
		userID,
		string(account.Provider),
		account.ProviderAccountID,
		account.Username,
		account.Email,
		keyID,
		access.Ciphertext,
		access.Nonce,
		string(access.Algorithm),
	}
	if refresh := account.RefreshToken; refresh != nil {
		args = append(args, refresh.Ciphertext, refresh.Nonce, string(refresh.Algorithm))
	} else {
		args = append(args, nil, nil, nil)
	}
	return append(args, account.TokenExpiresAt, account.Scopes, account.CreatedAt, account.UpdatedAt), nil
}

func scanAccountMySQL(row rowScanner) (*oauthDomain.OAuthAccount, error) {
	var account oauthDomain.OAuthAccount
	var idBytes, userIDBytes, keyIDBytes []byte
	var provider string
	var accessCiphertext, accessNonce []byte
	var accessAlgorithm string
	var refreshCiphertext, refreshNonce []byte
	var refreshAlgorithm sql.NullString
	var tokenExpiresAt sql.NullTime

	err := row.Scan(
		&idBytes,
		&userIDBytes,
		&provider,
		&account.ProviderAccountID,
		&account.Username,
		&account.Email,
		&keyIDBytes,
		&accessCiphertext,
		&accessNonce,
		&accessAlgorithm,
		&refreshCiphertext,
		&refreshNonce,
		&refreshAlgorithm,
		&tokenExpiresAt,
		&account.Scopes,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := account.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal account id")
	}
	if err := account.UserID.UnmarshalBinary(userIDBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal user id")
	}
	var keyID uuid.UUID
	if err := keyID.UnmarshalBinary(keyIDBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal key id")
	}

	account.Provider = oauthDomain.Provider(provider)
	account.AccessToken = &cryptoDomain.EncryptedToken{
		Ciphertext: accessCiphertext,
		Nonce:      accessNonce,
		Algorithm:  cryptoDomain.Algorithm(accessAlgorithm),
		KeyID:      keyID,
	}
	if refreshAlgorithm.Valid {
		account.RefreshToken = &cryptoDomain.EncryptedToken{
			Ciphertext: refreshCiphertext,
			Nonce:      refreshNonce,
			Algorithm:  cryptoDomain.Algorithm(refreshAlgorithm.String),
			KeyID:      keyID,
		}
	}
	if tokenExpiresAt.Valid {
		account.TokenExpiresAt = &tokenExpiresAt.Time
	}
	return &account, nil
}

func scanReencryptableMySQL(row rowScanner) (*cryptoUseCase.ReencryptableToken, error) {
	var token cryptoUseCase.ReencryptableToken
	var idBytes, userIDBytes, keyIDBytes []byte
	var provider string
	var accessCiphertext, accessNonce []byte
	var accessAlgorithm string
	var refreshCiphertext, refreshNonce []byte
	var refreshAlgorithm sql.NullString

	err := row.Scan(
		&idBytes,
		&userIDBytes,
		&provider,
		&keyIDBytes,
		&accessCiphertext,
		&accessNonce,
		&accessAlgorithm,
		&refreshCiphertext,
		&refreshNonce,
		&refreshAlgorithm,
	)
	if err != nil {
		return nil, err
	}

	if err := token.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal account id")
	}
	var userID uuid.UUID
	if err := userID.UnmarshalBinary(userIDBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal user id")
	}
	if err := token.KeyID.UnmarshalBinary(keyIDBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal key id")
	}

	token.AccessToken = &cryptoDomain.EncryptedToken{
		Ciphertext: accessCiphertext,
		Nonce:      accessNonce,
		Algorithm:  cryptoDomain.Algorithm(accessAlgorithm),
		KeyID:      token.KeyID,
	}
	if refreshAlgorithm.Valid {
		token.RefreshToken = &cryptoDomain.EncryptedToken{
			Ciphertext: refreshCiphertext,
			Nonce:      refreshNonce,
			Algorithm:  cryptoDomain.Algorithm(refreshAlgorithm.String),
			KeyID:      token.KeyID,
		}
	}
	token.AAD = cryptoService.BindAAD(userID.String(), provider)
	return &token, nil
}
