package repository

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/google/uuid"

	cryptoDomain "github.com/gateproof/authcore/internal/crypto/domain"
	cryptoService "github.com/gateproof/authcore/internal/crypto/service"
	cryptoUseCase "github.com/gateproof/authcore/internal/crypto/usecase"
	"github.com/gateproof/authcore/internal/database"
	apperrors "github.com/gateproof/authcore/internal/errors"
	oauthDomain "github.com/gateproof/authcore/internal/oauth/domain"
)

const accountColumns = `id, user_id, provider, provider_account_id, username, email,
	key_id, access_ciphertext, access_nonce, access_algorithm,
	refresh_ciphertext, refresh_nonce, refresh_algorithm,
	token_expires_at, scopes, created_at, updated_at`

// PostgreSQLAccountRepository persists linked OAuth accounts in PostgreSQL.
// It also implements the encrypted-token store the key re-encryption job
// migrates records through after a rotation.
type PostgreSQLAccountRepository struct {
	db *sql.DB
}

// NewPostgreSQLAccountRepository creates a new PostgreSQL OAuth account repository.
func NewPostgreSQLAccountRepository(db *sql.DB) *PostgreSQLAccountRepository {
	return &PostgreSQLAccountRepository{db: db}
}

// Upsert inserts the account or, when the provider account is already linked,
// refreshes the row in place including the encrypted token material.
func (p *PostgreSQLAccountRepository) Upsert(ctx context.Context, account *oauthDomain.OAuthAccount) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO oauth_accounts (` + accountColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			  ON CONFLICT (provider, provider_account_id) DO UPDATE SET
			  user_id = EXCLUDED.user_id,
			  username = EXCLUDED.username,
			  email = EXCLUDED.email,
			  key_id = EXCLUDED.key_id,
			  access_ciphertext = EXCLUDED.access_ciphertext,
			  access_nonce = EXCLUDED.access_nonce,
			  access_algorithm = EXCLUDED.access_algorithm,
			  refresh_ciphertext = EXCLUDED.refresh_ciphertext,
			  refresh_nonce = EXCLUDED.refresh_nonce,
			  refresh_algorithm = EXCLUDED.refresh_algorithm,
			  token_expires_at = EXCLUDED.token_expires_at,
			  scopes = EXCLUDED.scopes,
			  updated_at = EXCLUDED.updated_at`

	_, err := querier.ExecContext(ctx, query, upsertArgsPG(account)...)
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert oauth account")
	}
	return nil
}

// GetByUserAndProvider returns the account linking the user to the provider.
func (p *PostgreSQLAccountRepository) GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider oauthDomain.Provider) (*oauthDomain.OAuthAccount, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + accountColumns + ` FROM oauth_accounts WHERE user_id = $1 AND provider = $2`
	account, err := scanAccount(querier.QueryRowContext(ctx, query, userID, string(provider)))
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, oauthDomain.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get oauth account")
	}
	return account, nil
}

// ListByUser returns every account linked to the user.
func (p *PostgreSQLAccountRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*oauthDomain.OAuthAccount, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + accountColumns + ` FROM oauth_accounts WHERE user_id = $1 ORDER BY created_at`
	rows, err := querier.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list oauth accounts")
	}
	defer func() {
		_ = rows.Close()
	}()

	accounts := make([]*oauthDomain.OAuthAccount, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
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
func (p *PostgreSQLAccountRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	querier := database.GetTx(ctx, p.db)

	var count int
	err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM oauth_accounts WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count oauth accounts")
	}
	return count, nil
}

// Delete removes the account linking the user to the provider.
func (p *PostgreSQLAccountRepository) Delete(ctx context.Context, userID uuid.UUID, provider oauthDomain.Provider) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM oauth_accounts WHERE user_id = $1 AND provider = $2`, userID, string(provider))
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
func (p *PostgreSQLAccountRepository) ListByKeyIDNot(ctx context.Context, keyID uuid.UUID, exclude []uuid.UUID, limit int) ([]*cryptoUseCase.ReencryptableToken, error) {
	querier := database.GetTx(ctx, p.db)

	var builder strings.Builder
	builder.WriteString(`SELECT id, user_id, provider, key_id,
		access_ciphertext, access_nonce, access_algorithm,
		refresh_ciphertext, refresh_nonce, refresh_algorithm
		FROM oauth_accounts WHERE key_id <> $1`)
	args := []any{keyID}

	if len(exclude) > 0 {
		builder.WriteString(" AND id NOT IN (")
		for i, id := range exclude {
			if i > 0 {
				builder.WriteString(", ")
			}
			builder.WriteString("$" + strconv.Itoa(len(args)+1))
			args = append(args, id)
		}
		builder.WriteString(")")
	}
	builder.WriteString(" ORDER BY created_at LIMIT $" + strconv.Itoa(len(args)+1))
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
		token, err := scanReencryptable(rows)
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
func (p *PostgreSQLAccountRepository) UpdateEncryptedTokens(ctx context.Context, token *cryptoUseCase.ReencryptableToken) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE oauth_accounts SET key_id = $1,
			  access_ciphertext = $2, access_nonce = $3, access_algorithm = $4,
			  refresh_ciphertext = $5, refresh_nonce = $6, refresh_algorithm = $7,
			  updated_at = NOW()
			  WHERE id = $8`

	args := encryptedTokenArgs(token)
	args = append(args, token.ID)
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

func upsertArgsPG(account *oauthDomain.OAuthAccount) []any {
	access := account.AccessToken
	args := []any{
		account.ID,
		account.UserID,
		string(account.Provider),
		account.ProviderAccountID,
		account.Username,
		account.Email,
		access.KeyID,
		access.Ciphertext,
		access.Nonce,
		string(access.Algorithm),
	}
	if refresh := account.RefreshToken; refresh != nil {
		args = append(args, refresh.Ciphertext, refresh.Nonce, string(refresh.Algorithm))
	} else {
		args = append(args, nil, nil, nil)
	}
	return append(args, account.TokenExpiresAt, account.Scopes, account.CreatedAt, account.UpdatedAt)
}

func encryptedTokenArgs(token *cryptoUseCase.ReencryptableToken) []any {
	access := token.AccessToken
	args := []any{access.KeyID, access.Ciphertext, access.Nonce, string(access.Algorithm)}
	if refresh := token.RefreshToken; refresh != nil {
		args = append(args, refresh.Ciphertext, refresh.Nonce, string(refresh.Algorithm))
	} else {
		args = append(args, nil, nil, nil)
	}
	return args
}

func scanAccount(row rowScanner) (*oauthDomain.OAuthAccount, error) {
	var account oauthDomain.OAuthAccount
	var provider string
	var keyID uuid.UUID
	var accessCiphertext, accessNonce []byte
	var accessAlgorithm string
	var refreshCiphertext, refreshNonce []byte
	var refreshAlgorithm sql.NullString
	var tokenExpiresAt sql.NullTime

	err := row.Scan(
		&account.ID,
		&account.UserID,
		&provider,
		&account.ProviderAccountID,
		&account.Username,
		&account.Email,
		&keyID,
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

func scanReencryptable(row rowScanner) (*cryptoUseCase.ReencryptableToken, error) {
	var token cryptoUseCase.ReencryptableToken
	var userID uuid.UUID
	var provider string
	var accessCiphertext, accessNonce []byte
	var accessAlgorithm string
	var refreshCiphertext, refreshNonce []byte
	var refreshAlgorithm sql.NullString

	err := row.Scan(
		&token.ID,
		&userID,
		&provider,
		&token.KeyID,
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

// rowScanner abstracts sql.Row and sql.Rows for the shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}
