// Package service provides session token signing and verification.
package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/gateproof/authcore/internal/errors"
	"github.com/gateproof/authcore/internal/session/domain"
)

// Claims carries the session reference inside the signed token.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// TokenService signs and verifies session tokens.
type TokenService interface {
	Issue(sessionID, userID uuid.UUID, expiresAt time.Time) (string, error)
	Verify(token string) (sessionID, userID uuid.UUID, err error)
}

// JWTService implements TokenService with HS256-signed JWTs. The token is a
// reference, not the session itself: revocation happens at the session row, so
// verification alone never authorizes anything.
type JWTService struct {
	secret []byte
	now    func() time.Time
}

// NewJWTService creates a JWTService signing with the given secret.
func NewJWTService(secret string) (*JWTService, error) {
	if secret == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "session signing secret is required")
	}
	return &JWTService{
		secret: []byte(secret),
		now:    time.Now,
	}, nil
}

// Issue signs a token referencing the session, expiring with it.
func (s *JWTService) Issue(sessionID, userID uuid.UUID, expiresAt time.Time) (string, error) {
	now := s.now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID.String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to sign session token")
	}
	return signed, nil
}

// Verify parses and validates a token, returning the session and user it
// references. Expired tokens are reported as ErrSessionExpired; every other
// failure is the generic ErrInvalidSessionToken.
func (s *JWTService) Verify(token string) (uuid.UUID, uuid.UUID, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(func() time.Time {
		return s.now().UTC()
	}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, uuid.Nil, domain.ErrSessionExpired
		}
		return uuid.Nil, uuid.Nil, domain.ErrInvalidSessionToken
	}
	if !parsed.Valid {
		return uuid.Nil, uuid.Nil, domain.ErrInvalidSessionToken
	}

	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return uuid.Nil, uuid.Nil, domain.ErrInvalidSessionToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, uuid.Nil, domain.ErrInvalidSessionToken
	}
	return sessionID, userID, nil
}
