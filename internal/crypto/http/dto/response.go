package dto

import (
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/gateproof/authcore/internal/crypto/domain"
)

// KeyResponse is the public view of an encryption key. Key material never
// appears in responses.
type KeyResponse struct {
	ID        uuid.UUID  `json:"id"`
	Algorithm string     `json:"algorithm"`
	Version   uint       `json:"version"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	RotatedAt *time.Time `json:"rotated_at,omitempty"`
}

// MapKeyToResponse converts an encryption key to its response representation.
func MapKeyToResponse(key *cryptoDomain.EncryptionKey) *KeyResponse {
	return &KeyResponse{
		ID:        key.ID,
		Algorithm: string(key.Algorithm),
		Version:   key.Version,
		IsActive:  key.IsActive,
		CreatedAt: key.CreatedAt,
		RotatedAt: key.RotatedAt,
	}
}
