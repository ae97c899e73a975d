// Package dto provides data transfer objects for encryption key endpoints.
package dto

import (
	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/gateproof/authcore/internal/crypto/domain"
)

// RotateKeyRequest selects the AEAD algorithm for the replacement key. An
// empty algorithm keeps the server default.
type RotateKeyRequest struct {
	Algorithm string `json:"algorithm"`
}

// Validate checks if the rotate key request is valid.
func (r *RotateKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Algorithm, validation.By(validateAlgorithm)),
	)
}

// validateAlgorithm rejects algorithms outside the supported AEAD set.
func validateAlgorithm(value interface{}) error {
	alg, ok := value.(string)
	if !ok {
		return validation.NewError("validation_algorithm_type", "must be an algorithm string")
	}
	if alg == "" {
		return nil
	}
	if !cryptoDomain.Algorithm(alg).Valid() {
		return validation.NewError("validation_algorithm_unknown", "unsupported encryption algorithm")
	}
	return nil
}
