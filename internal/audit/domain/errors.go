package domain

import (
	apperrors "github.com/gateproof/authcore/internal/errors"
)

var (
	// ErrLogNotFound indicates the requested audit log entry does not exist.
	ErrLogNotFound = apperrors.Wrap(apperrors.ErrNotFound, "audit log not found")

	// ErrChecksumMismatch indicates a critical entry failed integrity verification.
	ErrChecksumMismatch = apperrors.New("audit log checksum mismatch")

	// ErrRetentionProtected indicates a deletion was refused by the retention policy.
	ErrRetentionProtected = apperrors.Wrap(apperrors.ErrForbidden, "audit log protected by retention policy")
)
