// Package service provides the audit log integrity checksum and the
// behavioral anomaly detector.
package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	auditDomain "github.com/gateproof/authcore/internal/audit/domain"
	apperrors "github.com/gateproof/authcore/internal/errors"
)

type checksumService struct{}

// NewChecksumService creates the SHA-256 checksum service used to make
// critical audit entries tamper evident.
func NewChecksumService() ChecksumService {
	return &checksumService{}
}

// canonicalize converts the checksummed fields to a canonical byte
// representation. Variable-length fields are length-prefixed to prevent
// ambiguity between adjacent fields.
func (c *checksumService) canonicalize(log *auditDomain.SecurityAuditLog) ([]byte, error) {
	buf := make([]byte, 0, 512)

	buf = appendLengthPrefixed(buf, []byte(log.EventType))

	if log.UserID != nil {
		buf = appendLengthPrefixed(buf, log.UserID[:])
	} else {
		buf = appendLengthPrefixed(buf, nil)
	}

	if log.EventData != nil {
		eventData, err := json.Marshal(log.EventData)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to marshal event data")
		}
		buf = appendLengthPrefixed(buf, eventData)
	} else {
		buf = appendLengthPrefixed(buf, nil)
	}

	timeBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(timeBytes, uint64(log.CreatedAt.UnixNano()))
	buf = append(buf, timeBytes...)

	return buf, nil
}

func appendLengthPrefixed(buf []byte, data []byte) []byte {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))
	buf = append(buf, length...)
	buf = append(buf, data...)
	return buf
}

// Compute returns the hex-encoded SHA-256 checksum over the canonical
// encoding of event type, user ID, event data, and creation time.
func (c *checksumService) Compute(log *auditDomain.SecurityAuditLog) (string, error) {
	canonical, err := c.canonicalize(log)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Verify recomputes the checksum and compares it to the stored value in
// constant time. Entries without a stored checksum verify trivially.
func (c *checksumService) Verify(log *auditDomain.SecurityAuditLog) (bool, error) {
	if log.Checksum == "" {
		return true, nil
	}

	expected, err := c.Compute(log)
	if err != nil {
		return false, err
	}

	stored, err := hex.DecodeString(log.Checksum)
	if err != nil {
		return false, nil
	}
	computed, err := hex.DecodeString(expected)
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare(stored, computed) == 1, nil
}
