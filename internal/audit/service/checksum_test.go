package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/gateproof/authcore/internal/audit/domain"
)

func newCriticalLog(t *testing.T) *auditDomain.SecurityAuditLog {
	t.Helper()
	userID := uuid.Must(uuid.NewV7())
	return &auditDomain.SecurityAuditLog{
		ID:        uuid.Must(uuid.NewV7()),
		EventType: auditDomain.EventAccountLocked,
		Severity:  auditDomain.SeverityCritical,
		UserID:    &userID,
		EventData: map[string]any{"failed_attempts": 5},
		CreatedAt: time.Now().UTC(),
	}
}

func TestChecksumService_Compute(t *testing.T) {
	svc := NewChecksumService()

	t.Run("Deterministic", func(t *testing.T) {
		log := newCriticalLog(t)

		first, err := svc.Compute(log)
		require.NoError(t, err)
		second, err := svc.Compute(log)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Len(t, first, 64)
	})

	t.Run("DiffersAcrossFields", func(t *testing.T) {
		log := newCriticalLog(t)
		base, err := svc.Compute(log)
		require.NoError(t, err)

		mutated := *log
		mutated.EventType = auditDomain.EventAttackDetected
		changed, err := svc.Compute(&mutated)
		require.NoError(t, err)
		assert.NotEqual(t, base, changed)

		mutated = *log
		mutated.UserID = nil
		changed, err = svc.Compute(&mutated)
		require.NoError(t, err)
		assert.NotEqual(t, base, changed)

		mutated = *log
		mutated.CreatedAt = log.CreatedAt.Add(time.Nanosecond)
		changed, err = svc.Compute(&mutated)
		require.NoError(t, err)
		assert.NotEqual(t, base, changed)
	})

	t.Run("NilEventDataHandled", func(t *testing.T) {
		log := newCriticalLog(t)
		log.EventData = nil

		checksum, err := svc.Compute(log)
		require.NoError(t, err)
		assert.NotEmpty(t, checksum)
	})
}

func TestChecksumService_Verify(t *testing.T) {
	svc := NewChecksumService()

	t.Run("UntamperedEntryVerifies", func(t *testing.T) {
		log := newCriticalLog(t)
		checksum, err := svc.Compute(log)
		require.NoError(t, err)
		log.Checksum = checksum

		ok, err := svc.Verify(log)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("TamperedEventDataFails", func(t *testing.T) {
		log := newCriticalLog(t)
		checksum, err := svc.Compute(log)
		require.NoError(t, err)
		log.Checksum = checksum

		log.EventData["failed_attempts"] = 1

		ok, err := svc.Verify(log)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("NoChecksumVerifiesTrivially", func(t *testing.T) {
		log := newCriticalLog(t)
		log.Checksum = ""

		ok, err := svc.Verify(log)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("MalformedChecksumFails", func(t *testing.T) {
		log := newCriticalLog(t)
		log.Checksum = "not-hex"

		ok, err := svc.Verify(log)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
