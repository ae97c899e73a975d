package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/gateproof/authcore/internal/audit/domain"
)

func TestRunVerifyAuditLogs(t *testing.T) {
	ctx := context.Background()

	t.Run("all-valid", func(t *testing.T) {
		logA := &auditDomain.SecurityAuditLog{ID: uuid.New()}
		logB := &auditDomain.SecurityAuditLog{ID: uuid.New()}

		mockUseCase := &mockAuditLogUseCase{}
		mockUseCase.On("ListLogs", ctx, mock.AnythingOfType("domain.LogFilter")).
			Return([]*auditDomain.SecurityAuditLog{logA, logB}, nil).Once()
		mockUseCase.On("VerifyIntegrity", ctx, logA.ID).Return(true, nil)
		mockUseCase.On("VerifyIntegrity", ctx, logB.ID).Return(true, nil)

		var out bytes.Buffer
		err := RunVerifyAuditLogs(ctx, mockUseCase, testLogger(), &out, "2026-01-01", "2026-02-01", "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Total Checked:  2")
		require.Contains(t, out.String(), "Status: PASSED")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("invalid-checksum-fails", func(t *testing.T) {
		tampered := &auditDomain.SecurityAuditLog{ID: uuid.New()}

		mockUseCase := &mockAuditLogUseCase{}
		mockUseCase.On("ListLogs", ctx, mock.AnythingOfType("domain.LogFilter")).
			Return([]*auditDomain.SecurityAuditLog{tampered}, nil).Once()
		mockUseCase.On("VerifyIntegrity", ctx, tampered.ID).Return(false, nil)

		var out bytes.Buffer
		err := RunVerifyAuditLogs(ctx, mockUseCase, testLogger(), &out, "2026-01-01", "2026-02-01", "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "integrity check failed")
		require.Contains(t, out.String(), tampered.ID.String())
		require.Contains(t, out.String(), "Status: FAILED")
	})

	t.Run("no-logs", func(t *testing.T) {
		mockUseCase := &mockAuditLogUseCase{}
		mockUseCase.On("ListLogs", ctx, mock.AnythingOfType("domain.LogFilter")).
			Return([]*auditDomain.SecurityAuditLog{}, nil).Once()

		var out bytes.Buffer
		err := RunVerifyAuditLogs(ctx, mockUseCase, testLogger(), &out, "2026-01-01", "2026-02-01", "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"total_checked": 0`)
	})

	t.Run("invalid-date", func(t *testing.T) {
		mockUseCase := &mockAuditLogUseCase{}

		err := RunVerifyAuditLogs(ctx, mockUseCase, testLogger(), &bytes.Buffer{}, "not-a-date", "2026-02-01", "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid start date")
	})

	t.Run("end-before-start", func(t *testing.T) {
		mockUseCase := &mockAuditLogUseCase{}

		err := RunVerifyAuditLogs(ctx, mockUseCase, testLogger(), &bytes.Buffer{}, "2026-02-01", "2026-01-01", "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "end date must be after start date")
	})
}
