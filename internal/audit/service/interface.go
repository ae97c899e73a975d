package service

import (
	auditDomain "github.com/gateproof/authcore/internal/audit/domain"
)

// ChecksumService computes and verifies tamper-evident checksums for critical
// audit log entries.
type ChecksumService interface {
	Compute(log *auditDomain.SecurityAuditLog) (string, error)
	Verify(log *auditDomain.SecurityAuditLog) (bool, error)
}

// AnomalyDetector evaluates pre-queried activity facts for behavioral
// irregularities.
type AnomalyDetector interface {
	Detect(input AnomalyInput) []auditDomain.Anomaly
}
