package domain

// Attack pattern names reported by the attack detector.
const (
	PatternRapidAttempts       = "rapid_attempts"
	PatternInvalidStateHistory = "invalid_state_history"
	PatternSuspiciousUserAgent = "suspicious_user_agent"
	PatternMissingUserAgent    = "missing_user_agent"
)

// AttackAssessment is the outcome of scoring one OAuth request.
type AttackAssessment struct {
	RiskLevel RiskLevel    `json:"risk_level"`
	Action    AttackAction `json:"action"`
	Patterns  []string     `json:"patterns"`
}

// Blocked reports whether the request must be rejected outright.
func (a AttackAssessment) Blocked() bool {
	return a.Action == ActionBlock
}
