// Package domain defines OAuth flow entities: pending authorization state,
// linked provider accounts, and attack risk assessments.
package domain

// Provider identifies an external OAuth provider.
type Provider string

const (
	Github Provider = "github"
	Google Provider = "google"
)

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	switch p {
	case Github, Google:
		return true
	}
	return false
}

func (p Provider) String() string {
	return string(p)
}

// SecurityVersion tags state tokens with the binding scheme that produced
// them, so the scheme can evolve without invalidating pending states.
const SecurityVersion = "2"

// RiskLevel is the assessed severity of an attack pattern combination.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// AttackAction is the enforcement decision derived from a risk level.
type AttackAction string

const (
	ActionAllow     AttackAction = "allow"
	ActionRateLimit AttackAction = "rate_limit"
	ActionBlock     AttackAction = "block"
)
