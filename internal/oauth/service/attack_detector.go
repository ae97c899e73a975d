package service

import (
	"strings"
	"sync"
	"time"

	oauthDomain "github.com/gateproof/authcore/internal/oauth/domain"
)

const (
	rapidAttemptWindow    = time.Minute
	rapidAttemptThreshold = 10
	invalidStateWindow    = 10 * time.Minute
	invalidStateThreshold = 3
)

// suspiciousAgentMarkers are substrings of user agents associated with
// scripted abuse rather than browsers.
var suspiciousAgentMarkers = []string{
	"curl",
	"wget",
	"python-requests",
	"python-urllib",
	"go-http-client",
	"sqlmap",
	"nikto",
	"nmap",
	"masscan",
	"scanner",
	"headless",
}

type attemptHistory struct {
	attempts      []time.Time
	invalidStates []time.Time
}

// AttackDetectorService scores OAuth requests by combining rapid-attempt
// history, invalid-state history, and the user agent. The history is
// process-local sliding-window state, a backpressure signal rather than a
// distributed verdict.
type AttackDetectorService struct {
	mu      sync.Mutex
	history map[string]*attemptHistory
	now     func() time.Time
}

// NewAttackDetector creates an AttackDetectorService with empty history.
func NewAttackDetector() *AttackDetectorService {
	return &AttackDetectorService{
		history: make(map[string]*attemptHistory),
		now:     time.Now,
	}
}

// Assess records the attempt for the client/IP pair and returns the
// assessment. Risk is the highest level among the fired patterns; three or
// more patterns, or two or more high-risk patterns, escalate to critical.
func (d *AttackDetectorService) Assess(clientID, ip, userAgent, _ string) oauthDomain.AttackAssessment {
	now := d.now()

	d.mu.Lock()
	entry := d.entry(clientID, ip)
	entry.attempts = append(pruneBefore(entry.attempts, now.Add(-rapidAttemptWindow)), now)
	rapidCount := len(entry.attempts)
	entry.invalidStates = pruneBefore(entry.invalidStates, now.Add(-invalidStateWindow))
	invalidCount := len(entry.invalidStates)
	d.mu.Unlock()

	var patterns []string
	var highCount int
	level := oauthDomain.RiskLow

	if rapidCount >= rapidAttemptThreshold {
		patterns = append(patterns, oauthDomain.PatternRapidAttempts)
		highCount++
		level = maxRisk(level, oauthDomain.RiskHigh)
	}
	if invalidCount >= invalidStateThreshold {
		patterns = append(patterns, oauthDomain.PatternInvalidStateHistory)
		highCount++
		level = maxRisk(level, oauthDomain.RiskHigh)
	}
	if userAgent == "" {
		patterns = append(patterns, oauthDomain.PatternMissingUserAgent)
		level = maxRisk(level, oauthDomain.RiskMedium)
	} else if suspiciousUserAgent(userAgent) {
		patterns = append(patterns, oauthDomain.PatternSuspiciousUserAgent)
		level = maxRisk(level, oauthDomain.RiskMedium)
	}

	if len(patterns) >= 3 || highCount >= 2 {
		level = oauthDomain.RiskCritical
	}

	return oauthDomain.AttackAssessment{
		RiskLevel: level,
		Action:    actionFor(level),
		Patterns:  patterns,
	}
}

// RecordInvalidState feeds a failed state validation into the history.
func (d *AttackDetectorService) RecordInvalidState(clientID, ip string) {
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	entry := d.entry(clientID, ip)
	entry.invalidStates = append(pruneBefore(entry.invalidStates, now.Add(-invalidStateWindow)), now)
}

func (d *AttackDetectorService) entry(clientID, ip string) *attemptHistory {
	key := clientID + "|" + ip
	entry, ok := d.history[key]
	if !ok {
		entry = &attemptHistory{}
		d.history[key] = entry
	}
	return entry
}

func pruneBefore(times []time.Time, cutoff time.Time) []time.Time {
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

func suspiciousUserAgent(userAgent string) bool {
	lowered := strings.ToLower(userAgent)
	for _, marker := range suspiciousAgentMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

var riskOrder = map[oauthDomain.RiskLevel]int{
	oauthDomain.RiskLow:      0,
	oauthDomain.RiskMedium:   1,
	oauthDomain.RiskHigh:     2,
	oauthDomain.RiskCritical: 3,
}

func maxRisk(a, b oauthDomain.RiskLevel) oauthDomain.RiskLevel {
	if riskOrder[b] > riskOrder[a] {
		return b
	}
	return a
}

func actionFor(level oauthDomain.RiskLevel) oauthDomain.AttackAction {
	switch level {
	case oauthDomain.RiskMedium:
		return oauthDomain.ActionRateLimit
	case oauthDomain.RiskHigh, oauthDomain.RiskCritical:
		return oauthDomain.ActionBlock
	}
	return oauthDomain.ActionAllow
}
