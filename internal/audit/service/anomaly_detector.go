package service

import (
	"time"

	auditDomain "github.com/gateproof/authcore/internal/audit/domain"
)

// Anomaly detector defaults. The typical-hours window applies when a user has
// too little history to learn from.
const (
	defaultActiveHourStart = 6
	defaultActiveHourEnd   = 22

	// RapidSuccessionWindow bounds how close identical events must be to count
	// as rapid succession.
	RapidSuccessionWindow = 5 * time.Second

	// rapidSuccessionThreshold is the identical-event count that fires the flag.
	rapidSuccessionThreshold = 3

	// minHistoryEvents is how many historical events a user needs before the
	// learned hour pattern replaces the default window.
	minHistoryEvents = 20

	// activeHourShare is the share of a user's events an hour needs to count
	// as part of their typical activity window.
	activeHourShare = 0.02

	anomalyConfidence = 0.8
)

// AnomalyInput carries the pre-queried facts the detector evaluates. The
// caller supplies the user's per-hour event histogram over the last 30 days
// and the count of identical events inside the rapid-succession window.
type AnomalyInput struct {
	Now                   time.Time
	EventType             auditDomain.EventType
	RecentIdenticalEvents int
	HourCounts            [24]int64
}

type anomalyDetector struct{}

// NewAnomalyDetector creates the behavioral anomaly detector. Detection is
// binary-weighted: any fired flag yields 0.8 confidence.
func NewAnomalyDetector() AnomalyDetector {
	return &anomalyDetector{}
}

// Detect evaluates the input and returns the fired anomaly flags, possibly
// empty. unusual_hours fires for activity outside the user's typical hours;
// rapid_succession fires when identical events arrive too close together.
func (a *anomalyDetector) Detect(input AnomalyInput) []auditDomain.Anomaly {
	var anomalies []auditDomain.Anomaly

	if !a.withinTypicalHours(input.Now, input.HourCounts) {
		anomalies = append(anomalies, auditDomain.Anomaly{
			Type:       auditDomain.AnomalyUnusualHours,
			Confidence: anomalyConfidence,
			Details: map[string]any{
				"hour": input.Now.UTC().Hour(),
			},
		})
	}

	if input.RecentIdenticalEvents >= rapidSuccessionThreshold {
		anomalies = append(anomalies, auditDomain.Anomaly{
			Type:       auditDomain.AnomalyRapidSuccession,
			Confidence: anomalyConfidence,
			Details: map[string]any{
				"event_type":     input.EventType,
				"count":          input.RecentIdenticalEvents,
				"window_seconds": int(RapidSuccessionWindow.Seconds()),
			},
		})
	}

	return anomalies
}

// withinTypicalHours reports whether the hour of the event falls inside the
// user's activity window. With enough history the window is the set of hours
// carrying at least activeHourShare of the user's 30-day events; otherwise
// the default 06:00-22:00 window applies.
func (a *anomalyDetector) withinTypicalHours(now time.Time, hourCounts [24]int64) bool {
	hour := now.UTC().Hour()

	var total int64
	for _, count := range hourCounts {
		total += count
	}

	if total < minHistoryEvents {
		return hour >= defaultActiveHourStart && hour < defaultActiveHourEnd
	}

	threshold := float64(total) * activeHourShare
	return float64(hourCounts[hour]) >= threshold && hourCounts[hour] > 0
}
