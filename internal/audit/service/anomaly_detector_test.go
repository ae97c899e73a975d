package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	auditDomain "github.com/gateproof/authcore/internal/audit/domain"
)

func anomalyTypes(anomalies []auditDomain.Anomaly) []string {
	types := make([]string, 0, len(anomalies))
	for _, anomaly := range anomalies {
		types = append(types, anomaly.Type)
	}
	return types
}

func TestAnomalyDetector_Detect(t *testing.T) {
	detector := NewAnomalyDetector()
	noon := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	threeAM := time.Date(2026, 3, 14, 3, 0, 0, 0, time.UTC)

	t.Run("QuietDaytimeActivityIsClean", func(t *testing.T) {
		anomalies := detector.Detect(AnomalyInput{
			Now:                   noon,
			EventType:             auditDomain.EventLoginSuccess,
			RecentIdenticalEvents: 1,
		})
		assert.Empty(t, anomalies)
	})

	t.Run("NightAccessWithoutHistoryFlagsUnusualHours", func(t *testing.T) {
		anomalies := detector.Detect(AnomalyInput{
			Now:                   threeAM,
			EventType:             auditDomain.EventLoginSuccess,
			RecentIdenticalEvents: 1,
		})
		assert.Contains(t, anomalyTypes(anomalies), auditDomain.AnomalyUnusualHours)
		assert.Equal(t, 0.8, anomalies[0].Confidence)
	})

	t.Run("NightAccessMatchingLearnedPatternIsClean", func(t *testing.T) {
		// A night-shift user whose 30-day history is concentrated around 03:00.
		var hours [24]int64
		hours[2] = 40
		hours[3] = 60
		hours[4] = 30

		anomalies := detector.Detect(AnomalyInput{
			Now:                   threeAM,
			EventType:             auditDomain.EventLoginSuccess,
			RecentIdenticalEvents: 1,
			HourCounts:            hours,
		})
		assert.Empty(t, anomalies)
	})

	t.Run("DaytimeAccessAgainstNightOnlyHistoryFlags", func(t *testing.T) {
		var hours [24]int64
		hours[3] = 100

		anomalies := detector.Detect(AnomalyInput{
			Now:                   noon,
			EventType:             auditDomain.EventLoginSuccess,
			RecentIdenticalEvents: 1,
			HourCounts:            hours,
		})
		assert.Contains(t, anomalyTypes(anomalies), auditDomain.AnomalyUnusualHours)
	})

	t.Run("SparseHistoryFallsBackToDefaultWindow", func(t *testing.T) {
		var hours [24]int64
		hours[3] = 5 // below the learning threshold

		anomalies := detector.Detect(AnomalyInput{
			Now:                   threeAM,
			EventType:             auditDomain.EventLoginSuccess,
			RecentIdenticalEvents: 1,
			HourCounts:            hours,
		})
		assert.Contains(t, anomalyTypes(anomalies), auditDomain.AnomalyUnusualHours)
	})

	t.Run("ThreeIdenticalEventsFlagRapidSuccession", func(t *testing.T) {
		anomalies := detector.Detect(AnomalyInput{
			Now:                   noon,
			EventType:             auditDomain.EventLoginFailure,
			RecentIdenticalEvents: 3,
		})
		assert.Contains(t, anomalyTypes(anomalies), auditDomain.AnomalyRapidSuccession)
	})

	t.Run("TwoIdenticalEventsDoNot", func(t *testing.T) {
		anomalies := detector.Detect(AnomalyInput{
			Now:                   noon,
			EventType:             auditDomain.EventLoginFailure,
			RecentIdenticalEvents: 2,
		})
		assert.NotContains(t, anomalyTypes(anomalies), auditDomain.AnomalyRapidSuccession)
	})

	t.Run("BothFlagsCanFireTogether", func(t *testing.T) {
		anomalies := detector.Detect(AnomalyInput{
			Now:                   threeAM,
			EventType:             auditDomain.EventLoginFailure,
			RecentIdenticalEvents: 5,
		})
		types := anomalyTypes(anomalies)
		assert.Contains(t, types, auditDomain.AnomalyUnusualHours)
		assert.Contains(t, types, auditDomain.AnomalyRapidSuccession)
	})
}
