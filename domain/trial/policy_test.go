package trial

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2023-05-17", time.Date(2023, 5, 17, 0, 0, 0, 0, time.UTC), true},
		{"2023-05", time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), true},
		{"", DefaultStartDate, false},
		{"May 2023", DefaultStartDate, false},
		{"2023-13-01", DefaultStartDate, false},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
	}
}

func TestParseScenario(t *testing.T) {
	assert.Equal(t, ScenarioLow, ParseScenario("LOW"))
	assert.Equal(t, ScenarioHigh, ParseScenario(" high "))
	assert.Equal(t, ScenarioMedian, ParseScenario("median"))
	assert.Equal(t, ScenarioMedian, ParseScenario("p90"))
}

func TestEstimateActual(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	actual, estimated := EstimateActual(Summary{EnrollmentTarget: 240, EnrollmentType: EnrollmentActual}, now)
	assert.Equal(t, 240, actual)
	assert.False(t, estimated)

	// 366 days in: progress 366/1095 = 0.334
	actual, estimated = EstimateActual(Summary{EnrollmentTarget: 200, StartDate: "2024-01-01"}, now)
	assert.Equal(t, 66, actual)
	assert.True(t, estimated)

	// Recently started trials are floored at 30%.
	actual, _ = EstimateActual(Summary{EnrollmentTarget: 200, StartDate: "2024-12"}, now)
	assert.Equal(t, 60, actual)

	// Old trials are capped at 85%.
	actual, _ = EstimateActual(Summary{EnrollmentTarget: 200, StartDate: "2015-01-01"}, now)
	assert.Equal(t, 170, actual)

	// No start date: 60% of the defaulted target.
	actual, _ = EstimateActual(Summary{}, now)
	assert.Equal(t, 60, actual)
}

func TestSimulatedDaysClamp(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 30, SimulatedDays(Summary{StartDate: "2024-12-25"}, now))
	assert.Equal(t, 1095, SimulatedDays(Summary{StartDate: "2010-01-01"}, now))
	assert.Equal(t, 366, SimulatedDays(Summary{StartDate: "2024-01-01"}, now))
}

func TestSummaryDefaults(t *testing.T) {
	s := Summary{}
	assert.Equal(t, DefaultEnrollmentTarget, s.Target())
	assert.Equal(t, DefaultSitesCount, s.Sites())
}

func TestSeedIsStable(t *testing.T) {
	assert.Equal(t, Seed("NCT01234567"), Seed("NCT01234567"))
	assert.Less(t, Seed("NCT01234567"), uint64(10000))
}
