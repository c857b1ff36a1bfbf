package trial

import (
	"hash/fnv"
	"math"
	"time"
)

const (
	// DefaultEnrollmentTarget replaces a zero registry target.
	DefaultEnrollmentTarget = 100
	// DefaultSitesCount replaces a zero site count.
	DefaultSitesCount = 10

	estimationHorizonDays = 1095
	minEstimatedProgress  = 0.3
	maxEstimatedProgress  = 0.85
	fallbackProgress      = 0.6

	minSimulatedDays = 30
	maxSimulatedDays = 1095
)

// Target returns the enrollment target, defaulted when the registry has none.
func (s Summary) Target() int {
	if s.EnrollmentTarget <= 0 {
		return DefaultEnrollmentTarget
	}
	return s.EnrollmentTarget
}

// Sites returns the site count, defaulted when the registry lists no locations.
func (s Summary) Sites() int {
	if s.SitesCount <= 0 {
		return DefaultSitesCount
	}
	return s.SitesCount
}

// EstimateActual picks the current enrollment for a trial.
//
// An ACTUAL registry count is taken as is. Otherwise the registry only
// carries the planned target, so progress is estimated from time since
// start over a three year horizon, clamped to [0.3, 0.85]. Trials without a
// usable start date are assumed 60% enrolled. estimated reports whether the
// heuristic was used.
func EstimateActual(s Summary, now time.Time) (actual int, estimated bool) {
	target := s.Target()
	if s.EnrollmentType == EnrollmentActual {
		return target, false
	}

	start, ok := ParseDate(s.StartDate)
	if !ok {
		return int(float64(target) * fallbackProgress), true
	}

	days := DaysBetween(start, now)
	progress := float64(days) / estimationHorizonDays
	progress = math.Min(maxEstimatedProgress, math.Max(minEstimatedProgress, progress))
	return int(float64(target) * progress), true
}

// SimulatedDays is the length of synthetic history to generate for s:
// days since start clamped to [30, 1095].
func SimulatedDays(s Summary, now time.Time) int {
	start, _ := ParseDate(s.StartDate)
	days := DaysBetween(start, now)
	if days < minSimulatedDays {
		return minSimulatedDays
	}
	if days > maxSimulatedDays {
		return maxSimulatedDays
	}
	return days
}

// Seed derives a stable synthetic-history seed from the trial id.
func Seed(nctID string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(nctID))
	return h.Sum64() % 10000
}
