package enrollment

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultConfidence is the completion-date interval level.
const DefaultConfidence = 0.95

// ModelStats are the rounded regression diagnostics reported with a forecast.
type ModelStats struct {
	Intercept float64 `json:"intercept"`
	Slope     float64 `json:"slope"`
	SlopeSE   float64 `json:"slope_se"`
	// TStat is nil when the slope standard error is zero.
	TStat    *float64 `json:"t_stat"`
	PValue   float64  `json:"p_value"`
	RSquared float64  `json:"r_squared"`
}

// Forecast projects when a trial reaches its enrollment target. Day and date
// fields are nil when the fitted rate is not positive and the target is
// never reached.
type Forecast struct {
	CurrentEnrolled   int        `json:"current_enrolled"`
	TargetEnrollment  int        `json:"target_enrollment"`
	CurrentDay        int        `json:"current_day"`
	DailyRate         float64    `json:"daily_rate"`
	DaysToTarget      *int       `json:"days_to_target"`
	DaysRemaining     *int       `json:"days_remaining"`
	CompletionDate    *time.Time `json:"completion_date"`
	CompletionCILower *time.Time `json:"completion_ci_lower"`
	CompletionCIUpper *time.Time `json:"completion_ci_upper"`
	ConfidenceLevel   float64    `json:"confidence_level"`
	// PlannedCompletion and IsOnTrack are set by AgainstPlan.
	PlannedCompletion *time.Time `json:"planned_completion"`
	IsOnTrack         *bool      `json:"is_on_track"`
	ModelStats
}

// ForecastCompletion inverts the fitted trend for the day it crosses target.
//
// The interval propagates slope uncertainty by the delta method,
// SE(day) = (target - intercept) / slope^2 * SE(slope), with a normal
// quantile for the confidence level; the lower end is clipped at day 0.
// Day offsets become dates by adding whole days to the history start.
func ForecastCompletion(h History, target int, confidence float64) (Forecast, error) {
	tr, err := FitTrend(h, nil)
	if err != nil {
		return Forecast{}, err
	}
	confidence = normalizeConfidence(confidence)
	last, _ := h.Last()

	f := Forecast{
		CurrentEnrolled:  last.Cumulative,
		TargetEnrollment: target,
		CurrentDay:       last.DayOffset,
		DailyRate:        round(tr.Slope, 2),
		ConfidenceLevel:  confidence,
		ModelStats:       roundedStats(tr),
	}

	if tr.Slope <= 0 {
		return f, nil
	}

	day := (float64(target) - tr.Intercept) / tr.Slope
	seDay := math.Abs((float64(target) - tr.Intercept) / (tr.Slope * tr.Slope) * tr.SlopeSE)
	z := zQuantile(confidence)
	lower := math.Max(0, day-z*seDay)
	upper := day + z*seDay

	daysToTarget := int(day)
	remaining := int(math.Max(0, day-float64(last.DayOffset)))
	start := h.Start()
	f.DaysToTarget = &daysToTarget
	f.DaysRemaining = &remaining
	f.CompletionDate = datePtr(start, day)
	f.CompletionCILower = datePtr(start, lower)
	f.CompletionCIUpper = datePtr(start, upper)
	return f, nil
}

// AgainstPlan compares the projection with the registry's planned completion
// date. A trial that is never projected to finish is not on track.
func (f Forecast) AgainstPlan(planned time.Time) Forecast {
	onTrack := f.CompletionDate != nil && !f.CompletionDate.After(planned)
	f.PlannedCompletion = &planned
	f.IsOnTrack = &onTrack
	return f
}

func roundedStats(tr Trend) ModelStats {
	ms := ModelStats{
		Intercept: round(tr.Intercept, 2),
		Slope:     round(tr.Slope, 4),
		SlopeSE:   round(tr.SlopeSE, 4),
		PValue:    round(tr.PValue, 6),
		RSquared:  round(tr.RSquared, 4),
	}
	if !math.IsInf(tr.TStat, 0) && !math.IsNaN(tr.TStat) && tr.SlopeSE > 0 {
		t := round(tr.TStat, 2)
		ms.TStat = &t
	}
	return ms
}

func zQuantile(confidence float64) float64 {
	return distuv.UnitNormal.Quantile(1 - (1-confidence)/2)
}

func normalizeConfidence(c float64) float64 {
	if c <= 0 || c >= 1 {
		return DefaultConfidence
	}
	return c
}

func datePtr(start time.Time, days float64) *time.Time {
	d := start.AddDate(0, 0, int(days))
	return &d
}

func round(v float64, places int) float64 {
	r, err := stats.Round(v, places)
	if err != nil {
		return v
	}
	return r
}
