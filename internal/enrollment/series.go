package enrollment

import (
	"math"
	"time"
)

// DefaultHorizonDays is how far past the last observation BuildSeries projects.
const DefaultHorizonDays = 365

// displayCeiling caps the optimistic band at 120% of target so charts stay
// readable. It is not a statistical bound.
const displayCeiling = 1.2

// Series point kinds.
const (
	KindActual   = "actual"
	KindForecast = "forecast"
)

// SeriesPoint is one charting row. CI bounds are set only on forecast rows.
type SeriesPoint struct {
	Date      time.Time `json:"date"`
	DayOffset int       `json:"day_offset"`
	Enrolled  float64   `json:"enrolled"`
	Kind      string    `json:"kind"`
	CILower   *float64  `json:"ci_lower,omitempty"`
	CIUpper   *float64  `json:"ci_upper,omitempty"`
}

// BuildSeries returns the observed history followed by a daily projection
// for horizonDays past the last observed day.
//
// Projected values follow the fitted line, never above target. The band uses
// slope ± z*SE(slope) as pessimistic and optimistic rates, floored at 0
// below and capped at 1.2x target above.
func BuildSeries(h History, target, horizonDays int, confidence float64) ([]SeriesPoint, error) {
	tr, err := FitTrend(h, nil)
	if err != nil {
		return nil, err
	}
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	z := zQuantile(normalizeConfidence(confidence))

	series := make([]SeriesPoint, 0, len(h)+horizonDays)
	for _, p := range h {
		series = append(series, SeriesPoint{
			Date:      p.Date,
			DayOffset: p.DayOffset,
			Enrolled:  float64(p.Cumulative),
			Kind:      KindActual,
		})
	}

	last, _ := h.Last()
	start := h.Start()
	tgt := float64(target)
	lowRate := tr.Slope - z*tr.SlopeSE
	highRate := tr.Slope + z*tr.SlopeSE
	for d := last.DayOffset + 1; d <= last.DayOffset+horizonDays; d++ {
		day := float64(d)
		lo := math.Max(0, tr.Intercept+lowRate*day)
		hi := math.Min(tgt*displayCeiling, tr.Intercept+highRate*day)
		series = append(series, SeriesPoint{
			Date:      start.AddDate(0, 0, d),
			DayOffset: d,
			Enrolled:  math.Min(tgt, tr.Intercept+tr.Slope*day),
			Kind:      KindForecast,
			CILower:   &lo,
			CIUpper:   &hi,
		})
	}
	return series, nil
}
