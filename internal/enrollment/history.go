// Package enrollment fits and projects cumulative enrollment curves.
//
// Histories are either real registry telemetry or synthetic series produced
// by GenerateSynthetic. FitTrend regresses cumulative enrollment on day
// offset with Newey-West standard errors, and ForecastCompletion and
// BuildSeries project that line forward.
package enrollment

import (
	"time"

	"github.com/montanaflynn/stats"
)

// Point is one day of enrollment.
type Point struct {
	Date       time.Time `json:"date"`
	DayOffset  int       `json:"day_offset"`
	Cumulative int       `json:"cumulative_enrolled"`
	DailyNew   int       `json:"daily_new"`
}

// History is a day-ordered enrollment series. Day offsets start at 0 and
// strictly increase; cumulative counts never decrease.
type History []Point

// Start is the date of day 0, or the zero time for an empty history.
func (h History) Start() time.Time {
	if len(h) == 0 {
		return time.Time{}
	}
	return h[0].Date
}

// Last returns the most recent point.
func (h History) Last() (Point, bool) {
	if len(h) == 0 {
		return Point{}, false
	}
	return h[len(h)-1], true
}

// MeanDailyRate averages new enrollments per day, excluding day 0.
func (h History) MeanDailyRate() float64 {
	if len(h) < 2 {
		return 0
	}
	mean, err := stats.Mean(h.dailyNew()[1:])
	if err != nil {
		return 0
	}
	return mean
}

// PeakDaily is the largest single-day enrollment.
func (h History) PeakDaily() int {
	peak, err := stats.Max(h.dailyNew())
	if err != nil {
		return 0
	}
	return int(peak)
}

func (h History) dailyNew() stats.Float64Data {
	out := make(stats.Float64Data, len(h))
	for i, p := range h {
		out[i] = float64(p.DailyNew)
	}
	return out
}

// recomputeDaily rebuilds DailyNew from the cumulative column in place.
func (h History) recomputeDaily() {
	prev := 0
	for i := range h {
		h[i].DailyNew = h[i].Cumulative - prev
		prev = h[i].Cumulative
	}
}
