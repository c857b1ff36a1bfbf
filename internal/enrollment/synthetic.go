package enrollment

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// DefaultRate is the fraction of the ideal pace a synthetic trial enrolls at.
	DefaultRate = 0.8
	// DefaultNoise is the relative standard deviation of the daily mean.
	DefaultNoise = 0.15

	// idealEnrollmentDays is the ~18 month horizon the ideal pace fills the target in.
	idealEnrollmentDays = 547
	minDailyMean        = 0.1
	// calibrationWindow bounds how many trailing days absorb an upward correction.
	calibrationWindow = 30
)

// SyntheticConfig drives GenerateSynthetic.
type SyntheticConfig struct {
	StartDate   time.Time
	Target      int
	DaysElapsed int
	Rate        float64
	Noise       float64
	Seed        uint64
	// FinalEnrollment, when set, pins the last cumulative value (see Calibrate).
	FinalEnrollment *int
}

// NewSyntheticConfig returns a config with the default rate and noise.
func NewSyntheticConfig(start time.Time, target, daysElapsed int, seed uint64) SyntheticConfig {
	return SyntheticConfig{
		StartDate:   start,
		Target:      target,
		DaysElapsed: daysElapsed,
		Rate:        DefaultRate,
		Noise:       DefaultNoise,
		Seed:        seed,
	}
}

// GenerateSynthetic simulates daily Poisson enrollment from day 0 through
// DaysElapsed. The daily mean is the ideal pace scaled by Rate with Gaussian
// jitter of relative size Noise, floored at 0.1. Cumulative enrollment stops
// at Target. Each call owns its generator, so equal seeds give equal output.
func GenerateSynthetic(cfg SyntheticConfig) History {
	days := max(cfg.DaysElapsed, 0)
	src := rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	rng := rand.New(src)
	base := float64(cfg.Target) / idealEnrollmentDays * cfg.Rate

	start := cfg.StartDate
	h := make(History, 0, days+1)
	cumulative := 0
	for d := 0; d <= days; d++ {
		added := 0
		if d > 0 {
			lambda := math.Max(minDailyMean, base*(1+cfg.Noise*rng.NormFloat64()))
			added = int(distuv.Poisson{Lambda: lambda, Src: src}.Rand())
		}
		added = max(0, min(added, cfg.Target-cumulative))
		cumulative += added
		h = append(h, Point{
			Date:       start.AddDate(0, 0, d),
			DayOffset:  d,
			Cumulative: cumulative,
			DailyNew:   added,
		})
	}

	if cfg.FinalEnrollment != nil {
		return Calibrate(h, *cfg.FinalEnrollment, cfg.Target)
	}
	return h
}

// Calibrate returns a copy of h whose last cumulative value is
// min(final, target), floored at 0.
//
// A shortfall is spread over at most the last 30 days as a linear ramp, so
// earlier days keep their simulated values. An excess is removed by clamping
// every point above the new final value. Both keep the series
// non-decreasing, and DailyNew is recomputed.
func Calibrate(h History, final, target int) History {
	out := make(History, len(h))
	copy(out, h)
	if len(out) == 0 {
		return out
	}

	goal := max(0, min(final, target))
	lastIdx := len(out) - 1
	diff := goal - out[lastIdx].Cumulative

	switch {
	case diff == 0:
		return out
	case diff < 0:
		for i := range out {
			out[i].Cumulative = min(out[i].Cumulative, goal)
		}
	case lastIdx == 0:
		out[0].Cumulative = goal
	default:
		from := max(0, lastIdx-calibrationWindow)
		span := lastIdx - from
		for i := from + 1; i <= lastIdx; i++ {
			out[i].Cumulative += diff * (i - from) / span
		}
	}

	out.recomputeDaily()
	return out
}
