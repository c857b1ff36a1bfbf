// Package power computes two-sample, equal-allocation t-test power and
// sample sizes for a two-arm trial.
//
// All functions are pure and safe for concurrent use. Callers must pass
// effectSize > 0 and alpha in (0, 1); these are preconditions, not checked.
package power

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// AdequatePower is the conventional threshold below which a trial is
	// reported as underpowered.
	AdequatePower = 0.80
	// DefaultMaxN bounds the sample size search.
	DefaultMaxN = 10000
	minPerGroup = 2
	// Power within this distance of 1 is reported as 1. The series and the
	// normal approximation disagree in the last digits near certainty.
	saturationTol = 1e-10
)

// Power returns the probability that a two-sided two-sample t-test with
// nPerGroup patients per arm rejects H0 when the true standardized effect is
// effectSize (Cohen's d). Fewer than two patients per arm gives 0.
// The result is non-decreasing in nPerGroup.
func Power(nPerGroup int, effectSize, alpha float64) float64 {
	if nPerGroup < minPerGroup {
		return 0
	}

	n := float64(nPerGroup)
	df := 2*n - 2
	ncp := effectSize * math.Sqrt(n/2)
	tCrit := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Quantile(1 - alpha/2)

	p := 1 - NoncentralTCDF(tCrit, df, ncp) + NoncentralTCDF(-tCrit, df, ncp)
	if p > 1-saturationTol {
		return 1
	}
	return math.Max(p, 0)
}

// RequiredSampleSize returns the smallest per-arm n in [2, maxN] whose power
// reaches targetPower. Power is non-decreasing in n, so a binary search
// suffices. When no n in range is enough, maxN is returned: callers must not
// read a result equal to maxN as proof of convergence.
func RequiredSampleSize(targetPower, effectSize, alpha float64, maxN int) int {
	if maxN < minPerGroup {
		maxN = minPerGroup
	}
	low, high := minPerGroup, maxN
	for low < high {
		mid := (low + high) / 2
		if Power(mid, effectSize, alpha) >= targetPower {
			high = mid
		} else {
			low = mid + 1
		}
	}
	return low
}

// CurvePoint is one sample of the power curve.
type CurvePoint struct {
	NPerGroup int     `json:"n_per_group"`
	Power     float64 `json:"power"`
}

// Curve samples power at n = step, 2*step, ... up to maxN for charting.
// A non-positive step yields no points.
func Curve(maxN int, effectSize, alpha float64, step int) []CurvePoint {
	if step <= 0 || maxN < step {
		return []CurvePoint{}
	}
	points := make([]CurvePoint, 0, maxN/step)
	for n := step; n <= maxN; n += step {
		points = append(points, CurvePoint{NPerGroup: n, Power: Power(n, effectSize, alpha)})
	}
	return points
}

// Result is the trial-level power report.
type Result struct {
	NPerGroupTarget      int     `json:"n_per_group_target"`
	NPerGroupActual      int     `json:"n_per_group_actual"`
	PowerAtTarget        float64 `json:"power_at_target"`
	PowerAtActual        float64 `json:"power_at_actual"`
	PowerGap             float64 `json:"power_gap"`
	IsUnderpowered       bool    `json:"is_underpowered"`
	RecommendedNPerGroup int     `json:"recommended_n_per_group"`
	RecommendedTotal     int     `json:"recommended_total"`
	EnrollmentShortfall  int     `json:"enrollment_shortfall"`
	RecommendationCapped bool    `json:"recommendation_capped"`
}

// AnalyzeTrial reports power at the planned and current enrollment under
// 1:1 randomization. Odd totals drop the remainder patient. Power figures are
// rounded to four decimals; the underpowered flag uses the unrounded value.
func AnalyzeTrial(enrollmentTarget, enrollmentActual int, effectSize, alpha float64) Result {
	nTarget := enrollmentTarget / 2
	nActual := enrollmentActual / 2

	powerTarget := Power(nTarget, effectSize, alpha)
	powerActual := Power(nActual, effectSize, alpha)

	recommended := RequiredSampleSize(AdequatePower, effectSize, alpha, DefaultMaxN)
	shortfall := 2*recommended - enrollmentActual
	if shortfall < 0 {
		shortfall = 0
	}

	return Result{
		NPerGroupTarget:      nTarget,
		NPerGroupActual:      nActual,
		PowerAtTarget:        round(powerTarget, 4),
		PowerAtActual:        round(powerActual, 4),
		PowerGap:             round(powerTarget-powerActual, 4),
		IsUnderpowered:       powerActual < AdequatePower,
		RecommendedNPerGroup: recommended,
		RecommendedTotal:     2 * recommended,
		EnrollmentShortfall:  shortfall,
		RecommendationCapped: recommended == DefaultMaxN && Power(recommended, effectSize, alpha) < AdequatePower,
	}
}

func round(x float64, places int) float64 {
	r, err := stats.Round(x, places)
	if err != nil {
		return x
	}
	return r
}
