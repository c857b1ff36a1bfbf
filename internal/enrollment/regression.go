package enrollment

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"trialmetrics/domain/core"
)

// minFitPoints is the fewest points a trend with a residual degree of freedom needs.
const minFitPoints = 3

// Trend is a fitted line cumulative = Intercept + Slope*day with
// autocorrelation-robust inference on the slope.
type Trend struct {
	Intercept float64
	Slope     float64
	// SlopeSE is the Newey-West standard error of Slope.
	SlopeSE float64
	// TStat is ±Inf when the fit is exact and SlopeSE is zero.
	TStat    float64
	PValue   float64
	RSquared float64
	Lags     int
	N        int
}

// DefaultLags is the Newey-West truncation floor(4*(n/100)^(2/9)).
func DefaultLags(n int) int {
	return int(4 * math.Pow(float64(n)/100, 2.0/9.0))
}

// FitTrend regresses cumulative enrollment on day offset by OLS.
//
// The slope standard error uses the Newey-West HAC estimator with Bartlett
// weights and no small-sample correction, because daily increments are
// serially correlated and plain OLS errors understate the spread. maxLags
// overrides DefaultLags when non-nil. The p-value is two-sided against a
// Student's t with n-2 degrees of freedom.
func FitTrend(h History, maxLags *int) (Trend, error) {
	n := len(h)
	if n < minFitPoints {
		return Trend{}, fmt.Errorf("%w: have %d points, need %d", core.ErrInsufficientHistory, n, minFitPoints)
	}

	x := make([]float64, n)
	y := make([]float64, n)
	for i, p := range h {
		x[i] = float64(p.DayOffset)
		y[i] = float64(p.Cumulative)
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)

	lags := DefaultLags(n)
	if maxLags != nil {
		lags = *maxLags
	}
	lags = max(0, min(lags, n-1))

	se, err := hacSlopeSE(x, y, intercept, slope, lags)
	if err != nil {
		return Trend{}, err
	}

	tr := Trend{
		Intercept: intercept,
		Slope:     slope,
		SlopeSE:   se,
		Lags:      lags,
		N:         n,
	}

	switch {
	case se > 0:
		tr.TStat = slope / se
		st := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
		tr.PValue = math.Min(1, 2*st.Survival(math.Abs(tr.TStat)))
	case slope != 0:
		tr.TStat = math.Inf(int(math.Copysign(1, slope)))
	default:
		tr.PValue = 1
	}

	// A constant series has no variance to explain.
	if r2 := stat.RSquared(x, y, nil, intercept, slope); !math.IsNaN(r2) {
		tr.RSquared = r2
	}

	return tr, nil
}

// hacSlopeSE computes the sandwich (X'X)^-1 S (X'X)^-1 where
// S = sum_l w_l (Gamma_l + Gamma_l') with Bartlett weights w_l = 1 - l/(lags+1)
// and Gamma_l the lag-l cross products of the scores x_t*u_t.
func hacSlopeSE(x, y []float64, intercept, slope float64, lags int) (float64, error) {
	n := len(x)
	design := mat.NewDense(n, 2, nil)
	scores := mat.NewDense(n, 2, nil)
	for i := range x {
		u := y[i] - intercept - slope*x[i]
		design.Set(i, 0, 1)
		design.Set(i, 1, x[i])
		scores.Set(i, 0, u)
		scores.Set(i, 1, u*x[i])
	}

	var xtx, bread mat.Dense
	xtx.Mul(design.T(), design)
	if err := bread.Inverse(&xtx); err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrSingularDesign, err)
	}

	var meat mat.Dense
	meat.Mul(scores.T(), scores)
	for l := 1; l <= lags; l++ {
		w := 1 - float64(l)/float64(lags+1)
		var gamma mat.Dense
		gamma.Mul(scores.Slice(l, n, 0, 2).T(), scores.Slice(0, n-l, 0, 2))
		var sym mat.Dense
		sym.Add(&gamma, gamma.T())
		sym.Scale(w, &sym)
		meat.Add(&meat, &sym)
	}

	var tmp, cov mat.Dense
	tmp.Mul(&bread, &meat)
	cov.Mul(&tmp, &bread)

	v := cov.At(1, 1)
	if v <= 0 || math.IsNaN(v) {
		return 0, nil
	}
	return math.Sqrt(v), nil
}
