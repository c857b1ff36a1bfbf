// Package cost projects a trial budget from industry per-patient benchmarks.
//
// The model is deterministic: site start-up is paid up front, patient cost
// accrues with actual enrollment, and overhead accrues linearly over an
// assumed two year trial. Money is carried in decimal and rounded to cents
// only when the result is assembled.
package cost

import (
	"github.com/shopspring/decimal"

	"trialmetrics/domain/trial"
)

const (
	// SiteStartupCost is paid once per site, up front.
	SiteStartupCost = 50_000
	// MonthlyOverheadRate is charged on the patient budget every month.
	MonthlyOverheadRate = 0.05
	// AssumedTrialMonths is the horizon overhead is budgeted and accrued over.
	AssumedTrialMonths = 24
	// SpendCapMultiple bounds spent-to-date relative to the total budget.
	SpendCapMultiple = 1.5
)

type tier struct {
	low, median, high float64
}

// costPerPatient holds synthetic USD benchmarks per phase.
var costPerPatient = map[trial.Phase]tier{
	trial.Phase1:  {15_000, 25_000, 40_000},
	trial.Phase2:  {25_000, 35_000, 50_000},
	trial.Phase3:  {35_000, 45_000, 70_000},
	trial.Phase4:  {10_000, 20_000, 35_000},
	trial.PhaseNA: {20_000, 30_000, 45_000},
}

// CostPerPatient looks up the benchmark for a normalized phase. Unknown
// phases use the NA row and unknown scenarios the median.
func CostPerPatient(phase trial.Phase, scenario trial.Scenario) float64 {
	t, ok := costPerPatient[phase]
	if !ok {
		t = costPerPatient[trial.PhaseNA]
	}
	switch scenario {
	case trial.ScenarioLow:
		return t.low
	case trial.ScenarioHigh:
		return t.high
	default:
		return t.median
	}
}

// BudgetInput is everything the budget model reads.
//
// Preconditions, not checked: counts and MonthsElapsed are non-negative.
type BudgetInput struct {
	Phase            trial.Phase
	EnrollmentTarget int
	EnrollmentActual int
	SitesCount       int
	MonthsElapsed    float64
	Scenario         trial.Scenario
}

// InputFromParameters adapts an analysis snapshot to the budget model.
func InputFromParameters(p trial.Parameters, scenario trial.Scenario) BudgetInput {
	return BudgetInput{
		Phase:            p.Phase,
		EnrollmentTarget: p.EnrollmentTarget,
		EnrollmentActual: p.EnrollmentActual,
		SitesCount:       p.SitesCount,
		MonthsElapsed:    p.MonthsElapsed,
		Scenario:         scenario,
	}
}

// BudgetResult is the flat budget projection. Currency fields are USD
// rounded to cents.
type BudgetResult struct {
	TotalBudget            float64 `json:"total_budget"`
	PatientBudget          float64 `json:"patient_budget"`
	SiteBudget             float64 `json:"site_budget"`
	OverheadBudget         float64 `json:"overhead_budget"`
	SpentToDate            float64 `json:"spent_to_date"`
	Remaining              float64 `json:"remaining"`
	CostPerPatientBudgeted float64 `json:"cost_per_patient_budgeted"`
	CostPerPatientActual   float64 `json:"cost_per_patient_actual"`
	MonthlyBurnRate        float64 `json:"monthly_burn_rate"`
	// RunwayMonths is nil when nothing is being burned, i.e. infinite runway.
	RunwayMonths       *float64 `json:"runway_months"`
	BudgetUtilization  float64  `json:"budget_utilization"`
	EnrollmentProgress float64  `json:"enrollment_progress"`
	EfficiencyRatio    float64  `json:"efficiency_ratio"`
	IsOverBudget       bool     `json:"is_over_budget"`
}

// CalculateBudget runs the accrual model for in.
func CalculateBudget(in BudgetInput) BudgetResult {
	cpp := decimal.NewFromFloat(CostPerPatient(in.Phase, in.Scenario))
	target := decimal.NewFromInt(int64(in.EnrollmentTarget))
	actual := decimal.NewFromInt(int64(in.EnrollmentActual))
	months := decimal.NewFromFloat(in.MonthsElapsed)
	horizon := decimal.NewFromInt(AssumedTrialMonths)

	patientBudget := cpp.Mul(target)
	siteBudget := decimal.NewFromInt(SiteStartupCost).Mul(decimal.NewFromInt(int64(in.SitesCount)))
	overheadBudget := patientBudget.Mul(decimal.NewFromFloat(MonthlyOverheadRate)).Mul(horizon)
	totalBudget := patientBudget.Add(siteBudget).Add(overheadBudget)

	patientSpent := cpp.Mul(actual)
	overheadSpent := overheadBudget.Mul(months).Div(horizon)
	spent := siteBudget.Add(patientSpent).Add(overheadSpent)
	spent = decimal.Min(spent, totalBudget.Mul(decimal.NewFromFloat(SpendCapMultiple)))
	remaining := decimal.Max(decimal.Zero, totalBudget.Sub(spent))

	cppActual := decimal.Zero
	if in.EnrollmentActual > 0 {
		cppActual = patientSpent.Add(overheadSpent).Div(actual)
	}

	burn := decimal.Zero
	if months.IsPositive() {
		burn = spent.Div(months)
	}

	var runway *float64
	if burn.IsPositive() {
		r := remaining.Div(burn).Round(1).InexactFloat64()
		runway = &r
	}

	progress := 0.0
	if in.EnrollmentTarget > 0 {
		progress = actual.Div(target).InexactFloat64()
	}
	utilization := 0.0
	if totalBudget.IsPositive() {
		utilization = spent.Div(totalBudget).InexactFloat64()
	}
	efficiency := 1.0
	if utilization > 0 {
		efficiency = progress / utilization
	}

	return BudgetResult{
		TotalBudget:            cents(totalBudget),
		PatientBudget:          cents(patientBudget),
		SiteBudget:             cents(siteBudget),
		OverheadBudget:         cents(overheadBudget),
		SpentToDate:            cents(spent),
		Remaining:              cents(remaining),
		CostPerPatientBudgeted: cents(cpp),
		CostPerPatientActual:   cents(cppActual),
		MonthlyBurnRate:        cents(burn),
		RunwayMonths:           runway,
		BudgetUtilization:      roundTo(utilization, 4),
		EnrollmentProgress:     roundTo(progress, 4),
		EfficiencyRatio:        roundTo(efficiency, 3),
		IsOverBudget:           spent.GreaterThan(totalBudget),
	}
}

func cents(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func roundTo(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
