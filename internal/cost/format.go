package cost

import "fmt"

// FormatCurrency renders a compact dollar figure: "$1.2M", "$45K" or "$500".
func FormatCurrency(amount float64) string {
	switch {
	case amount >= 1_000_000:
		return fmt.Sprintf("$%.1fM", amount/1_000_000)
	case amount >= 1_000:
		return fmt.Sprintf("$%.0fK", amount/1_000)
	default:
		return fmt.Sprintf("$%.0f", amount)
	}
}

// Budget statuses shown next to a projection.
const (
	StatusOverBudget = "OVER BUDGET"
	StatusOnTrack    = "ON TRACK"
	StatusAtRisk     = "AT RISK"
)

// onTrackEfficiency is the lowest efficiency still reported as on track.
const onTrackEfficiency = 0.9

// BudgetSummary holds display strings for a BudgetResult.
type BudgetSummary struct {
	TotalBudget string `json:"total_budget_display"`
	Spent       string `json:"spent_display"`
	Remaining   string `json:"remaining_display"`
	BurnRate    string `json:"burn_rate_display"`
	Runway      string `json:"runway_display"`
	Utilization string `json:"utilization_display"`
	Progress    string `json:"progress_display"`
	Efficiency  string `json:"efficiency_display"`
	Status      string `json:"status"`
}

// Summarize formats r for display and classifies its status.
func Summarize(r BudgetResult) BudgetSummary {
	runway := "N/A"
	if r.RunwayMonths != nil {
		runway = fmt.Sprintf("%.1f months", *r.RunwayMonths)
	}

	status := StatusAtRisk
	switch {
	case r.IsOverBudget:
		status = StatusOverBudget
	case r.EfficiencyRatio >= onTrackEfficiency:
		status = StatusOnTrack
	}

	return BudgetSummary{
		TotalBudget: FormatCurrency(r.TotalBudget),
		Spent:       FormatCurrency(r.SpentToDate),
		Remaining:   FormatCurrency(r.Remaining),
		BurnRate:    FormatCurrency(r.MonthlyBurnRate) + "/mo",
		Runway:      runway,
		Utilization: fmt.Sprintf("%.1f%%", r.BudgetUtilization*100),
		Progress:    fmt.Sprintf("%.1f%%", r.EnrollmentProgress*100),
		Efficiency:  fmt.Sprintf("%.2fx", r.EfficiencyRatio),
		Status:      status,
	}
}
