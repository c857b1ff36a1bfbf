package narrative

import (
	"fmt"
	"strings"
)

// SystemPrompt frames the model for every briefing request.
const SystemPrompt = "You are a clinical trial strategist. You write actionable, data-driven executive briefings with specific, implementable recommendations."

// BuildPrompt renders the metrics block and writing brief sent to the LLM.
func BuildPrompt(in Input) string {
	risk := ClassifyRisk(in.Power)
	powerPct := in.Power.PowerAtActual * 100
	target := in.Params.EnrollmentTarget
	actual := in.Params.EnrollmentActual

	enrollmentPct, budgetPct := 0.0, 0.0
	if target > 0 {
		enrollmentPct = float64(actual) / float64(target) * 100
	}
	if in.Budget.TotalBudget > 0 {
		budgetPct = in.Budget.SpentToDate / in.Budget.TotalBudget * 100
	}

	var b strings.Builder
	fmt.Fprintf(&b, "TRIAL: %s\n", in.Trial.Title)
	fmt.Fprintf(&b, "PHASE: %s\n\n", in.Trial.Phase)
	b.WriteString("CURRENT METRICS:\n")
	fmt.Fprintf(&b, "- Enrollment: %d of %d (%.0f%%)\n", actual, target, enrollmentPct)
	fmt.Fprintf(&b, "- Statistical power: %.1f%% (standard: 80%%)\n", powerPct)
	fmt.Fprintf(&b, "- Patients needed for 80%% power: %d\n", in.Power.EnrollmentShortfall)
	fmt.Fprintf(&b, "- Budget spent: %s of %s (%.0f%%)\n", dollars(in.Budget.SpentToDate), dollars(in.Budget.TotalBudget), budgetPct)
	fmt.Fprintf(&b, "- Runway: %s\n", runwayText(in.Budget.RunwayMonths))
	fmt.Fprintf(&b, "- Efficiency ratio: %.2fx\n", in.Budget.EfficiencyRatio)
	fmt.Fprintf(&b, "- Projected completion: %s\n\n", completionText(in))
	fmt.Fprintf(&b, "RISK CLASSIFICATION: %s\n\n", risk)

	b.WriteString("Write a 5-6 sentence executive summary for pharma leadership:\n")
	fmt.Fprintf(&b, "1. Situation: start with \"**%s**:\" then name the trial, phase and enrollment percentage.\n", risk)
	b.WriteString("2. Complication: if power is below 80%, explain that the trial may fail to detect a true effect; otherwise note the positive trajectory.\n")
	b.WriteString("3. Implication: connect runway to completion feasibility if current trends continue.\n")
	b.WriteString("4. Recommendation: two sentences of specific next steps (sites, referral incentives, eligibility) and the expected outcome.\n\n")
	b.WriteString("Use specific numbers. Be direct. Output flowing sentences only, no bullet points or headers.")
	return b.String()
}
