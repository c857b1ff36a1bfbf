package narrative

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

const (
	maxTitleLen = 50
	// shortRunwayMonths is the runway below which the budget is the headline constraint.
	shortRunwayMonths = 6
)

// TemplateSummary writes a five sentence markdown briefing: situation,
// power, budget, and a two sentence recommendation keyed to the risk level.
func TemplateSummary(in Input) string {
	risk := ClassifyRisk(in.Power)
	powerPct := in.Power.PowerAtActual * 100
	target := in.Params.EnrollmentTarget
	actual := in.Params.EnrollmentActual
	progressPct := 0.0
	if target > 0 {
		progressPct = float64(actual) / float64(target) * 100
	}

	title := strings.TrimSpace(in.Trial.Title)
	if title == "" {
		title = "This trial"
	}
	if r := []rune(title); len(r) > maxTitleLen {
		title = string(r[:maxTitleLen])
	}
	phase := in.Trial.Phase
	if phase == "" {
		phase = "N/A"
	}

	sentences := make([]string, 0, 5)
	sentences = append(sentences, fmt.Sprintf(
		"**%s**: %s, a %s trial, has enrolled %.0f%% of its target (%s of %s patients) with a projected completion date of %s.",
		risk, title, phase, progressPct, humanize.Comma(int64(actual)), humanize.Comma(int64(target)), completionText(in)))

	switch risk {
	case RiskHigh:
		sentences = append(sentences, fmt.Sprintf(
			"The current statistical power stands at just %.0f%%, critically below the 80%% threshold required for scientific validity, so the study risks missing a true treatment effect even if one exists.", powerPct))
	case RiskModerate:
		sentences = append(sentences, fmt.Sprintf(
			"Statistical power is at %.0f%%, below the 80%% threshold, which is a moderate risk to demonstrating treatment efficacy.", powerPct))
	default:
		sentences = append(sentences, fmt.Sprintf(
			"Statistical power is healthy at %.0f%%, above the 80%% threshold required for robust detection of treatment effects.", powerPct))
	}

	b := in.Budget
	runway := runwayText(b.RunwayMonths)
	switch {
	case b.RunwayMonths != nil && *b.RunwayMonths < shortRunwayMonths:
		sentences = append(sentences, fmt.Sprintf(
			"With only %s of runway remaining and %s of %s consumed, the timeline for reaching adequate enrollment is constrained.",
			runway, dollars(b.SpentToDate), dollars(b.TotalBudget)))
	case b.EfficiencyRatio < 1:
		sentences = append(sentences, fmt.Sprintf(
			"Budget efficiency at %.2fx indicates spending is outpacing enrollment, with %s of runway remaining to course-correct.",
			b.EfficiencyRatio, runway))
	default:
		sentences = append(sentences, fmt.Sprintf(
			"Budget use remains efficient at %.2fx with %s of runway, leaving adequate resources to reach the enrollment target.",
			b.EfficiencyRatio, runway))
	}

	switch risk {
	case RiskHigh:
		sentences = append(sentences,
			"Immediate intervention is required: add 2-3 clinical sites, raise referral incentives by 15-20%, and widen eligibility criteria where clinically appropriate.",
			fmt.Sprintf("Without roughly %s additional patients the study is likely to be inconclusive and should go to executive review within 30 days.",
				humanize.Comma(int64(in.Power.EnrollmentShortfall))))
	case RiskModerate:
		sentences = append(sentences,
			"To reach adequate power, tighten existing site performance with weekly enrollment reviews and targeted recruitment in high-performing regions.",
			"With these measures the current trajectory should reach 80% power within the planned timeline, with quarterly progress reviews.")
	default:
		sentences = append(sentences,
			"The study is performing well; keep the current operational tempo and watch for site-level variation that could bend the enrollment curve.",
			"Continue monthly progress reviews and prepare interim analysis protocols.")
	}

	return strings.Join(sentences, " ")
}

func completionText(in Input) string {
	if in.Forecast != nil && in.Forecast.CompletionDate != nil {
		return in.Forecast.CompletionDate.Format("January 2006")
	}
	if c := strings.TrimSpace(in.Trial.CompletionDate); c != "" {
		return c
	}
	return "TBD"
}

func runwayText(months *float64) string {
	if months == nil {
		return "unlimited months"
	}
	return fmt.Sprintf("%.1f months", *months)
}

func dollars(v float64) string {
	return "$" + humanize.Comma(int64(math.Round(v)))
}
