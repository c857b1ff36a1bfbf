// Package narrative turns engine results into an executive summary.
//
// A Summarizer asks an optional LLM Generator first and falls back to a
// deterministic template, so a summary is always produced.
package narrative

import (
	"context"
	"strings"
	"time"

	"trialmetrics/domain/trial"
	"trialmetrics/internal"
	"trialmetrics/internal/cost"
	"trialmetrics/internal/enrollment"
	"trialmetrics/internal/power"
)

// Risk is the headline classification of a trial.
type Risk string

const (
	RiskHigh     Risk = "HIGH RISK"
	RiskModerate Risk = "MODERATE RISK"
	RiskOnTrack  Risk = "ON TRACK"
)

// criticalPower is the power below which an underpowered trial is high risk.
const criticalPower = 0.5

// ClassifyRisk grades a trial by its current power.
func ClassifyRisk(p power.Result) Risk {
	switch {
	case p.IsUnderpowered && p.PowerAtActual < criticalPower:
		return RiskHigh
	case p.IsUnderpowered:
		return RiskModerate
	default:
		return RiskOnTrack
	}
}

// Source records which path produced a summary.
type Source string

const (
	SourceAI       Source = "ai"
	SourceTemplate Source = "template"
)

// Input is everything a summary is written from. Forecast is nil when the
// enrollment history could not be fitted.
type Input struct {
	Trial    trial.Summary
	Params   trial.Parameters
	Power    power.Result
	Budget   cost.BudgetResult
	Forecast *enrollment.Forecast
}

// Summary is a generated narrative.
type Summary struct {
	NCTID       string    `json:"nct_id"`
	Risk        Risk      `json:"risk"`
	Text        string    `json:"text"`
	HTML        string    `json:"html"`
	Source      Source    `json:"source"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Generator produces free text for a prompt. adapters/llm implements it
// over the OpenAI chat API.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Summarizer writes summaries, preferring the generator when one is set.
type Summarizer struct {
	gen    Generator
	logger *internal.Logger
	now    func() time.Time
}

// NewSummarizer returns a Summarizer. A nil gen means template only.
func NewSummarizer(gen Generator, logger *internal.Logger) *Summarizer {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Summarizer{gen: gen, logger: logger.With("narrative"), now: time.Now}
}

// Summarize writes a summary for in. Generator failures and empty replies
// are logged and fall back to the template.
func (s *Summarizer) Summarize(ctx context.Context, in Input) Summary {
	text, source := TemplateSummary(in), SourceTemplate

	if s.gen != nil {
		out, err := s.gen.Generate(ctx, BuildPrompt(in))
		switch {
		case err != nil:
			s.logger.Warn("LLM summary failed for %s, using template: %v", in.Trial.NCTID, err)
		case strings.TrimSpace(out) == "":
			s.logger.Warn("LLM returned an empty summary for %s, using template", in.Trial.NCTID)
		default:
			text, source = strings.TrimSpace(out), SourceAI
		}
	}

	return Summary{
		NCTID:       in.Trial.NCTID,
		Risk:        ClassifyRisk(in.Power),
		Text:        text,
		HTML:        RenderHTML(text),
		Source:      source,
		GeneratedAt: s.now(),
	}
}
