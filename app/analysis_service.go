package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"trialmetrics/domain/core"
	"trialmetrics/domain/trial"
	"trialmetrics/internal"
	"trialmetrics/internal/config"
	"trialmetrics/internal/cost"
	"trialmetrics/internal/enrollment"
	"trialmetrics/internal/errors"
	"trialmetrics/internal/narrative"
	"trialmetrics/internal/power"
	"trialmetrics/ports"
)

const (
	// curveStep and minCurveN shape the charted power curve.
	curveStep     = 5
	minCurveN     = 200
	curveHeadroom = 50
)

// Defaults are applied when a request leaves a knob unset.
type Defaults struct {
	Analysis      trial.AnalysisConfig
	HorizonDays   int
	MonthsElapsed float64
}

// DefaultsFromConfig maps environment configuration onto analysis defaults.
func DefaultsFromConfig(c config.AnalysisConfig) Defaults {
	return Defaults{
		Analysis: trial.AnalysisConfig{
			EffectSize:      c.EffectSize,
			Alpha:           c.Alpha,
			CostScenario:    trial.ParseScenario(c.CostScenario),
			ConfidenceLevel: c.ConfidenceLevel,
		},
		HorizonDays:   c.ForecastHorizon,
		MonthsElapsed: c.MonthsElapsed,
	}
}

// TrialAnalysis is the combined power, budget and enrollment report for one
// trial snapshot.
type TrialAnalysis struct {
	ID            core.AnalysisID          `json:"analysis_id"`
	Trial         trial.Summary            `json:"trial"`
	Params        trial.Parameters         `json:"parameters"`
	Config        trial.AnalysisConfig     `json:"config"`
	Power         power.Result             `json:"power"`
	PowerCurve    []power.CurvePoint       `json:"power_curve"`
	Budget        cost.BudgetResult        `json:"budget"`
	BudgetSummary cost.BudgetSummary       `json:"budget_summary"`
	History       enrollment.History       `json:"-"`
	Forecast      *enrollment.Forecast     `json:"forecast"`
	Series        []enrollment.SeriesPoint `json:"series"`
	Warnings      []string                 `json:"warnings,omitempty"`
	GeneratedAt   time.Time                `json:"generated_at"`
	RuntimeMs     int64                    `json:"runtime_ms"`
}

// NarrativeInput is the summary input for a.
func (a *TrialAnalysis) NarrativeInput() narrative.Input {
	return narrative.Input{
		Trial:    a.Trial,
		Params:   a.Params,
		Power:    a.Power,
		Budget:   a.Budget,
		Forecast: a.Forecast,
	}
}

// AnalysisService runs the three engines over registry trials.
type AnalysisService struct {
	registry   ports.TrialRegistryPort
	summarizer *narrative.Summarizer
	cache      *narrative.Cache
	defaults   Defaults
	logger     *internal.Logger
	now        func() time.Time
}

// NewAnalysisService wires the service. registry may be nil for callers that
// only analyze summaries they already hold; summarizer and cache may be nil
// to use the template and skip caching.
func NewAnalysisService(registry ports.TrialRegistryPort, summarizer *narrative.Summarizer, cache *narrative.Cache, defaults Defaults, logger *internal.Logger) *AnalysisService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if summarizer == nil {
		summarizer = narrative.NewSummarizer(nil, logger)
	}
	return &AnalysisService{
		registry:   registry,
		summarizer: summarizer,
		cache:      cache,
		defaults:   defaults,
		logger:     logger.With("analysis"),
		now:        time.Now,
	}
}

// Defaults returns the configured defaults.
func (s *AnalysisService) Defaults() Defaults {
	return s.defaults
}

// Search lists registry trials for a condition.
func (s *AnalysisService) Search(ctx context.Context, condition string, status trial.Status, pageSize int) (trial.SearchPage, error) {
	if s.registry == nil {
		return trial.SearchPage{}, errors.New(errors.CodeConfigInvalid, "no trial registry configured")
	}
	return s.registry.Search(ctx, condition, status, pageSize)
}

// Trial fetches one registry record.
func (s *AnalysisService) Trial(ctx context.Context, nctID string) (trial.Summary, error) {
	if s.registry == nil {
		return trial.Summary{}, errors.New(errors.CodeConfigInvalid, "no trial registry configured")
	}
	return s.registry.Get(ctx, nctID)
}

// AnalyzeTrial fetches nctID and analyzes it.
func (s *AnalysisService) AnalyzeTrial(ctx context.Context, nctID string, cfg trial.AnalysisConfig) (*TrialAnalysis, error) {
	summary, err := s.Trial(ctx, nctID)
	if err != nil {
		return nil, err
	}
	return s.Analyze(ctx, summary, cfg)
}

// BuildParameters snapshots the analysis inputs for summary: registry
// defaults, the estimated current enrollment and the normalized cost tier.
func (s *AnalysisService) BuildParameters(summary trial.Summary) trial.Parameters {
	now := s.now()
	actual, estimated := trial.EstimateActual(summary, now)
	start, _ := trial.ParseDate(summary.StartDate)
	return trial.Parameters{
		EnrollmentTarget: summary.Target(),
		EnrollmentActual: actual,
		Phase:            cost.NormalizePhase(registryPhase(summary.Phase)),
		SitesCount:       summary.Sites(),
		MonthsElapsed:    s.defaults.MonthsElapsed,
		StartDate:        start,
		Estimated:        estimated,
	}
}

// Analyze runs power, budget and enrollment forecasting for summary
// concurrently. A trend that cannot be fitted is reported as a warning with
// a nil forecast rather than failing the analysis.
func (s *AnalysisService) Analyze(ctx context.Context, summary trial.Summary, cfg trial.AnalysisConfig) (*TrialAnalysis, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	startTime := time.Now()
	params := s.BuildParameters(summary)
	return s.run(ctx, summary, params, cfg, startTime)
}

// AnalyzeParameters runs the engines over an explicit snapshot, skipping the
// registry policies.
func (s *AnalysisService) AnalyzeParameters(ctx context.Context, summary trial.Summary, params trial.Parameters, cfg trial.AnalysisConfig) (*TrialAnalysis, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return s.run(ctx, summary, params, cfg, time.Now())
}

func (s *AnalysisService) run(ctx context.Context, summary trial.Summary, params trial.Parameters, cfg trial.AnalysisConfig, startTime time.Time) (*TrialAnalysis, error) {
	a := &TrialAnalysis{
		ID:          core.NewAnalysisID(),
		Trial:       summary,
		Params:      params,
		Config:      cfg,
		GeneratedAt: s.now(),
	}

	var warning string
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		a.Power = power.AnalyzeTrial(params.EnrollmentTarget, params.EnrollmentActual, cfg.EffectSize, cfg.Alpha)
		maxN := max(minCurveN, params.EnrollmentTarget+curveHeadroom)
		a.PowerCurve = power.Curve(maxN, cfg.EffectSize, cfg.Alpha, curveStep)
		return nil
	})

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		a.Budget = cost.CalculateBudget(cost.InputFromParameters(params, cfg.CostScenario))
		a.BudgetSummary = cost.Summarize(a.Budget)
		return nil
	})

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		final := params.EnrollmentActual
		syn := enrollment.NewSyntheticConfig(params.StartDate, params.EnrollmentTarget,
			trial.SimulatedDays(summary, s.now()), trial.Seed(summary.NCTID))
		syn.FinalEnrollment = &final
		a.History = enrollment.GenerateSynthetic(syn)

		fc, err := enrollment.ForecastCompletion(a.History, params.EnrollmentTarget, cfg.ConfidenceLevel)
		if err != nil {
			if isFitError(err) {
				warning = fmt.Sprintf("enrollment forecast unavailable: %v", err)
				return nil
			}
			return errors.AnalysisFailed("enrollment forecast", err)
		}
		if planned, ok := trial.ParseDate(summary.CompletionDate); ok {
			fc = fc.AgainstPlan(planned)
		}
		a.Forecast = &fc

		series, err := enrollment.BuildSeries(a.History, params.EnrollmentTarget, s.defaults.HorizonDays, cfg.ConfidenceLevel)
		if err != nil {
			return errors.AnalysisFailed("enrollment series", err)
		}
		a.Series = series
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if warning != "" {
		s.logger.Warn("%s: %s", summary.NCTID, warning)
		a.Warnings = append(a.Warnings, warning)
	}

	a.RuntimeMs = time.Since(startTime).Milliseconds()
	s.logger.Info("analyzed %s (%s): power %.2f at n=%d, budget %s, runtime %dms",
		summary.NCTID, a.ID, a.Power.PowerAtActual, params.EnrollmentActual, a.BudgetSummary.Status, a.RuntimeMs)
	return a, nil
}

// Summarize returns the narrative for a, served from the cache while the
// same trial stays selected.
func (s *AnalysisService) Summarize(ctx context.Context, a *TrialAnalysis) narrative.Summary {
	key := a.Trial.NCTID
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			s.logger.Debug("summary cache hit for %s", key)
			return cached
		}
	}

	summary := s.summarizer.Summarize(ctx, a.NarrativeInput())
	if s.cache != nil {
		s.cache.Put(key, summary)
	}
	return summary
}

// ValidateConfig checks the analysis knobs a caller supplied.
func ValidateConfig(cfg trial.AnalysisConfig) error {
	if !(cfg.EffectSize > 0) {
		return errors.InvalidInput(fmt.Sprintf("effect size must be positive, got %v", cfg.EffectSize))
	}
	if !(cfg.Alpha > 0 && cfg.Alpha < 1) {
		return errors.InvalidInput(fmt.Sprintf("alpha must be in (0, 1), got %v", cfg.Alpha))
	}
	if !(cfg.ConfidenceLevel > 0 && cfg.ConfidenceLevel < 1) {
		return errors.InvalidInput(fmt.Sprintf("confidence level must be in (0, 1), got %v", cfg.ConfidenceLevel))
	}
	return nil
}

// registryPhase rewrites the registry's comma-joined phase list
// ("PHASE2,PHASE3") into the slash form so combined trials cost at the
// higher phase.
func registryPhase(phase string) string {
	return strings.ReplaceAll(phase, ",", "/")
}

func isFitError(err error) bool {
	return stderrors.Is(err, core.ErrInsufficientHistory) || stderrors.Is(err, core.ErrSingularDesign)
}
