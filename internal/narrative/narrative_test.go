package narrative

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"trialmetrics/domain/trial"
	"trialmetrics/internal"
	"trialmetrics/internal/cost"
	"trialmetrics/internal/enrollment"
	"trialmetrics/internal/power"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func fixtureInput() Input {
	params := trial.Parameters{
		EnrollmentTarget: 200,
		EnrollmentActual: 120,
		Phase:            trial.Phase3,
		SitesCount:       15,
		MonthsElapsed:    8,
	}
	return Input{
		Trial: trial.Summary{
			NCTID:          "NCT01234567",
			Title:          "Study of Drug X in Type 2 Diabetes",
			Phase:          "PHASE3",
			CompletionDate: "2026-12",
		},
		Params: params,
		Power:  power.AnalyzeTrial(200, 120, 0.5, 0.05),
		Budget: cost.CalculateBudget(cost.InputFromParameters(params, trial.ScenarioMedian)),
	}
}

func TestClassifyRisk(t *testing.T) {
	assert.Equal(t, RiskHigh, ClassifyRisk(power.Result{IsUnderpowered: true, PowerAtActual: 0.34}))
	assert.Equal(t, RiskModerate, ClassifyRisk(power.Result{IsUnderpowered: true, PowerAtActual: 0.5}))
	assert.Equal(t, RiskOnTrack, ClassifyRisk(power.Result{PowerAtActual: 0.94}))
}

func TestTemplateSummaryModerate(t *testing.T) {
	text := TemplateSummary(fixtureInput())

	assert.True(t, strings.HasPrefix(text, "**MODERATE RISK**: Study of Drug X in Type 2 Diabetes, a PHASE3 trial"))
	assert.Contains(t, text, "enrolled 60% of its target (120 of 200 patients)")
	assert.Contains(t, text, "projected completion date of 2026-12")
	assert.Contains(t, text, "Statistical power is at 78%")
	assert.Contains(t, text, "weekly enrollment reviews")
}

func TestTemplateSummaryHighRiskAndShortRunway(t *testing.T) {
	in := fixtureInput()
	in.Power = power.Result{IsUnderpowered: true, PowerAtActual: 0.31, EnrollmentShortfall: 1280}
	short := 3.25
	in.Budget.RunwayMonths = &short
	in.Budget.SpentToDate = 8_175_000
	in.Budget.TotalBudget = 20_550_000

	text := TemplateSummary(in)
	assert.True(t, strings.HasPrefix(text, "**HIGH RISK**:"))
	assert.Contains(t, text, "just 31%")
	assert.Contains(t, text, "With only 3.2 months of runway remaining and $8,175,000 of $20,550,000 consumed")
	assert.Contains(t, text, "roughly 1,280 additional patients")
}

func TestTemplateSummaryUsesForecastAndDefaults(t *testing.T) {
	in := fixtureInput()
	in.Power = power.Result{PowerAtActual: 0.93}
	in.Budget.RunwayMonths = nil
	in.Trial.Title = ""
	in.Trial.Phase = ""
	done := time.Date(2027, time.March, 4, 0, 0, 0, 0, time.UTC)
	in.Forecast = &enrollment.Forecast{CompletionDate: &done}

	text := TemplateSummary(in)
	assert.True(t, strings.HasPrefix(text, "**ON TRACK**: This trial, a N/A trial"))
	assert.Contains(t, text, "completion date of March 2027")
	assert.Contains(t, text, "unlimited months of runway")
	assert.Contains(t, text, "interim analysis")
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(fixtureInput())
	assert.Contains(t, prompt, "TRIAL: Study of Drug X in Type 2 Diabetes")
	assert.Contains(t, prompt, "- Enrollment: 120 of 200 (60%)")
	assert.Contains(t, prompt, "RISK CLASSIFICATION: MODERATE RISK")
	assert.Contains(t, prompt, "start with \"**MODERATE RISK**:\"")
}

func TestSummarizeUsesGenerator(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.AnythingOfType("string")).Return("  **MODERATE RISK**: generated briefing.  ", nil).Once()

	s := NewSummarizer(gen, internal.NewLogger(internal.LogLevelError))
	got := s.Summarize(context.Background(), fixtureInput())

	assert.Equal(t, SourceAI, got.Source)
	assert.Equal(t, "**MODERATE RISK**: generated briefing.", got.Text)
	assert.Contains(t, got.HTML, "<strong>MODERATE RISK</strong>")
	assert.Equal(t, "NCT01234567", got.NCTID)
	assert.Equal(t, RiskModerate, got.Risk)
	gen.AssertExpectations(t)
}

func TestSummarizeFallsBackToTemplate(t *testing.T) {
	in := fixtureInput()
	logger := internal.NewLogger(internal.LogLevelError)

	failing := new(mockGenerator)
	failing.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("openai http 429")).Once()
	got := NewSummarizer(failing, logger).Summarize(context.Background(), in)
	assert.Equal(t, SourceTemplate, got.Source)
	assert.Equal(t, TemplateSummary(in), got.Text)

	empty := new(mockGenerator)
	empty.On("Generate", mock.Anything, mock.Anything).Return("   ", nil).Once()
	got = NewSummarizer(empty, logger).Summarize(context.Background(), in)
	assert.Equal(t, SourceTemplate, got.Source)

	got = NewSummarizer(nil, logger).Summarize(context.Background(), in)
	assert.Equal(t, SourceTemplate, got.Source)
	assert.NotEmpty(t, got.HTML)
}

func TestRenderHTML(t *testing.T) {
	out := RenderHTML("**HIGH RISK**: act now")
	assert.Contains(t, out, "<p><strong>HIGH RISK</strong>: act now</p>")
}

func TestCacheKeyedEntry(t *testing.T) {
	c := NewCache(time.Hour)
	_, ok := c.Get("NCT1")
	assert.False(t, ok)

	c.Put("NCT1", Summary{Text: "one"})
	got, ok := c.Get("NCT1")
	require.True(t, ok)
	assert.Equal(t, "one", got.Text)

	_, ok = c.Get("NCT2")
	assert.False(t, ok, "a different trial misses")

	c.Put("NCT2", Summary{Text: "two"})
	_, ok = c.Get("NCT1")
	assert.False(t, ok, "selecting another trial replaces the entry")
	key, ok := c.Key()
	assert.True(t, ok)
	assert.Equal(t, "NCT2", key)

	c.Invalidate()
	_, ok = c.Get("NCT2")
	assert.False(t, ok)
}

func TestCacheExpires(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewCache(time.Minute)
	c.now = func() time.Time { return now }

	c.Put("NCT1", Summary{Text: "one"})
	now = now.Add(59 * time.Second)
	_, ok := c.Get("NCT1")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = c.Get("NCT1")
	assert.False(t, ok)
	_, held := c.Key()
	assert.False(t, held)
}
