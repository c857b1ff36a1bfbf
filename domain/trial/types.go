package trial

import (
	"strings"
	"time"
)

// Phase is a normalized trial phase used as the cost tier key.
type Phase string

const (
	Phase1  Phase = "PHASE1"
	Phase2  Phase = "PHASE2"
	Phase3  Phase = "PHASE3"
	Phase4  Phase = "PHASE4"
	PhaseNA Phase = "NA"
)

// Scenario selects the per-patient cost percentile.
type Scenario string

const (
	ScenarioLow    Scenario = "low"
	ScenarioMedian Scenario = "median"
	ScenarioHigh   Scenario = "high"
)

// ParseScenario accepts low/median/high in any case; anything else is median.
func ParseScenario(s string) Scenario {
	switch Scenario(strings.ToLower(strings.TrimSpace(s))) {
	case ScenarioLow:
		return ScenarioLow
	case ScenarioHigh:
		return ScenarioHigh
	default:
		return ScenarioMedian
	}
}

// Status is the registry's overall recruitment status.
type Status string

const (
	StatusNotYetRecruiting    Status = "NOT_YET_RECRUITING"
	StatusRecruiting          Status = "RECRUITING"
	StatusActiveNotRecruiting Status = "ACTIVE_NOT_RECRUITING"
	StatusCompleted           Status = "COMPLETED"
	StatusTerminated          Status = "TERMINATED"
	StatusWithdrawn           Status = "WITHDRAWN"
	StatusSuspended           Status = "SUSPENDED"
)

// EnrollmentType tells whether the registry enrollment count is final.
type EnrollmentType string

const (
	EnrollmentActual    EnrollmentType = "ACTUAL"
	EnrollmentEstimated EnrollmentType = "ESTIMATED"
)

// Summary is the flattened registry record the analysis core consumes.
type Summary struct {
	NCTID            string         `json:"nct_id"`
	Title            string         `json:"title"`
	Phase            string         `json:"phase"`
	Status           Status         `json:"status"`
	EnrollmentTarget int            `json:"enrollment_target"`
	EnrollmentType   EnrollmentType `json:"enrollment_type"`
	StartDate        string         `json:"start_date"`
	CompletionDate   string         `json:"completion_date"`
	Sponsor          string         `json:"sponsor"`
	Conditions       []string       `json:"conditions"`
	Interventions    []string       `json:"interventions"`
	SitesCount       int            `json:"sites_count"`
}

// SearchPage is one page of registry search results.
type SearchPage struct {
	Trials        []Summary `json:"trials"`
	TotalCount    int       `json:"total_count"`
	NextPageToken string    `json:"next_page_token,omitempty"`
}

// Parameters is the immutable input snapshot for one analysis run.
type Parameters struct {
	EnrollmentTarget int       `json:"enrollment_target"`
	EnrollmentActual int       `json:"enrollment_actual"`
	Phase            Phase     `json:"phase"`
	SitesCount       int       `json:"sites_count"`
	MonthsElapsed    float64   `json:"months_elapsed"`
	StartDate        time.Time `json:"start_date"`
	// Estimated is true when EnrollmentActual came from the progress
	// heuristic rather than the registry.
	Estimated bool `json:"enrollment_estimated"`
}

// AnalysisConfig holds the user-controlled analysis knobs.
//
// Preconditions, not checked: EffectSize > 0, Alpha and ConfidenceLevel in (0, 1).
type AnalysisConfig struct {
	EffectSize      float64  `json:"effect_size"`
	Alpha           float64  `json:"alpha"`
	CostScenario    Scenario `json:"cost_scenario"`
	ConfidenceLevel float64  `json:"confidence_level"`
}

// DefaultAnalysisConfig is a medium effect at the conventional 5% level.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		EffectSize:      0.5,
		Alpha:           0.05,
		CostScenario:    ScenarioMedian,
		ConfidenceLevel: 0.95,
	}
}
