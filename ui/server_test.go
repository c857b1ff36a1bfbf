package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"trialmetrics/app"
	"trialmetrics/domain/core"
	"trialmetrics/domain/trial"
	"trialmetrics/internal"
	"trialmetrics/internal/config"
	"trialmetrics/internal/cost"
	"trialmetrics/internal/errors"
	"trialmetrics/internal/narrative"
	"trialmetrics/ui/middleware"
)

type stubRegistry struct{}

var stubTrial = trial.Summary{
	NCTID:            "NCT01234567",
	Title:            "Study of Drug X",
	Phase:            "PHASE3",
	Status:           trial.StatusRecruiting,
	EnrollmentTarget: 200,
	EnrollmentType:   trial.EnrollmentEstimated,
	StartDate:        "2024-03",
	CompletionDate:   "2027-06-30",
	Sponsor:          "Acme Pharma",
	SitesCount:       12,
}

func (stubRegistry) Search(ctx context.Context, condition string, status trial.Status, pageSize int) (trial.SearchPage, error) {
	if strings.TrimSpace(condition) == "" {
		return trial.SearchPage{}, errors.InvalidInput("condition is required")
	}
	return trial.SearchPage{Trials: []trial.Summary{stubTrial}, TotalCount: 1}, nil
}

func (stubRegistry) Get(ctx context.Context, nctID string) (trial.Summary, error) {
	if nctID != stubTrial.NCTID {
		return trial.Summary{}, errors.WithCode(errors.CodeNotFound, core.NewNotFoundError("trial", nctID))
	}
	return stubTrial, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := internal.NewLogger(internal.LogLevelError)
	defaults := app.DefaultsFromConfig(config.AnalysisConfig{
		EffectSize:      0.5,
		Alpha:           0.05,
		CostScenario:    "median",
		ConfidenceLevel: 0.95,
		ForecastHorizon: 30,
		MonthsElapsed:   6,
	})
	svc := app.NewAnalysisService(stubRegistry{}, narrative.NewSummarizer(nil, logger), narrative.NewCache(time.Hour), defaults, logger)
	s, err := NewServer(svc, logger, gin.TestMode)
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestSearchTrials(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/trials?condition=diabetes&status=recruiting", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["total_count"])

	w = do(t, s, http.MethodGet, "/api/trials", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.CodeInvalidInput, decode(t, w)["code"])

	w = do(t, s, http.MethodGet, "/api/trials?condition=x&page_size=ten", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrialAnalysis(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/trials/NCT01234567/analysis?effect_size=0.4&scenario=high", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.NotEmpty(t, body["analysis_id"])

	cfg := body["config"].(map[string]interface{})
	assert.Equal(t, 0.4, cfg["effect_size"])
	assert.Equal(t, "high", cfg["cost_scenario"])

	params := body["parameters"].(map[string]interface{})
	assert.Equal(t, "PHASE3", params["phase"])
	assert.NotNil(t, body["forecast"])
	assert.NotEmpty(t, body["series"])
	assert.NotContains(t, body, "History")
}

func TestTrialAnalysisErrors(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/trials/NCT09999999/analysis", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodGet, "/api/trials/NCT01234567/analysis?effect_size=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/api/trials/NCT01234567/analysis?alpha=1.5", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrialSummary(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodGet, "/api/trials/NCT01234567/summary", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "NCT01234567", body["nct_id"])
	assert.Equal(t, string(narrative.SourceTemplate), body["source"])
	assert.Contains(t, body["html"], "<strong>")
}

func TestTrialExport(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodGet, "/api/trials/NCT01234567/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "NCT01234567.xlsx")

	f, err := excelize.OpenReader(w.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Budget")
}

func TestTrialPage(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodGet, "/trials/NCT01234567", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	html := w.Body.String()
	assert.Contains(t, html, "Study of Drug X")
	assert.Contains(t, html, "/api/trials/NCT01234567/export")
	assert.Contains(t, html, "</html>")
}

func TestPowerEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/power?n_per_group=50", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 0.6969, decode(t, w)["power"], 1e-3)

	w = do(t, s, http.MethodGet, "/api/power?enrollment_target=200&enrollment_actual=100", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 50, body["n_per_group_actual"])
	assert.EqualValues(t, 128, body["recommended_total"])

	w = do(t, s, http.MethodGet, "/api/power", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/api/power?n_per_group=50&effect_size=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/api/power/curve?max_n=100&step=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["points"], 10)

	w = do(t, s, http.MethodGet, "/api/power/curve?max_n=1000000&step=1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/api/power/sample-size", "")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.EqualValues(t, 64, body["n_per_group"])
	assert.EqualValues(t, 128, body["total"])
}

func TestBudgetEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/budget",
		`{"phase":"Phase 3","enrollment_target":200,"enrollment_actual":85,"sites_count":15,"months_elapsed":8}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "PHASE3", body["phase"])
	budget := body["budget"].(map[string]interface{})
	assert.Equal(t, 20_550_000.0, budget["total_budget"])
	summary := body["summary"].(map[string]interface{})
	assert.Equal(t, cost.StatusOnTrack, summary["status"])

	w = do(t, s, http.MethodPost, "/api/budget", `{"enrollment_target":-5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/api/budget", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errors.InvalidInput("x"), http.StatusBadRequest},
		{errors.New(errors.CodeNotFound, "trial not found"), http.StatusNotFound},
		{errors.ExternalServiceError("registry", fmt.Errorf("down")), http.StatusBadGateway},
		{errors.ConfigInvalid("x"), http.StatusServiceUnavailable},
		{errors.AnalysisFailed("forecast", fmt.Errorf("x")), http.StatusUnprocessableEntity},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}
