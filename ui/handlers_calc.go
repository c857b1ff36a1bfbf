package ui

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trialmetrics/domain/trial"
	"trialmetrics/internal/cost"
	"trialmetrics/internal/errors"
	"trialmetrics/internal/power"
)

const (
	defaultCurveMax  = 200
	defaultCurveStep = 5
	maxCurvePoints   = 2000
)

// powerParams reads effect_size and alpha, defaulted and range checked.
func (s *Server) powerParams(c *gin.Context) (effectSize, alpha float64, err error) {
	cfg, err := s.analysisConfig(c)
	if err != nil {
		return 0, 0, err
	}
	if cfg.EffectSize <= 0 {
		return 0, 0, errors.InvalidInput("effect_size must be positive")
	}
	if cfg.Alpha <= 0 || cfg.Alpha >= 1 {
		return 0, 0, errors.InvalidInput("alpha must be in (0, 1)")
	}
	return cfg.EffectSize, cfg.Alpha, nil
}

// handlePower serves GET /api/power. With enrollment_target it returns the
// trial-level report, otherwise the power at n_per_group.
func (s *Server) handlePower(c *gin.Context) {
	effectSize, alpha, err := s.powerParams(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	if c.Query("enrollment_target") != "" {
		target, err := queryInt(c, "enrollment_target", 0)
		if err != nil {
			s.writeError(c, err)
			return
		}
		actual, err := queryInt(c, "enrollment_actual", target)
		if err != nil {
			s.writeError(c, err)
			return
		}
		if target < 0 || actual < 0 {
			s.writeError(c, errors.InvalidInput("enrollment counts must be non-negative"))
			return
		}
		c.JSON(http.StatusOK, power.AnalyzeTrial(target, actual, effectSize, alpha))
		return
	}

	n, err := queryInt(c, "n_per_group", -1)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if n < 0 {
		s.writeError(c, errors.InvalidInput("n_per_group or enrollment_target is required"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"n_per_group": n,
		"effect_size": effectSize,
		"alpha":       alpha,
		"power":       power.Power(n, effectSize, alpha),
	})
}

// handlePowerCurve serves GET /api/power/curve?max_n=&step=
func (s *Server) handlePowerCurve(c *gin.Context) {
	effectSize, alpha, err := s.powerParams(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	maxN, err := queryInt(c, "max_n", defaultCurveMax)
	if err != nil {
		s.writeError(c, err)
		return
	}
	step, err := queryInt(c, "step", defaultCurveStep)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if step > 0 && maxN/step > maxCurvePoints {
		s.writeError(c, errors.InvalidInput("curve too large, raise step or lower max_n"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"effect_size": effectSize,
		"alpha":       alpha,
		"points":      power.Curve(maxN, effectSize, alpha, step),
	})
}

// handleSampleSize serves GET /api/power/sample-size?power=
func (s *Server) handleSampleSize(c *gin.Context) {
	effectSize, alpha, err := s.powerParams(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	target, err := queryFloat(c, "power", power.AdequatePower)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if target <= 0 || target >= 1 {
		s.writeError(c, errors.InvalidInput("power must be in (0, 1)"))
		return
	}
	n := power.RequiredSampleSize(target, effectSize, alpha, power.DefaultMaxN)
	c.JSON(http.StatusOK, gin.H{
		"target_power":   target,
		"effect_size":    effectSize,
		"alpha":          alpha,
		"n_per_group":    n,
		"total":          2 * n,
		"achieved_power": power.Power(n, effectSize, alpha),
	})
}

// budgetRequest is the POST /api/budget body. Phase is free text and is
// normalized to a cost tier.
type budgetRequest struct {
	Phase            string   `json:"phase"`
	EnrollmentTarget int      `json:"enrollment_target" binding:"min=0"`
	EnrollmentActual int      `json:"enrollment_actual" binding:"min=0"`
	SitesCount       int      `json:"sites_count" binding:"min=0"`
	MonthsElapsed    *float64 `json:"months_elapsed" binding:"omitempty,min=0"`
	Scenario         string   `json:"scenario"`
}

// handleBudget serves POST /api/budget
func (s *Server) handleBudget(c *gin.Context) {
	var req budgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, errors.InvalidInput("invalid budget request: "+err.Error()))
		return
	}

	months := s.service.Defaults().MonthsElapsed
	if req.MonthsElapsed != nil {
		months = *req.MonthsElapsed
	}
	scenario := s.service.Defaults().Analysis.CostScenario
	if req.Scenario != "" {
		scenario = trial.ParseScenario(req.Scenario)
	}

	result := cost.CalculateBudget(cost.BudgetInput{
		Phase:            cost.NormalizePhase(req.Phase),
		EnrollmentTarget: req.EnrollmentTarget,
		EnrollmentActual: req.EnrollmentActual,
		SitesCount:       req.SitesCount,
		MonthsElapsed:    months,
		Scenario:         scenario,
	})
	c.JSON(http.StatusOK, gin.H{
		"phase":   cost.NormalizePhase(req.Phase),
		"budget":  result,
		"summary": cost.Summarize(result),
	})
}
