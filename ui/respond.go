package ui

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"trialmetrics/domain/trial"
	"trialmetrics/internal/errors"
)

// statusFor maps an AppError code to an HTTP status.
func statusFor(err error) int {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch errors.GetCode(err) {
	case errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeExternalService:
		return http.StatusBadGateway
	case errors.CodeConfigInvalid:
		return http.StatusServiceUnavailable
	case errors.CodeAnalysisFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": err.Error(),
		"code":  errors.GetCode(err),
	})
}

// queryFloat reads an optional float parameter, returning def when absent.
func queryFloat(c *gin.Context, name string, def float64) (float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.InvalidInput(fmt.Sprintf("%s must be a number, got %q", name, raw))
	}
	return v, nil
}

// queryInt reads an optional integer parameter, returning def when absent.
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.InvalidInput(fmt.Sprintf("%s must be an integer, got %q", name, raw))
	}
	return v, nil
}

// analysisConfig overlays the request's query parameters on the defaults.
func (s *Server) analysisConfig(c *gin.Context) (trial.AnalysisConfig, error) {
	cfg := s.service.Defaults().Analysis
	var err error
	if cfg.EffectSize, err = queryFloat(c, "effect_size", cfg.EffectSize); err != nil {
		return cfg, err
	}
	if cfg.Alpha, err = queryFloat(c, "alpha", cfg.Alpha); err != nil {
		return cfg, err
	}
	if cfg.ConfidenceLevel, err = queryFloat(c, "confidence", cfg.ConfidenceLevel); err != nil {
		return cfg, err
	}
	if raw := c.Query("scenario"); raw != "" {
		cfg.CostScenario = trial.ParseScenario(raw)
	}
	return cfg, nil
}
