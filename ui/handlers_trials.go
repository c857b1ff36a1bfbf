package ui

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"trialmetrics/adapters/excel"
	"trialmetrics/app"
	"trialmetrics/domain/trial"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleSearchTrials serves GET /api/trials?condition=&status=&page_size=
func (s *Server) handleSearchTrials(c *gin.Context) {
	pageSize, err := queryInt(c, "page_size", 0)
	if err != nil {
		s.writeError(c, err)
		return
	}
	status := trial.Status(strings.ToUpper(strings.TrimSpace(c.Query("status"))))

	page, err := s.service.Search(c.Request.Context(), c.Query("condition"), status, pageSize)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if page.Trials == nil {
		page.Trials = []trial.Summary{}
	}
	c.JSON(http.StatusOK, page)
}

// analyze runs the analysis named by the request path and query.
func (s *Server) analyze(c *gin.Context) (*app.TrialAnalysis, bool) {
	cfg, err := s.analysisConfig(c)
	if err != nil {
		s.writeError(c, err)
		return nil, false
	}
	a, err := s.service.AnalyzeTrial(c.Request.Context(), c.Param("nct_id"), cfg)
	if err != nil {
		s.writeError(c, err)
		return nil, false
	}
	return a, true
}

// handleTrialAnalysis serves GET /api/trials/:nct_id/analysis
func (s *Server) handleTrialAnalysis(c *gin.Context) {
	a, ok := s.analyze(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, a)
}

// handleTrialSummary serves GET /api/trials/:nct_id/summary
func (s *Server) handleTrialSummary(c *gin.Context) {
	a, ok := s.analyze(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.service.Summarize(c.Request.Context(), a))
}

// handleTrialExport serves GET /api/trials/:nct_id/export as an xlsx download.
func (s *Server) handleTrialExport(c *gin.Context) {
	a, ok := s.analyze(c)
	if !ok {
		return
	}
	summary := s.service.Summarize(c.Request.Context(), a)
	report := excel.FromAnalysis(a, &summary)

	var buf bytes.Buffer
	if err := excel.Write(&buf, report); err != nil {
		s.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, a.Trial.NCTID))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// handleTrialPage serves the HTML dashboard for one trial.
func (s *Server) handleTrialPage(c *gin.Context) {
	a, ok := s.analyze(c)
	if !ok {
		return
	}
	summary := s.service.Summarize(c.Request.Context(), a)
	s.renderTemplate(c, "trial.html", newTrialPage(a, summary))
}
