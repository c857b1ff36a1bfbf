package ui

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"trialmetrics/app"
	"trialmetrics/internal/cost"
	"trialmetrics/internal/narrative"
)

//go:embed templates/*.html
var templateFiles embed.FS

func parseTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"pct": func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) },
		"comma": func(v int) string {
			return humanize.Comma(int64(v))
		},
		"money": cost.FormatCurrency,
	}
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// trialPage is the view model for templates/trial.html.
type trialPage struct {
	Analysis      *app.TrialAnalysis
	Summary       narrative.Summary
	SummaryHTML   template.HTML
	Completion    string
	PlannedStatus string
}

func newTrialPage(a *app.TrialAnalysis, s narrative.Summary) trialPage {
	p := trialPage{
		Analysis: a,
		Summary:  s,
		// Rendered by gomarkdown from our own template or model text.
		SummaryHTML: template.HTML(s.HTML),
		Completion:  "Not projected",
	}
	if fc := a.Forecast; fc != nil {
		if fc.CompletionDate != nil {
			p.Completion = fc.CompletionDate.Format("January 2006")
		}
		if fc.IsOnTrack != nil {
			p.PlannedStatus = "behind plan"
			if *fc.IsOnTrack {
				p.PlannedStatus = "on plan"
			}
		}
	}
	return p
}

// renderTemplate executes a template with the given data
func (s *Server) renderTemplate(c *gin.Context, templateName string, data interface{}) {
	// Render to a buffer first so a template error can still produce a 500.
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		s.logger.Error("template %s: %v", templateName, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Template rendering failed", "details": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
