// Package excel exports a trial analysis as an xlsx workbook.
package excel

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"trialmetrics/app"
	"trialmetrics/domain/trial"
	"trialmetrics/internal/cost"
	"trialmetrics/internal/enrollment"
	"trialmetrics/internal/narrative"
	"trialmetrics/internal/power"
)

// Sheet names in the exported workbook.
const (
	SheetSummary    = "Summary"
	SheetPowerCurve = "Power Curve"
	SheetEnrollment = "Enrollment"
	SheetBudget     = "Budget"
)

const dateLayout = "2006-01-02"

// Report is everything written to the workbook. Forecast and Narrative are
// optional.
type Report struct {
	Trial       trial.Summary
	Params      trial.Parameters
	Config      trial.AnalysisConfig
	Power       power.Result
	Curve       []power.CurvePoint
	Budget      cost.BudgetResult
	Forecast    *enrollment.Forecast
	Series      []enrollment.SeriesPoint
	Narrative   *narrative.Summary
	GeneratedAt time.Time
}

// FromAnalysis collects a into a Report. summary may be nil.
func FromAnalysis(a *app.TrialAnalysis, summary *narrative.Summary) Report {
	return Report{
		Trial:       a.Trial,
		Params:      a.Params,
		Config:      a.Config,
		Power:       a.Power,
		Curve:       a.PowerCurve,
		Budget:      a.Budget,
		Forecast:    a.Forecast,
		Series:      a.Series,
		Narrative:   summary,
		GeneratedAt: a.GeneratedAt,
	}
}

// WriteReport saves the workbook to path.
func WriteReport(path string, r Report) error {
	f, err := build(r)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// Write streams the workbook to w.
func Write(w io.Writer, r Report) error {
	f, err := build(r)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func build(r Report) (*excelize.File, error) {
	f := excelize.NewFile()

	// The default Sheet1 becomes the summary sheet.
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{SheetPowerCurve, SheetEnrollment, SheetBudget} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	writers := []struct {
		sheet string
		rows  [][]interface{}
	}{
		{SheetSummary, summaryRows(r)},
		{SheetPowerCurve, curveRows(r.Curve)},
		{SheetEnrollment, seriesRows(r.Series)},
		{SheetBudget, budgetRows(r.Budget)},
	}
	for _, w := range writers {
		if err := writeRows(f, w.sheet, w.rows); err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %s: %w", w.sheet, err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func summaryRows(r Report) [][]interface{} {
	rows := [][]interface{}{
		{"Field", "Value"},
		{"NCT ID", r.Trial.NCTID},
		{"Title", r.Trial.Title},
		{"Phase", r.Trial.Phase},
		{"Cost tier", string(r.Params.Phase)},
		{"Status", string(r.Trial.Status)},
		{"Sponsor", r.Trial.Sponsor},
		{"Enrollment target", r.Params.EnrollmentTarget},
		{"Enrollment actual", r.Params.EnrollmentActual},
		{"Enrollment estimated", r.Params.Estimated},
		{"Sites", r.Params.SitesCount},
		{"Start date", r.Params.StartDate.Format(dateLayout)},
		{"Effect size", r.Config.EffectSize},
		{"Alpha", r.Config.Alpha},
		{"Cost scenario", string(r.Config.CostScenario)},
		{"Power at target", r.Power.PowerAtTarget},
		{"Power at actual", r.Power.PowerAtActual},
		{"Underpowered", r.Power.IsUnderpowered},
		{"Recommended total", r.Power.RecommendedTotal},
		{"Enrollment shortfall", r.Power.EnrollmentShortfall},
	}
	if fc := r.Forecast; fc != nil {
		rows = append(rows,
			[]interface{}{"Daily rate", fc.DailyRate},
			[]interface{}{"Projected completion", dateOrNA(fc.CompletionDate)},
			[]interface{}{"Completion CI lower", dateOrNA(fc.CompletionCILower)},
			[]interface{}{"Completion CI upper", dateOrNA(fc.CompletionCIUpper)},
		)
	}
	if n := r.Narrative; n != nil {
		rows = append(rows,
			[]interface{}{"Risk", string(n.Risk)},
			[]interface{}{"Summary", n.Text},
		)
	}
	if !r.GeneratedAt.IsZero() {
		rows = append(rows, []interface{}{"Generated at", r.GeneratedAt.UTC().Format(time.RFC3339)})
	}
	return rows
}

func curveRows(curve []power.CurvePoint) [][]interface{} {
	rows := [][]interface{}{{"n per group", "Power"}}
	for _, p := range curve {
		rows = append(rows, []interface{}{p.NPerGroup, p.Power})
	}
	return rows
}

func seriesRows(series []enrollment.SeriesPoint) [][]interface{} {
	rows := [][]interface{}{{"Date", "Day", "Enrolled", "Kind", "CI lower", "CI upper"}}
	for _, p := range series {
		row := []interface{}{p.Date.Format(dateLayout), p.DayOffset, p.Enrolled, p.Kind, nil, nil}
		if p.CILower != nil {
			row[4] = *p.CILower
		}
		if p.CIUpper != nil {
			row[5] = *p.CIUpper
		}
		rows = append(rows, row)
	}
	return rows
}

func budgetRows(b cost.BudgetResult) [][]interface{} {
	s := cost.Summarize(b)
	runway := interface{}("N/A")
	if b.RunwayMonths != nil {
		runway = *b.RunwayMonths
	}
	return [][]interface{}{
		{"Metric", "Value", "Display"},
		{"Total budget", b.TotalBudget, s.TotalBudget},
		{"Patient budget", b.PatientBudget, cost.FormatCurrency(b.PatientBudget)},
		{"Site budget", b.SiteBudget, cost.FormatCurrency(b.SiteBudget)},
		{"Overhead budget", b.OverheadBudget, cost.FormatCurrency(b.OverheadBudget)},
		{"Spent to date", b.SpentToDate, s.Spent},
		{"Remaining", b.Remaining, s.Remaining},
		{"Monthly burn", b.MonthlyBurnRate, s.BurnRate},
		{"Runway (months)", runway, s.Runway},
		{"Utilization", b.BudgetUtilization, s.Utilization},
		{"Enrollment progress", b.EnrollmentProgress, s.Progress},
		{"Efficiency", b.EfficiencyRatio, s.Efficiency},
		{"Status", s.Status, s.Status},
	}
}

func dateOrNA(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.Format(dateLayout)
}
