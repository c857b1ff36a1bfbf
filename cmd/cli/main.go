package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"trialmetrics/adapters/excel"
	"trialmetrics/app"
	"trialmetrics/domain/trial"
	"trialmetrics/internal/config"
	"trialmetrics/internal/container"
	"trialmetrics/internal/cost"
	"trialmetrics/internal/enrollment"
	"trialmetrics/internal/power"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "trialmetrics",
		Short:         "Clinical trial power, budget and enrollment analytics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newPowerCmd(),
		newSampleSizeCmd(),
		newBudgetCmd(),
		newForecastCmd(),
		newSearchCmd(),
		newAnalyzeCmd(),
		newExportCmd(),
	)
	return rootCmd
}

// analysisFlags are the knobs shared by commands that run power analysis.
type analysisFlags struct {
	effectSize float64
	alpha      float64
}

func (f *analysisFlags) register(cmd *cobra.Command) {
	d := trial.DefaultAnalysisConfig()
	cmd.Flags().Float64Var(&f.effectSize, "effect-size", d.EffectSize, "Standardized effect size (Cohen's d)")
	cmd.Flags().Float64Var(&f.alpha, "alpha", d.Alpha, "Two-sided significance level")
}

func (f *analysisFlags) validate() error {
	if f.effectSize <= 0 {
		return fmt.Errorf("--effect-size must be positive")
	}
	if f.alpha <= 0 || f.alpha >= 1 {
		return fmt.Errorf("--alpha must be in (0, 1)")
	}
	return nil
}

func newPowerCmd() *cobra.Command {
	var af analysisFlags
	var nPerGroup, target, actual int

	cmd := &cobra.Command{
		Use:   "power",
		Short: "Compute power for a group size, or a trial-level power report",
		Long: `Compute two-sample t-test power.

With --target the command prints the trial-level report for the planned and
current enrollment; otherwise it prints the power at --n per group.

Example: trialmetrics power --target 200 --actual 90 --effect-size 0.4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := af.validate(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if target > 0 {
				if actual < 0 {
					actual = target
				}
				r := power.AnalyzeTrial(target, actual, af.effectSize, af.alpha)
				fmt.Fprintf(out, "Power at target (%s/group):  %.1f%%\n", humanize.Comma(int64(r.NPerGroupTarget)), r.PowerAtTarget*100)
				fmt.Fprintf(out, "Power at actual (%s/group):  %.1f%%\n", humanize.Comma(int64(r.NPerGroupActual)), r.PowerAtActual*100)
				fmt.Fprintf(out, "Underpowered:               %t\n", r.IsUnderpowered)
				fmt.Fprintf(out, "Recommended total:          %s\n", humanize.Comma(int64(r.RecommendedTotal)))
				fmt.Fprintf(out, "Enrollment shortfall:       %s\n", humanize.Comma(int64(r.EnrollmentShortfall)))
				return nil
			}
			if nPerGroup < 0 {
				return fmt.Errorf("--n or --target is required")
			}
			fmt.Fprintf(out, "Power with %d per group (d=%.2f, alpha=%.3f): %.4f\n",
				nPerGroup, af.effectSize, af.alpha, power.Power(nPerGroup, af.effectSize, af.alpha))
			return nil
		},
	}

	af.register(cmd)
	cmd.Flags().IntVar(&nPerGroup, "n", -1, "Patients per group")
	cmd.Flags().IntVar(&target, "target", 0, "Planned total enrollment")
	cmd.Flags().IntVar(&actual, "actual", -1, "Current total enrollment (default: target)")
	return cmd
}

func newSampleSizeCmd() *cobra.Command {
	var af analysisFlags
	var targetPower float64
	var maxN int

	cmd := &cobra.Command{
		Use:   "sample-size",
		Short: "Smallest group size reaching a target power",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := af.validate(); err != nil {
				return err
			}
			if targetPower <= 0 || targetPower >= 1 {
				return fmt.Errorf("--power must be in (0, 1)")
			}
			n := power.RequiredSampleSize(targetPower, af.effectSize, af.alpha, maxN)
			achieved := power.Power(n, af.effectSize, af.alpha)
			fmt.Fprintf(cmd.OutOrStdout(), "%s per group (%s total), power %.4f\n",
				humanize.Comma(int64(n)), humanize.Comma(int64(2*n)), achieved)
			if achieved < targetPower {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: search capped at %s per group\n", humanize.Comma(int64(maxN)))
			}
			return nil
		},
	}

	af.register(cmd)
	cmd.Flags().Float64Var(&targetPower, "power", power.AdequatePower, "Target power")
	cmd.Flags().IntVar(&maxN, "max-n", power.DefaultMaxN, "Upper bound for the search")
	return cmd
}

func newBudgetCmd() *cobra.Command {
	var in cost.BudgetInput
	var phase, scenario string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Project a trial budget from per-patient benchmarks",
		Long: `Project total budget, spend to date, burn rate and runway.

Example: trialmetrics budget --phase "Phase 3" --target 200 --actual 85 --sites 15 --months 8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.EnrollmentTarget < 0 || in.EnrollmentActual < 0 || in.SitesCount < 0 || in.MonthsElapsed < 0 {
				return fmt.Errorf("counts and months must be non-negative")
			}
			in.Phase = cost.NormalizePhase(phase)
			in.Scenario = trial.ParseScenario(scenario)
			r := cost.CalculateBudget(in)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), r)
			}
			printBudget(cmd.OutOrStdout(), in.Phase, r)
			return nil
		},
	}

	cmd.Flags().StringVar(&phase, "phase", "", "Registry phase text, e.g. \"Phase 2/Phase 3\"")
	cmd.Flags().IntVar(&in.EnrollmentTarget, "target", trial.DefaultEnrollmentTarget, "Planned total enrollment")
	cmd.Flags().IntVar(&in.EnrollmentActual, "actual", 0, "Current total enrollment")
	cmd.Flags().IntVar(&in.SitesCount, "sites", trial.DefaultSitesCount, "Number of sites")
	cmd.Flags().Float64Var(&in.MonthsElapsed, "months", 6, "Months since first enrollment")
	cmd.Flags().StringVar(&scenario, "scenario", string(trial.ScenarioMedian), "Cost scenario: low, median or high")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func printBudget(out io.Writer, phase trial.Phase, r cost.BudgetResult) {
	s := cost.Summarize(r)
	fmt.Fprintf(out, "Cost tier:    %s\n", phase)
	fmt.Fprintf(out, "Total budget: %s\n", s.TotalBudget)
	fmt.Fprintf(out, "Spent:        %s (%s)\n", s.Spent, s.Utilization)
	fmt.Fprintf(out, "Remaining:    %s\n", s.Remaining)
	fmt.Fprintf(out, "Burn rate:    %s\n", s.BurnRate)
	fmt.Fprintf(out, "Runway:       %s\n", s.Runway)
	fmt.Fprintf(out, "Enrollment:   %s\n", s.Progress)
	fmt.Fprintf(out, "Efficiency:   %s\n", s.Efficiency)
	fmt.Fprintf(out, "Status:       %s\n", s.Status)
}

func newForecastCmd() *cobra.Command {
	var target, days, final int
	var start string
	var seed uint64
	var confidence float64
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast completion from a synthetic enrollment history",
		Long: `Simulate a daily enrollment history and project when it reaches target.

Example: trialmetrics forecast --target 300 --days 240 --final 120 --seed 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if target <= 0 {
				return fmt.Errorf("--target must be positive")
			}
			startDate, ok := trial.ParseDate(start)
			if !ok && start != "" {
				return fmt.Errorf("invalid --start %q, use YYYY-MM-DD or YYYY-MM", start)
			}
			cfg := enrollment.NewSyntheticConfig(startDate, target, days, seed)
			if final >= 0 {
				cfg.FinalEnrollment = &final
			}
			h := enrollment.GenerateSynthetic(cfg)

			fc, err := enrollment.ForecastCompletion(h, target, confidence)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), fc)
			}
			printForecast(cmd.OutOrStdout(), fc)
			return nil
		},
	}

	cmd.Flags().IntVar(&target, "target", 300, "Target enrollment")
	cmd.Flags().IntVar(&days, "days", 180, "Days of history to simulate")
	cmd.Flags().IntVar(&final, "final", -1, "Pin the last cumulative value (default: unpinned)")
	cmd.Flags().StringVar(&start, "start", "", "History start date (default 2024-01-01)")
	cmd.Flags().Uint64Var(&seed, "seed", 42, "Random seed")
	cmd.Flags().Float64Var(&confidence, "confidence", enrollment.DefaultConfidence, "Completion interval level")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func printForecast(out io.Writer, fc enrollment.Forecast) {
	fmt.Fprintf(out, "Enrolled:    %s of %s (day %d)\n",
		humanize.Comma(int64(fc.CurrentEnrolled)), humanize.Comma(int64(fc.TargetEnrollment)), fc.CurrentDay)
	fmt.Fprintf(out, "Daily rate:  %.2f patients/day (R² %.3f)\n", fc.DailyRate, fc.RSquared)
	if fc.CompletionDate == nil {
		fmt.Fprintln(out, "Completion:  not projected (no positive enrollment trend)")
		return
	}
	fmt.Fprintf(out, "Completion:  %s (%d days remaining)\n", fc.CompletionDate.Format("2006-01-02"), *fc.DaysRemaining)
	fmt.Fprintf(out, "%.0f%% CI:     %s to %s\n", fc.ConfidenceLevel*100,
		fc.CompletionCILower.Format("2006-01-02"), fc.CompletionCIUpper.Format("2006-01-02"))
	if fc.IsOnTrack != nil {
		fmt.Fprintf(out, "On track:    %t\n", *fc.IsOnTrack)
	}
}

func newSearchCmd() *cobra.Command {
	var status string
	var pageSize int

	cmd := &cobra.Command{
		Use:   "search [condition]",
		Short: "Search the trial registry by condition",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, c.Config.Registry.Timeout)
			defer cancel()

			page, err := c.Analysis.Search(ctx, strings.Join(args, " "), trial.Status(strings.ToUpper(status)), pageSize)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s trials match, showing %d\n", humanize.Comma(int64(page.TotalCount)), len(page.Trials))
			for _, t := range page.Trials {
				fmt.Fprintf(out, "%s  %-10s %-22s %6s  %s\n", t.NCTID, t.Phase, t.Status, humanize.Comma(int64(t.EnrollmentTarget)), t.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by overall status, e.g. RECRUITING")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Results per page (default from REGISTRY_PAGE_SIZE)")
	return cmd
}

// trialFlags overlay command flags on the configured analysis defaults.
type trialFlags struct {
	effectSize float64
	alpha      float64
	scenario   string
	confidence float64
}

func (f *trialFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.effectSize, "effect-size", 0, "Effect size (default from DEFAULT_EFFECT_SIZE)")
	cmd.Flags().Float64Var(&f.alpha, "alpha", 0, "Significance level (default from DEFAULT_ALPHA)")
	cmd.Flags().StringVar(&f.scenario, "scenario", "", "Cost scenario (default from DEFAULT_COST_SCENARIO)")
	cmd.Flags().Float64Var(&f.confidence, "confidence", 0, "Forecast interval level (default from DEFAULT_CONFIDENCE_LEVEL)")
}

func (f *trialFlags) apply(cfg trial.AnalysisConfig) trial.AnalysisConfig {
	if f.effectSize != 0 {
		cfg.EffectSize = f.effectSize
	}
	if f.alpha != 0 {
		cfg.Alpha = f.alpha
	}
	if f.scenario != "" {
		cfg.CostScenario = trial.ParseScenario(f.scenario)
	}
	if f.confidence != 0 {
		cfg.ConfidenceLevel = f.confidence
	}
	return cfg
}

func newAnalyzeCmd() *cobra.Command {
	var tf trialFlags
	var asJSON, withSummary bool

	cmd := &cobra.Command{
		Use:   "analyze [nct-id]",
		Short: "Run power, budget and enrollment analysis for a registry trial",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, c.Config.Registry.Timeout+c.Config.AI.Timeout)
			defer cancel()

			a, err := c.Analysis.AnalyzeTrial(ctx, args[0], tf.apply(c.Analysis.Defaults().Analysis))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, a)
			}
			printAnalysis(out, a)
			if withSummary {
				s := c.Analysis.Summarize(ctx, a)
				fmt.Fprintf(out, "\n%s\n(source: %s)\n", s.Text, s.Source)
			}
			return nil
		},
	}

	tf.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full analysis as JSON")
	cmd.Flags().BoolVar(&withSummary, "summary", false, "Append the narrative summary")
	return cmd
}

func printAnalysis(out io.Writer, a *app.TrialAnalysis) {
	fmt.Fprintf(out, "%s  %s\n", a.Trial.NCTID, a.Trial.Title)
	estimated := ""
	if a.Params.Estimated {
		estimated = " (estimated)"
	}
	fmt.Fprintf(out, "Phase %s (tier %s), %s sites, %s of %s enrolled%s\n\n",
		a.Trial.Phase, a.Params.Phase, humanize.Comma(int64(a.Params.SitesCount)),
		humanize.Comma(int64(a.Params.EnrollmentActual)), humanize.Comma(int64(a.Params.EnrollmentTarget)), estimated)

	fmt.Fprintf(out, "Power at target %.1f%%, at actual %.1f%%", a.Power.PowerAtTarget*100, a.Power.PowerAtActual*100)
	if a.Power.IsUnderpowered {
		fmt.Fprintf(out, ", underpowered by %s patients", humanize.Comma(int64(a.Power.EnrollmentShortfall)))
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out)

	printBudget(out, a.Params.Phase, a.Budget)
	fmt.Fprintln(out)

	if a.Forecast != nil {
		printForecast(out, *a.Forecast)
	}
	for _, w := range a.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
}

func newExportCmd() *cobra.Command {
	var tf trialFlags
	var outPath string

	cmd := &cobra.Command{
		Use:   "export [nct-id]",
		Short: "Write the trial analysis to an xlsx workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, c.Config.Registry.Timeout+c.Config.AI.Timeout)
			defer cancel()

			a, err := c.Analysis.AnalyzeTrial(ctx, args[0], tf.apply(c.Analysis.Defaults().Analysis))
			if err != nil {
				return err
			}
			summary := c.Analysis.Summarize(ctx, a)

			if outPath == "" {
				outPath = a.Trial.NCTID + ".xlsx"
			}
			if err := excel.WriteReport(outPath, excel.FromAnalysis(a, &summary)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
			return nil
		},
	}

	tf.register(cmd)
	cmd.Flags().StringVar(&outPath, "out", "", "Output path (default <nct-id>.xlsx)")
	return cmd
}

func newContainer() (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return container.New(cfg)
}

func commandContext(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
