package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwbudde/greywolf/internal/config"
	"github.com/cwbudde/greywolf/internal/gwo"
	"github.com/cwbudde/greywolf/internal/report"
	"github.com/cwbudde/greywolf/internal/runner"
	"github.com/cwbudde/greywolf/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	runCfg        = config.Default()
	runConfigPath string
	runReportPath string
	runPlotPath   string
	runNoSave     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one optimisation",
	Long: `Runs a single GWO variant on a benchmark objective, prints periodic
progress and stores the final result. Ctrl-C stops after the current
iteration and keeps the partial result.`,
	RunE: runOptimization,
}

func init() {
	addConfigFlags(runCmd, &runCfg, &runConfigPath, true)
	runCmd.Flags().StringVar(&runReportPath, "report", "", "Also write progress lines to this file")
	runCmd.Flags().StringVar(&runPlotPath, "plot", "", "Write a convergence plot (png, svg, pdf)")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "Do not store the run")
	rootCmd.AddCommand(runCmd)
}

var variantTitles = map[gwo.Variant]string{
	gwo.Continuous: "Standard GWO",
	gwo.Binary:     "Binary GWO (BGWO)",
	gwo.Chaotic:    "Chaotic GWO (CGWO)",
	gwo.Hybrid:     "Hybrid GWO-PSO",
}

func variantTitle(v gwo.Variant) string {
	if title, ok := variantTitles[v]; ok {
		return title
	}
	return string(v)
}

// newEngine validates cfg and builds an engine over its objective.
func newEngine(cfg config.RunConfig) (*gwo.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	fn, err := cfg.ObjectiveFunc()
	if err != nil {
		return nil, err
	}
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}
	return gwo.New(engineCfg, gwo.Func(fn.Eval))
}

func stallConfig(cfg config.RunConfig) runner.StallConfig {
	return runner.StallConfig{Patience: cfg.StallPatience, Threshold: cfg.StallThreshold}
}

func runOptimization(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, runCfg, runConfigPath)
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	writers := []io.Writer{out}
	if runReportPath != "" {
		f, err := os.Create(runReportPath)
		if err != nil {
			return fmt.Errorf("failed to create report: %w", err)
		}
		defer f.Close()
		writers = append(writers, f)
	}

	logRep := report.NewLogReporter(cfg.ReportEvery, cfg.Iters, writers...)
	logRep.Section(variantTitle(gwo.Variant(cfg.Variant)))
	reporters := report.Multi{logRep}

	runID := uuid.New().String()
	var runStore store.Store
	if !runNoSave {
		runStore, err = openStore(ctx)
		if err != nil {
			return err
		}
		defer store.CloseIfSupported(runStore)

		if _, ok := runStore.(*store.FSStore); ok {
			tw, err := store.NewTraceWriter(dataDir, runID)
			if err != nil {
				return err
			}
			reporters = append(reporters, report.NewTraceReporter(tw))
		}
	}

	res, err := runner.Run(ctx, engine, runner.Options{
		Reporter: reporters,
		Stall:    stallConfig(cfg),
		Label:    runID,
	})
	switch {
	case res.Stopped == runner.StoppedFailed:
		return err
	case err != nil && !errors.Is(err, context.Canceled):
		slog.Warn("Reporting failed", "error", err)
	}

	saved := false
	if runStore != nil {
		saved, err = saveOutcome(context.WithoutCancel(ctx), runStore, runID, cfg, res)
		if err != nil {
			return err
		}
	}

	if runPlotPath != "" && len(res.History) > 0 {
		title := fmt.Sprintf("%s on %s", variantTitle(res.Variant), cfg.Objective)
		if err := report.SaveConvergence(runPlotPath, title, report.Series{Name: string(res.Variant), Values: res.History}); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", runPlotPath)
	}

	if hasResult(res) {
		fmt.Fprintf(out, "Best position: %v\n", res.Position)
		fmt.Fprintf(out, "Best score: %.6g (%d iterations, %s)\n", res.Score, res.Iterations, res.Elapsed.Round(time.Microsecond))
	}
	if res.Stopped != "" {
		fmt.Fprintf(out, "Stopped early: %s\n", res.Stopped)
	}
	if saved {
		fmt.Fprintf(out, "Run ID: %s\n", runID)
	}
	return nil
}

// hasResult is false for a run cancelled before the population was scored.
func hasResult(res *runner.Outcome) bool {
	return res.Iterations > 0 || res.Stopped != runner.StoppedCancelled
}

// saveOutcome stores a finished run and reports whether it did. Runs without
// a result are skipped and their trace directory removed.
func saveOutcome(ctx context.Context, runStore store.Store, runID string, cfg config.RunConfig, res *runner.Outcome) (bool, error) {
	if !hasResult(res) {
		slog.Info("Nothing to save, run cancelled before the first iteration", "run_id", runID)
		if fs, ok := runStore.(*store.FSStore); ok {
			if err := fs.DeleteRun(ctx, runID); err != nil && !errors.Is(err, store.ErrNotFound) {
				slog.Warn("Failed to remove empty run directory", "run_id", runID, "error", err)
			}
		}
		return false, nil
	}

	rec := store.NewRunRecord(runID, cfg, res.Position, res.Score, res.History, res.Iterations)
	rec.Stopped = res.Stopped
	rec.Elapsed = res.Elapsed.Seconds()
	if err := runStore.SaveRun(ctx, rec); err != nil {
		return false, fmt.Errorf("failed to save run: %w", err)
	}
	return true, nil
}
