package main

import (
	"bytes"
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
	"github.com/cwbudde/greywolf/internal/opt"
	"github.com/cwbudde/greywolf/internal/report"
	"github.com/cwbudde/greywolf/internal/runner"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
)

var (
	compareCfg        = config.Default()
	compareConfigPath string
	compareVariants   []string
	compareReportPath string
	comparePlotPath   string
	compareBaseline   bool
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run several GWO variants on the same problem",
	Long: `Runs the selected variants concurrently with identical settings and
writes their progress, in variant order, to the terminal and a report file,
followed by a summary table. --baseline adds the mayfly optimizer.`,
	RunE: runCompare,
}

func init() {
	addConfigFlags(compareCmd, &compareCfg, &compareConfigPath, false)
	variants := make([]string, 0, len(gwo.Variants()))
	for _, v := range gwo.Variants() {
		variants = append(variants, string(v))
	}
	compareCmd.Flags().StringSliceVar(&compareVariants, "variants", variants, "Variants to run")
	compareCmd.Flags().StringVar(&compareReportPath, "report", "gwo_report.txt", "Report file (empty to disable)")
	compareCmd.Flags().StringVar(&comparePlotPath, "plot", "", "Write a combined convergence plot")
	compareCmd.Flags().BoolVar(&compareBaseline, "baseline", false, "Include the mayfly optimizer as a baseline")
	rootCmd.AddCommand(compareCmd)
}

// variantRun is the captured output and outcome of one variant.
type variantRun struct {
	cfg     config.RunConfig
	log     bytes.Buffer
	outcome *runner.Outcome
	err     error
}

func runCompare(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd, compareCfg, compareConfigPath)
	if err != nil {
		return err
	}

	if len(compareVariants) == 0 {
		return errors.New("no variants selected")
	}

	runs := make([]*variantRun, len(compareVariants))
	engines := make([]*gwo.Engine, len(compareVariants))
	for i, name := range compareVariants {
		v, err := gwo.ParseVariant(name)
		if err != nil {
			return err
		}
		cfg := base
		cfg.Variant = string(v)
		engines[i], err = newEngine(cfg)
		if err != nil {
			return fmt.Errorf("%s: %w", v, err)
		}
		runs[i] = &variantRun{cfg: cfg}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pool.New().WithMaxGoroutines(len(runs) + 1)
	for i, run := range runs {
		i, run := i, run
		p.Go(func() {
			rep := report.NewLogReporter(run.cfg.ReportEvery, run.cfg.Iters, &run.log)
			rep.Section(variantTitle(gwo.Variant(run.cfg.Variant)))
			run.outcome, run.err = runner.Run(ctx, engines[i], runner.Options{
				Reporter: rep,
				Stall:    stallConfig(run.cfg),
				Label:    run.cfg.Variant,
			})
		})
	}

	var baseline *report.Row
	if compareBaseline {
		p.Go(func() {
			baseline = runBaseline(base)
		})
	}
	p.Wait()

	writers := []io.Writer{cmd.OutOrStdout()}
	if compareReportPath != "" {
		f, err := os.Create(compareReportPath)
		if err != nil {
			return fmt.Errorf("failed to create report: %w", err)
		}
		defer f.Close()
		writers = append(writers, f)
	}
	w := io.MultiWriter(writers...)

	if err := report.WriteHeader(w, base.PopSize, base.Iters, base.Dim); err != nil {
		return err
	}

	rows := make([]report.Row, 0, len(runs)+1)
	series := make([]report.Series, 0, len(runs))
	var failed []error
	for _, run := range runs {
		if _, err := run.log.WriteTo(w); err != nil {
			return err
		}
		if run.outcome.Stopped == runner.StoppedFailed {
			failed = append(failed, fmt.Errorf("%s: %w", run.cfg.Variant, run.err))
			continue
		}
		rows = append(rows, report.RowFor(run.outcome.Result, run.outcome.Elapsed))
		series = append(series, report.Series{Name: run.cfg.Variant, Values: run.outcome.History})
	}
	if baseline != nil {
		rows = append(rows, *baseline)
	}

	if err := report.WriteSummary(w, rows); err != nil {
		return err
	}
	if compareReportPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "\nReport saved to %s\n", compareReportPath)
	}

	if comparePlotPath != "" {
		title := fmt.Sprintf("GWO variants on %s (D=%d)", base.Objective, base.Dim)
		if err := report.SaveConvergence(comparePlotPath, title, series...); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", comparePlotPath)
	}

	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	return errors.Join(failed...)
}

// runBaseline runs mayfly on the same problem. Failures are logged and
// leave the baseline out of the summary.
func runBaseline(cfg config.RunConfig) *report.Row {
	fn, err := cfg.ObjectiveFunc()
	if err != nil {
		slog.Warn("Baseline skipped", "error", err)
		return nil
	}
	lower, upper := cfg.Bounds()
	m := opt.NewMayfly(opt.Settings{MaxIters: cfg.Iters, PopSize: cfg.PopSize, Seed: cfg.Seed})

	start := time.Now()
	_, score, err := m.Run(fn.Eval, lower, upper, cfg.Dim)
	if err != nil {
		slog.Warn("Baseline failed", "optimizer", m.Name(), "error", err)
		return nil
	}
	return &report.Row{Name: m.Name(), Score: score, Iterations: cfg.Iters, Elapsed: time.Since(start)}
}
