// Package runner drives an engine to completion under a context, with
// optional early stopping and progress reporting.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cwbudde/greywolf/internal/gwo"
	"github.com/cwbudde/greywolf/internal/report"
)

// Reasons a run ended before its iteration budget.
const (
	StoppedCancelled = "cancelled"
	StoppedStalled   = "stalled"
	StoppedFailed    = "failed"
)

type Options struct {
	// Reporter receives every completed iteration and the final result.
	Reporter report.Reporter

	// Stall enables early stopping.
	Stall StallConfig

	// Label identifies the run in log records.
	Label string
}

// Outcome is the engine's result plus how the run ended.
type Outcome struct {
	*gwo.Result

	// Stopped is empty when the run used its whole budget.
	Stopped string

	Elapsed time.Duration
}

// Run steps e until its budget is spent, ctx is cancelled, the run stalls,
// or the objective fails. The outcome is always returned and reflects the
// last completed iteration. The error is ctx.Err() on cancellation, the
// evaluation error on failure, and any reporter error otherwise.
func Run(ctx context.Context, e *gwo.Engine, opts Options) (*Outcome, error) {
	cfg := e.Config()
	log := slog.With("run", opts.Label, "variant", cfg.Variant)
	log.Info("Run started",
		"dim", cfg.Dim,
		"pop_size", cfg.PopSize,
		"max_iter", cfg.MaxIter,
		"seed", cfg.Seed,
	)

	start := time.Now()
	stall := newStallTracker(opts.Stall)
	var stopped string
	var runErr error

	for !e.Done() {
		if err := ctx.Err(); err != nil {
			stopped, runErr = StoppedCancelled, err
			break
		}

		before := e.Iteration()
		if err := e.Step(); err != nil {
			stopped, runErr = StoppedFailed, err
			break
		}
		if e.Iteration() == before {
			continue
		}

		best := e.Best().Score
		if opts.Reporter != nil {
			opts.Reporter.Iteration(before, best)
		}
		if stall.Update(best) {
			log.Info("Run stalled, stopping early",
				"iteration", e.Iteration(),
				"stale_count", stall.StaleCount(),
				"best", best,
			)
			stopped = StoppedStalled
			break
		}
	}

	out := &Outcome{
		Result:  e.Result(),
		Stopped: stopped,
		Elapsed: time.Since(start),
	}

	if opts.Reporter != nil {
		if err := opts.Reporter.Finish(out.Result); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}

	switch stopped {
	case StoppedFailed:
		log.Error("Run failed", "iteration", out.Iterations, "error", runErr)
	case StoppedCancelled:
		log.Info("Run cancelled", "iteration", out.Iterations, "best", out.Score)
	default:
		log.Info("Run completed",
			"iterations", out.Iterations,
			"best", out.Score,
			"elapsed", out.Elapsed,
		)
	}
	return out, runErr
}
