package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cwbudde/greywolf/internal/gwo"
	"github.com/cwbudde/greywolf/internal/report"
	"github.com/cwbudde/greywolf/internal/runner"
	"github.com/cwbudde/greywolf/internal/store"
)

// jobReporter mirrors engine progress into the job table and the SSE
// broadcaster, one event per iteration.
type jobReporter struct {
	jm    *JobManager
	jobID string
}

func (r *jobReporter) Iteration(t int, best float64) {
	r.jm.UpdateJob(r.jobID, func(j *Job) {
		j.Iterations = t + 1
		j.History = append(j.History, best)
		if isFinite(best) {
			j.BestScore = best
		}
	})
	if job, ok := r.jm.GetJob(r.jobID); ok {
		r.jm.broadcaster.Broadcast(eventFor(job))
	}
}

func (r *jobReporter) Finish(*gwo.Result) error {
	return nil
}

// runJob executes an optimization job in the background. Completed and
// stalled runs are saved to runStore when it is not nil; traceDir, when set,
// receives a JSONL trace of the run.
func runJob(ctx context.Context, jm *JobManager, runStore store.Store, traceDir, jobID string) error {
	defer jm.release(jobID)

	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if err := jm.UpdateJob(jobID, func(j *Job) { j.State = StateRunning }); err != nil {
		return err
	}

	slog.Info("Starting job", "job_id", jobID, "variant", job.Config.Variant, "objective", job.Config.Objective)

	fn, err := job.Config.ObjectiveFunc()
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}
	engineCfg, err := job.Config.EngineConfig()
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}
	engine, err := gwo.New(engineCfg, gwo.Func(fn.Eval))
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	reporters := report.Multi{&jobReporter{jm: jm, jobID: jobID}}
	if traceDir != "" {
		tw, err := store.NewTraceWriter(traceDir, jobID)
		if err != nil {
			slog.Warn("Trace disabled", "job_id", jobID, "error", err)
		} else {
			reporters = append(reporters, report.NewTraceReporter(tw))
		}
	}

	out, err := runner.Run(ctx, engine, runner.Options{
		Reporter: reporters,
		Stall: runner.StallConfig{
			Patience:  job.Config.StallPatience,
			Threshold: job.Config.StallThreshold,
		},
		Label: jobID,
	})

	switch {
	case out.Stopped == runner.StoppedCancelled:
		markJobCancelled(jm, jobID, out)
		return ctx.Err()
	case out.Stopped == runner.StoppedFailed:
		markJobFailed(jm, jobID, err)
		return err
	case err != nil:
		// Reporter trouble does not invalidate the result.
		slog.Warn("Reporter failed", "job_id", jobID, "error", err)
	}

	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.BestPosition = out.Position
		if isFinite(out.Score) {
			j.BestScore = out.Score
		}
		j.History = out.History
		j.Iterations = out.Iterations
		j.Stopped = out.Stopped
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	if runStore != nil {
		rec := store.NewRunRecord(jobID, job.Config, out.Position, out.Score, out.History, out.Iterations)
		rec.Stopped = out.Stopped
		rec.Elapsed = out.Elapsed.Seconds()
		if err := runStore.SaveRun(context.WithoutCancel(ctx), rec); err != nil {
			slog.Error("Failed to save run", "job_id", jobID, "error", err)
		}
	}

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", out.Elapsed,
		"iterations", out.Iterations,
		"best_score", out.Score,
	)

	publishFinal(jm, jobID)
	return nil
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	if err == nil {
		err = errors.New("unknown failure")
	}
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)

	publishFinal(jm, jobID)
}

// markJobCancelled marks a job as cancelled, keeping the partial result.
func markJobCancelled(jm *JobManager, jobID string, out *runner.Outcome) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.Stopped = runner.StoppedCancelled
		if out.Iterations > 0 {
			j.BestPosition = out.Position
			j.History = out.History
			j.Iterations = out.Iterations
		}
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID, "iterations", out.Iterations)

	publishFinal(jm, jobID)
}

// publishFinal broadcasts the terminal snapshot and releases the job's
// subscribers. Streams opened later read the terminal state from the job.
func publishFinal(jm *JobManager, jobID string) {
	if job, ok := jm.GetJob(jobID); ok {
		jm.broadcaster.Broadcast(eventFor(job))
	}
	jm.broadcaster.CloseJob(jobID)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
