// Package report turns engine progress into human and machine readable output.
package report

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/cwbudde/greywolf/internal/gwo"
)

// Reporter receives Alpha's score after every completed iteration and the
// final result once the run ends.
type Reporter interface {
	Iteration(t int, best float64)
	Finish(res *gwo.Result) error
}

// Multi fans every call out to each reporter in order.
type Multi []Reporter

func (m Multi) Iteration(t int, best float64) {
	for _, r := range m {
		r.Iteration(t, best)
	}
}

func (m Multi) Finish(res *gwo.Result) error {
	var errs []error
	for _, r := range m {
		if err := r.Finish(res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogReporter prints periodic progress lines to one or more writers,
// typically the terminal and a report file.
type LogReporter struct {
	w       io.Writer
	every   int
	maxIter int
}

// NewLogReporter prints every `every` iterations and on the last of maxIter.
// A non-positive every prints only the last iteration.
func NewLogReporter(every, maxIter int, writers ...io.Writer) *LogReporter {
	return &LogReporter{
		w:       io.MultiWriter(writers...),
		every:   every,
		maxIter: maxIter,
	}
}

// Section starts a block for one optimizer run.
func (r *LogReporter) Section(title string) {
	fmt.Fprintf(r.w, "\n--- Running: %s ---\n", title)
}

func (r *LogReporter) Iteration(t int, best float64) {
	if (r.every > 0 && t%r.every == 0) || t == r.maxIter-1 {
		fmt.Fprintf(r.w, "Iteration %d: Best Fitness = %.6f\n", t, best)
	}
}

func (r *LogReporter) Finish(res *gwo.Result) error {
	_, err := fmt.Fprintf(r.w, "Finished %s after %d iterations: Best Fitness = %.6f\n",
		res.Variant, res.Iterations, res.Score)
	return err
}

// WriteHeader writes the banner that opens a comparison report.
func WriteHeader(w io.Writer, popSize, maxIter, dim int) error {
	rule := strings.Repeat("=", 35)
	_, err := fmt.Fprintf(w, "GREY WOLF OPTIMIZER RUN REPORT\n%s\nWolves (N): %d\nIterations (T): %d\nDimensions (D): %d\n%s\n",
		rule, popSize, maxIter, dim, rule)
	return err
}

// Row is one line of a comparison summary.
type Row struct {
	Name       string
	Score      float64
	Iterations int
	Elapsed    time.Duration
}

// RowFor summarises an engine result.
func RowFor(res *gwo.Result, elapsed time.Duration) Row {
	return Row{Name: string(res.Variant), Score: res.Score, Iterations: res.Iterations, Elapsed: elapsed}
}

// WriteSummary writes one line per row, best score first.
func WriteSummary(w io.Writer, rows []Row) error {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b Row) int {
		return cmp.Compare(a.Score, b.Score)
	})

	if _, err := fmt.Fprintf(w, "\n%-16s %14s %10s %12s\n", "OPTIMIZER", "BEST", "ITERS", "ELAPSED"); err != nil {
		return err
	}
	for _, r := range sorted {
		if _, err := fmt.Fprintf(w, "%-16s %14.6e %10d %12s\n", r.Name, r.Score, r.Iterations, r.Elapsed.Round(time.Microsecond)); err != nil {
			return err
		}
	}
	return nil
}
