package report

import (
	"time"

	"github.com/cwbudde/greywolf/internal/gwo"
	"github.com/cwbudde/greywolf/internal/store"
)

// TraceReporter appends one store.TraceEntry per iteration. It owns the
// writer and closes it in Finish.
type TraceReporter struct {
	w   *store.TraceWriter
	err error
}

func NewTraceReporter(w *store.TraceWriter) *TraceReporter {
	return &TraceReporter{w: w}
}

func (r *TraceReporter) Iteration(t int, best float64) {
	if r.err != nil {
		return
	}
	r.err = r.w.Write(store.TraceEntry{Iteration: t, BestScore: best, Timestamp: time.Now()})
}

// Finish returns the first write error, if any, after closing the trace.
func (r *TraceReporter) Finish(_ *gwo.Result) error {
	closeErr := r.w.Close()
	if r.err != nil {
		return r.err
	}
	return closeErr
}
