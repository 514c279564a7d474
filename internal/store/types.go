package store

import (
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/greywolf/internal/config"
)

// RunRecord is the persisted outcome of one optimisation run.
type RunRecord struct {
	ID string `json:"id"`

	// Config is the configuration the run was started with.
	Config config.RunConfig `json:"config"`

	// BestPosition and BestScore are the final Alpha.
	BestPosition []float64 `json:"bestPosition"`
	BestScore    float64   `json:"bestScore"`

	// History holds Alpha's score after every completed iteration.
	History []float64 `json:"history"`

	// Iterations is the number of completed iterations; it is below
	// Config.Iters when the run was cancelled or stopped on a stall.
	Iterations int `json:"iterations"`

	// Stopped records why the run ended early, empty when it ran to budget.
	Stopped string `json:"stopped,omitempty"`

	// Elapsed is the wall-clock duration in seconds.
	Elapsed float64 `json:"elapsed"`

	Timestamp time.Time `json:"timestamp"`
}

// RunInfo is the listing view of a RunRecord without the vectors.
type RunInfo struct {
	ID         string    `json:"id"`
	Variant    string    `json:"variant"`
	Objective  string    `json:"objective"`
	Dim        int       `json:"dim"`
	BestScore  float64   `json:"bestScore"`
	Iterations int       `json:"iterations"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewRunRecord stamps a record with the current time.
func NewRunRecord(id string, cfg config.RunConfig, position []float64, score float64, history []float64, iterations int) *RunRecord {
	return &RunRecord{
		ID:           id,
		Config:       cfg,
		BestPosition: position,
		BestScore:    score,
		History:      history,
		Iterations:   iterations,
		Timestamp:    time.Now(),
	}
}

// ToInfo drops the vectors.
func (r *RunRecord) ToInfo() RunInfo {
	return RunInfo{
		ID:         r.ID,
		Variant:    r.Config.Variant,
		Objective:  r.Config.Objective,
		Dim:        r.Config.Dim,
		BestScore:  r.BestScore,
		Iterations: r.Iterations,
		Timestamp:  r.Timestamp,
	}
}

// Validate checks the record before it is stored.
func (r *RunRecord) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "ID", Reason: "cannot be empty"}
	}
	if r.Config.Dim <= 0 {
		return &ValidationError{Field: "Config.Dim", Reason: "must be positive"}
	}
	if len(r.BestPosition) != r.Config.Dim {
		return &ValidationError{
			Field:  "BestPosition",
			Reason: fmt.Sprintf("length mismatch: expected %d components", r.Config.Dim),
		}
	}
	if !finite(r.BestScore) {
		return &ValidationError{Field: "BestScore", Reason: "must be finite"}
	}
	for i, v := range r.History {
		if !finite(v) {
			return &ValidationError{Field: "History", Reason: fmt.Sprintf("entry %d must be finite", i)}
		}
	}
	if r.Iterations < 0 {
		return &ValidationError{Field: "Iterations", Reason: "cannot be negative"}
	}
	if len(r.History) != r.Iterations {
		return &ValidationError{
			Field:  "History",
			Reason: fmt.Sprintf("has %d entries for %d iterations", len(r.History), r.Iterations),
		}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ValidationError represents a record validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
