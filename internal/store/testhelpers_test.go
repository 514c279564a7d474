package store

import (
	"time"

	"github.com/cwbudde/greywolf/internal/config"
)

// createTestRun builds a valid record with a three-iteration history.
func createTestRun(runID string) *RunRecord {
	cfg := config.Default()
	cfg.Dim = 3
	cfg.Iters = 3
	return &RunRecord{
		ID:           runID,
		Config:       cfg,
		BestPosition: []float64{0.01, -0.02, 0.005},
		BestScore:    0.000525,
		History:      []float64{4.2, 0.9, 0.000525},
		Iterations:   3,
		Elapsed:      0.012,
		Timestamp:    time.Now(),
	}
}
