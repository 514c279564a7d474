package runner

import (
	"log/slog"
	"math"
)

// StallConfig stops a run early once Alpha has not improved meaningfully
// for Patience consecutive iterations. A zero Patience disables it.
type StallConfig struct {
	Patience int `yaml:"patience" json:"patience,omitempty"`

	// Threshold is the relative improvement that counts as progress, 0.001
	// meaning 0.1%. Zero or less takes the default threshold.
	Threshold float64 `yaml:"threshold" json:"threshold,omitempty"`
}

// DefaultStallConfig waits 25 iterations for a 0.1% improvement.
func DefaultStallConfig() StallConfig {
	return StallConfig{Patience: 25, Threshold: 0.001}
}

// withDefaults fills in the threshold of an enabled config.
func (c StallConfig) withDefaults() StallConfig {
	if c.Enabled() && c.Threshold <= 0 {
		c.Threshold = DefaultStallConfig().Threshold
	}
	return c
}

func (c StallConfig) Enabled() bool {
	return c.Patience > 0
}

// stallTracker follows Alpha's score and reports when it has stalled.
type stallTracker struct {
	cfg             StallConfig
	seen            int
	lastSignificant float64
	staleCount      int
}

func newStallTracker(cfg StallConfig) *stallTracker {
	return &stallTracker{cfg: cfg.withDefaults(), lastSignificant: math.Inf(1)}
}

// Update records the latest best score and returns true once the run has
// stalled.
func (s *stallTracker) Update(best float64) bool {
	if !s.cfg.Enabled() {
		return false
	}

	s.seen++
	if s.seen == 1 {
		s.lastSignificant = best
		return false
	}

	rel := relativeImprovement(s.lastSignificant, best)
	if rel >= s.cfg.Threshold && rel > 0 {
		s.lastSignificant = best
		s.staleCount = 0
		return false
	}

	s.staleCount++
	slog.Debug("No significant improvement",
		"best", best,
		"last_significant", s.lastSignificant,
		"relative_improvement", rel,
		"stale_count", s.staleCount,
		"patience", s.cfg.Patience,
	)
	return s.staleCount >= s.cfg.Patience
}

func (s *stallTracker) StaleCount() int {
	return s.staleCount
}

// relativeImprovement measures the drop from prev to cur relative to |prev|.
// Leaving +Inf or improving on zero counts as unbounded progress.
func relativeImprovement(prev, cur float64) float64 {
	switch {
	case math.IsNaN(cur) || cur >= prev:
		return 0
	case math.IsInf(prev, 1) || prev == 0:
		return math.Inf(1)
	default:
		return (prev - cur) / math.Abs(prev)
	}
}
