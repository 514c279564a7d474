package gwo

import (
	"fmt"
	"math"
	"sort"
)

// LeaderPolicy selects how a freshly scored pack is merged into the leaders.
type LeaderPolicy string

const (
	// PolicyRank sorts the pack and offers the k-th best candidate to the
	// k-th leader slot only. Result does not depend on visiting order.
	PolicyRank LeaderPolicy = "rank"

	// PolicyCascade visits candidates in order and demotes incumbents down
	// the Alpha -> Beta -> Delta chain on improvement.
	PolicyCascade LeaderPolicy = "cascade"
)

// Wolf is a scored snapshot of one candidate.
type Wolf struct {
	Position []float64 `json:"position"`
	Score    float64   `json:"score"`
}

func (w Wolf) clone() Wolf {
	return Wolf{Position: append([]float64(nil), w.Position...), Score: w.Score}
}

// Leaders holds the three best candidates seen so far.
type Leaders struct {
	Alpha Wolf `json:"alpha"`
	Beta  Wolf `json:"beta"`
	Delta Wolf `json:"delta"`
}

// Clone returns a deep copy.
func (l Leaders) Clone() Leaders {
	return Leaders{Alpha: l.Alpha.clone(), Beta: l.Beta.clone(), Delta: l.Delta.clone()}
}

func (l *Leaders) slots() [3]*Wolf {
	return [3]*Wolf{&l.Alpha, &l.Beta, &l.Delta}
}

// LeaderTracker maintains Alpha <= Beta <= Delta across a run.
//
// Slots start at +Inf with a zero position and are only ever replaced by
// strictly better scores. Snapshot slices are replaced, never written, so a
// Leaders value returned by Update stays valid after later updates.
type LeaderTracker struct {
	policy  LeaderPolicy
	leaders Leaders
}

// NewLeaderTracker returns a tracker for candidates of length dim.
func NewLeaderTracker(dim int, policy LeaderPolicy) *LeaderTracker {
	if policy == "" {
		policy = PolicyRank
	}
	sentinel := func() Wolf {
		return Wolf{Position: make([]float64, dim), Score: math.Inf(1)}
	}
	return &LeaderTracker{
		policy:  policy,
		leaders: Leaders{Alpha: sentinel(), Beta: sentinel(), Delta: sentinel()},
	}
}

// Leaders returns the current triple.
func (lt *LeaderTracker) Leaders() Leaders {
	return lt.leaders
}

// Update merges a scored pack into the leaders and returns the result.
// pop and scores are parallel; a pack smaller than three leaves the
// remaining slots at their sentinel.
func (lt *LeaderTracker) Update(pop [][]float64, scores []float64) Leaders {
	if len(pop) != len(scores) {
		panic(fmt.Sprintf("gwo: %d candidates but %d scores", len(pop), len(scores)))
	}

	switch lt.policy {
	case PolicyCascade:
		lt.cascade(pop, scores)
	default:
		lt.rank(pop, scores)
	}
	return lt.leaders
}

func (lt *LeaderTracker) rank(pop [][]float64, scores []float64) {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scoreLess(scores[order[i]], scores[order[j]])
	})

	// new_k = min(old_k, sorted_k) keeps the triple ordered.
	slots := lt.leaders.slots()
	for k := 0; k < len(slots) && k < len(order); k++ {
		idx := order[k]
		if scores[idx] < slots[k].Score {
			*slots[k] = Wolf{Position: append([]float64(nil), pop[idx]...), Score: scores[idx]}
		}
	}
}

func (lt *LeaderTracker) cascade(pop [][]float64, scores []float64) {
	l := &lt.leaders
	for i, s := range scores {
		switch {
		case s < l.Alpha.Score:
			l.Delta = l.Beta
			l.Beta = l.Alpha
			l.Alpha = Wolf{Position: append([]float64(nil), pop[i]...), Score: s}
		case s < l.Beta.Score:
			l.Delta = l.Beta
			l.Beta = Wolf{Position: append([]float64(nil), pop[i]...), Score: s}
		case s < l.Delta.Score:
			l.Delta = Wolf{Position: append([]float64(nil), pop[i]...), Score: s}
		}
	}
}

// scoreLess orders real scores ascending and NaN last.
func scoreLess(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	return a < b
}
