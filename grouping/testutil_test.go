// Package grouping_test provides small helpers shared across *_test.go files.
package grouping_test

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvmatch/compat"
	"github.com/katalvlaran/lvmatch/grouping"
	"github.com/katalvlaran/lvmatch/item"
	"github.com/katalvlaran/lvmatch/model"
	"github.com/katalvlaran/lvmatch/solver"
)

const epsScore = 1e-6

// line builds items named a, b, c, ... with one attribute each.
func line(vals ...float64) []item.Item {
	out := make([]item.Item, len(vals))
	for i, v := range vals {
		out[i] = item.New(string(rune('a'+i)), v)
	}

	return out
}

// randomTable returns a symmetric integer pair scorer over n items.
func randomTable(n int, seed int64) grouping.PairScorer {
	var (
		rng = rand.New(rand.NewSource(seed))
		tab = make(map[[2]string]float64, n*n)
	)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := string(rune('a'+i)), string(rune('a'+j))
			v := float64(rng.Intn(11) - 5)
			tab[[2]string{a, b}], tab[[2]string{b, a}] = v, v
		}
	}

	return grouping.PairScoreFunc(func(x, y item.Item) float64 { return tab[[2]string{x.ID(), y.ID()}] })
}

// bruteBest enumerates kⁿ assignments and returns the best pair-score
// total (max when maximize) respecting [lo, hi] sizes and conflicts.
// Only for n <= 8.
func bruteBest(items []item.Item, k, lo, hi int, conf *compat.Graph, pair grouping.PairScorer, maximize bool) float64 {
	var (
		n      = len(items)
		best   = math.Inf(-1)
		assign = make([]int, n)
		total  = 1
	)
	if !maximize {
		best = math.Inf(1)
	}
	for i := 0; i < n; i++ {
		total *= k
	}
next:
	for c := 0; c < total; c++ {
		x := c
		counts := make([]int, k)
		for i := 0; i < n; i++ {
			assign[i] = x % k
			x /= k
			counts[assign[i]]++
		}
		for _, cnt := range counts {
			if cnt < lo || cnt > hi {
				continue next
			}
		}
		if len(conf.Violations(assign)) > 0 {
			continue
		}
		sum := 0.0
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if assign[i] == assign[j] {
					sum += pair.Score(items[i], items[j])
				}
			}
		}
		if (maximize && sum > best) || (!maximize && sum < best) {
			best = sum
		}
	}

	return best
}

// requireValid checks sizes, conflicts and cover of a Result.
func requireValid(t *testing.T, items []item.Item, res grouping.Result, lo, hi int, conf *compat.Graph, loose bool) {
	t.Helper()
	require.NoError(t, res.Grouping.Cover(items, loose))
	for _, g := range res.Grouping.Groups {
		require.GreaterOrEqual(t, g.Size(), lo, g.Name)
		require.LessOrEqual(t, g.Size(), hi, g.Name)
	}
	require.Empty(t, conf.Violations(res.Assignment))
}

// timeoutSolver answers every model with a Timeout carrying an incumbent
// that puts every item in group 0.
type timeoutSolver struct{}

func (timeoutSolver) Name() string { return "stalled" }

func (timeoutSolver) Solve(_ context.Context, m *model.Model, limit time.Duration) (solver.Solution, error) {
	if err := m.Claim(); err != nil {
		return solver.Solution{}, err
	}
	values := make([]float64, m.NumVars())
	for j := range values {
		if p := m.Var(j).Pairing; p.Kind == "item-group" && p.B == 0 {
			values[j] = 1
		}
	}

	return solver.Solution{Status: solver.StatusTimeout, Values: values, Backend: "stalled", Elapsed: limit}, nil
}

func ids(g item.Grouping) []string {
	out := make([]string, 0, len(g.Groups))
	for _, gr := range g.Groups {
		out = append(out, fmt.Sprint(gr.ItemIDs))
	}

	return out
}
