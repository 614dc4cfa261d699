// Package partition - dispatcher.
//
// Partition validates its input, picks an algorithm and normalizes the
// result into canonical form (ascending members, groups ordered by their
// smallest member, empty groups last).
//
// Design principles:
//   - Deterministic: no randomness; every tie goes to the lowest index.
//   - The exact search is always seeded by the heuristic, so a deadline
//     never yields a result worse than the heuristic alone.
//   - Errors are errkind-classified sentinels from types.go.

package partition

import (
	"context"
	"sort"
	"time"
)

// Partition splits weights into k subsets minimizing the spread of subset sums.
//
// Contracts:
//   - k >= 1 and k <= len(weights) unless weights is empty.
//   - Empty weights yield k empty groups and no error.
//   - Weights must be finite and non-negative.
//
// Ties are broken by position in weights: the index is the item identifier.
// Callers holding named items pass them sorted by name (see item.ByID).
//
// Errors: ErrInvalidK, ErrBadWeight, ErrInvalidBounds (InvalidConfiguration);
// ErrBoundsInfeasible (Infeasible).
func Partition(ctx context.Context, weights []float64, k int, opts Options) (Result, error) {
	opts = opts.normalized()
	if err := validateAll(weights, k, opts); err != nil {
		return Result{}, err
	}
	n := len(weights)
	if n == 0 {
		return canonical(weights, make([][]int, k), MethodExact, true), nil
	}

	seed := heuristic(weights, k, opts)
	var useExact bool
	switch opts.Algorithm {
	case Exact:
		useExact = true
	case Heuristic:
		useExact = false
	default:
		useExact = opts.ExactItemLimit > 0 && n <= opts.ExactItemLimit
	}
	if !useExact {
		return seed, nil
	}

	deadline, hasDeadline := searchDeadline(ctx, opts.TimeLimit)
	e := newBBEngine(ctx, weights, k, opts, seed.Assignment(n))
	if hasDeadline {
		e.useDeadline = true
		e.deadline = deadline
	}
	e.run()

	out := canonical(weights, groupsFromAssignment(e.bestAssign, k), MethodExact, !e.timedOut)
	out.TimedOut = e.timedOut

	return out, nil
}

// heuristic runs the size-appropriate heuristic.
func heuristic(weights []float64, k int, opts Options) Result {
	if opts.bounded() {
		assign := greedySwap(weights, k, opts)

		return canonical(weights, groupsFromAssignment(assign, k), MethodGreedySwap, false)
	}

	return canonical(weights, karmarkarKarp(weights, k), MethodKarmarkarKarp, false)
}

// searchDeadline merges the soft budget with the context deadline.
func searchDeadline(ctx context.Context, limit time.Duration) (time.Time, bool) {
	var (
		d      time.Time
		has    bool
		ctxD   time.Time
		hasCtx bool
	)
	if limit > 0 {
		d, has = time.Now().Add(limit), true
	}
	if ctxD, hasCtx = ctx.Deadline(); hasCtx && (!has || ctxD.Before(d)) {
		d, has = ctxD, true
	}

	return d, has
}

func groupsFromAssignment(assign []int, k int) [][]int {
	groups := make([][]int, k)
	for i, g := range assign {
		groups[g] = append(groups[g], i)
	}

	return groups
}

// canonical sorts members, orders groups and fills sums and spread.
func canonical(weights []float64, groups [][]int, method string, exact bool) Result {
	var (
		g, i int
		s    float64
	)
	for g = range groups {
		sort.Ints(groups[g])
	}
	sort.SliceStable(groups, func(a, b int) bool {
		if len(groups[a]) == 0 || len(groups[b]) == 0 {
			return len(groups[a]) > len(groups[b])
		}

		return groups[a][0] < groups[b][0]
	})
	out := Result{Groups: groups, Sums: make([]float64, len(groups)), Method: method, Exact: exact}
	for g = range groups {
		s = 0
		for _, i = range groups[g] {
			s += weights[i]
		}
		out.Sums[g] = s
	}
	out.Spread = spreadOf(out.Sums)

	return out
}

func spreadOf(sums []float64) float64 {
	if len(sums) == 0 {
		return 0
	}
	lo, hi := sums[0], sums[0]
	for _, s := range sums[1:] {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}

	return hi - lo
}

// order returns indices sorted by weight descending, lowest index first on ties.
func order(weights []float64) []int {
	idx := make([]int, len(weights))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return weights[idx[a]] > weights[idx[b]]
	})

	return idx
}
