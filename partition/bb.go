// Package partition - Branch-and-Bound (exact search with an admissible spread bound).
//
// The engine assigns items in descending weight order to groups, depth-first,
// and keeps the best complete assignment found (the incumbent). It is seeded
// with the heuristic result, so it only ever improves on it.
//
// Bound: at a node where R weight is still unassigned and avg = total/k,
//
//	finalMax >= max(curMax, avg)
//	finalMin <= min(avg, min over open groups (sum+R), min over full groups (sum))
//	LB = finalMax - finalMin
//
// which is admissible (never above the best completion). Prune when
// LB >= best - eps. A group is full once it holds MaxSize items.
//
// Feasibility: if the outstanding minimum (sum of MinSize - count over
// groups) exceeds the unassigned count, the node is cut. When it equals the
// unassigned count, only groups below MinSize may take the next item, and a
// complete assignment is recorded only with no outstanding minimum.
//
// Symmetry: two groups with identical (sum, count) are interchangeable, so
// only the first of them is branched on. This also covers "never open a
// second empty group".
//
// Branching order: lightest group first, index tiebreak. Deterministic.
//
// Soft deadline: checked every 4096 node events; on expiry the search stops
// and the incumbent is returned with TimedOut set.
//
// Complexity:
//   - Worst case O(kⁿ); the bound and symmetry cuts keep n <= 25 practical.
//   - Per node: O(k) bound + O(k²) symmetry scan.
//   - Memory: O(n + k).

package partition

import (
	"context"
	"math"
	"time"
)

type bbEngine struct {
	ctx context.Context

	n, k    int
	eps     float64
	minSize int
	maxSize int

	useDeadline bool
	deadline    time.Time
	steps       int
	timedOut    bool

	// w[p] is the weight of the p-th item in search order; idx[p] its input index.
	w      []float64
	idx    []int
	suffix []float64 // suffix[p] = sum of w[p:]
	avg    float64

	sums   []float64
	counts []int
	assign []int // by input index

	best       float64
	bestAssign []int // by input index
}

func newBBEngine(ctx context.Context, weights []float64, k int, opts Options, seed []int) *bbEngine {
	var (
		n     = len(weights)
		e     = &bbEngine{ctx: ctx, n: n, k: k, eps: opts.Eps, minSize: opts.MinSize, maxSize: opts.MaxSize}
		p     int
		total float64
	)
	e.idx = order(weights)
	e.w = make([]float64, n)
	for p = 0; p < n; p++ {
		e.w[p] = weights[e.idx[p]]
	}
	e.suffix = make([]float64, n+1)
	for p = n - 1; p >= 0; p-- {
		e.suffix[p] = e.suffix[p+1] + e.w[p]
	}
	total = e.suffix[0]
	e.avg = total / float64(k)
	if e.maxSize == 0 {
		e.maxSize = n
	}

	e.sums = make([]float64, k)
	e.counts = make([]int, k)
	e.assign = make([]int, n)
	e.bestAssign = append([]int(nil), seed...)
	e.best = spreadOf(sumsOf(weights, seed, k))

	return e
}

func sumsOf(weights []float64, assign []int, k int) []float64 {
	out := make([]float64, k)
	for i, g := range assign {
		out[g] += weights[i]
	}

	return out
}

// deadlineCheck performs a rare deadline test (every 4096 node events).
func (e *bbEngine) deadlineCheck() bool {
	e.steps++
	if (e.steps & 4095) != 0 {
		return false
	}
	if e.ctx.Err() != nil {
		return true
	}

	return e.useDeadline && time.Now().After(e.deadline)
}

func (e *bbEngine) run() {
	if e.best <= e.eps {
		return
	}
	e.dfs(0)
}

// lowerBound returns the admissible spread bound at search position p.
func (e *bbEngine) lowerBound(p int) float64 {
	var (
		curMax = math.Inf(-1)
		minFin = e.avg
		rest   = e.suffix[p]
		g      int
		cand   float64
	)
	for g = 0; g < e.k; g++ {
		if e.sums[g] > curMax {
			curMax = e.sums[g]
		}
		cand = e.sums[g]
		if e.counts[g] < e.maxSize {
			cand += rest
		}
		if cand < minFin {
			minFin = cand
		}
	}
	if curMax < e.avg {
		curMax = e.avg
	}
	if lb := curMax - minFin; lb > 0 {
		return lb
	}

	return 0
}

// deficit is the number of items still owed to groups below MinSize.
func (e *bbEngine) deficit() int {
	d := 0
	for g := 0; g < e.k; g++ {
		if e.counts[g] < e.minSize {
			d += e.minSize - e.counts[g]
		}
	}

	return d
}

// dfs explores position p. It returns true when the search must stop.
func (e *bbEngine) dfs(p int) bool {
	if e.deadlineCheck() {
		e.timedOut = true

		return true
	}
	if p == e.n {
		if e.deficit() > 0 {
			return false
		}
		if s := spreadOf(e.sums); s < e.best-e.eps {
			e.best = s
			copy(e.bestAssign, e.assign)
		}

		return e.best <= e.eps
	}
	owed := e.deficit()
	if owed > e.n-p {
		return false
	}
	if e.lowerBound(p) >= e.best-e.eps {
		return false
	}

	var (
		seq  = e.branchOrder()
		it   = e.idx[p]
		w    = e.w[p]
		g, j int
		dup  bool
	)
	for _, g = range seq {
		if e.counts[g] >= e.maxSize {
			continue
		}
		if owed == e.n-p && e.counts[g] >= e.minSize {
			continue
		}
		dup = false
		for _, j = range seq {
			if j == g {
				break
			}
			if e.counts[j] == e.counts[g] && e.sums[j] == e.sums[g] {
				dup = true
				break
			}
		}
		if dup {
			continue
		}

		e.sums[g] += w
		e.counts[g]++
		e.assign[it] = g
		stop := e.dfs(p + 1)
		e.sums[g] -= w
		e.counts[g]--
		if stop {
			return true
		}
	}

	return false
}

// branchOrder returns groups by ascending sum (index tiebreak).
func (e *bbEngine) branchOrder() []int {
	var (
		out  = make([]int, e.k)
		g, j int
	)
	for g = 0; g < e.k; g++ {
		out[g] = g
	}
	// insertion sort: k is small and stability gives the index tiebreak
	for g = 1; g < e.k; g++ {
		for j = g; j > 0 && e.sums[out[j]] < e.sums[out[j-1]]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}

	return out
}
