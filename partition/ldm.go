// Package partition - k-way largest differencing (Karmarkar-Karp).
//
// Every item starts as a k-tuple of subsets: one holding the item, k-1 empty.
// Each step pops the two tuples with the largest internal difference
// (max - min subset sum) and merges them by pairing the heaviest subset of
// one with the lightest of the other. The last remaining tuple is the
// partition.
//
// Determinism: heap ties are broken by the lowest item index held by the
// tuple, and subsets inside a tuple are ordered by (sum desc, lowest index asc).
//
// Complexity:
//   - O(n log n) heap operations, O(k log k) per merge.
//   - Memory: O(n·k) subset headers; member lists are concatenated, not copied per step.

package partition

import (
	"container/heap"
	"math"
	"sort"
)

type ldmSubset struct {
	sum     float64
	members []int
	low     int // lowest member index, math.MaxInt when empty
}

type ldmTuple struct {
	subs []ldmSubset // sorted by sum desc
	low  int
}

func (t *ldmTuple) diff() float64 { return t.subs[0].sum - t.subs[len(t.subs)-1].sum }

type ldmHeap []*ldmTuple

func (h ldmHeap) Len() int { return len(h) }
func (h ldmHeap) Less(a, b int) bool {
	da, db := h[a].diff(), h[b].diff()
	if da != db {
		return da > db
	}

	return h[a].low < h[b].low
}
func (h ldmHeap) Swap(a, b int) { h[a], h[b] = h[b], h[a] }
func (h *ldmHeap) Push(x any)   { *h = append(*h, x.(*ldmTuple)) }
func (h *ldmHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]

	return x
}

func sortSubsets(subs []ldmSubset) {
	sort.SliceStable(subs, func(a, b int) bool {
		if subs[a].sum != subs[b].sum {
			return subs[a].sum > subs[b].sum
		}

		return subs[a].low < subs[b].low
	})
}

// karmarkarKarp returns k groups of input indices.
func karmarkarKarp(weights []float64, k int) [][]int {
	var (
		n    = len(weights)
		h    = make(ldmHeap, 0, n)
		i, j int
	)
	for i = 0; i < n; i++ {
		t := &ldmTuple{subs: make([]ldmSubset, k), low: i}
		t.subs[0] = ldmSubset{sum: weights[i], members: []int{i}, low: i}
		for j = 1; j < k; j++ {
			t.subs[j] = ldmSubset{low: math.MaxInt}
		}
		h = append(h, t)
	}
	heap.Init(&h)

	for h.Len() > 1 {
		a := heap.Pop(&h).(*ldmTuple)
		b := heap.Pop(&h).(*ldmTuple)
		merged := &ldmTuple{subs: make([]ldmSubset, k), low: min(a.low, b.low)}
		for j = 0; j < k; j++ {
			x, y := a.subs[j], b.subs[k-1-j]
			merged.subs[j] = ldmSubset{
				sum:     x.sum + y.sum,
				members: append(append(make([]int, 0, len(x.members)+len(y.members)), x.members...), y.members...),
				low:     min(x.low, y.low),
			}
		}
		sortSubsets(merged.subs)
		heap.Push(&h, merged)
	}

	groups := make([][]int, k)
	if h.Len() == 1 {
		for j = 0; j < k; j++ {
			groups[j] = h[0].subs[j].members
		}
	}

	return groups
}
