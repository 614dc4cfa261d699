// Package partition_test provides small helpers shared across *_test.go files.
package partition_test

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvmatch/partition"
)

const (
	// epsTiny is the tolerance used to compare spreads.
	epsTiny = 1e-9

	// seedDet keeps random instances reproducible.
	seedDet = int64(7)
)

// bruteForceSpread enumerates all kⁿ assignments and returns the minimal
// spread among those respecting [minSize, maxSize] (maxSize 0 = unbounded).
// Only for n <= 10.
func bruteForceSpread(weights []float64, k, minSize, maxSize int) float64 {
	var (
		n      = len(weights)
		best   = math.Inf(1)
		assign = make([]int, n)
		total  = 1
		i, c   int
	)
	if maxSize == 0 {
		maxSize = n
	}
	for i = 0; i < n; i++ {
		total *= k
	}
	for c = 0; c < total; c++ {
		x := c
		for i = 0; i < n; i++ {
			assign[i] = x % k
			x /= k
		}
		sums := make([]float64, k)
		counts := make([]int, k)
		for i = 0; i < n; i++ {
			sums[assign[i]] += weights[i]
			counts[assign[i]]++
		}
		ok := true
		for g := 0; g < k; g++ {
			if counts[g] < minSize || counts[g] > maxSize {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		lo, hi := sums[0], sums[0]
		for _, s := range sums {
			lo, hi = math.Min(lo, s), math.Max(hi, s)
		}
		best = math.Min(best, hi-lo)
	}

	return best
}

// requireCover asserts that res.Groups is an exact cover of 0..n-1 and that
// Sums and Spread agree with weights.
func requireCover(t *testing.T, weights []float64, k int, res partition.Result) {
	t.Helper()
	require.Len(t, res.Groups, k)
	require.Len(t, res.Sums, k)

	var all []int
	for g, members := range res.Groups {
		require.True(t, sort.IntsAreSorted(members), "group %d not sorted", g)
		s := 0.0
		for _, i := range members {
			s += weights[i]
		}
		require.InDelta(t, s, res.Sums[g], epsTiny)
		all = append(all, members...)
	}
	sort.Ints(all)
	require.Len(t, all, len(weights))
	for i := range all {
		require.Equal(t, i, all[i], "index %d missing or duplicated", i)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range res.Sums {
		lo, hi = math.Min(lo, s), math.Max(hi, s)
	}
	if k > 0 {
		require.InDelta(t, hi-lo, res.Spread, epsTiny)
	}
}

// randomWeights returns n reproducible weights in [1, 100).
func randomWeights(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = 1 + math.Floor(rng.Float64()*9900)/100
	}

	return out
}
