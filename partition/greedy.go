// Package partition - capacity-aware greedy placement with swap refinement.
//
// Used when group sizes are bounded, where largest differencing cannot
// honor cardinalities.
//
// Placement: items in descending weight order (index tiebreak) go to the
// lightest group that still has room. When the remaining item count equals
// the outstanding minimum, only groups below MinSize are eligible; this
// guarantees every MinSize is met whenever k·Min <= n <= k·Max.
//
// Refinement: first-improvement pairwise swaps across groups. A swap is
// accepted only if it strictly lowers the spread by more than eps; a pass
// restarts after every accepted swap; at most MaxPasses passes run.
// Swaps preserve group sizes, so the bounds stay satisfied.
//
// Complexity:
//   - Placement: O(n·k).
//   - One refinement pass: O(n²·k).

package partition

// greedySwap returns a per-item group assignment.
func greedySwap(weights []float64, k int, opts Options) []int {
	var (
		n       = len(weights)
		maxSize = opts.MaxSize
		sums    = make([]float64, k)
		counts  = make([]int, k)
		assign  = make([]int, n)
		seq     = order(weights)
		p, g    int
	)
	if maxSize == 0 {
		maxSize = n
	}
	for p = 0; p < n; p++ {
		var (
			it      = seq[p]
			deficit = 0
			pick    = -1
		)
		for g = 0; g < k; g++ {
			if counts[g] < opts.MinSize {
				deficit += opts.MinSize - counts[g]
			}
		}
		forced := deficit >= n-p
		for g = 0; g < k; g++ {
			if counts[g] >= maxSize || (forced && counts[g] >= opts.MinSize) {
				continue
			}
			if pick < 0 || sums[g] < sums[pick] {
				pick = g
			}
		}
		assign[it] = pick
		sums[pick] += weights[it]
		counts[pick]++
	}

	refineSwaps(weights, assign, sums, opts)

	return assign
}

// refineSwaps improves assign in place by spread-reducing swaps.
func refineSwaps(weights []float64, assign []int, sums []float64, opts Options) {
	var (
		n      = len(weights)
		cur    = spreadOf(sums)
		pass   int
		i, j   int
		gi, gj int
		d      float64
	)
	for pass = 0; pass < opts.MaxPasses; pass++ {
		improved := false
	scan:
		for i = 0; i < n; i++ {
			for j = i + 1; j < n; j++ {
				gi, gj = assign[i], assign[j]
				if gi == gj || weights[i] == weights[j] {
					continue
				}
				d = weights[j] - weights[i]
				sums[gi] += d
				sums[gj] -= d
				if s := spreadOf(sums); s < cur-opts.Eps {
					assign[i], assign[j] = gj, gi
					cur = s
					improved = true
					break scan
				}
				sums[gi] -= d
				sums[gj] += d
			}
		}
		if !improved {
			return
		}
	}
}
