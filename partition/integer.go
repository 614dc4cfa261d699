// Package partition - integer partitions over a fixed addend set.
//
// Given distinct positive addends a₁ < … < a_m and a target N, a partition is
// a multiset of addends summing to N. Counting uses the classic table
//
//	dp[i][j] = dp[i][j-a_i] + dp[i-1][j],   dp[i][0] = 1
//
// rolled into a single row. Enumeration walks the same recurrence
// depth-first, largest addend first, so the first partition returned uses
// as many large addends as possible.
//
// Complexity:
//   - Count: O(m·N) time, O(N) memory.
//   - Enumerate: O(P·m) for P partitions (output sensitive) plus recursion depth O(N/a₁).

package partition

import (
	"fmt"
	"sort"
)

// maxTarget caps the DP row length.
const maxTarget = 1 << 22

// normalizeAddends sorts and validates addends.
func normalizeAddends(addends []int64, target int64) ([]int64, error) {
	if len(addends) == 0 || target < 0 || target > maxTarget {
		return nil, fmt.Errorf("%w: %d addends, target %d", ErrBadAddends, len(addends), target)
	}
	out := append([]int64(nil), addends...)
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	for i, a := range out {
		if a <= 0 || (i > 0 && out[i-1] == a) {
			return nil, fmt.Errorf("%w: %v", ErrBadAddends, addends)
		}
	}

	return out, nil
}

// CountIntegerPartitions returns how many multisets of addends sum to target.
// A zero target has exactly one (empty) partition.
func CountIntegerPartitions(addends []int64, target int64) (uint64, error) {
	set, err := normalizeAddends(addends, target)
	if err != nil {
		return 0, err
	}
	var (
		dp   = make([]uint64, target+1)
		a, j int64
	)
	dp[0] = 1
	for _, a = range set {
		for j = a; j <= target; j++ {
			dp[j] += dp[j-a]
		}
	}

	return dp[target], nil
}

// IntegerPartitions enumerates every partition of target as an
// addend -> multiplicity map. limit > 0 caps the number of partitions;
// exceeding it returns ErrTooManyPartitions.
func IntegerPartitions(addends []int64, target int64, limit int) ([]map[int64]int64, error) {
	set, err := normalizeAddends(addends, target)
	if err != nil {
		return nil, err
	}
	var (
		out  []map[int64]int64
		path = make(map[int64]int64, len(set))
	)
	var walk func(top int, rest int64) error
	walk = func(top int, rest int64) error {
		if rest == 0 {
			if limit > 0 && len(out) >= limit {
				return fmt.Errorf("%w: limit %d", ErrTooManyPartitions, limit)
			}
			cp := make(map[int64]int64, len(path))
			for a, c := range path {
				if c > 0 {
					cp[a] = c
				}
			}
			out = append(out, cp)

			return nil
		}
		if top < 0 {
			return nil
		}
		a := set[top]
		if a <= rest {
			path[a]++
			if err := walk(top, rest-a); err != nil {
				return err
			}
			path[a]--
		}

		return walk(top-1, rest)
	}
	if err = walk(len(set)-1, target); err != nil {
		return nil, err
	}

	return out, nil
}
