// Package partition provides multiway number partitioning: split a sequence of
// non-negative weights into k subsets whose sums are as close to equal as
// possible.
//
// Objective policy: the spread, max(subset sum) - min(subset sum), is
// minimized. Variance of the subset sums is not used for ranking; it is only
// reported by callers that build statistics on top of the result.
//
// Algorithms:
//
//   - Exact - depth-first branch-and-bound, chosen when the item count is at
//     or below Options.ExactItemLimit (default 25).
//   - Complexity: O(kⁿ) worst case; pruning by an admissible spread bound
//     and symmetry breaking on identical partial groups.
//   - Karmarkar-Karp - k-way largest differencing for unbounded group sizes.
//   - Complexity: O(n·k·log k + n·log n).
//   - Greedy-swap - capacity-aware largest-first placement followed by
//     first-improvement pairwise swaps, used when group sizes are bounded.
//   - Complexity: O(n·k) placement + O(passes·n²·k) swaps.
//
// Ties are broken by the lowest item index everywhere, so identical input
// always yields identical output. Every Result reports the achieved spread
// and whether it is certified optimal (Exact) so callers can detect
// heuristic degradation.
//
// The package also counts and enumerates integer partitions of a target
// over a set of distinct addends (see integer.go), which is how team
// compositions are derived from party sizes.
package partition
