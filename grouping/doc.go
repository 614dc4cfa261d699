// Package grouping assigns items to groups under size bounds and pairwise
// conflicts while optimizing a score or the balance of group sums.
//
// Two paths share one validated problem:
//
//   - ILP: an assignment-style integer model (see ilp.go) handed to a
//     solver.Solver. Used when the model has at most ExactVariableCeiling
//     variables. Result.Exact is true only for a proven optimum.
//   - Local search: a deterministic greedy seed refined by first-improvement
//     swaps and moves (see search.go). Used above the ceiling, or when no
//     solver is configured.
//
// Balance is max(sum) - min(sum) over all groups, the same measure the
// partition package minimizes, so both packages report comparable spreads
// on the same data.
//
// Scorers are evaluated exactly once per item and per unordered pair;
// implementations must be symmetric and free of side effects.
//
// Example:
//
//	res, err := grouping.Optimize(ctx, items, grouping.Spec{
//		Groups:    3,
//		MinSize:   2,
//		MaxSize:   2,
//		Direction: grouping.MaximizeScore,
//		Pair:      grouping.NegDistance(0),
//	}, gonumlp.NewSolver())
package grouping
