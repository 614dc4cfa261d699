// Package match orchestrates grouping rounds.
//
// A round moves through a small state machine:
//
//	Received -> Validated -> SolvingExact | SolvingHeuristic -> Solved
//	                 \                          \
//	                  +-> Infeasible | Failed    +-> Infeasible | Failed
//
// ComputeGrouping validates the items and RoundSpec, then routes the round:
//
//   - Pure balance rounds (a BalanceTarget, no conflicts, every item placed)
//     go to partition.Partition. The exact/heuristic switch compares the
//     item count with ExactVariableCeiling.
//   - Every other round goes to grouping.Optimize with the conflict graph
//     built from Compatible and Conflicts. The switch compares the model
//     variable count with ExactVariableCeiling.
//
// The result is re-verified (every item in exactly one group, sizes within
// bounds) before the Decision reaches Solved. Decisions carry a uuid round
// identifier, the state trace and a Provenance describing the path, the
// method, the exact flag and the objective.
//
// Ambient concerns: logging through logr (the round logger is also placed
// on the context for the optimizers), one OpenTelemetry span per round, and
// Prometheus counters and histograms registered on construction.
//
// RunRounds fans independent rounds out with errgroup under a parallelism
// limit.
package match
