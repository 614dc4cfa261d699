// Package lvmatch is a constrained grouping and partitioning engine.
//
// It splits items into groups under size bounds and pairwise conflicts,
// either balancing an attribute across groups or optimizing a pair/item
// score, and reports how every grouping was obtained.
//
// Packages, leaf first:
//
//	errkind/          failure kinds (InvalidConfiguration, Infeasible, Timeout, ...)
//	item/             items, groups and groupings
//	partition/        k-way number partitioning (branch-and-bound, Karmarkar-Karp,
//	                  greedy swap) and integer partitions of a target
//	model/            linear and integer model builders
//	solver/           solver adapter contract; solver/gonumlp is the simplex
//	                  branch-and-bound backend
//	compat/           conflict graphs
//	grouping/         grouping optimizer: ILP with a local-search fallback
//	match/            round orchestrator: validation, routing, verification,
//	                  metrics and tracing
//	maxpart/          as many disjoint partitions of a target as a supply allows
//	lobby/            team and game formation for waiting parties
//	pool/, store/     sqlite unit pool, badger decision store
//	config/, loader/  round/model files and CLI settings, CSV input
//	cmd/lvmatch       the command-line front end
//
// Quick example:
//
//	res, _ := partition.Partition(ctx, []float64{4, 5, 3, 2}, 2, partition.DefaultOptions())
//	// res.Groups == [[0 2] [1 3]], res.Spread == 0, res.Exact == true
//
// Every exact path is deterministic: ties break by index, and heuristic
// fallbacks are reported (Exact=false) rather than hidden.
package lvmatch
