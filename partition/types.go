package partition

import (
	"errors"
	"time"
)

// Sentinel errors. Validation failures are additionally classified by
// errkind (InvalidConfiguration or Infeasible); errors.Is matches both.
var (
	// ErrInvalidK is returned when k <= 0 or k exceeds a non-zero item count.
	ErrInvalidK = errors.New("partition: invalid subset count")

	// ErrBadWeight is returned for negative, NaN or infinite weights.
	ErrBadWeight = errors.New("partition: weight must be finite and non-negative")

	// ErrInvalidBounds is returned when MinSize > MaxSize or either is negative.
	ErrInvalidBounds = errors.New("partition: invalid group size bounds")

	// ErrBoundsInfeasible is returned when k groups within [MinSize, MaxSize]
	// cannot hold exactly n items.
	ErrBoundsInfeasible = errors.New("partition: size bounds cannot hold item count")

	// ErrBadAddends is returned when an addend set is empty, non-positive or repeated.
	ErrBadAddends = errors.New("partition: addends must be distinct positive integers")

	// ErrTooManyPartitions is returned when enumeration exceeds the caller's limit.
	ErrTooManyPartitions = errors.New("partition: enumeration limit exceeded")
)

// Algorithm selects the partitioning strategy.
type Algorithm uint8

const (
	// Auto uses Exact up to ExactItemLimit items and a heuristic above it.
	Auto Algorithm = iota
	// Exact forces branch-and-bound regardless of size.
	Exact
	// Heuristic forces Karmarkar-Karp (or greedy-swap when sizes are bounded).
	Heuristic
)

// Method names reported in Result.Method.
const (
	MethodExact         = "exact"
	MethodKarmarkarKarp = "karmarkar-karp"
	MethodGreedySwap    = "greedy-swap"
)

const (
	// DefaultExactItemLimit is the declared exact/heuristic switch threshold.
	DefaultExactItemLimit = 25

	// DefaultEps is the strict improvement threshold for spreads.
	DefaultEps = 1e-9

	// DefaultMaxPasses bounds the swap refinement of greedy-swap.
	DefaultMaxPasses = 100
)

// Options configures Partition. The zero value behaves like DefaultOptions.
type Options struct {
	Algorithm Algorithm

	// ExactItemLimit is the largest item count solved exactly under Auto.
	// Zero means DefaultExactItemLimit; negative disables exact search.
	ExactItemLimit int

	// MinSize and MaxSize bound the item count of every group.
	// Zero MaxSize means unbounded.
	MinSize int
	MaxSize int

	// TimeLimit is a soft budget for the exact search. Zero means no budget
	// beyond the context deadline.
	TimeLimit time.Duration

	Eps       float64
	MaxPasses int
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Algorithm:      Auto,
		ExactItemLimit: DefaultExactItemLimit,
		Eps:            DefaultEps,
		MaxPasses:      DefaultMaxPasses,
	}
}

func (o Options) normalized() Options {
	if o.ExactItemLimit == 0 {
		o.ExactItemLimit = DefaultExactItemLimit
	}
	if o.Eps <= 0 {
		o.Eps = DefaultEps
	}
	if o.MaxPasses <= 0 {
		o.MaxPasses = DefaultMaxPasses
	}

	return o
}

func (o Options) bounded() bool { return o.MinSize > 0 || o.MaxSize > 0 }

// Result is the outcome of Partition.
type Result struct {
	// Groups holds input indices, ascending within each group. Groups are
	// ordered by their smallest index; empty groups come last.
	Groups [][]int

	// Sums[g] is the total weight of Groups[g].
	Sums []float64

	// Spread is max(Sums) - min(Sums).
	Spread float64

	// Exact reports a certified optimum.
	Exact bool

	// TimedOut reports that the exact search hit its deadline and the
	// result is the best incumbent found.
	TimedOut bool

	Method string
}

// Assignment returns the group index of every input item.
func (r Result) Assignment(n int) []int {
	out := make([]int, n)
	for g, members := range r.Groups {
		for _, i := range members {
			out[i] = g
		}
	}

	return out
}
