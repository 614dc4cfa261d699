package grouping

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/katalvlaran/lvmatch/compat"
	"github.com/katalvlaran/lvmatch/item"
)

// Sentinel errors. Every failure is also classified by errkind.
var (
	// ErrNoGroups is returned when neither Groups nor GroupSize is positive.
	ErrNoGroups = errors.New("grouping: group count or group size required")

	// ErrAmbiguousCount is returned when both Groups and GroupSize are set.
	ErrAmbiguousCount = errors.New("grouping: set either Groups or GroupSize, not both")

	// ErrBadBounds is returned for negative or inverted size bounds.
	ErrBadBounds = errors.New("grouping: invalid group size bounds")

	// ErrNoScorer is returned when a score direction has no scorer.
	ErrNoScorer = errors.New("grouping: score direction requires a pair or item scorer")

	// ErrConflictSize is returned when the conflict graph does not match the item count.
	ErrConflictSize = errors.New("grouping: conflict graph size mismatch")

	// ErrDuplicateItem is returned when item identifiers repeat.
	ErrDuplicateItem = errors.New("grouping: duplicate item identifier")

	// ErrBadAttr is returned for a negative balance attribute.
	ErrBadAttr = errors.New("grouping: invalid balance attribute")

	// ErrUnassignedBalance is returned when AllowUnassigned meets MinimizeImbalance,
	// which an empty grouping would trivially satisfy.
	ErrUnassignedBalance = errors.New("grouping: unassigned items cannot be combined with imbalance minimization")

	// ErrCapacity is returned when the size bounds cannot hold the item count.
	ErrCapacity = errors.New("grouping: size bounds cannot hold item count")

	// ErrUnresolvedConflicts is returned when the heuristic cannot separate conflicting items.
	ErrUnresolvedConflicts = errors.New("grouping: conflicting items share a group")
)

// Direction selects the objective.
type Direction uint8

const (
	// MaximizeScore maximizes the total pair and item score of chosen groups.
	MaximizeScore Direction = iota
	// MinimizeScore minimizes the same total.
	MinimizeScore
	// MinimizeImbalance minimizes max(sum) - min(sum) of the balance values.
	MinimizeImbalance
)

func (d Direction) String() string {
	switch d {
	case MaximizeScore:
		return "maximize-score"
	case MinimizeScore:
		return "minimize-score"
	case MinimizeImbalance:
		return "minimize-imbalance"
	default:
		return "unknown"
	}
}

// Method names reported in Result.Method.
const (
	MethodILP         = "ilp"
	MethodLocalSearch = "local-search"
)

// Defaults.
const (
	DefaultExactVariableCeiling = 400
	DefaultMaxPasses            = 50
	DefaultEps                  = 1e-9
)

// Constraint family names reported as active constraints.
const (
	FamilyAssignment  = "assignment"
	FamilySizeMin     = "size.min"
	FamilySizeMax     = "size.max"
	FamilyExclusivity = "exclusivity"
)

// PairScorer scores two items placed in the same group. Implementations
// must be symmetric and deterministic.
type PairScorer interface {
	Score(a, b item.Item) float64
}

// PairScoreFunc adapts a function to PairScorer.
type PairScoreFunc func(a, b item.Item) float64

// Score implements PairScorer.
func (f PairScoreFunc) Score(a, b item.Item) float64 { return f(a, b) }

// ItemScorer scores a single item. Under a score direction it is the value
// of assigning the item; under MinimizeImbalance it replaces the balance
// attribute.
type ItemScorer interface {
	Score(it item.Item) float64
}

// ItemScoreFunc adapts a function to ItemScorer.
type ItemScoreFunc func(it item.Item) float64

// Score implements ItemScorer.
func (f ItemScoreFunc) Score(it item.Item) float64 { return f(it) }

// NegDistance returns a similarity PairScorer: the negated Euclidean
// distance over attrs (all attributes when none are given).
func NegDistance(attrs ...int) PairScorer {
	return PairScoreFunc(func(a, b item.Item) float64 {
		var va, vb []float64
		if len(attrs) == 0 {
			va, vb = a.Attrs(), b.Attrs()
			if len(va) != len(vb) {
				return math.Inf(-1)
			}
		} else {
			va, vb = make([]float64, len(attrs)), make([]float64, len(attrs))
			for i, k := range attrs {
				va[i], vb[i] = a.Attr(k), b.Attr(k)
			}
		}

		return -floats.Distance(va, vb, 2)
	})
}

// AttrScore returns an ItemScorer reading attribute attr.
func AttrScore(attr int) ItemScorer {
	return ItemScoreFunc(func(it item.Item) float64 { return it.Attr(attr) })
}

// Spec describes one grouping problem.
type Spec struct {
	// Groups is the group count. Alternatively GroupSize derives the count
	// as ceil(n/GroupSize) and, when MaxSize is zero, caps groups at GroupSize.
	Groups    int
	GroupSize int

	// MinSize and MaxSize bound every group. Zero MaxSize means unbounded.
	MinSize int
	MaxSize int

	Direction Direction
	Pair      PairScorer
	Item      ItemScorer

	// BalanceAttr is the attribute balanced by MinimizeImbalance (when Item
	// is nil) and the one Group statistics are computed on.
	BalanceAttr int

	// Conflicts lists item pairs that may not share a group. Nil means none.
	Conflicts *compat.Graph

	// AllowUnassigned relaxes assignment to "at most one group".
	AllowUnassigned bool

	// ExactVariableCeiling is the largest model solved exactly (0 = default,
	// negative disables the exact path).
	ExactVariableCeiling int
	TimeLimit            time.Duration
	MaxPasses            int
	Eps                  float64

	// OnSolve, when set, is called once after validation with the chosen
	// path and the model size.
	OnSolve func(exact bool, vars int)
}

func (s Spec) normalized() Spec {
	if s.ExactVariableCeiling == 0 {
		s.ExactVariableCeiling = DefaultExactVariableCeiling
	}
	if s.MaxPasses <= 0 {
		s.MaxPasses = DefaultMaxPasses
	}
	if s.Eps <= 0 {
		s.Eps = DefaultEps
	}

	return s
}

// Result is the outcome of Optimize.
type Result struct {
	Grouping item.Grouping
	// Assignment maps item position to group index (-1 = unassigned).
	Assignment []int
	// Objective is the total score, or the spread under MinimizeImbalance.
	Objective float64
	Exact     bool
	Method    string
	// VariableCount is the size of the integer model (built or not).
	VariableCount     int
	ActiveConstraints []string
	Backend           string
	Nodes             int
}
