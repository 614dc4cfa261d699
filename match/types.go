package match

import (
	"errors"
	"time"

	"github.com/katalvlaran/lvmatch/grouping"
	"github.com/katalvlaran/lvmatch/item"
)

// Validation sentinels. Each is wrapped in an errkind.Error of kind
// InvalidConfiguration, except ErrCapacity which is Infeasible.
var (
	ErrEmptyID       = errors.New("match: empty item identifier")
	ErrDuplicateID   = errors.New("match: duplicate item identifier")
	ErrArity         = errors.New("match: inconsistent attribute arity")
	ErrGroupCount    = errors.New("match: group count must be positive")
	ErrBounds        = errors.New("match: invalid group size bounds")
	ErrBalanceTarget = errors.New("match: balance target out of range")
	ErrObjective     = errors.New("match: exactly one of balance target and score function must be set")
	ErrDirection     = errors.New("match: scored objectives maximize or minimize a score")
	ErrConflict      = errors.New("match: invalid conflict pair")
	ErrCapacity      = errors.New("match: size bounds cannot hold item count")
	ErrCoverage      = errors.New("match: grouping does not respect the round")
)

// State is a step of the round state machine.
type State uint8

const (
	StateReceived State = iota
	StateValidated
	StateSolvingExact
	StateSolvingHeuristic
	StateSolved
	StateInfeasible
	StateFailed
)

var stateNames = [...]string{"Received", "Validated", "SolvingExact", "SolvingHeuristic", "Solved", "Infeasible", "Failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}

	return "Unknown"
}

// MarshalText renders the state name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(b []byte) error {
	for i, n := range stateNames {
		if n == string(b) {
			*s = State(i)
			return nil
		}
	}

	return errors.New("match: unknown state " + string(b))
}

// Terminal reports whether s ends a round.
func (s State) Terminal() bool { return s >= StateSolved }

// Paths reported in Provenance.Path.
const (
	PathPartition = "partition"
	PathGrouping  = "grouping"
)

// RoundSpec is the constraint and objective specification of one round.
type RoundSpec struct {
	GroupCount int
	// MinSize and MaxSize bound every group. Zero MaxSize means unbounded.
	MinSize int
	MaxSize int

	// BalanceTarget selects the attribute whose group sums are balanced.
	// Exactly one of BalanceTarget and a scorer (Score, ItemScore) is set.
	BalanceTarget *int
	Score         grouping.PairScorer
	ItemScore     grouping.ItemScorer
	// Direction applies to scored objectives: MaximizeScore or MinimizeScore.
	Direction grouping.Direction

	// Compatible, when set, forbids every pair it rejects from sharing a group.
	Compatible func(a, b item.Item) bool
	// Conflicts lists further forbidden pairs by identifier.
	Conflicts [][2]string

	AllowUnassigned bool

	// ExactVariableCeiling is the exact/heuristic switch: the item count for
	// balance rounds, the model variable count for scored rounds. Zero keeps
	// each optimizer's default.
	ExactVariableCeiling int
	TimeLimit            time.Duration
}

// Balance returns a pointer to attr, for RoundSpec.BalanceTarget.
func Balance(attr int) *int { return &attr }

// Provenance explains how a Grouping was produced.
type Provenance struct {
	Path              string        `json:"path"`
	Method            string        `json:"method"`
	Exact             bool          `json:"exact"`
	Objective         float64       `json:"objective"`
	Spread            float64       `json:"spread"`
	ActiveConstraints []string      `json:"active_constraints"`
	VariableCount     int           `json:"variable_count"`
	Backend           string        `json:"backend,omitempty"`
	Duration          time.Duration `json:"duration"`
}

// Decision is the outcome of one round. On failure Grouping is empty and
// State is Infeasible or Failed.
type Decision struct {
	RoundID    string        `json:"round_id"`
	CreatedAt  time.Time     `json:"created_at"`
	State      State         `json:"state"`
	Trace      []State       `json:"trace"`
	Grouping   item.Grouping `json:"grouping"`
	Provenance Provenance    `json:"provenance"`
}

func (d *Decision) enter(s State) {
	d.State = s
	d.Trace = append(d.Trace, s)
}
