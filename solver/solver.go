// Package solver defines the boundary between the model layer and any
// mathematical-programming backend.
//
// The core depends only on this contract:
//
//	Solve(ctx, *model.Model, timeLimit) -> Solution
//
// A Backend does the actual work; an Adapter wraps a Backend and enforces
// the guarantees every caller relies on regardless of which backend is
// plugged in:
//
//   - a model is solved at most once (model.Claim);
//   - the wall-clock limit is applied as a context deadline, so a stalled
//     backend surfaces as Timeout instead of hanging the round;
//   - backend panics and errors surface as errkind.AdapterError;
//   - Optimal/Feasible solutions carry a complete value vector that
//     satisfies the model (re-checked here, not trusted).
package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/katalvlaran/lvmatch/errkind"
	"github.com/katalvlaran/lvmatch/model"
)

// Status is the outcome class of a solve.
type Status uint8

const (
	StatusError Status = iota
	StatusOptimal
	StatusFeasible
	StatusInfeasible
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "Optimal"
	case StatusFeasible:
		return "Feasible"
	case StatusInfeasible:
		return "Infeasible"
	case StatusTimeout:
		return "Timeout"
	default:
		return "Error"
	}
}

// Solution is a backend answer.
type Solution struct {
	Status Status
	// Values is indexed by variable index. Complete for Optimal and Feasible;
	// a Timeout may carry the best incumbent, otherwise it is nil.
	Values    []float64
	Objective float64

	Backend string
	Nodes   int
	Elapsed time.Duration
	// Message carries backend detail for Error statuses.
	Message string
}

// HasValues reports whether a value vector is present.
func (s Solution) HasValues() bool { return len(s.Values) > 0 }

// IsOptimal reports StatusOptimal.
func (s Solution) IsOptimal() bool { return s.Status == StatusOptimal }

// Value returns the value of v, or 0 when absent.
func (s Solution) Value(v model.VarRef) float64 {
	if i := v.Index(); v.Valid() && i >= 0 && i < len(s.Values) {
		return s.Values[i]
	}

	return 0
}

// Solver is what the core calls.
type Solver interface {
	Name() string
	Solve(ctx context.Context, m *model.Model, limit time.Duration) (Solution, error)
}

// Backend solves a claimed model within the context deadline.
type Backend interface {
	Name() string
	Solve(ctx context.Context, m *model.Model) (Solution, error)
}

// CheckTolerance is the feasibility tolerance applied to backend answers.
const CheckTolerance = 1e-6

// Adapter enforces the Solver contract over a Backend.
type Adapter struct {
	backend Backend
}

var _ Solver = (*Adapter)(nil)

// NewAdapter wraps b.
func NewAdapter(b Backend) *Adapter { return &Adapter{backend: b} }

// Name returns the backend name.
func (a *Adapter) Name() string { return a.backend.Name() }

// Solve claims m, applies limit (<= 0 means none) and validates the answer.
// A non-nil error is always errkind-classified; statuses Infeasible and
// Timeout are returned as Solutions, not errors.
func (a *Adapter) Solve(ctx context.Context, m *model.Model, limit time.Duration) (sol Solution, err error) {
	if m == nil {
		return Solution{}, errkind.New(errkind.IllFormedModel, errkind.PhaseSolve, "nil model")
	}
	if err = m.Claim(); err != nil {
		return Solution{}, err
	}
	log := logr.FromContextOrDiscard(ctx).WithValues("backend", a.backend.Name(), "vars", m.NumVars(), "rows", m.NumConstraints())
	if limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			sol = Solution{Status: StatusError, Backend: a.backend.Name(), Message: fmt.Sprint(r)}
			err = errkind.New(errkind.AdapterError, errkind.PhaseSolve, "backend panic: %v", r)
		}
	}()

	sol, err = a.backend.Solve(ctx, m)
	sol.Elapsed = time.Since(start)
	sol.Backend = a.backend.Name()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.V(1).Info("backend hit deadline", "elapsed", sol.Elapsed)
			sol.Status = StatusTimeout

			return sol, nil
		}

		return sol, errkind.Wrap(errkind.AdapterError, errkind.PhaseSolve, err)
	}

	switch sol.Status {
	case StatusOptimal, StatusFeasible:
		if len(sol.Values) != m.NumVars() {
			return sol, errkind.New(errkind.AdapterError, errkind.PhaseDecode,
				"%s returned %d values for %d variables", a.backend.Name(), len(sol.Values), m.NumVars())
		}
		if verr := m.Check(sol.Values, CheckTolerance); verr != nil {
			e := &errkind.Error{Kind: errkind.AdapterError, Phase: errkind.PhaseVerify, Err: verr}
			var v *model.Violation
			if errors.As(verr, &v) {
				e.Constraint, e.Variable = v.Constraint, v.Variable
			}

			return sol, e
		}
	case StatusTimeout:
		if sol.HasValues() && (len(sol.Values) != m.NumVars() || m.Check(sol.Values, CheckTolerance) != nil) {
			log.V(1).Info("dropping invalid incumbent on timeout")
			sol.Values = nil
		}
	case StatusError:
		return sol, errkind.New(errkind.AdapterError, errkind.PhaseSolve, "%s: %s", a.backend.Name(), sol.Message)
	}
	log.V(1).Info("solved", "status", sol.Status.String(), "objective", sol.Objective, "nodes", sol.Nodes, "elapsed", sol.Elapsed)

	return sol, nil
}

// ErrorOf converts a non-success status into a classified error.
// Optimal and Feasible yield nil. active names the constraint families in
// force, reported with Infeasible.
func ErrorOf(sol Solution, active []string) error {
	switch sol.Status {
	case StatusOptimal, StatusFeasible:
		return nil
	case StatusInfeasible:
		return errkind.WithActive(errkind.PhaseSolve, active, "backend %s proved infeasibility", sol.Backend)
	case StatusTimeout:
		return errkind.New(errkind.Timeout, errkind.PhaseSolve, "backend %s exhausted its time limit after %s", sol.Backend, sol.Elapsed)
	default:
		return errkind.New(errkind.AdapterError, errkind.PhaseSolve, "backend %s: %s", sol.Backend, sol.Message)
	}
}
