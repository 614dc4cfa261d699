package model

import (
	"fmt"
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/lvmatch/errkind"
)

// Model is a frozen optimization problem. All accessors return copies, so a
// Model cannot be mutated after Freeze.
type Model struct {
	owner   uint64
	integer bool

	vars []Variable
	cons []Constraint
	obj  Objective

	claimed atomic.Bool
}

// NumVars returns the variable count.
func (m *Model) NumVars() int { return len(m.vars) }

// NumConstraints returns the constraint count.
func (m *Model) NumConstraints() int { return len(m.cons) }

// IsInteger reports whether any variable is integral.
func (m *Model) IsInteger() bool { return m.integer }

// Var returns variable i.
func (m *Model) Var(i int) Variable { return m.vars[i] }

// Ref returns the VarRef of variable i, for reading Solution values.
func (m *Model) Ref(i int) VarRef { return VarRef{owner: m.owner, index: i} }

// Constraint returns a copy of constraint i.
func (m *Model) Constraint(i int) Constraint {
	c := m.cons[i]
	c.Coefs = append([]Coef(nil), c.Coefs...)

	return c
}

// Objective returns a copy of the objective.
func (m *Model) Objective() Objective {
	o := m.obj
	o.Coefs = append([]Coef(nil), o.Coefs...)

	return o
}

// Claim marks the model as handed to a solver. It succeeds exactly once.
func (m *Model) Claim() error {
	if !m.claimed.CompareAndSwap(false, true) {
		return &errkind.Error{Kind: errkind.IllFormedModel, Phase: errkind.PhaseSolve, Err: ErrAlreadySolved}
	}

	return nil
}

// Claimed reports whether Claim has succeeded.
func (m *Model) Claimed() bool { return m.claimed.Load() }

// ObjectiveVector returns the dense objective coefficients (length NumVars).
func (m *Model) ObjectiveVector() []float64 {
	c := make([]float64, len(m.vars))
	for _, t := range m.obj.Coefs {
		c[t.Var] = t.Value
	}

	return c
}

// DenseRows returns the constraint matrix as a gonum Dense (NumConstraints ×
// NumVars) together with the right-hand sides and relations. The matrix is
// nil when the model has no constraints.
func (m *Model) DenseRows() (*mat.Dense, []float64, []Relation) {
	var (
		rows = len(m.cons)
		cols = len(m.vars)
		rhs  = make([]float64, rows)
		rels = make([]Relation, rows)
	)
	if rows == 0 || cols == 0 {
		return nil, rhs, rels
	}
	a := mat.NewDense(rows, cols, nil)
	for i, c := range m.cons {
		for _, t := range c.Coefs {
			a.Set(i, t.Var, t.Value)
		}
		rhs[i] = c.RHS
		rels[i] = c.Rel
	}

	return a, rhs, rels
}

// Evaluate returns the objective value at values.
func (m *Model) Evaluate(values []float64) (float64, error) {
	if len(values) != len(m.vars) {
		return 0, fmt.Errorf("%w: got %d want %d", ErrValueCount, len(values), len(m.vars))
	}
	s := m.obj.Constant
	for _, t := range m.obj.Coefs {
		s += t.Value * values[t.Var]
	}

	return s, nil
}

// Violation describes the first constraint, bound or integrality breach
// found by Check.
type Violation struct {
	Constraint string
	Variable   string
	LHS        float64
	RHS        float64
}

func (v *Violation) Error() string {
	if v.Constraint != "" {
		return fmt.Sprintf("%v: %s (lhs=%g rhs=%g)", ErrViolated, v.Constraint, v.LHS, v.RHS)
	}

	return fmt.Sprintf("%v: variable %s (value=%g)", ErrViolated, v.Variable, v.LHS)
}

func (v *Violation) Unwrap() error { return ErrViolated }

// Check verifies that values satisfy bounds, integrality and every
// constraint within tol. It returns nil or a *Violation.
func (m *Model) Check(values []float64, tol float64) error {
	if len(values) != len(m.vars) {
		return fmt.Errorf("%w: got %d want %d", ErrValueCount, len(values), len(m.vars))
	}
	for i, v := range m.vars {
		x := values[i]
		if math.IsNaN(x) || x < v.Lower-tol || x > v.Upper+tol {
			return &Violation{Variable: v.Name, LHS: x}
		}
		if v.Domain.Integral() && math.Abs(x-math.Round(x)) > tol {
			return &Violation{Variable: v.Name, LHS: x}
		}
	}
	for _, c := range m.cons {
		lhs := 0.0
		for _, t := range c.Coefs {
			lhs += t.Value * values[t.Var]
		}
		var bad bool
		switch c.Rel {
		case LE:
			bad = lhs > c.RHS+tol
		case GE:
			bad = lhs < c.RHS-tol
		default:
			bad = math.Abs(lhs-c.RHS) > tol
		}
		if bad {
			return &Violation{Constraint: c.Name, LHS: lhs, RHS: c.RHS}
		}
	}

	return nil
}
