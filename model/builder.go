package model

import (
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/katalvlaran/lvmatch/errkind"
)

var builderSeq atomic.Uint64

type pendingRow struct {
	name   string
	source Source
	expr   Expr
	rel    Relation
	rhs    float64
}

type pendingObjective struct {
	expr  Expr
	sense Sense
}

// Builder accumulates a model. A Builder is not safe for concurrent use;
// each solving round owns its own.
type Builder struct {
	id      uint64
	integer bool
	frozen  bool

	vars []Variable
	rows []pendingRow
	obj  *pendingObjective
}

// NewLinearBuilder returns a builder that accepts continuous variables only.
func NewLinearBuilder() *Builder {
	return &Builder{id: builderSeq.Add(1)}
}

// NewIntegerBuilder returns a builder for mixed-integer models.
func NewIntegerBuilder() *Builder {
	return &Builder{id: builderSeq.Add(1), integer: true}
}

// Integer reports whether b accepts integral domains.
func (b *Builder) Integer() bool { return b.integer }

// NumVars returns the number of variables added so far.
func (b *Builder) NumVars() int { return len(b.vars) }

func illFormed(err error) error {
	return &errkind.Error{Kind: errkind.IllFormedModel, Phase: errkind.PhaseBuild, Err: err}
}

// AddVariable registers a variable with the given domain and bounds.
// Binary forces bounds to [0, 1]. An empty name becomes "v<index>".
// Empty bounds (lower > upper) are reported by Freeze, not here.
func (b *Builder) AddVariable(name string, d Domain, lower, upper float64, opts ...VarOption) (VarRef, error) {
	if b.frozen {
		return VarRef{}, illFormed(ErrSealed)
	}
	if !b.integer && d != Continuous {
		return VarRef{}, illFormed(fmt.Errorf("%w: %s variable %q in a linear builder", ErrDomain, d, name))
	}
	if d == Binary {
		lower, upper = 0, 1
	}
	idx := len(b.vars)
	if name == "" {
		name = fmt.Sprintf("v%d", idx)
	}
	v := Variable{Name: name, Domain: d, Lower: lower, Upper: upper}
	for _, opt := range opts {
		opt(&v)
	}
	b.vars = append(b.vars, v)

	return VarRef{owner: b.id, index: idx}, nil
}

// checkOwnership rejects foreign references immediately (integer builders only).
func (b *Builder) checkOwnership(where string, e Expr) error {
	if !b.integer {
		return nil
	}
	for i, t := range e.Terms {
		if t.Var.owner != b.id {
			return &errkind.Error{
				Kind:       errkind.IllFormedModel,
				Phase:      errkind.PhaseBuild,
				Constraint: where,
				Err:        fmt.Errorf("%w: term %d", ErrForeignVariable, i),
			}
		}
	}

	return nil
}

// AddConstraint registers expr rel rhs. A constant in expr is moved to the
// right-hand side.
func (b *Builder) AddConstraint(name string, src Source, expr Expr, rel Relation, rhs float64) (ConstraintRef, error) {
	if b.frozen {
		return ConstraintRef{}, illFormed(ErrSealed)
	}
	if name == "" {
		name = fmt.Sprintf("c%d", len(b.rows))
	}
	if err := b.checkOwnership(name, expr); err != nil {
		return ConstraintRef{}, err
	}
	b.rows = append(b.rows, pendingRow{name: name, source: src, expr: expr, rel: rel, rhs: rhs})

	return ConstraintRef{owner: b.id, index: len(b.rows) - 1}, nil
}

// SetObjective sets (or replaces) the objective.
func (b *Builder) SetObjective(expr Expr, sense Sense) error {
	if b.frozen {
		return illFormed(ErrSealed)
	}
	if err := b.checkOwnership("objective", expr); err != nil {
		return err
	}
	b.obj = &pendingObjective{expr: expr, sense: sense}

	return nil
}

// resolve maps terms to merged, index-sorted coefficients.
func (b *Builder) resolve(where string, e Expr) ([]Coef, error) {
	var (
		acc  = make(map[int]float64, len(e.Terms))
		errs error
	)
	for i, t := range e.Terms {
		switch {
		case t.Var.owner != b.id && t.Var.owner != 0:
			errs = multierr.Append(errs, fmt.Errorf("%w: %s term %d", ErrForeignVariable, where, i))
			continue
		case !t.Var.Valid() || t.Var.index < 0 || t.Var.index >= len(b.vars):
			errs = multierr.Append(errs, fmt.Errorf("%w: %s term %d", ErrUnknownVariable, where, i))
			continue
		case math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0):
			errs = multierr.Append(errs, fmt.Errorf("%w: %s term %d (%s)", ErrBadCoefficient, where, i, b.vars[t.Var.index].Name))
			continue
		}
		acc[t.Var.index] += t.Coef
	}
	out := make([]Coef, 0, len(acc))
	for idx, c := range acc {
		if c != 0 {
			out = append(out, Coef{Var: idx, Value: c})
		}
	}
	sort.Slice(out, func(a, c int) bool { return out[a].Var < out[c].Var })

	return out, errs
}

// Freeze validates the builder and returns the immutable Model. On failure
// the builder stays open and the returned error lists every defect.
func (b *Builder) Freeze() (*Model, error) {
	if b.frozen {
		return nil, illFormed(ErrSealed)
	}
	var (
		errs      error
		firstCons string
		firstVar  string
		names     = make(map[string]int, len(b.vars))
	)
	note := func(cons, v string, err error) {
		if errs == nil {
			firstCons, firstVar = cons, v
		}
		errs = multierr.Append(errs, err)
	}

	for i, v := range b.vars {
		if j, dup := names[v.Name]; dup {
			note("", v.Name, fmt.Errorf("%w: %q (indices %d and %d)", ErrDuplicateName, v.Name, j, i))
		}
		names[v.Name] = i
		if math.IsNaN(v.Lower) || math.IsNaN(v.Upper) || v.Lower > v.Upper {
			note("", v.Name, fmt.Errorf("%w: %q [%v, %v]", ErrEmptyBounds, v.Name, v.Lower, v.Upper))
		}
	}

	cons := make([]Constraint, 0, len(b.rows))
	for _, r := range b.rows {
		coefs, err := b.resolve(r.name, r.expr)
		if err != nil {
			note(r.name, "", err)
			continue
		}
		if math.IsNaN(r.rhs) {
			note(r.name, "", fmt.Errorf("%w: %s rhs", ErrBadCoefficient, r.name))
			continue
		}
		cons = append(cons, Constraint{Name: r.name, Source: r.source, Coefs: coefs, Rel: r.rel, RHS: r.rhs - r.expr.Constant})
	}

	var obj Objective
	if b.obj == nil {
		note("objective", "", ErrNoObjective)
	} else {
		coefs, err := b.resolve("objective", b.obj.expr)
		if err != nil {
			note("objective", "", err)
		}
		obj = Objective{Sense: b.obj.sense, Coefs: coefs, Constant: b.obj.expr.Constant}
	}

	if errs != nil {
		return nil, &errkind.Error{
			Kind:       errkind.IllFormedModel,
			Phase:      errkind.PhaseFreeze,
			Constraint: firstCons,
			Variable:   firstVar,
			Err:        errs,
		}
	}

	b.frozen = true
	m := &Model{owner: b.id, vars: append([]Variable(nil), b.vars...), cons: cons, obj: obj}
	for _, v := range m.vars {
		if v.Domain.Integral() {
			m.integer = true
			break
		}
	}

	return m, nil
}
