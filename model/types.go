package model

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every one of them is reported under errkind.IllFormedModel.
var (
	ErrSealed          = errors.New("model: builder already frozen")
	ErrUnknownVariable = errors.New("model: unregistered variable")
	ErrForeignVariable = errors.New("model: variable belongs to another builder")
	ErrNoObjective     = errors.New("model: objective not set")
	ErrEmptyBounds     = errors.New("model: variable bounds are empty")
	ErrBadCoefficient  = errors.New("model: coefficient is not a number")
	ErrDuplicateName   = errors.New("model: duplicate variable name")
	ErrDomain          = errors.New("model: domain not allowed by this builder")
	ErrAlreadySolved   = errors.New("model: already solved")
	ErrValueCount      = errors.New("model: value vector does not match variable count")
	ErrViolated        = errors.New("model: constraint violated")
)

// Domain is the value domain of a variable.
type Domain uint8

const (
	Continuous Domain = iota
	Integer
	Binary
)

func (d Domain) String() string {
	switch d {
	case Integer:
		return "integer"
	case Binary:
		return "binary"
	default:
		return "continuous"
	}
}

// Integral reports whether values must be whole numbers.
func (d Domain) Integral() bool { return d != Continuous }

// Relation is the comparison of a constraint row.
type Relation uint8

const (
	LE Relation = iota
	EQ
	GE
)

func (r Relation) String() string {
	switch r {
	case EQ:
		return "=="
	case GE:
		return ">="
	default:
		return "<="
	}
}

// ParseRelation accepts "<=", "==", "=", ">=" (and le/eq/ge).
func ParseRelation(s string) (Relation, error) {
	switch s {
	case "<=", "le", "LE":
		return LE, nil
	case "==", "=", "eq", "EQ":
		return EQ, nil
	case ">=", "ge", "GE":
		return GE, nil
	}

	return LE, fmt.Errorf("model: unknown relation %q", s)
}

// Sense is the optimization direction.
type Sense uint8

const (
	Minimize Sense = iota
	Maximize
)

func (s Sense) String() string {
	if s == Maximize {
		return "maximize"
	}

	return "minimize"
}

// Source tags a constraint with the concern that produced it.
type Source uint8

const (
	SourceUser Source = iota
	SourceCapacity
	SourceCompatibility
	SourceExclusivity
	SourceAssignment
	SourceObjective
)

func (s Source) String() string {
	switch s {
	case SourceCapacity:
		return "capacity"
	case SourceCompatibility:
		return "compatibility"
	case SourceExclusivity:
		return "exclusivity"
	case SourceAssignment:
		return "assignment"
	case SourceObjective:
		return "objective"
	default:
		return "user"
	}
}

// Pairing records which (item, group) or (item, item) decision a variable encodes.
// Kind is empty for untagged variables.
type Pairing struct {
	Kind string // "item-group" or "item-item"
	A, B int
}

// VarRef identifies a variable within the builder that created it.
// The zero VarRef is never valid.
type VarRef struct {
	owner uint64
	index int
}

// Index returns the position of the variable in its model.
func (v VarRef) Index() int { return v.index }

// Valid reports whether v was produced by a builder.
func (v VarRef) Valid() bool { return v.owner != 0 }

// ConstraintRef identifies a constraint within its builder.
type ConstraintRef struct {
	owner uint64
	index int
}

// Index returns the position of the constraint in its model.
func (c ConstraintRef) Index() int { return c.index }

// Term is coef * variable.
type Term struct {
	Var  VarRef
	Coef float64
}

// T builds a Term.
func T(v VarRef, coef float64) Term { return Term{Var: v, Coef: coef} }

// Expr is a linear expression: sum of terms plus a constant.
type Expr struct {
	Terms    []Term
	Constant float64
}

// Sum builds an Expr from terms.
func Sum(terms ...Term) Expr { return Expr{Terms: terms} }

// Plus returns e with coef*v appended. e is not modified.
func (e Expr) Plus(v VarRef, coef float64) Expr {
	out := Expr{Terms: make([]Term, len(e.Terms), len(e.Terms)+1), Constant: e.Constant}
	copy(out.Terms, e.Terms)
	out.Terms = append(out.Terms, Term{Var: v, Coef: coef})

	return out
}

// Variable is a frozen variable definition.
type Variable struct {
	Name    string
	Domain  Domain
	Lower   float64
	Upper   float64
	Pairing Pairing
}

// Coef is a resolved (variable index, coefficient) pair.
type Coef struct {
	Var   int
	Value float64
}

// Constraint is a frozen row: sum(Coefs) Rel RHS.
type Constraint struct {
	Name   string
	Source Source
	Coefs  []Coef
	Rel    Relation
	RHS    float64
}

// Objective is a frozen linear objective.
type Objective struct {
	Sense    Sense
	Coefs    []Coef
	Constant float64
}

// VarOption configures a variable at creation.
type VarOption func(*Variable)

// WithItemGroup tags the variable as the (item, group) assignment decision.
func WithItemGroup(item, group int) VarOption {
	return func(v *Variable) { v.Pairing = Pairing{Kind: "item-group", A: item, B: group} }
}

// WithItemPair tags the variable as the (item, item) pairing decision.
func WithItemPair(a, b int) VarOption {
	return func(v *Variable) { v.Pairing = Pairing{Kind: "item-item", A: a, B: b} }
}
