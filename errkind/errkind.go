// Package errkind defines the error kinds shared by every solving layer.
//
// Each layer (partition, model, solver, grouping, match) keeps its own
// sentinel errors for local contracts, but anything that crosses a layer
// boundary is classified into exactly one Kind. Callers match kinds with
// errors.Is against the exported sentinels and recover the diagnostic
// context (phase, constraint, variable, active constraint set) with
// errors.As on *Error.
//
//	if errors.Is(err, errkind.ErrInfeasible) {
//		var e *errkind.Error
//		_ = errors.As(err, &e)
//		fmt.Println(e.Active)
//	}
package errkind

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind uint8

const (
	// Unknown is the zero Kind; it is never produced by this module.
	Unknown Kind = iota
	// InvalidConfiguration marks a malformed specification (bad k, bad bounds, duplicate IDs).
	InvalidConfiguration
	// IllFormedModel marks a model-building contract violation.
	IllFormedModel
	// Infeasible marks a problem with no assignment satisfying all active constraints.
	Infeasible
	// Timeout marks exhaustion of the solving time budget.
	Timeout
	// AdapterError marks a failure of the solving backend itself.
	AdapterError
)

// Sentinels, one per Kind. *Error unwraps to the sentinel of its Kind.
var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrIllFormedModel       = errors.New("ill-formed model")
	ErrInfeasible           = errors.New("infeasible")
	ErrTimeout              = errors.New("timeout")
	ErrAdapter              = errors.New("solver adapter error")
)

// String returns the canonical name of k.
func (k Kind) String() string {
	switch k {
	case InvalidConfiguration:
		return "InvalidConfiguration"
	case IllFormedModel:
		return "IllFormedModel"
	case Infeasible:
		return "Infeasible"
	case Timeout:
		return "Timeout"
	case AdapterError:
		return "AdapterError"
	default:
		return "Unknown"
	}
}

// Sentinel returns the sentinel error associated with k, or nil for Unknown.
func (k Kind) Sentinel() error {
	switch k {
	case InvalidConfiguration:
		return ErrInvalidConfiguration
	case IllFormedModel:
		return ErrIllFormedModel
	case Infeasible:
		return ErrInfeasible
	case Timeout:
		return ErrTimeout
	case AdapterError:
		return ErrAdapter
	default:
		return nil
	}
}

// Phase names the pipeline step in which a failure was detected.
type Phase string

const (
	PhaseValidate Phase = "validate"
	PhaseBuild    Phase = "build"
	PhaseFreeze   Phase = "freeze"
	PhaseSolve    Phase = "solve"
	PhaseDecode   Phase = "decode"
	PhaseVerify   Phase = "verify"
)

// Error is a classified failure with enough context to diagnose it without
// re-running the round.
type Error struct {
	Kind  Kind
	Phase Phase

	// Constraint and Variable name the offending model element, when known.
	Constraint string
	Variable   string

	// Active lists the constraint families that were in force (Infeasible only).
	Active []string

	// BestKnown optionally carries the best feasible result found before a
	// Timeout. Its concrete type is owned by the layer that produced it.
	BestKnown any

	Err error
}

// Error implements error.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Phase != "" {
		sb.WriteString(" [")
		sb.WriteString(string(e.Phase))
		sb.WriteString("]")
	}
	if e.Constraint != "" {
		sb.WriteString(" constraint=")
		sb.WriteString(e.Constraint)
	}
	if e.Variable != "" {
		sb.WriteString(" variable=")
		sb.WriteString(e.Variable)
	}
	if len(e.Active) > 0 {
		sb.WriteString(" active=[")
		sb.WriteString(strings.Join(e.Active, ","))
		sb.WriteString("]")
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}

	return sb.String()
}

// Unwrap exposes both the Kind sentinel and the wrapped cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if s := e.Kind.Sentinel(); s != nil {
		out = append(out, s)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}

	return out
}

// New builds an *Error of the given kind with a formatted cause.
func New(kind Kind, phase Phase, format string, args ...any) *Error {
	return &Error{Kind: kind, Phase: phase, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies err. A nil err yields nil. If err already carries a Kind
// it is returned unchanged so that the innermost classification wins.
func Wrap(kind Kind, phase Phase, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}

	return &Error{Kind: kind, Phase: phase, Err: err}
}

// KindOf returns the Kind carried by err, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for _, k := range []Kind{InvalidConfiguration, IllFormedModel, Infeasible, Timeout, AdapterError} {
		if errors.Is(err, k.Sentinel()) {
			return k
		}
	}

	return Unknown
}

// WithActive returns an Infeasible error listing the active constraint families.
func WithActive(phase Phase, active []string, format string, args ...any) *Error {
	e := New(Infeasible, phase, format, args...)
	e.Active = append([]string(nil), active...)

	return e
}
