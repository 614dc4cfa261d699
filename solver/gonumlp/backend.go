package gonumlp

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-logr/logr"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/katalvlaran/lvmatch/model"
	"github.com/katalvlaran/lvmatch/solver"
)

// Name is the backend identifier reported in Solutions.
const Name = "gonum-simplex"

// Defaults.
const (
	DefaultNodeLimit = 20000
	DefaultTol       = 1e-10
	DefaultIntTol    = 1e-6
)

// Options tunes the backend.
type Options struct {
	// NodeLimit caps explored branch-and-bound nodes (<= 0 means default).
	NodeLimit int
	// Tol is passed to lp.Simplex.
	Tol float64
	// IntTol is the integrality tolerance.
	IntTol float64
}

// DefaultOptions returns the default tuning.
func DefaultOptions() Options {
	return Options{NodeLimit: DefaultNodeLimit, Tol: DefaultTol, IntTol: DefaultIntTol}
}

func (o Options) normalized() Options {
	if o.NodeLimit <= 0 {
		o.NodeLimit = DefaultNodeLimit
	}
	if o.Tol <= 0 {
		o.Tol = DefaultTol
	}
	if o.IntTol <= 0 {
		o.IntTol = DefaultIntTol
	}

	return o
}

// Backend solves models with gonum's simplex and a depth-first
// branch-and-bound over integral variables.
type Backend struct {
	opts Options
}

var _ solver.Backend = (*Backend)(nil)

// New returns a Backend.
func New(opts Options) *Backend { return &Backend{opts: opts.normalized()} }

// NewSolver returns a ready-to-use Adapter over a default Backend.
func NewSolver() *solver.Adapter { return solver.NewAdapter(New(DefaultOptions())) }

// Name implements solver.Backend.
func (b *Backend) Name() string { return Name }

type lpStatus uint8

const (
	lpOptimal lpStatus = iota
	lpInfeasible
	lpUnbounded
	lpNumerical
)

var errUnbounded = errors.New("gonumlp: relaxation is unbounded")

// relax solves one LP node. obj is in minimize form without constant terms.
func (b *Backend) relax(r *relaxation, lower, upper []float64) (obj float64, x []float64, st lpStatus, err error) {
	for j := range lower {
		if lower[j] > upper[j] {
			return 0, nil, lpInfeasible, nil
		}
	}
	s, ok := r.build(lower, upper)
	if !ok {
		return 0, nil, lpUnbounded, errUnbounded
	}
	if len(s.cols) == 0 {
		// every variable is pinned; feasibility is decided by the rows alone
		x = s.values(nil)
		if !r.satisfies(x, b.opts.IntTol) {
			return 0, nil, lpInfeasible, nil
		}

		return s.offset, x, lpOptimal, nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			st, err = lpNumerical, fmt.Errorf("gonumlp: simplex panic: %v", rec)
		}
	}()
	opt, xs, serr := lp.Simplex(s.c, s.a, s.b, b.opts.Tol, nil)
	switch {
	case serr == nil:
		return opt + s.offset, s.values(xs), lpOptimal, nil
	case errors.Is(serr, lp.ErrInfeasible):
		return 0, nil, lpInfeasible, nil
	case errors.Is(serr, lp.ErrUnbounded):
		return 0, nil, lpUnbounded, serr
	default:
		return 0, nil, lpNumerical, serr
	}
}

// fractional returns the most fractional integral variable, or -1.
// Ties go to the lowest index.
func (b *Backend) fractional(r *relaxation, x []float64) int {
	best, bestFrac := -1, b.opts.IntTol
	for j, v := range x {
		if !r.integ[j] {
			continue
		}
		f := v - math.Floor(v)
		if d := math.Min(f, 1-f); d > bestFrac {
			best, bestFrac = j, d
		}
	}

	return best
}

type node struct {
	lower, upper []float64
}

// Solve implements solver.Backend.
func (b *Backend) Solve(ctx context.Context, m *model.Model) (solver.Solution, error) {
	var (
		log  = logr.FromContextOrDiscard(ctx).WithName("gonumlp")
		n    = m.NumVars()
		sign = 1.0
	)
	if m.Objective().Sense == model.Maximize {
		sign = -1
	}
	if n == 0 {
		obj, _ := m.Evaluate(nil)
		if err := m.Check(nil, b.opts.IntTol); err != nil {
			return solver.Solution{Status: solver.StatusInfeasible}, nil
		}

		return solver.Solution{Status: solver.StatusOptimal, Values: []float64{}, Objective: obj}, nil
	}

	r := newRelaxation(m, sign)
	root := node{lower: make([]float64, n), upper: make([]float64, n)}
	for j := 0; j < n; j++ {
		v := m.Var(j)
		root.lower[j], root.upper[j] = v.Lower, v.Upper
		if r.integ[j] {
			root.lower[j] = math.Ceil(v.Lower - b.opts.IntTol)
			root.upper[j] = math.Floor(v.Upper + b.opts.IntTol)
		}
	}

	var (
		stack     = []node{root}
		nodes     int
		skipped   int
		bestObj   = math.Inf(1)
		bestX     []float64
		limitHit  bool
		cancelled error
	)
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		if nodes >= b.opts.NodeLimit {
			limitHit = true
			break
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		obj, x, st, err := b.relax(r, nd.lower, nd.upper)
		switch st {
		case lpInfeasible:
			continue
		case lpUnbounded:
			return solver.Solution{Status: solver.StatusError, Nodes: nodes, Message: err.Error()}, nil
		case lpNumerical:
			if nodes == 1 {
				return solver.Solution{Status: solver.StatusError, Nodes: nodes, Message: err.Error()}, nil
			}
			log.V(1).Info("skipping node after numerical failure", "node", nodes, "err", err.Error())
			skipped++
			continue
		}
		if obj >= bestObj-1e-9 {
			continue
		}

		j := b.fractional(r, x)
		if j < 0 {
			for k := range x {
				if r.integ[k] {
					x[k] = math.Round(x[k])
				}
			}
			val, _ := m.Evaluate(x)
			if mo := sign * val; mo < bestObj && m.Check(x, solver.CheckTolerance) == nil {
				bestObj, bestX = mo, x
				log.V(2).Info("incumbent", "objective", val, "node", nodes)
			}
			continue
		}

		fl := math.Floor(x[j])
		down := node{lower: append([]float64(nil), nd.lower...), upper: append([]float64(nil), nd.upper...)}
		down.upper[j] = fl
		up := node{lower: append([]float64(nil), nd.lower...), upper: append([]float64(nil), nd.upper...)}
		up.lower[j] = fl + 1
		// nearest side is explored first
		if x[j]-fl < 0.5 {
			stack = append(stack, up, down)
		} else {
			stack = append(stack, down, up)
		}
	}

	sol := solver.Solution{Nodes: nodes}
	if bestX != nil {
		sol.Values = bestX
		sol.Objective, _ = m.Evaluate(bestX)
	}
	switch {
	case cancelled != nil:
		if errors.Is(cancelled, context.DeadlineExceeded) {
			sol.Status = solver.StatusTimeout
			return sol, nil
		}
		sol.Status = solver.StatusError
		sol.Message = cancelled.Error()
		return sol, cancelled
	case bestX == nil && (limitHit || skipped > 0):
		sol.Status = solver.StatusError
		sol.Message = fmt.Sprintf("no incumbent after %d nodes (%d skipped)", nodes, skipped)
	case bestX == nil:
		sol.Status = solver.StatusInfeasible
	case limitHit || skipped > 0:
		sol.Status = solver.StatusFeasible
	default:
		sol.Status = solver.StatusOptimal
	}

	return sol, nil
}
