package grouping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/katalvlaran/lvmatch/errkind"
	"github.com/katalvlaran/lvmatch/item"
	"github.com/katalvlaran/lvmatch/solver"
)

// Optimize groups items under spec. The integer model is solved through slv
// when its variable count is within ExactVariableCeiling; otherwise (or
// when slv is nil) the local search runs and Result.Exact is false.
//
// Errors are errkind-classified: InvalidConfiguration for a malformed spec,
// Infeasible when the bounds or conflicts cannot be met, Timeout when the
// solver ran out of time (BestKnown carries the decoded incumbent grouping
// when there is one), AdapterError for backend failures.
func Optimize(ctx context.Context, items []item.Item, spec Spec, slv solver.Solver) (Result, error) {
	spec = spec.normalized()
	p, err := newProblem(items, spec)
	if err != nil {
		return Result{}, err
	}

	var (
		log   = logr.FromContextOrDiscard(ctx).WithName("grouping")
		vars  = p.variableCount()
		exact = slv != nil && spec.ExactVariableCeiling > 0 && vars <= spec.ExactVariableCeiling
	)
	log.V(1).Info("optimizing", "items", p.n, "groups", p.k, "direction", p.dir.String(), "vars", vars, "exact", exact)
	if spec.OnSolve != nil {
		spec.OnSolve(exact || p.n == 0, vars)
	}

	if p.n == 0 {
		assign := []int{}
		return Result{
			Grouping:          p.grouping(assign),
			Assignment:        assign,
			Exact:             true,
			Method:            MethodILP,
			VariableCount:     0,
			ActiveConstraints: p.active(),
		}, nil
	}

	var res Result
	if exact {
		res, err = solveExact(ctx, p, spec, slv)
	} else {
		res, err = solveHeuristic(ctx, p, spec)
	}
	if err != nil {
		return Result{}, err
	}
	res.VariableCount = vars
	res.ActiveConstraints = p.active()
	log.V(1).Info("optimized", "method", res.Method, "exact", res.Exact, "objective", res.Objective)

	return res, nil
}

func solveExact(ctx context.Context, p *problem, spec Spec, slv solver.Solver) (Result, error) {
	f, err := p.formulate()
	if err != nil {
		return Result{}, err
	}
	sol, err := slv.Solve(ctx, f.m, spec.TimeLimit)
	if err != nil {
		return Result{}, err
	}

	switch sol.Status {
	case solver.StatusOptimal, solver.StatusFeasible:
	case solver.StatusTimeout:
		e := errkind.New(errkind.Timeout, errkind.PhaseSolve, "%s exhausted %s on %d variables", sol.Backend, spec.TimeLimit, f.m.NumVars())
		if sol.HasValues() {
			e.BestKnown = p.grouping(p.canonical(f.decode(sol.Values)))
		}
		return Result{}, e
	default:
		return Result{}, solver.ErrorOf(sol, p.active())
	}

	assign := p.canonical(f.decode(sol.Values))
	if err = p.verify(assign); err != nil {
		return Result{}, err
	}

	return Result{
		Grouping:   p.grouping(assign),
		Assignment: assign,
		Objective:  p.objective(assign),
		Exact:      sol.Status == solver.StatusOptimal,
		Method:     MethodILP,
		Backend:    sol.Backend,
		Nodes:      sol.Nodes,
	}, nil
}

func solveHeuristic(ctx context.Context, p *problem, spec Spec) (Result, error) {
	var deadline time.Time
	if spec.TimeLimit > 0 {
		deadline = time.Now().Add(spec.TimeLimit)
	}
	s := newSearch(ctx, p, spec.Eps, deadline)
	s.seed()
	passes := s.improve(spec.MaxPasses)
	logr.FromContextOrDiscard(ctx).V(2).Info("local search done", "passes", passes, "moves", s.moves)

	if v := s.violations(); v > 0 {
		return Result{}, &errkind.Error{
			Kind:   errkind.Infeasible,
			Phase:  errkind.PhaseSolve,
			Active: p.active(),
			Err:    fmt.Errorf("%w: %d pairs after %d passes", ErrUnresolvedConflicts, v, passes),
		}
	}
	assign := p.canonical(s.result())
	if err := p.verify(assign); err != nil {
		return Result{}, err
	}

	return Result{
		Grouping:   p.grouping(assign),
		Assignment: assign,
		Objective:  p.objective(assign),
		Exact:      false,
		Method:     MethodLocalSearch,
	}, nil
}

var errVerify = errors.New("grouping: assignment breaks a constraint")

// verify re-checks sizes, conflicts and the unassigned policy.
func (p *problem) verify(assign []int) error {
	counts := make([]int, p.k)
	for i, g := range assign {
		if g < 0 {
			if !p.loose {
				return errkind.Wrap(errkind.Infeasible, errkind.PhaseVerify, fmt.Errorf("%w: item %q unassigned", errVerify, p.items[i].ID()))
			}
			continue
		}
		counts[g]++
	}
	for g, c := range counts {
		if c < p.min || c > p.max {
			return &errkind.Error{
				Kind: errkind.Infeasible, Phase: errkind.PhaseVerify, Constraint: fmt.Sprintf("size[%d]", g),
				Err: fmt.Errorf("%w: group %d has %d items", errVerify, g, c),
			}
		}
	}
	if bad := p.conf.Violations(assign); len(bad) > 0 {
		c := bad[0]
		return &errkind.Error{
			Kind: errkind.Infeasible, Phase: errkind.PhaseVerify, Constraint: FamilyExclusivity,
			Err: fmt.Errorf("%w: %q and %q share a group", errVerify, p.items[c.A].ID(), p.items[c.B].ID()),
		}
	}

	return nil
}
