// Package maxpart splits a limited supply of addends into as many groups
// summing to a target as possible.
//
// The problem is solved in two phases:
//
//  1. Plans: every multiset of the supplied addend values that sums to the
//     target (partition.IntegerPartitions), ignoring supply.
//  2. Counts: an integer model with one variable per plan (how many times
//     the plan is used), one supply row per addend
//     Σ_p count_p · mult(p, a) ≤ supply(a), maximizing Σ_p count_p.
//
// Phase 2 goes through a solver.Solver, so the usual status mapping applies:
// Timeout errors carry the best known Result in errkind.Error.BestKnown.
//
// Example: supply {1:100, 2:40, 5:10} and target 10 give ten plans and a
// total of 23 groups, which is also the value bound 230/10.
package maxpart

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/go-logr/logr"

	"github.com/katalvlaran/lvmatch/errkind"
	"github.com/katalvlaran/lvmatch/model"
	"github.com/katalvlaran/lvmatch/partition"
	"github.com/katalvlaran/lvmatch/solver"
)

// Sentinel errors, classified InvalidConfiguration.
var (
	ErrBadTarget = errors.New("maxpart: target must be positive")
	ErrBadSupply = errors.New("maxpart: addends must be positive with non-negative supply")
	ErrBadPlan   = errors.New("maxpart: plan does not sum to the target over supplied addends")
	ErrNoSolver  = errors.New("maxpart: solver required")
)

// DefaultMaxPlans caps phase 1 enumeration.
const DefaultMaxPlans = 5000

// Options configures Solve.
type Options struct {
	// MaxPlans caps the number of enumerated plans (0 = DefaultMaxPlans,
	// negative = unlimited).
	MaxPlans  int
	TimeLimit time.Duration
}

// Plan is one composition of the target and how many times it is used.
type Plan struct {
	Addends map[int64]int64 `json:"addends"`
	Count   int64           `json:"count"`
}

// Uses returns the multiplicity of addend a in one instance of the plan.
func (p Plan) Uses(a int64) int64 { return p.Addends[a] }

// Result is the outcome of Solve.
type Result struct {
	// Plans lists the plans with a positive count, in enumeration order.
	Plans []Plan `json:"plans"`
	// Total is the sum of plan counts.
	Total int64 `json:"total"`
	// Considered is the number of plans offered to phase 2.
	Considered int    `json:"considered"`
	Exact      bool   `json:"exact"`
	Backend    string `json:"backend,omitempty"`
}

// Used sums addend consumption over every plan instance.
func (r Result) Used() map[int64]int64 {
	out := make(map[int64]int64)
	for _, p := range r.Plans {
		for a, m := range p.Addends {
			out[a] += m * p.Count
		}
	}

	return out
}

func invalid(format string, args ...any) error {
	return &errkind.Error{Kind: errkind.InvalidConfiguration, Phase: errkind.PhaseValidate, Err: fmt.Errorf(format, args...)}
}

func validateSupply(supply map[int64]int64, target int64) error {
	if target <= 0 {
		return invalid("%w: %d", ErrBadTarget, target)
	}
	for a, c := range supply {
		if a <= 0 || c < 0 {
			return invalid("%w: %d x %d", ErrBadSupply, a, c)
		}
	}

	return nil
}

// Solve enumerates the plans for target and maximizes their instance count
// under supply (addend value -> available count).
func Solve(ctx context.Context, supply map[int64]int64, target int64, slv solver.Solver, opts Options) (Result, error) {
	if err := validateSupply(supply, target); err != nil {
		return Result{}, err
	}
	addends := make([]int64, 0, len(supply))
	for a, c := range supply {
		if c > 0 && a <= target {
			addends = append(addends, a)
		}
	}
	if len(addends) == 0 {
		return Result{Exact: true}, nil
	}

	limit := opts.MaxPlans
	if limit == 0 {
		limit = DefaultMaxPlans
	} else if limit < 0 {
		limit = 0
	}
	plans, err := partition.IntegerPartitions(addends, target, limit)
	if err != nil {
		return Result{}, errkind.Wrap(errkind.InvalidConfiguration, errkind.PhaseBuild, err)
	}
	logr.FromContextOrDiscard(ctx).V(1).Info("plans enumerated", "target", target, "addends", len(addends), "plans", len(plans))

	return solvePlans(ctx, supply, plans, slv, opts)
}

// SolveWithPlans skips phase 1 and maximizes the instance count of the
// given plans. Every plan must sum to target over supplied addends.
func SolveWithPlans(ctx context.Context, supply map[int64]int64, target int64, plans []map[int64]int64, slv solver.Solver, opts Options) (Result, error) {
	if err := validateSupply(supply, target); err != nil {
		return Result{}, err
	}
	for i, p := range plans {
		var sum int64
		for a, m := range p {
			if _, ok := supply[a]; !ok || m < 0 {
				return Result{}, invalid("%w: plan %d uses %d x %d", ErrBadPlan, i, a, m)
			}
			sum += a * m
		}
		if sum != target {
			return Result{}, invalid("%w: plan %d sums to %d", ErrBadPlan, i, sum)
		}
	}

	return solvePlans(ctx, supply, plans, slv, opts)
}

func solvePlans(ctx context.Context, supply map[int64]int64, plans []map[int64]int64, slv solver.Solver, opts Options) (Result, error) {
	if len(plans) == 0 {
		return Result{Exact: true}, nil
	}
	if slv == nil {
		return Result{}, invalid("%w", ErrNoSolver)
	}

	m, counts, err := formulate(supply, plans)
	if err != nil {
		return Result{}, err
	}
	sol, err := slv.Solve(ctx, m, opts.TimeLimit)
	if err != nil {
		return Result{}, err
	}

	switch sol.Status {
	case solver.StatusOptimal, solver.StatusFeasible:
	case solver.StatusTimeout:
		e := errkind.New(errkind.Timeout, errkind.PhaseSolve, "%s exhausted %s on %d plans", sol.Backend, opts.TimeLimit, len(plans))
		if sol.HasValues() {
			e.BestKnown = decode(plans, counts, sol)
		}
		return Result{}, e
	default:
		return Result{}, solver.ErrorOf(sol, []string{"supply"})
	}

	return decode(plans, counts, sol), nil
}

// formulate builds the phase 2 model. Count upper bounds are the largest
// supply, since a plan uses at least one addend per instance.
func formulate(supply map[int64]int64, plans []map[int64]int64) (*model.Model, []model.VarRef, error) {
	var (
		b      = model.NewIntegerBuilder()
		counts = make([]model.VarRef, len(plans))
		top    int64
		obj    = make([]model.Term, len(plans))
		err    error
	)
	for _, c := range supply {
		top = max(top, c)
	}
	for i := range plans {
		if counts[i], err = b.AddVariable(fmt.Sprintf("plan[%d]", i), model.Integer, 0, float64(top)); err != nil {
			return nil, nil, err
		}
		obj[i] = model.T(counts[i], 1)
	}

	values := make([]int64, 0, len(supply))
	for a := range supply {
		values = append(values, a)
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	for _, a := range values {
		var row []model.Term
		for i, p := range plans {
			if m := p[a]; m > 0 {
				row = append(row, model.T(counts[i], float64(m)))
			}
		}
		if len(row) == 0 {
			continue
		}
		if _, err = b.AddConstraint(fmt.Sprintf("supply[%d]", a), model.SourceCapacity, model.Sum(row...), model.LE, float64(supply[a])); err != nil {
			return nil, nil, err
		}
	}
	if err = b.SetObjective(model.Sum(obj...), model.Maximize); err != nil {
		return nil, nil, err
	}
	m, err := b.Freeze()
	if err != nil {
		return nil, nil, err
	}

	return m, counts, nil
}

func decode(plans []map[int64]int64, counts []model.VarRef, sol solver.Solution) Result {
	res := Result{Considered: len(plans), Exact: sol.IsOptimal(), Backend: sol.Backend}
	for i, p := range plans {
		c := int64(math.Round(sol.Value(counts[i])))
		if c <= 0 {
			continue
		}
		res.Plans = append(res.Plans, Plan{Addends: p, Count: c})
		res.Total += c
	}

	return res
}
