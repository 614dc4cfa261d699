package match

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/katalvlaran/lvmatch/compat"
	"github.com/katalvlaran/lvmatch/errkind"
	"github.com/katalvlaran/lvmatch/grouping"
	"github.com/katalvlaran/lvmatch/item"
	"github.com/katalvlaran/lvmatch/partition"
	"github.com/katalvlaran/lvmatch/solver"
)

const tracerName = "github.com/katalvlaran/lvmatch/match"

// Orchestrator runs rounds. It holds no per-round state and is safe for
// concurrent use.
type Orchestrator struct {
	slv     solver.Solver
	log     logr.Logger
	tracer  trace.Tracer
	metrics *metrics
	now     func() time.Time
	newID   func() string
}

// New returns an Orchestrator solving exact models through slv. A nil slv
// confines scored rounds to the local search.
func New(slv solver.Solver, opts ...Option) (*Orchestrator, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	m, err := newMetrics(cfg.registry)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		slv:     slv,
		log:     cfg.log.WithName("match"),
		tracer:  cfg.tracer.Tracer(tracerName),
		metrics: m,
		now:     cfg.now,
		newID:   cfg.newID,
	}, nil
}

// ComputeGrouping validates one round, routes it to the partitioner or the
// grouping optimizer, and verifies the result.
//
// The returned Decision is never nil. On failure it is returned together
// with the error, its State is Infeasible (errkind.Infeasible) or Failed
// (every other kind) and its Grouping is empty.
func (o *Orchestrator) ComputeGrouping(ctx context.Context, items []item.Item, spec RoundSpec) (*Decision, error) {
	start := o.now()
	d := &Decision{RoundID: o.newID(), CreatedAt: start}
	d.enter(StateReceived)

	ctx, span := o.tracer.Start(ctx, "match.ComputeGrouping", trace.WithAttributes(
		attribute.String("round.id", d.RoundID),
		attribute.Int("round.items", len(items)),
		attribute.Int("round.groups", spec.GroupCount),
	))
	defer span.End()

	log := o.log.WithValues("round", d.RoundID)
	ctx = logr.NewContext(ctx, log)
	log.V(1).Info("round received", "items", len(items), "groups", spec.GroupCount, "min", spec.MinSize, "max", spec.MaxSize)

	if err := validate(items, spec); err != nil {
		return o.fail(span, log, d, start, err)
	}
	d.enter(StateValidated)
	items = item.ByID(items)

	var (
		g    item.Grouping
		prov Provenance
		err  error
	)
	if balanceOnly(items, spec) {
		g, prov, err = o.partition(ctx, d, items, spec)
	} else {
		g, prov, err = o.group(ctx, d, items, spec)
	}
	d.Provenance = prov
	if err != nil {
		return o.fail(span, log, d, start, err)
	}
	if err = verify(items, spec, g); err != nil {
		return o.fail(span, log, d, start, err)
	}

	d.Grouping = g
	d.Provenance.Spread = g.Spread()
	d.Provenance.Duration = o.now().Sub(start)
	d.enter(StateSolved)
	o.metrics.observe(prov.Path, prov.Method, d.State, d.Provenance.Duration)
	span.SetAttributes(
		attribute.String("round.path", prov.Path),
		attribute.String("round.method", prov.Method),
		attribute.Bool("round.exact", prov.Exact),
		attribute.Float64("round.objective", prov.Objective),
	)
	span.SetStatus(codes.Ok, "")
	log.Info("round solved", "path", prov.Path, "method", prov.Method, "exact", prov.Exact,
		"objective", prov.Objective, "spread", d.Provenance.Spread, "duration", d.Provenance.Duration)

	return d, nil
}

// balanceOnly reports whether the round is a pure balance problem the
// partitioner can take: no pair restrictions, every item placed, no more
// groups than items and non-negative finite weights.
func balanceOnly(items []item.Item, spec RoundSpec) bool {
	if spec.BalanceTarget == nil || spec.Compatible != nil || len(spec.Conflicts) > 0 || spec.AllowUnassigned {
		return false
	}
	if len(items) > 0 && spec.GroupCount > len(items) {
		return false
	}
	for _, it := range items {
		w := it.Attr(*spec.BalanceTarget)
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return false
		}
	}

	return true
}

func (o *Orchestrator) partition(ctx context.Context, d *Decision, items []item.Item, spec RoundSpec) (item.Grouping, Provenance, error) {
	var (
		attr = *spec.BalanceTarget
		n    = len(items)
		opts = partition.Options{
			ExactItemLimit: spec.ExactVariableCeiling,
			MinSize:        spec.MinSize,
			MaxSize:        spec.MaxSize,
			TimeLimit:      spec.TimeLimit,
		}
		limit = opts.ExactItemLimit
		prov  = Provenance{Path: PathPartition, VariableCount: n, ActiveConstraints: []string{grouping.FamilyAssignment}}
	)
	if limit == 0 {
		limit = partition.DefaultExactItemLimit
	}
	if spec.MinSize > 0 {
		prov.ActiveConstraints = append(prov.ActiveConstraints, grouping.FamilySizeMin)
	}
	if spec.MaxSize > 0 {
		prov.ActiveConstraints = append(prov.ActiveConstraints, grouping.FamilySizeMax)
	}
	if limit > 0 && n <= limit {
		d.enter(StateSolvingExact)
	} else {
		d.enter(StateSolvingHeuristic)
	}

	res, err := partition.Partition(ctx, item.Column(items, attr), spec.GroupCount, opts)
	if err != nil {
		return item.Grouping{}, prov, err
	}
	prov.Method = res.Method
	prov.Exact = res.Exact
	prov.Objective = res.Spread
	if res.TimedOut {
		logr.FromContextOrDiscard(ctx).Info("exact partition timed out, keeping incumbent", "spread", res.Spread)
	}

	return item.FromAssignment(items, res.Assignment(n), spec.GroupCount, attr), prov, nil
}

func (o *Orchestrator) group(ctx context.Context, d *Decision, items []item.Item, spec RoundSpec) (item.Grouping, Provenance, error) {
	prov := Provenance{Path: PathGrouping}
	conf, err := conflicts(items, spec)
	if err != nil {
		return item.Grouping{}, prov, err
	}

	gs := grouping.Spec{
		Groups:               spec.GroupCount,
		MinSize:              spec.MinSize,
		MaxSize:              spec.MaxSize,
		Direction:            spec.Direction,
		Pair:                 spec.Score,
		Item:                 spec.ItemScore,
		Conflicts:            conf,
		AllowUnassigned:      spec.AllowUnassigned,
		ExactVariableCeiling: spec.ExactVariableCeiling,
		TimeLimit:            spec.TimeLimit,
		OnSolve: func(exact bool, vars int) {
			prov.VariableCount = vars
			if exact {
				d.enter(StateSolvingExact)
			} else {
				d.enter(StateSolvingHeuristic)
			}
		},
	}
	if spec.BalanceTarget != nil {
		gs.Direction = grouping.MinimizeImbalance
		gs.BalanceAttr = *spec.BalanceTarget
	}

	res, err := grouping.Optimize(ctx, items, gs, o.slv)
	if err != nil {
		return item.Grouping{}, prov, err
	}
	prov.Method = res.Method
	prov.Exact = res.Exact
	prov.Objective = res.Objective
	prov.ActiveConstraints = res.ActiveConstraints
	prov.VariableCount = res.VariableCount
	prov.Backend = res.Backend

	return res.Grouping, prov, nil
}

// conflicts merges the compatibility predicate and the explicit pairs into
// one graph. Nil when the round has neither.
func conflicts(items []item.Item, spec RoundSpec) (*compat.Graph, error) {
	if spec.Compatible == nil && len(spec.Conflicts) == 0 {
		return nil, nil
	}

	var (
		g   *compat.Graph
		err error
	)
	if spec.Compatible != nil {
		g, err = compat.FromPredicate(items, spec.Compatible)
	} else {
		g, err = compat.New(item.IDs(items))
	}
	if err != nil {
		return nil, errkind.Wrap(errkind.InvalidConfiguration, errkind.PhaseValidate, err)
	}
	for _, c := range spec.Conflicts {
		if err = g.AddConflict(c[0], c[1]); err != nil {
			return nil, errkind.Wrap(errkind.InvalidConfiguration, errkind.PhaseValidate, err)
		}
	}

	return g, nil
}

// fail moves d to its terminal failure state and returns it with err.
func (o *Orchestrator) fail(span trace.Span, log logr.Logger, d *Decision, start time.Time, err error) (*Decision, error) {
	kind := errkind.KindOf(err)
	if kind == errkind.Unknown {
		kind = errkind.AdapterError
		if errors.Is(err, context.DeadlineExceeded) {
			kind = errkind.Timeout
		}
		err = errkind.Wrap(kind, errkind.PhaseSolve, err)
	}
	if kind == errkind.Infeasible {
		d.enter(StateInfeasible)
	} else {
		d.enter(StateFailed)
	}
	d.Grouping = item.Grouping{}
	d.Provenance.Duration = o.now().Sub(start)
	o.metrics.observe(d.Provenance.Path, d.Provenance.Method, d.State, d.Provenance.Duration)

	span.RecordError(err)
	span.SetStatus(codes.Error, kind.String())
	log.Info("round not solved", "state", d.State.String(), "kind", kind.String(), "error", err.Error())

	return d, err
}
