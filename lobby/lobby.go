// Package lobby forms games out of waiting parties.
//
// Match runs three stages over the units waiting at a given instant:
//
//  1. Feasible teams: unit sets filling exactly UsersPerTeam seats whose
//     members accept each other's rank and skill.
//  2. Candidate games: TeamsPerGame disjoint, mutually compatible teams;
//     only the MaxGames best by score are kept.
//  3. Selection: a set-packing integer model (each unit in at most one
//     game, maximize the number of games) solved through a solver.Solver.
//     Without a solver, candidates are taken greedily by score.
//
// Acceptance ranges widen with waiting time according to a Tolerance, so the
// same pool may match later when it did not match now.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"
	"time"

	"github.com/go-logr/logr"

	"github.com/katalvlaran/lvmatch/compat"
	"github.com/katalvlaran/lvmatch/errkind"
	"github.com/katalvlaran/lvmatch/item"
	"github.com/katalvlaran/lvmatch/model"
	"github.com/katalvlaran/lvmatch/solver"
)

// Selection methods reported in Result.Method.
const (
	MethodSetPacking = "set-packing"
	MethodGreedy     = "greedy"
)

// Matchmaker is safe for concurrent use.
type Matchmaker struct {
	crit      Criteria
	tol       Tolerance
	slv       solver.Solver
	timeLimit time.Duration
}

// New validates criteria and tolerance. slv may be nil.
func New(crit Criteria, tol Tolerance, slv solver.Solver, timeLimit time.Duration) (*Matchmaker, error) {
	if crit.TeamsPerGame <= 0 || crit.UsersPerTeam <= 0 {
		return nil, &errkind.Error{Kind: errkind.InvalidConfiguration, Phase: errkind.PhaseValidate,
			Err: fmt.Errorf("%w: %d teams of %d", ErrCriteria, crit.TeamsPerGame, crit.UsersPerTeam)}
	}
	if !tol.valid() {
		return nil, &errkind.Error{Kind: errkind.InvalidConfiguration, Phase: errkind.PhaseValidate,
			Err: fmt.Errorf("%w: rank %s skill %s", ErrTolerance, tol.RankWindow, tol.SkillWindow)}
	}

	return &Matchmaker{crit: crit.normalized(), tol: tol, slv: slv, timeLimit: timeLimit}, nil
}

// Criteria returns the normalized criteria.
func (m *Matchmaker) Criteria() Criteria { return m.crit }

// Tolerance returns the tolerance in use.
func (m *Matchmaker) Tolerance() Tolerance { return m.tol }

// Game is one selected game: unit IDs per team.
type Game struct {
	Teams [][]string `json:"teams"`
	Score float64    `json:"score"`
}

// Units lists every unit ID of the game, team by team.
func (g Game) Units() []string {
	var out []string
	for _, t := range g.Teams {
		out = append(out, t...)
	}

	return out
}

// Result is the outcome of Match.
type Result struct {
	Games []Game `json:"games"`
	// Unmatched lists the IDs of units left waiting, in input order.
	Unmatched []string `json:"unmatched"`
	// FeasibleTeams and CandidateGames size the intermediate stages.
	FeasibleTeams  int    `json:"feasible_teams"`
	CandidateGames int    `json:"candidate_games"`
	Truncated      bool   `json:"truncated"`
	Exact          bool   `json:"exact"`
	Method         string `json:"method"`

	units []Unit
}

// Grouping renders every team of every game as a group of unit items (see
// Unit.Item); unmatched units are reported as unassigned. Group statistics
// are computed on attr.
func (r Result) Grouping(attr int) item.Grouping {
	byID := make(map[string]Unit, len(r.units))
	for _, u := range r.units {
		byID[u.ID] = u
	}
	var out item.Grouping
	out.Attr = attr
	for gi, g := range r.Games {
		for ti, t := range g.Teams {
			members := make([]item.Item, len(t))
			for k, id := range t {
				members[k] = byID[id].Item()
			}
			out.Groups = append(out.Groups, item.NewGroup(fmt.Sprintf("game-%d/team-%d", gi+1, ti+1), members, attr))
		}
	}
	out.Unassigned = append([]string(nil), r.Unmatched...)

	return out
}

// validUnits checks identifiers and sizes.
func (m *Matchmaker) validUnits(units []Unit) error {
	seen := make(map[string]struct{}, len(units))
	for i, u := range units {
		if u.ID == "" || u.Size() == 0 || math.IsNaN(u.Skill) || math.IsInf(u.Skill, 0) {
			return &errkind.Error{Kind: errkind.InvalidConfiguration, Phase: errkind.PhaseValidate,
				Err: fmt.Errorf("%w: position %d (%q, %d users)", ErrUnit, i, u.ID, u.Size())}
		}
		if _, dup := seen[u.ID]; dup {
			return &errkind.Error{Kind: errkind.InvalidConfiguration, Phase: errkind.PhaseValidate,
				Err: fmt.Errorf("%w: %q", ErrDuplicate, u.ID)}
		}
		seen[u.ID] = struct{}{}
	}

	return nil
}

// Match forms games from units waiting at now.
func (m *Matchmaker) Match(ctx context.Context, units []Unit, now time.Time) (Result, error) {
	if err := m.validUnits(units); err != nil {
		return Result{}, err
	}
	log := logr.FromContextOrDiscard(ctx).WithName("lobby")

	// Sort by size; units larger than a team can never play.
	sorted := make([]Unit, 0, len(units))
	for _, u := range units {
		if u.Size() <= m.crit.UsersPerTeam {
			sorted = append(sorted, u)
		}
	}
	sort.SliceStable(sorted, func(a, b int) bool { return sorted[a].Size() < sorted[b].Size() })
	profiles := make([]Profile, len(sorted))
	for i, u := range sorted {
		profiles[i] = m.tol.Profile(u, now)
	}

	res := Result{units: units, Exact: true, Method: MethodSetPacking}
	teams, truncated, err := m.teams(ctx, sorted, profiles, now)
	if err != nil {
		return Result{}, stageError(err)
	}
	cands, err := m.games(ctx, teams, now)
	if err != nil {
		return Result{}, stageError(err)
	}
	res.FeasibleTeams, res.CandidateGames = len(teams), len(cands)
	res.Truncated = truncated || len(cands) >= m.crit.MaxGames
	log.V(1).Info("candidates", "units", len(units), "teams", len(teams), "games", len(cands), "truncated", res.Truncated)

	var chosen []int
	if m.slv == nil {
		chosen = greedy(cands)
		res.Exact, res.Method = false, MethodGreedy
	} else if chosen, res.Exact, err = m.pack(ctx, len(sorted), cands); err != nil {
		return Result{}, err
	}

	used := make(map[string]bool)
	for _, ci := range chosen {
		c := cands[ci]
		g := Game{Score: c.score}
		for _, ti := range c.teams {
			ids := make([]string, len(teams[ti].Members))
			for k, ui := range teams[ti].Members {
				ids[k] = sorted[ui].ID
				used[ids[k]] = true
			}
			g.Teams = append(g.Teams, ids)
		}
		res.Games = append(res.Games, g)
	}
	for _, u := range units {
		if !used[u.ID] {
			res.Unmatched = append(res.Unmatched, u.ID)
		}
	}
	log.Info("matched", "games", len(res.Games), "unmatched", len(res.Unmatched), "method", res.Method, "exact", res.Exact)

	return res, nil
}

func stageError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errkind.Wrap(errkind.Timeout, errkind.PhaseSolve, err)
	}

	return errkind.Wrap(errkind.AdapterError, errkind.PhaseSolve, err)
}

// greedy takes candidates in score order while they stay disjoint.
func greedy(cands []candidate) []int {
	var (
		out   []int
		taken []candidate
	)
	for i, c := range cands {
		ok := true
		for _, t := range taken {
			if new(big.Int).And(t.mask, c.mask).Sign() != 0 {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, i)
			taken = append(taken, c)
		}
	}

	return out
}

// pack solves the set-packing model over the candidates.
func (m *Matchmaker) pack(ctx context.Context, units int, cands []candidate) ([]int, bool, error) {
	if len(cands) == 0 {
		return nil, true, nil
	}
	b := model.NewIntegerBuilder()
	vars := make([]model.VarRef, len(cands))
	obj := make([]model.Term, len(cands))
	rows := make([][]model.Term, units)
	for j, c := range cands {
		v, err := b.AddVariable(fmt.Sprintf("game[%d]", j), model.Binary, 0, 1)
		if err != nil {
			return nil, false, err
		}
		vars[j], obj[j] = v, model.T(v, 1)
		for i := 0; i < units; i++ {
			if c.mask.Bit(i) == 1 {
				rows[i] = append(rows[i], model.T(v, 1))
			}
		}
	}
	for i, r := range rows {
		if len(r) < 2 {
			continue
		}
		if _, err := b.AddConstraint(fmt.Sprintf("unit[%d]", i), model.SourceExclusivity, model.Sum(r...), model.LE, 1); err != nil {
			return nil, false, err
		}
	}
	if err := b.SetObjective(model.Sum(obj...), model.Maximize); err != nil {
		return nil, false, err
	}
	mdl, err := b.Freeze()
	if err != nil {
		return nil, false, err
	}

	sol, err := m.slv.Solve(ctx, mdl, m.timeLimit)
	if err != nil {
		return nil, false, err
	}
	switch sol.Status {
	case solver.StatusOptimal, solver.StatusFeasible:
	case solver.StatusTimeout:
		if !sol.HasValues() {
			return greedy(cands), false, nil
		}
	default:
		return nil, false, solver.ErrorOf(sol, []string{"unit"})
	}

	var out []int
	for j, v := range vars {
		if sol.Value(v) > 0.5 {
			out = append(out, j)
		}
	}

	return out, sol.IsOptimal(), nil
}

// Conflicts returns the conflict graph of units at now: an edge joins two
// units that do not accept each other. It lets the match orchestrator group
// arbitrary unit sets under the same compatibility rule.
func (m *Matchmaker) Conflicts(units []Unit, now time.Time) (*compat.Graph, error) {
	items := make([]item.Item, len(units))
	byID := make(map[string]Profile, len(units))
	for i, u := range units {
		items[i] = u.Item()
		byID[u.ID] = m.tol.Profile(u, now)
	}

	return compat.FromPredicate(items, m.CompatibleItems(byID))
}

// CompatibleItems adapts Compatible to unit items through their profiles.
// Items without a profile are compatible with everything.
func (m *Matchmaker) CompatibleItems(profiles map[string]Profile) func(a, b item.Item) bool {
	return func(a, b item.Item) bool {
		pa, okA := profiles[a.ID()]
		pb, okB := profiles[b.ID()]
		if !okA || !okB {
			return true
		}

		return Compatible(pa, pb)
	}
}
