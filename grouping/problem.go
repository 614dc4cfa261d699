// Package grouping - problem resolution and staged validation.
//
// Stages stop at the first failure:
//  1. Group count (Groups xor GroupSize) and size bounds shape.
//  2. Direction against scorers, balance attribute, unassigned policy.
//  3. Item identifiers and conflict graph size.
//  4. Capacity against the item count (Infeasible, with active families).
//
// After validation the scorers are evaluated once into dense tables so the
// model builder and the local search never call user code again.

package grouping

import (
	"fmt"

	"github.com/katalvlaran/lvmatch/compat"
	"github.com/katalvlaran/lvmatch/errkind"
	"github.com/katalvlaran/lvmatch/item"
)

// problem is a validated Spec with scores materialized.
type problem struct {
	items []item.Item
	n, k  int
	min   int
	max   int

	dir  Direction
	attr int

	// pair[i][j] is the same-group score (original sign); nil without a pair scorer.
	pair [][]float64
	// unary[i] is the assignment score; nil without an item scorer.
	unary []float64
	// weight[i] is the balanced value under MinimizeImbalance.
	weight []float64

	conf  *compat.Graph
	loose bool // AllowUnassigned
}

func invalid(format string, args ...any) error {
	return &errkind.Error{Kind: errkind.InvalidConfiguration, Phase: errkind.PhaseValidate, Err: fmt.Errorf(format, args...)}
}

func newProblem(items []item.Item, s Spec) (*problem, error) {
	var (
		n = len(items)
		p = &problem{items: items, n: n, dir: s.Direction, attr: s.BalanceAttr, conf: s.Conflicts, loose: s.AllowUnassigned}
	)

	switch {
	case s.Groups > 0 && s.GroupSize > 0:
		return nil, invalid("%w: groups=%d size=%d", ErrAmbiguousCount, s.Groups, s.GroupSize)
	case s.Groups > 0:
		p.k = s.Groups
	case s.GroupSize > 0:
		p.k = max((n+s.GroupSize-1)/s.GroupSize, 1)
		if s.MaxSize == 0 {
			s.MaxSize = s.GroupSize
		}
	default:
		return nil, invalid("%w: groups=%d size=%d", ErrNoGroups, s.Groups, s.GroupSize)
	}
	if s.MinSize < 0 || s.MaxSize < 0 || (s.MaxSize > 0 && s.MinSize > s.MaxSize) {
		return nil, invalid("%w: min=%d max=%d", ErrBadBounds, s.MinSize, s.MaxSize)
	}
	p.min, p.max = s.MinSize, s.MaxSize
	if p.max == 0 || p.max > n {
		p.max = n
	}

	switch s.Direction {
	case MaximizeScore, MinimizeScore:
		if s.Pair == nil && s.Item == nil {
			return nil, invalid("%w: %s", ErrNoScorer, s.Direction)
		}
	case MinimizeImbalance:
		if s.AllowUnassigned {
			return nil, invalid("%w", ErrUnassignedBalance)
		}
	default:
		return nil, invalid("grouping: unknown direction %d", s.Direction)
	}
	if s.BalanceAttr < 0 {
		return nil, invalid("%w: %d", ErrBadAttr, s.BalanceAttr)
	}

	seen := make(map[string]struct{}, n)
	for _, it := range items {
		if _, dup := seen[it.ID()]; dup {
			return nil, invalid("%w: %q", ErrDuplicateItem, it.ID())
		}
		seen[it.ID()] = struct{}{}
	}
	if s.Conflicts != nil && s.Conflicts.Len() != n {
		return nil, invalid("%w: graph has %d items, round has %d", ErrConflictSize, s.Conflicts.Len(), n)
	}

	if n > 0 && p.k*p.min > n {
		return nil, &errkind.Error{
			Kind: errkind.Infeasible, Phase: errkind.PhaseValidate,
			Active: []string{FamilyAssignment, FamilySizeMin},
			Err:    fmt.Errorf("%w: %d groups of at least %d exceed %d items", ErrCapacity, p.k, p.min, n),
		}
	}
	if !p.loose && p.k*p.max < n {
		return nil, &errkind.Error{
			Kind: errkind.Infeasible, Phase: errkind.PhaseValidate,
			Active: []string{FamilyAssignment, FamilySizeMax},
			Err:    fmt.Errorf("%w: %d groups of at most %d cannot hold %d items", ErrCapacity, p.k, p.max, n),
		}
	}

	p.materialize(s)

	return p, nil
}

// materialize evaluates the scorers once.
func (p *problem) materialize(s Spec) {
	if s.Pair != nil && p.dir != MinimizeImbalance {
		p.pair = make([][]float64, p.n)
		for i := range p.pair {
			p.pair[i] = make([]float64, p.n)
		}
		for i := 0; i < p.n; i++ {
			for j := i + 1; j < p.n; j++ {
				v := s.Pair.Score(p.items[i], p.items[j])
				p.pair[i][j], p.pair[j][i] = v, v
			}
		}
	}
	if s.Item != nil && p.dir != MinimizeImbalance {
		p.unary = make([]float64, p.n)
		for i := range p.unary {
			p.unary[i] = s.Item.Score(p.items[i])
		}
	}
	if p.dir == MinimizeImbalance {
		p.weight = make([]float64, p.n)
		for i := range p.weight {
			if s.Item != nil {
				p.weight[i] = s.Item.Score(p.items[i])
			} else {
				p.weight[i] = p.items[i].Attr(p.attr)
			}
		}
	}
}

// objective evaluates assign in the Result's terms: total score, or spread.
func (p *problem) objective(assign []int) float64 {
	if p.dir == MinimizeImbalance {
		sums := make([]float64, p.k)
		for i, g := range assign {
			if g >= 0 {
				sums[g] += p.weight[i]
			}
		}
		lo, hi := sums[0], sums[0]
		for _, s := range sums[1:] {
			lo, hi = min(lo, s), max(hi, s)
		}

		return hi - lo
	}
	total := 0.0
	for i, g := range assign {
		if g < 0 {
			continue
		}
		if p.unary != nil {
			total += p.unary[i]
		}
		if p.pair != nil {
			for j := i + 1; j < p.n; j++ {
				if assign[j] == g {
					total += p.pair[i][j]
				}
			}
		}
	}

	return total
}

// active lists the constraint families the model carries.
func (p *problem) active() []string {
	out := []string{FamilyAssignment}
	if p.min > 0 {
		out = append(out, FamilySizeMin)
	}
	if p.max < p.n {
		out = append(out, FamilySizeMax)
	}
	if p.conf != nil && p.conf.Edges() > 0 {
		out = append(out, FamilyExclusivity)
	}

	return out
}

// canonical relabels groups by their smallest member (empty groups last),
// keeping -1 entries.
func (p *problem) canonical(assign []int) []int {
	var (
		relabel = make([]int, p.k)
		next    int
		out     = make([]int, len(assign))
	)
	for g := range relabel {
		relabel[g] = -1
	}
	for i, g := range assign {
		if g < 0 {
			out[i] = -1
			continue
		}
		if relabel[g] < 0 {
			relabel[g] = next
			next++
		}
		out[i] = relabel[g]
	}

	return out
}

func (p *problem) grouping(assign []int) item.Grouping {
	return item.FromAssignment(p.items, assign, p.k, p.attr)
}
