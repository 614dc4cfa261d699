// Package match - round validation (Received -> Validated).
//
// Stages stop at the first failure:
//  1. Item identifiers: non-empty, unique; attribute arity consistent.
//  2. Group count and size bounds shape.
//  3. Objective: exactly one of balance target and scorer; direction.
//  4. Explicit conflict pairs reference known, distinct items.
//  5. Capacity: GroupCount groups within [MinSize, MaxSize] must hold the
//     items (Infeasible, with active families).

package match

import (
	"fmt"

	"github.com/katalvlaran/lvmatch/errkind"
	"github.com/katalvlaran/lvmatch/grouping"
	"github.com/katalvlaran/lvmatch/item"
)

func invalid(err error) error {
	return &errkind.Error{Kind: errkind.InvalidConfiguration, Phase: errkind.PhaseValidate, Err: err}
}

func validate(items []item.Item, spec RoundSpec) error {
	var (
		n     = len(items)
		seen  = make(map[string]struct{}, n)
		arity = -1
	)
	for i, it := range items {
		if it.ID() == "" {
			return invalid(fmt.Errorf("%w: position %d", ErrEmptyID, i))
		}
		if _, dup := seen[it.ID()]; dup {
			return invalid(fmt.Errorf("%w: %q", ErrDuplicateID, it.ID()))
		}
		seen[it.ID()] = struct{}{}
		if arity < 0 {
			arity = it.Arity()
		} else if it.Arity() != arity {
			return invalid(fmt.Errorf("%w: %q has %d attributes, expected %d", ErrArity, it.ID(), it.Arity(), arity))
		}
	}

	if spec.GroupCount <= 0 {
		return invalid(fmt.Errorf("%w: %d", ErrGroupCount, spec.GroupCount))
	}
	if spec.MinSize < 0 || spec.MaxSize < 0 || (spec.MaxSize > 0 && spec.MinSize > spec.MaxSize) {
		return invalid(fmt.Errorf("%w: min=%d max=%d", ErrBounds, spec.MinSize, spec.MaxSize))
	}

	scored := spec.Score != nil || spec.ItemScore != nil
	if (spec.BalanceTarget != nil) == scored {
		return invalid(ErrObjective)
	}
	if spec.BalanceTarget != nil {
		if t := *spec.BalanceTarget; t < 0 || (n > 0 && t >= arity) {
			return invalid(fmt.Errorf("%w: %d with arity %d", ErrBalanceTarget, t, arity))
		}
	} else if spec.Direction != grouping.MaximizeScore && spec.Direction != grouping.MinimizeScore {
		return invalid(fmt.Errorf("%w: got %s", ErrDirection, spec.Direction))
	}

	for _, c := range spec.Conflicts {
		_, okA := seen[c[0]]
		_, okB := seen[c[1]]
		if !okA || !okB || c[0] == c[1] {
			return invalid(fmt.Errorf("%w: %q-%q", ErrConflict, c[0], c[1]))
		}
	}

	if n > 0 && spec.GroupCount*spec.MinSize > n {
		return &errkind.Error{
			Kind: errkind.Infeasible, Phase: errkind.PhaseValidate,
			Active: []string{grouping.FamilyAssignment, grouping.FamilySizeMin},
			Err:    fmt.Errorf("%w: %d groups of at least %d exceed %d items", ErrCapacity, spec.GroupCount, spec.MinSize, n),
		}
	}
	if !spec.AllowUnassigned && spec.MaxSize > 0 && spec.GroupCount*spec.MaxSize < n {
		return &errkind.Error{
			Kind: errkind.Infeasible, Phase: errkind.PhaseValidate,
			Active: []string{grouping.FamilyAssignment, grouping.FamilySizeMax},
			Err:    fmt.Errorf("%w: %d groups of at most %d cannot hold %d items", ErrCapacity, spec.GroupCount, spec.MaxSize, n),
		}
	}

	return nil
}

// verify re-checks the final Grouping against the round.
func verify(items []item.Item, spec RoundSpec, g item.Grouping) error {
	if err := g.Cover(items, spec.AllowUnassigned); err != nil {
		return err
	}
	if len(g.Groups) != spec.GroupCount {
		return errkind.New(errkind.Infeasible, errkind.PhaseVerify, "%v: %d groups, want %d", ErrCoverage, len(g.Groups), spec.GroupCount)
	}
	for _, gr := range g.Groups {
		if gr.Size() < spec.MinSize || (spec.MaxSize > 0 && gr.Size() > spec.MaxSize) {
			return &errkind.Error{
				Kind: errkind.Infeasible, Phase: errkind.PhaseVerify, Constraint: gr.Name,
				Err: fmt.Errorf("%w: %s has %d items", ErrCoverage, gr.Name, gr.Size()),
			}
		}
	}

	return nil
}
