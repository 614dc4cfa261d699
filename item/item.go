// Package item - the round-scoped data model: Items, Groups and Groupings.
//
// An Item is an identifier plus an ordered attribute vector. It is immutable
// once constructed: New copies the caller's slice and accessors never expose
// the backing array. A Grouping is the externally visible result of a round;
// every Group carries aggregate statistics (sum, mean, population variance)
// of the attribute used for balancing.
//
// Complexity:
//   - NewGroup: O(m) for m members.
//   - Grouping.Cover: O(n) with one map.
package item

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/lvmatch/errkind"
)

// Item is a unit to be grouped. The zero value has an empty ID and no attributes.
type Item struct {
	id    string
	attrs []float64
}

// New returns an Item with a private copy of attrs.
func New(id string, attrs ...float64) Item {
	cp := make([]float64, len(attrs))
	copy(cp, attrs)

	return Item{id: id, attrs: cp}
}

// ID returns the item identifier.
func (it Item) ID() string { return it.id }

// Arity returns the number of attributes.
func (it Item) Arity() int { return len(it.attrs) }

// Attr returns attribute i, or 0 when i is out of range.
func (it Item) Attr(i int) float64 {
	if i < 0 || i >= len(it.attrs) {
		return 0
	}

	return it.attrs[i]
}

// Attrs returns a copy of the attribute vector.
func (it Item) Attrs() []float64 {
	cp := make([]float64, len(it.attrs))
	copy(cp, it.attrs)

	return cp
}

// Column extracts attribute attr of every item, in order.
func Column(items []Item, attr int) []float64 {
	out := make([]float64, len(items))
	for i := range items {
		out[i] = items[i].Attr(attr)
	}

	return out
}

// IDs returns the identifiers of items, in order.
func IDs(items []Item) []string {
	out := make([]string, len(items))
	for i := range items {
		out[i] = items[i].id
	}

	return out
}

// ByID returns a copy of items ordered by identifier. Solvers that break ties
// by position then break them by lowest identifier.
func ByID(items []Item) []Item {
	out := append([]Item(nil), items...)
	sort.SliceStable(out, func(a, b int) bool { return out[a].id < out[b].id })

	return out
}

// Group is one named subset of a Grouping.
type Group struct {
	Name     string   `json:"name"`
	ItemIDs  []string `json:"item_ids"`
	Sum      float64  `json:"sum"`
	Mean     float64  `json:"mean"`
	Variance float64  `json:"variance"`
}

// Size returns the number of members.
func (g Group) Size() int { return len(g.ItemIDs) }

// NewGroup builds a Group from members, computing statistics over attribute
// attr. Member order is preserved. An empty group has zero statistics.
func NewGroup(name string, members []Item, attr int) Group {
	g := Group{Name: name, ItemIDs: IDs(members)}
	if len(members) == 0 {
		return g
	}
	var (
		xs = Column(members, attr)
		i  int
	)
	for i = range xs {
		g.Sum += xs[i]
	}
	g.Mean, g.Variance = stat.PopMeanVariance(xs, nil)

	return g
}

// GroupName returns the canonical name of the i-th group (0-based).
func GroupName(i int) string { return fmt.Sprintf("group-%d", i+1) }

// Grouping partitions a round's items into named Groups.
type Grouping struct {
	Groups     []Group  `json:"groups"`
	Unassigned []string `json:"unassigned,omitempty"`
	// Attr is the attribute index the statistics were computed on.
	Attr int `json:"attr"`
}

// FromAssignment builds a Grouping from a per-item group index vector.
// assign[i] < 0 marks item i unassigned. Members keep input order.
func FromAssignment(items []Item, assign []int, k int, attr int) Grouping {
	var (
		buckets = make([][]Item, k)
		out     = Grouping{Attr: attr}
		i, g    int
	)
	for i = range items {
		g = assign[i]
		if g < 0 || g >= k {
			out.Unassigned = append(out.Unassigned, items[i].id)
			continue
		}
		buckets[g] = append(buckets[g], items[i])
	}
	out.Groups = make([]Group, k)
	for g = 0; g < k; g++ {
		out.Groups[g] = NewGroup(GroupName(g), buckets[g], attr)
	}

	return out
}

// Sums returns the per-group sums.
func (gr Grouping) Sums() []float64 {
	out := make([]float64, len(gr.Groups))
	for i := range gr.Groups {
		out[i] = gr.Groups[i].Sum
	}

	return out
}

// Spread returns max(sum) - min(sum) across groups, or 0 when there are none.
func (gr Grouping) Spread() float64 {
	if len(gr.Groups) == 0 {
		return 0
	}
	lo, hi := gr.Groups[0].Sum, gr.Groups[0].Sum
	for _, g := range gr.Groups[1:] {
		if g.Sum < lo {
			lo = g.Sum
		}
		if g.Sum > hi {
			hi = g.Sum
		}
	}

	return hi - lo
}

// Cover verifies that every item appears in exactly one group (or in
// Unassigned when allowUnassigned is set) and that no foreign ID appears.
// Violations are reported as errkind.Infeasible in the verify phase.
func (gr Grouping) Cover(items []Item, allowUnassigned bool) error {
	var (
		seen = make(map[string]int, len(items))
		id   string
	)
	for _, it := range items {
		seen[it.id] = 0
	}
	mark := func(id string) error {
		n, ok := seen[id]
		if !ok {
			return errkind.New(errkind.Infeasible, errkind.PhaseVerify, "unknown item %q in grouping", id)
		}
		if n > 0 {
			return errkind.New(errkind.Infeasible, errkind.PhaseVerify, "item %q assigned more than once", id)
		}
		seen[id] = n + 1

		return nil
	}
	for _, g := range gr.Groups {
		for _, id = range g.ItemIDs {
			if err := mark(id); err != nil {
				return err
			}
		}
	}
	if len(gr.Unassigned) > 0 && !allowUnassigned {
		return errkind.New(errkind.Infeasible, errkind.PhaseVerify, "%d items unassigned", len(gr.Unassigned))
	}
	for _, id = range gr.Unassigned {
		if err := mark(id); err != nil {
			return err
		}
	}
	var missing []string
	for id, n := range seen {
		if n == 0 {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)

		return errkind.New(errkind.Infeasible, errkind.PhaseVerify, "items missing from grouping: %v", missing)
	}

	return nil
}
