// Package compat models pairwise incompatibility between the items of one round.
//
// A Graph is an undirected conflict graph over item positions 0..n-1 backed
// by gonum's simple.UndirectedGraph: an edge {i, j} forbids items i and j
// from sharing a group. The grouping layer turns every edge into one
// exclusivity row per group; the heuristic counts same-group edges as
// violations.
//
// Contracts:
//   - Node IDs equal item positions; item identifiers are resolved once.
//   - Self-conflicts and unknown identifiers are rejected.
//   - Every listing (Pairs, Neighbors, Components) is sorted and deterministic.
//
// Complexity:
//   - AddConflict, HasConflict: O(1) expected.
//   - Pairs, Components: O(n + e log e).
package compat

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/katalvlaran/lvmatch/item"
)

var (
	// ErrUnknownItem is returned for identifiers or positions outside the round.
	ErrUnknownItem = errors.New("compat: unknown item")

	// ErrSelfConflict is returned when an item is declared incompatible with itself.
	ErrSelfConflict = errors.New("compat: item cannot conflict with itself")

	// ErrDuplicateItem is returned when identifiers repeat.
	ErrDuplicateItem = errors.New("compat: duplicate item identifier")
)

// Pair is an unordered conflict with A < B.
type Pair struct {
	A, B int
}

// Graph is the conflict graph of one round. Not safe for concurrent mutation.
type Graph struct {
	ids   []string
	index map[string]int
	g     *simple.UndirectedGraph
}

// New returns a conflict-free graph over ids.
func New(ids []string) (*Graph, error) {
	c := &Graph{
		ids:   append([]string(nil), ids...),
		index: make(map[string]int, len(ids)),
		g:     simple.NewUndirectedGraph(),
	}
	for i, id := range ids {
		if _, dup := c.index[id]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateItem, id)
		}
		c.index[id] = i
		c.g.AddNode(simple.Node(i))
	}

	return c, nil
}

// FromPredicate builds the graph whose edges are the pairs for which
// compatible returns false. compatible must be symmetric; it is evaluated
// once per unordered pair with the lower position first.
func FromPredicate(items []item.Item, compatible func(a, b item.Item) bool) (*Graph, error) {
	c, err := New(item.IDs(items))
	if err != nil {
		return nil, err
	}
	if compatible == nil {
		return c, nil
	}
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if !compatible(items[i], items[j]) {
				c.g.SetEdge(c.g.NewEdge(simple.Node(i), simple.Node(j)))
			}
		}
	}

	return c, nil
}

// Len returns the item count.
func (c *Graph) Len() int { return len(c.ids) }

// ID returns the identifier at position i.
func (c *Graph) ID(i int) string { return c.ids[i] }

// Edges returns the number of conflicts.
func (c *Graph) Edges() int { return c.g.Edges().Len() }

// AddConflict forbids items a and b (by identifier) from sharing a group.
func (c *Graph) AddConflict(a, b string) error {
	i, ok := c.index[a]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownItem, a)
	}
	j, ok := c.index[b]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownItem, b)
	}

	return c.AddConflictIndex(i, j)
}

// AddConflictIndex is AddConflict by position.
func (c *Graph) AddConflictIndex(i, j int) error {
	if i < 0 || i >= len(c.ids) || j < 0 || j >= len(c.ids) {
		return fmt.Errorf("%w: position %d or %d", ErrUnknownItem, i, j)
	}
	if i == j {
		return fmt.Errorf("%w: %q", ErrSelfConflict, c.ids[i])
	}
	c.g.SetEdge(c.g.NewEdge(simple.Node(i), simple.Node(j)))

	return nil
}

// HasConflict reports whether positions i and j conflict.
func (c *Graph) HasConflict(i, j int) bool {
	if c == nil || i == j {
		return false
	}

	return c.g.HasEdgeBetween(int64(i), int64(j))
}

// Neighbors returns the sorted positions conflicting with i.
func (c *Graph) Neighbors(i int) []int {
	if c == nil {
		return nil
	}

	return sortedIDs(graph.NodesOf(c.g.From(int64(i))))
}

// Pairs lists every conflict once, ordered by (A, B).
func (c *Graph) Pairs() []Pair {
	if c == nil {
		return nil
	}
	var (
		out []Pair
		it  = c.g.Edges()
	)
	for it.Next() {
		e := it.Edge()
		a, b := int(e.From().ID()), int(e.To().ID())
		if a > b {
			a, b = b, a
		}
		out = append(out, Pair{A: a, B: b})
	}
	sort.Slice(out, func(x, y int) bool {
		if out[x].A != out[y].A {
			return out[x].A < out[y].A
		}
		return out[x].B < out[y].B
	})

	return out
}

// Components returns the connected components of the conflict graph, each
// sorted, ordered by their smallest position. Isolated items form singleton
// components.
func (c *Graph) Components() [][]int {
	if c == nil {
		return nil
	}
	comps := topo.ConnectedComponents(c.g)
	out := make([][]int, 0, len(comps))
	for _, nodes := range comps {
		out = append(out, sortedIDs(nodes))
	}
	sort.Slice(out, func(a, b int) bool { return out[a][0] < out[b][0] })

	return out
}

// Violations returns the conflicts whose endpoints share a group under
// assign (negative entries are unassigned and never violate).
func (c *Graph) Violations(assign []int) []Pair {
	var out []Pair
	for _, p := range c.Pairs() {
		if ga := assign[p.A]; ga >= 0 && ga == assign[p.B] {
			out = append(out, p)
		}
	}

	return out
}

func sortedIDs(nodes []graph.Node) []int {
	out := make([]int, len(nodes))
	for i, n := range nodes {
		out[i] = int(n.ID())
	}
	sort.Ints(out)

	return out
}
