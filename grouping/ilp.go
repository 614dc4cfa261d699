// Package grouping - assignment-style integer model.
//
// Variables:
//   - x[i,g] binary: item i in group g. Only g <= i is materialized: relabeling
//     groups by their smallest member maps every grouping onto one where item
//     i sits in a group of index <= i, so the remaining columns are
//     symmetric duplicates. In particular item 0 is fixed to group 0.
//   - y[a,b,g] in [0,1]: a and b share group g, for pairs with a non-zero
//     score. Linked by y <= x[a,g], y <= x[b,g], y >= x[a,g]+x[b,g]-1, so y
//     equals the product whenever x is integral.
//   - hi, lo (MinimizeImbalance only): bounds on every group sum.
//
// Rows: assignment (== 1, or <= 1 with AllowUnassigned), capacity
// (size.min, size.max), exclusivity (x[a,g]+x[b,g] <= 1 per conflict and
// group), the y links, and hi >= S_g >= lo.

package grouping

import (
	"fmt"

	"github.com/katalvlaran/lvmatch/model"
)

// formulation keeps the VarRefs needed to decode a Solution.
type formulation struct {
	m *model.Model
	x [][]model.VarRef // x[i][g] for g <= min(i, k-1)
}

// groupsFor returns the number of materialized groups for item i.
func (p *problem) groupsFor(i int) int { return min(i+1, p.k) }

// variableCount predicts the model size without building it.
func (p *problem) variableCount() int {
	count := 0
	for i := 0; i < p.n; i++ {
		count += p.groupsFor(i)
	}
	if p.pair != nil {
		for a := 0; a < p.n; a++ {
			for b := a + 1; b < p.n; b++ {
				if p.pair[a][b] != 0 {
					count += p.groupsFor(a)
				}
			}
		}
	}
	if p.dir == MinimizeImbalance {
		count += 2
	}

	return count
}

func (p *problem) formulate() (*formulation, error) {
	var (
		b  = model.NewIntegerBuilder()
		f  = &formulation{x: make([][]model.VarRef, p.n)}
		ga int
	)

	for i, it := range p.items {
		f.x[i] = make([]model.VarRef, p.groupsFor(i))
		for g := range f.x[i] {
			v, err := b.AddVariable(fmt.Sprintf("x[%s,%d]", it.ID(), g), model.Binary, 0, 1, model.WithItemGroup(i, g))
			if err != nil {
				return nil, err
			}
			f.x[i][g] = v
		}
		rel := model.EQ
		if p.loose {
			rel = model.LE
		}
		if _, err := b.AddConstraint("assign["+it.ID()+"]", model.SourceAssignment, model.Sum(terms(f.x[i], 1)...), rel, 1); err != nil {
			return nil, err
		}
	}

	for g := 0; g < p.k; g++ {
		var members []model.Term
		for i := g; i < p.n; i++ {
			members = append(members, model.T(f.x[i][g], 1))
		}
		if p.min > 0 {
			if _, err := b.AddConstraint(fmt.Sprintf("%s[%d]", FamilySizeMin, g), model.SourceCapacity, model.Sum(members...), model.GE, float64(p.min)); err != nil {
				return nil, err
			}
		}
		if p.max < p.n {
			if _, err := b.AddConstraint(fmt.Sprintf("%s[%d]", FamilySizeMax, g), model.SourceCapacity, model.Sum(members...), model.LE, float64(p.max)); err != nil {
				return nil, err
			}
		}
	}

	for _, c := range p.conf.Pairs() {
		for ga = 0; ga < p.groupsFor(c.A); ga++ {
			name := fmt.Sprintf("%s[%s,%s,%d]", FamilyExclusivity, p.items[c.A].ID(), p.items[c.B].ID(), ga)
			expr := model.Sum(model.T(f.x[c.A][ga], 1), model.T(f.x[c.B][ga], 1))
			if _, err := b.AddConstraint(name, model.SourceExclusivity, expr, model.LE, 1); err != nil {
				return nil, err
			}
		}
	}

	var obj []model.Term
	if p.unary != nil {
		for i := range f.x {
			obj = append(obj, terms(f.x[i], p.unary[i])...)
		}
	}
	if p.pair != nil {
		for a := 0; a < p.n; a++ {
			for bb := a + 1; bb < p.n; bb++ {
				s := p.pair[a][bb]
				if s == 0 {
					continue
				}
				for ga = 0; ga < p.groupsFor(a); ga++ {
					tag := fmt.Sprintf("%s,%s,%d", p.items[a].ID(), p.items[bb].ID(), ga)
					y, err := b.AddVariable("y["+tag+"]", model.Continuous, 0, 1, model.WithItemPair(a, bb))
					if err != nil {
						return nil, err
					}
					xa, xb := f.x[a][ga], f.x[bb][ga]
					rows := []struct {
						name string
						expr model.Expr
						rel  model.Relation
						rhs  float64
					}{
						{"link.a[" + tag + "]", model.Sum(model.T(y, 1), model.T(xa, -1)), model.LE, 0},
						{"link.b[" + tag + "]", model.Sum(model.T(y, 1), model.T(xb, -1)), model.LE, 0},
						{"link.ab[" + tag + "]", model.Sum(model.T(y, 1), model.T(xa, -1), model.T(xb, -1)), model.GE, -1},
					}
					for _, r := range rows {
						if _, err = b.AddConstraint(r.name, model.SourceObjective, r.expr, r.rel, r.rhs); err != nil {
							return nil, err
						}
					}
					obj = append(obj, model.T(y, s))
				}
			}
		}
	}

	sense := model.Maximize
	switch p.dir {
	case MinimizeScore:
		sense = model.Minimize
	case MinimizeImbalance:
		sense = model.Minimize
		var err error
		if obj, err = p.balanceRows(b, f); err != nil {
			return nil, err
		}
	}
	if err := b.SetObjective(model.Sum(obj...), sense); err != nil {
		return nil, err
	}

	m, err := b.Freeze()
	if err != nil {
		return nil, err
	}
	f.m = m

	return f, nil
}

// balanceRows adds hi/lo and returns the objective hi - lo.
func (p *problem) balanceRows(b *model.Builder, f *formulation) ([]model.Term, error) {
	var neg, pos float64
	for _, w := range p.weight {
		if w < 0 {
			neg += w
		} else {
			pos += w
		}
	}
	hi, err := b.AddVariable("balance.hi", model.Continuous, neg, pos)
	if err != nil {
		return nil, err
	}
	lo, err := b.AddVariable("balance.lo", model.Continuous, neg, pos)
	if err != nil {
		return nil, err
	}
	for g := 0; g < p.k; g++ {
		var sum []model.Term
		for i := g; i < p.n; i++ {
			sum = append(sum, model.T(f.x[i][g], p.weight[i]))
		}
		upper := append([]model.Term{model.T(hi, 1)}, negate(sum)...)
		if _, err = b.AddConstraint(fmt.Sprintf("balance.hi[%d]", g), model.SourceObjective, model.Sum(upper...), model.GE, 0); err != nil {
			return nil, err
		}
		lower := append([]model.Term{model.T(lo, -1)}, sum...)
		if _, err = b.AddConstraint(fmt.Sprintf("balance.lo[%d]", g), model.SourceObjective, model.Sum(lower...), model.GE, 0); err != nil {
			return nil, err
		}
	}

	return []model.Term{model.T(hi, 1), model.T(lo, -1)}, nil
}

// decode reads the group of every item (-1 when no x is set).
func (f *formulation) decode(values []float64) []int {
	assign := make([]int, len(f.x))
	for i, row := range f.x {
		assign[i] = -1
		for g, v := range row {
			if values[v.Index()] > 0.5 {
				assign[i] = g
				break
			}
		}
	}

	return assign
}

func terms(vs []model.VarRef, coef float64) []model.Term {
	out := make([]model.Term, len(vs))
	for i, v := range vs {
		out[i] = model.T(v, coef)
	}

	return out
}

func negate(ts []model.Term) []model.Term {
	out := make([]model.Term, len(ts))
	for i, t := range ts {
		out[i] = model.T(t.Var, -t.Coef)
	}

	return out
}
