// Package gonumlp - conversion of a bounded general-form LP to the standard
// form expected by gonum's simplex:
//
//	minimize cᵀx'  s.t.  A x' = b,  x' >= 0
//
// Variable substitution (per node bounds l, u):
//   - l finite:            x = l + x'      (and x' + s = u - l when u is finite)
//   - l = -inf, u finite:  x = u - x'
//   - both infinite:       x = x⁺ - x⁻     (two columns)
//
// Every original row receives its own slack, equalities are split into a
// <= and a >= row, and rows with a negative right-hand side are negated.
// This keeps A at full row rank (each row owns a ±1 slack column) and rules
// out zero rows, which gonum rejects. Columns that appear in no row are
// dropped: they sit at their bound when their cost is non-negative and make
// the relaxation unbounded otherwise.
//
// Complexity: O(R·N) to assemble, where R = rows + finite upper bounds and
// N = columns + R slacks.

package gonumlp

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/lvmatch/model"
)

type colKind uint8

const (
	colShiftLower colKind = iota
	colShiftUpper
	colFreePos
	colFreeNeg
)

// column maps one standard-form column back to an original variable.
type column struct {
	v    int
	kind colKind
}

// standard is one node's standard-form LP.
type standard struct {
	a      *mat.Dense
	b      []float64
	c      []float64
	cols   []column
	offset float64 // objective constant introduced by the substitution
	n      int     // original variable count
	lower  []float64
	upper  []float64
}

// relaxation holds the node-independent parts of the model.
type relaxation struct {
	n     int
	cost  []float64 // minimize form
	rows  []model.Constraint
	used  []bool
	integ []bool
}

func newRelaxation(m *model.Model, sign float64) *relaxation {
	r := &relaxation{
		n:     m.NumVars(),
		cost:  m.ObjectiveVector(),
		rows:  make([]model.Constraint, m.NumConstraints()),
		used:  make([]bool, m.NumVars()),
		integ: make([]bool, m.NumVars()),
	}
	for j := range r.cost {
		r.cost[j] *= sign
		r.integ[j] = m.Var(j).Domain.Integral()
	}
	for i := range r.rows {
		r.rows[i] = m.Constraint(i)
		for _, t := range r.rows[i].Coefs {
			r.used[t.Var] = true
		}
	}

	return r
}

// satisfies reports whether x meets every row within tol.
func (r *relaxation) satisfies(x []float64, tol float64) bool {
	for _, c := range r.rows {
		lhs := 0.0
		for _, t := range c.Coefs {
			lhs += t.Value * x[t.Var]
		}
		switch c.Rel {
		case model.LE:
			if lhs > c.RHS+tol {
				return false
			}
		case model.GE:
			if lhs < c.RHS-tol {
				return false
			}
		default:
			if math.Abs(lhs-c.RHS) > tol {
				return false
			}
		}
	}

	return true
}

// build assembles the standard form for the given node bounds. It returns
// ok=false when a dropped column would make the relaxation unbounded.
func (r *relaxation) build(lower, upper []float64) (*standard, bool) {
	var (
		s      = &standard{n: r.n, lower: lower, upper: upper}
		colOf  = make([][]int, r.n) // original var -> standard columns
		j      int
		lf, uf bool
	)
	for j = 0; j < r.n; j++ {
		lf, uf = !math.IsInf(lower[j], -1), !math.IsInf(upper[j], 1)
		if !r.used[j] && !(lf && uf) {
			// unconstrained direction: cost decides boundedness
			switch {
			case lf && r.cost[j] < 0, uf && r.cost[j] > 0, !lf && !uf && r.cost[j] != 0:
				return nil, false
			}
			continue
		}
		switch {
		case lf:
			colOf[j] = []int{len(s.cols)}
			s.cols = append(s.cols, column{v: j, kind: colShiftLower})
			s.offset += r.cost[j] * lower[j]
		case uf:
			colOf[j] = []int{len(s.cols)}
			s.cols = append(s.cols, column{v: j, kind: colShiftUpper})
			s.offset += r.cost[j] * upper[j]
		default:
			colOf[j] = []int{len(s.cols), len(s.cols) + 1}
			s.cols = append(s.cols, column{v: j, kind: colFreePos}, column{v: j, kind: colFreeNeg})
		}
	}

	// Row list: each entry is (coefficients over standard columns, rhs, slack sign).
	type srow struct {
		coef  map[int]float64
		rhs   float64
		slack float64 // +1 for <=, -1 for >=
	}
	var rows []srow
	addRow := func(c model.Constraint, rel model.Relation) {
		row := srow{coef: make(map[int]float64, len(c.Coefs)), rhs: c.RHS, slack: 1}
		if rel == model.GE {
			row.slack = -1
		}
		for _, t := range c.Coefs {
			cols := colOf[t.Var]
			if len(cols) == 0 {
				continue
			}
			switch s.cols[cols[0]].kind {
			case colShiftLower:
				row.coef[cols[0]] += t.Value
				row.rhs -= t.Value * lower[t.Var]
			case colShiftUpper:
				row.coef[cols[0]] -= t.Value
				row.rhs -= t.Value * upper[t.Var]
			default:
				row.coef[cols[0]] += t.Value
				row.coef[cols[1]] -= t.Value
			}
		}
		rows = append(rows, row)
	}
	for _, c := range r.rows {
		if c.Rel == model.EQ {
			addRow(c, model.LE)
			addRow(c, model.GE)
			continue
		}
		addRow(c, c.Rel)
	}
	for j = 0; j < r.n; j++ {
		cols := colOf[j]
		if len(cols) == 1 && s.cols[cols[0]].kind == colShiftLower && !math.IsInf(upper[j], 1) {
			rows = append(rows, srow{coef: map[int]float64{cols[0]: 1}, rhs: upper[j] - lower[j], slack: 1})
		}
	}

	var (
		nStruct = len(s.cols)
		nRows   = len(rows)
		nCols   = nStruct + nRows
	)
	s.a = mat.NewDense(max(nRows, 1), max(nCols, 1), nil)
	s.b = make([]float64, max(nRows, 1))
	s.c = make([]float64, max(nCols, 1))
	for k, col := range s.cols {
		switch col.kind {
		case colShiftLower, colFreePos:
			s.c[k] = r.cost[col.v]
		default:
			s.c[k] = -r.cost[col.v]
		}
	}
	for i, row := range rows {
		sign := 1.0
		if row.rhs < 0 {
			sign = -1
		}
		for k, v := range row.coef {
			s.a.Set(i, k, sign*v)
		}
		s.a.Set(i, nStruct+i, sign*row.slack)
		s.b[i] = sign * row.rhs
	}

	return s, true
}

// values maps a standard-form solution back to original variables.
// Dropped columns sit at their finite bound (lower first) or zero.
func (s *standard) values(x []float64) []float64 {
	out := make([]float64, s.n)
	set := make([]bool, s.n)
	for k, col := range s.cols {
		switch col.kind {
		case colShiftLower:
			out[col.v] = s.lower[col.v] + x[k]
		case colShiftUpper:
			out[col.v] = s.upper[col.v] - x[k]
		case colFreePos:
			out[col.v] += x[k]
		case colFreeNeg:
			out[col.v] -= x[k]
		}
		set[col.v] = true
	}
	for j := 0; j < s.n; j++ {
		if set[j] {
			continue
		}
		switch {
		case !math.IsInf(s.lower[j], -1):
			out[j] = s.lower[j]
		case !math.IsInf(s.upper[j], 1):
			out[j] = s.upper[j]
		}
	}

	return out
}
