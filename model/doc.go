// Package model builds linear and mixed-integer optimization models
// independently of any solving backend.
//
// A Builder accumulates variables, constraints and an objective; Freeze
// validates everything at once and returns an immutable *Model. Models are
// the only thing handed to a solver, and each Model may be solved at most
// once (see Model.Claim), so constraints never leak from one round into
// the next.
//
//	b := model.NewIntegerBuilder()
//	x, _ := b.AddVariable("x", model.Integer, 0, math.Inf(1))
//	y, _ := b.AddVariable("y", model.Integer, 0, math.Inf(1))
//	_, _ = b.AddConstraint("c0", model.SourceUser, model.Sum(model.T(x, 1), model.T(y, 7)), model.LE, 17.5)
//	_ = b.SetObjective(model.Sum(model.T(x, 1), model.T(y, 10)), model.Maximize)
//	m, err := b.Freeze()
//
// Two flavours exist:
//
//   - NewLinearBuilder: continuous variables only.
//   - NewIntegerBuilder: continuous, integer and binary variables; every
//     variable declares its domain at creation, and references to variables
//     owned by another builder are rejected immediately.
//
// Freeze fails with errkind.IllFormedModel when a constraint or the
// objective references an unregistered or foreign variable, when the
// objective is unset, when a variable's bounds are empty (lower > upper),
// when a coefficient is NaN, or when two variables share a name. All
// defects are reported together.
package model
