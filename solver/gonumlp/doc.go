// Package gonumlp is the default solver.Backend, built on gonum's dense
// simplex (gonum.org/v1/gonum/optimize/convex/lp).
//
// Linear models are solved with a single simplex call after converting the
// bounded general form to standard form. Models with integral variables are
// solved by depth-first LP branch-and-bound:
//
//   - branch on the most fractional integral variable (lowest index on ties),
//     nearest side first;
//   - prune a node whose relaxation cannot beat the incumbent;
//   - stop on the context deadline (Timeout, incumbent attached if any) or
//     after Options.NodeLimit nodes (Feasible when an incumbent exists).
//
// The backend is dense and exact-arithmetic free; it targets the small and
// medium models produced by the grouping layer. Larger models belong to an
// external MILP backend behind the same solver.Backend interface.
package gonumlp
