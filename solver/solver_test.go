// Package solver_test validates the Adapter contract over arbitrary backends.
// Focus:
//  1. A model is solved at most once.
//  2. Panics, errors and malformed answers surface as AdapterError.
//  3. Deadlines surface as StatusTimeout, not as errors.
//  4. ErrorOf maps statuses to errkind kinds.
package solver_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvmatch/errkind"
	"github.com/katalvlaran/lvmatch/model"
	"github.com/katalvlaran/lvmatch/solver"
)

// fakeBackend returns a canned answer or runs fn.
type fakeBackend struct {
	fn    func(ctx context.Context, m *model.Model) (solver.Solution, error)
	calls int
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Solve(ctx context.Context, m *model.Model) (solver.Solution, error) {
	f.calls++

	return f.fn(ctx, m)
}

func canned(sol solver.Solution, err error) *fakeBackend {
	return &fakeBackend{fn: func(context.Context, *model.Model) (solver.Solution, error) { return sol, err }}
}

// mkBox builds min x+y, x+y >= 1, 0 <= x,y <= 1.
func mkBox(t *testing.T) *model.Model {
	t.Helper()
	b := model.NewLinearBuilder()
	x, err := b.AddVariable("x", model.Continuous, 0, 1)
	require.NoError(t, err)
	y, err := b.AddVariable("y", model.Continuous, 0, 1)
	require.NoError(t, err)
	_, err = b.AddConstraint("cover", model.SourceUser, model.Sum(model.T(x, 1), model.T(y, 1)), model.GE, 1)
	require.NoError(t, err)
	require.NoError(t, b.SetObjective(model.Sum(model.T(x, 1), model.T(y, 1)), model.Minimize))
	m, err := b.Freeze()
	require.NoError(t, err)

	return m
}

func TestAdapterAcceptsValidSolution(t *testing.T) {
	fb := canned(solver.Solution{Status: solver.StatusOptimal, Values: []float64{1, 0}, Objective: 1}, nil)
	a := solver.NewAdapter(fb)

	sol, err := a.Solve(context.Background(), mkBox(t), time.Second)
	require.NoError(t, err)
	assert.True(t, sol.IsOptimal())
	assert.Equal(t, "fake", sol.Backend)
	assert.Equal(t, 1.0, sol.Objective)
	assert.Equal(t, "fake", a.Name())
}

func TestAdapterSolvesModelOnce(t *testing.T) {
	fb := canned(solver.Solution{Status: solver.StatusOptimal, Values: []float64{1, 0}}, nil)
	a := solver.NewAdapter(fb)
	m := mkBox(t)

	_, err := a.Solve(context.Background(), m, 0)
	require.NoError(t, err)
	_, err = a.Solve(context.Background(), m, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrAlreadySolved)
	assert.Equal(t, errkind.IllFormedModel, errkind.KindOf(err))
	assert.Equal(t, 1, fb.calls)
}

func TestAdapterNilModel(t *testing.T) {
	_, err := solver.NewAdapter(canned(solver.Solution{}, nil)).Solve(context.Background(), nil, 0)
	assert.Equal(t, errkind.IllFormedModel, errkind.KindOf(err))
}

func TestAdapterRecoversPanic(t *testing.T) {
	fb := &fakeBackend{fn: func(context.Context, *model.Model) (solver.Solution, error) { panic("boom") }}

	sol, err := solver.NewAdapter(fb).Solve(context.Background(), mkBox(t), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, errkind.ErrAdapter)
	assert.Equal(t, solver.StatusError, sol.Status)
	assert.Contains(t, sol.Message, "boom")
}

func TestAdapterWrapsBackendError(t *testing.T) {
	cause := errors.New("license expired")
	_, err := solver.NewAdapter(canned(solver.Solution{}, cause)).Solve(context.Background(), mkBox(t), 0)
	assert.ErrorIs(t, err, errkind.ErrAdapter)
	assert.ErrorIs(t, err, cause)
}

func TestAdapterDeadlineBecomesTimeout(t *testing.T) {
	fb := &fakeBackend{fn: func(ctx context.Context, _ *model.Model) (solver.Solution, error) {
		<-ctx.Done()
		return solver.Solution{}, ctx.Err()
	}}

	sol, err := solver.NewAdapter(fb).Solve(context.Background(), mkBox(t), 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, solver.StatusTimeout, sol.Status)
	assert.False(t, sol.HasValues())

	serr := solver.ErrorOf(sol, nil)
	assert.Equal(t, errkind.Timeout, errkind.KindOf(serr))
}

func TestAdapterRejectsMalformedAnswers(t *testing.T) {
	tests := []struct {
		name  string
		sol   solver.Solution
		phase errkind.Phase
	}{
		{"short vector", solver.Solution{Status: solver.StatusOptimal, Values: []float64{1}}, errkind.PhaseDecode},
		{"violates row", solver.Solution{Status: solver.StatusFeasible, Values: []float64{0, 0}}, errkind.PhaseVerify},
		{"violates bound", solver.Solution{Status: solver.StatusOptimal, Values: []float64{2, 0}}, errkind.PhaseVerify},
		{"error status", solver.Solution{Status: solver.StatusError, Message: "numerical trouble"}, errkind.PhaseSolve},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := solver.NewAdapter(canned(tc.sol, nil)).Solve(context.Background(), mkBox(t), 0)
			require.Error(t, err)
			var ke *errkind.Error
			require.ErrorAs(t, err, &ke)
			assert.Equal(t, errkind.AdapterError, ke.Kind)
			assert.Equal(t, tc.phase, ke.Phase)
		})
	}
}

func TestAdapterNamesViolatedConstraint(t *testing.T) {
	fb := canned(solver.Solution{Status: solver.StatusOptimal, Values: []float64{0, 0}}, nil)
	_, err := solver.NewAdapter(fb).Solve(context.Background(), mkBox(t), 0)
	var ke *errkind.Error
	require.ErrorAs(t, err, &ke)
	assert.Equal(t, "cover", ke.Constraint)
	assert.ErrorIs(t, err, model.ErrViolated)
}

func TestAdapterDropsInvalidTimeoutIncumbent(t *testing.T) {
	fb := canned(solver.Solution{Status: solver.StatusTimeout, Values: []float64{0, 0}}, nil)
	sol, err := solver.NewAdapter(fb).Solve(context.Background(), mkBox(t), 0)
	require.NoError(t, err)
	assert.Equal(t, solver.StatusTimeout, sol.Status)
	assert.False(t, sol.HasValues())
}

func TestErrorOfMapping(t *testing.T) {
	assert.NoError(t, solver.ErrorOf(solver.Solution{Status: solver.StatusOptimal}, nil))
	assert.NoError(t, solver.ErrorOf(solver.Solution{Status: solver.StatusFeasible}, nil))

	err := solver.ErrorOf(solver.Solution{Status: solver.StatusInfeasible}, []string{"capacity", "exclusivity"})
	assert.ErrorIs(t, err, errkind.ErrInfeasible)
	var ke *errkind.Error
	require.ErrorAs(t, err, &ke)
	assert.Equal(t, []string{"capacity", "exclusivity"}, ke.Active)

	err = solver.ErrorOf(solver.Solution{Status: solver.StatusError, Message: "x"}, nil)
	assert.Equal(t, errkind.AdapterError, errkind.KindOf(err))
}

func TestSolutionValue(t *testing.T) {
	b := model.NewLinearBuilder()
	x, _ := b.AddVariable("x", model.Continuous, 0, 1)
	sol := solver.Solution{Values: []float64{0.25}}
	assert.Equal(t, 0.25, sol.Value(x))
	assert.Equal(t, 0.0, sol.Value(model.VarRef{}))
}
