package maxpart_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvmatch/errkind"
	"github.com/katalvlaran/lvmatch/maxpart"
	"github.com/katalvlaran/lvmatch/partition"
	"github.com/katalvlaran/lvmatch/solver/gonumlp"
)

var coins = map[int64]int64{1: 100, 2: 40, 5: 10}

func requireWithinSupply(t *testing.T, supply map[int64]int64, res maxpart.Result) {
	t.Helper()
	var total int64
	for _, p := range res.Plans {
		var sum int64
		for a, m := range p.Addends {
			sum += a * m
		}
		require.EqualValues(t, 10, sum, "plan %v", p.Addends)
		require.Positive(t, p.Count)
		total += p.Count
	}
	require.Equal(t, res.Total, total)
	for a, used := range res.Used() {
		require.LessOrEqual(t, used, supply[a], "addend %d", a)
	}
}

func TestSolve_Coins(t *testing.T) {
	res, err := maxpart.Solve(context.Background(), coins, 10, gonumlp.NewSolver(), maxpart.Options{})
	require.NoError(t, err)
	assert.EqualValues(t, 23, res.Total)
	assert.Equal(t, 10, res.Considered)
	assert.True(t, res.Exact)
	assert.Equal(t, gonumlp.Name, res.Backend)
	requireWithinSupply(t, coins, res)
}

func TestSolveWithPlans_Coins(t *testing.T) {
	plans := []map[int64]int64{
		{1: 6, 2: 2},
		{1: 1, 2: 2, 5: 1},
		{5: 2},
		{1: 5, 5: 1},
	}
	res, err := maxpart.SolveWithPlans(context.Background(), coins, 10, plans, gonumlp.NewSolver(), maxpart.Options{})
	require.NoError(t, err)
	assert.EqualValues(t, 23, res.Total)
	assert.Equal(t, 4, res.Considered)
	requireWithinSupply(t, coins, res)
}

func TestSolve_ScarceSupply(t *testing.T) {
	supply := map[int64]int64{1: 3, 2: 1, 5: 1}
	res, err := maxpart.Solve(context.Background(), supply, 10, gonumlp.NewSolver(), maxpart.Options{})
	require.NoError(t, err)
	// 5+2+1+1+1 is the only composition the supply allows.
	assert.EqualValues(t, 1, res.Total)
	require.Len(t, res.Plans, 1)
	assert.EqualValues(t, 1, res.Plans[0].Uses(5))
	assert.EqualValues(t, 1, res.Plans[0].Uses(2))
	assert.EqualValues(t, 3, res.Plans[0].Uses(1))
}

func TestSolve_NoPlans(t *testing.T) {
	res, err := maxpart.Solve(context.Background(), map[int64]int64{3: 5}, 10, gonumlp.NewSolver(), maxpart.Options{})
	require.NoError(t, err)
	assert.Zero(t, res.Total)
	assert.Empty(t, res.Plans)

	res, err = maxpart.Solve(context.Background(), map[int64]int64{20: 5, 1: 0}, 10, nil, maxpart.Options{})
	require.NoError(t, err)
	assert.Zero(t, res.Total)
}

func TestSolve_Errors(t *testing.T) {
	ctx := context.Background()
	slv := gonumlp.NewSolver()
	cases := []struct {
		name string
		run  func() error
		want error
		kind errkind.Kind
	}{
		{"zero target", func() error { _, err := maxpart.Solve(ctx, coins, 0, slv, maxpart.Options{}); return err },
			maxpart.ErrBadTarget, errkind.InvalidConfiguration},
		{"negative supply", func() error {
			_, err := maxpart.Solve(ctx, map[int64]int64{1: -1}, 3, slv, maxpart.Options{})
			return err
		}, maxpart.ErrBadSupply, errkind.InvalidConfiguration},
		{"non-positive addend", func() error {
			_, err := maxpart.Solve(ctx, map[int64]int64{0: 4}, 3, slv, maxpart.Options{})
			return err
		}, maxpart.ErrBadSupply, errkind.InvalidConfiguration},
		{"no solver", func() error { _, err := maxpart.Solve(ctx, coins, 10, nil, maxpart.Options{}); return err },
			maxpart.ErrNoSolver, errkind.InvalidConfiguration},
		{"plan limit", func() error {
			_, err := maxpart.Solve(ctx, coins, 10, slv, maxpart.Options{MaxPlans: 3})
			return err
		}, partition.ErrTooManyPartitions, errkind.InvalidConfiguration},
		{"plan off target", func() error {
			_, err := maxpart.SolveWithPlans(ctx, coins, 10, []map[int64]int64{{5: 1}}, slv, maxpart.Options{})
			return err
		}, maxpart.ErrBadPlan, errkind.InvalidConfiguration},
		{"plan with unknown addend", func() error {
			_, err := maxpart.SolveWithPlans(ctx, coins, 10, []map[int64]int64{{10: 1}}, slv, maxpart.Options{})
			return err
		}, maxpart.ErrBadPlan, errkind.InvalidConfiguration},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, tc.kind, errkind.KindOf(err))
		})
	}
}
