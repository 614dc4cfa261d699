package partition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvmatch/partition"
)

func TestCountIntegerPartitions(t *testing.T) {
	tests := []struct {
		name    string
		addends []int64
		target  int64
		want    uint64
	}{
		{"coins 1 2 5 make 5", []int64{1, 2, 5}, 5, 4},
		{"unordered input", []int64{5, 1, 2}, 5, 4},
		{"team of five from parties", []int64{1, 2, 3, 4, 5}, 5, 7},
		{"zero target", []int64{2, 3}, 0, 1},
		{"unreachable", []int64{4, 6}, 7, 0},
		{"p(10)", []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 10, 42},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := partition.CountIntegerPartitions(tc.addends, tc.target)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIntegerPartitionsEnumeration(t *testing.T) {
	parts, err := partition.IntegerPartitions([]int64{1, 2, 5}, 5, 0)
	require.NoError(t, err)

	want := []map[int64]int64{
		{5: 1},
		{2: 2, 1: 1},
		{2: 1, 1: 3},
		{1: 5},
	}
	assert.Equal(t, want, parts)

	count, err := partition.CountIntegerPartitions([]int64{1, 2, 3, 4, 5}, 5)
	require.NoError(t, err)
	all, err := partition.IntegerPartitions([]int64{1, 2, 3, 4, 5}, 5, 0)
	require.NoError(t, err)
	assert.Len(t, all, int(count))
	for _, p := range all {
		var s int64
		for a, c := range p {
			s += a * c
		}
		assert.Equal(t, int64(5), s)
	}
}

func TestIntegerPartitionsErrors(t *testing.T) {
	_, err := partition.IntegerPartitions([]int64{1, 2, 3}, 6, 2)
	assert.ErrorIs(t, err, partition.ErrTooManyPartitions)

	for _, bad := range [][]int64{nil, {0, 1}, {2, 2}, {-1}} {
		_, err = partition.CountIntegerPartitions(bad, 4)
		assert.ErrorIs(t, err, partition.ErrBadAddends, "addends %v", bad)
	}
	_, err = partition.CountIntegerPartitions([]int64{1}, -1)
	assert.ErrorIs(t, err, partition.ErrBadAddends)
}
