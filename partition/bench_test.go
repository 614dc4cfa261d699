package partition_test

import (
	"context"
	"testing"

	"github.com/katalvlaran/lvmatch/partition"
)

func BenchmarkPartitionExact20(b *testing.B) {
	weights := randomWeights(20, seedDet)
	opts := partition.Options{Algorithm: partition.Exact}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = partition.Partition(context.Background(), weights, 3, opts)
	}
}

func BenchmarkPartitionKarmarkarKarp1000(b *testing.B) {
	weights := randomWeights(1000, seedDet)
	opts := partition.Options{Algorithm: partition.Heuristic}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = partition.Partition(context.Background(), weights, 4, opts)
	}
}

func BenchmarkPartitionGreedySwap200(b *testing.B) {
	weights := randomWeights(200, seedDet)
	opts := partition.Options{Algorithm: partition.Heuristic, MinSize: 40, MaxSize: 60}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = partition.Partition(context.Background(), weights, 4, opts)
	}
}
