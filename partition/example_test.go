package partition_test

import (
	"context"
	"fmt"

	"github.com/katalvlaran/lvmatch/partition"
)

// ExamplePartition splits four weights into two equal halves.
func ExamplePartition() {
	res, err := partition.Partition(context.Background(), []float64{4, 5, 3, 2}, 2, partition.DefaultOptions())
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Printf("groups=%v sums=%v spread=%g exact=%t\n", res.Groups, res.Sums, res.Spread, res.Exact)
	// Output:
	// groups=[[0 2] [1 3]] sums=[7 7] spread=0 exact=true
}

// ExamplePartition_bounded balances six equal items into pairs.
func ExamplePartition_bounded() {
	opts := partition.DefaultOptions()
	opts.MinSize, opts.MaxSize = 2, 2
	res, _ := partition.Partition(context.Background(), []float64{10, 10, 10, 10, 10, 10}, 3, opts)
	fmt.Println(res.Groups, res.Spread)
	// Output:
	// [[0 3] [1 4] [2 5]] 0
}

// ExampleCountIntegerPartitions counts team compositions of five players
// from parties of one, two or three.
func ExampleCountIntegerPartitions() {
	n, _ := partition.CountIntegerPartitions([]int64{1, 2, 3}, 5)
	parts, _ := partition.IntegerPartitions([]int64{1, 2, 3}, 5, 0)
	fmt.Println(n, parts[0])
	// Output:
	// 5 map[2:1 3:1]
}
