package grouping_test

import (
	"context"
	"fmt"

	"github.com/katalvlaran/lvmatch/grouping"
	"github.com/katalvlaran/lvmatch/item"
	"github.com/katalvlaran/lvmatch/solver/gonumlp"
)

// ExampleOptimize pairs players of similar rating.
func ExampleOptimize() {
	items := []item.Item{
		item.New("ann", 1200), item.New("bob", 1850),
		item.New("cid", 1210), item.New("dee", 1800),
	}
	res, err := grouping.Optimize(context.Background(), items, grouping.Spec{
		Groups:    2,
		MinSize:   2,
		MaxSize:   2,
		Direction: grouping.MaximizeScore,
		Pair:      grouping.NegDistance(0),
	}, gonumlp.NewSolver())
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	for _, g := range res.Grouping.Groups {
		fmt.Println(g.Name, g.ItemIDs, g.Mean)
	}
	fmt.Println(res.Objective, res.Exact)
	// Output:
	// group-1 [ann cid] 1205
	// group-2 [bob dee] 1825
	// -60 true
}
