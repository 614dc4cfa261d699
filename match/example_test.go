package match_test

import (
	"context"
	"fmt"

	"github.com/katalvlaran/lvmatch/item"
	"github.com/katalvlaran/lvmatch/match"
	"github.com/katalvlaran/lvmatch/solver/gonumlp"
)

// ExampleOrchestrator_ComputeGrouping balances six scores into three pairs.
func ExampleOrchestrator_ComputeGrouping() {
	orc, err := match.New(gonumlp.NewSolver(), match.WithRegistry(nil))
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	items := []item.Item{
		item.New("a", 8), item.New("b", 7), item.New("c", 6),
		item.New("d", 5), item.New("e", 4), item.New("f", 3),
	}
	d, err := orc.ComputeGrouping(context.Background(), items, match.RoundSpec{
		GroupCount:    3,
		MinSize:       2,
		MaxSize:       2,
		BalanceTarget: match.Balance(0),
	})
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	for _, g := range d.Grouping.Groups {
		fmt.Println(g.Name, g.Sum)
	}
	fmt.Println(d.State, d.Provenance.Path, d.Provenance.Spread)
	// Output:
	// group-1 11
	// group-2 11
	// group-3 11
	// Solved partition 0
}
