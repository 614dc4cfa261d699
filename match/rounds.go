package match

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/lvmatch/item"
)

// Round is one independent ComputeGrouping call.
type Round struct {
	Items []item.Item
	Spec  RoundSpec
}

// Outcome pairs a Round with its result; Index is the round's position.
type Outcome struct {
	Index    int
	Decision *Decision
	Err      error
}

// RunRounds computes rounds concurrently, at most parallelism at a time
// (unlimited when parallelism <= 0). A failing round does not cancel the
// others. Outcomes are returned in input order.
func (o *Orchestrator) RunRounds(ctx context.Context, rounds []Round, parallelism int) []Outcome {
	out := make([]Outcome, len(rounds))
	var g errgroup.Group
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i := range rounds {
		i := i
		g.Go(func() error {
			d, err := o.ComputeGrouping(ctx, rounds[i].Items, rounds[i].Spec)
			out[i] = Outcome{Index: i, Decision: d, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return out
}
