// Package partition - staged input validation.
//
// Stages run cheapest first and stop at the first failure:
//  1. k against the item count.
//  2. Size bounds shape (non-negative, Min <= Max).
//  3. Weight domain (finite, non-negative).
//  4. Capacity: k groups within [Min, Max] must be able to hold n items.
//
// Stages 1-3 are InvalidConfiguration; stage 4 is Infeasible.

package partition

import (
	"fmt"
	"math"

	"github.com/katalvlaran/lvmatch/errkind"
)

func validateAll(weights []float64, k int, opts Options) error {
	var (
		n = len(weights)
		i int
	)
	if k <= 0 || (n > 0 && k > n) {
		return invalid(fmt.Errorf("%w: k=%d n=%d", ErrInvalidK, k, n))
	}
	if opts.MinSize < 0 || opts.MaxSize < 0 || (opts.MaxSize > 0 && opts.MinSize > opts.MaxSize) {
		return invalid(fmt.Errorf("%w: min=%d max=%d", ErrInvalidBounds, opts.MinSize, opts.MaxSize))
	}
	for i = 0; i < n; i++ {
		if math.IsNaN(weights[i]) || math.IsInf(weights[i], 0) || weights[i] < 0 {
			return invalid(fmt.Errorf("%w: weights[%d]=%v", ErrBadWeight, i, weights[i]))
		}
	}
	if n == 0 {
		return nil
	}
	if k*opts.MinSize > n {
		return &errkind.Error{
			Kind:   errkind.Infeasible,
			Phase:  errkind.PhaseValidate,
			Active: []string{"size.min"},
			Err:    fmt.Errorf("%w: k*min=%d > n=%d", ErrBoundsInfeasible, k*opts.MinSize, n),
		}
	}
	if opts.MaxSize > 0 && k*opts.MaxSize < n {
		return &errkind.Error{
			Kind:   errkind.Infeasible,
			Phase:  errkind.PhaseValidate,
			Active: []string{"size.max"},
			Err:    fmt.Errorf("%w: k*max=%d < n=%d", ErrBoundsInfeasible, k*opts.MaxSize, n),
		}
	}

	return nil
}

func invalid(err error) error {
	return &errkind.Error{Kind: errkind.InvalidConfiguration, Phase: errkind.PhaseValidate, Err: err}
}
