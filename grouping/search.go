// Package grouping - greedy seed and first-improvement local search.
//
// Seed: items are placed one at a time (input order for score directions,
// descending balance value for MinimizeImbalance) into the group that
// minimizes new conflicts, then maximizes the marginal objective, then has
// the lowest index. When the unplaced items exactly cover the outstanding
// minimum sizes, only groups below MinSize are eligible. With
// AllowUnassigned an extra bucket (index k) absorbs items no group wants.
//
// Local search: passes over all item pairs in different groups (swap) and
// all (item, group) moves that keep sizes in bounds. A move is accepted
// when it lowers the conflict count, or keeps it and improves the
// objective by more than eps. Under MinimizeImbalance "improves" means a
// lower spread or, at equal spread, a lower sum of squared group sums.
// Every acceptance strictly decreases that lexicographic key, so the
// search terminates; MaxPasses and the deadline bound it further.
//
// Complexity:
//   - Seed: O(n·k) plus O(n²) gain maintenance.
//   - Swap delta: O(1) for scores, O(k) for balance. Applying a move: O(n).

package grouping

import (
	"context"
	"math"
	"sort"
	"time"
)

// search is the mutable local-search state. Group k is the unassigned
// bucket when loose is set; it has no score, no conflicts and no bounds.
type search struct {
	p   *problem
	eps float64

	assign []int
	count  []int
	sums   []float64
	gain   [][]float64 // gain[i][g] = sum of pair scores between i and members of g
	cc     [][]int     // cc[i][g] = conflicting neighbours of i in g
	sign   float64     // +1 maximize score, -1 minimize score

	deadline time.Time
	ctx      context.Context
	moves    int
}

func newSearch(ctx context.Context, p *problem, eps float64, deadline time.Time) *search {
	s := &search{
		p:        p,
		eps:      eps,
		assign:   make([]int, p.n),
		count:    make([]int, p.buckets()),
		sums:     make([]float64, p.buckets()),
		gain:     make([][]float64, p.n),
		cc:       make([][]int, p.n),
		sign:     1,
		deadline: deadline,
		ctx:      ctx,
	}
	if p.dir == MinimizeScore {
		s.sign = -1
	}
	for i := range s.assign {
		s.assign[i] = -1
		s.gain[i] = make([]float64, p.k)
		s.cc[i] = make([]int, p.k)
	}

	return s
}

func (p *problem) buckets() int {
	if p.loose {
		return p.k + 1
	}

	return p.k
}

func (s *search) real(g int) bool { return g >= 0 && g < s.p.k }

func (s *search) gainOf(i, g int) float64 {
	if !s.real(g) {
		return 0
	}
	v := s.gain[i][g]
	if s.p.unary != nil {
		v += s.p.unary[i]
	}

	return s.sign * v
}

func (s *search) ccOf(i, g int) int {
	if !s.real(g) {
		return 0
	}

	return s.cc[i][g]
}

func (s *search) maxOf(g int) int {
	if !s.real(g) {
		return math.MaxInt
	}

	return s.p.max
}

func (s *search) minOf(g int) int {
	if !s.real(g) {
		return 0
	}

	return s.p.min
}

// place puts unplaced item i into g.
func (s *search) place(i, g int) {
	s.assign[i] = g
	s.count[g]++
	if !s.real(g) {
		return
	}
	if s.p.weight != nil {
		s.sums[g] += s.p.weight[i]
	}
	if s.p.pair != nil {
		for j := 0; j < s.p.n; j++ {
			if j != i {
				s.gain[j][g] += s.p.pair[i][j]
			}
		}
	}
	for _, j := range s.p.conf.Neighbors(i) {
		s.cc[j][g]++
	}
}

// lift removes item i from its group.
func (s *search) lift(i int) {
	g := s.assign[i]
	s.assign[i] = -1
	s.count[g]--
	if !s.real(g) {
		return
	}
	if s.p.weight != nil {
		s.sums[g] -= s.p.weight[i]
	}
	if s.p.pair != nil {
		for j := 0; j < s.p.n; j++ {
			if j != i {
				s.gain[j][g] -= s.p.pair[i][j]
			}
		}
	}
	for _, j := range s.p.conf.Neighbors(i) {
		s.cc[j][g]--
	}
}

// balanceKey returns (spread, sum of squares) of the real group sums,
// optionally with two sums replaced.
func (s *search) balanceKey(ga int, va float64, gb int, vb float64) (float64, float64) {
	var (
		lo, hi = math.Inf(1), math.Inf(-1)
		sq     float64
		v      float64
	)
	for g := 0; g < s.p.k; g++ {
		switch g {
		case ga:
			v = va
		case gb:
			v = vb
		default:
			v = s.sums[g]
		}
		lo, hi = min(lo, v), max(hi, v)
		sq += v * v
	}

	return hi - lo, sq
}

// better decides acceptance given the conflict delta and objective deltas.
// For scores gain > eps is required; for balance the key must drop.
func (s *search) better(dcc int, gain float64, spread, sq, curSpread, curSq float64) bool {
	if dcc != 0 {
		return dcc < 0
	}
	if s.p.dir != MinimizeImbalance {
		return gain > s.eps
	}
	if spread < curSpread-s.eps {
		return true
	}

	return spread <= curSpread+s.eps && sq < curSq-s.eps
}

// seed builds the initial assignment.
func (s *search) seed() {
	var (
		p   = s.p
		seq = make([]int, p.n)
	)
	for i := range seq {
		seq[i] = i
	}
	if p.dir == MinimizeImbalance {
		sort.SliceStable(seq, func(a, b int) bool { return p.weight[seq[a]] > p.weight[seq[b]] })
	}

	for placed, i := range seq {
		deficit := 0
		for g := 0; g < p.k; g++ {
			deficit += max(p.min-s.count[g], 0)
		}
		forced := deficit >= p.n-placed

		pick := -1
		var pickCC int
		var pickVal float64
		for g := 0; g < p.buckets(); g++ {
			if s.count[g] >= s.maxOf(g) || (forced && s.count[g] >= s.minOf(g)) {
				continue
			}
			cc := s.ccOf(i, g)
			var val float64
			if p.dir == MinimizeImbalance {
				val = -(s.sums[g] + p.weight[i])
			} else {
				val = s.gainOf(i, g)
			}
			if pick < 0 || cc < pickCC || (cc == pickCC && val > pickVal+s.eps) {
				pick, pickCC, pickVal = g, cc, val
			}
		}
		s.place(i, pick)
	}
}

func (s *search) expired() bool {
	if s.ctx.Err() != nil {
		return true
	}

	return !s.deadline.IsZero() && time.Now().After(s.deadline)
}

// improve runs first-improvement passes; it returns the number of passes run.
func (s *search) improve(maxPasses int) int {
	var (
		p    = s.p
		pass int
	)
	for pass = 0; pass < maxPasses; pass++ {
		if s.expired() {
			break
		}
		improved := false
		curSpread, curSq := 0.0, 0.0
		if p.dir == MinimizeImbalance {
			curSpread, curSq = s.balanceKey(-1, 0, -1, 0)
		}

		for i := 0; i < p.n; i++ {
			for j := i + 1; j < p.n; j++ {
				a, b := s.assign[i], s.assign[j]
				if a == b {
					continue
				}
				cij, sij := 0, 0.0
				if p.conf.HasConflict(i, j) {
					cij = 1
				}
				if p.pair != nil {
					sij = s.sign * p.pair[i][j]
				}
				var dcc int
				var gain float64
				dcc = s.ccOf(i, b) - s.ccOf(i, a) + s.ccOf(j, a) - s.ccOf(j, b)
				if s.real(a) {
					dcc -= cij
					gain -= sij
				}
				if s.real(b) {
					dcc -= cij
					gain -= sij
				}
				gain += s.gainOf(i, b) - s.gainOf(i, a) + s.gainOf(j, a) - s.gainOf(j, b)
				var spread, sq float64
				if p.dir == MinimizeImbalance {
					d := p.weight[i] - p.weight[j]
					spread, sq = s.balanceKey(a, s.sums[a]-d, b, s.sums[b]+d)
				}
				if !s.better(dcc, gain, spread, sq, curSpread, curSq) {
					continue
				}
				s.lift(i)
				s.lift(j)
				s.place(i, b)
				s.place(j, a)
				s.moves++
				improved = true
				if p.dir == MinimizeImbalance {
					curSpread, curSq = spread, sq
				}
			}
		}

		for i := 0; i < p.n; i++ {
			a := s.assign[i]
			for g := 0; g < p.buckets(); g++ {
				if g == a || s.count[g] >= s.maxOf(g) || s.count[a] <= s.minOf(a) {
					continue
				}
				dcc := s.ccOf(i, g) - s.ccOf(i, a)
				gain := s.gainOf(i, g) - s.gainOf(i, a)
				var spread, sq float64
				if p.dir == MinimizeImbalance {
					w := p.weight[i]
					spread, sq = s.balanceKey(a, s.sums[a]-w, g, s.sums[g]+w)
				}
				if !s.better(dcc, gain, spread, sq, curSpread, curSq) {
					continue
				}
				s.lift(i)
				s.place(i, g)
				s.moves++
				improved = true
				a = g
				if p.dir == MinimizeImbalance {
					curSpread, curSq = spread, sq
				}
			}
		}

		if !improved {
			pass++
			break
		}
	}

	return pass
}

// violations counts conflicting pairs that share a real group.
func (s *search) violations() int {
	total := 0
	for i := 0; i < s.p.n; i++ {
		total += s.ccOf(i, s.assign[i])
	}

	return total / 2
}

// result returns the assignment with the bucket mapped to -1.
func (s *search) result() []int {
	out := make([]int, s.p.n)
	for i, g := range s.assign {
		if s.real(g) {
			out[i] = g
		} else {
			out[i] = -1
		}
	}

	return out
}
