package lobby

import (
	"container/heap"
	"context"
	"math"
	"math/big"
	"time"
)

// candidate is a feasible game over the enumerated teams.
type candidate struct {
	teams []int // indices into the team list
	mask  *big.Int
	score float64
}

// score favours long waits and penalizes rank and skill spread across teams.
func score(teams []Team, picked []int, now time.Time) float64 {
	var (
		minRank, maxRank   = math.MaxInt, math.MinInt
		minSkill, maxSkill = math.Inf(1), math.Inf(-1)
		first              time.Time
	)
	for k, ti := range picked {
		p := teams[ti].Profile
		minRank, maxRank = min(minRank, p.Rank), max(maxRank, p.Rank)
		minSkill, maxSkill = math.Min(minSkill, p.Skill), math.Max(maxSkill, p.Skill)
		if k == 0 || p.Entered.Before(first) {
			first = p.Entered
		}
	}

	return now.Sub(first).Minutes() - float64(maxRank-minRank) - (maxSkill - minSkill)
}

// topGames is a min-heap on score holding the best candidates seen.
type topGames []candidate

func (h topGames) Len() int { return len(h) }
func (h topGames) Less(a, b int) bool {
	if h[a].score != h[b].score {
		return h[a].score < h[b].score
	}

	return lessIndices(h[b].teams, h[a].teams)
}
func (h topGames) Swap(a, b int) { h[a], h[b] = h[b], h[a] }
func (h *topGames) Push(x any)   { *h = append(*h, x.(candidate)) }
func (h *topGames) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]

	return x
}

// keep offers c to h, evicting the weakest candidate once n are held.
func (h *topGames) keep(c candidate, n int) {
	if h.Len() < n {
		heap.Push(h, c)
		return
	}
	if weakest := (*h)[0]; c.score > weakest.score {
		(*h)[0] = c
		heap.Fix(h, 0)
	}
}

func lessIndices(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}

	return len(a) < len(b)
}

type gameState struct {
	next  int // team index to consider
	left  int // teams still needed
	teams []int
	mask  *big.Int
}

// games backtracks over teams for TeamsPerGame disjoint, mutually
// compatible teams and keeps the MaxGames best by score.
func (m *Matchmaker) games(ctx context.Context, teams []Team, now time.Time) ([]candidate, error) {
	var (
		best  topGames
		stack = []gameState{{left: m.crit.TeamsPerGame, mask: new(big.Int)}}
		tmp   = new(big.Int)
	)
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		st := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if st.next >= len(teams) || len(teams)-st.next < st.left {
			continue
		}
		cur := teams[st.next]

		stack = append(stack, gameState{next: st.next + 1, left: st.left, teams: st.teams, mask: st.mask})

		if tmp.And(st.mask, cur.mask).Sign() != 0 || !m.fitsGame(teams, st.teams, st.next) {
			continue
		}
		picked := make([]int, len(st.teams), len(st.teams)+1)
		copy(picked, st.teams)
		picked = append(picked, st.next)
		mask := new(big.Int).Or(st.mask, cur.mask)
		if st.left == 1 {
			best.keep(candidate{teams: picked, mask: mask, score: score(teams, picked, now)}, m.crit.MaxGames)
			continue
		}
		stack = append(stack, gameState{next: st.next + 1, left: st.left - 1, teams: picked, mask: mask})
	}

	// Highest score first, ties by team indices.
	out := make([]candidate, best.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&best).(candidate)
	}

	return out, nil
}

func (m *Matchmaker) fitsGame(teams []Team, picked []int, cand int) bool {
	for _, ti := range picked {
		if !Compatible(teams[ti].Profile, teams[cand].Profile) {
			return false
		}
	}

	return true
}
