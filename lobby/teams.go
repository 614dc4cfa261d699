// Package lobby - feasible team enumeration.
//
// Units are sorted by size ascending and explored from the largest down
// with an explicit stack; each state either takes the current unit (if it
// fits the remaining seats and is compatible with every member so far) or
// skips it. Before the search, the partitions of UsersPerTeam over the unit
// sizes present are enumerated; compositions the pool cannot supply are
// dropped and a unit size may never be taken more often than the most
// demanding surviving composition allows.

package lobby

import (
	"context"
	"math/big"
	"sort"
	"time"

	"github.com/katalvlaran/lvmatch/partition"
)

// Team is a set of units filling exactly UsersPerTeam seats.
type Team struct {
	// Members are unit positions in the matchmaker's sorted order.
	Members []int
	Profile Profile
	mask    *big.Int
}

type teamState struct {
	left    int // units still available: positions [0, left)
	seats   int
	members []int
	counts  map[int]int
}

// sizeCaps returns, per unit size, the largest multiplicity any composition
// of seats supplied by the pool uses. An empty map means no team can form.
func sizeCaps(units []Unit, seats int) (map[int]int, error) {
	avail := make(map[int]int)
	for _, u := range units {
		avail[u.Size()]++
	}
	sizes := make([]int64, 0, len(avail))
	for s := range avail {
		sizes = append(sizes, int64(s))
	}
	caps := make(map[int]int)
	if len(sizes) == 0 {
		return caps, nil
	}
	comps, err := partition.IntegerPartitions(sizes, int64(seats), 0)
	if err != nil {
		return nil, err
	}
	for _, comp := range comps {
		ok := true
		for s, m := range comp {
			if int64(avail[int(s)]) < m {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		for s, m := range comp {
			caps[int(s)] = max(caps[int(s)], int(m))
		}
	}

	return caps, nil
}

// teams enumerates feasible teams over units (sorted by size). limit caps
// the result; reaching it stops the search and reports truncated.
func (m *Matchmaker) teams(ctx context.Context, units []Unit, profiles []Profile, now time.Time) (out []Team, truncated bool, err error) {
	seats := m.crit.UsersPerTeam
	caps, err := sizeCaps(units, seats)
	if err != nil || len(caps) == 0 {
		return nil, false, err
	}

	stack := []teamState{{left: len(units), seats: seats, counts: map[int]int{}}}
	for len(stack) > 0 {
		if err = ctx.Err(); err != nil {
			return nil, false, err
		}
		st := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if st.left == 0 {
			continue
		}
		cur := st.left - 1
		size := units[cur].Size()

		if cur > 0 {
			stack = append(stack, teamState{left: cur, seats: st.seats, members: st.members, counts: st.counts})
		}
		if size > st.seats || st.counts[size] >= caps[size] || !m.fitsTeam(profiles, st.members, cur) {
			continue
		}

		members := make([]int, len(st.members), len(st.members)+1)
		copy(members, st.members)
		members = append(members, cur)
		if st.seats == size {
			out = append(out, m.newTeam(members, profiles, now))
			if len(out) >= m.crit.MaxTeams {
				return out, true, nil
			}
			continue
		}
		counts := make(map[int]int, len(st.counts)+1)
		for k, v := range st.counts {
			counts[k] = v
		}
		counts[size]++
		stack = append(stack, teamState{left: cur, seats: st.seats - size, members: members, counts: counts})
	}

	return out, false, nil
}

func (m *Matchmaker) fitsTeam(profiles []Profile, members []int, cand int) bool {
	for _, i := range members {
		if !Compatible(profiles[i], profiles[cand]) {
			return false
		}
	}

	return true
}

func (m *Matchmaker) newTeam(members []int, profiles []Profile, now time.Time) Team {
	sort.Ints(members)
	ps := make([]Profile, len(members))
	mask := new(big.Int)
	for k, i := range members {
		ps[k] = profiles[i]
		mask.SetBit(mask, i, 1)
	}

	return Team{Members: members, Profile: m.tol.Merge(now, ps...), mask: mask}
}
