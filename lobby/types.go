package lobby

import (
	"errors"
	"time"

	"github.com/katalvlaran/lvmatch/item"
)

// Sentinel errors, classified InvalidConfiguration.
var (
	ErrCriteria  = errors.New("lobby: teams per game and users per team must be positive")
	ErrTolerance = errors.New("lobby: tolerance windows must be positive")
	ErrUnit      = errors.New("lobby: invalid match unit")
	ErrDuplicate = errors.New("lobby: duplicate match unit")
)

// Unit is a party entering matchmaking together.
type Unit struct {
	ID      string
	Users   []string
	Rank    int
	Skill   float64
	Entered time.Time
}

// Size is the number of users in the unit.
func (u Unit) Size() int { return len(u.Users) }

// Item exposes the unit to the grouping layer with attributes
// [rank, skill, size].
func (u Unit) Item() item.Item {
	return item.New(u.ID, float64(u.Rank), u.Skill, float64(u.Size()))
}

// Attribute positions of Unit.Item.
const (
	AttrRank = iota
	AttrSkill
	AttrSize
)

// Tolerance widens the acceptable rank and skill ranges with waiting time.
type Tolerance struct {
	// Every full RankWindow of waiting widens the rank range by DeltaRank.
	RankWindow time.Duration
	DeltaRank  int
	// The skill range grows continuously by Skill*DeltaSkillRatio per SkillWindow.
	SkillWindow     time.Duration
	DeltaSkillRatio float64
}

// DefaultTolerance widens rank by one per minute and skill by 20% per minute.
func DefaultTolerance() Tolerance {
	return Tolerance{RankWindow: time.Minute, DeltaRank: 1, SkillWindow: time.Minute, DeltaSkillRatio: 0.2}
}

func (t Tolerance) valid() bool { return t.RankWindow > 0 && t.SkillWindow > 0 }

// Window is the closed rank and skill range a profile accepts.
type Window struct {
	RankLo, RankHi   int
	SkillLo, SkillHi float64
}

// Window returns the range accepted after waiting dwell. Negative dwell
// counts as zero.
func (t Tolerance) Window(rank int, skill float64, dwell time.Duration) Window {
	dwell = max(dwell, 0)
	dr := int(dwell/t.RankWindow) * t.DeltaRank
	ds := skill * t.DeltaSkillRatio * dwell.Seconds() / t.SkillWindow.Seconds()
	if ds < 0 {
		ds = -ds
	}

	return Window{RankLo: rank - dr, RankHi: rank + dr, SkillLo: skill - ds, SkillHi: skill + ds}
}

// Admits reports whether rank and skill fall within w.
func (w Window) Admits(rank int, skill float64) bool {
	return rank >= w.RankLo && rank <= w.RankHi && skill >= w.SkillLo && skill <= w.SkillHi
}

// Profile is the matching view of a unit or a merged team at a point in time.
type Profile struct {
	Rank    int
	Skill   float64
	Entered time.Time
	Window  Window
}

// Profile returns u's profile at now.
func (t Tolerance) Profile(u Unit, now time.Time) Profile {
	return Profile{Rank: u.Rank, Skill: u.Skill, Entered: u.Entered, Window: t.Window(u.Rank, u.Skill, now.Sub(u.Entered))}
}

// Merge combines profiles into a team profile: the latest entry time and the
// highest rank and skill, widened for the time waited since that entry.
func (t Tolerance) Merge(now time.Time, ps ...Profile) Profile {
	var out Profile
	for i, p := range ps {
		if i == 0 || p.Entered.After(out.Entered) {
			out.Entered = p.Entered
		}
		if i == 0 || p.Rank > out.Rank {
			out.Rank = p.Rank
		}
		if i == 0 || p.Skill > out.Skill {
			out.Skill = p.Skill
		}
	}
	out.Window = t.Window(out.Rank, out.Skill, now.Sub(out.Entered))

	return out
}

// Compatible reports whether a and b accept each other.
func Compatible(a, b Profile) bool {
	return a.Window.Admits(b.Rank, b.Skill) && b.Window.Admits(a.Rank, a.Skill)
}

// Criteria shapes games and caps the search.
type Criteria struct {
	TeamsPerGame int
	UsersPerTeam int
	// MaxTeams caps enumerated feasible teams (0 = DefaultMaxTeams).
	MaxTeams int
	// MaxGames keeps the best candidate games by score (0 = DefaultMaxGames).
	MaxGames int
}

// Search caps.
const (
	DefaultMaxTeams = 20000
	DefaultMaxGames = 2000
)

// UsersPerGame is TeamsPerGame * UsersPerTeam.
func (c Criteria) UsersPerGame() int { return c.TeamsPerGame * c.UsersPerTeam }

func (c Criteria) normalized() Criteria {
	if c.MaxTeams <= 0 {
		c.MaxTeams = DefaultMaxTeams
	}
	if c.MaxGames <= 0 {
		c.MaxGames = DefaultMaxGames
	}

	return c
}
