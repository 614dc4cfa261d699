// Package config - round files.

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/katalvlaran/lvmatch/grouping"
	"github.com/katalvlaran/lvmatch/item"
	"github.com/katalvlaran/lvmatch/match"
)

// Round file rule violations.
var (
	ErrObjective = errors.New("config: set exactly one of balance and scorer")
	ErrBounds    = errors.New("config: max_size below min_size")
	ErrDirection = errors.New("config: direction needs a scorer")
)

// Directions accepted in a round file.
const (
	DirectionMaximize = "maximize"
	DirectionMinimize = "minimize"
)

// ItemRow is an inline item of a round file.
type ItemRow struct {
	ID    string    `yaml:"id" toml:"id" json:"id" validate:"required"`
	Attrs []float64 `yaml:"attrs" toml:"attrs" json:"attrs" validate:"required,min=1"`
}

// RoundFile is the on-disk form of a match.RoundSpec, optionally carrying
// its items.
type RoundFile struct {
	GroupCount int `yaml:"group_count" toml:"group_count" json:"group_count" validate:"gt=0"`
	MinSize    int `yaml:"min_size" toml:"min_size" json:"min_size" validate:"gte=0"`
	MaxSize    int `yaml:"max_size" toml:"max_size" json:"max_size" validate:"gte=0"`

	// Balance is the attribute to balance; Scorer names a registered scorer.
	Balance   *int   `yaml:"balance" toml:"balance" json:"balance,omitempty" validate:"omitempty,gte=0"`
	Scorer    string `yaml:"scorer" toml:"scorer" json:"scorer,omitempty"`
	Direction string `yaml:"direction" toml:"direction" json:"direction,omitempty" validate:"omitempty,oneof=maximize minimize"`

	Conflicts       [][]string `yaml:"conflicts" toml:"conflicts" json:"conflicts,omitempty" validate:"dive,len=2,dive,required"`
	AllowUnassigned bool       `yaml:"allow_unassigned" toml:"allow_unassigned" json:"allow_unassigned"`

	ExactVariableCeiling int    `yaml:"exact_variable_ceiling" toml:"exact_variable_ceiling" json:"exact_variable_ceiling" validate:"gte=0"`
	TimeLimit            string `yaml:"time_limit" toml:"time_limit" json:"time_limit,omitempty"`

	Items []ItemRow `yaml:"items" toml:"items" json:"items,omitempty" validate:"dive"`
}

// Validate checks the rules struct tags cannot express.
func (r *RoundFile) Validate() error {
	if (r.Balance == nil) == (r.Scorer == "") {
		return ErrObjective
	}
	if r.MaxSize > 0 && r.MaxSize < r.MinSize {
		return fmt.Errorf("%w: %d < %d", ErrBounds, r.MaxSize, r.MinSize)
	}
	if r.Direction != "" && r.Scorer == "" {
		return ErrDirection
	}
	if _, err := r.timeLimit(); err != nil {
		return err
	}

	return nil
}

func (r *RoundFile) timeLimit() (time.Duration, error) {
	if r.TimeLimit == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(r.TimeLimit)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("config: time_limit %q is not a non-negative duration", r.TimeLimit)
	}

	return d, nil
}

// LoadRound reads and validates a round file.
func LoadRound(path string) (*RoundFile, error) {
	var r RoundFile
	if err := load(path, &r); err != nil {
		return nil, err
	}

	return &r, nil
}

// ParseRound decodes and validates a round file held in memory.
func ParseRound(data []byte, f Format) (*RoundFile, error) {
	var r RoundFile
	if err := parse(data, f, &r); err != nil {
		return nil, err
	}

	return &r, nil
}

// RoundSpec resolves the scorer by name (pair scorers first, then item
// scorers) and returns the equivalent match.RoundSpec.
func (r *RoundFile) RoundSpec(scorers *match.Scorers) (match.RoundSpec, error) {
	limit, err := r.timeLimit()
	if err != nil {
		return match.RoundSpec{}, err
	}
	spec := match.RoundSpec{
		GroupCount:           r.GroupCount,
		MinSize:              r.MinSize,
		MaxSize:              r.MaxSize,
		AllowUnassigned:      r.AllowUnassigned,
		ExactVariableCeiling: r.ExactVariableCeiling,
		TimeLimit:            limit,
	}
	for _, c := range r.Conflicts {
		spec.Conflicts = append(spec.Conflicts, [2]string{c[0], c[1]})
	}
	if r.Balance != nil {
		spec.BalanceTarget = match.Balance(*r.Balance)
		return spec, nil
	}

	spec.Direction = grouping.MaximizeScore
	if r.Direction == DirectionMinimize {
		spec.Direction = grouping.MinimizeScore
	}
	if pair, err := scorers.Pair(r.Scorer); err == nil {
		spec.Score = pair
		return spec, nil
	}
	one, err := scorers.Item(r.Scorer)
	if err != nil {
		return match.RoundSpec{}, err
	}
	spec.ItemScore = one

	return spec, nil
}

// ItemList converts the inline items.
func (r *RoundFile) ItemList() []item.Item {
	out := make([]item.Item, len(r.Items))
	for i, row := range r.Items {
		out[i] = item.New(row.ID, row.Attrs...)
	}

	return out
}
