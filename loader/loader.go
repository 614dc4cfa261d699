// Package loader reads items and match units from CSV.
//
// Both readers expect a header row. Column names are matched
// case-insensitively after trimming; columns a reader does not need are
// ignored.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/katalvlaran/lvmatch/item"
	"github.com/katalvlaran/lvmatch/lobby"
)

// Sentinel errors.
var (
	ErrHeader = errors.New("loader: missing column")
	ErrRecord = errors.New("loader: bad record")
	ErrEmpty  = errors.New("loader: no header row")
)

// Unit file columns.
const (
	ColUnit    = "matchunitid"
	ColUser    = "userid"
	ColRank    = "rank"
	ColSkill   = "tsmu"
	ColEntered = "entered"
)

// ItemOptions selects the item columns.
type ItemOptions struct {
	// IDColumn defaults to "id".
	IDColumn string
	// Columns lists the attribute columns in attribute order. Empty means
	// every column other than the id, in file order.
	Columns []string
	// Comma defaults to ','.
	Comma rune
}

// UnitOptions selects the unit columns.
type UnitOptions struct {
	// SkillColumn defaults to ColSkill; "skill" is accepted as a fallback.
	SkillColumn string
	// Entered is used for rows without an entered column (unix seconds).
	Entered time.Time
	Comma   rune
}

type table struct {
	r     *csv.Reader
	index map[string]int
	names []string
}

func open(r io.Reader, comma rune) (*table, error) {
	cr := csv.NewReader(r)
	if comma != 0 {
		cr.Comma = comma
	}
	cr.TrimLeadingSpace = true
	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, err
	}
	t := &table{r: cr, index: make(map[string]int, len(head)), names: make([]string, len(head))}
	for i, h := range head {
		name := strings.ToLower(strings.TrimSpace(h))
		t.names[i] = name
		t.index[name] = i
	}

	return t, nil
}

func (t *table) column(names ...string) (int, error) {
	for _, n := range names {
		if i, ok := t.index[strings.ToLower(n)]; ok {
			return i, nil
		}
	}

	return 0, fmt.Errorf("%w: %s", ErrHeader, strings.Join(names, " or "))
}

// each calls fn for every data record with its line number.
func (t *table) each(fn func(line int, rec []string) error) error {
	for {
		rec, err := t.r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line, _ := t.r.FieldPos(0)
		if err = fn(line, rec); err != nil {
			return err
		}
	}
}

func number(line int, col, v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d column %s: %q", ErrRecord, line, col, v)
	}

	return f, nil
}

// LoadItems reads one item per record.
func LoadItems(r io.Reader, opts ItemOptions) ([]item.Item, error) {
	t, err := open(r, opts.Comma)
	if err != nil {
		return nil, err
	}
	idName := opts.IDColumn
	if idName == "" {
		idName = "id"
	}
	idCol, err := t.column(idName)
	if err != nil {
		return nil, err
	}
	var cols []int
	if len(opts.Columns) == 0 {
		for i := range t.names {
			if i != idCol {
				cols = append(cols, i)
			}
		}
	} else {
		for _, name := range opts.Columns {
			c, err := t.column(name)
			if err != nil {
				return nil, err
			}
			cols = append(cols, c)
		}
	}

	var out []item.Item
	err = t.each(func(line int, rec []string) error {
		attrs := make([]float64, len(cols))
		for k, c := range cols {
			v, err := number(line, t.names[c], rec[c])
			if err != nil {
				return err
			}
			attrs[k] = v
		}
		out = append(out, item.New(strings.TrimSpace(rec[idCol]), attrs...))

		return nil
	})

	return out, err
}

type unitAcc struct {
	unit  lobby.Unit
	skill float64
}

// LoadUnits reads one user per record and folds the records of each match
// unit into a lobby.Unit: its users in file order, the highest rank, the
// mean skill and the earliest entry time. Units keep first-seen order.
func LoadUnits(r io.Reader, opts UnitOptions) ([]lobby.Unit, error) {
	t, err := open(r, opts.Comma)
	if err != nil {
		return nil, err
	}
	unitCol, err := t.column(ColUnit)
	if err != nil {
		return nil, err
	}
	userCol, err := t.column(ColUser)
	if err != nil {
		return nil, err
	}
	rankCol, err := t.column(ColRank)
	if err != nil {
		return nil, err
	}
	skillName := opts.SkillColumn
	if skillName == "" {
		skillName = ColSkill
	}
	skillCol, err := t.column(skillName, "skill")
	if err != nil {
		return nil, err
	}
	enteredCol, hasEntered := t.index[ColEntered]

	var (
		order []string
		acc   = make(map[string]*unitAcc)
	)
	err = t.each(func(line int, rec []string) error {
		id := strings.TrimSpace(rec[unitCol])
		if id == "" {
			return fmt.Errorf("%w: line %d: empty %s", ErrRecord, line, ColUnit)
		}
		rank, err := strconv.Atoi(strings.TrimSpace(rec[rankCol]))
		if err != nil {
			return fmt.Errorf("%w: line %d column %s: %q", ErrRecord, line, ColRank, rec[rankCol])
		}
		skill, err := number(line, skillName, rec[skillCol])
		if err != nil {
			return err
		}
		entered := opts.Entered
		if hasEntered {
			secs, err := strconv.ParseInt(strings.TrimSpace(rec[enteredCol]), 10, 64)
			if err != nil {
				return fmt.Errorf("%w: line %d column %s: %q", ErrRecord, line, ColEntered, rec[enteredCol])
			}
			entered = time.Unix(secs, 0).UTC()
		}

		a, ok := acc[id]
		if !ok {
			a = &unitAcc{unit: lobby.Unit{ID: id, Rank: rank, Entered: entered}}
			acc[id] = a
			order = append(order, id)
		}
		a.unit.Users = append(a.unit.Users, strings.TrimSpace(rec[userCol]))
		a.unit.Rank = max(a.unit.Rank, rank)
		if entered.Before(a.unit.Entered) {
			a.unit.Entered = entered
		}
		a.skill += skill

		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]lobby.Unit, len(order))
	for i, id := range order {
		a := acc[id]
		a.unit.Skill = a.skill / float64(len(a.unit.Users))
		out[i] = a.unit
	}

	return out, nil
}
