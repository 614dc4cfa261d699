// Package pool keeps waiting match units in SQLite.
//
// Units are stored in a single table indexed by rank and skill so that the
// candidates of a unit (those inside its current acceptance window) are a
// range query. The pool uses the pure Go modernc.org/sqlite driver with a
// single connection; ":memory:" opens a private in-memory database.
package pool

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/katalvlaran/lvmatch/lobby"
)

// Sentinel errors.
var (
	ErrNotFound = errors.New("pool: unit not found")
	ErrExists   = errors.New("pool: unit already queued")
	ErrInvalid  = errors.New("pool: invalid unit")
)

// Memory is the path of a private in-memory pool.
const Memory = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS units (
	id      TEXT PRIMARY KEY,
	users   TEXT    NOT NULL,
	size    INTEGER NOT NULL,
	rank    INTEGER NOT NULL,
	skill   REAL    NOT NULL,
	entered INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_units_rank ON units(rank);
CREATE INDEX IF NOT EXISTS idx_units_skill ON units(skill);
`

const selectUnits = `SELECT id, users, rank, skill, entered FROM units`

// Pool is a SQLite-backed unit queue. It is safe for concurrent use; the
// single connection serializes access.
type Pool struct {
	db *sql.DB
}

// Open opens (creating if needed) the pool at path.
func Open(ctx context.Context, path string) (*Pool, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("pool: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{"PRAGMA synchronous=NORMAL", "PRAGMA temp_store=MEMORY"}
	if path != Memory {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, pragma := range pragmas {
		if _, err = db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pool: %s: %w", pragma, err)
		}
	}
	if _, err = db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("pool: schema: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close releases the database.
func (p *Pool) Close() error { return p.db.Close() }

// Add queues u.
func (p *Pool) Add(ctx context.Context, u lobby.Unit) error {
	if u.ID == "" || u.Size() == 0 {
		return fmt.Errorf("%w: %q with %d users", ErrInvalid, u.ID, u.Size())
	}
	users, err := json.Marshal(u.Users)
	if err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var n int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM units WHERE id = ?`, u.ID).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %q", ErrExists, u.ID)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO units (id, users, size, rank, skill, entered) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, string(users), u.Size(), u.Rank, u.Skill, u.Entered.UnixNano(),
	); err != nil {
		return err
	}

	return tx.Commit()
}

// AddAll queues units in one transaction; nothing is queued on error.
func (p *Pool) AddAll(ctx context.Context, units []lobby.Unit) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO units (id, users, size, rank, skill, entered) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, u := range units {
		if u.ID == "" || u.Size() == 0 {
			return fmt.Errorf("%w: %q with %d users", ErrInvalid, u.ID, u.Size())
		}
		var n int
		if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM units WHERE id = ?`, u.ID).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %q", ErrExists, u.ID)
		}
		users, err := json.Marshal(u.Users)
		if err != nil {
			return err
		}
		if _, err = stmt.ExecContext(ctx, u.ID, string(users), u.Size(), u.Rank, u.Skill, u.Entered.UnixNano()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Remove dequeues the unit id.
func (p *Pool) Remove(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM units WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	return nil
}

// RemoveMatched dequeues every unit placed in a game of res and returns how
// many were removed.
func (p *Pool) RemoveMatched(ctx context.Context, res lobby.Result) (int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	removed := 0
	for _, g := range res.Games {
		for _, id := range g.Units() {
			r, err := tx.ExecContext(ctx, `DELETE FROM units WHERE id = ?`, id)
			if err != nil {
				return 0, err
			}
			n, err := r.RowsAffected()
			if err != nil {
				return 0, err
			}
			removed += int(n)
		}
	}

	return removed, tx.Commit()
}

// Get returns the unit id.
func (p *Pool) Get(ctx context.Context, id string) (lobby.Unit, error) {
	units, err := p.query(ctx, selectUnits+` WHERE id = ?`, id)
	if err != nil {
		return lobby.Unit{}, err
	}
	if len(units) == 0 {
		return lobby.Unit{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	return units[0], nil
}

// Count returns the number of queued units.
func (p *Pool) Count(ctx context.Context) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM units`).Scan(&n)

	return n, err
}

// All returns every unit, oldest first (ties by id).
func (p *Pool) All(ctx context.Context) ([]lobby.Unit, error) {
	return p.query(ctx, selectUnits+` ORDER BY entered, id`)
}

// InRankRange returns the units with lo <= rank <= hi, oldest first.
func (p *Pool) InRankRange(ctx context.Context, lo, hi int) ([]lobby.Unit, error) {
	return p.query(ctx, selectUnits+` WHERE rank BETWEEN ? AND ? ORDER BY entered, id`, lo, hi)
}

// Candidates returns the queued units that unit id and they mutually
// accept at now under tol. The range query narrows by id's window; the
// mutual check runs on the narrowed set.
func (p *Pool) Candidates(ctx context.Context, id string, now time.Time, tol lobby.Tolerance) ([]lobby.Unit, error) {
	self, err := p.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	me := tol.Profile(self, now)
	w := me.Window
	near, err := p.query(ctx,
		selectUnits+` WHERE id <> ? AND rank BETWEEN ? AND ? AND skill BETWEEN ? AND ? ORDER BY entered, id`,
		id, w.RankLo, w.RankHi, w.SkillLo, w.SkillHi)
	if err != nil {
		return nil, err
	}

	out := near[:0]
	for _, u := range near {
		if lobby.Compatible(me, tol.Profile(u, now)) {
			out = append(out, u)
		}
	}

	return out, nil
}

func (p *Pool) query(ctx context.Context, q string, args ...any) ([]lobby.Unit, error) {
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []lobby.Unit
	for rows.Next() {
		var (
			u       lobby.Unit
			users   string
			entered int64
		)
		if err = rows.Scan(&u.ID, &users, &u.Rank, &u.Skill, &entered); err != nil {
			return nil, err
		}
		if err = json.Unmarshal([]byte(users), &u.Users); err != nil {
			return nil, fmt.Errorf("pool: unit %q users: %w", u.ID, err)
		}
		u.Entered = time.Unix(0, entered).UTC()
		out = append(out, u)
	}

	return out, rows.Err()
}
