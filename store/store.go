// Package store persists match decisions in BadgerDB.
//
// Each decision is stored as JSON under "round/<id>". A store opened with
// InMemoryConfig keeps nothing on disk and suits tests and one-shot runs.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-logr/logr"
	"go.uber.org/multierr"

	"github.com/katalvlaran/lvmatch/match"
)

// Sentinel errors.
var (
	ErrNotFound = errors.New("store: decision not found")
	ErrNoPath   = errors.New("store: path is required for a persistent store")
	ErrNoRound  = errors.New("store: decision has no round id")
)

const prefix = "round/"

// Config configures a Store.
type Config struct {
	// Path is the database directory; ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	// GCDiscardRatio is passed to value-log GC by Compact.
	GCDiscardRatio float64
}

// DefaultConfig returns a durable on-disk configuration at path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true, GCDiscardRatio: 0.5}
}

// InMemoryConfig returns a configuration that keeps nothing on disk.
func InMemoryConfig() Config {
	return Config{InMemory: true, GCDiscardRatio: 0.5}
}

// badgerLogger routes badger's printf-style logging into logr.
type badgerLogger struct{ log logr.Logger }

func (l badgerLogger) Errorf(format string, args ...any) {
	l.log.Error(nil, fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.log.Info(fmt.Sprintf(format, args...), "level", "warning")
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.log.V(1).Info(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.log.V(2).Info(fmt.Sprintf(format, args...))
}

// Store is safe for concurrent use.
type Store struct {
	db  *badger.DB
	cfg Config
	log logr.Logger
}

// Open opens the store described by cfg. log may be the zero logger.
func Open(cfg Config, log logr.Logger) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, ErrNoPath
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("store: create %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if log.GetSink() != nil {
		opts = opts.WithLogger(badgerLogger{log: log.WithName("badger")})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	return &Store{db: db, cfg: cfg, log: log}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error { return s.db.Close() }

func key(id string) []byte { return []byte(prefix + id) }

// Save writes d, replacing any decision with the same round id.
func (s *Store) Save(ctx context.Context, d *match.Decision) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d == nil || d.RoundID == "" {
		return ErrNoRound
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", d.RoundID, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(d.RoundID), raw)
	})
}

// Load reads the decision of round id.
func (s *Store) Load(ctx context.Context, id string) (*match.Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var d match.Decision
	err := s.db.View(func(txn *badger.Txn) error {
		it, err := txn.Get(key(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		if err != nil {
			return err
		}

		return it.Value(func(v []byte) error { return json.Unmarshal(v, &d) })
	})
	if err != nil {
		return nil, err
	}

	return &d, nil
}

// Delete removes round id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key(id)); errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %q", ErrNotFound, id)
		} else if err != nil {
			return err
		}

		return txn.Delete(key(id))
	})
}

// List returns every stored decision ordered by round id. Undecodable
// entries are skipped and reported together in the returned error.
func (s *Store) List(ctx context.Context) ([]*match.Decision, error) {
	var (
		out  []*match.Decision
		errs error
	)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			entry := it.Item()
			var d match.Decision
			if err := entry.Value(func(v []byte) error { return json.Unmarshal(v, &d) }); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("store: %s: %w", entry.Key(), err))
				continue
			}
			out = append(out, &d)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, errs
}

// Compact runs value-log garbage collection until badger reports nothing
// left to rewrite. It is a no-op for in-memory stores.
func (s *Store) Compact() error {
	if s.cfg.InMemory {
		return nil
	}
	for {
		err := s.db.RunValueLogGC(s.cfg.GCDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return err
		}
		s.log.V(1).Info("value log rewritten")
	}
}
