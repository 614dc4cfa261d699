package match

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/katalvlaran/lvmatch/grouping"
)

// ErrUnknownScorer is returned by Scorers lookups for unregistered names.
var ErrUnknownScorer = errors.New("match: unknown scorer")

// Scorers maps names to score functions so that rounds described in
// configuration files can refer to them. It is safe for concurrent use.
type Scorers struct {
	mu    sync.RWMutex
	pairs map[string]grouping.PairScorer
	items map[string]grouping.ItemScorer
}

// Built-in scorer names.
const (
	ScorerNegDistance = "neg-distance"
	ScorerAttr0       = "attr0"
)

// NewScorers returns a registry holding the built-in scorers:
// "neg-distance" (pair) and "attr0" (item).
func NewScorers() *Scorers {
	s := &Scorers{
		pairs: map[string]grouping.PairScorer{ScorerNegDistance: grouping.NegDistance()},
		items: map[string]grouping.ItemScorer{ScorerAttr0: grouping.AttrScore(0)},
	}

	return s
}

// RegisterPair adds or replaces a pair scorer.
func (s *Scorers) RegisterPair(name string, f grouping.PairScorer) {
	s.mu.Lock()
	s.pairs[name] = f
	s.mu.Unlock()
}

// RegisterItem adds or replaces an item scorer.
func (s *Scorers) RegisterItem(name string, f grouping.ItemScorer) {
	s.mu.Lock()
	s.items[name] = f
	s.mu.Unlock()
}

// Pair looks up a pair scorer.
func (s *Scorers) Pair(name string) (grouping.PairScorer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.pairs[name]
	if !ok {
		return nil, fmt.Errorf("%w: pair %q", ErrUnknownScorer, name)
	}

	return f, nil
}

// Item looks up an item scorer.
func (s *Scorers) Item(name string) (grouping.ItemScorer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.items[name]
	if !ok {
		return nil, fmt.Errorf("%w: item %q", ErrUnknownScorer, name)
	}

	return f, nil
}

// Names lists registered pair and item scorer names, sorted.
func (s *Scorers) Names() (pairs, items []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k := range s.pairs {
		pairs = append(pairs, k)
	}
	for k := range s.items {
		items = append(items, k)
	}
	sort.Strings(pairs)
	sort.Strings(items)

	return pairs, items
}
