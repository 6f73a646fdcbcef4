package printing

import (
	"maps"

	"github.com/ramonehamilton/deckforge/internal/deck"
)

// Table maps card names to printings. Keys are normalized on lookup.
type Table map[string]deck.PrintingRef

func (t Table) normalized() Table {
	out := make(Table, len(t))
	for name, p := range t {
		out[deck.NormalizeName(name)] = p
	}
	return out
}

// MapSource is a DataSource over already-fetched tables.
type MapSource struct {
	preferences Table
	cache       Table
	basicLands  Table
}

// NewMapSource builds a source from user preferences, the printing cache and
// the basic land defaults. Any table may be nil.
func NewMapSource(preferences, cache, basicLands Table) *MapSource {
	return &MapSource{
		preferences: preferences.normalized(),
		cache:       cache.normalized(),
		basicLands:  basicLands.normalized(),
	}
}

// UserPreference implements DataSource.
func (s *MapSource) UserPreference(name string) (deck.PrintingRef, bool) {
	p, ok := s.preferences[deck.NormalizeName(name)]
	return p, ok
}

// CachedPrinting implements DataSource.
func (s *MapSource) CachedPrinting(name string) (deck.PrintingRef, bool) {
	p, ok := s.cache[deck.NormalizeName(name)]
	return p, ok
}

// BasicLandDefault implements DataSource.
func (s *MapSource) BasicLandDefault(name string) (deck.PrintingRef, bool) {
	p, ok := s.basicLands[deck.NormalizeName(name)]
	return p, ok
}

// WithCached returns a copy of s that also caches p for name. The receiver
// is left unchanged.
func (s *MapSource) WithCached(name string, p deck.PrintingRef) *MapSource {
	out := &MapSource{
		preferences: s.preferences,
		cache:       maps.Clone(s.cache),
		basicLands:  s.basicLands,
	}
	if out.cache == nil {
		out.cache = make(Table)
	}
	out.cache[deck.NormalizeName(name)] = p
	return out
}
