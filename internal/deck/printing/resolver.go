// Package printing decides which printing of a card an instance should show.
//
// Every code path that needs a printing, whether the search preview or the
// card detail view, calls Resolve with the same DataSource so the two can
// never disagree.
package printing

import (
	"github.com/ramonehamilton/deckforge/internal/deck"
)

// DataSource supplies the stored printing signals for a card name. The
// calling layer fetches them before resolving; implementations must not block.
type DataSource interface {
	// UserPreference returns the printing the user explicitly chose.
	UserPreference(name string) (deck.PrintingRef, bool)

	// CachedPrinting returns the printing last resolved or selected for the
	// name anywhere in the session.
	CachedPrinting(name string) (deck.PrintingRef, bool)

	// BasicLandDefault returns the preferred printing of a basic land.
	BasicLandDefault(name string) (deck.PrintingRef, bool)
}

// Tier identifies which signal produced a resolution.
type Tier int

const (
	TierUserPreference Tier = iota + 1
	TierCache
	TierBasicLand
	TierContext
)

// String returns the tier name used in logs and API responses.
func (t Tier) String() string {
	switch t {
	case TierUserPreference:
		return "user-preference"
	case TierCache:
		return "cache"
	case TierBasicLand:
		return "basic-land-default"
	case TierContext:
		return "context"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Printing deck.PrintingRef `json:"printing"`
	Tier     Tier             `json:"tier"`

	// Changed is set when a stored signal replaced the instance's current
	// printing, so callers refresh images and prices tied to the old one.
	Changed bool `json:"changed"`
}

// Resolve picks the printing for name. The first match wins: user preference,
// cached printing, basic land default (basic lands only), then the calling
// context's own printing. When current carries no printing data the first
// known candidate stands in for it. src may be nil.
func Resolve(name string, candidates []deck.PrintingRef, current deck.PrintingRef, src DataSource) Resolution {
	if src != nil {
		if p, ok := src.UserPreference(name); ok && p.IsKnown() {
			return stored(p, TierUserPreference, current)
		}
		if p, ok := src.CachedPrinting(name); ok && p.IsKnown() {
			return stored(p, TierCache, current)
		}
		if IsBasicLand(name) {
			if p, ok := src.BasicLandDefault(name); ok && p.IsKnown() {
				return stored(p, TierBasicLand, current)
			}
		}
	}

	return Resolution{Printing: floor(candidates, current), Tier: TierContext}
}

// ResolveInstance resolves c's printing and returns a copy of c carrying it.
func ResolveInstance(c deck.CardInstance, candidates []deck.PrintingRef, src DataSource) (deck.CardInstance, Resolution) {
	res := Resolve(c.Name, candidates, c.Printing, src)
	out := c.Clone()
	out.Printing = res.Printing
	return out, res
}

func stored(p deck.PrintingRef, tier Tier, current deck.PrintingRef) Resolution {
	return Resolution{
		Printing: p,
		Tier:     tier,
		Changed:  !p.Equal(current),
	}
}

func floor(candidates []deck.PrintingRef, current deck.PrintingRef) deck.PrintingRef {
	if current.IsKnown() {
		return current
	}
	for _, c := range candidates {
		if c.IsKnown() {
			return c
		}
	}
	return current
}
