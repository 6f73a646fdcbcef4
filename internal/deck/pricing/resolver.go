// Package pricing picks the one authoritative price of a card instance.
package pricing

import (
	"slices"

	"github.com/ramonehamilton/deckforge/internal/deck"
	"github.com/ramonehamilton/deckforge/internal/deck/printing"
)

// DefaultBasicLandPrice is shown for basic lands with no market price.
const DefaultBasicLandPrice deck.Price = 10

// Source names the rule that produced a price.
type Source string

const (
	SourceOverride  Source = "override"
	SourceFinish    Source = "finish"
	SourceFoilOnly  Source = "foil-only"
	SourceBasicLand Source = "basic-land"
	SourceNone      Source = "none"
)

// Resolver resolves prices with a configurable basic land fallback.
type Resolver struct {
	basicLandPrice deck.Price
}

// NewResolver creates a resolver that prices unpriced basic lands at
// basicLandPrice.
func NewResolver(basicLandPrice deck.Price) *Resolver {
	return &Resolver{basicLandPrice: basicLandPrice}
}

var defaultResolver = NewResolver(DefaultBasicLandPrice)

// Resolve resolves with the default basic land price.
func Resolve(rec deck.PriceRecord, finish deck.Finish, isBasicLand bool) (deck.Price, bool) {
	return defaultResolver.Resolve(rec, finish, isBasicLand)
}

// Resolve returns the price to display for an instance with the given finish,
// or false when there is none and the caller should show "N/A".
func (r *Resolver) Resolve(rec deck.PriceRecord, finish deck.Finish, isBasicLand bool) (deck.Price, bool) {
	p, src := r.ResolveDetailed(rec, finish, isBasicLand)
	return p, src != SourceNone
}

// ResolveDetailed is Resolve that also reports which rule matched. The order
// is: explicit override, the finish's own price, the foil price of a
// foil-only printing shown as normal, the basic land default. No other field
// is ever consulted.
func (r *Resolver) ResolveDetailed(rec deck.PriceRecord, finish deck.Finish, isBasicLand bool) (deck.Price, Source) {
	if rec.Override != nil {
		return *rec.Override, SourceOverride
	}
	if p := rec.ForFinish(finish); p != nil {
		return *p, SourceFinish
	}
	if (finish == deck.FinishNormal || finish == "") && rec.Normal == nil && rec.Foil != nil && IsFoilOnly(rec.Finishes) {
		return *rec.Foil, SourceFoilOnly
	}
	if isBasicLand {
		return r.basicLandPrice, SourceBasicLand
	}
	return 0, SourceNone
}

// ResolveInstance prices c, treating basic lands by name.
func (r *Resolver) ResolveInstance(c deck.CardInstance) (deck.Price, Source) {
	return r.ResolveDetailed(c.Price, c.Finish, printing.IsBasicLand(c.Name))
}

// IsFoilOnly reports whether a printing has a foil finish and no normal
// one. An empty list means the finishes are unknown, which is not foil-only.
func IsFoilOnly(finishes []deck.Finish) bool {
	return slices.Contains(finishes, deck.FinishFoil) && !slices.Contains(finishes, deck.FinishNormal)
}

// Total sums the resolved price of every copy in instances. Instances with
// no price are counted in missing rather than guessed.
func (r *Resolver) Total(instances []deck.CardInstance) (total deck.Price, missing int) {
	for _, c := range instances {
		p, src := r.ResolveInstance(c)
		if src == SourceNone {
			missing += c.Count
			continue
		}
		total += p * deck.Price(c.Count)
	}
	return total, missing
}
