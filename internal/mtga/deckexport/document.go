package deckexport

import (
	"github.com/ramonehamilton/deckforge/internal/deck"
	"github.com/ramonehamilton/deckforge/internal/deck/pricing"
)

// Document is the structured JSON/YAML form of a deck. Card entries keep the
// record shape so a document can be imported again.
type Document struct {
	ID            string                `json:"id" yaml:"id"`
	Name          string                `json:"name" yaml:"name"`
	Zones         map[deck.Zone][]Entry `json:"zones" yaml:"zones"`
	Total         deck.Price            `json:"total" yaml:"total"`
	MissingPrices int                   `json:"missing_prices" yaml:"missing_prices"`
	Counts        map[deck.Zone]int     `json:"counts" yaml:"counts"`
}

// Entry is one card stack with its resolved price.
type Entry struct {
	deck.CardInstance `yaml:",inline"`
	Key               string         `json:"key" yaml:"key"`
	UnitPrice         *deck.Price    `json:"unit_price,omitempty" yaml:"unit_price,omitempty"`
	PriceSource       pricing.Source `json:"price_source" yaml:"price_source"`
}

// Document builds the structured form of d. Totals cover the main deck and
// sideboard; tech ideas are not part of the deck's cost.
func (e *Exporter) Document(d deck.Deck) Document {
	doc := Document{
		ID:     d.ID,
		Name:   d.Name,
		Zones:  make(map[deck.Zone][]Entry, len(deck.Zones())),
		Counts: make(map[deck.Zone]int, len(deck.Zones())),
	}

	for _, z := range deck.Zones() {
		instances := d.Zone(z)
		entries := make([]Entry, 0, len(instances))
		for _, c := range instances {
			p, src := e.prices.ResolveInstance(c)
			entry := Entry{CardInstance: c, Key: c.Key(), PriceSource: src}
			if src != pricing.SourceNone {
				entry.UnitPrice = p.Ptr()
			}
			entries = append(entries, entry)
		}
		doc.Zones[z] = entries
		doc.Counts[z] = deck.ZoneCount(d, z)

		if z == deck.ZoneTechIdeas {
			continue
		}
		total, missing := e.prices.Total(instances)
		doc.Total += total
		doc.MissingPrices += missing
	}

	return doc
}
