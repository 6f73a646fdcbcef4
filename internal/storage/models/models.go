package models

import (
	"strings"
	"time"

	"github.com/ramonehamilton/deckforge/internal/deck"
)

// Deck represents a stored deck's header row.
type Deck struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// DeckCard represents one card stack in a deck zone.
type DeckCard struct {
	ID              int
	DeckID          string
	Zone            string // "main", "sideboard" or "techIdeas"
	Position        int    // Order within the zone
	IdentityKey     string
	Name            string
	ScryfallID      string
	SetCode         string
	CollectorNumber string
	Finish          string
	Quantity        int
	PriceNormal     *int64 // Nullable, hundredths
	PriceFoil       *int64 // Nullable, hundredths
	PriceEtched     *int64 // Nullable, hundredths
	PriceOverride   *int64 // Nullable, hundredths
	Finishes        string // Comma separated, empty when unknown
}

// PrintingPreference is a user's chosen printing for a card name.
type PrintingPreference struct {
	CardName        string // Normalized name
	DisplayName     string
	ScryfallID      string
	SetCode         string
	CollectorNumber string
	UpdatedAt       time.Time
}

// CachedPrinting is the last printing the editor resolved for a card name.
type CachedPrinting struct {
	CardName        string // Normalized name
	ScryfallID      string
	SetCode         string
	CollectorNumber string
	FetchedAt       time.Time
}

// NewDeckCard converts a card instance into its row form.
func NewDeckCard(deckID string, zone deck.Zone, position int, c deck.CardInstance) *DeckCard {
	finishes := make([]string, len(c.Price.Finishes))
	for i, f := range c.Price.Finishes {
		finishes[i] = string(f)
	}

	return &DeckCard{
		DeckID:          deckID,
		Zone:            string(zone),
		Position:        position,
		IdentityKey:     c.Key(),
		Name:            c.Name,
		ScryfallID:      c.Printing.ScryfallID,
		SetCode:         c.Printing.SetCode,
		CollectorNumber: c.Printing.CollectorNumber,
		Finish:          string(c.Finish),
		Quantity:        c.Count,
		PriceNormal:     toCents(c.Price.Normal),
		PriceFoil:       toCents(c.Price.Foil),
		PriceEtched:     toCents(c.Price.Etched),
		PriceOverride:   toCents(c.Price.Override),
		Finishes:        strings.Join(finishes, ","),
	}
}

// Instance converts the row back into a card instance. Unknown finish
// names in the stored list are skipped.
func (c *DeckCard) Instance() deck.CardInstance {
	var finishes []deck.Finish
	if c.Finishes != "" {
		for _, s := range strings.Split(c.Finishes, ",") {
			if f, err := deck.ParseFinish(s); err == nil {
				finishes = append(finishes, f)
			}
		}
	}

	return deck.CardInstance{
		Name: c.Name,
		Printing: deck.PrintingRef{
			ScryfallID:      c.ScryfallID,
			SetCode:         c.SetCode,
			CollectorNumber: c.CollectorNumber,
		},
		Finish: deck.Finish(c.Finish),
		Count:  c.Quantity,
		Price: deck.PriceRecord{
			Normal:   fromCents(c.PriceNormal),
			Foil:     fromCents(c.PriceFoil),
			Etched:   fromCents(c.PriceEtched),
			Override: fromCents(c.PriceOverride),
			Finishes: finishes,
		},
	}
}

// Printing returns the preferred printing.
func (p *PrintingPreference) Printing() deck.PrintingRef {
	return deck.PrintingRef{ScryfallID: p.ScryfallID, SetCode: p.SetCode, CollectorNumber: p.CollectorNumber}
}

// Printing returns the cached printing.
func (c *CachedPrinting) Printing() deck.PrintingRef {
	return deck.PrintingRef{ScryfallID: c.ScryfallID, SetCode: c.SetCode, CollectorNumber: c.CollectorNumber}
}

func toCents(p *deck.Price) *int64 {
	if p == nil {
		return nil
	}
	v := int64(*p)
	return &v
}

func fromCents(v *int64) *deck.Price {
	if v == nil {
		return nil
	}
	return deck.Price(*v).Ptr()
}
