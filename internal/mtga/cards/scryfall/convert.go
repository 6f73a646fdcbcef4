package scryfall

import (
	"go.uber.org/zap"

	"github.com/ramonehamilton/deckforge/internal/deck"
)

// PrintingRef returns the printing identity of the card.
func (c *Card) PrintingRef() deck.PrintingRef {
	return deck.PrintingRef{
		ScryfallID:      c.ID,
		SetCode:         c.SetCode,
		CollectorNumber: c.CollectorNumber,
	}
}

// FinishList returns the finishes the printing exists in. Unrecognized
// finish names are dropped.
func (c *Card) FinishList() []deck.Finish {
	finishes := make([]deck.Finish, 0, len(c.Finishes))
	for _, s := range c.Finishes {
		f, err := deck.ParseFinish(s)
		if err != nil {
			continue
		}
		finishes = append(finishes, f)
	}
	return finishes
}

// PriceRecord converts the card's USD prices. Malformed prices are treated
// as absent.
func (c *Card) PriceRecord() deck.PriceRecord {
	return deck.PriceRecord{
		Normal:   parseUSD(c.Prices.USD),
		Foil:     parseUSD(c.Prices.USDFoil),
		Etched:   parseUSD(c.Prices.USDEtched),
		Finishes: c.FinishList(),
	}
}

// Instance builds a deck entry for count copies of this printing.
func (c *Card) Instance(finish deck.Finish, count int) deck.CardInstance {
	return deck.CardInstance{
		Name:     c.Name,
		Printing: c.PrintingRef(),
		Finish:   finish,
		Count:    count,
		Price:    c.PriceRecord(),
	}
}

// PrintingRefs returns the printing identity of each card, in order.
func PrintingRefs(cards []Card) []deck.PrintingRef {
	refs := make([]deck.PrintingRef, len(cards))
	for i := range cards {
		refs[i] = cards[i].PrintingRef()
	}
	return refs
}

func parseUSD(s *string) *deck.Price {
	if s == nil {
		return nil
	}
	p, err := deck.ParsePrice(*s)
	if err != nil {
		zap.L().Debug("ignoring malformed scryfall price", zap.String("value", *s), zap.Error(err))
		return nil
	}
	return p.Ptr()
}
