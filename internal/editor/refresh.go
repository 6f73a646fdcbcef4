package editor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ramonehamilton/deckforge/internal/deck"
	"github.com/ramonehamilton/deckforge/internal/events"
	"github.com/ramonehamilton/deckforge/internal/mtga/cards/scryfall"
)

// printingFetcher is implemented by card sources that can fetch one printing
// directly, including printings a name search does not list.
type printingFetcher interface {
	GetPrinting(ctx context.Context, p deck.PrintingRef) (*scryfall.Card, error)
}

// batchFetcher is implemented by card sources that fetch many printings per
// request.
type batchFetcher interface {
	GetCardsByPrintings(ctx context.Context, printings []deck.PrintingRef) ([]scryfall.Card, []scryfall.CardIdentifier, error)
}

// RefreshReport summarizes a price refresh.
type RefreshReport struct {
	Checked  int      `json:"checked"`  // Stacks with a known printing
	Updated  int      `json:"updated"`  // Stacks whose prices changed
	NotFound []string `json:"notFound"` // Keys of stacks the card source did not return
}

// RefreshPrices fetches the current prices of every known printing in the
// deck and stores them. Overrides are kept, and stacks without a known
// printing are left alone. Without a card source nothing changes.
func (s *Service) RefreshPrices(ctx context.Context, id string) (deck.Deck, RefreshReport, error) {
	current, err := s.GetDeck(ctx, id)
	if err != nil {
		return deck.Deck{}, RefreshReport{}, err
	}
	if s.cards == nil {
		return current, RefreshReport{}, nil
	}

	cards, err := s.fetchPrintings(ctx, current)
	if err != nil {
		return deck.Deck{}, RefreshReport{}, err
	}

	var report RefreshReport
	d, err := s.edit(ctx, id, func(d deck.Deck) (deck.Deck, error) {
		report = RefreshReport{NotFound: []string{}}
		out := d.Clone()
		for _, z := range deck.Zones() {
			for i, c := range out.Zones[z] {
				if !c.Printing.IsKnown() {
					continue
				}
				report.Checked++

				card, ok := matchPrinting(cards, c.Printing)
				if !ok {
					report.NotFound = append(report.NotFound, c.Key())
					continue
				}
				price := card.PriceRecord()
				price.Override = c.Price.Override
				if !price.Equal(c.Price) {
					out.Zones[z][i].Price = price
					report.Updated++
				}
			}
		}
		return out, nil
	})
	if err != nil {
		return deck.Deck{}, RefreshReport{}, err
	}

	s.publish(events.TypePricesRefreshed, id, events.PricesRefreshedEvent{
		Checked: report.Checked, Updated: report.Updated, NotFound: len(report.NotFound),
	})
	return d, report, nil
}

// fetchPrintings fetches every known printing of d, in batches when the card
// source supports it and by name otherwise.
func (s *Service) fetchPrintings(ctx context.Context, d deck.Deck) ([]scryfall.Card, error) {
	var refs []deck.PrintingRef
	var names []string
	seen := make(map[string]bool)
	for _, z := range deck.Zones() {
		for _, c := range d.Zone(z) {
			if !c.Printing.IsKnown() {
				continue
			}
			names = append(names, c.Name)
			if k := deck.PrintingKey(c.Printing); !seen[k] {
				seen[k] = true
				refs = append(refs, c.Printing)
			}
		}
	}
	if len(refs) == 0 {
		return nil, nil
	}

	if batch, ok := s.cards.(batchFetcher); ok {
		cards, notFound, err := batch.GetCardsByPrintings(ctx, refs)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch prices: %w", err)
		}
		if len(notFound) > 0 {
			s.logger.Info("card source did not return some printings", zap.Int("count", len(notFound)))
		}
		return cards, nil
	}

	fetched, err := s.fetchCandidates(ctx, names)
	if err != nil {
		return nil, err
	}
	var cards []scryfall.Card
	for _, printings := range fetched {
		cards = append(cards, printings...)
	}
	return cards, nil
}

func matchPrinting(cards []scryfall.Card, p deck.PrintingRef) (*scryfall.Card, bool) {
	for i := range cards {
		if cards[i].PrintingRef().Equal(p) {
			return &cards[i], true
		}
	}
	return nil, false
}
