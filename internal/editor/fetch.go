package editor

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ramonehamilton/deckforge/internal/deck"
	"github.com/ramonehamilton/deckforge/internal/deck/printing"
	"github.com/ramonehamilton/deckforge/internal/mtga/cards/scryfall"
)

// candidates maps normalized card names to their known printings.
type candidates map[string][]scryfall.Card

func (c candidates) refs(name string) []deck.PrintingRef {
	return scryfall.PrintingRefs(c[deck.NormalizeName(name)])
}

// find returns the fetched card for printing p of name.
func (c candidates) find(name string, p deck.PrintingRef) (*scryfall.Card, bool) {
	cards := c[deck.NormalizeName(name)]
	for i := range cards {
		if cards[i].PrintingRef().Equal(p) {
			return &cards[i], true
		}
	}
	return nil, false
}

// fetchCandidates looks up the printings of every name concurrently, at most
// s.workers at a time. Lookup failures leave that name without candidates;
// only cancellation of ctx fails the fetch.
func (s *Service) fetchCandidates(ctx context.Context, names []string) (candidates, error) {
	out := make(candidates)
	if s.cards == nil {
		return out, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, name := range uniqueNames(names) {
		g.Go(func() error {
			cards, err := s.cards.SearchPrintings(gctx, name)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if !scryfall.IsNotFound(err) {
					s.logger.Warn("printing lookup failed", zap.String("name", name), zap.Error(err))
				}
				return nil
			}

			mu.Lock()
			out[deck.NormalizeName(name)] = cards
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch printings: %w", err)
	}
	return out, nil
}

// resolved is the outcome of resolving one instance.
type resolved struct {
	Instance   deck.CardInstance
	Resolution printing.Resolution
}

// resolveInstances fills in the printing of each instance, fetching the
// candidate printings first and then running the resolver over them. When
// the printing changes, or the instance carries no prices, the price record
// of the chosen printing is taken from the fetched card. A changed printing
// that was not fetched is left without prices. A price override always
// survives.
func (s *Service) resolveInstances(ctx context.Context, instances []deck.CardInstance) ([]resolved, error) {
	names := make([]string, len(instances))
	for i, c := range instances {
		names[i] = c.Name
	}

	fetched, err := s.fetchCandidates(ctx, names)
	if err != nil {
		return nil, err
	}

	src, err := s.store.DataSource(ctx, names, s.basicLands)
	if err != nil {
		return nil, err
	}

	out := make([]resolved, len(instances))
	for i, c := range instances {
		inst, res := printing.ResolveInstance(c, fetched.refs(c.Name), src)

		if res.Changed || noPrices(inst.Price) {
			override := inst.Price.Override
			if card, ok := fetched.find(inst.Name, inst.Printing); ok {
				inst.Price = card.PriceRecord()
				inst.Price.Override = override
			} else if res.Changed {
				// The record belonged to the replaced printing.
				inst.Price = deck.PriceRecord{Override: override}
			}
		}

		if res.Tier == printing.TierContext && !c.Printing.IsKnown() && inst.Printing.IsKnown() {
			if err := s.store.CachePrinting(ctx, inst.Name, inst.Printing); err != nil {
				s.logger.Warn("failed to cache printing", zap.String("name", inst.Name), zap.Error(err))
			} else {
				src = src.WithCached(inst.Name, inst.Printing)
			}
		}

		out[i] = resolved{Instance: inst, Resolution: res}
	}
	return out, nil
}

// lookupPrinting finds the card for printing p of name among its listed
// printings, then by a direct lookup when the source supports one. It
// returns nil without error when no card source is configured or the card
// has no listed printings.
func (s *Service) lookupPrinting(ctx context.Context, name string, p deck.PrintingRef) (*scryfall.Card, error) {
	fetched, err := s.fetchCandidates(ctx, []string{name})
	if err != nil {
		return nil, err
	}
	if len(fetched[deck.NormalizeName(name)]) == 0 {
		return nil, nil
	}
	if card, ok := fetched.find(name, p); ok {
		return card, nil
	}

	// Name searches list paper printings only; ask for the printing itself.
	if direct, ok := s.cards.(printingFetcher); ok {
		card, err := direct.GetPrinting(ctx, p)
		switch {
		case err == nil && deck.NormalizeName(card.Name) == deck.NormalizeName(name):
			return card, nil
		case err != nil && !scryfall.IsNotFound(err):
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.logger.Warn("direct printing lookup failed", zap.String("name", name), zap.Error(err))
		}
	}
	return nil, fmt.Errorf("%w: %s %s", ErrPrintingNotFound, name, deck.PrintingKey(p))
}

func noPrices(r deck.PriceRecord) bool {
	return r.Normal == nil && r.Foil == nil && r.Etched == nil && r.Override == nil && len(r.Finishes) == 0
}

func uniqueNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		k := deck.NormalizeName(n)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, n)
	}
	return out
}
