// Package editor orchestrates deck editing: it fetches candidate printings
// before the resolvers run, serializes edits per deck, persists the result
// and publishes events.
package editor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ramonehamilton/deckforge/internal/deck"
	"github.com/ramonehamilton/deckforge/internal/deck/pricing"
	"github.com/ramonehamilton/deckforge/internal/deck/printing"
	"github.com/ramonehamilton/deckforge/internal/events"
	"github.com/ramonehamilton/deckforge/internal/mtga/cards/scryfall"
	"github.com/ramonehamilton/deckforge/internal/storage/models"
)

const defaultWorkers = 4

// Store persists decks and printing lookups.
type Store interface {
	SaveDeck(ctx context.Context, d deck.Deck) error
	LoadDeck(ctx context.Context, id string) (*deck.Deck, error)
	ListDecks(ctx context.Context) ([]*models.Deck, error)
	DeleteDeck(ctx context.Context, id string) (bool, error)
	SetPreference(ctx context.Context, name string, p deck.PrintingRef) error
	ClearPreference(ctx context.Context, name string) error
	CachePrinting(ctx context.Context, name string, p deck.PrintingRef) error
	DataSource(ctx context.Context, names []string, basicLands printing.Table) (*printing.MapSource, error)
}

// CardSource lists the printings of a card.
type CardSource interface {
	SearchPrintings(ctx context.Context, name string) ([]scryfall.Card, error)
}

// Options configures a Service.
type Options struct {
	// Cards supplies candidate printings and their prices. Nil works
	// offline with stored data only.
	Cards CardSource

	BasicLands printing.Table    // Defaults to printing.DefaultBasicLands()
	Prices     *pricing.Resolver // Defaults to the default basic land price
	Workers    int               // Concurrent printing lookups
	LockDir    string            // Session lock files; defaults under the temp dir
	Logger     *zap.Logger       // Defaults to the global logger
	Events     *events.EventDispatcher
}

// Service is the deck editor.
type Service struct {
	store      Store
	cards      CardSource
	basicLands printing.Table
	prices     *pricing.Resolver
	workers    int
	lockDir    string
	logger     *zap.Logger
	events     *events.EventDispatcher

	decks     sync.Map // deck ID -> *sync.Mutex
	sequences sequencers
}

// NewService creates a deck editor over store.
func NewService(store Store, opts Options) *Service {
	s := &Service{
		store:      store,
		cards:      opts.Cards,
		basicLands: opts.BasicLands,
		prices:     opts.Prices,
		workers:    opts.Workers,
		lockDir:    opts.LockDir,
		logger:     opts.Logger,
		events:     opts.Events,
	}
	if s.basicLands == nil {
		s.basicLands = printing.DefaultBasicLands()
	}
	if s.prices == nil {
		s.prices = pricing.NewResolver(pricing.DefaultBasicLandPrice)
	}
	if s.workers < 1 {
		s.workers = defaultWorkers
	}
	if s.lockDir == "" {
		s.lockDir = filepath.Join(os.TempDir(), "deckforge", "locks")
	}
	if s.logger == nil {
		s.logger = zap.L()
	}
	s.logger = s.logger.Named("editor")
	if s.events == nil {
		s.events = events.NewEventDispatcher(s.logger)
	}
	return s
}

// Events returns the dispatcher the service publishes to.
func (s *Service) Events() *events.EventDispatcher {
	return s.events
}

// Prices returns the price resolver used for totals and exports.
func (s *Service) Prices() *pricing.Resolver {
	return s.prices
}

// CreateDeck creates and stores an empty deck.
func (s *Service) CreateDeck(ctx context.Context, name string) (deck.Deck, error) {
	if name == "" {
		return deck.Deck{}, fmt.Errorf("%w: deck name is required", ErrInvalidInput)
	}

	d := deck.NewDeck(uuid.New().String(), name)
	if err := s.store.SaveDeck(ctx, d); err != nil {
		return deck.Deck{}, fmt.Errorf("failed to create deck: %w", err)
	}

	s.publish(events.TypeDeckSaved, d.ID, deckSaved(d))
	return d, nil
}

// GetDeck loads a deck.
func (s *Service) GetDeck(ctx context.Context, id string) (deck.Deck, error) {
	d, err := s.store.LoadDeck(ctx, id)
	if err != nil {
		return deck.Deck{}, fmt.Errorf("failed to load deck: %w", err)
	}
	if d == nil {
		return deck.Deck{}, fmt.Errorf("%w: %s", ErrDeckNotFound, id)
	}
	return *d, nil
}

// ListDecks returns the stored deck headers.
func (s *Service) ListDecks(ctx context.Context) ([]*models.Deck, error) {
	decks, err := s.store.ListDecks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	return decks, nil
}

// DeleteDeck removes a deck.
func (s *Service) DeleteDeck(ctx context.Context, id string) error {
	unlock := s.lockDeck(id)
	defer unlock()

	session, err := OpenSession(s.lockDir, id)
	if err != nil {
		return err
	}
	defer s.closeSession(session)

	existed, err := s.store.DeleteDeck(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete deck: %w", err)
	}
	if !existed {
		return fmt.Errorf("%w: %s", ErrDeckNotFound, id)
	}

	s.publish(events.TypeDeckDeleted, id, events.DeckDeletedEvent{ID: id})
	return nil
}

// AddCard resolves the printing of c and adds it to zone z, merging with an
// identity-equal stack. A zero count adds one copy and an empty finish means
// normal.
func (s *Service) AddCard(ctx context.Context, id string, z deck.Zone, c deck.CardInstance) (deck.Deck, printing.Resolution, error) {
	if !z.Valid() {
		return deck.Deck{}, printing.Resolution{}, fmt.Errorf("%w: unknown zone %q", ErrInvalidInput, z)
	}
	if c.Name == "" {
		return deck.Deck{}, printing.Resolution{}, fmt.Errorf("%w: card name is required", ErrInvalidInput)
	}
	if c.Count == 0 {
		c.Count = 1
	}
	if c.Count < 0 {
		return deck.Deck{}, printing.Resolution{}, fmt.Errorf("%w: count must be positive", ErrInvalidInput)
	}
	finish, err := deck.ParseFinish(string(c.Finish))
	if err != nil {
		return deck.Deck{}, printing.Resolution{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	c.Finish = finish

	results, err := s.resolveInstances(ctx, []deck.CardInstance{c})
	if err != nil {
		return deck.Deck{}, printing.Resolution{}, err
	}
	r := results[0]

	d, err := s.edit(ctx, id, func(d deck.Deck) (deck.Deck, error) {
		return deck.AddInstance(d, z, r.Instance), nil
	})
	if err != nil {
		return deck.Deck{}, printing.Resolution{}, err
	}

	s.publish(events.TypeCardsAdded, id, events.CardsAddedEvent{
		Zone: z, Key: r.Instance.Key(), Count: r.Instance.Count, Resolution: r.Resolution,
	})
	return d, r.Resolution, nil
}

// RemoveCard takes n copies of the keyed stack out of zone z; n of 0 takes
// the whole stack.
func (s *Service) RemoveCard(ctx context.Context, id string, z deck.Zone, key string, n int) (deck.Deck, error) {
	d, err := s.edit(ctx, id, func(d deck.Deck) (deck.Deck, error) {
		c, ok := deck.FindInstance(d, z, key)
		if !ok {
			return d, fmt.Errorf("%w: %s", ErrCardNotFound, key)
		}
		if n == 0 {
			n = c.Count
		}
		out, ok := deck.RemoveCount(d, z, key, n)
		if !ok {
			return d, fmt.Errorf("%w: cannot remove %d of %d copies", ErrInvalidInput, n, c.Count)
		}
		return out, nil
	})
	if err != nil {
		return deck.Deck{}, err
	}

	s.publish(events.TypeDeckSaved, id, deckSaved(d))
	return d, nil
}

// Move transfers stacks between zones. Keys that cannot be moved are listed
// in the report; they never fail the request.
func (s *Service) Move(ctx context.Context, id string, req deck.MoveRequest) (deck.Deck, deck.MoveReport, error) {
	var report deck.MoveReport
	d, err := s.edit(ctx, id, func(d deck.Deck) (deck.Deck, error) {
		var out deck.Deck
		out, report = deck.MoveInstances(d, req)
		return out, nil
	})
	if err != nil {
		return deck.Deck{}, deck.MoveReport{}, err
	}

	s.publish(events.TypeCardsMoved, id, events.CardsMovedEvent{From: req.From, To: req.To, Report: report})
	return d, report, nil
}

// Consolidate merges identity-equal stacks in every zone.
func (s *Service) Consolidate(ctx context.Context, id string) (deck.Deck, error) {
	var before int
	d, err := s.edit(ctx, id, func(d deck.Deck) (deck.Deck, error) {
		before = stackCount(d)
		return deck.ConsolidateDeck(d), nil
	})
	if err != nil {
		return deck.Deck{}, err
	}

	s.publish(events.TypeDeckConsolidated, id, events.DeckConsolidatedEvent{Before: before, After: stackCount(d)})
	return d, nil
}

// ChangePrinting switches the keyed stack to printing p and takes that
// printing's prices. Of several overlapping changes to the same stack only
// the latest is applied; the others return ErrStaleRequest. When remember is
// set the printing also becomes the user's preference for the card.
func (s *Service) ChangePrinting(ctx context.Context, id string, z deck.Zone, key string, p deck.PrintingRef, remember bool) (deck.Deck, error) {
	if !p.IsKnown() {
		return deck.Deck{}, fmt.Errorf("%w: printing needs a scryfall id or set and collector number", ErrInvalidInput)
	}
	key = deck.CanonicalKey(key)
	ticket := s.sequences.next("printing:" + id + "/" + string(z) + "/" + key)

	current, err := s.GetDeck(ctx, id)
	if err != nil {
		return deck.Deck{}, err
	}
	c, ok := deck.FindInstance(current, z, key)
	if !ok {
		return deck.Deck{}, fmt.Errorf("%w: %s", ErrCardNotFound, key)
	}

	card, err := s.lookupPrinting(ctx, c.Name, p)
	if err != nil {
		return deck.Deck{}, err
	}
	price := deck.PriceRecord{Override: c.Price.Override}
	if card != nil {
		price = card.PriceRecord()
		price.Override = c.Price.Override
	}

	if err := ticket.Check(); err != nil {
		return deck.Deck{}, err
	}

	var newKey string
	d, err := s.edit(ctx, id, func(d deck.Deck) (deck.Deck, error) {
		if err := ticket.Check(); err != nil {
			return d, err
		}
		out, ok := deck.ChangePrinting(d, z, key, p, price)
		if !ok {
			return d, fmt.Errorf("%w: %s", ErrCardNotFound, key)
		}
		edited := c
		edited.Printing = p
		newKey = edited.Key()
		return out, nil
	})
	if err != nil {
		return deck.Deck{}, err
	}

	if remember {
		if err := s.SetPreference(ctx, c.Name, p); err != nil {
			return deck.Deck{}, err
		}
	}

	s.publish(events.TypePrintingChanged, id, events.InstanceChangedEvent{Zone: z, OldKey: key, NewKey: newKey})
	return d, nil
}

// ChangeFinish switches the keyed stack to finish f.
func (s *Service) ChangeFinish(ctx context.Context, id string, z deck.Zone, key string, f deck.Finish) (deck.Deck, error) {
	finish, err := deck.ParseFinish(string(f))
	if err != nil {
		return deck.Deck{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	key = deck.CanonicalKey(key)

	var newKey string
	d, err := s.edit(ctx, id, func(d deck.Deck) (deck.Deck, error) {
		c, ok := deck.FindInstance(d, z, key)
		if !ok {
			return d, fmt.Errorf("%w: %s", ErrCardNotFound, key)
		}
		out, _ := deck.ChangeFinish(d, z, key, finish)
		c.Finish = finish
		newKey = c.Key()
		return out, nil
	})
	if err != nil {
		return deck.Deck{}, err
	}

	s.publish(events.TypeFinishChanged, id, events.InstanceChangedEvent{Zone: z, OldKey: key, NewKey: newKey})
	return d, nil
}

// SetPreference stores the user's preferred printing for a card name.
func (s *Service) SetPreference(ctx context.Context, name string, p deck.PrintingRef) error {
	if name == "" || !p.IsKnown() {
		return fmt.Errorf("%w: preference needs a card name and a printing", ErrInvalidInput)
	}
	if err := s.store.SetPreference(ctx, name, p); err != nil {
		return fmt.Errorf("failed to store preference: %w", err)
	}
	s.publish(events.TypePreferenceSet, "", events.PreferenceEvent{Name: name, Printing: p})
	return nil
}

// ClearPreference forgets the user's preferred printing for a card name.
func (s *Service) ClearPreference(ctx context.Context, name string) error {
	if err := s.store.ClearPreference(ctx, name); err != nil {
		return fmt.Errorf("failed to clear preference: %w", err)
	}
	s.publish(events.TypePreferenceCleared, "", events.PreferenceEvent{Name: name})
	return nil
}

// edit runs fn on the current deck under the deck's in-process lock and
// session lock, validates and stores the result.
func (s *Service) edit(ctx context.Context, id string, fn func(deck.Deck) (deck.Deck, error)) (deck.Deck, error) {
	unlock := s.lockDeck(id)
	defer unlock()

	session, err := OpenSession(s.lockDir, id)
	if err != nil {
		return deck.Deck{}, err
	}
	defer s.closeSession(session)

	current, err := s.GetDeck(ctx, id)
	if err != nil {
		return deck.Deck{}, err
	}

	next, err := fn(current)
	if err != nil {
		return deck.Deck{}, err
	}
	if err := next.Validate(); err != nil {
		return deck.Deck{}, fmt.Errorf("edit produced an invalid deck: %w", err)
	}
	if err := s.store.SaveDeck(ctx, next); err != nil {
		return deck.Deck{}, fmt.Errorf("failed to save deck: %w", err)
	}
	return next, nil
}

// lockDeck serializes edits of one deck within this process. Lock files
// conflict even between handles of the same process, so this lock is taken
// before the session.
func (s *Service) lockDeck(id string) func() {
	v, _ := s.decks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *Service) closeSession(session *Session) {
	if err := session.Close(); err != nil {
		s.logger.Warn("failed to close session", zap.String("deck_id", session.DeckID), zap.Error(err))
	}
}

func (s *Service) publish(eventType, deckID string, data any) {
	s.events.Dispatch(events.NewEvent(eventType, deckID, data))
}

func deckSaved(d deck.Deck) events.DeckSavedEvent {
	return events.DeckSavedEvent{
		Name:  d.Name,
		Cards: deck.ZoneCount(d, deck.ZoneMain) + deck.ZoneCount(d, deck.ZoneSideboard),
	}
}

func stackCount(d deck.Deck) int {
	n := 0
	for _, z := range deck.Zones() {
		n += len(d.Zone(z))
	}
	return n
}
