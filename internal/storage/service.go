package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ramonehamilton/deckforge/internal/deck"
	"github.com/ramonehamilton/deckforge/internal/deck/printing"
	"github.com/ramonehamilton/deckforge/internal/storage/models"
	"github.com/ramonehamilton/deckforge/internal/storage/repository"
)

// Service provides high-level operations for storing and retrieving decks
// and printing lookups.
type Service struct {
	db          *DB
	decks       repository.DeckRepository
	preferences repository.PrintingPreferenceRepository
	cache       repository.PrintingCacheRepository
	now         func() time.Time
}

// NewService creates a new storage service.
func NewService(db *DB) *Service {
	return &Service{
		db:          db,
		decks:       repository.NewDeckRepository(db.Conn()),
		preferences: repository.NewPrintingPreferenceRepository(db.Conn()),
		cache:       repository.NewPrintingCacheRepository(db.Conn()),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SaveDeck stores a complete deck with its cards, replacing any previous
// contents. The deck must satisfy deck.Validate.
func (s *Service) SaveDeck(ctx context.Context, d deck.Deck) error {
	if d.ID == "" {
		return fmt.Errorf("deck has no id")
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("refusing to store invalid deck %s: %w", d.ID, err)
	}

	return s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		decks := repository.NewDeckRepository(tx)
		now := s.now()

		existing, err := decks.GetByID(ctx, d.ID)
		if err != nil {
			return fmt.Errorf("failed to check existing deck: %w", err)
		}

		if existing == nil {
			err = decks.Create(ctx, &models.Deck{ID: d.ID, Name: d.Name, CreatedAt: now, ModifiedAt: now})
		} else {
			err = decks.Update(ctx, &models.Deck{ID: d.ID, Name: d.Name, ModifiedAt: now})
		}
		if err != nil {
			return err
		}

		var rows []*models.DeckCard
		for _, z := range deck.Zones() {
			for i, c := range d.Zone(z) {
				rows = append(rows, models.NewDeckCard(d.ID, z, i, c))
			}
		}
		return decks.ReplaceCards(ctx, d.ID, rows)
	})
}

// LoadDeck retrieves a deck with all its zones. Returns nil, nil when the
// deck does not exist.
func (s *Service) LoadDeck(ctx context.Context, id string) (*deck.Deck, error) {
	header, err := s.decks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, nil
	}

	rows, err := s.decks.GetCards(ctx, id)
	if err != nil {
		return nil, err
	}

	d := deck.NewDeck(header.ID, header.Name)
	for _, row := range rows {
		z, err := deck.ParseZone(row.Zone)
		if err != nil {
			zap.L().Warn("skipping stored card in unknown zone",
				zap.String("deck_id", id), zap.String("zone", row.Zone))
			continue
		}
		d.Zones[z] = append(d.Zones[z], row.Instance())
	}
	return &d, nil
}

// ListDecks returns the stored deck headers, most recently modified first.
func (s *Service) ListDecks(ctx context.Context) ([]*models.Deck, error) {
	return s.decks.List(ctx)
}

// DeleteDeck removes a deck and its cards. It reports whether the deck existed.
func (s *Service) DeleteDeck(ctx context.Context, id string) (bool, error) {
	var existed bool
	err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		decks := repository.NewDeckRepository(tx)
		existing, err := decks.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return nil
		}
		existed = true
		return decks.Delete(ctx, id)
	})
	return existed, err
}

// SetPreference records the printing a user wants for a card name.
func (s *Service) SetPreference(ctx context.Context, name string, p deck.PrintingRef) error {
	return s.preferences.Upsert(ctx, &models.PrintingPreference{
		CardName:        deck.NormalizeName(name),
		DisplayName:     name,
		ScryfallID:      p.ScryfallID,
		SetCode:         p.SetCode,
		CollectorNumber: p.CollectorNumber,
		UpdatedAt:       s.now(),
	})
}

// ClearPreference forgets a card's preferred printing.
func (s *Service) ClearPreference(ctx context.Context, name string) error {
	return s.preferences.Delete(ctx, deck.NormalizeName(name))
}

// ListPreferences returns all stored printing preferences.
func (s *Service) ListPreferences(ctx context.Context) ([]*models.PrintingPreference, error) {
	return s.preferences.List(ctx)
}

// CachePrinting remembers the printing last resolved for a card name.
// Unknown printings are not cached.
func (s *Service) CachePrinting(ctx context.Context, name string, p deck.PrintingRef) error {
	if !p.IsKnown() {
		return nil
	}
	return s.cache.Upsert(ctx, &models.CachedPrinting{
		CardName:        deck.NormalizeName(name),
		ScryfallID:      p.ScryfallID,
		SetCode:         p.SetCode,
		CollectorNumber: p.CollectorNumber,
		FetchedAt:       s.now(),
	})
}

// EvictCache drops cached printings older than maxAge.
func (s *Service) EvictCache(ctx context.Context, maxAge time.Duration) (int64, error) {
	return s.cache.DeleteOlderThan(ctx, s.now().Add(-maxAge))
}

// PrintingTables fetches the stored preferences and cached printings for the
// given card names, keyed by normalized name.
func (s *Service) PrintingTables(ctx context.Context, names []string) (preferences, cache printing.Table, err error) {
	keys := uniqueNormalized(names)

	prefRows, err := s.preferences.GetMany(ctx, keys)
	if err != nil {
		return nil, nil, err
	}
	cacheRows, err := s.cache.GetMany(ctx, keys)
	if err != nil {
		return nil, nil, err
	}

	preferences = make(printing.Table, len(prefRows))
	for name, row := range prefRows {
		preferences[name] = row.Printing()
	}
	cache = make(printing.Table, len(cacheRows))
	for name, row := range cacheRows {
		cache[name] = row.Printing()
	}
	return preferences, cache, nil
}

// DataSource builds the printing resolver's data source for the given card
// names from storage and the basic land table.
func (s *Service) DataSource(ctx context.Context, names []string, basicLands printing.Table) (*printing.MapSource, error) {
	preferences, cache, err := s.PrintingTables(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("failed to load printing data: %w", err)
	}
	return printing.NewMapSource(preferences, cache, basicLands), nil
}

// Close closes the database connection.
func (s *Service) Close() error {
	return s.db.Close()
}

func uniqueNormalized(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		k := deck.NormalizeName(n)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
