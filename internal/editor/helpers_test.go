package editor

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/ramonehamilton/deckforge/internal/deck"
	"github.com/ramonehamilton/deckforge/internal/mtga/cards/scryfall"
	"github.com/ramonehamilton/deckforge/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeCards serves printings from memory. Names listed in gate wait for a
// value on the gate channel before answering.
type fakeCards struct {
	mu        sync.Mutex
	printings map[string][]scryfall.Card
	failures  map[string]error
	calls     map[string]int
	inFlight  int
	maxFlight int

	gate    chan struct{}
	gated   map[string]bool
	entered chan string
}

func newFakeCards(cards ...scryfall.Card) *fakeCards {
	f := &fakeCards{
		printings: make(map[string][]scryfall.Card),
		failures:  make(map[string]error),
		calls:     make(map[string]int),
		gated:     make(map[string]bool),
	}
	for _, c := range cards {
		key := deck.NormalizeName(c.Name)
		f.printings[key] = append(f.printings[key], c)
	}
	return f
}

func (f *fakeCards) SearchPrintings(ctx context.Context, name string) ([]scryfall.Card, error) {
	key := deck.NormalizeName(name)

	f.mu.Lock()
	f.calls[key]++
	f.inFlight++
	if f.inFlight > f.maxFlight {
		f.maxFlight = f.inFlight
	}
	gated := f.gated[key] && f.gate != nil
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if gated {
		if f.entered != nil {
			f.entered <- key
		}
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures[key]; err != nil {
		return nil, err
	}
	cards, ok := f.printings[key]
	if !ok {
		return nil, &scryfall.NotFoundError{URL: "/cards/search"}
	}
	return cards, nil
}

func (f *fakeCards) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[deck.NormalizeName(name)]
}

func card(id, name, set, number, usd, foil string, finishes ...string) scryfall.Card {
	c := scryfall.Card{
		ID:              id,
		Name:            name,
		SetCode:         set,
		CollectorNumber: number,
		Finishes:        finishes,
	}
	if usd != "" {
		c.Prices.USD = &usd
	}
	if foil != "" {
		c.Prices.USDFoil = &foil
	}
	return c
}

// newTestService creates an editor over a migrated temporary database.
func newTestService(t *testing.T, cards CardSource) (*Service, *storage.Service) {
	t.Helper()

	config := storage.DefaultConfig(filepath.Join(t.TempDir(), "editor.db"))
	config.AutoMigrate = true
	db, err := storage.Open(config)
	require.NoError(t, err)

	store := storage.NewService(db)
	t.Cleanup(func() { _ = store.Close() })

	svc := NewService(store, Options{
		Cards:   cards,
		LockDir: t.TempDir(),
		Logger:  zaptest.NewLogger(t),
	})
	return svc, store
}

func createDeck(t *testing.T, svc *Service, name string) deck.Deck {
	t.Helper()
	d, err := svc.CreateDeck(context.Background(), name)
	require.NoError(t, err)
	return d
}

var errLookup = errors.New("lookup unavailable")
