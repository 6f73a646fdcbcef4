package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ramonehamilton/deckforge/internal/config"
	"github.com/ramonehamilton/deckforge/internal/deck"
	"github.com/ramonehamilton/deckforge/internal/deck/printing"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "data", "deckforge.db")
	return cfg
}

func TestOpen_Offline(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Pricing.BasicLandPrice = "0.25"
	cfg.Printing.BasicLands = map[string]config.BasicLandPrinting{
		"Forest": {Set: "ZEN", CollectorNumber: "246"},
	}

	a, err := Open(ctx, cfg, zaptest.NewLogger(t), Options{Offline: true})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Cards)
	assert.Equal(t, 1, a.Events.ObserverCount())

	d, err := a.Editor.CreateDeck(ctx, "Lands")
	require.NoError(t, err)

	d, res, err := a.Editor.AddCard(ctx, d.ID, deck.ZoneMain, deck.CardInstance{Name: "Forest", Count: 2})
	require.NoError(t, err)
	assert.Equal(t, printing.TierBasicLand, res.Tier)
	assert.Equal(t, "zen", res.Printing.SetCode, "configured basic land printing")

	doc, err := a.Editor.Document(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.50", doc.Total.String(), "configured basic land price")
}

func TestOpen_Online(t *testing.T) {
	a, err := Open(context.Background(), testConfig(t), zaptest.NewLogger(t), Options{})
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Cards)
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scryfall.Workers = 0

	_, err := Open(context.Background(), cfg, zaptest.NewLogger(t), Options{Offline: true})
	assert.Error(t, err)
}

func TestLockDir(t *testing.T) {
	assert.Equal(t, filepath.Join("/data", "locks"), LockDir("/data/deckforge.db"))
	assert.Contains(t, LockDir(":memory:"), "deckforge")
}

func TestServe_StopsWithContext(t *testing.T) {
	a, err := Open(context.Background(), testConfig(t), zap.NewNop(), Options{Offline: true})
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- a.Serve(ctx, ServeOptions{
			Addr:    "127.0.0.1:0",
			Started: func(addr string) { started <- addr },
		})
	}()

	select {
	case addr := <-started:
		assert.NotEqual(t, "127.0.0.1:0", addr)
	case err := <-done:
		t.Fatalf("server stopped early: %v", err)
	}
	assert.Equal(t, 2, a.Events.ObserverCount(), "websocket observer registered while serving")

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 1, a.Events.ObserverCount())
}

func TestServe_BadAddress(t *testing.T) {
	a, err := Open(context.Background(), testConfig(t), zap.NewNop(), Options{Offline: true})
	require.NoError(t, err)
	defer a.Close()

	err = a.Serve(context.Background(), ServeOptions{Addr: "256.0.0.1:-1"})
	assert.Error(t, err)
}
