// Package app wires configuration, storage, the card data client and the
// deck editor into one handle shared by the binaries.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ramonehamilton/deckforge/internal/config"
	"github.com/ramonehamilton/deckforge/internal/deck/pricing"
	"github.com/ramonehamilton/deckforge/internal/editor"
	"github.com/ramonehamilton/deckforge/internal/events"
	"github.com/ramonehamilton/deckforge/internal/mtga/cards/scryfall"
	"github.com/ramonehamilton/deckforge/internal/storage"
)

// Options adjusts how Open wires the application.
type Options struct {
	// Offline skips the card data client; printings then come from stored
	// preferences, the cache and basic land defaults only.
	Offline bool

	// VerboseEvents logs every editor event at info level.
	VerboseEvents bool
}

// App holds the wired services.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Storage *storage.Service
	Cards   *scryfall.Client
	Editor  *editor.Service
	Events  *events.EventDispatcher
}

// Open opens the database and builds the editor from cfg. Cached printings
// older than the configured TTL are evicted on open.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = zap.L()
	}

	busy, _ := cfg.BusyTimeout()
	dbConfig := storage.DefaultConfig(cfg.Storage.Path)
	dbConfig.BusyTimeout = busy
	dbConfig.JournalMode = cfg.Storage.JournalMode
	dbConfig.AutoMigrate = true

	db, err := storage.Open(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	store := storage.NewService(db)

	ttl, _ := cfg.CacheTTL()
	if n, err := store.EvictCache(ctx, ttl); err != nil {
		logger.Warn("failed to evict printing cache", zap.Error(err))
	} else if n > 0 {
		logger.Debug("evicted cached printings", zap.Int64("count", n))
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Storage: store,
		Events:  events.NewEventDispatcher(logger),
	}
	a.Events.Register(events.NewLoggingObserver(logger, opts.VerboseEvents))

	var cards editor.CardSource
	if !opts.Offline {
		delay, _ := cfg.RateDelay()
		a.Cards = scryfall.NewClientWithConfig(scryfall.ClientConfig{
			BaseURL:   cfg.Scryfall.BaseURL,
			UserAgent: cfg.Scryfall.UserAgent,
			RateDelay: delay,
			Logger:    logger.Named("scryfall"),
		})
		cards = a.Cards
	}

	basicPrice, _ := cfg.BasicLandPrice()
	a.Editor = editor.NewService(store, editor.Options{
		Cards:      cards,
		BasicLands: cfg.BasicLands(),
		Prices:     pricing.NewResolver(basicPrice),
		Workers:    cfg.Scryfall.Workers,
		LockDir:    LockDir(cfg.Storage.Path),
		Logger:     logger,
		Events:     a.Events,
	})
	return a, nil
}

// LockDir returns the directory holding deck session locks for the database
// at dbPath.
func LockDir(dbPath string) string {
	if dbPath == "" || dbPath == ":memory:" {
		return filepath.Join(os.TempDir(), "deckforge", "locks")
	}
	return filepath.Join(filepath.Dir(dbPath), "locks")
}

// Close closes the database.
func (a *App) Close() error {
	return a.Storage.Close()
}
