package repository

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory database with the deck and printing tables.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// Every pooled connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE decks (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			modified_at DATETIME NOT NULL
		);

		CREATE TABLE deck_cards (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			deck_id TEXT NOT NULL,
			zone TEXT NOT NULL,
			position INTEGER NOT NULL,
			identity_key TEXT NOT NULL,
			name TEXT NOT NULL,
			scryfall_id TEXT NOT NULL DEFAULT '',
			set_code TEXT NOT NULL DEFAULT '',
			collector_number TEXT NOT NULL DEFAULT '',
			finish TEXT NOT NULL DEFAULT 'normal',
			quantity INTEGER NOT NULL,
			price_normal INTEGER,
			price_foil INTEGER,
			price_etched INTEGER,
			price_override INTEGER,
			finishes TEXT NOT NULL DEFAULT '',
			FOREIGN KEY (deck_id) REFERENCES decks(id) ON DELETE CASCADE,
			UNIQUE(deck_id, zone, identity_key),
			CHECK(zone IN ('main', 'sideboard', 'techIdeas')),
			CHECK(quantity >= 1)
		);

		CREATE TABLE printing_preferences (
			card_name TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			scryfall_id TEXT NOT NULL DEFAULT '',
			set_code TEXT NOT NULL DEFAULT '',
			collector_number TEXT NOT NULL DEFAULT '',
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE printing_cache (
			card_name TEXT PRIMARY KEY,
			scryfall_id TEXT NOT NULL DEFAULT '',
			set_code TEXT NOT NULL DEFAULT '',
			collector_number TEXT NOT NULL DEFAULT '',
			fetched_at DATETIME NOT NULL
		);

		CREATE INDEX idx_deck_cards_deck_id ON deck_cards(deck_id);
	`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Error closing database: %v", err)
		}
	})

	return db
}
