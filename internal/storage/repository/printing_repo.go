package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ramonehamilton/deckforge/internal/storage/models"
)

// PrintingPreferenceRepository stores the printing a user prefers per card.
type PrintingPreferenceRepository interface {
	// Upsert stores or replaces the preference for pref.CardName.
	Upsert(ctx context.Context, pref *models.PrintingPreference) error

	// Get returns the preference for a normalized card name, or nil, nil.
	Get(ctx context.Context, cardName string) (*models.PrintingPreference, error)

	// GetMany returns the preferences for the given normalized names, keyed by name.
	GetMany(ctx context.Context, cardNames []string) (map[string]*models.PrintingPreference, error)

	// List returns all preferences ordered by name.
	List(ctx context.Context) ([]*models.PrintingPreference, error)

	// Delete removes a preference. Deleting a missing preference is not an error.
	Delete(ctx context.Context, cardName string) error
}

// PrintingCacheRepository stores the last printing resolved per card.
type PrintingCacheRepository interface {
	// Upsert stores or replaces the cached printing for entry.CardName.
	Upsert(ctx context.Context, entry *models.CachedPrinting) error

	// GetMany returns cached printings for the given normalized names, keyed by name.
	GetMany(ctx context.Context, cardNames []string) (map[string]*models.CachedPrinting, error)

	// DeleteOlderThan evicts entries fetched before cutoff and returns how many.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type printingPreferenceRepository struct {
	db Querier
}

// NewPrintingPreferenceRepository creates a new printing preference repository.
func NewPrintingPreferenceRepository(db Querier) PrintingPreferenceRepository {
	return &printingPreferenceRepository{db: db}
}

func (r *printingPreferenceRepository) Upsert(ctx context.Context, pref *models.PrintingPreference) error {
	query := `
		INSERT INTO printing_preferences (
			card_name, display_name, scryfall_id, set_code, collector_number, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(card_name) DO UPDATE SET
			display_name = excluded.display_name,
			scryfall_id = excluded.scryfall_id,
			set_code = excluded.set_code,
			collector_number = excluded.collector_number,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		pref.CardName,
		pref.DisplayName,
		pref.ScryfallID,
		pref.SetCode,
		pref.CollectorNumber,
		pref.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert printing preference: %w", err)
	}

	return nil
}

func (r *printingPreferenceRepository) Get(ctx context.Context, cardName string) (*models.PrintingPreference, error) {
	query := `
		SELECT card_name, display_name, scryfall_id, set_code, collector_number, updated_at
		FROM printing_preferences
		WHERE card_name = ?
	`

	pref := &models.PrintingPreference{}
	err := r.db.QueryRowContext(ctx, query, cardName).Scan(
		&pref.CardName,
		&pref.DisplayName,
		&pref.ScryfallID,
		&pref.SetCode,
		&pref.CollectorNumber,
		&pref.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get printing preference: %w", err)
	}

	return pref, nil
}

func (r *printingPreferenceRepository) GetMany(ctx context.Context, cardNames []string) (map[string]*models.PrintingPreference, error) {
	result := make(map[string]*models.PrintingPreference, len(cardNames))
	if len(cardNames) == 0 {
		return result, nil
	}

	query := `
		SELECT card_name, display_name, scryfall_id, set_code, collector_number, updated_at
		FROM printing_preferences
		WHERE card_name IN (` + placeholders(len(cardNames)) + `)
	`

	rows, err := r.db.QueryContext(ctx, query, stringArgs(cardNames)...)
	if err != nil {
		return nil, fmt.Errorf("failed to get printing preferences: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		pref := &models.PrintingPreference{}
		if err := rows.Scan(
			&pref.CardName,
			&pref.DisplayName,
			&pref.ScryfallID,
			&pref.SetCode,
			&pref.CollectorNumber,
			&pref.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan printing preference: %w", err)
		}
		result[pref.CardName] = pref
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating printing preferences: %w", err)
	}

	return result, nil
}

func (r *printingPreferenceRepository) List(ctx context.Context) ([]*models.PrintingPreference, error) {
	query := `
		SELECT card_name, display_name, scryfall_id, set_code, collector_number, updated_at
		FROM printing_preferences
		ORDER BY card_name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list printing preferences: %w", err)
	}
	defer rows.Close()

	prefs := []*models.PrintingPreference{}
	for rows.Next() {
		pref := &models.PrintingPreference{}
		if err := rows.Scan(
			&pref.CardName,
			&pref.DisplayName,
			&pref.ScryfallID,
			&pref.SetCode,
			&pref.CollectorNumber,
			&pref.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan printing preference: %w", err)
		}
		prefs = append(prefs, pref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating printing preferences: %w", err)
	}

	return prefs, nil
}

func (r *printingPreferenceRepository) Delete(ctx context.Context, cardName string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM printing_preferences WHERE card_name = ?`, cardName)
	if err != nil {
		return fmt.Errorf("failed to delete printing preference: %w", err)
	}
	return nil
}

type printingCacheRepository struct {
	db Querier
}

// NewPrintingCacheRepository creates a new printing cache repository.
func NewPrintingCacheRepository(db Querier) PrintingCacheRepository {
	return &printingCacheRepository{db: db}
}

func (r *printingCacheRepository) Upsert(ctx context.Context, entry *models.CachedPrinting) error {
	query := `
		INSERT INTO printing_cache (
			card_name, scryfall_id, set_code, collector_number, fetched_at
		) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(card_name) DO UPDATE SET
			scryfall_id = excluded.scryfall_id,
			set_code = excluded.set_code,
			collector_number = excluded.collector_number,
			fetched_at = excluded.fetched_at
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.CardName,
		entry.ScryfallID,
		entry.SetCode,
		entry.CollectorNumber,
		entry.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cached printing: %w", err)
	}

	return nil
}

func (r *printingCacheRepository) GetMany(ctx context.Context, cardNames []string) (map[string]*models.CachedPrinting, error) {
	result := make(map[string]*models.CachedPrinting, len(cardNames))
	if len(cardNames) == 0 {
		return result, nil
	}

	query := `
		SELECT card_name, scryfall_id, set_code, collector_number, fetched_at
		FROM printing_cache
		WHERE card_name IN (` + placeholders(len(cardNames)) + `)
	`

	rows, err := r.db.QueryContext(ctx, query, stringArgs(cardNames)...)
	if err != nil {
		return nil, fmt.Errorf("failed to get cached printings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		entry := &models.CachedPrinting{}
		if err := rows.Scan(
			&entry.CardName,
			&entry.ScryfallID,
			&entry.SetCode,
			&entry.CollectorNumber,
			&entry.FetchedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cached printing: %w", err)
		}
		result[entry.CardName] = entry
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cached printings: %w", err)
	}

	return result, nil
}

func (r *printingCacheRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM printing_cache WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to evict cached printings: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count evicted printings: %w", err)
	}
	return n, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
