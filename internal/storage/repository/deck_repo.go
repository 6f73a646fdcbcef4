package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ramonehamilton/deckforge/internal/storage/models"
)

// DeckRepository handles database operations for decks.
type DeckRepository interface {
	// Create inserts a new deck into the database.
	Create(ctx context.Context, deck *models.Deck) error

	// Update updates an existing deck.
	Update(ctx context.Context, deck *models.Deck) error

	// GetByID retrieves a deck by its ID. Returns nil, nil when absent.
	GetByID(ctx context.Context, id string) (*models.Deck, error)

	// List retrieves all decks, most recently modified first.
	List(ctx context.Context) ([]*models.Deck, error)

	// Delete deletes a deck and its cards.
	Delete(ctx context.Context, id string) error

	// GetCards retrieves all cards in a deck ordered by zone and position.
	GetCards(ctx context.Context, deckID string) ([]*models.DeckCard, error)

	// ReplaceCards replaces the full contents of a deck.
	ReplaceCards(ctx context.Context, deckID string, cards []*models.DeckCard) error

	// ClearCards removes all cards from a deck.
	ClearCards(ctx context.Context, deckID string) error
}

// deckRepository is the concrete implementation of DeckRepository.
type deckRepository struct {
	db Querier
}

// NewDeckRepository creates a new deck repository.
func NewDeckRepository(db Querier) DeckRepository {
	return &deckRepository{db: db}
}

// Create inserts a new deck into the database.
func (r *deckRepository) Create(ctx context.Context, deck *models.Deck) error {
	query := `
		INSERT INTO decks (id, name, created_at, modified_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		deck.ID,
		deck.Name,
		deck.CreatedAt,
		deck.ModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create deck: %w", err)
	}

	return nil
}

// Update updates an existing deck.
func (r *deckRepository) Update(ctx context.Context, deck *models.Deck) error {
	query := `
		UPDATE decks
		SET name = ?, modified_at = ?
		WHERE id = ?
	`

	_, err := r.db.ExecContext(ctx, query,
		deck.Name,
		deck.ModifiedAt,
		deck.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update deck: %w", err)
	}

	return nil
}

// GetByID retrieves a deck by its ID.
func (r *deckRepository) GetByID(ctx context.Context, id string) (*models.Deck, error) {
	query := `
		SELECT id, name, created_at, modified_at
		FROM decks
		WHERE id = ?
	`

	deck := &models.Deck{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&deck.ID,
		&deck.Name,
		&deck.CreatedAt,
		&deck.ModifiedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deck by id: %w", err)
	}

	return deck, nil
}

// List retrieves all decks.
func (r *deckRepository) List(ctx context.Context) ([]*models.Deck, error) {
	query := `
		SELECT id, name, created_at, modified_at
		FROM decks
		ORDER BY modified_at DESC, name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	defer rows.Close()

	decks := []*models.Deck{}
	for rows.Next() {
		deck := &models.Deck{}
		err := rows.Scan(
			&deck.ID,
			&deck.Name,
			&deck.CreatedAt,
			&deck.ModifiedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deck: %w", err)
		}
		decks = append(decks, deck)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decks: %w", err)
	}

	return decks, nil
}

// Delete deletes a deck by its ID. Cards are removed explicitly so the
// result does not depend on the connection's foreign key setting.
func (r *deckRepository) Delete(ctx context.Context, id string) error {
	if err := r.ClearCards(ctx, id); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete deck: %w", err)
	}

	return nil
}

// GetCards retrieves all cards in a deck.
func (r *deckRepository) GetCards(ctx context.Context, deckID string) ([]*models.DeckCard, error) {
	query := `
		SELECT id, deck_id, zone, position, identity_key, name,
		       scryfall_id, set_code, collector_number, finish, quantity,
		       price_normal, price_foil, price_etched, price_override, finishes
		FROM deck_cards
		WHERE deck_id = ?
		ORDER BY zone, position
	`

	rows, err := r.db.QueryContext(ctx, query, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to get deck cards: %w", err)
	}
	defer rows.Close()

	cards := []*models.DeckCard{}
	for rows.Next() {
		card := &models.DeckCard{}
		err := rows.Scan(
			&card.ID,
			&card.DeckID,
			&card.Zone,
			&card.Position,
			&card.IdentityKey,
			&card.Name,
			&card.ScryfallID,
			&card.SetCode,
			&card.CollectorNumber,
			&card.Finish,
			&card.Quantity,
			&card.PriceNormal,
			&card.PriceFoil,
			&card.PriceEtched,
			&card.PriceOverride,
			&card.Finishes,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deck card: %w", err)
		}
		cards = append(cards, card)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deck cards: %w", err)
	}

	return cards, nil
}

// ReplaceCards deletes the deck's current cards and inserts the given ones.
// Callers wanting atomicity run it on a transaction.
func (r *deckRepository) ReplaceCards(ctx context.Context, deckID string, cards []*models.DeckCard) error {
	if err := r.ClearCards(ctx, deckID); err != nil {
		return err
	}

	query := `
		INSERT INTO deck_cards (
			deck_id, zone, position, identity_key, name,
			scryfall_id, set_code, collector_number, finish, quantity,
			price_normal, price_foil, price_etched, price_override, finishes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, card := range cards {
		result, err := r.db.ExecContext(ctx, query,
			deckID,
			card.Zone,
			card.Position,
			card.IdentityKey,
			card.Name,
			card.ScryfallID,
			card.SetCode,
			card.CollectorNumber,
			card.Finish,
			card.Quantity,
			card.PriceNormal,
			card.PriceFoil,
			card.PriceEtched,
			card.PriceOverride,
			card.Finishes,
		)
		if err != nil {
			return fmt.Errorf("failed to insert deck card %q: %w", card.IdentityKey, err)
		}

		card.DeckID = deckID
		if id, err := result.LastInsertId(); err == nil {
			card.ID = int(id)
		}
	}

	return nil
}

// ClearCards removes all cards from a deck.
func (r *deckRepository) ClearCards(ctx context.Context, deckID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM deck_cards WHERE deck_id = ?`, deckID)
	if err != nil {
		return fmt.Errorf("failed to clear deck cards: %w", err)
	}

	return nil
}
