package scryfall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ramonehamilton/deckforge/internal/deck"
)

// MaxBatchSize is the maximum number of cards per batch request (Scryfall limit is 75).
const MaxBatchSize = 75

// CardIdentifier represents a card identifier for the /cards/collection endpoint.
type CardIdentifier struct {
	ID              string `json:"id,omitempty"`               // Scryfall ID
	Name            string `json:"name,omitempty"`             // Card name
	Set             string `json:"set,omitempty"`              // Set code (requires collector_number)
	CollectorNumber string `json:"collector_number,omitempty"` // Collector number (requires set)
}

// IdentifierFor builds the lookup identifier for a printing. Unknown
// printings have no identifier.
func IdentifierFor(p deck.PrintingRef) (CardIdentifier, bool) {
	switch {
	case p.ScryfallID != "":
		return CardIdentifier{ID: p.ScryfallID}, true
	case p.SetCode != "" && p.CollectorNumber != "":
		return CardIdentifier{Set: p.SetCode, CollectorNumber: p.CollectorNumber}, true
	default:
		return CardIdentifier{}, false
	}
}

// CollectionRequest is the request body for /cards/collection.
type CollectionRequest struct {
	Identifiers []CardIdentifier `json:"identifiers"`
}

// CollectionResponse is the response from /cards/collection.
type CollectionResponse struct {
	Object   string           `json:"object"`
	NotFound []CardIdentifier `json:"not_found"`
	Data     []Card           `json:"data"`
}

// GetCardsByPrintings fetches the given printings using the batch
// /cards/collection endpoint, splitting into batches of MaxBatchSize.
// Unknown printings are skipped. Printings Scryfall does not know are
// returned in notFound.
func (c *Client) GetCardsByPrintings(ctx context.Context, printings []deck.PrintingRef) ([]Card, []CardIdentifier, error) {
	identifiers := make([]CardIdentifier, 0, len(printings))
	for _, p := range printings {
		if id, ok := IdentifierFor(p); ok {
			identifiers = append(identifiers, id)
		}
	}
	return c.GetCardsByIdentifiers(ctx, identifiers)
}

// GetCardsByIdentifiers fetches cards using a mixed set of identifiers.
func (c *Client) GetCardsByIdentifiers(ctx context.Context, identifiers []CardIdentifier) ([]Card, []CardIdentifier, error) {
	if len(identifiers) == 0 {
		return []Card{}, nil, nil
	}

	var allCards []Card
	var allNotFound []CardIdentifier

	for i := 0; i < len(identifiers); i += MaxBatchSize {
		end := min(i+MaxBatchSize, len(identifiers))

		cards, notFound, err := c.doCollectionRequest(ctx, identifiers[i:end])
		if err != nil {
			return nil, nil, fmt.Errorf("failed to fetch batch %d-%d: %w", i, end, err)
		}
		allCards = append(allCards, cards...)
		allNotFound = append(allNotFound, notFound...)
	}

	if len(allNotFound) > 0 {
		c.logger.Debug("collection lookup missed cards", zap.Int("not_found", len(allNotFound)))
	}
	return allCards, allNotFound, nil
}

// doCollectionRequest performs one batch request to /cards/collection.
func (c *Client) doCollectionRequest(ctx context.Context, identifiers []CardIdentifier) ([]Card, []CardIdentifier, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("rate limiter error: %w", err)
	}

	jsonBody, err := json.Marshal(CollectionRequest{Identifiers: identifiers})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cards/collection", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch cards from Scryfall: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("scryfall API returned status %d: %s", resp.StatusCode, string(body))
	}

	var collectionResp CollectionResponse
	if err := json.Unmarshal(body, &collectionResp); err != nil {
		return nil, nil, fmt.Errorf("failed to parse Scryfall response: %w", err)
	}

	return collectionResp.Data, collectionResp.NotFound, nil
}
