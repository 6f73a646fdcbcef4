// Package handlers implements the HTTP handlers of the deck editing API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ramonehamilton/deckforge/internal/api/response"
	"github.com/ramonehamilton/deckforge/internal/deck"
	"github.com/ramonehamilton/deckforge/internal/deck/printing"
	"github.com/ramonehamilton/deckforge/internal/editor"
	"github.com/ramonehamilton/deckforge/internal/mtga/deckexport"
	"github.com/ramonehamilton/deckforge/internal/storage/models"
)

// Editor is the deck editing service behind the handlers.
type Editor interface {
	ListDecks(ctx context.Context) ([]*models.Deck, error)
	CreateDeck(ctx context.Context, name string) (deck.Deck, error)
	GetDeck(ctx context.Context, id string) (deck.Deck, error)
	Document(ctx context.Context, id string) (deckexport.Document, error)
	DeleteDeck(ctx context.Context, id string) error

	AddCard(ctx context.Context, id string, z deck.Zone, c deck.CardInstance) (deck.Deck, printing.Resolution, error)
	RemoveCard(ctx context.Context, id string, z deck.Zone, key string, n int) (deck.Deck, error)
	Move(ctx context.Context, id string, req deck.MoveRequest) (deck.Deck, deck.MoveReport, error)
	Consolidate(ctx context.Context, id string) (deck.Deck, error)
	RefreshPrices(ctx context.Context, id string) (deck.Deck, editor.RefreshReport, error)
	ChangePrinting(ctx context.Context, id string, z deck.Zone, key string, p deck.PrintingRef, remember bool) (deck.Deck, error)
	ChangeFinish(ctx context.Context, id string, z deck.Zone, key string, f deck.Finish) (deck.Deck, error)

	Import(ctx context.Context, req editor.ImportRequest) (*editor.ImportResult, error)
	Export(ctx context.Context, id string, opts *deckexport.ExportOptions) (*deckexport.DeckExport, error)

	SetPreference(ctx context.Context, name string, p deck.PrintingRef) error
	ClearPreference(ctx context.Context, name string) error
	ResolvePrintings(ctx context.Context, channel string, instances []deck.CardInstance) ([]editor.Preview, error)
}

var _ Editor = (*editor.Service)(nil)

// writeError maps editor errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, editor.ErrInvalidInput):
		response.BadRequest(w, err)
	case errors.Is(err, editor.ErrDeckNotFound),
		errors.Is(err, editor.ErrCardNotFound),
		errors.Is(err, editor.ErrPrintingNotFound):
		response.NotFound(w, err)
	case errors.Is(err, editor.ErrStaleRequest),
		errors.Is(err, editor.ErrSessionLocked):
		response.Conflict(w, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		response.Error(w, http.StatusServiceUnavailable, err)
	default:
		response.InternalError(w, err)
	}
}

// decode reads a JSON request body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.BadRequest(w, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

// parseZone validates a zone name from a request, writing 400 on failure.
func parseZone(w http.ResponseWriter, s string) (deck.Zone, bool) {
	z, err := deck.ParseZone(s)
	if err != nil {
		response.BadRequest(w, err)
		return "", false
	}
	return z, true
}
