package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/deckforge/internal/api/response"
	"github.com/ramonehamilton/deckforge/internal/deck"
	"github.com/ramonehamilton/deckforge/internal/deck/printing"
	"github.com/ramonehamilton/deckforge/internal/editor"
	"github.com/ramonehamilton/deckforge/internal/mtga/cards/records"
	"github.com/ramonehamilton/deckforge/internal/mtga/deckexport"
)

// DeckHandler handles deck-related API requests.
type DeckHandler struct {
	editor Editor
}

// NewDeckHandler creates a new DeckHandler.
func NewDeckHandler(e Editor) *DeckHandler {
	return &DeckHandler{editor: e}
}

// ListDecks returns the stored deck headers.
func (h *DeckHandler) ListDecks(w http.ResponseWriter, r *http.Request) {
	decks, err := h.editor.ListDecks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, decks)
}

// CreateDeckRequest represents a request to create a deck.
type CreateDeckRequest struct {
	Name string `json:"name"`
}

// CreateDeck creates an empty deck.
func (h *DeckHandler) CreateDeck(w http.ResponseWriter, r *http.Request) {
	var req CreateDeckRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		response.BadRequest(w, errors.New("deck name is required"))
		return
	}

	d, err := h.editor.CreateDeck(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Created(w, d)
}

// GetDeck returns a deck with resolved prices and totals.
func (h *DeckHandler) GetDeck(w http.ResponseWriter, r *http.Request) {
	doc, err := h.editor.Document(r.Context(), chi.URLParam(r, "deckID"))
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, doc)
}

// DeleteDeck deletes a deck.
func (h *DeckHandler) DeleteDeck(w http.ResponseWriter, r *http.Request) {
	if err := h.editor.DeleteDeck(r.Context(), chi.URLParam(r, "deckID")); err != nil {
		writeError(w, err)
		return
	}
	response.NoContent(w)
}

// AddCardRequest adds one card stack to a zone. Card accepts any supported
// card record shape.
type AddCardRequest struct {
	Zone string          `json:"zone"`
	Card json.RawMessage `json:"card"`
}

// AddCardResponse is the deck after the addition plus how the printing was chosen.
type AddCardResponse struct {
	Deck       deck.Deck           `json:"deck"`
	Resolution printing.Resolution `json:"resolution"`
}

// AddCard resolves a card's printing and adds it to a zone.
func (h *DeckHandler) AddCard(w http.ResponseWriter, r *http.Request) {
	var req AddCardRequest
	if !decode(w, r, &req) {
		return
	}
	z, ok := parseZone(w, req.Zone)
	if !ok {
		return
	}
	c, err := records.Normalize(req.Card)
	if err != nil {
		response.BadRequest(w, err)
		return
	}

	d, res, err := h.editor.AddCard(r.Context(), chi.URLParam(r, "deckID"), z, c)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, AddCardResponse{Deck: d, Resolution: res})
}

// RemoveCardRequest removes copies of a stack. A zero Count removes the
// whole stack.
type RemoveCardRequest struct {
	Zone  string `json:"zone"`
	Key   string `json:"key"`
	Count int    `json:"count,omitempty"`
}

// RemoveCard removes copies of a card stack.
func (h *DeckHandler) RemoveCard(w http.ResponseWriter, r *http.Request) {
	var req RemoveCardRequest
	if !decode(w, r, &req) {
		return
	}
	z, ok := parseZone(w, req.Zone)
	if !ok {
		return
	}

	d, err := h.editor.RemoveCard(r.Context(), chi.URLParam(r, "deckID"), z, req.Key, req.Count)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, d)
}

// MoveResponse is the deck after a move plus the per-key report.
type MoveResponse struct {
	Deck   deck.Deck       `json:"deck"`
	Report deck.MoveReport `json:"report"`
}

// Move moves card stacks between zones.
func (h *DeckHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req deck.MoveRequest
	if !decode(w, r, &req) {
		return
	}

	d, report, err := h.editor.Move(r.Context(), chi.URLParam(r, "deckID"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, MoveResponse{Deck: d, Report: report})
}

// Consolidate merges identity-equal stacks in every zone.
func (h *DeckHandler) Consolidate(w http.ResponseWriter, r *http.Request) {
	d, err := h.editor.Consolidate(r.Context(), chi.URLParam(r, "deckID"))
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, d)
}

// RefreshResponse is the deck after a price refresh plus its report.
type RefreshResponse struct {
	Deck   deck.Deck            `json:"deck"`
	Report editor.RefreshReport `json:"report"`
}

// RefreshPrices fetches current prices for the deck's printings.
func (h *DeckHandler) RefreshPrices(w http.ResponseWriter, r *http.Request) {
	d, report, err := h.editor.RefreshPrices(r.Context(), chi.URLParam(r, "deckID"))
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, RefreshResponse{Deck: d, Report: report})
}

// ChangePrintingRequest switches a stack to another printing.
type ChangePrintingRequest struct {
	Zone     string           `json:"zone"`
	Key      string           `json:"key"`
	Printing deck.PrintingRef `json:"printing"`

	// Remember also stores the printing as the card's preference.
	Remember bool `json:"remember,omitempty"`
}

// ChangePrinting switches a card stack to another printing.
func (h *DeckHandler) ChangePrinting(w http.ResponseWriter, r *http.Request) {
	var req ChangePrintingRequest
	if !decode(w, r, &req) {
		return
	}
	z, ok := parseZone(w, req.Zone)
	if !ok {
		return
	}

	d, err := h.editor.ChangePrinting(r.Context(), chi.URLParam(r, "deckID"), z, req.Key, req.Printing, req.Remember)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, d)
}

// ChangeFinishRequest switches a stack to another finish.
type ChangeFinishRequest struct {
	Zone   string `json:"zone"`
	Key    string `json:"key"`
	Finish string `json:"finish"`
}

// ChangeFinish switches a card stack to another finish.
func (h *DeckHandler) ChangeFinish(w http.ResponseWriter, r *http.Request) {
	var req ChangeFinishRequest
	if !decode(w, r, &req) {
		return
	}
	z, ok := parseZone(w, req.Zone)
	if !ok {
		return
	}
	f, err := deck.ParseFinish(req.Finish)
	if err != nil {
		response.BadRequest(w, err)
		return
	}

	d, err := h.editor.ChangeFinish(r.Context(), chi.URLParam(r, "deckID"), z, req.Key, f)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, d)
}

// Import imports a deck list. Under /decks/{deckID}/import the cards go
// into that deck; under /decks/import a new deck is created.
func (h *DeckHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req editor.ImportRequest
	if !decode(w, r, &req) {
		return
	}
	req.DeckID = chi.URLParam(r, "deckID")

	result, err := h.editor.Import(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	if result.Created {
		response.Created(w, result)
		return
	}
	response.Success(w, result)
}

// Export renders a deck. Query parameters: format (arena, plaintext, mtgo,
// json, yaml), headers and tech (booleans).
func (h *DeckHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := deckexport.ParseFormat(q.Get("format"))
	if err != nil {
		response.BadRequest(w, err)
		return
	}
	opts := &deckexport.ExportOptions{
		Format:         format,
		IncludeHeaders: queryBool(q.Get("headers"), true),
		IncludeTech:    queryBool(q.Get("tech"), false),
	}

	out, err := h.editor.Export(r.Context(), chi.URLParam(r, "deckID"), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Text(w, out.ContentType, out.Filename, out.Content)
}

func queryBool(s string, def bool) bool {
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}
