package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/deckforge/internal/api/response"
	"github.com/ramonehamilton/deckforge/internal/deck"
	"github.com/ramonehamilton/deckforge/internal/mtga/cards/records"
)

// PrintingHandler handles printing preferences and printing previews.
type PrintingHandler struct {
	editor Editor
}

// NewPrintingHandler creates a new PrintingHandler.
func NewPrintingHandler(e Editor) *PrintingHandler {
	return &PrintingHandler{editor: e}
}

// SetPreference stores the printing to use for a card name. The body is a
// printing reference.
func (h *PrintingHandler) SetPreference(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var p deck.PrintingRef
	if !decode(w, r, &p) {
		return
	}
	if !p.IsKnown() {
		response.BadRequest(w, errors.New("printing needs scryfall_id or set_code and collector_number"))
		return
	}

	if err := h.editor.SetPreference(r.Context(), name, p); err != nil {
		writeError(w, err)
		return
	}
	response.NoContent(w)
}

// ClearPreference forgets the preferred printing of a card name.
func (h *PrintingHandler) ClearPreference(w http.ResponseWriter, r *http.Request) {
	if err := h.editor.ClearPreference(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	response.NoContent(w)
}

// ResolveRequest lists cards to resolve without storing them. Requests that
// share a Channel follow latest-request-wins.
type ResolveRequest struct {
	Channel string          `json:"channel,omitempty"`
	Cards   json.RawMessage `json:"cards"`
}

// Resolve previews the printing and price each card would get.
func (h *PrintingHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if !decode(w, r, &req) {
		return
	}
	instances, skipped, err := records.NormalizeList(req.Cards)
	if err != nil {
		response.BadRequest(w, err)
		return
	}
	if len(skipped) > 0 {
		response.BadRequest(w, skipped[0])
		return
	}

	previews, err := h.editor.ResolvePrintings(r.Context(), req.Channel, instances)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, previews)
}
