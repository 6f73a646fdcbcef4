package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ramonehamilton/deckforge/internal/api/response"
	"github.com/ramonehamilton/deckforge/internal/deck"
	"github.com/ramonehamilton/deckforge/internal/deck/pricing"
	"github.com/ramonehamilton/deckforge/internal/mtga/cards/records"
)

// PriceHandler prices card records without touching storage.
type PriceHandler struct {
	prices *pricing.Resolver
}

// NewPriceHandler creates a new PriceHandler.
func NewPriceHandler(prices *pricing.Resolver) *PriceHandler {
	return &PriceHandler{prices: prices}
}

// PriceRequest lists card records to price.
type PriceRequest struct {
	Cards json.RawMessage `json:"cards"`
}

// PricedCard is one priced record.
type PricedCard struct {
	Key       string         `json:"key"`
	Name      string         `json:"name"`
	Count     int            `json:"count"`
	UnitPrice *deck.Price    `json:"unitPrice,omitempty"`
	LineTotal *deck.Price    `json:"lineTotal,omitempty"`
	Source    pricing.Source `json:"source"`
}

// PriceResponse holds the per-card prices and their sum. Missing counts
// the copies that had no price; Skipped lists records that could not be read.
type PriceResponse struct {
	Cards   []PricedCard `json:"cards"`
	Total   deck.Price   `json:"total"`
	Missing int          `json:"missing"`
	Skipped []string     `json:"skipped,omitempty"`
}

// Resolve prices each record from the price data it carries.
func (h *PriceHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req PriceRequest
	if !decode(w, r, &req) {
		return
	}
	instances, skipped, err := records.NormalizeList(req.Cards)
	if err != nil {
		response.BadRequest(w, err)
		return
	}
	for _, c := range instances {
		if c.Count < 1 {
			response.BadRequest(w, fmt.Errorf("%s: count must be positive, got %d", c.Name, c.Count))
			return
		}
	}

	out := PriceResponse{Cards: make([]PricedCard, 0, len(instances))}
	for _, e := range skipped {
		out.Skipped = append(out.Skipped, e.Error())
	}
	for _, c := range instances {
		card := PricedCard{Key: c.Key(), Name: c.Name, Count: c.Count}
		p, src := h.prices.ResolveInstance(c)
		card.Source = src
		if src != pricing.SourceNone {
			card.UnitPrice = p.Ptr()
			card.LineTotal = (p * deck.Price(c.Count)).Ptr()
		}
		out.Cards = append(out.Cards, card)
	}
	out.Total, out.Missing = h.prices.Total(instances)
	response.Success(w, out)
}
