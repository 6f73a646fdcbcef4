package events

import (
	"github.com/ramonehamilton/deckforge/internal/deck"
	"github.com/ramonehamilton/deckforge/internal/deck/printing"
)

// Event types.
const (
	TypeDeckSaved         = "deck:saved"
	TypeDeckDeleted       = "deck:deleted"
	TypeDeckImported      = "deck:imported"
	TypeCardsAdded        = "deck:cards-added"
	TypeCardsMoved        = "deck:cards-moved"
	TypeDeckConsolidated  = "deck:consolidated"
	TypePrintingChanged   = "deck:printing-changed"
	TypeFinishChanged     = "deck:finish-changed"
	TypePricesRefreshed   = "deck:prices-refreshed"
	TypePreferenceSet     = "printing:preference-set"
	TypePreferenceCleared = "printing:preference-cleared"
)

// DeckSavedEvent is the payload for deck:saved and deck:imported events.
type DeckSavedEvent struct {
	Name  string `json:"name"`
	Cards int    `json:"cards"` // Copies across main and sideboard
}

// DeckDeletedEvent is the payload for deck:deleted events.
type DeckDeletedEvent struct {
	ID string `json:"id"`
}

// CardsAddedEvent is the payload for deck:cards-added events.
type CardsAddedEvent struct {
	Zone       deck.Zone           `json:"zone"`
	Key        string              `json:"key"`
	Count      int                 `json:"count"`
	Resolution printing.Resolution `json:"resolution"`
}

// CardsMovedEvent is the payload for deck:cards-moved events.
type CardsMovedEvent struct {
	From   deck.Zone       `json:"from"`
	To     deck.Zone       `json:"to"`
	Report deck.MoveReport `json:"report"`
}

// DeckConsolidatedEvent is the payload for deck:consolidated events.
type DeckConsolidatedEvent struct {
	Before int `json:"before"` // Stacks before consolidation
	After  int `json:"after"`
}

// InstanceChangedEvent is the payload for deck:printing-changed and
// deck:finish-changed events.
type InstanceChangedEvent struct {
	Zone   deck.Zone `json:"zone"`
	OldKey string    `json:"oldKey"`
	NewKey string    `json:"newKey"`
}

// PreferenceEvent is the payload for printing preference events.
type PreferenceEvent struct {
	Name     string           `json:"name"`
	Printing deck.PrintingRef `json:"printing,omitempty"`
}

// PricesRefreshedEvent is the payload for deck:prices-refreshed events.
type PricesRefreshedEvent struct {
	Checked  int `json:"checked"`
	Updated  int `json:"updated"`
	NotFound int `json:"notFound"`
}
