package scryfall

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/deckforge/internal/deck"
	"github.com/ramonehamilton/deckforge/internal/deck/pricing"
)

const foilOnlyJSON = `{
	"id": "F00-1",
	"name": "Sol Ring",
	"set": "SLD",
	"collector_number": "1011",
	"finishes": ["foil"],
	"prices": {"usd": null, "usd_foil": "0.50", "usd_etched": null}
}`

func TestCard_PriceRecord_FoilOnly(t *testing.T) {
	var card Card
	require.NoError(t, json.Unmarshal([]byte(foilOnlyJSON), &card))

	rec := card.PriceRecord()
	assert.Nil(t, rec.Normal)
	require.NotNil(t, rec.Foil)
	assert.Equal(t, deck.Price(50), *rec.Foil)
	assert.Equal(t, []deck.Finish{deck.FinishFoil}, rec.Finishes)

	p, ok := pricing.Resolve(rec, deck.FinishNormal, false)
	require.True(t, ok)
	assert.Equal(t, "0.50", p.String())
}

func TestCard_PrintingRef(t *testing.T) {
	var card Card
	require.NoError(t, json.Unmarshal([]byte(foilOnlyJSON), &card))

	ref := card.PrintingRef()
	assert.Equal(t, deck.PrintingRef{ScryfallID: "F00-1", SetCode: "SLD", CollectorNumber: "1011"}, ref)
	assert.True(t, ref.IsKnown())
}

func TestCard_FinishList_DropsUnknown(t *testing.T) {
	card := Card{Finishes: []string{"nonfoil", "glossy", "etched"}}
	assert.Equal(t, []deck.Finish{deck.FinishNormal, deck.FinishEtched}, card.FinishList())
}

func TestCard_PriceRecord_MalformedPriceIsAbsent(t *testing.T) {
	bad := "n/a"
	card := Card{Prices: Prices{USD: &bad}}
	assert.Nil(t, card.PriceRecord().Normal)
}

func TestCard_Instance(t *testing.T) {
	usd := "1.25"
	card := Card{ID: "abc", Name: "Lightning Bolt", SetCode: "m10", CollectorNumber: "146", Prices: Prices{USD: &usd}}

	got := card.Instance(deck.FinishNormal, 4)

	assert.Equal(t, "Lightning Bolt", got.Name)
	assert.Equal(t, 4, got.Count)
	assert.Equal(t, "lightning bolt|abc|normal", got.Key())
	require.NotNil(t, got.Price.Normal)
	assert.Equal(t, deck.Price(125), *got.Price.Normal)
}

func TestPrintingRefs(t *testing.T) {
	refs := PrintingRefs([]Card{{ID: "a"}, {SetCode: "m21", CollectorNumber: "272"}})
	assert.Equal(t, []deck.PrintingRef{{ScryfallID: "a"}, {SetCode: "m21", CollectorNumber: "272"}}, refs)
}
