package editor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/deckforge/internal/deck"
	"github.com/ramonehamilton/deckforge/internal/deck/pricing"
	"github.com/ramonehamilton/deckforge/internal/deck/printing"
	"github.com/ramonehamilton/deckforge/internal/mtga/deckexport"
)

const arenaList = `Deck
4 Lightning Bolt
2 Forest
1 Sol Ring (C21) 263 *F*

Sideboard
2 Duress (M21) 95
`

func TestImport_ArenaCreatesResolvedDeck(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, boltPrintings())

	result, err := svc.Import(ctx, ImportRequest{Name: "Imported Burn", Content: arenaList})
	require.NoError(t, err)

	assert.True(t, result.Created)
	assert.Equal(t, "arena", result.Format)
	assert.Equal(t, "Imported Burn", result.Deck.Name)

	d := result.Deck
	bolt, ok := deck.FindInstance(d, deck.ZoneMain, "lightning bolt|bolt-2xm|normal")
	require.True(t, ok, "bolt resolves to the first candidate")
	assert.Equal(t, 4, bolt.Count)
	assert.Equal(t, "2.00", bolt.Price.Normal.String())

	forest, ok := deck.FindInstance(d, deck.ZoneMain, "forest|m21#272|normal")
	require.True(t, ok, "forest takes the basic land default")
	assert.Equal(t, 2, forest.Count)

	sol, ok := deck.FindInstance(d, deck.ZoneMain, "sol ring|c21#263|foil")
	require.True(t, ok)
	assert.Equal(t, "1.50", sol.Price.Normal.String())

	assert.Equal(t, 2, deck.ZoneCount(d, deck.ZoneSideboard))

	stored, err := svc.GetDeck(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, deck.ZoneCount(stored, deck.ZoneMain))
}

func TestImport_JSONIntoExistingDeck(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, boltPrintings())
	d := createDeck(t, svc, "Burn")

	_, _, err := svc.AddCard(ctx, d.ID, deck.ZoneMain, deck.CardInstance{Name: "Lightning Bolt", Count: 4})
	require.NoError(t, err)

	records := `[{"name":"Lightning Bolt","scryfall_id":"bolt-2xm","qty":2},{"name":"Duress","set":"m21","number":"95"}]`

	result, err := svc.Import(ctx, ImportRequest{DeckID: d.ID, Content: records})
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, ImportJSON, result.Format)

	bolt, ok := deck.FindInstance(result.Deck, deck.ZoneMain, "lightning bolt|bolt-2xm|normal")
	require.True(t, ok)
	assert.Equal(t, 6, bolt.Count, "imported copies merge with the existing stack")
	assert.Equal(t, 7, deck.ZoneCount(result.Deck, deck.ZoneMain))

	result, err = svc.Import(ctx, ImportRequest{DeckID: d.ID, Content: records, Replace: true, Name: "Burn v2"})
	require.NoError(t, err)
	assert.Equal(t, "Burn v2", result.Deck.Name)
	assert.Equal(t, 3, deck.ZoneCount(result.Deck, deck.ZoneMain))
}

func TestImport_JSONReportsSkippedRecords(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	content := `[{"name":"Sol Ring","count":4,"prices":{"usd":"N/A"}},{"count":2},{"name":"Forest","count":2}]`
	result, err := svc.Import(ctx, ImportRequest{Name: "Records", Content: content})
	require.NoError(t, err)

	assert.Equal(t, 6, deck.ZoneCount(result.Deck, deck.ZoneMain), "a malformed price keeps the card")
	assert.Equal(t, []string{"record 2: record has no card name"}, result.Errors)

	_, err = svc.Import(ctx, ImportRequest{Content: `[{"count":2},"Opt"]`})
	assert.ErrorIs(t, err, ErrInvalidInput, "nothing readable is an error")
}

func TestImport_Errors(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	_, err := svc.Import(ctx, ImportRequest{Content: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Import(ctx, ImportRequest{Content: "4 Opt", Format: "cockatrice"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Import(ctx, ImportRequest{Content: `{"zones":{"graveyard":[]}}`})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Import(ctx, ImportRequest{DeckID: "missing", Content: "4 Opt"})
	assert.ErrorIs(t, err, ErrDeckNotFound)
}

func TestExportRoundTripsThroughImport(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, boltPrintings())

	result, err := svc.Import(ctx, ImportRequest{Name: "Round Trip", Content: arenaList})
	require.NoError(t, err)

	out, err := svc.Export(ctx, result.Deck.ID, &deckexport.ExportOptions{Format: deckexport.FormatYAML})
	require.NoError(t, err)

	again, err := svc.Import(ctx, ImportRequest{Content: out.Content, Format: ImportYAML})
	require.NoError(t, err)

	for _, z := range deck.Zones() {
		assert.Equal(t, deck.ZoneCount(result.Deck, z), deck.ZoneCount(again.Deck, z), z)
	}

	_, err = svc.Export(ctx, result.Deck.ID, &deckexport.ExportOptions{Format: "pdf"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Export(ctx, "missing", nil)
	assert.ErrorIs(t, err, ErrDeckNotFound)
}

func TestResolvePrintings(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, boltPrintings())

	input := []deck.CardInstance{
		{Name: "Lightning Bolt", Finish: deck.FinishFoil},
		{Name: "Plains", Count: 3},
		{Name: "Unheard Of"},
	}
	previews, err := svc.ResolvePrintings(ctx, "picker", input)
	require.NoError(t, err)
	require.Len(t, previews, 3)

	assert.Equal(t, 0, input[0].Count, "input is not modified")

	bolt := previews[0]
	assert.Equal(t, printing.TierContext, bolt.Resolution.Tier)
	require.NotNil(t, bolt.UnitPrice)
	assert.Equal(t, "6.00", bolt.UnitPrice.String())
	assert.Equal(t, pricing.SourceFinish, bolt.PriceSource)

	plains := previews[1]
	assert.Equal(t, printing.TierBasicLand, plains.Resolution.Tier)
	assert.Equal(t, pricing.SourceBasicLand, plains.PriceSource)

	unknown := previews[2]
	assert.Equal(t, "unheard of|unknown|normal", unknown.Key)
	assert.Nil(t, unknown.UnitPrice)
	assert.Equal(t, pricing.SourceNone, unknown.PriceSource)

	b, err := json.Marshal(previews[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), `"unitPrice":"6.00"`)

	_, err = svc.ResolvePrintings(ctx, "", []deck.CardInstance{{}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
