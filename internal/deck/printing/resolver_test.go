package printing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/deckforge/internal/deck"
)

var (
	p1 = deck.PrintingRef{ScryfallID: "p1"}
	p2 = deck.PrintingRef{ScryfallID: "p2"}
	p3 = deck.PrintingRef{SetCode: "2xm", CollectorNumber: "141"}
)

func TestResolve_Priority(t *testing.T) {
	basics := Table{"Forest": {SetCode: "m21", CollectorNumber: "272"}}

	tests := []struct {
		name       string
		card       string
		candidates []deck.PrintingRef
		current    deck.PrintingRef
		src        DataSource
		want       deck.PrintingRef
		wantTier   Tier
		wantChange bool
	}{
		{
			name:       "user preference beats cache",
			card:       "Lightning Bolt",
			candidates: []deck.PrintingRef{p3},
			current:    p3,
			src:        NewMapSource(Table{"Lightning Bolt": p1}, Table{"Lightning Bolt": p2}, nil),
			want:       p1,
			wantTier:   TierUserPreference,
			wantChange: true,
		},
		{
			name:       "cache when no preference",
			card:       "Lightning Bolt",
			current:    p3,
			src:        NewMapSource(nil, Table{"lightning bolt": p2}, nil),
			want:       p2,
			wantTier:   TierCache,
			wantChange: true,
		},
		{
			name:       "stored value equal to current is not a change",
			card:       "Lightning Bolt",
			current:    deck.PrintingRef{ScryfallID: "P2"},
			src:        NewMapSource(nil, Table{"Lightning Bolt": p2}, nil),
			want:       p2,
			wantTier:   TierCache,
			wantChange: false,
		},
		{
			name:       "basic land default",
			card:       "Forest",
			current:    deck.PrintingRef{},
			src:        NewMapSource(nil, nil, basics),
			want:       basics["Forest"],
			wantTier:   TierBasicLand,
			wantChange: true,
		},
		{
			name:     "basic land table ignored for non-basics",
			card:     "Forest Bear",
			current:  p3,
			src:      NewMapSource(nil, nil, Table{"Forest Bear": p1}),
			want:     p3,
			wantTier: TierContext,
		},
		{
			name:     "context printing is the floor",
			card:     "Counterspell",
			current:  p3,
			src:      NewMapSource(nil, nil, nil),
			want:     p3,
			wantTier: TierContext,
		},
		{
			name:       "first known candidate when context has nothing",
			card:       "Counterspell",
			candidates: []deck.PrintingRef{{}, p2, p1},
			src:        nil,
			want:       p2,
			wantTier:   TierContext,
		},
		{
			name:     "unknown stays unknown",
			card:     "Counterspell",
			want:     deck.PrintingRef{},
			wantTier: TierContext,
		},
		{
			name:     "stored refs without data are ignored",
			card:     "Counterspell",
			current:  p3,
			src:      NewMapSource(Table{"Counterspell": {SetCode: "ice"}}, nil, nil),
			want:     p3,
			wantTier: TierContext,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.card, tt.candidates, tt.current, tt.src)
			assert.Equal(t, tt.want, got.Printing)
			assert.Equal(t, tt.wantTier, got.Tier)
			assert.Equal(t, tt.wantChange, got.Changed)
		})
	}
}

func TestResolveInstance_PreviewAndDetailAgree(t *testing.T) {
	src := NewMapSource(Table{"Sol Ring": p1}, Table{"Sol Ring": p2}, nil)
	c := deck.CardInstance{Name: "Sol Ring", Printing: p3, Finish: deck.FinishNormal, Count: 1}

	preview, previewRes := ResolveInstance(c, []deck.PrintingRef{p2, p3}, src)
	detail, detailRes := ResolveInstance(c, []deck.PrintingRef{p3}, src)

	assert.Equal(t, preview.Printing, detail.Printing)
	assert.Equal(t, previewRes, detailRes)
	assert.Equal(t, p3, c.Printing, "input instance is not modified")
}

func TestMapSource_WithCached(t *testing.T) {
	base := NewMapSource(nil, nil, nil)
	next := base.WithCached("Sol Ring", p1)

	_, ok := base.CachedPrinting("Sol Ring")
	assert.False(t, ok)

	got, ok := next.CachedPrinting("sol ring")
	require.True(t, ok)
	assert.Equal(t, p1, got)
}

func TestIsBasicLand(t *testing.T) {
	assert.True(t, IsBasicLand("Forest"))
	assert.True(t, IsBasicLand(" snow-covered island "))
	assert.True(t, IsBasicLand("Wastes"))
	assert.False(t, IsBasicLand("Forest Bear"))
	assert.False(t, IsBasicLand("Dryad Arbor"))
}

func TestMergeBasicLands(t *testing.T) {
	merged := MergeBasicLands(Table{
		"forest": p1,
		"Island": {},
	})

	src := NewMapSource(nil, nil, merged)

	got, ok := src.BasicLandDefault("Forest")
	require.True(t, ok)
	assert.Equal(t, p1, got)

	got, ok = src.BasicLandDefault("Island")
	require.True(t, ok)
	assert.Equal(t, DefaultBasicLands()["Island"], got, "empty override keeps the default")
}
