package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// observeLogs routes the global zap logger into an in-memory observer for the
// duration of the test.
func observeLogs(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestIdentityKey(t *testing.T) {
	tests := []struct {
		name     string
		instance CardInstance
		want     string
	}{
		{
			name: "scryfall id wins over set and number",
			instance: CardInstance{
				Name:     "Sol Ring",
				Printing: PrintingRef{ScryfallID: "ABC123", SetCode: "C21", CollectorNumber: "263"},
				Finish:   FinishNormal,
			},
			want: "sol ring|abc123|normal",
		},
		{
			name: "set and collector number",
			instance: CardInstance{
				Name:     "Lightning Bolt",
				Printing: PrintingRef{SetCode: "M10", CollectorNumber: "146"},
				Finish:   FinishFoil,
			},
			want: "lightning bolt|m10#146|foil",
		},
		{
			name: "set without number is unknown",
			instance: CardInstance{
				Name:     "Forest",
				Printing: PrintingRef{SetCode: "M21"},
				Finish:   FinishNormal,
			},
			want: "forest|unknown|normal",
		},
		{
			name:     "name is trimmed and lower-cased",
			instance: CardInstance{Name: "  Forest ", Finish: FinishEtched},
			want:     "forest|unknown|etched",
		},
		{
			name:     "empty finish keys as normal",
			instance: CardInstance{Name: "Island"},
			want:     "island|unknown|normal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IdentityKey(tt.instance))
		})
	}
}

func TestIdentityKey_FinishIsPartOfIdentity(t *testing.T) {
	printing := PrintingRef{ScryfallID: "abc123"}
	normal := CardInstance{Name: "Sol Ring", Printing: printing, Finish: FinishNormal, Count: 1}
	foil := CardInstance{Name: "Sol Ring", Printing: printing, Finish: FinishFoil, Count: 1}

	assert.NotEqual(t, IdentityKey(normal), IdentityKey(foil))
}

func TestIdentityKey_LogsUnknownPrinting(t *testing.T) {
	logs := observeLogs(t, zapcore.DebugLevel)

	key := IdentityKey(CardInstance{Name: "Forest", Finish: FinishNormal})

	assert.Equal(t, "forest|unknown|normal", key)
	entries := logs.FilterField(zap.String("name", "Forest")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
}

func TestIdentityKey_QuietAtWarnLevel(t *testing.T) {
	logs := observeLogs(t, zapcore.WarnLevel)

	forests := []CardInstance{
		{Name: "Forest", Count: 10},
		{Name: "Forest", Finish: FinishFoil, Count: 2},
	}
	for range 50 {
		for _, c := range forests {
			IdentityKey(c)
		}
	}
	Consolidate(forests)

	assert.Zero(t, logs.Len(), "unknown printings are routine for basic lands")
}

func TestNormalizeName_ComposesCombiningMarks(t *testing.T) {
	precomposed := "Lim-D\u00fbl the Necromancer"
	decomposed := "Lim-Du\u0302l the Necromancer"

	assert.Equal(t, NormalizeName(precomposed), NormalizeName(decomposed))
	assert.Equal(t, "lim-d\u00fbl the necromancer", NormalizeName(decomposed))
}

func TestCanonicalKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Forest|unknown|normal", "forest|unknown|normal"},
		{"sol ring|ABC123|normal", "sol ring|abc123|normal"},
		{" Lightning Bolt | M10#146 | Foil ", "lightning bolt|m10#146|foil"},
		{"Island|unknown|", "island|unknown|normal"},
		{"not-a-key", "not-a-key"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalKey(tt.in))
		})
	}
}

func TestCanonicalKey_MatchesIdentityKey(t *testing.T) {
	c := CardInstance{
		Name:     "Sol Ring",
		Printing: PrintingRef{SetCode: "CMR", CollectorNumber: "472"},
		Finish:   FinishEtched,
	}
	key := IdentityKey(c)

	assert.Equal(t, key, CanonicalKey(key))
	assert.Equal(t, key, CanonicalKey("SOL RING|cmr#472|ETCHED"))
}
