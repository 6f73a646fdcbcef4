package printing

import (
	"maps"

	"github.com/ramonehamilton/deckforge/internal/deck"
)

var basicLandNames = map[string]bool{
	"plains":                true,
	"island":                true,
	"swamp":                 true,
	"mountain":              true,
	"forest":                true,
	"wastes":                true,
	"snow-covered plains":   true,
	"snow-covered island":   true,
	"snow-covered swamp":    true,
	"snow-covered mountain": true,
	"snow-covered forest":   true,
	"snow-covered wastes":   true,
}

// IsBasicLand reports whether name is a basic land.
func IsBasicLand(name string) bool {
	return basicLandNames[deck.NormalizeName(name)]
}

var defaultBasicLands = Table{
	"Plains":                {SetCode: "m21", CollectorNumber: "260"},
	"Island":                {SetCode: "m21", CollectorNumber: "263"},
	"Swamp":                 {SetCode: "m21", CollectorNumber: "266"},
	"Mountain":              {SetCode: "m21", CollectorNumber: "269"},
	"Forest":                {SetCode: "m21", CollectorNumber: "272"},
	"Wastes":                {SetCode: "ogw", CollectorNumber: "183"},
	"Snow-Covered Plains":   {SetCode: "khm", CollectorNumber: "276"},
	"Snow-Covered Island":   {SetCode: "khm", CollectorNumber: "278"},
	"Snow-Covered Swamp":    {SetCode: "khm", CollectorNumber: "280"},
	"Snow-Covered Mountain": {SetCode: "khm", CollectorNumber: "282"},
	"Snow-Covered Forest":   {SetCode: "khm", CollectorNumber: "284"},
}

// DefaultBasicLands returns the fixed table of preferred basic land
// printings. The returned map is a copy.
func DefaultBasicLands() Table {
	return maps.Clone(defaultBasicLands)
}

// MergeBasicLands overlays configured entries on the defaults. Entries with no
// printing data are ignored.
func MergeBasicLands(overrides Table) Table {
	out := DefaultBasicLands()
	for name, p := range overrides {
		if !p.IsKnown() {
			continue
		}
		for existing := range out {
			if deck.NormalizeName(existing) == deck.NormalizeName(name) {
				delete(out, existing)
			}
		}
		out[name] = p
	}
	return out
}
