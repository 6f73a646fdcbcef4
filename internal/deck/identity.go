package deck

import (
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// UnknownPrinting is the printing key of instances with no usable printing data.
const UnknownPrinting = "unknown"

// IdentityKey returns the canonical key deciding whether two instances are the
// same logical stack: normalized name, printing key and finish joined by "|".
// Foil and normal copies of one printing have different keys.
func IdentityKey(c CardInstance) string {
	printingKey := PrintingKey(c.Printing)
	if printingKey == UnknownPrinting {
		zap.L().Debug("card instance has no printing data, using unknown identity bucket",
			zap.String("name", c.Name))
	}

	finish := c.Finish
	if finish == "" {
		finish = FinishNormal
	}

	return NormalizeName(c.Name) + "|" + printingKey + "|" + string(finish)
}

// NormalizeName trims and lower-cases a card name after NFC composition, so
// names typed with combining marks match their precomposed form.
func NormalizeName(name string) string {
	// Casers keep state and are not safe to share between goroutines.
	lower := cases.Lower(language.Und)
	return strings.TrimSpace(lower.String(norm.NFC.String(name)))
}

// PrintingKey returns the Scryfall ID when present, else "set#number", else
// UnknownPrinting.
func PrintingKey(p PrintingRef) string {
	if id := strings.TrimSpace(p.ScryfallID); id != "" {
		return strings.ToLower(id)
	}
	set := strings.TrimSpace(p.SetCode)
	number := strings.TrimSpace(p.CollectorNumber)
	if set != "" && number != "" {
		return strings.ToLower(set + "#" + number)
	}
	return UnknownPrinting
}

// CanonicalKey rewrites a caller-supplied identity key into the form
// IdentityKey produces, so "Forest|unknown|normal" matches
// "forest|unknown|normal". Strings that are not three "|"-separated parts are
// only trimmed and lower-cased.
func CanonicalKey(key string) string {
	last := strings.LastIndex(key, "|")
	if last < 0 {
		return strings.ToLower(strings.TrimSpace(key))
	}
	mid := strings.LastIndex(key[:last], "|")
	if mid < 0 {
		return strings.ToLower(strings.TrimSpace(key))
	}

	name := NormalizeName(key[:mid])
	printing := strings.ToLower(strings.TrimSpace(key[mid+1 : last]))
	finish := strings.ToLower(strings.TrimSpace(key[last+1:]))
	if finish == "" {
		finish = string(FinishNormal)
	}

	return name + "|" + printing + "|" + finish
}
