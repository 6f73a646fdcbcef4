// Package deck holds the card identity and zone model of a deck under edit,
// together with the pure operations that consolidate stacks and move them
// between zones. Nothing in this package performs I/O.
package deck

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Finish is the physical treatment of a printed card.
type Finish string

const (
	FinishNormal Finish = "normal"
	FinishFoil   Finish = "foil"
	FinishEtched Finish = "etched"
)

// ParseFinish converts a stored or catalog finish string into a Finish.
// Scryfall's "nonfoil" and the empty string both map to FinishNormal.
func ParseFinish(s string) (Finish, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal", "nonfoil":
		return FinishNormal, nil
	case "foil":
		return FinishFoil, nil
	case "etched":
		return FinishEtched, nil
	default:
		return "", fmt.Errorf("unknown finish %q", s)
	}
}

// Valid reports whether f is one of the known finishes.
func (f Finish) Valid() bool {
	return f == FinishNormal || f == FinishFoil || f == FinishEtched
}

// Zone is one of the deck sub-lists a card instance can belong to.
type Zone string

const (
	ZoneMain      Zone = "main"
	ZoneSideboard Zone = "sideboard"
	ZoneTechIdeas Zone = "techIdeas"
)

// Zones returns every zone in display order.
func Zones() []Zone {
	return []Zone{ZoneMain, ZoneSideboard, ZoneTechIdeas}
}

// ParseZone accepts the canonical zone names plus the spellings older deck
// records used for the tech ideas list.
func ParseZone(s string) (Zone, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "main", "mainboard", "deck":
		return ZoneMain, nil
	case "sideboard", "side":
		return ZoneSideboard, nil
	case "techideas", "tech-ideas", "tech_ideas", "maybeboard", "maybe":
		return ZoneTechIdeas, nil
	default:
		return "", fmt.Errorf("unknown zone %q", s)
	}
}

// Valid reports whether z is one of the known zones.
func (z Zone) Valid() bool {
	return z == ZoneMain || z == ZoneSideboard || z == ZoneTechIdeas
}

// PrintingRef identifies one printed version of a card. Empty fields are absent.
type PrintingRef struct {
	ScryfallID      string `json:"scryfall_id,omitempty" yaml:"scryfall_id,omitempty" toml:"scryfall_id,omitempty"`
	SetCode         string `json:"set_code,omitempty" yaml:"set_code,omitempty" toml:"set_code,omitempty"`
	CollectorNumber string `json:"collector_number,omitempty" yaml:"collector_number,omitempty" toml:"collector_number,omitempty"`
}

// IsKnown reports whether the ref carries enough data to name a printing.
func (p PrintingRef) IsKnown() bool {
	return p.ScryfallID != "" || p.hasSetNumber()
}

func (p PrintingRef) hasSetNumber() bool {
	return p.SetCode != "" && p.CollectorNumber != ""
}

// Equal compares by Scryfall ID when both sides have one, otherwise by set
// code and collector number, ignoring case. Two unknown refs are equal to
// each other.
func (p PrintingRef) Equal(o PrintingRef) bool {
	if p.ScryfallID != "" && o.ScryfallID != "" {
		return strings.EqualFold(p.ScryfallID, o.ScryfallID)
	}
	if p.hasSetNumber() && o.hasSetNumber() {
		return strings.EqualFold(p.SetCode, o.SetCode) && strings.EqualFold(p.CollectorNumber, o.CollectorNumber)
	}
	return !p.IsKnown() && !o.IsKnown()
}

// Price is a single-currency amount in hundredths.
type Price int64

// ParsePrice parses decimal strings such as "0.5", "12.34" or "$3.10".
// Digits past the second fractional place round half-up.
func ParsePrice(s string) (Price, error) {
	raw := s
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("invalid price %q", raw)
	}
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseUint(whole, 10, 53)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", raw, err)
	}
	for _, r := range frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid price %q", raw)
		}
	}

	digits := frac + "000"
	cents := int64(digits[0]-'0')*10 + int64(digits[1]-'0')
	if digits[2] >= '5' {
		cents++
	}

	return Price(int64(units)*100 + cents), nil
}

// MustParsePrice is ParsePrice for literals known to be valid.
func MustParsePrice(s string) Price {
	p, err := ParsePrice(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String formats the price with two fractional digits and no currency symbol.
func (p Price) String() string {
	return fmt.Sprintf("%d.%02d", int64(p)/100, int64(p)%100)
}

// Ptr returns a pointer to a copy of p, for filling PriceRecord fields.
func (p Price) Ptr() *Price {
	return &p
}

// MarshalText implements encoding.TextMarshaler.
func (p Price) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Price) UnmarshalText(b []byte) error {
	v, err := ParsePrice(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// PriceRecord holds the known market prices of one printing. A nil field
// means no price is recorded for that finish.
type PriceRecord struct {
	Normal   *Price `json:"normal,omitempty" yaml:"normal,omitempty"`
	Foil     *Price `json:"foil,omitempty" yaml:"foil,omitempty"`
	Etched   *Price `json:"etched,omitempty" yaml:"etched,omitempty"`
	Override *Price `json:"override,omitempty" yaml:"override,omitempty"`

	// Finishes the printing exists in; empty when the catalog did not say.
	Finishes []Finish `json:"finishes,omitempty" yaml:"finishes,omitempty"`
}

// ForFinish returns the finish's own field, ignoring the override.
func (r PriceRecord) ForFinish(f Finish) *Price {
	switch f {
	case FinishFoil:
		return r.Foil
	case FinishEtched:
		return r.Etched
	default:
		return r.Normal
	}
}

// Clone returns a deep copy.
func (r PriceRecord) Clone() PriceRecord {
	return PriceRecord{
		Normal:   clonePrice(r.Normal),
		Foil:     clonePrice(r.Foil),
		Etched:   clonePrice(r.Etched),
		Override: clonePrice(r.Override),
		Finishes: slices.Clone(r.Finishes),
	}
}

// Equal compares every price field by value and the finish lists in order.
func (r PriceRecord) Equal(o PriceRecord) bool {
	return pricesEqual(r.Normal, o.Normal) &&
		pricesEqual(r.Foil, o.Foil) &&
		pricesEqual(r.Etched, o.Etched) &&
		pricesEqual(r.Override, o.Override) &&
		slices.Equal(r.Finishes, o.Finishes)
}

func clonePrice(p *Price) *Price {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func pricesEqual(a, b *Price) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// CardInstance is one stack of identical cards owned by a zone.
type CardInstance struct {
	Name     string      `json:"name" yaml:"name"`
	Printing PrintingRef `json:"printing" yaml:"printing"`
	Finish   Finish      `json:"finish" yaml:"finish"`
	Count    int         `json:"count" yaml:"count"`
	Price    PriceRecord `json:"price" yaml:"price"`
}

// Key is shorthand for IdentityKey(c).
func (c CardInstance) Key() string {
	return IdentityKey(c)
}

// Clone returns a deep copy.
func (c CardInstance) Clone() CardInstance {
	c.Price = c.Price.Clone()
	return c
}

func cloneInstances(in []CardInstance) []CardInstance {
	out := make([]CardInstance, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

// Deck is a named set of zones. Within one zone no two instances share an
// identity key.
type Deck struct {
	ID    string                  `json:"id" yaml:"id"`
	Name  string                  `json:"name" yaml:"name"`
	Zones map[Zone][]CardInstance `json:"zones" yaml:"zones"`
}

// NewDeck returns a deck with every zone present and empty.
func NewDeck(id, name string) Deck {
	d := Deck{ID: id, Name: name, Zones: make(map[Zone][]CardInstance, 3)}
	for _, z := range Zones() {
		d.Zones[z] = []CardInstance{}
	}
	return d
}

// Zone returns the instances of z. The slice must not be modified.
func (d Deck) Zone(z Zone) []CardInstance {
	return d.Zones[z]
}

// Clone returns a deep copy with every zone present.
func (d Deck) Clone() Deck {
	out := NewDeck(d.ID, d.Name)
	for z, instances := range d.Zones {
		out.Zones[z] = cloneInstances(instances)
	}
	return out
}

// Validate reports unknown zones, non-positive counts, invalid finishes and
// duplicate identity keys within a zone.
func (d Deck) Validate() error {
	var errs []error
	for z, instances := range d.Zones {
		if !z.Valid() {
			errs = append(errs, fmt.Errorf("unknown zone %q", z))
		}
		seen := make(map[string]bool, len(instances))
		for _, c := range instances {
			if c.Count < 1 {
				errs = append(errs, fmt.Errorf("zone %s: %q has count %d", z, c.Name, c.Count))
			}
			if !c.Finish.Valid() {
				errs = append(errs, fmt.Errorf("zone %s: %q has invalid finish %q", z, c.Name, c.Finish))
			}
			key := IdentityKey(c)
			if seen[key] {
				errs = append(errs, fmt.Errorf("zone %s: duplicate identity key %s", z, key))
			}
			seen[key] = true
		}
	}
	return errors.Join(errs...)
}
