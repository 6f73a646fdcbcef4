package deckimport

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ramonehamilton/deckforge/internal/deck"
)

// ParsedCard represents a single card line in a deck import.
type ParsedCard struct {
	Line            int
	Quantity        int
	Name            string
	SetCode         string // Optional, from "4 Lightning Bolt (M21) 123"
	CollectorNumber string // Optional, only with a set code
	Finish          deck.Finish
	Zone            deck.Zone
}

// Printing returns the printing named on the line, or the unknown printing.
func (c *ParsedCard) Printing() deck.PrintingRef {
	if c.SetCode == "" || c.CollectorNumber == "" {
		return deck.PrintingRef{}
	}
	return deck.PrintingRef{SetCode: strings.ToLower(c.SetCode), CollectorNumber: c.CollectorNumber}
}

// Instance converts the line into a deck card instance without prices.
func (c *ParsedCard) Instance() deck.CardInstance {
	return deck.CardInstance{
		Name:     c.Name,
		Printing: c.Printing(),
		Finish:   c.Finish,
		Count:    c.Quantity,
	}
}

// ParsedDeck represents a deck parsed from an import string.
type ParsedDeck struct {
	Name     string
	Format   string
	Cards    []*ParsedCard
	ParsedOK bool
	Errors   []string
	Warnings []string
}

// Zone returns the parsed cards of one zone in input order.
func (d *ParsedDeck) Zone(z deck.Zone) []*ParsedCard {
	var out []*ParsedCard
	for _, c := range d.Cards {
		if c.Zone == z {
			out = append(out, c)
		}
	}
	return out
}

// Deck builds a consolidated deck from the parsed cards. Repeated lines for
// the same card, printing and finish merge into one instance.
func (d *ParsedDeck) Deck(id, name string) deck.Deck {
	if name == "" {
		name = d.Name
	}
	out := deck.NewDeck(id, name)
	for _, c := range d.Cards {
		out = deck.AddInstance(out, c.Zone, c.Instance())
	}
	return out
}

// Parser handles deck import parsing from various formats.
type Parser struct {
	arena      *regexp.Regexp
	countFirst *regexp.Regexp
	countLast  *regexp.Regexp
}

// NewParser creates a new deck import parser.
func NewParser() *Parser {
	return &Parser{
		// "4 Lightning Bolt (M21) 123 *F*"; set, number and finish marker are optional.
		// Group 1: quantity, 2: name, 3: set code, 4: collector number, 5: finish marker
		arena: regexp.MustCompile(`^(\d+)\s+([^(*]+?)(?:\s+\(([A-Za-z0-9]+)\)(?:\s+([A-Za-z0-9-]+))?)?(?:\s+\*([FE])\*)?$`),
		// "4 Card Name" or "4x Card Name"
		countFirst: regexp.MustCompile(`^(\d+)x?\s+(.+)$`),
		// "Card Name x4"
		countLast: regexp.MustCompile(`^(.+?)\s+x(\d+)$`),
	}
}

// Parse attempts to parse deck import text from multiple formats.
// It tries Arena format first, then falls back to plain text.
func (p *Parser) Parse(input string) (*ParsedDeck, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty import string")
	}

	if result := p.ParseArenaFormat(input); result.ParsedOK && len(result.Warnings) == 0 {
		return result, nil
	}

	if result := p.ParsePlainText(input); result.ParsedOK {
		return result, nil
	}

	return nil, fmt.Errorf("unable to parse deck format")
}

// ParseArenaFormat parses Arena-style deck export text.
// Format example:
//
//	Deck
//	4 Lightning Bolt (M21) 123
//	1 Sol Ring (C21) 263 *F*
//
//	2 Duress (M21) 95
//
// The first empty line after the main deck starts the sideboard unless
// explicit zone headers are used.
func (p *Parser) ParseArenaFormat(input string) *ParsedDeck {
	result := newParsedDeck("arena")

	zone := deck.ZoneMain
	sawHeader := false
	sawBlank := false

	for i, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)

		if z, ok := zoneHeader(line); ok {
			zone = z
			sawHeader = true
			continue
		}
		if name, ok := strings.CutPrefix(line, "Name "); ok {
			result.Name = strings.TrimSpace(name)
			continue
		}

		// Empty line switches to sideboard
		if line == "" {
			if !sawHeader && !sawBlank && zone == deck.ZoneMain && len(result.Cards) > 0 {
				zone = deck.ZoneSideboard
				sawBlank = true
			}
			continue
		}

		matches := p.arena.FindStringSubmatch(line)
		if matches == nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Line %d: Could not parse '%s'", i+1, line))
			continue
		}

		quantity, err := strconv.Atoi(matches[1])
		if err != nil || quantity < 1 {
			result.Errors = append(result.Errors,
				fmt.Sprintf("Line %d: Invalid quantity '%s'", i+1, matches[1]))
			result.ParsedOK = false
			continue
		}

		finish := deck.FinishNormal
		switch matches[5] {
		case "F":
			finish = deck.FinishFoil
		case "E":
			finish = deck.FinishEtched
		}

		result.Cards = append(result.Cards, &ParsedCard{
			Line:            i + 1,
			Quantity:        quantity,
			Name:            strings.TrimSpace(matches[2]),
			SetCode:         matches[3],
			CollectorNumber: matches[4],
			Finish:          finish,
			Zone:            zone,
		})
	}

	result.finish()
	return result
}

// ParsePlainText parses simple text format card lists.
// Format examples:
//   - "4 Lightning Bolt"
//   - "4x Lightning Bolt"
//   - "Lightning Bolt x4"
//   - "SB: 2 Duress"
func (p *Parser) ParsePlainText(input string) *ParsedDeck {
	result := newParsedDeck("text")
	zone := deck.ZoneMain

	for i, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)

		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") {
			continue
		}

		if z, ok := zoneHeader(line); ok {
			zone = z
			continue
		}

		lineZone := zone
		if rest, ok := strings.CutPrefix(line, "SB:"); ok {
			lineZone = deck.ZoneSideboard
			line = strings.TrimSpace(rest)
		}

		var quantity int
		var cardName string
		var matched bool

		if matches := p.countFirst.FindStringSubmatch(line); matches != nil {
			if q, err := strconv.Atoi(matches[1]); err == nil {
				quantity = q
				cardName = strings.TrimSpace(matches[2])
				matched = true
			}
		}

		if !matched {
			if matches := p.countLast.FindStringSubmatch(line); matches != nil {
				if q, err := strconv.Atoi(matches[2]); err == nil {
					quantity = q
					cardName = strings.TrimSpace(matches[1])
					matched = true
				}
			}
		}

		if !matched {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Line %d: Could not parse '%s'", i+1, line))
			continue
		}
		if quantity < 1 {
			result.Errors = append(result.Errors,
				fmt.Sprintf("Line %d: Invalid quantity '%d'", i+1, quantity))
			result.ParsedOK = false
			continue
		}

		result.Cards = append(result.Cards, &ParsedCard{
			Line:     i + 1,
			Quantity: quantity,
			Name:     cardName,
			Finish:   deck.FinishNormal,
			Zone:     lineZone,
		})
	}

	result.finish()
	return result
}

func newParsedDeck(format string) *ParsedDeck {
	return &ParsedDeck{
		Format:   format,
		Cards:    make([]*ParsedCard, 0),
		ParsedOK: true,
		Errors:   make([]string, 0),
		Warnings: make([]string, 0),
	}
}

func (d *ParsedDeck) finish() {
	if len(d.Cards) == 0 {
		d.ParsedOK = false
		d.Errors = append(d.Errors, "No cards found in import")
	}
}

// zoneHeader recognizes section header lines such as "Sideboard" or
// "Tech Ideas:".
func zoneHeader(line string) (deck.Zone, bool) {
	h := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(line), ":"))
	switch h {
	case "deck", "main", "mainboard", "main deck", "commander", "companion":
		return deck.ZoneMain, true
	case "sideboard":
		return deck.ZoneSideboard, true
	case "tech ideas", "maybeboard", "considering":
		return deck.ZoneTechIdeas, true
	}
	return "", false
}
