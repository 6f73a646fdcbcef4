package editor

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/ramonehamilton/deckforge/internal/deck"
	"github.com/ramonehamilton/deckforge/internal/deck/pricing"
	"github.com/ramonehamilton/deckforge/internal/deck/printing"
	"github.com/ramonehamilton/deckforge/internal/events"
	"github.com/ramonehamilton/deckforge/internal/mtga/deckexport"
	"github.com/ramonehamilton/deckforge/internal/mtga/deckimport"
)

// Import formats.
const (
	ImportAuto  = "auto"
	ImportArena = "arena"
	ImportText  = "text"
	ImportJSON  = "json"
	ImportYAML  = "yaml"
)

// ImportRequest describes a deck import.
type ImportRequest struct {
	DeckID  string `json:"deckId,omitempty"` // Empty creates a new deck
	Name    string `json:"name,omitempty"`
	Format  string `json:"format,omitempty"` // auto, arena, text, json or yaml
	Content string `json:"content"`

	// Replace discards the target deck's cards instead of adding to them.
	Replace bool `json:"replace,omitempty"`
}

// ImportResult reports the outcome of an import.
type ImportResult struct {
	Deck     deck.Deck `json:"deck"`
	Format   string    `json:"format"`
	Created  bool      `json:"created"`
	Errors   []string  `json:"errors,omitempty"`   // Lines or records that could not be read
	Warnings []string  `json:"warnings,omitempty"` // Lines read with assumptions
}

// Import parses req.Content, resolves the printing of every card and stores
// the result, either as a new deck or into an existing one.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	result := &ImportResult{Created: req.DeckID == ""}
	id := req.DeckID
	if id == "" {
		id = uuid.New().String()
	}

	parsed, err := s.parseImport(req, id, result)
	if err != nil {
		return nil, err
	}

	parsed, err = s.resolveDeck(ctx, parsed)
	if err != nil {
		return nil, err
	}

	if result.Created {
		if parsed.Name == "" {
			parsed.Name = "Imported Deck"
		}
		d, err := s.saveNew(ctx, parsed)
		if err != nil {
			return nil, err
		}
		result.Deck = d
	} else {
		d, err := s.edit(ctx, id, func(current deck.Deck) (deck.Deck, error) {
			out := current.Clone()
			if req.Name != "" {
				out.Name = req.Name
			}
			if req.Replace {
				out.Zones = parsed.Clone().Zones
				return out, nil
			}
			for _, z := range deck.Zones() {
				for _, c := range parsed.Zone(z) {
					out = deck.AddInstance(out, z, c)
				}
			}
			return out, nil
		})
		if err != nil {
			return nil, err
		}
		result.Deck = d
	}

	s.publish(events.TypeDeckImported, result.Deck.ID, deckSaved(result.Deck))
	return result, nil
}

func (s *Service) parseImport(req ImportRequest, id string, result *ImportResult) (deck.Deck, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return deck.Deck{}, fmt.Errorf("%w: import content is empty", ErrInvalidInput)
	}

	format := strings.ToLower(req.Format)
	if format == "" || format == ImportAuto {
		switch content[0] {
		case '{', '[':
			format = ImportJSON
		default:
			format = ImportAuto
		}
	}
	result.Format = format

	var (
		d   deck.Deck
		err error
	)
	switch format {
	case ImportJSON:
		d, result.Errors, err = deckimport.ParseJSON([]byte(content), id)
	case ImportYAML, "yml":
		result.Format = ImportYAML
		d, result.Errors, err = deckimport.ParseYAML([]byte(content), id)
	case ImportAuto, ImportArena, ImportText, "plaintext":
		parser := deckimport.NewParser()
		var parsed *deckimport.ParsedDeck
		switch format {
		case ImportArena:
			parsed = parser.ParseArenaFormat(content)
		case ImportAuto:
			parsed, err = parser.Parse(content)
		default:
			result.Format = ImportText
			parsed = parser.ParsePlainText(content)
		}
		if err != nil {
			break
		}
		if !parsed.ParsedOK {
			err = fmt.Errorf("no cards found: %s", strings.Join(parsed.Errors, "; "))
			break
		}
		if format == ImportAuto {
			result.Format = parsed.Format
		}
		result.Errors = parsed.Errors
		result.Warnings = parsed.Warnings
		d = parsed.Deck(id, "")
	default:
		return deck.Deck{}, fmt.Errorf("%w: unsupported import format %q", ErrInvalidInput, req.Format)
	}
	if err != nil {
		return deck.Deck{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if stackCount(d) == 0 && len(result.Errors) > 0 {
		return deck.Deck{}, fmt.Errorf("%w: no cards found: %s", ErrInvalidInput, strings.Join(result.Errors, "; "))
	}

	if req.Name != "" {
		d.Name = req.Name
	}
	return d, nil
}

// resolveDeck resolves every instance of d in one fetch and consolidates the
// zones afterwards, since resolution can make stacks identity-equal.
func (s *Service) resolveDeck(ctx context.Context, d deck.Deck) (deck.Deck, error) {
	var all []deck.CardInstance
	for _, z := range deck.Zones() {
		all = append(all, d.Zone(z)...)
	}

	results, err := s.resolveInstances(ctx, all)
	if err != nil {
		return deck.Deck{}, err
	}

	out := deck.NewDeck(d.ID, d.Name)
	i := 0
	for _, z := range deck.Zones() {
		instances := make([]deck.CardInstance, 0, len(d.Zone(z)))
		for range d.Zone(z) {
			instances = append(instances, results[i].Instance)
			i++
		}
		out.Zones[z] = deck.Consolidate(instances)
	}
	return out, nil
}

func (s *Service) saveNew(ctx context.Context, d deck.Deck) (deck.Deck, error) {
	unlock := s.lockDeck(d.ID)
	defer unlock()

	session, err := OpenSession(s.lockDir, d.ID)
	if err != nil {
		return deck.Deck{}, err
	}
	defer s.closeSession(session)

	if err := d.Validate(); err != nil {
		return deck.Deck{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := s.store.SaveDeck(ctx, d); err != nil {
		return deck.Deck{}, fmt.Errorf("failed to save deck: %w", err)
	}
	return d, nil
}

// Export renders a stored deck.
func (s *Service) Export(ctx context.Context, id string, opts *deckexport.ExportOptions) (*deckexport.DeckExport, error) {
	d, err := s.GetDeck(ctx, id)
	if err != nil {
		return nil, err
	}

	out, err := deckexport.NewExporter(s.prices).Export(d, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return out, nil
}

// Document returns a stored deck with resolved prices and totals.
func (s *Service) Document(ctx context.Context, id string) (deckexport.Document, error) {
	d, err := s.GetDeck(ctx, id)
	if err != nil {
		return deckexport.Document{}, err
	}
	return deckexport.NewExporter(s.prices).Document(d), nil
}

// Preview is the resolved printing and price of one card.
type Preview struct {
	Instance    deck.CardInstance   `json:"instance"`
	Key         string              `json:"key"`
	Resolution  printing.Resolution `json:"resolution"`
	UnitPrice   *deck.Price         `json:"unitPrice,omitempty"`
	PriceSource pricing.Source      `json:"priceSource"`
}

// ResolvePrintings resolves instances without storing them. Requests on the
// same non-empty channel follow latest-request-wins: when a newer request
// starts before this one finishes, this one returns ErrStaleRequest.
func (s *Service) ResolvePrintings(ctx context.Context, channel string, instances []deck.CardInstance) ([]Preview, error) {
	var ticket *Ticket
	if channel != "" {
		t := s.sequences.next("resolve:" + channel)
		ticket = &t
	}

	instances = slices.Clone(instances)
	for i := range instances {
		if instances[i].Name == "" {
			return nil, fmt.Errorf("%w: card %d has no name", ErrInvalidInput, i)
		}
		if instances[i].Count == 0 {
			instances[i].Count = 1
		}
	}

	results, err := s.resolveInstances(ctx, instances)
	if err != nil {
		return nil, err
	}
	if ticket != nil {
		if err := ticket.Check(); err != nil {
			return nil, err
		}
	}

	out := make([]Preview, len(results))
	for i, r := range results {
		p := Preview{Instance: r.Instance, Key: r.Instance.Key(), Resolution: r.Resolution}
		price, source := s.prices.ResolveInstance(r.Instance)
		p.PriceSource = source
		if source != pricing.SourceNone {
			p.UnitPrice = price.Ptr()
		}
		out[i] = p
	}
	return out, nil
}
