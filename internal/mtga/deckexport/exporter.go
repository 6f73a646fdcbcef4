package deckexport

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ramonehamilton/deckforge/internal/deck"
	"github.com/ramonehamilton/deckforge/internal/deck/pricing"
)

// ExportFormat represents the format to export the deck in.
type ExportFormat string

const (
	FormatArena     ExportFormat = "arena"     // Arena format with printings and finish markers
	FormatPlainText ExportFormat = "plaintext" // Simple text list (4x Card Name)
	FormatMTGO      ExportFormat = "mtgo"      // MTGO format
	FormatJSON      ExportFormat = "json"      // Full deck document
	FormatYAML      ExportFormat = "yaml"      // Full deck document
)

// ParseFormat converts a format name into an ExportFormat.
func ParseFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatArena, FormatPlainText, FormatMTGO, FormatJSON, FormatYAML:
		return f, nil
	case "", "txt":
		return FormatArena, nil
	case "text":
		return FormatPlainText, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", s)
	}
}

// ExportOptions controls deck export behavior.
type ExportOptions struct {
	Format         ExportFormat
	IncludeHeaders bool // Include section headers (Deck, Sideboard, etc.)
	IncludeTech    bool // Include the tech ideas zone in text formats
}

// DeckExport represents an exported deck.
type DeckExport struct {
	Content     string       // The exported deck text
	Format      ExportFormat // The format used
	Filename    string       // Suggested filename for download
	ContentType string
}

// Exporter handles deck export to various formats.
type Exporter struct {
	prices *pricing.Resolver
}

// NewExporter creates a new deck exporter. Structured formats carry prices
// resolved by prices; nil uses the default resolver.
func NewExporter(prices *pricing.Resolver) *Exporter {
	if prices == nil {
		prices = pricing.NewResolver(pricing.DefaultBasicLandPrice)
	}
	return &Exporter{
		prices: prices,
	}
}

// Export exports a deck to the specified format.
func (e *Exporter) Export(d deck.Deck, options *ExportOptions) (*DeckExport, error) {
	if options == nil {
		options = &ExportOptions{
			Format:         FormatArena,
			IncludeHeaders: true,
		}
	}

	var content, ext, contentType string

	switch options.Format {
	case FormatArena:
		content, ext, contentType = e.exportArena(d, options), "txt", "text/plain"
	case FormatPlainText:
		content, ext, contentType = e.exportPlainText(d, options), "txt", "text/plain"
	case FormatMTGO:
		content, ext, contentType = e.exportMTGO(d), "dek", "text/plain"
	case FormatJSON:
		b, err := json.MarshalIndent(e.Document(d), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode deck as JSON: %w", err)
		}
		content, ext, contentType = string(b)+"\n", "json", "application/json"
	case FormatYAML:
		b, err := yaml.Marshal(e.Document(d))
		if err != nil {
			return nil, fmt.Errorf("failed to encode deck as YAML: %w", err)
		}
		content, ext, contentType = string(b), "yaml", "application/yaml"
	default:
		return nil, fmt.Errorf("unsupported export format: %s", options.Format)
	}

	return &DeckExport{
		Content:     content,
		Format:      options.Format,
		Filename:    fmt.Sprintf("%s.%s", sanitizeFilename(d.Name), ext),
		ContentType: contentType,
	}, nil
}

// exportArena exports deck in Arena format.
// Format: "4 Lightning Bolt (M21) 123 *F*"
func (e *Exporter) exportArena(d deck.Deck, options *ExportOptions) string {
	var sb strings.Builder

	if options.IncludeHeaders {
		sb.WriteString("Deck\n")
	}
	writeLines(&sb, d.Zone(deck.ZoneMain), arenaLine)

	if side := d.Zone(deck.ZoneSideboard); len(side) > 0 {
		sb.WriteString("\n") // Empty line before sideboard
		if options.IncludeHeaders {
			sb.WriteString("Sideboard\n")
		}
		writeLines(&sb, side, arenaLine)
	}

	if tech := d.Zone(deck.ZoneTechIdeas); options.IncludeTech && len(tech) > 0 {
		sb.WriteString("\nTech Ideas\n")
		writeLines(&sb, tech, arenaLine)
	}

	return sb.String()
}

// exportPlainText exports deck in simple plain text format.
// Format: "4x Card Name"
func (e *Exporter) exportPlainText(d deck.Deck, options *ExportOptions) string {
	var sb strings.Builder

	// Add deck name as comment
	if options.IncludeHeaders {
		sb.WriteString(fmt.Sprintf("// %s\n\n", d.Name))
		sb.WriteString("Mainboard:\n")
	}

	writeLines(&sb, d.Zone(deck.ZoneMain), plainLine)

	if side := d.Zone(deck.ZoneSideboard); len(side) > 0 {
		sb.WriteString("\n")
		if options.IncludeHeaders {
			sb.WriteString("Sideboard:\n")
		}
		writeLines(&sb, side, plainLine)
	}

	if tech := d.Zone(deck.ZoneTechIdeas); options.IncludeTech && len(tech) > 0 {
		sb.WriteString("\nTech Ideas:\n")
		writeLines(&sb, tech, plainLine)
	}

	return sb.String()
}

// exportMTGO exports deck in MTGO format.
// MTGO uses quantity on the left, no 'x', and sideboard is marked with "SB:" prefix
func (e *Exporter) exportMTGO(d deck.Deck) string {
	var sb strings.Builder

	for _, c := range mergeByName(d.Zone(deck.ZoneMain)) {
		sb.WriteString(fmt.Sprintf("%d %s\n", c.Count, c.Name))
	}

	if side := mergeByName(d.Zone(deck.ZoneSideboard)); len(side) > 0 {
		sb.WriteString("\n")
		for _, c := range side {
			sb.WriteString(fmt.Sprintf("SB: %d %s\n", c.Count, c.Name))
		}
	}

	return sb.String()
}

func writeLines(sb *strings.Builder, instances []deck.CardInstance, format func(deck.CardInstance) string) {
	for _, c := range instances {
		sb.WriteString(format(c))
		sb.WriteString("\n")
	}
}

func arenaLine(c deck.CardInstance) string {
	line := fmt.Sprintf("%d %s", c.Count, c.Name)
	if c.Printing.SetCode != "" && c.Printing.CollectorNumber != "" {
		line += fmt.Sprintf(" (%s) %s", strings.ToUpper(c.Printing.SetCode), c.Printing.CollectorNumber)
	}
	switch c.Finish {
	case deck.FinishFoil:
		line += " *F*"
	case deck.FinishEtched:
		line += " *E*"
	}
	return line
}

func plainLine(c deck.CardInstance) string {
	return fmt.Sprintf("%dx %s", c.Count, c.Name)
}

// mergeByName sums counts per card name for formats with no printing or
// finish column, keeping first-seen order.
func mergeByName(instances []deck.CardInstance) []deck.CardInstance {
	out := make([]deck.CardInstance, 0, len(instances))
	index := make(map[string]int)
	for _, c := range instances {
		name := deck.NormalizeName(c.Name)
		if i, ok := index[name]; ok {
			out[i].Count += c.Count
			continue
		}
		index[name] = len(out)
		out = append(out, c)
	}
	return out
}

// sanitizeFilename removes invalid characters from filename.
func sanitizeFilename(name string) string {
	// Replace invalid filename characters with underscore
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := name
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}
	// Trim spaces and limit length
	result = strings.TrimSpace(result)
	if len(result) > 100 {
		result = result[:100]
	}
	if result == "" {
		result = "deck"
	}
	return result
}
