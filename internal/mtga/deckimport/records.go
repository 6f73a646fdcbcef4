package deckimport

import (
	"encoding/json"
	"fmt"

	"github.com/buger/jsonparser"
	"gopkg.in/yaml.v3"

	"github.com/ramonehamilton/deckforge/internal/deck"
	"github.com/ramonehamilton/deckforge/internal/mtga/cards/records"
)

// ParseJSON imports a structured deck. The input is either an array of card
// records, which all go to the main deck, or an object with an optional
// "name" and a "zones" object mapping zone names to record arrays. Records
// of any supported shape are accepted; exported documents import unchanged.
// Records that cannot be read are left out and described in skipped.
func ParseJSON(data []byte, id string) (deck.Deck, []string, error) {
	_, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return deck.Deck{}, nil, fmt.Errorf("failed to read deck document: %w", err)
	}

	var skipped []string

	switch dataType {
	case jsonparser.Array:
		instances, bad, err := records.NormalizeList(data)
		if err != nil {
			return deck.Deck{}, nil, err
		}
		for _, e := range bad {
			skipped = append(skipped, e.Error())
		}
		out := deck.NewDeck(id, "")
		out.Zones[deck.ZoneMain] = deck.Consolidate(instances)
		return out, skipped, nil

	case jsonparser.Object:
		name, _ := jsonparser.GetString(data, "name")
		out := deck.NewDeck(id, name)

		err := jsonparser.ObjectEach(data, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
			zone, err := deck.ParseZone(string(key))
			if err != nil {
				return err
			}
			if dataType == jsonparser.Null {
				return nil
			}
			instances, bad, err := records.NormalizeList(value)
			if err != nil {
				return fmt.Errorf("zone %s: %w", zone, err)
			}
			for _, e := range bad {
				skipped = append(skipped, fmt.Sprintf("%s %s", zone, e.Error()))
			}
			out.Zones[zone] = deck.Consolidate(append(out.Zones[zone], instances...))
			return nil
		}, "zones")
		if err != nil {
			return deck.Deck{}, nil, fmt.Errorf("failed to read deck zones: %w", err)
		}
		return out, skipped, nil

	default:
		return deck.Deck{}, nil, fmt.Errorf("deck document must be an array or object, got %s", dataType)
	}
}

// ParseYAML imports a structured deck written as YAML, with the same layout
// ParseJSON accepts.
func ParseYAML(data []byte, id string) (deck.Deck, []string, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return deck.Deck{}, nil, fmt.Errorf("failed to parse YAML deck: %w", err)
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return deck.Deck{}, nil, fmt.Errorf("failed to convert YAML deck: %w", err)
	}
	return ParseJSON(b, id)
}
