// Package records normalizes card records of any historical shape into deck
// card instances.
//
// Records come from Scryfall payloads, older saved decks and import files,
// and each of them keeps printing identifiers, finishes and prices under
// different keys. Only the locations listed here are read; in particular a
// price is never taken from an unrelated field.
package records

import (
	"errors"
	"fmt"
	"strings"

	"github.com/buger/jsonparser"
	"go.uber.org/zap"

	"github.com/ramonehamilton/deckforge/internal/deck"
)

// ErrMissingName is returned for a record without a card name.
var ErrMissingName = errors.New("record has no card name")

var (
	scryfallIDPaths = [][]string{
		{"printing", "scryfallId"},
		{"printing", "scryfall_id"},
		{"scryfallId"},
		{"scryfall_id"},
		{"id"},
	}
	setCodePaths = [][]string{
		{"printing", "setCode"},
		{"printing", "set_code"},
		{"setCode"},
		{"set_code"},
		{"set"},
	}
	collectorNumberPaths = [][]string{
		{"printing", "collectorNumber"},
		{"printing", "collector_number"},
		{"collectorNumber"},
		{"collector_number"},
		{"number"},
	}
	countPaths = [][]string{
		{"count"},
		{"quantity"},
		{"qty"},
	}
	overridePaths = [][]string{
		{"priceOverride"},
		{"price_override"},
		{"price", "override"},
	}
	finishesPaths = [][]string{
		{"finishes"},
		{"price", "finishes"},
	}
)

// Normalize decodes one raw record. Missing printing data yields the unknown
// printing and missing prices stay absent; only a missing name or malformed
// JSON is an error.
func Normalize(data []byte) (deck.CardInstance, error) {
	name, err := jsonparser.GetString(data, "name")
	if err != nil && !errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return deck.CardInstance{}, fmt.Errorf("failed to read card name: %w", err)
	}
	if strings.TrimSpace(name) == "" {
		return deck.CardInstance{}, ErrMissingName
	}

	finish, err := readFinish(data)
	if err != nil {
		return deck.CardInstance{}, fmt.Errorf("failed to read finish of %q: %w", name, err)
	}

	price, err := readPrices(data)
	if err != nil {
		return deck.CardInstance{}, fmt.Errorf("failed to read prices of %q: %w", name, err)
	}

	return deck.CardInstance{
		Name: name,
		Printing: deck.PrintingRef{
			ScryfallID:      firstString(data, scryfallIDPaths, false),
			SetCode:         firstString(data, setCodePaths, false),
			CollectorNumber: firstString(data, collectorNumberPaths, true),
		},
		Finish: finish,
		Count:  readCount(data),
		Price:  price,
	}, nil
}

// RecordError reports a record NormalizeList skipped.
type RecordError struct {
	Index int // Position in the array
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index+1, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// ErrNotObject is reported for array items that are not JSON objects.
var ErrNotObject = errors.New("record is not an object")

// NormalizeList decodes a JSON array of records. Records that fail to
// normalize are skipped and returned as RecordErrors; the rest are returned
// in order. Only an unreadable array fails the whole list.
func NormalizeList(data []byte) ([]deck.CardInstance, []*RecordError, error) {
	out := []deck.CardInstance{}
	var skipped []*RecordError
	var itemErr error
	index := 0

	_, err := jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, err error) {
		i := index
		index++
		if err != nil {
			itemErr = err
			return
		}
		if dataType != jsonparser.Object {
			skipped = append(skipped, &RecordError{Index: i, Err: ErrNotObject})
			return
		}
		c, err := Normalize(value)
		if err != nil {
			zap.L().Debug("skipping card record", zap.Int("index", i), zap.Error(err))
			skipped = append(skipped, &RecordError{Index: i, Err: err})
			return
		}
		out = append(out, c)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read record list: %w", err)
	}
	if itemErr != nil {
		return nil, nil, fmt.Errorf("failed to read record list: %w", itemErr)
	}
	return out, skipped, nil
}

// firstString returns the first non-empty string among paths. Numeric
// values are accepted only when numeric is set; numeric ids in old records
// are Arena ids, not Scryfall ids.
func firstString(data []byte, paths [][]string, numeric bool) string {
	for _, path := range paths {
		v, t, _, err := jsonparser.Get(data, path...)
		if err != nil {
			continue
		}
		if t == jsonparser.String || (numeric && t == jsonparser.Number) {
			if s := strings.TrimSpace(string(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

func readCount(data []byte) int {
	for _, path := range countPaths {
		if n, err := jsonparser.GetInt(data, path...); err == nil {
			return int(n)
		}
	}
	return 1
}

// readFinish takes an explicit "finish" first, then the etched and foil
// flags. Absent finish data means normal.
func readFinish(data []byte) (deck.Finish, error) {
	if s, err := jsonparser.GetString(data, "finish"); err == nil {
		return deck.ParseFinish(s)
	}
	if etched, err := jsonparser.GetBoolean(data, "etched"); err == nil && etched {
		return deck.FinishEtched, nil
	}
	if foil, err := jsonparser.GetBoolean(data, "foil"); err == nil && foil {
		return deck.FinishFoil, nil
	}
	return deck.FinishNormal, nil
}

func readPrices(data []byte) (deck.PriceRecord, error) {
	var rec deck.PriceRecord
	var err error

	fields := []struct {
		dst   **deck.Price
		paths [][]string
	}{
		{&rec.Normal, [][]string{{"prices", "usd"}, {"price", "normal"}}},
		{&rec.Foil, [][]string{{"prices", "usd_foil"}, {"price", "foil"}}},
		{&rec.Etched, [][]string{{"prices", "usd_etched"}, {"price", "etched"}}},
		{&rec.Override, overridePaths},
	}
	for _, f := range fields {
		*f.dst = firstPrice(data, f.paths)
	}

	rec.Finishes, err = readFinishes(data)
	if err != nil {
		return deck.PriceRecord{}, err
	}
	return rec, nil
}

// firstPrice returns the first present, non-null price among paths. Prices
// may be encoded as strings or numbers. A malformed price is absent.
func firstPrice(data []byte, paths [][]string) *deck.Price {
	for _, path := range paths {
		v, t, _, err := jsonparser.Get(data, path...)
		if err != nil || t == jsonparser.Null {
			continue
		}
		if t == jsonparser.String && strings.TrimSpace(string(v)) == "" {
			continue
		}
		if t != jsonparser.String && t != jsonparser.Number {
			zap.L().Debug("ignoring non-scalar price", zap.String("path", strings.Join(path, ".")), zap.Stringer("type", t))
			continue
		}
		p, err := deck.ParsePrice(string(v))
		if err != nil {
			zap.L().Debug("ignoring malformed price", zap.String("path", strings.Join(path, ".")), zap.ByteString("value", v), zap.Error(err))
			continue
		}
		return p.Ptr()
	}
	return nil
}

// readFinishes reads the first finishes list present among finishesPaths.
func readFinishes(data []byte) ([]deck.Finish, error) {
	for _, path := range finishesPaths {
		var finishes []deck.Finish
		var parseErr error

		_, err := jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
			if dataType != jsonparser.String || parseErr != nil {
				return
			}
			f, err := deck.ParseFinish(string(value))
			if err != nil {
				parseErr = err
				return
			}
			finishes = append(finishes, f)
		}, path...)
		if errors.Is(err, jsonparser.KeyPathNotFoundError) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read finishes: %w", err)
		}
		if parseErr != nil {
			return nil, parseErr
		}
		return finishes, nil
	}
	return nil, nil
}
