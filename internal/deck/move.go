package deck

// SkipReason says why a requested key was not moved.
type SkipReason string

const (
	SkipNotFound        SkipReason = "not-found"
	SkipInvalidQuantity SkipReason = "invalid-quantity"
	SkipSameZone        SkipReason = "same-zone"
	SkipInvalidZone     SkipReason = "invalid-zone"
)

// MoveRequest asks for instances to be transferred between two zones.
type MoveRequest struct {
	Keys []string `json:"keys"`
	From Zone     `json:"from"`
	To   Zone     `json:"to"`

	// Quantities caps how many copies move per key. A nil map, or a key
	// missing from the map, moves the whole stack.
	Quantities map[string]int `json:"quantities,omitempty"`
}

// Moved records one successful transfer.
type Moved struct {
	Key       string `json:"key"`
	Count     int    `json:"count"`
	Remaining int    `json:"remaining"` // copies left behind in the source zone
}

// Skip records a key that was not moved.
type Skip struct {
	Key    string     `json:"key"`
	Reason SkipReason `json:"reason"`
}

// MoveReport lists the outcome of every distinct requested key.
type MoveReport struct {
	Moved   []Moved `json:"moved"`
	Skipped []Skip  `json:"skipped"`
}

// MoveInstances returns a copy of d with the requested stacks moved from
// req.From to req.To. A full move removes the source stack; a partial move
// splits it, and the split-off copies keep the source printing, finish and
// price. Arriving copies merge with identity-equal stacks in the destination.
//
// Keys that cannot be moved are reported in the MoveReport and never abort
// the rest of the request. For every key, the count summed over both zones is
// the same before and after the move.
func MoveInstances(d Deck, req MoveRequest) (Deck, MoveReport) {
	out := d.Clone()
	report := MoveReport{Moved: []Moved{}, Skipped: []Skip{}}

	keys := uniqueCanonicalKeys(req.Keys)

	if !req.From.Valid() || !req.To.Valid() {
		for _, key := range keys {
			report.Skipped = append(report.Skipped, Skip{Key: key, Reason: SkipInvalidZone})
		}
		return out, report
	}
	if req.From == req.To {
		for _, key := range keys {
			report.Skipped = append(report.Skipped, Skip{Key: key, Reason: SkipSameZone})
		}
		return out, report
	}

	quantities := make(map[string]int, len(req.Quantities))
	for k, q := range req.Quantities {
		quantities[CanonicalKey(k)] = q
	}

	src := Consolidate(out.Zones[req.From])
	var incoming []CardInstance

	for _, key := range keys {
		i := indexOfKey(src, key)
		if i < 0 {
			report.Skipped = append(report.Skipped, Skip{Key: key, Reason: SkipNotFound})
			continue
		}

		available := src[i].Count
		qty := available
		if q, ok := quantities[key]; ok {
			qty = q
		}
		if qty < 1 || qty > available {
			report.Skipped = append(report.Skipped, Skip{Key: key, Reason: SkipInvalidQuantity})
			continue
		}

		split := src[i].Clone()
		split.Count = qty
		if qty == available {
			src = append(src[:i], src[i+1:]...)
		} else {
			src[i].Count -= qty
		}

		incoming = append(incoming, split)
		report.Moved = append(report.Moved, Moved{Key: key, Count: qty, Remaining: available - qty})
	}

	out.Zones[req.From] = src
	out.Zones[req.To] = Consolidate(append(out.Zones[req.To], incoming...))

	return out, report
}

func uniqueCanonicalKeys(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		key := CanonicalKey(k)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}

func indexOfKey(instances []CardInstance, key string) int {
	for i, c := range instances {
		if IdentityKey(c) == key {
			return i
		}
	}
	return -1
}
