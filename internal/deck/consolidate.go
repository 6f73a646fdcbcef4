package deck

import (
	"go.uber.org/zap"
)

// Consolidate merges instances that share an identity key into one instance
// per key, summing counts. Output order follows the first arrival of each key,
// and the first instance of a group supplies name, printing and price; later
// instances with a different price are logged and their price discarded.
// Instances with a count below one are dropped.
//
// Consolidate is idempotent, and the summed counts do not depend on input
// order. The input is never modified.
func Consolidate(instances []CardInstance) []CardInstance {
	out := make([]CardInstance, 0, len(instances))
	index := make(map[string]int, len(instances))

	for _, c := range instances {
		if c.Count < 1 {
			zap.L().Warn("dropping card instance with non-positive count",
				zap.String("name", c.Name),
				zap.Int("count", c.Count))
			continue
		}

		key := IdentityKey(c)
		if i, ok := index[key]; ok {
			if !out[i].Price.Equal(c.Price) {
				zap.L().Warn("identity-equal instances disagree on price, keeping first seen",
					zap.String("key", key))
			}
			out[i].Count += c.Count
			continue
		}

		index[key] = len(out)
		out = append(out, c.Clone())
	}

	return out
}

// ConsolidateDeck consolidates every zone of d independently. Instances in
// different zones are never merged.
func ConsolidateDeck(d Deck) Deck {
	out := NewDeck(d.ID, d.Name)
	for z, instances := range d.Zones {
		out.Zones[z] = Consolidate(instances)
	}
	return out
}
