package deck

// AddInstance returns a copy of d with c added to zone z, merged into an
// identity-equal stack when one exists.
func AddInstance(d Deck, z Zone, c CardInstance) Deck {
	out := d.Clone()
	out.Zones[z] = Consolidate(append(out.Zones[z], c.Clone()))
	return out
}

// FindInstance looks up the stack with the given identity key in zone z.
func FindInstance(d Deck, z Zone, key string) (CardInstance, bool) {
	key = CanonicalKey(key)
	for _, c := range d.Zones[z] {
		if IdentityKey(c) == key {
			return c.Clone(), true
		}
	}
	return CardInstance{}, false
}

// RemoveCount takes n copies of the keyed stack out of zone z, removing the
// stack when none remain. It reports false when the key is absent or n is
// not between 1 and the stack's count.
func RemoveCount(d Deck, z Zone, key string, n int) (Deck, bool) {
	out := d.Clone()
	instances := out.Zones[z]
	i := indexOfKey(instances, CanonicalKey(key))
	if i < 0 || n < 1 || n > instances[i].Count {
		return out, false
	}

	if n == instances[i].Count {
		out.Zones[z] = append(instances[:i], instances[i+1:]...)
	} else {
		instances[i].Count -= n
	}
	return out, true
}

// ChangePrinting applies an explicit printing edit to the keyed stack in zone
// z. The price record is replaced since prices belong to a printing. The
// re-keyed stack merges with any identity-equal stack already in the zone.
func ChangePrinting(d Deck, z Zone, key string, p PrintingRef, price PriceRecord) (Deck, bool) {
	return edit(d, z, key, func(c *CardInstance) {
		c.Printing = p
		c.Price = price.Clone()
	})
}

// ChangeFinish applies an explicit finish edit to the keyed stack in zone z.
// The price record is kept since it covers every finish of the printing.
func ChangeFinish(d Deck, z Zone, key string, f Finish) (Deck, bool) {
	if !f.Valid() {
		return d.Clone(), false
	}
	return edit(d, z, key, func(c *CardInstance) {
		c.Finish = f
	})
}

func edit(d Deck, z Zone, key string, apply func(*CardInstance)) (Deck, bool) {
	out := d.Clone()
	instances := out.Zones[z]
	i := indexOfKey(instances, CanonicalKey(key))
	if i < 0 {
		return out, false
	}
	apply(&instances[i])
	out.Zones[z] = Consolidate(instances)
	return out, true
}

// TotalCount sums the copies with the given identity key across all zones.
func TotalCount(d Deck, key string) int {
	key = CanonicalKey(key)
	total := 0
	for _, instances := range d.Zones {
		for _, c := range instances {
			if IdentityKey(c) == key {
				total += c.Count
			}
		}
	}
	return total
}

// ZoneCount sums the copies held by zone z.
func ZoneCount(d Deck, z Zone) int {
	total := 0
	for _, c := range d.Zones[z] {
		total += c.Count
	}
	return total
}
