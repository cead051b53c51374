package metric

import "sort"

// Set maps identities to their aggregates.
type Set map[Identity]*Aggregate

// Single builds a one-entry set holding a single observation.
func Single(typ, name string, value float64) Set {
	return Set{NewIdentity(typ, name, ""): NewAggregate(value)}
}

// Combine merges agg into the entry for id, creating it when missing.
func (s Set) Combine(id Identity, agg Aggregate) {
	existing, ok := s[id]
	if !ok {
		existing = &Aggregate{}
		s[id] = existing
	}
	existing.Merge(agg)
}

// Clone deep-copies the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for id, agg := range s {
		cp := *agg
		out[id] = &cp
	}
	return out
}

// Identities returns the keys in deterministic order.
func (s Set) Identities() []Identity {
	ids := make([]Identity, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}
