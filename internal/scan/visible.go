package scan

import "time"

// Sighting is the first detection of an address within one cycle.
type Sighting struct {
	Address     string
	DisplayName string
	FirstSeenAt time.Time
}

// Snapshot is an immutable, insertion-ordered copy of a cycle's sightings.
type Snapshot []Sighting

// Names returns the display names in insertion order.
func (s Snapshot) Names() []string {
	names := make([]string, len(s))
	for i, sg := range s {
		names[i] = sg.DisplayName
	}
	return names
}

// VisibleSet holds the sightings of the current cycle keyed by address,
// preserving first-detection order. It is not safe for concurrent use; the
// controller's loop goroutine is its only owner.
type VisibleSet struct {
	order  []string
	byAddr map[string]Sighting
}

// NewVisibleSet returns an empty set.
func NewVisibleSet() *VisibleSet {
	return &VisibleSet{byAddr: make(map[string]Sighting)}
}

// Upsert adds s unless its address is already present. The first sighting
// of an address wins for the whole cycle. Reports whether s was added.
func (v *VisibleSet) Upsert(s Sighting) bool {
	if _, seen := v.byAddr[s.Address]; seen {
		return false
	}
	v.byAddr[s.Address] = s
	v.order = append(v.order, s.Address)
	return true
}

// Get returns the sighting for address.
func (v *VisibleSet) Get(address string) (Sighting, bool) {
	s, ok := v.byAddr[address]
	return s, ok
}

// Len returns the number of distinct addresses.
func (v *VisibleSet) Len() int {
	return len(v.order)
}

// Clear empties the set.
func (v *VisibleSet) Clear() {
	clear(v.byAddr)
	v.order = v.order[:0]
}

// Snapshot copies the set in insertion order.
func (v *VisibleSet) Snapshot() Snapshot {
	out := make(Snapshot, len(v.order))
	for i, addr := range v.order {
		out[i] = v.byAddr[addr]
	}
	return out
}
