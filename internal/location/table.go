package location

import "github.com/beaconloc/presence/internal/scan"

// Table maps beacon display names to labels. It is immutable once built.
type Table struct {
	entries map[string]Label
}

// NewTable copies entries into a new Table.
func NewTable(entries map[string]Label) *Table {
	t := &Table{entries: make(map[string]Label, len(entries))}
	for name, label := range entries {
		t.entries[name] = label
	}
	return t
}

// Lookup returns the label for a display name.
func (t *Table) Lookup(name string) (Label, bool) {
	if t == nil {
		return Label{}, false
	}
	l, ok := t.entries[name]
	return l, ok
}

// Len returns the number of beacon names.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Resolve returns the label of the first sighting, in insertion order, whose
// display name is in the table. An empty snapshot or one with no known names
// resolves to Unknown.
func Resolve(snapshot scan.Snapshot, table *Table) Label {
	for _, s := range snapshot {
		if l, ok := table.Lookup(s.DisplayName); ok {
			return l
		}
	}
	return Unknown
}
