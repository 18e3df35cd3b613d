package location

import (
	"testing"
	"time"

	"github.com/beaconloc/presence/internal/scan"
)

func sightings(names ...string) scan.Snapshot {
	snap := make(scan.Snapshot, len(names))
	for i, n := range names {
		snap[i] = scan.Sighting{
			Address:     string(rune('a'+i)) + ":00",
			DisplayName: n,
			FirstSeenAt: time.Unix(int64(i), 0),
		}
	}
	return snap
}

func TestResolve(t *testing.T) {
	table := NewTable(map[string]Label{
		"BeaconA": {Room: "Room 1", Floor: 1},
		"BeaconB": {Room: "Room 2", Floor: 1},
		"BeaconC": {Room: "301", Floor: 3},
	})

	tests := []struct {
		name string
		snap scan.Snapshot
		want Label
	}{
		{
			name: "known then unknown name",
			snap: scan.Snapshot{
				{Address: "aa:bb", DisplayName: "BeaconA"},
				{Address: "cc:dd", DisplayName: "Unknown"},
			},
			want: Label{Room: "Room 1", Floor: 1},
		},
		{
			name: "unknown names skipped",
			snap: sightings("Headphones", "Watch", "BeaconC"),
			want: Label{Room: "301", Floor: 3},
		},
		{
			name: "first known wins",
			snap: sightings("BeaconB", "BeaconA"),
			want: Label{Room: "Room 2", Floor: 1},
		},
		{
			name: "empty snapshot",
			snap: nil,
			want: Unknown,
		},
		{
			name: "nothing known",
			snap: sightings("Headphones", ""),
			want: Unknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.snap, table)
			if got != tt.want {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
			// Same input, same answer.
			if again := Resolve(tt.snap, table); again != got {
				t.Errorf("Resolve() not deterministic: %v then %v", got, again)
			}
		})
	}
}

func TestResolveNilTable(t *testing.T) {
	if got := Resolve(sightings("BeaconA"), nil); got != Unknown {
		t.Errorf("Resolve(nil table) = %v, want Unknown", got)
	}
}

func TestTableIsImmutable(t *testing.T) {
	src := map[string]Label{"BeaconA": {Room: "Room 1", Floor: 1}}
	table := NewTable(src)

	src["BeaconA"] = Label{Room: "Room 9", Floor: 9}
	src["BeaconZ"] = Label{Room: "Room 8", Floor: 8}

	if l, _ := table.Lookup("BeaconA"); l.Room != "Room 1" {
		t.Errorf("Lookup(BeaconA) = %v after source mutation", l)
	}
	if table.Len() != 1 {
		t.Errorf("Len() = %d, want 1", table.Len())
	}
}

func TestUnknownLabel(t *testing.T) {
	if !Unknown.IsUnknown() || Unknown.Floor != -1 || Unknown.Room != "Unknown" {
		t.Errorf("Unknown = %+v", Unknown)
	}
	if (Label{Room: "Room 1", Floor: 1}).IsUnknown() {
		t.Error("Room 1 reported as unknown")
	}
}
