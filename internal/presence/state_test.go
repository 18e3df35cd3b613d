package presence

import (
	"sync"
	"testing"
	"time"

	"github.com/beaconloc/presence/internal/location"
)

func TestStateLastWriteWins(t *testing.T) {
	s := NewState()
	now := time.Now()

	s.Apply("u1", "Asha", location.Label{Room: "Room 1", Floor: 1}, now)
	// An older timestamp still wins: order of arrival decides.
	prev, had := s.Apply("u1", "Asha", location.Label{Room: "Room 4", Floor: 1}, now.Add(-time.Hour))

	if !had || prev.Label.Room != "Room 1" {
		t.Errorf("previous entry = %+v, %v", prev, had)
	}
	got, ok := s.Get("u1")
	if !ok || got.Label.Room != "Room 4" {
		t.Errorf("Get(u1) = %+v, want Room 4", got)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestStateEntriesSorted(t *testing.T) {
	s := NewState()
	for _, id := range []string{"u3", "u1", "u2"} {
		s.Apply(id, "", location.Label{Room: "Room 1", Floor: 1}, time.Now())
	}

	entries := s.Entries()
	for i, want := range []string{"u1", "u2", "u3"} {
		if entries[i].SubjectID != want {
			t.Errorf("Entries()[%d] = %s, want %s", i, entries[i].SubjectID, want)
		}
	}
}

func TestStateConcurrentApply(t *testing.T) {
	s := NewState()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Apply("u1", "", location.Label{Room: "Room 1", Floor: i}, time.Now())
			_ = s.Entries()
		}()
	}
	wg.Wait()

	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestAvailability(t *testing.T) {
	a := NewAvailability(false)
	if a.Available() || a.String() != StatusUnavailable {
		t.Fatalf("initial = %v %s", a.Available(), a)
	}
	if !a.Toggle() || !a.Available() || a.String() != StatusAvailable {
		t.Error("Toggle() did not switch on")
	}
	if a.Toggle() {
		t.Error("second Toggle() should switch off")
	}
	a.Set(true)
	if !a.Available() {
		t.Error("Set(true) ignored")
	}
}
