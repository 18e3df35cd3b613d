package presence

import (
	"sort"
	"sync"
	"time"

	"github.com/beaconloc/presence/internal/location"
)

// Entry is a subject's latest known location.
type Entry struct {
	SubjectID   string         `json:"subject_id"`
	SubjectName string         `json:"subject_name,omitempty"`
	Label       location.Label `json:"label"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// State holds the latest Label per subject. The last Apply for a subject
// wins regardless of the report's own timestamp.
//
// State is safe for concurrent use.
type State struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewState returns an empty state.
func NewState() *State {
	return &State{entries: make(map[string]Entry)}
}

// Apply records label for subjectID and returns the previous entry, if any.
func (s *State) Apply(subjectID, subjectName string, label location.Label, at time.Time) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.entries[subjectID]
	s.entries[subjectID] = Entry{
		SubjectID:   subjectID,
		SubjectName: subjectName,
		Label:       label,
		UpdatedAt:   at,
	}
	return prev, had
}

// Get returns the entry for subjectID.
func (s *State) Get(subjectID string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[subjectID]
	return e, ok
}

// Len returns the number of subjects.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Entries returns every entry sorted by subject id.
func (s *State) Entries() []Entry {
	s.mu.RLock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].SubjectID < out[j].SubjectID })
	return out
}
