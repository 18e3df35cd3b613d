package presence

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/beaconloc/presence/internal/location"
)

// Status values carried in the ingestion payload.
const (
	StatusAvailable   = "Available"
	StatusUnavailable = "Unavailable"
)

// Report is one cycle's location for a subject.
type Report struct {
	SubjectID   string
	SubjectName string
	Room        string
	Floor       int
	Available   bool
	EmittedAt   time.Time
}

// Label returns the report's location.
func (r Report) Label() location.Label {
	return location.Label{Room: r.Room, Floor: r.Floor}
}

// Status returns the wire status string.
func (r Report) Status() string {
	if r.Available {
		return StatusAvailable
	}
	return StatusUnavailable
}

// Payload converts r to its wire form.
func (r Report) Payload() IngestPayload {
	floor := r.Floor
	return IngestPayload{
		UniqueID: r.SubjectID,
		UserName: r.SubjectName,
		Room:     r.Room,
		Floor:    &floor,
		Status:   r.Status(),
	}
}

// IngestPayload is the JSON body accepted by the relay hub and pushed to
// viewers. Floor is a pointer so a missing floor is distinguishable from 0.
type IngestPayload struct {
	UniqueID string `json:"uniqueID"`
	UserName string `json:"userName"`
	Room     string `json:"room"`
	Floor    *int   `json:"floor"`
	Status   string `json:"status"`
}

// Validate checks required fields and normalises the status spelling.
func (p *IngestPayload) Validate() error {
	var missing []string
	if strings.TrimSpace(p.UniqueID) == "" {
		missing = append(missing, "uniqueID")
	}
	if p.UserName == "" {
		missing = append(missing, "userName")
	}
	if strings.TrimSpace(p.Room) == "" {
		missing = append(missing, "room")
	}
	if p.Floor == nil {
		missing = append(missing, "floor")
	}
	if p.Status == "" {
		missing = append(missing, "status")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidReport, strings.Join(missing, ", "))
	}

	switch {
	case strings.EqualFold(p.Status, StatusAvailable):
		p.Status = StatusAvailable
	case strings.EqualFold(p.Status, StatusUnavailable):
		p.Status = StatusUnavailable
	default:
		return fmt.Errorf("%w: status %q", ErrInvalidReport, p.Status)
	}
	return nil
}

// Report converts a validated payload, stamping it with at.
func (p IngestPayload) Report(at time.Time) Report {
	r := Report{
		SubjectID:   p.UniqueID,
		SubjectName: p.UserName,
		Room:        p.Room,
		Available:   p.Status == StatusAvailable,
		EmittedAt:   at,
	}
	if p.Floor != nil {
		r.Floor = *p.Floor
	}
	return r
}

// Encode marshals a report to its wire JSON.
func Encode(r Report) ([]byte, error) {
	return json.Marshal(r.Payload())
}

// Decode parses and validates wire JSON.
func Decode(data []byte) (IngestPayload, error) {
	var p IngestPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return IngestPayload{}, fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}
	if err := p.Validate(); err != nil {
		return IngestPayload{}, err
	}
	return p, nil
}
