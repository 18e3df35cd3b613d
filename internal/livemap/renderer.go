package livemap

import (
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/beaconloc/presence/internal/location"
	"github.com/beaconloc/presence/internal/presence"
)

// Drawing constants.
const (
	RoomFill     = "lightgray"
	MarkerFill   = "blue"
	MarkerRadius = 10

	// markerSpread separates markers of subjects sharing a room.
	markerSpread = 2*MarkerRadius + 4
)

// Logger is the logging interface used by the renderer and subscriber.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Renderer keeps the viewer's presence state and redraws the floor plan on
// every update.
//
// Thread Safety:
//   - Handle, Apply and Redraw are safe for concurrent use; redraws are
//     serialised.
type Renderer struct {
	rooms  *location.Registry
	canvas Canvas
	state  *presence.State
	clock  clockwork.Clock
	log    Logger

	mu sync.Mutex
}

// NewRenderer builds a renderer over rooms drawing to canvas. logger and
// clock may be nil. A nil rooms draws the built-in floor plan.
func NewRenderer(rooms *location.Registry, canvas Canvas, logger Logger, clock clockwork.Clock) *Renderer {
	if logger == nil {
		logger = noopLogger{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if rooms == nil {
		rooms = location.DefaultRegistry()
	}
	return &Renderer{
		rooms:  rooms,
		canvas: canvas,
		state:  presence.NewState(),
		clock:  clock,
		log:    logger,
	}
}

// State returns the viewer's presence state.
func (r *Renderer) State() *presence.State {
	return r.state
}

// Handle parses a push message, applies it and redraws. Malformed messages
// are logged and dropped.
func (r *Renderer) Handle(data []byte) error {
	u, err := ParseMessage(data, r.rooms)
	if err != nil {
		r.log.Warn("dropping push message", "error", err)
		return err
	}
	return r.Apply(u)
}

// Apply records u, replacing the subject's previous location, and redraws.
func (r *Renderer) Apply(u Update) error {
	prev, had := r.state.Apply(u.SubjectID, u.SubjectName, u.Label, r.clock.Now())
	if had && prev.Label != u.Label {
		r.log.Debug("subject moved", "subject", u.SubjectID, "from", prev.Label.Room, "to", u.Label.Room)
	}
	return r.Redraw()
}

// Redraw draws every room, then one marker per subject in a known room.
func (r *Renderer) Redraw() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.canvas.Clear(r.rooms.Canvas())
	for _, room := range r.rooms.Rooms() {
		r.canvas.Rect(room.Rect, RoomFill)
		r.canvas.Text(room.Anchor, room.Name)
	}

	perRoom := make(map[string]int)
	for _, e := range r.state.Entries() {
		anchor, ok := r.rooms.Anchor(e.Label.Room)
		if !ok {
			r.log.Debug("no marker for subject", "subject", e.SubjectID, "room", e.Label.Room)
			continue
		}
		n := perRoom[e.Label.Room]
		perRoom[e.Label.Room]++

		at := location.Point{X: anchor.X + float64(n)*markerSpread, Y: anchor.Y + markerSpread}
		r.canvas.Marker(at, MarkerRadius, MarkerFill, markerLabel(e))
	}

	if err := r.canvas.Flush(); err != nil {
		r.log.Error("writing floor plan", "error", err)
		return fmt.Errorf("flushing canvas: %w", err)
	}
	return nil
}

func markerLabel(e presence.Entry) string {
	if e.SubjectName != "" {
		return e.SubjectName
	}
	return e.SubjectID
}
