package livemap

import "github.com/beaconloc/presence/internal/location"

// Canvas is a drawing surface for one scene. A redraw calls Clear, then the
// draw calls, then Flush.
type Canvas interface {
	Clear(size location.Canvas)
	Rect(r location.Rect, fill string)
	Text(at location.Point, text string)
	Marker(at location.Point, radius float64, fill, label string)
	Flush() error
}

// Op is one recorded draw call.
type Op struct {
	Kind   string // "clear", "rect", "text", "marker"
	Rect   location.Rect
	At     location.Point
	Radius float64
	Fill   string
	Text   string
}

// RecordingCanvas keeps the draw calls of the last flushed scene.
type RecordingCanvas struct {
	pending []Op
	scene   []Op
	flushes int
}

// Clear starts a new scene.
func (c *RecordingCanvas) Clear(size location.Canvas) {
	c.pending = []Op{{Kind: "clear", Rect: location.Rect{W: size.Width, H: size.Height}}}
}

// Rect records a filled rectangle.
func (c *RecordingCanvas) Rect(r location.Rect, fill string) {
	c.pending = append(c.pending, Op{Kind: "rect", Rect: r, Fill: fill})
}

// Text records a label.
func (c *RecordingCanvas) Text(at location.Point, text string) {
	c.pending = append(c.pending, Op{Kind: "text", At: at, Text: text})
}

// Marker records a subject marker.
func (c *RecordingCanvas) Marker(at location.Point, radius float64, fill, label string) {
	c.pending = append(c.pending, Op{Kind: "marker", At: at, Radius: radius, Fill: fill, Text: label})
}

// Flush publishes the pending scene.
func (c *RecordingCanvas) Flush() error {
	c.scene, c.pending = c.pending, nil
	c.flushes++
	return nil
}

// Scene returns the last flushed scene.
func (c *RecordingCanvas) Scene() []Op {
	return append([]Op(nil), c.scene...)
}

// Markers returns the marker ops of the last flushed scene.
func (c *RecordingCanvas) Markers() []Op {
	var out []Op
	for _, op := range c.scene {
		if op.Kind == "marker" {
			out = append(out, op)
		}
	}
	return out
}

// Flushes returns how many scenes were flushed.
func (c *RecordingCanvas) Flushes() int {
	return c.flushes
}
