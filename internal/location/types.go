package location

import "fmt"

// UnknownRoom is the room name reported when no known beacon is visible.
const UnknownRoom = "Unknown"

// Label is a resolved location.
type Label struct {
	Room  string `json:"room" yaml:"room"`
	Floor int    `json:"floor" yaml:"floor"`
}

// Unknown is the label for an empty or unrecognised cycle.
var Unknown = Label{Room: UnknownRoom, Floor: -1}

// IsUnknown reports whether l is the Unknown label.
func (l Label) IsUnknown() bool {
	return l == Unknown
}

func (l Label) String() string {
	return fmt.Sprintf("%s (floor %d)", l.Room, l.Floor)
}

// Point is a floor plan coordinate.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Rect is a floor plan rectangle anchored at its top-left corner.
type Rect struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	W float64 `json:"w" yaml:"w"`
	H float64 `json:"h" yaml:"h"`
}

// Room is one registry entry.
type Room struct {
	Name    string   `json:"name" yaml:"name"`
	Number  int      `json:"number,omitempty" yaml:"number"`
	Floor   int      `json:"floor" yaml:"floor"`
	Anchor  Point    `json:"anchor" yaml:"anchor"`
	Rect    Rect     `json:"rect" yaml:"rect"`
	Beacons []string `json:"beacons" yaml:"beacons"`
}

// Label returns the label reported for this room.
func (r Room) Label() Label {
	return Label{Room: r.Name, Floor: r.Floor}
}

// Canvas is the floor plan size.
type Canvas struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}
