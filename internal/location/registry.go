package location

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const maxNameLength = 100

//go:embed default_rooms.yaml
var defaultRooms []byte

// Registry is the declarative room list. Build one with LoadRegistry,
// ParseRegistry or DefaultRegistry.
type Registry struct {
	canvas   Canvas
	rooms    []Room
	byName   map[string]int
	byNumber map[int]int
	table    *Table
}

type registryFile struct {
	Canvas Canvas `yaml:"canvas"`
	Rooms  []Room `yaml:"rooms"`
}

// LoadRegistry reads and validates a rooms file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("reading rooms file: %w", err)
	}
	r, err := ParseRegistry(data)
	if err != nil {
		return nil, fmt.Errorf("rooms file %s: %w", path, err)
	}
	return r, nil
}

// ParseRegistry decodes and validates registry YAML.
func ParseRegistry(data []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rooms: %w", err)
	}
	return NewRegistry(f.Canvas, f.Rooms)
}

// DefaultRegistry returns the built-in floor plan.
func DefaultRegistry() *Registry {
	r, err := ParseRegistry(defaultRooms)
	if err != nil {
		panic(fmt.Sprintf("location: built-in rooms invalid: %v", err))
	}
	return r
}

// NewRegistry validates rooms and indexes them.
//
// Validation collects every problem:
//   - names are non-empty and unique
//   - non-zero numbers are unique
//   - each beacon name belongs to exactly one room
//   - rectangles have positive width and height
func NewRegistry(canvas Canvas, rooms []Room) (*Registry, error) {
	r := &Registry{
		canvas:   canvas,
		rooms:    make([]Room, 0, len(rooms)),
		byName:   make(map[string]int, len(rooms)),
		byNumber: make(map[int]int, len(rooms)),
	}
	beacons := make(map[string]Label)

	var errs []error
	for i, room := range rooms {
		room.Name = strings.TrimSpace(room.Name)
		if err := ValidateName(room.Name); err != nil {
			errs = append(errs, fmt.Errorf("room %d: %w", i, err))
			continue
		}
		if _, dup := r.byName[room.Name]; dup {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateRoom, room.Name))
			continue
		}
		if room.Number != 0 {
			if prev, dup := r.byNumber[room.Number]; dup {
				errs = append(errs, fmt.Errorf("%w: %d used by %q and %q",
					ErrDuplicateNumber, room.Number, r.rooms[prev].Name, room.Name))
				continue
			}
		}
		if room.Rect.W <= 0 || room.Rect.H <= 0 {
			errs = append(errs, fmt.Errorf("%w: room %q has %gx%g rect",
				ErrInvalidGeometry, room.Name, room.Rect.W, room.Rect.H))
			continue
		}
		for _, b := range room.Beacons {
			if err := ValidateName(b); err != nil {
				errs = append(errs, fmt.Errorf("room %q beacon: %w", room.Name, err))
				continue
			}
			if owner, dup := beacons[b]; dup {
				errs = append(errs, fmt.Errorf("%w: %q in %q and %q",
					ErrDuplicateBeacon, b, owner.Room, room.Name))
				continue
			}
			beacons[b] = room.Label()
		}

		room.Beacons = append([]string(nil), room.Beacons...)
		r.byName[room.Name] = len(r.rooms)
		if room.Number != 0 {
			r.byNumber[room.Number] = len(r.rooms)
		}
		r.rooms = append(r.rooms, room)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	r.table = NewTable(beacons)
	return r, nil
}

// ValidateName checks a room or beacon name.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// Table returns the beacon name to label table for the resolver.
func (r *Registry) Table() *Table {
	return r.table
}

// Canvas returns the floor plan size.
func (r *Registry) Canvas() Canvas {
	return r.canvas
}

// Rooms returns the rooms in file order.
func (r *Registry) Rooms() []Room {
	out := make([]Room, len(r.rooms))
	copy(out, r.rooms)
	return out
}

// Room returns a room by name.
func (r *Registry) Room(name string) (Room, error) {
	i, ok := r.byName[name]
	if !ok {
		return Room{}, fmt.Errorf("%w: %q", ErrRoomNotFound, name)
	}
	return r.rooms[i], nil
}

// RoomByNumber returns a room by its number.
func (r *Registry) RoomByNumber(n int) (Room, error) {
	i, ok := r.byNumber[n]
	if !ok {
		return Room{}, fmt.Errorf("%w: number %d", ErrRoomNotFound, n)
	}
	return r.rooms[i], nil
}

// Anchor returns the marker position for a room name.
func (r *Registry) Anchor(name string) (Point, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Point{}, false
	}
	return r.rooms[i].Anchor, true
}
