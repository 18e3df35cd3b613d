package location

import "errors"

var (
	// ErrInvalidName is returned when a room or beacon name is empty or too long.
	ErrInvalidName = errors.New("invalid name")

	// ErrDuplicateRoom is returned when two rooms share a name.
	ErrDuplicateRoom = errors.New("duplicate room name")

	// ErrDuplicateNumber is returned when two rooms share a non-zero number.
	ErrDuplicateNumber = errors.New("duplicate room number")

	// ErrDuplicateBeacon is returned when a beacon name maps to more than one room.
	ErrDuplicateBeacon = errors.New("beacon mapped to more than one room")

	// ErrInvalidGeometry is returned for a room rectangle with no area.
	ErrInvalidGeometry = errors.New("invalid room geometry")

	// ErrRoomNotFound is returned when a room name or number is not registered.
	ErrRoomNotFound = errors.New("room not found")
)
