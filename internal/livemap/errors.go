package livemap

import "errors"

var (
	// ErrMalformedMessage is returned for a push message that is not JSON or
	// names no room.
	ErrMalformedMessage = errors.New("livemap: malformed message")

	// ErrUnknownRoom is returned when a room number is not in the registry.
	ErrUnknownRoom = errors.New("livemap: unknown room")
)
