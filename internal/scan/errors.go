package scan

import "errors"

var (
	// ErrInvalidTransition is returned for an event the current state does not accept.
	ErrInvalidTransition = errors.New("scan: invalid transition")

	// ErrAlreadyStarted is returned by Start on a controller that left Idle.
	ErrAlreadyStarted = errors.New("scan: controller already started")
)
