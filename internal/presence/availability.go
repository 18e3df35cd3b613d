package presence

import "sync/atomic"

// Availability is the subject's reporting toggle. Reports are dispatched
// only while it is on.
type Availability struct {
	on atomic.Bool
}

// NewAvailability returns a toggle with the given initial value.
func NewAvailability(on bool) *Availability {
	a := &Availability{}
	a.on.Store(on)
	return a
}

// Available reports the current value.
func (a *Availability) Available() bool {
	return a.on.Load()
}

// Set changes the value.
func (a *Availability) Set(on bool) {
	a.on.Store(on)
}

// Toggle flips the value and returns the new one.
func (a *Availability) Toggle() bool {
	for {
		old := a.on.Load()
		if a.on.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// String returns the wire status for the current value.
func (a *Availability) String() string {
	if a.Available() {
		return StatusAvailable
	}
	return StatusUnavailable
}
