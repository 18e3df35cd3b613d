package scan

import "fmt"

// State is a phase of the scan cycle.
type State int

const (
	// StateIdle is the initial state; the receiver is off.
	StateIdle State = iota
	// StateScanning means the receiver is on and detections are collected.
	StateScanning
	// StateDraining means the receiver is off and the cycle is being resolved.
	StateDraining
	// StateStopped is terminal.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event drives a transition.
type Event int

const (
	EventStart Event = iota
	EventTick
	EventRearm
	EventStop
	EventRadioError
)

func (e Event) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventTick:
		return "tick"
	case EventRearm:
		return "rearm"
	case EventStop:
		return "stop"
	case EventRadioError:
		return "radio_error"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

type transitionKey struct {
	from State
	on   Event
}

// transitions is the complete machine. Anything absent is illegal.
var transitions = map[transitionKey]State{
	{StateIdle, EventStart}: StateScanning,
	{StateIdle, EventStop}:  StateStopped,

	{StateScanning, EventTick}:       StateDraining,
	{StateScanning, EventStop}:       StateStopped,
	{StateScanning, EventRadioError}: StateStopped,

	{StateDraining, EventRearm}:      StateScanning,
	{StateDraining, EventStop}:       StateStopped,
	{StateDraining, EventRadioError}: StateStopped,
}

// Next returns the state reached from s on e.
// Illegal pairs return ErrInvalidTransition and s unchanged.
func Next(s State, e Event) (State, error) {
	to, ok := transitions[transitionKey{s, e}]
	if !ok {
		return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, s)
	}
	return to, nil
}
