// Package scan runs the bounded scan window cycle.
//
// A Controller alternates between Scanning, where detections are collected
// into a VisibleSet, and Draining, where the receiver is off and a snapshot of
// the set is handed to a CycleHandler. The window then re-arms with an empty
// set. Platforms throttle receivers held open indefinitely, so the cycle
// trades continuous coverage for a deterministic restart and bounds staleness
// to one interval.
//
//	Idle --start--> Scanning --tick--> Draining --rearm--> Scanning ...
//	  any --stop/radio error--> Stopped
//
// The transition table is explicit (see Next). The clock is injected, so the
// machine runs in tests with no hardware.
package scan
