// Package presence carries resolved locations from a subject's device to
// the relay hub and on to viewers.
//
// The Reporter is the device side: one Report per completed scan cycle,
// queued without blocking and delivered best effort by background workers.
// Nothing is retried. A report is dispatched only while the subject's
// Availability is on.
//
// State is the receiving side: the latest Label per subject, last write wins
// in arrival order. The relay hub and every live map keep their own State.
//
// Report and IngestPayload define the JSON exchanged over HTTP and the push
// channel:
//
//	{"uniqueID":"...","userName":"...","room":"Room 1","floor":1,"status":"Available"}
package presence
