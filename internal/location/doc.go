// Package location maps what a scan cycle saw to where the subject is.
//
// A Registry is the declarative room list shared by the locator and the live
// map: each room has a name, an optional number, a floor, the beacon names that
// identify it and its place on the floor plan. The registry yields an
// immutable Table of beacon name to Label, and Resolve picks the first
// sighting in a Snapshot that the table knows.
//
// # Thread Safety
//
// Registry and Table are read-only after construction and safe for concurrent
// use.
package location
