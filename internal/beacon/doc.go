// Package beacon turns a host into a room beacon.
//
// An Emitter puts one non-connectable advertisement on the air carrying the
// host's local name and a short manufacturer-specific payload. Locators map
// the local name to a room. The payload is fixed and carries no position.
package beacon
