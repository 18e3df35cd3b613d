// Package ledger keeps the occupancy ledger: one row per continuous stay of
// a subject in a room, opened when an available subject appears in a room
// and closed when it moves or reports unavailable.
//
// The ledger is a record for dashboards. It is never replayed to live map
// viewers.
package ledger
