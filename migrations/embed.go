// Package migrations embeds the occupancy ledger schema into the binary.
package migrations

import "embed"

// Dir is the directory within FS that holds the migration files.
const Dir = "."

// FS holds every *.sql migration in this directory.
//
//go:embed *.sql
var FS embed.FS
