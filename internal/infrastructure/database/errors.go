package database

import "errors"

var (
	// ErrNoPath is returned by Open when no database path is configured.
	ErrNoPath = errors.New("database path not configured")

	// ErrMigrationMissing is returned when an applied version has no file.
	ErrMigrationMissing = errors.New("migration not found in filesystem")

	// ErrNoDownMigration is returned when rolling back a migration without .down.sql.
	ErrNoDownMigration = errors.New("migration has no down SQL")
)
