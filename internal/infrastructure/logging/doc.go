// Package logging provides structured logging for the beacon presence binaries.
//
// This package wraps Go's standard log/slog package so the beacon, locator,
// relay hub and live map all emit entries with the same shape.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Size-based file rotation via lumberjack when output is "file"
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, file
//	  file:
//	    path: "./data/beaconloc.log"
//	    max_size: 50     # megabytes
//	    max_backups: 3
//	    max_age: 28      # days
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "locator", version)
//	defer logger.Close()
//	logger.Info("scan cycle complete", "visible", 3)
//
// Subject IDs are fine to log. Broker passwords and tokens are not.
package logging
