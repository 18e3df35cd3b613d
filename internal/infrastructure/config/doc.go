// Package config handles loading and validating the presence stack configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// One file configures every binary. The beacon emitter reads the beacon
// section, the locator reads identity and locator, the relay hub reads
// relay, database, mqtt and influxdb, and the live map reads livemap.
// All of them share site, rooms_file and logging.
//
// Security Considerations:
//   - Broker passwords and InfluxDB tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Locator.ScanInterval)
package config
