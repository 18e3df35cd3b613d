package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the beacon presence stack.
// All configuration is loaded from YAML and can be overridden by environment variables.
//
// A single file serves every binary (beacon, locator, relayhub, livemap);
// each binary reads only the sections it needs.
type Config struct {
	Site      SiteConfig     `yaml:"site"`
	Identity  IdentityConfig `yaml:"identity"`
	Locator   LocatorConfig  `yaml:"locator"`
	Beacon    BeaconConfig   `yaml:"beacon"`
	Relay     RelayConfig    `yaml:"relay"`
	LiveMap   LiveMapConfig  `yaml:"livemap"`
	RoomsFile string         `yaml:"rooms_file"`
	Database  DatabaseConfig `yaml:"database"`
	MQTT      MQTTConfig     `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig `yaml:"influxdb"`
	Logging   LoggingConfig  `yaml:"logging"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// IdentityConfig locates the stable subject identity of this installation.
type IdentityConfig struct {
	// File stores the generated subject ID and display name between runs.
	File string `yaml:"file"`

	// Name overrides the stored display name when non-empty.
	Name string `yaml:"name"`
}

// LocatorConfig contains the scan cycle and presence reporting settings.
type LocatorConfig struct {
	// ScanInterval is the length of one scan window before the drain/restart.
	ScanInterval time.Duration `yaml:"scan_interval"`

	// RestartDelay is how long the supervisor waits before rebuilding the
	// scan controller after a radio failure.
	RestartDelay time.Duration `yaml:"restart_delay"`

	// RequireName ignores detections that carry no display name.
	RequireName bool `yaml:"require_name"`

	// Available is the initial state of the user availability toggle.
	Available bool `yaml:"available"`

	// ReportURL is the relay hub ingestion endpoint.
	ReportURL string `yaml:"report_url"`

	// ReportTimeout bounds a single ingestion request.
	ReportTimeout time.Duration `yaml:"report_timeout"`

	// QueueSize is the capacity of the outbound report queue.
	QueueSize int `yaml:"queue_size"`

	// Workers is the number of concurrent report dispatchers.
	Workers int `yaml:"workers"`
}

// BeaconConfig contains the emitter payload settings.
type BeaconConfig struct {
	LocalName      string `yaml:"local_name"`
	ManufacturerID uint16 `yaml:"manufacturer_id"`
	// Payload is the hex-encoded manufacturer data (e.g. "01020304").
	Payload string `yaml:"payload"`
}

// PayloadBytes decodes the hex manufacturer payload.
func (b BeaconConfig) PayloadBytes() ([]byte, error) {
	data, err := hex.DecodeString(strings.ReplaceAll(b.Payload, " ", ""))
	if err != nil {
		return nil, fmt.Errorf("decoding beacon payload: %w", err)
	}
	return data, nil
}

// RelayConfig contains relay hub settings.
type RelayConfig struct {
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`

	// AllowedFloor raises an alert for reports above this floor. 0 disables.
	AllowedFloor int `yaml:"allowed_floor"`

	// MQTTIngest accepts presence reports published to the MQTT ingest topic
	// in addition to HTTP.
	MQTTIngest bool `yaml:"mqtt_ingest"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// LiveMapConfig contains live map renderer settings.
type LiveMapConfig struct {
	// URL is the relay hub push channel (ws:// or wss://).
	URL string `yaml:"url"`

	// Output is the SVG file rewritten after every redraw.
	Output string `yaml:"output"`
}

// DatabaseConfig contains SQLite settings for the occupancy ledger.
// An empty path disables the ledger.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
// Used when Output is "file".
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: BEACONLOC_SECTION_KEY
// For example: BEACONLOC_LOCATOR_REPORT_URL, BEACONLOC_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without reading a file.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "Beacon Presence",
		},
		Identity: IdentityConfig{
			File: "./data/identity.yaml",
		},
		Locator: LocatorConfig{
			ScanInterval:  10 * time.Second,
			RestartDelay:  5 * time.Second,
			RequireName:   true,
			Available:     false,
			ReportURL:     "http://localhost:8000/submit-data",
			ReportTimeout: 5 * time.Second,
			QueueSize:     16,
			Workers:       2,
		},
		Beacon: BeaconConfig{
			LocalName:      "RoomBeacon1",
			ManufacturerID: 0xFFFF,
			Payload:        "01020304",
		},
		Relay: RelayConfig{
			API: APIConfig{
				Host: "0.0.0.0",
				Port: 8000,
				Timeouts: APITimeoutConfig{
					Read:  30,
					Write: 30,
					Idle:  60,
				},
			},
			WebSocket: WebSocketConfig{
				Path:           "/ws",
				MaxMessageSize: 8192,
				PingInterval:   30,
				PongTimeout:    10,
			},
		},
		LiveMap: LiveMapConfig{
			URL:    "ws://localhost:8000/ws",
			Output: "./data/floorplan.svg",
		},
		Database: DatabaseConfig{
			Path:        "./data/ledger.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "beaconloc-relay",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./data/beaconloc.log",
				MaxSize:    50,
				MaxBackups: 3,
				MaxAge:     28,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: BEACONLOC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Identity
	if v := os.Getenv("BEACONLOC_IDENTITY_NAME"); v != "" {
		cfg.Identity.Name = v
	}

	// Locator
	if v := os.Getenv("BEACONLOC_LOCATOR_REPORT_URL"); v != "" {
		cfg.Locator.ReportURL = v
	}

	// Relay API
	if v := os.Getenv("BEACONLOC_API_HOST"); v != "" {
		cfg.Relay.API.Host = v
	}
	if v := os.Getenv("BEACONLOC_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Relay.API.Port = port
		}
	}

	// Live map
	if v := os.Getenv("BEACONLOC_LIVEMAP_URL"); v != "" {
		cfg.LiveMap.URL = v
	}

	// Database
	if v := os.Getenv("BEACONLOC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("BEACONLOC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("BEACONLOC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("BEACONLOC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("BEACONLOC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	// Locator validation
	if c.Locator.ScanInterval <= 0 {
		errs = append(errs, "locator.scan_interval must be positive")
	}
	if c.Locator.ReportTimeout <= 0 {
		errs = append(errs, "locator.report_timeout must be positive")
	}
	if c.Locator.QueueSize < 1 {
		errs = append(errs, "locator.queue_size must be at least 1")
	}
	if c.Locator.Workers < 1 {
		errs = append(errs, "locator.workers must be at least 1")
	}
	if c.Locator.ReportURL != "" && !validURL(c.Locator.ReportURL, "http", "https") {
		errs = append(errs, "locator.report_url must be an http(s) URL")
	}

	// Beacon validation
	if payload, err := c.Beacon.PayloadBytes(); err != nil {
		errs = append(errs, "beacon.payload must be hex encoded")
	} else if len(payload) == 0 {
		errs = append(errs, "beacon.payload must not be empty")
	}

	// Relay validation
	if c.Relay.API.Port < 1 || c.Relay.API.Port > 65535 {
		errs = append(errs, "relay.api.port must be between 1 and 65535")
	}
	if !strings.HasPrefix(c.Relay.WebSocket.Path, "/") {
		errs = append(errs, "relay.websocket.path must start with /")
	}
	if c.Relay.AllowedFloor < 0 {
		errs = append(errs, "relay.allowed_floor must not be negative")
	}

	// Live map validation
	if c.LiveMap.URL != "" && !validURL(c.LiveMap.URL, "ws", "wss") {
		errs = append(errs, "livemap.url must be a ws(s) URL")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.Relay.MQTTIngest && !c.MQTT.Enabled {
		errs = append(errs, "relay.mqtt_ingest requires mqtt.enabled")
	}

	// Logging validation
	if strings.EqualFold(c.Logging.Output, "file") && c.Logging.File.Path == "" {
		errs = append(errs, "logging.file.path is required when logging.output is file")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validURL reports whether raw parses as an absolute URL with one of the schemes.
func validURL(raw string, schemes ...string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	for _, s := range schemes {
		if strings.EqualFold(u.Scheme, s) {
			return true
		}
	}
	return false
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.Relay.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.Relay.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.Relay.API.Timeouts.Idle) * time.Second
}
