package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
site:
  id: "test-site"
identity:
  name: "Anmol"
locator:
  scan_interval: 3s
  report_url: "http://relay.local:8000/submit-data"
  queue_size: 4
  workers: 1
beacon:
  local_name: "RoomBeacon3"
  payload: "0a0b"
relay:
  api:
    port: 9000
  allowed_floor: 1
database:
  path: "/tmp/test.db"
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}
	if cfg.Identity.Name != "Anmol" {
		t.Errorf("Identity.Name = %q, want %q", cfg.Identity.Name, "Anmol")
	}
	if cfg.Locator.ScanInterval != 3*time.Second {
		t.Errorf("Locator.ScanInterval = %v, want 3s", cfg.Locator.ScanInterval)
	}
	if cfg.Locator.Workers != 1 {
		t.Errorf("Locator.Workers = %d, want 1", cfg.Locator.Workers)
	}
	if cfg.Relay.API.Port != 9000 {
		t.Errorf("Relay.API.Port = %d, want 9000", cfg.Relay.API.Port)
	}
	if cfg.Relay.AllowedFloor != 1 {
		t.Errorf("Relay.AllowedFloor = %d, want 1", cfg.Relay.AllowedFloor)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	payload, err := cfg.Beacon.PayloadBytes()
	if err != nil {
		t.Fatalf("PayloadBytes() error = %v", err)
	}
	if string(payload) != "\x0a\x0b" {
		t.Errorf("PayloadBytes() = %x, want 0a0b", payload)
	}
}

func TestLoad_KeepsDefaults(t *testing.T) {
	configPath := writeConfig(t, "site:\n  id: \"only-site\"\n")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Locator.ScanInterval != 10*time.Second {
		t.Errorf("ScanInterval = %v, want 10s", cfg.Locator.ScanInterval)
	}
	if !cfg.Locator.RequireName {
		t.Error("RequireName should default to true")
	}
	if cfg.Locator.Available {
		t.Error("Available should default to false")
	}
	if cfg.Beacon.ManufacturerID != 0xFFFF {
		t.Errorf("ManufacturerID = %#x, want 0xffff", cfg.Beacon.ManufacturerID)
	}
	if cfg.Relay.WebSocket.Path != "/ws" {
		t.Errorf("WebSocket.Path = %q, want /ws", cfg.Relay.WebSocket.Path)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, `
site:
  id: ""
locator:
  workers: 0
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	for _, want := range []string{"site.id", "locator.workers"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			modify: func(*Config) {},
		},
		{
			name:    "zero scan interval",
			modify:  func(c *Config) { c.Locator.ScanInterval = 0 },
			wantErr: "locator.scan_interval",
		},
		{
			name:    "report url wrong scheme",
			modify:  func(c *Config) { c.Locator.ReportURL = "ftp://relay/submit-data" },
			wantErr: "locator.report_url",
		},
		{
			name:    "non-hex payload",
			modify:  func(c *Config) { c.Beacon.Payload = "zz" },
			wantErr: "beacon.payload",
		},
		{
			name:    "empty payload",
			modify:  func(c *Config) { c.Beacon.Payload = "" },
			wantErr: "beacon.payload",
		},
		{
			name:    "port out of range",
			modify:  func(c *Config) { c.Relay.API.Port = 70000 },
			wantErr: "relay.api.port",
		},
		{
			name:    "websocket path without slash",
			modify:  func(c *Config) { c.Relay.WebSocket.Path = "ws" },
			wantErr: "relay.websocket.path",
		},
		{
			name:    "livemap http url",
			modify:  func(c *Config) { c.LiveMap.URL = "http://localhost:8000/ws" },
			wantErr: "livemap.url",
		},
		{
			name:    "mqtt ingest without mqtt",
			modify:  func(c *Config) { c.Relay.MQTTIngest = true },
			wantErr: "relay.mqtt_ingest",
		},
		{
			name:    "invalid qos",
			modify:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name: "file logging without path",
			modify: func(c *Config) {
				c.Logging.Output = "file"
				c.Logging.File.Path = ""
			},
			wantErr: "logging.file.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BEACONLOC_LOCATOR_REPORT_URL", "https://relay.example/submit-data")
	t.Setenv("BEACONLOC_API_PORT", "8443")
	t.Setenv("BEACONLOC_API_HOST", "127.0.0.1")
	t.Setenv("BEACONLOC_IDENTITY_NAME", "Night Shift")
	t.Setenv("BEACONLOC_MQTT_PASSWORD", "secret")

	cfg := defaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Locator.ReportURL != "https://relay.example/submit-data" {
		t.Errorf("ReportURL = %q", cfg.Locator.ReportURL)
	}
	if cfg.Relay.API.Port != 8443 {
		t.Errorf("API.Port = %d, want 8443", cfg.Relay.API.Port)
	}
	if cfg.Relay.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q", cfg.Relay.API.Host)
	}
	if cfg.Identity.Name != "Night Shift" {
		t.Errorf("Identity.Name = %q", cfg.Identity.Name)
	}
	if cfg.MQTT.Auth.Password != "secret" {
		t.Errorf("MQTT.Auth.Password = %q", cfg.MQTT.Auth.Password)
	}
}

func TestEnvOverrides_BadPortIgnored(t *testing.T) {
	t.Setenv("BEACONLOC_API_PORT", "not-a-port")

	cfg := defaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Relay.API.Port != 8000 {
		t.Errorf("API.Port = %d, want default 8000", cfg.Relay.API.Port)
	}
}

func TestTimeoutHelpers(t *testing.T) {
	cfg := defaultConfig()

	if got := cfg.GetReadTimeout(); got != 30*time.Second {
		t.Errorf("GetReadTimeout() = %v, want 30s", got)
	}
	if got := cfg.GetWriteTimeout(); got != 30*time.Second {
		t.Errorf("GetWriteTimeout() = %v, want 30s", got)
	}
	if got := cfg.GetIdleTimeout(); got != 60*time.Second {
		t.Errorf("GetIdleTimeout() = %v, want 60s", got)
	}
}
