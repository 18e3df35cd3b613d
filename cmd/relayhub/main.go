// Relayhub accepts presence reports over HTTP (and optionally MQTT), records
// them in the occupancy ledger and pushes them to connected live map viewers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/beaconloc/presence/internal/infrastructure/config"
	"github.com/beaconloc/presence/internal/infrastructure/database"
	"github.com/beaconloc/presence/internal/infrastructure/influxdb"
	"github.com/beaconloc/presence/internal/infrastructure/logging"
	"github.com/beaconloc/presence/internal/infrastructure/mqtt"
	"github.com/beaconloc/presence/internal/ledger"
	"github.com/beaconloc/presence/internal/location"
	"github.com/beaconloc/presence/internal/relay"
	"github.com/beaconloc/presence/migrations"
)

// Version information - set at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "relayhub"

	// healthCheckTimeout bounds the startup health check.
	healthCheckTimeout = 5 * time.Second
)

// ready receives the listen address once the server is up. Tests read it.
var ready = make(chan string, 1)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run connects the optional sinks, starts the relay server and blocks until
// ctx is cancelled.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default(serviceName)
	log.Info("starting relay hub",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, serviceName, version)
	defer log.Close() //nolint:errcheck // Closing log file on exit
	log.Info("configuration loaded", "path", configPath)

	rooms := location.DefaultRegistry()
	if cfg.RoomsFile != "" {
		if rooms, err = location.LoadRegistry(cfg.RoomsFile); err != nil {
			return fmt.Errorf("loading rooms: %w", err)
		}
	}

	deps := relay.Deps{
		Config:  cfg.Relay,
		Logger:  log,
		Rooms:   rooms,
		Version: version,
	}

	// Occupancy ledger (optional)
	if cfg.Database.Path != "" {
		db, err := database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		if err := db.Migrate(ctx, migrations.FS, migrations.Dir); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		deps.Ledger = ledger.New(db)
		log.Info("occupancy ledger ready", "path", cfg.Database.Path)
	} else {
		log.Info("occupancy ledger disabled")
	}

	// MQTT mirror (optional)
	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log)
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		deps.MQTT = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB telemetry (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		deps.Influx = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	srv, err := relay.New(deps)
	if err != nil {
		return fmt.Errorf("creating relay server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting relay server: %w", err)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing relay server", "error", closeErr)
		}
	}()

	hctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := srv.HealthCheck(hctx); err != nil {
		log.Warn("relay health check failed", "error", err)
	}

	log.Info("relay hub ready", "address", srv.Addr())
	select {
	case ready <- srv.Addr():
	default:
	}

	<-ctx.Done()
	log.Info("shutdown signal received")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses BEACONLOC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("BEACONLOC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
