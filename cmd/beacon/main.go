// Beacon advertises a fixed room beacon payload until interrupted.
//
// When the radio grant is missing the binary keeps running and retries after
// SIGHUP, which the operator sends once the grant has been remediated.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/beaconloc/presence/internal/beacon"
	"github.com/beaconloc/presence/internal/infrastructure/config"
	"github.com/beaconloc/presence/internal/infrastructure/logging"
	"github.com/beaconloc/presence/internal/radio"
	"github.com/beaconloc/presence/internal/radio/bluez"
)

// Version information - set at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "beacon"
)

// advertRadio is the transmitter the beacon needs.
type advertRadio interface {
	radio.Advertiser
	radio.Authorizer
	Reauthorize() error
}

// openRadio is replaced in tests.
var openRadio = func() (advertRadio, error) {
	return bluez.Open()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run loads configuration and advertises until ctx is cancelled.
//
// Returns:
//   - error: nil on clean shutdown, or the first non-recoverable start failure
func run(ctx context.Context) error {
	log := logging.Default(serviceName)
	log.Info("starting beacon", "version", version, "commit", commit)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, serviceName, version)
	defer log.Close() //nolint:errcheck // Closing log file on exit

	data, err := cfg.Beacon.PayloadBytes()
	if err != nil {
		return err
	}
	payload := beacon.Payload{
		LocalName:      cfg.Beacon.LocalName,
		ManufacturerID: cfg.Beacon.ManufacturerID,
		Data:           data,
	}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("beacon payload: %w", err)
	}

	rdo, err := openRadio()
	if err != nil {
		return fmt.Errorf("opening radio: %w", err)
	}

	emitter := beacon.NewEmitter(rdo, rdo)
	emitter.SetLogger(log)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	return advertise(ctx, emitter, payload, rdo, hup, log)
}

// advertise starts the emitter, waiting for a retry signal after each
// authorization failure, and stops it when ctx ends.
func advertise(ctx context.Context, e *beacon.Emitter, p beacon.Payload, rdo advertRadio, retry <-chan os.Signal, log *logging.Logger) error {
	for {
		err := e.Start(ctx, p)
		switch {
		case err == nil, errors.Is(err, radio.ErrAlreadyStarted):
			<-ctx.Done()
			if stopErr := e.Stop(); stopErr != nil {
				log.Error("stopping advertising", "error", stopErr)
			}
			log.Info("beacon stopped")
			return nil

		case errors.Is(err, radio.ErrUnauthorized):
			log.Warn("waiting for SIGHUP after granting radio access")

		case ctx.Err() != nil:
			return nil

		default:
			return fmt.Errorf("starting advertising: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-retry:
			if reErr := rdo.Reauthorize(); reErr != nil {
				log.Warn("reauthorizing radio", "error", reErr)
			}
		}
	}
}

// getConfigPath returns the configuration file path.
// Uses BEACONLOC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("BEACONLOC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
