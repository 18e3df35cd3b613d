// Livemap subscribes to the relay hub's push channel and keeps an SVG floor
// plan of where every subject is.
//
// The map is rewritten at livemap.output after every update. The binary
// exits when the push channel closes; it does not reconnect.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/beaconloc/presence/internal/infrastructure/config"
	"github.com/beaconloc/presence/internal/infrastructure/logging"
	"github.com/beaconloc/presence/internal/livemap"
	"github.com/beaconloc/presence/internal/location"
)

// Version information - set at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "livemap"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run draws the empty floor plan, then follows the push channel until ctx
// is cancelled or the channel closes.
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default(serviceName)
	log.Info("starting live map", "version", version, "commit", commit)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, serviceName, version)
	defer log.Close() //nolint:errcheck // Closing log file on exit

	rooms := location.DefaultRegistry()
	if cfg.RoomsFile != "" {
		if rooms, err = location.LoadRegistry(cfg.RoomsFile); err != nil {
			return fmt.Errorf("loading rooms: %w", err)
		}
	}

	canvas := livemap.NewSVGCanvas(cfg.LiveMap.Output)
	renderer := livemap.NewRenderer(rooms, canvas, log.With("component", "renderer"), nil)
	if err := renderer.Redraw(); err != nil {
		return fmt.Errorf("drawing floor plan: %w", err)
	}
	log.Info("floor plan ready", "output", canvas.Path(), "rooms", len(rooms.Rooms()))

	if err := livemap.Subscribe(ctx, cfg.LiveMap.URL, renderer.Handle, log); err != nil {
		return err
	}
	log.Info("live map stopped", "subjects", renderer.State().Len())
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
