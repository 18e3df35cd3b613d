// Locator scans for room beacons in fixed windows, resolves the room of the
// subject carrying this device and reports it to the relay hub.
//
// Reporting starts disabled unless locator.available is set; send SIGUSR1 to
// toggle it. The scan cycle is rebuilt after locator.restart_delay whenever
// the radio fails.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/beaconloc/presence/internal/infrastructure/config"
	"github.com/beaconloc/presence/internal/infrastructure/logging"
	"github.com/beaconloc/presence/internal/location"
	"github.com/beaconloc/presence/internal/presence"
	"github.com/beaconloc/presence/internal/radio"
	"github.com/beaconloc/presence/internal/radio/bluez"
	"github.com/beaconloc/presence/internal/scan"
)

// Version information - set at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "locator"

	// reporterDrainTimeout bounds in-flight deliveries at shutdown.
	reporterDrainTimeout = 10 * time.Second
)

// scanRadio is the receiver the locator needs. Reauthorize clears a
// permission refusal so the next start can succeed.
type scanRadio interface {
	radio.Scanner
	radio.Authorizer
	Reauthorize() error
}

// openRadio is replaced in tests.
var openRadio = func() (scanRadio, error) {
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

// run loads configuration, wires the scan cycle to the reporter and blocks
// until ctx is cancelled.
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default(serviceName)
	log.Info("starting locator", "version", version, "commit", commit)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, serviceName, version)
	defer log.Close() //nolint:errcheck // Closing log file on exit
	log.Info("configuration loaded", "path", configPath)

	rooms, err := loadRooms(cfg.RoomsFile)
	if err != nil {
		return err
	}
	log.Info("room registry loaded", "rooms", len(rooms.Rooms()), "beacons", rooms.Table().Len())

	identity, err := presence.LoadIdentity(cfg.Identity.File, cfg.Identity.Name)
	if err != nil {
		return fmt.Errorf("loading identity: %w", err)
	}
	log.Info("subject identity", "id", identity.ID, "name", identity.Name)

	rdo, err := openRadio()
	if err != nil {
		return fmt.Errorf("opening radio: %w", err)
	}

	reporter := presence.NewReporter(
		presence.NewHTTPSender(cfg.Locator.ReportURL, nil, cfg.Locator.ReportTimeout),
		presence.ReporterConfig{
			QueueSize: cfg.Locator.QueueSize,
			Workers:   cfg.Locator.Workers,
			Logger:    log,
		},
	)
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), reporterDrainTimeout)
		defer cancel()
		if closeErr := reporter.Close(drainCtx); closeErr != nil {
			log.Warn("reporter did not drain", "error", closeErr)
		}
		st := reporter.Stats()
		log.Info("reporter closed",
			"dispatched", st.Dispatched,
			"delivered", st.Delivered,
			"failed", st.Failed,
			"dropped", st.Dropped,
			"skipped", st.Skipped,
		)
	}()

	availability := presence.NewAvailability(cfg.Locator.Available)
	log.Info("status: " + availability.String())

	handler := &presence.CycleReporter{
		Identity:     identity,
		Table:        rooms.Table(),
		Reporter:     reporter,
		Availability: availability,
		Logger:       log,
	}

	sup := &supervisor{
		radio:   rdo,
		handler: handler,
		cfg: scan.Config{
			Interval:    cfg.Locator.ScanInterval,
			RequireName: cfg.Locator.RequireName,
			Logger:      log.With("component", "scan"),
		},
		restartDelay: cfg.Locator.RestartDelay,
		clock:        clockwork.NewRealClock(),
		log:          log,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sup.run(gctx) })
	g.Go(func() error { return watchAvailability(gctx, availability, log) })

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("locator stopped")
	return nil
}

// supervisor keeps a scan controller running, rebuilding it after a radio
// failure or a refused start. A radio left unauthorized is re-enabled before
// each retry.
type supervisor struct {
	radio        scanRadio
	handler      scan.CycleHandler
	cfg          scan.Config
	restartDelay time.Duration
	clock        clockwork.Clock
	log          *logging.Logger

	restarts int
}

func (s *supervisor) run(ctx context.Context) error {
	for {
		c := scan.NewController(s.radio, s.radio, s.handler, s.cfg)
		if err := c.Start(ctx); err != nil {
			if errors.Is(err, radio.ErrUnauthorized) {
				s.log.Warn("scan not authorized, waiting to retry", "retry_in", s.restartDelay)
			} else {
				s.log.Error("scan start failed", "error", err, "retry_in", s.restartDelay)
			}
		} else {
			select {
			case <-ctx.Done():
				c.Stop()
				return nil
			case <-c.Done():
				if ctx.Err() != nil {
					return nil
				}
				st := c.Stats()
				s.log.Error("scan cycle halted",
					"error", c.Err(),
					"cycles", st.Cycles,
					"observed", st.Observed,
					"retry_in", s.restartDelay,
				)
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-s.clock.After(s.restartDelay):
			s.restarts++
			s.log.Info("restarting scan cycle", "restart", s.restarts)
		}
		s.reauthorize()
	}
}

func (s *supervisor) reauthorize() {
	if s.radio.Authorized() {
		return
	}
	if err := s.radio.Reauthorize(); err != nil {
		s.log.Warn("radio still not authorized", "error", err)
		return
	}
	s.log.Info("radio reauthorized", "authorized", s.radio.Authorized())
}

// watchAvailability flips reporting on each SIGUSR1.
func watchAvailability(ctx context.Context, a *presence.Availability, log *logging.Logger) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGUSR1)
	defer signal.Stop(sig)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sig:
			a.Toggle()
			log.Info("status: " + a.String())
		}
	}
}

func loadRooms(path string) (*location.Registry, error) {
	if path == "" {
		return location.DefaultRegistry(), nil
	}
	rooms, err := location.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("loading rooms: %w", err)
	}
	return rooms, nil
}

// getConfigPath returns the configuration file path.
// Uses BEACONLOC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("BEACONLOC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
