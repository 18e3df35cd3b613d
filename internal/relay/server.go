package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/beaconloc/presence/internal/infrastructure/config"
	"github.com/beaconloc/presence/internal/infrastructure/influxdb"
	"github.com/beaconloc/presence/internal/infrastructure/logging"
	"github.com/beaconloc/presence/internal/infrastructure/mqtt"
	"github.com/beaconloc/presence/internal/ledger"
	"github.com/beaconloc/presence/internal/location"
	"github.com/beaconloc/presence/internal/presence"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Recorder is the occupancy ledger as seen by the hub.
type Recorder interface {
	Apply(ctx context.Context, r presence.Report) (ledger.Change, error)
	Records(ctx context.Context, limit int) ([]ledger.Record, error)
}

// Broker is the MQTT client as seen by the hub.
type Broker interface {
	PublishRetained(topic string, payload []byte) error
	PublishEvent(topic string, payload []byte) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// Telemetry is the InfluxDB writer as seen by the hub.
type Telemetry interface {
	WritePresence(s influxdb.PresenceSample)
	WriteFloorAlert(s influxdb.PresenceSample, allowedFloor int)
}

// Deps holds the dependencies required by the relay server. Ledger, MQTT,
// Influx and Rooms are optional; leave them nil to disable.
type Deps struct {
	Config  config.RelayConfig
	Logger  *logging.Logger
	Rooms   *location.Registry
	Ledger  Recorder
	MQTT    Broker
	Influx  Telemetry
	Clock   clockwork.Clock
	Version string
}

// Server is the relay hub's HTTP and push server.
type Server struct {
	cfg     config.RelayConfig
	logger  *logging.Logger
	rooms   *location.Registry
	ledger  Recorder
	mqtt    Broker
	influx  Telemetry
	clock   clockwork.Clock
	version string
	started time.Time

	state  *presence.State
	hub    *Hub
	router http.Handler

	// ingestMu serialises ingestion so every sink and every viewer sees
	// reports in the same order.
	ingestMu sync.Mutex

	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc

	accepted, rejected, alerts atomic.Uint64
}

// New creates a relay server. It is not listening until Start is called,
// but Handler and Ingest are usable immediately.
//
// Parameters:
//   - deps: Required logger plus optional sinks
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Config.WebSocket.Path == "" {
		deps.Config.WebSocket.Path = "/ws"
	}

	s := &Server{
		cfg:     deps.Config,
		logger:  deps.Logger,
		rooms:   deps.Rooms,
		ledger:  deps.Ledger,
		mqtt:    deps.MQTT,
		influx:  deps.Influx,
		clock:   deps.Clock,
		version: deps.Version,
		started: deps.Clock.Now(),
		state:   presence.NewState(),
	}
	s.hub = NewHub(deps.Config.WebSocket, deps.Logger)
	s.router = s.buildRouter()
	return s, nil
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	return s.router
}

// State returns the hub's presence state.
func (s *Server) State() *presence.State {
	return s.state
}

// Hub returns the viewer hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start binds the listener and serves in the background.
//
// It starts the viewer hub and, when enabled, the MQTT ingest subscription.
//
// Parameters:
//   - ctx: Parent context for background goroutines
//
// Returns:
//   - error: If the listener cannot be bound (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)

	if s.cfg.MQTTIngest {
		if err := s.subscribeIngest(); err != nil {
			s.logger.Warn("MQTT ingest unavailable", "error", err)
		}
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.API.Host, s.cfg.API.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:           s.router,
		ReadTimeout:       time.Duration(s.cfg.API.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.API.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.API.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.API.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.API.TLS.Enabled {
			s.logger.Info("relay hub starting with TLS",
				"address", ln.Addr().String(),
				"cert", s.cfg.API.TLS.CertFile,
			)
			err = s.server.ServeTLS(ln, s.cfg.API.TLS.CertFile, s.cfg.API.TLS.KeyFile)
		} else {
			s.logger.Info("relay hub starting", "address", ln.Addr().String())
			err = s.server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("relay hub server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the server and disconnects viewers.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("relay hub shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down relay hub: %w", err)
	}
	return nil
}

// HealthCheck verifies the server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("relay health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("relay server not started")
	}
	return nil
}
