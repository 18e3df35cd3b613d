package beacon

import (
	"context"
	"errors"
	"sync"

	"github.com/beaconloc/presence/internal/radio"
)

// Logger is the logging interface used by the emitter.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Emitter owns the advertising lifecycle. Nothing is retried: a failed Start
// leaves the emitter stopped and the caller decides whether to try again.
type Emitter struct {
	adv  radio.Advertiser
	auth radio.Authorizer
	log  Logger

	mu      sync.Mutex
	running bool
	current Payload
}

// NewEmitter returns a stopped emitter. A nil auth always grants.
func NewEmitter(adv radio.Advertiser, auth radio.Authorizer) *Emitter {
	if auth == nil {
		auth = radio.StaticAuthorizer(true)
	}
	return &Emitter{adv: adv, auth: auth, log: noopLogger{}}
}

// SetLogger sets the logger.
func (e *Emitter) SetLogger(l Logger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if l == nil {
		l = noopLogger{}
	}
	e.log = l
}

// Start begins advertising p.
//
// Returns:
//   - radio.ErrAlreadyStarted when already advertising (logged at warn)
//   - radio.ErrUnauthorized when the platform grant is missing
//   - radio.ErrPayloadTooLarge when p does not fit the PDU
//   - the backend's classified error otherwise
func (e *Emitter) Start(ctx context.Context, p Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		e.log.Warn("advertising already started", "error", radio.ErrAlreadyStarted, "local_name", e.current.LocalName)
		return radio.ErrAlreadyStarted
	}
	if !e.auth.Authorized() {
		e.log.Error("advertising refused", "error", radio.ErrUnauthorized)
		return radio.ErrUnauthorized
	}
	if err := p.Validate(); err != nil {
		e.log.Error("advertising payload rejected", "error", err, "local_name", p.LocalName)
		return err
	}

	if err := e.adv.StartAdvertising(p.advertisement()); err != nil {
		if errors.Is(err, radio.ErrAlreadyStarted) {
			e.running = true
			e.current = p
			e.log.Warn("advertising already started", "error", err)
			return err
		}
		e.log.Error("advertising failed", "error", err, "local_name", p.LocalName)
		return err
	}

	e.running = true
	e.current = p
	e.log.Info("advertising started",
		"local_name", p.LocalName,
		"manufacturer_id", p.ManufacturerID,
		"data_len", len(p.Data),
	)
	return nil
}

// Stop ends advertising. Stopping a stopped emitter is a no-op.
func (e *Emitter) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return nil
	}
	e.running = false
	if err := e.adv.StopAdvertising(); err != nil {
		e.log.Warn("stopping advertising", "error", err)
		return err
	}
	e.log.Info("advertising stopped", "local_name", e.current.LocalName)
	return nil
}

// Running reports whether the emitter is advertising.
func (e *Emitter) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}
