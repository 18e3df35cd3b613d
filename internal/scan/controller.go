package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/beaconloc/presence/internal/radio"
)

// DefaultInterval is the length of one scan window.
const DefaultInterval = 10 * time.Second

// inboxSize buffers detections delivered while the loop is busy, including
// any a scanner reports synchronously from StartScan.
const inboxSize = 64

// CycleHandler resolves and reports a completed cycle. It runs synchronously
// on the controller's loop; the next scan window opens when it returns.
type CycleHandler interface {
	HandleCycle(Snapshot)
}

// CycleHandlerFunc adapts a function to CycleHandler.
type CycleHandlerFunc func(Snapshot)

// HandleCycle calls f.
func (f CycleHandlerFunc) HandleCycle(s Snapshot) { f(s) }

// Logger is the logging interface used by the controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config tunes a Controller. Zero values pick defaults.
type Config struct {
	// Interval is the scan window length. Default DefaultInterval.
	Interval time.Duration

	// RequireName drops detections without a display name.
	RequireName bool

	// Clock drives the cycle timer. Default is the real clock.
	Clock clockwork.Clock

	// Logger receives lifecycle and failure events.
	Logger Logger

	// OnTransition, when set, is called after every state change with the
	// visible set size at that moment. It must not call back into the
	// controller.
	OnTransition func(from, to State, visible int)
}

// Stats are cumulative controller counters.
type Stats struct {
	Cycles    uint64 // completed drains
	Observed  uint64 // detections accepted into a visible set
	Duplicate uint64 // repeat addresses within a cycle
	Ignored   uint64 // nameless detections dropped by RequireName
	Stale     uint64 // detections that arrived for a closed window
}

type inbound struct {
	window uint64
	det    radio.Detection
	err    error
}

// Controller runs the scan/drain/rearm cycle against a radio.Scanner.
//
// All cycle state, including the VisibleSet, is owned by a single loop
// goroutine. Radio callbacks, Observe and Stop only post to it. Callbacks
// never wait on the loop once their window has closed, so a scanner may keep
// calling them until StopScan returns.
//
// Thread Safety:
//   - Start, Stop, RequestStop, Observe, State, Err and Stats are safe for
//     concurrent use.
type Controller struct {
	scanner radio.Scanner
	auth    radio.Authorizer
	handler CycleHandler
	cfg     Config
	clock   clockwork.Clock
	log     Logger

	mu    sync.Mutex
	state State
	err   error

	stopRequested atomic.Bool
	running       atomic.Bool
	window        atomic.Uint64 // identifies the open scan window

	inbox    chan inbound
	errs     chan inbound // one pending radio error at most
	stopCh   chan struct{}
	done     chan struct{}
	doneOnce sync.Once

	visible *VisibleSet

	winMu   sync.Mutex
	winStop chan struct{} // closed when the open window ends

	cycles, observed, duplicate, ignored, stale atomic.Uint64
}

// NewController builds an idle controller.
func NewController(scanner radio.Scanner, auth radio.Authorizer, handler CycleHandler, cfg Config) *Controller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	if auth == nil {
		auth = radio.StaticAuthorizer(true)
	}
	return &Controller{
		scanner: scanner,
		auth:    auth,
		handler: handler,
		cfg:     cfg,
		clock:   cfg.Clock,
		log:     cfg.Logger,
		state:   StateIdle,
		inbox:   make(chan inbound, inboxSize),
		errs:    make(chan inbound, 1),
		stopCh:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		visible: NewVisibleSet(),
	}
}

// Start moves Idle to Scanning and launches the loop.
//
// Returns:
//   - radio.ErrUnauthorized when the grant is missing; the controller stays Idle
//   - ErrAlreadyStarted when the controller has left Idle
//   - the scanner's error when the receiver cannot be turned on; stays Idle
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return fmt.Errorf("%w (state %s)", ErrAlreadyStarted, c.state)
	}
	if !c.auth.Authorized() {
		c.log.Warn("scan start refused", "error", radio.ErrUnauthorized)
		return radio.ErrUnauthorized
	}
	c.running.Store(true)
	if err := c.openWindow(); err != nil {
		c.running.Store(false)
		return fmt.Errorf("starting receiver: %w", err)
	}

	c.setStateLocked(EventStart)
	go c.run(ctx)

	c.log.Info("scan cycle started", "interval", c.cfg.Interval)
	return nil
}

// Stop drives the controller to Stopped and waits until the receiver is off.
// Safe from any state and any goroutine except the CycleHandler, which must
// use RequestStop.
func (c *Controller) Stop() {
	c.RequestStop()
	<-c.done
}

// RequestStop asks for Stopped without waiting. Takes effect before the
// next window opens.
func (c *Controller) RequestStop() {
	c.stopRequested.Store(true)

	c.mu.Lock()
	if c.state == StateIdle {
		c.setStateLocked(EventStop)
		c.mu.Unlock()
		c.closeDone()
		return
	}
	c.mu.Unlock()

	select {
	case c.stopCh <- struct{}{}:
	default:
	}
}

// Done is closed once the controller reaches Stopped.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Err returns why the controller stopped on its own. It wraps
// radio.ErrTransientRadio for receiver failures and is nil after Stop.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats returns a copy of the counters.
func (c *Controller) Stats() Stats {
	return Stats{
		Cycles:    c.cycles.Load(),
		Observed:  c.observed.Load(),
		Duplicate: c.duplicate.Load(),
		Ignored:   c.ignored.Load(),
		Stale:     c.stale.Load(),
	}
}

// Observe injects a detection into the current scan window. Detections
// outside Scanning are discarded.
func (c *Controller) Observe(d radio.Detection) {
	c.winMu.Lock()
	stop := c.winStop
	c.winMu.Unlock()

	if stop == nil || c.State() != StateScanning {
		c.stale.Add(1)
		return
	}
	c.post(inbound{window: c.window.Load(), det: d}, stop)
}

// post hands a detection to the loop. It gives up once the window closes.
func (c *Controller) post(in inbound, stop <-chan struct{}) {
	if !c.running.Load() {
		return
	}
	select {
	case c.inbox <- in:
	case <-stop:
		c.stale.Add(1)
	case <-c.done:
	}
}

// postErr never blocks. A second error while one is pending is dropped;
// either one halts the window.
func (c *Controller) postErr(in inbound, stop <-chan struct{}) {
	if !c.running.Load() {
		return
	}
	select {
	case c.errs <- in:
	case <-stop:
	case <-c.done:
	default:
		c.log.Debug("radio error dropped, one already pending", "error", in.err)
	}
}

// openWindow clears the set and turns the receiver on for a new window.
// Callbacks are bound to the window so late deliveries are recognisable.
func (c *Controller) openWindow() error {
	c.visible.Clear()

	stop := make(chan struct{})
	c.winMu.Lock()
	c.winStop = stop
	c.winMu.Unlock()

	window := c.window.Add(1)
	err := c.scanner.StartScan(
		func(d radio.Detection) { c.post(inbound{window: window, det: d}, stop) },
		func(err error) { c.postErr(inbound{window: window, err: err}, stop) },
	)
	if err != nil {
		c.closeWindow()
	}
	return err
}

// closeWindow releases callbacks still waiting on the loop. It must run
// before StopScan, which may wait for those callbacks to return.
func (c *Controller) closeWindow() {
	c.winMu.Lock()
	if c.winStop != nil {
		close(c.winStop)
		c.winStop = nil
	}
	c.winMu.Unlock()
}

func (c *Controller) run(ctx context.Context) {
	defer c.closeDone()

	timer := c.clock.NewTimer(c.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			c.halt(EventStop, nil)
			return

		case <-c.stopCh:
			c.halt(EventStop, nil)
			return

		case in := <-c.errs:
			if !c.receive(in) {
				return
			}

		case in := <-c.inbox:
			if !c.receive(in) {
				return
			}

		case <-timer.Chan():
			// Deliveries that beat the tick belong to the closing window.
			if !c.flush() {
				return
			}
			if c.stopRequested.Load() {
				c.halt(EventStop, nil)
				return
			}
			if !c.drainAndRearm() {
				return
			}
			timer.Reset(c.cfg.Interval)
		}
	}
}

// receive applies one delivery. Returns false when the loop must exit.
func (c *Controller) receive(in inbound) bool {
	if in.window != c.window.Load() || c.State() != StateScanning {
		c.stale.Add(1)
		return true
	}
	if in.err != nil {
		c.log.Warn("radio error during scan", "error", in.err)
		c.halt(EventRadioError, in.err)
		return false
	}
	c.accept(in.det)
	return true
}

// flush applies everything already queued without waiting for more.
func (c *Controller) flush() bool {
	for {
		select {
		case in := <-c.errs:
			if !c.receive(in) {
				return false
			}
		case in := <-c.inbox:
			if !c.receive(in) {
				return false
			}
		default:
			return true
		}
	}
}

func (c *Controller) accept(d radio.Detection) {
	if c.cfg.RequireName && d.Name == "" {
		c.ignored.Add(1)
		return
	}
	at := d.At
	if at.IsZero() {
		at = c.clock.Now()
	}
	if c.visible.Upsert(Sighting{Address: d.Address, DisplayName: d.Name, FirstSeenAt: at}) {
		c.observed.Add(1)
		c.log.Debug("device sighted", "address", d.Address, "name", d.Name)
		return
	}
	c.duplicate.Add(1)
}

// drainAndRearm runs Scanning -> Draining -> Scanning (or Stopped).
// Returns false when the loop must exit.
func (c *Controller) drainAndRearm() bool {
	c.setState(EventTick)

	c.closeWindow()
	if err := c.scanner.StopScan(); err != nil {
		c.log.Warn("stopping receiver for drain", "error", err)
	}

	snap := c.visible.Snapshot()
	c.handler.HandleCycle(snap)
	c.visible.Clear()
	c.cycles.Add(1)
	c.log.Debug("scan cycle drained", "visible", len(snap))

	if c.stopRequested.Load() {
		c.setState(EventStop)
		c.log.Info("scan cycle stopped after drain", "cycles", c.cycles.Load())
		return false
	}

	if err := c.openWindow(); err != nil {
		c.log.Warn("restarting receiver", "error", err)
		c.fail(EventRadioError, err)
		return false
	}
	c.setState(EventRearm)
	return true
}

// halt turns the receiver off and enters Stopped.
func (c *Controller) halt(e Event, cause error) {
	c.closeWindow()
	if c.State() == StateScanning {
		if err := c.scanner.StopScan(); err != nil {
			c.log.Warn("stopping receiver", "error", err)
		}
	}
	c.visible.Clear()
	if cause != nil {
		c.fail(e, cause)
		return
	}
	c.setState(e)
	c.log.Info("scan cycle stopped", "cycles", c.cycles.Load())
}

func (c *Controller) fail(e Event, cause error) {
	c.mu.Lock()
	if errors.Is(cause, radio.ErrTransientRadio) {
		c.err = cause
	} else {
		c.err = fmt.Errorf("%w: %w", radio.ErrTransientRadio, cause)
	}
	c.setStateLocked(e)
	c.mu.Unlock()
	c.log.Error("scan cycle halted by radio failure", "error", cause)
}

func (c *Controller) setState(e Event) {
	c.mu.Lock()
	c.setStateLocked(e)
	c.mu.Unlock()
}

func (c *Controller) setStateLocked(e Event) {
	from := c.state
	to, err := Next(from, e)
	if err != nil {
		c.log.Error("scan state machine rejected event", "error", err)
		return
	}
	c.state = to
	if c.cfg.OnTransition != nil {
		c.cfg.OnTransition(from, to, c.visible.Len())
	}
}

func (c *Controller) closeDone() {
	c.doneOnce.Do(func() {
		c.running.Store(false)
		close(c.done)
	})
}
