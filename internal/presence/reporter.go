package presence

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"

	"github.com/beaconloc/presence/internal/location"
)

// Reporter defaults.
const (
	DefaultQueueSize = 16
	DefaultWorkers   = 2
)

// Sender delivers one report. Implementations must honour ctx.
type Sender interface {
	Send(ctx context.Context, r Report) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, r Report) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, r Report) error { return f(ctx, r) }

// Logger is the logging interface used by the reporter.
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

// ReporterConfig tunes a Reporter. Zero values pick defaults.
type ReporterConfig struct {
	QueueSize int
	Workers   int
	Clock     clockwork.Clock
	Logger    Logger
}

// ReporterStats are cumulative counters.
type ReporterStats struct {
	Dispatched uint64 `json:"dispatched"` // accepted into the queue
	Delivered  uint64 `json:"delivered"`
	Failed     uint64 `json:"failed"`  // sender returned an error
	Dropped    uint64 `json:"dropped"` // queue full or reporter closed
	Skipped    uint64 `json:"skipped"` // cycle completed while unavailable
}

// Reporter dispatches reports asynchronously and at most once.
//
// ReportCycle never blocks on the network: reports go into a bounded queue
// drained by worker goroutines. A full queue drops the report.
type Reporter struct {
	sender Sender
	clock  clockwork.Clock
	log    Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Report

	// base outlives the caller's contexts so in-flight sends are not cut
	// short by the scan controller stopping.
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	dispatched, delivered, failed, dropped, skipped atomic.Uint64
}

// NewReporter starts the workers.
func NewReporter(sender Sender, cfg ReporterConfig) *Reporter {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}

	base, cancel := context.WithCancel(context.Background())
	r := &Reporter{
		sender: sender,
		clock:  cfg.Clock,
		log:    cfg.Logger,
		queue:  make(chan Report, cfg.QueueSize),
		base:   base,
		cancel: cancel,
	}
	r.wg.Add(cfg.Workers)
	for range cfg.Workers {
		go r.worker()
	}
	return r
}

// ReportCycle builds and queues a report for one completed cycle. Nothing is
// dispatched when available is false. Failures are logged, never returned.
func (r *Reporter) ReportCycle(subjectID, subjectName string, label location.Label, available bool) {
	if !available {
		r.skipped.Add(1)
		r.log.Debug("report skipped, subject unavailable", "subject_id", subjectID)
		return
	}

	report := Report{
		SubjectID:   subjectID,
		SubjectName: subjectName,
		Room:        label.Room,
		Floor:       label.Floor,
		Available:   true,
		EmittedAt:   r.clock.Now(),
	}
	if err := r.Submit(report); err != nil {
		r.log.Warn("report dropped",
			"error", fmt.Errorf("%w: %w", ErrDeliveryFailure, err),
			"subject_id", subjectID,
			"room", label.Room,
		)
	}
}

// Submit queues a report without blocking.
//
// Returns:
//   - ErrQueueFull when the queue has no room
//   - ErrReporterClosed after Close
func (r *Reporter) Submit(report Report) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.dropped.Add(1)
		return ErrReporterClosed
	}
	select {
	case r.queue <- report:
		r.dispatched.Add(1)
		return nil
	default:
		r.dropped.Add(1)
		return ErrQueueFull
	}
}

// Close stops accepting reports and waits for queued and in-flight sends.
// When ctx expires first, outstanding sends are cancelled and ctx's error is
// returned. Safe to call more than once.
func (r *Reporter) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return ctx.Err()
	}
}

// Stats returns a copy of the counters.
func (r *Reporter) Stats() ReporterStats {
	return ReporterStats{
		Dispatched: r.dispatched.Load(),
		Delivered:  r.delivered.Load(),
		Failed:     r.failed.Load(),
		Dropped:    r.dropped.Load(),
		Skipped:    r.skipped.Load(),
	}
}

func (r *Reporter) worker() {
	defer r.wg.Done()
	for report := range r.queue {
		r.deliver(report)
	}
}

func (r *Reporter) deliver(report Report) {
	if err := r.sender.Send(r.base, report); err != nil {
		r.failed.Add(1)
		r.log.Warn("report delivery failed",
			"error", fmt.Errorf("%w: %w", ErrDeliveryFailure, err),
			"subject_id", report.SubjectID,
			"room", report.Room,
		)
		return
	}
	r.delivered.Add(1)
	r.log.Debug("report delivered", "subject_id", report.SubjectID, "room", report.Room)
}
