package presence

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/beaconloc/presence/internal/location"
	"github.com/beaconloc/presence/internal/radio"
	"github.com/beaconloc/presence/internal/radio/fake"
	"github.com/beaconloc/presence/internal/scan"
)

func TestCycleReporterResolvesAndReports(t *testing.T) {
	got := make(chan Report, 4)
	r := NewReporter(SenderFunc(func(_ context.Context, rep Report) error {
		got <- rep
		return nil
	}), ReporterConfig{})
	defer closeReporter(t, r)

	h := &CycleReporter{
		Identity:     Identity{ID: "u1", Name: "Asha"},
		Table:        location.NewTable(map[string]location.Label{"BeaconA": {Room: "Room 1", Floor: 1}}),
		Reporter:     r,
		Availability: NewAvailability(true),
	}

	h.HandleCycle(scan.Snapshot{
		{Address: "aa:bb", DisplayName: "BeaconA"},
		{Address: "cc:dd", DisplayName: "Unknown"},
	})
	if rep := <-got; rep.Room != "Room 1" || rep.Floor != 1 || rep.SubjectID != "u1" {
		t.Errorf("report = %+v", rep)
	}

	// An empty cycle still reports, as Unknown.
	h.HandleCycle(nil)
	if rep := <-got; rep.Room != location.UnknownRoom || rep.Floor != -1 {
		t.Errorf("empty cycle report = %+v", rep)
	}

	h.Availability.Set(false)
	h.HandleCycle(scan.Snapshot{{Address: "aa:bb", DisplayName: "BeaconA"}})
	if r.Stats().Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", r.Stats().Skipped)
	}
}

// A report stuck on the network must not delay the next scan window.
func TestSlowDeliveryKeepsCycleOnSchedule(t *testing.T) {
	const interval = 10 * time.Second
	clock := clockwork.NewFakeClock()
	release := make(chan struct{})
	log := &recordingLogger{}

	r := NewReporter(SenderFunc(func(ctx context.Context, _ Report) error {
		select {
		case <-release:
			return context.DeadlineExceeded
		case <-ctx.Done():
			return ctx.Err()
		}
	}), ReporterConfig{Workers: 1, QueueSize: 4, Logger: log})

	handled := make(chan struct{}, 4)
	cr := &CycleReporter{
		Identity:     Identity{ID: "u1", Name: "Asha"},
		Table:        location.DefaultRegistry().Table(),
		Reporter:     r,
		Availability: NewAvailability(true),
	}
	scanner := &fake.Scanner{}
	ctrl := scan.NewController(scanner, nil, scan.CycleHandlerFunc(func(s scan.Snapshot) {
		cr.HandleCycle(s)
		handled <- struct{}{}
	}), scan.Config{Interval: interval, Clock: clock})

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer ctrl.Stop()

	for cycle := range 3 {
		clock.BlockUntil(1)
		scanner.Emit(radio.Detection{Address: "aa:bb", Name: "RoomBeacon1"})
		clock.Advance(interval)
		select {
		case <-handled:
		case <-time.After(2 * time.Second):
			t.Fatalf("cycle %d did not complete while delivery was blocked", cycle)
		}
	}

	if s := r.Stats(); s.Dispatched != 3 || s.Delivered != 0 {
		t.Errorf("Stats() = %+v", s)
	}

	close(release)
	closeReporter(t, r)
	if r.Stats().Failed != 3 {
		t.Errorf("Failed = %d, want 3", r.Stats().Failed)
	}
	if len(log.errorsAt("warn")) != 3 {
		t.Errorf("logged %d delivery failures, want 3", len(log.errorsAt("warn")))
	}
}
