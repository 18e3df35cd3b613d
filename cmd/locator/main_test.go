package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/beaconloc/presence/internal/infrastructure/config"
	"github.com/beaconloc/presence/internal/infrastructure/logging"
	"github.com/beaconloc/presence/internal/presence"
	"github.com/beaconloc/presence/internal/radio"
	"github.com/beaconloc/presence/internal/radio/fake"
	"github.com/beaconloc/presence/internal/scan"
)

type fakeRadio struct {
	*fake.Scanner
	*fake.Authorizer

	// fixed makes Reauthorize restore the grant.
	fixed   atomic.Bool
	reauths atomic.Int32
}

func newFakeRadio(granted bool) *fakeRadio {
	return &fakeRadio{Scanner: &fake.Scanner{}, Authorizer: fake.NewAuthorizer(granted)}
}

func (r *fakeRadio) Reauthorize() error {
	r.reauths.Add(1)
	if !r.fixed.Load() {
		return radio.ErrUnauthorized
	}
	r.Set(true)
	return nil
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test", "test")
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("BEACONLOC_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestRun_RadioUnavailable(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "http://127.0.0.1:1/submit-data")

	orig := openRadio
	defer func() { openRadio = orig }()
	openRadio = func() (scanRadio, error) { return nil, radio.ErrUnsupported }

	err := run(context.Background())
	if !errors.Is(err, radio.ErrUnsupported) {
		t.Fatalf("run() error = %v, want ErrUnsupported", err)
	}
}

func TestRun_ReportsResolvedRoom(t *testing.T) {
	var (
		mu      sync.Mutex
		reports []presence.IngestPayload
	)
	hub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p presence.IngestPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		reports = append(reports, p)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer hub.Close()

	dir := t.TempDir()
	writeConfig(t, dir, hub.URL+"/submit-data")

	rdo := newFakeRadio(true)
	orig := openRadio
	defer func() { openRadio = orig }()
	openRadio = func() (scanRadio, error) { return rdo, nil }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()

	var got presence.IngestPayload
	eventually(t, "a Room 2 report", func() bool {
		// Windows re-arm every 50ms; keep the beacon on the air.
		rdo.Emit(radio.Detection{Address: "aa", Name: "RoomBeacon2"})
		mu.Lock()
		defer mu.Unlock()
		for _, p := range reports {
			if p.Room == "Room 2" {
				got = p
				return true
			}
		}
		return false
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	if got.UserName != "Tester" || got.Status != presence.StatusAvailable || got.Floor == nil || *got.Floor != 1 {
		t.Errorf("report = %+v", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "identity.yaml")); err != nil {
		t.Errorf("identity file not written: %v", err)
	}
}

func TestSupervisorRebuildsController(t *testing.T) {
	rdo := newFakeRadio(false)
	clock := clockwork.NewFakeClock()
	cycles := make(chan scan.Snapshot, 1)

	sup := &supervisor{
		radio:        rdo,
		handler:      scan.CycleHandlerFunc(func(s scan.Snapshot) { cycles <- s }),
		cfg:          scan.Config{Interval: time.Hour},
		restartDelay: 5 * time.Second,
		clock:        clock,
		log:          testLogger(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.run(ctx) }()

	// Refused start waits for the restart delay.
	clock.BlockUntil(1)
	if rdo.Active() {
		t.Fatal("scan started without a grant")
	}
	rdo.Set(true)
	clock.Advance(5 * time.Second)
	eventually(t, "first scan", rdo.Active)

	// A radio failure halts the controller; the supervisor starts another.
	rdo.Fail(fmt.Errorf("%w: adapter reset", radio.ErrTransientRadio))
	clock.BlockUntil(1)
	if rdo.Active() {
		t.Error("receiver still on after failure")
	}
	clock.Advance(5 * time.Second)
	eventually(t, "second scan", rdo.Active)

	if starts, _ := rdo.Counts(); starts != 2 {
		t.Errorf("starts = %d, want 2", starts)
	}
	if sup.restarts != 2 {
		t.Errorf("restarts = %d, want 2", sup.restarts)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("run() error = %v", err)
	}
	if rdo.Active() {
		t.Error("receiver still on after shutdown")
	}
}

func TestSupervisorReauthorizesDeniedRadio(t *testing.T) {
	rdo := newFakeRadio(false)
	clock := clockwork.NewFakeClock()

	sup := &supervisor{
		radio:        rdo,
		handler:      scan.CycleHandlerFunc(func(scan.Snapshot) {}),
		cfg:          scan.Config{Interval: time.Hour},
		restartDelay: 5 * time.Second,
		clock:        clock,
		log:          testLogger(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.run(ctx) }()

	// Still denied after one attempt: the supervisor keeps waiting.
	clock.BlockUntil(1)
	clock.Advance(5 * time.Second)
	eventually(t, "first reauthorize", func() bool { return rdo.reauths.Load() == 1 })
	clock.BlockUntil(1)
	if rdo.Active() {
		t.Fatal("scan started while radio denied")
	}

	// The operator fixed the grant; only Reauthorize can pick it up.
	rdo.fixed.Store(true)
	clock.Advance(5 * time.Second)
	eventually(t, "scan after reauthorize", rdo.Active)

	if got := rdo.reauths.Load(); got != 2 {
		t.Errorf("reauths = %d, want 2", got)
	}
	if !rdo.Authorized() {
		t.Error("radio not authorized after Reauthorize")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("run() error = %v", err)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("BEACONLOC_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}
	t.Setenv("BEACONLOC_CONFIG", "/etc/beaconloc.yaml")
	if got := getConfigPath(); got != "/etc/beaconloc.yaml" {
		t.Errorf("getConfigPath() = %q", got)
	}
}

func writeConfig(t *testing.T, dir, reportURL string) {
	t.Helper()
	content := fmt.Sprintf(`
site:
  id: test-site

identity:
  file: %s
  name: Tester

locator:
  scan_interval: 50ms
  restart_delay: 50ms
  require_name: true
  available: true
  report_url: %s
  report_timeout: 1s
  queue_size: 4
  workers: 1

logging:
  level: error
  format: text
  output: stdout
`, filepath.Join(dir, "identity.yaml"), reportURL)

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("BEACONLOC_CONFIG", path)
}
