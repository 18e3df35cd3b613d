package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/beaconloc/presence/internal/beacon"
	"github.com/beaconloc/presence/internal/infrastructure/config"
	"github.com/beaconloc/presence/internal/infrastructure/logging"
	"github.com/beaconloc/presence/internal/radio"
	"github.com/beaconloc/presence/internal/radio/fake"
)

// fakeRadio grants access on Reauthorize once the test allows it.
type fakeRadio struct {
	*fake.Advertiser
	*fake.Authorizer
	fixed bool
}

func (r *fakeRadio) Reauthorize() error {
	r.Set(r.fixed)
	return nil
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test", "test")
}

func TestAdvertiseWaitsForRetrySignal(t *testing.T) {
	rdo := &fakeRadio{Advertiser: &fake.Advertiser{}, Authorizer: fake.NewAuthorizer(false), fixed: true}
	e := beacon.NewEmitter(rdo, rdo)
	p := beacon.DefaultPayload(beacon.DefaultLocalName)

	ctx, cancel := context.WithCancel(context.Background())
	retry := make(chan os.Signal)
	done := make(chan error, 1)
	go func() { done <- advertise(ctx, e, p, rdo, retry, testLogger()) }()

	// The unbuffered send only completes once advertise is waiting.
	retry <- os.Interrupt

	deadline := time.Now().Add(2 * time.Second)
	for !e.Running() {
		if time.Now().After(deadline) {
			t.Fatal("emitter did not start after retry")
		}
		time.Sleep(time.Millisecond)
	}
	adv, ok := rdo.Current()
	if !ok || adv.LocalName != beacon.DefaultLocalName || adv.ManufacturerID != beacon.DefaultManufacturerID {
		t.Errorf("advertisement = %+v, %v", adv, ok)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("advertise() error = %v", err)
	}
	if _, ok := rdo.Current(); ok {
		t.Error("still advertising after shutdown")
	}
}

func TestAdvertiseStopsWhileUnauthorized(t *testing.T) {
	rdo := &fakeRadio{Advertiser: &fake.Advertiser{}, Authorizer: fake.NewAuthorizer(false)}
	e := beacon.NewEmitter(rdo, rdo)

	ctx, cancel := context.WithCancel(context.Background())
	retry := make(chan os.Signal)
	done := make(chan error, 1)
	go func() { done <- advertise(ctx, e, beacon.DefaultPayload("Lab"), rdo, retry, testLogger()) }()

	// Grant still missing after the retry.
	retry <- os.Interrupt
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("advertise() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("advertise did not return")
	}
	if rdo.Starts() != 0 {
		t.Errorf("starts = %d, want 0", rdo.Starts())
	}
}

func TestAdvertiseFatalError(t *testing.T) {
	rdo := &fakeRadio{
		Advertiser: &fake.Advertiser{StartErr: radio.ErrFeatureUnsupported},
		Authorizer: fake.NewAuthorizer(true),
	}
	e := beacon.NewEmitter(rdo, rdo)

	err := advertise(context.Background(), e, beacon.DefaultPayload("Lab"), rdo, nil, testLogger())
	if !errors.Is(err, radio.ErrFeatureUnsupported) {
		t.Errorf("advertise() error = %v, want ErrFeatureUnsupported", err)
	}
}

func TestRun_InvalidPayload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
site:
  id: test-site
beacon:
  local_name: AVeryLongBeaconNameThatCannotFit
  manufacturer_id: 65535
  payload: "01020304"
logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BEACONLOC_CONFIG", path)

	orig := openRadio
	defer func() { openRadio = orig }()
	openRadio = func() (advertRadio, error) {
		t.Fatal("radio opened for an invalid payload")
		return nil, nil
	}

	if err := run(context.Background()); !errors.Is(err, radio.ErrPayloadTooLarge) {
		t.Errorf("run() error = %v, want ErrPayloadTooLarge", err)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("BEACONLOC_CONFIG", "/nonexistent/path/config.yaml")
	if err := run(context.Background()); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}
