package beacon

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/beaconloc/presence/internal/radio"
	"github.com/beaconloc/presence/internal/radio/fake"
)

type countingLogger struct {
	warns, errors int
}

func (l *countingLogger) Info(string, ...any)  {}
func (l *countingLogger) Warn(string, ...any)  { l.warns++ }
func (l *countingLogger) Error(string, ...any) { l.errors++ }

func TestDefaultPayload(t *testing.T) {
	p := DefaultPayload("")
	if p.LocalName != DefaultLocalName || p.ManufacturerID != 0xFFFF {
		t.Errorf("DefaultPayload() = %+v", p)
	}
	if !bytes.Equal(p.Data, []byte{1, 2, 3, 4}) {
		t.Errorf("Data = %x, want 01020304", p.Data)
	}

	p.Data[0] = 9
	if DefaultData[0] != 1 {
		t.Error("DefaultPayload shares DefaultData")
	}
}

func TestPayloadValidate(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		wantErr bool
	}{
		{"default", DefaultPayload("RoomBeacon1"), false},
		// 3 + (2+18) + (2+2+4) = 31
		{"exactly full", Payload{LocalName: strings.Repeat("x", 18), Data: []byte{1, 2, 3, 4}}, false},
		{"one over", Payload{LocalName: strings.Repeat("x", 19), Data: []byte{1, 2, 3, 4}}, true},
		{"no name", Payload{Data: make([]byte, 24)}, false},
		{"data too long", Payload{Data: make([]byte, 25)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v (size %d)", err, tt.wantErr, tt.payload.Size())
			}
			if err != nil && !errors.Is(err, radio.ErrPayloadTooLarge) {
				t.Errorf("error = %v, want ErrPayloadTooLarge", err)
			}
		})
	}
}

func TestEmitterLifecycle(t *testing.T) {
	adv := &fake.Advertiser{}
	e := NewEmitter(adv, nil)

	if err := e.Start(context.Background(), DefaultPayload("RoomBeacon3")); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !e.Running() {
		t.Error("Running() = false after Start")
	}
	got, ok := adv.Current()
	if !ok || got.LocalName != "RoomBeacon3" || got.ManufacturerID != 0xFFFF || got.Connectable {
		t.Errorf("advertisement = %+v, %v", got, ok)
	}

	if err := e.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
	if e.Running() {
		t.Error("Running() = true after Stop")
	}
	if _, ok := adv.Current(); ok {
		t.Error("advertisement still on the air")
	}
}

func TestEmitterStartTwice(t *testing.T) {
	adv := &fake.Advertiser{}
	log := &countingLogger{}
	e := NewEmitter(adv, nil)
	e.SetLogger(log)

	if err := e.Start(context.Background(), DefaultPayload("")); err != nil {
		t.Fatal(err)
	}
	err := e.Start(context.Background(), DefaultPayload(""))
	if !errors.Is(err, radio.ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
	if log.warns != 1 || log.errors != 0 {
		t.Errorf("warns=%d errors=%d, want 1/0", log.warns, log.errors)
	}
	if adv.Starts() != 1 || !e.Running() {
		t.Errorf("Starts()=%d Running()=%v", adv.Starts(), e.Running())
	}
}

func TestEmitterFailures(t *testing.T) {
	tests := []struct {
		name    string
		auth    radio.Authorizer
		backend error
		payload Payload
		wantErr error
	}{
		{"unauthorized", radio.StaticAuthorizer(false), nil, DefaultPayload(""), radio.ErrUnauthorized},
		{"too large", nil, nil, Payload{LocalName: strings.Repeat("n", 40)}, radio.ErrPayloadTooLarge},
		{"unsupported", nil, radio.ErrUnsupported, DefaultPayload(""), radio.ErrUnsupported},
		{"too many advertisers", nil, radio.ErrResourceExhausted, DefaultPayload(""), radio.ErrResourceExhausted},
		{"internal", nil, radio.ErrInternal, DefaultPayload(""), radio.ErrInternal},
		{"feature unsupported", nil, radio.ErrFeatureUnsupported, DefaultPayload(""), radio.ErrFeatureUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adv := &fake.Advertiser{StartErr: tt.backend}
			log := &countingLogger{}
			e := NewEmitter(adv, tt.auth)
			e.SetLogger(log)

			err := e.Start(context.Background(), tt.payload)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Start() error = %v, want %v", err, tt.wantErr)
			}
			if e.Running() {
				t.Error("Running() = true after failed Start")
			}
			if log.errors != 1 {
				t.Errorf("errors logged = %d, want 1", log.errors)
			}
		})
	}
}

func TestEmitterRetryAfterGrant(t *testing.T) {
	auth := fake.NewAuthorizer(false)
	e := NewEmitter(&fake.Advertiser{}, auth)

	if err := e.Start(context.Background(), DefaultPayload("")); !errors.Is(err, radio.ErrUnauthorized) {
		t.Fatalf("Start() error = %v", err)
	}
	auth.Set(true)
	if err := e.Start(context.Background(), DefaultPayload("")); err != nil {
		t.Errorf("Start() after grant error = %v", err)
	}
}

func TestEmitterCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEmitter(&fake.Advertiser{}, nil)
	if err := e.Start(ctx, DefaultPayload("")); !errors.Is(err, context.Canceled) {
		t.Errorf("Start() error = %v, want context.Canceled", err)
	}
}
