package radio

import "time"

// Detection is one received advertisement.
type Detection struct {
	// Address is the sender's opaque hardware identity (e.g. "AA:BB:CC:DD:EE:FF").
	Address string

	// Name is the advertised local name, empty when absent.
	Name string

	// RSSI is recorded for diagnostics only; nothing ranks by it.
	RSSI int16

	// At is when the radio delivered the detection.
	At time.Time
}

// Advertisement is what an emitter puts on the air.
type Advertisement struct {
	LocalName      string
	ManufacturerID uint16
	Data           []byte
	Connectable    bool
}

// Scanner is the receive side of the platform radio.
//
// StartScan must return promptly. onDetect and onError may be called from
// any goroutine until StopScan returns.
type Scanner interface {
	StartScan(onDetect func(Detection), onError func(error)) error
	StopScan() error
}

// Advertiser is the transmit side of the platform radio.
type Advertiser interface {
	StartAdvertising(Advertisement) error
	StopAdvertising() error
}

// Authorizer reports whether the platform grant needed for radio use is present.
type Authorizer interface {
	Authorized() bool
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func() bool

// Authorized calls f.
func (f AuthorizerFunc) Authorized() bool { return f() }

// StaticAuthorizer is an Authorizer with a fixed answer.
type StaticAuthorizer bool

// Authorized returns the fixed answer.
func (s StaticAuthorizer) Authorized() bool { return bool(s) }
