//go:build !linux

package bluez

import (
	"fmt"
	"runtime"

	"github.com/beaconloc/presence/internal/radio"
)

// Radio is unavailable off Linux.
type Radio struct{}

// Open always fails with radio.ErrUnsupported on this platform.
func Open() (*Radio, error) {
	return nil, fmt.Errorf("%w: BlueZ requires linux, running on %s", radio.ErrUnsupported, runtime.GOOS)
}

func (*Radio) Authorized() bool { return false }
func (*Radio) Reauthorize() error { return radio.ErrUnsupported }
func (*Radio) Dropped() uint64 { return 0 }
func (*Radio) StartScan(func(radio.Detection), func(error)) error { return radio.ErrUnsupported }
func (*Radio) StopScan() error { return nil }
func (*Radio) StartAdvertising(radio.Advertisement) error { return radio.ErrUnsupported }
func (*Radio) StopAdvertising() error { return nil }
