//go:build linux

package bluez

import (
	"fmt"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/beaconloc/presence/internal/radio"
)

// scanBuffer bounds detections waiting for the consumer. The adapter
// callback never blocks; overflow is dropped and counted.
const scanBuffer = 64

// Radio is a BlueZ adapter exposed as radio.Scanner, radio.Advertiser
// and radio.Authorizer.
type Radio struct {
	adapter *bluetooth.Adapter

	mu          sync.Mutex
	enabled     bool
	denied      bool
	scanning    bool
	scanDone    chan struct{}
	adv         *bluetooth.Advertisement
	advertising bool
	dropped     uint64
}

// Open enables the default adapter.
//
// Returns:
//   - *Radio: ready adapter
//   - error: wrapping radio.ErrUnsupported when no usable adapter exists
func Open() (*Radio, error) {
	r := &Radio{adapter: bluetooth.DefaultAdapter}
	if err := r.enable(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Radio) enable() error {
	if err := r.adapter.Enable(); err != nil {
		return fmt.Errorf("%w: enabling adapter: %w", radio.ErrUnsupported, err)
	}
	r.mu.Lock()
	r.enabled = true
	r.denied = false
	r.mu.Unlock()
	return nil
}

// Authorized reports whether the adapter is enabled and BlueZ has not
// refused an operation for lack of permission since the last Reauthorize.
func (r *Radio) Authorized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled && !r.denied
}

// Reauthorize re-enables the adapter after the operator fixed the grant.
func (r *Radio) Reauthorize() error {
	return r.enable()
}

// Dropped returns how many detections were discarded because the consumer
// fell behind.
func (r *Radio) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// StartScan starts discovery in the background. Detections are forwarded to
// onDetect on a dedicated goroutine so a slow consumer cannot stall D-Bus.
func (r *Radio) StartScan(onDetect func(radio.Detection), onError func(error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scanning {
		return radio.ErrAlreadyStarted
	}

	found := make(chan radio.Detection, scanBuffer)
	scanDone := make(chan struct{})
	r.scanning = true
	r.scanDone = scanDone

	go func() {
		defer close(scanDone)
		defer close(found)
		err := r.adapter.Scan(func(_ *bluetooth.Adapter, res bluetooth.ScanResult) {
			d := radio.Detection{
				Address: res.Address.String(),
				Name:    res.LocalName(),
				RSSI:    res.RSSI,
				At:      time.Now(),
			}
			select {
			case found <- d:
			default:
				r.mu.Lock()
				r.dropped++
				r.mu.Unlock()
			}
		})
		if err != nil && onError != nil {
			onError(r.classify(err))
		}
	}()

	go func() {
		for d := range found {
			onDetect(d)
		}
	}()

	return nil
}

// StopScan stops discovery and waits for the adapter's scan loop to exit.
// Detections already buffered may still reach onDetect afterwards.
func (r *Radio) StopScan() error {
	r.mu.Lock()
	if !r.scanning {
		r.mu.Unlock()
		return nil
	}
	r.scanning = false
	done := r.scanDone
	r.mu.Unlock()

	err := r.adapter.StopScan()
	<-done
	if err != nil {
		return r.classify(err)
	}
	return nil
}

// StartAdvertising configures and starts the default advertisement.
func (r *Radio) StartAdvertising(a radio.Advertisement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.advertising {
		return radio.ErrAlreadyStarted
	}

	advType := bluetooth.AdvertisingTypeNonConnInd
	if a.Connectable {
		advType = bluetooth.AdvertisingTypeInd
	}

	adv := r.adapter.DefaultAdvertisement()
	err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:         a.LocalName,
		AdvertisementType: advType,
		ManufacturerData: []bluetooth.ManufacturerDataElement{
			{CompanyID: a.ManufacturerID, Data: a.Data},
		},
	})
	if err != nil {
		return r.classifyLocked(err)
	}
	if err := adv.Start(); err != nil {
		return r.classifyLocked(err)
	}

	r.adv = adv
	r.advertising = true
	return nil
}

// StopAdvertising stops the advertisement. No-op when not advertising.
func (r *Radio) StopAdvertising() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.advertising {
		return nil
	}
	r.advertising = false
	if err := r.adv.Stop(); err != nil {
		return r.classifyLocked(err)
	}
	return nil
}

func (r *Radio) classify(err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.classifyLocked(err)
}

func (r *Radio) classifyLocked(err error) error {
	class := Classify(err)
	if class == radio.ErrUnauthorized {
		r.denied = true
	}
	return fmt.Errorf("%w: %w", class, err)
}

var (
	_ radio.Scanner    = (*Radio)(nil)
	_ radio.Advertiser = (*Radio)(nil)
	_ radio.Authorizer = (*Radio)(nil)
)
