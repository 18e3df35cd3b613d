// Package fake provides an in-memory radio for tests and hardware-free runs.
package fake

import (
	"sync"

	"github.com/beaconloc/presence/internal/radio"
)

// Scanner is a radio.Scanner driven by the test.
type Scanner struct {
	mu       sync.Mutex
	active   bool
	onDetect func(radio.Detection)
	onError  func(error)
	starts   int
	stops    int

	// StartErr, when set, is returned by the next StartScan calls.
	StartErr error
}

// StartScan records the callbacks. It fails with StartErr if set.
func (s *Scanner) StartScan(onDetect func(radio.Detection), onError func(error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StartErr != nil {
		return s.StartErr
	}
	s.active = true
	s.onDetect, s.onError = onDetect, onError
	s.starts++
	return nil
}

// StopScan turns the receiver off.
func (s *Scanner) StopScan() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.stops++
	return nil
}

// Emit delivers d if the receiver is on and reports whether it was delivered.
// It blocks until the consumer accepts the detection.
func (s *Scanner) Emit(d radio.Detection) bool {
	s.mu.Lock()
	active, cb := s.active, s.onDetect
	s.mu.Unlock()
	if !active || cb == nil {
		return false
	}
	cb(d)
	return true
}

// Fail reports an asynchronous radio error to the active scan.
func (s *Scanner) Fail(err error) bool {
	s.mu.Lock()
	active, cb := s.active, s.onError
	s.mu.Unlock()
	if !active || cb == nil {
		return false
	}
	cb(err)
	return true
}

// SetStartErr changes StartErr under the lock.
func (s *Scanner) SetStartErr(err error) {
	s.mu.Lock()
	s.StartErr = err
	s.mu.Unlock()
}

// Active reports whether the receiver is on.
func (s *Scanner) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Counts returns how many times StartScan succeeded and StopScan was called.
func (s *Scanner) Counts() (starts, stops int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts, s.stops
}

// Advertiser is a radio.Advertiser that remembers what it was asked to send.
type Advertiser struct {
	mu      sync.Mutex
	current *radio.Advertisement
	started int

	// StartErr, when set, is returned by StartAdvertising.
	StartErr error
}

// StartAdvertising records adv unless StartErr is set.
func (a *Advertiser) StartAdvertising(adv radio.Advertisement) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.StartErr != nil {
		return a.StartErr
	}
	a.current = &adv
	a.started++
	return nil
}

// StopAdvertising clears the current advertisement.
func (a *Advertiser) StopAdvertising() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = nil
	return nil
}

// Current returns the advertisement on the air, if any.
func (a *Advertiser) Current() (radio.Advertisement, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return radio.Advertisement{}, false
	}
	return *a.current, true
}

// Starts returns the number of successful StartAdvertising calls.
func (a *Advertiser) Starts() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.started
}

// Authorizer is a switchable radio.Authorizer.
type Authorizer struct {
	mu      sync.Mutex
	granted bool
}

// NewAuthorizer returns an Authorizer with the given initial grant.
func NewAuthorizer(granted bool) *Authorizer {
	return &Authorizer{granted: granted}
}

// Authorized reports the current grant.
func (a *Authorizer) Authorized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.granted
}

// Set changes the grant.
func (a *Authorizer) Set(granted bool) {
	a.mu.Lock()
	a.granted = granted
	a.mu.Unlock()
}

var (
	_ radio.Scanner    = (*Scanner)(nil)
	_ radio.Advertiser = (*Advertiser)(nil)
	_ radio.Authorizer = (*Authorizer)(nil)
)
