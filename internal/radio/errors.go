package radio

import "errors"

// Failure classes shared by every backend. Backends wrap the platform error
// with one of these so callers can branch with errors.Is.
var (
	// ErrUnsupported indicates the radio capability is absent on this host.
	// Fatal to the feature, not the process.
	ErrUnsupported = errors.New("radio: capability unavailable")

	// ErrPayloadTooLarge indicates the advertisement does not fit the PDU.
	ErrPayloadTooLarge = errors.New("radio: advertising payload too large")

	// ErrResourceExhausted indicates too many concurrent advertisers.
	ErrResourceExhausted = errors.New("radio: too many advertisers")

	// ErrInternal is an unclassified platform failure.
	ErrInternal = errors.New("radio: internal error")

	// ErrFeatureUnsupported indicates the adapter lacks a requested feature.
	ErrFeatureUnsupported = errors.New("radio: feature unsupported")

	// ErrUnauthorized indicates a missing platform grant. Recoverable once
	// granted; the caller must start again.
	ErrUnauthorized = errors.New("radio: not authorized")

	// ErrAlreadyStarted is returned when starting something already running.
	ErrAlreadyStarted = errors.New("radio: already started")

	// ErrTransientRadio wraps a mid-scan failure. Recovered by stop and restart.
	ErrTransientRadio = errors.New("radio: transient failure")
)

// ErrCapabilityUnavailable is the taxonomy name for ErrUnsupported.
var ErrCapabilityUnavailable = ErrUnsupported
