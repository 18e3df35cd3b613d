package presence

import "errors"

var (
	// ErrDeliveryFailure marks a report that did not reach the ingestion endpoint.
	ErrDeliveryFailure = errors.New("presence: delivery failure")

	// ErrQueueFull is returned when the dispatch queue has no room.
	ErrQueueFull = errors.New("presence: dispatch queue full")

	// ErrReporterClosed is returned after Close.
	ErrReporterClosed = errors.New("presence: reporter closed")

	// ErrInvalidReport is returned for an ingestion payload missing fields or
	// carrying an unknown status.
	ErrInvalidReport = errors.New("presence: invalid report")

	// ErrInvalidIdentity is returned for an identity file with a malformed id.
	ErrInvalidIdentity = errors.New("presence: invalid identity")
)
