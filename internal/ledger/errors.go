package ledger

import "errors"

// ErrNoSubject is returned for a report without a subject id.
var ErrNoSubject = errors.New("ledger: report has no subject id")
