package shared

import "errors"

// ErrIdempotencyConflict indicates a duplicate idempotency key.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")
