package idempotency

import (
	"errors"
	"fmt"
)

// Service errors
var (
	ErrDuplicateRequest = errors.New("duplicate request in flight")
	ErrTooManyPending   = errors.New("too many pending transactions")
)

// DuplicateError reports the ledger entry the new request collides with.
type DuplicateError struct {
	ExistingID uint
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate of transaction %d", e.ExistingID)
}

func (e *DuplicateError) Unwrap() error {
	return ErrDuplicateRequest
}
