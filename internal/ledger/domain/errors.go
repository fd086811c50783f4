package ledger

import (
	"errors"
	"fmt"
)

// ErrNotFound signals a lookup for an alert that does not exist.
var ErrNotFound = errors.New("alert not found")

// PersistenceError wraps a storage failure so callers can tell delivery
// bookkeeping failures apart from the channel failures they record.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
