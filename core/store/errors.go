package store

import (
	"errors"
	"fmt"
)

// ErrUnknownSender is returned by RecordService when no record exists for
// the sender. Callers must have recorded a message for the sender within
// the same event before recording a service.
var ErrUnknownSender = errors.New("unknown sender")

// StoreError wraps any persistence-layer failure so callers can treat
// store trouble as one class of non-fatal errors.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err is (or wraps) a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
