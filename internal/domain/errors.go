package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidModelType = errors.New("invalid model type")
	ErrEmptyInput       = errors.New("empty input")

	// ErrAlreadyFinalized means a second terminal write was attempted for a
	// generation that already left the processing state.
	ErrAlreadyFinalized = errors.New("generation already finalized")
)

// PersistenceError wraps a failed durable write to the generation store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
