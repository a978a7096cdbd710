package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("storage: object not found")

// WriteError wraps an I/O or transport failure during Put.
type WriteError struct {
	Backend BackendKind
	Key     string
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("storage: write %s (%s): %v", e.Key, e.Backend, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ReadError wraps an I/O or transport failure during Get other than absence.
type ReadError struct {
	Backend BackendKind
	Key     string
	Err     error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("storage: read %s (%s): %v", e.Key, e.Backend, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// ConsistencyError means a write reported success but the object could not be
// read back afterwards.
type ConsistencyError struct {
	Backend BackendKind
	Key     string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("storage: object %s not retrievable after write (%s)", e.Key, e.Backend)
}
