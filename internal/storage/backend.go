// Package storage provides the hybrid object storage layer: a uniform Backend
// contract with local filesystem and remote S3-compatible implementations, and
// a Router that picks one backend at process start.
package storage

import "context"

// BackendKind names a concrete backend. It is recorded on stored objects for
// observability; callers never branch on it.
type BackendKind string

const (
	BackendLocal  BackendKind = "local"
	BackendRemote BackendKind = "remote"
)

// Object describes one stored object.
type Object struct {
	Key         string
	URL         string
	Size        int64
	ContentType string
	Backend     BackendKind
}

// Backend is the uniform storage contract shared by the local and remote
// implementations.
//
// Put must never leave a partially written object visible: the local backend
// writes to a temp file and renames, the remote backend relies on the object
// store's atomic PUT. Delete is idempotent; a missing key is not an error.
// Exists returns (false, nil) for a missing key and errors only on transport
// failure.
type Backend interface {
	Put(ctx context.Context, key string, src Source, contentType string, meta map[string]string) (Object, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	Kind() BackendKind
}
