// Package tempfiles tracks the intermediate files created while handling one
// request and guarantees their removal on every exit path.
package tempfiles

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Ledger is per-request bookkeeping for temp files. One Ledger is created at
// pipeline entry and its ReleaseAll is deferred immediately, so cleanup runs
// on success, failure, and panic alike. A Ledger must not be shared across
// requests.
type Ledger struct {
	mu       sync.Mutex
	paths    []string
	released map[string]struct{}
	salt     string
}

// New returns an empty Ledger with a request-unique name component.
func New() *Ledger {
	return &Ledger{
		released: make(map[string]struct{}),
		salt:     uuid.NewString()[:8],
	}
}

// Register tracks a path for release. Registering a path that was already
// released is a no-op, so retried cleanup never resurrects work.
func (l *Ledger) Register(path string) {
	if path == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, done := l.released[path]; done {
		return
	}
	for _, p := range l.paths {
		if p == path {
			return
		}
	}
	l.paths = append(l.paths, path)
}

// CreateTemp creates a file in dir with a request-unique name and registers
// it in one step.
func (l *Ledger) CreateTemp(dir, pattern string) (*os.File, error) {
	if pattern == "" {
		pattern = "upload-*"
	}
	f, err := os.CreateTemp(dir, fmt.Sprintf("%s-%s", l.salt, pattern))
	if err != nil {
		return nil, fmt.Errorf("tempfiles: create: %w", err)
	}
	l.Register(f.Name())
	return f, nil
}

// WriteTemp writes data to a new registered temp file and returns its path.
func (l *Ledger) WriteTemp(dir, pattern string, data []byte) (string, error) {
	f, err := l.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	path := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("tempfiles: write %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("tempfiles: close %s: %w", filepath.Base(path), err)
	}
	return path, nil
}

// ReleaseAll deletes every registered path. Each deletion is attempted
// independently; failures are logged at warn level and never returned, so
// cleanup cannot mask the request's primary result or error. Calling it again
// is harmless.
func (l *Ledger) ReleaseAll(logger zerolog.Logger) {
	l.mu.Lock()
	paths := l.paths
	l.paths = nil
	for _, p := range paths {
		l.released[p] = struct{}{}
	}
	l.mu.Unlock()

	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn().Err(err).Str("path", p).Msg("tempfiles: release failed")
		}
	}
}

// Count returns the number of paths currently awaiting release.
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.paths)
}
