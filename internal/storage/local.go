package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore persists objects on the local filesystem under a root directory.
// It serves development and single-node deployments where an object storage
// service is not available.
type LocalStore struct {
	basePath  string
	urlPrefix string
}

// NewLocalStore initializes a LocalStore rooted at basePath. Objects are
// addressed externally under urlPrefix, which the application serves itself.
func NewLocalStore(basePath, urlPrefix string) (*LocalStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &LocalStore{
		basePath:  basePath,
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
	}, nil
}

// BasePath returns the configured root directory.
func (s *LocalStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

func (s *LocalStore) Kind() BackendKind { return BackendLocal }

// Put writes the source under key. The bytes land in a sibling temp file
// first and are renamed into place, so a crash mid-write never leaves a
// partial object visible.
func (s *LocalStore) Put(ctx context.Context, key string, src Source, contentType string, meta map[string]string) (Object, error) {
	if s == nil {
		return Object{}, &WriteError{Backend: BackendLocal, Key: key, Err: errors.New("no store configured")}
	}
	if err := ctx.Err(); err != nil {
		return Object{}, &WriteError{Backend: BackendLocal, Key: key, Err: err}
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return Object{}, &WriteError{Backend: BackendLocal, Key: key, Err: err}
	}
	data, err := src.Bytes()
	if err != nil {
		return Object{}, &WriteError{Backend: BackendLocal, Key: cleanKey, Err: err}
	}

	fullPath := filepath.Join(s.basePath, filepath.FromSlash(cleanKey))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return Object{}, &WriteError{Backend: BackendLocal, Key: cleanKey, Err: err}
	}
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".put-*")
	if err != nil {
		return Object{}, &WriteError{Backend: BackendLocal, Key: cleanKey, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return Object{}, &WriteError{Backend: BackendLocal, Key: cleanKey, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return Object{}, &WriteError{Backend: BackendLocal, Key: cleanKey, Err: err}
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		os.Remove(tmpName)
		return Object{}, &WriteError{Backend: BackendLocal, Key: cleanKey, Err: err}
	}

	return Object{
		Key:         cleanKey,
		URL:         s.PublicURL(cleanKey),
		Size:        int64(len(data)),
		ContentType: contentType,
		Backend:     BackendLocal,
	}, nil
}

func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ReadError{Backend: BackendLocal, Key: key, Err: err}
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return nil, &ReadError{Backend: BackendLocal, Key: key, Err: err}
	}
	data, err := os.ReadFile(filepath.Join(s.basePath, filepath.FromSlash(cleanKey)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, &ReadError{Backend: BackendLocal, Key: cleanKey, Err: err}
	}
	return data, nil
}

func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(filepath.Join(s.basePath, filepath.FromSlash(cleanKey)))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Delete removes the object. Absence is not an error.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.basePath, filepath.FromSlash(cleanKey))); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// PublicURL returns the route path the application serves this object under.
func (s *LocalStore) PublicURL(key string) string {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return ""
	}
	return s.urlPrefix + "/" + cleanKey
}
