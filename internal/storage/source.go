package storage

import (
	"errors"
	"os"
)

// Source is the tagged input union for uploads: either bytes already in
// memory or a file on disk. Exactly one of the two constructors is used, so
// call sites match once instead of re-checking buffer-versus-path at every
// step.
type Source struct {
	data []byte
	path string
}

// BytesSource wraps an in-memory buffer.
func BytesSource(data []byte) Source { return Source{data: data} }

// PathSource wraps an on-disk file.
func PathSource(path string) Source { return Source{path: path} }

// IsPath reports whether the source refers to a file on disk.
func (s Source) IsPath() bool { return s.path != "" }

// Path returns the file path for a path source, or "".
func (s Source) Path() string { return s.path }

// Bytes returns the source content, reading the file for a path source.
func (s Source) Bytes() ([]byte, error) {
	if s.path != "" {
		return os.ReadFile(s.path)
	}
	if s.data == nil {
		return nil, errors.New("storage: empty source")
	}
	return s.data, nil
}

// Len returns the content length when known without touching the disk, or -1.
func (s Source) Len() int64 {
	if s.path != "" {
		info, err := os.Stat(s.path)
		if err != nil {
			return -1
		}
		return info.Size()
	}
	return int64(len(s.data))
}
