package storage

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Key prefixes used by the pipeline.
const (
	PrefixUploads   = "uploads"
	PrefixProcessed = "processed"
)

const maxBaseNameLen = 48

var baseNameCleaner = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// GenerateKey builds a collision-resistant storage key of the shape
// {prefix}/{unix_ms}_{6-hex-random}_{sanitizedBase}{ext}. Keys generated for
// the same original name in rapid succession stay distinct through the random
// component.
func GenerateKey(originalName, prefix string) string {
	if prefix == "" {
		prefix = PrefixUploads
	}
	ext := strings.ToLower(filepath.Ext(originalName))
	base := sanitizeBaseName(strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName)))
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return prefix + "/" + ts + "_" + randomSuffix() + "_" + base + ext
}

func randomSuffix() string {
	var b [3]byte
	if _, err := rand.Read(b[:]); err != nil {
		// Clock fallback; keys still carry the millisecond timestamp.
		return strconv.FormatInt(time.Now().UnixNano()%0xffffff, 16)
	}
	return hex.EncodeToString(b[:])
}

// sanitizeBaseName lowercases, strips diacritics, and collapses anything
// outside [a-z0-9-_] so keys stay portable across backends.
func sanitizeBaseName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	if cleaned, _, err := transform.String(baseNameCleaner, name); err == nil {
		name = cleaned
	}
	var sb strings.Builder
	lastDash := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
			lastDash = r == '-'
		default:
			if !lastDash {
				sb.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.Trim(sb.String(), "-")
	if out == "" {
		out = "file"
	}
	if len(out) > maxBaseNameLen {
		out = out[:maxBaseNameLen]
	}
	return out
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.Clean(key)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if cleaned == "." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
