// Package imaging validates and resizes uploaded images ahead of model
// invocation.
package imaging

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/png"

	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Dimension bounds for uploaded images.
const (
	MinDimension = 32
	MaxDimension = 4096
)

const defaultJPEGQuality = 85

// UnsupportedFormatError means the source bytes could not be decoded even for
// metadata inspection. The message is user-actionable.
type UnsupportedFormatError struct {
	Ext string
	Err error
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported image format %q: convert the image to JPEG or PNG and re-upload", e.Ext)
}

func (e *UnsupportedFormatError) Unwrap() error { return e.Err }

// DimensionsError rejects an image outside the supported bounds. The message
// is user-actionable.
type DimensionsError struct {
	Width  int
	Height int
}

func (e *DimensionsError) Error() string {
	if e.Width < MinDimension || e.Height < MinDimension {
		return fmt.Sprintf("image too small (%dx%d): minimum size is %dx%d", e.Width, e.Height, MinDimension, MinDimension)
	}
	return fmt.Sprintf("image too large (%dx%d): maximum size is %dx%d", e.Width, e.Height, MaxDimension, MaxDimension)
}

// Info describes a probed image file.
type Info struct {
	Width  int
	Height int
	Format string
	Size   int64
}

// Normalizer bounds image dimensions before the pipeline hands bytes to an
// external model. Construction is cheap and the value is safe for concurrent
// use.
type Normalizer struct {
	logger      zerolog.Logger
	jpegQuality int
}

func NewNormalizer(logger zerolog.Logger) *Normalizer {
	return &Normalizer{logger: logger, jpegQuality: defaultJPEGQuality}
}

// Normalize resizes the image at sourcePath to fit within maxWidth x
// maxHeight and returns the path of the result. Sources outside the
// MinDimension..MaxDimension bounds are rejected with a DimensionsError
// before any pixel work. When the source already fits,
// sourcePath itself is returned and no new file is written. When a new file
// is written it lands next to the source; the caller registers it with its
// temp-file ledger. The source file is never modified or deleted.
//
// HEIC/HEIF sources that the decoder rejects get a metadata-only probe: if
// width and height are readable the original passes through unchanged (model
// backends accept the raw format), otherwise an UnsupportedFormatError is
// returned. Any non-format decode failure propagates unchanged.
func (n *Normalizer) Normalize(ctx context.Context, sourcePath string, maxWidth, maxHeight int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if maxWidth <= 0 || maxHeight <= 0 {
		return "", fmt.Errorf("imaging: invalid bounds %dx%d", maxWidth, maxHeight)
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		return "", err
	}
	cfg, _, err := image.DecodeConfig(f)
	f.Close()
	if err != nil {
		return n.handleDecodeFailure(sourcePath, err)
	}
	if err := ValidateDimensions(Info{Width: cfg.Width, Height: cfg.Height}); err != nil {
		return "", err
	}

	if cfg.Width <= maxWidth && cfg.Height <= maxHeight {
		return sourcePath, nil
	}

	f, err = os.Open(sourcePath)
	if err != nil {
		return "", err
	}
	src, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return n.handleDecodeFailure(sourcePath, err)
	}

	w, h := fitWithin(cfg.Width, cfg.Height, maxWidth, maxHeight)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	out, err := os.CreateTemp(filepath.Dir(sourcePath), "normalized-*.jpg")
	if err != nil {
		return "", err
	}
	outPath := out.Name()
	if err := jpeg.Encode(out, dst, &jpeg.Options{Quality: n.jpegQuality}); err != nil {
		out.Close()
		os.Remove(outPath)
		return "", fmt.Errorf("imaging: encode normalized image: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return "", err
	}

	n.logger.Debug().
		Str("source", filepath.Base(sourcePath)).
		Int("width", w).Int("height", h).
		Msg("imaging: resized")
	return outPath, nil
}

// handleDecodeFailure applies the format fallback policy. Only failures from
// the decoder itself are treated as format problems; I/O errors have already
// been returned by the callers above.
func (n *Normalizer) handleDecodeFailure(sourcePath string, decodeErr error) (string, error) {
	ext := strings.ToLower(filepath.Ext(sourcePath))
	if ext != ".heic" && ext != ".heif" {
		return "", decodeErr
	}

	w, h, err := probeHEICDimensions(sourcePath)
	if err != nil {
		return "", &UnsupportedFormatError{Ext: ext, Err: err}
	}
	if err := ValidateDimensions(Info{Width: w, Height: h}); err != nil {
		return "", err
	}
	n.logger.Debug().
		Str("source", filepath.Base(sourcePath)).
		Int("width", w).Int("height", h).
		Msg("imaging: heic passthrough, metadata readable")
	return sourcePath, nil
}

// Probe reads basic information about an image file without decoding pixels.
func (n *Normalizer) Probe(path string) (Info, error) {
	st, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".heic" || ext == ".heif" {
			w, h, perr := probeHEICDimensions(path)
			if perr != nil {
				return Info{}, &UnsupportedFormatError{Ext: ext, Err: perr}
			}
			return Info{Width: w, Height: h, Format: "heic", Size: st.Size()}, nil
		}
		return Info{}, err
	}
	return Info{Width: cfg.Width, Height: cfg.Height, Format: format, Size: st.Size()}, nil
}

// ValidateDimensions rejects images outside the supported bounds. Normalize
// applies it to every decodable source, HEIC passthrough included.
func ValidateDimensions(info Info) error {
	if info.Width < MinDimension || info.Height < MinDimension ||
		info.Width > MaxDimension || info.Height > MaxDimension {
		return &DimensionsError{Width: info.Width, Height: info.Height}
	}
	return nil
}

// fitWithin scales (w, h) down to fit (maxW, maxH) preserving aspect ratio.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	nw, nh := maxW, h*maxW/w
	if nh > maxH {
		nw, nh = w*maxH/h, maxH
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}
