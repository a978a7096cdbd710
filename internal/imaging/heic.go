package imaging

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// The stdlib image registry has no HEIC decoder, so rejected HEIC uploads get
// a metadata-only validation pass: walk the ISO BMFF box tree down to the
// ispe (image spatial extents) property and read the pixel dimensions. If the
// dimensions are readable the file is a structurally sound HEIC that the
// model backends can consume as-is.

var errBoxNotFound = errors.New("box not found")

// probeHEICDimensions returns the width and height recorded in the file's
// ispe box.
func probeHEICDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return 0, 0, err
	}
	// Metadata boxes sit at the front of the file; a bounded read is enough.
	limit := st.Size()
	if limit > 1<<20 {
		limit = 1 << 20
	}
	data := make([]byte, limit)
	if _, err := io.ReadFull(f, data); err != nil {
		return 0, 0, err
	}

	if err := checkHEICBrand(data); err != nil {
		return 0, 0, err
	}

	meta, err := findBox(data, "meta")
	if err != nil {
		return 0, 0, err
	}
	if len(meta) < 4 {
		return 0, 0, errors.New("truncated meta box")
	}
	// meta is a full box: skip version and flags.
	iprp, err := findBox(meta[4:], "iprp")
	if err != nil {
		return 0, 0, err
	}
	ipco, err := findBox(iprp, "ipco")
	if err != nil {
		return 0, 0, err
	}
	ispe, err := findBox(ipco, "ispe")
	if err != nil {
		return 0, 0, err
	}
	if len(ispe) < 12 {
		return 0, 0, errors.New("truncated ispe box")
	}
	// Full box: 4 bytes version/flags, then width and height.
	w := int(binary.BigEndian.Uint32(ispe[4:8]))
	h := int(binary.BigEndian.Uint32(ispe[8:12]))
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid dimensions %dx%d", w, h)
	}
	return w, h, nil
}

func checkHEICBrand(data []byte) error {
	ftyp, err := findBox(data, "ftyp")
	if err != nil {
		return err
	}
	if len(ftyp) < 4 {
		return errors.New("truncated ftyp box")
	}
	brands := []string{string(ftyp[:4])}
	for off := 8; off+4 <= len(ftyp); off += 4 {
		brands = append(brands, string(ftyp[off:off+4]))
	}
	for _, b := range brands {
		switch b {
		case "heic", "heix", "heif", "mif1", "msf1":
			return nil
		}
	}
	return fmt.Errorf("not a heic file (brands %v)", brands)
}

// findBox scans sibling boxes in data and returns the payload of the first
// box with the given type.
func findBox(data []byte, boxType string) ([]byte, error) {
	off := 0
	for off+8 <= len(data) {
		size := int64(binary.BigEndian.Uint32(data[off : off+4]))
		typ := string(data[off+4 : off+8])
		header := int64(8)
		switch size {
		case 0:
			// Box extends to end of data.
			size = int64(len(data)) - int64(off)
		case 1:
			if off+16 > len(data) {
				return nil, errors.New("truncated large box header")
			}
			size = int64(binary.BigEndian.Uint64(data[off+8 : off+16]))
			header = 16
		}
		if size < header {
			return nil, fmt.Errorf("malformed box %q: size %d", typ, size)
		}
		end := int64(off) + size
		if end > int64(len(data)) {
			// Clamp: metadata probing only needs the part we buffered.
			end = int64(len(data))
		}
		if typ == boxType {
			return data[int64(off)+header : end], nil
		}
		off = int(end)
	}
	return nil, fmt.Errorf("%w: %q", errBoxNotFound, boxType)
}
