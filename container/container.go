// Package container defines the contract every format adapter
// (jpeg/png/webp/jxl/heif/tifffile) implements, plus the in-memory
// range-edit primitives they share. Unlike the teacher's streaming
// FileMod/opreader pair (built for a single-pass reader-to-writer copy),
// every operation here works on a fully materialized []byte, since this
// module always mutates a complete in-memory buffer before a single
// truncate-and-overwrite of the destination file.
package container

import "github.com/pkg/errors"

// ErrNoMetadata is returned by ReadRawExif when the container carries no
// recognizable EXIF payload.
var ErrNoMetadata = errors.New("container: no EXIF metadata present")

// ErrTruncated is the cause of every "ran out of bytes mid-structure"
// failure an adapter or the TIFF codec can hit: a chunk/box header that
// promises more data than the buffer holds, a length field pointing past
// EOF, and the like. Callers doing a read-modify-write round trip can
// errors.Is against this to tell a genuinely truncated file apart from an
// absent/malformed EXIF carrier, which the façade otherwise treats as
// equivalent to "no metadata present".
var ErrTruncated = errors.New("container: truncated input")

// Adapter is the contract every container format implements: locate the
// raw TIFF/EXIF bytes, remove them, or replace them, all in place on a
// byte buffer.
type Adapter interface {
	// ReadRawExif returns the raw TIFF/EXIF bytes embedded in buf
	// (already stripped of any container-specific framing beyond the
	// bytes the TIFF decoder itself tolerates, e.g. an "Exif\0\0" prefix).
	ReadRawExif(buf []byte) ([]byte, error)

	// Clear returns buf with any embedded EXIF payload removed.
	Clear(buf []byte) ([]byte, error)

	// WriteRawExif returns buf with tiff (a complete encoded TIFF
	// stream) embedded as this format's EXIF carrier, replacing any
	// existing one.
	WriteRawExif(buf []byte, tiff []byte) ([]byte, error)
}

// RangeRemove returns buf with the half-open byte range [start, end)
// deleted.
func RangeRemove(buf []byte, start, end int) ([]byte, error) {
	if start < 0 || end > len(buf) || start > end {
		return nil, errors.Errorf("container: invalid range [%d,%d) in buffer of length %d", start, end, len(buf))
	}
	out := make([]byte, 0, len(buf)-(end-start))
	out = append(out, buf[:start]...)
	out = append(out, buf[end:]...)
	return out, nil
}

// InsertAt returns buf with data inserted immediately before position at.
func InsertAt(buf []byte, at int, data []byte) ([]byte, error) {
	if at < 0 || at > len(buf) {
		return nil, errors.Errorf("container: invalid insertion point %d in buffer of length %d", at, len(buf))
	}
	out := make([]byte, 0, len(buf)+len(data))
	out = append(out, buf[:at]...)
	out = append(out, data...)
	out = append(out, buf[at:]...)
	return out, nil
}

// Replace returns buf with the half-open range [start, end) replaced by
// data — equivalent to RangeRemove followed by InsertAt, done in one pass.
func Replace(buf []byte, start, end int, data []byte) ([]byte, error) {
	if start < 0 || end > len(buf) || start > end {
		return nil, errors.Errorf("container: invalid range [%d,%d) in buffer of length %d", start, end, len(buf))
	}
	out := make([]byte, 0, len(buf)-(end-start)+len(data))
	out = append(out, buf[:start]...)
	out = append(out, data...)
	out = append(out, buf[end:]...)
	return out, nil
}
