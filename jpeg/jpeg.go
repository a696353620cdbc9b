// Package jpeg implements the JPEG container adapter: locate, clear and
// write the APP1 EXIF segment, plus APP12/APP13 segment clearing.
package jpeg

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/TechnikTobi/little-exif-sub000/container"
)

const (
	markerSOI = 0xD8
	markerEOI = 0xD9
	markerSOS = 0xDA
	markerAPP1 = 0xE1
)

var (
	// ErrNotJPEG is returned when buf does not begin with the SOI marker.
	ErrNotJPEG = errors.New("jpeg: missing start of image marker")
	exifHeader = []byte("Exif\x00\x00")
)

// hasNoLength reports whether a marker byte is one of the few JPEG markers
// that carry no length field (standalone markers).
func hasNoLength(marker byte) bool {
	switch {
	case marker == 0x01:
		return true
	case marker >= 0xD0 && marker <= 0xD9:
		return true
	default:
		return false
	}
}

// segment is one decoded APP/DQT/... segment's span within buf, excluding
// the leading 0xFF marker-type byte pair's length field accounting: Start
// is the offset of the 0xFF byte, End is one past the segment's last byte
// (including any length field and payload).
type segment struct {
	marker  byte
	start   int
	end     int
	payload []byte // excludes the 2-byte length field itself
}

// scanSegments walks buf's marker segments starting right after SOI,
// stopping at SOS (the entropy-coded scan data carries no more markers we
// care about) or at EOF. An EOF before SOS/EOI is tolerated as an implicit
// EOI, per issue #93 — some encoders omit the trailing EOI marker.
func scanSegments(buf []byte) ([]segment, error) {
	if len(buf) < 2 || buf[0] != 0xFF || buf[1] != markerSOI {
		return nil, ErrNotJPEG
	}

	var segs []segment
	pos := 2
	for pos < len(buf) {
		if pos+1 >= len(buf) {
			// issue #93: EOF inside a segment header, no EOI present.
			break
		}
		if buf[pos] != 0xFF {
			// padding byte between segments; skip.
			pos++
			continue
		}
		marker := buf[pos+1]
		if marker == markerEOI {
			break
		}
		if marker == markerSOS {
			break
		}
		if hasNoLength(marker) {
			pos += 2
			continue
		}
		if pos+4 > len(buf) {
			// issue #93: truncated length field, treat as implicit EOI.
			break
		}
		length := int(buf[pos+2])<<8 | int(buf[pos+3])
		if length < 2 {
			return nil, errors.Errorf("jpeg: invalid segment length %d at offset %d", length, pos)
		}
		end := pos + 2 + length
		if end > len(buf) {
			// issue #93: payload runs past EOF; treat as implicit EOI.
			break
		}
		segs = append(segs, segment{
			marker:  marker,
			start:   pos,
			end:     end,
			payload: buf[pos+4 : end],
		})
		pos = end
	}
	return segs, nil
}

func findEXIFApp1(segs []segment) (segment, bool) {
	for _, s := range segs {
		if s.marker == markerAPP1 && len(s.payload) >= len(exifHeader) &&
			string(s.payload[:len(exifHeader)]) == string(exifHeader) {
			return s, true
		}
	}
	return segment{}, false
}

// Adapter implements container.Adapter for JPEG files.
type Adapter struct{}

var _ container.Adapter = Adapter{}

// ReadRawExif returns the raw TIFF bytes (with the leading "Exif\0\0"
// stripped) of the first EXIF-bearing APP1 segment.
func (Adapter) ReadRawExif(buf []byte) ([]byte, error) {
	segs, err := scanSegments(buf)
	if err != nil {
		return nil, err
	}
	seg, ok := findEXIFApp1(segs)
	if !ok {
		return nil, container.ErrNoMetadata
	}
	return seg.payload[len(exifHeader):], nil
}

// Clear removes the EXIF APP1 segment, if present. Neighboring segments
// are unaffected since segments are length-prefixed.
func (Adapter) Clear(buf []byte) ([]byte, error) {
	segs, err := scanSegments(buf)
	if err != nil {
		return nil, err
	}
	seg, ok := findEXIFApp1(segs)
	if !ok {
		return buf, nil
	}
	return container.RangeRemove(buf, seg.start, seg.end)
}

// WriteRawExif clears any existing EXIF APP1 segment, then inserts a new
// one immediately after SOI.
func (Adapter) WriteRawExif(buf []byte, tiff []byte) ([]byte, error) {
	cleared, err := Adapter{}.Clear(buf)
	if err != nil {
		return nil, err
	}

	payload := append(append([]byte{}, exifHeader...), tiff...)
	length := len(payload) + 2
	if length > 0xFFFF {
		return nil, errors.Errorf("jpeg: EXIF APP1 segment too long (%d bytes)", length)
	}

	seg := make([]byte, 0, 4+len(payload))
	seg = append(seg, 0xFF, markerAPP1, byte(length>>8), byte(length))
	seg = append(seg, payload...)

	return container.InsertAt(cleared, 2, seg)
}

// ClearAPP12Segment removes every APP12 segment (some encoders store
// legacy Ducky/Picture-Info blocks there that can shadow updated EXIF in
// certain viewers).
func ClearAPP12Segment(buf []byte) ([]byte, error) {
	return clearMarker(buf, 0xEC)
}

// ClearAPP13Segment removes every APP13 (Photoshop IRB) segment.
func ClearAPP13Segment(buf []byte) ([]byte, error) {
	return clearMarker(buf, 0xED)
}

func clearMarker(buf []byte, marker byte) ([]byte, error) {
	for {
		segs, err := scanSegments(buf)
		if err != nil {
			return nil, err
		}
		removed := false
		for _, s := range segs {
			if s.marker == marker {
				buf, err = container.RangeRemove(buf, s.start, s.end)
				if err != nil {
					return nil, err
				}
				removed = true
				break
			}
		}
		if !removed {
			logrus.WithField("marker", marker).Debug("jpeg: no more segments of this type to clear")
			return buf, nil
		}
	}
}
