// Package jxl implements the JPEG XL container adapter. A JXL file is
// either a naked codestream (cannot hold metadata) or an ISO-BMFF
// container whose boxes may include an Exif box carrying raw TIFF bytes,
// or a brob (Brotli-compressed) box whose subtype is Exif.
package jxl

import (
	"bytes"

	"github.com/andybalholm/brotli"
	"github.com/pkg/errors"

	"github.com/TechnikTobi/little-exif-sub000/container"
)

var (
	codestreamSignature = []byte{0xFF, 0x0A}
	bmffSignature       = []byte{
		0x00, 0x00, 0x00, 0x0c,
		'J', 'X', 'L', ' ',
		0x0d, 0x0a, 0x87, 0x0a,
	}
	ftypBox = []byte{
		0x00, 0x00, 0x00, 0x14,
		'f', 't', 'y', 'p',
		'j', 'x', 'l', ' ',
		0x00, 0x00, 0x00, 0x00,
		'j', 'x', 'l', ' ',
	}

	minorVersion = []byte{0x00, 0x00, 0x00, 0x06}

	// ErrNakedCodestream is returned when an operation that requires
	// ISO-BMFF framing is attempted on a bare JXL codestream.
	ErrNakedCodestream = errors.New("jxl: naked codestream cannot carry metadata")
)

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func be64(b []byte) uint64 {
	return uint64(be32(b[0:4]))<<32 | uint64(be32(b[4:8]))
}

func putBE32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func isNakedCodestream(buf []byte) bool {
	return bytes.HasPrefix(buf, codestreamSignature)
}

func isISOBMFF(buf []byte) bool {
	return bytes.HasPrefix(buf, bmffSignature)
}

// box is one decoded top-level ISO-BMFF box's span within buf.
type box struct {
	boxType string
	start   int
	end     int
	payload []byte
}

func scanBoxes(buf []byte) ([]box, error) {
	var boxes []box
	pos := 0
	for pos+8 <= len(buf) {
		size := int(be32(buf[pos : pos+4]))
		boxType := string(buf[pos+4 : pos+8])
		headerLen := 8
		length := size
		if size == 1 {
			if pos+16 > len(buf) {
				return nil, errors.Wrapf(container.ErrTruncated, "jxl: largesize box at offset %d", pos)
			}
			length = int(be64(buf[pos+8 : pos+16]))
			headerLen = 16
		}
		if length < headerLen || pos+length > len(buf) {
			return nil, errors.Wrapf(container.ErrTruncated, "jxl: invalid box length %d at offset %d", length, pos)
		}
		boxes = append(boxes, box{
			boxType: boxType,
			start:   pos,
			end:     pos + length,
			payload: buf[pos+headerLen : pos+length],
		})
		pos += length
	}
	return boxes, nil
}

func isEXIFBox(b box) (isDirect bool, isBrob bool) {
	if b.boxType == "Exif" {
		return true, false
	}
	if b.boxType == "brob" && len(b.payload) >= 4 && string(b.payload[:4]) == "Exif" {
		return false, true
	}
	return false, false
}

func decodeEXIFBox(b box) ([]byte, error) {
	if len(b.payload) < 4 {
		return nil, errors.New("jxl: Exif box too short")
	}
	return b.payload[4:], nil
}

func decodeBrobExifBox(b box) ([]byte, error) {
	if len(b.payload) < 8 {
		return nil, errors.New("jxl: brob Exif box too short")
	}
	compressed := b.payload[8:]
	r := brotli.NewReader(bytes.NewReader(compressed))
	var out bytes.Buffer
	if _, err := out.ReadFrom(r); err != nil {
		return nil, errors.Wrap(err, "jxl: brotli decompress")
	}
	return out.Bytes(), nil
}

// Adapter implements container.Adapter for JXL files.
type Adapter struct{}

var _ container.Adapter = Adapter{}

// ReadRawExif returns the raw TIFF bytes of the first Exif or brob-Exif
// box. A naked codestream always returns ErrNakedCodestream.
func (Adapter) ReadRawExif(buf []byte) ([]byte, error) {
	if isNakedCodestream(buf) {
		return nil, ErrNakedCodestream
	}
	if !isISOBMFF(buf) {
		return nil, errors.New("jxl: not a recognized JXL file")
	}

	boxes, err := scanBoxes(buf)
	if err != nil {
		return nil, err
	}
	for _, b := range boxes {
		if direct, brob := isEXIFBox(b); direct {
			return decodeEXIFBox(b)
		} else if brob {
			return decodeBrobExifBox(b)
		}
	}
	return nil, container.ErrNoMetadata
}

// Clear removes every Exif and brob-Exif box. A naked codestream has
// nothing to clear.
func (Adapter) Clear(buf []byte) ([]byte, error) {
	if isNakedCodestream(buf) {
		return buf, nil
	}
	if !isISOBMFF(buf) {
		return nil, errors.New("jxl: not a recognized JXL file")
	}

	for {
		boxes, err := scanBoxes(buf)
		if err != nil {
			return nil, err
		}
		removed := false
		for _, b := range boxes {
			direct, brob := isEXIFBox(b)
			if direct || brob {
				buf, err = container.RangeRemove(buf, b.start, b.end)
				if err != nil {
					return nil, err
				}
				removed = true
				break
			}
		}
		if !removed {
			return buf, nil
		}
	}
}

// wrapCodestream promotes a naked JXL codestream to a minimal ISO-BMFF
// container: signature box, ftyp box, and a jxlc box holding the
// original codestream bytes.
func wrapCodestream(buf []byte) []byte {
	jxlcLength := uint32(len(buf)) + 8
	out := make([]byte, 0, len(bmffSignature)+len(ftypBox)+8+len(buf))
	out = append(out, bmffSignature...)
	out = append(out, ftypBox...)
	out = append(out, putBE32(jxlcLength)...)
	out = append(out, []byte("jxlc")...)
	out = append(out, buf...)
	return out
}

// findInsertPosition returns the offset right after the leading run of
// "JXL " / "ftyp" boxes, where the Exif box belongs.
func findInsertPosition(boxes []box) int {
	pos := 0
	for _, b := range boxes {
		if b.boxType == "JXL " || b.boxType == "ftyp" {
			pos = b.end
			continue
		}
		break
	}
	return pos
}

func buildEXIFBox(tiff []byte) []byte {
	length := 8 + len(minorVersion) + len(tiff)
	out := make([]byte, 0, length)
	out = append(out, putBE32(uint32(length))...)
	out = append(out, []byte("Exif")...)
	out = append(out, minorVersion...)
	out = append(out, tiff...)
	return out
}

// BuildBrotliEXIFBox builds a brob-framed, Brotli-compressed Exif box,
// used when the caller prefers the compressed carrier over the direct one.
func BuildBrotliEXIFBox(tiff []byte) []byte {
	var compressed bytes.Buffer
	w := brotli.NewWriter(&compressed)
	_, _ = w.Write(tiff)
	_ = w.Close()

	length := 8 + 4 + len(minorVersion) + compressed.Len()
	out := make([]byte, 0, length)
	out = append(out, putBE32(uint32(length))...)
	out = append(out, []byte("brob")...)
	out = append(out, []byte("Exif")...)
	out = append(out, minorVersion...)
	out = append(out, compressed.Bytes()...)
	return out
}

// WriteRawExif wraps a naked codestream first if needed, clears any
// existing EXIF carrier, then inserts a new direct Exif box after the
// leading JXL signature and ftyp boxes.
func (Adapter) WriteRawExif(buf []byte, tiff []byte) ([]byte, error) {
	if isNakedCodestream(buf) {
		buf = wrapCodestream(buf)
	} else if !isISOBMFF(buf) {
		return nil, errors.New("jxl: not a recognized JXL file")
	}

	cleared, err := Adapter{}.Clear(buf)
	if err != nil {
		return nil, err
	}

	boxes, err := scanBoxes(cleared)
	if err != nil {
		return nil, err
	}
	at := findInsertPosition(boxes)

	return container.InsertAt(cleared, at, buildEXIFBox(tiff))
}
