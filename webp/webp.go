// Package webp implements the WebP container adapter: RIFF chunk
// scanning, EXIF chunk read/clear, and VP8/VP8L → VP8X promotion when
// EXIF is written to a simple-format file.
package webp

import (
	"github.com/pkg/errors"

	"github.com/TechnikTobi/little-exif-sub000/container"
)

const (
	riffHeaderLen = 12 // "RIFF" + size:LE32 + "WEBP"
	fourCCVP8X    = "VP8X"
	fourCCVP8     = "VP8 "
	fourCCVP8L    = "VP8L"
	fourCCEXIF    = "EXIF"
	exifFlagBit   = 0x08
)

var (
	// ErrNotWebP is returned when buf is not a RIFF/WEBP container.
	ErrNotWebP = errors.New("webp: missing RIFF/WEBP signature")
	// ErrNoVP8XFlag is returned when reading EXIF from a file whose VP8X
	// header doesn't advertise it.
	ErrNoVP8XFlag = errors.New("webp: VP8X EXIF flag not set")
)

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLE32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// riffChunk is one decoded chunk's span within buf.
type riffChunk struct {
	fourCC  string
	start   int // offset of the fourCC field
	end     int // one past any padding byte
	payload []byte
}

func checkSignature(buf []byte) error {
	if len(buf) < riffHeaderLen || string(buf[0:4]) != "RIFF" || string(buf[8:12]) != "WEBP" {
		return ErrNotWebP
	}
	return nil
}

// scanChunks walks every top-level chunk after the 12-byte RIFF/WEBP
// header, honoring the RIFF even-alignment padding rule.
func scanChunks(buf []byte) ([]riffChunk, error) {
	if err := checkSignature(buf); err != nil {
		return nil, err
	}

	var chunks []riffChunk
	pos := riffHeaderLen
	for pos+8 <= len(buf) {
		fourCC := string(buf[pos : pos+4])
		size := int(le32(buf[pos+4 : pos+8]))
		payloadStart := pos + 8
		payloadEnd := payloadStart + size
		if payloadEnd > len(buf) {
			return nil, errors.Wrapf(container.ErrTruncated, "webp: truncated %s chunk", fourCC)
		}

		end := payloadEnd
		if size%2 == 1 && end < len(buf) {
			end++ // padding byte
		}

		chunks = append(chunks, riffChunk{
			fourCC:  fourCC,
			start:   pos,
			end:     end,
			payload: buf[payloadStart:payloadEnd],
		})
		pos = end
	}
	return chunks, nil
}

func findChunk(chunks []riffChunk, fourCC string) (riffChunk, bool) {
	for _, c := range chunks {
		if c.fourCC == fourCC {
			return c, true
		}
	}
	return riffChunk{}, false
}

// vp8Dimensions extracts the actual (not -1 encoded) width/height from a
// lossy VP8 keyframe payload.
func vp8Dimensions(payload []byte) (width, height uint32, err error) {
	if len(payload) < 10 {
		return 0, 0, errors.New("webp: VP8 payload too short")
	}
	if payload[3] != 0x9d || payload[4] != 0x01 || payload[5] != 0x2a {
		return 0, 0, errors.New("webp: VP8 start code not found")
	}
	w := uint32(payload[6]) | uint32(payload[7])<<8
	h := uint32(payload[8]) | uint32(payload[9])<<8
	return w & 0x3FFF, h & 0x3FFF, nil
}

// vp8lDimensions extracts the actual width/height from a lossless VP8L
// payload: a 1-byte signature followed by two 14-bit fields packed LE.
func vp8lDimensions(payload []byte) (width, height uint32, err error) {
	if len(payload) < 5 {
		return 0, 0, errors.New("webp: VP8L payload too short")
	}
	if payload[0] != 0x2F {
		return 0, 0, errors.New("webp: VP8L signature not found")
	}
	bits := uint32(payload[1]) | uint32(payload[2])<<8 | uint32(payload[3])<<16 | uint32(payload[4])<<24
	width = (bits & 0x3FFF) + 1
	height = ((bits >> 14) & 0x3FFF) + 1
	return width, height, nil
}

func dimensionsOf(fourCC string, payload []byte) (width, height uint32, err error) {
	switch fourCC {
	case fourCCVP8:
		return vp8Dimensions(payload)
	case fourCCVP8L:
		return vp8lDimensions(payload)
	default:
		return 0, 0, errors.Errorf("webp: cannot derive dimensions from %s chunk", fourCC)
	}
}

// Adapter implements container.Adapter for WebP files.
type Adapter struct{}

var _ container.Adapter = Adapter{}

// ReadRawExif returns the raw TIFF bytes of the first EXIF chunk. The
// file must be extended-format with its VP8X EXIF flag set.
func (Adapter) ReadRawExif(buf []byte) ([]byte, error) {
	chunks, err := scanChunks(buf)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 || chunks[0].fourCC != fourCCVP8X {
		return nil, container.ErrNoMetadata
	}
	if len(chunks[0].payload) < 1 || chunks[0].payload[0]&exifFlagBit == 0 {
		return nil, ErrNoVP8XFlag
	}
	c, ok := findChunk(chunks, fourCCEXIF)
	if !ok {
		return nil, container.ErrNoMetadata
	}
	return c.payload, nil
}

// Clear removes every EXIF chunk, adjusts the RIFF size field, and
// clears the VP8X EXIF flag.
func (Adapter) Clear(buf []byte) ([]byte, error) {
	for {
		chunks, err := scanChunks(buf)
		if err != nil {
			return nil, err
		}
		c, ok := findChunk(chunks, fourCCEXIF)
		if !ok {
			break
		}
		buf, err = container.RangeRemove(buf, c.start, c.end)
		if err != nil {
			return nil, err
		}
		buf = fixRiffSize(buf)
	}

	chunks, err := scanChunks(buf)
	if err != nil {
		return nil, err
	}
	if len(chunks) > 0 && chunks[0].fourCC == fourCCVP8X && len(chunks[0].payload) >= 1 {
		flagsOffset := chunks[0].start + 8
		if buf[flagsOffset]&exifFlagBit != 0 {
			out := append([]byte{}, buf...)
			out[flagsOffset] &^= exifFlagBit
			buf = out
		}
	}
	return buf, nil
}

func fixRiffSize(buf []byte) []byte {
	out := append([]byte{}, buf...)
	copy(out[4:8], putLE32(uint32(len(out)-8)))
	return out
}

// insertPosition returns the offset at which a new EXIF chunk should be
// inserted: right after the last of {VP8X, VP8 , VP8L, ICCP, ANIM} that
// appears contiguously from the start of the chunk stream.
func insertPosition(chunks []riffChunk) int {
	reserved := map[string]bool{fourCCVP8X: true, fourCCVP8: true, fourCCVP8L: true, "ICCP": true, "ANIM": true}
	pos := riffHeaderLen
	for _, c := range chunks {
		if !reserved[c.fourCC] {
			break
		}
		pos = c.end
	}
	return pos
}

// WriteRawExif clears any existing EXIF chunk, promotes a simple-format
// file (VP8/VP8L as the first chunk, no VP8X) to extended format, then
// inserts a new EXIF chunk and sets the VP8X EXIF flag.
func (Adapter) WriteRawExif(buf []byte, tiff []byte) ([]byte, error) {
	cleared, err := Adapter{}.Clear(buf)
	if err != nil {
		return nil, err
	}

	chunks, err := scanChunks(cleared)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, errors.New("webp: no chunks present")
	}

	if chunks[0].fourCC != fourCCVP8X {
		if chunks[0].fourCC != fourCCVP8 && chunks[0].fourCC != fourCCVP8L {
			return nil, errors.Errorf("webp: unexpected first chunk %s", chunks[0].fourCC)
		}
		width, height, err := dimensionsOf(chunks[0].fourCC, chunks[0].payload)
		if err != nil {
			return nil, err
		}
		vp8x := buildVP8XChunk(width-1, height-1, false)
		cleared, err = container.InsertAt(cleared, riffHeaderLen, vp8x)
		if err != nil {
			return nil, err
		}
		cleared = fixRiffSize(cleared)
		chunks, err = scanChunks(cleared)
		if err != nil {
			return nil, err
		}
	}

	at := insertPosition(chunks)
	exifChunk := buildChunk(fourCCEXIF, tiff)
	out, err := container.InsertAt(cleared, at, exifChunk)
	if err != nil {
		return nil, err
	}
	out = fixRiffSize(out)

	chunks, err = scanChunks(out)
	if err != nil {
		return nil, err
	}
	if chunks[0].fourCC != fourCCVP8X {
		return nil, errors.New("webp: internal error, expected VP8X after promotion")
	}
	flagsOffset := chunks[0].start + 8
	out2 := append([]byte{}, out...)
	out2[flagsOffset] |= exifFlagBit
	return out2, nil
}

func buildChunk(fourCC string, payload []byte) []byte {
	out := make([]byte, 0, 8+len(payload)+1)
	out = append(out, []byte(fourCC)...)
	out = append(out, putLE32(uint32(len(payload)))...)
	out = append(out, payload...)
	if len(payload)%2 == 1 {
		out = append(out, 0x00)
	}
	return out
}

func buildVP8XChunk(widthMinus1, heightMinus1 uint32, exifFlag bool) []byte {
	payload := make([]byte, 10)
	if exifFlag {
		payload[0] |= exifFlagBit
	}
	payload[4] = byte(widthMinus1)
	payload[5] = byte(widthMinus1 >> 8)
	payload[6] = byte(widthMinus1 >> 16)
	payload[7] = byte(heightMinus1)
	payload[8] = byte(heightMinus1 >> 8)
	payload[9] = byte(heightMinus1 >> 16)
	return buildChunk(fourCCVP8X, payload)
}
