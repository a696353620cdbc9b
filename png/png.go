// Package png implements the PNG container adapter. EXIF is carried either
// in a modern eXIf chunk (raw TIFF bytes) or, for older encoders, in a
// zTXt/tEXt/iTXt chunk keyworded "Raw profile type exif" whose body is a
// newline-framed, ASCII-hex-encoded copy of the TIFF stream. XMP, when
// present in an iTXt chunk, is passed through with any exif:* attributes
// stripped.
package png

import (
	"bytes"
	"compress/zlib"
	"hash/crc32"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/TechnikTobi/little-exif-sub000/container"
	"github.com/TechnikTobi/little-exif-sub000/xmp"
)

const signature = "\x89PNG\r\n\x1a\n"

var (
	// ErrNotPNG is returned when buf does not begin with the PNG signature.
	ErrNotPNG = errors.New("png: missing signature")
	// ErrChecksum is returned when a chunk's CRC does not match its content.
	ErrChecksum = errors.New("png: chunk checksum mismatch")

	rawProfileTypeExif = []byte("Raw profile type exif")
	xmlComAdobeXMP     = "XML:com.adobe.xmp"
	exifHeader         = []byte("Exif\x00\x00")
)

// chunk is one decoded PNG chunk's span within buf.
type chunk struct {
	name  string
	start int // offset of the length field
	end   int // one past the CRC field
	data  []byte
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func putBE32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// scanChunks walks every chunk in buf, validating each CRC.
func scanChunks(buf []byte) ([]chunk, error) {
	if len(buf) < len(signature) || string(buf[:len(signature)]) != signature {
		return nil, ErrNotPNG
	}

	var chunks []chunk
	pos := len(signature)
	for pos < len(buf) {
		if pos+8 > len(buf) {
			return nil, errors.Wrap(container.ErrTruncated, "png: truncated chunk header")
		}
		length := int(be32(buf[pos : pos+4]))
		name := string(buf[pos+4 : pos+8])
		dataStart := pos + 8
		dataEnd := dataStart + length
		if dataEnd+4 > len(buf) {
			return nil, errors.Wrapf(container.ErrTruncated, "png: truncated %s chunk", name)
		}
		crcWant := be32(buf[dataEnd : dataEnd+4])
		crcGot := crc32.ChecksumIEEE(buf[pos+4 : dataEnd])
		if crcWant != crcGot {
			return nil, errors.Wrapf(ErrChecksum, "chunk %s at offset %d", name, pos)
		}

		chunks = append(chunks, chunk{
			name:  name,
			start: pos,
			end:   dataEnd + 4,
			data:  buf[dataStart:dataEnd],
		})

		pos = dataEnd + 4
		if name == "IEND" {
			break
		}
	}
	return chunks, nil
}

func keywordOf(data []byte) string {
	i := bytes.IndexByte(data, 0)
	if i == -1 {
		return string(data)
	}
	return string(data[:i])
}

func hasRawProfileTypeExifKeyword(data []byte) bool {
	return keywordOf(data) == string(rawProfileTypeExif)
}

// textPayload extracts the decompressed data section of a tEXt/zTXt/iTXt
// chunk, past the keyword and any compression framing.
func textPayload(name string, data []byte) ([]byte, error) {
	kw := keywordOf(data)
	switch name {
	case "tEXt":
		return data[len(kw)+1:], nil
	case "zTXt":
		if len(data) < len(kw)+2 {
			return nil, errors.Wrap(container.ErrTruncated, "png: truncated zTXt chunk")
		}
		if data[len(kw)+1] != 0 {
			return nil, errors.New("png: unsupported zTXt compression method")
		}
		return inflate(data[len(kw)+2:])
	case "iTXt":
		return iTXtPayload(kw, data)
	default:
		return nil, errors.Errorf("png: not a text chunk: %s", name)
	}
}

type iTXtHeader struct {
	compressionFlag   byte
	compressionMethod byte
	languageTag       string
	translatedKeyword string
	dataStart         int
}

func parseITXtHeader(keyword string, data []byte) (iTXtHeader, error) {
	pos := len(keyword) + 1
	if pos+2 > len(data) {
		return iTXtHeader{}, errors.Wrap(container.ErrTruncated, "png: truncated iTXt header")
	}
	flag, method := data[pos], data[pos+1]
	pos += 2

	i := bytes.IndexByte(data[pos:], 0)
	if i == -1 {
		return iTXtHeader{}, errors.Wrap(container.ErrTruncated, "png: truncated iTXt language tag")
	}
	lang := string(data[pos : pos+i])
	pos += i + 1

	j := bytes.IndexByte(data[pos:], 0)
	if j == -1 {
		return iTXtHeader{}, errors.Wrap(container.ErrTruncated, "png: truncated iTXt translated keyword")
	}
	translated := string(data[pos : pos+j])
	pos += j + 1

	return iTXtHeader{
		compressionFlag:   flag,
		compressionMethod: method,
		languageTag:       lang,
		translatedKeyword: translated,
		dataStart:         pos,
	}, nil
}

func iTXtPayload(keyword string, data []byte) ([]byte, error) {
	h, err := parseITXtHeader(keyword, data)
	if err != nil {
		return nil, err
	}
	if h.compressionFlag == 0 {
		return data[h.dataStart:], nil
	}
	if h.compressionMethod != 0 {
		return nil, errors.New("png: unsupported iTXt compression method")
	}
	return inflate(data[h.dataStart:])
}

func inflate(p []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(p))
	if err != nil {
		return nil, errors.Wrap(err, "png: zlib inflate")
	}
	defer r.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, errors.Wrap(err, "png: zlib inflate")
	}
	return buf.Bytes(), nil
}

func deflate(p []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, _ = w.Write(p)
	_ = w.Close()
	return buf.Bytes()
}

// decodeLegacyHex reverses the ssss-framed, newline-delimited ASCII-hex
// encoding used by the "Raw profile type exif" carrier.
func decodeLegacyHex(payload []byte) ([]byte, error) {
	var hexDigits []byte
	for _, b := range payload {
		if b == '\n' {
			continue
		}
		hexDigits = append(hexDigits, b)
	}

	// The stream is: "exif\n" + 8-char decimal length field + "\n" + hex pairs.
	if len(hexDigits) < 4 || string(hexDigits[:4]) != "exif" {
		return nil, errors.New("png: malformed raw profile type exif payload")
	}
	hexDigits = hexDigits[4:]
	if len(hexDigits) < 8 {
		return nil, errors.New("png: malformed raw profile type exif length field")
	}
	declaredLen, err := strconv.Atoi(strings.TrimSpace(string(hexDigits[:8])))
	if err != nil {
		return nil, errors.Wrap(err, "png: malformed raw profile type exif length field")
	}
	hexDigits = hexDigits[8:]

	if len(hexDigits)%2 != 0 {
		return nil, errors.New("png: odd number of hex digits in raw profile payload")
	}

	out := make([]byte, 0, len(hexDigits)/2)
	for i := 0; i < len(hexDigits); i += 2 {
		hi, err := hexNibble(hexDigits[i])
		if err != nil {
			return nil, err
		}
		lo, err := hexNibble(hexDigits[i+1])
		if err != nil {
			return nil, err
		}
		out = append(out, hi<<4|lo)
	}

	// issue #54: some encoders omit the Exif\0\0 header and start the data
	// directly with the bare TIFF endian marker; scan for either, discarding
	// any preamble bytes before it.
	start := bytes.Index(out, exifHeader)
	if start == -1 {
		start = indexEndianMarker(out)
	}
	if start == -1 {
		return nil, errors.New("png: raw profile type exif payload missing Exif header or endian marker")
	}
	out = out[start:]

	if len(out) != declaredLen {
		return nil, errors.Wrapf(container.ErrTruncated, "png: raw profile type exif length mismatch: declared %d, decoded %d", declaredLen, len(out))
	}

	// Strip the EXIF\0\0 header and trailing "00" terminator pair if present.
	if bytes.HasPrefix(out, exifHeader) {
		out = out[len(exifHeader):]
	}
	if len(out) > 0 && out[len(out)-1] == 0x00 {
		out = out[:len(out)-1]
	}
	return out, nil
}

// indexEndianMarker returns the offset of the first bare "II" or "MM" TIFF
// endian marker in b, or -1 if neither appears.
func indexEndianMarker(b []byte) int {
	for i := 0; i+1 < len(b); i++ {
		if (b[i] == 'I' && b[i+1] == 'I') || (b[i] == 'M' && b[i+1] == 'M') {
			return i
		}
	}
	return -1
}

func hexNibble(b byte) (byte, error) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', nil
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, nil
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, nil
	default:
		return 0, errors.Errorf("png: invalid hex digit %q", b)
	}
}

func encodeByte(b byte) [2]byte {
	hexDigit := func(n byte) byte {
		if n < 10 {
			return '0' + n
		}
		return 'a' + n - 10
	}
	return [2]byte{hexDigit(b / 16), hexDigit(b % 16)}
}

// encodeLegacyHex builds the zTXt "Raw profile type exif" chunk body
// (excluding the keyword prefix) from a raw TIFF stream.
func encodeLegacyHex(tiff []byte) []byte {
	full := append(append([]byte{}, exifHeader...), tiff...)
	ssss := len(exifHeader) + len(tiff) + 1

	var hex bytes.Buffer
	hex.WriteByte('\n')
	hex.WriteString("exif")
	hex.WriteByte('\n')
	lenStr := itoa(ssss)
	for i := 0; i < 8-len(lenStr); i++ {
		hex.WriteByte(' ')
	}
	hex.WriteString(lenStr)
	hex.WriteByte('\n')

	for _, b := range full {
		enc := encodeByte(b)
		hex.WriteByte(enc[0])
		hex.WriteByte(enc[1])
	}
	hex.WriteByte('0')
	hex.WriteByte('0')
	hex.WriteByte('\n')

	return deflate(hex.Bytes())
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// Adapter implements container.Adapter for PNG files.
type Adapter struct{}

var _ container.Adapter = Adapter{}

func findEXIfChunk(chunks []chunk) (chunk, bool) {
	for _, c := range chunks {
		if c.name == "eXIf" {
			return c, true
		}
	}
	return chunk{}, false
}

func findLegacyEXIFChunk(chunks []chunk) (chunk, []byte, bool) {
	for _, c := range chunks {
		if c.name != "tEXt" && c.name != "zTXt" && c.name != "iTXt" {
			continue
		}
		if !hasRawProfileTypeExifKeyword(c.data) {
			continue
		}
		payload, err := textPayload(c.name, c.data)
		if err != nil {
			logrus.WithError(err).Warn("png: malformed raw profile type exif chunk, skipping")
			continue
		}
		return c, payload, true
	}
	return chunk{}, nil, false
}

// ReadRawExif returns the raw TIFF bytes embedded in a PNG, preferring a
// modern eXIf chunk over a legacy hex-encoded text chunk.
func (Adapter) ReadRawExif(buf []byte) ([]byte, error) {
	chunks, err := scanChunks(buf)
	if err != nil {
		return nil, err
	}
	if c, ok := findEXIfChunk(chunks); ok {
		return c.data, nil
	}
	if _, payload, ok := findLegacyEXIFChunk(chunks); ok {
		return decodeLegacyHex(payload)
	}
	return nil, container.ErrNoMetadata
}

// Clear removes any eXIf chunk and any legacy raw-profile-type-exif text
// chunk, and strips exif:* attributes from an XMP iTXt chunk if present.
func (Adapter) Clear(buf []byte) ([]byte, error) {
	for {
		chunks, err := scanChunks(buf)
		if err != nil {
			return nil, err
		}

		if c, ok := findEXIfChunk(chunks); ok {
			buf, err = container.RangeRemove(buf, c.start, c.end)
			if err != nil {
				return nil, err
			}
			continue
		}

		if c, _, ok := findLegacyEXIFChunk(chunks); ok {
			buf, err = container.RangeRemove(buf, c.start, c.end)
			if err != nil {
				return nil, err
			}
			continue
		}

		if c, ok := findXMPChunk(chunks); ok {
			cleared, changed, err := clearEXIFFromXMPChunk(c)
			if err != nil {
				return nil, err
			}
			if changed {
				buf, err = container.Replace(buf, c.start, c.end, cleared)
				if err != nil {
					return nil, err
				}
				continue
			}
		}

		return buf, nil
	}
}

func findXMPChunk(chunks []chunk) (chunk, bool) {
	for _, c := range chunks {
		if c.name == "iTXt" && keywordOf(c.data) == xmlComAdobeXMP {
			return c, true
		}
	}
	return chunk{}, false
}

func clearEXIFFromXMPChunk(c chunk) ([]byte, bool, error) {
	payload, err := textPayload(c.name, c.data)
	if err != nil {
		logrus.WithError(err).Warn("png: malformed XMP iTXt chunk, leaving as-is")
		return nil, false, nil
	}
	stripped, err := xmp.StripExifAttributesBytes(payload)
	if err != nil {
		return nil, false, err
	}
	if bytes.Equal(stripped, payload) {
		return nil, false, nil
	}
	newChunk, err := buildITXtChunk(c.data, stripped)
	if err != nil {
		return nil, false, err
	}
	return newChunk, true, nil
}

func buildITXtChunk(oldData []byte, newPayload []byte) ([]byte, error) {
	kw := keywordOf(oldData)
	h, err := parseITXtHeader(kw, oldData)
	if err != nil {
		return nil, err
	}

	data := []byte(kw)
	data = append(data, 0x00)
	data = append(data, h.compressionFlag, h.compressionMethod)
	data = append(data, []byte(h.languageTag)...)
	data = append(data, 0x00)
	data = append(data, []byte(h.translatedKeyword)...)
	data = append(data, 0x00)
	if h.compressionFlag == 0 {
		data = append(data, newPayload...)
	} else {
		data = append(data, deflate(newPayload)...)
	}
	return buildChunk("iTXt", data), nil
}

func buildChunk(name string, data []byte) []byte {
	body := append([]byte(name), data...)
	crc := crc32.ChecksumIEEE(body)
	out := make([]byte, 0, 8+len(data)+4)
	out = append(out, putBE32(uint32(len(data)))...)
	out = append(out, body...)
	out = append(out, putBE32(crc)...)
	return out
}

// WriteRawExif clears any existing EXIF carrier and inserts a new eXIf
// chunk immediately after IHDR.
func (Adapter) WriteRawExif(buf []byte, tiff []byte) ([]byte, error) {
	cleared, err := Adapter{}.Clear(buf)
	if err != nil {
		return nil, err
	}

	chunks, err := scanChunks(cleared)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 || chunks[0].name != "IHDR" {
		return nil, errors.New("png: missing IHDR chunk")
	}

	newChunk := buildChunk("eXIf", tiff)
	return container.InsertAt(cleared, chunks[0].end, newChunk)
}

// WriteLegacyRawExif inserts the EXIF payload as a zTXt "Raw profile type
// exif" chunk instead of a modern eXIf chunk, for compatibility with
// readers that predate the eXIf chunk's standardization.
func WriteLegacyRawExif(buf []byte, tiff []byte) ([]byte, error) {
	cleared, err := Adapter{}.Clear(buf)
	if err != nil {
		return nil, err
	}

	chunks, err := scanChunks(cleared)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 || chunks[0].name != "IHDR" {
		return nil, errors.New("png: missing IHDR chunk")
	}

	data := append(append([]byte{}, rawProfileTypeExif...), 0x00, 0x00)
	data = append(data, encodeLegacyHex(tiff)...)
	newChunk := buildChunk("zTXt", data)
	return container.InsertAt(cleared, chunks[0].end, newChunk)
}
