// Package detect classifies a container by sniffing its leading bytes,
// the same magic-prefix-table idiom as the teacher's container registry,
// simplified to the closed format list this module supports.
package detect

// Kind identifies a supported container format.
type Kind int

const (
	Unknown Kind = iota
	JPEG
	PNG
	WebP
	JXL
	TIFF
	HEIF
)

func (k Kind) String() string {
	switch k {
	case JPEG:
		return "JPEG"
	case PNG:
		return "PNG"
	case WebP:
		return "WebP"
	case JXL:
		return "JXL"
	case TIFF:
		return "TIFF"
	case HEIF:
		return "HEIF"
	default:
		return "Unknown"
	}
}

// magic is one sniff rule: byte '?' at any position is a wildcard,
// matching the teacher's container registry convention.
type magic struct {
	pattern []byte
	kind    Kind
}

var rules = []magic{
	{[]byte{0xFF, 0xD8, 0xFF}, JPEG},
	{[]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, PNG},
	{[]byte{'I', 'I', 0x2A, 0x00}, TIFF},
	{[]byte{'M', 'M', 0x00, 0x2A}, TIFF},
	{[]byte{0xFF, 0x0A}, JXL},
	// A boxed JXL file's first box is always this fixed 12-byte signature
	// box, not ftyp: ftyp only follows it, at offset 12.
	{[]byte{0x00, 0x00, 0x00, 0x0C, 'J', 'X', 'L', ' ', 0x0D, 0x0A, 0x87, 0x0A}, JXL},
}

func isMagic(buf, pattern []byte) bool {
	if len(buf) < len(pattern) {
		return false
	}
	for i, b := range pattern {
		if b != '?' && buf[i] != b {
			return false
		}
	}
	return true
}

// Detect classifies buf's container kind by its first bytes. buf must be
// at least 12 bytes long for RIFF/ISO-BMFF forms to be recognized.
func Detect(buf []byte) Kind {
	for _, r := range rules {
		if isMagic(buf, r.pattern) {
			return r.kind
		}
	}

	if len(buf) >= 12 && isMagic(buf[:4], []byte("RIFF")) && isMagic(buf[8:12], []byte("WEBP")) {
		return WebP
	}

	if len(buf) >= 12 && isMagic(buf[4:8], []byte("ftyp")) {
		brand := string(buf[8:12])
		switch brand {
		case "heic", "heif", "mif1":
			return HEIF
		}
	}

	return Unknown
}
