// Package exiftag holds the closed catalog of TIFF/EXIF tag identities:
// their wire format, the IFD group they live in, their read/write role, and
// the handful of non-compliant-camera coercions that let a tag decode even
// when the format on disk does not match the catalog.
package exiftag

import "github.com/pkg/errors"

// Format is one of the twelve TIFF field types.
type Format uint16

const (
	INT8U       Format = 0x0001
	STRING      Format = 0x0002
	INT16U      Format = 0x0003
	INT32U      Format = 0x0004
	RATIONAL64U Format = 0x0005
	INT8S       Format = 0x0006
	UNDEF       Format = 0x0007
	INT16S      Format = 0x0008
	INT32S      Format = 0x0009
	RATIONAL64S Format = 0x000a
	FLOAT       Format = 0x000b
	DOUBLE      Format = 0x000c
)

// ErrUnknownFormat is returned by FormatFromU16 for a type code outside the
// twelve recognized TIFF field types.
var ErrUnknownFormat = errors.New("exiftag: unknown format code")

// FormatFromU16 maps a wire-level type code to a Format.
func FormatFromU16(code uint16) (Format, error) {
	switch Format(code) {
	case INT8U, STRING, INT16U, INT32U, RATIONAL64U, INT8S, UNDEF,
		INT16S, INT32S, RATIONAL64S, FLOAT, DOUBLE:
		return Format(code), nil
	default:
		return 0, errors.Wrapf(ErrUnknownFormat, "code 0x%04x", code)
	}
}

// BytesPerComponent returns the wire width of a single component of this
// format.
func (f Format) BytesPerComponent() uint32 {
	switch f {
	case INT8U, STRING, INT8S, UNDEF:
		return 1
	case INT16U, INT16S:
		return 2
	case INT32U, INT32S, FLOAT:
		return 4
	case RATIONAL64U, RATIONAL64S, DOUBLE:
		return 8
	default:
		panic("exiftag: invalid Format")
	}
}

func (f Format) String() string {
	switch f {
	case INT8U:
		return "INT8U"
	case STRING:
		return "STRING"
	case INT16U:
		return "INT16U"
	case INT32U:
		return "INT32U"
	case RATIONAL64U:
		return "RATIONAL64U"
	case INT8S:
		return "INT8S"
	case UNDEF:
		return "UNDEF"
	case INT16S:
		return "INT16S"
	case INT32S:
		return "INT32S"
	case RATIONAL64S:
		return "RATIONAL64S"
	case FLOAT:
		return "FLOAT"
	case DOUBLE:
		return "DOUBLE"
	default:
		return "UNKNOWN"
	}
}
