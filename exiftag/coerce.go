package exiftag

import "github.com/pkg/errors"

// ErrIllegalFormat is wrapped with the expected/observed formats and tag id
// whenever a decoded tag's on-disk format disagrees with its catalog
// default and no coercion rule applies.
var ErrIllegalFormat = errors.New("exiftag: illegal format for known tag")

// GPSAltitudeRef and GPSProcessingMethod need their ids named explicitly by
// the coercion table below, since the rules are keyed on (id, group), not
// just on the format pair.
const (
	idGPSAltitudeRef      = 0x0005
	idGPSProcessingMethod = 0x001B
)

// Coercion describes how to reinterpret raw_data decoded as `Observed` into
// the catalog's `Expected` format for a tag (id, group). `Narrow` reports
// whether a per-element range check applies; callers still do the actual
// byte-level re-decode via the endian package once a Coercion is found.
type Coercion struct {
	Expected Format
	Observed Format
	// Narrow is true if this coercion demands an element-range assertion
	// (the wider on-disk value must fit the narrower catalog format).
	Narrow bool
}

// Resolve looks up whether `observed` may be coerced into `expected` for
// tag (id, group). It returns ok=false for any pair not covered by the
// fixed coercion table, in which case the caller must fail with
// ErrIllegalFormat.
func Resolve(id uint16, group Group, expected, observed Format) (Coercion, bool) {
	switch {
	case expected == INT32U && observed == INT16U:
		return Coercion{expected, observed, false}, true
	case expected == INT32U && observed == INT8U:
		return Coercion{expected, observed, false}, true
	case expected == INT16U && observed == INT32U:
		return Coercion{expected, observed, false}, true // narrow, trusting the camera
	case expected == INT16U && observed == INT8U:
		return Coercion{expected, observed, false}, true
	case expected == INT8U && observed == INT16U:
		return Coercion{expected, observed, true}, true // narrow; each element must fit in 8 bits
	case expected == INT8U && observed == STRING && id == idGPSAltitudeRef && group == GPS:
		// issue #74: some cameras write GPSAltitudeRef as a one-character string.
		return Coercion{expected, observed, false}, true
	case expected == RATIONAL64S && observed == RATIONAL64U:
		// issue #21: widen lossless-in-magnitude via an f64 bridge.
		return Coercion{expected, observed, false}, true
	case expected == UNDEF && observed == STRING && id == idGPSProcessingMethod && group == GPS:
		// issue #63: accept raw bytes as UNDEF.
		return Coercion{expected, observed, false}, true
	default:
		return Coercion{}, false
	}
}

// DecodeGPSAltitudeRef applies the issue-#74 single-character coercion: the
// first byte of a string-typed GPSAltitudeRef decides 0 ("above sea level")
// or 1 ("below sea level"); any other leading byte is an error.
func DecodeGPSAltitudeRef(raw []byte) (byte, error) {
	if len(raw) == 0 {
		return 0, errors.New("exiftag: empty GPSAltitudeRef")
	}
	switch raw[0] {
	case 0x00, '0':
		return 0, nil
	case 0x01, '1':
		return 1, nil
	default:
		return 0, errors.Errorf("exiftag: unrecognized GPSAltitudeRef byte 0x%02x", raw[0])
	}
}
