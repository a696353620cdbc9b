// Package endian implements the fixed 8-byte TIFF header and the
// primitive <-> byte-slice codec used throughout the TIFF/EXIF tree.
package endian

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// Endian identifies the byte order of a TIFF stream. A single Endian value
// applies to every multi-byte integer and rational in that stream.
type Endian int

const (
	Little Endian = iota
	Big
)

// ErrMangledData is returned whenever a byte slice being decoded does not
// have the exact length its declared type requires.
var ErrMangledData = errors.New("endian: mangled data")

// Header returns the fixed 8-byte TIFF header: byte-order marker, magic
// number 0x002A and the offset (always 8) to IFD0.
func (e Endian) Header() [8]byte {
	switch e {
	case Little:
		return [8]byte{'I', 'I', 0x2a, 0x00, 0x08, 0x00, 0x00, 0x00}
	case Big:
		return [8]byte{'M', 'M', 0x00, 0x2a, 0x00, 0x00, 0x00, 0x08}
	default:
		panic("endian: invalid Endian value")
	}
}

func (e Endian) order() binary.ByteOrder {
	if e == Big {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// DetectHeader inspects an 8-byte TIFF header and returns the Endian it
// declares. ok is false if neither the "II" nor the "MM" marker is found, or
// the magic number does not match.
func DetectHeader(p []byte) (e Endian, ok bool) {
	if len(p) < 4 {
		return 0, false
	}
	switch {
	case p[0] == 'I' && p[1] == 'I':
		e = Little
	case p[0] == 'M' && p[1] == 'M':
		e = Big
	default:
		return 0, false
	}
	if e.order().Uint16(p[2:4]) != 0x002a {
		return 0, false
	}
	return e, true
}

// --- unsigned integers ---

func (e Endian) PutU16(p []byte, v uint16) { e.order().PutUint16(p, v) }
func (e Endian) PutU32(p []byte, v uint32) { e.order().PutUint32(p, v) }

func (e Endian) U16(p []byte) (uint16, error) {
	if len(p) != 2 {
		return 0, ErrMangledData
	}
	return e.order().Uint16(p), nil
}

func (e Endian) U32(p []byte) (uint32, error) {
	if len(p) != 4 {
		return 0, ErrMangledData
	}
	return e.order().Uint32(p), nil
}

// --- vectors of primitives ---

func (e Endian) PutU16Vec(v []uint16) []byte {
	p := make([]byte, 2*len(v))
	for i, x := range v {
		e.PutU16(p[2*i:], x)
	}
	return p
}

func (e Endian) U16Vec(p []byte) ([]uint16, error) {
	if len(p)%2 != 0 {
		return nil, ErrMangledData
	}
	v := make([]uint16, len(p)/2)
	for i := range v {
		v[i] = e.order().Uint16(p[2*i:])
	}
	return v, nil
}

func (e Endian) PutU32Vec(v []uint32) []byte {
	p := make([]byte, 4*len(v))
	for i, x := range v {
		e.PutU32(p[4*i:], x)
	}
	return p
}

func (e Endian) U32Vec(p []byte) ([]uint32, error) {
	if len(p)%4 != 0 {
		return nil, ErrMangledData
	}
	v := make([]uint32, len(p)/4)
	for i := range v {
		v[i] = e.order().Uint32(p[4*i:])
	}
	return v, nil
}

func (e Endian) PutI8Vec(v []int8) []byte {
	p := make([]byte, len(v))
	for i, x := range v {
		p[i] = byte(x)
	}
	return p
}

func (e Endian) I8Vec(p []byte) []int8 {
	v := make([]int8, len(p))
	for i, b := range p {
		v[i] = int8(b)
	}
	return v
}

func (e Endian) PutI16Vec(v []int16) []byte {
	p := make([]byte, 2*len(v))
	for i, x := range v {
		e.order().PutUint16(p[2*i:], uint16(x))
	}
	return p
}

func (e Endian) I16Vec(p []byte) ([]int16, error) {
	if len(p)%2 != 0 {
		return nil, ErrMangledData
	}
	v := make([]int16, len(p)/2)
	for i := range v {
		v[i] = int16(e.order().Uint16(p[2*i:]))
	}
	return v, nil
}

func (e Endian) PutI32Vec(v []int32) []byte {
	p := make([]byte, 4*len(v))
	for i, x := range v {
		e.order().PutUint32(p[4*i:], uint32(x))
	}
	return p
}

func (e Endian) I32Vec(p []byte) ([]int32, error) {
	if len(p)%4 != 0 {
		return nil, ErrMangledData
	}
	v := make([]int32, len(p)/4)
	for i := range v {
		v[i] = int32(e.order().Uint32(p[4*i:]))
	}
	return v, nil
}

func (e Endian) PutF32Vec(v []float32) []byte {
	p := make([]byte, 4*len(v))
	for i, x := range v {
		e.order().PutUint32(p[4*i:], math.Float32bits(x))
	}
	return p
}

func (e Endian) F32Vec(p []byte) ([]float32, error) {
	if len(p)%4 != 0 {
		return nil, ErrMangledData
	}
	v := make([]float32, len(p)/4)
	for i := range v {
		v[i] = math.Float32frombits(e.order().Uint32(p[4*i:]))
	}
	return v, nil
}

func (e Endian) PutF64Vec(v []float64) []byte {
	p := make([]byte, 8*len(v))
	for i, x := range v {
		e.order().PutUint64(p[8*i:], math.Float64bits(x))
	}
	return p
}

func (e Endian) F64Vec(p []byte) ([]float64, error) {
	if len(p)%8 != 0 {
		return nil, ErrMangledData
	}
	v := make([]float64, len(p)/8)
	for i := range v {
		v[i] = math.Float64frombits(e.order().Uint64(p[8*i:]))
	}
	return v, nil
}

// --- rationals: two consecutive 4-byte words ---

func (e Endian) PutURationalVec(num, denom []uint32) []byte {
	n := len(num)
	p := make([]byte, 8*n)
	for i := 0; i < n; i++ {
		e.PutU32(p[8*i:], num[i])
		e.PutU32(p[8*i+4:], denom[i])
	}
	return p
}

// URationalVec decodes p as n pairs of (numerator, denominator).
func (e Endian) URationalVec(p []byte) (num, denom []uint32, err error) {
	if len(p)%8 != 0 {
		return nil, nil, ErrMangledData
	}
	n := len(p) / 8
	num, denom = make([]uint32, n), make([]uint32, n)
	for i := 0; i < n; i++ {
		num[i] = e.order().Uint32(p[8*i:])
		denom[i] = e.order().Uint32(p[8*i+4:])
	}
	return num, denom, nil
}

func (e Endian) PutIRationalVec(num, denom []int32) []byte {
	n := len(num)
	p := make([]byte, 8*n)
	for i := 0; i < n; i++ {
		e.order().PutUint32(p[8*i:], uint32(num[i]))
		e.order().PutUint32(p[8*i+4:], uint32(denom[i]))
	}
	return p
}

func (e Endian) IRationalVec(p []byte) (num, denom []int32, err error) {
	if len(p)%8 != 0 {
		return nil, nil, ErrMangledData
	}
	n := len(p) / 8
	num, denom = make([]int32, n), make([]int32, n)
	for i := 0; i < n; i++ {
		num[i] = int32(e.order().Uint32(p[8*i:]))
		denom[i] = int32(e.order().Uint32(p[8*i+4:]))
	}
	return num, denom, nil
}

// --- strings ---

// PutString serializes s as UTF-8 followed by a single terminating NUL.
func PutString(s string) []byte {
	p := make([]byte, len(s)+1)
	copy(p, s)
	p[len(s)] = 0x00
	return p
}

// String decodes p, which may or may not carry a trailing NUL. It strips
// the trailing NUL padding and returns the remaining bytes unchanged as a
// Go string, without UTF-8 validation (issue #65: camera-written STRING
// tags are frequently not valid UTF-8/ASCII and must still round-trip
// exactly).
func String(p []byte) string {
	trimmed := strings.TrimRight(string(p), "\x00")
	return trimmed
}

// RawString returns p with trailing NUL padding stripped but without any
// UTF-8 validation, guaranteeing the original bytes survive a decode/encode
// cycle regardless of their encoding.
func RawString(p []byte) []byte {
	n := len(p)
	for n > 0 && p[n-1] == 0x00 {
		n--
	}
	out := make([]byte, n)
	copy(out, p[:n])
	return out
}
