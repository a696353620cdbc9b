// Package tiffcodec decodes and encodes the TIFF/EXIF IFD tree: the
// intellectual center of the module. It understands endian discipline,
// in-line vs. offset values, SubIFD recursion, strip/thumbnail DATA_OFFSET
// pairing and format coercion for non-compliant cameras.
package tiffcodec

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/TechnikTobi/little-exif-sub000/container"
	"github.com/TechnikTobi/little-exif-sub000/endian"
	"github.com/TechnikTobi/little-exif-sub000/exiftag"
	"github.com/TechnikTobi/little-exif-sub000/ifd"
)

var (
	// ErrCorruptHeader is returned when the 8-byte TIFF header cannot be
	// parsed: neither endian marker matches, or the magic number is wrong.
	ErrCorruptHeader = errors.New("tiffcodec: corrupt TIFF header")
	// ErrNotEnoughData is returned whenever a read would run past the end
	// of the supplied buffer. It wraps container.ErrTruncated, so callers
	// needing only to know "was this a hard truncation" can errors.Is
	// against that sentinel without depending on tiffcodec directly.
	ErrNotEnoughData = errors.WithMessage(container.ErrTruncated, "tiffcodec: not enough data")
	// ErrSuspiciousXMP flags the specific case of being handed XMP bytes
	// (starting "<?xp" or similar) instead of a TIFF stream.
	ErrSuspiciousXMP = errors.New("tiffcodec: input looks like XMP, not TIFF")
	// ErrUnexpectedChainLink is returned if a SubIFD's trailing "next IFD"
	// link is non-zero; SubIFDs are never chained.
	ErrUnexpectedChainLink = errors.New("tiffcodec: SubIFD must not chain")
	// ErrEmpty is returned by Encode when there is nothing to encode.
	ErrEmpty = errors.New("tiffcodec: nothing to encode")
)

var exifPrefix = []byte("Exif\x00\x00")

// Tree is the decoded form of a TIFF/EXIF stream: the endian it was
// written in, plus every IFD (GENERIC and SubIFD) found, in decode order.
type Tree struct {
	Endian endian.Endian
	Dirs   []*ifd.Dir
}

// stripExifPrefix advances past the optional six-byte "Exif\0\0" prefix,
// tolerating streams that start directly with the endian marker.
func stripExifPrefix(p []byte) []byte {
	if len(p) >= 6 && bytes.Equal(p[:6], exifPrefix) {
		return p[6:]
	}
	return p
}

// Decode parses a TIFF/EXIF byte stream, optionally prefixed with
// "Exif\0\0", into a Tree.
func Decode(raw []byte) (*Tree, error) {
	p := stripExifPrefix(raw)

	if len(p) < 4 {
		return nil, ErrCorruptHeader
	}
	if bytes.HasPrefix(p, []byte("<?x")) || bytes.HasPrefix(p, []byte("<x:")) {
		return nil, ErrSuspiciousXMP
	}

	e, ok := endian.DetectHeader(p)
	if !ok {
		return nil, ErrCorruptHeader
	}
	if len(p) < 8 {
		return nil, ErrNotEnoughData
	}

	off, err := e.U32(p[4:8])
	if err != nil {
		return nil, errors.Wrap(err, "tiffcodec: reading IFD0 offset")
	}

	t := &Tree{Endian: e}
	genericNr := uint32(0)
	for off != 0 {
		dir, next, err := decodeDir(e, p, int(off), exiftag.GENERIC, genericNr, &t.Dirs)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding generic IFD %d", genericNr)
		}
		t.Dirs = append(t.Dirs, dir)
		off = next
		genericNr++
	}

	return t, nil
}

// GetDir returns the Dir matching (group, genericIFDNr), if present.
func (t *Tree) GetDir(group exiftag.Group, genericIFDNr uint32) (*ifd.Dir, bool) {
	for _, d := range t.Dirs {
		if d.Group == group && d.GenericIFDNr == genericIFDNr {
			return d, true
		}
	}
	return nil, false
}
