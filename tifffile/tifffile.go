// Package tifffile implements the container adapter for bare TIFF files:
// the file itself *is* the metadata stream, rather than metadata embedded
// in a host container. Read prepends the usual "Exif\0\0" marker, write
// gates on the TIFF baseline tag set before overwriting the file outright,
// and clear reduces every IFD to the baseline/strip/thumbnail whitelist.
package tifffile

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/TechnikTobi/little-exif-sub000/container"
	"github.com/TechnikTobi/little-exif-sub000/exiftag"
	"github.com/TechnikTobi/little-exif-sub000/ifd"
	"github.com/TechnikTobi/little-exif-sub000/tiffcodec"
)

var exifHeader = []byte("Exif\x00\x00")

// ErrMissingBaselineTag is returned by WriteRawExif when the tree being
// written to a bare-TIFF file lacks one of the required baseline tags.
var ErrMissingBaselineTag = errors.New("tifffile: missing required TIFF baseline tag")

// Adapter implements container.Adapter for bare TIFF files. Unlike the
// other adapters it operates on a complete TIFF stream rather than a host
// format wrapping one: Clear and WriteRawExif re-encode and replace buf
// wholesale instead of patching a carrier segment in place.
type Adapter struct{}

var _ container.Adapter = Adapter{}

// ReadRawExif returns buf itself, prefixed with "Exif\0\0" as heif's result
// is; tiffcodec.Decode accepts raw EXIF with or without that prefix, so the
// façade's decode path is uniform across container kinds.
func (Adapter) ReadRawExif(buf []byte) ([]byte, error) {
	if _, err := tiffcodec.Decode(buf); err != nil {
		return nil, err
	}
	return append(append([]byte{}, exifHeader...), buf...), nil
}

// reduceToMinimum drops every non-GENERIC IFD and, within each remaining
// GENERIC IFD, every tag outside exiftag.BaselineWhitelist.
func reduceToMinimum(tree *tiffcodec.Tree) *tiffcodec.Tree {
	out := &tiffcodec.Tree{Endian: tree.Endian}
	for _, d := range tree.Dirs {
		if d.Group != exiftag.GENERIC {
			continue
		}
		kept := ifd.NewWithTags(d.Group, d.GenericIFDNr, nil)
		for _, tag := range d.Tags {
			if exiftag.BaselineWhitelist[tag.ID] {
				kept.AddTag(tag)
			}
		}
		out.Dirs = append(out.Dirs, kept)
	}
	return out
}

// Clear reduces buf's TIFF tree to the baseline/strip/thumbnail whitelist
// and re-encodes it, per the reduce-to-a-minimum rule.
func (Adapter) Clear(buf []byte) ([]byte, error) {
	tree, err := tiffcodec.Decode(buf)
	if err != nil {
		return nil, err
	}
	minimal := reduceToMinimum(tree)
	out, err := tiffcodec.Encode(minimal)
	if err != nil {
		return nil, errors.Wrap(err, "tifffile: re-encoding after reduce-to-a-minimum")
	}
	return out, nil
}

// hasBaselineTag reports whether dir carries id, either directly or as the
// synthesized DATA_OFFSET companion of a tag it does carry (StripByteCounts
// is never stored on its own — it rides along with StripOffsets' Value and
// is emitted by the encoder from that single Tag).
func hasBaselineTag(dir *ifd.Dir, id uint16) bool {
	if _, found := dir.GetTag(id); found {
		return true
	}
	for _, t := range dir.Tags {
		if t.Role == exiftag.RoleDataOffset {
			if companion, ok := exiftag.DataOffsetCompanion(t.ID); ok && companion == id {
				return true
			}
		}
	}
	return false
}

// checkBaseline reports the first required tag missing from dir, or ok if
// every required tag is present. It also logs each missing recommended tag.
func checkBaseline(dir *ifd.Dir) (missing uint16, ok bool) {
	for _, id := range exiftag.RequiredTIFFBaseline {
		if !hasBaselineTag(dir, id) {
			return id, false
		}
	}
	for _, id := range exiftag.RecommendedTIFFBaseline {
		if !hasBaselineTag(dir, id) {
			entry, _ := exiftag.Lookup(id, exiftag.GENERIC)
			logrus.WithField("tag", entry.Name).Warn("tifffile: recommended TIFF baseline tag missing")
		}
	}
	return 0, true
}

// WriteRawExif validates that tiff's GENERIC IFD0 carries every tag in
// exiftag.RequiredTIFFBaseline, then returns tiff as-is: a bare TIFF file's
// "write" is simply overwriting the file with the freshly encoded stream.
// buf is not inspected: there is no carrier to clear and reinsert into,
// unlike every other adapter.
func (Adapter) WriteRawExif(buf []byte, tiff []byte) ([]byte, error) {
	tree, err := tiffcodec.Decode(tiff)
	if err != nil {
		return nil, errors.Wrap(err, "tifffile: decoding tree to write")
	}

	ifd0, ok := tree.GetDir(exiftag.GENERIC, 0)
	if !ok {
		entry, _ := exiftag.Lookup(exiftag.RequiredTIFFBaseline[0], exiftag.GENERIC)
		return nil, errors.Wrapf(ErrMissingBaselineTag, "tag %s (no GENERIC IFD0 present)", entry.Name)
	}

	if missing, ok := checkBaseline(ifd0); !ok {
		entry, _ := exiftag.Lookup(missing, exiftag.GENERIC)
		return nil, errors.Wrapf(ErrMissingBaselineTag, "tag %s (id 0x%04X)", entry.Name, missing)
	}

	return tiff, nil
}
