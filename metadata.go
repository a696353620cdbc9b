// Package littleexif reads, edits and writes EXIF metadata embedded in
// JPEG, PNG, WebP, TIFF, JXL and HEIF/HEIC files. It locates the
// container-specific metadata carrier, decodes it into a tree of Image
// File Directories, lets callers inspect and mutate tags freely, then
// re-encodes and re-embeds the tree while keeping the host container
// valid.
package littleexif

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/TechnikTobi/little-exif-sub000/container"
	"github.com/TechnikTobi/little-exif-sub000/detect"
	"github.com/TechnikTobi/little-exif-sub000/endian"
	"github.com/TechnikTobi/little-exif-sub000/exiftag"
	"github.com/TechnikTobi/little-exif-sub000/heif"
	"github.com/TechnikTobi/little-exif-sub000/ifd"
	"github.com/TechnikTobi/little-exif-sub000/jpeg"
	"github.com/TechnikTobi/little-exif-sub000/jxl"
	"github.com/TechnikTobi/little-exif-sub000/png"
	"github.com/TechnikTobi/little-exif-sub000/tiffcodec"
	"github.com/TechnikTobi/little-exif-sub000/tifffile"
	"github.com/TechnikTobi/little-exif-sub000/webp"
)

// Metadata is the in-memory EXIF tree: the endian it will be encoded in,
// plus every IFD (GENERIC and SubIFD) currently populated.
type Metadata struct {
	Endian endian.Endian
	IFDs   []*ifd.Dir
}

// adapterFor resolves the container.Adapter for a detect.Kind. The naked
// JXL codestream case needs no special handling here: jxl.Adapter wraps
// one in ISO-BMFF framing itself on WriteRawExif and surfaces
// ErrNakedCodestream from ReadRawExif, same as it would called directly.
func adapterFor(kind detect.Kind) (container.Adapter, bool) {
	switch kind {
	case detect.JPEG:
		return jpeg.Adapter{}, true
	case detect.PNG:
		return png.Adapter{}, true
	case detect.WebP:
		return webp.Adapter{}, true
	case detect.JXL:
		return jxl.Adapter{}, true
	case detect.TIFF:
		return tifffile.Adapter{}, true
	case detect.HEIF:
		return heif.Adapter{}, true
	default:
		return nil, false
	}
}

func kindFor(dt DeclaredType) detect.Kind {
	switch dt.Kind {
	case FormatJPEG:
		return detect.JPEG
	case FormatPNG:
		return detect.PNG
	case FormatWebP:
		return detect.WebP
	case FormatTIFF:
		return detect.TIFF
	case FormatJXL:
		return detect.JXL
	case FormatHEIF:
		return detect.HEIF
	default:
		return detect.Unknown
	}
}

// New returns an empty Metadata, ready for tags to be set into it before
// encoding, the way a fresh exif.New() does in the teacher.
func New() *Metadata {
	return &Metadata{Endian: endian.Little}
}

func treeOf(m *Metadata) *tiffcodec.Tree {
	return &tiffcodec.Tree{Endian: m.Endian, Dirs: m.IFDs}
}

func fromTree(t *tiffcodec.Tree) *Metadata {
	return &Metadata{Endian: t.Endian, IFDs: t.Dirs}
}

// decodeFromAdapter runs the shared read-then-decode sequence against an
// already-resolved adapter, applying the façade's failure policy: ordinary
// decode failures are absorbed into an empty Metadata, but a hard
// truncation is reported rather than swallowed, since silently returning
// an empty Metadata for a truncated file would let a caller's subsequent
// write destroy the file's real (if truncated) EXIF data with no error
// ever surfacing.
func decodeFromAdapter(adapter container.Adapter, buf []byte) (*Metadata, error) {
	raw, err := adapter.ReadRawExif(buf)
	if err != nil {
		if errors.Is(err, container.ErrTruncated) {
			return nil, errors.Wrap(err, "littleexif: truncated EXIF carrier")
		}
		logrus.WithError(err).Debug("littleexif: no EXIF read, returning empty Metadata")
		return New(), nil
	}

	tree, err := tiffcodec.Decode(raw)
	if err != nil {
		if errors.Is(err, container.ErrTruncated) {
			return nil, errors.Wrap(err, "littleexif: truncated EXIF carrier")
		}
		logrus.WithError(err).Warn("littleexif: EXIF decode failed, returning empty Metadata")
		return New(), nil
	}

	return fromTree(tree), nil
}

// NewFromVec decodes metadata out of buf, a complete in-memory file of the
// declared type. Ordinary decode errors are absorbed: logged, and an empty
// Metadata is returned so downstream mutation/re-encode still works. A
// hard truncation error on the EXIF carrier itself is the one exception:
// it is returned rather than absorbed, since a read-modify-write round
// trip on a truncated file must not silently discard its real data.
func NewFromVec(buf []byte, dt DeclaredType) (*Metadata, error) {
	adapter, ok := adapterFor(kindFor(dt))
	if !ok {
		logrus.WithField("type", dt.Kind).Warn("littleexif: unrecognized declared type, returning empty Metadata")
		return New(), nil
	}
	return decodeFromAdapter(adapter, buf)
}

// NewFromPath reads the file at path and decodes it the way NewFromVec
// does, classifying its container kind by content-sniffing the leading
// bytes rather than trusting the path's extension; a mismatch between the
// two is logged. A file read failure is a hard I/O error and is returned
// as such, matching WriteToFile's treatment of the same os.ReadFile call.
func NewFromPath(path string) (*Metadata, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "littleexif: reading file to decode metadata from")
	}

	kind := detect.Detect(buf)
	if declared, ok := DeclaredTypeFromExtension(extOf(path)); ok && kindFor(declared) != kind {
		logrus.WithFields(logrus.Fields{
			"path":     path,
			"declared": declared.Kind,
			"detected": kind,
		}).Info("littleexif: path extension disagrees with content-sniffed type; detected type wins")
	}

	adapter, ok := adapterFor(kind)
	if !ok {
		logrus.WithField("path", path).Warn("littleexif: unrecognized file format, returning empty Metadata")
		return New(), nil
	}
	return decodeFromAdapter(adapter, buf)
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/' && path[i] != '\\'; i-- {
		if path[i] == '.' {
			return path[i+1:]
		}
	}
	return ""
}

// Encode serializes m's IFD tree into a bare TIFF stream (no container
// framing, no "Exif\0\0" prefix).
func (m *Metadata) Encode() ([]byte, error) {
	return tiffcodec.Encode(treeOf(m))
}

// WriteToVec embeds m into buf (a complete in-memory file of the declared
// type) and returns the result. For PNG, dt.AsTextChunk selects the legacy
// zTXt carrier over the default eXIf chunk. Every adapter's WriteRawExif
// takes a bare encoded TIFF stream — none of them expect an "Exif\0\0"
// prefix on the way in, even though heif's (and tifffile's) ReadRawExif
// prepends one on the way out; tiffcodec.Decode tolerates either form, so
// the asymmetry is invisible past this one call site.
func (m *Metadata) WriteToVec(buf []byte, dt DeclaredType) ([]byte, error) {
	tiff, err := m.Encode()
	if err != nil {
		return nil, errors.Wrap(err, "littleexif: encoding metadata")
	}

	if dt.Kind == FormatPNG && dt.AsTextChunk {
		cleared, err := png.Adapter{}.Clear(buf)
		if err != nil {
			return nil, err
		}
		return png.WriteLegacyRawExif(cleared, tiff)
	}

	adapter, ok := adapterFor(kindFor(dt))
	if !ok {
		return nil, errors.Errorf("littleexif: unrecognized declared type %v", dt.Kind)
	}
	return adapter.WriteRawExif(buf, tiff)
}

// AsU8Vec encodes m and wraps it in a minimal fresh container of the
// declared type, for callers building a file from scratch rather than
// editing an existing one.
func (m *Metadata) AsU8Vec(dt DeclaredType) ([]byte, error) {
	var seed []byte
	switch dt.Kind {
	case FormatJPEG:
		seed = []byte{0xFF, 0xD8, 0xFF, 0xD9}
	case FormatPNG:
		seed = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	default:
		return nil, errors.Errorf("littleexif: AsU8Vec has no minimal seed container for %v", dt.Kind)
	}
	return m.WriteToVec(seed, dt)
}

// WriteToFile reads path, embeds m into its content (classified by
// content-sniffing, same as NewFromPath), and overwrites the file with
// the result. The in-memory buffer is fully mutated before the file is
// truncated and replaced, so a write failure never leaves a partial file.
func (m *Metadata) WriteToFile(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "littleexif: reading file to write metadata into")
	}

	adapter, ok := adapterFor(detect.Detect(buf))
	if !ok {
		return errors.Errorf("littleexif: %s is not a recognized container", path)
	}

	tiff, err := m.Encode()
	if err != nil {
		return errors.Wrap(err, "littleexif: encoding metadata")
	}

	out, err := adapter.WriteRawExif(buf, tiff)
	if err != nil {
		return errors.Wrap(err, "littleexif: embedding metadata")
	}

	return os.WriteFile(path, out, 0o644)
}

// ClearMetadata removes the EXIF carrier from buf in place, the kind
// classified by content-sniffing.
func ClearMetadata(buf []byte) ([]byte, error) {
	kind := detect.Detect(buf)
	adapter, ok := adapterFor(kind)
	if !ok {
		return nil, errors.Errorf("littleexif: unrecognized container, cannot clear metadata")
	}
	return adapter.Clear(buf)
}

// FileClearMetadata clears the EXIF carrier from the file at path and
// overwrites it with the result.
func FileClearMetadata(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "littleexif: reading file to clear metadata from")
	}
	out, err := ClearMetadata(buf)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

// ClearAPP12Segment removes every JPEG APP12 segment from buf.
func ClearAPP12Segment(buf []byte) ([]byte, error) {
	return jpeg.ClearAPP12Segment(buf)
}

// ClearAPP13Segment removes every JPEG APP13 segment from buf.
func ClearAPP13Segment(buf []byte) ([]byte, error) {
	return jpeg.ClearAPP13Segment(buf)
}

// GetIFD returns the Dir for (group, n), if one exists.
func (m *Metadata) GetIFD(group exiftag.Group, n uint32) (*ifd.Dir, bool) {
	for _, d := range m.IFDs {
		if d.Group == group && d.GenericIFDNr == n {
			return d, true
		}
	}
	return nil, false
}

// CreateIFD returns the Dir for (group, n), creating it — and, recursively,
// its parent IFD — if it does not already exist. Setting a tag into an
// EXIF SubIFD on an otherwise-empty Metadata must implicitly create
// GENERIC IFD0 so the encoder has a parent to emit the offset tag from.
func (m *Metadata) CreateIFD(group exiftag.Group, n uint32) *ifd.Dir {
	if d, ok := m.GetIFD(group, n); ok {
		return d
	}

	if group != exiftag.GENERIC {
		parentGroup, _, ok := ifd.OffsetTagForParent(group)
		if ok {
			m.CreateIFD(parentGroup, n)
		}
	}

	d := ifd.NewWithTags(group, n, nil)
	m.IFDs = append(m.IFDs, d)
	return d
}

// ReduceToAMinimum drops every non-GENERIC IFD and, within each remaining
// GENERIC IFD, every tag outside exiftag.BaselineWhitelist.
func (m *Metadata) ReduceToAMinimum() {
	var kept []*ifd.Dir
	for _, d := range m.IFDs {
		if d.Group != exiftag.GENERIC {
			continue
		}
		minimal := ifd.NewWithTags(d.Group, d.GenericIFDNr, nil)
		for _, t := range d.Tags {
			if exiftag.BaselineWhitelist[t.ID] {
				minimal.AddTag(t)
			}
		}
		kept = append(kept, minimal)
	}
	m.IFDs = kept
}
