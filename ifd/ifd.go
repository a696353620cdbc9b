// Package ifd models a single Image File Directory: a sorted, deduplicated
// list of typed tag entries plus the bookkeeping (group, generic-IFD index)
// that the TIFF/EXIF codec needs to place it in the tree.
package ifd

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/TechnikTobi/little-exif-sub000/exiftag"
)

// Value is the decoded payload of a tag: exactly one of the slices below is
// meaningful, selected by Tag.Format.
type Value struct {
	U8     []uint8
	Str    string
	U16    []uint16
	U32    []uint32
	I8     []int8
	I16    []int16
	I32    []int32
	F32    []float32
	F64    []float64
	URatNum, URatDenom []uint32
	IRatNum, IRatDenom []int32
	Undef  []byte
}

// Tag is one entry of an IFD: a catalog-typed or Unknown field plus, for
// DATA_OFFSET-role tags, the out-of-line payload it refers to.
type Tag struct {
	ID       uint16
	Group    exiftag.Group
	Format   exiftag.Format
	Role     exiftag.Role
	Writable bool

	// Unknown is true when ID has no catalog entry for this Group: the
	// tag is retained verbatim rather than interpreted.
	Unknown bool

	Value Value

	// Payload carries the out-of-line bytes for a DATA_OFFSET tag (e.g.
	// the strip or thumbnail bytes), so re-encoding can relocate them.
	Payload []byte
}

// Components reports how many format-sized components Value currently
// holds, used to compute the on-disk entry's Count field.
func (t Tag) Components() uint32 {
	switch t.Format {
	case exiftag.INT8U:
		return uint32(len(t.Value.U8))
	case exiftag.STRING:
		return uint32(len(t.Value.Str) + 1)
	case exiftag.INT16U:
		return uint32(len(t.Value.U16))
	case exiftag.INT32U:
		return uint32(len(t.Value.U32))
	case exiftag.RATIONAL64U:
		return uint32(len(t.Value.URatNum))
	case exiftag.INT8S:
		return uint32(len(t.Value.I8))
	case exiftag.UNDEF:
		return uint32(len(t.Value.Undef))
	case exiftag.INT16S:
		return uint32(len(t.Value.I16))
	case exiftag.INT32S:
		return uint32(len(t.Value.I32))
	case exiftag.RATIONAL64S:
		return uint32(len(t.Value.IRatNum))
	case exiftag.FLOAT:
		return uint32(len(t.Value.F32))
	case exiftag.DOUBLE:
		return uint32(len(t.Value.F64))
	default:
		return 0
	}
}

// Dir is one Image File Directory: a group, its generic-IFD index (0-based;
// for GENERIC, index 0 is IFD0, 1 is IFD1, ...; a SubIFD carries the index
// of the generic IFD that owns it), and its tags, always kept sorted by
// ascending ID with no duplicates.
type Dir struct {
	Group          exiftag.Group
	GenericIFDNr   uint32
	Tags           []Tag
}

// NewWithTags builds a Dir from an unordered slice of tags, sorting and
// deduplicating (last write wins) on construction.
func NewWithTags(group exiftag.Group, genericIFDNr uint32, tags []Tag) *Dir {
	d := &Dir{Group: group, GenericIFDNr: genericIFDNr}
	for _, t := range tags {
		d.AddTag(t)
	}
	return d
}

// AddTag appends t and re-sorts. If a tag with the same ID already exists
// it is replaced, matching SetTag's semantics — IFDs never carry duplicate
// IDs.
func (d *Dir) AddTag(t Tag) {
	d.SetTag(t)
}

// SetTag replaces the tag with the same ID if one exists, otherwise
// appends, then re-sorts by ascending ID. It logs when a catalog tag's
// default group disagrees with this Dir's group; tags absent from the
// catalog are not checked.
func (d *Dir) SetTag(t Tag) {
	if entry, ok := exiftag.Lookup(t.ID, t.Group); ok {
		if entry.Group != d.Group {
			logrus.WithFields(logrus.Fields{
				"tag":          t.ID,
				"catalogGroup": entry.Group,
				"dirGroup":     d.Group,
			}).Warn("ifd: tag's catalog default group disagrees with containing Dir's group")
		}
	}

	for i := range d.Tags {
		if d.Tags[i].ID == t.ID {
			d.Tags[i] = t
			d.sort()
			return
		}
	}
	d.Tags = append(d.Tags, t)
	d.sort()
}

// RemoveTag deletes the tag with the given ID, reporting whether one was
// present.
func (d *Dir) RemoveTag(id uint16) bool {
	for i := range d.Tags {
		if d.Tags[i].ID == id {
			d.Tags = append(d.Tags[:i], d.Tags[i+1:]...)
			return true
		}
	}
	return false
}

// GetTag returns the tag with the given ID, if present.
func (d *Dir) GetTag(id uint16) (Tag, bool) {
	for _, t := range d.Tags {
		if t.ID == id {
			return t, true
		}
	}
	return Tag{}, false
}

func (d *Dir) sort() {
	sort.Slice(d.Tags, func(i, j int) bool { return d.Tags[i].ID < d.Tags[j].ID })
}

// Sort re-establishes ascending-ID order. Decoders that append tags
// directly to Tags (bypassing SetTag, since the set of ids decoded from a
// stream is already deduplicated by construction) must call this once
// after the entry loop.
func (d *Dir) Sort() { d.sort() }

// GetGenericIFDNr returns the owning generic-IFD index.
func (d *Dir) GetGenericIFDNr() uint32 { return d.GenericIFDNr }

// GetIFDType returns the Dir's Group.
func (d *Dir) GetIFDType() exiftag.Group { return d.Group }

// OffsetTagForParent maps a non-GENERIC group to the (parent group, offset
// tag id) pair used to link it from its parent IFD. ok is false for
// GENERIC, which has no parent.
func OffsetTagForParent(g exiftag.Group) (parent exiftag.Group, offsetTag uint16, ok bool) {
	switch g {
	case exiftag.EXIF:
		return exiftag.GENERIC, exiftag.TagExifIFDPointer, true
	case exiftag.GPS:
		return exiftag.GENERIC, exiftag.TagGPSIFDPointer, true
	case exiftag.INTEROP:
		return exiftag.EXIF, exiftag.TagInteropIFDPointer, true
	default:
		return 0, 0, false
	}
}

// IFDTypeForOffsetTag is the inverse of OffsetTagForParent: given an
// IFD_OFFSET tag id observed in a Dir of group `in`, it returns the child
// group that tag addresses.
func IFDTypeForOffsetTag(id uint16, in exiftag.Group) (child exiftag.Group, ok bool) {
	switch {
	case id == exiftag.TagExifIFDPointer && in == exiftag.GENERIC:
		return exiftag.EXIF, true
	case id == exiftag.TagGPSIFDPointer && in == exiftag.GENERIC:
		return exiftag.GPS, true
	case id == exiftag.TagInteropIFDPointer && in == exiftag.EXIF:
		return exiftag.INTEROP, true
	default:
		return 0, false
	}
}

// ValidateInvariants checks the sorted/no-duplicate-ID invariants a
// decoded Dir must satisfy, returning the offending tag id on failure.
func (d *Dir) ValidateInvariants() (offendingID uint16, ok bool) {
	for i := 1; i < len(d.Tags); i++ {
		if d.Tags[i].ID <= d.Tags[i-1].ID {
			return d.Tags[i].ID, false
		}
	}
	return 0, true
}
