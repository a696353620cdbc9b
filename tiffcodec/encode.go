package tiffcodec

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/TechnikTobi/little-exif-sub000/endian"
	"github.com/TechnikTobi/little-exif-sub000/exiftag"
	"github.com/TechnikTobi/little-exif-sub000/ifd"
)

type entryPlan struct {
	id         uint16
	format     exiftag.Format
	components uint32
	valueBytes []byte
}

// encoder accumulates the output buffer. Bytes are only ever appended, so
// earlier positions (e.g. a child IFD's own offset pointer, computed before
// its parent writes its entry table) are always known by the time they are
// needed — nothing is patched after the fact.
type encoder struct {
	e   endian.Endian
	out []byte
}

func (enc *encoder) pos() int { return len(enc.out) }

func (enc *encoder) write(b []byte) int {
	start := enc.pos()
	enc.out = append(enc.out, b...)
	return start
}

// childrenOf returns dir's SubIFD children in the deterministic order the
// encoder must visit them: for a GENERIC dir, EXIF then GPS; for an EXIF
// dir, its INTEROP child.
func childrenOf(tree *Tree, dir *ifd.Dir) []*ifd.Dir {
	var out []*ifd.Dir
	switch dir.Group {
	case exiftag.GENERIC:
		if c, ok := tree.GetDir(exiftag.EXIF, dir.GenericIFDNr); ok {
			out = append(out, c)
		}
		if c, ok := tree.GetDir(exiftag.GPS, dir.GenericIFDNr); ok {
			out = append(out, c)
		}
	case exiftag.EXIF:
		if c, ok := tree.GetDir(exiftag.INTEROP, dir.GenericIFDNr); ok {
			out = append(out, c)
		}
	}
	return out
}

// buildEntries produces the sorted entry list for dir: its own writable
// tags (DATA_OFFSET tags expand into an offsets entry plus a synthesized
// byte-counts entry) plus one synthesized IFD_OFFSET entry per child in
// childOffsets. childOffsets values only need to be correct for the final
// emission pass; for sizing, zero placeholders of the same (always 4-byte)
// width are sufficient.
func buildEntries(dir *ifd.Dir, e endian.Endian, childOffsets map[uint16]uint32) ([]entryPlan, error) {
	var entries []entryPlan

	for _, t := range dir.Tags {
		if !t.Writable {
			continue
		}
		if t.Role == exiftag.RoleDataOffset {
			offsets := make([]uint32, len(t.Value.U32)) // placeholder length-correct offsets
			vb := e.PutU32Vec(offsets)
			entries = append(entries, entryPlan{t.ID, exiftag.INT32U, uint32(len(offsets)), vb})

			companionID, ok := exiftag.DataOffsetCompanion(t.ID)
			if !ok {
				return nil, errors.Errorf("tag 0x%04x: no byte-count companion registered", t.ID)
			}
			cb := e.PutU32Vec(t.Value.U32)
			entries = append(entries, entryPlan{companionID, exiftag.INT32U, uint32(len(t.Value.U32)), cb})
			continue
		}

		vb, err := encodeValue(t.Format, t.Value, e)
		if err != nil {
			return nil, errors.Wrapf(err, "tag 0x%04x", t.ID)
		}
		entries = append(entries, entryPlan{t.ID, t.Format, t.Components(), vb})
	}

	for tagID, childStart := range childOffsets {
		vb := make([]byte, 4)
		e.PutU32(vb, childStart)
		entries = append(entries, entryPlan{tagID, exiftag.INT32U, 1, vb})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })
	return entries, nil
}

func childOffsetTagIDs(tree *Tree, dir *ifd.Dir) ([]uint16, error) {
	var ids []uint16
	for _, child := range childrenOf(tree, dir) {
		_, tagID, ok := ifd.OffsetTagForParent(child.Group)
		if !ok {
			return nil, errors.Errorf("no offset tag registered for child group %s", child.Group)
		}
		ids = append(ids, tagID)
	}
	return ids, nil
}

// sizeDir computes the total encoded byte length of dir and everything it
// owns (its SubIFD children, its DATA_OFFSET payloads, its own entry table
// and offset area), without needing to know dir's absolute position.
func sizeDir(tree *Tree, dir *ifd.Dir, e endian.Endian) (int, error) {
	total := 0
	for _, child := range childrenOf(tree, dir) {
		n, err := sizeDir(tree, child, e)
		if err != nil {
			return 0, err
		}
		total += n
	}

	for _, t := range dir.Tags {
		if t.Role == exiftag.RoleDataOffset {
			total += len(t.Payload)
		}
	}

	childIDs, err := childOffsetTagIDs(tree, dir)
	if err != nil {
		return 0, err
	}
	placeholders := make(map[uint16]uint32, len(childIDs))
	for _, id := range childIDs {
		placeholders[id] = 0
	}

	entries, err := buildEntries(dir, e, placeholders)
	if err != nil {
		return 0, err
	}
	total += 2 + entrySize*len(entries) + 4
	for _, en := range entries {
		if len(en.valueBytes) > 4 {
			total += len(en.valueBytes)
		}
	}
	return total, nil
}

// emitDir writes dir and everything it owns into enc.out, returning dir's
// own absolute start offset (the start of its entry table). Children are
// always emitted first so their absolute offsets are known when this dir's
// IFD_OFFSET entries are built.
func (enc *encoder) emitDir(tree *Tree, dir *ifd.Dir, nextLink uint32) (int, error) {
	childOffsets := map[uint16]uint32{}
	for _, child := range childrenOf(tree, dir) {
		start, err := enc.emitDir(tree, child, 0) // SubIFDs never chain
		if err != nil {
			return 0, err
		}
		_, tagID, ok := ifd.OffsetTagForParent(child.Group)
		if !ok {
			return 0, errors.Errorf("no offset tag registered for child group %s", child.Group)
		}
		childOffsets[tagID] = uint32(start)
	}

	actualOffsets := map[uint16][]uint32{}
	for _, t := range dir.Tags {
		if t.Role != exiftag.RoleDataOffset {
			continue
		}
		var offs []uint32
		pos := 0
		for _, c := range t.Value.U32 {
			chunk := t.Payload[pos : pos+int(c)]
			offs = append(offs, uint32(enc.write(chunk)))
			pos += int(c)
		}
		actualOffsets[t.ID] = offs
	}

	entries, err := buildEntriesWithOffsets(dir, enc.e, childOffsets, actualOffsets)
	if err != nil {
		return 0, err
	}

	count := len(entries)
	tableLen := 2 + entrySize*count + 4
	tableBuf := make([]byte, tableLen)
	offsetAreaStart := enc.pos() + tableLen

	var offsetBuf []byte
	enc.e.PutU16(tableBuf[0:2], uint16(count))
	running := 0
	for i, en := range entries {
		eo := 2 + i*entrySize
		enc.e.PutU16(tableBuf[eo:eo+2], en.id)
		enc.e.PutU16(tableBuf[eo+2:eo+4], uint16(en.format))
		enc.e.PutU32(tableBuf[eo+4:eo+8], en.components)
		if len(en.valueBytes) <= 4 {
			copy(tableBuf[eo+8:eo+12], en.valueBytes)
		} else {
			enc.e.PutU32(tableBuf[eo+8:eo+12], uint32(offsetAreaStart+running))
			offsetBuf = append(offsetBuf, en.valueBytes...)
			running += len(en.valueBytes)
		}
	}
	enc.e.PutU32(tableBuf[2+entrySize*count:], nextLink)

	start := enc.write(tableBuf)
	enc.write(offsetBuf)
	return start, nil
}

// buildEntriesWithOffsets is buildEntries, except DATA_OFFSET tags encode
// their real, already-written extent offsets instead of placeholders.
func buildEntriesWithOffsets(dir *ifd.Dir, e endian.Endian, childOffsets map[uint16]uint32, dataOffsets map[uint16][]uint32) ([]entryPlan, error) {
	var entries []entryPlan

	for _, t := range dir.Tags {
		if !t.Writable {
			continue
		}
		if t.Role == exiftag.RoleDataOffset {
			offs := dataOffsets[t.ID]
			vb := e.PutU32Vec(offs)
			entries = append(entries, entryPlan{t.ID, exiftag.INT32U, uint32(len(offs)), vb})

			companionID, ok := exiftag.DataOffsetCompanion(t.ID)
			if !ok {
				return nil, errors.Errorf("tag 0x%04x: no byte-count companion registered", t.ID)
			}
			cb := e.PutU32Vec(t.Value.U32)
			entries = append(entries, entryPlan{companionID, exiftag.INT32U, uint32(len(t.Value.U32)), cb})
			continue
		}

		vb, err := encodeValue(t.Format, t.Value, e)
		if err != nil {
			return nil, errors.Wrapf(err, "tag 0x%04x", t.ID)
		}
		entries = append(entries, entryPlan{t.ID, t.Format, t.Components(), vb})
	}

	for tagID, childStart := range childOffsets {
		vb := make([]byte, 4)
		e.PutU32(vb, childStart)
		entries = append(entries, entryPlan{tagID, exiftag.INT32U, 1, vb})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })
	return entries, nil
}

func encodeValue(format exiftag.Format, v ifd.Value, e endian.Endian) ([]byte, error) {
	switch format {
	case exiftag.INT8U:
		return v.U8, nil
	case exiftag.STRING:
		return endian.PutString(v.Str), nil
	case exiftag.INT16U:
		return e.PutU16Vec(v.U16), nil
	case exiftag.INT32U:
		return e.PutU32Vec(v.U32), nil
	case exiftag.RATIONAL64U:
		return e.PutURationalVec(v.URatNum, v.URatDenom), nil
	case exiftag.INT8S:
		return e.PutI8Vec(v.I8), nil
	case exiftag.UNDEF:
		return v.Undef, nil
	case exiftag.INT16S:
		return e.PutI16Vec(v.I16), nil
	case exiftag.INT32S:
		return e.PutI32Vec(v.I32), nil
	case exiftag.RATIONAL64S:
		return e.PutIRationalVec(v.IRatNum, v.IRatDenom), nil
	case exiftag.FLOAT:
		return e.PutF32Vec(v.F32), nil
	case exiftag.DOUBLE:
		return e.PutF64Vec(v.F64), nil
	default:
		return nil, errors.Errorf("encodeValue: unhandled format %s", format)
	}
}

// Encode serializes tree as a complete TIFF/EXIF byte stream: header,
// IFD0's chain of GENERIC IFDs, each with its SubIFDs and out-of-line
// data emitted ahead of its own entry table.
func Encode(tree *Tree) ([]byte, error) {
	var generic []*ifd.Dir
	for _, d := range tree.Dirs {
		if d.Group == exiftag.GENERIC {
			generic = append(generic, d)
		}
	}
	if len(generic) == 0 {
		return nil, ErrEmpty
	}
	sort.Slice(generic, func(i, j int) bool { return generic[i].GenericIFDNr < generic[j].GenericIFDNr })

	sizes := make([]int, len(generic))
	for i, d := range generic {
		n, err := sizeDir(tree, d, tree.Endian)
		if err != nil {
			return nil, errors.Wrapf(err, "sizing generic IFD %d", d.GenericIFDNr)
		}
		sizes[i] = n
	}

	// A generic IFD's entry table follows its SubIFDs and DATA_OFFSET
	// payloads, which emitDir writes first.
	starts := make([]int, len(generic))
	pos := 8
	for i, n := range sizes {
		lead := 0
		for _, child := range childrenOf(tree, generic[i]) {
			cn, _ := sizeDir(tree, child, tree.Endian) // already sized without error above
			lead += cn
		}
		for _, t := range generic[i].Tags {
			if t.Role == exiftag.RoleDataOffset {
				lead += len(t.Payload)
			}
		}
		starts[i] = pos + lead
		pos += n
	}

	enc := &encoder{e: tree.Endian}
	header := tree.Endian.Header()
	tree.Endian.PutU32(header[4:8], uint32(starts[0]))
	enc.out = append(enc.out, header[:]...)

	for i, d := range generic {
		var nextLink uint32
		if i+1 < len(generic) {
			nextLink = uint32(starts[i+1])
		}
		start, err := enc.emitDir(tree, d, nextLink)
		if err != nil {
			return nil, errors.Wrapf(err, "encoding generic IFD %d", d.GenericIFDNr)
		}
		if start != starts[i] {
			return nil, errors.Errorf("tiffcodec: internal layout mismatch for generic IFD %d: expected start %d, got %d", d.GenericIFDNr, starts[i], start)
		}
	}

	return enc.out, nil
}
