// Package heif implements the ISO-BMFF (HEIF/HEIC) container adapter.
// EXIF lives as an item: an infe entry inside meta/iinf names it "Exif",
// and the matching iloc entry points at its bytes, which normally live
// inside the mdat box. Only the FILE construction method is supported
// for read and write; IDAT/ITEM-constructed items are reported as
// ErrUnsupportedConstruction rather than silently mishandled.
package heif

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/TechnikTobi/little-exif-sub000/container"
)

var (
	// ErrNotHEIF is returned when buf doesn't start with an ftyp box.
	ErrNotHEIF = errors.New("heif: not a recognized ISO-BMFF file")
	// ErrUnsupportedConstruction is returned when the Exif item uses the
	// IDAT or ITEM construction method instead of FILE.
	ErrUnsupportedConstruction = errors.New("heif: unsupported item construction method (IDAT/ITEM)")

	exifHeader = []byte("Exif\x00\x00")
)

func be16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }
func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
func be64(b []byte) uint64 {
	return uint64(be32(b[0:4]))<<32 | uint64(be32(b[4:8]))
}
func putBE32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}
func putBE64(v uint64) []byte {
	out := make([]byte, 8)
	copy(out[0:4], putBE32(uint32(v>>32)))
	copy(out[4:8], putBE32(uint32(v)))
	return out
}

func readSized(b []byte, size uint8) (uint64, error) {
	switch size {
	case 0:
		return 0, nil
	case 4:
		if len(b) < 4 {
			return 0, errors.Wrap(container.ErrTruncated, "heif: truncated sized field")
		}
		return uint64(be32(b[:4])), nil
	case 8:
		if len(b) < 8 {
			return 0, errors.Wrap(container.ErrTruncated, "heif: truncated sized field")
		}
		return be64(b[:8]), nil
	default:
		return 0, errors.Errorf("heif: unsupported field size %d", size)
	}
}

func writeSized(v uint64, size uint8) []byte {
	switch size {
	case 0:
		return nil
	case 4:
		return putBE32(uint32(v))
	default:
		return putBE64(v)
	}
}

// box is one decoded ISO-BMFF box's span within a buffer, including the
// version/flags of "full boxes" that carry them.
type box struct {
	boxType   string
	start     int
	end       int
	headerLen int
	version   uint8
	flags     [3]byte
}

func isFullBoxType(t string) bool {
	switch t {
	case "meta", "hdlr", "iinf", "infe", "iloc":
		return true
	}
	return false
}

func payloadOf(buf []byte, b box) []byte {
	return buf[b.start+b.headerLen : b.end]
}

// scanBoxesIn walks every box in the half-open range [start,end) of buf.
func scanBoxesIn(buf []byte, start, end int) ([]box, error) {
	var boxes []box
	pos := start
	for pos+8 <= end {
		size := be32(buf[pos : pos+4])
		boxType := string(buf[pos+4 : pos+8])
		headerLen := 8
		total := int(size)
		if size == 1 {
			if pos+16 > end {
				return nil, errors.Wrapf(container.ErrTruncated, "heif: largesize box at %d", pos)
			}
			total = int(be64(buf[pos+8 : pos+16]))
			headerLen = 16
		}
		bodyStart := pos + headerLen
		var version uint8
		var flags [3]byte
		if isFullBoxType(boxType) {
			if bodyStart+4 > end {
				return nil, errors.Wrapf(container.ErrTruncated, "heif: full box header for %q at %d", boxType, pos)
			}
			version = buf[bodyStart]
			copy(flags[:], buf[bodyStart+1:bodyStart+4])
			headerLen += 4
		}
		if total < headerLen || pos+total > end {
			return nil, errors.Wrapf(container.ErrTruncated, "heif: invalid box length %d for %q at %d", total, boxType, pos)
		}
		boxes = append(boxes, box{boxType: boxType, start: pos, end: pos + total, headerLen: headerLen, version: version, flags: flags})
		pos += total
	}
	return boxes, nil
}

func findBox(boxes []box, t string) (box, bool) {
	for _, b := range boxes {
		if b.boxType == t {
			return b, true
		}
	}
	return box{}, false
}

func checkSignature(buf []byte) error {
	boxes, err := scanBoxesIn(buf, 0, len(buf))
	if err != nil || len(boxes) == 0 || boxes[0].boxType != "ftyp" {
		return ErrNotHEIF
	}
	return nil
}

// infeItemID reads the item_id field of an infe box, which is 2 bytes
// for version < 3 and 4 bytes for version 3.
func infeItemID(buf []byte, b box) (uint32, error) {
	p := payloadOf(buf, b)
	if b.version == 3 {
		if len(p) < 4 {
			return 0, errors.Wrap(container.ErrTruncated, "heif: truncated infe entry")
		}
		return be32(p[0:4]), nil
	}
	if len(p) < 2 {
		return 0, errors.Wrap(container.ErrTruncated, "heif: truncated infe entry")
	}
	return uint32(be16(p[0:2])), nil
}

// infeItemType reads the 4-byte item_type FourCC, present for version >= 2.
func infeItemType(buf []byte, b box) string {
	p := payloadOf(buf, b)
	off := 4 // item_id(2) + protection_index(2)
	if b.version == 3 {
		off = 6 // item_id(4) + protection_index(2)
	}
	if b.version < 2 || len(p) < off+4 {
		return ""
	}
	return string(p[off : off+4])
}

func itemCountFieldSize(version uint8) int {
	if version == 0 {
		return 2
	}
	return 4
}

// iinfChildren returns the infe boxes inside an iinf box, plus the span
// of its item_count field.
func iinfChildren(buf []byte, iinfBox box) (countStart, countEnd int, entries []box, err error) {
	countStart = iinfBox.start + iinfBox.headerLen
	countEnd = countStart + itemCountFieldSize(iinfBox.version)
	if countEnd > iinfBox.end {
		return 0, 0, nil, errors.Wrap(container.ErrTruncated, "heif: truncated iinf item_count")
	}
	entries, err = scanBoxesIn(buf, countEnd, iinfBox.end)
	return countStart, countEnd, entries, err
}

func findExifInfe(buf []byte, iinfBox box) (box, bool, error) {
	_, _, entries, err := iinfChildren(buf, iinfBox)
	if err != nil {
		return box{}, false, err
	}
	for _, e := range entries {
		if infeItemType(buf, e) == "Exif" {
			return e, true, nil
		}
	}
	return box{}, false, nil
}

func maxItemID(buf []byte, iinfBox box) (uint32, error) {
	_, _, entries, err := iinfChildren(buf, iinfBox)
	if err != nil {
		return 0, err
	}
	var max uint32
	for _, e := range entries {
		id, err := infeItemID(buf, e)
		if err != nil {
			return 0, err
		}
		if id > max {
			max = id
		}
	}
	return max, nil
}

// ilocExtent is one extent of an item location entry.
type ilocExtent struct {
	index  uint64
	offset uint64
	length uint64
}

// ilocItem is one item location entry; constructionMethod 0 is FILE, 1
// is IDAT, 2 is ITEM (ISO/IEC 14496-12 §8.11.3).
type ilocItem struct {
	itemID             uint32
	constructionMethod uint8
	dataRefIndex       uint16
	baseOffset         uint64
	extents            []ilocExtent
}

type ilocBox struct {
	version                                           uint8
	flags                                              [3]byte
	offsetSize, lengthSize, baseOffsetSize, indexSize uint8
	items                                              []ilocItem
}

func decodeIloc(buf []byte, b box) (ilocBox, error) {
	p := payloadOf(buf, b)
	if len(p) < 2 {
		return ilocBox{}, errors.Wrap(container.ErrTruncated, "heif: truncated iloc header")
	}
	il := ilocBox{version: b.version, flags: b.flags}
	il.offsetSize = p[0] >> 4
	il.lengthSize = p[0] & 0x0F
	il.baseOffsetSize = p[1] >> 4
	if b.version == 1 || b.version == 2 {
		il.indexSize = p[1] & 0x0F
	}
	pos := 2

	var itemCount int
	if b.version < 2 {
		if pos+2 > len(p) {
			return ilocBox{}, errors.Wrap(container.ErrTruncated, "heif: truncated iloc item_count")
		}
		itemCount = int(be16(p[pos : pos+2]))
		pos += 2
	} else {
		if pos+4 > len(p) {
			return ilocBox{}, errors.Wrap(container.ErrTruncated, "heif: truncated iloc item_count")
		}
		itemCount = int(be32(p[pos : pos+4]))
		pos += 4
	}

	for i := 0; i < itemCount; i++ {
		var item ilocItem
		if b.version < 2 {
			if pos+2 > len(p) {
				return ilocBox{}, errors.Wrap(container.ErrTruncated, "heif: truncated iloc item_id")
			}
			item.itemID = uint32(be16(p[pos : pos+2]))
			pos += 2
		} else {
			if pos+4 > len(p) {
				return ilocBox{}, errors.Wrap(container.ErrTruncated, "heif: truncated iloc item_id")
			}
			item.itemID = be32(p[pos : pos+4])
			pos += 4
		}
		if b.version == 1 || b.version == 2 {
			if pos+2 > len(p) {
				return ilocBox{}, errors.Wrap(container.ErrTruncated, "heif: truncated construction method")
			}
			item.constructionMethod = uint8(be16(p[pos:pos+2]) & 0x0F)
			pos += 2
		}
		if pos+2 > len(p) {
			return ilocBox{}, errors.Wrap(container.ErrTruncated, "heif: truncated data_reference_index")
		}
		item.dataRefIndex = be16(p[pos : pos+2])
		pos += 2

		baseOffset, err := readSized(p[pos:], il.baseOffsetSize)
		if err != nil {
			return ilocBox{}, err
		}
		item.baseOffset = baseOffset
		pos += int(il.baseOffsetSize)

		if pos+2 > len(p) {
			return ilocBox{}, errors.Wrap(container.ErrTruncated, "heif: truncated extent_count")
		}
		extentCount := int(be16(p[pos : pos+2]))
		pos += 2

		for e := 0; e < extentCount; e++ {
			var ext ilocExtent
			if il.indexSize > 0 {
				idx, err := readSized(p[pos:], il.indexSize)
				if err != nil {
					return ilocBox{}, err
				}
				ext.index = idx
				pos += int(il.indexSize)
			}
			off, err := readSized(p[pos:], il.offsetSize)
			if err != nil {
				return ilocBox{}, err
			}
			ext.offset = off
			pos += int(il.offsetSize)

			ln, err := readSized(p[pos:], il.lengthSize)
			if err != nil {
				return ilocBox{}, err
			}
			ext.length = ln
			pos += int(il.lengthSize)

			item.extents = append(item.extents, ext)
		}
		il.items = append(il.items, item)
	}
	return il, nil
}

func encodeIlocBody(il ilocBox) []byte {
	var body []byte
	body = append(body, (il.offsetSize<<4)|il.lengthSize)
	b1 := il.baseOffsetSize << 4
	if il.version == 1 || il.version == 2 {
		b1 |= il.indexSize
	}
	body = append(body, b1)

	if il.version < 2 {
		body = append(body, byte(len(il.items)>>8), byte(len(il.items)))
	} else {
		body = append(body, putBE32(uint32(len(il.items)))...)
	}

	for _, item := range il.items {
		if il.version < 2 {
			body = append(body, byte(item.itemID>>8), byte(item.itemID))
		} else {
			body = append(body, putBE32(item.itemID)...)
		}
		if il.version == 1 || il.version == 2 {
			v := uint16(item.constructionMethod & 0x0F)
			body = append(body, byte(v>>8), byte(v))
		}
		body = append(body, byte(item.dataRefIndex>>8), byte(item.dataRefIndex))
		body = append(body, writeSized(item.baseOffset, il.baseOffsetSize)...)
		body = append(body, byte(len(item.extents)>>8), byte(len(item.extents)))
		for _, e := range item.extents {
			if il.indexSize > 0 {
				body = append(body, writeSized(e.index, il.indexSize)...)
			}
			body = append(body, writeSized(e.offset, il.offsetSize)...)
			body = append(body, writeSized(e.length, il.lengthSize)...)
		}
	}
	return body
}

func buildFullBox(boxType string, version uint8, flags [3]byte, body []byte) []byte {
	total := 8 + 4 + len(body)
	out := make([]byte, 0, total)
	out = append(out, putBE32(uint32(total))...)
	out = append(out, []byte(boxType)...)
	out = append(out, version)
	out = append(out, flags[:]...)
	out = append(out, body...)
	return out
}

func encodeIlocBox(il ilocBox) []byte {
	return buildFullBox("iloc", il.version, il.flags, encodeIlocBody(il))
}

func buildInfeEntry(itemID uint32) []byte {
	body := make([]byte, 0, 9)
	body = append(body, byte(itemID>>8), byte(itemID))
	body = append(body, 0, 0) // protection index
	body = append(body, []byte("Exif")...)
	body = append(body, 0x00) // empty null-terminated item name
	return buildFullBox("infe", 2, [3]byte{}, body)
}

func findIlocItem(il ilocBox, itemID uint32) (ilocItem, int, bool) {
	for i, item := range il.items {
		if item.itemID == itemID {
			return item, i, true
		}
	}
	return ilocItem{}, -1, false
}

// resolvedExtent locates the exif item's box tree path and its single
// supported (FILE construction) extent.
type resolvedExtent struct {
	metaBox   box
	iinfBox   box
	ilocBox   box
	infeBox   box
	il        ilocBox
	item      ilocItem
	itemIndex int
	absOffset uint64
}

func resolveExifExtent(buf []byte) (resolvedExtent, bool, error) {
	if err := checkSignature(buf); err != nil {
		return resolvedExtent{}, false, err
	}
	topBoxes, err := scanBoxesIn(buf, 0, len(buf))
	if err != nil {
		return resolvedExtent{}, false, err
	}
	metaBox, ok := findBox(topBoxes, "meta")
	if !ok {
		return resolvedExtent{}, false, nil
	}
	metaChildren, err := scanBoxesIn(buf, metaBox.start+metaBox.headerLen, metaBox.end)
	if err != nil {
		return resolvedExtent{}, false, err
	}
	iinfBox, ok := findBox(metaChildren, "iinf")
	if !ok {
		return resolvedExtent{}, false, nil
	}
	infeBox, ok, err := findExifInfe(buf, iinfBox)
	if err != nil {
		return resolvedExtent{}, false, err
	}
	if !ok {
		return resolvedExtent{}, false, nil
	}
	itemID, err := infeItemID(buf, infeBox)
	if err != nil {
		return resolvedExtent{}, false, err
	}
	ilocBoxSpan, ok := findBox(metaChildren, "iloc")
	if !ok {
		return resolvedExtent{}, false, nil
	}
	il, err := decodeIloc(buf, ilocBoxSpan)
	if err != nil {
		return resolvedExtent{}, false, err
	}
	item, idx, ok := findIlocItem(il, itemID)
	if !ok {
		return resolvedExtent{}, false, nil
	}
	if item.constructionMethod != 0 {
		return resolvedExtent{}, false, ErrUnsupportedConstruction
	}
	if len(item.extents) != 1 {
		return resolvedExtent{}, false, errors.New("heif: exif item must have exactly one extent")
	}
	absOffset := item.baseOffset + item.extents[0].offset
	return resolvedExtent{
		metaBox: metaBox, iinfBox: iinfBox, ilocBox: ilocBoxSpan, infeBox: infeBox,
		il: il, item: item, itemIndex: idx, absOffset: absOffset,
	}, true, nil
}

// Adapter implements container.Adapter for HEIF/HEIC files.
type Adapter struct{}

var _ container.Adapter = Adapter{}

// ReadRawExif returns the raw TIFF bytes of the Exif item, prefixed with
// "Exif\0\0" to match the convention of the other carriers this module
// hands to the TIFF decoder.
func (Adapter) ReadRawExif(buf []byte) ([]byte, error) {
	r, found, err := resolveExifExtent(buf)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, container.ErrNoMetadata
	}
	ext := r.item.extents[0]
	if r.absOffset+4 > uint64(len(buf)) || r.absOffset+ext.length > uint64(len(buf)) {
		return nil, errors.Wrap(container.ErrTruncated, "heif: exif extent out of range")
	}
	tiffHeaderOffset := be32(buf[r.absOffset : r.absOffset+4])
	start := r.absOffset + 4 + uint64(tiffHeaderOffset)
	end := r.absOffset + ext.length
	if start > end || end > uint64(len(buf)) {
		return nil, errors.Wrap(container.ErrTruncated, "heif: invalid tiff_header_offset")
	}
	out := make([]byte, 0, len(exifHeader)+int(end-start))
	out = append(out, exifHeader...)
	out = append(out, buf[start:end]...)
	return out, nil
}

type edit struct {
	start, end int
	data       []byte
}

func applyEdits(buf []byte, edits []edit) ([]byte, error) {
	sort.Slice(edits, func(i, j int) bool { return edits[i].start > edits[j].start })
	out := buf
	var err error
	for _, e := range edits {
		out, err = container.Replace(out, e.start, e.end, e.data)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// adjustFileExtents applies delta to the absolute position of every
// FILE-construction, non-shared-data-reference item, mirroring how the
// original item_location.rs propagates an offset shift across items
// whenever bytes before them grow or shrink.
func adjustFileExtents(items []ilocItem, delta int64) {
	for i := range items {
		item := &items[i]
		if item.constructionMethod != 0 || item.dataRefIndex != 0 {
			continue
		}
		if item.baseOffset != 0 {
			item.baseOffset = addDelta(item.baseOffset, delta)
			continue
		}
		for e := range item.extents {
			item.extents[e].offset = addDelta(item.extents[e].offset, delta)
		}
	}
}

func addDelta(v uint64, delta int64) uint64 {
	if delta < 0 && uint64(-delta) > v {
		return 0
	}
	return uint64(int64(v) + delta)
}

func findMdatFor(buf []byte, absOffset uint64) (box, error) {
	topBoxes, err := scanBoxesIn(buf, 0, len(buf))
	if err != nil {
		return box{}, err
	}
	for _, b := range topBoxes {
		if b.boxType == "mdat" && uint64(b.start) <= absOffset && absOffset < uint64(b.end) {
			return b, nil
		}
	}
	return box{}, errors.New("heif: exif payload not located within an mdat box")
}

// Clear removes the Exif item: its infe entry, its iloc entry, and its
// bytes from the enclosing mdat box, propagating the resulting offset
// shift to every other FILE-construction item.
func (Adapter) Clear(buf []byte) ([]byte, error) {
	r, found, err := resolveExifExtent(buf)
	if err != nil {
		return nil, err
	}
	if !found {
		return buf, nil
	}

	ext := r.item.extents[0]
	mdatBox, err := findMdatFor(buf, r.absOffset)
	if err != nil {
		return nil, err
	}

	remaining := append([]ilocItem{}, r.il.items[:r.itemIndex]...)
	remaining = append(remaining, r.il.items[r.itemIndex+1:]...)

	for i := range remaining {
		item := &remaining[i]
		if item.constructionMethod != 0 || item.dataRefIndex != 0 {
			continue
		}
		abs := item.baseOffset + item.extents[0].offset
		if abs > r.absOffset {
			if item.baseOffset != 0 {
				item.baseOffset = addDelta(item.baseOffset, -int64(ext.length))
			} else {
				item.extents[0].offset = addDelta(item.extents[0].offset, -int64(ext.length))
			}
		}
	}

	newIl := r.il
	newIl.items = remaining
	newIlocBytes := encodeIlocBox(newIl)
	ilocDelta := len(newIlocBytes) - (r.ilocBox.end - r.ilocBox.start)

	iinfDelta := -(r.infeBox.end - r.infeBox.start)
	countStart, countEnd, entries, err := iinfChildren(buf, r.iinfBox)
	if err != nil {
		return nil, err
	}
	newCount := len(entries) - 1

	metaShrink := int64(-(iinfDelta + ilocDelta))
	adjustFileExtents(remaining, -metaShrink)

	// Re-encode iloc again now that remaining offsets include the meta shrink.
	newIl.items = remaining
	newIlocBytes = encodeIlocBox(newIl)
	ilocDelta = len(newIlocBytes) - (r.ilocBox.end - r.ilocBox.start)
	metaDelta := iinfDelta + ilocDelta

	var countBytes []byte
	if r.iinfBox.version == 0 {
		countBytes = []byte{byte(newCount >> 8), byte(newCount)}
	} else {
		countBytes = putBE32(uint32(newCount))
	}

	edits := []edit{
		{int(r.absOffset), int(r.absOffset + ext.length), nil},
		{mdatBox.start, mdatBox.start + 4, putBE32(uint32(mdatBox.end-mdatBox.start) - uint32(ext.length))},
		{r.infeBox.start, r.infeBox.end, nil},
		{countStart, countEnd, countBytes},
		{r.iinfBox.start, r.iinfBox.start + 4, putBE32(uint32(r.iinfBox.end-r.iinfBox.start) + uint32(iinfDelta))},
		{r.ilocBox.start, r.ilocBox.end, newIlocBytes},
		{r.metaBox.start, r.metaBox.start + 4, putBE32(uint32(r.metaBox.end-r.metaBox.start) + uint32(metaDelta))},
	}
	return applyEdits(buf, edits)
}

// WriteRawExif clears any existing Exif item, then allocates a fresh
// item_id, appends its payload to the end of the mdat box, and adds the
// matching infe/iloc entries.
func (Adapter) WriteRawExif(buf []byte, tiff []byte) ([]byte, error) {
	cleared, err := Adapter{}.Clear(buf)
	if err != nil {
		return nil, err
	}
	if err := checkSignature(cleared); err != nil {
		return nil, err
	}

	topBoxes, err := scanBoxesIn(cleared, 0, len(cleared))
	if err != nil {
		return nil, err
	}
	metaBox, ok := findBox(topBoxes, "meta")
	if !ok {
		return nil, errors.New("heif: file has no meta box to write into")
	}
	mdatBox, ok := findBox(topBoxes, "mdat")
	if !ok {
		return nil, errors.New("heif: file has no mdat box to write into")
	}
	metaChildren, err := scanBoxesIn(cleared, metaBox.start+metaBox.headerLen, metaBox.end)
	if err != nil {
		return nil, err
	}
	iinfBox, ok := findBox(metaChildren, "iinf")
	if !ok {
		return nil, errors.New("heif: file has no iinf box to write into")
	}
	ilocBoxSpan, ok := findBox(metaChildren, "iloc")
	if !ok {
		return nil, errors.New("heif: file has no iloc box to write into")
	}

	il, err := decodeIloc(cleared, ilocBoxSpan)
	if err != nil {
		return nil, err
	}
	maxID, err := maxItemID(cleared, iinfBox)
	if err != nil {
		return nil, err
	}
	newItemID := maxID + 1

	if il.offsetSize != 4 && il.offsetSize != 8 {
		il.offsetSize = 4
	}
	if il.lengthSize != 4 && il.lengthSize != 8 {
		il.lengthSize = 4
	}

	payload := make([]byte, 0, 4+len(tiff))
	payload = append(payload, putBE32(0)...) // tiff_header_offset: TIFF starts right after this field
	payload = append(payload, tiff...)

	infeEntry := buildInfeEntry(newItemID)
	iinfGrowth := len(infeEntry)

	placeholderItem := ilocItem{
		itemID:             newItemID,
		constructionMethod: 0,
		dataRefIndex:       0,
		extents:            []ilocExtent{{offset: 0, length: uint64(len(payload))}},
	}
	probe := il
	probe.items = append(append([]ilocItem{}, il.items...), placeholderItem)
	ilocGrowth := len(encodeIlocBox(probe)) - (ilocBoxSpan.end - ilocBoxSpan.start)

	metaGrowth := iinfGrowth + ilocGrowth
	newAbsOffset := uint64(mdatBox.end) + uint64(metaGrowth)

	adjustFileExtents(il.items, int64(metaGrowth))
	placeholderItem.extents[0].offset = newAbsOffset
	il.items = append(il.items, placeholderItem)
	newIlocBytes := encodeIlocBox(il)
	ilocDelta := len(newIlocBytes) - (ilocBoxSpan.end - ilocBoxSpan.start)

	countStart, countEnd, entries, err := iinfChildren(cleared, iinfBox)
	if err != nil {
		return nil, err
	}
	newCount := len(entries) + 1
	var countBytes []byte
	if iinfBox.version == 0 {
		countBytes = []byte{byte(newCount >> 8), byte(newCount)}
	} else {
		countBytes = putBE32(uint32(newCount))
	}

	metaDelta := iinfGrowth + ilocDelta

	edits := []edit{
		{mdatBox.end, mdatBox.end, payload},
		{mdatBox.start, mdatBox.start + 4, putBE32(uint32(mdatBox.end-mdatBox.start) + uint32(len(payload)))},
		{iinfBox.end, iinfBox.end, infeEntry},
		{countStart, countEnd, countBytes},
		{iinfBox.start, iinfBox.start + 4, putBE32(uint32(iinfBox.end-iinfBox.start) + uint32(iinfGrowth))},
		{ilocBoxSpan.start, ilocBoxSpan.end, newIlocBytes},
		{metaBox.start, metaBox.start + 4, putBE32(uint32(metaBox.end-metaBox.start) + uint32(metaDelta))},
	}
	return applyEdits(cleared, edits)
}
