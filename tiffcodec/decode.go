package tiffcodec

import (
	"github.com/pkg/errors"

	"github.com/TechnikTobi/little-exif-sub000/endian"
	"github.com/TechnikTobi/little-exif-sub000/exiftag"
	"github.com/TechnikTobi/little-exif-sub000/ifd"
	"github.com/TechnikTobi/little-exif-sub000/rational"
)

const entrySize = 12

// rawEntry is an entry's identity plus its decoded byte payload, before
// any catalog interpretation or coercion is applied.
type rawEntry struct {
	id         uint16
	format     exiftag.Format
	components uint32
	bytes      []byte
}

// decodeDir decodes one IFD at byte offset `offset` of p (relative to the
// start of the TIFF stream). It recurses into any SubIFD it encounters via
// an IFD_OFFSET-role tag, appending those child Dirs to *out, and returns
// the decoded Dir plus the trailing next-IFD link (0 if none).
func decodeDir(e endian.Endian, p []byte, offset int, group exiftag.Group, genericNr uint32, out *[]*ifd.Dir) (*ifd.Dir, uint32, error) {
	if offset < 0 || offset+2 > len(p) {
		return nil, 0, ErrNotEnoughData
	}
	count, err := e.U16(p[offset : offset+2])
	if err != nil {
		return nil, 0, errors.Wrap(err, "reading entry count")
	}

	entriesStart := offset + 2
	need := entriesStart + entrySize*int(count) + 4
	if need > len(p) {
		return nil, 0, ErrNotEnoughData
	}

	dir := &ifd.Dir{Group: group, GenericIFDNr: genericNr}

	var stripOffsets, stripByteCounts *rawEntry
	var thumbOffset, thumbLength *rawEntry

	for i := 0; i < int(count); i++ {
		entryOff := entriesStart + i*entrySize
		id, _ := e.U16(p[entryOff : entryOff+2])
		formatCode, _ := e.U16(p[entryOff+2 : entryOff+4])
		format, err := exiftag.FormatFromU16(formatCode)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "tag 0x%04x", id)
		}
		components, _ := e.U32(p[entryOff+4 : entryOff+8])
		byteCount := int(format.BytesPerComponent()) * int(components)

		var valBytes []byte
		if byteCount <= 4 {
			valBytes = p[entryOff+8 : entryOff+8+byteCount]
		} else {
			voff, _ := e.U32(p[entryOff+8 : entryOff+12])
			if int(voff) < 0 || int(voff)+byteCount > len(p) {
				return nil, 0, errors.Wrapf(ErrNotEnoughData, "tag 0x%04x value area", id)
			}
			valBytes = p[int(voff) : int(voff)+byteCount]
		}

		entry, known := exiftag.Lookup(id, group)

		if known && entry.Role == exiftag.RoleIFDOffset {
			childGroup, _ := exiftag.IFDOffsetGroup(id)
			childOff, err := e.U32(pad4(valBytes))
			if err != nil {
				return nil, 0, errors.Wrapf(err, "tag 0x%04x offset", id)
			}
			childDir, next, err := decodeDir(e, p, int(childOff), childGroup, genericNr, out)
			if err != nil {
				return nil, 0, errors.Wrapf(err, "SubIFD %s", childGroup)
			}
			if next != 0 {
				return nil, 0, errors.Wrapf(ErrUnexpectedChainLink, "SubIFD %s", childGroup)
			}
			*out = append(*out, childDir)
			continue
		}

		// The byte-count companions (StripByteCounts, ThumbnailLength) are
		// RoleValue in the catalog but are buffered here for pairing too.
		if known && (entry.Role == exiftag.RoleDataOffset || id == exiftag.TagStripByteCounts || id == exiftag.TagThumbnailLength) {
			re := &rawEntry{id, format, components, valBytes}
			switch id {
			case exiftag.TagStripOffsets:
				stripOffsets = re
			case exiftag.TagStripByteCounts:
				stripByteCounts = re
			case exiftag.TagThumbnailOffset:
				thumbOffset = re
			case exiftag.TagThumbnailLength:
				thumbLength = re
			}
			continue
		}

		tag, err := buildTag(id, group, entry, known, format, valBytes, e)
		if err != nil {
			return nil, 0, err
		}
		dir.Tags = append(dir.Tags, tag)
	}

	if stripOffsets != nil && stripByteCounts != nil {
		tag, err := pairDataOffset(e, p, exiftag.TagStripOffsets, stripOffsets, stripByteCounts)
		if err != nil {
			return nil, 0, errors.Wrap(err, "pairing StripOffsets/StripByteCounts")
		}
		dir.Tags = append(dir.Tags, tag)
	}
	if thumbOffset != nil && thumbLength != nil {
		tag, err := pairDataOffset(e, p, exiftag.TagThumbnailOffset, thumbOffset, thumbLength)
		if err != nil {
			return nil, 0, errors.Wrap(err, "pairing ThumbnailOffset/ThumbnailLength")
		}
		dir.Tags = append(dir.Tags, tag)
	}

	dir.Sort()

	linkOff := entriesStart + entrySize*int(count)
	next, err := e.U32(p[linkOff : linkOff+4])
	if err != nil {
		return nil, 0, errors.Wrap(err, "reading next-IFD link")
	}

	return dir, next, nil
}

// pad4 left-justifies an in-line value shorter than 4 bytes into a 4-byte
// buffer, matching how the TIFF entry's value_or_offset slot is laid out.
func pad4(v []byte) []byte {
	if len(v) >= 4 {
		return v[:4]
	}
	p := make([]byte, 4)
	copy(p, v)
	return p
}

func buildTag(id uint16, group exiftag.Group, entry exiftag.Entry, known bool, observed exiftag.Format, raw []byte, e endian.Endian) (ifd.Tag, error) {
	if !known {
		val, err := decodeValue(observed, raw, e)
		if err != nil {
			return ifd.Tag{}, errors.Wrapf(err, "unknown tag 0x%04x", id)
		}
		return ifd.Tag{ID: id, Group: group, Format: observed, Role: exiftag.RoleValue, Writable: true, Unknown: true, Value: val}, nil
	}

	if entry.Format == observed {
		val, err := decodeValue(observed, raw, e)
		if err != nil {
			return ifd.Tag{}, errors.Wrapf(err, "tag 0x%04x (%s)", id, entry.Name)
		}
		return ifd.Tag{ID: id, Group: group, Format: observed, Role: entry.Role, Writable: entry.Writable, Value: val}, nil
	}

	c, ok := exiftag.Resolve(id, group, entry.Format, observed)
	if !ok {
		return ifd.Tag{}, errors.Wrapf(exiftag.ErrIllegalFormat, "tag 0x%04x (%s): expected %s got %s", id, entry.Name, entry.Format, observed)
	}
	val, err := decodeCoerced(id, group, c, raw, e)
	if err != nil {
		return ifd.Tag{}, errors.Wrapf(err, "coercing tag 0x%04x (%s)", id, entry.Name)
	}
	return ifd.Tag{ID: id, Group: group, Format: entry.Format, Role: entry.Role, Writable: entry.Writable, Value: val}, nil
}

func decodeValue(format exiftag.Format, raw []byte, e endian.Endian) (ifd.Value, error) {
	switch format {
	case exiftag.INT8U:
		return ifd.Value{U8: append([]byte{}, raw...)}, nil
	case exiftag.STRING:
		return ifd.Value{Str: endian.String(raw)}, nil
	case exiftag.INT16U:
		v, err := e.U16Vec(raw)
		return ifd.Value{U16: v}, err
	case exiftag.INT32U:
		v, err := e.U32Vec(raw)
		return ifd.Value{U32: v}, err
	case exiftag.RATIONAL64U:
		num, denom, err := e.URationalVec(raw)
		return ifd.Value{URatNum: num, URatDenom: denom}, err
	case exiftag.INT8S:
		return ifd.Value{I8: e.I8Vec(raw)}, nil
	case exiftag.UNDEF:
		return ifd.Value{Undef: append([]byte{}, raw...)}, nil
	case exiftag.INT16S:
		v, err := e.I16Vec(raw)
		return ifd.Value{I16: v}, err
	case exiftag.INT32S:
		v, err := e.I32Vec(raw)
		return ifd.Value{I32: v}, err
	case exiftag.RATIONAL64S:
		num, denom, err := e.IRationalVec(raw)
		return ifd.Value{IRatNum: num, IRatDenom: denom}, err
	case exiftag.FLOAT:
		v, err := e.F32Vec(raw)
		return ifd.Value{F32: v}, err
	case exiftag.DOUBLE:
		v, err := e.F64Vec(raw)
		return ifd.Value{F64: v}, err
	default:
		return ifd.Value{}, errors.Errorf("decodeValue: unhandled format %s", format)
	}
}

// decodeCoerced applies one of the fixed (id,group)-qualified format
// substitutions from exiftag.Resolve, producing a Value in the catalog's
// expected format rather than the one observed on disk.
func decodeCoerced(id uint16, group exiftag.Group, c exiftag.Coercion, raw []byte, e endian.Endian) (ifd.Value, error) {
	switch {
	case c.Expected == exiftag.INT32U && (c.Observed == exiftag.INT16U || c.Observed == exiftag.INT8U):
		var widened []uint32
		if c.Observed == exiftag.INT16U {
			v, err := e.U16Vec(raw)
			if err != nil {
				return ifd.Value{}, err
			}
			for _, x := range v {
				widened = append(widened, uint32(x))
			}
		} else {
			for _, x := range raw {
				widened = append(widened, uint32(x))
			}
		}
		return ifd.Value{U32: widened}, nil

	case c.Expected == exiftag.INT16U && c.Observed == exiftag.INT32U:
		v, err := e.U32Vec(raw)
		if err != nil {
			return ifd.Value{}, err
		}
		narrowed := make([]uint16, len(v))
		for i, x := range v {
			narrowed[i] = uint16(x) // trusting the camera, per coercion rule
		}
		return ifd.Value{U16: narrowed}, nil

	case c.Expected == exiftag.INT16U && c.Observed == exiftag.INT8U:
		widened := make([]uint16, len(raw))
		for i, x := range raw {
			widened[i] = uint16(x)
		}
		return ifd.Value{U16: widened}, nil

	case c.Expected == exiftag.INT8U && c.Observed == exiftag.INT16U && c.Narrow:
		v, err := e.U16Vec(raw)
		if err != nil {
			return ifd.Value{}, err
		}
		narrowed := make([]byte, len(v))
		for i, x := range v {
			if x > 0xff {
				return ifd.Value{}, errors.Errorf("tag 0x%04x: INT16U value %d does not fit INT8U", id, x)
			}
			narrowed[i] = byte(x)
		}
		return ifd.Value{U8: narrowed}, nil

	case c.Expected == exiftag.INT8U && c.Observed == exiftag.STRING:
		// issue #74: GPSAltitudeRef written as a one-character string.
		v, err := exiftag.DecodeGPSAltitudeRef(raw)
		if err != nil {
			return ifd.Value{}, err
		}
		return ifd.Value{U8: []byte{v}}, nil

	case c.Expected == exiftag.RATIONAL64S && c.Observed == exiftag.RATIONAL64U:
		// issue #21: widen lossless-in-magnitude via an f64 bridge.
		num, denom, err := e.URationalVec(raw)
		if err != nil {
			return ifd.Value{}, err
		}
		iNum := make([]int32, len(num))
		iDenom := make([]int32, len(num))
		for i := range num {
			s := rational.WideningFromUnsigned(rational.Unsigned{Num: num[i], Denom: denom[i]})
			iNum[i], iDenom[i] = s.Num, s.Denom
		}
		return ifd.Value{IRatNum: iNum, IRatDenom: iDenom}, nil

	case c.Expected == exiftag.UNDEF && c.Observed == exiftag.STRING:
		// issue #63: GPSProcessingMethod written as STRING; keep raw bytes.
		return ifd.Value{Undef: append([]byte{}, raw...)}, nil

	default:
		return ifd.Value{}, errors.Errorf("decodeCoerced: unhandled coercion %s -> %s", c.Observed, c.Expected)
	}
}

// decodeIntegerVec decodes an INT32U- or INT16U-typed raw entry as a
// []uint32, used for the offsets/byte-counts vectors of DATA_OFFSET pairs
// where some encoders use the narrower format.
func decodeIntegerVec(format exiftag.Format, raw []byte, e endian.Endian) ([]uint32, error) {
	switch format {
	case exiftag.INT32U:
		return e.U32Vec(raw)
	case exiftag.INT16U:
		v, err := e.U16Vec(raw)
		if err != nil {
			return nil, err
		}
		out := make([]uint32, len(v))
		for i, x := range v {
			out[i] = uint32(x)
		}
		return out, nil
	default:
		return nil, errors.Errorf("decodeIntegerVec: unsupported format %s", format)
	}
}

// pairDataOffset resolves a DATA_OFFSET tag (StripOffsets or
// ThumbnailOffset) against its byte-count companion: it reads every
// (offset, count) extent from the stream and concatenates the payload,
// keeping the per-extent lengths so the encoder can re-split it later.
func pairDataOffset(e endian.Endian, p []byte, offsetTagID uint16, offsets, counts *rawEntry) (ifd.Tag, error) {
	offsetVec, err := decodeIntegerVec(offsets.format, offsets.bytes, e)
	if err != nil {
		return ifd.Tag{}, errors.Wrap(err, "decoding offsets")
	}
	countVec, err := decodeIntegerVec(counts.format, counts.bytes, e)
	if err != nil {
		return ifd.Tag{}, errors.Wrap(err, "decoding byte counts")
	}
	if len(offsetVec) != len(countVec) {
		return ifd.Tag{}, errors.Errorf("offsets/byte-counts length mismatch: %d vs %d", len(offsetVec), len(countVec))
	}

	var payload []byte
	for i := range offsetVec {
		o, n := int(offsetVec[i]), int(countVec[i])
		if o < 0 || n < 0 || o+n > len(p) {
			return ifd.Tag{}, errors.Wrapf(ErrNotEnoughData, "extent %d at offset %d len %d", i, o, n)
		}
		payload = append(payload, p[o:o+n]...)
	}

	entry, _ := exiftag.Lookup(offsetTagID, exiftag.GENERIC)
	return ifd.Tag{
		ID:       offsetTagID,
		Group:    exiftag.GENERIC,
		Format:   exiftag.INT32U,
		Role:     exiftag.RoleDataOffset,
		Writable: entry.Writable,
		Value:    ifd.Value{U32: countVec},
		Payload:  payload,
	}, nil
}
