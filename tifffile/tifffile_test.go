package tifffile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TechnikTobi/little-exif-sub000/endian"
	"github.com/TechnikTobi/little-exif-sub000/exiftag"
	"github.com/TechnikTobi/little-exif-sub000/ifd"
	"github.com/TechnikTobi/little-exif-sub000/tiffcodec"
)

func ratTag(id uint16, num, denom uint32) ifd.Tag {
	return ifd.Tag{ID: id, Group: exiftag.GENERIC, Format: exiftag.RATIONAL64U, Role: exiftag.RoleValue, Writable: true,
		Value: ifd.Value{URatNum: []uint32{num}, URatDenom: []uint32{denom}}}
}

func u16Tag(id uint16, v uint16) ifd.Tag {
	return ifd.Tag{ID: id, Group: exiftag.GENERIC, Format: exiftag.INT16U, Role: exiftag.RoleValue, Writable: true,
		Value: ifd.Value{U16: []uint16{v}}}
}

func u32Tag(id uint16, v uint32) ifd.Tag {
	return ifd.Tag{ID: id, Group: exiftag.GENERIC, Format: exiftag.INT32U, Role: exiftag.RoleValue, Writable: true,
		Value: ifd.Value{U32: []uint32{v}}}
}

// baselineTIFF builds a minimal GENERIC IFD0 carrying every required TIFF
// baseline tag plus a one-strip payload, and encodes it.
func baselineTIFF(t *testing.T, width uint32) []byte {
	t.Helper()
	payload := []byte("pixels")
	strip := ifd.Tag{
		ID: exiftag.TagStripOffsets, Group: exiftag.GENERIC, Format: exiftag.INT32U,
		Role: exiftag.RoleDataOffset, Writable: true,
		Value:   ifd.Value{U32: []uint32{uint32(len(payload))}},
		Payload: payload,
	}
	ifd0 := ifd.NewWithTags(exiftag.GENERIC, 0, []ifd.Tag{
		u32Tag(0x0100, width),
		u32Tag(0x0101, 10),
		u16Tag(0x0103, 1),
		u16Tag(0x0106, 2),
		strip,
		u32Tag(0x0116, 10),
		ratTag(0x011A, 72, 1),
		ratTag(0x011B, 72, 1),
		u16Tag(0x0128, 2),
	})
	tree := &tiffcodec.Tree{Endian: endian.Little, Dirs: []*ifd.Dir{ifd0}}
	out, err := tiffcodec.Encode(tree)
	require.NoError(t, err)
	return out
}

func TestReadRawExifPrependsHeader(t *testing.T) {
	tiff := baselineTIFF(t, 100)
	got, err := Adapter{}.ReadRawExif(tiff)
	require.NoError(t, err)
	assert.Equal(t, append([]byte("Exif\x00\x00"), tiff...), got)
}

func TestReadRawExifRejectsCorrupt(t *testing.T) {
	_, err := Adapter{}.ReadRawExif([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestWriteRawExifAcceptsBaselineTIFF(t *testing.T) {
	tiff := baselineTIFF(t, 100)
	out, err := Adapter{}.WriteRawExif(nil, tiff)
	require.NoError(t, err)
	assert.Equal(t, tiff, out)
}

func TestWriteRawExifRejectsMissingBaselineTag(t *testing.T) {
	ifd0 := ifd.NewWithTags(exiftag.GENERIC, 0, []ifd.Tag{
		u32Tag(0x0101, 10),
	})
	tree := &tiffcodec.Tree{Endian: endian.Little, Dirs: []*ifd.Dir{ifd0}}
	tiff, err := tiffcodec.Encode(tree)
	require.NoError(t, err)

	_, err = Adapter{}.WriteRawExif(nil, tiff)
	assert.ErrorIs(t, err, ErrMissingBaselineTag)
}

func TestClearReducesToBaselineWhitelist(t *testing.T) {
	tiff := baselineTIFF(t, 100)

	tree, err := tiffcodec.Decode(tiff)
	require.NoError(t, err)
	tree.Dirs = append(tree.Dirs, ifd.NewWithTags(exiftag.EXIF, 0, []ifd.Tag{
		{ID: 0x9000, Group: exiftag.EXIF, Format: exiftag.UNDEF, Role: exiftag.RoleValue, Writable: true,
			Value: ifd.Value{Undef: []byte("0220")}},
	}))
	ifd0, ok := tree.GetDir(exiftag.GENERIC, 0)
	require.True(t, ok)
	ifd0.AddTag(u16Tag(0x0112, 1)) // Orientation: not in the whitelist

	withExtras, err := tiffcodec.Encode(tree)
	require.NoError(t, err)

	cleared, err := Adapter{}.Clear(withExtras)
	require.NoError(t, err)

	got, err := tiffcodec.Decode(cleared)
	require.NoError(t, err)
	require.Len(t, got.Dirs, 1, "EXIF SubIFD must be dropped by reduce-to-a-minimum")

	dir, ok := got.GetDir(exiftag.GENERIC, 0)
	require.True(t, ok)
	_, hasOrientation := dir.GetTag(0x0112)
	assert.False(t, hasOrientation, "Orientation is outside the baseline whitelist")
	_, hasWidth := dir.GetTag(0x0100)
	assert.True(t, hasWidth)
}
