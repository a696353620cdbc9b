package tiffcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TechnikTobi/little-exif-sub000/endian"
	"github.com/TechnikTobi/little-exif-sub000/exiftag"
	"github.com/TechnikTobi/little-exif-sub000/ifd"
)

func stringTag(id uint16, group exiftag.Group, s string) ifd.Tag {
	entry, _ := exiftag.Lookup(id, group)
	return ifd.Tag{ID: id, Group: group, Format: exiftag.STRING, Role: entry.Role, Writable: true, Value: ifd.Value{Str: s}}
}

func TestEncodeDecodeRoundTripSimpleIFD0(t *testing.T) {
	ifd0 := ifd.NewWithTags(exiftag.GENERIC, 0, []ifd.Tag{
		stringTag(0x010E, exiftag.GENERIC, "Hello World!"),
		{ID: 0x011A, Group: exiftag.GENERIC, Format: exiftag.RATIONAL64U, Role: exiftag.RoleValue, Writable: true,
			Value: ifd.Value{URatNum: []uint32{72}, URatDenom: []uint32{1}}},
	})

	tree := &Tree{Endian: endian.Little, Dirs: []*ifd.Dir{ifd0}}

	out, err := Encode(tree)
	require.NoError(t, err)

	got, err := Decode(out)
	require.NoError(t, err)
	require.Len(t, got.Dirs, 1)

	dir, ok := got.GetDir(exiftag.GENERIC, 0)
	require.True(t, ok)

	desc, ok := dir.GetTag(0x010E)
	require.True(t, ok)
	assert.Equal(t, "Hello World!", desc.Value.Str)

	res, ok := dir.GetTag(0x011A)
	require.True(t, ok)
	assert.Equal(t, []uint32{72}, res.Value.URatNum)
}

func TestEncodeDecodeRoundTripWithExifSubIFD(t *testing.T) {
	ifd0 := ifd.NewWithTags(exiftag.GENERIC, 0, nil)
	exifDir := ifd.NewWithTags(exiftag.EXIF, 0, []ifd.Tag{
		{ID: 0x9000, Group: exiftag.EXIF, Format: exiftag.UNDEF, Role: exiftag.RoleValue, Writable: true,
			Value: ifd.Value{Undef: []byte("0220")}},
	})

	tree := &Tree{Endian: endian.Big, Dirs: []*ifd.Dir{ifd0, exifDir}}

	out, err := Encode(tree)
	require.NoError(t, err)

	got, err := Decode(out)
	require.NoError(t, err)

	generic, ok := got.GetDir(exiftag.GENERIC, 0)
	require.True(t, ok)
	_, hasPointerTag := generic.GetTag(exiftag.TagExifIFDPointer)
	assert.False(t, hasPointerTag, "IFD_OFFSET tags must not appear as ordinary tags in the decoded tree")

	exif, ok := got.GetDir(exiftag.EXIF, 0)
	require.True(t, ok)
	version, ok := exif.GetTag(0x9000)
	require.True(t, ok)
	assert.Equal(t, []byte("0220"), version.Value.Undef)
}

func TestEncodeDecodeRoundTripStripPayload(t *testing.T) {
	payload := []byte("stripbytes-one-stripbytes-two")
	strip := ifd.Tag{
		ID: exiftag.TagStripOffsets, Group: exiftag.GENERIC, Format: exiftag.INT32U,
		Role: exiftag.RoleDataOffset, Writable: true,
		Value:   ifd.Value{U32: []uint32{15, 14}},
		Payload: payload,
	}
	ifd0 := ifd.NewWithTags(exiftag.GENERIC, 0, []ifd.Tag{strip})
	tree := &Tree{Endian: endian.Little, Dirs: []*ifd.Dir{ifd0}}

	out, err := Encode(tree)
	require.NoError(t, err)

	got, err := Decode(out)
	require.NoError(t, err)

	dir, ok := got.GetDir(exiftag.GENERIC, 0)
	require.True(t, ok)
	tag, ok := dir.GetTag(exiftag.TagStripOffsets)
	require.True(t, ok)
	assert.Equal(t, payload, tag.Payload)

	_, hasByteCounts := dir.GetTag(exiftag.TagStripByteCounts)
	assert.False(t, hasByteCounts, "StripByteCounts is synthesized on encode, not carried as a separate stored tag")
}

func TestDecodeCorruptHeader(t *testing.T) {
	_, err := Decode([]byte{0, 1, 2, 3})
	assert.ErrorIs(t, err, ErrCorruptHeader)
}

func TestDecodeToleratesExifPrefix(t *testing.T) {
	ifd0 := ifd.NewWithTags(exiftag.GENERIC, 0, []ifd.Tag{stringTag(0x010E, exiftag.GENERIC, "x")})
	tree := &Tree{Endian: endian.Little, Dirs: []*ifd.Dir{ifd0}}
	out, err := Encode(tree)
	require.NoError(t, err)

	prefixed := append([]byte("Exif\x00\x00"), out...)
	got, err := Decode(prefixed)
	require.NoError(t, err)
	assert.Len(t, got.Dirs, 1)
}
