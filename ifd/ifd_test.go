package ifd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TechnikTobi/little-exif-sub000/exiftag"
)

func tag(id uint16) Tag {
	return Tag{ID: id, Group: exiftag.GENERIC, Format: exiftag.INT16U, Writable: true}
}

func TestSetTagSortsAndDedupes(t *testing.T) {
	d := NewWithTags(exiftag.GENERIC, 0, []Tag{tag(0x3), tag(0x1), tag(0x2)})
	ids := []uint16{}
	for _, tg := range d.Tags {
		ids = append(ids, tg.ID)
	}
	assert.Equal(t, []uint16{0x1, 0x2, 0x3}, ids)

	d.SetTag(tag(0x2))
	assert.Len(t, d.Tags, 3)
}

func TestRemoveTag(t *testing.T) {
	d := NewWithTags(exiftag.GENERIC, 0, []Tag{tag(1), tag(2)})
	ok := d.RemoveTag(1)
	assert.True(t, ok)
	assert.Len(t, d.Tags, 1)

	ok = d.RemoveTag(0xff)
	assert.False(t, ok)
}

func TestGetTag(t *testing.T) {
	d := NewWithTags(exiftag.GENERIC, 0, []Tag{tag(5)})
	got, ok := d.GetTag(5)
	require.True(t, ok)
	assert.Equal(t, uint16(5), got.ID)

	_, ok = d.GetTag(6)
	assert.False(t, ok)
}

func TestOffsetTagForParent(t *testing.T) {
	parent, offsetTag, ok := OffsetTagForParent(exiftag.INTEROP)
	require.True(t, ok)
	assert.Equal(t, exiftag.EXIF, parent)
	assert.Equal(t, exiftag.TagInteropIFDPointer, offsetTag)

	_, _, ok = OffsetTagForParent(exiftag.GENERIC)
	assert.False(t, ok)
}

func TestIFDTypeForOffsetTag(t *testing.T) {
	child, ok := IFDTypeForOffsetTag(exiftag.TagGPSIFDPointer, exiftag.GENERIC)
	require.True(t, ok)
	assert.Equal(t, exiftag.GPS, child)
}

func TestValidateInvariants(t *testing.T) {
	d := NewWithTags(exiftag.GENERIC, 0, []Tag{tag(1), tag(2)})
	_, ok := d.ValidateInvariants()
	assert.True(t, ok)

	d.Tags = append(d.Tags, tag(1))
	bad, ok := d.ValidateInvariants()
	assert.False(t, ok)
	assert.Equal(t, uint16(1), bad)
}

func TestComponentsString(t *testing.T) {
	tg := Tag{Format: exiftag.STRING, Value: Value{Str: "abc"}}
	assert.Equal(t, uint32(4), tg.Components())
}
