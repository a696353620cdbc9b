package littleexif

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TechnikTobi/little-exif-sub000/container"
	"github.com/TechnikTobi/little-exif-sub000/exiftag"
	"github.com/TechnikTobi/little-exif-sub000/ifd"
)

func minimalJPEGFile() []byte {
	return []byte{0xFF, 0xD8, 0xFF, 0xD9}
}

func TestSetTagAndWriteToVecRoundTrip(t *testing.T) {
	m := New()
	m.SetTag(stringTag(0x010E, exiftag.GENERIC, "Hello World!"))

	out, err := m.WriteToVec(minimalJPEGFile(), JPEG())
	require.NoError(t, err)

	got, err := NewFromVec(out, JPEG())
	require.NoError(t, err)
	tags := got.GetTag(TagPrototype{ID: 0x010E, Group: exiftag.GENERIC})
	require.Len(t, tags, 1)
	assert.Equal(t, "Hello World!", tags[0].Value.Str)
}

func TestNewFromVecReportsTruncatedTIFF(t *testing.T) {
	truncated := []byte{0x49, 0x49, 0x2A, 0x00} // "II*\0" header, cut off before the IFD0 offset

	got, err := NewFromVec(truncated, TIFF())
	assert.Nil(t, got)
	require.Error(t, err)
	assert.ErrorIs(t, err, container.ErrTruncated)
}

func TestSetTagReplacesExistingValue(t *testing.T) {
	m := New()
	m.SetTag(stringTag(0x010E, exiftag.GENERIC, "ABC!"))
	m.SetTag(stringTag(0x010E, exiftag.GENERIC, "XYZ!"))

	tags := m.GetTag(TagPrototype{ID: 0x010E, Group: exiftag.GENERIC})
	require.Len(t, tags, 1)
	assert.Equal(t, "XYZ!", tags[0].Value.Str)
}

func TestRemoveTagReportsCount(t *testing.T) {
	m := New()
	m.SetTag(stringTag(0x010E, exiftag.GENERIC, "x"))

	assert.Equal(t, 1, m.RemoveTag(TagPrototype{ID: 0x010E, Group: exiftag.GENERIC}))
	assert.Equal(t, 0, m.RemoveTag(TagPrototype{ID: 0x010E, Group: exiftag.GENERIC}))
	assert.Empty(t, m.GetTag(TagPrototype{ID: 0x010E, Group: exiftag.GENERIC}))
}

func TestCreateIFDAutoCreatesParent(t *testing.T) {
	m := New()
	_, ok := m.GetIFD(exiftag.GENERIC, 0)
	assert.False(t, ok)

	m.CreateIFD(exiftag.EXIF, 0)

	_, ok = m.GetIFD(exiftag.GENERIC, 0)
	assert.True(t, ok, "creating an EXIF SubIFD must auto-create its GENERIC IFD0 parent")
	_, ok = m.GetIFD(exiftag.EXIF, 0)
	assert.True(t, ok)
}

func TestCreateIFDAutoCreatesGrandparent(t *testing.T) {
	m := New()
	m.CreateIFD(exiftag.INTEROP, 0)

	_, ok := m.GetIFD(exiftag.EXIF, 0)
	assert.True(t, ok, "INTEROP's parent is EXIF")
	_, ok = m.GetIFD(exiftag.GENERIC, 0)
	assert.True(t, ok, "EXIF's parent is GENERIC")
}

func TestReduceToAMinimumDropsNonBaselineTagsAndSubIFDs(t *testing.T) {
	m := New()
	m.SetTag(ifd.Tag{ID: 0x0100, Group: exiftag.GENERIC, Format: exiftag.INT32U, Role: exiftag.RoleValue, Writable: true,
		Value: ifd.Value{U32: []uint32{100}}})
	m.SetTag(ifd.Tag{ID: 0x0112, Group: exiftag.GENERIC, Format: exiftag.INT16U, Role: exiftag.RoleValue, Writable: true,
		Value: ifd.Value{U16: []uint16{1}}}) // Orientation, not in the whitelist
	m.CreateIFD(exiftag.EXIF, 0)

	m.ReduceToAMinimum()

	_, hasExif := m.GetIFD(exiftag.EXIF, 0)
	assert.False(t, hasExif)
	generic, ok := m.GetIFD(exiftag.GENERIC, 0)
	require.True(t, ok)
	_, hasWidth := generic.GetTag(0x0100)
	assert.True(t, hasWidth)
	_, hasOrientation := generic.GetTag(0x0112)
	assert.False(t, hasOrientation)
}

func TestDateTimeRoundTrip(t *testing.T) {
	m := New()
	want := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)
	m.SetDateTime(want)

	got, ok := m.DateTime()
	require.True(t, ok)
	assert.True(t, want.Equal(got))
}

func TestLatLongRoundTrip(t *testing.T) {
	m := New()
	m.SetLatLong(-33.8688, 151.2093)

	lat, lon, ok := m.LatLong()
	require.True(t, ok)
	assert.InDelta(t, -33.8688, lat, 1e-3)
	assert.InDelta(t, 151.2093, lon, 1e-3)
}

func TestLatLongNotPresent(t *testing.T) {
	m := New()
	_, _, ok := m.LatLong()
	assert.False(t, ok)
}

func TestDeclaredTypeFromExtensionCaseInsensitive(t *testing.T) {
	dt, ok := DeclaredTypeFromExtension(".JPG")
	require.True(t, ok)
	assert.Equal(t, FormatJPEG, dt.Kind)

	_, ok = DeclaredTypeFromExtension("bogus")
	assert.False(t, ok)
}
