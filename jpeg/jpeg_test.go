package jpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TechnikTobi/little-exif-sub000/container"
)

func minimalJPEG(segments ...[]byte) []byte {
	buf := []byte{0xFF, markerSOI}
	for _, s := range segments {
		buf = append(buf, s...)
	}
	buf = append(buf, 0xFF, markerSOS, 0x00, 0x02, 0xAB, 0xCD) // fake scan header + data
	buf = append(buf, 0xFF, markerEOI)
	return buf
}

func app1Segment(payload []byte) []byte {
	length := len(payload) + 2
	seg := []byte{0xFF, markerAPP1, byte(length >> 8), byte(length)}
	return append(seg, payload...)
}

func app0Segment() []byte {
	payload := []byte("JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
	length := len(payload) + 2
	seg := []byte{0xFF, 0xE0, byte(length >> 8), byte(length)}
	return append(seg, payload...)
}

func TestReadRawExifFindsAPP1(t *testing.T) {
	tiff := []byte{1, 2, 3, 4}
	payload := append(append([]byte{}, exifHeader...), tiff...)
	buf := minimalJPEG(app0Segment(), app1Segment(payload))

	got, err := Adapter{}.ReadRawExif(buf)
	require.NoError(t, err)
	assert.Equal(t, tiff, got)
}

func TestReadRawExifNoMetadata(t *testing.T) {
	buf := minimalJPEG(app0Segment())
	_, err := Adapter{}.ReadRawExif(buf)
	assert.ErrorIs(t, err, container.ErrNoMetadata)
}

func TestClearRemovesOnlyEXIFApp1(t *testing.T) {
	tiff := []byte{9, 9}
	payload := append(append([]byte{}, exifHeader...), tiff...)
	buf := minimalJPEG(app0Segment(), app1Segment(payload))

	cleared, err := Adapter{}.Clear(buf)
	require.NoError(t, err)

	_, err = Adapter{}.ReadRawExif(cleared)
	assert.ErrorIs(t, err, container.ErrNoMetadata)

	// APP0 (JFIF) segment must survive.
	segs, err := scanSegments(cleared)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.EqualValues(t, 0xE0, segs[0].marker)
}

func TestWriteRawExifInsertsAfterSOI(t *testing.T) {
	buf := minimalJPEG(app0Segment())
	tiff := []byte{0xAA, 0xBB, 0xCC}

	out, err := Adapter{}.WriteRawExif(buf, tiff)
	require.NoError(t, err)

	got, err := Adapter{}.ReadRawExif(out)
	require.NoError(t, err)
	assert.Equal(t, tiff, got)

	segs, err := scanSegments(out)
	require.NoError(t, err)
	require.True(t, len(segs) >= 1)
	assert.EqualValues(t, markerAPP1, segs[0].marker, "EXIF segment must be first")
}

func TestWriteRawExifReplacesExisting(t *testing.T) {
	oldTiff := []byte{1, 1, 1}
	oldPayload := append(append([]byte{}, exifHeader...), oldTiff...)
	buf := minimalJPEG(app1Segment(oldPayload))

	newTiff := []byte{2, 2, 2, 2}
	out, err := Adapter{}.WriteRawExif(buf, newTiff)
	require.NoError(t, err)

	got, err := Adapter{}.ReadRawExif(out)
	require.NoError(t, err)
	assert.Equal(t, newTiff, got)

	segs, err := scanSegments(out)
	require.NoError(t, err)
	count := 0
	for _, s := range segs {
		if s.marker == markerAPP1 {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestScanSegmentsRejectsNonJPEG(t *testing.T) {
	_, err := scanSegments([]byte{0x00, 0x01, 0x02})
	assert.ErrorIs(t, err, ErrNotJPEG)
}

func TestScanSegmentsTruncatedTreatedAsImplicitEOI(t *testing.T) {
	// SOI followed by an APP1 header claiming more bytes than are present,
	// and no EOI marker at all.
	buf := []byte{0xFF, markerSOI, 0xFF, markerAPP1, 0x00, 0x20, 1, 2, 3}
	segs, err := scanSegments(buf)
	require.NoError(t, err)
	assert.Empty(t, segs)
}

func TestClearAPP12AndAPP13Segments(t *testing.T) {
	app12 := []byte{0xFF, 0xEC, 0x00, 0x04, 'h', 'i'}
	app13 := []byte{0xFF, 0xED, 0x00, 0x04, 'y', 'o'}
	buf := minimalJPEG(app0Segment(), app12, app13)

	out, err := ClearAPP12Segment(buf)
	require.NoError(t, err)
	out, err = ClearAPP13Segment(out)
	require.NoError(t, err)

	segs, err := scanSegments(out)
	require.NoError(t, err)
	for _, s := range segs {
		assert.NotEqualValues(t, 0xEC, s.marker)
		assert.NotEqualValues(t, 0xED, s.marker)
	}
}
