package jxl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TechnikTobi/little-exif-sub000/container"
)

func jxlcWrapped(codestream []byte) []byte {
	return wrapCodestream(codestream)
}

func TestWriteRawExifWrapsNakedCodestream(t *testing.T) {
	codestream := append([]byte{0xFF, 0x0A}, []byte{1, 2, 3, 4}...)
	tiff := []byte{9, 8, 7}

	out, err := Adapter{}.WriteRawExif(codestream, tiff)
	require.NoError(t, err)
	assert.True(t, isISOBMFF(out))

	got, err := Adapter{}.ReadRawExif(out)
	require.NoError(t, err)
	assert.Equal(t, tiff, got)
}

func TestReadRawExifNakedCodestreamErrors(t *testing.T) {
	codestream := append([]byte{0xFF, 0x0A}, []byte{1, 2, 3}...)
	_, err := Adapter{}.ReadRawExif(codestream)
	assert.ErrorIs(t, err, ErrNakedCodestream)
}

func TestReadRawExifNoMetadata(t *testing.T) {
	buf := jxlcWrapped([]byte{1, 2, 3})
	_, err := Adapter{}.ReadRawExif(buf)
	assert.ErrorIs(t, err, container.ErrNoMetadata)
}

func TestClearRemovesExifBox(t *testing.T) {
	buf := jxlcWrapped([]byte{1, 2, 3})
	tiff := []byte{5, 5, 5}
	out, err := Adapter{}.WriteRawExif(buf, tiff)
	require.NoError(t, err)

	cleared, err := Adapter{}.Clear(out)
	require.NoError(t, err)

	_, err = Adapter{}.ReadRawExif(cleared)
	assert.ErrorIs(t, err, container.ErrNoMetadata)

	boxes, err := scanBoxes(cleared)
	require.NoError(t, err)
	foundJxlc := false
	for _, b := range boxes {
		assert.NotEqual(t, "Exif", b.boxType)
		if b.boxType == "jxlc" {
			foundJxlc = true
		}
	}
	assert.True(t, foundJxlc)
}

func TestBrotliEXIFBoxRoundTrip(t *testing.T) {
	buf := jxlcWrapped([]byte{1, 2, 3})
	tiff := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	brobBox := BuildBrotliEXIFBox(tiff)

	boxes, err := scanBoxes(buf)
	require.NoError(t, err)
	at := findInsertPosition(boxes)
	withBrob, err := container.InsertAt(buf, at, brobBox)
	require.NoError(t, err)

	got, err := Adapter{}.ReadRawExif(withBrob)
	require.NoError(t, err)
	assert.Equal(t, tiff, got)
}

func TestWriteRawExifReplacesExistingBox(t *testing.T) {
	buf := jxlcWrapped([]byte{1, 2, 3})
	oldTiff := []byte{1, 1}
	buf, err := Adapter{}.WriteRawExif(buf, oldTiff)
	require.NoError(t, err)

	newTiff := []byte{2, 2, 2, 2}
	out, err := Adapter{}.WriteRawExif(buf, newTiff)
	require.NoError(t, err)

	got, err := Adapter{}.ReadRawExif(out)
	require.NoError(t, err)
	assert.Equal(t, newTiff, got)
}
