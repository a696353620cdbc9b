package png

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TechnikTobi/little-exif-sub000/container"
)

func minimalPNG(chunks ...[]byte) []byte {
	buf := []byte(signature)
	ihdr := buildChunk("IHDR", make([]byte, 13))
	buf = append(buf, ihdr...)
	for _, c := range chunks {
		buf = append(buf, c...)
	}
	buf = append(buf, buildChunk("IEND", nil)...)
	return buf
}

func TestWriteAndReadEXIfChunk(t *testing.T) {
	buf := minimalPNG()
	tiff := []byte{1, 2, 3, 4, 5}

	out, err := Adapter{}.WriteRawExif(buf, tiff)
	require.NoError(t, err)

	got, err := Adapter{}.ReadRawExif(out)
	require.NoError(t, err)
	assert.Equal(t, tiff, got)
}

func TestClearRemovesEXIfChunk(t *testing.T) {
	buf := minimalPNG()
	tiff := []byte{9, 9, 9}
	out, err := Adapter{}.WriteRawExif(buf, tiff)
	require.NoError(t, err)

	cleared, err := Adapter{}.Clear(out)
	require.NoError(t, err)

	_, err = Adapter{}.ReadRawExif(cleared)
	assert.ErrorIs(t, err, container.ErrNoMetadata)
}

func TestReadRawExifNoMetadata(t *testing.T) {
	buf := minimalPNG()
	_, err := Adapter{}.ReadRawExif(buf)
	assert.ErrorIs(t, err, container.ErrNoMetadata)
}

func TestLegacyRawProfileRoundTrip(t *testing.T) {
	buf := minimalPNG()
	tiff := []byte{0xAA, 0xBB, 0xCC, 0xDD}

	out, err := WriteLegacyRawExif(buf, tiff)
	require.NoError(t, err)

	got, err := Adapter{}.ReadRawExif(out)
	require.NoError(t, err)
	assert.Equal(t, tiff, got)
}

func TestWriteRawExifReplacesLegacyCarrier(t *testing.T) {
	buf := minimalPNG()
	oldTiff := []byte{1, 1}
	buf, err := WriteLegacyRawExif(buf, oldTiff)
	require.NoError(t, err)

	newTiff := []byte{2, 2, 2}
	out, err := Adapter{}.WriteRawExif(buf, newTiff)
	require.NoError(t, err)

	got, err := Adapter{}.ReadRawExif(out)
	require.NoError(t, err)
	assert.Equal(t, newTiff, got)

	chunks, err := scanChunks(out)
	require.NoError(t, err)
	for _, c := range chunks {
		assert.NotEqual(t, "zTXt", c.name)
	}
}

func TestScanChunksRejectsNonPNG(t *testing.T) {
	_, err := scanChunks([]byte{0, 1, 2, 3})
	assert.ErrorIs(t, err, ErrNotPNG)
}

func TestScanChunksDetectsChecksumMismatch(t *testing.T) {
	bad := buildChunk("tEXt", []byte("a\x00b"))
	bad[len(bad)-1] ^= 0xFF // corrupt the CRC

	buf := minimalPNG(bad)
	_, err := scanChunks(buf)
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestClearStripsExifFromXMPChunk(t *testing.T) {
	xmpPacket := `<x:xmpmeta xmlns:x="adobe:ns:meta/"><rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"><rdf:Description rdf:about="" xmlns:exif="http://ns.adobe.com/exif/1.0/" exif:ISOSpeedRatings="200"/></rdf:RDF></x:xmpmeta>`
	data := append([]byte(xmlComAdobeXMP), 0x00, 0x00, 0x00, 0x00, 0x00)
	data = append(data, []byte(xmpPacket)...)
	itxt := buildChunk("iTXt", data)

	buf := minimalPNG(itxt)
	out, err := Adapter{}.Clear(buf)
	require.NoError(t, err)

	chunks, err := scanChunks(out)
	require.NoError(t, err)
	found := false
	for _, c := range chunks {
		if c.name == "iTXt" {
			found = true
			payload, err := textPayload(c.name, c.data)
			require.NoError(t, err)
			assert.NotContains(t, string(payload), "exif:ISOSpeedRatings")
		}
	}
	assert.True(t, found, "XMP chunk should survive, stripped of exif attrs")
}
