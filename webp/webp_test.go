package webp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TechnikTobi/little-exif-sub000/container"
)

func vp8lPayload(width, height uint32) []byte {
	bits := (width - 1) | ((height - 1) << 14)
	return []byte{0x2F, byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24), 0, 0, 0, 0}
}

func riffWrap(chunks ...[]byte) []byte {
	body := []byte("WEBP")
	for _, c := range chunks {
		body = append(body, c...)
	}
	buf := append([]byte("RIFF"), putLE32(uint32(len(body)))...)
	buf = append(buf, body...)
	return buf
}

func TestWriteRawExifPromotesSimpleFormat(t *testing.T) {
	vp8l := buildChunk(fourCCVP8L, vp8lPayload(320, 200))
	buf := riffWrap(vp8l)

	tiff := []byte{1, 2, 3}
	out, err := Adapter{}.WriteRawExif(buf, tiff)
	require.NoError(t, err)

	chunks, err := scanChunks(out)
	require.NoError(t, err)
	require.True(t, len(chunks) >= 1)
	assert.Equal(t, fourCCVP8X, chunks[0].fourCC)

	width := uint32(chunks[0].payload[4]) | uint32(chunks[0].payload[5])<<8 | uint32(chunks[0].payload[6])<<16
	height := uint32(chunks[0].payload[7]) | uint32(chunks[0].payload[8])<<8 | uint32(chunks[0].payload[9])<<16
	assert.Equal(t, uint32(319), width)
	assert.Equal(t, uint32(199), height)
	assert.NotZero(t, chunks[0].payload[0]&exifFlagBit)

	got, err := Adapter{}.ReadRawExif(out)
	require.NoError(t, err)
	assert.Equal(t, tiff, got)

	assert.Equal(t, uint32(len(out)-8), le32(out[4:8]))
}

func TestReadRawExifRequiresFlag(t *testing.T) {
	vp8x := buildVP8XChunk(100, 100, false)
	exifChunk := buildChunk(fourCCEXIF, []byte{1, 2, 3})
	buf := riffWrap(vp8x, exifChunk)

	_, err := Adapter{}.ReadRawExif(buf)
	assert.ErrorIs(t, err, ErrNoVP8XFlag)
}

func TestReadRawExifNoMetadata(t *testing.T) {
	vp8l := buildChunk(fourCCVP8L, vp8lPayload(10, 10))
	buf := riffWrap(vp8l)
	_, err := Adapter{}.ReadRawExif(buf)
	assert.ErrorIs(t, err, container.ErrNoMetadata)
}

func TestClearRemovesExifAndFlag(t *testing.T) {
	vp8l := buildChunk(fourCCVP8L, vp8lPayload(10, 10))
	buf := riffWrap(vp8l)
	tiff := []byte{9, 9, 9}
	buf, err := Adapter{}.WriteRawExif(buf, tiff)
	require.NoError(t, err)

	cleared, err := Adapter{}.Clear(buf)
	require.NoError(t, err)

	_, err = Adapter{}.ReadRawExif(cleared)
	assert.Error(t, err)

	chunks, err := scanChunks(cleared)
	require.NoError(t, err)
	assert.Zero(t, chunks[0].payload[0]&exifFlagBit)
	assert.Equal(t, uint32(len(cleared)-8), le32(cleared[4:8]))
}

func TestScanChunksRejectsNonWebP(t *testing.T) {
	_, err := scanChunks([]byte("not a webp file"))
	assert.ErrorIs(t, err, ErrNotWebP)
}

func TestOddLengthChunkGetsPadded(t *testing.T) {
	chunk := buildChunk(fourCCEXIF, []byte{1, 2, 3})
	assert.Equal(t, 0, len(chunk)%2)
}
