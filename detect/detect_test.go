package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectJPEG(t *testing.T) {
	assert.Equal(t, JPEG, Detect([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0, 0, 0, 0, 0}))
}

func TestDetectPNG(t *testing.T) {
	assert.Equal(t, PNG, Detect([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}))
}

func TestDetectWebP(t *testing.T) {
	buf := append([]byte("RIFF"), 0, 0, 0, 0)
	buf = append(buf, []byte("WEBP")...)
	assert.Equal(t, WebP, Detect(buf))
}

func TestDetectHEIF(t *testing.T) {
	buf := []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'h', 'e', 'i', 'c'}
	assert.Equal(t, HEIF, Detect(buf))
}

func TestDetectJXLCodestream(t *testing.T) {
	assert.Equal(t, JXL, Detect([]byte{0xFF, 0x0A, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}))
}

func TestDetectJXLBMFF(t *testing.T) {
	buf := []byte{
		0x00, 0x00, 0x00, 0x0C, 'J', 'X', 'L', ' ', 0x0D, 0x0A, 0x87, 0x0A, // signature box
		0x00, 0x00, 0x00, 0x14, 'f', 't', 'y', 'p', 'j', 'x', 'l', ' ', // ftyp box (truncated payload)
	}
	assert.Equal(t, JXL, Detect(buf))
}

func TestDetectTIFF(t *testing.T) {
	assert.Equal(t, TIFF, Detect([]byte{'I', 'I', 0x2A, 0x00, 0, 0, 0, 0, 0, 0, 0, 0}))
}

func TestDetectUnknown(t *testing.T) {
	assert.Equal(t, Unknown, Detect([]byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}))
}
