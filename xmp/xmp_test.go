package xmp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripExifAttributesBytes(t *testing.T) {
	in := `<rdf:Description xmlns:rdf="r" xmlns:exif="e" exif:Orientation="1" other="kept"></rdf:Description>`
	out, err := StripExifAttributesBytes([]byte(in))
	require.NoError(t, err)
	assert.NotContains(t, string(out), "Orientation")
	assert.Contains(t, string(out), `other="kept"`)
}

func TestStripExifAttributesPassesTextThrough(t *testing.T) {
	in := `<a>hello<b exif:x="1">world</b></a>`
	out, err := StripExifAttributesBytes([]byte(in))
	require.NoError(t, err)
	assert.Contains(t, string(out), "hello")
	assert.Contains(t, string(out), "world")
	assert.NotContains(t, string(out), `x="1"`)
}

func TestStripExifAttributesMalformedTruncates(t *testing.T) {
	in := `<a>ok</a` // missing closing '>'
	out, err := StripExifAttributesBytes([]byte(in))
	require.NoError(t, err)
	assert.Contains(t, string(out), "ok")
}
