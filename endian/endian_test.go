package endian

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	for _, e := range []Endian{Little, Big} {
		h := e.Header()
		got, ok := DetectHeader(h[:])
		require.True(t, ok)
		assert.Equal(t, e, got)
	}
}

func TestU32RoundTrip(t *testing.T) {
	for _, e := range []Endian{Little, Big} {
		p := make([]byte, 4)
		e.PutU32(p, 0xdeadbeef)
		got, err := e.U32(p)
		require.NoError(t, err)
		assert.Equal(t, uint32(0xdeadbeef), got)
	}
}

func TestU32WrongLength(t *testing.T) {
	_, err := Little.U32([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrMangledData)
}

func TestStringRoundTrip(t *testing.T) {
	p := PutString("Hello World!")
	assert.Equal(t, "Hello World!\x00", string(p))
	assert.Equal(t, "Hello World!", String(p))
}

func TestRawStringPreservesNonUTF8(t *testing.T) {
	// A STRING tag containing non-UTF-8 bytes, as camera firmware sometimes
	// writes (issue #65): it must survive a round trip via the raw accessor.
	raw := []byte{0xff, 0xfe, 'A', 0x00}
	assert.Equal(t, []byte{0xff, 0xfe, 'A'}, RawString(raw))
}

func TestRationalVecRoundTrip(t *testing.T) {
	num := []uint32{1, 3}
	denom := []uint32{2, 4}
	p := Little.PutURationalVec(num, denom)
	gotNum, gotDenom, err := Little.URationalVec(p)
	require.NoError(t, err)
	assert.Equal(t, num, gotNum)
	assert.Equal(t, denom, gotDenom)
}
