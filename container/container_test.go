package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeRemove(t *testing.T) {
	buf := []byte("0123456789")
	out, err := RangeRemove(buf, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("0156789"), out)
}

func TestRangeRemoveInvalid(t *testing.T) {
	_, err := RangeRemove([]byte("abc"), 2, 10)
	assert.Error(t, err)
}

func TestInsertAt(t *testing.T) {
	buf := []byte("0123")
	out, err := InsertAt(buf, 2, []byte("XY"))
	require.NoError(t, err)
	assert.Equal(t, []byte("01XY23"), out)
}

func TestReplace(t *testing.T) {
	buf := []byte("0123456789")
	out, err := Replace(buf, 2, 5, []byte("ZZ"))
	require.NoError(t, err)
	assert.Equal(t, []byte("01ZZ56789"), out)
}
