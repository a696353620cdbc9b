package rational

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToUnsignedExact(t *testing.T) {
	r := ToUnsigned(0.5)
	assert.InDelta(t, 0.5, r.Float(), convergenceTolerance)
}

func TestToUnsignedInteger(t *testing.T) {
	r := ToUnsigned(72.0)
	assert.Equal(t, Unsigned{Num: 72, Denom: 1}, r)
}

func TestToUnsignedZero(t *testing.T) {
	r := ToUnsigned(0.0)
	assert.Equal(t, uint32(0), r.Num)
}

func TestToUnsignedNaN(t *testing.T) {
	r := ToUnsigned(math.NaN())
	assert.Equal(t, Unsigned{0, 0}, r)
}

func TestToUnsignedOverflowSaturates(t *testing.T) {
	r := ToUnsigned(float64(math.MaxUint32) * 4)
	assert.Equal(t, uint32(math.MaxInt32), r.Num)
	assert.Equal(t, uint32(1), r.Denom)
}

func TestToUnsignedIrrational(t *testing.T) {
	// GPS coordinates commonly carry many decimal digits; the approximation
	// must stay within tolerance while keeping num/denom within range.
	x := 48.858222
	r := ToUnsigned(x)
	assert.InDelta(t, x, r.Float(), 1e-6)
}

func TestToSignedPreservesSign(t *testing.T) {
	r := ToSigned(-1.5)
	assert.Less(t, r.Num, int32(0))
	assert.InDelta(t, -1.5, r.Float(), 1e-9)
}

func TestWideningFromUnsigned(t *testing.T) {
	u := Unsigned{Num: 3, Denom: 2}
	s := WideningFromUnsigned(u)
	assert.InDelta(t, 1.5, s.Float(), 1e-9)
}
