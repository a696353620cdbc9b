// Package rational converts arbitrary real numbers into best-approximation
// 32/32 rationals via continued-fraction expansion, for callers that supply
// a float for a RATIONAL64U/RATIONAL64S-typed tag.
//
// Ported term-for-term from the continued-fraction recurrence of the
// original little_exif Rust crate (itself based on
// https://github.com/google/audio-to-tactile/blob/main/src/dsp/number_util.c).
package rational

import (
	"math"
)

const (
	maxTermCount        = 42
	convergenceTolerance = 1e-9
)

// Unsigned is an unsigned 32/32 rational: two consecutive 4-byte words.
type Unsigned struct {
	Num, Denom uint32
}

// Signed is a signed 32/32 rational.
type Signed struct {
	Num, Denom int32
}

func gcd(a, b uint32) uint32 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func addNextTerm(term uint32, convergent, previous Unsigned) Unsigned {
	return Unsigned{
		Num:   term*convergent.Num + previous.Num,
		Denom: term*convergent.Denom + previous.Denom,
	}
}

// ToUnsigned computes the best rational approximation to |x| as an
// unsigned 32/32 rational.
//
// NaN maps to 0/0. Values too large for the u32 range saturate to
// INT32_MAX/1. Otherwise the continued-fraction recurrence runs for up to
// 42 terms, stopping early once the residual is within 1e-9, guarding
// numerator/denominator against uint32 overflow at every step, and finally
// checking whether one more (semiconvergent) term strictly improves the
// absolute error before reducing by the GCD.
func ToUnsigned(x float64) Unsigned {
	x = math.Abs(x)

	if math.IsNaN(x) {
		return Unsigned{0, 0}
	}

	if x > float64(math.MaxUint32)-0.5 {
		return Unsigned{Num: math.MaxInt32, Denom: 1}
	}

	residual := x
	term := math.Floor(x)

	previous := Unsigned{Num: 1, Denom: 0}
	convergent := Unsigned{Num: uint32(term), Denom: 1}

	var n uint32
	for i := 2; i < maxTermCount; i++ {
		nextResidual := residual - term
		if math.Abs(nextResidual) <= convergenceTolerance {
			return convergent
		}

		residual = 1.0 / nextResidual
		term = math.Floor(residual)

		n = (math.MaxInt32 - previous.Denom) / convergent.Denom
		if convergent.Num > 0 {
			if alt := (math.MaxUint32 - previous.Num) / convergent.Num; alt < n {
				n = alt
			}
		}

		if term >= float64(n) {
			break
		}

		next := addNextTerm(uint32(term), convergent, previous)
		previous = convergent
		convergent = next
	}

	best := convergent

	lowerBound := term / 2.0
	if float64(n) >= lowerBound {
		if float64(n) > term {
			n = uint32(term)
		}

		semi := addNextTerm(n, convergent, previous)

		if float64(n) > lowerBound ||
			math.Abs(x-toFloat(semi)) < math.Abs(x-toFloat(convergent)) {
			best = semi
		}
	}

	d := gcd(best.Num, best.Denom)
	if d == 0 {
		return best
	}
	return Unsigned{Num: best.Num / d, Denom: best.Denom / d}
}

// ToSigned computes the best rational approximation to x, preserving sign.
func ToSigned(x float64) Signed {
	u := ToUnsigned(x)
	num := int32(u.Num)
	if x < 0 {
		num = -num
	}
	return Signed{Num: num, Denom: int32(u.Denom)}
}

func toFloat(r Unsigned) float64 {
	return float64(r.Num) / float64(r.Denom)
}

// Float returns the floating point value of an unsigned rational.
func (r Unsigned) Float() float64 { return float64(r.Num) / float64(r.Denom) }

// Float returns the floating point value of a signed rational.
func (r Signed) Float() float64 { return float64(r.Num) / float64(r.Denom) }

// WideningFromUnsigned losslessly widens a RATIONAL64U to RATIONAL64S via an
// f64 bridge, as used by the INT32U<-INT16U-style coercion table (issue #21:
// RATIONAL64S expected, RATIONAL64U found on disk).
func WideningFromUnsigned(u Unsigned) Signed {
	return ToSigned(u.Float())
}

// Sexagesimal converts a rational expressed as (hi, lo) — degrees/hours in
// hi, fractional remainder scaled by scale in lo — back to a duration-like
// pair. It mirrors the GPS timestamp decomposition used by GPSTimeStamp.
func Sexagesimal(hi, lo int64, scale int64) (wholeUnits, remainder int64) {
	return hi, lo * scale
}
