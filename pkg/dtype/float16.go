package dtype

import "math"

// Float16 is an IEEE 754 binary16 value stored as its raw bit pattern.
type Float16 uint16

// Float32 decodes the binary16 bit pattern. Zero, subnormal, normalized,
// infinity and NaN inputs all follow IEEE 754 semantics; every bit pattern is
// valid input.
func (h Float16) Float32() float32 {
	exp := uint32(h>>10) & 0x1F
	mant := uint32(h) & 0x3FF

	var v float32
	switch {
	case exp == 0:
		// Subnormal: mant/2^10 scaled by 2^-14. mant == 0 falls out as zero.
		v = float32(math.Ldexp(float64(mant)/1024, -14))
	case exp == 0x1F:
		if mant == 0 {
			v = float32(math.Inf(1))
		} else {
			v = float32(math.NaN())
		}
	default:
		v = float32(math.Ldexp(1+float64(mant)/1024, int(exp)-15))
	}
	if h&0x8000 != 0 {
		v = -v
	}
	return v
}

// Float16FromFloat32 encodes f into binary16.
//
// Rounding is half-up on the single bit below the mantissa cutoff, not
// round-to-nearest-even; keep it that way, downstream fixtures are pinned to
// it. NaN encodes to the quiet pattern sign|0x7E00, infinities and overflow
// to sign|0x7C00, and values more than ten bits below the subnormal
// threshold flush to signed zero.
func Float16FromFloat32(f float32) Float16 {
	x := math.Float32bits(f)
	sign := (x >> 16) & 0x8000
	mant := x & 0x7FFFFF

	if (x>>23)&0xFF == 0xFF {
		if mant == 0 {
			return Float16(sign | 0x7C00)
		}
		return Float16(sign | 0x7E00)
	}

	newexp := int32((x>>23)&0xFF) - 127 + 15
	switch {
	case newexp >= 0x1F:
		return Float16(sign | 0x7C00)
	case newexp <= 0:
		if newexp < -10 {
			return Float16(sign)
		}
		// Subnormal: drop 14-newexp bits of the 24-bit mantissa (implicit
		// one included), rounding half-up on the last dropped bit. A
		// round-up may carry into 0x0400, the smallest normal.
		mant |= 0x800000
		shift := uint32(14 - newexp)
		half := mant >> shift
		half += (mant >> (shift - 1)) & 1
		return Float16(sign | half)
	default:
		half := sign | uint32(newexp)<<10 | mant>>13
		if mant&0x1000 != 0 {
			// Half-up on the highest dropped bit; the carry may roll the
			// mantissa into the next exponent, which is the correct value,
			// or past the largest normal into infinity.
			half++
		}
		return Float16(half)
	}
}
