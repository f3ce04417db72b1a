package dtype

import "math"

// BFloat16 is a bfloat16 value stored as its raw bit pattern.
type BFloat16 uint16

// Float32 decodes the bfloat16 bit pattern: the 16 bits are the top half of
// the float32 encoding.
func (b BFloat16) Float32() float32 {
	return math.Float32frombits(uint32(b) << 16)
}

// BFloat16FromFloat32 encodes f into bfloat16 by rounding half-up on the
// highest dropped mantissa bit (a +0x8000 bias on the raw bits, then
// truncation). The carry out of the largest finite value correctly lands on
// infinity, and canonical quiet NaNs stay NaN; wide NaN payloads are not
// preserved.
func BFloat16FromFloat32(f float32) BFloat16 {
	return BFloat16((math.Float32bits(f) + 0x8000) >> 16)
}
