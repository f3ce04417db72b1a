// Package dtype defines the storage element types a tensor may carry and the
// conversions between each of them and the float32/float64 working
// precisions all kernels compute in.
//
// The 16-bit float encodings are software implementations with deliberately
// pinned rounding behaviour: binary16 encode rounds half-up on the single bit
// below the cutoff rather than to-nearest-even, bfloat16 encode rounds by
// biasing the raw bits with +0x8000 before truncation, and float-to-integer
// narrowing truncates toward zero. Callers depending on bit-exact results
// get exactly these conversions, not IEEE-default ones.
package dtype

import "fmt"

// DType tags the element encoding of a tensor's storage.
type DType uint32

const (
	Invalid DType = iota
	F32
	F16
	BF16
	I8
	I16
	I32
	I64
	U8
	U16
	U32
	U64
)

// All returns every valid tag, in dispatch order.
func All() []DType {
	return []DType{F32, F16, BF16, I8, I16, I32, I64, U8, U16, U32, U64}
}

// Size returns the element width in bytes, or 0 for an invalid tag.
func (d DType) Size() int {
	switch d {
	case F32:
		return 4
	case F16, BF16, I16, U16:
		return 2
	case I8, U8:
		return 1
	case I32, U32:
		return 4
	case I64, U64:
		return 8
	}
	return 0
}

// Float reports whether d is one of the floating encodings.
func (d DType) Float() bool {
	return d == F32 || d == F16 || d == BF16
}

func (d DType) String() string {
	switch d {
	case F32:
		return "f32"
	case F16:
		return "f16"
	case BF16:
		return "bf16"
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case U64:
		return "u64"
	}
	return "invalid"
}

// Parse maps a tag name as produced by String back to its DType.
func Parse(s string) (DType, error) {
	for _, d := range All() {
		if s == d.String() {
			return d, nil
		}
	}
	return Invalid, fmt.Errorf("dtype: unknown tag %q", s)
}
