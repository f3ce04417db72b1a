package dtype

// Element is the type set of Go representations backing the storage tags:
// one entry per DType, in the same order.
type Element interface {
	float32 | Float16 | BFloat16 | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64
}

// Codec is the capability set a kernel needs from a storage type: widening
// to the float working precisions, narrowing back, and native ordering for
// reductions. Each implementation is a zero-size struct, so a kernel
// instantiated as kernel[T, codecForT] resolves every conversion statically;
// the dtype tag is consulted once at the dispatch site, never per element.
type Codec[T Element] interface {
	FromF32(float32) T
	ToF32(T) float32
	FromF64(float64) T
	ToF64(T) float64
	Greater(a, b T) bool
}

// Of returns the tag matching the storage type T.
func Of[T Element]() DType {
	var z T
	switch any(z).(type) {
	case float32:
		return F32
	case Float16:
		return F16
	case BFloat16:
		return BF16
	case int8:
		return I8
	case int16:
		return I16
	case int32:
		return I32
	case int64:
		return I64
	case uint8:
		return U8
	case uint16:
		return U16
	case uint32:
		return U32
	case uint64:
		return U64
	}
	return Invalid
}

// F32Codec adapts float32 storage.
type F32Codec struct{}

func (F32Codec) FromF32(v float32) float32 { return v }
func (F32Codec) ToF32(v float32) float32   { return v }
func (F32Codec) FromF64(v float64) float32 { return float32(v) }
func (F32Codec) ToF64(v float32) float64   { return float64(v) }
func (F32Codec) Greater(a, b float32) bool { return a > b }

// F16Codec adapts binary16 storage. Ordering compares decoded values, so NaN
// never wins a Greater comparison.
type F16Codec struct{}

func (F16Codec) FromF32(v float32) Float16 { return Float16FromFloat32(v) }
func (F16Codec) ToF32(v Float16) float32   { return v.Float32() }
func (F16Codec) FromF64(v float64) Float16 { return Float16FromFloat32(float32(v)) }
func (F16Codec) ToF64(v Float16) float64   { return float64(v.Float32()) }
func (F16Codec) Greater(a, b Float16) bool { return a.Float32() > b.Float32() }

// BF16Codec adapts bfloat16 storage. Ordering compares decoded values.
type BF16Codec struct{}

func (BF16Codec) FromF32(v float32) BFloat16 { return BFloat16FromFloat32(v) }
func (BF16Codec) ToF32(v BFloat16) float32   { return v.Float32() }
func (BF16Codec) FromF64(v float64) BFloat16 { return BFloat16FromFloat32(float32(v)) }
func (BF16Codec) ToF64(v BFloat16) float64   { return float64(v.Float32()) }
func (BF16Codec) Greater(a, b BFloat16) bool { return a.Float32() > b.Float32() }

// Integer codecs narrow by truncation toward zero, the reference conversion
// for every integer width. Widening is the plain Go conversion.

type I8Codec struct{}

func (I8Codec) FromF32(v float32) int8 { return int8(v) }
func (I8Codec) ToF32(v int8) float32   { return float32(v) }
func (I8Codec) FromF64(v float64) int8 { return int8(v) }
func (I8Codec) ToF64(v int8) float64   { return float64(v) }
func (I8Codec) Greater(a, b int8) bool { return a > b }

type I16Codec struct{}

func (I16Codec) FromF32(v float32) int16 { return int16(v) }
func (I16Codec) ToF32(v int16) float32   { return float32(v) }
func (I16Codec) FromF64(v float64) int16 { return int16(v) }
func (I16Codec) ToF64(v int16) float64   { return float64(v) }
func (I16Codec) Greater(a, b int16) bool { return a > b }

type I32Codec struct{}

func (I32Codec) FromF32(v float32) int32 { return int32(v) }
func (I32Codec) ToF32(v int32) float32   { return float32(v) }
func (I32Codec) FromF64(v float64) int32 { return int32(v) }
func (I32Codec) ToF64(v int32) float64   { return float64(v) }
func (I32Codec) Greater(a, b int32) bool { return a > b }

type I64Codec struct{}

func (I64Codec) FromF32(v float32) int64 { return int64(v) }
func (I64Codec) ToF32(v int64) float32   { return float32(v) }
func (I64Codec) FromF64(v float64) int64 { return int64(v) }
func (I64Codec) ToF64(v int64) float64   { return float64(v) }
func (I64Codec) Greater(a, b int64) bool { return a > b }

type U8Codec struct{}

func (U8Codec) FromF32(v float32) uint8 { return uint8(v) }
func (U8Codec) ToF32(v uint8) float32   { return float32(v) }
func (U8Codec) FromF64(v float64) uint8 { return uint8(v) }
func (U8Codec) ToF64(v uint8) float64   { return float64(v) }
func (U8Codec) Greater(a, b uint8) bool { return a > b }

type U16Codec struct{}

func (U16Codec) FromF32(v float32) uint16 { return uint16(v) }
func (U16Codec) ToF32(v uint16) float32   { return float32(v) }
func (U16Codec) FromF64(v float64) uint16 { return uint16(v) }
func (U16Codec) ToF64(v uint16) float64   { return float64(v) }
func (U16Codec) Greater(a, b uint16) bool { return a > b }

type U32Codec struct{}

func (U32Codec) FromF32(v float32) uint32 { return uint32(v) }
func (U32Codec) ToF32(v uint32) float32   { return float32(v) }
func (U32Codec) FromF64(v float64) uint32 { return uint32(v) }
func (U32Codec) ToF64(v uint32) float64   { return float64(v) }
func (U32Codec) Greater(a, b uint32) bool { return a > b }

type U64Codec struct{}

func (U64Codec) FromF32(v float32) uint64 { return uint64(v) }
func (U64Codec) ToF32(v uint64) float32   { return float32(v) }
func (U64Codec) FromF64(v float64) uint64 { return uint64(v) }
func (U64Codec) ToF64(v uint64) float64   { return float64(v) }
func (U64Codec) Greater(a, b uint64) bool { return a > b }
