package ops

import (
	"fmt"

	"github.com/samcharles93/basalt/pkg/dtype"
	"github.com/samcharles93/basalt/pkg/tensor"
)

// Argmax finds the maximum element of the 1-D vals and writes its index to
// maxIdx (one int64 element) and its value to maxVal (one element of vals'
// dtype). Comparison is strict greater-than, so the first occurrence wins a
// tie. The running maximum is carried in the storage type itself, never
// through a float32 detour, so 64-bit integers reduce exactly and maxVal is
// always bit-identical to the winning element. An empty vals is an error.
func Argmax(maxIdx, maxVal, vals *tensor.View) error {
	if vals.Rank() != 1 {
		return fmt.Errorf("%w: argmax: vals rank %d, want 1", ErrShape, vals.Rank())
	}
	if vals.Dim(0) < 1 {
		return fmt.Errorf("%w: argmax: vals has no elements", ErrEmpty)
	}
	if maxIdx.Numel() != 1 {
		return fmt.Errorf("%w: argmax: maxIdx %v, want one element", ErrShape, maxIdx.Shape())
	}
	if maxIdx.DType() != dtype.I64 {
		return fmt.Errorf("%w: argmax: maxIdx dtype %v, want %v", ErrDType, maxIdx.DType(), dtype.I64)
	}
	if maxVal.Numel() != 1 {
		return fmt.Errorf("%w: argmax: maxVal %v, want one element", ErrShape, maxVal.Shape())
	}
	if maxVal.DType() != vals.DType() {
		return fmt.Errorf("%w: argmax: maxVal %v, vals %v", ErrDType, maxVal.DType(), vals.DType())
	}

	switch vals.DType() {
	case dtype.F32:
		return argmaxAs[float32](dtype.F32Codec{}, maxIdx, maxVal, vals)
	case dtype.F16:
		return argmaxAs[dtype.Float16](dtype.F16Codec{}, maxIdx, maxVal, vals)
	case dtype.BF16:
		return argmaxAs[dtype.BFloat16](dtype.BF16Codec{}, maxIdx, maxVal, vals)
	case dtype.I8:
		return argmaxAs[int8](dtype.I8Codec{}, maxIdx, maxVal, vals)
	case dtype.I16:
		return argmaxAs[int16](dtype.I16Codec{}, maxIdx, maxVal, vals)
	case dtype.I32:
		return argmaxAs[int32](dtype.I32Codec{}, maxIdx, maxVal, vals)
	case dtype.I64:
		return argmaxAs[int64](dtype.I64Codec{}, maxIdx, maxVal, vals)
	case dtype.U8:
		return argmaxAs[uint8](dtype.U8Codec{}, maxIdx, maxVal, vals)
	case dtype.U16:
		return argmaxAs[uint16](dtype.U16Codec{}, maxIdx, maxVal, vals)
	case dtype.U32:
		return argmaxAs[uint32](dtype.U32Codec{}, maxIdx, maxVal, vals)
	case dtype.U64:
		return argmaxAs[uint64](dtype.U64Codec{}, maxIdx, maxVal, vals)
	default:
		return fmt.Errorf("%w: argmax: %v", ErrDType, vals.DType())
	}
}

func argmaxAs[T dtype.Element, C dtype.Codec[T]](c C, maxIdx, maxVal, vals *tensor.View) error {
	xs, err := tensor.ElemsOf[T](vals)
	if err != nil {
		return fmt.Errorf("argmax: %w", err)
	}
	mv, err := tensor.ElemsOf[T](maxVal)
	if err != nil {
		return fmt.Errorf("argmax: %w", err)
	}
	mi, err := tensor.ElemsOf[int64](maxIdx)
	if err != nil {
		return fmt.Errorf("argmax: %w", err)
	}

	best, idx := xs.At(0), 0
	for i := 1; i < vals.Dim(0); i++ {
		if x := xs.At(i); c.Greater(x, best) {
			best, idx = x, i
		}
	}
	mi.SetScalar(int64(idx))
	mv.SetScalar(best)
	return nil
}
