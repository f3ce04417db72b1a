package ops

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/samcharles93/basalt/pkg/dtype"
	"github.com/samcharles93/basalt/pkg/tensor"
)

// RMSNorm rescales each row of in by the inverse root mean square of its
// elements and a learned per-feature weight:
//
//	out[n,d] = in[n,d] * 1/sqrt(mean(in[n,:]²) + eps) * weight[d]
//
// in and out are [N, D], weight is [D], all one dtype. Each row is decoded
// once into a float32 scratch buffer; the mean square, the scale, and the
// products all stay in float32.
func RMSNorm(out, in, weight *tensor.View, eps float32) error {
	if in.Rank() != 2 {
		return fmt.Errorf("%w: rmsnorm: in rank %d, want 2", ErrShape, in.Rank())
	}
	if weight.Rank() != 1 {
		return fmt.Errorf("%w: rmsnorm: weight rank %d, want 1", ErrShape, weight.Rank())
	}
	if weight.Dim(0) != in.Dim(1) {
		return fmt.Errorf("%w: rmsnorm: weight [%d], want [%d]", ErrShape, weight.Dim(0), in.Dim(1))
	}
	if out.Rank() != 2 || out.Dim(0) != in.Dim(0) || out.Dim(1) != in.Dim(1) {
		return fmt.Errorf("%w: rmsnorm: out %v, want %v", ErrShape, out.Shape(), in.Shape())
	}
	if in.DType() != out.DType() || weight.DType() != out.DType() {
		return fmt.Errorf("%w: rmsnorm: in %v, weight %v, out %v", ErrDType, in.DType(), weight.DType(), out.DType())
	}

	switch out.DType() {
	case dtype.F32:
		return rmsNormAs[float32](dtype.F32Codec{}, out, in, weight, eps)
	case dtype.F16:
		return rmsNormAs[dtype.Float16](dtype.F16Codec{}, out, in, weight, eps)
	case dtype.BF16:
		return rmsNormAs[dtype.BFloat16](dtype.BF16Codec{}, out, in, weight, eps)
	case dtype.I8:
		return rmsNormAs[int8](dtype.I8Codec{}, out, in, weight, eps)
	case dtype.I16:
		return rmsNormAs[int16](dtype.I16Codec{}, out, in, weight, eps)
	case dtype.I32:
		return rmsNormAs[int32](dtype.I32Codec{}, out, in, weight, eps)
	case dtype.I64:
		return rmsNormAs[int64](dtype.I64Codec{}, out, in, weight, eps)
	case dtype.U8:
		return rmsNormAs[uint8](dtype.U8Codec{}, out, in, weight, eps)
	case dtype.U16:
		return rmsNormAs[uint16](dtype.U16Codec{}, out, in, weight, eps)
	case dtype.U32:
		return rmsNormAs[uint32](dtype.U32Codec{}, out, in, weight, eps)
	case dtype.U64:
		return rmsNormAs[uint64](dtype.U64Codec{}, out, in, weight, eps)
	default:
		return fmt.Errorf("%w: rmsnorm: %v", ErrDType, out.DType())
	}
}

func rmsNormAs[T dtype.Element, C dtype.Codec[T]](c C, out, in, weight *tensor.View, eps float32) error {
	o, err := tensor.ElemsOf[T](out)
	if err != nil {
		return fmt.Errorf("rmsnorm: %w", err)
	}
	x, err := tensor.ElemsOf[T](in)
	if err != nil {
		return fmt.Errorf("rmsnorm: %w", err)
	}
	w, err := tensor.ElemsOf[T](weight)
	if err != nil {
		return fmt.Errorf("rmsnorm: %w", err)
	}

	rows, d := in.Dim(0), in.Dim(1)
	row := make([]float32, d)
	for i := range rows {
		var sum float32
		for j := range d {
			v := c.ToF32(x.At2(i, j))
			row[j] = v
			sum += v * v
		}
		scale := 1 / math32.Sqrt(sum/float32(d)+eps)
		for j := range d {
			o.Set2(i, j, c.FromF32(row[j]*scale*c.ToF32(w.At(j))))
		}
	}
	return nil
}
