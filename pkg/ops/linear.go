package ops

import (
	"fmt"

	"github.com/samcharles93/basalt/pkg/dtype"
	"github.com/samcharles93/basalt/pkg/tensor"
)

// Linear computes out[b,o] = Σ_i in[b,i]*weight[o,i] + bias[o].
// in is [B, In], weight is [Out, In], out is [B, Out]; bias is [Out] and may
// be nil. All views share one dtype. The dot product accumulates in float64
// whatever the storage dtype, the bias joins at that precision, and the sum
// narrows once at the end.
func Linear(out, in, weight, bias *tensor.View) error {
	if weight.Rank() != 2 {
		return fmt.Errorf("%w: linear: weight rank %d, want 2", ErrShape, weight.Rank())
	}
	if in.Rank() != 2 {
		return fmt.Errorf("%w: linear: in rank %d, want 2", ErrShape, in.Rank())
	}
	outF, inF := weight.Dim(0), weight.Dim(1)
	if in.Dim(1) != inF {
		return fmt.Errorf("%w: linear: in features %d, weight expects %d", ErrShape, in.Dim(1), inF)
	}
	if out.Rank() != 2 || out.Dim(0) != in.Dim(0) || out.Dim(1) != outF {
		return fmt.Errorf("%w: linear: out %v, want [%d %d]", ErrShape, out.Shape(), in.Dim(0), outF)
	}
	if bias != nil && (bias.Rank() != 1 || bias.Dim(0) != outF) {
		return fmt.Errorf("%w: linear: bias %v, want [%d]", ErrShape, bias.Shape(), outF)
	}
	if in.DType() != out.DType() || weight.DType() != out.DType() {
		return fmt.Errorf("%w: linear: in %v, weight %v, out %v", ErrDType, in.DType(), weight.DType(), out.DType())
	}
	if bias != nil && bias.DType() != out.DType() {
		return fmt.Errorf("%w: linear: bias %v, out %v", ErrDType, bias.DType(), out.DType())
	}

	switch out.DType() {
	case dtype.F32:
		return linearAs[float32](dtype.F32Codec{}, out, in, weight, bias)
	case dtype.F16:
		return linearAs[dtype.Float16](dtype.F16Codec{}, out, in, weight, bias)
	case dtype.BF16:
		return linearAs[dtype.BFloat16](dtype.BF16Codec{}, out, in, weight, bias)
	case dtype.I8:
		return linearAs[int8](dtype.I8Codec{}, out, in, weight, bias)
	case dtype.I16:
		return linearAs[int16](dtype.I16Codec{}, out, in, weight, bias)
	case dtype.I32:
		return linearAs[int32](dtype.I32Codec{}, out, in, weight, bias)
	case dtype.I64:
		return linearAs[int64](dtype.I64Codec{}, out, in, weight, bias)
	case dtype.U8:
		return linearAs[uint8](dtype.U8Codec{}, out, in, weight, bias)
	case dtype.U16:
		return linearAs[uint16](dtype.U16Codec{}, out, in, weight, bias)
	case dtype.U32:
		return linearAs[uint32](dtype.U32Codec{}, out, in, weight, bias)
	case dtype.U64:
		return linearAs[uint64](dtype.U64Codec{}, out, in, weight, bias)
	default:
		return fmt.Errorf("%w: linear: %v", ErrDType, out.DType())
	}
}

func linearAs[T dtype.Element, C dtype.Codec[T]](c C, out, in, weight, bias *tensor.View) error {
	o, err := tensor.ElemsOf[T](out)
	if err != nil {
		return fmt.Errorf("linear: %w", err)
	}
	x, err := tensor.ElemsOf[T](in)
	if err != nil {
		return fmt.Errorf("linear: %w", err)
	}
	w, err := tensor.ElemsOf[T](weight)
	if err != nil {
		return fmt.Errorf("linear: %w", err)
	}
	var bv tensor.Elems[T]
	if bias != nil {
		if bv, err = tensor.ElemsOf[T](bias); err != nil {
			return fmt.Errorf("linear: %w", err)
		}
	}

	batch, inF, outF := in.Dim(0), weight.Dim(1), weight.Dim(0)
	for i := range batch {
		for j := range outF {
			var acc float64
			for k := range inF {
				acc += float64(c.ToF32(x.At2(i, k))) * float64(c.ToF32(w.At2(j, k)))
			}
			if bias != nil {
				acc += float64(c.ToF32(bv.At(j)))
			}
			o.Set2(i, j, c.FromF32(float32(acc)))
		}
	}
	return nil
}
