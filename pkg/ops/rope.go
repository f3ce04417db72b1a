package ops

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/samcharles93/basalt/pkg/dtype"
	"github.com/samcharles93/basalt/pkg/tensor"
)

// RoPE applies rotary position embedding to in and writes the result to out.
// in and out are [S, H, D] with D even; posIDs is [S] int64. Dimension j is
// paired with j+D/2 (rotate-half convention) and the pair, treated as a
// complex number, is rotated by posIDs[s] * theta^(-2j/D) radians. The
// frequency schedule, the trigonometry, and the rotation are all computed in
// float64 before narrowing to the storage dtype.
func RoPE(out, in, posIDs *tensor.View, theta float32) error {
	if in.Rank() != 3 {
		return fmt.Errorf("%w: rope: in rank %d, want 3", ErrShape, in.Rank())
	}
	if in.Dim(2)%2 != 0 {
		return fmt.Errorf("%w: rope: head dim %d not even", ErrShape, in.Dim(2))
	}
	if posIDs.DType() != dtype.I64 {
		return fmt.Errorf("%w: rope: posIDs dtype %v, want %v", ErrDType, posIDs.DType(), dtype.I64)
	}
	if posIDs.Rank() != 1 || posIDs.Dim(0) != in.Dim(0) {
		return fmt.Errorf("%w: rope: posIDs %v, want [%d]", ErrShape, posIDs.Shape(), in.Dim(0))
	}
	if out.Rank() != 3 || out.Dim(0) != in.Dim(0) || out.Dim(1) != in.Dim(1) || out.Dim(2) != in.Dim(2) {
		return fmt.Errorf("%w: rope: out %v, want %v", ErrShape, out.Shape(), in.Shape())
	}
	if out.DType() != in.DType() {
		return fmt.Errorf("%w: rope: out %v, in %v", ErrDType, out.DType(), in.DType())
	}

	switch out.DType() {
	case dtype.F32:
		return ropeAs[float32](dtype.F32Codec{}, out, in, posIDs, theta)
	case dtype.F16:
		return ropeAs[dtype.Float16](dtype.F16Codec{}, out, in, posIDs, theta)
	case dtype.BF16:
		return ropeAs[dtype.BFloat16](dtype.BF16Codec{}, out, in, posIDs, theta)
	case dtype.I8:
		return ropeAs[int8](dtype.I8Codec{}, out, in, posIDs, theta)
	case dtype.I16:
		return ropeAs[int16](dtype.I16Codec{}, out, in, posIDs, theta)
	case dtype.I32:
		return ropeAs[int32](dtype.I32Codec{}, out, in, posIDs, theta)
	case dtype.I64:
		return ropeAs[int64](dtype.I64Codec{}, out, in, posIDs, theta)
	case dtype.U8:
		return ropeAs[uint8](dtype.U8Codec{}, out, in, posIDs, theta)
	case dtype.U16:
		return ropeAs[uint16](dtype.U16Codec{}, out, in, posIDs, theta)
	case dtype.U32:
		return ropeAs[uint32](dtype.U32Codec{}, out, in, posIDs, theta)
	case dtype.U64:
		return ropeAs[uint64](dtype.U64Codec{}, out, in, posIDs, theta)
	default:
		return fmt.Errorf("%w: rope: %v", ErrDType, out.DType())
	}
}

func ropeAs[T dtype.Element, C dtype.Codec[T]](c C, out, in, posIDs *tensor.View, theta float32) error {
	o, err := tensor.ElemsOf[T](out)
	if err != nil {
		return fmt.Errorf("rope: %w", err)
	}
	x, err := tensor.ElemsOf[T](in)
	if err != nil {
		return fmt.Errorf("rope: %w", err)
	}
	pos, err := tensor.ElemsOf[int64](posIDs)
	if err != nil {
		return fmt.Errorf("rope: %w", err)
	}

	seq, heads, d := in.Dim(0), in.Dim(1), in.Dim(2)
	half := d / 2
	invFreq := make([]float64, half)
	for j := range half {
		invFreq[j] = 1 / math.Pow(float64(theta), float64(2*j)/float64(d))
	}

	for s := range seq {
		p := float64(pos.At(s))
		for h := range heads {
			for j := range half {
				rot := cmplx.Rect(1, p*invFreq[j])
				v := complex(c.ToF64(x.At3(s, h, j)), c.ToF64(x.At3(s, h, j+half))) * rot
				o.Set3(s, h, j, c.FromF64(real(v)))
				o.Set3(s, h, j+half, c.FromF64(imag(v)))
			}
		}
	}
	return nil
}
