package main

import (
	"fmt"
	"math/rand"

	"github.com/samcharles93/basalt/pkg/dtype"
	"github.com/samcharles93/basalt/pkg/tensor"
)

// newFilled allocates a contiguous view of dt and writes vals through the
// dtype codec, so fixtures and bench inputs can be stated once in float32
// for every storage type.
func newFilled(dt dtype.DType, vals []float32, shape ...int) (*tensor.View, error) {
	v, err := tensor.New(dt, shape...)
	if err != nil {
		return nil, err
	}
	if v.Numel() != len(vals) {
		return nil, fmt.Errorf("%d values for shape %v (%d elements)", len(vals), shape, v.Numel())
	}
	if err := fillValues(v, vals); err != nil {
		return nil, err
	}
	return v, nil
}

// newRandom allocates a contiguous view of dt filled with seeded uniform
// values in [-1, 1).
func newRandom(dt dtype.DType, rngSeed int64, shape ...int) (*tensor.View, error) {
	v, err := tensor.New(dt, shape...)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(rngSeed))
	vals := make([]float32, v.Numel())
	for i := range vals {
		vals[i] = rng.Float32()*2 - 1
	}
	if err := fillValues(v, vals); err != nil {
		return nil, err
	}
	return v, nil
}

func fillValues(v *tensor.View, vals []float32) error {
	flat, err := tensor.FromBytes(v.DType(), v.Data(), []int{v.Numel()}, []int{1})
	if err != nil {
		return err
	}
	switch v.DType() {
	case dtype.F32:
		return fillValuesAs[float32](dtype.F32Codec{}, flat, vals)
	case dtype.F16:
		return fillValuesAs[dtype.Float16](dtype.F16Codec{}, flat, vals)
	case dtype.BF16:
		return fillValuesAs[dtype.BFloat16](dtype.BF16Codec{}, flat, vals)
	case dtype.I8:
		return fillValuesAs[int8](dtype.I8Codec{}, flat, vals)
	case dtype.I16:
		return fillValuesAs[int16](dtype.I16Codec{}, flat, vals)
	case dtype.I32:
		return fillValuesAs[int32](dtype.I32Codec{}, flat, vals)
	case dtype.I64:
		return fillValuesAs[int64](dtype.I64Codec{}, flat, vals)
	case dtype.U8:
		return fillValuesAs[uint8](dtype.U8Codec{}, flat, vals)
	case dtype.U16:
		return fillValuesAs[uint16](dtype.U16Codec{}, flat, vals)
	case dtype.U32:
		return fillValuesAs[uint32](dtype.U32Codec{}, flat, vals)
	case dtype.U64:
		return fillValuesAs[uint64](dtype.U64Codec{}, flat, vals)
	}
	return fmt.Errorf("no codec for dtype %v", v.DType())
}

func fillValuesAs[T dtype.Element, C dtype.Codec[T]](c C, flat *tensor.View, vals []float32) error {
	e, err := tensor.ElemsOf[T](flat)
	if err != nil {
		return err
	}
	for i, x := range vals {
		e.Set(i, c.FromF32(x))
	}
	return nil
}

// toFloat32s decodes every element of v, in logical order over the flattened
// contiguous storage, into float32.
func toFloat32s(v *tensor.View) ([]float32, error) {
	flat, err := tensor.FromBytes(v.DType(), v.Data(), []int{v.Numel()}, []int{1})
	if err != nil {
		return nil, err
	}
	switch v.DType() {
	case dtype.F32:
		return decodeAs[float32](dtype.F32Codec{}, flat)
	case dtype.F16:
		return decodeAs[dtype.Float16](dtype.F16Codec{}, flat)
	case dtype.BF16:
		return decodeAs[dtype.BFloat16](dtype.BF16Codec{}, flat)
	case dtype.I8:
		return decodeAs[int8](dtype.I8Codec{}, flat)
	case dtype.I16:
		return decodeAs[int16](dtype.I16Codec{}, flat)
	case dtype.I32:
		return decodeAs[int32](dtype.I32Codec{}, flat)
	case dtype.I64:
		return decodeAs[int64](dtype.I64Codec{}, flat)
	case dtype.U8:
		return decodeAs[uint8](dtype.U8Codec{}, flat)
	case dtype.U16:
		return decodeAs[uint16](dtype.U16Codec{}, flat)
	case dtype.U32:
		return decodeAs[uint32](dtype.U32Codec{}, flat)
	case dtype.U64:
		return decodeAs[uint64](dtype.U64Codec{}, flat)
	}
	return nil, fmt.Errorf("no codec for dtype %v", v.DType())
}

func decodeAs[T dtype.Element, C dtype.Codec[T]](c C, flat *tensor.View) ([]float32, error) {
	e, err := tensor.ElemsOf[T](flat)
	if err != nil {
		return nil, err
	}
	out := make([]float32, flat.Dim(0))
	for i := range out {
		out[i] = c.ToF32(e.At(i))
	}
	return out, nil
}
