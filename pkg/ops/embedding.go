package ops

import (
	"fmt"

	"github.com/samcharles93/basalt/pkg/dtype"
	"github.com/samcharles93/basalt/pkg/tensor"
)

// Embedding gathers rows of weight selected by index into out.
// index is [R] int64, weight is [V, C], out is [R, C] with weight's dtype.
// Rows move as raw bytes, so every storage dtype is supported; each view's
// own row stride is honored, but rows themselves are taken as contiguous.
// Every index is range-checked against V before the first row is written.
func Embedding(out, index, weight *tensor.View) error {
	if index.DType() != dtype.I64 {
		return fmt.Errorf("%w: embedding: index dtype %v, want %v", ErrDType, index.DType(), dtype.I64)
	}
	if index.Rank() != 1 {
		return fmt.Errorf("%w: embedding: index rank %d, want 1", ErrShape, index.Rank())
	}
	if weight.Rank() != 2 {
		return fmt.Errorf("%w: embedding: weight rank %d, want 2", ErrShape, weight.Rank())
	}
	if out.Rank() != 2 {
		return fmt.Errorf("%w: embedding: out rank %d, want 2", ErrShape, out.Rank())
	}
	rows, cols := index.Dim(0), weight.Dim(1)
	if out.Dim(0) != rows || out.Dim(1) != cols {
		return fmt.Errorf("%w: embedding: out %v, want [%d %d]", ErrShape, out.Shape(), rows, cols)
	}
	if out.DType() != weight.DType() {
		return fmt.Errorf("%w: embedding: out %v, weight %v", ErrDType, out.DType(), weight.DType())
	}

	idx, err := tensor.ElemsOf[int64](index)
	if err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	vocab := int64(weight.Dim(0))
	for i := range rows {
		if r := idx.At(i); r < 0 || r >= vocab {
			return fmt.Errorf("%w: embedding: index[%d] = %d outside [0,%d)", ErrIndex, i, r, vocab)
		}
	}

	rowBytes := cols * weight.ElemSize()
	src, dst := weight.Data(), out.Data()
	for i := range rows {
		so := weight.OffsetBytes(int(idx.At(i)), 0)
		do := out.OffsetBytes(i, 0)
		copy(dst[do:do+rowBytes], src[so:so+rowBytes])
	}
	return nil
}
