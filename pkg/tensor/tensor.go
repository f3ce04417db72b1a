// Package tensor provides the strided view kernels read and write: axis
// extents, per-axis strides measured in elements, a dtype tag, and raw
// storage bytes.
//
// Views describe layout only. Sub-views alias the parent's storage, nothing
// here copies tensor data, and a view's lifetime is its caller's problem.
package tensor

import (
	"fmt"

	"github.com/samcharles93/basalt/pkg/dtype"
)

// View is a possibly non-contiguous tensor over raw storage.
//
// The slices returned by Shape and Strides are the view's own metadata;
// treat them as read-only.
type View struct {
	shape   []int
	strides []int
	dt      dtype.DType
	data    []byte
}

// New allocates a contiguous row-major view. No shape arguments make a
// one-element scalar view.
func New(dt dtype.DType, shape ...int) (*View, error) {
	es := dt.Size()
	if es == 0 {
		return nil, fmt.Errorf("tensor: invalid dtype tag %d", uint32(dt))
	}
	n := 1
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("tensor: negative extent %d", d)
		}
		n *= d
	}
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	v := &View{
		shape:   append([]int(nil), shape...),
		strides: strides,
		dt:      dt,
		data:    make([]byte, n*es),
	}
	return v, nil
}

// FromBytes wraps caller-owned storage in a view without copying. The
// storage must cover the highest element the shape/stride pair can address.
func FromBytes(dt dtype.DType, data []byte, shape, strides []int) (*View, error) {
	es := dt.Size()
	if es == 0 {
		return nil, fmt.Errorf("tensor: invalid dtype tag %d", uint32(dt))
	}
	if len(shape) != len(strides) {
		return nil, fmt.Errorf("tensor: rank mismatch, %d extents vs %d strides", len(shape), len(strides))
	}
	numel := 1
	span := 1
	for i, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("tensor: negative extent %d", d)
		}
		if strides[i] < 0 {
			return nil, fmt.Errorf("tensor: negative stride %d", strides[i])
		}
		numel *= d
		if d > 0 {
			span += (d - 1) * strides[i]
		}
	}
	if numel == 0 {
		span = 0
	}
	if len(data) < span*es {
		return nil, fmt.Errorf("tensor: storage holds %d bytes, layout needs %d", len(data), span*es)
	}
	v := &View{
		shape:   append([]int(nil), shape...),
		strides: append([]int(nil), strides...),
		dt:      dt,
		data:    data,
	}
	return v, nil
}

// FromFloat32s allocates a contiguous f32 view initialized from vals.
func FromFloat32s(vals []float32, shape ...int) (*View, error) {
	v, err := New(dtype.F32, shape...)
	if err != nil {
		return nil, err
	}
	if v.Numel() != len(vals) {
		return nil, fmt.Errorf("tensor: %d values for shape %v (%d elements)", len(vals), shape, v.Numel())
	}
	s, err := sliceOf[float32](v.data)
	if err != nil {
		return nil, err
	}
	copy(s, vals)
	return v, nil
}

// FromInt64s allocates a contiguous i64 view initialized from vals.
func FromInt64s(vals []int64, shape ...int) (*View, error) {
	v, err := New(dtype.I64, shape...)
	if err != nil {
		return nil, err
	}
	if v.Numel() != len(vals) {
		return nil, fmt.Errorf("tensor: %d values for shape %v (%d elements)", len(vals), shape, v.Numel())
	}
	s, err := sliceOf[int64](v.data)
	if err != nil {
		return nil, err
	}
	copy(s, vals)
	return v, nil
}

// Rank returns the number of axes.
func (v *View) Rank() int { return len(v.shape) }

// Dim returns the extent of axis i.
func (v *View) Dim(i int) int { return v.shape[i] }

// Shape returns the per-axis extents.
func (v *View) Shape() []int { return v.shape }

// Strides returns the per-axis strides, in elements.
func (v *View) Strides() []int { return v.strides }

// DType returns the element encoding tag.
func (v *View) DType() dtype.DType { return v.dt }

// ElemSize returns the element width in bytes.
func (v *View) ElemSize() int { return v.dt.Size() }

// Data returns the raw storage window backing the view.
func (v *View) Data() []byte { return v.data }

// Numel returns the number of addressable elements.
func (v *View) Numel() int {
	n := 1
	for _, d := range v.shape {
		n *= d
	}
	return n
}

// Offset returns the element offset of an index tuple: the sum of
// index·stride per axis. Bounds are the caller's responsibility.
func (v *View) Offset(idx ...int) int {
	off := 0
	for i, x := range idx {
		off += x * v.strides[i]
	}
	return off
}

// OffsetBytes returns the byte offset of an index tuple.
func (v *View) OffsetBytes(idx ...int) int {
	return v.Offset(idx...) * v.dt.Size()
}

// Contiguous reports whether the view is dense row-major.
func (v *View) Contiguous() bool {
	acc := 1
	for i := len(v.shape) - 1; i >= 0; i-- {
		if v.strides[i] != acc {
			return false
		}
		acc *= v.shape[i]
	}
	return true
}

// Narrow returns a view of n positions of an axis starting at start,
// aliasing the same storage.
func (v *View) Narrow(axis, start, n int) (*View, error) {
	if axis < 0 || axis >= len(v.shape) {
		return nil, fmt.Errorf("tensor: narrow axis %d out of rank %d", axis, len(v.shape))
	}
	if start < 0 || n < 0 || start+n > v.shape[axis] {
		return nil, fmt.Errorf("tensor: narrow [%d:%d] outside extent %d", start, start+n, v.shape[axis])
	}
	shape := append([]int(nil), v.shape...)
	shape[axis] = n
	nv := &View{
		shape:   shape,
		strides: append([]int(nil), v.strides...),
		dt:      v.dt,
		data:    v.data[start*v.strides[axis]*v.dt.Size():],
	}
	return nv, nil
}

// Transpose returns a view with the axis order reversed, aliasing the same
// storage.
func (v *View) Transpose() *View {
	r := len(v.shape)
	shape := make([]int, r)
	strides := make([]int, r)
	for i := range r {
		shape[i] = v.shape[r-1-i]
		strides[i] = v.strides[r-1-i]
	}
	return &View{shape: shape, strides: strides, dt: v.dt, data: v.data}
}
