package tensor

import (
	"fmt"
	"unsafe"

	"github.com/samcharles93/basalt/pkg/dtype"
)

// Elems is a typed read/write window over a view's storage. Index arithmetic
// runs over element strides on a reinterpreted slice, so access stays
// bounds-checked without per-element pointer math.
type Elems[T dtype.Element] struct {
	s       []T
	strides []int
}

// ElemsOf binds a typed accessor to v. It fails if T does not match the
// view's dtype or if caller-supplied storage is not aligned for T.
func ElemsOf[T dtype.Element](v *View) (Elems[T], error) {
	if want := dtype.Of[T](); v.dt != want {
		return Elems[T]{}, fmt.Errorf("tensor: %v accessor over %v view", want, v.dt)
	}
	s, err := sliceOf[T](v.data)
	if err != nil {
		return Elems[T]{}, err
	}
	return Elems[T]{s: s, strides: v.strides}, nil
}

func sliceOf[T dtype.Element](data []byte) ([]T, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var z T
	size := unsafe.Sizeof(z)
	if uintptr(unsafe.Pointer(unsafe.SliceData(data)))%unsafe.Alignof(z) != 0 {
		return nil, fmt.Errorf("tensor: storage not aligned for %d-byte elements", size)
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(data))), uintptr(len(data))/size), nil
}

// At reads element i of a rank-1 view.
func (e Elems[T]) At(i int) T { return e.s[i*e.strides[0]] }

// At2 reads element (i, j) of a rank-2 view.
func (e Elems[T]) At2(i, j int) T { return e.s[i*e.strides[0]+j*e.strides[1]] }

// At3 reads element (i, j, k) of a rank-3 view.
func (e Elems[T]) At3(i, j, k int) T { return e.s[i*e.strides[0]+j*e.strides[1]+k*e.strides[2]] }

// Set writes element i of a rank-1 view.
func (e Elems[T]) Set(i int, v T) { e.s[i*e.strides[0]] = v }

// Set2 writes element (i, j) of a rank-2 view.
func (e Elems[T]) Set2(i, j int, v T) { e.s[i*e.strides[0]+j*e.strides[1]] = v }

// Set3 writes element (i, j, k) of a rank-3 view.
func (e Elems[T]) Set3(i, j, k int, v T) { e.s[i*e.strides[0]+j*e.strides[1]+k*e.strides[2]] = v }

// Scalar reads element 0, the whole content of a one-element view.
func (e Elems[T]) Scalar() T { return e.s[0] }

// SetScalar writes element 0 of a one-element view.
func (e Elems[T]) SetScalar(v T) { e.s[0] = v }
