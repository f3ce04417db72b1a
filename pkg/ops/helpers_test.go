package ops

import (
	"testing"

	"github.com/samcharles93/basalt/pkg/dtype"
	"github.com/samcharles93/basalt/pkg/tensor"
)

func newView(t testing.TB, dt dtype.DType, shape ...int) *tensor.View {
	t.Helper()
	v, err := tensor.New(dt, shape...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func newViewF32(t testing.TB, vals []float32, shape ...int) *tensor.View {
	t.Helper()
	v, err := tensor.FromFloat32s(vals, shape...)
	if err != nil {
		t.Fatalf("FromFloat32s: %v", err)
	}
	return v
}

func newViewI64(t testing.TB, vals []int64, shape ...int) *tensor.View {
	t.Helper()
	v, err := tensor.FromInt64s(vals, shape...)
	if err != nil {
		t.Fatalf("FromInt64s: %v", err)
	}
	return v
}

func fillAs[T dtype.Element, C dtype.Codec[T]](t testing.TB, c C, v *tensor.View, vals []float32) {
	t.Helper()
	if len(vals) != v.Numel() {
		t.Fatalf("fill %d values into %v view", len(vals), v.Shape())
	}
	e, err := tensor.ElemsOf[T](v)
	if err != nil {
		t.Fatalf("ElemsOf: %v", err)
	}
	switch v.Rank() {
	case 1:
		for i, x := range vals {
			e.Set(i, c.FromF32(x))
		}
	case 2:
		cols := v.Dim(1)
		for i, x := range vals {
			e.Set2(i/cols, i%cols, c.FromF32(x))
		}
	case 3:
		d1, d2 := v.Dim(1), v.Dim(2)
		for i, x := range vals {
			e.Set3(i/(d1*d2), (i/d2)%d1, i%d2, c.FromF32(x))
		}
	default:
		t.Fatalf("fill rank %d unsupported", v.Rank())
	}
}

func readAs[T dtype.Element, C dtype.Codec[T]](t testing.TB, c C, v *tensor.View) []float32 {
	t.Helper()
	e, err := tensor.ElemsOf[T](v)
	if err != nil {
		t.Fatalf("ElemsOf: %v", err)
	}
	out := make([]float32, v.Numel())
	switch v.Rank() {
	case 0:
		out[0] = c.ToF32(e.Scalar())
	case 1:
		for i := range out {
			out[i] = c.ToF32(e.At(i))
		}
	case 2:
		cols := v.Dim(1)
		for i := range out {
			out[i] = c.ToF32(e.At2(i/cols, i%cols))
		}
	case 3:
		d1, d2 := v.Dim(1), v.Dim(2)
		for i := range out {
			out[i] = c.ToF32(e.At3(i/(d1*d2), (i/d2)%d1, i%d2))
		}
	default:
		t.Fatalf("read rank %d unsupported", v.Rank())
	}
	return out
}

// newFloatView builds a view of one of the floating dtypes from float32
// values, encoding through the dtype's own codec.
func newFloatView(t testing.TB, dt dtype.DType, vals []float32, shape ...int) *tensor.View {
	t.Helper()
	v := newView(t, dt, shape...)
	switch dt {
	case dtype.F32:
		fillAs[float32](t, dtype.F32Codec{}, v, vals)
	case dtype.F16:
		fillAs[dtype.Float16](t, dtype.F16Codec{}, v, vals)
	case dtype.BF16:
		fillAs[dtype.BFloat16](t, dtype.BF16Codec{}, v, vals)
	default:
		t.Fatalf("not a floating dtype: %v", dt)
	}
	return v
}

func readFloats(t testing.TB, v *tensor.View) []float32 {
	t.Helper()
	switch v.DType() {
	case dtype.F32:
		return readAs[float32](t, dtype.F32Codec{}, v)
	case dtype.F16:
		return readAs[dtype.Float16](t, dtype.F16Codec{}, v)
	case dtype.BF16:
		return readAs[dtype.BFloat16](t, dtype.BF16Codec{}, v)
	default:
		t.Fatalf("not a floating dtype: %v", v.DType())
		return nil
	}
}

func compareSlices(t testing.TB, got, want []float32, tol float32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(want))
	}
	for i := range got {
		g, w := got[i], want[i]
		if g < w-tol || g > w+tol {
			t.Fatalf("mismatch at %d: got %v want %v±%v", i, g, w, tol)
		}
	}
}

// patternData generates deterministic mixed-sign values.
func patternData(n int, scale float32) []float32 {
	x := make([]float32, n)
	for i := range x {
		x[i] = scale * float32((i%29)-14)
	}
	return x
}
