package ops

import (
	"errors"
	"math"
	"testing"

	"github.com/samcharles93/basalt/pkg/dtype"
	"github.com/samcharles93/basalt/pkg/tensor"
)

func scalarI64(t testing.TB, v *tensor.View) int64 {
	t.Helper()
	e, err := tensor.ElemsOf[int64](v)
	if err != nil {
		t.Fatalf("ElemsOf: %v", err)
	}
	return e.Scalar()
}

func TestArgmaxFirstOccurrence(t *testing.T) {
	for _, dt := range []dtype.DType{dtype.F32, dtype.F16, dtype.BF16} {
		t.Run(dt.String(), func(t *testing.T) {
			vals := newFloatView(t, dt, []float32{3, 7, 7, 2}, 4)
			maxIdx := newView(t, dtype.I64)
			maxVal := newView(t, dt)

			if err := Argmax(maxIdx, maxVal, vals); err != nil {
				t.Fatalf("Argmax: %v", err)
			}
			if got := scalarI64(t, maxIdx); got != 1 {
				t.Fatalf("index: got %d, want 1", got)
			}
			if got := readFloats(t, maxVal)[0]; got != 7 {
				t.Fatalf("value: got %v, want 7", got)
			}
		})
	}
}

func TestArgmaxSingleElement(t *testing.T) {
	vals := newViewF32(t, []float32{42}, 1)
	maxIdx := newView(t, dtype.I64)
	maxVal := newView(t, dtype.F32)

	if err := Argmax(maxIdx, maxVal, vals); err != nil {
		t.Fatalf("Argmax: %v", err)
	}
	if idx := scalarI64(t, maxIdx); idx != 0 {
		t.Fatalf("index: got %d, want 0", idx)
	}
	if got := readFloats(t, maxVal)[0]; got != 42 {
		t.Fatalf("value: got %v, want 42", got)
	}
}

// TestArgmaxFullWidthIntegers: the running maximum is compared in the
// storage type, so 64-bit values that would collapse to the same float32
// keep their ordering.
func TestArgmaxFullWidthIntegers(t *testing.T) {
	t.Run("u64", func(t *testing.T) {
		vals := newView(t, dtype.U64, 3)
		e, err := tensor.ElemsOf[uint64](vals)
		if err != nil {
			t.Fatalf("ElemsOf: %v", err)
		}
		e.Set(0, 1<<63)
		e.Set(1, 1<<63+1)
		e.Set(2, 1<<63)

		maxIdx := newView(t, dtype.I64)
		maxVal := newView(t, dtype.U64)
		if err := Argmax(maxIdx, maxVal, vals); err != nil {
			t.Fatalf("Argmax: %v", err)
		}
		if idx := scalarI64(t, maxIdx); idx != 1 {
			t.Fatalf("index: got %d, want 1", idx)
		}
		mv, err := tensor.ElemsOf[uint64](maxVal)
		if err != nil {
			t.Fatalf("ElemsOf: %v", err)
		}
		if got := mv.Scalar(); got != 1<<63+1 {
			t.Fatalf("value: got %d, want %d", got, uint64(1<<63+1))
		}
	})

	t.Run("i64", func(t *testing.T) {
		vals := newViewI64(t, []int64{-5, -2, -9}, 3)
		maxIdx := newView(t, dtype.I64)
		maxVal := newView(t, dtype.I64)
		if err := Argmax(maxIdx, maxVal, vals); err != nil {
			t.Fatalf("Argmax: %v", err)
		}
		if idx := scalarI64(t, maxIdx); idx != 1 {
			t.Fatalf("index: got %d, want 1", idx)
		}
		if got := scalarI64(t, maxVal); got != -2 {
			t.Fatalf("value: got %d, want -2", got)
		}
	})
}

// TestArgmaxProperty: the returned index addresses the returned value, no
// element exceeds it, and no earlier element ties it.
func TestArgmaxProperty(t *testing.T) {
	vals := patternData(100, 0.37)
	v := newViewF32(t, vals, 100)
	maxIdx := newView(t, dtype.I64)
	maxVal := newView(t, dtype.F32)

	if err := Argmax(maxIdx, maxVal, v); err != nil {
		t.Fatalf("Argmax: %v", err)
	}
	idx := scalarI64(t, maxIdx)
	val := readFloats(t, maxVal)[0]
	if vals[idx] != val {
		t.Fatalf("vals[%d] = %v, returned value %v", idx, vals[idx], val)
	}
	for i, x := range vals {
		if x > val {
			t.Fatalf("vals[%d] = %v exceeds returned %v", i, x, val)
		}
		if int64(i) < idx && x == val {
			t.Fatalf("tie at %d precedes returned index %d", i, idx)
		}
	}
}

// TestArgmaxNaN pins the strict-greater scan over IEEE floats: a NaN never
// displaces the running maximum, and a leading NaN is never displaced.
func TestArgmaxNaN(t *testing.T) {
	nan := float32(math.NaN())

	vals := newViewF32(t, []float32{1, nan, 3, nan}, 4)
	maxIdx := newView(t, dtype.I64)
	maxVal := newView(t, dtype.F32)
	if err := Argmax(maxIdx, maxVal, vals); err != nil {
		t.Fatalf("Argmax: %v", err)
	}
	if idx := scalarI64(t, maxIdx); idx != 2 {
		t.Fatalf("index: got %d, want 2", idx)
	}

	lead := newViewF32(t, []float32{nan, 5}, 2)
	if err := Argmax(maxIdx, maxVal, lead); err != nil {
		t.Fatalf("Argmax: %v", err)
	}
	if idx := scalarI64(t, maxIdx); idx != 0 {
		t.Fatalf("leading NaN: got index %d, want 0", idx)
	}
	if got := readFloats(t, maxVal)[0]; !math.IsNaN(float64(got)) {
		t.Fatalf("leading NaN: got value %v, want NaN", got)
	}
}

func TestArgmax16BitOrdering(t *testing.T) {
	inf := float32(math.Inf(1))
	vals := newFloatView(t, dtype.F16, []float32{65504, inf, -65504}, 3)
	maxIdx := newView(t, dtype.I64)
	maxVal := newView(t, dtype.F16)

	if err := Argmax(maxIdx, maxVal, vals); err != nil {
		t.Fatalf("Argmax: %v", err)
	}
	if idx := scalarI64(t, maxIdx); idx != 1 {
		t.Fatalf("index: got %d, want 1", idx)
	}
	if got := readFloats(t, maxVal)[0]; !math.IsInf(float64(got), 1) {
		t.Fatalf("value: got %v, want +Inf", got)
	}
}

func TestArgmaxStridedView(t *testing.T) {
	base := newViewF32(t, []float32{3, 99, 7, 99, 5, 99}, 6)
	vals, err := tensor.FromBytes(dtype.F32, base.Data(), []int{3}, []int{2})
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	maxIdx := newView(t, dtype.I64)
	maxVal := newView(t, dtype.F32)

	if err := Argmax(maxIdx, maxVal, vals); err != nil {
		t.Fatalf("Argmax: %v", err)
	}
	if idx := scalarI64(t, maxIdx); idx != 1 {
		t.Fatalf("index: got %d, want 1", idx)
	}
	if got := readFloats(t, maxVal)[0]; got != 7 {
		t.Fatalf("value: got %v, want 7", got)
	}
}

func TestArgmaxRejects(t *testing.T) {
	vals := newViewF32(t, []float32{1, 2, 3}, 3)
	maxIdx := newView(t, dtype.I64)
	maxVal := newView(t, dtype.F32)

	cases := []struct {
		name         string
		idx, val, in *tensor.View
		want         error
	}{
		{"vals rank", maxIdx, maxVal, newViewF32(t, []float32{1, 2}, 1, 2), ErrShape},
		{"vals empty", maxIdx, maxVal, newView(t, dtype.F32, 0), ErrEmpty},
		{"maxIdx shape", newView(t, dtype.I64, 2), maxVal, vals, ErrShape},
		{"maxIdx dtype", newView(t, dtype.I32), maxVal, vals, ErrDType},
		{"maxVal shape", maxIdx, newView(t, dtype.F32, 3), vals, ErrShape},
		{"maxVal dtype", maxIdx, newView(t, dtype.F16), vals, ErrDType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := Argmax(tc.idx, tc.val, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func BenchmarkArgmaxF32(b *testing.B) { benchArgmax(b, dtype.F32) }
func BenchmarkArgmaxF16(b *testing.B) { benchArgmax(b, dtype.F16) }

func benchArgmax(b *testing.B, dt dtype.DType) {
	const n = 4096
	vals := newFloatView(b, dt, patternData(n, 0.01), n)
	maxIdx := newView(b, dtype.I64)
	maxVal := newView(b, dt)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := Argmax(maxIdx, maxVal, vals); err != nil {
			b.Fatal(err)
		}
	}
}
