package ops

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/samcharles93/basalt/pkg/dtype"
	"github.com/samcharles93/basalt/pkg/tensor"
)

// TestLinearIdentity checks that multiplying by the identity matrix with no
// bias reproduces the input bit for bit. The values are exactly
// representable in every floating dtype, so narrowing cannot move them.
func TestLinearIdentity(t *testing.T) {
	for _, dt := range []dtype.DType{dtype.F32, dtype.F16, dtype.BF16} {
		t.Run(dt.String(), func(t *testing.T) {
			const n = 4
			eye := make([]float32, n*n)
			for i := range n {
				eye[i*n+i] = 1
			}
			xv := []float32{1.5, -2.25, 0.5, 8, -0.125, 3, -7.5, 0.0625}

			in := newFloatView(t, dt, xv, 2, n)
			weight := newFloatView(t, dt, eye, n, n)
			out := newView(t, dt, 2, n)

			if err := Linear(out, in, weight, nil); err != nil {
				t.Fatalf("Linear: %v", err)
			}
			compareSlices(t, readFloats(t, out), xv, 0)
		})
	}
}

func TestLinearBias(t *testing.T) {
	in := newViewF32(t, []float32{2, 3}, 1, 2)
	weight := newViewF32(t, []float32{4, 5, -1, 2}, 2, 2)
	bias := newViewF32(t, []float32{1, -1}, 2)
	out := newView(t, dtype.F32, 1, 2)

	if err := Linear(out, in, weight, bias); err != nil {
		t.Fatalf("Linear with bias: %v", err)
	}
	compareSlices(t, readFloats(t, out), []float32{24, 3}, 0)

	if err := Linear(out, in, weight, nil); err != nil {
		t.Fatalf("Linear without bias: %v", err)
	}
	compareSlices(t, readFloats(t, out), []float32{23, 4}, 0)
}

func TestLinearMatchesGonum(t *testing.T) {
	const batch, inF, outF = 3, 5, 4
	xv := patternData(batch*inF, 0.1)
	wv := patternData(outF*inF, 0.05)
	bv := patternData(outF, 0.2)

	in := newViewF32(t, xv, batch, inF)
	weight := newViewF32(t, wv, outF, inF)
	bias := newViewF32(t, bv, outF)
	out := newView(t, dtype.F32, batch, outF)

	if err := Linear(out, in, weight, bias); err != nil {
		t.Fatalf("Linear: %v", err)
	}

	x := mat.NewDense(batch, inF, toF64(xv))
	w := mat.NewDense(outF, inF, toF64(wv))
	var prod mat.Dense
	prod.Mul(x, w.T())

	want := make([]float32, batch*outF)
	for i := range batch {
		for j := range outF {
			want[i*outF+j] = float32(prod.At(i, j) + float64(bv[j]))
		}
	}
	compareSlices(t, readFloats(t, out), want, 1e-5)
}

func TestLinearIntegerDTypes(t *testing.T) {
	in := newView(t, dtype.I32, 1, 2)
	fillAs[int32](t, dtype.I32Codec{}, in, []float32{2, 3})
	weight := newView(t, dtype.I32, 2, 2)
	fillAs[int32](t, dtype.I32Codec{}, weight, []float32{4, 5, -1, 2})
	bias := newView(t, dtype.I32, 2)
	fillAs[int32](t, dtype.I32Codec{}, bias, []float32{1, -1})
	out := newView(t, dtype.I32, 1, 2)

	if err := Linear(out, in, weight, bias); err != nil {
		t.Fatalf("Linear: %v", err)
	}
	e, err := tensor.ElemsOf[int32](out)
	if err != nil {
		t.Fatalf("ElemsOf: %v", err)
	}
	if e.At2(0, 0) != 24 || e.At2(0, 1) != 3 {
		t.Fatalf("got [%d %d], want [24 3]", e.At2(0, 0), e.At2(0, 1))
	}
}

// TestLinearStridedViews runs the same projection through transposed and
// padded layouts; the element order of the arithmetic is unchanged, so the
// results must match the contiguous run exactly.
func TestLinearStridedViews(t *testing.T) {
	const batch, inF, outF = 2, 3, 2
	xv := []float32{1, 2, 3, 4, 5, 6}
	wv := []float32{0.5, -1, 2, 1, 1, -0.5}
	bv := []float32{0.25, -0.25}

	in := newViewF32(t, xv, batch, inF)
	weight := newViewF32(t, wv, outF, inF)
	bias := newViewF32(t, bv, outF)
	want := newView(t, dtype.F32, batch, outF)
	if err := Linear(want, in, weight, bias); err != nil {
		t.Fatalf("Linear contiguous: %v", err)
	}

	inT := newViewF32(t, []float32{1, 4, 2, 5, 3, 6}, inF, batch).Transpose()
	wbase := newViewF32(t, []float32{0.5, -1, 2, 9, 1, 1, -0.5, 9}, outF, inF+1)
	wn, err := wbase.Narrow(1, 0, inF)
	if err != nil {
		t.Fatalf("Narrow weight: %v", err)
	}
	out := newView(t, dtype.F32, batch, outF)

	if err := Linear(out, inT, wn, bias); err != nil {
		t.Fatalf("Linear strided: %v", err)
	}
	compareSlices(t, readFloats(t, out), readFloats(t, want), 0)
}

func TestLinearRejects(t *testing.T) {
	in := newViewF32(t, []float32{1, 2, 3, 4}, 2, 2)
	weight := newViewF32(t, []float32{1, 0, 0, 1}, 2, 2)
	bias := newViewF32(t, []float32{0, 0}, 2)
	out := newView(t, dtype.F32, 2, 2)

	cases := []struct {
		name               string
		out, in, wgt, bias *tensor.View
		want               error
	}{
		{"weight rank", out, in, newViewF32(t, []float32{1, 2}, 2), bias, ErrShape},
		{"in rank", out, newViewF32(t, []float32{1, 2}, 2), weight, bias, ErrShape},
		{"feature mismatch", out, newViewF32(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3), weight, bias, ErrShape},
		{"out shape", newView(t, dtype.F32, 2, 3), in, weight, bias, ErrShape},
		{"bias shape", out, in, weight, newViewF32(t, []float32{0, 0, 0}, 3), ErrShape},
		{"in dtype", out, newFloatView(t, dtype.F16, []float32{1, 2, 3, 4}, 2, 2), weight, bias, ErrDType},
		{"bias dtype", out, in, weight, newFloatView(t, dtype.F16, []float32{0, 0}, 2), ErrDType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := Linear(tc.out, tc.in, tc.wgt, tc.bias); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func toF64(x []float32) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}

func BenchmarkLinearF32(b *testing.B) { benchLinear(b, 8, 256, 256, dtype.F32) }
func BenchmarkLinearF16(b *testing.B) { benchLinear(b, 8, 256, 256, dtype.F16) }

func benchLinear(b *testing.B, batch, inF, outF int, dt dtype.DType) {
	in := newFloatView(b, dt, patternData(batch*inF, 0.01), batch, inF)
	weight := newFloatView(b, dt, patternData(outF*inF, 0.02), outF, inF)
	bias := newFloatView(b, dt, patternData(outF, 0.03), outF)
	out := newView(b, dt, batch, outF)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := Linear(out, in, weight, bias); err != nil {
			b.Fatal(err)
		}
	}
}
