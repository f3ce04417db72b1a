package ops

import (
	"errors"
	"math"
	"testing"

	"github.com/samcharles93/basalt/pkg/dtype"
	"github.com/samcharles93/basalt/pkg/tensor"
)

// TestRMSNormConstantRow: for a row of all 2s the mean square is 4, the
// scale is 1/2, and unit weights give exactly 1 in every slot.
func TestRMSNormConstantRow(t *testing.T) {
	for _, dt := range []dtype.DType{dtype.F32, dtype.F16, dtype.BF16} {
		t.Run(dt.String(), func(t *testing.T) {
			in := newFloatView(t, dt, []float32{2, 2, 2, 2}, 2, 2)
			weight := newFloatView(t, dt, []float32{1, 1}, 2)
			out := newView(t, dt, 2, 2)

			if err := RMSNorm(out, in, weight, 0); err != nil {
				t.Fatalf("RMSNorm: %v", err)
			}
			compareSlices(t, readFloats(t, out), []float32{1, 1, 1, 1}, 0)
		})
	}
}

func TestRMSNormEps(t *testing.T) {
	in := newViewF32(t, []float32{2, 2}, 1, 2)
	weight := newViewF32(t, []float32{1, 1}, 2)
	out := newView(t, dtype.F32, 1, 2)

	// ms = 4, eps = 12: scale = 1/sqrt(16) = 1/4.
	if err := RMSNorm(out, in, weight, 12); err != nil {
		t.Fatalf("RMSNorm: %v", err)
	}
	compareSlices(t, readFloats(t, out), []float32{0.5, 0.5}, 0)
}

func TestRMSNormPerFeatureWeight(t *testing.T) {
	in := newViewF32(t, []float32{2, 2}, 1, 2)
	weight := newViewF32(t, []float32{0.5, 2}, 2)
	out := newView(t, dtype.F32, 1, 2)

	if err := RMSNorm(out, in, weight, 0); err != nil {
		t.Fatalf("RMSNorm: %v", err)
	}
	compareSlices(t, readFloats(t, out), []float32{0.5, 2}, 0)
}

func TestRMSNormMatchesNaive(t *testing.T) {
	const rows, d = 3, 8
	xv := patternData(rows*d, 0.3)
	wv := patternData(d, 0.1)
	const eps = float32(1e-5)

	in := newViewF32(t, xv, rows, d)
	weight := newViewF32(t, wv, d)
	out := newView(t, dtype.F32, rows, d)

	if err := RMSNorm(out, in, weight, eps); err != nil {
		t.Fatalf("RMSNorm: %v", err)
	}

	want := make([]float32, rows*d)
	for i := range rows {
		var sum float32
		for j := range d {
			v := xv[i*d+j]
			sum += v * v
		}
		scale := 1 / float32(math.Sqrt(float64(sum/d+eps)))
		for j := range d {
			want[i*d+j] = xv[i*d+j] * scale * wv[j]
		}
	}
	compareSlices(t, readFloats(t, out), want, 1e-6)
}

// TestRMSNormStridedViews normalizes through padded input and output
// windows; the pad column must come through untouched and the destination
// must be addressed by its own strides.
func TestRMSNormStridedViews(t *testing.T) {
	ibase := newViewF32(t, []float32{2, 2, 9, 2, 2, 9}, 2, 3)
	in, err := ibase.Narrow(1, 0, 2)
	if err != nil {
		t.Fatalf("Narrow in: %v", err)
	}
	weight := newViewF32(t, []float32{1, 1}, 2)

	obase := newView(t, dtype.F32, 2, 3)
	fillAs[float32](t, dtype.F32Codec{}, obase, []float32{9, 9, 9, 9, 9, 9})
	out, err := obase.Narrow(1, 0, 2)
	if err != nil {
		t.Fatalf("Narrow out: %v", err)
	}

	if err := RMSNorm(out, in, weight, 0); err != nil {
		t.Fatalf("RMSNorm: %v", err)
	}
	compareSlices(t, readFloats(t, obase), []float32{1, 1, 9, 1, 1, 9}, 0)
}

func TestRMSNormRejects(t *testing.T) {
	in := newViewF32(t, []float32{2, 2, 2, 2}, 2, 2)
	weight := newViewF32(t, []float32{1, 1}, 2)
	out := newView(t, dtype.F32, 2, 2)

	cases := []struct {
		name         string
		out, in, wgt *tensor.View
		want         error
	}{
		{"in rank", out, newViewF32(t, []float32{2, 2}, 2), weight, ErrShape},
		{"weight rank", out, in, newViewF32(t, []float32{1, 1, 1, 1}, 2, 2), ErrShape},
		{"weight length", out, in, newViewF32(t, []float32{1, 1, 1}, 3), ErrShape},
		{"out shape", newView(t, dtype.F32, 2, 3), in, weight, ErrShape},
		{"weight dtype", out, in, newFloatView(t, dtype.F16, []float32{1, 1}, 2), ErrDType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := RMSNorm(tc.out, tc.in, tc.wgt, 0); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func BenchmarkRMSNorm(b *testing.B) {
	const rows, d = 16, 512
	in := newViewF32(b, patternData(rows*d, 0.05), rows, d)
	weight := newViewF32(b, patternData(d, 0.02), d)
	out := newView(b, dtype.F32, rows, d)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := RMSNorm(out, in, weight, 1e-5); err != nil {
			b.Fatal(err)
		}
	}
}
