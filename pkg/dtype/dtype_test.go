package dtype

import "testing"

func TestSize(t *testing.T) {
	t.Parallel()

	want := map[DType]int{
		F32: 4, F16: 2, BF16: 2,
		I8: 1, I16: 2, I32: 4, I64: 8,
		U8: 1, U16: 2, U32: 4, U64: 8,
	}
	for d, n := range want {
		if got := d.Size(); got != n {
			t.Errorf("%v.Size() = %d, want %d", d, got, n)
		}
	}
	if got := Invalid.Size(); got != 0 {
		t.Errorf("Invalid.Size() = %d, want 0", got)
	}
	if got := DType(99).Size(); got != 0 {
		t.Errorf("DType(99).Size() = %d, want 0", got)
	}
}

func TestParseRoundTrip(t *testing.T) {
	t.Parallel()

	for _, d := range All() {
		got, err := Parse(d.String())
		if err != nil {
			t.Fatalf("Parse(%q): %v", d.String(), err)
		}
		if got != d {
			t.Errorf("Parse(%q) = %v, want %v", d.String(), got, d)
		}
	}
	if _, err := Parse("f64"); err == nil {
		t.Error("Parse(\"f64\") succeeded, want error")
	}
	if _, err := Parse("invalid"); err == nil {
		t.Error("Parse(\"invalid\") succeeded, want error")
	}
}

func TestFloat(t *testing.T) {
	t.Parallel()

	for _, d := range All() {
		want := d == F32 || d == F16 || d == BF16
		if got := d.Float(); got != want {
			t.Errorf("%v.Float() = %t, want %t", d, got, want)
		}
	}
}
