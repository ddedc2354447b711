package spectrum

import (
	"testing"
)

func TestAccumulateConstant(t *testing.T) {
	const v = 42.5
	readings := make([]Reading, 4)
	for i := range readings {
		r := make(Reading, 1024)
		for j := range r {
			r[j] = v
		}
		readings[i] = r
	}
	scan := Accumulate(readings)
	if len(scan) != 1024 {
		t.Fatalf("got %d samples", len(scan))
	}
	for i, got := range scan {
		if got != v {
			t.Fatalf("sample %d: got %v", i, got)
		}
	}
}

func TestAccumulateDoesNotMutateInput(t *testing.T) {
	a := Reading{1, 2, 3}
	b := Reading{3, 4, 5}
	scan := Accumulate([]Reading{a, b})
	if scan[0] != 2 || scan[1] != 3 || scan[2] != 4 {
		t.Fatalf("got %v", scan)
	}
	if a[0] != 1 || a[2] != 3 || b[0] != 3 || b[2] != 5 {
		t.Fatalf("inputs changed: %v %v", a, b)
	}
	scan[0] = 100
	if a[0] != 1 {
		t.Fatal("scan aliases first reading")
	}
}

func TestAccumulateEmptyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("should panic")
		}
	}()
	Accumulate(nil)
}

func TestBoxcar(t *testing.T) {
	in := Reading{0, 0, 9, 0, 0}
	out := Boxcar(3, in)
	want := Reading{0, 3, 3, 3, 0}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("got %v", out)
		}
	}
	if in[2] != 9 {
		t.Fatal("input changed")
	}

	same := Boxcar(1, in)
	for i := range in {
		if same[i] != in[i] {
			t.Fatalf("got %v", same)
		}
	}

	// clamped edges keep a constant spectrum constant
	flat := Boxcar(16, Reading{5, 5, 5, 5})
	for _, v := range flat {
		if v != 5 {
			t.Fatalf("got %v", flat)
		}
	}
}
