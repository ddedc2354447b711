package spectrum

import (
	"testing"
)

func TestSelectWindowSpike(t *testing.T) {
	wl := Linear(400, 1, 1024)
	in := make(Reading, 1024)
	const k = 300
	in[k] = 1000

	low, high, peak := SelectWindow(wl, in)
	if peak != k {
		t.Fatalf("got peak %d", peak)
	}
	if low != wl[k-1] {
		t.Fatalf("got low %v", low)
	}
	if high != wl[k+1] {
		t.Fatalf("got high %v", high)
	}
}

func TestSelectWindowTiesTakeFirst(t *testing.T) {
	wl := Linear(0, 1, 6)
	in := Reading{0, 5, 0, 5, 0, 0}
	_, _, peak := SelectWindow(wl, in)
	if peak != 1 {
		t.Fatalf("got %d", peak)
	}
}

func TestSelectWindowEdges(t *testing.T) {
	wl := Linear(500, 2, 5)
	// never falls to 98% on either side
	in := Reading{99, 99.5, 100, 99.9, 99}
	low, high, peak := SelectWindow(wl, in)
	if peak != 2 {
		t.Fatalf("got %d", peak)
	}
	if low != 500 || high != 508 {
		t.Fatalf("got [%v, %v]", low, high)
	}

	// peak at the first sample
	in = Reading{10, 1, 1, 1, 1}
	low, high, peak = SelectWindow(wl, in)
	if peak != 0 || low != 500 || high != 502 {
		t.Fatalf("got %d [%v, %v]", peak, low, high)
	}
}

func TestSelectWindowThreshold(t *testing.T) {
	wl := Linear(0, 1, 7)
	// 98 is exactly 98% of the peak and ends the window
	in := Reading{0, 98, 99, 100, 99, 98.5, 98}
	low, high, _ := SelectWindow(wl, in)
	if low != 1 || high != 6 {
		t.Fatalf("got [%v, %v]", low, high)
	}
}

func TestRestrict(t *testing.T) {
	wl := Linear(0, 1, 6)
	in := Reading{0, 1, 2, 3, 4, 5}
	w := Restrict(wl, in, 2, 4)
	if w.Len() != 3 {
		t.Fatalf("got %d", w.Len())
	}
	if w.Wavelengths[0] != 2 || w.Intensities[2] != 4 {
		t.Fatalf("got %+v", w)
	}
}
