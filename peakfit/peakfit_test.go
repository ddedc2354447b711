package peakfit

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CK6170/Spectro-go/spectrum"
)

func syntheticWindow(center float64) spectrum.Window {
	wl := spectrum.Linear(540, 0.5, 41)
	in := make(spectrum.Reading, len(wl))
	for i, x := range wl {
		in[i] = 2000 * math.Exp(-(x-center)*(x-center)/40)
	}
	return spectrum.Window{Wavelengths: wl, Intensities: in}
}

func TestGaussFitterFindsCenter(t *testing.T) {
	w := syntheticWindow(551)
	got, err := GaussFitter{}.Fit(context.Background(), w)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-551) > 0.5 {
		t.Fatalf("got %v", got)
	}
}

func TestGaussFitterEmpty(t *testing.T) {
	_, err := GaussFitter{}.Fit(context.Background(), spectrum.Window{})
	if !errors.Is(err, ErrEmptyWindow) {
		t.Fatalf("got %v", err)
	}
}

func TestExecFitter(t *testing.T) {
	dir := t.TempDir()
	f := &ExecFitter{
		Command: []string{"sh", "-c", "echo 551.50 > " + ResultFile},
		Dir:     dir,
	}
	w := syntheticWindow(551)
	got, err := f.Fit(context.Background(), w)
	if err != nil {
		t.Fatal(err)
	}
	if got != 551.5 {
		t.Fatalf("got %v", got)
	}

	input, err := os.ReadFile(filepath.Join(dir, InputFile))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(input)), "\n")
	if len(lines) != w.Len() {
		t.Fatalf("got %d lines", len(lines))
	}
	if fields := strings.Fields(lines[0]); len(fields) != 2 || fields[0] != "540.0000" {
		t.Fatalf("got %q", lines[0])
	}
}

func TestExecFitterMissingResult(t *testing.T) {
	dir := t.TempDir()
	// a result left over from an earlier fit must not be reused
	if err := os.WriteFile(filepath.Join(dir, ResultFile), []byte("1.00"), 0644); err != nil {
		t.Fatal(err)
	}
	f := &ExecFitter{
		Command: []string{"sh", "-c", "true"},
		Dir:     dir,
	}
	_, err := f.Fit(context.Background(), syntheticWindow(551))
	if !errors.Is(err, ErrNoResult) {
		t.Fatalf("got %v", err)
	}
}

func TestExecFitterUnreadableResult(t *testing.T) {
	dir := t.TempDir()
	f := &ExecFitter{
		Command: []string{"sh", "-c", "echo nope > " + ResultFile},
		Dir:     dir,
	}
	_, err := f.Fit(context.Background(), syntheticWindow(551))
	if !errors.Is(err, ErrNoResult) {
		t.Fatalf("got %v", err)
	}
}

func TestExecFitterToolFailure(t *testing.T) {
	f := &ExecFitter{
		Command: []string{"sh", "-c", "exit 3"},
		Dir:     t.TempDir(),
	}
	if _, err := f.Fit(context.Background(), syntheticWindow(551)); err == nil {
		t.Fatal("should error")
	}
}
