package peakfit

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/CK6170/Spectro-go/spectrum"
)

const (
	InputFile  = "raw_data.txt"
	ResultFile = "peak_result.txt"
)

// ExecFitter runs an external fit tool in Dir. The window is written to
// InputFile as "wavelength intensity" lines and the tool must leave the peak
// wavelength as a decimal number in ResultFile.
type ExecFitter struct {
	Command []string
	Dir     string
	Timeout time.Duration

	// the tool uses fixed file names, one fit at a time
	mu sync.Mutex
}

func (f *ExecFitter) Fit(ctx context.Context, w spectrum.Window) (float64, error) {
	if len(f.Command) == 0 {
		return 0, fmt.Errorf("peak fit: no command configured")
	}
	if w.Len() == 0 {
		return 0, ErrEmptyWindow
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := f.Dir
	if dir == "" {
		dir = "."
	}
	if err := writeWindow(filepath.Join(dir, InputFile), w); err != nil {
		return 0, fmt.Errorf("peak fit input: %w", err)
	}
	resultPath := filepath.Join(dir, ResultFile)
	if err := os.Remove(resultPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("peak fit stale result: %w", err)
	}

	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, f.Command[0], f.Command[1:]...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return 0, fmt.Errorf("peak fit %s: %w: %s", f.Command[0], err, strings.TrimSpace(string(out)))
	}

	return readResult(resultPath)
}

func writeWindow(path string, w spectrum.Window) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(file)
	for i := range w.Wavelengths {
		fmt.Fprintf(bw, "%.4f %.4f\n", w.Wavelengths[i], w.Intensities[i])
	}
	if err := bw.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func readResult(path string) (float64, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, ErrNoResult
	}
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, ErrNoResult
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unreadable %q", ErrNoResult, s)
	}
	return v, nil
}
