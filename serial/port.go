// Package serial carries the command channel over a tty, normally the
// RFCOMM device bound to the paired handset.
package serial

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/tarm/serial"
)

// DefaultDevice is where rfcomm binds the handset's serial profile.
const DefaultDevice = "/dev/rfcomm0"

// pollTimeout bounds each read so Close is noticed.
const pollTimeout = 300 * time.Millisecond

func config(name string, baud int) *serial.Config {
	return &serial.Config{Name: name, Baud: baud, Parity: serial.ParityNone, Size: 8, StopBits: serial.Stop1, ReadTimeout: pollTimeout}
}

// Port is an open tty. Read blocks until data arrives, the port is closed, or
// the device goes away.
type Port struct {
	name   string
	sp     *serial.Port
	closed atomic.Bool
}

func Open(name string, baud int) (*Port, error) {
	sp, err := serial.OpenPort(config(name, baud))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return &Port{name: name, sp: sp}, nil
}

func (p *Port) Name() string { return p.name }

func (p *Port) Read(b []byte) (int, error) {
	for {
		n, err := p.sp.Read(b)
		if p.closed.Load() {
			return 0, os.ErrClosed
		}
		if n > 0 {
			return n, nil
		}
		// a read timeout shows up as an empty read, sometimes with EOF
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		if runtime.GOOS != "windows" {
			if _, err := os.Stat(p.name); err != nil {
				return 0, io.EOF
			}
		}
	}
}

func (p *Port) Write(b []byte) (int, error) {
	if p.closed.Load() {
		return 0, os.ErrClosed
	}
	return p.sp.Write(b)
}

func (p *Port) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.sp.Close()
}

// Candidates lists the tty nodes worth trying, rfcomm first.
func Candidates() []string {
	if runtime.GOOS == "windows" {
		out := make([]string, 0, 64)
		for i := 1; i <= 64; i++ {
			out = append(out, fmt.Sprintf("COM%d", i))
		}
		return out
	}
	out := make([]string, 0, 16)
	for _, pat := range []string{"/dev/rfcomm*", "/dev/ttyUSB*", "/dev/ttyACM*", "/dev/cu.*"} {
		matches, _ := filepath.Glob(pat)
		for _, m := range matches {
			if _, err := os.Stat(m); err == nil {
				out = append(out, m)
			}
		}
	}
	return out
}

// AutoDetectPort returns the first candidate that opens at baud, or "".
func AutoDetectPort(baud int) string {
	for _, name := range Candidates() {
		if TestPort(name, baud) {
			return name
		}
	}
	return ""
}

// TestPort reports whether name can be opened at baud.
func TestPort(name string, baud int) bool {
	sp, err := serial.OpenPort(config(name, baud))
	if err != nil {
		return false
	}
	_ = sp.Close()
	return true
}
