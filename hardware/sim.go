package hardware

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/CK6170/Spectro-go/spectrum"
)

// SimPressure is the value reported when no ADC is attached.
const SimPressure = 777

// SimSpectrometer produces a gaussian emission line on a flat baseline. The
// line height scales with the integration time like a real detector.
type SimSpectrometer struct {
	Table     spectrum.Wavelengths
	Center    float64
	Width     float64
	Baseline  float64
	Amplitude float64
	// Delay is how long a read blocks; zero reads instantly.
	Delay time.Duration

	mu          sync.Mutex
	integration int
}

func NewSimSpectrometer(table spectrum.Wavelengths) *SimSpectrometer {
	center := 550.0
	if len(table) > 0 {
		center = table[len(table)/2]
	}
	return &SimSpectrometer{
		Table:       table,
		Center:      center,
		Width:       40,
		Baseline:    100,
		Amplitude:   2500,
		integration: 1000,
	}
}

func (s *SimSpectrometer) Read(ctx context.Context) (spectrum.Reading, error) {
	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.Table) == 0 {
		return nil, ErrNotInitialized
	}
	s.mu.Lock()
	gain := float64(s.integration) / 1000
	s.mu.Unlock()

	out := make(spectrum.Reading, len(s.Table))
	for i, x := range s.Table {
		d := x - s.Center
		out[i] = s.Baseline + gain*s.Amplitude*math.Exp(-d*d/s.Width)
	}
	return out, nil
}

func (s *SimSpectrometer) Wavelengths() (spectrum.Wavelengths, error) {
	if len(s.Table) == 0 {
		return nil, ErrNotInitialized
	}
	return s.Table.Clone(), nil
}

func (s *SimSpectrometer) SetIntegrationTime(ms int) error {
	s.mu.Lock()
	s.integration = ms
	s.mu.Unlock()
	return nil
}

type SimPressureSensor struct{}

func (SimPressureSensor) ReadPressure() (int, error) { return SimPressure, nil }

// SimSwitch logs and remembers its state.
type SimSwitch struct {
	Name   string
	Logger *slog.Logger

	mu    sync.Mutex
	state bool
}

func (s *SimSwitch) On() error  { return s.set(true) }
func (s *SimSwitch) Off() error { return s.set(false) }

func (s *SimSwitch) set(v bool) error {
	s.mu.Lock()
	s.state = v
	s.mu.Unlock()
	if s.Logger != nil {
		s.Logger.Debug("switch", "name", s.Name, "on", v)
	}
	return nil
}

func (s *SimSwitch) IsOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// NewSimRig wires a complete simulated instrument whose spectrometer reads
// take readDelay.
func NewSimRig(table spectrum.Wavelengths, readDelay time.Duration, logger *slog.Logger) *Rig {
	spec := NewSimSpectrometer(table)
	spec.Delay = readDelay
	return &Rig{
		Spectrometer: spec,
		Pressure:     SimPressureSensor{},
		Motor:        &SimSwitch{Name: "motor", Logger: logger},
		LED:          &SimSwitch{Name: "led", Logger: logger},
	}
}
