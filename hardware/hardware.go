// Package hardware defines the instrument collaborators the controller drives
// and a simulated rig used on the bench and in tests.
package hardware

import (
	"context"
	"errors"

	"github.com/CK6170/Spectro-go/spectrum"
)

var ErrNotInitialized = errors.New("hardware not initialized")

type Spectrometer interface {
	// Read acquires one reading with the current integration time.
	Read(ctx context.Context) (spectrum.Reading, error)
	Wavelengths() (spectrum.Wavelengths, error)
	SetIntegrationTime(ms int) error
}

type PressureSensor interface {
	ReadPressure() (int, error)
}

// Switch is an on/off actuator: the motor PWM pin or the indicator LED.
type Switch interface {
	On() error
	Off() error
}

// Rig bundles the collaborators of one instrument.
type Rig struct {
	Spectrometer Spectrometer
	Pressure     PressureSensor
	Motor        Switch
	LED          Switch
}

// MotorOn and the other actuator helpers fail with ErrNotInitialized when the
// rig has no such actuator.
func (r *Rig) MotorOn() error  { return on(r.Motor) }
func (r *Rig) MotorOff() error { return off(r.Motor) }
func (r *Rig) LEDOn() error    { return on(r.LED) }
func (r *Rig) LEDOff() error   { return off(r.LED) }

func on(s Switch) error {
	if s == nil {
		return ErrNotInitialized
	}
	return s.On()
}

func off(s Switch) error {
	if s == nil {
		return ErrNotInitialized
	}
	return s.Off()
}
