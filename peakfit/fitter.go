// Package peakfit turns a peak window into a refined peak wavelength.
//
// The instrument historically delegated this to an out-of-process tool that
// reads a two-column data file and writes its answer to a result file;
// ExecFitter keeps that contract. GaussFitter performs the same gaussian fit
// in-process and is used when no tool is configured.
package peakfit

import (
	"context"
	"errors"

	"github.com/CK6170/Spectro-go/spectrum"
)

var (
	ErrEmptyWindow = errors.New("peak window is empty")
	ErrNoResult    = errors.New("peak fit produced no result")
)

type Fitter interface {
	Fit(ctx context.Context, w spectrum.Window) (float64, error)
}

// FitterFunc adapts a function to the Fitter interface.
type FitterFunc func(ctx context.Context, w spectrum.Window) (float64, error)

func (f FitterFunc) Fit(ctx context.Context, w spectrum.Window) (float64, error) {
	return f(ctx, w)
}
