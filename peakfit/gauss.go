package peakfit

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/CK6170/Spectro-go/spectrum"
)

// initial width guess, in nm^2 as used by gaussian()
const guessWidth = 100

// GaussFitter fits a*exp(-(x-c)^2/w) to the window with Nelder-Mead and
// reports the window wavelength where the fitted curve is highest. If the fit
// does not converge the raw maximum is used instead.
type GaussFitter struct{}

func gaussian(x, a, c, w float64) float64 {
	return a * math.Exp(-(x-c)*(x-c)/w)
}

func (GaussFitter) Fit(ctx context.Context, win spectrum.Window) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if win.Len() == 0 {
		return 0, ErrEmptyWindow
	}
	if win.Len() < 3 {
		return win.Wavelengths[floats.MaxIdx(win.Intensities)], nil
	}

	xs, ys := win.Wavelengths, win.Intensities
	peak := floats.MaxIdx(ys)
	guess := []float64{ys[peak], xs[peak], guessWidth}

	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			w := math.Abs(p[2]) + 1e-9
			sum := 0.0
			for i := range xs {
				d := gaussian(xs[i], p[0], p[1], w) - ys[i]
				sum += d * d
			}
			return sum
		},
	}
	result, err := optimize.Minimize(problem, guess, nil, &optimize.NelderMead{})
	if err != nil || result == nil {
		return xs[peak], nil
	}

	a, c, w := result.X[0], result.X[1], math.Abs(result.X[2])+1e-9
	fitted := make([]float64, len(xs))
	for i, x := range xs {
		fitted[i] = gaussian(x, a, c, w)
	}
	return xs[floats.MaxIdx(fitted)], nil
}
