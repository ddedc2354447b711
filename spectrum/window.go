package spectrum

import (
	"gonum.org/v1/gonum/floats"
)

// PeakFraction bounds the peak window: it spans the samples whose intensity
// stays above this fraction of the maximum.
const PeakFraction = 0.98

// SelectWindow finds the maximum intensity (first occurrence on ties) and the
// wavelengths where the intensity first falls to PeakFraction of it on each
// side. A side that never falls off is bounded by the table edge.
func SelectWindow(wavelengths Wavelengths, intensities Reading) (low, high float64, peak int) {
	if len(intensities) == 0 || len(wavelengths) < len(intensities) {
		panic("spectrum: SelectWindow needs a wavelength per intensity")
	}
	peak = floats.MaxIdx(intensities)
	limit := intensities[peak] * PeakFraction

	high = wavelengths[len(intensities)-1]
	for i := peak + 1; i < len(intensities); i++ {
		if intensities[i] <= limit {
			high = wavelengths[i]
			break
		}
	}

	low = wavelengths[0]
	for i := peak - 1; i >= 0; i-- {
		if intensities[i] <= limit {
			low = wavelengths[i]
			break
		}
	}
	return low, high, peak
}

// Window is the part of a scan handed to the peak fitter.
type Window struct {
	Wavelengths Wavelengths
	Intensities Reading
}

func (w Window) Len() int { return len(w.Wavelengths) }

// Restrict keeps the (wavelength, intensity) pairs with low <= wavelength <= high.
func Restrict(wavelengths Wavelengths, intensities Reading, low, high float64) Window {
	var w Window
	for i, v := range intensities {
		wl := wavelengths[i]
		if wl < low || wl > high {
			continue
		}
		w.Wavelengths = append(w.Wavelengths, wl)
		w.Intensities = append(w.Intensities, v)
	}
	return w
}
