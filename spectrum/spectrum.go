// Package spectrum holds the measurement math of an experiment: averaging
// repeated readings into a scan, smoothing, and locating the peak window that
// is handed to the peak fitter.
package spectrum

// Reading is one frame of intensities, one sample per wavelength index.
type Reading []float64

// Wavelengths maps sample index to wavelength in nm.
type Wavelengths []float64

// Clone returns a copy detached from the calibration provider, so a later
// reindex of the instrument does not alter the analysis of scans already
// taken.
func (w Wavelengths) Clone() Wavelengths {
	out := make(Wavelengths, len(w))
	copy(out, w)
	return out
}

// Linear builds a table of n points starting at start, step nm apart.
func Linear(start, step float64, n int) Wavelengths {
	out := make(Wavelengths, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}
