package spectrum

import (
	"gonum.org/v1/gonum/floats"
)

// Accumulate averages raw readings sample-wise into a new scan record. The
// readings are not modified. All readings must share the first one's length
// and at least one must be given.
func Accumulate(readings []Reading) Reading {
	if len(readings) == 0 {
		panic("spectrum: Accumulate needs at least one reading")
	}
	sum := make(Reading, len(readings[0]))
	for _, r := range readings {
		floats.Add(sum, r)
	}
	floats.Scale(1/float64(len(readings)), sum)
	return sum
}
