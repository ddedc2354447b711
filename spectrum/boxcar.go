package spectrum

// Boxcar smooths in with a sliding window of width samples centred on each
// index. Indices past either edge are clamped to the edge sample. Width 0 or 1
// returns an unmodified copy; negative widths are treated as 0.
func Boxcar(width int, in Reading) Reading {
	out := make(Reading, len(in))
	if width <= 1 || len(in) == 0 {
		copy(out, in)
		return out
	}
	last := len(in) - 1
	for i := range in {
		sum := 0.0
		k := i - width/2
		for j := 0; j < width; j++ {
			l := min(max(k+j, 0), last)
			sum += in[l]
		}
		out[i] = sum / float64(width)
	}
	return out
}
