package detector

import "math"

// OtsuThreshold returns the level t that maximizes the between-class
// variance of {v <= t} and {v > t}. On ties the lowest level wins; a
// constant input yields 0.
func OtsuThreshold(values []uint8) uint8 {
	if len(values) == 0 {
		return 0
	}

	const bins = 256
	var histogram [bins]int
	for _, v := range values {
		histogram[v]++
	}
	totalPixels := len(values)

	var total float64
	for i := range bins {
		total += float64(i) * float64(histogram[i])
	}

	var maxVariance float64
	bestThreshold := 0
	var sumB float64
	wB := 0

	for t := range bins {
		wB += histogram[t]
		if wB == 0 {
			continue
		}
		wF := totalPixels - wB
		if wF == 0 {
			break
		}

		sumB += float64(t) * float64(histogram[t])
		meanB := sumB / float64(wB)
		meanF := (total - sumB) / float64(wF)

		variance := float64(wB) * float64(wF) * (meanB - meanF) * (meanB - meanF)
		if variance > maxVariance {
			maxVariance = variance
			bestThreshold = t
		}
	}

	return uint8(bestThreshold)
}

// normalizeToByte min-max rescales values to 0..255 with rounding. A flat
// input maps to all zeros.
func normalizeToByte(values []float32) []uint8 {
	out := make([]uint8, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if hi <= lo {
		return out
	}
	scale := 255 / float64(hi-lo)
	for i, v := range values {
		out[i] = uint8(math.Round(float64(v-lo) * scale))
	}
	return out
}

// binarizeAbove sets 255 where v > t.
func binarizeAbove(values []uint8, w, h int, t uint8) Mask {
	m := NewMask(w, h)
	for i, v := range values {
		if v > t {
			m.Pix[i] = 255
		}
	}
	return m
}
