package monitor

import "math"

// SilenceFloor is reported for batches with no measurable energy. It compares
// below every finite threshold.
var SilenceFloor = math.Inf(-1)

// Estimate returns the batch loudness in dB relative to full scale:
// 20·log10 of the mean absolute amplitude.
func Estimate(samples []float32) float64 {
	if len(samples) == 0 {
		return SilenceFloor
	}
	var sum float64
	for _, s := range samples {
		sum += math.Abs(float64(s))
	}
	mean := sum / float64(len(samples))
	if mean == 0 || math.IsNaN(mean) || math.IsInf(mean, 0) {
		return SilenceFloor
	}
	return 20 * math.Log10(mean)
}
