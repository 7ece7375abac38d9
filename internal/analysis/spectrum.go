package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// PowerSpectrum returns the magnitudes of the non-negative frequency bins of
// samples with their mean removed.
func PowerSpectrum(samples []float64) []float64 {
	if len(samples) < 2 {
		return nil
	}
	mean := 0.0
	for _, v := range samples {
		mean += v
	}
	mean /= float64(len(samples))

	centered := make([]float64, len(samples))
	for i, v := range samples {
		centered[i] = v - mean
	}

	bins := fft.FFTReal(centered)
	ps := make([]float64, len(bins)/2+1)
	for i := range ps {
		ps[i] = cmplx.Abs(bins[i])
	}
	return ps
}

// DominantFrequency finds the strongest non-zero frequency, in Hz, of
// samples taken every sampleDt seconds. A constant channel reports zero.
func DominantFrequency(samples []float64, sampleDt float64) (freq, magnitude float64) {
	ps := PowerSpectrum(samples)
	best := 0
	for i := 1; i < len(ps); i++ {
		if ps[i] > ps[best] {
			best = i
		}
	}
	if best == 0 || sampleDt <= 0 {
		return 0, 0
	}
	return float64(best) / (float64(len(samples)) * sampleDt), ps[best]
}
