package analysis

import (
	"errors"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

var ErrTooShort = errors.New("analysis: need at least two samples")

// Spectrum is a one-sided magnitude spectrum. Freq[k] is in Hz.
type Spectrum struct {
	Freq      []float64
	Magnitude []float64
}

// PowerSpectrum transforms series sampled every dt seconds. The mean is
// removed first so bin 0 does not swamp the plot.
func PowerSpectrum(series []float64, dt float64) (*Spectrum, error) {
	n := len(series)
	if n < 2 {
		return nil, ErrTooShort
	}
	if dt <= 0 {
		return nil, errors.New("analysis: sample interval must be positive")
	}

	var mean float64
	for _, v := range series {
		mean += v
	}
	mean /= float64(n)

	centered := make([]float64, n)
	for i, v := range series {
		centered[i] = v - mean
	}

	coeffs := fft.FFTReal(centered)
	bins := n/2 + 1
	s := &Spectrum{
		Freq:      make([]float64, bins),
		Magnitude: make([]float64, bins),
	}
	for k := range bins {
		s.Freq[k] = float64(k) / (float64(n) * dt)
		s.Magnitude[k] = cmplx.Abs(coeffs[k]) / float64(n)
	}
	return s, nil
}

// Dominant returns the frequency of the strongest non-DC bin.
func (s *Spectrum) Dominant() float64 {
	best := 0
	for k := 1; k < len(s.Magnitude); k++ {
		if best == 0 || s.Magnitude[k] > s.Magnitude[best] {
			best = k
		}
	}
	return s.Freq[best]
}

// SampleInterval returns the mean spacing of times.
func SampleInterval(times []float64) float64 {
	if len(times) < 2 {
		return 0
	}
	return (times[len(times)-1] - times[0]) / float64(len(times)-1)
}
