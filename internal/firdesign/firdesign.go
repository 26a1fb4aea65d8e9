// Package firdesign generates windowed-sinc low-pass FIR coefficients and
// defines the Filter collaborator the symbol processor can optionally sit
// behind. It answers a spec open question about whether front-end
// filtering is mandatory: it isn't, so the zero value of Filter is a
// pass-through, and a caller opts into real filtering by constructing one
// with taps.
package firdesign

import (
	"math"

	"gonum.org/v1/gonum/dsp/window"
)

// LowPassTaps designs a windowed-sinc low-pass FIR filter with the given
// number of taps, cutoff frequency, and sample rate (all in Hz except
// numTaps). numTaps should be odd for a symmetric, linear-phase filter;
// an even value is incremented by one. The coefficients are normalized to
// unity gain at DC.
func LowPassTaps(numTaps int, cutoffHz, sampleRateHz float64) []float64 {
	if numTaps%2 == 0 {
		numTaps++
	}
	if numTaps < 1 {
		numTaps = 1
	}

	taps := make([]float64, numTaps)
	fc := cutoffHz / sampleRateHz
	mid := float64(numTaps-1) / 2

	for i := range taps {
		n := float64(i) - mid
		if n == 0 {
			taps[i] = 2 * fc
		} else {
			taps[i] = math.Sin(2*math.Pi*fc*n) / (math.Pi * n)
		}
	}

	taps = window.Hamming(taps)

	var sum float64
	for _, t := range taps {
		sum += t
	}
	if sum != 0 {
		for i := range taps {
			taps[i] /= sum
		}
	}

	return taps
}

// Filter applies a FIR filter to a stream of soft-symbol phase samples. The
// zero value has nil taps and is a pass-through: Apply returns its input
// unchanged, so a caller that never opts into filtering pays no cost and
// the symbol processor itself never needs to know whether one is present.
type Filter struct {
	taps    []float64
	history []float64
}

// New returns a Filter that convolves samples against taps. A nil or empty
// taps slice produces a pass-through filter, same as the zero value.
func New(taps []float64) *Filter {
	f := &Filter{taps: taps}
	if len(taps) > 0 {
		f.history = make([]float64, len(taps)-1)
	}
	return f
}

// Apply filters samples into a newly allocated slice, leaving samples
// itself untouched, and maintains history across calls so a caller can
// stream batches without discontinuities at batch boundaries. With no taps
// configured it returns samples unchanged.
func (f *Filter) Apply(samples []float64) []float64 {
	if f == nil || len(f.taps) == 0 {
		return samples
	}

	buf := make([]float64, len(f.history)+len(samples))
	copy(buf, f.history)
	copy(buf[len(f.history):], samples)

	out := make([]float64, len(samples))
	for i := range samples {
		var sum float64
		for j, tap := range f.taps {
			sum += tap * buf[i+len(f.taps)-1-j]
		}
		out[i] = sum
	}

	if len(f.history) > 0 {
		copy(f.history, buf[len(buf)-len(f.history):])
	}

	return out
}
