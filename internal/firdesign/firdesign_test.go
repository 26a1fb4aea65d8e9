package firdesign

import (
	"math"
	"testing"
)

func TestLowPassTapsOddensEvenCount(t *testing.T) {
	taps := LowPassTaps(10, 1000, 48000)
	if len(taps)%2 != 1 {
		t.Fatalf("len(taps) = %d, want odd", len(taps))
	}
}

func TestLowPassTapsUnityDCGain(t *testing.T) {
	taps := LowPassTaps(51, 1000, 48000)
	var sum float64
	for _, v := range taps {
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("sum(taps) = %v, want ~1", sum)
	}
}

func TestLowPassTapsSymmetric(t *testing.T) {
	taps := LowPassTaps(25, 1000, 48000)
	for i := range taps {
		j := len(taps) - 1 - i
		if math.Abs(taps[i]-taps[j]) > 1e-9 {
			t.Fatalf("taps[%d]=%v != taps[%d]=%v, want symmetric", i, taps[i], j, taps[j])
		}
	}
}

func TestFilterZeroValueIsPassThrough(t *testing.T) {
	var f Filter
	in := []float64{1, 2, 3}
	out := f.Apply(in)
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("Apply(%v)[%d] = %v, want %v", in, i, out[i], in[i])
		}
	}
}

func TestFilterNilPointerIsPassThrough(t *testing.T) {
	var f *Filter
	in := []float64{4, 5, 6}
	out := f.Apply(in)
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("Apply(%v)[%d] = %v, want %v", in, i, out[i], in[i])
		}
	}
}

func TestFilterDCPassesUnityGain(t *testing.T) {
	taps := LowPassTaps(51, 1000, 48000)
	f := New(taps)

	const n = 500
	in := make([]float64, n)
	for i := range in {
		in[i] = 1.0
	}
	out := f.Apply(in)

	// After the filter's group delay has flushed through, a constant
	// input should settle to a constant output near unity (unity DC gain).
	tail := out[n-10:]
	for _, v := range tail {
		if math.Abs(v-1) > 1e-6 {
			t.Fatalf("settled output = %v, want ~1", v)
		}
	}
}

func TestFilterHistoryContinuityAcrossBatches(t *testing.T) {
	taps := LowPassTaps(15, 1000, 48000)
	whole := New(taps)
	split := New(taps)

	in := make([]float64, 200)
	for i := range in {
		in[i] = math.Sin(float64(i) * 0.1)
	}

	wholeOut := whole.Apply(in)

	splitOut := make([]float64, 0, len(in))
	splitOut = append(splitOut, split.Apply(in[:100])...)
	splitOut = append(splitOut, split.Apply(in[100:])...)

	for i := range wholeOut {
		if math.Abs(wholeOut[i]-splitOut[i]) > 1e-9 {
			t.Fatalf("index %d: whole=%v split=%v, want equal across batch boundary", i, wholeOut[i], splitOut[i])
		}
	}
}
