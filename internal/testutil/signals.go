package testutil

import (
	"math"
	"math/rand/v2"
)

// Sine returns n samples of a sine wave at freqHz, starting at phase zero.
func Sine(freqHz, amplitude float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	step := 2 * math.Pi * freqHz / float64(sampleRate)

	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}

	return out
}

// Noise returns n samples of seeded uniform noise in [-amplitude, amplitude].
// The same seed always yields the same sequence.
func Noise(seed uint64, amplitude float64, n int) []float64 {
	rng := rand.New(rand.NewPCG(seed, 0))
	out := make([]float64, n)

	for i := range out {
		out[i] = amplitude * (2*rng.Float64() - 1)
	}

	return out
}

// Impulse returns n zeros with a single spike of the given amplitude at pos.
// An out-of-range pos yields silence.
func Impulse(n, pos int, amplitude float64) []float64 {
	out := make([]float64, n)
	if pos >= 0 && pos < n {
		out[pos] = amplitude
	}

	return out
}

// DC returns n samples of a constant value.
func DC(value float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}

	return out
}
