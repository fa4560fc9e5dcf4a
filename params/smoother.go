package params

import (
	"fmt"
	"math"
)

// decay60dB is -ln(0.001): an exponential approach covers all but 0.1% of
// the remaining distance within the configured smoothing time.
const decay60dB = 6.908

// snapEpsilon ends the exponential approach once the remaining distance is
// inaudible.
const snapEpsilon = 1e-4

// Smoother advances a control value toward a moving target along a one-pole
// exponential curve. The zero value is usable and snaps instantly; use
// NewSmoother for a time-based approach.
type Smoother struct {
	coeff   float64
	current float64
}

// NewSmoother creates a smoother that covers 60 dB of the distance to the
// target in timeMs milliseconds at the given sample rate. A timeMs of zero
// disables smoothing.
func NewSmoother(sampleRate, timeMs float64) (*Smoother, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("params sample rate must be > 0 and finite: %f", sampleRate)
	}

	if timeMs < 0 || math.IsNaN(timeMs) || math.IsInf(timeMs, 0) {
		return nil, fmt.Errorf("params smoothing time must be >= 0 and finite: %f", timeMs)
	}

	s := newSmoother(sampleRate, timeMs)

	return &s, nil
}

func newSmoother(sampleRate, timeMs float64) Smoother {
	var coeff float64
	if timeMs > 0 {
		coeff = math.Exp(-decay60dB / (sampleRate * timeMs / 1000))
	}

	return Smoother{coeff: coeff}
}

// Current returns the present value without advancing.
func (s *Smoother) Current() float64 { return s.current }

// Snap jumps to v immediately.
func (s *Smoother) Snap(v float64) { s.current = v }

// Next advances by one sample toward target and returns the new value.
func (s *Smoother) Next(target float64) float64 {
	if s.current == target {
		return s.current
	}

	s.current = target + (s.current-target)*s.coeff

	if math.Abs(s.current-target) < snapEpsilon {
		s.current = target
	}

	return s.current
}

// AdvanceBlock advances by n samples toward target in one step and returns
// the new value. Equivalent to calling Next n times.
func (s *Smoother) AdvanceBlock(target float64, n int) float64 {
	if n <= 0 || s.current == target {
		return s.current
	}

	s.current = target + (s.current-target)*math.Pow(s.coeff, float64(n))

	if math.Abs(s.current-target) < snapEpsilon {
		s.current = target
	}

	return s.current
}
