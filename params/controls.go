package params

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-binaural/binaural"
)

const defaultSmoothingMs = 50.0

// atomicFloat stores a float64 through its bit pattern.
type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) Store(v float64) { f.bits.Store(math.Float64bits(v)) }
func (f *atomicFloat) Load() float64   { return math.Float64frombits(f.bits.Load()) }

type config struct {
	smoothingMs float64
	initial     binaural.Position
}

// Option configures Controls.
type Option func(*config) error

// WithSmoothingTime sets the smoothing time in milliseconds. Zero disables
// smoothing; the default is 50 ms.
func WithSmoothingTime(ms float64) Option {
	return func(cfg *config) error {
		if ms < 0 || math.IsNaN(ms) || math.IsInf(ms, 0) {
			return fmt.Errorf("params smoothing time must be >= 0 and finite: %f", ms)
		}

		cfg.smoothingMs = ms

		return nil
	}
}

// WithInitialPosition sets the position the controls start from, clamped to
// the valid ranges. The default is straight ahead at one meter.
func WithInitialPosition(p binaural.Position) Option {
	return func(cfg *config) error {
		cfg.initial = p.Clamp()
		return nil
	}
}

// Controls holds the azimuth, elevation and distance of a binaural source.
//
// Targets may be set from any goroutine; the rendering goroutine calls
// Snapshot once per block to advance the smoothed values and obtain the
// position for that block. Out-of-range targets are clamped on set, so the
// smoothed values never leave their ranges either.
type Controls struct {
	sampleRate float64

	azTarget   atomicFloat
	elTarget   atomicFloat
	distTarget atomicFloat

	azimuth   Smoother
	elevation Smoother
	distance  Smoother
}

// NewControls creates controls for the given sample rate.
func NewControls(sampleRate float64, opts ...Option) (*Controls, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("params sample rate must be > 0 and finite: %f", sampleRate)
	}

	cfg := config{
		smoothingMs: defaultSmoothingMs,
		initial:     binaural.DefaultPosition,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		err := opt(&cfg)
		if err != nil {
			return nil, err
		}
	}

	c := &Controls{
		sampleRate: sampleRate,
		azimuth:    newSmoother(sampleRate, cfg.smoothingMs),
		elevation:  newSmoother(sampleRate, cfg.smoothingMs),
		distance:   newSmoother(sampleRate, cfg.smoothingMs),
	}

	c.azTarget.Store(cfg.initial.AzimuthDeg)
	c.elTarget.Store(cfg.initial.ElevationDeg)
	c.distTarget.Store(cfg.initial.Distance)

	c.azimuth.Snap(cfg.initial.AzimuthDeg)
	c.elevation.Snap(cfg.initial.ElevationDeg)
	c.distance.Snap(cfg.initial.Distance)

	return c, nil
}

// SetAzimuth sets the azimuth target in degrees, clamped to [0, 359].
// NaN is ignored.
func (c *Controls) SetAzimuth(deg float64) {
	if math.IsNaN(deg) {
		return
	}

	c.azTarget.Store(clamp(deg, binaural.MinAzimuthDeg, binaural.MaxAzimuthDeg))
}

// SetElevation sets the elevation target in degrees, clamped to [0, 180].
// NaN is ignored.
func (c *Controls) SetElevation(deg float64) {
	if math.IsNaN(deg) {
		return
	}

	c.elTarget.Store(clamp(deg, binaural.MinElevationDeg, binaural.MaxElevationDeg))
}

// SetDistance sets the distance target in meters, clamped to [0.1, 1].
// NaN is ignored.
func (c *Controls) SetDistance(m float64) {
	if math.IsNaN(m) {
		return
	}

	c.distTarget.Store(clamp(m, binaural.MinDistance, binaural.MaxDistance))
}

// SetPosition sets all three targets at once, clamped to their ranges.
func (c *Controls) SetPosition(p binaural.Position) {
	c.SetAzimuth(p.AzimuthDeg)
	c.SetElevation(p.ElevationDeg)
	c.SetDistance(p.Distance)
}

// Snapshot advances the smoothed values by blockSize samples and returns
// the position to use for that block. Must be called from the rendering
// goroutine only.
func (c *Controls) Snapshot(blockSize int) binaural.Position {
	return binaural.Position{
		AzimuthDeg:   c.azimuth.AdvanceBlock(c.azTarget.Load(), blockSize),
		ElevationDeg: c.elevation.AdvanceBlock(c.elTarget.Load(), blockSize),
		Distance:     c.distance.AdvanceBlock(c.distTarget.Load(), blockSize),
	}
}

// Position returns the current smoothed position without advancing.
func (c *Controls) Position() binaural.Position {
	return binaural.Position{
		AzimuthDeg:   c.azimuth.Current(),
		ElevationDeg: c.elevation.Current(),
		Distance:     c.distance.Current(),
	}
}

// Target returns the position the controls are heading toward.
func (c *Controls) Target() binaural.Position {
	return binaural.Position{
		AzimuthDeg:   c.azTarget.Load(),
		ElevationDeg: c.elTarget.Load(),
		Distance:     c.distTarget.Load(),
	}
}

// Reset snaps the smoothed values to their targets.
func (c *Controls) Reset() {
	c.azimuth.Snap(c.azTarget.Load())
	c.elevation.Snap(c.elTarget.Load())
	c.distance.Snap(c.distTarget.Load())
}

// SampleRate returns the rate the controls were created for.
func (c *Controls) SampleRate() float64 { return c.sampleRate }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
