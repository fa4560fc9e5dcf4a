package hrtf

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors shared by the filter sources in this package.
var (
	// ErrInvalidPosition indicates a zero-length or non-finite lookup position.
	ErrInvalidPosition = errors.New("hrtf: invalid position")
	// ErrFilterSize indicates a destination or measurement length mismatch.
	ErrFilterSize = errors.New("hrtf: filter size mismatch")
)

const (
	defaultModelHeadRadius   = 0.0875
	defaultModelSpeedOfSound = 343.0
	minModelHeadRadius       = 0.04
	maxModelHeadRadius       = 0.175
	minModelSpeedOfSound     = 300.0
	maxModelSpeedOfSound     = 370.0

	// Half width of the windowed sinc used for fractional-delay placement.
	sincHalfWidth = 8

	maxEarAngleDeg = 45.0

	// Head-shadow shaping for the far ear.
	shadowMinCutoffHz = 800.0
	shadowMaxCutoffHz = 16000.0
	shadowFloorGain   = 0.3
)

// SphericalModelOption mutates model construction parameters.
type SphericalModelOption func(*sphericalModelConfig) error

type sphericalModelConfig struct {
	headRadius   float64
	speedOfSound float64
	earAngleDeg  float64
}

func defaultSphericalModelConfig() sphericalModelConfig {
	return sphericalModelConfig{
		headRadius:   defaultModelHeadRadius,
		speedOfSound: defaultModelSpeedOfSound,
	}
}

// WithHeadRadius sets the rigid-sphere head radius in meters.
func WithHeadRadius(radius float64) SphericalModelOption {
	return func(cfg *sphericalModelConfig) error {
		if radius < minModelHeadRadius || radius > maxModelHeadRadius ||
			math.IsNaN(radius) || math.IsInf(radius, 0) {
			return fmt.Errorf("spherical model head radius must be in [%g, %g]: %f",
				minModelHeadRadius, maxModelHeadRadius, radius)
		}

		cfg.headRadius = radius

		return nil
	}
}

// WithSpeedOfSound sets the propagation speed model (m/s).
func WithSpeedOfSound(speed float64) SphericalModelOption {
	return func(cfg *sphericalModelConfig) error {
		if speed < minModelSpeedOfSound || speed > maxModelSpeedOfSound ||
			math.IsNaN(speed) || math.IsInf(speed, 0) {
			return fmt.Errorf("spherical model speed of sound must be in [%g, %g]: %f",
				minModelSpeedOfSound, maxModelSpeedOfSound, speed)
		}

		cfg.speedOfSound = speed

		return nil
	}
}

// WithEarAngle rotates both ears toward the rear of the head by the given
// angle in degrees. Zero keeps the ears on the lateral axis; measured heads
// sit closer to 10.
func WithEarAngle(deg float64) SphericalModelOption {
	return func(cfg *sphericalModelConfig) error {
		if deg < -maxEarAngleDeg || deg > maxEarAngleDeg || math.IsNaN(deg) {
			return fmt.Errorf("spherical model ear angle must be in [%g, %g]: %f",
				-maxEarAngleDeg, maxEarAngleDeg, deg)
		}

		cfg.earAngleDeg = deg

		return nil
	}
}

// SphericalModel synthesizes head-related impulse responses from a
// rigid-sphere head approximation: Woodworth interaural delay, an
// angle-dependent one-pole head-shadow lowpass, and 1/distance gain.
// It needs no measured data and produces the same filter for equal inputs.
//
// The ears sit in the horizontal plane on the +y (left) and -y (right)
// axis, optionally rotated toward the rear with WithEarAngle. Coordinates
// follow the listener frame used throughout this module: +x forward, +y
// left, +z up.
type SphericalModel struct {
	sampleRate   float64
	filterLen    int
	headRadius   float64
	speedOfSound float64

	// Unit axis of the left ear; the right ear mirrors the y component.
	earAxisX float64
	earAxisY float64
}

// NewSphericalModel creates a model for the given sample rate and per-ear
// filter length. The length must leave room for the worst-case interaural
// delay plus the sinc placement window at that sample rate.
func NewSphericalModel(sampleRate float64, filterLen int, opts ...SphericalModelOption) (*SphericalModel, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("spherical model sample rate must be > 0 and finite: %f", sampleRate)
	}

	cfg := defaultSphericalModelConfig()

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		err := opt(&cfg)
		if err != nil {
			return nil, err
		}
	}

	minLen := minFilterLen(sampleRate, cfg.headRadius, cfg.speedOfSound)
	if filterLen < minLen {
		return nil, fmt.Errorf("%w: length %d is below the model minimum %d at %g Hz",
			ErrFilterSize, filterLen, minLen, sampleRate)
	}

	earRad := cfg.earAngleDeg * math.Pi / 180

	return &SphericalModel{
		sampleRate:   sampleRate,
		filterLen:    filterLen,
		headRadius:   cfg.headRadius,
		speedOfSound: cfg.speedOfSound,
		earAxisX:     -math.Sin(earRad),
		earAxisY:     math.Cos(earRad),
	}, nil
}

// minFilterLen is the shortest per-ear response that can hold the largest
// Woodworth delay plus the full sinc window.
func minFilterLen(sampleRate, radius, speed float64) int {
	maxDelay := radius / speed * (1 + math.Pi/2) * sampleRate

	return int(math.Ceil(maxDelay)) + 2*sincHalfWidth + 1
}

// SampleRate returns the synthesis sample rate.
func (m *SphericalModel) SampleRate() float64 { return m.sampleRate }

// FilterLength returns the per-ear coefficient count produced by Lookup.
func (m *SphericalModel) FilterLength() int { return m.filterLen }

// HeadRadius returns the configured head radius in meters.
func (m *SphericalModel) HeadRadius() float64 { return m.headRadius }

// Lookup synthesizes the response pair for the source position (x, y, z) in
// meters and writes it into dst. dst must hold FilterLength() samples per
// ear. The call does not allocate.
func (m *SphericalModel) Lookup(x, y, z float64, dst *Filter) error {
	if dst == nil || len(dst.Left) != m.filterLen || len(dst.Right) != m.filterLen {
		return fmt.Errorf("%w: destination must hold %d samples per ear", ErrFilterSize, m.filterLen)
	}

	d := math.Sqrt(x*x + y*y + z*z)
	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return fmt.Errorf("%w: (%g, %g, %g)", ErrInvalidPosition, x, y, z)
	}

	gain := 1 / d

	// Angle between the source ray and each ear axis.
	thetaL := math.Acos(clampUnit((x*m.earAxisX + y*m.earAxisY) / d))
	thetaR := math.Acos(clampUnit((x*m.earAxisX - y*m.earAxisY) / d))

	m.synthesizeEar(dst.Left, thetaL, gain)
	m.synthesizeEar(dst.Right, thetaR, gain)

	return nil
}

// synthesizeEar renders one ear's response for incidence angle theta in
// [0, pi] measured from that ear's axis.
func (m *SphericalModel) synthesizeEar(out []float64, theta, gain float64) {
	clear(out)

	// Woodworth far-field delay: direct path up to 90 degrees, then
	// diffraction around the sphere.
	rc := m.headRadius / m.speedOfSound

	var delaySec float64
	if theta <= math.Pi/2 {
		delaySec = rc * (1 - math.Cos(theta))
	} else {
		delaySec = rc * (1 + theta - math.Pi/2)
	}

	// Place the impulse with a Hann-windowed sinc at the fractional delay.
	pos := delaySec*m.sampleRate + sincHalfWidth

	first := int(math.Ceil(pos - sincHalfWidth))
	last := int(math.Floor(pos + sincHalfWidth))

	if first < 0 {
		first = 0
	}

	if last > len(out)-1 {
		last = len(out) - 1
	}

	for i := first; i <= last; i++ {
		t := float64(i) - pos
		w := 0.5 * (1 + math.Cos(math.Pi*t/sincHalfWidth))
		out[i] = gain * sinc(t) * w
	}

	// Head shadow: the far ear gets darker and quieter. shadow is 1 on the
	// ear axis and 0 on the opposite side.
	shadow := 0.5 * (1 + math.Cos(theta))
	earGain := shadowFloorGain + (1-shadowFloorGain)*shadow

	cutoff := shadowMinCutoffHz + (shadowMaxCutoffHz-shadowMinCutoffHz)*shadow
	if limit := 0.45 * m.sampleRate; cutoff > limit {
		cutoff = limit
	}

	a := 1 - math.Exp(-2*math.Pi*cutoff/m.sampleRate)

	state := 0.0
	for i := range out {
		state += a * (out[i] - state)
		out[i] = earGain * state
	}
}

func sinc(x float64) float64 {
	if math.Abs(x) < 1e-12 {
		return 1
	}

	px := math.Pi * x

	return math.Sin(px) / px
}

func clampUnit(v float64) float64 {
	if v < -1 {
		return -1
	}

	if v > 1 {
		return 1
	}

	return v
}
