package resample

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidRate indicates a non-positive or non-finite sample rate.
	ErrInvalidRate = errors.New("resample: invalid sample rate")
	// ErrInvalidRatio indicates an invalid up/down conversion ratio.
	ErrInvalidRatio = errors.New("resample: invalid ratio")
)

// Quality selects the anti-aliasing filter trade-off.
type Quality int

const (
	// QualityFast prioritizes lower CPU usage.
	QualityFast Quality = iota
	// QualityBalanced is the default quality/performance trade-off.
	QualityBalanced
	// QualityBest prioritizes stopband attenuation and passband flatness.
	QualityBest
)

type config struct {
	quality      Quality
	tapsPerPhase int
	maxDen       int
}

// Option configures a conversion.
type Option func(*config)

// WithQuality selects a predefined anti-aliasing quality mode.
func WithQuality(q Quality) Option {
	return func(cfg *config) {
		cfg.quality = q
	}
}

// WithTapsPerPhase overrides taps per polyphase branch.
func WithTapsPerPhase(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.tapsPerPhase = n
		}
	}
}

// WithMaxDenominator caps denominator size for rate-ratio approximation.
func WithMaxDenominator(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.maxDen = n
		}
	}
}

func applyOptions(opts []Option) config {
	cfg := config{quality: QualityBalanced}

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if cfg.tapsPerPhase <= 0 {
		switch cfg.quality {
		case QualityFast:
			cfg.tapsPerPhase = 16
		case QualityBest:
			cfg.tapsPerPhase = 64
		default:
			cfg.tapsPerPhase = 32
		}
	}

	if cfg.maxDen <= 0 {
		cfg.maxDen = 4096
	}

	return cfg
}

// Resample converts input from inRate to outRate in one shot. The signal is
// treated as zero-padded beyond both edges and the filter's group delay is
// compensated, so a feature at input position p lands near p*outRate/inRate
// in the output. Intended for short buffers such as impulse responses.
func Resample(input []float64, inRate, outRate float64, opts ...Option) ([]float64, error) {
	if inRate <= 0 || outRate <= 0 ||
		math.IsNaN(inRate) || math.IsNaN(outRate) ||
		math.IsInf(inRate, 0) || math.IsInf(outRate, 0) {
		return nil, fmt.Errorf("%w: %f -> %f", ErrInvalidRate, inRate, outRate)
	}

	cfg := applyOptions(opts)
	up, down := approximateRatio(outRate/inRate, cfg.maxDen)

	return resampleRational(input, up, down, cfg)
}

// ResampleRational converts input by the exact ratio up/down.
func ResampleRational(input []float64, up, down int, opts ...Option) ([]float64, error) {
	if up <= 0 || down <= 0 {
		return nil, fmt.Errorf("%w: %d/%d", ErrInvalidRatio, up, down)
	}

	return resampleRational(input, up, down, applyOptions(opts))
}

func resampleRational(input []float64, up, down int, cfg config) ([]float64, error) {
	g := gcd(up, down)
	up /= g
	down /= g

	if len(input) == 0 {
		return nil, nil
	}

	if up == 1 && down == 1 {
		out := make([]float64, len(input))
		copy(out, input)

		return out, nil
	}

	phases, err := designPolyphase(up, down, cfg)
	if err != nil {
		return nil, err
	}

	// Output sample m corresponds to input position m*down/up. The walk
	// starts tapsPerPhase/2 input samples in to cancel the FIR group delay.
	nOut := (len(input)*up + down - 1) / down
	out := make([]float64, nOut)

	phase := 0
	inputIndex := cfg.tapsPerPhase / 2

	for m := range out {
		taps := phases[phase]

		var y float64

		for k, c := range taps {
			idx := inputIndex - k
			if idx < 0 || idx >= len(input) {
				continue
			}

			y += c * input[idx]
		}

		out[m] = y

		phase += down
		inputIndex += phase / up
		phase %= up
	}

	return out, nil
}

// designPolyphase builds the polyphase decomposition of a Kaiser-windowed
// sinc lowpass with cutoff at the tighter of the two Nyquist limits.
func designPolyphase(up, down int, cfg config) ([][]float64, error) {
	nTaps := cfg.tapsPerPhase * up

	var scale, beta float64

	switch cfg.quality {
	case QualityFast:
		scale, beta = 0.88, 5.0
	case QualityBest:
		scale, beta = 0.96, 9.0
	default:
		scale, beta = 0.92, 7.5
	}

	fc := (0.5 / float64(max(up, down))) * scale
	if fc <= 0 || fc >= 0.5 {
		return nil, fmt.Errorf("%w: cutoff %.6f", ErrInvalidRatio, fc)
	}

	taps := make([]float64, nTaps)
	center := 0.5 * float64(nTaps-1)

	for n := range nTaps {
		t := float64(n) - center
		taps[n] = 2 * fc * sinc(2*fc*t) * kaiserWindow(n, nTaps, beta)
	}

	var sum float64
	for _, v := range taps {
		sum += v
	}

	if sum == 0 {
		return nil, errors.New("resample: designed zero-sum filter")
	}

	// Unity DC gain after upsampling.
	norm := float64(up) / sum
	for i := range taps {
		taps[i] *= norm
	}

	phases := make([][]float64, up)
	for p := range up {
		phase := make([]float64, 0, (nTaps-p+up-1)/up)
		for i := p; i < nTaps; i += up {
			phase = append(phase, taps[i])
		}

		phases[p] = phase
	}

	return phases, nil
}

// approximateRatio finds a rational approximation num/den of v using a
// continued-fraction expansion bounded by maxDen.
func approximateRatio(v float64, maxDen int) (num, den int) {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 1, 1
	}

	a0 := math.Floor(v)
	p0, q0 := 1.0, 0.0
	p1, q1 := a0, 1.0
	x := v

	for {
		frac := x - math.Floor(x)
		if frac == 0 {
			break
		}

		x = 1 / frac
		a := math.Floor(x)
		p2 := a*p1 + p0

		q2 := a*q1 + q0
		if q2 > float64(maxDen) {
			break
		}

		p0, q0 = p1, q1
		p1, q1 = p2, q2
	}

	num = int(math.Round(p1))

	den = int(math.Round(q1))
	if den <= 0 {
		return 1, 1
	}

	g := gcd(num, den)

	return num / g, den / g
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}

	if b < 0 {
		b = -b
	}

	for b != 0 {
		a, b = b, a%b
	}

	if a == 0 {
		return 1
	}

	return a
}

func sinc(x float64) float64 {
	if math.Abs(x) < 1e-12 {
		return 1
	}

	pix := math.Pi * x

	return math.Sin(pix) / pix
}

func kaiserWindow(i, n int, beta float64) float64 {
	if n <= 1 || beta == 0 {
		return 1
	}

	t := 2*float64(i)/float64(n-1) - 1
	a := math.Sqrt(math.Max(0, 1-t*t))

	return i0(beta*a) / i0(beta)
}

func i0(x float64) float64 {
	// Power series approximation.
	sum := 1.0
	term := 1.0

	x2 := (x * x) / 4
	for k := 1; k < 64; k++ {
		term *= x2 / float64(k*k)

		sum += term
		if term < 1e-16*sum {
			break
		}
	}

	return sum
}
