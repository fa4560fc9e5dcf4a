package render

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-binaural/hrtf"
)

var (
	// ErrInvalidFilterLen indicates a non-positive filter length.
	ErrInvalidFilterLen = errors.New("render: invalid filter length")
	// ErrInvalidPartition indicates a partition length that is not a power of two.
	ErrInvalidPartition = errors.New("render: partition length must be a positive power of two")
	// ErrFilterMismatch indicates a filter whose length differs from the renderer's.
	ErrFilterMismatch = errors.New("render: filter length mismatch")
	// ErrLengthMismatch indicates input and output buffers of different sizes.
	ErrLengthMismatch = errors.New("render: buffer length mismatch")
)

const (
	defaultPartitionLen = 32
	defaultSampleRate   = 48000.0
)

type config struct {
	sampleRate   float64
	partitionLen int
	crossfade    bool
}

// Option configures a Renderer.
type Option func(*config) error

// WithSampleRate sets the sample rate the renderer is prepared for. The
// rate does not enter the convolution itself; it is carried so callers can
// verify a filter set matches the stream it will process.
func WithSampleRate(rate float64) Option {
	return func(cfg *config) error {
		if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
			return fmt.Errorf("render sample rate must be > 0 and finite: %f", rate)
		}

		cfg.sampleRate = rate

		return nil
	}
}

// WithPartitionLen sets the partition length. Smaller partitions lower the
// latency and raise the per-sample cost. Must be a power of two.
func WithPartitionLen(n int) Option {
	return func(cfg *config) error {
		if n <= 0 || n&(n-1) != 0 {
			return fmt.Errorf("%w: got %d", ErrInvalidPartition, n)
		}

		cfg.partitionLen = n

		return nil
	}
}

// WithCrossfade enables or disables the one-partition crossfade applied
// when a filter replaces a previously installed one. Enabled by default.
// With crossfading off a new filter takes effect on the next partition
// boundary without blending.
func WithCrossfade(enabled bool) Option {
	return func(cfg *config) error {
		cfg.crossfade = enabled
		return nil
	}
}

// spectrumSet holds the per-partition filter spectra for both ears.
type spectrumSet struct {
	left  [][]complex128
	right [][]complex128
}

// Renderer convolves a mono stream with a stereo impulse response pair using
// uniformly partitioned overlap-save convolution. The filter is split into
// partitions of equal length; input spectra are kept in a frequency-domain
// delay line so each partition boundary costs one forward and two inverse
// FFTs regardless of the filter length.
//
// Filters can be replaced mid-stream: SetFilter writes into a standby
// spectrum set, leaving the active one untouched, and the swap happens on
// the next partition boundary. Processing introduces one partition of
// latency.
//
// The per-block path performs no allocations. A Renderer is not safe for
// concurrent use; SetFilter and ProcessBlock must come from the same
// goroutine.
type Renderer struct {
	// Configuration
	filterLen  int
	partLen    int
	fftSize    int // 2 * partLen
	numParts   int
	sampleRate float64
	crossfade  bool

	// FFT plan
	plan *algofft.Plan[complex128]

	// Double-buffered filter spectra. active indexes the rendering set,
	// pending marks an armed standby set, hasFilter reports whether any
	// filter has been installed yet.
	spectra   [2]*spectrumSet
	active    int
	pending   bool
	hasFilter bool

	// Frequency-domain delay line of input spectra, newest at fdlPos.
	fdl    [][]complex128
	fdlPos int

	// Partition assembly state (time domain)
	inBlock  []float64
	prevTail []float64
	outL     []float64
	outR     []float64
	blockPos int

	// Reusable FFT buffers
	fftIn   []complex128
	acc     []complex128
	ifftOut []complex128

	// Step outputs and crossfade scratch
	stepL    []float64
	stepR    []float64
	xfadeL   []float64
	xfadeR   []float64
	blendTmp []float64
	rampUp   []float64
	rampDown []float64
}

// New creates a renderer for stereo filters of filterLength samples per ear.
func New(filterLength int, opts ...Option) (*Renderer, error) {
	if filterLength <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidFilterLen, filterLength)
	}

	cfg := config{
		sampleRate:   defaultSampleRate,
		partitionLen: defaultPartitionLen,
		crossfade:    true,
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

	partLen := cfg.partitionLen
	fftSize := 2 * partLen
	numParts := (filterLength + partLen - 1) / partLen

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("render: create FFT plan: %w", err)
	}

	r := &Renderer{
		filterLen:  filterLength,
		partLen:    partLen,
		fftSize:    fftSize,
		numParts:   numParts,
		sampleRate: cfg.sampleRate,
		crossfade:  cfg.crossfade,
		plan:       plan,
		fdl:        make([][]complex128, numParts),
		inBlock:    make([]float64, partLen),
		prevTail:   make([]float64, partLen),
		outL:       make([]float64, partLen),
		outR:       make([]float64, partLen),
		fftIn:      make([]complex128, fftSize),
		acc:        make([]complex128, fftSize),
		ifftOut:    make([]complex128, fftSize),
		stepL:      make([]float64, partLen),
		stepR:      make([]float64, partLen),
		xfadeL:     make([]float64, partLen),
		xfadeR:     make([]float64, partLen),
		blendTmp:   make([]float64, partLen),
		rampUp:     make([]float64, partLen),
		rampDown:   make([]float64, partLen),
	}

	for s := range r.spectra {
		set := &spectrumSet{
			left:  make([][]complex128, numParts),
			right: make([][]complex128, numParts),
		}

		for k := range numParts {
			set.left[k] = make([]complex128, fftSize)
			set.right[k] = make([]complex128, fftSize)
		}

		r.spectra[s] = set
	}

	for i := range r.fdl {
		r.fdl[i] = make([]complex128, fftSize)
	}

	// Ramps sum to one everywhere and reach the new filter exactly at the
	// end of the blend step.
	for i := range partLen {
		t := float64(i+1) / float64(partLen)
		r.rampUp[i] = t
		r.rampDown[i] = 1 - t
	}

	return r, nil
}

// SetFilter installs a stereo filter. The spectra are computed into the
// standby set, so the filter passed in may be reused or overwritten as soon
// as the call returns. The first installed filter takes effect immediately;
// later ones swap in on the next partition boundary, blended over one
// partition when crossfading is enabled.
func (r *Renderer) SetFilter(f *hrtf.Filter) error {
	if f == nil {
		return fmt.Errorf("%w: nil filter", ErrFilterMismatch)
	}

	if len(f.Left) != r.filterLen || len(f.Right) != r.filterLen {
		return fmt.Errorf("%w: got left %d right %d, want %d",
			ErrFilterMismatch, len(f.Left), len(f.Right), r.filterLen)
	}

	standby := 1 - r.active
	if err := r.loadSpectra(r.spectra[standby], f); err != nil {
		return err
	}

	if !r.hasFilter || !r.crossfade {
		r.active = standby
		r.pending = false
		r.hasFilter = true

		return nil
	}

	r.pending = true

	return nil
}

func (r *Renderer) loadSpectra(set *spectrumSet, f *hrtf.Filter) error {
	for k := range r.numParts {
		start := k * r.partLen

		if err := r.loadPartition(set.left[k], f.Left, start); err != nil {
			return err
		}

		if err := r.loadPartition(set.right[k], f.Right, start); err != nil {
			return err
		}
	}

	return nil
}

// loadPartition transforms one filter chunk. The chunk occupies the first
// half of the FFT buffer; the second half stays zero so the product with an
// input spectrum yields a full linear convolution segment.
func (r *Renderer) loadPartition(dst []complex128, ir []float64, start int) error {
	clear(r.fftIn)

	n := min(r.partLen, len(ir)-start)
	for i := range n {
		r.fftIn[i] = complex(ir[start+i], 0)
	}

	err := r.plan.Forward(dst, r.fftIn)
	if err != nil {
		return fmt.Errorf("render: filter FFT failed: %w", err)
	}

	return nil
}

// ProcessBlock convolves mono into left and right. All three slices must
// have the same length; any length is accepted, including lengths that do
// not divide the partition size. Output trails input by one partition.
// Before the first SetFilter the output is silence.
func (r *Renderer) ProcessBlock(mono, left, right []float64) error {
	if len(left) != len(mono) || len(right) != len(mono) {
		return fmt.Errorf("%w: mono %d, left %d, right %d",
			ErrLengthMismatch, len(mono), len(left), len(right))
	}

	pos := 0
	for pos < len(mono) {
		chunk := min(r.partLen-r.blockPos, len(mono)-pos)

		copy(r.inBlock[r.blockPos:r.blockPos+chunk], mono[pos:pos+chunk])
		copy(left[pos:pos+chunk], r.outL[r.blockPos:r.blockPos+chunk])
		copy(right[pos:pos+chunk], r.outR[r.blockPos:r.blockPos+chunk])

		r.blockPos += chunk
		pos += chunk

		if r.blockPos == r.partLen {
			if err := r.step(); err != nil {
				return err
			}

			r.blockPos = 0
		}
	}

	return nil
}

// step advances the convolution by one partition.
func (r *Renderer) step() error {
	// Overlap-save window: previous partition followed by the current one.
	packReal(r.fftIn, r.prevTail, r.inBlock)

	err := r.plan.Forward(r.fdl[r.fdlPos], r.fftIn)
	if err != nil {
		return fmt.Errorf("render: forward FFT failed: %w", err)
	}

	if err := r.renderEars(r.spectra[r.active], r.stepL, r.stepR); err != nil {
		return err
	}

	if r.pending {
		standby := 1 - r.active
		if err := r.renderEars(r.spectra[standby], r.xfadeL, r.xfadeR); err != nil {
			return err
		}

		r.blend(r.stepL, r.xfadeL)
		r.blend(r.stepR, r.xfadeR)

		r.active = standby
		r.pending = false
	}

	copy(r.outL, r.stepL)
	copy(r.outR, r.stepR)
	copy(r.prevTail, r.inBlock)

	// The next write lands on the oldest delay-line slot.
	r.fdlPos = (r.fdlPos + 1) % r.numParts

	return nil
}

func (r *Renderer) renderEars(set *spectrumSet, left, right []float64) error {
	if err := r.renderEar(set.left, left); err != nil {
		return err
	}

	return r.renderEar(set.right, right)
}

// renderEar accumulates partition products over the delay line and returns
// the valid half of the inverse transform.
func (r *Renderer) renderEar(parts [][]complex128, out []float64) error {
	clear(r.acc)

	for k := range r.numParts {
		x := r.fdl[(r.fdlPos-k+r.numParts)%r.numParts]
		h := parts[k]

		for i := range r.acc {
			r.acc[i] += h[i] * x[i]
		}
	}

	err := r.plan.Inverse(r.ifftOut, r.acc)
	if err != nil {
		return fmt.Errorf("render: inverse FFT failed: %w", err)
	}

	// The first half carries circular wrap-around and is discarded.
	unpackReal(out, r.ifftOut[r.partLen:])

	return nil
}

// blend mixes the standby-filter output into base along the crossfade ramps.
func (r *Renderer) blend(base, incoming []float64) {
	vecmath.MulBlockInPlace(base, r.rampDown)
	vecmath.MulBlock(r.blendTmp, incoming, r.rampUp)
	vecmath.AddBlockInPlace(base, r.blendTmp)
}

// Reset clears the signal history while keeping the installed filter.
func (r *Renderer) Reset() {
	for _, x := range r.fdl {
		clear(x)
	}

	r.fdlPos = 0
	r.blockPos = 0

	clear(r.inBlock)
	clear(r.prevTail)
	clear(r.outL)
	clear(r.outR)
	clear(r.stepL)
	clear(r.stepR)
}

// Latency returns the processing delay in samples, equal to the partition
// length.
func (r *Renderer) Latency() int { return r.partLen }

// FilterLength returns the per-ear filter length the renderer accepts.
func (r *Renderer) FilterLength() int { return r.filterLen }

// PartitionLen returns the partition length.
func (r *Renderer) PartitionLen() int { return r.partLen }

// SampleRate returns the rate the renderer was configured for.
func (r *Renderer) SampleRate() float64 { return r.sampleRate }

func packReal(dst []complex128, head, tail []float64) {
	for i, v := range head {
		dst[i] = complex(v, 0)
	}

	n := len(head)
	for i, v := range tail {
		dst[n+i] = complex(v, 0)
	}
}

func unpackReal(dst []float64, src []complex128) {
	for i := range dst {
		dst[i] = real(src[i])
	}
}
