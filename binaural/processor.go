package binaural

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-binaural/hrtf"
)

var (
	// ErrNilSource indicates construction without a filter source.
	ErrNilSource = errors.New("binaural: nil filter source")
	// ErrNilEngine indicates construction without a convolution engine.
	ErrNilEngine = errors.New("binaural: nil engine")
	// ErrInvalidSampleRate indicates a non-positive or non-finite sample rate.
	ErrInvalidSampleRate = errors.New("binaural: invalid sample rate")
	// ErrInvalidBlockSize indicates a non-positive maximum block size.
	ErrInvalidBlockSize = errors.New("binaural: invalid block size")
	// ErrBlockTooLarge indicates a block beyond the initialized maximum.
	ErrBlockTooLarge = errors.New("binaural: block exceeds configured maximum")
	// ErrLengthMismatch indicates input and output buffers of different sizes.
	ErrLengthMismatch = errors.New("binaural: buffer length mismatch")

	// ErrFilterLookup wraps filter source failures. During ProcessBlock these
	// are recoverable and reported through the warn handler only.
	ErrFilterLookup = errors.New("binaural: filter lookup failed")
	// ErrFilterInstall wraps engine filter installation failures.
	ErrFilterInstall = errors.New("binaural: filter install failed")
)

// FilterSource provides head-related filter pairs by source position.
// Implementations must fill dst completely on success and are free to
// leave it in any state on error.
type FilterSource interface {
	// FilterLength reports the per-ear coefficient count of every filter
	// the source produces.
	FilterLength() int

	// Lookup writes the filter pair for the Cartesian position (x, y, z)
	// into dst.
	Lookup(x, y, z float64, dst *hrtf.Filter) error
}

// Engine renders a mono stream to stereo through an installed filter pair.
// Implementations may retain a successfully installed filter until the next
// SetFilter call; the caller does not mutate it in between.
type Engine interface {
	SetFilter(f *hrtf.Filter) error
	ProcessBlock(mono, left, right []float64) error

	// Reset clears signal history while keeping the installed filter.
	Reset()
}

type config struct {
	warn func(error)
}

// Option configures a Processor.
type Option func(*config) error

// WithWarnHandler sets the callback invoked for recoverable errors, such
// as a failed filter lookup while rendering continues with the previous
// filter. The handler runs on the processing goroutine and must be cheap.
func WithWarnHandler(fn func(error)) Option {
	return func(cfg *config) error {
		if fn == nil {
			return errors.New("binaural: nil warn handler")
		}

		cfg.warn = fn

		return nil
	}
}

// Processor steers a convolution engine from a stream of source positions.
//
// Each block it derives the Cartesian direction from the given position and
// compares it to the direction of the last installed filter. Only an exact
// change triggers a filter lookup and installation, so a stationary source
// costs nothing beyond the convolution itself. A failed lookup is reported
// through the warn handler and rendering continues with the previous
// filter; the stale direction is kept so the lookup is retried as soon as
// the next block arrives. A failed installation aborts the block before any
// audio is rendered.
//
// The per-block path performs no allocations once Initialize has run. A
// Processor is not safe for concurrent use.
type Processor struct {
	source FilterSource
	engine Engine
	warn   func(error)

	sampleRate   float64
	maxBlockSize int
	ready        bool

	lastDirection Direction

	// Filter staging, swapped on each successful install so the engine
	// never observes a buffer being rewritten.
	current *hrtf.Filter
	pending *hrtf.Filter

	scratch []float64
}

// New creates a processor wiring source to engine. The processor starts
// uninitialized; until Initialize succeeds, ProcessBlock passes the mono
// input through to both ears unchanged.
func New(source FilterSource, engine Engine, opts ...Option) (*Processor, error) {
	if source == nil {
		return nil, ErrNilSource
	}

	if engine == nil {
		return nil, ErrNilEngine
	}

	cfg := config{warn: func(error) {}}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		err := opt(&cfg)
		if err != nil {
			return nil, err
		}
	}

	return &Processor{
		source: source,
		engine: engine,
		warn:   cfg.warn,
	}, nil
}

// Initialize prepares the processor for rendering at sampleRate with blocks
// of at most maxBlockSize samples, fetches and installs the filter for pos,
// and allocates the per-block scratch. The engine's signal history is
// cleared. Any failure leaves the processor uninitialized.
func (p *Processor) Initialize(sampleRate float64, maxBlockSize int, pos Position) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("%w: %f", ErrInvalidSampleRate, sampleRate)
	}

	if maxBlockSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBlockSize, maxBlockSize)
	}

	n := p.source.FilterLength()
	if n <= 0 {
		return fmt.Errorf("binaural: filter source reports invalid length %d", n)
	}

	p.ready = false
	p.current = hrtf.NewFilter(n)
	p.pending = hrtf.NewFilter(n)
	p.scratch = make([]float64, maxBlockSize)

	p.engine.Reset()

	dir := pos.Direction()

	if err := p.source.Lookup(dir.X, dir.Y, dir.Z, p.current); err != nil {
		return fmt.Errorf("%w: %w", ErrFilterLookup, err)
	}

	if err := p.engine.SetFilter(p.current); err != nil {
		return fmt.Errorf("%w: %w", ErrFilterInstall, err)
	}

	p.sampleRate = sampleRate
	p.maxBlockSize = maxBlockSize
	p.lastDirection = dir
	p.ready = true

	return nil
}

// ProcessBlock renders one block of mono into left and right for a source
// at pos. All three slices must have the same length, at most the
// initialized maximum. Before initialization the input is passed through
// to both ears and nothing else happens.
func (p *Processor) ProcessBlock(pos Position, mono, left, right []float64) error {
	if len(left) != len(mono) || len(right) != len(mono) {
		return fmt.Errorf("%w: mono %d, left %d, right %d",
			ErrLengthMismatch, len(mono), len(left), len(right))
	}

	if !p.ready {
		copy(left, mono)
		copy(right, mono)

		return nil
	}

	if len(mono) > p.maxBlockSize {
		return fmt.Errorf("%w: got %d, max %d", ErrBlockTooLarge, len(mono), p.maxBlockSize)
	}

	dir := pos.Direction()
	if dir != p.lastDirection {
		if err := p.source.Lookup(dir.X, dir.Y, dir.Z, p.pending); err != nil {
			p.warn(fmt.Errorf("%w: %w", ErrFilterLookup, err))
		} else {
			if err := p.engine.SetFilter(p.pending); err != nil {
				return fmt.Errorf("%w: %w", ErrFilterInstall, err)
			}

			p.current, p.pending = p.pending, p.current
			p.lastDirection = dir
		}
	}

	scratch := p.scratch[:len(mono)]
	copy(scratch, mono)

	return p.engine.ProcessBlock(scratch, left, right)
}

// Reset clears the engine's signal history. The installed filter and
// tracked direction survive, so the next block resumes from silence
// without a filter lookup.
func (p *Processor) Reset() {
	if p.ready {
		p.engine.Reset()
	}
}

// Ready reports whether Initialize has completed successfully.
func (p *Processor) Ready() bool { return p.ready }

// SampleRate returns the rate passed to Initialize, or zero before that.
func (p *Processor) SampleRate() float64 { return p.sampleRate }

// MaxBlockSize returns the block limit passed to Initialize, or zero
// before that.
func (p *Processor) MaxBlockSize() int { return p.maxBlockSize }
