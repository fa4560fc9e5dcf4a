package binaural

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-binaural/hrtf"
	"github.com/cwbudde/algo-binaural/internal/testutil"
	"github.com/cwbudde/algo-binaural/render"
)

type stubSource struct {
	filterLen int
	fill      float64
	failWith  error

	lookups int
	lastX   float64
	lastY   float64
	lastZ   float64
}

func (s *stubSource) FilterLength() int { return s.filterLen }

func (s *stubSource) Lookup(x, y, z float64, dst *hrtf.Filter) error {
	s.lookups++
	s.lastX, s.lastY, s.lastZ = x, y, z

	if s.failWith != nil {
		return s.failWith
	}

	for i := range dst.Left {
		dst.Left[i] = 0
		dst.Right[i] = 0
	}

	dst.Left[0] = s.fill
	dst.Right[0] = s.fill

	return nil
}

type stubEngine struct {
	installFail error
	processFail error
	gain        float64

	installs    int
	resets      int
	blocks      int
	lastInstall []float64
	lastMonoPtr *float64
	lastLen     int
}

func (e *stubEngine) SetFilter(f *hrtf.Filter) error {
	if e.installFail != nil {
		return e.installFail
	}

	e.installs++
	e.lastInstall = append(e.lastInstall[:0], f.Left...)

	return nil
}

func (e *stubEngine) ProcessBlock(mono, left, right []float64) error {
	if e.processFail != nil {
		return e.processFail
	}

	e.blocks++
	e.lastLen = len(mono)

	if len(mono) > 0 {
		e.lastMonoPtr = &mono[0]
	}

	for i := range mono {
		left[i] = e.gain * mono[i]
		right[i] = -e.gain * mono[i]
	}

	return nil
}

func (e *stubEngine) Reset() { e.resets++ }

func newTestProcessor(t *testing.T, src *stubSource, eng *stubEngine, opts ...Option) *Processor {
	t.Helper()

	p, err := New(src, eng, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return p
}

func TestNewValidation(t *testing.T) {
	src := &stubSource{filterLen: 8}
	eng := &stubEngine{gain: 1}

	if _, err := New(nil, eng); !errors.Is(err, ErrNilSource) {
		t.Fatalf("err = %v, want ErrNilSource", err)
	}

	if _, err := New(src, nil); !errors.Is(err, ErrNilEngine) {
		t.Fatalf("err = %v, want ErrNilEngine", err)
	}

	if _, err := New(src, eng, WithWarnHandler(nil)); err == nil {
		t.Fatal("expected error for nil warn handler")
	}
}

func TestInitializeValidation(t *testing.T) {
	src := &stubSource{filterLen: 8, fill: 1}
	eng := &stubEngine{gain: 1}
	p := newTestProcessor(t, src, eng)

	if err := p.Initialize(0, 128, DefaultPosition); !errors.Is(err, ErrInvalidSampleRate) {
		t.Fatalf("zero rate: err = %v, want ErrInvalidSampleRate", err)
	}

	if err := p.Initialize(math.NaN(), 128, DefaultPosition); !errors.Is(err, ErrInvalidSampleRate) {
		t.Fatalf("nan rate: err = %v, want ErrInvalidSampleRate", err)
	}

	if err := p.Initialize(48000, 0, DefaultPosition); !errors.Is(err, ErrInvalidBlockSize) {
		t.Fatalf("zero block: err = %v, want ErrInvalidBlockSize", err)
	}

	if p.Ready() {
		t.Fatal("processor became ready despite failed initialization")
	}

	empty := newTestProcessor(t, &stubSource{filterLen: 0}, eng)
	if err := empty.Initialize(48000, 128, DefaultPosition); err == nil {
		t.Fatal("expected error for zero-length filter source")
	}
}

func TestInitializeInstallsInitialFilter(t *testing.T) {
	src := &stubSource{filterLen: 16, fill: 0.7}
	eng := &stubEngine{gain: 1}
	p := newTestProcessor(t, src, eng)

	if err := p.Initialize(48000, 256, DefaultPosition); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if !p.Ready() {
		t.Fatal("Ready() = false after successful initialization")
	}

	if got := p.SampleRate(); got != 48000 {
		t.Fatalf("SampleRate() = %v, want 48000", got)
	}

	if got := p.MaxBlockSize(); got != 256 {
		t.Fatalf("MaxBlockSize() = %d, want 256", got)
	}

	if src.lookups != 1 || eng.installs != 1 {
		t.Fatalf("lookups = %d, installs = %d, want 1 and 1", src.lookups, eng.installs)
	}

	if eng.resets != 1 {
		t.Fatalf("resets = %d, want 1", eng.resets)
	}

	// Default position is straight ahead at one meter.
	if math.Abs(src.lastX-1) > 1e-12 || math.Abs(src.lastY) > 1e-12 || math.Abs(src.lastZ) > 1e-12 {
		t.Fatalf("lookup position = (%v, %v, %v), want (1, 0, 0)", src.lastX, src.lastY, src.lastZ)
	}

	if eng.lastInstall[0] != 0.7 {
		t.Fatalf("installed filter head = %v, want 0.7", eng.lastInstall[0])
	}
}

func TestInitializeLookupFailure(t *testing.T) {
	src := &stubSource{filterLen: 16, failWith: errors.New("backing store offline")}
	eng := &stubEngine{gain: 1}
	p := newTestProcessor(t, src, eng)

	err := p.Initialize(48000, 128, DefaultPosition)
	if !errors.Is(err, ErrFilterLookup) {
		t.Fatalf("err = %v, want ErrFilterLookup", err)
	}

	if p.Ready() {
		t.Fatal("processor ready despite failed initial lookup")
	}
}

func TestInitializeInstallFailure(t *testing.T) {
	src := &stubSource{filterLen: 16, fill: 1}
	eng := &stubEngine{gain: 1, installFail: errors.New("spectra rejected")}
	p := newTestProcessor(t, src, eng)

	err := p.Initialize(48000, 128, DefaultPosition)
	if !errors.Is(err, ErrFilterInstall) {
		t.Fatalf("err = %v, want ErrFilterInstall", err)
	}

	if p.Ready() {
		t.Fatal("processor ready despite failed install")
	}
}

func TestPassThroughBeforeInitialize(t *testing.T) {
	src := &stubSource{filterLen: 16, fill: 1}
	eng := &stubEngine{gain: 1}
	p := newTestProcessor(t, src, eng)

	mono := []float64{0.1, -0.2, 0.3}
	left := make([]float64, 3)
	right := make([]float64, 3)

	if err := p.ProcessBlock(DefaultPosition, mono, left, right); err != nil {
		t.Fatalf("ProcessBlock() error = %v", err)
	}

	for i := range mono {
		if left[i] != mono[i] || right[i] != mono[i] {
			t.Fatalf("sample %d: got (%v, %v), want pass-through %v", i, left[i], right[i], mono[i])
		}
	}

	if eng.blocks != 0 {
		t.Fatalf("engine ran %d blocks before initialization", eng.blocks)
	}
}

func TestStationarySourceSkipsLookups(t *testing.T) {
	src := &stubSource{filterLen: 16, fill: 1}
	eng := &stubEngine{gain: 1}
	p := newTestProcessor(t, src, eng)

	pos := Position{AzimuthDeg: 42, ElevationDeg: 10, Distance: 0.5}

	if err := p.Initialize(48000, 64, pos); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	mono := make([]float64, 64)
	left := make([]float64, 64)
	right := make([]float64, 64)

	for range 10 {
		if err := p.ProcessBlock(pos, mono, left, right); err != nil {
			t.Fatalf("ProcessBlock() error = %v", err)
		}
	}

	if src.lookups != 1 || eng.installs != 1 {
		t.Fatalf("lookups = %d, installs = %d, want 1 and 1", src.lookups, eng.installs)
	}

	if eng.blocks != 10 {
		t.Fatalf("blocks = %d, want 10", eng.blocks)
	}
}

func TestDirectionChangeInstallsOnce(t *testing.T) {
	src := &stubSource{filterLen: 16, fill: 1}
	eng := &stubEngine{gain: 1}
	p := newTestProcessor(t, src, eng)

	if err := p.Initialize(48000, 64, DefaultPosition); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	mono := make([]float64, 64)
	left := make([]float64, 64)
	right := make([]float64, 64)

	// Unchanged position first, then a jump to the left.
	if err := p.ProcessBlock(DefaultPosition, mono, left, right); err != nil {
		t.Fatalf("ProcessBlock() error = %v", err)
	}

	if src.lookups != 1 {
		t.Fatalf("lookups = %d after unchanged block, want 1", src.lookups)
	}

	side := Position{AzimuthDeg: 90, ElevationDeg: 0, Distance: 1}

	if err := p.ProcessBlock(side, mono, left, right); err != nil {
		t.Fatalf("ProcessBlock() error = %v", err)
	}

	if src.lookups != 2 || eng.installs != 2 {
		t.Fatalf("lookups = %d, installs = %d after change, want 2 and 2", src.lookups, eng.installs)
	}

	if math.Abs(src.lastY-1) > 1e-12 {
		t.Fatalf("lookup y = %v, want 1", src.lastY)
	}

	for range 3 {
		if err := p.ProcessBlock(side, mono, left, right); err != nil {
			t.Fatalf("ProcessBlock() error = %v", err)
		}
	}

	if src.lookups != 2 || eng.installs != 2 {
		t.Fatalf("lookups = %d, installs = %d after settling, want 2 and 2", src.lookups, eng.installs)
	}
}

func TestLookupFailureKeepsRendering(t *testing.T) {
	src := &stubSource{filterLen: 16, fill: 1}
	eng := &stubEngine{gain: 1}

	var warned []error

	p := newTestProcessor(t, src, eng, WithWarnHandler(func(err error) {
		warned = append(warned, err)
	}))

	if err := p.Initialize(48000, 64, DefaultPosition); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	src.failWith = errors.New("dataset gone")

	side := Position{AzimuthDeg: 90, ElevationDeg: 0, Distance: 1}
	mono := make([]float64, 64)
	left := make([]float64, 64)
	right := make([]float64, 64)

	if err := p.ProcessBlock(side, mono, left, right); err != nil {
		t.Fatalf("ProcessBlock() error = %v, want nil on recoverable lookup failure", err)
	}

	if eng.blocks != 1 {
		t.Fatalf("blocks = %d, want 1; the block must render with the previous filter", eng.blocks)
	}

	if len(warned) != 1 || !errors.Is(warned[0], ErrFilterLookup) {
		t.Fatalf("warnings = %v, want one ErrFilterLookup", warned)
	}

	if eng.installs != 1 {
		t.Fatalf("installs = %d, want 1", eng.installs)
	}

	// The failed direction was not adopted, so the next block retries.
	src.failWith = nil

	if err := p.ProcessBlock(side, mono, left, right); err != nil {
		t.Fatalf("ProcessBlock() error = %v", err)
	}

	if src.lookups != 3 || eng.installs != 2 {
		t.Fatalf("lookups = %d, installs = %d after retry, want 3 and 2", src.lookups, eng.installs)
	}

	if err := p.ProcessBlock(side, mono, left, right); err != nil {
		t.Fatalf("ProcessBlock() error = %v", err)
	}

	if src.lookups != 3 {
		t.Fatalf("lookups = %d after adoption, want 3", src.lookups)
	}

	if len(warned) != 1 {
		t.Fatalf("warnings = %d, want 1", len(warned))
	}
}

func TestInstallFailureAbortsBlock(t *testing.T) {
	src := &stubSource{filterLen: 16, fill: 1}
	eng := &stubEngine{gain: 1}
	p := newTestProcessor(t, src, eng)

	if err := p.Initialize(48000, 64, DefaultPosition); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	eng.installFail = errors.New("spectra rejected")

	side := Position{AzimuthDeg: 90, ElevationDeg: 0, Distance: 1}
	mono := make([]float64, 64)
	left := make([]float64, 64)
	right := make([]float64, 64)

	err := p.ProcessBlock(side, mono, left, right)
	if !errors.Is(err, ErrFilterInstall) {
		t.Fatalf("err = %v, want ErrFilterInstall", err)
	}

	if eng.blocks != 0 {
		t.Fatalf("blocks = %d, want 0; a failed install must not render", eng.blocks)
	}

	// The direction was not adopted, so the same position retries and
	// succeeds once the engine recovers.
	eng.installFail = nil

	if err := p.ProcessBlock(side, mono, left, right); err != nil {
		t.Fatalf("ProcessBlock() error = %v", err)
	}

	if eng.installs != 2 || eng.blocks != 1 {
		t.Fatalf("installs = %d, blocks = %d, want 2 and 1", eng.installs, eng.blocks)
	}

	if err := p.ProcessBlock(side, mono, left, right); err != nil {
		t.Fatalf("ProcessBlock() error = %v", err)
	}

	if src.lookups != 3 {
		t.Fatalf("lookups = %d, want 3", src.lookups)
	}
}

func TestEngineErrorPropagates(t *testing.T) {
	src := &stubSource{filterLen: 16, fill: 1}
	eng := &stubEngine{gain: 1}
	p := newTestProcessor(t, src, eng)

	if err := p.Initialize(48000, 64, DefaultPosition); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	engineErr := errors.New("fft failed")
	eng.processFail = engineErr

	mono := make([]float64, 64)
	left := make([]float64, 64)
	right := make([]float64, 64)

	if err := p.ProcessBlock(DefaultPosition, mono, left, right); !errors.Is(err, engineErr) {
		t.Fatalf("err = %v, want engine error", err)
	}
}

func TestBlockSizeLimit(t *testing.T) {
	src := &stubSource{filterLen: 16, fill: 1}
	eng := &stubEngine{gain: 1}
	p := newTestProcessor(t, src, eng)

	if err := p.Initialize(48000, 512, DefaultPosition); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	mono := make([]float64, 600)
	left := make([]float64, 600)
	right := make([]float64, 600)

	if err := p.ProcessBlock(DefaultPosition, mono, left, right); !errors.Is(err, ErrBlockTooLarge) {
		t.Fatalf("err = %v, want ErrBlockTooLarge", err)
	}
}

func TestBufferLengthMismatch(t *testing.T) {
	src := &stubSource{filterLen: 16, fill: 1}
	eng := &stubEngine{gain: 1}
	p := newTestProcessor(t, src, eng)

	if err := p.Initialize(48000, 64, DefaultPosition); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	mono := make([]float64, 64)
	left := make([]float64, 32)
	right := make([]float64, 64)

	if err := p.ProcessBlock(DefaultPosition, mono, left, right); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("err = %v, want ErrLengthMismatch", err)
	}
}

func TestScratchReuse(t *testing.T) {
	src := &stubSource{filterLen: 16, fill: 1}
	eng := &stubEngine{gain: 1}
	p := newTestProcessor(t, src, eng)

	if err := p.Initialize(48000, 512, DefaultPosition); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	mono := make([]float64, 512)
	left := make([]float64, 512)
	right := make([]float64, 512)

	for i := range mono {
		mono[i] = math.Sin(float64(i) * 0.1)
	}

	var base *float64

	// Sweep the azimuth so the lookup-and-install path runs too.
	for i := range 1000 {
		pos := Position{AzimuthDeg: float64(i % 360), ElevationDeg: 0, Distance: 1}

		if err := p.ProcessBlock(pos, mono, left, right); err != nil {
			t.Fatalf("block %d: ProcessBlock() error = %v", i, err)
		}

		if base == nil {
			base = eng.lastMonoPtr
		}

		if eng.lastMonoPtr != base {
			t.Fatalf("block %d: scratch buffer moved", i)
		}
	}

	if eng.blocks != 1000 {
		t.Fatalf("blocks = %d, want 1000", eng.blocks)
	}

	// Shorter blocks reuse the same backing array.
	if err := p.ProcessBlock(DefaultPosition, mono[:256], left[:256], right[:256]); err != nil {
		t.Fatalf("ProcessBlock() error = %v", err)
	}

	if eng.lastMonoPtr != base {
		t.Fatal("short block used a different scratch buffer")
	}

	if eng.lastLen != 256 {
		t.Fatalf("engine saw %d samples, want 256", eng.lastLen)
	}
}

func TestProcessBlockRoutesChannels(t *testing.T) {
	src := &stubSource{filterLen: 16, fill: 1}
	eng := &stubEngine{gain: 2}
	p := newTestProcessor(t, src, eng)

	if err := p.Initialize(48000, 8, DefaultPosition); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	mono := []float64{0.5, -0.25}
	left := make([]float64, 2)
	right := make([]float64, 2)

	if err := p.ProcessBlock(DefaultPosition, mono, left, right); err != nil {
		t.Fatalf("ProcessBlock() error = %v", err)
	}

	for i := range mono {
		if left[i] != 2*mono[i] {
			t.Fatalf("left[%d] = %v, want %v", i, left[i], 2*mono[i])
		}

		if right[i] != -2*mono[i] {
			t.Fatalf("right[%d] = %v, want %v", i, right[i], -2*mono[i])
		}
	}
}

func TestResetForwardsToEngine(t *testing.T) {
	src := &stubSource{filterLen: 16, fill: 1}
	eng := &stubEngine{gain: 1}
	p := newTestProcessor(t, src, eng)

	p.Reset()

	if eng.resets != 0 {
		t.Fatalf("resets = %d before initialization, want 0", eng.resets)
	}

	if err := p.Initialize(48000, 64, DefaultPosition); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	p.Reset()

	if eng.resets != 2 {
		t.Fatalf("resets = %d, want 2 (one from Initialize, one direct)", eng.resets)
	}
}

func TestProcessorWithRenderer(t *testing.T) {
	ds, err := hrtf.NewDataset(48000, 64)
	if err != nil {
		t.Fatalf("NewDataset() error = %v", err)
	}

	front := testutil.Impulse(64, 0, 1)
	side := testutil.Impulse(64, 0, 0.5)

	if err := ds.Add(0, 0, front, front); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := ds.Add(90, 0, side, side); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	eng, err := render.New(ds.FilterLength(),
		render.WithSampleRate(48000), render.WithCrossfade(false))
	if err != nil {
		t.Fatalf("render.New() error = %v", err)
	}

	p, err := New(ds, eng)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := p.Initialize(48000, 128, DefaultPosition); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	input := make([]float64, 512)
	for i := range input {
		t := float64(i)
		input[i] = 0.5*math.Sin(2*math.Pi*0.017*t) + 0.25*math.Sin(2*math.Pi*0.11*t+0.3)
	}

	out := make([]float64, 512)
	rightOut := make([]float64, 512)

	ahead := DefaultPosition
	sidePos := Position{AzimuthDeg: 90, ElevationDeg: 0, Distance: 1}

	for _, blk := range []struct {
		pos   Position
		start int
	}{
		{ahead, 0}, {ahead, 128}, {sidePos, 256}, {sidePos, 384},
	} {
		end := blk.start + 128
		if err := p.ProcessBlock(blk.pos, input[blk.start:end], out[blk.start:end], rightOut[blk.start:end]); err != nil {
			t.Fatalf("ProcessBlock() error = %v", err)
		}
	}

	testutil.RequireFinite(t, out, rightOut)

	delay := eng.Latency()

	check := func(n int, gain float64) {
		t.Helper()

		want := gain * input[n-delay]
		if math.Abs(out[n]-want) > 1e-9 {
			t.Fatalf("out[%d] = %v, want %v", n, out[n], want)
		}
	}

	// Straight ahead renders the unit impulse response: a pure delay.
	for n := delay; n < 256; n++ {
		check(n, 1)
	}

	// The block of the position change still opens with one buffered
	// partition of the old filter, then switches.
	for n := 256; n < 256+delay; n++ {
		check(n, 1)
	}

	for n := 256 + delay; n < 384; n++ {
		check(n, 0.5)
	}

	for n := 384; n < 512; n++ {
		check(n, 0.5)
	}
}

func BenchmarkProcessorSteadyBlock(b *testing.B) {
	ds, err := hrtf.NewDataset(48000, 128)
	if err != nil {
		b.Fatalf("NewDataset() error = %v", err)
	}

	ir := testutil.Impulse(128, 0, 1)

	if err := ds.Add(0, 0, ir, ir); err != nil {
		b.Fatalf("Add() error = %v", err)
	}

	eng, err := render.New(ds.FilterLength(), render.WithSampleRate(48000))
	if err != nil {
		b.Fatalf("render.New() error = %v", err)
	}

	p, err := New(ds, eng)
	if err != nil {
		b.Fatalf("New() error = %v", err)
	}

	if err := p.Initialize(48000, 128, DefaultPosition); err != nil {
		b.Fatalf("Initialize() error = %v", err)
	}

	mono := make([]float64, 128)
	left := make([]float64, 128)
	right := make([]float64, 128)

	for i := range mono {
		mono[i] = math.Sin(float64(i) * 0.05)
	}

	b.ReportAllocs()

	for b.Loop() {
		if err := p.ProcessBlock(DefaultPosition, mono, left, right); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkProcessorMovingSource(b *testing.B) {
	ds, err := hrtf.NewDataset(48000, 128)
	if err != nil {
		b.Fatalf("NewDataset() error = %v", err)
	}

	ir := testutil.Impulse(128, 0, 1)

	for az := 0.0; az < 360; az += 30 {
		if err := ds.Add(az, 0, ir, ir); err != nil {
			b.Fatalf("Add() error = %v", err)
		}
	}

	eng, err := render.New(ds.FilterLength(), render.WithSampleRate(48000))
	if err != nil {
		b.Fatalf("render.New() error = %v", err)
	}

	p, err := New(ds, eng)
	if err != nil {
		b.Fatalf("New() error = %v", err)
	}

	if err := p.Initialize(48000, 128, DefaultPosition); err != nil {
		b.Fatalf("Initialize() error = %v", err)
	}

	mono := make([]float64, 128)
	left := make([]float64, 128)
	right := make([]float64, 128)

	for i := range mono {
		mono[i] = math.Sin(float64(i) * 0.05)
	}

	b.ReportAllocs()

	az := 0.0

	for b.Loop() {
		az += 1.5
		if az >= 360 {
			az -= 360
		}

		pos := Position{AzimuthDeg: az, ElevationDeg: 0, Distance: 1}

		if err := p.ProcessBlock(pos, mono, left, right); err != nil {
			b.Fatal(err)
		}
	}
}
