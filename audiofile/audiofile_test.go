package audiofile

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/algo-binaural/internal/testutil"
)

func TestWriteDecodeRoundTrip(t *testing.T) {
	const (
		sampleRate = 48000
		frames     = 480
	)

	left := testutil.Sine(220, 0.8, sampleRate, frames)
	right := testutil.Sine(330, 0.5, sampleRate, frames)

	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := WriteStereoWAV(path, left, right, sampleRate); err != nil {
		t.Fatalf("WriteStereoWAV() error = %v", err)
	}

	clip, err := Decode(path)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if clip.SampleRate != sampleRate {
		t.Errorf("SampleRate = %d, want %d", clip.SampleRate, sampleRate)
	}

	if clip.Channels() != 2 {
		t.Fatalf("Channels() = %d, want 2", clip.Channels())
	}

	if clip.Frames() != frames {
		t.Fatalf("Frames() = %d, want %d", clip.Frames(), frames)
	}

	for i := range frames {
		if diff := math.Abs(clip.Samples[0][i] - left[i]); diff > 1e-4 {
			t.Fatalf("left[%d] = %g, want %g (diff %g)", i, clip.Samples[0][i], left[i], diff)
		}

		if diff := math.Abs(clip.Samples[1][i] - right[i]); diff > 1e-4 {
			t.Fatalf("right[%d] = %g, want %g (diff %g)", i, clip.Samples[1][i], right[i], diff)
		}
	}
}

func TestEncodeClipsOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hot.wav")

	left := []float64{2.0, -2.0}
	right := []float64{0, 0}

	if err := WriteStereoWAV(path, left, right, 44100); err != nil {
		t.Fatalf("WriteStereoWAV() error = %v", err)
	}

	clip, err := Decode(path)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if clip.Samples[0][0] < 0.999 {
		t.Errorf("clipped positive sample = %g, want close to 1", clip.Samples[0][0])
	}

	if clip.Samples[0][1] > -0.999 {
		t.Errorf("clipped negative sample = %g, want close to -1", clip.Samples[0][1])
	}
}

func TestWriteStereoWAVValidation(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name       string
		left       []float64
		right      []float64
		sampleRate int
		wantErr    error
	}{
		{"length mismatch", make([]float64, 4), make([]float64, 3), 48000, ErrLengthMismatch},
		{"zero rate", make([]float64, 4), make([]float64, 4), 0, ErrInvalidRate},
		{"negative rate", make([]float64, 4), make([]float64, 4), -48000, ErrInvalidRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WriteStereoWAV(filepath.Join(dir, "out.wav"), tt.left, tt.right, tt.sampleRate)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("WriteStereoWAV() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Decode(path); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Decode() error = %v, want %v", err, ErrUnsupportedFormat)
	}
}

func TestDecodeMissingFile(t *testing.T) {
	_, err := Decode(filepath.Join(t.TempDir(), "absent.wav"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Decode() error = %v, want wrapped fs.ErrNotExist", err)
	}
}

func TestDecodeCorruptWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("RIFFxxxx but not really a wave file"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Decode(path); !errors.Is(err, ErrInvalidFile) {
		t.Errorf("Decode() error = %v, want %v", err, ErrInvalidFile)
	}
}

func TestDecodeUppercaseExtension(t *testing.T) {
	left := testutil.Sine(440, 0.3, 44100, 64)
	right := testutil.Sine(440, 0.3, 44100, 64)

	path := filepath.Join(t.TempDir(), "clip.WAV")
	if err := WriteStereoWAV(path, left, right, 44100); err != nil {
		t.Fatalf("WriteStereoWAV() error = %v", err)
	}

	clip, err := Decode(path)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if clip.Frames() != 64 {
		t.Errorf("Frames() = %d, want 64", clip.Frames())
	}
}

func TestMonoDownmix(t *testing.T) {
	clip := &Clip{
		Samples: [][]float64{
			{1, 0.5, -0.25},
			{0, 0.5, 0.75},
		},
		SampleRate: 48000,
	}

	mono := clip.Mono()

	want := []float64{0.5, 0.5, 0.25}
	if len(mono) != len(want) {
		t.Fatalf("len(mono) = %d, want %d", len(mono), len(want))
	}

	for i := range want {
		if math.Abs(mono[i]-want[i]) > 1e-12 {
			t.Errorf("mono[%d] = %g, want %g", i, mono[i], want[i])
		}
	}
}

func TestMonoSingleChannelCopies(t *testing.T) {
	clip := &Clip{
		Samples:    [][]float64{{0.1, 0.2, 0.3}},
		SampleRate: 48000,
	}

	mono := clip.Mono()
	mono[0] = 99

	if clip.Samples[0][0] != 0.1 {
		t.Errorf("Mono() aliases the channel buffer: source sample = %g", clip.Samples[0][0])
	}
}

func TestMonoEmptyClip(t *testing.T) {
	clip := &Clip{SampleRate: 48000}
	if mono := clip.Mono(); len(mono) != 0 {
		t.Errorf("len(Mono()) = %d, want 0", len(mono))
	}
}

func TestClipAccessors(t *testing.T) {
	clip := &Clip{
		Samples:    [][]float64{make([]float64, 24000), make([]float64, 24000)},
		SampleRate: 48000,
	}

	if clip.Channels() != 2 {
		t.Errorf("Channels() = %d, want 2", clip.Channels())
	}

	if clip.Frames() != 24000 {
		t.Errorf("Frames() = %d, want 24000", clip.Frames())
	}

	if got := clip.Duration(); got != 500*time.Millisecond {
		t.Errorf("Duration() = %v, want 500ms", got)
	}

	empty := &Clip{}
	if got := empty.Duration(); got != 0 {
		t.Errorf("empty Duration() = %v, want 0", got)
	}
}

func TestTrimToShortest(t *testing.T) {
	chans := [][]float64{
		make([]float64, 5),
		make([]float64, 3),
		make([]float64, 4),
	}

	trimToShortest(chans)

	for i, ch := range chans {
		if len(ch) != 3 {
			t.Errorf("channel %d length = %d, want 3", i, len(ch))
		}
	}
}
