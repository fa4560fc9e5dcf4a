package audiofile

import (
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// EncodeStereoWAV writes left and right as a 16-bit stereo WAV stream.
// Samples outside [-1, 1] are clipped.
func EncodeStereoWAV(w io.WriteSeeker, left, right []float64, sampleRate int) error {
	if len(left) != len(right) {
		return fmt.Errorf("%w: left %d, right %d", ErrLengthMismatch, len(left), len(right))
	}

	if sampleRate <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRate, sampleRate)
	}

	enc := wav.NewEncoder(w, sampleRate, 16, 2, 1)

	data := make([]int, 0, 2*len(left))
	for i := range left {
		data = append(data, pcm16(left[i]), pcm16(right[i]))
	}

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("audiofile: wav encode: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("audiofile: wav finalize: %w", err)
	}

	return nil
}

// WriteStereoWAV writes a 16-bit stereo WAV file at path.
func WriteStereoWAV(path string, left, right []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audiofile: create: %w", err)
	}

	if err := EncodeStereoWAV(f, left, right, sampleRate); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("audiofile: close: %w", err)
	}

	return nil
}

// pcm16 converts a float sample to 16-bit PCM with clipping.
func pcm16(v float64) int {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}

	return int(math.Round(v * 32767))
}
