package audiofile

import (
	"errors"
	"time"

	"github.com/cwbudde/algo-vecmath"
)

var (
	// ErrUnsupportedFormat indicates a file extension with no decoder.
	ErrUnsupportedFormat = errors.New("audiofile: unsupported format")
	// ErrInvalidFile indicates a stream the decoder could not parse.
	ErrInvalidFile = errors.New("audiofile: invalid or corrupt file")
	// ErrNoAudio indicates a parseable file without any audio frames.
	ErrNoAudio = errors.New("audiofile: no audio data")
	// ErrLengthMismatch indicates per-channel buffers of different lengths.
	ErrLengthMismatch = errors.New("audiofile: channel length mismatch")
	// ErrInvalidRate indicates a non-positive sample rate.
	ErrInvalidRate = errors.New("audiofile: invalid sample rate")
)

// Clip is decoded audio held in memory, one slice per channel, samples
// normalized to [-1, 1]. All channels have the same length.
type Clip struct {
	Samples    [][]float64
	SampleRate int
}

// Channels returns the channel count.
func (c *Clip) Channels() int { return len(c.Samples) }

// Frames returns the per-channel sample count.
func (c *Clip) Frames() int {
	if len(c.Samples) == 0 {
		return 0
	}

	return len(c.Samples[0])
}

// Duration returns the clip length in wall time.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}

	return time.Duration(float64(c.Frames()) / float64(c.SampleRate) * float64(time.Second))
}

// Mono mixes all channels down to a single one by averaging.
func (c *Clip) Mono() []float64 {
	n := c.Frames()
	out := make([]float64, n)

	if c.Channels() == 0 {
		return out
	}

	if c.Channels() == 1 {
		copy(out, c.Samples[0])
		return out
	}

	scale := 1 / float64(c.Channels())
	tmp := make([]float64, n)

	for _, ch := range c.Samples {
		vecmath.ScaleBlock(tmp, ch, scale)
		vecmath.AddBlockInPlace(out, tmp)
	}

	return out
}

// trimToShortest cuts all channels to the shortest one. Decoders use it to
// drop a trailing partial frame from truncated files.
func trimToShortest(chans [][]float64) {
	if len(chans) == 0 {
		return
	}

	shortest := len(chans[0])
	for _, ch := range chans[1:] {
		if len(ch) < shortest {
			shortest = len(ch)
		}
	}

	for i := range chans {
		chans[i] = chans[i][:shortest]
	}
}
