package audiofile

import (
	"errors"
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"
)

func decodeVorbis(r io.Reader) (*Clip, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	channels := dec.Channels()
	if channels <= 0 {
		return nil, fmt.Errorf("%w: reported %d channels", ErrInvalidFile, channels)
	}

	clip := &Clip{
		Samples:    make([][]float64, channels),
		SampleRate: dec.SampleRate(),
	}

	// Read returns a count of float values, not frames; a frame may be
	// split across calls, so the channel cursor carries over.
	buf := make([]float32, 4096*channels)
	ch := 0

	for {
		n, err := dec.Read(buf)

		for _, v := range buf[:n] {
			clip.Samples[ch] = append(clip.Samples[ch], float64(v))
			ch = (ch + 1) % channels
		}

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("audiofile: vorbis: %w", err)
		}

		if n == 0 {
			break
		}
	}

	trimToShortest(clip.Samples)

	if clip.Frames() == 0 {
		return nil, ErrNoAudio
	}

	return clip, nil
}
