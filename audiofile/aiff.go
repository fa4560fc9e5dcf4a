package audiofile

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
)

func decodeAIFF(rs io.ReadSeeker) (*Clip, error) {
	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not an AIFF stream", ErrInvalidFile)
	}

	dec.ReadInfo()

	format := dec.Format()
	if format == nil {
		return nil, fmt.Errorf("%w: no format information", ErrInvalidFile)
	}

	channels := format.NumChannels
	if channels <= 0 {
		return nil, fmt.Errorf("%w: reported %d channels", ErrInvalidFile, channels)
	}

	norm, err := normalizer(int(dec.BitDepth))
	if err != nil {
		return nil, err
	}

	clip := &Clip{
		Samples:    make([][]float64, channels),
		SampleRate: format.SampleRate,
	}

	buf := &goaudio.IntBuffer{
		Format: format,
		Data:   make([]int, 4096*channels),
	}

	ch := 0

	for {
		n, err := dec.PCMBuffer(buf)
		if n == 0 {
			break
		}

		for _, v := range buf.Data[:n] {
			clip.Samples[ch] = append(clip.Samples[ch], float64(v)/norm)
			ch = (ch + 1) % channels
		}

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("audiofile: aiff: %w", err)
		}
	}

	trimToShortest(clip.Samples)

	if clip.Frames() == 0 {
		return nil, ErrNoAudio
	}

	return clip, nil
}
