package audiofile

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func decodeWAV(rs io.ReadSeeker) (*Clip, error) {
	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a WAV stream", ErrInvalidFile)
	}

	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("audiofile: wav: %w", err)
	}

	channels := int(dec.NumChans)
	if channels <= 0 {
		return nil, fmt.Errorf("%w: reported %d channels", ErrInvalidFile, channels)
	}

	norm, err := normalizer(int(dec.BitDepth))
	if err != nil {
		return nil, err
	}

	clip := &Clip{
		Samples:    make([][]float64, channels),
		SampleRate: int(dec.SampleRate),
	}

	buf := &goaudio.IntBuffer{
		Format: dec.Format(),
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
			return nil, fmt.Errorf("audiofile: wav: %w", err)
		}
	}

	trimToShortest(clip.Samples)

	if clip.Frames() == 0 {
		return nil, ErrNoAudio
	}

	return clip, nil
}
