package audiofile

import (
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

func decodeMP3(r io.Reader) (*Clip, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	// The decoder always emits 16-bit little-endian stereo.
	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("audiofile: mp3: %w", err)
	}

	frames := len(data) / 4
	if frames == 0 {
		return nil, ErrNoAudio
	}

	clip := &Clip{
		Samples: [][]float64{
			make([]float64, frames),
			make([]float64, frames),
		},
		SampleRate: dec.SampleRate(),
	}

	for i := range frames {
		l := int16(uint16(data[4*i]) | uint16(data[4*i+1])<<8)
		r := int16(uint16(data[4*i+2]) | uint16(data[4*i+3])<<8)

		clip.Samples[0][i] = float64(l) / 32768
		clip.Samples[1][i] = float64(r) / 32768
	}

	return clip, nil
}
