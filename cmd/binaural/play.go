package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-binaural/audiofile"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a positioned source through the speakers",
	Long: `Play decodes an audio file, mixes it to mono and plays it back
positioned in space. Blocks are rendered on demand, so orbit and
scene automation are audible live.`,
	RunE: runPlay,
}

func init() {
	addSourceFlags(playCmd)
	playCmd.MarkFlagRequired("input")
}

func runPlay(cmd *cobra.Command, args []string) error {
	clip, err := audiofile.Decode(inputPath)
	if err != nil {
		return err
	}

	log.Info().Str("input", inputPath).Int("rate", clip.SampleRate).
		Dur("length", clip.Duration()).Msg("decoded input")

	ch, err := buildChain(float64(clip.SampleRate))
	if err != nil {
		return err
	}

	stream := newPCMStream(ch, clip.Mono())

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   clip.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return fmt.Errorf("open audio device: %w", err)
	}
	<-ready

	player := ctx.NewPlayer(stream)
	defer player.Close()

	player.Play()

	for player.IsPlaying() {
		time.Sleep(50 * time.Millisecond)
	}

	return stream.err
}

// pcmStream renders the signal chain block by block as the audio device
// pulls from it, emitting interleaved 16-bit little-endian stereo PCM.
type pcmStream struct {
	ch      *chain
	mono    []float64
	left    []float64
	right   []float64
	cursor  int
	buf     []byte
	pending []byte
	err     error
}

func newPCMStream(ch *chain, mono []float64) *pcmStream {
	return &pcmStream{
		ch:    ch,
		mono:  mono,
		left:  make([]float64, blockSize),
		right: make([]float64, blockSize),
	}
}

func (s *pcmStream) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		if s.err != nil {
			return 0, s.err
		}

		if s.cursor >= len(s.mono) {
			return 0, io.EOF
		}

		end := min(s.cursor+blockSize, len(s.mono))
		n := end - s.cursor

		if err := s.ch.renderBlock(s.mono[s.cursor:end], s.left[:n], s.right[:n], s.cursor); err != nil {
			s.err = err
			return 0, err
		}

		s.cursor = end
		s.pending = s.encode(s.left[:n], s.right[:n])
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]

	return n, nil
}

func (s *pcmStream) encode(left, right []float64) []byte {
	need := len(left) * 4
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}

	out := s.buf[:need]
	for i := range left {
		binary.LittleEndian.PutUint16(out[i*4:], uint16(sampleToInt16(left[i])))
		binary.LittleEndian.PutUint16(out[i*4+2:], uint16(sampleToInt16(right[i])))
	}

	return out
}

func sampleToInt16(v float64) int16 {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}

	return int16(math.Round(v * 32767))
}
