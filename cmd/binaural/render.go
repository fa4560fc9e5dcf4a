package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-binaural/audiofile"
	"github.com/cwbudde/algo-binaural/binaural"
	"github.com/cwbudde/algo-binaural/hrtf"
	"github.com/cwbudde/algo-binaural/params"
	"github.com/cwbudde/algo-binaural/render"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a mono source to a positioned stereo WAV file",
	Long: `Render reads an audio file (WAV, AIFF, MP3 or Ogg Vorbis), mixes it
to mono, places it at the requested position and writes a 16-bit
stereo WAV at the input's sample rate.

Examples:
  binaural render -i voice.wav -o out.wav --azimuth 90 --distance 0.5
  binaural render -i voice.mp3 -o out.wav --orbit 45
  binaural render -i voice.wav -o out.wav --scene flyby.toml --hrtf-dir ./kemar`,
	RunE: runRender,
}

var (
	// shared render/play flags
	inputPath    string
	hrtfDir      string
	filterLen    int
	blockSize    int
	smoothingMs  float64
	azimuthDeg   float64
	elevationDeg float64
	distanceM    float64
	orbitDegSec  float64
	scenePath    string

	// render flags
	outputPath string
)

func init() {
	addSourceFlags(renderCmd)
	renderCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output WAV file (required)")
	renderCmd.MarkFlagRequired("input")
	renderCmd.MarkFlagRequired("output")
}

// addSourceFlags registers the flags shared by render and play: where the
// audio comes from, which filters to use and how the source moves.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "input audio file (required)")
	cmd.Flags().StringVar(&hrtfDir, "hrtf-dir", "", "directory of measured az<deg>_el<deg>.wav responses (default: spherical head model)")
	cmd.Flags().IntVar(&filterLen, "filter-length", 128, "per-ear filter length for the spherical head model")
	cmd.Flags().IntVar(&blockSize, "block-size", 512, "samples rendered per block")
	cmd.Flags().Float64Var(&smoothingMs, "smoothing", 50, "position smoothing time in milliseconds")
	cmd.Flags().Float64Var(&azimuthDeg, "azimuth", 0, "source azimuth in degrees, 0-359 (90 is hard left)")
	cmd.Flags().Float64Var(&elevationDeg, "elevation", 0, "source elevation in degrees, 0-180")
	cmd.Flags().Float64Var(&distanceM, "distance", 1, "source distance in meters, 0.1-1.0")
	cmd.Flags().Float64Var(&orbitDegSec, "orbit", 0, "orbit the listener at this rate in degrees per second")
	cmd.Flags().StringVar(&scenePath, "scene", "", "TOML scene file with position keyframes (overrides the position flags)")
}

func runRender(cmd *cobra.Command, args []string) error {
	clip, err := audiofile.Decode(inputPath)
	if err != nil {
		return err
	}

	log.Info().Str("input", inputPath).Int("channels", clip.Channels()).
		Int("rate", clip.SampleRate).Dur("length", clip.Duration()).Msg("decoded input")

	mono := clip.Mono()

	ch, err := buildChain(float64(clip.SampleRate))
	if err != nil {
		return err
	}

	left := make([]float64, len(mono))
	right := make([]float64, len(mono))

	for start := 0; start < len(mono); start += blockSize {
		end := min(start+blockSize, len(mono))
		if err := ch.renderBlock(mono[start:end], left[start:end], right[start:end], start); err != nil {
			return err
		}
	}

	if err := audiofile.WriteStereoWAV(outputPath, left, right, clip.SampleRate); err != nil {
		return err
	}

	log.Info().Str("output", outputPath).Msg("render complete")

	return nil
}

// chain bundles the full signal path: automation targets feed the smoothed
// controls, whose per-block snapshot steers the processor.
type chain struct {
	proc       *binaural.Processor
	controls   *params.Controls
	auto       automation
	sampleRate float64
}

func buildChain(sampleRate float64) (*chain, error) {
	auto, smoothing, err := buildAutomation()
	if err != nil {
		return nil, err
	}

	source, err := buildSource(sampleRate)
	if err != nil {
		return nil, err
	}

	engine, err := render.New(source.FilterLength(), render.WithSampleRate(sampleRate))
	if err != nil {
		return nil, err
	}

	proc, err := binaural.New(source, engine, binaural.WithWarnHandler(func(err error) {
		log.Warn().Err(err).Msg("filter lookup failed, keeping previous filter")
	}))
	if err != nil {
		return nil, err
	}

	start := auto.at(0)

	controls, err := params.NewControls(sampleRate,
		params.WithSmoothingTime(smoothing),
		params.WithInitialPosition(start))
	if err != nil {
		return nil, err
	}

	if err := proc.Initialize(sampleRate, blockSize, start); err != nil {
		return nil, err
	}

	log.Debug().Float64("azimuth", start.AzimuthDeg).Float64("elevation", start.ElevationDeg).
		Float64("distance", start.Distance).Int("latency", engine.Latency()).Msg("chain ready")

	return &chain{proc: proc, controls: controls, auto: auto, sampleRate: sampleRate}, nil
}

// renderBlock advances the smoothed position by one block and renders it.
// startSample anchors the automation clock.
func (c *chain) renderBlock(mono, left, right []float64, startSample int) error {
	c.controls.SetPosition(c.auto.at(float64(startSample) / c.sampleRate))

	return c.proc.ProcessBlock(c.controls.Snapshot(len(mono)), mono, left, right)
}

// buildSource picks the filter source: measured responses when --hrtf-dir
// is set, the spherical head model otherwise.
func buildSource(sampleRate float64) (binaural.FilterSource, error) {
	if hrtfDir != "" {
		ds, err := hrtf.LoadDirectory(hrtfDir, sampleRate)
		if err != nil {
			return nil, err
		}

		log.Debug().Int("responses", ds.Count()).Int("filter_length", ds.FilterLength()).
			Str("dir", hrtfDir).Msg("loaded measured responses")

		return ds, nil
	}

	model, err := hrtf.NewSphericalModel(sampleRate, filterLen)
	if err != nil {
		return nil, err
	}

	log.Debug().Int("filter_length", filterLen).Msg("using spherical head model")

	return model, nil
}
