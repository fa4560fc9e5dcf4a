package main

import (
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-binaural/audiofile"
	"github.com/cwbudde/algo-binaural/binaural"
	"github.com/cwbudde/algo-binaural/hrtf"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Inspect an audio file or a set of head filters",
	Long: `Info prints facts about an audio file (--input), about a directory
of measured responses (--hrtf-dir), or, with neither, about the
builtin spherical head model sampled on a grid of directions.

Per direction it reports the peak level of each ear and the
interaural time difference derived from the filter peaks.`,
	RunE: runInfo,
}

var (
	infoSampleRate int
	azStepDeg      float64
	elStepDeg      float64
)

func init() {
	infoCmd.Flags().StringVarP(&inputPath, "input", "i", "", "audio file to inspect")
	infoCmd.Flags().StringVar(&hrtfDir, "hrtf-dir", "", "directory of measured az<deg>_el<deg>.wav responses")
	infoCmd.Flags().IntVar(&infoSampleRate, "sample-rate", 48000, "sample rate the filters are evaluated at")
	infoCmd.Flags().IntVar(&filterLen, "filter-length", 128, "per-ear filter length for the spherical head model")
	infoCmd.Flags().Float64Var(&azStepDeg, "az-step", 30, "azimuth grid step in degrees for the model table")
	infoCmd.Flags().Float64Var(&elStepDeg, "el-step", 30, "elevation grid step in degrees for the model table")
}

func runInfo(cmd *cobra.Command, args []string) error {
	if inputPath != "" {
		if err := printClipInfo(inputPath); err != nil {
			return err
		}
	}

	if hrtfDir != "" {
		ds, err := hrtf.LoadDirectory(hrtfDir, float64(infoSampleRate))
		if err != nil {
			return err
		}

		fmt.Printf("Measured responses from %s\n", hrtfDir)

		return printDataset(ds)
	}

	if inputPath != "" {
		return nil
	}

	model, err := hrtf.NewSphericalModel(float64(infoSampleRate), filterLen)
	if err != nil {
		return err
	}

	ds, err := hrtf.Synthesize(model, azStepDeg, elStepDeg)
	if err != nil {
		return err
	}

	fmt.Printf("Spherical head model, radius %.3f m\n", model.HeadRadius())

	return printDataset(ds)
}

func printClipInfo(path string) error {
	clip, err := audiofile.Decode(path)
	if err != nil {
		return err
	}

	fmt.Printf("File:        %s\n", path)
	fmt.Printf("Channels:    %d\n", clip.Channels())
	fmt.Printf("Sample rate: %d Hz\n", clip.SampleRate)
	fmt.Printf("Frames:      %d\n", clip.Frames())
	fmt.Printf("Duration:    %s\n", clip.Duration())

	for i, ch := range clip.Samples {
		fmt.Printf("Peak ch %d:   %.2f dBFS\n", i, db(peak(ch)))
	}

	return nil
}

func printDataset(ds *hrtf.Dataset) error {
	fmt.Printf("Sample rate: %.0f Hz, filter length %d, %d directions\n\n",
		ds.SampleRate(), ds.FilterLength(), ds.Count())

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Azimuth\tElevation\tPeak L [dB]\tPeak R [dB]\tITD [us]\n")
	fmt.Fprintf(tw, "-------\t---------\t-----------\t-----------\t--------\n")

	f := hrtf.NewFilter(ds.FilterLength())

	for _, m := range ds.Measurements() {
		pos := binaural.Position{AzimuthDeg: m.AzimuthDeg, ElevationDeg: m.ElevationDeg, Distance: 1}

		dir := pos.Direction()
		if err := ds.Lookup(dir.X, dir.Y, dir.Z, f); err != nil {
			return err
		}

		itd := float64(peakIndex(f.Right)-peakIndex(f.Left)) / ds.SampleRate() * 1e6

		fmt.Fprintf(tw, "%.0f\t%.0f\t%.2f\t%.2f\t%+.0f\n",
			m.AzimuthDeg, m.ElevationDeg, db(peak(f.Left)), db(peak(f.Right)), itd)
	}

	return tw.Flush()
}

func peak(data []float64) float64 {
	p := 0.0
	for _, v := range data {
		if a := math.Abs(v); a > p {
			p = a
		}
	}

	return p
}

func peakIndex(data []float64) int {
	idx, p := 0, 0.0
	for i, v := range data {
		if a := math.Abs(v); a > p {
			p, idx = a, i
		}
	}

	return idx
}

func db(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(v)
}
