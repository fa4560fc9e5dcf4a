// Command binaural renders mono audio to positional stereo through an
// HRTF filter chain.
//
// The filters come from a built-in spherical head model or from a
// directory of measured impulse responses. The source position can be
// fixed, orbit the listener, or follow a keyframed scene file.
package main

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const envLogLevel = "BINAURAL_LOG_LEVEL"

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "binaural",
	Short: "Position mono audio in 3D space for headphone playback",
	Long: `binaural renders mono audio through an HRTF filter chain so the
source appears at a chosen direction and distance when heard on
headphones.

Positions use degrees: azimuth 0 is straight ahead and grows
counterclockwise (90 is hard left), elevation 0 is the horizontal
plane and 180 continues over the top of the head to the rear.
Distance is in meters between 0.1 and 1.0.

Examples:
  binaural render -i voice.wav -o out.wav --azimuth 90
  binaural render -i voice.wav -o out.wav --scene sweep.toml
  binaural play -i voice.wav --orbit 30
  binaural info --hrtf-dir ./kemar`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

var verbose bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(infoCmd)
}

// setupLogging routes structured logs to stderr, keeping stdout for
// command output. The BINAURAL_LOG_LEVEL environment variable overrides
// the --verbose flag.
func setupLogging() {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	if lvl, ok := parseLogLevel(os.Getenv(envLogLevel)); ok {
		level = lvl
	}

	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.TimeOnly,
	}).Level(level).With().Timestamp().Logger()
}

func parseLogLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}
