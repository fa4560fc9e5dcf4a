package hrtf

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-binaural/audiofile"
	"github.com/cwbudde/algo-binaural/resample"
)

// LoadOption mutates directory loading parameters.
type LoadOption func(*loadConfig) error

type loadConfig struct {
	filterLen int
	quality   resample.Quality
}

// WithFilterLength forces the loaded responses to the given per-ear length.
// Longer responses are trimmed with a short fade-out, shorter ones are
// zero-padded. Without this option the longest response sets the length.
func WithFilterLength(n int) LoadOption {
	return func(cfg *loadConfig) error {
		if n <= 0 {
			return fmt.Errorf("%w: filter length must be > 0, got %d", ErrFilterSize, n)
		}

		cfg.filterLen = n

		return nil
	}
}

// WithResampleQuality selects the quality mode used when a file's rate
// differs from the requested dataset rate.
func WithResampleQuality(q resample.Quality) LoadOption {
	return func(cfg *loadConfig) error {
		cfg.quality = q
		return nil
	}
}

// LoadDirectory builds a dataset from stereo WAV impulse responses found in
// dir. File names encode the measurement position as az<deg>_el<deg>.wav,
// for example az090_el45.wav or az270_el-20.wav; other files are ignored.
// Responses recorded at a different sample rate are converted to the
// requested rate.
func LoadDirectory(dir string, sampleRate float64, opts ...LoadOption) (*Dataset, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("hrtf load sample rate must be > 0 and finite: %f", sampleRate)
	}

	cfg := loadConfig{quality: resample.QualityBalanced}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		err := opt(&cfg)
		if err != nil {
			return nil, err
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("hrtf: read directory: %w", err)
	}

	type rawResponse struct {
		azimuthDeg   float64
		elevationDeg float64
		left         []float64
		right        []float64
	}

	var (
		raws   []rawResponse
		maxLen int
	)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		azDeg, elDeg, ok := parseResponseName(entry.Name())
		if !ok {
			continue
		}

		clip, err := audiofile.Decode(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("hrtf: read %s: %w", entry.Name(), err)
		}

		if clip.Channels() != 2 {
			return nil, fmt.Errorf("hrtf: %s: need a stereo response, got %d channels",
				entry.Name(), clip.Channels())
		}

		left, right := clip.Samples[0], clip.Samples[1]

		if fileRate := float64(clip.SampleRate); fileRate != sampleRate {
			left, err = resample.Resample(left, fileRate, sampleRate, resample.WithQuality(cfg.quality))
			if err != nil {
				return nil, fmt.Errorf("hrtf: resample %s: %w", entry.Name(), err)
			}

			right, err = resample.Resample(right, fileRate, sampleRate, resample.WithQuality(cfg.quality))
			if err != nil {
				return nil, fmt.Errorf("hrtf: resample %s: %w", entry.Name(), err)
			}
		}

		if len(left) > maxLen {
			maxLen = len(left)
		}

		raws = append(raws, rawResponse{
			azimuthDeg:   azDeg,
			elevationDeg: elDeg,
			left:         left,
			right:        right,
		})
	}

	if len(raws) == 0 {
		return nil, fmt.Errorf("%w: no az<deg>_el<deg>.wav responses in %s", ErrEmptyDataset, dir)
	}

	filterLen := cfg.filterLen
	if filterLen == 0 {
		filterLen = maxLen
	}

	ds, err := NewDataset(sampleRate, filterLen)
	if err != nil {
		return nil, err
	}

	for _, raw := range raws {
		err := ds.Add(raw.azimuthDeg, raw.elevationDeg,
			fitLength(raw.left, filterLen), fitLength(raw.right, filterLen))
		if err != nil {
			return nil, err
		}
	}

	return ds, nil
}

// parseResponseName extracts the encoded position from a file name like
// az090_el45.wav. Case-insensitive; leading zeros and negative elevations
// are accepted.
func parseResponseName(name string) (azimuthDeg, elevationDeg float64, ok bool) {
	base := strings.ToLower(name)
	if !strings.HasSuffix(base, ".wav") {
		return 0, 0, false
	}

	base = strings.TrimSuffix(base, ".wav")

	var az, el int
	if _, err := fmt.Sscanf(base, "az%d_el%d", &az, &el); err != nil {
		return 0, 0, false
	}

	return float64(az), float64(el), true
}

// fitLength pads with zeros or trims with a short linear fade-out so every
// stored response has exactly n samples.
func fitLength(ir []float64, n int) []float64 {
	if len(ir) == n {
		return ir
	}

	out := make([]float64, n)
	copy(out, ir)

	if len(ir) > n {
		fade := min(16, n)
		for i := range fade {
			out[n-fade+i] *= 1 - float64(i+1)/float64(fade)
		}
	}

	return out
}
