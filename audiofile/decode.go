package audiofile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Decode reads an audio file into memory, picking the decoder by file
// extension. Supported extensions: .wav, .wave, .aif, .aiff, .mp3, .ogg
// and .oga.
func Decode(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audiofile: open: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return decodeWAV(f)
	case ".aif", ".aiff":
		return decodeAIFF(f)
	case ".mp3":
		return decodeMP3(f)
	case ".ogg", ".oga":
		return decodeVorbis(f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// normalizer returns the divisor converting integer PCM of the given bit
// depth to [-1, 1].
func normalizer(bits int) (float64, error) {
	switch bits {
	case 16:
		return 32768, nil
	case 24:
		return 8388608, nil
	case 32:
		return 2147483648, nil
	default:
		return 0, fmt.Errorf("audiofile: unsupported bit depth %d", bits)
	}
}
