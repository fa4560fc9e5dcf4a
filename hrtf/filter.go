package hrtf

// Filter holds one head-related impulse response pair. Left and Right always
// have the same length. The buffers are plain slices so sources can fill
// them in place on the audio thread without allocating.
type Filter struct {
	Left  []float64
	Right []float64
}

// NewFilter allocates a zeroed filter pair of the given length.
func NewFilter(length int) *Filter {
	if length < 0 {
		length = 0
	}

	return &Filter{
		Left:  make([]float64, length),
		Right: make([]float64, length),
	}
}

// Len returns the per-ear coefficient count.
func (f *Filter) Len() int {
	if f == nil {
		return 0
	}

	return len(f.Left)
}

// CopyFrom copies both ears from src. Lengths must already match.
func (f *Filter) CopyFrom(src *Filter) {
	if f == nil || src == nil {
		return
	}

	copy(f.Left, src.Left)
	copy(f.Right, src.Right)
}
