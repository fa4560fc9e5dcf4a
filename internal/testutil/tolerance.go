package testutil

import (
	"math"
	"testing"
)

// RequireSliceNearlyEqual fails t when got and want differ in length or when
// any element pair differs by more than eps. On failure it reports the worst
// offender rather than the first.
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}

	worst, at := 0.0, -1

	for i := range got {
		if d := math.Abs(got[i] - want[i]); d > worst {
			worst, at = d, i
		}
	}

	if worst > eps {
		t.Fatalf("index %d: got %v, want %v (diff %v > eps %v)", at, got[at], want[at], worst, eps)
	}
}

// RequireStereoNearlyEqual checks a rendered stereo pair against a reference
// pair with the same tolerance on both ears.
func RequireStereoNearlyEqual(t *testing.T, gotL, gotR, wantL, wantR []float64, eps float64) {
	t.Helper()

	RequireSliceNearlyEqual(t, gotL, wantL, eps)
	RequireSliceNearlyEqual(t, gotR, wantR, eps)
}

// RequireFinite fails t when any channel contains a NaN or Inf sample.
func RequireFinite(t *testing.T, channels ...[]float64) {
	t.Helper()

	for c, ch := range channels {
		for i, v := range ch {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("channel %d index %d: non-finite value %v", c, i, v)
			}
		}
	}
}

// MaxAbs returns the largest absolute sample value, 0 for an empty slice.
func MaxAbs(data []float64) float64 {
	peak := 0.0
	for _, v := range data {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}

	return peak
}
