package hrtf

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// ErrEmptyDataset indicates a lookup against a dataset with no measurements.
var ErrEmptyDataset = errors.New("hrtf: empty dataset")

// Measurement describes one stored response position in degrees.
type Measurement struct {
	AzimuthDeg   float64
	ElevationDeg float64
}

type datasetPoint struct {
	azimuthDeg   float64
	elevationDeg float64

	// unit direction vector of the measurement
	ux, uy, uz float64

	left  []float64
	right []float64
}

// Dataset is an in-memory set of measured head-related impulse response
// pairs tagged with their direction. Lookup picks the nearest measurement by
// angle and applies 1/distance gain; it does not allocate, so it is safe on
// the audio thread.
type Dataset struct {
	sampleRate float64
	filterLen  int
	points     []datasetPoint
}

// NewDataset creates an empty dataset for responses of the given per-ear
// length at the given sample rate.
func NewDataset(sampleRate float64, filterLen int) (*Dataset, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("hrtf dataset sample rate must be > 0 and finite: %f", sampleRate)
	}

	if filterLen <= 0 {
		return nil, fmt.Errorf("%w: filter length must be > 0, got %d", ErrFilterSize, filterLen)
	}

	return &Dataset{
		sampleRate: sampleRate,
		filterLen:  filterLen,
	}, nil
}

// Add stores one measured response pair. The azimuth is normalized into
// [0, 360); both buffers are copied and must match the dataset filter
// length. A position may be stored only once.
func (d *Dataset) Add(azimuthDeg, elevationDeg float64, left, right []float64) error {
	if math.IsNaN(azimuthDeg) || math.IsInf(azimuthDeg, 0) ||
		math.IsNaN(elevationDeg) || math.IsInf(elevationDeg, 0) {
		return fmt.Errorf("hrtf dataset position must be finite: az=%f el=%f", azimuthDeg, elevationDeg)
	}

	if len(left) != d.filterLen || len(right) != d.filterLen {
		return fmt.Errorf("%w: got left %d right %d, want %d",
			ErrFilterSize, len(left), len(right), d.filterLen)
	}

	azimuthDeg = math.Mod(azimuthDeg, 360)
	if azimuthDeg < 0 {
		azimuthDeg += 360
	}

	for i := range d.points {
		if d.points[i].azimuthDeg == azimuthDeg && d.points[i].elevationDeg == elevationDeg {
			return fmt.Errorf("hrtf dataset already holds a response for az=%g el=%g", azimuthDeg, elevationDeg)
		}
	}

	az := azimuthDeg * math.Pi / 180
	el := elevationDeg * math.Pi / 180

	p := datasetPoint{
		azimuthDeg:   azimuthDeg,
		elevationDeg: elevationDeg,
		ux:           math.Cos(el) * math.Cos(az),
		uy:           math.Cos(el) * math.Sin(az),
		uz:           math.Sin(el),
		left:         append([]float64(nil), left...),
		right:        append([]float64(nil), right...),
	}

	d.points = append(d.points, p)

	return nil
}

// SampleRate returns the dataset sample rate.
func (d *Dataset) SampleRate() float64 { return d.sampleRate }

// FilterLength returns the per-ear coefficient count.
func (d *Dataset) FilterLength() int { return d.filterLen }

// Count returns the number of stored measurements.
func (d *Dataset) Count() int { return len(d.points) }

// Measurements lists the stored positions in insertion order.
func (d *Dataset) Measurements() []Measurement {
	out := make([]Measurement, len(d.points))
	for i, p := range d.points {
		out[i] = Measurement{AzimuthDeg: p.azimuthDeg, ElevationDeg: p.elevationDeg}
	}

	return out
}

// Lookup copies the measurement nearest to the direction of (x, y, z) into
// dst, scaled by 1/distance. Nearest means the largest dot product between
// the normalized position and the measurement direction.
func (d *Dataset) Lookup(x, y, z float64, dst *Filter) error {
	if dst == nil || len(dst.Left) != d.filterLen || len(dst.Right) != d.filterLen {
		return fmt.Errorf("%w: destination must hold %d samples per ear", ErrFilterSize, d.filterLen)
	}

	if len(d.points) == 0 {
		return ErrEmptyDataset
	}

	dist := math.Sqrt(x*x + y*y + z*z)
	if dist <= 0 || math.IsNaN(dist) || math.IsInf(dist, 0) {
		return fmt.Errorf("%w: (%g, %g, %g)", ErrInvalidPosition, x, y, z)
	}

	ux, uy, uz := x/dist, y/dist, z/dist

	best := 0
	bestDot := math.Inf(-1)

	for i := range d.points {
		p := &d.points[i]

		dot := ux*p.ux + uy*p.uy + uz*p.uz
		if dot > bestDot {
			bestDot = dot
			best = i
		}
	}

	p := &d.points[best]
	gain := 1 / dist

	vecmath.ScaleBlock(dst.Left, p.left, gain)
	vecmath.ScaleBlock(dst.Right, p.right, gain)

	return nil
}

// Synthesize samples a spherical head model onto a regular az/el grid and
// returns the result as a measured-style dataset. Useful as a builtin
// dataset when no measured responses are available.
func Synthesize(model *SphericalModel, azStepDeg, elStepDeg float64) (*Dataset, error) {
	if model == nil {
		return nil, errors.New("hrtf: nil model")
	}

	if azStepDeg <= 0 || azStepDeg > 360 || math.IsNaN(azStepDeg) {
		return nil, fmt.Errorf("hrtf synthesize azimuth step must be in (0, 360]: %f", azStepDeg)
	}

	if elStepDeg <= 0 || elStepDeg > 180 || math.IsNaN(elStepDeg) {
		return nil, fmt.Errorf("hrtf synthesize elevation step must be in (0, 180]: %f", elStepDeg)
	}

	ds, err := NewDataset(model.SampleRate(), model.FilterLength())
	if err != nil {
		return nil, err
	}

	tmp := NewFilter(model.FilterLength())

	for el := 0.0; el <= 180+1e-9; el += elStepDeg {
		// At the zenith every azimuth collapses onto the same direction.
		polar := math.Abs(math.Cos(el*math.Pi/180)) < 1e-9

		for az := 0.0; az < 360-1e-9; az += azStepDeg {
			x, y, z := directionVector(az, el)

			if err := model.Lookup(x, y, z, tmp); err != nil {
				return nil, fmt.Errorf("hrtf: synthesize az=%g el=%g: %w", az, el, err)
			}

			if err := ds.Add(az, el, tmp.Left, tmp.Right); err != nil {
				return nil, err
			}

			if polar {
				break
			}
		}
	}

	return ds, nil
}

// directionVector converts degrees to a unit vector, elevation measured
// from the horizontal plane.
func directionVector(azimuthDeg, elevationDeg float64) (x, y, z float64) {
	az := azimuthDeg * math.Pi / 180
	el := elevationDeg * math.Pi / 180

	return math.Cos(el) * math.Cos(az), math.Cos(el) * math.Sin(az), math.Sin(el)
}
