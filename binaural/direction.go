package binaural

import "math"

// Position parameter ranges. Azimuth sweeps counterclockwise from straight
// ahead, elevation rises from the horizontal plane and continues over the
// top of the head, distance is measured in meters.
const (
	MinAzimuthDeg   = 0.0
	MaxAzimuthDeg   = 359.0
	MinElevationDeg = 0.0
	MaxElevationDeg = 180.0
	MinDistance     = 0.1
	MaxDistance     = 1.0
)

// DefaultPosition is straight ahead at one meter.
var DefaultPosition = Position{AzimuthDeg: 0, ElevationDeg: 0, Distance: 1}

// Position locates the source relative to the listener in spherical
// coordinates.
type Position struct {
	AzimuthDeg   float64
	ElevationDeg float64
	Distance     float64
}

// Clamp limits all three coordinates to their valid ranges.
func (p Position) Clamp() Position {
	return Position{
		AzimuthDeg:   clamp(p.AzimuthDeg, MinAzimuthDeg, MaxAzimuthDeg),
		ElevationDeg: clamp(p.ElevationDeg, MinElevationDeg, MaxElevationDeg),
		Distance:     clamp(p.Distance, MinDistance, MaxDistance),
	}
}

// Direction is the Cartesian source position in the listener frame: +x
// ahead, +y left, +z up. Its length equals the source distance.
type Direction struct {
	X, Y, Z float64
}

// Direction converts the spherical position to Cartesian coordinates.
func (p Position) Direction() Direction {
	az := p.AzimuthDeg * math.Pi / 180
	el := p.ElevationDeg * math.Pi / 180

	return Direction{
		X: p.Distance * math.Cos(el) * math.Cos(az),
		Y: p.Distance * math.Cos(el) * math.Sin(az),
		Z: p.Distance * math.Sin(el),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
