// Package hrtf provides head-related impulse response filters and the
// sources that produce them.
//
// A [Filter] is one response pair (left ear, right ear) of fixed length.
// Filters come from one of two sources:
//
//   - [SphericalModel] synthesizes responses from a rigid-sphere head
//     approximation (Woodworth interaural delay, angle-dependent head-shadow
//     lowpass, 1/distance gain). It needs no data files.
//   - [Dataset] stores measured response pairs tagged with azimuth and
//     elevation and resolves lookups to the nearest measurement.
//
// Datasets are built in memory with [NewDataset] and [Dataset.Add], loaded
// from a directory of stereo WAV responses with [LoadDirectory] (file names
// encode the position, az<deg>_el<deg>.wav, and rates are converted on
// load), or sampled from a model onto a regular grid with [Synthesize].
//
// Both sources share the same lookup shape: the caller owns the destination
// filter and Lookup fills it without allocating, so lookups are safe inside
// an audio callback.
//
// # Coordinates
//
// Positions use the listener frame: +x forward, +y left, +z up, distances
// in meters. Azimuth in degrees turns counterclockwise from +x toward +y;
// elevation in degrees rises from the horizontal plane.
package hrtf
