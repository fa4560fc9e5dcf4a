// Package binaural positions a mono source in three-dimensional space
// around a listener and renders it to stereo through head-related filters.
//
// The Processor is the steering core: each audio block it turns the source
// position into a Cartesian direction, looks up a new filter pair when the
// direction actually changed, installs it on the convolution engine, and
// runs the engine over the block. Filter sources and engines are supplied
// through the FilterSource and Engine interfaces; the hrtf and render
// packages provide ready implementations.
//
// # Coordinates
//
// Positions are spherical: azimuth in degrees counterclockwise from
// straight ahead, elevation in degrees rising from the horizontal plane
// and continuing over the top of the head, distance in meters. In the
// Cartesian listener frame +x points ahead, +y left, +z up.
//
// # Error handling
//
// Initialization failures are fatal and leave the processor in its
// pass-through state. While rendering, a failed filter lookup is
// recoverable: the block is rendered with the previous filter and the
// failure is reported through the warn handler. A failed filter
// installation or engine error aborts the affected block; the processor
// stays ready and the next block retries.
package binaural
