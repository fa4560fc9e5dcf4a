// Package render convolves a mono stream with stereo impulse response
// pairs in real time.
//
// The engine uses uniformly partitioned overlap-save convolution. The
// filter is cut into equal partitions, each transformed once at install
// time, and input spectra are kept in a frequency-domain delay line. Every
// partition boundary then costs one forward FFT plus one inverse FFT per
// ear, independent of the filter length, which keeps long head-related
// impulse responses affordable at small block sizes.
//
// # Latency
//
// Output trails input by exactly one partition. With the default partition
// length of 32 that is 32 samples, or two thirds of a millisecond at 48 kHz.
//
// # Filter updates
//
// SetFilter may be called between blocks on the processing goroutine. The
// new spectra are written into a standby set and swapped in on the next
// partition boundary, blended over one partition unless crossfading is
// disabled. Installing a filter never allocates and never disturbs the
// partition currently being rendered.
package render
