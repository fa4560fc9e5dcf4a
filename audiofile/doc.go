// Package audiofile reads audio clips from common file formats and
// writes rendered output as 16-bit stereo WAV.
//
// Decoding supports WAV, AIFF, MP3, and Ogg Vorbis, dispatched on the
// file extension. Decoded samples are normalized to float64 in [-1, 1]
// regardless of the source bit depth, one slice per channel.
package audiofile
