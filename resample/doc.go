// Package resample provides one-shot rational sample-rate conversion using
// polyphase FIR filtering with anti-aliasing defaults. It is sized for short
// buffers such as impulse responses: conversion is group-delay compensated
// and the signal edges are treated as zero-padded.
//
// Quality modes:
//   - QualityFast: lower CPU, lower attenuation
//   - QualityBalanced: default mode
//   - QualityBest: higher attenuation and flatter passband
//
// Default quality/performance matrix:
//
//	mode            taps/phase   nominal stopband
//	QualityFast     16           ~55 dB
//	QualityBalanced 32           ~75 dB
//	QualityBest     64           ~90 dB
//
// Common workflows:
//   - Resample(input, inRate, outRate, opts...)
//   - ResampleRational(input, up, down, opts...)
package resample
