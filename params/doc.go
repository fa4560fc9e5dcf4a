// Package params smooths the position controls of a binaural source.
//
// Abrupt parameter jumps cause zipper noise, so each control approaches
// its target along a one-pole exponential curve, advanced once per audio
// block. Targets are stored atomically and may be set from any goroutine;
// only Snapshot, Position and Reset belong to the rendering goroutine.
package params
