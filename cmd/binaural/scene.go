package main

import (
	"fmt"
	"math"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"

	"github.com/cwbudde/algo-binaural/binaural"
)

// automation yields the target source position at a time offset from the
// start of the stream. Smoothing happens downstream in params.Controls, so
// implementations may jump.
type automation interface {
	at(seconds float64) binaural.Position
}

type fixedAutomation struct {
	pos binaural.Position
}

func (f fixedAutomation) at(float64) binaural.Position { return f.pos }

// orbitAutomation circles the listener at a constant angular rate,
// keeping elevation and distance fixed.
type orbitAutomation struct {
	start     binaural.Position
	degPerSec float64
}

func (o orbitAutomation) at(seconds float64) binaural.Position {
	az := math.Mod(o.start.AzimuthDeg+o.degPerSec*seconds, 360)
	if az < 0 {
		az += 360
	}

	p := o.start
	p.AzimuthDeg = az

	return p
}

// scene is a keyframed source path. Between keyframes the position is
// interpolated linearly, with azimuth taking the shorter arc; outside the
// keyframed range the nearest keyframe holds.
type scene struct {
	frames       []sceneFrame
	smoothingMs  float64
	hasSmoothing bool
}

type sceneFrame struct {
	time float64
	pos  binaural.Position
}

type sceneKeyframe struct {
	Time      float64  `toml:"time"`
	Azimuth   *float64 `toml:"azimuth"`
	Elevation *float64 `toml:"elevation"`
	Distance  *float64 `toml:"distance"`
}

type sceneFile struct {
	SmoothingMs float64         `toml:"smoothing_ms"`
	Keyframes   []sceneKeyframe `toml:"keyframe"`
}

/// loadScene reads a keyframed source path from a TOML file:
//
//	smoothing_ms = 80   # optional, overrides --smoothing
//
//	[[keyframe]]
//	time = 0.0          # seconds from stream start
//	azimuth = 0
//	elevation = 0
//	distance = 1.0
//
//	[[keyframe]]
//	time = 4.0
//	azimuth = 180       # omitted fields carry over
//
// Keyframe times must increase strictly. Positions are clamped to the
// supported ranges.
func loadScene(path string) (*scene, error) {
	var raw sceneFile

	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}

	if len(raw.Keyframes) == 0 {
		return nil, fmt.Errorf("scene %s: no [[keyframe]] entries", path)
	}

	sc := &scene{}

	if meta.IsDefined("smoothing_ms") {
		if raw.SmoothingMs < 0 || math.IsNaN(raw.SmoothingMs) {
			return nil, fmt.Errorf("scene %s: smoothing_ms must be >= 0, got %f", path, raw.SmoothingMs)
		}

		sc.smoothingMs = raw.SmoothingMs
		sc.hasSmoothing = true
	}

	cur := binaural.DefaultPosition

	for i, kf := range raw.Keyframes {
		if kf.Time < 0 || math.IsNaN(kf.Time) {
			return nil, fmt.Errorf("scene %s: keyframe %d: time must be >= 0, got %f", path, i, kf.Time)
		}

		if i > 0 && kf.Time <= sc.frames[i-1].time {
			return nil, fmt.Errorf("scene %s: keyframe %d: time %g does not increase", path, i, kf.Time)
		}

		if kf.Azimuth != nil {
			cur.AzimuthDeg = *kf.Azimuth
		}

		if kf.Elevation != nil {
			cur.ElevationDeg = *kf.Elevation
		}

		if kf.Distance != nil {
			cur.Distance = *kf.Distance
		}

		sc.frames = append(sc.frames, sceneFrame{time: kf.Time, pos: cur.Clamp()})
	}

	return sc, nil
}

func (s *scene) at(seconds float64) binaural.Position {
	frames := s.frames

	if seconds <= frames[0].time {
		return frames[0].pos
	}

	if last := frames[len(frames)-1]; seconds >= last.time {
		return last.pos
	}

	i := sort.Search(len(frames), func(i int) bool { return frames[i].time > seconds }) - 1
	a, b := frames[i], frames[i+1]
	f := (seconds - a.time) / (b.time - a.time)

	return binaural.Position{
		AzimuthDeg:   lerpAngle(a.pos.AzimuthDeg, b.pos.AzimuthDeg, f),
		ElevationDeg: a.pos.ElevationDeg + (b.pos.ElevationDeg-a.pos.ElevationDeg)*f,
		Distance:     a.pos.Distance + (b.pos.Distance-a.pos.Distance)*f,
	}
}

// lerpAngle interpolates between two azimuths along the shorter arc, so a
// scene moving from 350 to 10 degrees passes through 0 rather than 180.
func lerpAngle(from, to, f float64) float64 {
	d := math.Mod(to-from+540, 360) - 180

	az := math.Mod(from+d*f, 360)
	if az < 0 {
		az += 360
	}

	return az
}

// buildAutomation resolves the position flags into a motion source and the
// effective smoothing time. A scene file wins over --orbit, which wins over
// the fixed position flags.
func buildAutomation() (automation, float64, error) {
	smoothing := smoothingMs

	if scenePath != "" {
		sc, err := loadScene(scenePath)
		if err != nil {
			return nil, 0, err
		}

		if sc.hasSmoothing {
			smoothing = sc.smoothingMs
		}

		log.Debug().Int("keyframes", len(sc.frames)).Str("scene", scenePath).Msg("loaded scene")

		return sc, smoothing, nil
	}

	start := binaural.Position{
		AzimuthDeg:   azimuthDeg,
		ElevationDeg: elevationDeg,
		Distance:     distanceM,
	}.Clamp()

	if orbitDegSec != 0 {
		return orbitAutomation{start: start, degPerSec: orbitDegSec}, smoothing, nil
	}

	return fixedAutomation{pos: start}, smoothing, nil
}
