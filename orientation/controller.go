// Package orientation tracks the pointer-driven viewing state of the
// panoramic viewport: yaw and pitch from dragging, field of view from
// zooming, all range-clamped. State is an explicit value passed through pure
// update functions, so the clamp logic is testable without a pointer surface
// or a render loop. The active viewer owns exactly one State and discards it
// on teardown.
package orientation

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/reco-project/video-stitcher-sub001/lensprofile"
	"github.com/reco-project/video-stitcher-sub001/utils"
)

// Default pointer sensitivities, degrees per pixel of drag and degrees per
// wheel delta unit.
const (
	DefaultPanSensitivity  = 0.1
	DefaultZoomSensitivity = 0.05
)

// DefaultFOVDegs is the vertical field of view a fresh viewer opens with,
// before any zooming.
const DefaultFOVDegs = 75.0

// Limits bounds a viewer's travel. Yaw and pitch may wander half the
// profile's declared range to either side of center; field of view stays
// inside the viewer-level window.
type Limits struct {
	YawRangeDegs   float64
	PitchRangeDegs float64
	MinFOVDegs     float64
	MaxFOVDegs     float64

	PanSensitivity  float64
	ZoomSensitivity float64
}

// LimitsForProfile derives pan limits from a lens profile and viewer-level
// field of view bounds.
func LimitsForProfile(profile *lensprofile.LensProfile, minFOVDegs, maxFOVDegs float64) Limits {
	return Limits{
		YawRangeDegs:    profile.YawRange(),
		PitchRangeDegs:  profile.PitchRange(),
		MinFOVDegs:      minFOVDegs,
		MaxFOVDegs:      maxFOVDegs,
		PanSensitivity:  DefaultPanSensitivity,
		ZoomSensitivity: DefaultZoomSensitivity,
	}
}

// State is the complete viewing state. The zero value is not meaningful;
// start from NewState.
type State struct {
	Orientation quat.Number
	FOVDegs     float64

	// Dragging gates whether pointer deltas apply. Anchor is the last
	// pointer position while a drag is active.
	Dragging         bool
	AnchorX, AnchorY float64
}

// NewState returns a centered view at the default field of view, clamped
// into the limits' window.
func NewState(lim Limits) State {
	return State{
		Orientation: zeroRotation,
		FOVDegs:     utils.Clamp(DefaultFOVDegs, lim.MinFOVDegs, lim.MaxFOVDegs),
	}
}

// YawPitchRoll returns the current view angles in degrees.
func (s State) YawPitchRoll() (yaw, pitch, roll float64) {
	y, p, r := quatToYawPitchRoll(s.Orientation)
	const toDegs = 180 / math.Pi
	return y * toDegs, p * toDegs, r * toDegs
}

// BeginDrag anchors a drag at the given pointer position.
func BeginDrag(s State, x, y float64) State {
	s.Dragging = true
	s.AnchorX, s.AnchorY = x, y
	return s
}

// EndDrag releases the drag without changing the orientation. Ending a drag
// that never began is a no-op.
func EndDrag(s State) State {
	s.Dragging = false
	return s
}

// UpdateDrag applies the pointer delta since the anchor: a yaw rotation
// about world-vertical, then a pitch rotation about the post-yaw local
// horizontal axis, both pre-multiplied onto the current orientation. The
// combined orientation is then decomposed, clamped and rebuilt, so no
// sequence of small deltas can creep past the profile's ranges. A move
// without a preceding BeginDrag is a no-op, never an error.
func UpdateDrag(s State, lim Limits, x, y float64) State {
	if !s.Dragging {
		return s
	}
	deltaX := x - s.AnchorX
	deltaY := y - s.AnchorY
	s.AnchorX, s.AnchorY = x, y

	const toRads = math.Pi / 180
	yawDelta := deltaX * lim.PanSensitivity * toRads
	pitchDelta := deltaY * lim.PanSensitivity * toRads

	q := quat.Mul(axisAngleToQuat(r3.Vector{Y: 1}, yawDelta), s.Orientation)
	pitchAxis := rotateByQuat(r3.Vector{X: 1}, q)
	q = quat.Mul(axisAngleToQuat(pitchAxis, pitchDelta), q)

	yaw, pitch, roll := quatToYawPitchRoll(q)
	yaw = utils.Clamp(yaw, -lim.YawRangeDegs/2*toRads, lim.YawRangeDegs/2*toRads)
	pitch = utils.Clamp(pitch, -lim.PitchRangeDegs/2*toRads, lim.PitchRangeDegs/2*toRads)
	s.Orientation = yawPitchRollToQuat(yaw, pitch, roll)
	return s
}

// Zoom nudges the field of view by a wheel delta, clamped to the viewer
// window. Zooming during a drag is allowed and leaves the drag anchored.
func Zoom(s State, lim Limits, deltaY float64) State {
	s.FOVDegs = utils.Clamp(s.FOVDegs+deltaY*lim.ZoomSensitivity, lim.MinFOVDegs, lim.MaxFOVDegs)
	return s
}
