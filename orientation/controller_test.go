package orientation

import (
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/reco-project/video-stitcher-sub001/lensprofile"
)

func testLimits() Limits {
	return Limits{
		YawRangeDegs:    180,
		PitchRangeDegs:  90,
		MinFOVDegs:      30,
		MaxFOVDegs:      100,
		PanSensitivity:  DefaultPanSensitivity,
		ZoomSensitivity: DefaultZoomSensitivity,
	}
}

func TestNewState(t *testing.T) {
	s := NewState(testLimits())
	yaw, pitch, roll := s.YawPitchRoll()
	test.That(t, yaw, test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, pitch, test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, roll, test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, s.FOVDegs, test.ShouldEqual, DefaultFOVDegs)

	// the default field of view clamps into a narrower window
	narrow := testLimits()
	narrow.MaxFOVDegs = 60
	s = NewState(narrow)
	test.That(t, s.FOVDegs, test.ShouldEqual, 60.0)
}

func TestDragPansView(t *testing.T) {
	lim := testLimits()
	s := NewState(lim)
	s = BeginDrag(s, 100, 100)
	s = UpdateDrag(s, lim, 200, 100)

	yaw, pitch, _ := s.YawPitchRoll()
	// 100 px at 0.1 deg/px
	test.That(t, yaw, test.ShouldAlmostEqual, 10, 1e-9)
	test.That(t, pitch, test.ShouldAlmostEqual, 0, 1e-9)

	s = UpdateDrag(s, lim, 200, 150)
	yaw, pitch, roll := s.YawPitchRoll()
	test.That(t, yaw, test.ShouldAlmostEqual, 10, 1e-9)
	test.That(t, pitch, test.ShouldAlmostEqual, 5, 1e-9)
	test.That(t, roll, test.ShouldAlmostEqual, 0, 1e-9)
}

func TestDragClampsSingleLargeDelta(t *testing.T) {
	lim := testLimits()
	for _, delta := range []float64{1e3, -1e3, 4e4, -4e4} {
		s := NewState(lim)
		s = BeginDrag(s, 0, 0)
		s = UpdateDrag(s, lim, delta, delta)
		yaw, pitch, _ := s.YawPitchRoll()
		test.That(t, yaw, test.ShouldBeBetweenOrEqual, -90.0, 90.0)
		test.That(t, pitch, test.ShouldBeBetweenOrEqual, -45.0, 45.0)
	}
}

func TestDragClampCannotBeBypassedByManySmallDeltas(t *testing.T) {
	lim := testLimits()
	s := NewState(lim)
	s = BeginDrag(s, 0, 0)
	// keep nudging past the edge, 1 degree at a time
	for i := 1; i <= 2000; i++ {
		s = UpdateDrag(s, lim, float64(i)*10, 0)
		yaw, _, _ := s.YawPitchRoll()
		test.That(t, yaw, test.ShouldBeBetweenOrEqual, -90.0, 90.0)
	}
	yaw, _, _ := s.YawPitchRoll()
	test.That(t, yaw, test.ShouldAlmostEqual, 90, 1e-9)
}

func TestMoveWithoutBeginIsNoOp(t *testing.T) {
	lim := testLimits()
	s := NewState(lim)
	before := s
	s = UpdateDrag(s, lim, 500, 500)
	test.That(t, s, test.ShouldResemble, before)

	// and ending a drag that never began changes nothing either
	s = EndDrag(s)
	test.That(t, s.Dragging, test.ShouldBeFalse)
}

func TestEndDragKeepsOrientation(t *testing.T) {
	lim := testLimits()
	s := NewState(lim)
	s = BeginDrag(s, 0, 0)
	s = UpdateDrag(s, lim, 300, 0)
	yawBefore, _, _ := s.YawPitchRoll()
	s = EndDrag(s)
	yawAfter, _, _ := s.YawPitchRoll()
	test.That(t, yawAfter, test.ShouldEqual, yawBefore)

	// deltas after the drag ended no longer apply
	s = UpdateDrag(s, lim, 600, 0)
	yawFinal, _, _ := s.YawPitchRoll()
	test.That(t, yawFinal, test.ShouldEqual, yawAfter)
}

func TestZoomClamp(t *testing.T) {
	lim := testLimits()
	s := NewState(lim)
	for i := 0; i < 1000; i++ {
		s = Zoom(s, lim, 120)
		test.That(t, s.FOVDegs, test.ShouldBeBetweenOrEqual, lim.MinFOVDegs, lim.MaxFOVDegs)
	}
	test.That(t, s.FOVDegs, test.ShouldEqual, lim.MaxFOVDegs)
	for i := 0; i < 5000; i++ {
		s = Zoom(s, lim, -120)
		test.That(t, s.FOVDegs, test.ShouldBeBetweenOrEqual, lim.MinFOVDegs, lim.MaxFOVDegs)
	}
	test.That(t, s.FOVDegs, test.ShouldEqual, lim.MinFOVDegs)
}

func TestLimitsForProfile(t *testing.T) {
	profile := &lensprofile.LensProfile{
		ID:             "declared",
		ImageWidth:     64,
		ImageHeight:    36,
		YawRangeDegs:   120,
		PitchRangeDegs: 60,
	}
	lim := LimitsForProfile(profile, 40, 90)
	test.That(t, lim.YawRangeDegs, test.ShouldEqual, 120.0)
	test.That(t, lim.PitchRangeDegs, test.ShouldEqual, 60.0)
	test.That(t, lim.MinFOVDegs, test.ShouldEqual, 40.0)
	test.That(t, lim.MaxFOVDegs, test.ShouldEqual, 90.0)

	// profiles without declared ranges fall back to the defaults
	lim = LimitsForProfile(&lensprofile.LensProfile{ID: "bare", ImageWidth: 1, ImageHeight: 1}, 40, 90)
	test.That(t, lim.YawRangeDegs, test.ShouldEqual, lensprofile.DefaultYawRangeDegs)
	test.That(t, lim.PitchRangeDegs, test.ShouldEqual, lensprofile.DefaultPitchRangeDegs)
}

func TestEulerRoundTrip(t *testing.T) {
	for _, angles := range [][3]float64{
		{0, 0, 0},
		{30, 20, 0},
		{-45, 10, 5},
		{89, -44, -3},
	} {
		yaw := angles[0] * math.Pi / 180
		pitch := angles[1] * math.Pi / 180
		roll := angles[2] * math.Pi / 180
		q := yawPitchRollToQuat(yaw, pitch, roll)
		gotYaw, gotPitch, gotRoll := quatToYawPitchRoll(q)
		test.That(t, gotYaw, test.ShouldAlmostEqual, yaw, 1e-9)
		test.That(t, gotPitch, test.ShouldAlmostEqual, pitch, 1e-9)
		test.That(t, gotRoll, test.ShouldAlmostEqual, roll, 1e-9)
	}
}
