package lensprofile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func validIntrinsics() *Intrinsics {
	return &Intrinsics{
		Fx: 1796.32, Fy: 1797.22, Cx: 1919.37, Cy: 1063.17,
		Distortion: []float64{0.0342, 0.0676, -0.0740, 0.0299},
	}
}

func TestIntrinsicsCheckValid(t *testing.T) {
	test.That(t, validIntrinsics().CheckValid(), test.ShouldBeNil)

	var nilIntr *Intrinsics
	err := nilIntr.CheckValid()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrNoIntrinsics), test.ShouldBeTrue)

	bad := validIntrinsics()
	bad.Fx = 0
	test.That(t, bad.CheckValid(), test.ShouldNotBeNil)

	bad = validIntrinsics()
	bad.Distortion = []float64{1, 2, 3}
	err = bad.CheckValid()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "exactly 4")
}

func TestIntrinsicsPassthrough(t *testing.T) {
	intr := validIntrinsics()
	test.That(t, intr.Passthrough(), test.ShouldBeFalse)
	intr.Distortion = []float64{0, 0, 0, 0}
	test.That(t, intr.Passthrough(), test.ShouldBeTrue)
}

func TestLensProfileCheckValid(t *testing.T) {
	profile := &LensProfile{
		ID:          "single",
		ImageWidth:  4096,
		ImageHeight: 1800,
		Left:        validIntrinsics(),
	}
	test.That(t, profile.CheckValid(), test.ShouldBeNil)

	// split mode needs a split point inside (0,1) and right intrinsics
	profile.SplitMode = true
	profile.SplitPoint = 0
	test.That(t, profile.CheckValid(), test.ShouldNotBeNil)

	profile.SplitPoint = 0.5
	err := profile.CheckValid()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "right intrinsics")

	profile.Right = validIntrinsics()
	test.That(t, profile.CheckValid(), test.ShouldBeNil)

	profile.BlendWidth = 0.2
	err = profile.CheckValid()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "blend width")
}

func TestProfileRangesFallBack(t *testing.T) {
	profile := &LensProfile{ID: "bare", ImageWidth: 64, ImageHeight: 36, Left: validIntrinsics()}
	test.That(t, profile.YawRange(), test.ShouldEqual, DefaultYawRangeDegs)
	test.That(t, profile.PitchRange(), test.ShouldEqual, DefaultPitchRangeDegs)

	profile.YawRangeDegs = 150
	profile.PitchRangeDegs = 70
	test.That(t, profile.YawRange(), test.ShouldEqual, 150.0)
	test.That(t, profile.PitchRange(), test.ShouldEqual, 70.0)
}

func TestNewLensProfileFromJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.json")
	doc := `{
		"id": "gopro-dual",
		"label": "GoPro dual rig",
		"image_width": 4096,
		"image_height": 1800,
		"split_mode": true,
		"split_point": 0.5,
		"blend_width": 0.02,
		"left_intrinsics": {"fx": 2048, "fy": 1800, "cx": 1024, "cy": 900, "distortion": [0, 0, 0, 0]},
		"right_intrinsics": {"fx": 2048, "fy": 1800, "cx": 1024, "cy": 900, "distortion": [0.1, 0, 0, 0]}
	}`
	test.That(t, os.WriteFile(path, []byte(doc), 0o644), test.ShouldBeNil)

	profile, err := NewLensProfileFromJSONFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, profile.ID, test.ShouldEqual, "gopro-dual")
	test.That(t, profile.SplitMode, test.ShouldBeTrue)
	test.That(t, profile.Left.Passthrough(), test.ShouldBeTrue)
	test.That(t, profile.Right.Passthrough(), test.ShouldBeFalse)
	test.That(t, profile.AspectRatio(), test.ShouldAlmostEqual, 1800.0/4096, 1e-12)

	// an invalid document fails loudly at load time
	test.That(t, os.WriteFile(path, []byte(`{"id":"broken","image_width":0}`), 0o644), test.ShouldBeNil)
	_, err = NewLensProfileFromJSONFile(path)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewLensProfileFromJSONFile(filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}
