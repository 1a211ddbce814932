package lensprofile

import (
	"testing"

	"go.viam.com/test"
)

func validExchange() *ExchangeProfile {
	return &ExchangeProfile{
		ID:              "gopro-hero10black-linear-3840x2160",
		CameraBrand:     "GoPro",
		CameraModel:     "HERO10 Black",
		LensModel:       "Linear",
		Resolution:      Resolution{Width: 3840, Height: 2160},
		DistortionModel: FisheyeKB4Model,
		CameraMatrix: CameraMatrix{
			Fx: 1796.3208206894308,
			Fy: 1797.22277342282,
			Cx: 1919.372365976781,
			Cy: 1063.171593155705,
		},
		DistortionCoeffs: []float64{0.03421388, 0.0676732, -0.0740897, 0.02994442},
	}
}

func TestExchangeCheckValid(t *testing.T) {
	test.That(t, validExchange().CheckValid(), test.ShouldBeNil)

	for _, tc := range []struct {
		name   string
		mutate func(*ExchangeProfile)
		want   string
	}{
		{"empty id", func(ep *ExchangeProfile) { ep.ID = "" }, "lowercase"},
		{"uppercase id", func(ep *ExchangeProfile) { ep.ID = "GoPro" }, "lowercase"},
		{"leading hyphen", func(ep *ExchangeProfile) { ep.ID = "-gopro" }, "hyphen"},
		{"trailing hyphen", func(ep *ExchangeProfile) { ep.ID = "gopro-" }, "hyphen"},
		{"missing brand", func(ep *ExchangeProfile) { ep.CameraBrand = "" }, "camera_brand"},
		{"missing model", func(ep *ExchangeProfile) { ep.CameraModel = "" }, "camera_model"},
		{"zero resolution", func(ep *ExchangeProfile) { ep.Resolution.Width = 0 }, "resolution"},
		{"wrong distortion model", func(ep *ExchangeProfile) { ep.DistortionModel = "brown_conrady" }, FisheyeKB4Model},
		{"negative fx", func(ep *ExchangeProfile) { ep.CameraMatrix.Fx = -1 }, "camera_matrix.fx"},
		{"zero cy", func(ep *ExchangeProfile) { ep.CameraMatrix.Cy = 0 }, "camera_matrix.cy"},
		{"three coeffs", func(ep *ExchangeProfile) { ep.DistortionCoeffs = []float64{1, 2, 3} }, "exactly 4"},
		{"bad calib dimension", func(ep *ExchangeProfile) { ep.CalibDimension = &Resolution{Width: -1, Height: 2} }, "calib_dimension"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ep := validExchange()
			tc.mutate(ep)
			err := ep.CheckValid()
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.want)
		})
	}
}

func TestExchangeIDLength(t *testing.T) {
	ep := validExchange()
	long := make([]byte, 101)
	for i := range long {
		long[i] = 'a'
	}
	ep.ID = string(long)
	test.That(t, ep.CheckValid(), test.ShouldNotBeNil)
	ep.ID = string(long[:100])
	test.That(t, ep.CheckValid(), test.ShouldBeNil)
}

func TestDecodeExchangeProfile(t *testing.T) {
	doc := `{
		"id": "insta360-x3-5760x2880",
		"camera_brand": "Insta360",
		"camera_model": "X3",
		"resolution": {"width": 5760, "height": 2880},
		"distortion_model": "fisheye_kb4",
		"camera_matrix": {"fx": 1440.5, "fy": 1441.1, "cx": 2880.2, "cy": 1440.9},
		"distortion_coeffs": [0.03, 0.01, -0.002, 0.0004],
		"metadata": {"calibrated_by": "Jane Doe", "notes": "28 images"}
	}`
	ep, err := DecodeExchangeProfile([]byte(doc))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ep.ID, test.ShouldEqual, "insta360-x3-5760x2880")
	test.That(t, ep.Metadata["calibrated_by"], test.ShouldEqual, "Jane Doe")

	_, err = DecodeExchangeProfile([]byte(`{`))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = DecodeExchangeProfile([]byte(`{"id":"x","distortion_model":"fisheye_kb4"}`))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestExchangeIntrinsics(t *testing.T) {
	ep := validExchange()
	intr, err := ep.Intrinsics()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, intr.Fx, test.ShouldEqual, ep.CameraMatrix.Fx)
	test.That(t, intr.Distortion, test.ShouldResemble, ep.DistortionCoeffs)
	test.That(t, intr.CheckValid(), test.ShouldBeNil)

	// calibration at half resolution rescales focal scale and center
	ep.CalibDimension = &Resolution{Width: 1920, Height: 1080}
	intr, err = ep.Intrinsics()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, intr.Fx, test.ShouldAlmostEqual, ep.CameraMatrix.Fx*2, 1e-9)
	test.That(t, intr.Cy, test.ShouldAlmostEqual, ep.CameraMatrix.Cy*2, 1e-9)
	// distortion coefficients are dimensionless and stay put
	test.That(t, intr.Distortion, test.ShouldResemble, ep.DistortionCoeffs)
}
