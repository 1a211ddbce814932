// Package dewarp computes, for every output pixel of the panoramic viewport,
// the raw-frame coordinate its color is sampled from, removing lens
// distortion as it goes. Programs are resolved once per lens profile and are
// stateless afterwards, so they are safely re-evaluated every displayed frame.
package dewarp

import (
	"math"

	"github.com/pkg/errors"
)

// DistortionType is the name of the distortion model.
type DistortionType string

const (
	// RadialPolynomialType models planar radial distortion with four even
	// powers of the radius. Used by the full-frame and split-half programs.
	RadialPolynomialType = DistortionType("radial_polynomial")
	// FisheyeAngularType models distortion via the incidence angle rather
	// than the planar radius, suited to very wide lenses. Used by the
	// stacked dual-fisheye program.
	FisheyeAngularType = DistortionType("fisheye_angular")
)

// numCoeffs is the radial term count shared by both models.
const numCoeffs = 4

// DistortionModel scales a point on the normalized camera plane according to
// the lens model. Applying the forward polynomial to already-corrected
// coordinates locates where in the raw image the color lives; this is an
// approximation valid for small distortion, not an exact inverse. It is kept
// as is because every stored calibration was produced against this
// formulation.
type DistortionModel interface {
	ModelType() DistortionType
	CheckValid() error
	Parameters() []float64
	Transform(x, y float64) (float64, float64)
}

// InvalidDistortionError is used when the distortion parameters are invalid.
func InvalidDistortionError(msg string) error {
	return errors.Wrapf(errors.New("invalid distortion parameters"), msg)
}

// RadialPolynomial is the planar radial model:
// scale = 1 + k1*r² + k2*r⁴ + k3*r⁶ + k4*r⁸.
type RadialPolynomial struct {
	K1 float64 `json:"k1"`
	K2 float64 `json:"k2"`
	K3 float64 `json:"k3"`
	K4 float64 `json:"k4"`
}

// NewRadialPolynomial takes in a slice of coefficients that will be passed
// into the struct in order.
func NewRadialPolynomial(inp []float64) (*RadialPolynomial, error) {
	if len(inp) != numCoeffs {
		return nil, InvalidDistortionError(
			errors.Errorf("expected %d coefficients, got %d", numCoeffs, len(inp)).Error())
	}
	return &RadialPolynomial{inp[0], inp[1], inp[2], inp[3]}, nil
}

// ModelType returns the type of distortion model.
func (rp *RadialPolynomial) ModelType() DistortionType {
	return RadialPolynomialType
}

// CheckValid checks if the fields for RadialPolynomial have valid inputs.
func (rp *RadialPolynomial) CheckValid() error {
	if rp == nil {
		return InvalidDistortionError("RadialPolynomial shaped distortion parameters not provided")
	}
	return nil
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (rp *RadialPolynomial) Parameters() []float64 {
	if rp == nil {
		return []float64{}
	}
	return []float64{rp.K1, rp.K2, rp.K3, rp.K4}
}

// Transform scales (x, y) on the normalized camera plane by the radial
// polynomial. All-zero coefficients are a lossless passthrough.
func (rp *RadialPolynomial) Transform(x, y float64) (float64, float64) {
	if rp == nil {
		return x, y
	}
	r2 := x*x + y*y
	scale := 1 + rp.K1*r2 + rp.K2*r2*r2 + rp.K3*r2*r2*r2 + rp.K4*r2*r2*r2*r2
	return x * scale, y * scale
}

// FisheyeAngular is the angular model:
// θ = atan(r), θd = θ(1 + k1*θ² + k2*θ⁴ + k3*θ⁶ + k4*θ⁸), scale = θd/θ.
type FisheyeAngular struct {
	K1 float64 `json:"k1"`
	K2 float64 `json:"k2"`
	K3 float64 `json:"k3"`
	K4 float64 `json:"k4"`
}

// NewFisheyeAngular takes in a slice of coefficients that will be passed into
// the struct in order.
func NewFisheyeAngular(inp []float64) (*FisheyeAngular, error) {
	if len(inp) != numCoeffs {
		return nil, InvalidDistortionError(
			errors.Errorf("expected %d coefficients, got %d", numCoeffs, len(inp)).Error())
	}
	return &FisheyeAngular{inp[0], inp[1], inp[2], inp[3]}, nil
}

// ModelType returns the type of distortion model.
func (fa *FisheyeAngular) ModelType() DistortionType {
	return FisheyeAngularType
}

// CheckValid checks if the fields for FisheyeAngular have valid inputs.
func (fa *FisheyeAngular) CheckValid() error {
	if fa == nil {
		return InvalidDistortionError("FisheyeAngular shaped distortion parameters not provided")
	}
	return nil
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (fa *FisheyeAngular) Parameters() []float64 {
	if fa == nil {
		return []float64{}
	}
	return []float64{fa.K1, fa.K2, fa.K3, fa.K4}
}

// Transform scales (x, y) on the normalized camera plane by the angular
// model. The scale is exactly 1 at r = 0.
func (fa *FisheyeAngular) Transform(x, y float64) (float64, float64) {
	if fa == nil {
		return x, y
	}
	r := math.Hypot(x, y)
	if r == 0 {
		return x, y
	}
	theta := math.Atan(r)
	t2 := theta * theta
	thetaD := theta * (1 + fa.K1*t2 + fa.K2*t2*t2 + fa.K3*t2*t2*t2 + fa.K4*t2*t2*t2*t2)
	scale := thetaD / theta
	return x * scale, y * scale
}
