package projection

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
)

// Camera is the perspective camera sitting on the cylinder axis. The host
// render loop asks it for fresh matrices every frame; orientation and field
// of view are owned by the orientation controller and passed in.
type Camera struct {
	Aspect float64
	Near   float64
	Far    float64
}

// NewCamera returns a camera for a viewport with the given width over height
// ratio. Clip planes bracket the unit-radius cylinder.
func NewCamera(aspect float64) (*Camera, error) {
	if aspect <= 0 {
		return nil, errors.Errorf("viewport aspect must be positive, got %v", aspect)
	}
	return &Camera{Aspect: aspect, Near: 0.01, Far: 10 * Radius}, nil
}

// ProjectionMatrix builds the perspective projection for a vertical field of
// view in degrees.
func (c *Camera) ProjectionMatrix(fovDegs float64) mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(fovDegs), c.Aspect, c.Near, c.Far)
}

// ViewMatrix builds the world-to-camera transform for the given orientation.
// The camera never translates; it only rotates in place on the axis.
func (c *Camera) ViewMatrix(orientation quat.Number) mgl64.Mat4 {
	q := mgl64.Quat{W: orientation.Real, V: mgl64.Vec3{orientation.Imag, orientation.Jmag, orientation.Kmag}}
	return q.Normalize().Inverse().Mat4()
}
