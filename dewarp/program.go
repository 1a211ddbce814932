package dewarp

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/reco-project/video-stitcher-sub001/lensprofile"
)

// Sample is where one output pixel reads its color from. Coordinates are in
// the unit square of the raw frame. A sample outside the unit square renders
// as a fully transparent pixel so boundary errors stay visible instead of
// being stretched over.
type Sample struct {
	Source   r2.Point
	InBounds bool

	// Alt is the alternate half's corrected coordinate near a split seam.
	// Weight is the primary sample's share of the blend: 0 means fully the
	// alternate half, 1 means fully the primary. Weight is 1 whenever no
	// blending applies.
	Alt         r2.Point
	AltInBounds bool
	Weight      float64
}

// Program maps an output pixel (u, v) in the unit square to its raw-frame
// sample. Implementations are immutable once built.
type Program interface {
	Source(u, v float64) Sample
}

// NewProgram resolves the program variant for a profile once, up front: a
// full-frame program, or a split-half program when the frame is two lenses
// merged side by side. The mode never changes within a session, which keeps
// the per-pixel path branch-free.
func NewProgram(profile *lensprofile.LensProfile) (Program, error) {
	uniforms, err := FormatUniforms(profile)
	if err != nil {
		return nil, err
	}
	if !profile.SplitMode {
		left, err := newLens(uniforms.LFx, uniforms.LFy, uniforms.LCx, uniforms.LCy, uniforms.LD)
		if err != nil {
			return nil, err
		}
		return &fullFrameProgram{lens: left}, nil
	}
	left, err := newLens(uniforms.LFx, uniforms.LFy, uniforms.LCx, uniforms.LCy, uniforms.LD)
	if err != nil {
		return nil, err
	}
	right, err := newLens(uniforms.RFx, uniforms.RFy, uniforms.RCx, uniforms.RCy, uniforms.RD)
	if err != nil {
		return nil, err
	}
	return &splitHalfProgram{
		left:       left,
		right:      right,
		splitPoint: uniforms.SplitPoint,
		blendWidth: uniforms.BlendWidth,
	}, nil
}

// lens is one camera's normalized intrinsics plus its distortion model.
type lens struct {
	fx, fy, cx, cy float64
	model          DistortionModel
}

func newLens(fx, fy, cx, cy float64, d [4]float64) (*lens, error) {
	if fx <= 0 || fy <= 0 {
		return nil, errors.Errorf("invalid normalized focal scale (%v, %v)", fx, fy)
	}
	model, err := NewRadialPolynomial(d[:])
	if err != nil {
		return nil, err
	}
	return &lens{fx: fx, fy: fy, cx: cx, cy: cy, model: model}, nil
}

// undistort maps a corrected coordinate back to the raw frame by pushing it
// through the forward distortion model on the normalized camera plane.
func (l *lens) undistort(x, y float64) (float64, float64) {
	nx := (x - l.cx) / l.fx
	ny := (y - l.cy) / l.fy
	nx, ny = l.model.Transform(nx, ny)
	return l.fx*nx + l.cx, l.fy*ny + l.cy
}

func inUnitSquare(x, y float64) bool {
	return x >= 0 && x <= 1 && y >= 0 && y <= 1
}

type fullFrameProgram struct {
	lens *lens
}

func (p *fullFrameProgram) Source(u, v float64) Sample {
	x, y := p.lens.undistort(u, v)
	return Sample{
		Source:   r2.Point{X: x, Y: y},
		InBounds: inUnitSquare(x, y),
		Weight:   1,
	}
}

type splitHalfProgram struct {
	left, right *lens
	splitPoint  float64
	blendWidth  float64
}

// sampleHalf remaps u into a half's local unit square, undistorts there, and
// maps the result back to global frame space. A pixel at u = splitPoint
// belongs to the right half.
func (p *splitHalfProgram) sampleHalf(u, v float64, leftHalf bool) (r2.Point, bool) {
	var x, y float64
	if leftHalf {
		x, y = p.left.undistort(u/p.splitPoint, v)
		return r2.Point{X: x * p.splitPoint, Y: y}, inUnitSquare(x, y)
	}
	x, y = p.right.undistort((u-p.splitPoint)/(1-p.splitPoint), v)
	return r2.Point{X: p.splitPoint + x*(1-p.splitPoint), Y: y}, inUnitSquare(x, y)
}

func (p *splitHalfProgram) Source(u, v float64) Sample {
	leftHalf := u < p.splitPoint
	src, in := p.sampleHalf(u, v, leftHalf)
	s := Sample{Source: src, InBounds: in, Weight: 1}

	seamDist := math.Abs(u - p.splitPoint)
	if p.blendWidth <= 0 || seamDist >= p.blendWidth {
		return s
	}
	alt, altIn := p.sampleHalf(u, v, !leftHalf)
	if !altIn {
		return s
	}
	s.Alt = alt
	s.AltInBounds = true
	s.Weight = smoothstep(0, p.blendWidth, seamDist)
	return s
}

// StackedHalf selects which vertical half of a stacked dual-fisheye source a
// program reads from.
type StackedHalf int

// The stacked layout puts the left camera on top.
const (
	TopHalf StackedHalf = iota
	BottomHalf
)

// NewStackedFisheyeProgram builds the calibration-export variant: output
// coordinates cover one camera's frame, sampled out of the correct vertical
// half of the stacked source through the angular fisheye model.
func NewStackedFisheyeProgram(uniforms *FisheyeUniforms, half StackedHalf) (Program, error) {
	if uniforms == nil {
		return nil, errors.New("fisheye uniforms are nil")
	}
	if uniforms.Fx <= 0 || uniforms.Fy <= 0 {
		return nil, errors.Errorf("invalid normalized focal scale (%v, %v)", uniforms.Fx, uniforms.Fy)
	}
	model, err := NewFisheyeAngular(uniforms.D[:])
	if err != nil {
		return nil, err
	}
	return &stackedFisheyeProgram{
		lens: &lens{fx: uniforms.Fx, fy: uniforms.Fy, cx: uniforms.Cx, cy: uniforms.Cy, model: model},
		half: half,
	}, nil
}

type stackedFisheyeProgram struct {
	lens *lens
	half StackedHalf
}

func (p *stackedFisheyeProgram) Source(u, v float64) Sample {
	x, y := p.lens.undistort(u, v)
	// out-of-half samples are blanked along with out-of-frame ones
	in := inUnitSquare(x, y)
	if p.half == BottomHalf {
		y = 0.5 + y*0.5
	} else {
		y *= 0.5
	}
	return Sample{
		Source:   r2.Point{X: x, Y: y},
		InBounds: in,
		Weight:   1,
	}
}

// smoothstep is the standard Hermite ramp between two edges.
func smoothstep(edge0, edge1, x float64) float64 {
	if edge1 == edge0 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := (x - edge0) / (edge1 - edge0)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return t * t * (3 - 2*t)
}
