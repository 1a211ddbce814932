// Package lensprofile holds per-camera calibration data used to drive the
// dewarp pipeline. Profiles are immutable catalog data; nothing in this
// package mutates a profile after it has been loaded.
package lensprofile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// ErrNoIntrinsics is when a camera does not have intrinsic parameters or other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intrinsics are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrapf(ErrNoIntrinsics, msg)
}

// Intrinsics holds the focal scale, principal point and radial distortion
// coefficients of a single lens, in pixel units of the frame region the lens
// covers (the full frame, or one half in split mode).
type Intrinsics struct {
	Fx         float64   `json:"fx"`
	Fy         float64   `json:"fy"`
	Cx         float64   `json:"cx"`
	Cy         float64   `json:"cy"`
	Distortion []float64 `json:"distortion"`
}

// CheckValid checks if the fields for Intrinsics have valid inputs.
func (in *Intrinsics) CheckValid() error {
	if in == nil {
		return NewNoIntrinsicsError("intrinsics do not exist")
	}
	if in.Fx <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("invalid focal length Fx = %#v", in.Fx))
	}
	if in.Fy <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("invalid focal length Fy = %#v", in.Fy))
	}
	if in.Distortion == nil {
		return NewNoIntrinsicsError("distortion coefficients are missing")
	}
	if len(in.Distortion) != NumDistortionCoeffs {
		return NewNoIntrinsicsError(fmt.Sprintf(
			"expected exactly %d distortion coefficients, got %d", NumDistortionCoeffs, len(in.Distortion)))
	}
	return nil
}

// Passthrough reports whether the distortion terms are all zero, in which case
// correction is a lossless identity on sampling coordinates.
func (in *Intrinsics) Passthrough() bool {
	for _, k := range in.Distortion {
		if k != 0 {
			return false
		}
	}
	return true
}

// NumDistortionCoeffs is the number of radial terms every profile carries.
const NumDistortionCoeffs = 4

// Default pan ranges for profiles that do not declare their own, degrees of
// total travel. Half the range is available to either side of center.
const (
	DefaultYawRangeDegs   = 180.0
	DefaultPitchRangeDegs = 90.0
)

// LensProfile is the calibration record for one capture setup: either a
// single wide lens covering the whole frame, or two lenses merged side by
// side and corrected independently (split mode).
type LensProfile struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	ImageWidth  int     `json:"image_width"`
	ImageHeight int     `json:"image_height"`
	SplitMode   bool    `json:"split_mode"`
	SplitPoint  float64 `json:"split_point"`
	BlendWidth  float64 `json:"blend_width"`

	// Total pan travel the viewer allows with this profile, degrees.
	YawRangeDegs   float64 `json:"yaw_range_degs,omitempty"`
	PitchRangeDegs float64 `json:"pitch_range_degs,omitempty"`

	Left  *Intrinsics `json:"left_intrinsics"`
	Right *Intrinsics `json:"right_intrinsics,omitempty"`
}

// CheckValid checks if the fields for LensProfile have valid inputs.
func (lp *LensProfile) CheckValid() error {
	if lp == nil {
		return errors.New("lens profile is nil")
	}
	if lp.ImageWidth <= 0 || lp.ImageHeight <= 0 {
		return errors.Errorf("invalid image size (%d, %d)", lp.ImageWidth, lp.ImageHeight)
	}
	if err := lp.Left.CheckValid(); err != nil {
		return errors.Wrapf(err, "profile %q left intrinsics", lp.ID)
	}
	if lp.SplitMode {
		if lp.SplitPoint <= 0 || lp.SplitPoint >= 1 {
			return errors.Errorf("split point must be within (0,1), got %v", lp.SplitPoint)
		}
		if lp.BlendWidth < 0 || lp.BlendWidth > MaxBlendWidth {
			return errors.Errorf("blend width must be within [0,%v], got %v", MaxBlendWidth, lp.BlendWidth)
		}
		if err := lp.Right.CheckValid(); err != nil {
			return errors.Wrapf(err, "profile %q right intrinsics", lp.ID)
		}
	}
	if lp.YawRangeDegs < 0 || lp.PitchRangeDegs < 0 {
		return errors.Errorf("pan ranges cannot be negative (%v, %v)", lp.YawRangeDegs, lp.PitchRangeDegs)
	}
	return nil
}

// MaxBlendWidth bounds the seam cross-fade region as a fraction of frame width.
const MaxBlendWidth = 0.1

// YawRange returns the declared yaw travel, falling back to the default.
func (lp *LensProfile) YawRange() float64 {
	if lp.YawRangeDegs > 0 {
		return lp.YawRangeDegs
	}
	return DefaultYawRangeDegs
}

// PitchRange returns the declared pitch travel, falling back to the default.
func (lp *LensProfile) PitchRange() float64 {
	if lp.PitchRangeDegs > 0 {
		return lp.PitchRangeDegs
	}
	return DefaultPitchRangeDegs
}

// AspectRatio is height over width of the full frame.
func (lp *LensProfile) AspectRatio() float64 {
	return float64(lp.ImageHeight) / float64(lp.ImageWidth)
}

// NewLensProfileFromJSONFile takes in a file path to a JSON and turns it into a LensProfile.
func NewLensProfileFromJSONFile(jsonPath string) (*LensProfile, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON data")
	}
	profile := &LensProfile{}
	if err := json.Unmarshal(byteValue, profile); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	if err := profile.CheckValid(); err != nil {
		return nil, err
	}
	return profile, nil
}
