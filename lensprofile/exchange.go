package lensprofile

import (
	"encoding/json"
	"regexp"

	"github.com/pkg/errors"
)

// FisheyeKB4Model is the only distortion model the exchange format carries.
const FisheyeKB4Model = "fisheye_kb4"

var idRegexp = regexp.MustCompile(`^[a-z0-9-]{1,100}$`)

// Resolution is a pixel dimension pair in the exchange format.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CameraMatrix is the flat intrinsic matrix representation used by the
// exchange format.
type CameraMatrix struct {
	Fx float64 `json:"fx"`
	Fy float64 `json:"fy"`
	Cx float64 `json:"cx"`
	Cy float64 `json:"cy"`
}

// ExchangeProfile is the wire representation of a calibration shared with the
// processing backend. Field names and the distortion model literal are fixed
// for compatibility with existing profile data.
type ExchangeProfile struct {
	ID               string                 `json:"id"`
	CameraBrand      string                 `json:"camera_brand"`
	CameraModel      string                 `json:"camera_model"`
	LensModel        string                 `json:"lens_model,omitempty"`
	Resolution       Resolution             `json:"resolution"`
	DistortionModel  string                 `json:"distortion_model"`
	CameraMatrix     CameraMatrix           `json:"camera_matrix"`
	DistortionCoeffs []float64              `json:"distortion_coeffs"`
	CalibDimension   *Resolution            `json:"calib_dimension,omitempty"`
	Note             string                 `json:"note,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// CheckValid checks the exchange profile against the rules the backend
// enforces, so bad records are rejected before submission.
func (ep *ExchangeProfile) CheckValid() error {
	if ep == nil {
		return errors.New("exchange profile is nil")
	}
	if !idRegexp.MatchString(ep.ID) {
		return errors.Errorf("id %q must be 1-100 lowercase letters, numbers and hyphens", ep.ID)
	}
	if ep.ID[0] == '-' || ep.ID[len(ep.ID)-1] == '-' {
		return errors.Errorf("id %q cannot start or end with a hyphen", ep.ID)
	}
	if ep.CameraBrand == "" {
		return errors.New("camera_brand cannot be empty")
	}
	if ep.CameraModel == "" {
		return errors.New("camera_model cannot be empty")
	}
	if ep.Resolution.Width <= 0 || ep.Resolution.Height <= 0 {
		return errors.Errorf("resolution must be positive, got (%d, %d)", ep.Resolution.Width, ep.Resolution.Height)
	}
	if ep.DistortionModel != FisheyeKB4Model {
		return errors.Errorf("distortion_model must be %q, got %q", FisheyeKB4Model, ep.DistortionModel)
	}
	for _, entry := range []struct {
		name string
		v    float64
	}{
		{"fx", ep.CameraMatrix.Fx},
		{"fy", ep.CameraMatrix.Fy},
		{"cx", ep.CameraMatrix.Cx},
		{"cy", ep.CameraMatrix.Cy},
	} {
		if entry.v <= 0 {
			return errors.Errorf("camera_matrix.%s must be positive, got %v", entry.name, entry.v)
		}
	}
	if len(ep.DistortionCoeffs) != NumDistortionCoeffs {
		return errors.Errorf("distortion_coeffs must contain exactly %d values for %s, got %d",
			NumDistortionCoeffs, FisheyeKB4Model, len(ep.DistortionCoeffs))
	}
	if ep.CalibDimension != nil && (ep.CalibDimension.Width <= 0 || ep.CalibDimension.Height <= 0) {
		return errors.Errorf("calib_dimension must be positive, got (%d, %d)",
			ep.CalibDimension.Width, ep.CalibDimension.Height)
	}
	return nil
}

// DecodeExchangeProfile parses and validates a JSON exchange record.
func DecodeExchangeProfile(data []byte) (*ExchangeProfile, error) {
	ep := &ExchangeProfile{}
	if err := json.Unmarshal(data, ep); err != nil {
		return nil, errors.Wrap(err, "error parsing exchange profile")
	}
	if err := ep.CheckValid(); err != nil {
		return nil, err
	}
	return ep, nil
}

// Intrinsics converts the exchange record into lens intrinsics at the
// profile's declared resolution. When the calibration was performed at a
// different resolution (calib_dimension), the focal scale and principal point
// are rescaled to the declared one.
func (ep *ExchangeProfile) Intrinsics() (*Intrinsics, error) {
	if err := ep.CheckValid(); err != nil {
		return nil, err
	}
	sx, sy := 1.0, 1.0
	if ep.CalibDimension != nil {
		sx = float64(ep.Resolution.Width) / float64(ep.CalibDimension.Width)
		sy = float64(ep.Resolution.Height) / float64(ep.CalibDimension.Height)
	}
	coeffs := make([]float64, NumDistortionCoeffs)
	copy(coeffs, ep.DistortionCoeffs)
	return &Intrinsics{
		Fx:         ep.CameraMatrix.Fx * sx,
		Fy:         ep.CameraMatrix.Fy * sy,
		Cx:         ep.CameraMatrix.Cx * sx,
		Cy:         ep.CameraMatrix.Cy * sy,
		Distortion: coeffs,
	}, nil
}
