package dewarp

import (
	"github.com/pkg/errors"

	"github.com/reco-project/video-stitcher-sub001/lensprofile"
)

// VideoUniform is the sampler name every program binds the decoded frame to.
const VideoUniform = "uVideo"

// Uniforms is the parameter block of the full-frame/split-half program.
// Names and types are fixed for compatibility with existing profile data;
// intrinsics are normalized to the unit square of the region each lens
// covers.
type Uniforms struct {
	SplitPoint float64    `json:"splitPoint"`
	BlendWidth float64    `json:"blendWidth"`
	SplitHalf  int        `json:"splitHalf"`
	LFx        float64    `json:"lFx"`
	LFy        float64    `json:"lFy"`
	LCx        float64    `json:"lCx"`
	LCy        float64    `json:"lCy"`
	LD         [4]float64 `json:"lD"`
	RFx        float64    `json:"rFx"`
	RFy        float64    `json:"rFy"`
	RCx        float64    `json:"rCx"`
	RCy        float64    `json:"rCy"`
	RD         [4]float64 `json:"rD"`
}

// Map flattens the block into named parameters for a render surface. The
// decoded frame itself is bound separately under VideoUniform.
func (u *Uniforms) Map() map[string]interface{} {
	return map[string]interface{}{
		"splitPoint": u.SplitPoint,
		"blendWidth": u.BlendWidth,
		"splitHalf":  u.SplitHalf,
		"lFx":        u.LFx,
		"lFy":        u.LFy,
		"lCx":        u.LCx,
		"lCy":        u.LCy,
		"lD":         u.LD,
		"rFx":        u.RFx,
		"rFy":        u.RFy,
		"rCx":        u.RCx,
		"rCy":        u.RCy,
		"rD":         u.RD,
	}
}

// FisheyeUniforms is the parameter block of the stacked dual-fisheye program,
// covering one half of a vertically stacked source.
type FisheyeUniforms struct {
	Fx float64    `json:"fx"`
	Fy float64    `json:"fy"`
	Cx float64    `json:"cx"`
	Cy float64    `json:"cy"`
	D  [4]float64 `json:"d"`
}

// Map flattens the block into named parameters for a render surface.
func (u *FisheyeUniforms) Map() map[string]interface{} {
	return map[string]interface{}{
		"fx": u.Fx,
		"fy": u.Fy,
		"cx": u.Cx,
		"cy": u.Cy,
		"d":  u.D,
	}
}

// FormatUniforms normalizes a lens profile into the program parameter block.
// Configuration errors (missing intrinsic fields, malformed distortion
// arrays) surface here, synchronously, before any frame is drawn; they are
// catalog bugs and are never retried.
func FormatUniforms(profile *lensprofile.LensProfile) (*Uniforms, error) {
	if err := profile.CheckValid(); err != nil {
		return nil, err
	}
	u := &Uniforms{
		SplitPoint: profile.SplitPoint,
		BlendWidth: profile.BlendWidth,
	}
	fullW, fullH := float64(profile.ImageWidth), float64(profile.ImageHeight)
	if !profile.SplitMode {
		u.LFx, u.LFy, u.LCx, u.LCy, u.LD = normalize(profile.Left, fullW, fullH)
		return u, nil
	}
	u.SplitHalf = 1
	u.LFx, u.LFy, u.LCx, u.LCy, u.LD = normalize(profile.Left, fullW*profile.SplitPoint, fullH)
	u.RFx, u.RFy, u.RCx, u.RCy, u.RD = normalize(profile.Right, fullW*(1-profile.SplitPoint), fullH)
	return u, nil
}

// FormatFisheyeUniforms normalizes one camera's intrinsics against the pixel
// size of its half of the stacked source.
func FormatFisheyeUniforms(intr *lensprofile.Intrinsics, halfWidth, halfHeight int) (*FisheyeUniforms, error) {
	if err := intr.CheckValid(); err != nil {
		return nil, err
	}
	if halfWidth <= 0 || halfHeight <= 0 {
		return nil, errors.Errorf("invalid half size (%d, %d)", halfWidth, halfHeight)
	}
	fx, fy, cx, cy, d := normalize(intr, float64(halfWidth), float64(halfHeight))
	return &FisheyeUniforms{Fx: fx, Fy: fy, Cx: cx, Cy: cy, D: d}, nil
}

// normalize rescales pixel-unit intrinsics to the unit square of a w-by-h
// region. CheckValid has already run by the time this is called.
func normalize(intr *lensprofile.Intrinsics, w, h float64) (fx, fy, cx, cy float64, d [4]float64) {
	fx = intr.Fx / w
	fy = intr.Fy / h
	cx = intr.Cx / w
	cy = intr.Cy / h
	copy(d[:], intr.Distortion)
	return fx, fy, cx, cy, d
}
