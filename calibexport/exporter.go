// Package calibexport captures calibration stills for a match: it seeks the
// stacked dual-fisheye video to a chosen moment, corrects each camera's half
// through the angular fisheye program, and ships both stills to the
// processing backend.
package calibexport

import (
	"context"
	"image"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"github.com/reco-project/video-stitcher-sub001/dewarp"
	"github.com/reco-project/video-stitcher-sub001/lensprofile"
)

// DefaultSettleDelay gives the decoder a beat after seeking before the frame
// is trusted. Frame extraction already blocks until decode completes, so this
// is a fallback for sources whose first presentation can be stale, not the
// primary ready signal.
const DefaultSettleDelay = 50 * time.Millisecond

// DefaultWarmupPasses is how many times each half is rendered before the
// final surface is captured.
const DefaultWarmupPasses = 2

// Exporter runs the one-shot capture pipeline. It holds no per-capture
// state, but captures against the same FrameSource must not overlap; callers
// serialize exports per match. An in-flight capture is aborted by cancelling
// the context, and all scratch resources are released on every exit path.
type Exporter struct {
	logger       golog.Logger
	clock        clock.Clock
	settleDelay  time.Duration
	warmupPasses int
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithClock substitutes the timing source, letting tests run the settle
// delay without real sleeps.
func WithClock(c clock.Clock) Option {
	return func(e *Exporter) { e.clock = c }
}

// WithSettleDelay overrides the post-seek settle delay.
func WithSettleDelay(d time.Duration) Option {
	return func(e *Exporter) { e.settleDelay = d }
}

// WithWarmupPasses overrides how many render passes precede the capture.
func WithWarmupPasses(n int) Option {
	return func(e *Exporter) { e.warmupPasses = n }
}

// NewExporter returns an exporter with default timing.
func NewExporter(logger golog.Logger, opts ...Option) *Exporter {
	e := &Exporter{
		logger:       logger,
		clock:        clock.New(),
		settleDelay:  DefaultSettleDelay,
		warmupPasses: DefaultWarmupPasses,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.warmupPasses < 1 {
		e.warmupPasses = 1
	}
	return e
}

// CaptureRequest describes one export: where to read the stacked video, the
// moment to capture, and each camera's intrinsics. The request is transient;
// nothing here survives the call.
type CaptureRequest struct {
	Source    FrameSource
	Timestamp time.Duration
	Left      *lensprofile.Intrinsics
	Right     *lensprofile.Intrinsics

	// StillWidth/StillHeight rescale the captured stills; zero keeps each
	// half's native size.
	StillWidth  int
	StillHeight int
}

// Capture is the pair of corrected stills, one per camera half, at the full
// size of that half. It is handed straight to upload and then discarded.
type Capture struct {
	Left  *image.NRGBA
	Right *image.NRGBA
}

// CaptureFrames seeks, settles, and renders both camera halves. A seek error
// aborts and fails the whole capture; it is surfaced once and never retried
// here. Captured stills are not validated as non-degenerate — that is the
// backend's call — but their mean luma is logged so a blank capture shows up
// in the logs.
func (e *Exporter) CaptureFrames(ctx context.Context, req *CaptureRequest) (*Capture, error) {
	if req == nil || req.Source == nil {
		return nil, errors.New("capture request needs a frame source")
	}
	// configuration errors surface before any seek happens
	if err := req.Left.CheckValid(); err != nil {
		return nil, errors.Wrap(err, "left camera")
	}
	if err := req.Right.CheckValid(); err != nil {
		return nil, errors.Wrap(err, "right camera")
	}

	frame, err := req.Source.FrameAt(ctx, req.Timestamp)
	if err != nil {
		return nil, err
	}
	if err := e.settle(ctx); err != nil {
		return nil, err
	}

	bounds := frame.Bounds()
	halfW, halfH := bounds.Dx(), bounds.Dy()/2
	if halfW <= 0 || halfH <= 0 {
		return nil, errors.Errorf("stacked frame too small to split: %v", bounds)
	}

	left, err := e.renderHalf(ctx, frame, req.Left, dewarp.TopHalf, halfW, halfH)
	if err != nil {
		return nil, errors.Wrap(err, "left camera")
	}
	right, err := e.renderHalf(ctx, frame, req.Right, dewarp.BottomHalf, halfW, halfH)
	if err != nil {
		return nil, errors.Wrap(err, "right camera")
	}
	if req.StillWidth > 0 && req.StillHeight > 0 {
		left = rescaleStill(left, req.StillWidth, req.StillHeight)
		right = rescaleStill(right, req.StillWidth, req.StillHeight)
	}

	e.logger.Debugw("captured calibration stills",
		"timestamp", req.Timestamp,
		"left_mean_luma", meanLuma(left),
		"right_mean_luma", meanLuma(right),
	)
	return &Capture{Left: left, Right: right}, nil
}

// renderHalf builds the stacked fisheye program for one camera and renders
// it to a full-size still, with warm-up passes before the kept render.
func (e *Exporter) renderHalf(
	ctx context.Context,
	frame image.Image,
	intr *lensprofile.Intrinsics,
	half dewarp.StackedHalf,
	width, height int,
) (*image.NRGBA, error) {
	uniforms, err := dewarp.FormatFisheyeUniforms(intr, width, height)
	if err != nil {
		return nil, err
	}
	program, err := dewarp.NewStackedFisheyeProgram(uniforms, half)
	if err != nil {
		return nil, err
	}
	var out *image.NRGBA
	for pass := 0; pass < e.warmupPasses; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = dewarp.Warp(program, frame, width, height)
	}
	return out, nil
}

func (e *Exporter) settle(ctx context.Context) error {
	if e.settleDelay <= 0 {
		return nil
	}
	timer := e.clock.Timer(e.settleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// rescaleStill resamples a capture to the requested size.
func rescaleStill(img *image.NRGBA, width, height int) *image.NRGBA {
	if img.Rect.Dx() == width && img.Rect.Dy() == height {
		return img
	}
	scaled := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(scaled, scaled.Rect, img, img.Rect, draw.Src, nil)
	return scaled
}

// meanLuma averages the Rec. 601 luma of every pixel, 0 to 255.
func meanLuma(img *image.NRGBA) float64 {
	if img == nil || len(img.Pix) == 0 {
		return 0
	}
	var sum float64
	n := 0
	for i := 0; i+3 < len(img.Pix); i += 4 {
		r, g, b := float64(img.Pix[i]), float64(img.Pix[i+1]), float64(img.Pix[i+2])
		sum += 0.299*r + 0.587*g + 0.114*b
		n++
	}
	return sum / float64(n)
}
