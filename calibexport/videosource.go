package calibexport

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// FrameSource seeks a video to a timestamp and returns the frame presented
// there. Implementations must be safe to call repeatedly, one call at a time.
type FrameSource interface {
	FrameAt(ctx context.Context, timestamp time.Duration) (image.Image, error)
}

// videoFileSource decodes frames out of a match video on disk by spawning
// ffmpeg per request. Decode completion doubles as the frame-ready signal, so
// no presentation polling is needed.
type videoFileSource struct {
	path   string
	logger golog.Logger
}

// NewVideoFileSource returns a FrameSource over the given video file.
func NewVideoFileSource(path string, logger golog.Logger) (FrameSource, error) {
	// make sure ffmpeg is in the path before doing anything else
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, "cannot open video %q", path)
	}
	return &videoFileSource{path: path, logger: logger}, nil
}

func (s *videoFileSource) FrameAt(ctx context.Context, timestamp time.Duration) (image.Image, error) {
	var buf bytes.Buffer
	stream := ffmpeg.Input(s.path, ffmpeg.KwArgs{
		"ss": fmt.Sprintf("%.3f", timestamp.Seconds()),
	}).Output("pipe:", ffmpeg.KwArgs{
		"vframes": 1,
		"format":  "image2",
		"vcodec":  "png",
	})
	stream.Context = ctx
	if err := stream.WithOutput(&buf).Run(); err != nil {
		return nil, errors.Wrapf(err, "error seeking %q to %v", s.path, timestamp)
	}
	if buf.Len() == 0 {
		return nil, errors.Errorf("no frame presented at %v (past end of %q?)", timestamp, s.path)
	}
	frame, err := png.Decode(&buf)
	if err != nil {
		return nil, errors.Wrap(err, "error decoding extracted frame")
	}
	s.logger.Debugw("extracted frame", "path", s.path, "timestamp", timestamp, "bounds", frame.Bounds())
	return frame, nil
}
