// Command calibframes runs the offline calibration capture pipeline against a
// stacked dual-fisheye match video: it seeks to the requested moment, renders
// a corrected still per camera, and either writes the stills to disk or
// uploads them to the processing backend.
package main

import (
	"context"
	"flag"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/reco-project/video-stitcher-sub001/calibexport"
	"github.com/reco-project/video-stitcher-sub001/lensprofile"
)

var logger = golog.NewDevelopmentLogger("calibframes")

func main() {
	if err := realMain(os.Args[1:]); err != nil {
		logger.Fatal(err)
	}
}

func realMain(args []string) error {
	flags := flag.NewFlagSet("calibframes", flag.ContinueOnError)
	videoPath := flags.String("video", "", "stacked dual-fisheye match video")
	profilePath := flags.String("profile", "", "lens profile JSON document")
	at := flags.Duration("at", 0, "timestamp to capture (e.g. 1m30s)")
	outDir := flags.String("out", "", "directory to write stills into")
	uploadTo := flags.String("upload", "", "backend base URL; when set, stills are uploaded instead of saved")
	matchID := flags.String("match", "", "match id for upload")
	previewWidth := flags.Int("preview", 0, "also save downscaled previews of this width")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *videoPath == "" || *profilePath == "" {
		return errors.New("calibframes needs -video and -profile")
	}
	if *uploadTo == "" && *outDir == "" {
		return errors.New("calibframes needs -out or -upload")
	}

	profile, err := lensprofile.NewLensProfileFromJSONFile(*profilePath)
	if err != nil {
		return err
	}
	if profile.Right == nil {
		return errors.Errorf("profile %q has no right camera; capture needs both halves", profile.ID)
	}
	source, err := calibexport.NewVideoFileSource(*videoPath, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	exporter := calibexport.NewExporter(logger)
	capture, err := exporter.CaptureFrames(ctx, &calibexport.CaptureRequest{
		Source:    source,
		Timestamp: *at,
		Left:      profile.Left,
		Right:     profile.Right,
	})
	if err != nil {
		return err
	}

	if *uploadTo != "" {
		if *matchID == "" {
			return errors.New("-upload needs -match")
		}
		client := calibexport.NewUploadClient(*uploadTo, logger)
		resp, err := client.UploadCalibrationFrames(ctx, *matchID, capture)
		if err != nil {
			return err
		}
		logger.Infow("backend accepted calibration frames", "response_bytes", len(resp))
		return nil
	}

	err = multierr.Combine(
		savePNG(filepath.Join(*outDir, "left.png"), capture.Left),
		savePNG(filepath.Join(*outDir, "right.png"), capture.Right),
	)
	if err != nil {
		return err
	}
	if *previewWidth > 0 {
		err = multierr.Combine(
			savePNG(filepath.Join(*outDir, "left_preview.png"), imaging.Resize(capture.Left, *previewWidth, 0, imaging.Lanczos)),
			savePNG(filepath.Join(*outDir, "right_preview.png"), imaging.Resize(capture.Right, *previewWidth, 0, imaging.Lanczos)),
		)
		if err != nil {
			return err
		}
	}
	logger.Infow("wrote calibration stills", "dir", *outDir)
	return nil
}

func savePNG(path string, img image.Image) error {
	//nolint:gosec
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(out.Close)
	return errors.Wrapf(png.Encode(out, img), "error writing %q", path)
}
