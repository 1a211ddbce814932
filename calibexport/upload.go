package calibexport

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// Multipart field names the backend's per-match processing endpoint expects.
const (
	leftFrameField  = "left_frame"
	rightFrameField = "right_frame"
)

// UploadClient submits captured calibration stills to the processing
// backend. The response body is opaque to this subsystem and returned to the
// caller as is.
type UploadClient struct {
	baseURL    string
	httpClient *http.Client
	logger     golog.Logger
}

// NewUploadClient returns a client against the backend at baseURL
// (e.g. "http://127.0.0.1:8750").
func NewUploadClient(baseURL string, logger golog.Logger) *UploadClient {
	return &UploadClient{baseURL: baseURL, httpClient: &http.Client{}, logger: logger}
}

// UploadCalibrationFrames posts both stills, losslessly encoded, as a
// two-part binary payload to the match's processing endpoint.
func (c *UploadClient) UploadCalibrationFrames(ctx context.Context, matchID string, capture *Capture) ([]byte, error) {
	if capture == nil || capture.Left == nil || capture.Right == nil {
		return nil, errors.New("capture must hold both stills")
	}
	if matchID == "" {
		return nil, errors.New("match id cannot be empty")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writeFramePart(writer, leftFrameField, "left.png", capture.Left); err != nil {
		return nil, err
	}
	if err := writeFramePart(writer, rightFrameField, "right.png", capture.Right); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/matches/%s/process-with-frames", c.baseURL, matchID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c.logger.Infow("uploading calibration frames", "match_id", matchID, "bytes", body.Len())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "error uploading calibration frames")
	}
	defer utils.UncheckedErrorFunc(resp.Body.Close)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("backend rejected calibration frames: %s: %s", resp.Status, respBody)
	}
	return respBody, nil
}

// writeFramePart encodes one still as PNG into its multipart section.
func writeFramePart(writer *multipart.Writer, field, filename string, img *image.NRGBA) (err error) {
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	header.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	return errors.Wrapf(png.Encode(part, img), "error encoding %s", field)
}
