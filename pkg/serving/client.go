// Package serving implements an inference engine backed by a remote face
// landmark serving endpoint speaking a JSON-over-HTTP protocol.
package serving

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/visiontasks/face-landmarker/pkg/engine"
	"github.com/visiontasks/face-landmarker/pkg/processing"
)

const defaultTimeout = 2 * time.Minute

// Client talks to a landmark serving endpoint and adapts its responses into
// raw detections. It implements engine.Engine.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cfg        engine.Config
}

// detectRequest is the wire request for one inference call. The frame is sent
// in its canonical, unrotated form; the server applies the orientation.
type detectRequest struct {
	// Image is the canonical RGBA frame encoded as base64 PNG.
	Image       string `json:"image"`
	Orientation string `json:"orientation"`
	TimestampMs *int64 `json:"timestamp_ms,omitempty"`

	Model                      string  `json:"model,omitempty"`
	NumFaces                   int     `json:"num_faces"`
	MinFaceDetectionConfidence float32 `json:"min_face_detection_confidence"`
	MinFacePresenceConfidence  float32 `json:"min_face_presence_confidence"`
	MinTrackingConfidence      float32 `json:"min_tracking_confidence"`
	WithBlendshapes            bool    `json:"with_blendshapes"`
	WithTransformMatrixes      bool    `json:"with_transform_matrixes"`
}

// Factory returns an engine.Factory bound to the given server URL.
func Factory(serverURL string) engine.Factory {
	return func(cfg engine.Config) (engine.Engine, error) {
		return NewClient(serverURL, cfg)
	}
}

// NewClient creates a serving client for the given endpoint.
func NewClient(serverURL string, cfg engine.Config) (*Client, error) {
	if serverURL == "" {
		serverURL = "http://localhost:8602"
	}
	return &Client{
		baseURL:    strings.TrimSuffix(serverURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		cfg:        cfg,
	}, nil
}

// DetectImage runs one inference call on a standalone image.
func (c *Client) DetectImage(ctx context.Context, frame *processing.Frame) (*engine.RawDetections, error) {
	return c.detect(ctx, frame, nil)
}

// DetectFrame runs one inference call on a video frame. Timestamps must be
// monotonically increasing across calls; the server rejects regressions.
func (c *Client) DetectFrame(ctx context.Context, frame *processing.Frame, timestampMs int64) (*engine.RawDetections, error) {
	return c.detect(ctx, frame, &timestampMs)
}

// Close releases the client. The underlying HTTP transport is shared and
// needs no teardown.
func (c *Client) Close() error { return nil }

func (c *Client) detect(ctx context.Context, frame *processing.Frame, timestampMs *int64) (*engine.RawDetections, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, frame.Image()); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	imgB64 := base64.StdEncoding.EncodeToString(buf.Bytes())

	req := detectRequest{
		Image:                      imgB64,
		Orientation:                frame.Orientation.String(),
		TimestampMs:                timestampMs,
		Model:                      c.cfg.ModelAssetName,
		NumFaces:                   c.cfg.NumFaces,
		MinFaceDetectionConfidence: c.cfg.MinFaceDetectionConfidence,
		MinFacePresenceConfidence:  c.cfg.MinFacePresenceConfidence,
		MinTrackingConfidence:      c.cfg.MinTrackingConfidence,
		WithBlendshapes:            c.cfg.OutputBlendshapes,
		WithTransformMatrixes:      c.cfg.OutputFacialTransformMatrixes,
	}

	respBody, err := c.sendRequest(ctx, "/v1/face-landmarks", req)
	if err != nil {
		return nil, err
	}

	var raw engine.RawDetections
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse server response: %w", err)
	}
	log.WithFields(log.Fields{
		"faces": len(raw.Faces),
		"frame": fmt.Sprintf("%dx%d", frame.Width, frame.Height),
	}).Debug("serving: detection complete")
	return &raw, nil
}

func (c *Client) sendRequest(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
