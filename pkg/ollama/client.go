// Package ollama implements a coarse inference engine on top of an Ollama
// multimodal model. The model is prompted for face geometry as JSON; the
// reply is sanitized and adapted into raw detections. Accuracy is model
// dependent and far below a dedicated landmark graph, but the backend is
// useful for experiments without a serving deployment.
package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	log "github.com/sirupsen/logrus"

	"github.com/visiontasks/face-landmarker/pkg/engine"
	"github.com/visiontasks/face-landmarker/pkg/processing"
)

// landmarkPrompt asks the model for per-face keypoints in normalized
// coordinates. The six points mirror the classic face keypoint set.
const landmarkPrompt = `You are a face keypoint locator.

Return JSON only:
{
  "faces": [
    {
      "score": 0.0,
      "landmarks": [
        {"x": 0.0, "y": 0.0, "z": 0.0}
      ]
    }
  ]
}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels); z may be negative.
- For each visible human face emit exactly 6 landmarks in this order:
  left eye, right eye, nose tip, mouth center, left ear tragion, right ear tragion.
- score is your confidence that the entry is a real face, in [0,1].
- If no face is visible, return {"faces":[]}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// sendMaxDim limits the long side of frames sent to the model.
const sendMaxDim = 1024

// Engine runs face keypoint queries against an Ollama server.
type Engine struct {
	client *api.Client
	model  string
	cfg    engine.Config
	proc   *processing.Processor
}

// Factory returns an engine.Factory bound to the given Ollama server URL.
// The model name comes from the task's base options (model asset name).
func Factory(serverURL string) engine.Factory {
	return func(cfg engine.Config) (engine.Engine, error) {
		return NewEngine(serverURL, cfg)
	}
}

// NewEngine creates an Ollama-backed engine.
func NewEngine(serverURL string, cfg engine.Config) (*Engine, error) {
	if serverURL == "" {
		serverURL = "http://localhost:11434"
	}
	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	baseURL := &url.URL{Scheme: parsedURL.Scheme, Host: parsedURL.Host}

	model := cfg.ModelAssetName
	if model == "" {
		return nil, fmt.Errorf("ollama backend requires a model asset name")
	}

	return &Engine{
		client: api.NewClient(baseURL, http.DefaultClient),
		model:  model,
		cfg:    cfg,
		proc:   processing.NewProcessor(),
	}, nil
}

// DetectImage queries the model for face keypoints in a standalone image.
func (e *Engine) DetectImage(ctx context.Context, frame *processing.Frame) (*engine.RawDetections, error) {
	return e.detect(ctx, frame)
}

// DetectFrame queries the model for one video frame. The model itself is
// stateless across frames, so the timestamp only orders the calls.
func (e *Engine) DetectFrame(ctx context.Context, frame *processing.Frame, timestampMs int64) (*engine.RawDetections, error) {
	log.WithField("timestamp_ms", timestampMs).Debug("ollama: video frame")
	return e.detect(ctx, frame)
}

// Close releases the engine handle.
func (e *Engine) Close() error { return nil }

func (e *Engine) detect(ctx context.Context, frame *processing.Frame) (*engine.RawDetections, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 300*time.Second)
		defer cancel()
	}

	imgB64, err := e.proc.EncodeFrame(frame, "jpg", sendMaxDim, 85)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	imgBytes, err := base64.StdEncoding.DecodeString(imgB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %v", err)
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: e.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: landmarkPrompt,
				Images:  []api.ImageData{api.ImageData(imgBytes)},
			},
		},
		Stream: &streamFalse,
	}

	var responseContent string
	err = e.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent = resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat error: %v", err)
	}
	if responseContent == "" {
		return nil, fmt.Errorf("empty response from ollama")
	}

	return e.parseDetections(responseContent)
}

// modelReply mirrors the JSON shape requested by landmarkPrompt.
type modelReply struct {
	Faces []struct {
		Score     float32 `json:"score"`
		Landmarks []struct {
			X float32 `json:"x"`
			Y float32 `json:"y"`
			Z float32 `json:"z"`
		} `json:"landmarks"`
	} `json:"faces"`
}

func (e *Engine) parseDetections(raw string) (*engine.RawDetections, error) {
	raw = sanitizeModelJSON(raw)
	if !strings.HasPrefix(strings.TrimSpace(raw), "{") {
		return nil, fmt.Errorf("model returned non-JSON response")
	}

	var reply modelReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	out := &engine.RawDetections{Faces: []engine.RawFace{}}
	for _, f := range reply.Faces {
		if f.Score < e.cfg.MinFaceDetectionConfidence {
			continue
		}
		if e.cfg.NumFaces > 0 && len(out.Faces) >= e.cfg.NumFaces {
			break
		}
		face := engine.RawFace{Landmarks: make([]engine.RawLandmark, 0, len(f.Landmarks))}
		presence := f.Score
		for _, lm := range f.Landmarks {
			face.Landmarks = append(face.Landmarks, engine.RawLandmark{
				X:        clamp(lm.X),
				Y:        clamp(lm.Y),
				Z:        lm.Z,
				Presence: &presence,
			})
		}
		out.Faces = append(out.Faces, face)
	}
	log.WithField("faces", len(out.Faces)).Debug("ollama: detection complete")
	return out, nil
}

func clamp(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// sanitizeModelJSON removes code fences, comments, and trailing commas from
// a model reply before parsing.
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	// Remove /* ... */ block comments
	reBlock := regexp.MustCompile(`(?s)/\*.*?\*/`)
	raw = reBlock.ReplaceAllString(raw, "")

	// Remove // line/inline comments
	reLine := regexp.MustCompile(`(?m)^\s*//.*$`)
	raw = reLine.ReplaceAllString(raw, "")
	reInline := regexp.MustCompile(`(?m)//.*$`)
	raw = reInline.ReplaceAllString(raw, "")

	// Remove trailing commas before } or ]
	reTrailing := regexp.MustCompile(`,(\s*[}\]])`)
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
