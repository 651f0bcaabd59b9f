// Package engine defines the contract between the task facade and the
// inference backends that actually run the face landmark model. Backends
// return raw per-face buffers; marshalling them into public result types is
// the facade's job.
package engine

import (
	"context"

	"github.com/visiontasks/face-landmarker/pkg/processing"
)

// Config carries the graph options a backend needs to run the model. It is
// assembled by the facade from the validated task options.
type Config struct {
	// Model source, exactly as configured in the task's base options.
	ModelAssetPath   string
	ModelAssetBuffer []byte
	ModelAssetName   string

	NumFaces                   int
	MinFaceDetectionConfidence float32
	MinFacePresenceConfidence  float32
	MinTrackingConfidence      float32

	OutputBlendshapes             bool
	OutputFacialTransformMatrixes bool
}

// Factory constructs an engine for the given config. Task facades call it
// once at construction and own the returned engine exclusively.
type Factory func(Config) (Engine, error)

// Engine is a single-owner handle to an inference backend. Implementations
// are not required to be reentrant; the owning facade serializes calls.
// For video and live-stream use, frame timestamps must be monotonically
// increasing across calls on the same engine instance.
type Engine interface {
	// DetectImage runs inference on a standalone image.
	DetectImage(ctx context.Context, frame *processing.Frame) (*RawDetections, error)
	// DetectFrame runs inference on a video frame at the given timestamp.
	DetectFrame(ctx context.Context, frame *processing.Frame, timestampMs int64) (*RawDetections, error)
	// Close releases the backend handle.
	Close() error
}

// RawLandmark is one landmark entry as emitted by the model, coordinates
// passed through unchanged.
type RawLandmark struct {
	X          float32  `json:"x"`
	Y          float32  `json:"y"`
	Z          float32  `json:"z"`
	Visibility *float32 `json:"visibility,omitempty"`
	Presence   *float32 `json:"presence,omitempty"`
}

// RawCategory is one classification entry from a classifier head.
type RawCategory struct {
	Index        int     `json:"index"`
	Score        float32 `json:"score"`
	CategoryName string  `json:"category_name,omitempty"`
	DisplayName  string  `json:"display_name,omitempty"`
}

// RawClassifications groups the categories of one classifier head.
type RawClassifications struct {
	HeadIndex  int           `json:"head_index"`
	HeadName   string        `json:"head_name,omitempty"`
	Categories []RawCategory `json:"categories"`
}

// RawMatrix is a packed row-major float buffer with explicit dimensions.
type RawMatrix struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float32 `json:"data"`
}

// RawFace holds the buffers the model emitted for one detected face.
// Blendshapes and Transform are nil when the backend was not configured to
// produce them.
type RawFace struct {
	Landmarks   []RawLandmark       `json:"landmarks"`
	Blendshapes *RawClassifications `json:"blendshapes,omitempty"`
	Transform   *RawMatrix          `json:"transform,omitempty"`
}

// RawDetections is the complete raw output of one inference call. Zero faces
// is a valid output.
type RawDetections struct {
	Faces []RawFace `json:"faces"`
}
