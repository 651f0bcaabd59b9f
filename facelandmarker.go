// Package facelandmarker provides face landmark detection on images and
// video frames.
//
// A Landmarker detects facial landmarks and, optionally, blendshape
// classifications and 3-D facial transformation matrices for every face in an
// input. Inference runs on a pluggable engine backend (a remote serving
// endpoint or an Ollama multimodal model); the landmarker validates options,
// enforces the running mode, and marshals the engine's raw buffers into
// stable result values.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		facelandmarker "github.com/visiontasks/face-landmarker"
//		"github.com/visiontasks/face-landmarker/pkg/core"
//		"github.com/visiontasks/face-landmarker/pkg/processing"
//		"github.com/visiontasks/face-landmarker/pkg/serving"
//	)
//
//	func main() {
//		lm, err := facelandmarker.New(facelandmarker.Options{
//			BaseOptions:   core.BaseOptions{ModelAssetName: "face_landmarker"},
//			RunningMode:   core.RunningModeImage,
//			EngineFactory: serving.Factory("http://localhost:8602"),
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer lm.Close()
//
//		proc := processing.NewProcessor()
//		img, err := proc.LoadImage("portrait.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		result, err := lm.Detect(context.Background(), facelandmarker.Image{Image: img})
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Printf("detected %d face(s)\n", result.FaceCount())
//	}
//
// A landmarker is fixed to one running mode for its whole lifetime:
//
//   - Image: Detect, one independent image per call.
//   - Video: DetectForVideo, sequential frames with monotonically increasing
//     timestamps.
//   - LiveStream: DetectAsync, results delivered through the configured
//     callback in submission order.
//
// Detection calls on a single landmarker must not run concurrently; the
// underlying engine handle is exclusively owned and not reentrant. Live
// stream submissions are serialized internally by a single dispatcher
// goroutine, which is also what guarantees callback ordering.
package facelandmarker

import (
	"context"
	"image"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/visiontasks/face-landmarker/pkg/core"
	"github.com/visiontasks/face-landmarker/pkg/engine"
	"github.com/visiontasks/face-landmarker/pkg/landmark"
	"github.com/visiontasks/face-landmarker/pkg/processing"
)

// Version of the face landmarker library
const Version = "1.0.0"

// liveQueueDepth bounds the number of buffered live-stream submissions.
const liveQueueDepth = 32

// defaultConfidence is applied to unset detection thresholds.
const defaultConfidence = 0.5

// Image is an input to a detection call: a decoded image plus the orientation
// that makes it upright. The zero Orientation means no rotation.
type Image struct {
	Image       image.Image
	Orientation processing.Orientation
}

// ResultCallback receives live-stream results. Exactly one of result and err
// is non-nil; timestampMs is the submission timestamp. Callbacks for one
// landmarker are invoked in submission order and never overlap.
type ResultCallback func(result *landmark.Result, timestampMs int64, err error)

// Options configures a Landmarker. All fields are read at construction; the
// options are not consulted again afterwards.
type Options struct {
	// BaseOptions identifies the model asset. Required.
	BaseOptions core.BaseOptions
	// RunningMode fixes the calling convention. Defaults to Image.
	RunningMode core.RunningMode
	// NumFaces is the maximum number of faces to detect. Defaults to 1.
	NumFaces int
	// Detection thresholds in [0, 1]. Unset values default to 0.5.
	MinFaceDetectionConfidence float32
	MinFacePresenceConfidence  float32
	MinTrackingConfidence      float32
	// OutputFaceBlendshapes enables blendshape classification output.
	OutputFaceBlendshapes bool
	// OutputFacialTransformationMatrixes enables facial transformation
	// matrix output.
	OutputFacialTransformationMatrixes bool
	// ResultCallback receives results in LiveStream mode. Required for
	// LiveStream, rejected in the other modes.
	ResultCallback ResultCallback
	// EngineFactory constructs the inference backend. Required.
	EngineFactory engine.Factory
}

func (o *Options) applyDefaults() {
	if o.RunningMode == 0 {
		o.RunningMode = core.RunningModeImage
	}
	if o.NumFaces == 0 {
		o.NumFaces = 1
	}
	if o.MinFaceDetectionConfidence == 0 {
		o.MinFaceDetectionConfidence = defaultConfidence
	}
	if o.MinFacePresenceConfidence == 0 {
		o.MinFacePresenceConfidence = defaultConfidence
	}
	if o.MinTrackingConfidence == 0 {
		o.MinTrackingConfidence = defaultConfidence
	}
}

func (o *Options) validate() error {
	if err := o.BaseOptions.Validate(); err != nil {
		return err
	}
	if !o.RunningMode.Valid() {
		return core.InvalidArgumentf("unrecognized running mode")
	}
	if o.NumFaces < 1 {
		return core.InvalidArgumentf("num_faces must be at least 1, got %d", o.NumFaces)
	}
	for _, t := range []struct {
		name  string
		value float32
	}{
		{"min_face_detection_confidence", o.MinFaceDetectionConfidence},
		{"min_face_presence_confidence", o.MinFacePresenceConfidence},
		{"min_tracking_confidence", o.MinTrackingConfidence},
	} {
		if t.value < 0 || t.value > 1 {
			return core.InvalidArgumentf("%s must be in [0, 1], got %v", t.name, t.value)
		}
	}
	if o.RunningMode == core.RunningModeLiveStream && o.ResultCallback == nil {
		return core.InvalidArgumentf("the live stream mode requires a result callback")
	}
	if o.RunningMode != core.RunningModeLiveStream && o.ResultCallback != nil {
		return core.InvalidArgumentf("a result callback can only be set in the live stream mode")
	}
	if o.EngineFactory == nil {
		return core.InvalidArgumentf("an engine factory must be configured")
	}
	return nil
}

func (o *Options) engineConfig() engine.Config {
	return engine.Config{
		ModelAssetPath:                o.BaseOptions.ModelAssetPath,
		ModelAssetBuffer:              o.BaseOptions.ModelAssetBuffer,
		ModelAssetName:                o.BaseOptions.ModelAssetName,
		NumFaces:                      o.NumFaces,
		MinFaceDetectionConfidence:    o.MinFaceDetectionConfidence,
		MinFacePresenceConfidence:     o.MinFacePresenceConfidence,
		MinTrackingConfidence:         o.MinTrackingConfidence,
		OutputBlendshapes:             o.OutputFaceBlendshapes,
		OutputFacialTransformMatrixes: o.OutputFacialTransformationMatrixes,
	}
}

// liveJob is one live-stream submission awaiting dispatch.
type liveJob struct {
	frame       *processing.Frame
	timestampMs int64
}

// Landmarker performs face landmark detection. Its running mode is fixed at
// construction; an entry point for a different mode fails with
// INVALID_ARGUMENT before touching the engine.
type Landmarker struct {
	mode     core.RunningMode
	opts     Options
	eng      engine.Engine
	provider *processing.Processor

	// Live stream state. The dispatcher goroutine is the only consumer of
	// queue and the only caller of the result callback.
	queue  chan liveJob
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// New creates a Landmarker from the given options. All validation failures
// are terminal: no partially constructed landmarker is ever returned.
func New(opts Options) (*Landmarker, error) {
	opts.applyDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	eng, err := opts.EngineFactory(opts.engineConfig())
	if err != nil {
		return nil, core.EngineFailure(err)
	}

	l := &Landmarker{
		mode:     opts.RunningMode,
		opts:     opts,
		eng:      eng,
		provider: processing.NewProcessor(),
	}
	if l.mode == core.RunningModeLiveStream {
		l.queue = make(chan liveJob, liveQueueDepth)
		l.wg.Add(1)
		go l.dispatch()
	}
	log.WithField("running_mode", l.mode.String()).Debug("facelandmarker: created")
	return l, nil
}

// NewFromModelPath creates a Landmarker for a local model file with default
// options and the given running mode.
func NewFromModelPath(path string, mode core.RunningMode, factory engine.Factory) (*Landmarker, error) {
	return New(Options{
		BaseOptions:   core.BaseOptions{ModelAssetPath: path},
		RunningMode:   mode,
		EngineFactory: factory,
	})
}

// Detect performs face landmark detection on a single image. Only valid when
// the landmarker is created with the Image running mode.
func (l *Landmarker) Detect(ctx context.Context, img Image) (*landmark.Result, error) {
	if err := core.CheckRunningMode(core.RunningModeImage, l.mode); err != nil {
		return nil, err
	}
	frame, err := l.canonicalize(img)
	if err != nil {
		return nil, err
	}
	raw, err := l.eng.DetectImage(ctx, frame)
	if err != nil {
		return nil, core.EngineFailure(err)
	}
	return l.toResult(raw), nil
}

// DetectForVideo performs face landmark detection on a video frame. Only
// valid when the landmarker is created with the Video running mode.
//
// Timestamps must be monotonically increasing across calls on the same
// landmarker; the engine owns enforcement of that contract and its behavior
// on a regression is engine defined.
func (l *Landmarker) DetectForVideo(ctx context.Context, img Image, timestampMs int64) (*landmark.Result, error) {
	if err := core.CheckRunningMode(core.RunningModeVideo, l.mode); err != nil {
		return nil, err
	}
	frame, err := l.canonicalize(img)
	if err != nil {
		return nil, err
	}
	raw, err := l.eng.DetectFrame(ctx, frame, timestampMs)
	if err != nil {
		return nil, core.EngineFailure(err)
	}
	return l.toResult(raw), nil
}

// DetectAsync submits a live-stream frame for detection. Only valid when the
// landmarker is created with the LiveStream running mode. The result is
// delivered to the configured callback; callbacks follow submission order.
// Timestamps carry the same monotonicity obligation as DetectForVideo.
func (l *Landmarker) DetectAsync(img Image, timestampMs int64) error {
	if err := core.CheckRunningMode(core.RunningModeLiveStream, l.mode); err != nil {
		return err
	}
	frame, err := l.canonicalize(img)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return core.InvalidArgumentf("the landmarker is closed")
	}
	l.queue <- liveJob{frame: frame, timestampMs: timestampMs}
	return nil
}

// Close releases the landmarker. In LiveStream mode it waits for queued
// submissions to drain; no callback fires after Close returns. Closing is
// the only way to cancel pending live-stream work.
func (l *Landmarker) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	if l.queue != nil {
		close(l.queue)
	}
	l.mu.Unlock()

	l.wg.Wait()
	return l.eng.Close()
}

// dispatch consumes live-stream submissions one at a time, keeping callback
// invocations ordered and non-overlapping.
func (l *Landmarker) dispatch() {
	defer l.wg.Done()
	for job := range l.queue {
		raw, err := l.eng.DetectFrame(context.Background(), job.frame, job.timestampMs)
		if err != nil {
			log.WithError(err).Debug("facelandmarker: live stream inference failed")
			l.opts.ResultCallback(nil, job.timestampMs, core.EngineFailure(err))
			continue
		}
		l.opts.ResultCallback(l.toResult(raw), job.timestampMs, nil)
	}
}

func (l *Landmarker) canonicalize(img Image) (*processing.Frame, error) {
	frame, err := l.provider.Canonicalize(img.Image, img.Orientation)
	if err != nil {
		return nil, core.InvalidArgumentf("invalid input image: %v", err)
	}
	return frame, nil
}

// toResult marshals raw engine output into a public result. Feature slices
// are populated only when the corresponding option was enabled at
// construction; a disabled feature yields an empty slice regardless of how
// many faces were found, and zero faces yields three empty slices.
func (l *Landmarker) toResult(raw *engine.RawDetections) *landmark.Result {
	result := landmark.NewResult()
	if raw == nil {
		return result
	}
	for _, face := range raw.Faces {
		landmarks := make([]landmark.NormalizedLandmark, 0, len(face.Landmarks))
		for _, lm := range face.Landmarks {
			landmarks = append(landmarks, landmark.NormalizedLandmark{
				X:          lm.X,
				Y:          lm.Y,
				Z:          lm.Z,
				Visibility: lm.Visibility,
				Presence:   lm.Presence,
			})
		}
		result.FaceLandmarks = append(result.FaceLandmarks, landmarks)

		if l.opts.OutputFaceBlendshapes {
			result.FaceBlendshapes = append(result.FaceBlendshapes, toClassifications(face.Blendshapes))
		}
		if l.opts.OutputFacialTransformationMatrixes {
			result.FacialTransformationMatrixes = append(result.FacialTransformationMatrixes, toMatrix(face.Transform))
		}
	}
	return result
}

func toClassifications(raw *engine.RawClassifications) landmark.Classifications {
	if raw == nil {
		return landmark.Classifications{Categories: []landmark.Category{}}
	}
	categories := make([]landmark.Category, 0, len(raw.Categories))
	for _, c := range raw.Categories {
		categories = append(categories, landmark.Category{
			Index:        c.Index,
			Score:        c.Score,
			CategoryName: c.CategoryName,
			DisplayName:  c.DisplayName,
		})
	}
	return landmark.Classifications{
		Categories: categories,
		HeadIndex:  raw.HeadIndex,
		HeadName:   raw.HeadName,
	}
}

func toMatrix(raw *engine.RawMatrix) landmark.TransformMatrix {
	if raw == nil {
		return landmark.TransformMatrix{}
	}
	return landmark.NewTransformMatrix(raw.Data, raw.Rows, raw.Cols)
}

// GetVersion returns the library version.
func GetVersion() string {
	return Version
}
