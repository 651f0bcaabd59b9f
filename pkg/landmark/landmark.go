// Package landmark defines the immutable result types produced by a face
// landmark detection call: per-face landmark sequences, blendshape
// classifications, and facial transformation matrices.
package landmark

import "math"

// NormalizedLandmark is a point on a detected face. X and Y are normalized to
// the image dimensions ([0, 1]); Z is depth relative to the face center and is
// not constrained to that range. Visibility and Presence are optional scores
// that are nil when the model does not emit them.
type NormalizedLandmark struct {
	X          float32  `json:"x"`
	Y          float32  `json:"y"`
	Z          float32  `json:"z"`
	Visibility *float32 `json:"visibility,omitempty"`
	Presence   *float32 `json:"presence,omitempty"`
}

// EqualWithin reports whether each coordinate of l matches o within tol.
// Optional scores are not compared.
func (l NormalizedLandmark) EqualWithin(o NormalizedLandmark, tol float64) bool {
	return math.Abs(float64(l.X-o.X)) <= tol &&
		math.Abs(float64(l.Y-o.Y)) <= tol &&
		math.Abs(float64(l.Z-o.Z)) <= tol
}

// Category is a single classification: a category index, its score, and
// optional names.
type Category struct {
	Index        int     `json:"index"`
	Score        float32 `json:"score"`
	CategoryName string  `json:"category_name,omitempty"`
	DisplayName  string  `json:"display_name,omitempty"`
}

// Classifications is an ordered group of categories from one classifier head,
// identified by the head's index and name. For face blendshapes the category
// names are the blendshape names and the scores are their weights.
type Classifications struct {
	Categories []Category `json:"categories"`
	HeadIndex  int        `json:"head_index"`
	HeadName   string     `json:"head_name,omitempty"`
}

// Result aggregates the detections of a single call. The three slices are
// parallel and indexed by detected face. A slice for a feature that was
// disabled at construction is always empty regardless of face count; when a
// feature is enabled its length equals the number of detected faces. A result
// with zero faces is a normal, successful outcome.
//
// Results are constructed fresh per call and never mutated afterwards.
type Result struct {
	FaceLandmarks                [][]NormalizedLandmark `json:"face_landmarks"`
	FaceBlendshapes              []Classifications      `json:"face_blendshapes"`
	FacialTransformationMatrixes []TransformMatrix      `json:"facial_transformation_matrixes"`
}

// NewResult returns an empty result with all sequences allocated. Disabled or
// faceless outcomes are represented by empty slices, never nil, so callers can
// distinguish "no faces" from "absent field" without nil checks.
func NewResult() *Result {
	return &Result{
		FaceLandmarks:                [][]NormalizedLandmark{},
		FaceBlendshapes:              []Classifications{},
		FacialTransformationMatrixes: []TransformMatrix{},
	}
}

// FaceCount returns the number of detected faces.
func (r *Result) FaceCount() int {
	return len(r.FaceLandmarks)
}
