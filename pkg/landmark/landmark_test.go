package landmark

import "testing"

func TestNewResult(t *testing.T) {
	r := NewResult()

	if r.FaceLandmarks == nil {
		t.Error("FaceLandmarks should be empty, not nil")
	}
	if r.FaceBlendshapes == nil {
		t.Error("FaceBlendshapes should be empty, not nil")
	}
	if r.FacialTransformationMatrixes == nil {
		t.Error("FacialTransformationMatrixes should be empty, not nil")
	}
	if r.FaceCount() != 0 {
		t.Errorf("Expected 0 faces, got %d", r.FaceCount())
	}
}

func TestNormalizedLandmarkEqualWithin(t *testing.T) {
	a := NormalizedLandmark{X: 0.5, Y: 0.5, Z: -0.01}
	b := NormalizedLandmark{X: 0.52, Y: 0.48, Z: 0.0}

	if !a.EqualWithin(b, 0.03) {
		t.Error("Landmarks should match within 0.03")
	}
	if a.EqualWithin(b, 0.001) {
		t.Error("Landmarks should not match within 0.001")
	}
}
