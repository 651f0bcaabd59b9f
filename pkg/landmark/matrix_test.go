package landmark

import (
	"encoding/json"
	"testing"
)

func TestNewTransformMatrix(t *testing.T) {
	data := []float32{
		1, 0, 0, 0.1,
		0, 1, 0, 0.2,
		0, 0, 1, 0.3,
		0, 0, 0, 1,
	}
	m := NewTransformMatrix(data, 4, 4)

	if m.Rows() != 4 || m.Cols() != 4 {
		t.Errorf("Expected 4x4 matrix, got %dx%d", m.Rows(), m.Cols())
	}

	// Row-major layout: element (r, c) lives at data[r*cols+c]
	if m.At(0, 3) != 0.1 {
		t.Errorf("Expected At(0,3)=0.1, got %v", m.At(0, 3))
	}
	if m.At(2, 3) != 0.3 {
		t.Errorf("Expected At(2,3)=0.3, got %v", m.At(2, 3))
	}
	if m.At(3, 3) != 1 {
		t.Errorf("Expected At(3,3)=1, got %v", m.At(3, 3))
	}
}

func TestNewTransformMatrixImmutable(t *testing.T) {
	data := []float32{1, 2, 3, 4}
	m := NewTransformMatrix(data, 2, 2)

	data[0] = 99
	if m.At(0, 0) != 1 {
		t.Errorf("Matrix shares storage with caller buffer: At(0,0)=%v", m.At(0, 0))
	}
}

func TestNewTransformMatrixBadLength(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for mismatched buffer length")
		}
	}()
	NewTransformMatrix([]float32{1, 2, 3}, 2, 2)
}

func TestTransformMatrixEqualWithin(t *testing.T) {
	a := NewTransformMatrix([]float32{1, 0, 0, 1}, 2, 2)
	b := NewTransformMatrix([]float32{1.1, 0.05, -0.1, 0.95}, 2, 2)

	if !a.EqualWithin(b, 0.2) {
		t.Error("Matrices should match within 0.2")
	}
	if a.EqualWithin(b, 0.01) {
		t.Error("Matrices should not match within 0.01")
	}

	c := NewTransformMatrix([]float32{1, 0, 0, 1}, 1, 4)
	if a.EqualWithin(c, 10) {
		t.Error("Matrices with different shapes should never match")
	}
}

func TestTransformMatrixJSON(t *testing.T) {
	m := NewTransformMatrix([]float32{1, 2, 3, 4, 5, 6}, 2, 3)

	js, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var back TransformMatrix
	if err := json.Unmarshal(js, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back.Rows() != 2 || back.Cols() != 3 {
		t.Errorf("Expected 2x3 after round trip, got %dx%d", back.Rows(), back.Cols())
	}
	if back.At(1, 2) != 6 {
		t.Errorf("Expected At(1,2)=6 after round trip, got %v", back.At(1, 2))
	}
}
