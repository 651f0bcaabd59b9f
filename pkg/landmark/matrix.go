package landmark

import (
	"encoding/json"
	"fmt"
	"math"
)

// TransformMatrix is a fixed-size 2-D matrix of floats stored row-major, as
// produced by the facial transformation matrix output of the inference engine
// (typically 4x4). It is immutable after construction.
type TransformMatrix struct {
	rows, cols int
	data       []float32
}

// NewTransformMatrix wraps a packed row-major buffer. The buffer length must
// equal rows*cols; a mismatch is a contract violation by the producing engine,
// not a recoverable user error, and panics.
func NewTransformMatrix(data []float32, rows, cols int) TransformMatrix {
	if len(data) != rows*cols {
		panic(fmt.Sprintf("landmark: packed matrix buffer has %d elements, want %dx%d=%d",
			len(data), rows, cols, rows*cols))
	}
	d := make([]float32, len(data))
	copy(d, data)
	return TransformMatrix{rows: rows, cols: cols, data: d}
}

// Rows returns the number of rows.
func (m TransformMatrix) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m TransformMatrix) Cols() int { return m.cols }

// At returns the element at row r, column c.
func (m TransformMatrix) At(r, c int) float32 {
	return m.data[r*m.cols+c]
}

// EqualWithin reports whether m and o have the same shape and every element
// matches within tol. Exact equality is not expected from floating-point
// inference output.
func (m TransformMatrix) EqualWithin(o TransformMatrix, tol float64) bool {
	if m.rows != o.rows || m.cols != o.cols {
		return false
	}
	for i := range m.data {
		if math.Abs(float64(m.data[i]-o.data[i])) > tol {
			return false
		}
	}
	return true
}

type matrixJSON struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float32 `json:"data"`
}

// MarshalJSON encodes the matrix as its shape plus the packed buffer.
func (m TransformMatrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(matrixJSON{Rows: m.rows, Cols: m.cols, Data: m.data})
}

// UnmarshalJSON decodes a matrix written by MarshalJSON.
func (m *TransformMatrix) UnmarshalJSON(b []byte) error {
	var j matrixJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	if len(j.Data) != j.Rows*j.Cols {
		return fmt.Errorf("landmark: matrix data has %d elements, want %d", len(j.Data), j.Rows*j.Cols)
	}
	*m = TransformMatrix{rows: j.Rows, cols: j.Cols, data: j.Data}
	return nil
}
