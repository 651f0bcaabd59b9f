package ollama

import (
	"testing"

	"github.com/visiontasks/face-landmarker/pkg/engine"
)

func testEngine(cfg engine.Config) *Engine {
	return &Engine{cfg: cfg}
}

func TestParseDetections(t *testing.T) {
	e := testEngine(engine.Config{NumFaces: 5, MinFaceDetectionConfidence: 0.5})

	reply := "```json\n" + `{
		"faces": [
			{"score": 0.9, "landmarks": [{"x": 0.4, "y": 0.5, "z": -0.02}, {"x": 0.6, "y": 0.5, "z": -0.02}]},
			{"score": 0.2, "landmarks": [{"x": 0.1, "y": 0.1, "z": 0}]}
		]
	}` + "\n```"

	raw, err := e.parseDetections(reply)
	if err != nil {
		t.Fatalf("parseDetections failed: %v", err)
	}

	// The low-confidence face falls below the detection threshold
	if len(raw.Faces) != 1 {
		t.Fatalf("Expected 1 face, got %d", len(raw.Faces))
	}
	face := raw.Faces[0]
	if len(face.Landmarks) != 2 {
		t.Fatalf("Expected 2 landmarks, got %d", len(face.Landmarks))
	}
	if face.Landmarks[0].X != 0.4 {
		t.Errorf("Expected x=0.4, got %v", face.Landmarks[0].X)
	}
	if face.Landmarks[0].Presence == nil || *face.Landmarks[0].Presence != 0.9 {
		t.Error("Face score should be attached as landmark presence")
	}
}

func TestParseDetectionsCapsFaces(t *testing.T) {
	e := testEngine(engine.Config{NumFaces: 1})

	raw, err := e.parseDetections(`{"faces": [
		{"score": 0.9, "landmarks": [{"x": 0.5, "y": 0.5, "z": 0}]},
		{"score": 0.8, "landmarks": [{"x": 0.2, "y": 0.2, "z": 0}]}
	]}`)
	if err != nil {
		t.Fatalf("parseDetections failed: %v", err)
	}
	if len(raw.Faces) != 1 {
		t.Errorf("Expected faces capped at 1, got %d", len(raw.Faces))
	}
}

func TestParseDetectionsClampsCoordinates(t *testing.T) {
	e := testEngine(engine.Config{NumFaces: 1})

	raw, err := e.parseDetections(`{"faces": [{"score": 1, "landmarks": [{"x": 1.3, "y": -0.2, "z": -0.5}]}]}`)
	if err != nil {
		t.Fatalf("parseDetections failed: %v", err)
	}
	lm := raw.Faces[0].Landmarks[0]
	if lm.X != 1 || lm.Y != 0 {
		t.Errorf("Coordinates should clamp to [0,1], got x=%v y=%v", lm.X, lm.Y)
	}
	if lm.Z != -0.5 {
		t.Errorf("Z should pass through unclamped, got %v", lm.Z)
	}
}

func TestParseDetectionsZeroFaces(t *testing.T) {
	e := testEngine(engine.Config{NumFaces: 1})

	raw, err := e.parseDetections(`{"faces": []}`)
	if err != nil {
		t.Fatalf("parseDetections failed: %v", err)
	}
	if raw.Faces == nil || len(raw.Faces) != 0 {
		t.Errorf("Expected empty face list, got %v", raw.Faces)
	}
}

func TestParseDetectionsRejectsNonJSON(t *testing.T) {
	e := testEngine(engine.Config{})

	if _, err := e.parseDetections("I cannot find any faces in this image."); err == nil {
		t.Error("Non-JSON reply should be an error")
	}
}

func TestSanitizeModelJSON(t *testing.T) {
	cases := []struct{ in, want string }{
		{"```json\n{\"faces\":[]}\n```", `{"faces":[]}`},
		{`{"faces":[],}`, `{"faces":[]}`},
		{"prefix text {\"faces\":[]} suffix", `{"faces":[]}`},
	}
	for _, c := range cases {
		if got := sanitizeModelJSON(c.in); got != c.want {
			t.Errorf("sanitizeModelJSON(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNewEngineRequiresModel(t *testing.T) {
	if _, err := NewEngine("http://localhost:11434", engine.Config{}); err == nil {
		t.Error("Engine without a model name should be rejected")
	}

	e, err := NewEngine("", engine.Config{ModelAssetName: "llava"})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if e.model != "llava" {
		t.Errorf("Expected model llava, got %q", e.model)
	}
}
