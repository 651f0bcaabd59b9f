package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the CLI configuration
type Config struct {
	Backend BackendConfig `json:"backend"`
	Task    TaskConfig    `json:"task"`
	Log     LogConfig     `json:"log"`
	Output  OutputConfig  `json:"output"`
}

// BackendConfig selects and locates the inference backend
type BackendConfig struct {
	// Kind is "serving" or "ollama"
	Kind string `json:"kind"`
	URL  string `json:"url"`
}

// TaskConfig holds the landmarker task options
type TaskConfig struct {
	Model                              string  `json:"model"`
	NumFaces                           int     `json:"num_faces"`
	MinFaceDetectionConfidence         float32 `json:"min_face_detection_confidence"`
	MinFacePresenceConfidence          float32 `json:"min_face_presence_confidence"`
	MinTrackingConfidence              float32 `json:"min_tracking_confidence"`
	OutputFaceBlendshapes              bool    `json:"output_face_blendshapes"`
	OutputFacialTransformationMatrixes bool    `json:"output_facial_transformation_matrixes"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `json:"level"`
	JSON  bool   `json:"json"`
}

// OutputConfig holds configuration for result output
type OutputConfig struct {
	Dir    string `json:"dir"`
	Pretty bool   `json:"pretty"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Kind: "serving",
			URL:  "http://localhost:8602",
		},
		Task: TaskConfig{
			Model:                      "face_landmarker",
			NumFaces:                   1,
			MinFaceDetectionConfidence: 0.5,
			MinFacePresenceConfidence:  0.5,
			MinTrackingConfidence:      0.5,
		},
		Log: LogConfig{
			Level: "info",
		},
		Output: OutputConfig{
			Dir:    "./out",
			Pretty: true,
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Backend.Kind != "serving" && c.Backend.Kind != "ollama" {
		return fmt.Errorf("backend.kind must be 'serving' or 'ollama'")
	}

	if c.Task.Model == "" {
		return fmt.Errorf("task.model cannot be empty")
	}

	if c.Task.NumFaces < 1 {
		return fmt.Errorf("task.num_faces must be at least 1")
	}

	for name, v := range map[string]float32{
		"task.min_face_detection_confidence": c.Task.MinFaceDetectionConfidence,
		"task.min_face_presence_confidence":  c.Task.MinFacePresenceConfidence,
		"task.min_tracking_confidence":       c.Task.MinTrackingConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "face-landmarker", "config.json")
}
