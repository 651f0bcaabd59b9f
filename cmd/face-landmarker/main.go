package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	facelandmarker "github.com/visiontasks/face-landmarker"
	"github.com/visiontasks/face-landmarker/internal/config"
	"github.com/visiontasks/face-landmarker/internal/logging"
	"github.com/visiontasks/face-landmarker/internal/utils"
	"github.com/visiontasks/face-landmarker/pkg/core"
	"github.com/visiontasks/face-landmarker/pkg/engine"
	"github.com/visiontasks/face-landmarker/pkg/ollama"
	"github.com/visiontasks/face-landmarker/pkg/processing"
	"github.com/visiontasks/face-landmarker/pkg/serving"
)

func main() {
	var in, outDir, backend, url, model, configPath, level string
	var numFaces int
	var blendshapes, matrixes bool
	var timestampMs int64
	var videoMode bool

	flag.StringVar(&in, "in", "", "input image path or URL (jpg/png/webp)")
	flag.StringVar(&outDir, "out", "", "output directory for result JSON")
	flag.StringVar(&backend, "backend", "", "backend to use: serving or ollama")
	flag.StringVar(&url, "url", "", "backend server URL")
	flag.StringVar(&model, "model", "", "model name")
	flag.StringVar(&configPath, "config", "", "config file path (JSON)")
	flag.StringVar(&level, "level", "", "log level: debug|info|warn|error")
	flag.IntVar(&numFaces, "faces", 0, "maximum number of faces to detect")
	flag.BoolVar(&blendshapes, "blendshapes", false, "output face blendshapes")
	flag.BoolVar(&matrixes, "matrixes", false, "output facial transformation matrixes")
	flag.BoolVar(&videoMode, "video", false, "treat the input as a video frame")
	flag.Int64Var(&timestampMs, "ts", 0, "frame timestamp in milliseconds (video mode)")
	flag.Parse()

	if in == "" {
		fmt.Fprintf(os.Stderr, "usage: %s -in input.jpg|URL [-backend serving|ollama] [-url server_url] [-out outdir] [-blendshapes] [-matrixes]\n",
			filepath.Base(os.Args[0]))
		os.Exit(2)
	}

	cfg := loadConfig(configPath)
	applyFlags(cfg, backend, url, model, level, outDir, numFaces, blendshapes, matrixes)
	logging.Init(cfg.Log.Level, cfg.Log.JSON)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := utils.EnsureDir(cfg.Output.Dir); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	if !utils.IsImageFile(in) && !isURL(in) {
		log.Warnf("Input %q has no known image extension, trying anyway", in)
	}

	var factory engine.Factory
	switch cfg.Backend.Kind {
	case "serving":
		factory = serving.Factory(cfg.Backend.URL)
	case "ollama":
		factory = ollama.Factory(cfg.Backend.URL)
	}

	mode := core.RunningModeImage
	if videoMode {
		mode = core.RunningModeVideo
	}

	lm, err := facelandmarker.New(facelandmarker.Options{
		BaseOptions:                        core.BaseOptions{ModelAssetName: cfg.Task.Model},
		RunningMode:                        mode,
		NumFaces:                           cfg.Task.NumFaces,
		MinFaceDetectionConfidence:         cfg.Task.MinFaceDetectionConfidence,
		MinFacePresenceConfidence:          cfg.Task.MinFacePresenceConfidence,
		MinTrackingConfidence:              cfg.Task.MinTrackingConfidence,
		OutputFaceBlendshapes:              cfg.Task.OutputFaceBlendshapes,
		OutputFacialTransformationMatrixes: cfg.Task.OutputFacialTransformationMatrixes,
		EngineFactory:                      factory,
	})
	if err != nil {
		log.Fatalf("Failed to create landmarker: %v", err)
	}
	defer lm.Close()

	proc := processing.NewProcessor()
	img, err := proc.LoadImageSmart(in)
	if err != nil {
		log.Fatalf("Failed to load image: %v", err)
	}

	input := facelandmarker.Image{Image: img}
	var result any
	if videoMode {
		result, err = lm.DetectForVideo(context.Background(), input, timestampMs)
	} else {
		result, err = lm.Detect(context.Background(), input)
	}
	if err != nil {
		log.Fatalf("Detection failed: %v", err)
	}

	var js []byte
	if cfg.Output.Pretty {
		js, err = json.MarshalIndent(result, "", "  ")
	} else {
		js, err = json.Marshal(result)
	}
	if err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}

	outPath := utils.ResultFilename(in, cfg.Output.Dir)
	if err := os.WriteFile(outPath, js, 0o644); err != nil {
		log.Fatalf("Failed to write result: %v", err)
	}
	log.Infof("wrote %s", outPath)
}

func loadConfig(path string) *config.Config {
	if path == "" {
		return config.Default()
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func applyFlags(cfg *config.Config, backend, url, model, level, outDir string, numFaces int, blendshapes, matrixes bool) {
	if backend != "" {
		cfg.Backend.Kind = backend
	}
	if url != "" {
		cfg.Backend.URL = url
	}
	if model != "" {
		cfg.Task.Model = model
	}
	if level != "" {
		cfg.Log.Level = level
	}
	if outDir != "" {
		cfg.Output.Dir = outDir
	}
	if numFaces > 0 {
		cfg.Task.NumFaces = numFaces
	}
	if blendshapes {
		cfg.Task.OutputFaceBlendshapes = true
	}
	if matrixes {
		cfg.Task.OutputFacialTransformationMatrixes = true
	}
}

func isURL(s string) bool {
	return len(s) > 7 && (s[:7] == "http://" || (len(s) > 8 && s[:8] == "https://"))
}
