// Package processing is the image provider for the landmark tasks: it loads
// images from files, URLs, or raw pixel buffers and canonicalizes them into
// RGBA frames with orientation metadata, the only input format the inference
// engine backends accept.
package processing

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Orientation describes how a frame must be rotated to be upright, in
// clockwise 90-degree steps.
type Orientation int

const (
	// OrientationUp means no rotation is needed.
	OrientationUp Orientation = iota
	// OrientationRight means the frame must be rotated 90 degrees clockwise.
	OrientationRight
	// OrientationDown means the frame must be rotated 180 degrees.
	OrientationDown
	// OrientationLeft means the frame must be rotated 270 degrees clockwise.
	OrientationLeft
)

// String returns the wire name of the orientation.
func (o Orientation) String() string {
	switch o {
	case OrientationUp:
		return "up"
	case OrientationRight:
		return "right"
	case OrientationDown:
		return "down"
	case OrientationLeft:
		return "left"
	default:
		return "unknown"
	}
}

// PixelFormat identifies the layout of a raw 32-bit pixel buffer.
type PixelFormat int

const (
	// PixelFormatRGBA is 8-bit R, G, B, A per pixel.
	PixelFormatRGBA PixelFormat = iota
	// PixelFormatBGRA is 8-bit B, G, R, A per pixel.
	PixelFormatBGRA
)

// Frame is a canonical RGBA pixel buffer plus orientation metadata. Pix holds
// 4 bytes per pixel in RGBA order with no row padding.
type Frame struct {
	Pix         []byte
	Width       int
	Height      int
	Orientation Orientation
}

// Image converts the frame back into an NRGBA image.
func (f *Frame) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	copy(img.Pix, f.Pix)
	return img
}

// Oriented returns the frame's pixels as an upright image, applying the
// orientation rotation.
func (f *Frame) Oriented() *image.NRGBA {
	img := f.Image()
	switch f.Orientation {
	case OrientationRight:
		return imaging.Rotate270(img)
	case OrientationDown:
		return imaging.Rotate180(img)
	case OrientationLeft:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// Processor canonicalizes image sources into frames.
type Processor struct {
	httpClient *http.Client
}

// NewProcessor creates a new image processor.
func NewProcessor() *Processor {
	return &Processor{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Canonicalize converts any decoded image into an RGBA frame carrying the
// given orientation.
func (p *Processor) Canonicalize(img image.Image, orientation Orientation) (*Frame, error) {
	if img == nil {
		return nil, fmt.Errorf("nil source image")
	}
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("empty source image")
	}
	frame := &Frame{
		Pix:         make([]byte, w*h*4),
		Width:       w,
		Height:      h,
		Orientation: orientation,
	}
	// imaging.Clone yields a contiguous NRGBA buffer with stride == 4*w.
	copy(frame.Pix, nrgba.Pix)
	return frame, nil
}

// FrameFromBytes wraps a raw 32-bit pixel buffer as a frame. BGRA input is
// swizzled into RGBA; any other pixel format is rejected.
func (p *Processor) FrameFromBytes(pix []byte, width, height int, format PixelFormat, orientation Orientation) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions %dx%d", width, height)
	}
	if len(pix) != width*height*4 {
		return nil, fmt.Errorf("pixel buffer has %d bytes, want %d for %dx%d 32-bit pixels",
			len(pix), width*height*4, width, height)
	}
	out := make([]byte, len(pix))
	switch format {
	case PixelFormatRGBA:
		copy(out, pix)
	case PixelFormatBGRA:
		for i := 0; i < len(pix); i += 4 {
			out[i] = pix[i+2]
			out[i+1] = pix[i+1]
			out[i+2] = pix[i]
			out[i+3] = pix[i+3]
		}
	default:
		return nil, fmt.Errorf("unsupported pixel format: only 32-bit RGBA and BGRA buffers are accepted")
	}
	return &Frame{Pix: out, Width: width, Height: height, Orientation: orientation}, nil
}

// LoadImage loads an image from a file path with WebP support.
func (p *Processor) LoadImage(path string) (image.Image, error) {
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.Contains(strings.ToLower(path), ".webp") {
		if img, err := webp.Decode(f); err == nil {
			return img, nil
		}
		if _, err := f.Seek(0, 0); err == nil {
			if img, _, err := image.Decode(f); err == nil {
				return img, nil
			}
		}
	} else {
		if _, err := f.Seek(0, 0); err == nil {
			if img, _, err := image.Decode(f); err == nil {
				return img, nil
			}
		}
	}
	return nil, fmt.Errorf("image: unknown format for %s", path)
}

// LoadImageFromURL downloads and decodes an image from an HTTP(S) URL.
func (p *Processor) LoadImageFromURL(imageURL string) (image.Image, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequest("GET", imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", "Face-Landmarker/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %v", err)
	}
	return p.decodeImageFromBytes(data)
}

// LoadImageSmart loads an image from either a file path or a URL.
func (p *Processor) LoadImageSmart(source string) (image.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.LoadImageFromURL(source)
	}
	return p.LoadImage(source)
}

func (p *Processor) decodeImageFromBytes(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// EncodeFrame renders a frame upright and encodes it as base64 for backends
// that accept images over a text protocol. A positive maxDim downscales the
// long side before encoding.
func (p *Processor) EncodeFrame(f *Frame, format string, maxDim, quality int) (string, error) {
	img := f.Oriented()
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", err
		}
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
