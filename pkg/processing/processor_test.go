package processing

import (
	"image"
	"image/color"
	"testing"
)

// createTestImage creates a simple test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			b := uint8(128)
			img.Set(x, y, color.RGBA{r, g, b, 255})
		}
	}

	return img
}

func TestCanonicalize(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(64, 48)

	frame, err := p.Canonicalize(img, OrientationUp)
	if err != nil {
		t.Fatalf("Canonicalize failed: %v", err)
	}

	if frame.Width != 64 || frame.Height != 48 {
		t.Errorf("Expected 64x48 frame, got %dx%d", frame.Width, frame.Height)
	}
	if len(frame.Pix) != 64*48*4 {
		t.Errorf("Expected %d pixel bytes, got %d", 64*48*4, len(frame.Pix))
	}
	if frame.Orientation != OrientationUp {
		t.Errorf("Expected orientation up, got %v", frame.Orientation)
	}

	// Pixel (0,0) of the gradient is {0, 0, 128, 255}
	if frame.Pix[2] != 128 || frame.Pix[3] != 255 {
		t.Errorf("Unexpected first pixel: %v", frame.Pix[:4])
	}
}

func TestCanonicalizeNilImage(t *testing.T) {
	p := NewProcessor()
	if _, err := p.Canonicalize(nil, OrientationUp); err == nil {
		t.Error("Canonicalize should reject a nil image")
	}
}

func TestFrameFromBytesRGBA(t *testing.T) {
	p := NewProcessor()
	pix := []byte{10, 20, 30, 255, 40, 50, 60, 255}

	frame, err := p.FrameFromBytes(pix, 2, 1, PixelFormatRGBA, OrientationUp)
	if err != nil {
		t.Fatalf("FrameFromBytes failed: %v", err)
	}
	if frame.Pix[0] != 10 || frame.Pix[4] != 40 {
		t.Errorf("RGBA bytes should pass through unchanged: %v", frame.Pix)
	}
}

func TestFrameFromBytesBGRASwizzle(t *testing.T) {
	p := NewProcessor()
	pix := []byte{30, 20, 10, 255}

	frame, err := p.FrameFromBytes(pix, 1, 1, PixelFormatBGRA, OrientationUp)
	if err != nil {
		t.Fatalf("FrameFromBytes failed: %v", err)
	}
	if frame.Pix[0] != 10 || frame.Pix[1] != 20 || frame.Pix[2] != 30 || frame.Pix[3] != 255 {
		t.Errorf("BGRA should swizzle to RGBA, got %v", frame.Pix)
	}
}

func TestFrameFromBytesRejectsBadInput(t *testing.T) {
	p := NewProcessor()

	if _, err := p.FrameFromBytes([]byte{1, 2, 3}, 2, 2, PixelFormatRGBA, OrientationUp); err == nil {
		t.Error("Short buffer should be rejected")
	}
	if _, err := p.FrameFromBytes(make([]byte, 16), 2, 2, PixelFormat(7), OrientationUp); err == nil {
		t.Error("Unknown pixel format should be rejected")
	}
	if _, err := p.FrameFromBytes(nil, 0, 0, PixelFormatRGBA, OrientationUp); err == nil {
		t.Error("Empty dimensions should be rejected")
	}
}

func TestFrameOriented(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(60, 40)

	frame, err := p.Canonicalize(img, OrientationRight)
	if err != nil {
		t.Fatalf("Canonicalize failed: %v", err)
	}

	upright := frame.Oriented()
	b := upright.Bounds()
	if b.Dx() != 40 || b.Dy() != 60 {
		t.Errorf("90-degree rotation should swap dimensions, got %dx%d", b.Dx(), b.Dy())
	}

	frame.Orientation = OrientationDown
	upright = frame.Oriented()
	b = upright.Bounds()
	if b.Dx() != 60 || b.Dy() != 40 {
		t.Errorf("180-degree rotation should keep dimensions, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestEncodeFrame(t *testing.T) {
	p := NewProcessor()
	frame, err := p.Canonicalize(createTestImage(200, 100), OrientationUp)
	if err != nil {
		t.Fatalf("Canonicalize failed: %v", err)
	}

	for _, format := range []string{"png", "jpg"} {
		b64, err := p.EncodeFrame(frame, format, 0, 85)
		if err != nil {
			t.Errorf("EncodeFrame(%s) failed: %v", format, err)
		}
		if b64 == "" {
			t.Errorf("EncodeFrame(%s) returned empty output", format)
		}
	}

	// Downscaled output should be smaller than the original encoding
	full, err := p.EncodeFrame(frame, "png", 0, 0)
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}
	small, err := p.EncodeFrame(frame, "png", 50, 0)
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}
	if len(small) >= len(full) {
		t.Errorf("Downscaled encoding (%d) should be smaller than full (%d)", len(small), len(full))
	}
}

func BenchmarkCanonicalize(b *testing.B) {
	p := NewProcessor()
	img := createTestImage(1920, 1080)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Canonicalize(img, OrientationUp); err != nil {
			b.Fatal(err)
		}
	}
}
