package pixels_test

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/provascan/provascan/internal/pixels"
	"github.com/provascan/provascan/internal/testutil"
)

func TestSampleBytesSolidColor(t *testing.T) {
	t.Parallel()
	e := pixels.NewEngine(pixels.DefaultConfig(), nil)

	pm, err := e.SampleBytes(testutil.SolidPNG(64, 64, color.RGBA{R: 180, G: 40, B: 40, A: 255}))
	if err != nil {
		t.Fatalf("SampleBytes: %v", err)
	}
	if pm.CORSBlocked {
		t.Fatal("decodable image flagged as blocked")
	}
	if pm.UniqueColors != 1 {
		t.Errorf("unique colors = %d, want 1", pm.UniqueColors)
	}
	if pm.GradientRatio < 0.99 {
		t.Errorf("gradient ratio = %.2f, want ~1 for a flat fill", pm.GradientRatio)
	}
	if pm.SampledPixels == 0 {
		t.Error("no pixels sampled")
	}
}

func TestSampleBytesGradient(t *testing.T) {
	t.Parallel()
	e := pixels.NewEngine(pixels.DefaultConfig(), nil)

	pm, err := e.SampleBytes(testutil.GradientPNG(256, 256))
	if err != nil {
		t.Fatalf("SampleBytes: %v", err)
	}
	if pm.UniqueColors < 100 {
		t.Errorf("unique colors = %d, want many for a full gradient", pm.UniqueColors)
	}
	if pm.GradientRatio < 0.5 {
		t.Errorf("gradient ratio = %.2f, want high for smooth ramps", pm.GradientRatio)
	}
}

func TestSampleBytesUndecodable(t *testing.T) {
	t.Parallel()
	e := pixels.NewEngine(pixels.DefaultConfig(), nil)

	pm, err := e.SampleBytes([]byte("definitely not an image"))
	if !errors.Is(err, pixels.ErrUndecodable) {
		t.Fatalf("err = %v, want ErrUndecodable", err)
	}
	if !pm.CORSBlocked {
		t.Error("neutral fallback must be tagged blocked")
	}
	cfg := pixels.DefaultConfig()
	if pm.UniqueColors != cfg.NeutralColors || pm.GradientRatio != cfg.NeutralGradient {
		t.Errorf("fallback = %+v, want the neutral pair", pm)
	}
}

// A structurally valid PNG without image data parses as metadata but cannot
// be decoded; pixel sampling must degrade, not fail.
func TestSampleBytesMetadataOnlyPNG(t *testing.T) {
	t.Parallel()
	e := pixels.NewEngine(pixels.DefaultConfig(), nil)

	pm, err := e.SampleBytes(testutil.PNGWithText("parameters", "Steps: 20"))
	if !errors.Is(err, pixels.ErrUndecodable) {
		t.Fatalf("err = %v, want ErrUndecodable", err)
	}
	if !pm.CORSBlocked {
		t.Error("expected the neutral pair")
	}
}

func TestSampleAllTransparent(t *testing.T) {
	t.Parallel()
	e := pixels.NewEngine(pixels.DefaultConfig(), nil)

	img := image.NewRGBA(image.Rect(0, 0, 32, 32)) // zero value: fully transparent
	pm := e.Sample(img)
	if !pm.CORSBlocked {
		t.Error("fully transparent image should yield the neutral pair")
	}
}

func TestSampleSkipsNearWhite(t *testing.T) {
	t.Parallel()
	e := pixels.NewEngine(pixels.DefaultConfig(), nil)

	// White background with one dark square: only the square contributes.
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	for y := 40; y < 60; y++ {
		for x := 40; x < 60; x++ {
			img.Set(x, y, color.RGBA{R: 20, G: 20, B: 120, A: 255})
		}
	}

	pm := e.Sample(img)
	if pm.CORSBlocked {
		t.Fatal("image with content flagged as blocked")
	}
	if pm.UniqueColors != 1 {
		t.Errorf("unique colors = %d, want 1 (background skipped)", pm.UniqueColors)
	}
}

func TestNewEngineValidation(t *testing.T) {
	t.Parallel()

	// Invalid quantization levels fall back to a sane power of two rather
	// than corrupting the bit-shift arithmetic.
	e := pixels.NewEngine(pixels.Config{SurfaceSize: 100, Stride: 2, QuantLevels: 37}, nil)
	pm, err := e.SampleBytes(testutil.SolidPNG(16, 16, color.RGBA{R: 90, G: 90, B: 90, A: 255}))
	if err != nil {
		t.Fatalf("SampleBytes: %v", err)
	}
	if pm.UniqueColors != 1 {
		t.Errorf("unique colors = %d, want 1", pm.UniqueColors)
	}
}
