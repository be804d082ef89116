package demosite

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
)

// isGenerated reports whether a fixture name belongs to the generated
// gallery.
func isGenerated(name string) bool {
	return strings.HasPrefix(name, "gen-")
}

// buildMedia renders the fixture images. Generated ones get provenance
// metadata spliced in after encoding; camera ones are served as encoded.
func buildMedia() ([]mediaItem, error) {
	sdPNG, err := pngWithText(gradientImage(320, 240), "parameters",
		"a castle on a hill, dramatic lighting\nNegative prompt: blurry, low quality\nSteps: 30, Sampler: DPM++ 2M Karras, CFG scale: 7, Seed: 1470832651")
	if err != nil {
		return nil, err
	}

	mjPNG, err := pngWithText(gradientImage(320, 240), "Description",
		"cinematic portrait --ar 16:9 --v 6 --stylize 400 Job ID: 9c3e8f2a")
	if err != nil {
		return nil, err
	}

	camPNG, err := encodePNG(noiseImage(320, 240))
	if err != nil {
		return nil, err
	}

	camJPEG, err := encodeJPEG(noiseImage(320, 240))
	if err != nil {
		return nil, err
	}

	return []mediaItem{
		{
			Name:        "gen-stable-diffusion.png",
			ContentType: "image/png",
			Description: "Stable Diffusion output with its parameters block intact",
			Bytes:       sdPNG,
		},
		{
			Name:        "gen-midjourney.png",
			ContentType: "image/png",
			Description: "Midjourney output with prompt flags in the description",
			Bytes:       mjPNG,
		},
		{
			Name:        "cam-noise.png",
			ContentType: "image/png",
			Description: "Plain PNG with no provenance metadata",
			Bytes:       camPNG,
		},
		{
			Name:        "cam-noise.jpg",
			ContentType: "image/jpeg",
			Description: "Plain JPEG with no provenance metadata",
			Bytes:       camJPEG,
		},
	}, nil
}

// gradientImage renders a smooth two-axis gradient, the kind of surface
// the pixel sampler reads as synthetic.
func gradientImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(255 * x / w),
				G: uint8(255 * y / h),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

// noiseImage renders a deterministic high-variation surface so the camera
// fixtures do not trip the low-color heuristics.
func noiseImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	seed := uint32(0x9e3779b9)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			seed = seed*1664525 + 1013904223
			img.Set(x, y, color.RGBA{
				R: uint8(seed >> 8),
				G: uint8(seed >> 16),
				B: uint8(seed >> 24),
				A: 255,
			})
		}
	}
	return img
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// pngWithText encodes img and splices a tEXt chunk in right after IHDR,
// the position generators write their metadata at.
func pngWithText(img image.Image, keyword, text string) ([]byte, error) {
	data, err := encodePNG(img)
	if err != nil {
		return nil, err
	}

	// 8-byte signature, then the 25-byte IHDR chunk.
	const insertAt = 8 + 25
	if len(data) < insertAt {
		return nil, fmt.Errorf("encoded png too short")
	}

	payload := append([]byte(keyword), 0)
	payload = append(payload, []byte(text)...)

	chunk := make([]byte, 0, 12+len(payload))
	chunk = binary.BigEndian.AppendUint32(chunk, uint32(len(payload)))
	chunk = append(chunk, []byte("tEXt")...)
	chunk = append(chunk, payload...)

	crc := crc32.NewIEEE()
	crc.Write([]byte("tEXt"))
	crc.Write(payload)
	chunk = binary.BigEndian.AppendUint32(chunk, crc.Sum32())

	out := make([]byte, 0, len(data)+len(chunk))
	out = append(out, data[:insertAt]...)
	out = append(out, chunk...)
	out = append(out, data[insertAt:]...)
	return out, nil
}
