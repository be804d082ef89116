// Package pixels derives the visual fingerprint of an image: a quantized
// unique-color count and a local gradient-smoothness ratio. Limited palettes
// and unnaturally smooth transitions both correlate with rendered or
// generative output, while sensor noise in real photographs defeats both
// metrics. Neither number is reliable alone; the scorer combines them with
// the metadata evidence.
package pixels

import (
	"bytes"
	"errors"
	"image"
	"math/bits"

	// Rasterization backends for every container the parser recognizes as
	// an image format.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/provascan/provascan/internal/logging"
	"github.com/provascan/provascan/internal/model"
)

// ErrUndecodable reports bytes no registered decoder accepts.
var ErrUndecodable = errors.New("pixels: image bytes not decodable")

// Config holds the sampling tunables. Defaults are the documented set; they
// are parameters, not contracts.
type Config struct {
	// SurfaceSize bounds the sampling grid to SurfaceSize² logical pixels
	// regardless of source resolution.
	SurfaceSize int

	// Stride is the grid step on the working surface. Smaller = denser.
	Stride int

	// QuantLevels is the number of quantization levels per channel. Must
	// be a power of two between 2 and 256.
	QuantLevels int

	// AlphaMin skips pixels more transparent than this.
	AlphaMin uint8

	// WhiteFloor skips near-white pixels (background, not content).
	WhiteFloor uint8

	// SmoothThreshold is the Manhattan RGB distance below which a
	// right-neighbor comparison counts as a smooth transition.
	SmoothThreshold int

	// NeutralColors / NeutralGradient form the fallback pair returned
	// when pixel access is unavailable. Chosen to sit below every CGI
	// decision threshold so a blocked image scores as "no visual signal".
	NeutralColors   int
	NeutralGradient float64
}

// DefaultConfig returns the documented default sampling parameters.
func DefaultConfig() Config {
	return Config{
		SurfaceSize:     300,
		Stride:          3,
		QuantLevels:     32,
		AlphaMin:        128,
		WhiteFloor:      245,
		SmoothThreshold: 24,
		NeutralColors:   5000,
		NeutralGradient: 0.5,
	}
}

// Engine samples rasterized images. Stateless apart from its config, so one
// engine may serve concurrent analyses.
type Engine struct {
	cfg    Config
	logger logging.Logger
}

// NewEngine creates an Engine. A zero-value config is replaced by defaults;
// logger may be nil.
func NewEngine(cfg Config, logger logging.Logger) *Engine {
	if cfg.SurfaceSize <= 0 {
		cfg = DefaultConfig()
	}
	if cfg.Stride <= 0 {
		cfg.Stride = 1
	}
	if cfg.QuantLevels < 2 || cfg.QuantLevels > 256 || bits.OnesCount(uint(cfg.QuantLevels)) != 1 {
		cfg.QuantLevels = 32
	}
	return &Engine{cfg: cfg, logger: logging.OrNop(logger)}
}

// Neutral returns the fallback metric pair used when pixel access is denied
// or the bytes cannot be decoded, tagged so callers can tell it apart from a
// real sample.
func (e *Engine) Neutral() model.PixelMetrics {
	return model.PixelMetrics{
		UniqueColors:  e.cfg.NeutralColors,
		GradientRatio: e.cfg.NeutralGradient,
		CORSBlocked:   true,
	}
}

// SampleBytes decodes data with any registered decoder and samples the
// result. Undecodable bytes degrade to the neutral pair plus ErrUndecodable
// so the caller can log the condition without losing the analysis.
func (e *Engine) SampleBytes(data []byte) (model.PixelMetrics, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		e.logger.Debug("image decode failed", logging.Field{Key: "error", Value: err.Error()})
		return e.Neutral(), ErrUndecodable
	}
	e.logger.Debug("decoded image", logging.Field{Key: "format", Value: format})
	return e.Sample(img), nil
}

// Sample iterates a bounded grid over img and accumulates the two metrics.
// Pure and side-effect free; never fails.
func (e *Engine) Sample(img image.Image) model.PixelMetrics {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return e.Neutral()
	}

	// The grid is Stride-stepped across a SurfaceSize² logical surface and
	// mapped back onto source coordinates, which bounds work identically
	// to rasterizing onto a small canvas first.
	grid := e.cfg.SurfaceSize / e.cfg.Stride
	if grid < 2 {
		grid = 2
	}

	shift := 8 - uint(bits.TrailingZeros(uint(e.cfg.QuantLevels)))
	colors := make(map[uint32]struct{}, 1024)

	sampled := 0
	smooth, comparisons := 0, 0

	for gy := 0; gy < grid; gy++ {
		sy := bounds.Min.Y + gy*h/grid
		for gx := 0; gx < grid; gx++ {
			sx := bounds.Min.X + gx*w/grid
			r, g, b, ok := e.sampleAt(img, sx, sy)
			if !ok {
				continue
			}
			sampled++

			key := uint32(r>>shift)<<16 | uint32(g>>shift)<<8 | uint32(b>>shift)
			colors[key] = struct{}{}

			// Right neighbor at the same stride.
			if gx+1 < grid {
				nx := bounds.Min.X + (gx+1)*w/grid
				nr, ng, nb, nok := e.sampleAt(img, nx, sy)
				if nok {
					comparisons++
					if manhattan(r, g, b, nr, ng, nb) < e.cfg.SmoothThreshold {
						smooth++
					}
				}
			}
		}
	}

	if sampled == 0 {
		// All transparent or background: no visual signal.
		return e.Neutral()
	}

	ratio := 0.0
	if comparisons > 0 {
		ratio = float64(smooth) / float64(comparisons)
	}
	return model.PixelMetrics{
		UniqueColors:  len(colors),
		GradientRatio: ratio,
		SampledPixels: sampled,
	}
}

// sampleAt reads one pixel, applying the alpha and near-white skip rules.
func (e *Engine) sampleAt(img image.Image, x, y int) (r, g, b uint8, ok bool) {
	r16, g16, b16, a16 := img.At(x, y).RGBA()
	r, g, b = uint8(r16>>8), uint8(g16>>8), uint8(b16>>8)
	if uint8(a16>>8) < e.cfg.AlphaMin {
		return 0, 0, 0, false
	}
	if r >= e.cfg.WhiteFloor && g >= e.cfg.WhiteFloor && b >= e.cfg.WhiteFloor {
		return 0, 0, 0, false
	}
	return r, g, b, true
}

func manhattan(r1, g1, b1, r2, g2, b2 uint8) int {
	return absDiff(r1, r2) + absDiff(g1, g2) + absDiff(b1, b2)
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
