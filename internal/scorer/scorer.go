// Package scorer combines signature, pixel and URL evidence into the final
// verdict. Points are summed per evidence category and capped at 100; two
// overrides (explicit tool name, definitive low color count) can make a
// single category conclusive on its own.
package scorer

import (
	"fmt"
	"time"

	"github.com/provascan/provascan/internal/logging"
	"github.com/provascan/provascan/internal/model"
	"github.com/provascan/provascan/internal/signature"
)

// Config holds the scoring tunables: one consistent, documented set.
// These are policy parameters, not behavioral contracts.
type Config struct {
	// Points per signature match by tier.
	HighPoints   int
	MediumPoints int
	LowPoints    int

	// MultiplicityBonus is added per match beyond the first, up to
	// MultiplicityCap. Corroboration pays, but not without bound.
	MultiplicityBonus int
	MultiplicityCap   int

	// SignatureCap bounds total signature evidence. A definitive tool
	// match clamps signature evidence to exactly this value.
	SignatureCap int

	// CGIColorFloor triggers the definitive rendered/synthetic override:
	// palettes this small do not come out of cameras.
	CGIColorFloor int

	// LowColorMax and HighGradient bound the bands in which pixel
	// evidence contributes points, up to PixelCap.
	LowColorMax  int
	HighGradient float64
	PixelCap     int

	// URLCap bounds URL/filename evidence. Weak, corroborating only.
	URLCap int

	// DecisionThreshold is the score at which IsAI flips true.
	DecisionThreshold int

	// Score-to-confidence bands. Must be monotonic.
	BandHigh   int
	BandMedium int
	BandLow    int
}

// DefaultConfig returns the documented scoring defaults.
func DefaultConfig() Config {
	return Config{
		HighPoints:        25,
		MediumPoints:      15,
		LowPoints:         8,
		MultiplicityBonus: 3,
		MultiplicityCap:   12,
		SignatureCap:      80,
		CGIColorFloor:     50,
		LowColorMax:       300,
		HighGradient:      0.80,
		PixelCap:          30,
		URLCap:            20,
		DecisionThreshold: 25,
		BandHigh:          75,
		BandMedium:        50,
		BandLow:           25,
	}
}

// Scorer builds AnalysisResults from collected evidence. Stateless apart
// from its config and catalog; safe for concurrent use.
type Scorer struct {
	cfg    Config
	cat    *signature.Catalog
	logger logging.Logger
}

// New creates a Scorer. A zero DecisionThreshold selects the defaults;
// logger may be nil.
func New(cfg Config, cat *signature.Catalog, logger logging.Logger) *Scorer {
	if cfg.DecisionThreshold == 0 {
		cfg = DefaultConfig()
	}
	if cat == nil {
		cat = signature.DefaultCatalog()
	}
	return &Scorer{cfg: cfg, cat: cat, logger: logging.OrNop(logger)}
}

// Score combines the evidence streams into one AnalysisResult. The detail
// trail has a stable order: breakdown line, signature lines, pixel line,
// URL line.
func (s *Scorer) Score(matches []model.SignatureMatch, pm *model.PixelMetrics, url string) *model.AnalysisResult {
	urlMatches := signature.MatchURL(url, s.cat)

	sigPts, definitive := s.signaturePoints(matches)
	pixelPts, lowColorOverride := s.pixelPoints(pm)
	urlPts := s.urlPoints(urlMatches)

	score := sigPts + pixelPts + urlPts
	if score > 100 {
		score = 100
	}
	if lowColorOverride {
		score = 100
	}

	res := &model.AnalysisResult{
		URL:          url,
		IsAI:         score >= s.cfg.DecisionThreshold,
		AIScore:      score,
		Signatures:   matches,
		PixelMetrics: pm,
		AnalyzedAt:   time.Now(),
	}

	res.Confidence = s.confidenceBand(score)
	if lowColorOverride {
		res.Confidence = model.ConfidenceHigh
	}

	res.DetectedTool = detectedTool(matches, urlMatches)
	if res.DetectedTool == "" && res.IsAI && (lowColorOverride || pixelPts > 0) {
		res.DetectedTool = "rendered/CGI"
	}

	// Detail trail, stable order.
	res.Details = append(res.Details, fmt.Sprintf(
		"score breakdown: signatures=%d pixels=%d url=%d total=%d", sigPts, pixelPts, urlPts, score))
	if definitive {
		res.Details = append(res.Details, "explicit generator name matched: signature evidence treated as conclusive")
	}
	for _, m := range matches {
		res.Details = append(res.Details, m.Description)
	}
	if pm != nil {
		if pm.CORSBlocked {
			res.Details = append(res.Details, "pixel access blocked: neutral fallback metrics, no visual signal")
		} else {
			res.Details = append(res.Details, fmt.Sprintf(
				"pixel metrics: %d unique colors, %.2f gradient ratio", pm.UniqueColors, pm.GradientRatio))
		}
	}
	if lowColorOverride {
		res.Details = append(res.Details, fmt.Sprintf(
			"definitive low-color override: %d unique colors is below the %d floor", pm.UniqueColors, s.cfg.CGIColorFloor))
	}
	for _, m := range urlMatches {
		res.Details = append(res.Details, m.Description)
	}

	return res
}

// signaturePoints sums tier points plus the multiplicity bonus, capped at
// SignatureCap. Reports whether a definitive tool clamped the total.
func (s *Scorer) signaturePoints(matches []model.SignatureMatch) (pts int, definitive bool) {
	for _, m := range matches {
		switch m.Tier {
		case model.TierHigh:
			pts += s.cfg.HighPoints
		case model.TierMedium:
			pts += s.cfg.MediumPoints
		case model.TierLow:
			pts += s.cfg.LowPoints
		}
		if m.Tool != "" && s.cat.IsDefinitive(m.Tool) {
			definitive = true
		}
	}

	if n := len(matches); n > 1 {
		bonus := (n - 1) * s.cfg.MultiplicityBonus
		if bonus > s.cfg.MultiplicityCap {
			bonus = s.cfg.MultiplicityCap
		}
		pts += bonus
	}

	if pts > s.cfg.SignatureCap {
		pts = s.cfg.SignatureCap
	}
	if definitive {
		pts = s.cfg.SignatureCap
	}
	return pts, definitive
}

// pixelPoints converts the visual fingerprint into points and reports the
// definitive low-color override. Neutral fallback pairs contribute nothing.
func (s *Scorer) pixelPoints(pm *model.PixelMetrics) (pts int, override bool) {
	if pm == nil || pm.CORSBlocked {
		return 0, false
	}

	if pm.UniqueColors < s.cfg.CGIColorFloor {
		return s.cfg.PixelCap, true
	}
	if pm.UniqueColors < s.cfg.LowColorMax/2 {
		pts += 15
	} else if pm.UniqueColors < s.cfg.LowColorMax {
		pts += 10
	}
	if pm.GradientRatio > s.cfg.HighGradient {
		pts += 15
	} else if pm.GradientRatio > s.cfg.HighGradient-0.15 {
		pts += 8
	}

	if pts > s.cfg.PixelCap {
		pts = s.cfg.PixelCap
	}
	return pts, false
}

func (s *Scorer) urlPoints(urlMatches []model.SignatureMatch) int {
	pts := 0
	for _, m := range urlMatches {
		switch m.Tier {
		case model.TierHigh:
			pts += 10
		case model.TierMedium:
			pts += 6
		case model.TierLow:
			pts += 3
		}
	}
	if pts > s.cfg.URLCap {
		pts = s.cfg.URLCap
	}
	return pts
}

func (s *Scorer) confidenceBand(score int) model.ResultConfidence {
	switch {
	case score >= s.cfg.BandHigh:
		return model.ConfidenceHigh
	case score >= s.cfg.BandMedium:
		return model.ConfidenceMedium
	case score >= s.cfg.BandLow:
		return model.ConfidenceLow
	default:
		return model.ConfidenceNone
	}
}

// detectedTool picks the tool of the highest-tier match that names one.
// Metadata matches outrank URL matches at equal tier.
func detectedTool(matches, urlMatches []model.SignatureMatch) string {
	order := []model.Tier{model.TierHigh, model.TierMedium, model.TierLow}
	for _, tier := range order {
		for _, set := range [][]model.SignatureMatch{matches, urlMatches} {
			for _, m := range set {
				if m.Tier == tier && m.Tool != "" {
					return m.Tool
				}
			}
		}
	}
	return ""
}
