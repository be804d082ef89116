package model

import "time"

// ResultConfidence is the overall confidence attached to an AnalysisResult.
// It distinguishes "nothing detectable" (none) from "analysis could not even
// be attempted" (blocked/error).
type ResultConfidence string

const (
	ConfidenceNone    ResultConfidence = "none"
	ConfidenceLow     ResultConfidence = "low"
	ConfidenceMedium  ResultConfidence = "medium"
	ConfidenceHigh    ResultConfidence = "high"
	ConfidenceError   ResultConfidence = "error"
	ConfidenceBlocked ResultConfidence = "blocked"
)

// PixelMetrics is the entire visual fingerprint of a sampled image: a
// quantized unique-color count and a local gradient-smoothness ratio.
type PixelMetrics struct {
	// UniqueColors is the number of distinct quantized RGB triples seen
	// while sampling.
	UniqueColors int `json:"unique_colors"`

	// GradientRatio is smooth-transition comparisons / total comparisons,
	// in [0,1]. Higher means smoother local color transitions.
	GradientRatio float64 `json:"gradient_ratio"`

	// SampledPixels is how many grid points contributed (after alpha and
	// background skipping).
	SampledPixels int `json:"sampled_pixels,omitempty"`

	// CORSBlocked marks a neutral fallback pair produced because pixel
	// access was denied or the image could not be decoded.
	CORSBlocked bool `json:"cors_blocked,omitempty"`
}

// AnalysisResult is the terminal aggregate for one analyzed media item.
// Constructed once by the scorer; immutable; owned by the caller.
type AnalysisResult struct {
	// ID is an opaque identifier assigned when the result is stored or
	// tracked as a job. Empty for direct library calls.
	ID string `json:"id,omitempty"`

	// URL is the analyzed source (URL or filename).
	URL string `json:"url,omitempty"`

	// ContainerType is the detected container of the analyzed bytes.
	ContainerType ContainerType `json:"container_type"`

	// IsAI is the binary verdict: score at or above the decision threshold.
	IsAI bool `json:"is_ai"`

	// Confidence is the overall confidence tier for the verdict.
	Confidence ResultConfidence `json:"confidence"`

	// AIScore is the combined evidence score in [0,100].
	AIScore int `json:"ai_score"`

	// DetectedTool names the generator when one was identified, or a
	// generic "rendered/CGI" label when pixel evidence alone triggered
	// classification. Empty otherwise.
	DetectedTool string `json:"detected_tool,omitempty"`

	// Signatures lists every signature match, in field traversal order.
	Signatures []SignatureMatch `json:"signatures,omitempty"`

	// PixelMetrics is present when pixel sampling ran.
	PixelMetrics *PixelMetrics `json:"pixel_metrics,omitempty"`

	// Details is the ordered human-readable rationale trail: score
	// breakdown first, then one line per signature match, then pixel and
	// URL evidence lines.
	Details []string `json:"details,omitempty"`

	// Warnings carries structural parse warnings (truncated chunks etc).
	Warnings []string `json:"warnings,omitempty"`

	// AnalyzedAt is when the result was produced.
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// ErrorResult builds the well-formed result every failure mode must
// terminate in: a renderable verdict with confidence error/blocked and an
// explanatory detail line, never a panic past the boundary.
func ErrorResult(url string, confidence ResultConfidence, detail string) *AnalysisResult {
	return &AnalysisResult{
		URL:           url,
		ContainerType: ContainerUnknown,
		IsAI:          false,
		Confidence:    confidence,
		Details:       []string{detail},
		AnalyzedAt:    time.Now(),
	}
}
