package model

import "time"

// AnalyzeRequest represents a request to analyze a single media URL.
type AnalyzeRequest struct {
	// URL is the media URL to fetch and analyze.
	URL string `json:"url"`

	// SkipPixels disables pixel sampling for a header-only scan.
	SkipPixels bool `json:"skip_pixels,omitempty"`
}

// PageScanRequest represents a request to scan a web page for candidate
// media and analyze each candidate.
type PageScanRequest struct {
	// URL is the page URL to fetch and scan.
	URL string `json:"url"`

	// Limit caps how many candidates get analyzed (0 = server default).
	Limit int `json:"limit,omitempty"`
}

// PageScanResult aggregates the analyses of every candidate found on a page.
type PageScanResult struct {
	// JobID is the identifier for this scan job.
	JobID string `json:"job_id"`

	// PageURL is the scanned page.
	PageURL string `json:"page_url"`

	// Candidates is how many media URLs were discovered on the page.
	Candidates int `json:"candidates"`

	// Results holds one analysis per analyzed candidate, in discovery order.
	Results []*AnalysisResult `json:"results,omitempty"`

	// Error contains failure details if the scan could not run.
	Error string `json:"error,omitempty"`

	// StartedAt / CompletedAt bound the scan.
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
