package server

// AnalyzeRequest asks for a synchronous analysis of one media URL.
type AnalyzeRequest struct {
	URL        string `json:"url" example:"https://example.com/picture.png"`
	SkipPixels bool   `json:"skip_pixels" example:"false"`
}

// StartScanRequest launches an asynchronous page scan job.
type StartScanRequest struct {
	URL   string `json:"url" example:"https://example.com/gallery"`
	Limit int    `json:"limit" example:"25"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"not found"`
}
