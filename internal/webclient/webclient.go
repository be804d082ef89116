package webclient

import (
	"context"
	"net/http"
	"time"
)

// WebClient is the byte-source abstraction: given a URL it returns raw bytes
// or a defined failure. Backends decide how the bytes are obtained (plain
// HTTP, rendered browser, ...).
type WebClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)

	Close() error
}

type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
	// Options contains backend-specific options like "render": "true" for chromedp
	Options map[string]string
}

type Response struct {
	Request    *Request
	Headers    http.Header
	Body       []byte
	StatusCode int
	FetchedAt  time.Time

	// Truncated marks a body cut off at the configured byte ceiling. The
	// truncated prefix is still analyzed; headers and text metadata sit at
	// the front of every container this pipeline parses.
	Truncated bool
}

// Backend names.
const (
	BackendNetHTTP  = "nethttp"
	BackendChromeDP = "chromedp"
)

// Config is the minimal configuration required for constructing a WebClient.
type Config struct {
	// Backend selects the registered backend ("nethttp" by default).
	Backend string

	// Timeout bounds one fetch.
	Timeout time.Duration

	// MaxBodyBytes is the byte ceiling per fetch; bodies beyond it are
	// truncated, not failed. Zero means the 50MB default.
	MaxBodyBytes int64

	// UserAgent overrides the default request User-Agent when non-empty.
	UserAgent string

	// Headless controls whether the chromedp backend hides the browser.
	Headless bool
}

const defaultMaxBodyBytes = 50 << 20

func (c Config) maxBodyBytes() int64 {
	if c.MaxBodyBytes <= 0 {
		return defaultMaxBodyBytes
	}
	return c.MaxBodyBytes
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.Timeout
}
