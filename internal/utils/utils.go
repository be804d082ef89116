package utils

import (
	"fmt"
	"net"
	"net/url"
	"path"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

type URLTools struct {
	URL *url.URL
}

func NewURLTools(raw string) (*URLTools, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("couldn't parse url %s: %w", raw, err)
	}

	urlTools := &URLTools{
		URL: u,
	}
	urlTools.normalize()

	return urlTools, nil
}

func (u *URLTools) normalize() {
	u.URL.Fragment = ""
	u.URL.Scheme = strings.ToLower(u.URL.Scheme)
	u.URL.Host = strings.ToLower(u.URL.Host)

	if (u.URL.Scheme == "http" && strings.HasSuffix(u.URL.Host, ":80")) ||
		(u.URL.Scheme == "https" && strings.HasSuffix(u.URL.Host, ":443")) {
		u.URL.Host, _, _ = strings.Cut(u.URL.Host, ":")
	}
}

func (u *URLTools) DomainIsSame(target *URLTools) bool {
	return u.URL.Hostname() == target.URL.Hostname()
}

// ResolveFullURLString resolves targetURL against u.URL and returns a full
// absolute URL. Relative references ("../img/a.png", "/static/b.webp",
// "c.jpg") all resolve against the base; absolute URLs pass through.
func (u *URLTools) ResolveFullURLString(targetURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(targetURL))
	if err != nil {
		return "", fmt.Errorf("couldn't parse url %s: %w", targetURL, err)
	}
	return u.URL.ResolveReference(parsed).String(), nil
}

// CanonicalizeOptions controls optional canonicalization policies.
type CanonicalizeOptions struct {
	DropTrackingParams     bool     // remove common tracking params (utm_*, gclid, fbclid, ...)
	StripTrailingSlash     bool     // treat /a and /a/ the same by removing trailing slash (except for root "/")
	DefaultScheme          string   // if empty, require scheme in input; otherwise assume this scheme for schemeless URLs
	TrackingParamAllowlist []string // optional allowlist for query params (if non-empty, only these survive)
}

// Common tracking params to strip when DropTrackingParams is true.
var defaultTrackingParams = map[string]struct{}{
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {}, "utm_term": {}, "utm_content": {},
	"gclid": {}, "fbclid": {}, "mc_cid": {}, "mc_eid": {},
}

// Canonicalize returns a deterministic canonical URL string or an error.
// It uses net/url plus path.Clean and sorts query params for determinism.
// Canonical URLs are the cache keys of the store, so determinism matters
// more than aesthetics here.
func Canonicalize(raw string, opts CanonicalizeOptions) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyURL
	}

	// If user provided a default scheme and the input has none, prepend it.
	if opts.DefaultScheme != "" && !strings.Contains(raw, "://") {
		raw = opts.DefaultScheme + "://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	// Must have host
	if u.Host == "" {
		return "", ErrMissingHost
	}

	// Lowercase scheme and hostname
	u.Scheme = strings.ToLower(u.Scheme)

	// Lowercase host and convert IDN -> punycode
	host := u.Hostname()
	host = strings.ToLower(host)
	puny, err := idna.Lookup.ToASCII(host)
	if err == nil {
		host = puny
	}

	// Preserve non-default port only
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = host
	} else if port != "" {
		u.Host = net.JoinHostPort(host, port)
	} else {
		u.Host = host
	}

	// Drop userinfo (credentials)
	u.User = nil

	// Normalize path
	cleanPath := path.Clean(u.Path)
	if cleanPath == "." {
		cleanPath = "/"
	}
	// Preserve or strip trailing slash according to policy (keep root "/")
	if opts.StripTrailingSlash && len(cleanPath) > 1 {
		cleanPath = strings.TrimRight(cleanPath, "/")
		if cleanPath == "" {
			cleanPath = "/"
		}
	}
	u.Path = cleanPath

	// Remove fragment
	u.Fragment = ""

	// Normalize query: remove tracking params (optional), apply allowlist (optional), sort keys and values
	q := u.Query()
	if opts.DropTrackingParams {
		for k := range q {
			if isAllowedByAllowlist(k, opts.TrackingParamAllowlist) {
				continue
			}
			if _, ok := defaultTrackingParams[strings.ToLower(k)]; ok {
				q.Del(k)
			}
		}
	}
	// If an allowlist is specified, drop any param not in it
	if len(opts.TrackingParamAllowlist) > 0 {
		allow := map[string]struct{}{}
		for _, k := range opts.TrackingParamAllowlist {
			allow[k] = struct{}{}
		}
		for k := range q {
			if _, ok := allow[k]; !ok {
				q.Del(k)
			}
		}
	}

	// Sort keys and values for deterministic encoding
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := url.Values{}
	for _, k := range keys {
		values := q[k]
		sort.Strings(values)
		for _, v := range values {
			ordered.Add(k, v)
		}
	}
	u.RawQuery = ordered.Encode()

	// Return the canonical string. url.URL.String will re-escape as needed.
	return u.String(), nil
}

// helper: return true when key is explicitly allowed via allowlist.
func isAllowedByAllowlist(key string, allowlist []string) bool {
	if len(allowlist) == 0 {
		return false
	}
	for _, a := range allowlist {
		if key == a {
			return true
		}
	}
	return false
}

// Errors
var (
	ErrEmptyURL    = &url.Error{Op: "canonicalize", URL: "", Err: &errStr{"empty url"}}
	ErrMissingHost = &url.Error{Op: "canonicalize", URL: "", Err: &errStr{"missing host"}}
)

type errStr struct{ s string }

func (e *errStr) Error() string { return e.s }
