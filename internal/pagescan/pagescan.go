// Package pagescan finds candidate media URLs in a fetched HTML document:
// the Go-side stand-in for the DOM scanner of a browser deployment.
package pagescan

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/provascan/provascan/internal/logging"
	"github.com/provascan/provascan/internal/utils"
)

// Candidate is one discovered media reference.
type Candidate struct {
	// URL is the absolute, resolved media URL.
	URL string `json:"url"`

	// Origin says where on the page it was found ("img", "srcset",
	// "source", "poster", "og:image", "twitter:image").
	Origin string `json:"origin"`
}

// Scanner extracts candidates from HTML.
type Scanner struct {
	logger logging.Logger
}

func New(logger logging.Logger) *Scanner {
	return &Scanner{logger: logging.OrNop(logger)}
}

// Extract parses html and returns every candidate media URL in document
// order, resolved against pageURL and deduplicated. data: URIs are skipped
// (their bytes are inline; nothing to fetch).
func (s *Scanner) Extract(html []byte, pageURL string) ([]Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	base, err := utils.NewURLTools(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	var out []Candidate
	seen := map[string]struct{}{}

	add := func(raw, origin string) {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "data:") {
			return
		}
		abs, err := base.ResolveFullURLString(raw)
		if err != nil {
			s.logger.Debug("skipping unresolvable candidate",
				logging.Field{Key: "raw", Value: raw},
				logging.Field{Key: "error", Value: err.Error()})
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		out = append(out, Candidate{URL: abs, Origin: origin})
	}

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok {
			add(src, "img")
		}
		if srcset, ok := sel.Attr("srcset"); ok {
			for _, u := range parseSrcset(srcset) {
				add(u, "srcset")
			}
		}
	})

	doc.Find("picture source[srcset]").Each(func(_ int, sel *goquery.Selection) {
		if srcset, ok := sel.Attr("srcset"); ok {
			for _, u := range parseSrcset(srcset) {
				add(u, "source")
			}
		}
	})

	doc.Find("video[poster]").Each(func(_ int, sel *goquery.Selection) {
		if poster, ok := sel.Attr("poster"); ok {
			add(poster, "poster")
		}
	})

	doc.Find(`meta[property="og:image"]`).Each(func(_ int, sel *goquery.Selection) {
		if content, ok := sel.Attr("content"); ok {
			add(content, "og:image")
		}
	})

	doc.Find(`meta[name="twitter:image"]`).Each(func(_ int, sel *goquery.Selection) {
		if content, ok := sel.Attr("content"); ok {
			add(content, "twitter:image")
		}
	})

	s.logger.Debug("extracted media candidates",
		logging.Field{Key: "page", Value: pageURL},
		logging.Field{Key: "count", Value: len(out)})

	return out, nil
}

// parseSrcset splits a srcset attribute into its URLs, dropping the width
// and density descriptors.
func parseSrcset(srcset string) []string {
	var urls []string
	for _, part := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) > 0 {
			urls = append(urls, fields[0])
		}
	}
	return urls
}
