// Package analyzer binds the fetch, parse, match, sample and score stages
// into the one operation the rest of the system calls: bytes or a URL in,
// a complete AnalysisResult out, under all failure modes.
package analyzer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/provascan/provascan/internal/container"
	"github.com/provascan/provascan/internal/logging"
	"github.com/provascan/provascan/internal/model"
	"github.com/provascan/provascan/internal/pagescan"
	"github.com/provascan/provascan/internal/pixels"
	"github.com/provascan/provascan/internal/scorer"
	"github.com/provascan/provascan/internal/signature"
	"github.com/provascan/provascan/internal/store"
	"github.com/provascan/provascan/internal/webclient"
)

// Config holds orchestration options.
type Config struct {
	// MaxConcurrency bounds parallel candidate analyses in a page scan.
	MaxConcurrency int

	// PageScanLimit caps candidates per page scan when the request does
	// not set its own limit.
	PageScanLimit int
}

// DefaultConfig returns sensible orchestration defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		PageScanLimit:  50,
	}
}

// Analyzer runs the provenance pipeline. All stages are side-effect-free
// apart from the optional store, so one Analyzer serves concurrent calls.
type Analyzer struct {
	cfg     Config
	wc      webclient.WebClient
	catalog *signature.Catalog
	pix     *pixels.Engine
	scorer  *scorer.Scorer
	scanner *pagescan.Scanner
	store   *store.Store
	logger  logging.Logger
}

// New wires an Analyzer. wc is required for URL analysis; st may be nil to
// disable persistence; logger may be nil.
func New(cfg Config, wc webclient.WebClient, catalog *signature.Catalog, pix *pixels.Engine, sc *scorer.Scorer, st *store.Store, logger logging.Logger) *Analyzer {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultConfig().MaxConcurrency
	}
	if cfg.PageScanLimit <= 0 {
		cfg.PageScanLimit = DefaultConfig().PageScanLimit
	}
	if catalog == nil {
		catalog = signature.DefaultCatalog()
	}
	logger = logging.OrNop(logger)
	if pix == nil {
		pix = pixels.NewEngine(pixels.DefaultConfig(), logger)
	}
	if sc == nil {
		sc = scorer.New(scorer.DefaultConfig(), catalog, logger)
	}
	return &Analyzer{
		cfg:     cfg,
		wc:      wc,
		catalog: catalog,
		pix:     pix,
		scorer:  sc,
		scanner: pagescan.New(logger),
		store:   st,
		logger:  logger,
	}
}

// AnalyzeBytes runs the full pipeline over in-memory media bytes. name is
// the URL or filename used for URL-pattern evidence and persistence. It
// always returns a well-formed result.
func (a *Analyzer) AnalyzeBytes(ctx context.Context, data []byte, name string, skipPixels bool) *model.AnalysisResult {
	parsed := container.Parse(data)
	matches := signature.MatchAll(parsed.Fields, a.catalog)

	var pm *model.PixelMetrics
	if !skipPixels && samplable(parsed.ContainerType) {
		metrics, err := a.pix.SampleBytes(data)
		if err != nil {
			a.logger.Debug("pixel sampling degraded to neutral fallback",
				logging.Field{Key: "name", Value: name},
				logging.Field{Key: "container", Value: string(parsed.ContainerType)})
		}
		pm = &metrics
	}

	res := a.scorer.Score(matches, pm, name)
	res.ContainerType = parsed.ContainerType
	res.Warnings = parsed.Warnings

	a.persist(ctx, res, parsed.Fields, data)
	return res
}

// AnalyzeURL fetches a media URL and analyzes its bytes. Fetch failures
// surface as a result with confidence error (network) or blocked (HTTP
// refusal), never as a panic or an empty result.
func (a *Analyzer) AnalyzeURL(ctx context.Context, url string, skipPixels bool) *model.AnalysisResult {
	if a.wc == nil {
		return model.ErrorResult(url, model.ConfidenceError, "no byte source configured")
	}

	resp, err := a.wc.Do(ctx, &webclient.Request{Method: "GET", URL: url})
	if err != nil {
		a.logger.Warn("fetch failed",
			logging.Field{Key: "url", Value: url},
			logging.Field{Key: "error", Value: err.Error()})
		return model.ErrorResult(url, model.ConfidenceError, fmt.Sprintf("fetch failed: %v", err))
	}
	if resp.StatusCode >= 400 {
		return model.ErrorResult(url, model.ConfidenceBlocked,
			fmt.Sprintf("fetch refused: HTTP %d", resp.StatusCode))
	}

	res := a.AnalyzeBytes(ctx, resp.Body, url, skipPixels)
	if resp.Truncated {
		res.Warnings = append(res.Warnings, "fetched bytes truncated at size ceiling; analysis covers the prefix")
	}
	return res
}

// ScanPage fetches a web page, extracts its media candidates, and analyzes
// up to limit of them concurrently. progress, when non-nil, is invoked once
// per completed analysis from a single goroutine.
func (a *Analyzer) ScanPage(ctx context.Context, pageURL string, limit int, progress func(*model.AnalysisResult)) (*model.PageScanResult, error) {
	started := time.Now()
	out := &model.PageScanResult{PageURL: pageURL, StartedAt: started}

	if a.wc == nil {
		return nil, fmt.Errorf("no byte source configured")
	}
	resp, err := a.wc.Do(ctx, &webclient.Request{Method: "GET", URL: pageURL})
	if err != nil {
		return nil, fmt.Errorf("fetch page %s: %w", pageURL, err)
	}

	candidates, err := a.scanner.Extract(resp.Body, pageURL)
	if err != nil {
		return nil, fmt.Errorf("extract candidates: %w", err)
	}
	out.Candidates = len(candidates)

	if limit <= 0 || limit > a.cfg.PageScanLimit {
		limit = a.cfg.PageScanLimit
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	type indexed struct {
		idx int
		res *model.AnalysisResult
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, a.cfg.MaxConcurrency)
	resCh := make(chan indexed)
	collectorDone := make(chan struct{})

	results := make([]*model.AnalysisResult, len(candidates))
	go func() {
		defer close(collectorDone)
		for r := range resCh {
			results[r.idx] = r.res
			if progress != nil {
				progress(r.res)
			}
		}
	}()

	for i, cand := range candidates {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(idx int, url string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			res := a.AnalyzeURL(ctx, url, false)
			select {
			case <-ctx.Done():
			case resCh <- indexed{idx: idx, res: res}:
			}
		}(i, cand.URL)
	}

	wg.Wait()
	close(resCh)
	<-collectorDone

	for _, r := range results {
		if r != nil {
			out.Results = append(out.Results, r)
		}
	}
	done := time.Now()
	out.CompletedAt = &done
	return out, nil
}

// Store exposes the underlying store (may be nil) for result lookups.
func (a *Analyzer) Store() *store.Store { return a.store }

func (a *Analyzer) persist(ctx context.Context, res *model.AnalysisResult, fields []model.MetadataField, data []byte) {
	if a.store == nil || res.URL == "" {
		return
	}
	if _, err := a.store.SaveAnalysis(ctx, res, metadataText(fields), data); err != nil {
		a.logger.Warn("persisting analysis failed",
			logging.Field{Key: "url", Value: res.URL},
			logging.Field{Key: "error", Value: err.Error()})
	}
}

// metadataText renders the extracted fields into one stable text block, the
// unit the store diffs between consecutive analyses of a URL.
func metadataText(fields []model.MetadataField) string {
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(f.Source)
		b.WriteString(": ")
		b.WriteString(f.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

// samplable reports whether pixel sampling should even be attempted for a
// container. Video containers are metadata-only; everything else gets a try
// and degrades to the neutral pair when no decoder accepts it.
func samplable(ct model.ContainerType) bool {
	return !ct.IsVideo() && ct != model.ContainerUnknown
}
