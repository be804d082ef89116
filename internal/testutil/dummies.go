// Package testutil provides shared test doubles and media byte builders for
// use across package tests. All dummies implement the corresponding
// interfaces from the production code, allowing injection into components
// under test without real I/O or side effects.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/provascan/provascan/internal/logging"
	"github.com/provascan/provascan/internal/webclient"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// ─── WebClient ─────────────────────────────────────────────────────────

// DummyWebClient implements webclient.WebClient. Bodies maps URLs to the
// bytes a fetch returns; unset URLs return status 404. Set FailURLs[url] to
// force a transport error for a specific URL.
type DummyWebClient struct {
	ResponseDelay time.Duration
	Bodies        map[string][]byte
	FailURLs      map[string]bool
	mu            sync.Mutex
	Requests      []*webclient.Request
}

func (d *DummyWebClient) Do(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
	if d.ResponseDelay > 0 {
		select {
		case <-time.After(d.ResponseDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	d.mu.Lock()
	d.Requests = append(d.Requests, req)
	d.mu.Unlock()

	if d.FailURLs != nil && d.FailURLs[req.URL] {
		return nil, &errString{"dummy fetch fail for " + req.URL}
	}

	body, ok := d.Bodies[req.URL]
	status := 200
	if !ok {
		status = 404
	}

	return &webclient.Response{
		Request:    req,
		Body:       body,
		StatusCode: status,
		FetchedAt:  time.Now(),
	}, nil
}

func (d *DummyWebClient) Get(ctx context.Context, url string) (*webclient.Response, error) {
	return d.Do(ctx, &webclient.Request{Method: "GET", URL: url})
}

func (d *DummyWebClient) Close() error { return nil }

// RequestedURLs returns the URLs fetched so far, in order.
func (d *DummyWebClient) RequestedURLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	urls := make([]string, len(d.Requests))
	for i, r := range d.Requests {
		urls[i] = r.URL
	}
	return urls
}

// ─── helpers ───────────────────────────────────────────────────────────

type errString struct{ s string }

func (e *errString) Error() string { return e.s }
