package webclient_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/provascan/provascan/internal/testutil"
	"github.com/provascan/provascan/internal/webclient"
)

func TestNetHTTPClientGet(t *testing.T) {
	t.Parallel()

	body := []byte("hello media bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	wc, err := webclient.NewNetHTTPClient(webclient.Config{}, &testutil.DummyLogger{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer wc.Close()

	resp, err := wc.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if !bytes.Equal(resp.Body, body) {
		t.Errorf("body = %q", resp.Body)
	}
	if resp.Truncated {
		t.Error("small body marked truncated")
	}
	if resp.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}
}

func TestNetHTTPClientTruncatesAtCeiling(t *testing.T) {
	t.Parallel()

	big := bytes.Repeat([]byte("x"), 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(big)
	}))
	defer srv.Close()

	wc, err := webclient.NewNetHTTPClient(webclient.Config{MaxBodyBytes: 1024}, &testutil.DummyLogger{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer wc.Close()

	resp, err := wc.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !resp.Truncated {
		t.Error("oversized body not marked truncated")
	}
	if len(resp.Body) != 1024 {
		t.Errorf("body length = %d, want 1024", len(resp.Body))
	}
}

func TestNetHTTPClientSendsUserAgent(t *testing.T) {
	t.Parallel()

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	wc, err := webclient.NewNetHTTPClient(webclient.Config{UserAgent: "provascan-test/1.0"}, &testutil.DummyLogger{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer wc.Close()

	if _, err := wc.Get(context.Background(), srv.URL); err != nil {
		t.Fatal(err)
	}
	if gotUA != "provascan-test/1.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestNetHTTPClientPassesStatusThrough(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	wc, err := webclient.NewNetHTTPClient(webclient.Config{}, &testutil.DummyLogger{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer wc.Close()

	resp, err := wc.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

func TestNetHTTPClientContextCancel(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	wc, err := webclient.NewNetHTTPClient(webclient.Config{}, &testutil.DummyLogger{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer wc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := wc.Get(ctx, srv.URL); err == nil {
		t.Error("expected error from canceled context")
	}
}

func TestNetHTTPClientNilRequest(t *testing.T) {
	t.Parallel()

	wc, err := webclient.NewNetHTTPClient(webclient.Config{}, &testutil.DummyLogger{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer wc.Close()

	if _, err := wc.Do(context.Background(), nil); err == nil {
		t.Error("expected error for nil request")
	}
}

func TestFactoryRegistersBackends(t *testing.T) {
	webclient.RegisterDefaultBackends()

	wc, err := webclient.New(webclient.Config{Backend: webclient.BackendNetHTTP}, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	wc.Close()

	if _, err := webclient.New(webclient.Config{Backend: "no-such-backend"}, &testutil.DummyLogger{}); err == nil {
		t.Error("expected error for unregistered backend")
	}
}
