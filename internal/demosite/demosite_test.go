package demosite_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/provascan/provascan/internal/analyzer"
	"github.com/provascan/provascan/internal/demosite"
	"github.com/provascan/provascan/internal/testutil"
	"github.com/provascan/provascan/internal/webclient"
)

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	site, err := demosite.New(demosite.DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv := httptest.NewServer(site.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) []byte {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func TestSiteServesGalleriesAndMedia(t *testing.T) {
	t.Parallel()

	srv := newSite(t)

	for _, path := range []string{"/", "/gallery/generated", "/gallery/camera"} {
		if body := get(t, srv.URL+path); len(body) == 0 {
			t.Errorf("%s: empty body", path)
		}
	}

	png := get(t, srv.URL+"/media/gen-stable-diffusion.png")
	if len(png) < 8 || string(png[1:4]) != "PNG" {
		t.Error("media bytes are not a png")
	}

	resp, err := http.Get(srv.URL + "/media/no-such-file.png")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing media: status %d", resp.StatusCode)
	}
}

func TestScanFlagsOnlyGeneratedGallery(t *testing.T) {
	t.Parallel()

	srv := newSite(t)

	wc, err := webclient.NewNetHTTPClient(webclient.Config{}, &testutil.DummyLogger{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer wc.Close()
	an := analyzer.New(analyzer.DefaultConfig(), wc, nil, nil, nil, nil, &testutil.DummyLogger{})

	gen, err := an.ScanPage(context.Background(), srv.URL+"/gallery/generated", 10, nil)
	if err != nil {
		t.Fatalf("scanning generated gallery: %v", err)
	}
	flagged := 0
	for _, r := range gen.Results {
		if r.IsAI {
			flagged++
		}
	}
	if flagged != 2 {
		t.Errorf("generated gallery: %d flagged, want 2", flagged)
	}

	cam, err := an.ScanPage(context.Background(), srv.URL+"/gallery/camera", 10, nil)
	if err != nil {
		t.Fatalf("scanning camera gallery: %v", err)
	}
	for _, r := range cam.Results {
		if r.IsAI {
			t.Errorf("camera media %s flagged: %+v", r.URL, r.Details)
		}
	}
}
