package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/provascan/provascan/internal/model"
	"github.com/provascan/provascan/internal/store"
	"github.com/provascan/provascan/internal/testutil"
)

func openStore(t *testing.T, keepMedia bool) *store.Store {
	t.Helper()
	s, err := store.Open(store.Config{
		StoragePath:    t.TempDir(),
		KeepMediaBytes: keepMedia,
	}, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult(url string) *model.AnalysisResult {
	return &model.AnalysisResult{
		URL:           url,
		ContainerType: model.ContainerPNG,
		IsAI:          true,
		Confidence:    model.ConfidenceHigh,
		AIScore:       80,
		DetectedTool:  "midjourney",
		Details:       []string{"definitive generator signature"},
	}
}

func TestSaveAndGetAnalysis(t *testing.T) {
	t.Parallel()

	s := openStore(t, false)
	ctx := context.Background()

	res := sampleResult("https://example.com/a.png")
	id, err := s.SaveAnalysis(ctx, res, "Midjourney v6", nil)
	if err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}
	if id == "" || res.ID != id {
		t.Errorf("id = %q, res.ID = %q", id, res.ID)
	}

	got, err := s.GetAnalysis(ctx, id)
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	if got.URL != res.URL || got.AIScore != 80 || got.DetectedTool != "midjourney" {
		t.Errorf("round trip = %+v", got)
	}
	if got.Confidence != model.ConfidenceHigh {
		t.Errorf("confidence = %q", got.Confidence)
	}
}

func TestGetAnalysisNotFound(t *testing.T) {
	t.Parallel()

	s := openStore(t, false)
	_, err := s.GetAnalysis(context.Background(), "missing-id")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLatestByURLPicksNewest(t *testing.T) {
	t.Parallel()

	s := openStore(t, false)
	ctx := context.Background()
	url := "https://example.com/b.png"

	first := sampleResult(url)
	first.AIScore = 15
	if _, err := s.SaveAnalysis(ctx, first, "old metadata", nil); err != nil {
		t.Fatal(err)
	}
	second := sampleResult(url)
	second.AIScore = 80
	if _, err := s.SaveAnalysis(ctx, second, "new metadata", nil); err != nil {
		t.Fatal(err)
	}

	got, err := s.LatestByURL(ctx, url)
	if err != nil {
		t.Fatalf("LatestByURL: %v", err)
	}
	if got.AIScore != 80 {
		t.Errorf("latest score = %d, want 80", got.AIScore)
	}
}

func TestLatestByURLCanonicalizes(t *testing.T) {
	t.Parallel()

	s := openStore(t, false)
	ctx := context.Background()

	res := sampleResult("https://example.com/c.png?utm_source=feed")
	if _, err := s.SaveAnalysis(ctx, res, "meta", nil); err != nil {
		t.Fatal(err)
	}

	got, err := s.LatestByURL(ctx, "https://example.com/c.png")
	if err != nil {
		t.Fatalf("LatestByURL after canonicalization: %v", err)
	}
	if got.URL != res.URL {
		t.Errorf("got URL %q", got.URL)
	}
}

func TestMetadataDiffRecorded(t *testing.T) {
	t.Parallel()

	s := openStore(t, false)
	ctx := context.Background()
	url := "https://example.com/d.png"

	if _, err := s.SaveAnalysis(ctx, sampleResult(url), "Software: Midjourney\n", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveAnalysis(ctx, sampleResult(url), "Software: Photoshop\n", nil); err != nil {
		t.Fatal(err)
	}

	diffs, err := s.ListDiffs(ctx, url, 10)
	if err != nil {
		t.Fatalf("ListDiffs: %v", err)
	}
	if len(diffs) != 1 {
		t.Fatalf("got %d diffs, want 1", len(diffs))
	}
	d := diffs[0]
	if d.CanonicalURL == "" || d.BaseAnalysisID == "" || d.HeadAnalysisID == "" {
		t.Errorf("diff ids missing: %+v", d)
	}
	if len(d.Chunks) == 0 {
		t.Fatal("diff has no chunks")
	}
	var added, removed bool
	for _, c := range d.Chunks {
		switch c.Type {
		case "added":
			added = true
		case "removed":
			removed = true
		}
	}
	if !added || !removed {
		t.Errorf("chunks = %+v, want both added and removed", d.Chunks)
	}
}

func TestNoDiffWhenMetadataUnchanged(t *testing.T) {
	t.Parallel()

	s := openStore(t, false)
	ctx := context.Background()
	url := "https://example.com/e.png"

	if _, err := s.SaveAnalysis(ctx, sampleResult(url), "same", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveAnalysis(ctx, sampleResult(url), "same", nil); err != nil {
		t.Fatal(err)
	}

	diffs, err := s.ListDiffs(ctx, url, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(diffs) != 0 {
		t.Errorf("got %d diffs, want 0", len(diffs))
	}
}

func TestMediaBytesKept(t *testing.T) {
	t.Parallel()

	s := openStore(t, true)
	ctx := context.Background()

	media := testutil.PNGWithText("Comment", "keep me")
	id, err := s.SaveAnalysis(ctx, sampleResult("https://example.com/f.png"), "meta", media)
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.MediaBytes(ctx, id)
	if err != nil {
		t.Fatalf("MediaBytes: %v", err)
	}
	if len(got) != len(media) {
		t.Errorf("media length = %d, want %d", len(got), len(media))
	}
}

func TestMediaBytesNotKeptByDefault(t *testing.T) {
	t.Parallel()

	s := openStore(t, false)
	ctx := context.Background()

	media := testutil.PNGWithText("Comment", "discard me")
	id, err := s.SaveAnalysis(ctx, sampleResult("https://example.com/g.png"), "meta", media)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.MediaBytes(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
