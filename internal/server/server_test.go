package server_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/provascan/provascan/internal/app"
	"github.com/provascan/provascan/internal/model"
	"github.com/provascan/provascan/internal/server"
	"github.com/provascan/provascan/internal/testutil"
)

// newTestServer wires a Server with temp-dir persistence and an httptest
// origin serving the given media bodies by path.
func newTestServer(t *testing.T, origin map[string][]byte) (*server.Server, *httptest.Server) {
	t.Helper()

	mediaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := origin[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(body)
	}))
	t.Cleanup(mediaSrv.Close)

	cfg := app.DefaultConfig()
	cfg.StoragePath = t.TempDir()

	s, err := server.NewServer(server.Config{
		AppConfig: cfg,
		Logger:    &testutil.DummyLogger{},
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(s.Close)

	return s, mediaSrv
}

func doJSON(t *testing.T, s *server.Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) *model.AnalysisResult {
	t.Helper()
	var res model.AnalysisResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	return &res
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestAnalyzeURLEndToEnd(t *testing.T) {
	s, mediaSrv := newTestServer(t, map[string][]byte{
		"/gen.png": testutil.PNGWithText("parameters", "a castle\nNegative prompt: blur\nSteps: 30, Sampler: Euler a"),
	})
	mediaURL := mediaSrv.URL + "/gen.png"

	rec := doJSON(t, s, http.MethodPost, "/analyses", server.AnalyzeRequest{URL: mediaURL, SkipPixels: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	res := decodeResult(t, rec)
	if !res.IsAI || res.DetectedTool != "stable-diffusion" {
		t.Errorf("verdict = %+v", res)
	}
	if res.ID == "" {
		t.Fatal("result not persisted, no ID")
	}

	// Persisted copy is retrievable by id and by URL.
	rec = doJSON(t, s, http.MethodGet, "/analyses/"+res.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get by id status = %d", rec.Code)
	}
	if got := decodeResult(t, rec); got.URL != mediaURL {
		t.Errorf("stored URL = %q, want %q", got.URL, mediaURL)
	}

	rec = doJSON(t, s, http.MethodGet, "/analyses/latest?url="+mediaURL, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("latest status = %d", rec.Code)
	}
}

func TestAnalyzeURLValidation(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/analyses", server.AnalyzeRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty url: status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/analyses", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	rec2 := httptest.NewRecorder()
	s.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusBadRequest {
		t.Errorf("bad json: status = %d", rec2.Code)
	}
}

func TestAnalyzeUpload(t *testing.T) {
	s, _ := newTestServer(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "art.png")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(testutil.PNGWithText("parameters", "portrait\nSteps: 25, CFG scale: 7"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/analyses/upload?skip_pixels=true", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	res := decodeResult(t, rec)
	if !res.IsAI || res.ContainerType != model.ContainerPNG {
		t.Errorf("verdict = %+v", res)
	}
}

func TestAnalyzeUploadMissingFile(t *testing.T) {
	s, _ := newTestServer(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("other", "value")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/analyses/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestGetAnalysisNotFound(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodGet, "/analyses/no-such-id", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestScanJobREST(t *testing.T) {
	page := []byte(`<html><body><img src="/one.png"></body></html>`)
	s, mediaSrv := newTestServer(t, map[string][]byte{
		"/gallery": page,
		"/one.png": testutil.PNGWithText("parameters", "scene\nSteps: 20"),
	})

	rec := doJSON(t, s, http.MethodPost, "/jobs/scan", server.StartScanRequest{URL: mediaSrv.URL + "/gallery", Limit: 5})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var job app.Job
	if err := json.NewDecoder(rec.Body).Decode(&job); err != nil {
		t.Fatal(err)
	}
	if job.ID == "" || job.Type != "scan" {
		t.Fatalf("job = %+v", job)
	}

	// Poll until the job settles.
	deadline := time.Now().Add(10 * time.Second)
	for {
		got := s.Orchestrator().GetJob(job.ID)
		if got != nil && (got.Status == app.JobDone || got.Status == app.JobFailed) {
			if got.Status != app.JobDone {
				t.Fatalf("job failed: %s", got.Error)
			}
			if got.ScanResult == nil || len(got.ScanResult.Results) != 1 {
				t.Fatalf("scan result = %+v", got.ScanResult)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("job did not finish")
		}
		time.Sleep(20 * time.Millisecond)
	}

	rec = doJSON(t, s, http.MethodGet, "/jobs/"+job.ID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get job status = %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodGet, "/jobs", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("list jobs status = %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodDelete, "/jobs/"+job.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("cancel status = %d", rec.Code)
	}
}

func TestGetJobNotFound(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodGet, "/jobs/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestCORSHeaders(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodGet, "/healthz", nil)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	req := httptest.NewRequest(http.MethodOptions, "/analyses", nil)
	rec2 := httptest.NewRecorder()
	s.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec2.Code)
	}
	if got := rec2.Header().Get("Access-Control-Allow-Methods"); got != "POST" {
		t.Errorf("Access-Control-Allow-Methods = %q", got)
	}
}

func TestScanWebSocket(t *testing.T) {
	page := []byte(`<html><body><img src="/one.png"><img src="/two.png"></body></html>`)
	s, mediaSrv := newTestServer(t, map[string][]byte{
		"/gallery": page,
		"/one.png": testutil.PNGWithText("parameters", "scene\nSteps: 20"),
		"/two.png": testutil.PNGWithText("Comment", "holiday snap"),
	})

	apiSrv := httptest.NewServer(s)
	defer apiSrv.Close()

	wsURL := "ws" + strings.TrimPrefix(apiSrv.URL, "http") +
		"/ws/scan?url=" + mediaSrv.URL + "/gallery"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	var job app.Job
	if err := conn.ReadJSON(&job); err != nil {
		t.Fatalf("reading job header: %v", err)
	}
	if job.ID == "" {
		t.Fatalf("job header = %+v", job)
	}

	progress := 0
	for {
		var ev app.JobEvent
		if err := conn.ReadJSON(&ev); err != nil {
			break
		}
		if ev.Type == app.JobEventProgress {
			progress++
		}
		if ev.Type == app.JobEventResult || ev.Status == app.JobFailed || ev.Status == app.JobCanceled {
			if ev.Status != app.JobDone {
				t.Fatalf("terminal event = %+v", ev)
			}
			break
		}
	}
	if progress != 2 {
		t.Errorf("got %d progress events, want 2", progress)
	}
}
