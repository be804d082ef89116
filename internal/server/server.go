package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/provascan/provascan/internal/app"
	"github.com/provascan/provascan/internal/logging"
	"github.com/provascan/provascan/internal/store"
)

// maxUploadBytes caps one uploaded media file.
const maxUploadBytes = 64 << 20

// Server is the HTTP + WebSocket API surface for Provascan.
type Server struct {
	cfg          Config
	application  *app.Application
	orchestrator *app.Orchestrator
	router       chi.Router
	upgrader     websocket.Upgrader
	logger       logging.Logger
}

// NewServer creates a new Server with its own Application.
func NewServer(cfg Config) (*Server, error) {
	if cfg.AppConfig == nil {
		cfg.AppConfig = app.DefaultConfig()
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = cfg.AppConfig.ListenAddr
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("Server")
	}

	application, err := app.NewApplication(cfg.AppConfig, logger, app.Options{})
	if err != nil {
		return nil, fmt.Errorf("constructing application: %w", err)
	}

	r := chi.NewRouter()
	s := &Server{
		cfg:          cfg,
		application:  application,
		orchestrator: application.Orch,
		router:       r,
		logger:       logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: tighten for production
				return true
			},
		},
	}

	s.routes()
	return s, nil
}

// Orchestrator returns the underlying orchestrator for advanced use (tests, etc.).
func (s *Server) Orchestrator() *app.Orchestrator {
	return s.orchestrator
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/analyses", s.optionsHandler("POST"))
	r.Options("/analyses/upload", s.optionsHandler("POST"))
	r.Options("/analyses/latest", s.optionsHandler("GET"))
	r.Options("/analyses/{id}", s.optionsHandler("GET"))
	r.Options("/analyses/{id}/media", s.optionsHandler("GET"))
	r.Options("/diffs", s.optionsHandler("GET"))
	r.Options("/jobs", s.optionsHandler("GET"))
	r.Options("/jobs/scan", s.optionsHandler("POST"))
	r.Options("/jobs/{jobID}", s.optionsHandler("GET, DELETE"))
	r.Options("/ws/scan", s.optionsHandler("GET"))

	// Analyses
	r.Post("/analyses", s.handleAnalyzeURL)
	r.Post("/analyses/upload", s.handleAnalyzeUpload)
	r.Get("/analyses/latest", s.handleLatestAnalysis)
	r.Get("/analyses/{id}", s.handleGetAnalysis)
	r.Get("/analyses/{id}/media", s.handleGetAnalysisMedia)

	// Metadata diffs between re-analyses of a URL
	r.Get("/diffs", s.handleListDiffs)

	// Jobs over REST
	r.Post("/jobs/scan", s.handleStartScanJob)
	r.Get("/jobs", s.handleListJobs)
	r.Get("/jobs/{jobID}", s.handleGetJob)
	r.Delete("/jobs/{jobID}", s.handleCancelJob)

	// WebSocket for scan progress
	r.Get("/ws/scan", s.handleScanWS)

	r.Get("/healthz", s.handleHealth)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	// Log JSON request bodies only; uploads would flood the log.
	if r.Body != nil && r.Method == http.MethodPost && r.Header.Get("Content-Type") == "application/json" {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, logging.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// Close shuts down the application and underlying resources.
func (s *Server) Close() {
	if s.application != nil {
		_ = s.application.Shutdown(context.Background())
	}
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// --- HTTP handlers ---

// Analyses

func (s *Server) handleAnalyzeURL(w http.ResponseWriter, r *http.Request) {
	var body AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.URL == "" {
		writeError(w, http.StatusBadRequest, "missing url")
		return
	}

	res := s.orchestrator.Analyzer().AnalyzeURL(r.Context(), body.URL, body.SkipPixels)
	s.logger.Info("analyzed url",
		logging.Field{Key: "url", Value: body.URL},
		logging.Field{Key: "score", Value: res.AIScore},
		logging.Field{Key: "confidence", Value: string(res.Confidence)})
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAnalyzeUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reading upload")
		return
	}

	skipPixels := r.URL.Query().Get("skip_pixels") == "true"
	res := s.orchestrator.Analyzer().AnalyzeBytes(r.Context(), data, header.Filename, skipPixels)
	s.logger.Info("analyzed upload",
		logging.Field{Key: "filename", Value: header.Filename},
		logging.Field{Key: "size", Value: len(data)},
		logging.Field{Key: "score", Value: res.AIScore})
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	st := s.application.Store()
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}

	id := chi.URLParam(r, "id")
	res, err := st.GetAnalysis(r.Context(), id)
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, "analysis not found")
		return
	}
	if err != nil {
		s.logger.Warn("getting analysis", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLatestAnalysis(w http.ResponseWriter, r *http.Request) {
	st := s.application.Store()
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}

	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "missing url query parameter")
		return
	}
	res, err := st.LatestByURL(r.Context(), url)
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, "no analysis for url")
		return
	}
	if err != nil {
		s.logger.Warn("getting latest analysis", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetAnalysisMedia(w http.ResponseWriter, r *http.Request) {
	st := s.application.Store()
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}

	id := chi.URLParam(r, "id")
	data, err := st.MediaBytes(r.Context(), id)
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, "no media bytes for analysis")
		return
	}
	if err != nil {
		s.logger.Warn("getting media bytes", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleListDiffs(w http.ResponseWriter, r *http.Request) {
	st := s.application.Store()
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}

	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "missing url query parameter")
		return
	}
	limit := 20
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil && v > 0 {
			limit = v
		}
	}

	diffs, err := st.ListDiffs(r.Context(), url, limit)
	if err != nil {
		s.logger.Warn("listing diffs", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, diffs)
}

// Jobs (REST)

func (s *Server) handleStartScanJob(w http.ResponseWriter, r *http.Request) {
	var body StartScanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.URL == "" {
		writeError(w, http.StatusBadRequest, "missing url")
		return
	}

	job, err := s.orchestrator.StartScanJob(context.Background(), body.URL, body.Limit)
	if err != nil {
		s.logger.Warn("starting scan job", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("started scan job",
		logging.Field{Key: "job_id", Value: job.ID},
		logging.Field{Key: "url", Value: body.URL})
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	s.orchestrator.CancelJob(jobID)
	s.logger.Info("canceled job", logging.Field{Key: "job_id", Value: jobID})
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.orchestrator.ListJobs()
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// WebSockets

func (s *Server) handleScanWS(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "missing url query parameter")
		return
	}
	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil && v > 0 {
			limit = v
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	job, err := s.orchestrator.StartScanJob(r.Context(), url, limit)
	if err != nil {
		_ = conn.WriteJSON(ErrorResponse{Error: err.Error()})
		return
	}

	s.logger.Info("started scan job", logging.Field{Key: "job_id", Value: job.ID})
	_ = conn.WriteJSON(job)

	for ev := range job.Events {
		if err := conn.WriteJSON(ev); err != nil {
			// Assume client disconnected; cancel job
			s.orchestrator.CancelJob(job.ID)
			return
		}
	}
}
