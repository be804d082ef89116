package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/provascan/provascan/internal/logging"
	"github.com/provascan/provascan/internal/model"
	"github.com/provascan/provascan/internal/utils"
)

// ErrNotFound is returned when no row matches the requested id or URL.
var ErrNotFound = errors.New("store: not found")

//go:embed schema.sql
var schemaFS embed.FS

// Config holds storage options.
type Config struct {
	// StoragePath is the base directory for the database and blob store.
	StoragePath string

	// KeepMediaBytes stores fetched media in the content-addressed blob
	// store. Off by default: results are small, media bytes are not.
	KeepMediaBytes bool
}

// Store persists analyses in SQLite with fetched bytes in a
// content-addressed blob store, and records metadata diffs between
// consecutive analyses of the same URL.
type Store struct {
	db     *sql.DB
	blobs  *FSStore
	cfg    Config
	logger logging.Logger
}

// Open creates or opens the store rooted at cfg.StoragePath.
func Open(cfg Config, logger logging.Logger) (*Store, error) {
	logger = logging.OrNop(logger)

	if cfg.StoragePath == "" {
		return nil, errors.New("store: storage path is empty")
	}
	if err := os.MkdirAll(cfg.StoragePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	dbPath := filepath.Join(cfg.StoragePath, "provascan.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	blobs, err := NewFSStore(filepath.Join(cfg.StoragePath, "blobs"))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create blob store: %w", err)
	}

	logger.Info("store initialized", logging.Field{Key: "path", Value: cfg.StoragePath})

	return &Store{db: db, blobs: blobs, cfg: cfg, logger: logger}, nil
}

// applySchema applies the SQLite schema and sets appropriate pragmas.
func applySchema(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",   // Write-Ahead Logging for better concurrency
		"PRAGMA synchronous=NORMAL", // Balance between safety and performance
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000", // Wait up to 5 seconds on locked database
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// SaveAnalysis persists one analysis result. metadataText is the
// concatenated extracted metadata for this media; when a previous analysis
// of the same canonical URL exists and its metadata differs, a diff row is
// recorded. media may be nil; it is stored only when KeepMediaBytes is set.
//
// The result's ID field is assigned here and returned.
func (s *Store) SaveAnalysis(ctx context.Context, res *model.AnalysisResult, metadataText string, media []byte) (string, error) {
	if res == nil {
		return "", errors.New("store: nil result")
	}

	canonical := canonicalOrRaw(res.URL)
	id := uuid.NewString()

	contentHash := ""
	blobID := ""
	if len(media) > 0 {
		sum := sha256.Sum256(media)
		contentHash = hex.EncodeToString(sum[:])
		if s.cfg.KeepMediaBytes {
			var err error
			blobID, err = s.blobs.Put(media)
			if err != nil {
				return "", fmt.Errorf("store media blob: %w", err)
			}
		}
	}

	// Previous analysis of the same URL, for the metadata diff.
	prevID, prevMeta, err := s.latestMetadata(ctx, canonical)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", err
	}

	res.ID = id
	resultJSON, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}

	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analyses
			(id, canonical_url, content_hash, container_type, is_ai, ai_score,
			 confidence, detected_tool, result_json, metadata_text, blob_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, canonical, contentHash, string(res.ContainerType), boolToInt(res.IsAI), res.AIScore,
		string(res.Confidence), res.DetectedTool, string(resultJSON), metadataText, blobID, now)
	if err != nil {
		return "", fmt.Errorf("insert analysis: %w", err)
	}

	if prevID != "" && prevMeta != metadataText {
		diffJSON, derr := computeMetadataDiffJSON(prevID, id, prevMeta, metadataText)
		if derr != nil {
			s.logger.Warn("metadata diff failed",
				logging.Field{Key: "url", Value: canonical},
				logging.Field{Key: "error", Value: derr.Error()})
		} else {
			_, derr = s.db.ExecContext(ctx, `
				INSERT INTO metadata_diffs
					(id, canonical_url, base_analysis_id, head_analysis_id, diff_json, created_at)
				VALUES (?, ?, ?, ?, ?, ?)`,
				uuid.NewString(), canonical, prevID, id, diffJSON, now)
			if derr != nil {
				s.logger.Warn("metadata diff insert failed",
					logging.Field{Key: "url", Value: canonical},
					logging.Field{Key: "error", Value: derr.Error()})
			} else {
				s.logger.Info("metadata changed between analyses",
					logging.Field{Key: "url", Value: canonical})
			}
		}
	}

	return id, nil
}

// GetAnalysis loads one analysis by id.
func (s *Store) GetAnalysis(ctx context.Context, id string) (*model.AnalysisResult, error) {
	var resultJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT result_json FROM analyses WHERE id = ?`, id).Scan(&resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query analysis: %w", err)
	}
	return unmarshalResult(resultJSON)
}

// LatestByURL loads the most recent analysis of a URL.
func (s *Store) LatestByURL(ctx context.Context, rawURL string) (*model.AnalysisResult, error) {
	canonical := canonicalOrRaw(rawURL)
	var resultJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT result_json FROM analyses
		WHERE canonical_url = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1`, canonical).Scan(&resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest analysis: %w", err)
	}
	return unmarshalResult(resultJSON)
}

// ListDiffs returns the recorded metadata diffs for a URL, newest first.
func (s *Store) ListDiffs(ctx context.Context, rawURL string, limit int) ([]MetadataDiff, error) {
	canonical := canonicalOrRaw(rawURL)
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, canonical_url, base_analysis_id, head_analysis_id, diff_json, created_at
		FROM metadata_diffs
		WHERE canonical_url = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, canonical, limit)
	if err != nil {
		return nil, fmt.Errorf("query diffs: %w", err)
	}
	defer rows.Close()

	var out []MetadataDiff
	for rows.Next() {
		var d MetadataDiff
		var diffJSON string
		if err := rows.Scan(&d.ID, &d.CanonicalURL, &d.BaseAnalysisID, &d.HeadAnalysisID, &diffJSON, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan diff: %w", err)
		}
		var payload struct {
			Chunks []chunk `json:"chunks"`
		}
		if err := json.Unmarshal([]byte(diffJSON), &payload); err == nil {
			d.Chunks = payload.Chunks
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// MediaBytes returns the stored media bytes for an analysis, when kept.
func (s *Store) MediaBytes(ctx context.Context, id string) ([]byte, error) {
	var blobID string
	err := s.db.QueryRowContext(ctx,
		`SELECT blob_id FROM analyses WHERE id = ?`, id).Scan(&blobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query blob id: %w", err)
	}
	if blobID == "" {
		return nil, ErrNotFound
	}
	return s.blobs.Get(blobID)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// latestMetadata returns the id and metadata text of the newest analysis
// for canonical, or ErrNotFound.
func (s *Store) latestMetadata(ctx context.Context, canonical string) (string, string, error) {
	var id string
	var meta sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, metadata_text FROM analyses
		WHERE canonical_url = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1`, canonical).Scan(&id, &meta)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("query latest metadata: %w", err)
	}
	return id, meta.String, nil
}

func unmarshalResult(resultJSON string) (*model.AnalysisResult, error) {
	var res model.AnalysisResult
	if err := json.Unmarshal([]byte(resultJSON), &res); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &res, nil
}

// canonicalOrRaw canonicalizes a URL for use as a cache key, falling back to
// the raw string for non-URL names (local filenames, upload labels).
func canonicalOrRaw(raw string) string {
	canonical, err := utils.Canonicalize(raw, utils.CanonicalizeOptions{
		DropTrackingParams: true,
		StripTrailingSlash: true,
	})
	if err != nil {
		return raw
	}
	return canonical
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
