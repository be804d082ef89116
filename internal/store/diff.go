package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// chunk represents a single change in a metadata diff.
type chunk struct {
	Type    string `json:"type"` // "added", "removed"
	Content string `json:"content,omitempty"`
}

// MetadataDiff summarizes how the extracted metadata of one URL changed
// between two analyses. Stripped provenance fields show up as "removed"
// chunks; newly present generator tags as "added".
type MetadataDiff struct {
	ID             string  `json:"id"`
	CanonicalURL   string  `json:"canonical_url"`
	BaseAnalysisID string  `json:"base_analysis_id"`
	HeadAnalysisID string  `json:"head_analysis_id"`
	Chunks         []chunk `json:"chunks"`
	CreatedAt      int64   `json:"created_at"`
}

// computeMetadataDiffJSON computes a diff between the metadata text of two
// analyses and returns it as a JSON string. Uses the diffmatchpatch library
// for efficient text diffing.
func computeMetadataDiffJSON(baseID, headID, base, head string) (string, error) {
	dmp := diffmatchpatch.New()

	diffs := dmp.DiffMain(base, head, true)
	diffs = dmp.DiffCleanupSemantic(diffs)

	chunks := make([]chunk, 0)
	for _, d := range diffs {
		var chunkType string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			chunkType = "added"
		case diffmatchpatch.DiffDelete:
			chunkType = "removed"
		case diffmatchpatch.DiffEqual:
			continue
		}

		if strings.TrimSpace(d.Text) != "" {
			chunks = append(chunks, chunk{
				Type:    chunkType,
				Content: d.Text,
			})
		}
	}

	result := struct {
		BaseID string  `json:"base_id,omitempty"`
		HeadID string  `json:"head_id,omitempty"`
		Chunks []chunk `json:"chunks"`
	}{
		BaseID: baseID,
		HeadID: headID,
		Chunks: chunks,
	}

	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to marshal diff: %w", err)
	}

	return string(data), nil
}
