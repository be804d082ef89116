package model

// Tier is the intrinsic confidence bucket of a signature catalog entry or a
// produced match.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// SignatureEntry is one catalog record: a matchable pattern, the tool it
// identifies and the confidence tier a bare match carries. The catalog is
// built once at startup and treated as read-only, so it is safe for
// concurrent readers.
type SignatureEntry struct {
	// Pattern is matched case-insensitively as a substring of field text.
	Pattern string `json:"pattern"`

	// Tool is the generator the pattern identifies (e.g. "midjourney").
	// Generic patterns ("generated", "synthetic") use the empty string.
	Tool string `json:"tool,omitempty"`

	// Tier is the intrinsic confidence of a match on this entry.
	Tier Tier `json:"tier"`
}

// SignatureMatch is the result of one catalog entry matching one metadata
// field. A field may produce several matches.
type SignatureMatch struct {
	// Tool is the identified generator, empty for generic patterns.
	Tool string `json:"tool,omitempty"`

	// Pattern is the catalog pattern (or synthesized pattern name for the
	// parameter-block detectors) that matched.
	Pattern string `json:"pattern"`

	// Matched is the substring of the field text that triggered the match.
	Matched string `json:"matched"`

	// Tier is the confidence tier of this match.
	Tier Tier `json:"tier"`

	// Source is the label of the metadata field the match came from.
	Source string `json:"source"`

	// Description is a rendered human-readable explanation.
	Description string `json:"description"`
}
