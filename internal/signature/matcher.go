package signature

import (
	"fmt"
	"strings"

	"github.com/provascan/provascan/internal/model"
)

// minPatternLen skips catalog entries short enough to match binary noise.
const minPatternLen = 3

// Match applies the catalog to one metadata field and returns every match.
// Matching is case-insensitive substring containment; all matches are
// collected rather than short-circuiting because match multiplicity raises
// downstream confidence.
func Match(field model.MetadataField, cat *Catalog) []model.SignatureMatch {
	lower := strings.ToLower(field.Text)
	var matches []model.SignatureMatch

	for _, e := range cat.Entries {
		if len(e.Pattern) < minPatternLen {
			continue
		}
		if !strings.Contains(lower, strings.ToLower(e.Pattern)) {
			continue
		}
		matches = append(matches, model.SignatureMatch{
			Tool:        e.Tool,
			Pattern:     e.Pattern,
			Matched:     e.Pattern,
			Tier:        e.Tier,
			Source:      field.Source,
			Description: renderMatch(e.Tool, e.Pattern, field.Source),
		})
	}

	if m, ok := matchParamBlock(lower, field.Source, cat); ok {
		matches = append(matches, m)
	}
	if m, ok := matchMidjourneyFlags(lower, field.Source, cat); ok {
		matches = append(matches, m)
	}

	return matches
}

// MatchAll runs Match over every field in traversal order.
func MatchAll(fields []model.MetadataField, cat *Catalog) []model.SignatureMatch {
	var all []model.SignatureMatch
	for _, f := range fields {
		all = append(all, Match(f, cat)...)
	}
	return all
}

// MatchURL applies the URL pattern table to a media URL or filename.
func MatchURL(url string, cat *Catalog) []model.SignatureMatch {
	lower := strings.ToLower(url)
	var matches []model.SignatureMatch
	for _, e := range cat.URLPatterns {
		if len(e.Pattern) < minPatternLen {
			continue
		}
		if !strings.Contains(lower, strings.ToLower(e.Pattern)) {
			continue
		}
		matches = append(matches, model.SignatureMatch{
			Tool:        e.Tool,
			Pattern:     e.Pattern,
			Matched:     e.Pattern,
			Tier:        e.Tier,
			Source:      "URL",
			Description: renderMatch(e.Tool, e.Pattern, "URL"),
		})
	}
	return matches
}

// matchParamBlock detects Stable-Diffusion-style generation parameter
// blocks: two or more vocabulary tokens in one field are themselves a strong
// fingerprint, no explicit tool name needed.
func matchParamBlock(lower, source string, cat *Catalog) (model.SignatureMatch, bool) {
	var hit []string
	for _, tok := range cat.ParamTokens {
		if strings.Contains(lower, tok) {
			hit = append(hit, strings.TrimSuffix(tok, ":"))
		}
	}
	if len(hit) < 2 {
		return model.SignatureMatch{}, false
	}
	return model.SignatureMatch{
		Tool:        "stable-diffusion",
		Pattern:     "parameter block",
		Matched:     strings.Join(hit, ", "),
		Tier:        model.TierHigh,
		Source:      source,
		Description: fmt.Sprintf("generation parameter block (%s) in %s", strings.Join(hit, ", "), source),
	}, true
}

// matchMidjourneyFlags detects Midjourney command flags. Two or more flags
// in one field identify a Midjourney prompt even without the literal name.
func matchMidjourneyFlags(lower, source string, cat *Catalog) (model.SignatureMatch, bool) {
	var hit []string
	for _, flag := range cat.MidjourneyFlags {
		if strings.Contains(lower, flag) {
			hit = append(hit, strings.TrimSpace(flag))
		}
	}
	if len(hit) < 2 {
		return model.SignatureMatch{}, false
	}
	return model.SignatureMatch{
		Tool:        "midjourney",
		Pattern:     "midjourney flags",
		Matched:     strings.Join(hit, " "),
		Tier:        model.TierHigh,
		Source:      source,
		Description: fmt.Sprintf("midjourney prompt flags (%s) in %s", strings.Join(hit, " "), source),
	}, true
}

// Aggregate combines the tiers of all matches for one analysis into a single
// confidence. The ordinal rule is deliberate: one strong signal outweighs
// many weak ones, but weak signals can accumulate.
//
//	high:   >=1 high match, or high+medium >= 2
//	medium: >=1 medium match, or >=2 low matches
//	low:    exactly 1 low match
//	none:   otherwise
func Aggregate(matches []model.SignatureMatch) model.ResultConfidence {
	var high, medium, low int
	for _, m := range matches {
		switch m.Tier {
		case model.TierHigh:
			high++
		case model.TierMedium:
			medium++
		case model.TierLow:
			low++
		}
	}

	switch {
	case high >= 1 || high+medium >= 2:
		return model.ConfidenceHigh
	case medium >= 1 || low >= 2:
		return model.ConfidenceMedium
	case low == 1:
		return model.ConfidenceLow
	default:
		return model.ConfidenceNone
	}
}

func renderMatch(tool, pattern, source string) string {
	if tool != "" {
		return fmt.Sprintf("%s signature %q found in %s", tool, pattern, source)
	}
	return fmt.Sprintf("generic AI token %q found in %s", pattern, source)
}
