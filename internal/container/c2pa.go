package container

import (
	"bytes"
	"regexp"
)

// C2PA manifests are JUMBF-wrapped CBOR/JSON structures. A full JUMBF parser
// is overkill for provenance hints: the useful fields (claim_generator,
// assertions, ingredients) are recoverable with a tolerant JSON-ish scan.

var (
	c2paTokens = [][]byte{[]byte("c2pa.org"), []byte("C2PA"), []byte("c2pa")}

	reClaimGenerator = regexp.MustCompile(`"claim_generator(?:_info)?"\s*:\s*(?:\[\s*\{\s*"name"\s*:\s*)?"([^"]{1,256})"`)
	reAssertions     = regexp.MustCompile(`"assertions"\s*:`)
	reIngredients    = regexp.MustCompile(`"ingredients"\s*:`)
)

// scanC2PA looks for C2PA tokens anywhere in the buffer and, when present,
// hands the candidate range to parseC2PA.
func scanC2PA(data []byte, res *Result) {
	for _, tok := range c2paTokens {
		if bytes.Contains(data, tok) {
			parseC2PA(data, res, "C2PA scan")
			return
		}
	}
}

// parseC2PA extracts provenance hints from a byte range containing a C2PA
// manifest. The presence of any manifest is itself a signal (content
// authenticity metadata in the wild almost always marks a generator or
// editor); a claim_generator naming an AI tool gets surfaced verbatim so the
// signature catalog can identify it.
func parseC2PA(data []byte, res *Result, origin string) {
	found := false
	for _, tok := range c2paTokens {
		if bytes.Contains(data, tok) {
			found = true
			break
		}
	}
	if !found {
		return
	}

	res.addField("C2PA", "content authenticity metadata present")

	jsonish := extractJSONish(data)
	if jsonish == nil {
		return
	}

	if m := reClaimGenerator.FindSubmatch(jsonish); m != nil {
		if text := cleanASCII(m[1]); text != "" {
			res.addField("C2PA claim_generator", text)
		}
	}
	if reAssertions.Match(jsonish) {
		res.addField("C2PA assertions", "assertions present ("+origin+")")
	}
	if reIngredients.Match(jsonish) {
		res.addField("C2PA ingredients", "ingredients present ("+origin+")")
	}
}

// extractJSONish returns the slice between the first '{' and the last '}',
// or nil when no such span exists.
func extractJSONish(data []byte) []byte {
	start := bytes.IndexByte(data, '{')
	end := bytes.LastIndexByte(data, '}')
	if start < 0 || end <= start {
		return nil
	}
	return data[start : end+1]
}
