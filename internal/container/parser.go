package container

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/provascan/provascan/internal/model"
)

// Traversal caps. Bounded so a pathological input cannot make a parse
// unbounded in time or output size.
const (
	maxChunks         = 1000
	fallbackScanLimit = 64 * 1024
	maxFieldLen       = 16 * 1024
)

// Result is the outcome of parsing one media byte sequence: the detected
// container, every recovered text-bearing field in traversal order, and any
// structural warnings accumulated while recovering from malformed input.
type Result struct {
	ContainerType model.ContainerType   `json:"container_type"`
	Fields        []model.MetadataField `json:"fields,omitempty"`
	Warnings      []string              `json:"warnings,omitempty"`
}

func (r *Result) addField(source, text string) {
	text = sanitizeText(text)
	if text == "" {
		return
	}
	r.Fields = append(r.Fields, model.MetadataField{Source: source, Text: text})
}

func (r *Result) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Parse walks the container structure of data and extracts every embedded
// text-bearing field. It is a pure function of its input: identical bytes
// yield identical results. Structural inconsistencies stop traversal of the
// affected container and surface as warnings; Parse itself never fails.
func Parse(data []byte) *Result {
	res := &Result{ContainerType: DetectType(data)}

	switch res.ContainerType {
	case model.ContainerJPEG:
		parseJPEG(data, res)
	case model.ContainerPNG:
		parsePNG(data, res)
	case model.ContainerGIF:
		parseGIF(data, res)
	case model.ContainerWebP:
		parseRIFF(data, res, "WebP")
	case model.ContainerAVI:
		parseRIFF(data, res, "AVI")
	case model.ContainerTIFF:
		parseEXIF(data, res, "TIFF")
	case model.ContainerMP4, model.ContainerAVIF:
		parseBMFF(data, res)
	case model.ContainerWebM:
		parseWebM(data, res)
	default:
		// Unknown container: degrade to a generic text scan so the
		// signature matcher still gets something to chew on.
		if text := looseText(data, fallbackScanLimit); text != "" {
			res.addField("raw text scan", text)
		}
	}

	// C2PA manifests travel in several containers (JPEG APP11, PNG caBx,
	// BMFF uuid boxes). If traversal did not already surface one, a token
	// scan over the buffer catches embeddings the structural walk missed.
	if !hasC2PAField(res) {
		scanC2PA(data, res)
	}

	return res
}

func hasC2PAField(res *Result) bool {
	for _, f := range res.Fields {
		if strings.HasPrefix(f.Source, "C2PA") {
			return true
		}
	}
	return false
}

// looseText best-effort decodes up to limit bytes as printable text,
// replacing anything unprintable with spaces and collapsing runs. Invalid
// UTF-8 sequences are skipped, never fatal.
func looseText(data []byte, limit int) string {
	if limit > 0 && len(data) > limit {
		data = data[:limit]
	}
	var b strings.Builder
	b.Grow(len(data) / 4)
	lastSpace := true
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		i += size
		if r == utf8.RuneError && size == 1 {
			r = ' '
		}
		printable := r == '\n' || r == '\t' || (r >= 0x20 && r != 0x7F)
		if !printable {
			r = ' '
		}
		if r == ' ' || r == '\n' || r == '\t' {
			if lastSpace {
				continue
			}
			lastSpace = true
			b.WriteByte(' ')
			continue
		}
		lastSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// sanitizeText strips NULs and control noise from a recovered field and caps
// its length so one huge field cannot dominate downstream matching.
func sanitizeText(s string) string {
	if len(s) > maxFieldLen {
		s = s[:maxFieldLen]
	}
	if strings.ContainsRune(s, 0) {
		s = strings.ReplaceAll(s, "\x00", " ")
	}
	s = strings.Map(func(r rune) rune {
		if r != '\n' && r != '\t' && (r < 0x20 || r == 0x7F) {
			return ' '
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// cleanASCII returns s trimmed of garbage if predominantly printable,
// otherwise "". Used for fields pulled out of binary structures where the
// claimed type may lie.
func cleanASCII(raw []byte) string {
	raw = bytes.Trim(raw, "\x00")
	if len(raw) == 0 {
		return ""
	}
	printable := 0
	for _, c := range raw {
		if c == '\n' || c == '\t' || (c >= 0x20 && c < 0x7F) {
			printable++
		}
	}
	if printable*10 < len(raw)*7 { // below 70% printable: treat as binary
		return ""
	}
	return sanitizeText(string(raw))
}
