package container

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// parsePNG walks 8-byte-prefixed chunks after the PNG signature. Text chunks
// (tEXt, iTXt, zTXt) and embedded EXIF/C2PA payloads become fields; CRCs are
// not validated. Traversal stops at IEND, on a length overrun, or after
// maxChunks chunks.
func parsePNG(data []byte, res *Result) {
	i := 8 // past signature
	for chunks := 0; i+8 <= len(data); chunks++ {
		if chunks >= maxChunks {
			res.warn(fmt.Sprintf("png: chunk cap %d exceeded, traversal stopped", maxChunks))
			return
		}

		length := int(binary.BigEndian.Uint32(data[i : i+4]))
		ctype := string(data[i+4 : i+8])
		if length < 0 || i+8+length+4 > len(data) {
			res.warn(fmt.Sprintf("png: chunk %q length %d overruns buffer", ctype, length))
			return
		}
		body := data[i+8 : i+8+length]
		i += 8 + length + 4 // skip CRC

		switch ctype {
		case "IEND":
			return
		case "tEXt":
			pngTextChunk(body, res)
		case "iTXt":
			pngIntlTextChunk(body, res)
		case "zTXt":
			pngCompressedTextChunk(body, res)
		case "eXIf":
			parseEXIF(body, res, "PNG eXIf")
		default:
			lower := strings.ToLower(ctype)
			if lower == "cabx" || strings.Contains(lower, "c2pa") ||
				bytes.Contains(body, []byte("c2pa")) || bytes.Contains(body, []byte("C2PA")) {
				parseC2PA(body, res, "PNG "+ctype)
			}
		}
	}
}

// pngTextChunk handles tEXt: keyword NUL value, both Latin-1/ASCII.
func pngTextChunk(body []byte, res *Result) {
	keyword, value, ok := bytes.Cut(body, []byte{0})
	if !ok {
		return
	}
	if text := cleanASCII(value); text != "" {
		res.addField("PNG tEXt keyword="+sanitizeText(string(keyword)), text)
	}
}

// pngIntlTextChunk handles iTXt: keyword NUL compressionFlag(1)
// compressionMethod(1) languageTag NUL translatedKeyword NUL text. The
// keyword and text matter; the middle fields may all be empty.
func pngIntlTextChunk(body []byte, res *Result) {
	keyword, rest, ok := bytes.Cut(body, []byte{0})
	if !ok || len(rest) < 2 {
		return
	}
	compressed := rest[0] == 1
	rest = rest[2:]

	// language tag, then translated keyword
	if _, r, ok2 := bytes.Cut(rest, []byte{0}); ok2 {
		rest = r
	} else {
		return
	}
	if _, r, ok2 := bytes.Cut(rest, []byte{0}); ok2 {
		rest = r
	} else {
		return
	}

	source := "PNG iTXt keyword=" + sanitizeText(string(keyword))
	if compressed {
		if text := inflate(rest); text != "" {
			res.addField(source, text)
		} else {
			res.addField(source, "(compressed, unreadable)")
		}
		return
	}
	if text := sanitizeText(string(rest)); text != "" {
		res.addField(source, text)
	}
}

// pngCompressedTextChunk handles zTXt: keyword NUL compressionMethod(1)
// followed by a zlib stream.
func pngCompressedTextChunk(body []byte, res *Result) {
	keyword, rest, ok := bytes.Cut(body, []byte{0})
	if !ok || len(rest) < 1 {
		return
	}
	source := "PNG zTXt keyword=" + sanitizeText(string(keyword))
	if text := inflate(rest[1:]); text != "" {
		res.addField(source, text)
		return
	}
	// Keep the field visible rather than silently dropping it.
	res.addField(source, "(compressed, unreadable)")
}

// inflate decompresses a zlib stream, bounded to maxFieldLen output bytes.
// Returns "" on any error.
func inflate(data []byte) string {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	defer r.Close()
	out, err := io.ReadAll(io.LimitReader(r, maxFieldLen))
	if err != nil && len(out) == 0 {
		return ""
	}
	return sanitizeText(string(out))
}
