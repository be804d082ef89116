package container

import (
	"encoding/binary"
	"fmt"
)

// parseRIFF walks RIFF sub-chunks after the 12-byte header. WebP carries
// EXIF and XMP sub-chunks; AVI carries INFO text entries (IDIT, ISFT, ICMT,
// IART), usually nested under a LIST chunk. Sub-chunks are padded to an even
// byte boundary.
func parseRIFF(data []byte, res *Result, label string) {
	if len(data) < 12 {
		return
	}
	riffChunks(data[12:], res, label, 0)
}

func riffChunks(data []byte, res *Result, label string, depth int) {
	if depth > 4 {
		return
	}
	i := 0
	for chunks := 0; i+8 <= len(data); chunks++ {
		if chunks >= maxChunks {
			res.warn(fmt.Sprintf("%s: chunk cap %d exceeded, traversal stopped", label, maxChunks))
			return
		}
		ctype := string(data[i : i+4])
		size := int(binary.LittleEndian.Uint32(data[i+4 : i+8]))
		if size < 0 || i+8+size > len(data) {
			res.warn(fmt.Sprintf("%s: chunk %q size %d overruns buffer", label, ctype, size))
			return
		}
		body := data[i+8 : i+8+size]
		i += 8 + size
		if size%2 == 1 { // even-byte padding
			i++
		}

		switch ctype {
		case "EXIF":
			parseEXIF(body, res, label+" EXIF")
		case "XMP ":
			if text := cleanASCII(body); text != "" {
				res.addField(label+" XMP", text)
			}
		case "LIST":
			if len(body) >= 4 {
				riffChunks(body[4:], res, label, depth+1)
			}
		case "IDIT", "ISFT", "ICMT", "IART":
			if text := cleanASCII(body); text != "" {
				res.addField(label+" "+ctype, text)
			}
		}
	}
}
