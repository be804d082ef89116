package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// ISO BMFF (MP4/MOV/AVIF) box walking. Boxes are 4-byte big-endian size +
// 4-byte ASCII type; size 1 means a 64-bit size follows, size 0 means "to
// end of file". A zero or negative effective size is treated as malformed so
// traversal cannot loop forever.

var bmffContainers = map[string]bool{
	"moov": true,
	"udta": true,
	"ilst": true,
	"trak": true,
}

var bmffTextBoxes = map[string]string{
	"\xa9too": "tool",
	"\xa9cmt": "comment",
	"\xa9nam": "name",
	"\xa9ART": "artist",
	"\xa9day": "date",
	"\xa9des": "description",
	"desc":    "description",
	"xml ":    "xml",
	"----":    "freeform",
}

func parseBMFF(data []byte, res *Result) {
	bmffWalk(data, res, 0)
}

func bmffWalk(data []byte, res *Result, depth int) {
	if depth > 6 {
		return
	}
	i := 0
	for boxes := 0; i+8 <= len(data); boxes++ {
		if boxes >= maxChunks {
			res.warn(fmt.Sprintf("bmff: box cap %d exceeded, traversal stopped", maxChunks))
			return
		}
		size := int(binary.BigEndian.Uint32(data[i : i+4]))
		btype := string(data[i+4 : i+8])
		header := 8

		switch size {
		case 0:
			size = len(data) - i
		case 1:
			if i+16 > len(data) {
				res.warn("bmff: truncated extended box size")
				return
			}
			size64 := binary.BigEndian.Uint64(data[i+8 : i+16])
			if size64 > uint64(len(data)-i) {
				res.warn(fmt.Sprintf("bmff: box %q extended size overruns buffer", btype))
				return
			}
			size = int(size64)
			header = 16
		}
		if size < header || i+size > len(data) {
			res.warn(fmt.Sprintf("bmff: box %q size %d malformed", btype, size))
			return
		}
		body := data[i+header : i+size]
		i += size

		switch {
		case btype == "meta":
			// meta carries a 4-byte version/flags word before its children.
			if len(body) > 4 {
				bmffWalk(body[4:], res, depth+1)
			}
		case btype == "uuid":
			if bytes.Contains(body, []byte("c2pa")) || bytes.Contains(body, []byte("C2PA")) {
				parseC2PA(body, res, "MP4 uuid")
			} else if text := cleanASCII(body); len(text) >= 8 {
				res.addField("MP4 uuid", text)
			}
		case bmffContainers[btype]:
			bmffWalk(body, res, depth+1)
		default:
			if label, ok := bmffTextBoxes[btype]; ok {
				// Apple-style items wrap their value in a child `data`
				// box with an 8-byte type/locale preamble.
				if len(body) >= 16 && string(body[4:8]) == "data" {
					body = body[16:]
				}
				if text := cleanASCII(body); text != "" {
					res.addField("MP4 "+label, text)
				}
			}
		}
	}
}

// parseWebM does a shallow scan of an EBML stream. Full EBML varint walking
// buys little here: WebM rarely carries AI metadata, so readable text from
// the head of the stream (writing app, muxing app, tags) is captured
// wholesale for the signature matcher.
func parseWebM(data []byte, res *Result) {
	if text := looseText(data, fallbackScanLimit); len(text) >= 8 {
		res.addField("WebM text scan", text)
	}
}
