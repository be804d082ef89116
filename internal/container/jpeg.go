package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	jpegMarkerSOS = 0xDA
	jpegMarkerCOM = 0xFE
)

var (
	exifHeader = []byte("Exif\x00\x00")
	xmpHeader  = []byte("http://ns.adobe.com/xap/1.0/\x00")
)

// parseJPEG walks marker-delimited segments until Start-of-Scan. APP1
// segments carry EXIF or XMP, APP11 commonly carries C2PA/JUMBF, comments
// are captured verbatim, and any other APPn segment contributes whatever
// readable text it holds as a fallback field.
func parseJPEG(data []byte, res *Result) {
	i := 2 // past FFD8
	for i+1 < len(data) {
		if data[i] != 0xFF {
			// Lost marker alignment; stop rather than guess.
			res.warn(fmt.Sprintf("jpeg: expected marker at offset %d", i))
			return
		}
		marker := data[i+1]
		i += 2

		// Fill bytes and standalone markers carry no length.
		if marker == 0xFF {
			i--
			continue
		}
		if marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			continue
		}
		if marker == jpegMarkerSOS || marker == 0xD9 { // entropy data or EOI
			return
		}

		if i+2 > len(data) {
			res.warn("jpeg: truncated segment length")
			return
		}
		segLen := int(binary.BigEndian.Uint16(data[i : i+2]))
		if segLen < 2 || i+segLen > len(data) {
			res.warn(fmt.Sprintf("jpeg: segment 0x%02X length %d overruns buffer", marker, segLen))
			return
		}
		payload := data[i+2 : i+segLen]
		i += segLen

		switch {
		case marker == jpegMarkerCOM:
			if text := cleanASCII(payload); text != "" {
				res.addField("JPEG comment", text)
			}
		case marker >= 0xE0 && marker <= 0xEF:
			parseJPEGApp(marker, payload, res)
		}
	}
}

func parseJPEGApp(marker byte, payload []byte, res *Result) {
	if marker == 0xE1 {
		if bytes.HasPrefix(payload, exifHeader) {
			parseEXIF(payload[len(exifHeader):], res, "EXIF")
			return
		}
		if bytes.HasPrefix(payload, xmpHeader) {
			if text := cleanASCII(payload[len(xmpHeader):]); text != "" {
				res.addField("XMP", text)
			}
			return
		}
	}

	if bytes.Contains(payload, []byte("c2pa")) || bytes.Contains(payload, []byte("C2PA")) {
		parseC2PA(payload, res, fmt.Sprintf("JPEG APP%d", marker-0xE0))
		return
	}

	// Unrecognized APPn: keep its readable text as a low-value fallback
	// field so unusual writers still get scanned.
	if text := cleanASCII(payload); len(text) >= 4 {
		res.addField(fmt.Sprintf("JPEG APP%d", marker-0xE0), text)
	}
}
