package container

import (
	"bytes"

	"github.com/provascan/provascan/internal/model"
)

// DetectType identifies the container format from magic bytes. Detection is
// priority-ordered, first match wins, and never fails: unmatched or truncated
// input yields ContainerUnknown.
func DetectType(data []byte) model.ContainerType {
	if len(data) < 4 {
		return model.ContainerUnknown
	}

	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return model.ContainerJPEG
	case bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G'}):
		return model.ContainerPNG
	case bytes.HasPrefix(data, []byte("GIF8")):
		return model.ContainerGIF
	}

	// RIFF-wrapped formats share a prefix; the form tag at offset 8 decides.
	if bytes.HasPrefix(data, []byte("RIFF")) && len(data) >= 12 {
		switch string(data[8:12]) {
		case "WEBP":
			return model.ContainerWebP
		case "AVI ":
			return model.ContainerAVI
		}
	}

	// ISO BMFF: an ftyp box at offset 4. AVIF is distinguished by brand.
	if len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp")) {
		if bytes.Equal(data[8:12], []byte("avif")) {
			return model.ContainerAVIF
		}
		return model.ContainerMP4
	}

	switch {
	case bytes.HasPrefix(data, []byte{'I', 'I', 0x2A, 0x00}),
		bytes.HasPrefix(data, []byte{'M', 'M', 0x00, 0x2A}):
		return model.ContainerTIFF
	case bytes.HasPrefix(data, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return model.ContainerWebM
	}

	return model.ContainerUnknown
}
