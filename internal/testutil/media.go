package testutil

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
)

// PNGSignature is the 8-byte PNG file signature.
var PNGSignature = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

// pngChunk serializes one chunk: length, type, data, CRC over type+data.
func pngChunk(ctype string, data []byte) []byte {
	var b bytes.Buffer
	binary.Write(&b, binary.BigEndian, uint32(len(data)))
	b.WriteString(ctype)
	b.Write(data)
	crc := crc32.NewIEEE()
	crc.Write([]byte(ctype))
	crc.Write(data)
	binary.Write(&b, binary.BigEndian, crc.Sum32())
	return b.Bytes()
}

func pngIHDR(w, h int) []byte {
	data := make([]byte, 13)
	binary.BigEndian.PutUint32(data[0:], uint32(w))
	binary.BigEndian.PutUint32(data[4:], uint32(h))
	data[8] = 8 // bit depth
	data[9] = 2 // truecolor
	return pngChunk("IHDR", data)
}

// PNGWithText builds a structurally valid PNG (no image data) carrying one
// tEXt chunk. Pixel decoding fails on it; metadata parsing succeeds.
func PNGWithText(keyword, value string) []byte {
	var b bytes.Buffer
	b.Write(PNGSignature)
	b.Write(pngIHDR(1, 1))
	b.Write(pngChunk("tEXt", append(append([]byte(keyword), 0), value...)))
	b.Write(pngChunk("IEND", nil))
	return b.Bytes()
}

// PNGWithIntlText builds a PNG carrying one uncompressed iTXt chunk.
func PNGWithIntlText(keyword, value string) []byte {
	var body bytes.Buffer
	body.WriteString(keyword)
	body.WriteByte(0)
	body.WriteByte(0) // compression flag
	body.WriteByte(0) // compression method
	body.WriteByte(0) // empty language tag
	body.WriteByte(0) // empty translated keyword
	body.WriteString(value)

	var b bytes.Buffer
	b.Write(PNGSignature)
	b.Write(pngIHDR(1, 1))
	b.Write(pngChunk("iTXt", body.Bytes()))
	b.Write(pngChunk("IEND", nil))
	return b.Bytes()
}

// PNGWithCompressedText builds a PNG carrying one zTXt chunk with a zlib
// deflated value.
func PNGWithCompressedText(keyword, value string) []byte {
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	zw.Write([]byte(value))
	zw.Close()

	var body bytes.Buffer
	body.WriteString(keyword)
	body.WriteByte(0)
	body.WriteByte(0) // compression method
	body.Write(compressed.Bytes())

	var b bytes.Buffer
	b.Write(PNGSignature)
	b.Write(pngIHDR(1, 1))
	b.Write(pngChunk("zTXt", body.Bytes()))
	b.Write(pngChunk("IEND", nil))
	return b.Bytes()
}

// SolidPNG encodes a real, decodable PNG filled with one color.
func SolidPNG(w, h int, c color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var b bytes.Buffer
	_ = png.Encode(&b, img)
	return b.Bytes()
}

// GradientPNG encodes a decodable PNG whose colors vary smoothly across
// both axes.
func GradientPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / max(w-1, 1)),
				G: uint8(y * 255 / max(h-1, 1)),
				B: uint8((x + y) * 255 / max(w+h-2, 1)),
				A: 255,
			})
		}
	}
	var b bytes.Buffer
	_ = png.Encode(&b, img)
	return b.Bytes()
}

// JPEGWithComment builds a minimal JPEG carrying one COM segment.
func JPEGWithComment(comment string) []byte {
	var b bytes.Buffer
	b.Write([]byte{0xFF, 0xD8}) // SOI
	b.Write([]byte{0xFF, 0xFE})
	binary.Write(&b, binary.BigEndian, uint16(len(comment)+2))
	b.WriteString(comment)
	b.Write([]byte{0xFF, 0xD9}) // EOI
	return b.Bytes()
}

// JPEGWithExifSoftware builds a minimal JPEG whose APP1 Exif payload holds
// one Software (0x0131) ASCII tag.
func JPEGWithExifSoftware(software string) []byte {
	ascii := append([]byte(software), 0)

	// TIFF little-endian: header, one-entry IFD, then the string payload.
	var tiff bytes.Buffer
	tiff.Write([]byte{'I', 'I', 0x2A, 0x00})
	binary.Write(&tiff, binary.LittleEndian, uint32(8)) // IFD offset
	binary.Write(&tiff, binary.LittleEndian, uint16(1)) // entry count
	binary.Write(&tiff, binary.LittleEndian, uint16(0x0131))
	binary.Write(&tiff, binary.LittleEndian, uint16(2)) // ASCII
	binary.Write(&tiff, binary.LittleEndian, uint32(len(ascii)))
	valueOffset := uint32(8 + 2 + 12 + 4)
	if len(ascii) <= 4 {
		var inline [4]byte
		copy(inline[:], ascii)
		tiff.Write(inline[:])
	} else {
		binary.Write(&tiff, binary.LittleEndian, valueOffset)
	}
	binary.Write(&tiff, binary.LittleEndian, uint32(0)) // next IFD
	if len(ascii) > 4 {
		tiff.Write(ascii)
	}

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)

	var b bytes.Buffer
	b.Write([]byte{0xFF, 0xD8}) // SOI
	b.Write([]byte{0xFF, 0xE1})
	binary.Write(&b, binary.BigEndian, uint16(len(payload)+2))
	b.Write(payload)
	b.Write([]byte{0xFF, 0xD9}) // EOI
	return b.Bytes()
}

// GIFWithComment builds a minimal GIF89a carrying one comment extension.
func GIFWithComment(comment string) []byte {
	var b bytes.Buffer
	b.WriteString("GIF89a")
	// 1x1 logical screen, no global color table
	b.Write([]byte{0x01, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00})
	b.Write([]byte{0x21, 0xFE})
	for len(comment) > 0 {
		n := len(comment)
		if n > 255 {
			n = 255
		}
		b.WriteByte(byte(n))
		b.WriteString(comment[:n])
		comment = comment[n:]
	}
	b.WriteByte(0x00) // sub-block terminator
	b.WriteByte(0x3B) // trailer
	return b.Bytes()
}
