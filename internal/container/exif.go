package container

import (
	"encoding/binary"
	"fmt"
)

// Recognized IFD tags and their field labels.
var exifTagNames = map[uint16]string{
	0x010E: "ImageDescription",
	0x010F: "Make",
	0x0110: "Model",
	0x0131: "Software",
	0x0132: "DateTime",
	0x013B: "Artist",
	0x8298: "Copyright",
	0x9003: "DateTimeOriginal",
	0x9004: "DateTimeDigitized",
	0x9286: "UserComment",
}

const (
	exifTagExifIFD = 0x8769
	maxIFDs        = 8
)

// parseEXIF walks a TIFF/EXIF structure: endianness marker, IFD offset, then
// 12-byte IFD entries. The strict walk is the primary path; when it recovers
// nothing, a permissive text scan over the blob compensates for writers with
// broken offsets.
func parseEXIF(data []byte, res *Result, label string) {
	before := len(res.Fields)
	exifWalk(data, res, label)
	if len(res.Fields) == before {
		if text := looseText(data, fallbackScanLimit); len(text) >= 8 {
			res.addField(label+" raw", text)
		}
	}
}

func exifWalk(data []byte, res *Result, label string) {
	if len(data) < 8 {
		return
	}
	var order binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		res.warn(label + ": bad endianness marker")
		return
	}
	if order.Uint16(data[2:4]) != 0x2A {
		res.warn(label + ": bad TIFF magic")
		return
	}

	offset := int(order.Uint32(data[4:8]))
	visited := 0
	walkIFD(data, order, offset, res, label, &visited)
}

func walkIFD(data []byte, order binary.ByteOrder, offset int, res *Result, label string, visited *int) {
	for offset != 0 {
		*visited++
		if *visited > maxIFDs {
			res.warn(label + ": IFD chain too long, traversal stopped")
			return
		}
		if offset < 0 || offset+2 > len(data) {
			res.warn(fmt.Sprintf("%s: IFD offset %d out of range", label, offset))
			return
		}
		count := int(order.Uint16(data[offset : offset+2]))
		entries := offset + 2
		if entries+count*12+4 > len(data) {
			// Truncated entry table: read what fits.
			count = (len(data) - entries) / 12
		}

		for n := 0; n < count; n++ {
			e := entries + n*12
			tag := order.Uint16(data[e : e+2])
			typ := order.Uint16(data[e+2 : e+4])
			cnt := int(order.Uint32(data[e+4 : e+8]))

			if tag == exifTagExifIFD {
				sub := int(order.Uint32(data[e+8 : e+12]))
				walkIFD(data, order, sub, res, label, visited)
				continue
			}

			name, known := exifTagNames[tag]
			if !known {
				continue
			}
			value := exifEntryText(data, order, e, typ, cnt)
			if value != "" {
				res.addField(label+" "+name, value)
			}
		}

		next := entries + count*12
		if next+4 > len(data) {
			return
		}
		offset = int(order.Uint32(data[next : next+4]))
	}
}

// exifEntryText extracts the text of an ASCII (type 2) or UNDEFINED (type 7,
// used by UserComment with an 8-byte encoding prefix) entry. Values of 4
// bytes or fewer are inlined in the value field; larger values live at the
// offset it holds.
func exifEntryText(data []byte, order binary.ByteOrder, entry int, typ uint16, count int) string {
	if typ != 2 && typ != 7 {
		return ""
	}
	if count <= 0 || count > maxFieldLen {
		return ""
	}

	var raw []byte
	if count <= 4 {
		raw = data[entry+8 : entry+8+count]
	} else {
		off := int(order.Uint32(data[entry+8 : entry+12]))
		if off < 0 || off+count > len(data) {
			return ""
		}
		raw = data[off : off+count]
	}

	if typ == 7 && len(raw) > 8 {
		// UserComment: 8-byte character-code prefix (ASCII\0\0\0 etc).
		raw = raw[8:]
	}
	return cleanASCII(raw)
}
