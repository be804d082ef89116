package container

import "bytes"

// parseGIF scans for comment extensions (introducer 0x21, label 0xFE).
// Comment data is stored as length-prefixed sub-blocks concatenated until a
// zero-length sub-block. A full LZW-aware walk is unnecessary for metadata
// recovery; comments are the only text-bearing structure GIF defines.
func parseGIF(data []byte, res *Result) {
	i := 0
	for {
		idx := bytes.Index(data[i:], []byte{0x21, 0xFE})
		if idx < 0 {
			return
		}
		i += idx + 2

		var comment bytes.Buffer
		for i < len(data) {
			blockLen := int(data[i])
			i++
			if blockLen == 0 {
				break
			}
			if i+blockLen > len(data) {
				res.warn("gif: comment sub-block overruns buffer")
				return
			}
			comment.Write(data[i : i+blockLen])
			i += blockLen
		}
		if text := cleanASCII(comment.Bytes()); text != "" {
			res.addField("GIF comment", text)
		}
	}
}
