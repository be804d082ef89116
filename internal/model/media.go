package model

import "time"

// ContainerType identifies the media container recognized from magic bytes.
type ContainerType string

const (
	ContainerJPEG    ContainerType = "jpeg"
	ContainerPNG     ContainerType = "png"
	ContainerGIF     ContainerType = "gif"
	ContainerWebP    ContainerType = "webp"
	ContainerTIFF    ContainerType = "tiff"
	ContainerAVIF    ContainerType = "avif"
	ContainerMP4     ContainerType = "mp4"
	ContainerWebM    ContainerType = "webm"
	ContainerAVI     ContainerType = "avi"
	ContainerUnknown ContainerType = "unknown"
)

// IsVideo reports whether the container is a video format. Video containers
// are analyzed for embedded metadata only; no pixel sampling is attempted.
func (c ContainerType) IsVideo() bool {
	switch c {
	case ContainerMP4, ContainerWebM, ContainerAVI:
		return true
	}
	return false
}

// Media is an immutable byte sequence under analysis plus its declared
// origin. Created once per analysis request and read-only thereafter.
type Media struct {
	// Data holds the raw file bytes.
	Data []byte `json:"-"`

	// URL is the source URL when the bytes were fetched (may be empty for
	// uploaded or local content).
	URL string `json:"url,omitempty"`

	// Filename is the declared name for uploaded/local content.
	Filename string `json:"filename,omitempty"`

	// FetchedAt is when the bytes were obtained (if known).
	FetchedAt time.Time `json:"fetched_at,omitempty"`
}

// Name returns the best available identifier for logging and evidence lines.
func (m *Media) Name() string {
	if m.URL != "" {
		return m.URL
	}
	return m.Filename
}

// MetadataField is one embedded text field recovered from a container.
// The sequence of fields produced by a parse follows container traversal
// order; it is stable for identical input bytes.
type MetadataField struct {
	// Source labels where the text came from,
	// e.g. `PNG tEXt keyword=parameters` or `EXIF Software`.
	Source string `json:"source"`

	// Text is the raw recovered text.
	Text string `json:"text"`
}
