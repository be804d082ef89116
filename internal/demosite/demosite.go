// Package demosite runs a small local gallery site whose images carry
// known provenance metadata. Point a scan at it to watch the pipeline
// flag the generated images and pass the clean ones.
package demosite

import (
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"sync"
)

// Config holds configuration for the demo site.
type Config struct {
	// Port is the port on which the demo site listens.
	Port int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{Port: 9999}
}

// mediaItem is one served image with a human description of what the
// scanner should make of it.
type mediaItem struct {
	Name        string
	ContentType string
	Description string
	Bytes       []byte
}

// Site serves the demo galleries.
type Site struct {
	cfg   Config
	mu    sync.RWMutex
	media map[string]mediaItem
}

// New builds the site with its fixture media generated up front.
func New(cfg Config) (*Site, error) {
	items, err := buildMedia()
	if err != nil {
		return nil, fmt.Errorf("building demo media: %w", err)
	}

	media := make(map[string]mediaItem, len(items))
	for _, it := range items {
		media[it.Name] = it
	}
	return &Site{cfg: cfg, media: media}, nil
}

// Start starts the demo site and blocks.
func (s *Site) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	fmt.Printf("Demo site on http://localhost%s\n", addr)
	fmt.Printf("Try: provascan -page http://localhost%s/gallery/generated\n", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// Handler returns the site mux.
func (s *Site) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.indexHandler)
	mux.HandleFunc("/gallery/generated", s.galleryHandler(true))
	mux.HandleFunc("/gallery/camera", s.galleryHandler(false))
	mux.HandleFunc("/media/", s.mediaHandler)
	return mux
}

func (s *Site) indexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(indexHTML))
}

// galleryHandler serves the generated or the camera gallery depending on
// the flag. Generated media carry AI-tool metadata; camera media do not.
func (s *Site) galleryHandler(generated bool) http.HandlerFunc {
	tmpl := template.Must(template.New("gallery").Parse(galleryHTML))

	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		var items []mediaItem
		for _, it := range s.media {
			if isGenerated(it.Name) == generated {
				items = append(items, it)
			}
		}
		s.mu.RUnlock()

		sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })

		title := "Camera gallery"
		if generated {
			title = "Generated gallery"
		}
		w.Header().Set("Content-Type", "text/html")
		_ = tmpl.Execute(w, struct {
			Title string
			Items []mediaItem
		}{Title: title, Items: items})
	}
}

func (s *Site) mediaHandler(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Path[len("/media/"):]

	s.mu.RLock()
	it, ok := s.media[name]
	s.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", it.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(it.Bytes)
}

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>Provascan demo site</title></head>
<body>
    <h1>Provascan demo site</h1>
    <p>Two galleries to scan:</p>
    <ul>
        <li><a href="/gallery/generated">Generated gallery</a>: images carrying AI-tool metadata, every one should be flagged.</li>
        <li><a href="/gallery/camera">Camera gallery</a>: plain images, none should be flagged.</li>
    </ul>
</body>
</html>`

const galleryHTML = `<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <meta property="og:image" content="{{with index .Items 0}}/media/{{.Name}}{{end}}">
</head>
<body>
    <h1>{{.Title}}</h1>
    {{range .Items}}
    <figure>
        <img src="/media/{{.Name}}" alt="{{.Description}}">
        <figcaption>{{.Description}}</figcaption>
    </figure>
    {{end}}
</body>
</html>`
