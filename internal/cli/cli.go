package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// CLIArgs are the command-line arguments that control a single run.
type CLIArgs struct {
	// URL is a media URL to analyze. Mutually exclusive with File/Page.
	URL string

	// File is a local media file to analyze.
	File string

	// Page is a web page URL whose media candidates are scanned.
	Page string

	// ConfigPath points at an optional YAML config file.
	ConfigPath string

	// JSON switches output from the human verdict to raw JSON.
	JSON bool

	// SkipPixels disables pixel sampling for this run.
	SkipPixels bool

	// Limit caps candidates for a page scan; 0 means "use config default".
	Limit int

	// Verbose enables debug logging.
	Verbose bool

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

// ParseArgs parses a slice of args and returns CLIArgs. Use in tests by
// passing arbitrary slices. The function is deterministic and does not read
// os.Args.
func ParseArgs(args []string) (*CLIArgs, error) {
	fs := flag.NewFlagSet("provascan", flag.ContinueOnError)
	var (
		url        = fs.String("url", "", "Media URL to analyze")
		file       = fs.String("file", "", "Local media file to analyze")
		page       = fs.String("page", "", "Web page URL to scan for media")
		configPath = fs.String("config", "", "Path to YAML config file")
		jsonOut    = fs.Bool("json", false, "Emit the raw JSON result instead of the verdict")
		skipPixels = fs.Bool("skip-pixels", false, "Skip pixel statistics")
		limit      = fs.Int("limit", 0, "Max candidates for a page scan (0=use default)")
		verbose    = fs.Bool("verbose", false, "Enable debug logging")
	)

	// Ensure Parse doesn't write to stdout/stderr in tests
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	set := 0
	for _, v := range []string{*url, *file, *page} {
		if strings.TrimSpace(v) != "" {
			set++
		}
	}
	if set == 0 {
		return nil, fmt.Errorf("one of -url, -file or -page is required")
	}
	if set > 1 {
		return nil, fmt.Errorf("-url, -file and -page are mutually exclusive")
	}

	return &CLIArgs{
		URL:        *url,
		File:       *file,
		Page:       *page,
		ConfigPath: *configPath,
		JSON:       *jsonOut,
		SkipPixels: *skipPixels,
		Limit:      *limit,
		Verbose:    *verbose,
		RawArgs:    args,
	}, nil
}
