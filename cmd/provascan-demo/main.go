// Command provascan-demo serves a local gallery site with known-provenance
// fixture images for trying out the scanner.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/provascan/provascan/internal/demosite"
)

func main() {
	cfg := demosite.DefaultConfig()
	flag.IntVar(&cfg.Port, "port", cfg.Port, "Port to listen on")
	flag.Parse()

	site, err := demosite.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := site.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
