// Command provascan analyzes a media file, URL, or whole page for AI
// generation provenance and prints a verdict.
// Usage:
//
//	provascan -url https://example.com/picture.png
//	provascan -file ./picture.png -json
//	provascan -page https://example.com/gallery -limit 10
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/provascan/provascan/internal/app"
	"github.com/provascan/provascan/internal/cli"
	"github.com/provascan/provascan/internal/logging"
	"github.com/provascan/provascan/internal/model"
)

var (
	// Color printers
	infoColor    = color.New(color.FgBlue).SprintFunc()
	successColor = color.New(color.FgGreen).SprintFunc()
	warningColor = color.New(color.FgYellow).SprintFunc()
	errorColor   = color.New(color.FgRed).SprintFunc()
	alertColor   = color.New(color.FgRed, color.Bold).SprintFunc()
)

func printInfo(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", infoColor("[*]"), fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", warningColor("[!]"), fmt.Sprintf(format, args...))
}

func printError(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", errorColor("[-]"), fmt.Sprintf(format, args...))
}

func main() {
	args, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "provascan: %v\n", err)
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  provascan -url <media-url>")
		fmt.Fprintln(os.Stderr, "  provascan -file <filepath>")
		fmt.Fprintln(os.Stderr, "  provascan -page <page-url>")
		os.Exit(2)
	}

	cfg, err := app.LoadConfig(args.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "provascan: %v\n", err)
		os.Exit(1)
	}

	var logger logging.Logger = logging.NewNopLogger()
	if args.Verbose {
		logger = logging.NewStdoutLogger("provascan")
	}

	application, err := app.NewApplication(cfg, logger, app.Options{DisableStore: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "provascan: %v\n", err)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	defer application.Shutdown(context.Background())

	an := application.Orch.Analyzer()

	switch {
	case args.File != "":
		data, err := os.ReadFile(args.File)
		if err != nil {
			printError("Reading %s: %v", args.File, err)
			os.Exit(1)
		}
		res := an.AnalyzeBytes(ctx, data, args.File, args.SkipPixels)
		emit(res, args.JSON)
		exitFor(res)

	case args.URL != "":
		res := an.AnalyzeURL(ctx, args.URL, args.SkipPixels)
		emit(res, args.JSON)
		exitFor(res)

	case args.Page != "":
		printInfo("Scanning %s", args.Page)
		scan, err := an.ScanPage(ctx, args.Page, args.Limit, nil)
		if err != nil {
			printError("Page scan failed: %v", err)
			os.Exit(1)
		}
		if args.JSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(scan)
			return
		}
		printInfo("%d candidates found, %d analyzed", scan.Candidates, len(scan.Results))
		flagged := 0
		for _, res := range scan.Results {
			emit(res, false)
			if res.IsAI {
				flagged++
			}
		}
		if flagged > 0 {
			fmt.Printf("\n%s %d of %d analyzed media flagged as AI-generated\n",
				alertColor("[!!!]"), flagged, len(scan.Results))
			os.Exit(1)
		}
	}
}

func emit(res *model.AnalysisResult, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(res)
		return
	}

	name := res.URL
	if name == "" {
		name = "(stdin)"
	}

	switch res.Confidence {
	case model.ConfidenceError:
		printError("%s: analysis failed", name)
	case model.ConfidenceBlocked:
		printWarning("%s: fetch blocked", name)
	default:
		verdict := successColor("no AI provenance found")
		if res.IsAI {
			verdict = alertColor("AI-generated")
		}
		tool := ""
		if res.DetectedTool != "" {
			tool = fmt.Sprintf(" (%s)", res.DetectedTool)
		}
		fmt.Printf("%s %s: %s%s (score %d/100, confidence %s, container %s)\n",
			infoColor("[*]"), name, verdict, tool, res.AIScore, res.Confidence, res.ContainerType)
	}

	for _, d := range res.Details {
		fmt.Printf("      %s\n", d)
	}
	for _, w := range res.Warnings {
		printWarning("%s", w)
	}
}

func exitFor(res *model.AnalysisResult) {
	switch {
	case res.Confidence == model.ConfidenceError:
		os.Exit(1)
	case res.IsAI:
		os.Exit(1)
	}
}
