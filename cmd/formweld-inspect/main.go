// formweld-inspect dumps what discovery sees in a PDF template before any
// mapping: form widgets, detected sections, and static-scan candidates.
// Useful when a template maps badly and the question is whether the
// geometry or the matching is at fault.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/formweld/formweld/internal/field"
	"github.com/formweld/formweld/internal/pdfscan"
)

var (
	outputFormat = flag.String("format", "text", "Output format: text, json")
	showRuns     = flag.Bool("runs", false, "Also dump every positioned text run")
	help         = flag.Bool("help", false, "Show help message")
)

type inspection struct {
	Path        string                     `json:"path"`
	HasAcroForm bool                       `json:"has_acroform"`
	Widgets     []pdfscan.Widget           `json:"widgets,omitempty"`
	Sections    map[int][]string           `json:"sections,omitempty"`
	StaticScan  []field.RawFieldDescriptor `json:"static_scan,omitempty"`
	Pages       []pdfscan.PageRuns         `json:"pages,omitempty"`
}

func main() {
	flag.Parse()

	if *help {
		printHelp()
		return
	}

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: PDF file path required\n\n")
		printUsage()
		os.Exit(1)
	}

	pdfPath := flag.Arg(0)
	if _, err := os.Stat(pdfPath); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: File not found: %s\n", pdfPath)
		os.Exit(1)
	}

	result, err := inspect(pdfPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error inspecting template: %v\n", err)
		os.Exit(1)
	}

	if err := output(result); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
}

func inspect(path string) (*inspection, error) {
	result := &inspection{Path: path}

	widgets, hasForm, err := pdfscan.NewAcroFormExtractor().ExtractWidgets(path)
	if err != nil {
		return nil, err
	}
	result.HasAcroForm = hasForm
	result.Widgets = widgets

	runs, err := pdfscan.ExtractRuns(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: text extraction failed: %v\n", err)
		runs = &pdfscan.DocumentRuns{}
	}

	result.Sections = make(map[int][]string)
	for _, page := range runs.Pages {
		for _, h := range pdfscan.FindSectionHeaders(page.Runs) {
			result.Sections[page.Number] = append(result.Sections[page.Number], h.Text)
		}
	}

	if !hasForm {
		result.StaticScan = pdfscan.ScanStaticFields(runs)
	}
	if *showRuns {
		result.Pages = runs.Pages
	}
	return result, nil
}

func output(result *inspection) error {
	if *outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("Template: %s\n", result.Path)
	fmt.Printf("Interactive form: %t\n\n", result.HasAcroForm)

	if len(result.Widgets) > 0 {
		fmt.Printf("Form widgets (%d):\n", len(result.Widgets))
		for i, w := range result.Widgets {
			fmt.Printf("%d. %s (%s) page %d", i+1, w.Name, w.FieldType, w.Page)
			if w.Rect != nil {
				fmt.Printf(" rect [%.1f %.1f %.1f %.1f]", w.Rect[0], w.Rect[1], w.Rect[2], w.Rect[3])
			}
			if len(w.ExportOptions) > 0 {
				fmt.Printf(" options %v", w.ExportOptions)
			}
			fmt.Println()
		}
		fmt.Println()
	}

	for page, headers := range result.Sections {
		fmt.Printf("Sections on page %d:\n", page)
		for _, h := range headers {
			fmt.Printf("  %s\n", h)
		}
	}

	if len(result.StaticScan) > 0 {
		fmt.Printf("\nStatic-scan candidates (%d):\n", len(result.StaticScan))
		for i, f := range result.StaticScan {
			fmt.Printf("%d. %s (label %q) page %d\n", i+1, f.ID, f.Label, f.Page)
		}
	}

	if len(result.Pages) > 0 {
		fmt.Println("\nText runs:")
		for _, page := range result.Pages {
			fmt.Printf("Page %d (%.0fx%.0f):\n", page.Number, page.Width, page.Height)
			for _, run := range page.Runs {
				fmt.Printf("  (%.1f, %.1f) size %.1f %q\n", run.X, run.Y, run.FontSize, run.Text)
			}
		}
	}
	return nil
}

func printHelp() {
	fmt.Println("formweld-inspect - Dump template geometry as discovery sees it")
	fmt.Println()
	printUsage()
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -format        Output format: text (default), json")
	fmt.Println("  -runs          Also dump every positioned text run")
	fmt.Println("  -help          Show this help message")
}

func printUsage() {
	fmt.Println("USAGE:")
	fmt.Printf("  %s [options] <template.pdf>\n", os.Args[0])
}
