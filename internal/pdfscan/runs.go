// Package pdfscan extracts positioned text and interactive form geometry
// from PDF templates and applies the layout heuristics (section headers,
// nearby labels, static field detection) that feed field discovery.
package pdfscan

import (
	"fmt"
	"log"

	"github.com/ledongthuc/pdf"
)

// Default page dimensions (US Letter) used when a page exposes no MediaBox.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// TextRun is one positioned text fragment on a page. Coordinates are in
// page units with a bottom-left origin; X/Y anchor the run's baseline
// start.
type TextRun struct {
	Text     string
	X        float64
	Y        float64
	W        float64
	Font     string
	FontSize float64
}

// PageRuns holds the text runs and dimensions for a single page.
type PageRuns struct {
	Number int // 1-based
	Width  float64
	Height float64
	Runs   []TextRun
}

// DocumentRuns is the positioned-text view of a whole document.
type DocumentRuns struct {
	Pages []PageRuns
}

// ExtractRuns reads every page's positioned text runs. Opening failures
// are genuine errors; a page from which no runs can be decoded yields an
// empty run list, not an error.
func ExtractRuns(path string) (*DocumentRuns, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer f.Close()

	doc := &DocumentRuns{Pages: make([]PageRuns, 0, reader.NumPage())}
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		pr := PageRuns{Number: pageNum, Width: defaultPageWidth, Height: defaultPageHeight}
		if page.V.IsNull() {
			doc.Pages = append(doc.Pages, pr)
			continue
		}

		if w, h, ok := mediaBoxDims(page); ok {
			pr.Width, pr.Height = w, h
		}
		pr.Runs = pageRuns(page, pageNum)
		doc.Pages = append(doc.Pages, pr)
	}
	return doc, nil
}

// Page returns the runs for a 1-based page number, or an empty PageRuns
// if out of range.
func (d *DocumentRuns) Page(number int) PageRuns {
	if number < 1 || number > len(d.Pages) {
		return PageRuns{Number: number, Width: defaultPageWidth, Height: defaultPageHeight}
	}
	return d.Pages[number-1]
}

// pageRuns decodes one page's content. The underlying parser can panic on
// malformed content streams; that is treated as "no runs extracted" so a
// single bad page cannot fail the whole analysis.
func pageRuns(page pdf.Page, pageNum int) (runs []TextRun) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("pdfscan: content decode failed on page %d: %v", pageNum, r)
			runs = nil
		}
	}()

	content := page.Content()
	runs = make([]TextRun, 0, len(content.Text))
	for _, t := range content.Text {
		if t.S == "" {
			continue
		}
		runs = append(runs, TextRun{
			Text:     t.S,
			X:        t.X,
			Y:        t.Y,
			W:        t.W,
			Font:     t.Font,
			FontSize: t.FontSize,
		})
	}
	return runs
}

// mediaBoxDims reads the page MediaBox, walking up the page tree for
// inherited values.
func mediaBoxDims(page pdf.Page) (width, height float64, ok bool) {
	mb := page.V.Key("MediaBox")
	for node := page.V.Key("Parent"); mb.IsNull() && !node.IsNull(); node = node.Key("Parent") {
		mb = node.Key("MediaBox")
	}
	if mb.IsNull() || mb.Len() != 4 {
		return 0, 0, false
	}
	x1 := mb.Index(0).Float64()
	y1 := mb.Index(1).Float64()
	x2 := mb.Index(2).Float64()
	y2 := mb.Index(3).Float64()
	if x2 <= x1 || y2 <= y1 {
		return 0, 0, false
	}
	return x2 - x1, y2 - y1, true
}
