package pdfscan

import (
	"fmt"
	"strings"

	"github.com/formweld/formweld/internal/field"
)

// Write-zone geometry for flat documents: a synthetic text box placed to
// the right of a detected label.
const (
	staticZoneGap     = 5.0
	staticZoneWidth   = 150.0
	staticZoneHeight  = 15.0
	staticRightMargin = 20.0
)

// staticKeywords flag a run as a probable form label on flat documents.
var staticKeywords = []string{
	"Name", "Date", "Signature", "Account", "Address", "Phone", "Mobile", "Email",
	"SSN", "Title", "City", "State", "Zip", "Country", "Nationality", "Gender",
	"Sex", "Marital", "Income", "Occupation", "Employer", "Reference", "Beneficiary",
	"Relationship", "Tax", "ID", "Number", "No.", "Code", "Amount", "Value",
}

// ScanStaticFields infers fillable fields from a flat document's laid-out
// text. A run is a label candidate if it ends with a colon, contains a
// form keyword, or is all-caps and longer than three characters. Each
// candidate gets a synthetic write zone immediately to its right, bounded
// by the page width.
func ScanStaticFields(doc *DocumentRuns) []field.RawFieldDescriptor {
	var fields []field.RawFieldDescriptor

	for pageIdx, page := range doc.Pages {
		for _, run := range page.Runs {
			raw := strings.TrimSpace(run.Text)
			if len(raw) < 2 {
				continue
			}
			clean := strings.TrimSpace(strings.ReplaceAll(raw, ":", ""))

			if !isStaticLabel(raw, clean) {
				continue
			}

			targetX := run.X + runWidth(run) + staticZoneGap
			if targetX > page.Width-staticRightMargin {
				continue
			}

			rect := field.Rect{targetX, run.Y, targetX + staticZoneWidth, run.Y + staticZoneHeight}
			id := staticFieldID(clean, pageIdx, run.X)

			fields = append(fields, field.RawFieldDescriptor{
				ID:       id,
				Label:    clean,
				Section:  DefaultSection,
				Type:     field.TypeText,
				Page:     page.Number,
				Rect:     &rect,
				RectPct:  rect.Pct(page.Width, page.Height),
				PageDims: []float64{page.Width, page.Height},
				Source:   field.SourceStaticScan,
				Context:  fmt.Sprintf("Page %d. Label detected: '%s'", page.Number, clean),
			})
		}
	}
	return fields
}

func isStaticLabel(raw, clean string) bool {
	// Trailing colon is the strongest signal.
	if strings.HasSuffix(raw, ":") {
		return true
	}

	lower := strings.ToLower(clean)
	for _, kw := range staticKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}

	return isAllUpper(clean) && len(clean) > 3
}

// runWidth uses the run's measured width, falling back to a glyph-count
// estimate when the content stream carries none.
func runWidth(run TextRun) float64 {
	if run.W > 0 {
		return run.W
	}
	size := run.FontSize
	if size == 0 {
		size = 10
	}
	return float64(len(run.Text)) * size * 0.5
}

// staticFieldID derives a stable synthetic id from the cleaned label,
// page index, and horizontal position.
func staticFieldID(clean string, pageIdx int, x float64) string {
	id := fmt.Sprintf("static_%s_%d_%d", clean, pageIdx, int(x))
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}
