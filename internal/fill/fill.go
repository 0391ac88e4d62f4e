// Package fill writes payload values into a PDF template, natively for
// interactive form fields and as a positioned text overlay for fields
// discovered by static scanning.
package fill

import (
	"fmt"
	"log"
	"strings"

	"github.com/formweld/formweld/internal/field"
)

// truthyValues are the payload spellings that check a checkbox. Anything
// else leaves the box in its existing state; filling never unchecks.
var truthyValues = map[string]bool{
	"true": true,
	"yes":  true,
	"1":    true,
	"on":   true,
}

// Result summarizes one fill pass over a template.
type Result struct {
	OutputPath string
	Native     int
	Overlaid   int
	Skipped    int
}

// Filler dispatches mapped fields with payload values to the native and
// overlay writers.
type Filler struct{}

// NewFiller creates a Filler.
func NewFiller() *Filler {
	return &Filler{}
}

// Fill writes the payload into templatePath and saves the result at
// outputPath. Records whose resolved name has no payload value are
// skipped. Every native value is written in one pass over the document;
// overlays are stamped afterwards so they land on the written file.
func (f *Filler) Fill(
	templatePath, outputPath string,
	records []field.MappingRecord,
	payload map[string]string,
) (*Result, error) {
	res := &Result{OutputPath: outputPath}

	native, overlays, skipped := partition(records, payload)
	res.Skipped = skipped

	if err := writeNativeValues(templatePath, outputPath, native); err != nil {
		return nil, fmt.Errorf("failed to fill form fields: %w", err)
	}
	res.Native = len(native)

	if len(overlays) > 0 {
		if err := stampOverlays(outputPath, overlays); err != nil {
			return nil, fmt.Errorf("failed to overlay static fields: %w", err)
		}
		res.Overlaid = len(overlays)
	}

	return res, nil
}

// partition splits mapped fields into native form writes and overlay
// stamps. Fields without payload values, checkboxes with falsy values,
// and static fields without geometry are counted as skipped.
func partition(
	records []field.MappingRecord, payload map[string]string,
) (native []nativeValue, overlays []overlayValue, skipped int) {
	for _, rec := range records {
		value, ok := lookupValue(rec, payload)
		if !ok {
			skipped++
			continue
		}

		switch rec.Source {
		case field.SourceAcroForm:
			if rec.Type == field.TypeCheckbox && !truthyValues[strings.ToLower(strings.TrimSpace(value))] {
				// Unchecked boxes keep whatever state the template ships.
				skipped++
				continue
			}
			native = append(native, nativeValue{
				name:          rec.OriginalName,
				value:         value,
				checkbox:      rec.Type == field.TypeCheckbox,
				exportOptions: rec.ExportOptions,
			})

		case field.SourceStaticScan:
			if rec.Rect == nil {
				log.Printf("fill: no geometry for static field %s, skipping", rec.OriginalName)
				skipped++
				continue
			}
			overlays = append(overlays, overlayValue{
				page:  rec.Page,
				rect:  *rec.Rect,
				value: value,
			})

		default:
			skipped++
		}
	}
	return native, overlays, skipped
}

// lookupValue resolves a record's payload value by canonical name first,
// then by the template's original field name. Empty and whitespace-only
// values count as absent.
func lookupValue(rec field.MappingRecord, payload map[string]string) (string, bool) {
	if v, ok := payload[rec.Name]; ok && strings.TrimSpace(v) != "" {
		return v, true
	}
	if v, ok := payload[rec.OriginalName]; ok && strings.TrimSpace(v) != "" {
		return v, true
	}
	return "", false
}

// checkboxOnState picks the appearance-state name that checks a box:
// the first discovered non-off export option, or /Yes when the template
// declared none. The leading slash is a storage convention, not part of
// the PDF name.
func checkboxOnState(exportOptions []string) string {
	state := "/Yes"
	if len(exportOptions) > 0 {
		state = exportOptions[0]
	}
	return strings.TrimPrefix(state, "/")
}
