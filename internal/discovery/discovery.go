// Package discovery turns a PDF template into mapped field records,
// choosing between the interactive-form and static-scan strategies and
// caching results against the per-template mapping store.
package discovery

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/formweld/formweld/internal/field"
	"github.com/formweld/formweld/internal/mapping"
	"github.com/formweld/formweld/internal/pdfscan"
)

// Discovery orchestrates geometry extraction, section/label heuristics,
// and the mapping engine for one template at a time.
type Discovery struct {
	engine    *mapping.Engine
	extractor *pdfscan.AcroFormExtractor
}

// New creates a Discovery bound to a mapping engine.
func New(engine *mapping.Engine) *Discovery {
	return &Discovery{
		engine:    engine,
		extractor: pdfscan.NewAcroFormExtractor(),
	}
}

// AnalyzeTemplate produces the mapped field list for a template. When the
// stored mapping file is newer than the template and non-empty it is
// returned verbatim without rescanning. The check compares modification
// times only, not content: replacing a template without bumping its mtime
// serves a stale mapping. Discovery never returns unmapped fields; both
// strategies end in the mapping engine.
func (d *Discovery) AnalyzeTemplate(templatePath string) ([]field.MappingRecord, error) {
	info, err := os.Stat(templatePath)
	if err != nil {
		return nil, fmt.Errorf("template not readable: %w", err)
	}
	templateID := filepath.Base(templatePath)

	if cached, ok := d.cachedMappings(templateID, info.ModTime()); ok {
		return cached, nil
	}

	runs, runsErr := pdfscan.ExtractRuns(templatePath)
	if runsErr != nil {
		// Interactive documents can still be analyzed without positioned
		// text; only the heuristics lose signal.
		log.Printf("discovery: text extraction failed for %s: %v", templateID, runsErr)
		runs = &pdfscan.DocumentRuns{}
	}

	widgets, hasForm, err := d.extractor.ExtractWidgets(templatePath)
	if err != nil {
		if runsErr != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", templateID, err)
		}
		log.Printf("discovery: form extraction failed for %s, using static scan: %v", templateID, err)
		hasForm = false
	}

	var descriptors []field.RawFieldDescriptor
	if hasForm {
		descriptors = d.interactiveFields(widgets, runs)
	} else {
		descriptors = pdfscan.ScanStaticFields(runs)
	}

	return d.engine.MapTemplateFields(templateID, descriptors)
}

// cachedMappings returns the stored mapping when it is fresher than the
// template and contains at least one record.
func (d *Discovery) cachedMappings(templateID string, templateMod time.Time) ([]field.MappingRecord, bool) {
	store := d.engine.Store()
	mapMod, ok := store.ModTime(templateID)
	if !ok || mapMod.Before(templateMod) {
		return nil, false
	}
	saved, err := store.Load(templateID)
	if err != nil {
		log.Printf("discovery: unreadable cached mapping for %s, rescanning: %v", templateID, err)
		return nil, false
	}
	if saved == nil || len(saved.Mappings) == 0 {
		return nil, false
	}
	return saved.Mappings, true
}

// interactiveFields builds descriptors for every named widget of an
// interactive form, attaching section, label, and context.
func (d *Discovery) interactiveFields(
	widgets []pdfscan.Widget, runs *pdfscan.DocumentRuns,
) []field.RawFieldDescriptor {
	// Pre-compute section headers once per page.
	headersByPage := make(map[int][]pdfscan.SectionHeader)
	for _, page := range runs.Pages {
		headersByPage[page.Number] = pdfscan.FindSectionHeaders(page.Runs)
	}

	descriptors := make([]field.RawFieldDescriptor, 0, len(widgets))
	for _, w := range widgets {
		page := w.Page
		if page < 1 {
			page = 1
		}
		pageRuns := runs.Page(page)

		section := pdfscan.DefaultSection
		label := ""
		var rectPct []float64
		if w.Rect != nil {
			section = pdfscan.SectionForField(headersByPage[page], w.Rect.Top())
			label = pdfscan.FindNearbyLabel(*w.Rect, pageRuns.Runs)
			rectPct = w.Rect.Pct(w.PageWidth, w.PageHeight)
		}
		if label == "" {
			label = field.HeuristicLabel(w.Name)
		}

		context := fmt.Sprintf("Section: %s.", section)
		if label != "" && w.Rect != nil {
			context += fmt.Sprintf(" Visual Label: '%s'.", label)
		}
		context += fmt.Sprintf(" Page: %d", page)

		var pageDims []float64
		if w.PageWidth > 0 && w.PageHeight > 0 {
			pageDims = []float64{w.PageWidth, w.PageHeight}
		}

		descriptors = append(descriptors, field.RawFieldDescriptor{
			ID:            w.Name,
			Label:         label,
			Section:       section,
			Type:          w.FieldType,
			Page:          page,
			Rect:          w.Rect,
			RectPct:       rectPct,
			PageDims:      pageDims,
			ExportOptions: w.ExportOptions,
			Source:        field.SourceAcroForm,
			Context:       context,
			Placeholder:   w.Tooltip,
		})
	}
	return descriptors
}
