package pdfscan

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/formweld/formweld/internal/field"
)

// Widget is one named interactive form field resolved to a page and
// rectangle via its widget annotation.
type Widget struct {
	Name          string
	FieldType     field.Type
	Rect          *field.Rect
	Page          int // 1-based, 0 if unresolved
	PageWidth     float64
	PageHeight    float64
	ExportOptions []string
	Tooltip       string
}

// AcroFormExtractor enumerates the named fields of a document's
// interactive form using pdfcpu.
type AcroFormExtractor struct{}

// NewAcroFormExtractor creates an AcroForm extractor.
func NewAcroFormExtractor() *AcroFormExtractor {
	return &AcroFormExtractor{}
}

// ExtractWidgets returns the document's named form widgets and whether an
// interactive-form root is present at all. A document with an AcroForm
// dictionary but no usable fields returns (nil, true, nil).
func (e *AcroFormExtractor) ExtractWidgets(path string) ([]Widget, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, false, fmt.Errorf("failed to ensure page count: %w", err)
	}

	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get catalog: %w", err)
	}

	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil, false, nil
	}
	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil || acroFormDict == nil {
		return nil, found, nil
	}

	fieldsObj, found := acroFormDict.Find("Fields")
	if !found {
		return nil, true, nil
	}
	fieldsArray, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, true, nil
	}

	pages := collectPages(ctx, rootDict)

	var widgets []Widget
	for i, fieldRef := range fieldsArray {
		w, err := e.processWidget(ctx, fieldRef, i, pages)
		if err != nil || w == nil {
			continue
		}
		widgets = append(widgets, *w)
	}
	return widgets, true, nil
}

// pageEntry records which annotation objects live on a page, plus its
// dimensions, for resolving widget page numbers.
type pageEntry struct {
	number int
	width  float64
	height float64
	annots map[int]bool // annotation object numbers
}

// collectPages walks the page tree in document order, tracking inherited
// MediaBox values.
func collectPages(ctx *model.Context, rootDict types.Dict) []pageEntry {
	pagesObj, found := rootDict.Find("Pages")
	if !found {
		return nil
	}
	pagesDict, err := ctx.DereferenceDict(pagesObj)
	if err != nil || pagesDict == nil {
		return nil
	}

	var pages []pageEntry
	walkPageTree(ctx, pagesDict, defaultPageWidth, defaultPageHeight, &pages)
	return pages
}

func walkPageTree(ctx *model.Context, node types.Dict, inhW, inhH float64, pages *[]pageEntry) {
	if w, h, ok := mediaBoxFromDict(ctx, node); ok {
		inhW, inhH = w, h
	}

	if typeObj, found := node.Find("Type"); found {
		if typeName, err := ctx.DereferenceName(typeObj, model.V10, nil); err == nil && typeName == "Page" {
			entry := pageEntry{
				number: len(*pages) + 1,
				width:  inhW,
				height: inhH,
				annots: make(map[int]bool),
			}
			if annotsObj, found := node.Find("Annots"); found {
				if annotsArray, err := ctx.DereferenceArray(annotsObj); err == nil {
					for _, a := range annotsArray {
						if ir, ok := a.(types.IndirectRef); ok {
							entry.annots[ir.ObjectNumber.Value()] = true
						}
					}
				}
			}
			*pages = append(*pages, entry)
			return
		}
	}

	kidsObj, found := node.Find("Kids")
	if !found {
		return
	}
	kidsArray, err := ctx.DereferenceArray(kidsObj)
	if err != nil {
		return
	}
	for _, kid := range kidsArray {
		kidDict, err := ctx.DereferenceDict(kid)
		if err != nil || kidDict == nil {
			continue
		}
		walkPageTree(ctx, kidDict, inhW, inhH, pages)
	}
}

func mediaBoxFromDict(ctx *model.Context, dict types.Dict) (float64, float64, bool) {
	mbObj, found := dict.Find("MediaBox")
	if !found {
		return 0, 0, false
	}
	mbArray, err := ctx.DereferenceArray(mbObj)
	if err != nil || len(mbArray) != 4 {
		return 0, 0, false
	}
	coords := make([]float64, 4)
	for i, c := range mbArray {
		if f, err := ctx.DereferenceNumber(c); err == nil {
			coords[i] = f
		}
	}
	w, h := coords[2]-coords[0], coords[3]-coords[1]
	if w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

// processWidget builds a Widget from one entry of the AcroForm Fields
// array, resolving geometry from the field's own annotation or its first
// positioned kid.
func (e *AcroFormExtractor) processWidget(
	ctx *model.Context, fieldObj types.Object, index int, pages []pageEntry,
) (*Widget, error) {
	fieldDict, err := ctx.DereferenceDict(fieldObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference field: %w", err)
	}
	if fieldDict == nil {
		return nil, nil
	}

	w := &Widget{FieldType: field.TypeText}

	if nameObj, found := fieldDict.Find("T"); found {
		if name, err := ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil {
			w.Name = name
		}
	}
	if w.Name == "" {
		w.Name = fmt.Sprintf("field_%d", index)
	}

	if e.fieldTypeName(ctx, fieldDict) == "Btn" {
		w.FieldType = field.TypeCheckbox
		w.ExportOptions = e.exportOptions(ctx, fieldDict)
	}

	if tuObj, found := fieldDict.Find("TU"); found {
		if tu, err := ctx.DereferenceStringOrHexLiteral(tuObj, model.V10, nil); err == nil {
			w.Tooltip = tu
		}
	}

	// Geometry: prefer the field's own merged annotation, else the first
	// kid widget that carries a rectangle.
	annotObjNr := objectNumber(fieldObj)
	rect := e.rectFromDict(ctx, fieldDict)
	if rect == nil {
		rect, annotObjNr = e.rectFromKids(ctx, fieldDict)
	}
	w.Rect = rect

	if entry, ok := pageForAnnotation(pages, annotObjNr); ok {
		w.Page = entry.number
		w.PageWidth = entry.width
		w.PageHeight = entry.height
	} else if len(pages) > 0 {
		// Unmatched annotations land on page 1 with its dimensions.
		w.Page = 1
		w.PageWidth = pages[0].width
		w.PageHeight = pages[0].height
	}

	return w, nil
}

// fieldTypeName resolves the FT entry, checking the parent chain for
// inherited types.
func (e *AcroFormExtractor) fieldTypeName(ctx *model.Context, fieldDict types.Dict) string {
	ftObj, found := fieldDict.Find("FT")
	if !found {
		if parentObj, found := fieldDict.Find("Parent"); found {
			if parentDict, err := ctx.DereferenceDict(parentObj); err == nil && parentDict != nil {
				return e.fieldTypeName(ctx, parentDict)
			}
		}
		return ""
	}
	ftName, err := ctx.DereferenceName(ftObj, model.V10, nil)
	if err != nil {
		return ""
	}
	return string(ftName)
}

// exportOptions collects a checkbox's non-off appearance state names, or
// its Opt list when no appearance dictionary is present. Discovery order
// is preserved with duplicates dropped, so the first option stays the
// fill on-state; names carry the conventional leading slash.
func (e *AcroFormExtractor) exportOptions(ctx *model.Context, fieldDict types.Dict) []string {
	var options []string
	seen := make(map[string]bool)

	for _, s := range e.appearanceStates(ctx, fieldDict) {
		options = appendOption(options, seen, s)
	}

	if kidsObj, found := fieldDict.Find("Kids"); found {
		if kidsArray, err := ctx.DereferenceArray(kidsObj); err == nil {
			for _, kid := range kidsArray {
				if kidDict, err := ctx.DereferenceDict(kid); err == nil && kidDict != nil {
					for _, s := range e.appearanceStates(ctx, kidDict) {
						options = appendOption(options, seen, s)
					}
				}
			}
		}
	}

	if len(options) == 0 {
		if optObj, found := fieldDict.Find("Opt"); found {
			if optArray, err := ctx.DereferenceArray(optObj); err == nil {
				for _, opt := range optArray {
					if s, err := ctx.DereferenceStringOrHexLiteral(opt, model.V10, nil); err == nil {
						options = appendOption(options, seen, s)
					}
				}
			}
		}
	}

	return options
}

// appearanceStates returns the non-off keys of a widget's /AP /N
// dictionary. Keys within one dictionary carry no document order, so
// they are sorted for stability.
func (e *AcroFormExtractor) appearanceStates(ctx *model.Context, dict types.Dict) []string {
	apObj, found := dict.Find("AP")
	if !found {
		return nil
	}
	apDict, err := ctx.DereferenceDict(apObj)
	if err != nil || apDict == nil {
		return nil
	}
	nObj, found := apDict.Find("N")
	if !found {
		return nil
	}
	nDict, err := ctx.DereferenceDict(nObj)
	if err != nil || nDict == nil {
		return nil
	}
	var states []string
	for key := range nDict {
		if key == "Off" {
			continue
		}
		states = append(states, key)
	}
	sort.Strings(states)
	return states
}

// appendOption adds a slash-normalized state name unless it was already
// collected, keeping discovery order.
func appendOption(options []string, seen map[string]bool, name string) []string {
	s := withSlash(name)
	if seen[s] {
		return options
	}
	seen[s] = true
	return append(options, s)
}

func (e *AcroFormExtractor) rectFromDict(ctx *model.Context, dict types.Dict) *field.Rect {
	rectObj, found := dict.Find("Rect")
	if !found {
		return nil
	}
	rectArray, err := ctx.DereferenceArray(rectObj)
	if err != nil || len(rectArray) != 4 {
		return nil
	}
	var rect field.Rect
	for i, c := range rectArray {
		if f, err := ctx.DereferenceNumber(c); err == nil {
			rect[i] = f
		}
	}
	return &rect
}

func (e *AcroFormExtractor) rectFromKids(ctx *model.Context, fieldDict types.Dict) (*field.Rect, int) {
	kidsObj, found := fieldDict.Find("Kids")
	if !found {
		return nil, 0
	}
	kidsArray, err := ctx.DereferenceArray(kidsObj)
	if err != nil {
		return nil, 0
	}
	for _, kid := range kidsArray {
		kidDict, err := ctx.DereferenceDict(kid)
		if err != nil || kidDict == nil {
			continue
		}
		if rect := e.rectFromDict(ctx, kidDict); rect != nil {
			return rect, objectNumber(kid)
		}
	}
	return nil, 0
}

func objectNumber(obj types.Object) int {
	if ir, ok := obj.(types.IndirectRef); ok {
		return ir.ObjectNumber.Value()
	}
	return 0
}

func pageForAnnotation(pages []pageEntry, objNr int) (pageEntry, bool) {
	if objNr == 0 {
		return pageEntry{}, false
	}
	for _, p := range pages {
		if p.annots[objNr] {
			return p, true
		}
	}
	return pageEntry{}, false
}

// withSlash normalizes a PDF name to its conventional slash-prefixed
// spelling, matching how export options are stored in mapping files.
func withSlash(name string) string {
	if strings.HasPrefix(name, "/") {
		return name
	}
	return "/" + name
}
