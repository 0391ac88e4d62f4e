package discovery

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formweld/formweld/internal/field"
	"github.com/formweld/formweld/internal/mapping"
	"github.com/formweld/formweld/internal/pdfscan"
)

func newTestDiscovery(t *testing.T) (*Discovery, *mapping.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := mapping.NewStore(filepath.Join(dir, "mappings"))
	require.NoError(t, err)
	corrections := mapping.NewCorrectionLog(filepath.Join(dir, "corrections.jsonl"))
	engine := mapping.NewEngine(store, nil, corrections)
	return New(engine), store
}

func TestCachedMappingsFreshMappingWins(t *testing.T) {
	d, store := newTestDiscovery(t)

	saved := []field.MappingRecord{{
		RawFieldDescriptor: field.RawFieldDescriptor{ID: "f1"},
		OriginalName:       "f1",
		Name:               "email_address",
		MappingStatus:      field.StatusAuto,
	}}
	require.NoError(t, store.Save("form.pdf", saved))

	// Template predates the mapping file.
	templateMod := time.Now().Add(-time.Hour)

	records, ok := d.cachedMappings("form.pdf", templateMod)
	require.True(t, ok)
	require.Len(t, records, 1)
	assert.Equal(t, "email_address", records[0].Name)
}

func TestCachedMappingsStaleMappingRescans(t *testing.T) {
	d, store := newTestDiscovery(t)

	require.NoError(t, store.Save("form.pdf", []field.MappingRecord{{OriginalName: "f1"}}))

	// Template was replaced after the mapping was written.
	templateMod := time.Now().Add(time.Hour)

	_, ok := d.cachedMappings("form.pdf", templateMod)
	assert.False(t, ok)
}

func TestCachedMappingsEmptyMappingRescans(t *testing.T) {
	d, store := newTestDiscovery(t)

	require.NoError(t, store.Save("form.pdf", nil))

	_, ok := d.cachedMappings("form.pdf", time.Now().Add(-time.Hour))
	assert.False(t, ok)
}

func TestCachedMappingsNoMappingFile(t *testing.T) {
	d, _ := newTestDiscovery(t)

	_, ok := d.cachedMappings("form.pdf", time.Now())
	assert.False(t, ok)
}

func TestAnalyzeTemplateMissingFile(t *testing.T) {
	d, _ := newTestDiscovery(t)

	_, err := d.AnalyzeTemplate(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not readable")
}

func TestInteractiveFields(t *testing.T) {
	d, _ := newTestDiscovery(t)

	rect := field.Rect{100, 500, 300, 520}
	boxRect := field.Rect{100, 400, 115, 415}
	widgets := []pdfscan.Widget{
		{
			Name:       "txt_full_name",
			FieldType:  field.TypeText,
			Rect:       &rect,
			Page:       1,
			PageWidth:  612,
			PageHeight: 792,
			Tooltip:    "Enter your full legal name",
		},
		{
			Name:          "chk_consent",
			FieldType:     field.TypeCheckbox,
			Rect:          &boxRect,
			Page:          1,
			PageWidth:     612,
			PageHeight:    792,
			ExportOptions: []string{"/Yes"},
		},
		{
			// Widget with no geometry at all.
			Name:      "hidden_field",
			FieldType: field.TypeText,
		},
	}
	runs := &pdfscan.DocumentRuns{Pages: []pdfscan.PageRuns{{
		Number: 1,
		Width:  612,
		Height: 792,
		Runs: []pdfscan.TextRun{
			{Text: "PERSONAL DETAILS", X: 50, Y: 700, FontSize: 14},
			{Text: "Full Name", X: 102, Y: 530},
			{Text: "I consent to processing", X: 20, Y: 405},
		},
	}}}

	descriptors := d.interactiveFields(widgets, runs)
	require.Len(t, descriptors, 3)

	name := descriptors[0]
	assert.Equal(t, "txt_full_name", name.ID)
	assert.Equal(t, "Full Name", name.Label)
	assert.Equal(t, "PERSONAL DETAILS", name.Section)
	assert.Equal(t, field.SourceAcroForm, name.Source)
	assert.Equal(t, "Enter your full legal name", name.Placeholder)
	assert.Contains(t, name.Context, "Visual Label: 'Full Name'")
	assert.Contains(t, name.Context, "Page: 1")
	assert.Equal(t, []float64{612, 792}, name.PageDims)
	require.Len(t, name.RectPct, 4)

	consent := descriptors[1]
	assert.Equal(t, "I consent to processing", consent.Label)
	assert.Equal(t, field.TypeCheckbox, consent.Type)
	assert.Equal(t, []string{"/Yes"}, consent.ExportOptions)

	// No rect: heuristic label from the field name, default section.
	hidden := descriptors[2]
	assert.Equal(t, "Hidden Field", hidden.Label)
	assert.Equal(t, pdfscan.DefaultSection, hidden.Section)
	assert.Nil(t, hidden.Rect)
	assert.Equal(t, 1, hidden.Page)
}

func TestAnalyzeTemplateServesFreshCacheWithoutParsing(t *testing.T) {
	d, store := newTestDiscovery(t)

	// A text file standing in for the template: if the cache is honored
	// the content is never parsed as PDF.
	dir := t.TempDir()
	templatePath := filepath.Join(dir, "form.pdf")
	require.NoError(t, os.WriteFile(templatePath, []byte("not a pdf"), 0o600))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(templatePath, old, old))

	saved := []field.MappingRecord{{
		RawFieldDescriptor: field.RawFieldDescriptor{ID: "f1"},
		OriginalName:       "f1",
		Name:               "email_address",
	}}
	require.NoError(t, store.Save("form.pdf", saved))

	records, err := d.AnalyzeTemplate(templatePath)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "email_address", records[0].Name)
}
