package fill

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formweld/formweld/internal/field"
	"github.com/formweld/formweld/internal/pdfscan"
)

// Integration coverage over real PDF fixtures. Drop form PDFs into
// testdata/ to exercise the full fill path; without fixtures the tests
// skip.

func fixturePDFs(t *testing.T) []string {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join("testdata", "*.pdf"))
	require.NoError(t, err)
	if len(paths) == 0 {
		t.Skip("no PDF fixtures in testdata/")
	}
	return paths
}

func recordsFromWidgets(widgets []pdfscan.Widget) ([]field.MappingRecord, map[string]string) {
	var records []field.MappingRecord
	payload := make(map[string]string)
	for _, w := range widgets {
		records = append(records, field.MappingRecord{
			RawFieldDescriptor: field.RawFieldDescriptor{
				Type:          w.FieldType,
				Source:        field.SourceAcroForm,
				Page:          w.Page,
				Rect:          w.Rect,
				ExportOptions: w.ExportOptions,
			},
			OriginalName: w.Name,
			Name:         w.Name,
		})
		if w.FieldType == field.TypeCheckbox {
			payload[w.Name] = "yes"
		} else {
			payload[w.Name] = "Sample"
		}
	}
	return records, payload
}

func TestFillIsRepeatableAcrossRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, path := range fixturePDFs(t) {
		t.Run(filepath.Base(path), func(t *testing.T) {
			widgets, hasForm, err := pdfscan.NewAcroFormExtractor().ExtractWidgets(path)
			require.NoError(t, err)
			if !hasForm || len(widgets) == 0 {
				t.Skipf("%s has no interactive form fields", filepath.Base(path))
			}

			records, payload := recordsFromWidgets(widgets)
			dir := t.TempDir()
			out1 := filepath.Join(dir, "run1.pdf")
			out2 := filepath.Join(dir, "run2.pdf")

			filler := NewFiller()
			res1, err := filler.Fill(path, out1, records, payload)
			require.NoError(t, err)
			res2, err := filler.Fill(path, out2, records, payload)
			require.NoError(t, err)

			// Two runs over the same records and payload fill the same
			// fields, differing only in output location.
			assert.Equal(t, res1.Native, res2.Native)
			assert.Equal(t, res1.Overlaid, res2.Overlaid)
			assert.Equal(t, res1.Skipped, res2.Skipped)

			for _, out := range []string{out1, out2} {
				info, err := os.Stat(out)
				require.NoError(t, err)
				assert.Greater(t, info.Size(), int64(0))
			}
		})
	}
}
