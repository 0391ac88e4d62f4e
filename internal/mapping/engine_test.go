package mapping

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formweld/formweld/internal/field"
	"github.com/formweld/formweld/internal/match"
)

// stubSearcher answers every query with a fixed candidate list.
type stubSearcher struct {
	candidates []match.Candidate
}

func (s *stubSearcher) Search(queries []string, topK int) [][]match.Candidate {
	results := make([][]match.Candidate, len(queries))
	for i := range queries {
		results[i] = s.candidates
	}
	return results
}

func candidate(id string, distance float64) match.Candidate {
	return match.Candidate{
		FieldID:  id,
		Distance: distance,
		Metadata: match.CandidateMetadata{FieldID: id, CanonicalName: id, DataType: "text"},
	}
}

func newTestEngine(t *testing.T, searcher Searcher) *Engine {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "mappings"))
	require.NoError(t, err)
	log := NewCorrectionLog(filepath.Join(dir, "corrections.jsonl"))
	return NewEngine(store, searcher, log)
}

func descriptor(id, label string) field.RawFieldDescriptor {
	return field.RawFieldDescriptor{
		ID:      id,
		Label:   label,
		Section: "General",
		Type:    field.TypeText,
		Page:    1,
		Source:  field.SourceAcroForm,
		Context: "Section: General. Page: 1",
	}
}

func TestConfidenceTiers(t *testing.T) {
	tests := []struct {
		name       string
		distance   float64
		wantStatus field.Status
		wantConf   field.Confidence
		wantSource field.MappingSource
		wantName   string
	}{
		{"strong match", 0.20, field.StatusAuto, field.ConfidenceHigh, field.SourceEmbeddingStrong, "email_address"},
		{"just under strong boundary", 0.399, field.StatusAuto, field.ConfidenceHigh, field.SourceEmbeddingStrong, "email_address"},
		{"exactly strong boundary", 0.40, field.StatusPendingReview, field.ConfidenceMedium, field.SourceEmbeddingWeak, "email_address"},
		{"medium match", 0.60, field.StatusPendingReview, field.ConfidenceMedium, field.SourceEmbeddingWeak, "email_address"},
		{"exactly weak boundary", 0.75, field.StatusSuggestNew, field.ConfidenceLow, field.SourceUnmapped, "f1"},
		{"no real match", 0.90, field.StatusSuggestNew, field.ConfidenceLow, field.SourceUnmapped, "f1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t, &stubSearcher{candidates: []match.Candidate{
				candidate("email_address", tt.distance),
			}})

			records, err := engine.MapTemplateFields("form.pdf", []field.RawFieldDescriptor{
				descriptor("f1", "Email"),
			})
			require.NoError(t, err)
			require.Len(t, records, 1)

			rec := records[0]
			assert.Equal(t, tt.wantStatus, rec.MappingStatus)
			assert.Equal(t, tt.wantConf, rec.Confidence)
			assert.Equal(t, tt.wantSource, rec.MappingSource)
			assert.Equal(t, tt.wantName, rec.Name)
		})
	}
}

func TestNoCandidatesSuggestsNew(t *testing.T) {
	engine := newTestEngine(t, &stubSearcher{})

	records, err := engine.MapTemplateFields("form.pdf", []field.RawFieldDescriptor{
		descriptor("custom_field_7", "Branch Stamp"),
	})
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, field.StatusSuggestNew, rec.MappingStatus)
	assert.Equal(t, "custom_field_7", rec.Name)
	require.NotNil(t, rec.Proposal)
	assert.Equal(t, "branch_stamp", rec.Proposal.SuggestedNewFieldName)
}

func TestNilSearcherDegrades(t *testing.T) {
	engine := newTestEngine(t, nil)

	records, err := engine.MapTemplateFields("form.pdf", []field.RawFieldDescriptor{
		descriptor("f1", "Email"),
	})
	require.NoError(t, err)
	assert.Equal(t, field.StatusSuggestNew, records[0].MappingStatus)
}

func TestAmbiguityNote(t *testing.T) {
	engine := newTestEngine(t, &stubSearcher{candidates: []match.Candidate{
		candidate("mobile_number", 0.50),
		candidate("home_phone", 0.52),
	}})

	records, err := engine.MapTemplateFields("form.pdf", []field.RawFieldDescriptor{
		descriptor("f1", "Phone"),
	})
	require.NoError(t, err)

	rec := records[0]
	require.NotNil(t, rec.Proposal)
	assert.Contains(t, rec.Proposal.Explanation, "Ambiguous")
	assert.Contains(t, rec.Proposal.Explanation, "home_phone")
	assert.Equal(t, []string{"mobile_number", "home_phone"}, rec.Proposal.Candidates)
}

func TestMappingIsPersisted(t *testing.T) {
	engine := newTestEngine(t, &stubSearcher{candidates: []match.Candidate{
		candidate("email_address", 0.1),
	}})

	_, err := engine.MapTemplateFields("form.pdf", []field.RawFieldDescriptor{
		descriptor("f1", "Email"),
	})
	require.NoError(t, err)

	saved, err := engine.Store().Load("form.pdf")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "form.pdf", saved.TemplateID)
	require.Len(t, saved.Mappings, 1)
	assert.Equal(t, "email_address", saved.Mappings[0].Name)
}

func TestApprovedMappingsSurviveReanalysis(t *testing.T) {
	engine := newTestEngine(t, &stubSearcher{candidates: []match.Candidate{
		candidate("email_address", 0.1),
	}})

	_, err := engine.MapTemplateFields("form.pdf", []field.RawFieldDescriptor{
		descriptor("f1", "Email"),
	})
	require.NoError(t, err)

	// Human overrides the automatic decision.
	require.NoError(t, engine.UpdateMapping("form.pdf", "f1", "work_email", field.StatusManualOverride, "reviewer"))

	// Re-analysis would map f1 to email_address again; the override wins.
	records, err := engine.MapTemplateFields("form.pdf", []field.RawFieldDescriptor{
		descriptor("f1", "Email"),
	})
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "work_email", rec.Name)
	assert.Equal(t, field.StatusManualOverride, rec.MappingStatus)
	assert.Equal(t, "reviewer", rec.ReviewedBy)
	assert.Equal(t, field.ConfidenceHigh, rec.Confidence)
}

func TestUpdateMappingLogsCorrectionOnce(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "mappings"))
	require.NoError(t, err)
	corrections := NewCorrectionLog(filepath.Join(dir, "corrections.jsonl"))
	engine := NewEngine(store, &stubSearcher{candidates: []match.Candidate{
		candidate("email_address", 0.1),
	}}, corrections)

	_, err = engine.MapTemplateFields("form.pdf", []field.RawFieldDescriptor{
		descriptor("f1", "Email"),
	})
	require.NoError(t, err)

	require.NoError(t, engine.UpdateMapping("form.pdf", "f1", "work_email", field.StatusManualOverride, "reviewer"))

	entries, err := corrections.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "form.pdf", entries[0].Template)
	assert.Equal(t, "f1", entries[0].FieldID)
	assert.Equal(t, "email_address", entries[0].AIGuess)
	assert.Equal(t, "work_email", entries[0].HumanCorrection)

	// Confirming the proposal is not a correction.
	require.NoError(t, engine.UpdateMapping("form.pdf", "f1", "work_email", field.StatusApproved, "reviewer"))
	entries, err = corrections.Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestUpdateMappingUnknownField(t *testing.T) {
	engine := newTestEngine(t, &stubSearcher{})

	_, err := engine.MapTemplateFields("form.pdf", []field.RawFieldDescriptor{
		descriptor("f1", "Email"),
	})
	require.NoError(t, err)

	err = engine.UpdateMapping("form.pdf", "missing", "email_address", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestUpdateMappingNoMappingFile(t *testing.T) {
	engine := newTestEngine(t, &stubSearcher{})
	err := engine.UpdateMapping("never_analyzed.pdf", "f1", "email_address", "", "")
	require.Error(t, err)
}

func TestStoreSanitizesTemplateID(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	path := store.Path("../../evil.pdf")
	assert.Equal(t, dir, filepath.Dir(path))
	assert.False(t, strings.Contains(filepath.Base(path), ".."))
}

func TestStoreLoadMissing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	tm, err := store.Load("nope.pdf")
	require.NoError(t, err)
	assert.Nil(t, tm)
}

func TestCorrectionLogRoundTrip(t *testing.T) {
	log := NewCorrectionLog(filepath.Join(t.TempDir(), "c.jsonl"))

	// Missing file reads as empty.
	entries, err := log.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, log.Append(CorrectionEntry{
		Template: "a.pdf", FieldID: "f1", AIGuess: "x", HumanCorrection: "y",
	}))
	require.NoError(t, log.Append(CorrectionEntry{
		Template: "a.pdf", FieldID: "f2", AIGuess: "p", HumanCorrection: "q",
	}))

	entries, err = log.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "f1", entries[0].FieldID)
	assert.Equal(t, "f2", entries[1].FieldID)
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestModTimeMissing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, ok := store.ModTime("nope.pdf")
	assert.False(t, ok)

	require.NoError(t, store.Save("yes.pdf", nil))
	mod, ok := store.ModTime("yes.pdf")
	assert.True(t, ok)
	assert.False(t, mod.IsZero())
	_ = os.Remove(store.Path("yes.pdf"))
}
