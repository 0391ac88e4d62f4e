package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formweld/formweld/internal/field"
)

func TestRecordWritesHistoryAndSnapshot(t *testing.T) {
	rec, err := NewRecorder(t.TempDir())
	require.NoError(t, err)

	records := []field.MappingRecord{
		{RawFieldDescriptor: field.RawFieldDescriptor{ID: "f1"}, OriginalName: "f1", Name: "email_address"},
	}
	payload := map[string]string{
		"email_address": "secret@example.com",
		"first_name":    "Ada",
	}

	entry, err := rec.Record(RunEntry{
		RunID:      "run-1",
		TemplateID: "form.pdf",
		OutputPath: "/out/filled.pdf",
		Native:     1,
	}, records, payload)
	require.NoError(t, err)

	assert.Equal(t, []string{"email_address", "first_name"}, entry.PayloadKeys)
	assert.Equal(t, 1, entry.FieldsTotal)
	assert.NotEmpty(t, entry.Snapshot)
	assert.False(t, entry.Timestamp.IsZero())

	// One history line, parseable back into the entry.
	data, err := os.ReadFile(rec.HistoryPath())
	require.NoError(t, err)
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	var lines []RunEntry
	for scanner.Scan() {
		var e RunEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		lines = append(lines, e)
	}
	require.Len(t, lines, 1)
	assert.Equal(t, "run-1", lines[0].RunID)
	assert.Equal(t, "form.pdf", lines[0].TemplateID)

	// Snapshot exists and carries the mapping state.
	snap, err := os.ReadFile(entry.Snapshot)
	require.NoError(t, err)
	assert.Contains(t, string(snap), "email_address")
}

func TestRecordNeverPersistsPayloadValues(t *testing.T) {
	rec, err := NewRecorder(t.TempDir())
	require.NoError(t, err)

	payload := map[string]string{"national_id": "S1234567D"}
	entry, err := rec.Record(RunEntry{RunID: "run-2", TemplateID: "kyc.pdf"}, nil, payload)
	require.NoError(t, err)

	history, err := os.ReadFile(rec.HistoryPath())
	require.NoError(t, err)
	snap, err := os.ReadFile(entry.Snapshot)
	require.NoError(t, err)

	assert.NotContains(t, string(history), "S1234567D")
	assert.NotContains(t, string(snap), "S1234567D")
	assert.Contains(t, string(snap), "national_id")
}

func TestHistoryIsAppendOnly(t *testing.T) {
	rec, err := NewRecorder(t.TempDir())
	require.NoError(t, err)

	for _, id := range []string{"a", "b", "c"} {
		_, err := rec.Record(RunEntry{RunID: id, TemplateID: "t.pdf"}, nil, nil)
		require.NoError(t, err)
	}

	data, err := os.ReadFile(rec.HistoryPath())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"run_id":"a"`)
	assert.Contains(t, lines[2], `"run_id":"c"`)
}
