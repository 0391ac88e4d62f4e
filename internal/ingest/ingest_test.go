package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadRecordsCSV(t *testing.T) {
	path := writeFile(t, "people.csv",
		"first_name,email,city\nAda,ada@example.com,London\nGrace,grace@example.com,Arlington\n")

	records, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Ada", records[0]["first_name"])
	assert.Equal(t, "grace@example.com", records[1]["email"])
	assert.Equal(t, "Arlington", records[1]["city"])
}

func TestLoadRecordsJSONObject(t *testing.T) {
	path := writeFile(t, "one.json",
		`{"first_name": "Ada", "age": 36, "consent": true, "score": 1.5, "note": null}`)

	records, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "Ada", rec["first_name"])
	assert.Equal(t, "36", rec["age"])
	assert.Equal(t, "true", rec["consent"])
	assert.Equal(t, "1.5", rec["score"])
	assert.Equal(t, "", rec["note"])
}

func TestLoadRecordsJSONArray(t *testing.T) {
	path := writeFile(t, "many.json",
		`[{"first_name": "Ada"}, {"first_name": "Grace"}]`)

	records, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Grace", records[1]["first_name"])
}

func TestLoadRecordsUnsupportedFormat(t *testing.T) {
	path := writeFile(t, "data.xml", "<x/>")
	_, err := LoadRecords(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported payload format")
}

func TestNormalizeRenamesSynonyms(t *testing.T) {
	n := NewNormalizer(nil)

	out := n.Normalize(map[string]string{
		"DOB":     "1990-01-02",
		"E-Mail":  "a@b.c",
		"unknown": "kept",
	})

	assert.Equal(t, "1990-01-02", out["date_of_birth"])
	assert.Equal(t, "a@b.c", out["email_address"])
	assert.Equal(t, "kept", out["unknown"])
	assert.NotContains(t, out, "DOB")
}

func TestNormalizeNeverDropsValuesOnCollision(t *testing.T) {
	n := NewNormalizer(nil)

	// Both headers normalize to email_address; the loser keeps its
	// original key so no value is silently lost.
	out := n.Normalize(map[string]string{"email": "a@b.c", "e-mail": "d@e.f"})
	assert.Len(t, out, 2)
	assert.Contains(t, out, "email_address")
}

func TestNormalizeCollisionWinnerIsStable(t *testing.T) {
	n := NewNormalizer(nil)

	// Sorted header order decides collisions: "e-mail" < "email", so
	// e-mail's value lands on the canonical id every time and email
	// keeps its original key.
	for i := 0; i < 20; i++ {
		out := n.Normalize(map[string]string{"email": "a@b.c", "e-mail": "d@e.f"})
		assert.Equal(t, "d@e.f", out["email_address"])
		assert.Equal(t, "a@b.c", out["email"])
	}
}
