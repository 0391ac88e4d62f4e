package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formweld/formweld/internal/config"
	"github.com/formweld/formweld/internal/schema"
)

func newTestService(t *testing.T) (*config.Config, *Service) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Workspace = t.TempDir()
	require.NoError(t, cfg.EnsureLayout())

	svc, err := NewService(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return cfg, svc
}

func TestResolveTemplate(t *testing.T) {
	cfg, svc := newTestService(t)

	templatePath := filepath.Join(cfg.TemplatesDir(), "loan.pdf")
	require.NoError(t, os.WriteFile(templatePath, []byte("%PDF-1.4"), 0o600))

	// Bare names resolve against the templates directory.
	path, err := svc.resolveTemplate("loan.pdf")
	require.NoError(t, err)
	assert.Equal(t, templatePath, path)

	// Absolute paths pass through.
	path, err = svc.resolveTemplate(templatePath)
	require.NoError(t, err)
	assert.Equal(t, templatePath, path)

	_, err = svc.resolveTemplate("missing.pdf")
	require.Error(t, err)

	_, err = svc.resolveTemplate("")
	require.Error(t, err)
}

func TestResolveTemplateEnforcesSizeLimit(t *testing.T) {
	cfg, svc := newTestService(t)
	svc.cfg.MaxFileSize = 4

	templatePath := filepath.Join(cfg.TemplatesDir(), "big.pdf")
	require.NoError(t, os.WriteFile(templatePath, []byte("%PDF-1.4 too big"), 0o600))

	_, err := svc.resolveTemplate("big.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum file size")
}

func TestOutputPathLayout(t *testing.T) {
	cfg, svc := newTestService(t)

	path, err := svc.outputPath("Loan App.pdf", "0123456789abcdef")
	require.NoError(t, err)

	// filled/<date>/filled_<template>_<short run id>.pdf
	rel, err := filepath.Rel(cfg.FilledDir(), path)
	require.NoError(t, err)
	parts := strings.Split(rel, string(filepath.Separator))
	require.Len(t, parts, 2)

	assert.Equal(t, "filled_LoanApp_01234567.pdf", parts[1])

	// The dated folder exists after the call.
	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestMatchQueryUsesSchema(t *testing.T) {
	_, svc := newTestService(t)

	require.NoError(t, svc.Schema().AddField(schema.CanonicalField{
		FieldID:       "email_address",
		CanonicalName: "email_address",
		Description:   "Primary contact email",
		Synonyms:      []string{"email"},
		DataType:      "text",
		Section:       "Contact",
	}))
	// The searcher indexed the schema at construction time; the synonym
	// fast path still answers for the new field.
	candidates := svc.MatchQuery("Field Label: email. Context: x. Section: y. Placeholder: ", 5)
	require.NotEmpty(t, candidates)
	assert.Equal(t, "email_address", candidates[0].FieldID)
}

func TestUpdateMappingWithoutAnalysisFails(t *testing.T) {
	_, svc := newTestService(t)

	err := svc.UpdateMapping("never.pdf", "f1", "email_address", "", "")
	require.Error(t, err)
}
