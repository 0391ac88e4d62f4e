// Package pipeline wires the discovery, mapping, fill, and audit layers
// into one service consumed by the MCP server and the CLI tools. All
// collaborators are injected explicitly; the service owns no globals.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/formweld/formweld/internal/audit"
	"github.com/formweld/formweld/internal/config"
	"github.com/formweld/formweld/internal/discovery"
	"github.com/formweld/formweld/internal/field"
	"github.com/formweld/formweld/internal/fill"
	"github.com/formweld/formweld/internal/ingest"
	"github.com/formweld/formweld/internal/mapping"
	"github.com/formweld/formweld/internal/match"
	"github.com/formweld/formweld/internal/schema"
)

// Service is the application core: template analysis, form filling, and
// mapping review against one workspace.
type Service struct {
	cfg        *config.Config
	schema     *schema.Service
	searcher   *match.Searcher
	engine     *mapping.Engine
	discovery  *discovery.Discovery
	filler     *fill.Filler
	recorder   *audit.Recorder
	normalizer *ingest.Normalizer
}

// FillOutcome reports one completed fill run.
type FillOutcome struct {
	RunID      string                `json:"run_id"`
	OutputPath string                `json:"output_path"`
	Native     int                   `json:"fields_filled"`
	Overlaid   int                   `json:"fields_overlaid"`
	Skipped    int                   `json:"fields_skipped"`
	Records    []field.MappingRecord `json:"mappings"`
}

// NewService builds the full pipeline for a validated configuration.
func NewService(cfg *config.Config) (*Service, error) {
	schemaSvc, err := schema.NewService(cfg.SchemaPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load canonical schema: %w", err)
	}

	searcher := match.NewSearcher(schemaSvc)

	store, err := mapping.NewStore(cfg.MappingsDir())
	if err != nil {
		return nil, err
	}
	corrections := mapping.NewCorrectionLog(cfg.CorrectionsPath())
	engine := mapping.NewEngine(store, searcher, corrections)

	recorder, err := audit.NewRecorder(cfg.MetadataDir())
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:        cfg,
		schema:     schemaSvc,
		searcher:   searcher,
		engine:     engine,
		discovery:  discovery.New(engine),
		filler:     fill.NewFiller(),
		recorder:   recorder,
		normalizer: ingest.NewNormalizer(searcher),
	}, nil
}

// AnalyzeTemplate discovers and maps every field of a template. The name
// may be a bare filename resolved against the workspace templates
// directory, or an absolute path.
func (s *Service) AnalyzeTemplate(name string) ([]field.MappingRecord, error) {
	path, err := s.resolveTemplate(name)
	if err != nil {
		return nil, err
	}
	return s.discovery.AnalyzeTemplate(path)
}

// Fill analyzes the template, writes the payload into a fresh output
// file under a dated folder, and records the run. Payload keys are
// normalized toward canonical field names before dispatch.
func (s *Service) Fill(name string, payload map[string]string) (*FillOutcome, error) {
	path, err := s.resolveTemplate(name)
	if err != nil {
		return nil, err
	}
	templateID := filepath.Base(path)

	records, err := s.discovery.AnalyzeTemplate(path)
	if err != nil {
		return nil, err
	}

	normalized := s.normalizer.Normalize(payload)

	runID := uuid.NewString()
	outPath, err := s.outputPath(templateID, runID)
	if err != nil {
		return nil, err
	}

	result, err := s.filler.Fill(path, outPath, records, normalized)
	if err != nil {
		return nil, err
	}

	entry := audit.RunEntry{
		RunID:      runID,
		TemplateID: templateID,
		OutputPath: outPath,
		Native:     result.Native,
		Overlaid:   result.Overlaid,
		Skipped:    result.Skipped,
	}
	if _, err := s.recorder.Record(entry, records, normalized); err != nil {
		// The filled document exists; a failed audit write must not
		// invalidate the run.
		fmt.Fprintf(os.Stderr, "pipeline: failed to record run %s: %v\n", runID, err)
	}

	return &FillOutcome{
		RunID:      runID,
		OutputPath: outPath,
		Native:     result.Native,
		Overlaid:   result.Overlaid,
		Skipped:    result.Skipped,
		Records:    records,
	}, nil
}

// FillBatch runs one fill per record of a CSV or JSON payload file. A
// failing record aborts the batch; completed outputs are kept.
func (s *Service) FillBatch(name, payloadPath string) ([]*FillOutcome, error) {
	records, err := ingest.LoadRecords(payloadPath)
	if err != nil {
		return nil, err
	}

	outcomes := make([]*FillOutcome, 0, len(records))
	for i, rec := range records {
		outcome, err := s.Fill(name, rec)
		if err != nil {
			return outcomes, fmt.Errorf("record %d: %w", i+1, err)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// UpdateMapping applies a human mapping decision to one template field.
func (s *Service) UpdateMapping(templateID, fieldID, canonicalID string, status field.Status, user string) error {
	return s.engine.UpdateMapping(templateID, fieldID, canonicalID, status, user)
}

// Schema exposes the canonical field service for schema tooling.
func (s *Service) Schema() *schema.Service {
	return s.schema
}

// MatchQuery answers one ad hoc similarity query against the canonical
// schema.
func (s *Service) MatchQuery(query string, topK int) []match.Candidate {
	results := s.searcher.Search([]string{query}, topK)
	if len(results) != 1 {
		return nil
	}
	return results[0]
}

// Close releases pipeline resources.
func (s *Service) Close() error {
	return s.searcher.Close()
}

// resolveTemplate turns a template name into a validated absolute path
// inside the size limit.
func (s *Service) resolveTemplate(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("template name cannot be empty")
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.cfg.TemplatesDir(), filepath.Base(name))
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("template not found: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("template %s is a directory", path)
	}
	if info.Size() > s.cfg.MaxFileSize {
		return "", fmt.Errorf("template %s exceeds maximum file size (%d > %d bytes)",
			path, info.Size(), s.cfg.MaxFileSize)
	}
	return path, nil
}

// outputPath builds the dated output location for one run, creating the
// day folder as needed.
func (s *Service) outputPath(templateID, runID string) (string, error) {
	day := time.Now().UTC().Format("2006-01-02")
	dir := filepath.Join(s.cfg.FilledDir(), day)
	if err := os.MkdirAll(dir, config.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	base := field.SanitizeID(templateID)
	if ext := filepath.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	return filepath.Join(dir, fmt.Sprintf("filled_%s_%s.pdf", base, short)), nil
}
