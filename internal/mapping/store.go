// Package mapping resolves discovered template fields against the
// canonical schema and owns the per-template mapping store, the human
// correction loop, and the append-only correction log.
package mapping

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/formweld/formweld/internal/field"
)

// TemplateMapping is the persisted mapping document for one template.
type TemplateMapping struct {
	TemplateID  string                `json:"template_id"`
	LastUpdated time.Time             `json:"last_updated"`
	Mappings    []field.MappingRecord `json:"mappings"`
}

// Store persists one mapping file per template under a single directory.
// Saves overwrite the whole file; the store is the only writer and reader
// of mapping records.
type Store struct {
	dir string
}

// NewStore creates a mapping store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create mappings directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the mapping file path for a template id. The id is
// sanitized so arbitrary template filenames cannot escape the store
// directory.
func (s *Store) Path(templateID string) string {
	return filepath.Join(s.dir, field.SanitizeID(templateID)+".mapping.json")
}

// Load reads a template's saved mapping. A missing file yields (nil, nil).
func (s *Store) Load(templateID string) (*TemplateMapping, error) {
	data, err := os.ReadFile(s.Path(templateID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}

	var tm TemplateMapping
	if err := json.Unmarshal(data, &tm); err != nil {
		return nil, fmt.Errorf("failed to parse mapping file for %s: %w", templateID, err)
	}
	return &tm, nil
}

// Save overwrites a template's mapping file with the given records.
func (s *Store) Save(templateID string, records []field.MappingRecord) error {
	tm := TemplateMapping{
		TemplateID:  templateID,
		LastUpdated: time.Now().UTC(),
		Mappings:    records,
	}
	data, err := json.MarshalIndent(tm, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}
	if err := os.WriteFile(s.Path(templateID), data, 0o600); err != nil {
		return fmt.Errorf("failed to write mapping file: %w", err)
	}
	return nil
}

// ModTime returns the mapping file's modification time, used by the
// discovery cache check. ok is false when no mapping file exists.
func (s *Store) ModTime(templateID string) (time.Time, bool) {
	info, err := os.Stat(s.Path(templateID))
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}
