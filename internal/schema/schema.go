// Package schema manages the canonical banking field schema that all
// discovered template fields are mapped onto.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// CanonicalField is one entry in the fixed target schema. FieldID is
// globally unique across the schema.
type CanonicalField struct {
	FieldID             string   `json:"field_id"`
	CanonicalName       string   `json:"canonical_name"`
	DisplayLabel        string   `json:"display_label,omitempty"`
	Description         string   `json:"description,omitempty"`
	Synonyms            []string `json:"synonyms,omitempty"`
	DataType            string   `json:"data_type"`
	Section             string   `json:"section"`
	RequiredFlag        bool     `json:"required_flag"`
	PIISensitivityLevel string   `json:"pii_sensitivity_level,omitempty"`
	PolicyTags          []string `json:"policy_tags,omitempty"`
	ValidationRegex     string   `json:"validation_regex,omitempty"`
	AllowedValues       []string `json:"allowed_values,omitempty"`
	ExampleValues       []string `json:"example_values,omitempty"`
}

// EmbeddingString builds the rich text representation indexed for
// similarity search. Synonyms and the description carry most of the
// semantic weight.
func (f CanonicalField) EmbeddingString() string {
	label := f.DisplayLabel
	if label == "" {
		label = f.CanonicalName
	}
	return fmt.Sprintf("%s: %s. Synonyms: %s. Section: %s.",
		label, f.Description, strings.Join(f.Synonyms, ", "), f.Section)
}

// Service is a file-backed store of canonical fields. The schema file is
// a JSON array; the whole file is rewritten on mutation.
type Service struct {
	mu     sync.RWMutex
	path   string
	fields map[string]CanonicalField
}

// NewService loads the schema from path. A missing file yields an empty
// schema rather than an error so a fresh workspace starts clean.
func NewService(path string) (*Service, error) {
	s := &Service{
		path:   path,
		fields: make(map[string]CanonicalField),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	var fields []CanonicalField
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("failed to parse schema file %s: %w", s.path, err)
	}
	for _, f := range fields {
		s.fields[f.FieldID] = f
	}
	return nil
}

func (s *Service) save() error {
	fields := s.sortedLocked()
	data, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create schema directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write schema file: %w", err)
	}
	return nil
}

func (s *Service) sortedLocked() []CanonicalField {
	fields := make([]CanonicalField, 0, len(s.fields))
	for _, f := range s.fields {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].FieldID < fields[j].FieldID
	})
	return fields
}

// GetAllFields returns every canonical field, ordered by field id.
func (s *Service) GetAllFields() []CanonicalField {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked()
}

// GetField returns a single field by id.
func (s *Service) GetField(fieldID string) (CanonicalField, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.fields[fieldID]
	return f, ok
}

// Count returns the number of canonical fields.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.fields)
}

// AddField inserts a new canonical field and persists the schema.
func (s *Service) AddField(f CanonicalField) error {
	if f.FieldID == "" {
		return fmt.Errorf("field_id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.fields[f.FieldID]; exists {
		return fmt.Errorf("field id %s already exists", f.FieldID)
	}
	if f.DisplayLabel == "" {
		f.DisplayLabel = f.CanonicalName
	}
	if f.DataType == "" {
		f.DataType = "text"
	}
	if f.Section == "" {
		f.Section = "General"
	}
	s.fields[f.FieldID] = f
	return s.save()
}

// UpdateField replaces an existing canonical field and persists the schema.
func (s *Service) UpdateField(fieldID string, f CanonicalField) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.fields[fieldID]; !exists {
		return fmt.Errorf("field id %s not found", fieldID)
	}
	f.FieldID = fieldID
	s.fields[fieldID] = f
	return s.save()
}

// DeleteField removes a canonical field and persists the schema.
func (s *Service) DeleteField(fieldID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.fields[fieldID]; !exists {
		return fmt.Errorf("field id %s not found", fieldID)
	}
	delete(s.fields, fieldID)
	return s.save()
}
