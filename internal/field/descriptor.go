// Package field defines the shared data model for discovered template
// fields and their canonical mappings.
package field

import (
	"fmt"
	"strings"
)

// Type classifies a discovered field by the kind of value it accepts.
type Type string

const (
	TypeText     Type = "text"
	TypeCheckbox Type = "checkbox"
)

// Source records which discovery strategy produced a field.
type Source string

const (
	SourceAcroForm   Source = "acroform"
	SourceStaticScan Source = "static_scan"
)

// Rect is an absolute page rectangle [x1, y1, x2, y2] in PDF user units,
// bottom-left origin.
type Rect [4]float64

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float64 {
	return abs(r[2] - r[0])
}

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float64 {
	return abs(r[3] - r[1])
}

// Top returns the upper edge of the rectangle.
func (r Rect) Top() float64 {
	return max(r[1], r[3])
}

// IsCheckboxSized reports whether the rectangle is small enough in both
// dimensions to be a checkbox widget. Checkboxes are conventionally
// labeled to their left rather than above.
func (r Rect) IsCheckboxSized() bool {
	return r.Width() < 20 && r.Height() < 20
}

// Pct converts the rectangle to fraction-of-page form [x, y, w, h] with a
// top-left origin, for resolution independence.
func (r Rect) Pct(pageWidth, pageHeight float64) []float64 {
	if pageWidth <= 0 || pageHeight <= 0 {
		return nil
	}
	return []float64{
		r[0] / pageWidth,
		(pageHeight - r.Top()) / pageHeight,
		r.Width() / pageWidth,
		r.Height() / pageHeight,
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// RawFieldDescriptor is the normalized output of field discovery for a
// single template field, before semantic mapping. Descriptors are built
// fresh on every uncached analysis and are not mutated afterwards; the
// mapping engine derives MappingRecords from them.
type RawFieldDescriptor struct {
	ID            string    `json:"id"`
	Label         string    `json:"label"`
	Section       string    `json:"section"`
	Type          Type      `json:"type"`
	Page          int       `json:"page"`
	Rect          *Rect     `json:"rect,omitempty"`
	RectPct       []float64 `json:"rect_pct,omitempty"`
	PageDims      []float64 `json:"page_dims,omitempty"`
	ExportOptions []string  `json:"export_options,omitempty"`
	Source        Source    `json:"source"`
	Context       string    `json:"context"`
	Placeholder   string    `json:"placeholder,omitempty"`
}

// Confidence is the coarse tier assigned to a mapping decision.
type Confidence string

const (
	ConfidenceLow    Confidence = "Low"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceHigh   Confidence = "High"
)

// Status is the review lifecycle state of a mapping.
type Status string

const (
	StatusAuto           Status = "auto"
	StatusPendingReview  Status = "pending_review"
	StatusSuggestNew     Status = "suggest_new"
	StatusApproved       Status = "approved"
	StatusManualOverride Status = "manual_override"
)

// Preserved reports whether a status survives re-analysis. Approved and
// manually overridden mappings are never superseded by a fresh automatic
// pass.
func (s Status) Preserved() bool {
	return s == StatusApproved || s == StatusManualOverride
}

// MappingSource records which layer of the mapping engine produced the
// resolution.
type MappingSource string

const (
	SourceEmbeddingStrong  MappingSource = "auto_embedding_strong"
	SourceEmbeddingWeak    MappingSource = "auto_embedding_weak"
	SourceHistorical       MappingSource = "historical"
	SourceManualCorrection MappingSource = "manual_correction"
	SourceUnmapped         MappingSource = "Unmapped"
)

// MappingProposal carries the engine's full candidate ranking for a field
// so a reviewer can inspect what the automatic pass considered.
type MappingProposal struct {
	CanonicalFieldID      string    `json:"canonical_field_id,omitempty"`
	SuggestedNewFieldName string    `json:"suggested_new_field_name,omitempty"`
	Confidence            string    `json:"confidence,omitempty"`
	Explanation           string    `json:"explanation,omitempty"`
	Candidates            []string  `json:"candidates"`
	Scores                []float64 `json:"scores"`
}

// MappingRecord is a RawFieldDescriptor resolved against the canonical
// schema. Name is never empty: an unresolved field keeps its original id.
type MappingRecord struct {
	RawFieldDescriptor

	OriginalName  string           `json:"original_name"`
	Name          string           `json:"name"`
	MappingStatus Status           `json:"mapping_status"`
	Confidence    Confidence       `json:"confidence"`
	MappingSource MappingSource    `json:"mapping_source"`
	Proposal      *MappingProposal `json:"mapping_proposal,omitempty"`
	ReviewedBy    string           `json:"reviewed_by,omitempty"`
}

// SuggestedName derives a snake_case canonical-field name suggestion from
// a field label, used when the engine proposes creating a new canonical
// field.
func SuggestedName(label, fallback string) string {
	s := strings.TrimSpace(strings.ToLower(label))
	if s == "" {
		s = strings.ToLower(fallback)
	}
	return strings.ReplaceAll(s, " ", "_")
}

// HeuristicLabel derives a human-readable label from a raw widget name,
// e.g. "applicant.txt_first_name" becomes "Txt First Name". Used when no
// visual label is found near the widget.
func HeuristicLabel(fieldName string) string {
	name := fieldName
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return strings.TrimSpace(titleCase(name))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		if len(r) > 0 {
			r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// SanitizeID reduces an arbitrary identifier to the characters safe for
// use in a filename. Dot runs are dropped so a derived filename never
// contains "..".
func SanitizeID(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '_' || r == '-' || r == '.':
			b.WriteRune(r)
		}
	}
	s := b.String()
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", "")
	}
	return s
}

// String implements fmt.Stringer for debugging output.
func (d RawFieldDescriptor) String() string {
	return fmt.Sprintf("%s (%s, page %d, section %q)", d.ID, d.Type, d.Page, d.Section)
}
