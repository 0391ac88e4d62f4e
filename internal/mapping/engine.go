package mapping

import (
	"fmt"
	"log"

	"github.com/formweld/formweld/internal/field"
	"github.com/formweld/formweld/internal/match"
)

// Confidence tier boundaries over similarity distances. Boundaries are
// half-open on the low side: a distance exactly at a boundary falls into
// the lower-confidence tier.
const (
	StrongMatchThreshold = 0.40
	WeakMatchThreshold   = 0.75
	AmbiguityGap         = 0.05

	// DefaultTopK candidates are requested per field query.
	DefaultTopK = 5
)

// Searcher is the similarity-search capability the engine consumes. One
// call covers the whole batch of unresolved fields for a template.
type Searcher interface {
	Search(queries []string, topK int) [][]match.Candidate
}

// Engine resolves raw field descriptors to canonical field ids with a
// confidence tier, persisting results to the per-template store and
// recording human corrections.
type Engine struct {
	store       *Store
	searcher    Searcher
	corrections *CorrectionLog
	topK        int
}

// NewEngine wires a mapping engine to its store, searcher, and correction
// log. searcher may be nil, in which case every field degrades to
// suggest_new.
func NewEngine(store *Store, searcher Searcher, corrections *CorrectionLog) *Engine {
	return &Engine{
		store:       store,
		searcher:    searcher,
		corrections: corrections,
		topK:        DefaultTopK,
	}
}

// MapTemplateFields resolves every descriptor of one template. Previously
// approved or manually overridden records are preserved unchanged; the
// rest go through the synonym fast path and one batched similarity
// search. The full result set is persisted before returning.
func (e *Engine) MapTemplateFields(
	templateID string, descriptors []field.RawFieldDescriptor,
) ([]field.MappingRecord, error) {
	saved, err := e.store.Load(templateID)
	if err != nil {
		log.Printf("mapping: ignoring unreadable prior mapping for %s: %v", templateID, err)
	}
	savedByID := indexSaved(saved)

	records := make([]field.MappingRecord, len(descriptors))
	var pending []int
	var queries []string

	for i, d := range descriptors {
		if prior, ok := savedByID[d.ID]; ok && prior.MappingStatus.Preserved() {
			records[i] = preserve(d, prior)
			continue
		}
		records[i] = field.MappingRecord{RawFieldDescriptor: d, OriginalName: d.ID}
		queries = append(queries, buildQuery(d))
		pending = append(pending, i)
	}

	if len(pending) > 0 {
		results := e.search(queries)
		for j, i := range pending {
			records[i] = resolve(records[i], results[j])
		}
	}

	if err := e.store.Save(templateID, records); err != nil {
		return nil, fmt.Errorf("failed to persist mappings for %s: %w", templateID, err)
	}
	return records, nil
}

// search runs the batched similarity query, degrading to empty candidate
// lists when no searcher is wired.
func (e *Engine) search(queries []string) [][]match.Candidate {
	if e.searcher == nil {
		return make([][]match.Candidate, len(queries))
	}
	results := e.searcher.Search(queries, e.topK)
	if len(results) != len(queries) {
		// A misbehaving searcher must not fail the analysis.
		log.Printf("mapping: searcher returned %d result sets for %d queries", len(results), len(queries))
		return make([][]match.Candidate, len(queries))
	}
	return results
}

// buildQuery assembles the semantic query string for one field.
func buildQuery(d field.RawFieldDescriptor) string {
	return fmt.Sprintf("Field Label: %s. Context: %s. Section: %s. Placeholder: %s",
		d.Label, d.Context, d.Section, d.Placeholder)
}

// indexSaved maps prior records by both original and resolved name so a
// descriptor can be matched whichever identifier the caller carries.
func indexSaved(saved *TemplateMapping) map[string]field.MappingRecord {
	byID := make(map[string]field.MappingRecord)
	if saved == nil {
		return byID
	}
	for _, m := range saved.Mappings {
		if m.OriginalName != "" {
			byID[m.OriginalName] = m
		}
		if m.ID != "" {
			byID[m.ID] = m
		}
		if m.Name != "" {
			byID[m.Name] = m
		}
	}
	return byID
}

// preserve carries a prior approved/overridden resolution onto a freshly
// discovered descriptor, keeping the new geometry but the old decision.
func preserve(d field.RawFieldDescriptor, prior field.MappingRecord) field.MappingRecord {
	source := prior.MappingSource
	if source == "" {
		source = field.SourceHistorical
	}
	confidence := prior.Confidence
	if confidence == "" {
		confidence = field.ConfidenceHigh
	}
	return field.MappingRecord{
		RawFieldDescriptor: d,
		OriginalName:       d.ID,
		Name:               prior.Name,
		MappingStatus:      prior.MappingStatus,
		Confidence:         confidence,
		MappingSource:      source,
		Proposal:           prior.Proposal,
		ReviewedBy:         prior.ReviewedBy,
	}
}

// resolve applies the confidence tiers to one field's ranked candidates.
func resolve(rec field.MappingRecord, candidates []match.Candidate) field.MappingRecord {
	rec.Name = rec.OriginalName
	rec.MappingStatus = field.StatusSuggestNew
	rec.Confidence = field.ConfidenceLow
	rec.MappingSource = field.SourceUnmapped

	explanation := "No strong semantic match found."
	var bestID string

	if len(candidates) > 0 {
		top := candidates[0]
		distance := top.Distance

		switch {
		case distance < StrongMatchThreshold:
			bestID = top.Metadata.FieldID
			rec.Confidence = field.ConfidenceHigh
			rec.MappingStatus = field.StatusAuto
			rec.MappingSource = field.SourceEmbeddingStrong
			explanation = fmt.Sprintf("Strong semantic match (%.2f)", distance)

		case distance < WeakMatchThreshold:
			bestID = top.Metadata.FieldID
			rec.Confidence = field.ConfidenceMedium
			rec.MappingStatus = field.StatusPendingReview
			rec.MappingSource = field.SourceEmbeddingWeak
			explanation = fmt.Sprintf("Likely match (%.2f), needs review.", distance)
			if len(candidates) > 1 && candidates[1].Distance-distance < AmbiguityGap {
				explanation += fmt.Sprintf(" Ambiguous: Could also be %s.", candidates[1].Metadata.CanonicalName)
			}

		default:
			explanation = fmt.Sprintf("Weak match (%.2f).", distance)
		}
	}

	if bestID != "" {
		rec.Name = bestID
	}

	candidateIDs := make([]string, len(candidates))
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		candidateIDs[i] = c.Metadata.FieldID
		scores[i] = c.Distance
	}
	rec.Proposal = &field.MappingProposal{
		CanonicalFieldID:      bestID,
		SuggestedNewFieldName: field.SuggestedName(rec.Label, rec.OriginalName),
		Confidence:            string(rec.Confidence),
		Explanation:           explanation,
		Candidates:            candidateIDs,
		Scores:                scores,
	}
	return rec
}

// UpdateMapping applies a human correction to one field of a template's
// stored mapping. When the supplied canonical id differs from the last
// automatic proposal an immutable correction log entry is appended first.
// The updated record always carries High confidence.
func (e *Engine) UpdateMapping(templateID, fieldID, canonicalID string, status field.Status, user string) error {
	if status == "" {
		status = field.StatusManualOverride
	}
	if user == "" {
		user = "human"
	}

	saved, err := e.store.Load(templateID)
	if err != nil {
		return fmt.Errorf("failed to load mapping for %s: %w", templateID, err)
	}
	if saved == nil {
		return fmt.Errorf("no mapping found for template %s", templateID)
	}

	idx := -1
	for i, m := range saved.Mappings {
		id := m.OriginalName
		if id == "" {
			id = m.ID
		}
		if id == fieldID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("field %s not found in mapping for template %s", fieldID, templateID)
	}

	rec := saved.Mappings[idx]

	if rec.Proposal != nil && rec.Proposal.CanonicalFieldID != "" && rec.Proposal.CanonicalFieldID != canonicalID {
		entry := CorrectionEntry{
			Template:        templateID,
			FieldID:         fieldID,
			FieldLabel:      rec.Label,
			AIGuess:         rec.Proposal.CanonicalFieldID,
			HumanCorrection: canonicalID,
		}
		if err := e.corrections.Append(entry); err != nil {
			// Audit is secondary to the correction itself.
			log.Printf("mapping: failed to log correction: %v", err)
		}
	}

	rec.Name = canonicalID
	if rec.Proposal == nil {
		rec.Proposal = &field.MappingProposal{}
	}
	rec.Proposal.CanonicalFieldID = canonicalID
	rec.MappingStatus = status
	rec.ReviewedBy = user
	rec.MappingSource = field.SourceManualCorrection
	rec.Confidence = field.ConfidenceHigh
	saved.Mappings[idx] = rec

	if err := e.store.Save(templateID, saved.Mappings); err != nil {
		return fmt.Errorf("failed to persist corrected mapping: %w", err)
	}
	return nil
}

// Store exposes the engine's backing store for cache checks by discovery.
func (e *Engine) Store() *Store {
	return e.store
}
