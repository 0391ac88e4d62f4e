// Package match provides the similarity-search capability used by the
// mapping engine: a full-text index over canonical field descriptions
// with a deterministic synonym fast path in front of it.
package match

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/formweld/formweld/internal/schema"
)

// CandidateMetadata describes the canonical field behind a candidate.
type CandidateMetadata struct {
	FieldID       string `json:"field_id"`
	CanonicalName string `json:"canonical_name"`
	DataType      string `json:"data_type"`
}

// Candidate is one ranked similarity-search hit. Distance is a
// dissimilarity metric: lower means more semantically similar.
type Candidate struct {
	FieldID  string            `json:"field_id"`
	Distance float64           `json:"score"`
	Metadata CandidateMetadata `json:"metadata"`
}

// schemaDocument is the shape indexed per canonical field.
type schemaDocument struct {
	FieldID       string `json:"field_id"`
	CanonicalName string `json:"canonical_name"`
	DataType      string `json:"data_type"`
	Body          string `json:"body"`
}

// Searcher indexes canonical field embedding strings and answers batched
// similarity queries. A Searcher whose index failed to build stays usable:
// every query returns no candidates, so analysis degrades instead of
// failing.
type Searcher struct {
	mu    sync.RWMutex
	index bleve.Index
	ready bool
}

// NewSearcher builds an in-memory index over the given schema. Index
// construction failure is logged and produces a degraded (never-matching)
// searcher rather than an error.
func NewSearcher(svc *schema.Service) *Searcher {
	s := &Searcher{}
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		log.Printf("match: failed to create index, similarity search disabled: %v", err)
		return s
	}
	s.index = index

	if err := s.Ingest(svc.GetAllFields()); err != nil {
		log.Printf("match: schema ingestion failed, similarity search disabled: %v", err)
		return s
	}
	s.ready = true
	return s
}

// buildIndexMapping creates the bleve mapping for canonical field
// documents: the body is analyzed for full-text matching, identifiers are
// stored as keywords.
func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = simple.Name

	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("field_id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("canonical_name", textFieldMapping)
	docMapping.AddFieldMappingsAt("data_type", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("body", textFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = simple.Name
	return indexMapping
}

// Ingest (re)indexes the given canonical fields.
func (s *Searcher) Ingest(fields []schema.CanonicalField) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index == nil {
		return fmt.Errorf("index not initialized")
	}

	batch := s.index.NewBatch()
	for _, f := range fields {
		doc := schemaDocument{
			FieldID:       f.FieldID,
			CanonicalName: f.CanonicalName,
			DataType:      f.DataType,
			Body:          f.EmbeddingString(),
		}
		if err := batch.Index(f.FieldID, doc); err != nil {
			return fmt.Errorf("failed to index field %s: %w", f.FieldID, err)
		}
	}
	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch index: %w", err)
	}
	s.ready = true
	return nil
}

// Ready reports whether the underlying index is usable.
func (s *Searcher) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready && s.index != nil
}

// Search answers one batch of mapping queries with up to topK ranked
// candidates each. The synonym fast path is consulted first per query; a
// hit short-circuits with a single synthetic near-zero-distance candidate.
// Queries that find nothing (or run against an unready index) yield an
// empty candidate list, never an error for the batch.
func (s *Searcher) Search(queries []string, topK int) [][]Candidate {
	if topK <= 0 {
		topK = 5
	}
	results := make([][]Candidate, len(queries))

	for i, q := range queries {
		if id, ok := SynonymLookup(labelFromQuery(q)); ok {
			results[i] = []Candidate{{
				FieldID:  id,
				Distance: synonymDistance,
				Metadata: CandidateMetadata{
					FieldID:       id,
					CanonicalName: canonicalTitle(id),
					DataType:      "text",
				},
			}}
			continue
		}
		results[i] = s.queryIndex(q, topK)
	}
	return results
}

// queryIndex runs one full-text query against the canonical index and
// converts relevance scores to distances.
func (s *Searcher) queryIndex(query string, topK int) []Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ready || s.index == nil {
		return nil
	}

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetFuzziness(1)

	searchRequest := bleve.NewSearchRequest(matchQuery)
	searchRequest.Size = topK
	searchRequest.Fields = []string{"field_id", "canonical_name", "data_type"}

	searchResults, err := s.index.Search(searchRequest)
	if err != nil {
		log.Printf("match: query failed: %v", err)
		return nil
	}

	candidates := make([]Candidate, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		meta := CandidateMetadata{FieldID: hit.ID}
		if v, ok := hit.Fields["canonical_name"].(string); ok {
			meta.CanonicalName = v
		}
		if v, ok := hit.Fields["data_type"].(string); ok {
			meta.DataType = v
		}
		candidates = append(candidates, Candidate{
			FieldID:  hit.ID,
			Distance: scoreToDistance(hit.Score),
			Metadata: meta,
		})
	}
	return candidates
}

// scoreToDistance converts a bleve relevance score (higher is better,
// unbounded) to a dissimilarity distance in (0, 1]. A score of zero maps
// to distance 1.
func scoreToDistance(score float64) float64 {
	if score < 0 {
		score = 0
	}
	return 1 / (1 + score)
}

// canonicalTitle renders a canonical field id as a display name, e.g.
// "date_of_birth" -> "Date Of Birth".
func canonicalTitle(fieldID string) string {
	words := strings.Split(fieldID, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Close releases index resources.
func (s *Searcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil {
		return s.index.Close()
	}
	return nil
}
