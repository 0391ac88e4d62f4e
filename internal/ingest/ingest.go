// Package ingest loads fill payloads from CSV and JSON files and
// normalizes their headers toward canonical field names.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/formweld/formweld/internal/match"
)

// LoadRecords reads a payload file into one map per data record. CSV
// files yield one record per row keyed by header; JSON files may hold a
// single object or an array of objects. Non-string JSON values are
// rendered with their default formatting.
func LoadRecords(path string) ([]map[string]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadCSV(path)
	case ".json":
		return loadJSON(path)
	default:
		return nil, fmt.Errorf("unsupported payload format: %s", filepath.Ext(path))
	}
}

func loadCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open payload file: %w", err)
	}
	defer f.Close()

	rows, err := gocsv.CSVToMaps(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV payload: %w", err)
	}
	return rows, nil
}

func loadJSON(path string) ([]map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload file: %w", err)
	}

	var many []map[string]any
	if err := json.Unmarshal(data, &many); err != nil {
		var one map[string]any
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, fmt.Errorf("failed to parse JSON payload: %w", err)
		}
		many = []map[string]any{one}
	}

	records := make([]map[string]string, 0, len(many))
	for _, raw := range many {
		rec := make(map[string]string, len(raw))
		for k, v := range raw {
			rec[k] = stringify(v)
		}
		records = append(records, rec)
	}
	return records, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Normalizer rewrites payload keys to canonical field ids so records
// exported from other systems line up with mapped templates.
type Normalizer struct {
	searcher *match.Searcher
}

// NewNormalizer creates a Normalizer. searcher may be nil, in which case
// only the synonym table is consulted.
func NewNormalizer(searcher *match.Searcher) *Normalizer {
	return &Normalizer{searcher: searcher}
}

// Normalize returns a copy of the record with recognized headers renamed
// to their canonical field ids. Unrecognized headers pass through
// unchanged. Headers are processed in sorted order, so when two of them
// normalize to the same id the lexicographically first wins and the
// loser keeps its original key.
func (n *Normalizer) Normalize(record map[string]string) map[string]string {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(record))
	for _, k := range keys {
		id := n.canonicalID(k)
		if _, taken := out[id]; taken {
			id = k
		}
		out[id] = record[k]
	}
	return out
}

func (n *Normalizer) canonicalID(header string) string {
	if id, ok := match.SynonymLookup(header); ok {
		return id
	}
	if n.searcher != nil {
		results := n.searcher.Search([]string{header}, 1)
		if len(results) == 1 && len(results[0]) > 0 && results[0][0].Distance < 0.40 {
			return results[0][0].Metadata.FieldID
		}
	}
	return header
}
