// Package audit records fill runs: an append-only JSONL run history plus
// a per-run JSON snapshot of the mapping state used. Snapshots list the
// payload's field names only; payload values never reach disk here.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/formweld/formweld/internal/field"
)

const historyFile = "run_history.jsonl"

// RunEntry is one line of the run history.
type RunEntry struct {
	RunID       string    `json:"run_id"`
	Timestamp   time.Time `json:"timestamp"`
	TemplateID  string    `json:"template_id"`
	OutputPath  string    `json:"output_path"`
	PayloadKeys []string  `json:"payload_keys"`
	FieldsTotal int       `json:"fields_total"`
	Native      int       `json:"fields_filled"`
	Overlaid    int       `json:"fields_overlaid"`
	Skipped     int       `json:"fields_skipped"`
	Snapshot    string    `json:"snapshot,omitempty"`
}

// snapshot is the full mapping state a run was executed against, written
// as a standalone file so the history line stays small.
type snapshot struct {
	RunID       string                `json:"run_id"`
	TemplateID  string                `json:"template_id"`
	Timestamp   time.Time             `json:"timestamp"`
	PayloadKeys []string              `json:"payload_keys"`
	Mappings    []field.MappingRecord `json:"mappings"`
}

// Recorder persists run entries and snapshots under one directory.
type Recorder struct {
	dir string
}

// NewRecorder creates a Recorder rooted at dir, creating it if needed.
func NewRecorder(dir string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	return &Recorder{dir: dir}, nil
}

// Record writes the snapshot file and appends the history line for one
// run. The same entry is returned with the snapshot path filled in.
func (r *Recorder) Record(entry RunEntry, records []field.MappingRecord, payload map[string]string) (RunEntry, error) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	entry.PayloadKeys = payloadKeys(payload)
	entry.FieldsTotal = len(records)

	snapPath, err := r.writeSnapshot(entry, records)
	if err != nil {
		return entry, err
	}
	entry.Snapshot = snapPath

	if err := r.appendHistory(entry); err != nil {
		return entry, err
	}
	return entry, nil
}

func (r *Recorder) writeSnapshot(entry RunEntry, records []field.MappingRecord) (string, error) {
	snap := snapshot{
		RunID:       entry.RunID,
		TemplateID:  entry.TemplateID,
		Timestamp:   entry.Timestamp,
		PayloadKeys: entry.PayloadKeys,
		Mappings:    records,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run snapshot: %w", err)
	}

	name := fmt.Sprintf("%s_%s.json", entry.Timestamp.Format("20060102T150405"), entry.RunID)
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write run snapshot: %w", err)
	}
	return path, nil
}

func (r *Recorder) appendHistory(entry RunEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal run entry: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(r.dir, historyFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append run entry: %w", err)
	}
	return nil
}

// HistoryPath returns the run history file location.
func (r *Recorder) HistoryPath() string {
	return filepath.Join(r.dir, historyFile)
}

// payloadKeys extracts the sorted field names of a payload. Values are
// deliberately discarded.
func payloadKeys(payload map[string]string) []string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
