package mapping

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// CorrectionEntry records one human override of an automatic mapping.
// Entries are immutable once written; the log is an audit trail only and
// is never read back into the matching algorithm.
type CorrectionEntry struct {
	Timestamp       time.Time `json:"timestamp"`
	Template        string    `json:"template"`
	FieldID         string    `json:"field_id"`
	FieldLabel      string    `json:"field_label"`
	AIGuess         string    `json:"ai_guess"`
	HumanCorrection string    `json:"human_correction"`
}

// CorrectionLog is an append-only JSONL file of mapping corrections.
type CorrectionLog struct {
	path string
}

// NewCorrectionLog creates a correction log backed by the given file.
func NewCorrectionLog(path string) *CorrectionLog {
	return &CorrectionLog{path: path}
}

// Append writes one entry to the log.
func (l *CorrectionLog) Append(entry CorrectionEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal correction entry: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open correction log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append correction entry: %w", err)
	}
	return nil
}

// Entries reads the whole log, newest last. Used by inspection tooling,
// never by the mapping engine itself.
func (l *CorrectionLog) Entries() ([]CorrectionEntry, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open correction log: %w", err)
	}
	defer f.Close()

	var entries []CorrectionEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry CorrectionEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("failed to scan correction log: %w", err)
	}
	return entries, nil
}
