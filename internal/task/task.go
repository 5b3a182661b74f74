// Package task defines the shared task record and its JSONL encoding.
//
// The tasks file is one JSON object per line. Task identity is the id
// field; sync only ever compares and replaces whole records, so each record
// keeps its raw bytes alongside the few fields the sync layer needs.
package task

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"
)

// Task is a single task record. Raw holds the complete record as it
// appeared on disk; Title and Status are decoded for display and indexing
// but the record may carry arbitrary additional fields, all preserved
// through Raw.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Status    string    `json:"status,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`

	Raw json.RawMessage `json:"-"`
}

// ContentEquals reports whether two records carry byte-identical content.
func (t Task) ContentEquals(other Task) bool {
	return bytes.Equal(t.Raw, other.Raw)
}

// Parse decodes a JSONL tasks document. Malformed lines are logged as
// warnings and skipped; a corrupt file never takes down the caller. A nil
// or empty document parses to no tasks.
func Parse(data []byte, logger *log.Logger) []Task {
	var tasks []Task

	lineNum := 0
	for _, line := range bytes.Split(data, []byte("\n")) {
		lineNum++
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var t Task
		if err := json.Unmarshal(line, &t); err != nil {
			if logger != nil {
				logger.Printf("WARNING: skipping malformed task at line %d: %v", lineNum, err)
			}
			continue
		}
		if t.ID == "" {
			if logger != nil {
				logger.Printf("WARNING: skipping task without id at line %d", lineNum)
			}
			continue
		}

		t.Raw = append(json.RawMessage(nil), line...)
		tasks = append(tasks, t)
	}

	return tasks
}

// Marshal encodes tasks as a JSONL document, one record per line, sorted by
// id so identical task sets always produce identical bytes.
func Marshal(tasks []Task) []byte {
	sorted := append([]Task(nil), tasks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var buf bytes.Buffer
	for _, t := range sorted {
		buf.Write(bytes.TrimSpace(t.Raw))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Index maps tasks by id. Duplicate ids keep the later record.
func Index(tasks []Task) map[string]Task {
	byID := make(map[string]Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	return byID
}

// New builds a minimal task record, mostly for tests and tooling.
func New(id, title, status string, updatedAt time.Time) (Task, error) {
	t := Task{ID: id, Title: title, Status: status, UpdatedAt: updatedAt}
	raw, err := json.Marshal(struct {
		ID        string    `json:"id"`
		Title     string    `json:"title,omitempty"`
		Status    string    `json:"status,omitempty"`
		UpdatedAt time.Time `json:"updated_at"`
	}{id, title, status, updatedAt})
	if err != nil {
		return Task{}, fmt.Errorf("failed to marshal task: %w", err)
	}
	t.Raw = raw
	return t, nil
}
