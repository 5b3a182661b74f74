package task

import (
	"bytes"
	"log"
	"strings"
	"testing"
	"time"
)

func TestParseLenient(t *testing.T) {
	doc := strings.Join([]string{
		`{"id":"T1","title":"first","status":"open","updated_at":"2026-01-02T03:04:05Z"}`,
		`not json at all`,
		``,
		`{"title":"no id","updated_at":"2026-01-02T03:04:05Z"}`,
		`{"id":"T2","title":"second","status":"done","updated_at":"2026-01-03T00:00:00Z","extra":{"nested":true}}`,
	}, "\n")

	var logBuf bytes.Buffer
	logger := log.New(&logBuf, "", 0)

	tasks := Parse([]byte(doc), logger)
	if len(tasks) != 2 {
		t.Fatalf("Parse() returned %d tasks, want 2", len(tasks))
	}
	if tasks[0].ID != "T1" || tasks[1].ID != "T2" {
		t.Errorf("parsed ids = %s, %s, want T1, T2", tasks[0].ID, tasks[1].ID)
	}
	if tasks[1].Status != "done" {
		t.Errorf("T2 status = %q, want done", tasks[1].Status)
	}

	// Unknown fields survive in the raw record.
	if !strings.Contains(string(tasks[1].Raw), `"extra"`) {
		t.Errorf("T2 raw lost extra field: %s", tasks[1].Raw)
	}

	warnings := strings.Count(logBuf.String(), "WARNING")
	if warnings != 2 {
		t.Errorf("logged %d warnings, want 2 (malformed line, missing id)", warnings)
	}
}

func TestParseEmpty(t *testing.T) {
	if tasks := Parse(nil, nil); tasks != nil {
		t.Errorf("Parse(nil) = %v, want nil", tasks)
	}
	if tasks := Parse([]byte("\n\n"), nil); tasks != nil {
		t.Errorf("Parse(blank) = %v, want nil", tasks)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	a, err := New("T2", "beta", "open", now)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	b, err := New("T1", "alpha", "open", now)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	forward := Marshal([]Task{a, b})
	reversed := Marshal([]Task{b, a})
	if !bytes.Equal(forward, reversed) {
		t.Errorf("Marshal() order-dependent:\n%s\nvs\n%s", forward, reversed)
	}

	lines := strings.Split(strings.TrimRight(string(forward), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Marshal() produced %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], `"T1"`) {
		t.Errorf("first line = %s, want T1 (sorted by id)", lines[0])
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	orig, err := New("T1", "alpha", "open", now)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	parsed := Parse(Marshal([]Task{orig}), nil)
	if len(parsed) != 1 {
		t.Fatalf("round trip returned %d tasks, want 1", len(parsed))
	}
	if !parsed[0].ContentEquals(orig) {
		t.Errorf("round trip changed record:\n%s\nvs\n%s", parsed[0].Raw, orig.Raw)
	}
	if !parsed[0].UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", parsed[0].UpdatedAt, now)
	}
}

func TestIndexKeepsLaterDuplicate(t *testing.T) {
	now := time.Now().UTC()

	first, _ := New("T1", "old", "open", now)
	second, _ := New("T1", "new", "done", now)

	byID := Index([]Task{first, second})
	if len(byID) != 1 {
		t.Fatalf("Index() has %d entries, want 1", len(byID))
	}
	if byID["T1"].Title != "new" {
		t.Errorf("Index kept %q, want the later record", byID["T1"].Title)
	}
}
