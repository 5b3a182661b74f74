package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lavallee/cub/internal/task"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testTasks(t *testing.T) []task.Task {
	t.Helper()

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var tasks []task.Task
	for _, spec := range []struct {
		id, title, status string
		at                time.Time
	}{
		{"T1", "first", "open", t0},
		{"T2", "second", "done", t0.Add(time.Hour)},
		{"T3", "third", "open", t0.Add(2 * time.Hour)},
	} {
		tk, err := task.New(spec.id, spec.title, spec.status, spec.at)
		if err != nil {
			t.Fatalf("task.New() failed: %v", err)
		}
		tasks = append(tasks, tk)
	}
	return tasks
}

func TestReplaceAllAndCounts(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.ReplaceAll(ctx, testTasks(t), "abc123"); err != nil {
		t.Fatalf("ReplaceAll() failed: %v", err)
	}

	total, err := db.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if total != 3 {
		t.Errorf("Count() = %d, want 3", total)
	}

	counts, err := db.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus() failed: %v", err)
	}
	if counts["open"] != 2 || counts["done"] != 1 {
		t.Errorf("CountByStatus() = %v, want open:2 done:1", counts)
	}

	sha, err := db.IndexedCommit(ctx)
	if err != nil {
		t.Fatalf("IndexedCommit() failed: %v", err)
	}
	if sha != "abc123" {
		t.Errorf("IndexedCommit() = %q, want abc123", sha)
	}
}

func TestReplaceAllIsAtomicSwap(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.ReplaceAll(ctx, testTasks(t), "abc123"); err != nil {
		t.Fatalf("ReplaceAll() failed: %v", err)
	}

	// A rebuild from a smaller task set fully replaces the previous index.
	smaller := testTasks(t)[:1]
	if err := db.ReplaceAll(ctx, smaller, "def456"); err != nil {
		t.Fatalf("second ReplaceAll() failed: %v", err)
	}

	total, err := db.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if total != 1 {
		t.Errorf("Count() after rebuild = %d, want 1", total)
	}

	sha, err := db.IndexedCommit(ctx)
	if err != nil {
		t.Fatalf("IndexedCommit() failed: %v", err)
	}
	if sha != "def456" {
		t.Errorf("IndexedCommit() = %q, want def456", sha)
	}
}

func TestListTasks(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.ReplaceAll(ctx, testTasks(t), "abc123"); err != nil {
		t.Fatalf("ReplaceAll() failed: %v", err)
	}

	all, err := db.ListTasks(ctx, "")
	if err != nil {
		t.Fatalf("ListTasks() failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListTasks() returned %d, want 3", len(all))
	}
	// Most recently updated first.
	if all[0].ID != "T3" {
		t.Errorf("first task = %s, want T3", all[0].ID)
	}

	open, err := db.ListTasks(ctx, "open")
	if err != nil {
		t.Fatalf("ListTasks(open) failed: %v", err)
	}
	if len(open) != 2 {
		t.Errorf("ListTasks(open) returned %d, want 2", len(open))
	}
	for _, tk := range open {
		if tk.Status != "open" {
			t.Errorf("task %s has status %q, want open", tk.ID, tk.Status)
		}
	}

	// Raw records survive the round trip through the index.
	if len(all[0].Raw) == 0 {
		t.Error("indexed task lost its raw record")
	}
}

func TestIndexedCommitEmpty(t *testing.T) {
	db := openTestDB(t)

	sha, err := db.IndexedCommit(context.Background())
	if err != nil {
		t.Fatalf("IndexedCommit() on fresh index failed: %v", err)
	}
	if sha != "" {
		t.Errorf("IndexedCommit() = %q, want empty", sha)
	}
}
