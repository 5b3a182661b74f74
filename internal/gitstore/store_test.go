package gitstore

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
)

// setupTestRepo creates a temporary git repository for testing
func setupTestRepo(t *testing.T) (string, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "gitstore-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	cmd := exec.Command("git", "init")
	cmd.Dir = tmpDir
	if err := cmd.Run(); err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to init git repo: %v", err)
	}

	exec.Command("git", "-C", tmpDir, "config", "user.name", "Test User").Run()
	exec.Command("git", "-C", tmpDir, "config", "user.email", "test@example.com").Run()

	cleanup := func() {
		os.RemoveAll(tmpDir)
	}

	return tmpDir, cleanup
}

func newTestStore(t *testing.T, repoPath string) *Store {
	t.Helper()

	s, err := New(repoPath, nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return s
}

func TestNew(t *testing.T) {
	repoPath, cleanup := setupTestRepo(t)
	defer cleanup()

	s := newTestStore(t, repoPath)

	if s.RepoRoot() == "" {
		t.Error("RepoRoot() returned empty string")
	}
	if s.GitDir() == "" {
		t.Error("GitDir() returned empty string")
	}
}

func TestNewOutsideRepo(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "gitstore-norepo-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	if _, err := New(tmpDir, nil); err == nil {
		t.Fatal("New() outside a repo succeeded, want error")
	}
}

func TestWriteBlobAndFileAtRef(t *testing.T) {
	repoPath, cleanup := setupTestRepo(t)
	defer cleanup()

	s := newTestStore(t, repoPath)
	ctx := context.Background()

	content := []byte("{\"id\":\"T1\"}\n")
	blobSHA, err := s.WriteBlob(ctx, content)
	if err != nil {
		t.Fatalf("WriteBlob() failed: %v", err)
	}
	if len(blobSHA) != 40 {
		t.Errorf("WriteBlob() returned %q, want 40-char sha", blobSHA)
	}

	emptyTree, err := s.EmptyTree(ctx)
	if err != nil {
		t.Fatalf("EmptyTree() failed: %v", err)
	}

	treeSHA, err := s.BuildTree(ctx, emptyTree, "tasks.jsonl", blobSHA)
	if err != nil {
		t.Fatalf("BuildTree() failed: %v", err)
	}

	commitSHA, err := s.CommitTree(ctx, treeSHA, nil, "initial")
	if err != nil {
		t.Fatalf("CommitTree() failed: %v", err)
	}

	got, err := s.FileAtRef(ctx, commitSHA, "tasks.jsonl")
	if err != nil {
		t.Fatalf("FileAtRef() failed: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("FileAtRef() = %q, want %q", got, content)
	}
}

func TestFileAtRefMissingPath(t *testing.T) {
	repoPath, cleanup := setupTestRepo(t)
	defer cleanup()

	s := newTestStore(t, repoPath)
	ctx := context.Background()

	emptyTree, err := s.EmptyTree(ctx)
	if err != nil {
		t.Fatalf("EmptyTree() failed: %v", err)
	}
	commitSHA, err := s.CommitTree(ctx, emptyTree, nil, "empty")
	if err != nil {
		t.Fatalf("CommitTree() failed: %v", err)
	}

	data, err := s.FileAtRef(ctx, commitSHA, "nope.jsonl")
	if err != nil {
		t.Fatalf("FileAtRef() on missing path failed: %v", err)
	}
	if data != nil {
		t.Errorf("FileAtRef() on missing path = %q, want nil", data)
	}
}

func TestBuildTreePreservesSiblings(t *testing.T) {
	repoPath, cleanup := setupTestRepo(t)
	defer cleanup()

	s := newTestStore(t, repoPath)
	ctx := context.Background()

	siblingSHA, err := s.WriteBlob(ctx, []byte("keep me\n"))
	if err != nil {
		t.Fatalf("WriteBlob() failed: %v", err)
	}
	tasksSHA, err := s.WriteBlob(ctx, []byte("v1\n"))
	if err != nil {
		t.Fatalf("WriteBlob() failed: %v", err)
	}

	emptyTree, err := s.EmptyTree(ctx)
	if err != nil {
		t.Fatalf("EmptyTree() failed: %v", err)
	}
	tree, err := s.BuildTree(ctx, emptyTree, "notes/sibling.txt", siblingSHA)
	if err != nil {
		t.Fatalf("BuildTree() failed: %v", err)
	}
	tree, err = s.BuildTree(ctx, tree, "tasks.jsonl", tasksSHA)
	if err != nil {
		t.Fatalf("BuildTree() failed: %v", err)
	}

	// Rewrite tasks.jsonl only; the sibling blob must be untouched.
	tasksSHA2, err := s.WriteBlob(ctx, []byte("v2\n"))
	if err != nil {
		t.Fatalf("WriteBlob() failed: %v", err)
	}
	tree2, err := s.BuildTree(ctx, tree, "tasks.jsonl", tasksSHA2)
	if err != nil {
		t.Fatalf("BuildTree() failed: %v", err)
	}

	gotSibling, err := s.BlobAtPath(ctx, tree2, "notes/sibling.txt")
	if err != nil {
		t.Fatalf("BlobAtPath() failed: %v", err)
	}
	if gotSibling != siblingSHA {
		t.Errorf("sibling blob = %s, want %s", gotSibling, siblingSHA)
	}

	gotTasks, err := s.BlobAtPath(ctx, tree2, "tasks.jsonl")
	if err != nil {
		t.Fatalf("BlobAtPath() failed: %v", err)
	}
	if gotTasks != tasksSHA2 {
		t.Errorf("tasks blob = %s, want %s", gotTasks, tasksSHA2)
	}
}

func TestResolveRefMissing(t *testing.T) {
	repoPath, cleanup := setupTestRepo(t)
	defer cleanup()

	s := newTestStore(t, repoPath)

	sha, err := s.ResolveRef(context.Background(), BranchRef("no-such-branch"))
	if err != nil {
		t.Fatalf("ResolveRef() on missing ref failed: %v", err)
	}
	if sha != "" {
		t.Errorf("ResolveRef() = %q, want empty", sha)
	}
}

func TestUpdateRefCAS(t *testing.T) {
	repoPath, cleanup := setupTestRepo(t)
	defer cleanup()

	s := newTestStore(t, repoPath)
	ctx := context.Background()

	emptyTree, err := s.EmptyTree(ctx)
	if err != nil {
		t.Fatalf("EmptyTree() failed: %v", err)
	}
	first, err := s.CommitTree(ctx, emptyTree, nil, "first")
	if err != nil {
		t.Fatalf("CommitTree() failed: %v", err)
	}
	second, err := s.CommitTree(ctx, emptyTree, []string{first}, "second")
	if err != nil {
		t.Fatalf("CommitTree() failed: %v", err)
	}

	ref := BranchRef("cub-sync")

	// Create: expected-absent succeeds once.
	ok, err := s.UpdateRef(ctx, ref, first, "")
	if err != nil {
		t.Fatalf("UpdateRef() create failed: %v", err)
	}
	if !ok {
		t.Fatal("UpdateRef() create = false, want true")
	}

	// Creating again must lose, not error.
	ok, err = s.UpdateRef(ctx, ref, second, "")
	if err != nil {
		t.Fatalf("UpdateRef() duplicate create errored: %v", err)
	}
	if ok {
		t.Error("UpdateRef() duplicate create = true, want false")
	}

	// Stale expected value loses, not errors.
	ok, err = s.UpdateRef(ctx, ref, second, second)
	if err != nil {
		t.Fatalf("UpdateRef() stale swap errored: %v", err)
	}
	if ok {
		t.Error("UpdateRef() stale swap = true, want false")
	}

	// Correct expected value wins.
	ok, err = s.UpdateRef(ctx, ref, second, first)
	if err != nil {
		t.Fatalf("UpdateRef() swap failed: %v", err)
	}
	if !ok {
		t.Fatal("UpdateRef() swap = false, want true")
	}

	tip, err := s.ResolveRef(ctx, ref)
	if err != nil {
		t.Fatalf("ResolveRef() failed: %v", err)
	}
	if tip != second {
		t.Errorf("tip = %s, want %s", tip, second)
	}
}

func TestCommitTreeMergeParents(t *testing.T) {
	repoPath, cleanup := setupTestRepo(t)
	defer cleanup()

	s := newTestStore(t, repoPath)
	ctx := context.Background()

	emptyTree, err := s.EmptyTree(ctx)
	if err != nil {
		t.Fatalf("EmptyTree() failed: %v", err)
	}
	a, err := s.CommitTree(ctx, emptyTree, nil, "a")
	if err != nil {
		t.Fatalf("CommitTree() failed: %v", err)
	}
	b, err := s.CommitTree(ctx, emptyTree, nil, "b")
	if err != nil {
		t.Fatalf("CommitTree() failed: %v", err)
	}

	merge, err := s.CommitTree(ctx, emptyTree, []string{a, b}, "merge")
	if err != nil {
		t.Fatalf("CommitTree() with two parents failed: %v", err)
	}

	for _, parent := range []string{a, b} {
		isAncestor, err := s.IsAncestor(ctx, parent, merge)
		if err != nil {
			t.Fatalf("IsAncestor() failed: %v", err)
		}
		if !isAncestor {
			t.Errorf("IsAncestor(%s, merge) = false, want true", parent)
		}
	}
}

func TestMergeBaseUnrelated(t *testing.T) {
	repoPath, cleanup := setupTestRepo(t)
	defer cleanup()

	s := newTestStore(t, repoPath)
	ctx := context.Background()

	emptyTree, err := s.EmptyTree(ctx)
	if err != nil {
		t.Fatalf("EmptyTree() failed: %v", err)
	}
	a, err := s.CommitTree(ctx, emptyTree, nil, "a")
	if err != nil {
		t.Fatalf("CommitTree() failed: %v", err)
	}
	b, err := s.CommitTree(ctx, emptyTree, nil, "b")
	if err != nil {
		t.Fatalf("CommitTree() failed: %v", err)
	}

	base, err := s.MergeBase(ctx, a, b)
	if err != nil {
		t.Fatalf("MergeBase() on unrelated commits failed: %v", err)
	}
	if base != "" {
		t.Errorf("MergeBase() = %q, want empty", base)
	}
}

func TestFetchBranchNoRemote(t *testing.T) {
	repoPath, cleanup := setupTestRepo(t)
	defer cleanup()

	s := newTestStore(t, repoPath)

	err := s.FetchBranch(context.Background(), "origin", "cub-sync")
	if err != ErrNoRemote {
		t.Errorf("FetchBranch() without remote = %v, want ErrNoRemote", err)
	}
}

func TestGitErrorStderr(t *testing.T) {
	repoPath, cleanup := setupTestRepo(t)
	defer cleanup()

	s := newTestStore(t, repoPath)

	_, err := s.run(context.Background(), "cat-file", "-p", "0000000000000000000000000000000000000000")
	if err == nil {
		t.Fatal("cat-file on missing object succeeded, want error")
	}

	gitErr, ok := err.(*GitError)
	if !ok {
		t.Fatalf("error type = %T, want *GitError", err)
	}
	if gitErr.StderrExcerpt() == "" {
		t.Error("StderrExcerpt() is empty, want git stderr")
	}
	if !strings.Contains(gitErr.Error(), "cat-file") {
		t.Errorf("Error() = %q, want the git args included", gitErr.Error())
	}
}
