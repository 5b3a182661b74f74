// Package gitstore provides working-tree-independent primitives against a
// git repository's object database.
//
// Every operation here shells out to git plumbing commands (hash-object,
// ls-tree, mktree, commit-tree, update-ref) and never touches the user's
// working tree, index, or current checkout. The sync branch consumers build
// commits object-by-object and publish them with an atomic compare-and-swap
// on the branch ref.
package gitstore

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultCommandTimeout bounds any single git invocation that arrives
// without a deadline on its context.
const DefaultCommandTimeout = 30 * time.Second

// ProbeTimeout is the shorter bound used for read-only status probes.
const ProbeTimeout = 10 * time.Second

// Store executes plumbing operations against one repository's object
// database. It is safe to create multiple Stores for the same repository;
// coordination happens through git's own ref locking.
type Store struct {
	repoRoot string
	gitDir   string
	logger   *log.Logger
}

// New creates a Store for the repository containing path.
// Returns ErrNotInRepo if path is not inside a git repository.
func New(path string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[gitstore] ", log.LstdFlags)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	cmd := exec.Command("git", "rev-parse", "--git-common-dir", "--show-toplevel")
	cmd.Dir = absPath

	output, err := cmd.Output()
	if err != nil {
		return nil, ErrNotInRepo
	}

	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("unexpected git rev-parse output: got %d lines, expected 2", len(lines))
	}

	gitDir := strings.TrimSpace(lines[0])
	repoRoot := strings.TrimSpace(lines[1])
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(absPath, gitDir)
	}

	return &Store{
		repoRoot: repoRoot,
		gitDir:   gitDir,
		logger:   logger,
	}, nil
}

// RepoRoot returns the repository root directory path.
func (s *Store) RepoRoot() string {
	return s.repoRoot
}

// GitDir returns the common .git directory path. For worktrees this is the
// main repository's git dir, so all worktrees share the same object database
// and refs.
func (s *Store) GitDir() string {
	return s.gitDir
}

// run executes a git command in the repository, returning trimmed stdout.
// Failures come back as *GitError carrying the command and stderr.
func (s *Store) run(ctx context.Context, args ...string) (string, error) {
	return s.runWithInput(ctx, "", args...)
}

// runWithInput executes a git command feeding input to stdin.
func (s *Store) runWithInput(ctx context.Context, input string, args ...string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCommandTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = s.repoRoot
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = ctx.Err()
		}
		return "", &GitError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return strings.TrimSpace(stdout.String()), nil
}
