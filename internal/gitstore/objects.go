package gitstore

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

// FileAtRef returns the content of path in the tree of ref. A missing ref
// or a path absent from that tree returns (nil, nil), never an error.
func (s *Store) FileAtRef(ctx context.Context, ref, path string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCommandTimeout)
		defer cancel()
	}

	// cat-file output is the exact blob content, so bypass the trimming
	// helpers here.
	args := []string{"cat-file", "blob", ref + ":" + path}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = s.repoRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if isMissingObject(stderr.String()) {
			return nil, nil
		}
		if ctx.Err() == context.DeadlineExceeded {
			err = ctx.Err()
		}
		return nil, &GitError{Args: args, Stderr: stderr.String(), Err: err}
	}

	return stdout.Bytes(), nil
}

// isMissingObject reports whether stderr describes a ref or path that simply
// does not exist, as opposed to a broken object database.
func isMissingObject(stderr string) bool {
	for _, marker := range []string{
		"Not a valid object name",
		"invalid object name",
		"does not exist",
		"unknown revision",
	} {
		if strings.Contains(stderr, marker) {
			return true
		}
	}
	return false
}

// WriteBlob stores data as a blob object and returns its sha.
func (s *Store) WriteBlob(ctx context.Context, data []byte) (string, error) {
	return s.runWithInput(ctx, string(data), "hash-object", "-w", "--stdin")
}

// TreeOf returns the tree sha of a commit.
func (s *Store) TreeOf(ctx context.Context, commitSHA string) (string, error) {
	return s.run(ctx, "rev-parse", commitSHA+"^{tree}")
}

// EmptyTree writes (or finds) the empty tree object and returns its sha.
func (s *Store) EmptyTree(ctx context.Context) (string, error) {
	return s.runWithInput(ctx, "", "mktree")
}

// CommitTree creates a commit object for treeSHA with the given parents
// and message. No parents creates a root (orphan) commit; two parents
// record a reconciliation merge so that a later push fast-forwards.
func (s *Store) CommitTree(ctx context.Context, treeSHA string, parents []string, message string) (string, error) {
	args := []string{"commit-tree", treeSHA, "-m", message}
	for _, parent := range parents {
		if parent != "" {
			args = append(args, "-p", parent)
		}
	}
	return s.run(ctx, args...)
}

// BlobAtPath returns the blob sha of the entry at path within treeSHA, or
// "" if the path is not present.
func (s *Store) BlobAtPath(ctx context.Context, treeSHA, path string) (string, error) {
	out, err := s.run(ctx, "ls-tree", treeSHA, "--", path)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", nil
	}
	entry, err := parseTreeEntry(out)
	if err != nil {
		return "", err
	}
	return entry.SHA, nil
}
