package gitstore

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by store operations.
//
// Check with errors.Is:
//
//	if errors.Is(err, gitstore.ErrNotInRepo) {
//	    // outside any git repository
//	}
var (
	// ErrNotInRepo is returned when the operation requires being inside
	// a git repository but none was found.
	ErrNotInRepo = errors.New("not in a git repository")

	// ErrNoRemote is returned when an operation requires a remote
	// but none is configured.
	ErrNoRemote = errors.New("no remote configured")

	// ErrPushRejected is returned when a push is rejected by the remote,
	// typically a non-fast-forward update.
	ErrPushRejected = errors.New("push rejected by remote")
)

// GitError reports a failed git subprocess invocation. A ref CAS mismatch is
// never reported as a GitError; see Store.UpdateRef.
type GitError struct {
	// Args are the git arguments that were executed.
	Args []string

	// Stderr is the captured standard error output.
	Stderr string

	// Err is the underlying process error (exit status, timeout, ...).
	Err error
}

func (e *GitError) Error() string {
	msg := fmt.Sprintf("git %s failed: %v", strings.Join(e.Args, " "), e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *GitError) Unwrap() error {
	return e.Err
}

// StderrExcerpt returns the first line of captured stderr, for user-facing
// messages.
func (e *GitError) StderrExcerpt() string {
	lines := strings.Split(strings.TrimSpace(e.Stderr), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[0])
}

// exitedWithoutStderr reports whether err is a GitError for a command that
// exited nonzero but printed nothing to stderr. Several plumbing commands
// (rev-parse --verify --quiet, merge-base) signal "not found" this way.
func exitedWithoutStderr(err error) bool {
	var gitErr *GitError
	if !errors.As(err, &gitErr) {
		return false
	}
	return strings.TrimSpace(gitErr.Stderr) == ""
}
