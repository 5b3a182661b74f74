package gitstore

import (
	"context"
	"strings"
)

// ZeroSHA is the all-zeros object name git uses to mean "no object".
const ZeroSHA = "0000000000000000000000000000000000000000"

// BranchRef returns the fully qualified ref for a local branch name.
func BranchRef(branch string) string {
	if strings.HasPrefix(branch, "refs/") {
		return branch
	}
	return "refs/heads/" + branch
}

// RemoteTrackingRef returns the fully qualified remote-tracking ref for a
// branch on the given remote.
func RemoteTrackingRef(remote, branch string) string {
	return "refs/remotes/" + remote + "/" + branch
}

// ResolveRef resolves a ref to a commit sha. A missing ref resolves to
// ("", nil), never an error.
func (s *Store) ResolveRef(ctx context.Context, ref string) (string, error) {
	out, err := s.run(ctx, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		if exitedWithoutStderr(err) {
			return "", nil
		}
		return "", err
	}
	return out, nil
}

// UpdateRef atomically moves ref to newSHA if and only if it currently
// points at expectedOld. An empty expectedOld means the ref must not exist
// yet. A CAS mismatch (including ref lock contention from a concurrent
// writer) returns (false, nil); it is an expected, retryable condition,
// not an error.
func (s *Store) UpdateRef(ctx context.Context, ref, newSHA, expectedOld string) (bool, error) {
	old := expectedOld
	if old == "" {
		old = ZeroSHA
	}

	_, err := s.run(ctx, "update-ref", ref, newSHA, old)
	if err != nil {
		if isRefCASFailure(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// isRefCASFailure reports whether err is an update-ref rejection caused by
// the ref not matching the expected old value, or by a concurrent writer
// holding the ref lock. Both resolve by re-reading the tip and retrying.
func isRefCASFailure(err error) bool {
	gitErr, ok := err.(*GitError)
	if !ok {
		return false
	}
	stderr := gitErr.Stderr
	if strings.Contains(stderr, "cannot lock ref") {
		return true
	}
	if strings.Contains(stderr, "Unable to create") && strings.Contains(stderr, ".lock") {
		return true
	}
	return false
}
