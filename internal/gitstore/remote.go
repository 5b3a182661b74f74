package gitstore

import (
	"context"
	"errors"
	"strings"
)

// HasRemote returns true if the named remote is configured.
func (s *Store) HasRemote(ctx context.Context, remote string) bool {
	out, err := s.run(ctx, "remote")
	if err != nil {
		return false
	}
	for _, name := range strings.Fields(out) {
		if name == remote {
			return true
		}
	}
	return false
}

// FetchBranch fetches the branch from the remote into its remote-tracking
// ref. The tracking ref mirrors the remote unconditionally; the local
// branch is never touched.
func (s *Store) FetchBranch(ctx context.Context, remote, branch string) error {
	if !s.HasRemote(ctx, remote) {
		return ErrNoRemote
	}

	refspec := "+" + BranchRef(branch) + ":" + RemoteTrackingRef(remote, branch)
	_, err := s.run(ctx, "fetch", remote, refspec)
	return err
}

// PushBranch pushes the local branch tip to the remote. The push is never
// forced; a non-fast-forward rejection returns ErrPushRejected and leaves
// the remote ref unchanged.
func (s *Store) PushBranch(ctx context.Context, remote, branch string) error {
	if !s.HasRemote(ctx, remote) {
		return ErrNoRemote
	}

	_, err := s.run(ctx, "push", remote, BranchRef(branch)+":"+BranchRef(branch))
	if err != nil {
		var gitErr *GitError
		if errors.As(err, &gitErr) {
			stderr := gitErr.Stderr
			if strings.Contains(stderr, "rejected") || strings.Contains(stderr, "non-fast-forward") {
				return ErrPushRejected
			}
		}
		return err
	}
	return nil
}

// MergeBase returns the best common ancestor of two commits, or "" when the
// histories are unrelated.
func (s *Store) MergeBase(ctx context.Context, a, b string) (string, error) {
	out, err := s.run(ctx, "merge-base", a, b)
	if err != nil {
		if exitedWithoutStderr(err) {
			return "", nil
		}
		return "", err
	}
	return out, nil
}

// IsAncestor reports whether ancestor is an ancestor of descendant.
func (s *Store) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	_, err := s.run(ctx, "merge-base", "--is-ancestor", ancestor, descendant)
	if err != nil {
		if exitedWithoutStderr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
