package tasksync

import (
	"context"
	"errors"
	"fmt"

	"github.com/lavallee/cub/internal/cas"
	"github.com/lavallee/cub/internal/counter"
	"github.com/lavallee/cub/internal/gitstore"
	"github.com/lavallee/cub/internal/task"
)

// Pull fetches the remote sync branch and reconciles it with the local
// branch at per-task-id granularity.
//
// Absence of a remote and network failures are reported results, never
// errors: offline operation stays fully functional. Content conflicts are
// data; the pull succeeds mechanically even with conflicts since every
// conflict has a defined resolution. Only local object-database problems
// and an uninitialized branch return an error.
func (s *Service) Pull(ctx context.Context) (*Result, error) {
	res := &Result{Operation: "pull"}

	if !s.IsInitialized(ctx) {
		return nil, ErrNotInitialized
	}

	if err := s.store.FetchBranch(ctx, s.cfg.Remote, s.cfg.Branch); err != nil {
		if errors.Is(err, gitstore.ErrNoRemote) {
			res.Message = "no remote configured"
			return res, nil
		}
		res.Message = "fetch failed: " + errorExcerpt(err)
		return res, nil
	}

	remoteSHA, err := s.store.ResolveRef(ctx, gitstore.RemoteTrackingRef(s.cfg.Remote, s.cfg.Branch))
	if err != nil {
		return nil, err
	}
	if remoteSHA == "" {
		res.Success = true
		res.Message = "remote has no sync branch yet"
		return res, nil
	}

	ref := s.branchRef()
	var (
		finalSHA   string
		finalTasks []task.Task
		rewrite    bool
	)

	_, err = cas.Run(ctx, s.policy, func(ctx context.Context) (bool, error) {
		local, err := s.store.ResolveRef(ctx, ref)
		if err != nil {
			return false, err
		}
		if local == "" {
			return false, ErrNotInitialized
		}

		// Remote already contained in local history: nothing to merge.
		if local == remoteSHA {
			finalSHA, rewrite = local, false
			return true, nil
		}
		contained, err := s.store.IsAncestor(ctx, remoteSHA, local)
		if err != nil {
			return false, err
		}
		if contained {
			finalSHA, rewrite = local, false
			return true, nil
		}

		localTasks, err := s.tasksAt(ctx, local)
		if err != nil {
			return false, err
		}
		remoteTasks, err := s.tasksAt(ctx, remoteSHA)
		if err != nil {
			return false, err
		}

		// Local strictly behind: fast-forward the ref and adopt remote
		// state wholesale. No concurrent edits, so no conflicts.
		behind, err := s.store.IsAncestor(ctx, local, remoteSHA)
		if err != nil {
			return false, err
		}
		if behind {
			ok, err := s.store.UpdateRef(ctx, ref, remoteSHA, local)
			if err != nil {
				return false, err
			}
			if ok {
				finalSHA, finalTasks, rewrite = remoteSHA, remoteTasks, true
				res.TasksUpdated = countChanged(localTasks, remoteTasks)
				res.Conflicts = nil
			}
			return ok, nil
		}

		// Diverged: merge per task id, then record a two-parent
		// reconciliation commit so a subsequent push fast-forwards.
		outcome := mergeTasks(localTasks, remoteTasks)

		mergedSHA, err := s.commitMerge(ctx, local, remoteSHA, outcome.tasks)
		if err != nil {
			return false, err
		}

		ok, err := s.store.UpdateRef(ctx, ref, mergedSHA, local)
		if err != nil {
			return false, err
		}
		if ok {
			finalSHA, finalTasks, rewrite = mergedSHA, outcome.tasks, true
			res.TasksUpdated = outcome.updated
			res.Conflicts = outcome.conflicts
		}
		return ok, nil
	})
	if err != nil {
		return nil, err
	}

	if rewrite {
		if err := s.writeLocalTasksFile(task.Marshal(finalTasks)); err != nil {
			return nil, err
		}
	}
	if err := s.recordSync(finalSHA); err != nil {
		s.logger.Printf("WARNING: failed to record sync state: %v", err)
	}

	res.Success = true
	switch {
	case len(res.Conflicts) > 0:
		res.Message = fmt.Sprintf("merged remote with %d conflict(s)", len(res.Conflicts))
		s.logger.Printf("pull merged %s with %d conflict(s), %d task(s) updated",
			shortSHA(remoteSHA), len(res.Conflicts), res.TasksUpdated)
	case rewrite:
		res.Message = "merged remote changes"
	default:
		res.Message = "already up to date"
	}
	return res, nil
}

// commitMerge writes the merged task set as a commit with both tips as
// parents. Counter state from both sides is reconciled field-wise max,
// preserving monotonicity regardless of which side allocated last.
func (s *Service) commitMerge(ctx context.Context, localSHA, remoteSHA string, merged []task.Task) (string, error) {
	countersPath := s.countersPath()

	localCounters, err := s.store.FileAtRef(ctx, localSHA, countersPath)
	if err != nil {
		return "", err
	}
	remoteCounters, err := s.store.FileAtRef(ctx, remoteSHA, countersPath)
	if err != nil {
		return "", err
	}
	mergedCounters := counter.DecodeState(localCounters, s.logger).
		Merge(counter.DecodeState(remoteCounters, s.logger))

	baseTree, err := s.store.TreeOf(ctx, localSHA)
	if err != nil {
		return "", err
	}

	tasksBlob, err := s.store.WriteBlob(ctx, task.Marshal(merged))
	if err != nil {
		return "", err
	}
	tree, err := s.store.BuildTree(ctx, baseTree, s.cfg.TasksTreePath, tasksBlob)
	if err != nil {
		return "", err
	}

	if localCounters != nil || remoteCounters != nil {
		countersBlob, err := s.store.WriteBlob(ctx, mergedCounters.Encode())
		if err != nil {
			return "", err
		}
		tree, err = s.store.BuildTree(ctx, tree, countersPath, countersBlob)
		if err != nil {
			return "", err
		}
	}

	message := fmt.Sprintf("cub: merge remote %s", shortSHA(remoteSHA))
	return s.store.CommitTree(ctx, tree, []string{localSHA, remoteSHA}, message)
}

// Push fast-forwards the remote ref to the local tip. A non-fast-forward
// rejection is a failure the caller resolves via Pull first; push never
// auto-merges and a rejected push leaves the remote ref unchanged.
func (s *Service) Push(ctx context.Context) (*Result, error) {
	res := &Result{Operation: "push"}

	if !s.IsInitialized(ctx) {
		return nil, ErrNotInitialized
	}

	err := s.store.PushBranch(ctx, s.cfg.Remote, s.cfg.Branch)
	switch {
	case errors.Is(err, gitstore.ErrNoRemote):
		res.Message = "no remote configured"
		return res, nil
	case errors.Is(err, gitstore.ErrPushRejected):
		res.Message = "push rejected: remote has new commits (run 'cub sync --pull' first)"
		return res, nil
	case err != nil:
		res.Message = "push failed: " + errorExcerpt(err)
		return res, nil
	}

	if err := s.recordPush(); err != nil {
		s.logger.Printf("WARNING: failed to record sync state: %v", err)
	}
	res.Success = true
	res.Message = "pushed " + s.cfg.Branch
	return res, nil
}

func (s *Service) countersPath() string {
	if s.cfg.CountersPath != "" {
		return s.cfg.CountersPath
	}
	return "counters.json"
}

// countChanged counts tasks in next that are new or differ from prev.
func countChanged(prev, next []task.Task) int {
	prevByID := task.Index(prev)
	changed := 0
	for _, t := range next {
		old, ok := prevByID[t.ID]
		if !ok || !old.ContentEquals(t) {
			changed++
		}
	}
	return changed
}

// errorExcerpt reduces an error to a single user-facing line, preferring
// the git stderr excerpt when available.
func errorExcerpt(err error) string {
	var gitErr *gitstore.GitError
	if errors.As(err, &gitErr) {
		if excerpt := gitErr.StderrExcerpt(); excerpt != "" {
			return excerpt
		}
	}
	return err.Error()
}
