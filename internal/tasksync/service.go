// Package tasksync keeps a local task list eventually consistent with
// other worktrees through a dedicated, never-checked-out sync branch.
//
// The branch holds two files, counters.json and the tasks file, as a
// commit history mutated exclusively through compare-and-swap on the
// branch ref. Commit snapshots the local tasks file onto the branch, pull
// reconciles remote commits at per-task-id granularity with last-write-wins
// resolution, and push fast-forwards the remote ref. The user's working
// tree, index, and current checkout are never touched.
package tasksync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/lavallee/cub/internal/cas"
	"github.com/lavallee/cub/internal/gitstore"
	"github.com/lavallee/cub/internal/task"
)

// Config carries Service construction parameters.
type Config struct {
	// Branch is the sync branch name, e.g. "cub-sync".
	Branch string

	// Remote is the remote name used by pull/push, e.g. "origin".
	Remote string

	// TasksPath is the absolute path of the local tasks file.
	TasksPath string

	// TasksTreePath is the tasks file path within the branch tree.
	TasksTreePath string

	// CountersPath is the counters file path within the branch tree.
	CountersPath string

	// StatePath is the absolute path of the local bookkeeping file.
	StatePath string

	// Policy overrides the CAS retry schedule. Zero value uses the default.
	Policy cas.Policy

	// Logger receives warnings and sync traces. Nil uses stderr.
	Logger *log.Logger
}

// Service reconciles local task state with the sync branch and classifies
// the local/remote relationship.
type Service struct {
	store  *gitstore.Store
	cfg    Config
	policy cas.Policy
	logger *log.Logger
}

// New creates a Service backed by store.
func New(store *gitstore.Store, cfg Config) *Service {
	policy := cfg.Policy
	if policy.MaxRetries == 0 {
		policy = cas.DefaultPolicy()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	if cfg.TasksTreePath == "" {
		cfg.TasksTreePath = "tasks.jsonl"
	}

	return &Service{
		store:  store,
		cfg:    cfg,
		policy: policy,
		logger: logger,
	}
}

// IsInitialized reports whether the sync branch exists.
func (s *Service) IsInitialized(ctx context.Context) bool {
	tip, err := s.store.ResolveRef(ctx, s.branchRef())
	return err == nil && tip != ""
}

// Initialize creates the sync branch as an orphan commit over an empty
// tree. Calling it when the branch already exists returns
// ErrAlreadyInitialized.
func (s *Service) Initialize(ctx context.Context) error {
	ref := s.branchRef()

	tip, err := s.store.ResolveRef(ctx, ref)
	if err != nil {
		return err
	}
	if tip != "" {
		return ErrAlreadyInitialized
	}

	emptyTree, err := s.store.EmptyTree(ctx)
	if err != nil {
		return err
	}
	commitSHA, err := s.store.CommitTree(ctx, emptyTree, nil, "cub: initialize sync branch")
	if err != nil {
		return err
	}

	ok, err := s.store.UpdateRef(ctx, ref, commitSHA, "")
	if err != nil {
		return err
	}
	if !ok {
		// Lost the creation race to another worktree.
		return ErrAlreadyInitialized
	}

	s.logger.Printf("initialized sync branch %s at %s", s.cfg.Branch, shortSHA(commitSHA))
	return s.recordSync(commitSHA)
}

// Commit snapshots the local tasks file into a new commit on the sync
// branch. When the resulting tree is identical to the current tip the call
// is a reported no-op: changed is false and sha is the existing tip. The
// diff is by tree content, not by whether a write was requested.
func (s *Service) Commit(ctx context.Context, message string) (sha string, changed bool, err error) {
	if message == "" {
		message = "cub: sync tasks"
	}

	data, err := s.readLocalTasksFile()
	if err != nil {
		return "", false, err
	}

	ref := s.branchRef()
	_, err = cas.Run(ctx, s.policy, func(ctx context.Context) (bool, error) {
		tip, err := s.store.ResolveRef(ctx, ref)
		if err != nil {
			return false, err
		}
		if tip == "" {
			return false, ErrNotInitialized
		}

		baseTree, err := s.store.TreeOf(ctx, tip)
		if err != nil {
			return false, err
		}

		blobSHA, err := s.store.WriteBlob(ctx, data)
		if err != nil {
			return false, err
		}
		newTree, err := s.store.BuildTree(ctx, baseTree, s.cfg.TasksTreePath, blobSHA)
		if err != nil {
			return false, err
		}

		if newTree == baseTree {
			sha, changed = tip, false
			return true, nil
		}

		commitSHA, err := s.store.CommitTree(ctx, newTree, []string{tip}, message)
		if err != nil {
			return false, err
		}

		ok, err := s.store.UpdateRef(ctx, ref, commitSHA, tip)
		if err != nil {
			return false, err
		}
		if ok {
			sha, changed = commitSHA, true
		}
		return ok, nil
	})
	if err != nil {
		return "", false, err
	}

	if changed {
		s.logger.Printf("committed tasks to %s at %s", s.cfg.Branch, shortSHA(sha))
		if err := s.recordSync(sha); err != nil {
			s.logger.Printf("WARNING: failed to record sync state: %v", err)
		}
	}
	return sha, changed, nil
}

// GetStatus classifies the local/remote relationship. It is read-only and
// safe to call before initialization; probes use a short timeout and a
// timed-out probe surfaces as an error, never as a guessed status.
func (s *Service) GetStatus(ctx context.Context) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, gitstore.ProbeTimeout)
	defer cancel()

	local, err := s.store.ResolveRef(ctx, s.branchRef())
	if err != nil {
		return StatusUninitialized, err
	}
	if local == "" {
		return StatusUninitialized, nil
	}

	if !s.store.HasRemote(ctx, s.cfg.Remote) {
		return StatusNoRemote, nil
	}

	remote, err := s.store.ResolveRef(ctx, gitstore.RemoteTrackingRef(s.cfg.Remote, s.cfg.Branch))
	if err != nil {
		return StatusUninitialized, err
	}
	if remote == "" {
		// Remote configured but the branch was never fetched or pushed:
		// everything local is unknown to the remote.
		return StatusAhead, nil
	}

	if local == remote {
		return StatusUpToDate, nil
	}

	remoteIsAncestor, err := s.store.IsAncestor(ctx, remote, local)
	if err != nil {
		return StatusUninitialized, err
	}
	if remoteIsAncestor {
		return StatusAhead, nil
	}

	localIsAncestor, err := s.store.IsAncestor(ctx, local, remote)
	if err != nil {
		return StatusUninitialized, err
	}
	if localIsAncestor {
		return StatusBehind, nil
	}

	return StatusDiverged, nil
}

// GetState returns the local bookkeeping state.
func (s *Service) GetState() State {
	state := loadState(s.cfg.StatePath, s.logger)
	if state.BranchName == "" {
		state.BranchName = s.cfg.Branch
	}
	if state.TasksFilePath == "" {
		state.TasksFilePath = s.cfg.TasksPath
	}
	return state
}

// Branch returns the configured sync branch name.
func (s *Service) Branch() string {
	return s.cfg.Branch
}

// TasksAtTip returns the tasks recorded at the sync branch tip along with
// the tip commit. Returns ErrNotInitialized when the branch does not exist.
func (s *Service) TasksAtTip(ctx context.Context) ([]task.Task, string, error) {
	tip, err := s.store.ResolveRef(ctx, s.branchRef())
	if err != nil {
		return nil, "", err
	}
	if tip == "" {
		return nil, "", ErrNotInitialized
	}
	tasks, err := s.tasksAt(ctx, tip)
	if err != nil {
		return nil, "", err
	}
	return tasks, tip, nil
}

func (s *Service) branchRef() string {
	return gitstore.BranchRef(s.cfg.Branch)
}

// readLocalTasksFile returns the local tasks file content; an absent file
// reads as empty.
func (s *Service) readLocalTasksFile() ([]byte, error) {
	data, err := os.ReadFile(s.cfg.TasksPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read tasks file: %w", err)
	}
	return data, nil
}

// writeLocalTasksFile replaces the local tasks file atomically.
func (s *Service) writeLocalTasksFile(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.cfg.TasksPath), 0o755); err != nil {
		return fmt.Errorf("failed to create tasks directory: %w", err)
	}

	tmpPath := s.cfg.TasksPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp tasks file: %w", err)
	}
	if err := os.Rename(tmpPath, s.cfg.TasksPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp tasks file: %w", err)
	}
	return nil
}

// tasksAt reads and parses the branch tasks file at a commit.
func (s *Service) tasksAt(ctx context.Context, commitSHA string) ([]task.Task, error) {
	data, err := s.store.FileAtRef(ctx, commitSHA, s.cfg.TasksTreePath)
	if err != nil {
		return nil, err
	}
	return task.Parse(data, s.logger), nil
}

// recordSync updates the local bookkeeping state after a successful commit
// or pull.
func (s *Service) recordSync(commitSHA string) error {
	state := s.GetState()
	state.LastCommitSHA = commitSHA
	state.LastSyncAt = time.Now().UTC()
	return saveState(s.cfg.StatePath, state)
}

// recordPush updates the bookkeeping state after a successful push.
func (s *Service) recordPush() error {
	state := s.GetState()
	state.LastPushAt = time.Now().UTC()
	return saveState(s.cfg.StatePath, state)
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
