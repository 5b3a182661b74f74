// Package counter issues unique, increasing integers shared across any
// number of concurrent worktrees, with no coordinator.
//
// Two independent counters live in counters.json on the sync branch: spec
// numbers and standalone task numbers. Every allocation re-reads the branch
// tip, increments its target field, and publishes the result with a
// compare-and-swap on the branch ref. A lost race persists nothing, so no
// integer is ever burned; the winner's value is simply re-read on retry.
package counter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/lavallee/cub/internal/cas"
	"github.com/lavallee/cub/internal/gitstore"
	"github.com/lavallee/cub/internal/task"
)

// AllocationError reports that allocation retries were exhausted under
// contention.
type AllocationError struct {
	// Retries is the number of attempts that lost their race.
	Retries int
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("counter allocation failed after %d contended attempts", e.Retries)
}

// Allocator hands out counter values against the sync branch.
type Allocator struct {
	store        *gitstore.Store
	branch       string
	countersPath string
	tasksPath    string
	policy       cas.Policy
	logger       *log.Logger
}

// Config carries Allocator construction parameters.
type Config struct {
	// Branch is the sync branch name, e.g. "cub-sync".
	Branch string

	// CountersPath is the counters file path within the branch tree.
	CountersPath string

	// TasksPath is the absolute path of the local tasks file, scanned
	// during first-run seeding.
	TasksPath string

	// Policy overrides the retry schedule. Zero value uses the default.
	Policy cas.Policy

	// Logger receives warnings and allocation traces. Nil uses stderr.
	Logger *log.Logger
}

// NewAllocator creates an Allocator backed by store.
func NewAllocator(store *gitstore.Store, cfg Config) *Allocator {
	policy := cfg.Policy
	if policy.MaxRetries == 0 {
		policy = cas.DefaultPolicy()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[counter] ", log.LstdFlags)
	}
	countersPath := cfg.CountersPath
	if countersPath == "" {
		countersPath = "counters.json"
	}

	return &Allocator{
		store:        store,
		branch:       cfg.Branch,
		countersPath: countersPath,
		tasksPath:    cfg.TasksPath,
		policy:       policy,
		logger:       logger,
	}
}

// AllocateSpecNumber issues the next spec number.
func (a *Allocator) AllocateSpecNumber(ctx context.Context) (uint64, error) {
	return a.allocate(ctx, "spec number", func(s *State) *uint64 { return &s.SpecNumber })
}

// AllocateStandaloneNumber issues the next standalone task number.
func (a *Allocator) AllocateStandaloneNumber(ctx context.Context) (uint64, error) {
	return a.allocate(ctx, "standalone task number", func(s *State) *uint64 { return &s.StandaloneTaskNumber })
}

// allocate runs one full OCC allocation for the field selected by pick.
// The state is re-read from the branch tip at the start of every attempt;
// nothing is cached across attempts or processes.
func (a *Allocator) allocate(ctx context.Context, what string, pick func(*State) *uint64) (uint64, error) {
	ref := gitstore.BranchRef(a.branch)

	var issued uint64
	attempts, err := cas.Run(ctx, a.policy, func(ctx context.Context) (bool, error) {
		tip, err := a.store.ResolveRef(ctx, ref)
		if err != nil {
			return false, err
		}

		state, err := a.readStateAt(ctx, tip)
		if err != nil {
			return false, err
		}

		field := pick(&state)
		issued = *field
		*field++

		message := fmt.Sprintf("cub: allocate %s %d", what, issued)
		newSHA, err := a.commitState(ctx, tip, state, message)
		if err != nil {
			return false, err
		}

		return a.store.UpdateRef(ctx, ref, newSHA, tip)
	})
	if err != nil {
		var exhausted *cas.ExhaustedError
		if errors.As(err, &exhausted) {
			return 0, &AllocationError{Retries: exhausted.Attempts}
		}
		return 0, err
	}

	if attempts > 1 {
		a.logger.Printf("allocated %s %d after %d attempts", what, issued, attempts)
	}
	return issued, nil
}

// ReadCounters returns the counter state at the current branch tip.
func (a *Allocator) ReadCounters(ctx context.Context) (State, error) {
	tip, err := a.store.ResolveRef(ctx, gitstore.BranchRef(a.branch))
	if err != nil {
		return State{}, err
	}
	return a.readStateAt(ctx, tip)
}

// readStateAt reads counters.json at a commit. An empty tip or an absent
// or corrupt file all decode to the zero state.
func (a *Allocator) readStateAt(ctx context.Context, tip string) (State, error) {
	if tip == "" {
		return State{}, nil
	}
	data, err := a.store.FileAtRef(ctx, tip, a.countersPath)
	if err != nil {
		return State{}, err
	}
	return DecodeState(data, a.logger), nil
}

// commitState writes state as a new commit on top of tip, preserving every
// other path in the tree, and returns the new commit sha.
func (a *Allocator) commitState(ctx context.Context, tip string, state State, message string) (string, error) {
	blobSHA, err := a.store.WriteBlob(ctx, state.Encode())
	if err != nil {
		return "", err
	}

	baseTree := ""
	if tip != "" {
		baseTree, err = a.store.TreeOf(ctx, tip)
		if err != nil {
			return "", err
		}
	}

	treeSHA, err := a.store.BuildTree(ctx, baseTree, a.countersPath, blobSHA)
	if err != nil {
		return "", err
	}

	var parents []string
	if tip != "" {
		parents = []string{tip}
	}
	return a.store.CommitTree(ctx, treeSHA, parents, message)
}

// EnsureCounters seeds counters.json on first run. When the file is absent
// from the branch tip, the local tasks file is scanned for the highest
// already-used spec and standalone numbers and the counters start at max+1
// (0 when none are found), so a pre-existing task corpus never collides
// with freshly allocated ids. Idempotent once the file exists.
func (a *Allocator) EnsureCounters(ctx context.Context) error {
	ref := gitstore.BranchRef(a.branch)

	_, err := cas.Run(ctx, a.policy, func(ctx context.Context) (bool, error) {
		tip, err := a.store.ResolveRef(ctx, ref)
		if err != nil {
			return false, err
		}

		if tip != "" {
			data, err := a.store.FileAtRef(ctx, tip, a.countersPath)
			if err != nil {
				return false, err
			}
			if data != nil {
				return true, nil // already seeded
			}
		}

		seed := a.seedFromTasksFile()
		newSHA, err := a.commitState(ctx, tip, seed, "cub: initialize counters")
		if err != nil {
			return false, err
		}

		return a.store.UpdateRef(ctx, ref, newSHA, tip)
	})
	if err != nil {
		var exhausted *cas.ExhaustedError
		if errors.As(err, &exhausted) {
			return &AllocationError{Retries: exhausted.Attempts}
		}
		return err
	}
	return nil
}

// seedFromTasksFile computes the initial counter state from ids already in
// use locally. Foreign ids are ignored.
func (a *Allocator) seedFromTasksFile() State {
	data, err := os.ReadFile(a.tasksPath)
	if err != nil {
		return State{}
	}

	var seed State
	for _, t := range task.Parse(data, a.logger) {
		id, ok := ParseTaskID(t.ID)
		if !ok {
			continue
		}
		switch id := id.(type) {
		case SpecTaskID:
			if id.Spec+1 > seed.SpecNumber {
				seed.SpecNumber = id.Spec + 1
			}
		case StandaloneTaskID:
			if id.Number+1 > seed.StandaloneTaskNumber {
				seed.StandaloneTaskNumber = id.Number + 1
			}
		}
	}
	return seed
}
