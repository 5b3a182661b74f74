// cub is a task tracker whose shared state lives on a dedicated git branch.
//
// The sync branch is never checked out. All mutations go through git
// plumbing with compare-and-swap on the branch ref, so concurrent
// worktrees and processes never corrupt shared state.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/lavallee/cub/internal/config"
	"github.com/lavallee/cub/internal/counter"
	"github.com/lavallee/cub/internal/gitstore"
	"github.com/lavallee/cub/internal/logging"
	"github.com/lavallee/cub/internal/tasksync"
	"github.com/lavallee/cub/internal/ui"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "cub",
	Short: "Git-native task tracking for multiple worktrees",
	Long: `Cub keeps a shared task list and ID counters on a dedicated git sync
branch that is never checked out. Worktrees coordinate through atomic
ref updates, so any number of clones and agents can allocate IDs and
record tasks without stepping on each other.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(idCmd)

	if err := rootCmd.Execute(); err != nil {
		ui.NewStdoutPrinter().Error(err)
		os.Exit(1)
	}
}

// env bundles everything a command needs: the repository, its
// configuration, and a logger sink.
type env struct {
	store *gitstore.Store
	cfg   *config.Config
	sink  *logging.Sink
}

// openEnv locates the repository and loads configuration. Commands call
// this first and defer env.close.
func openEnv() (*env, error) {
	store, err := gitstore.New(".", nil)
	if err != nil {
		if errors.Is(err, gitstore.ErrNotInRepo) {
			return nil, fmt.Errorf("not in a git repository")
		}
		return nil, err
	}

	cfg, err := config.Load(store.RepoRoot())
	if err != nil {
		return nil, err
	}

	sink := logging.NewFileSink(cfg.LogPath())
	return &env{store: store, cfg: cfg, sink: sink}, nil
}

func (e *env) close() {
	_ = e.sink.Close()
}

// syncService builds the sync service from the environment.
func (e *env) syncService(logger *log.Logger) *tasksync.Service {
	return tasksync.New(e.store, tasksync.Config{
		Branch:        e.cfg.Branch,
		Remote:        e.cfg.Remote,
		TasksPath:     e.cfg.TasksPath(),
		TasksTreePath: config.TasksTreePath,
		CountersPath:  config.CountersTreePath,
		StatePath:     e.cfg.StatePath(),
		Logger:        logger,
	})
}

// allocator builds the counter allocator from the environment.
func (e *env) allocator(logger *log.Logger) *counter.Allocator {
	return counter.NewAllocator(e.store, counter.Config{
		Branch:       e.cfg.Branch,
		CountersPath: config.CountersTreePath,
		TasksPath:    e.cfg.TasksPath(),
		Logger:       logger,
	})
}
