package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lavallee/cub/internal/config"
	"github.com/lavallee/cub/internal/tasksync"
	"github.com/lavallee/cub/internal/ui"
)

var initBranch string

var syncInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the sync branch and seed counters",
	Long: `Create the sync branch with an empty initial commit and seed the ID
counters, scanning any existing local tasks file so future IDs never
collide with tasks recorded before cub was set up.

Also writes .cub/config.yaml with defaults when absent. Safe to run in
a repository where another worktree already initialized the branch.`,
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer e.close()

		if initBranch != "" {
			e.cfg.Branch = initBranch
		}
		if err := config.Write(e.store.RepoRoot(), e.cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
			os.Exit(1)
		}

		ctx := cmd.Context()
		svc := e.syncService(e.sink.Component("sync"))

		if err := svc.Initialize(ctx); err != nil {
			if errors.Is(err, tasksync.ErrAlreadyInitialized) {
				fmt.Printf("%s Sync branch %q already initialized\n", ui.RenderAccent("·"), e.cfg.Branch)
			} else {
				fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
				os.Exit(1)
			}
		} else {
			fmt.Printf("%s Created sync branch %q\n", ui.RenderPass("✓"), e.cfg.Branch)
		}

		alloc := e.allocator(e.sink.Component("counter"))
		if err := alloc.EnsureCounters(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error seeding counters: %v\n", err)
			os.Exit(1)
		}

		counters, err := alloc.ReadCounters(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading counters: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("   Next spec number: %d\n", counters.SpecNumber)
		fmt.Printf("   Next task number: %d\n", counters.StandaloneTaskNumber)
	},
}

func init() {
	syncInitCmd.Flags().StringVar(&initBranch, "branch", "", "sync branch name (default from config)")
}
