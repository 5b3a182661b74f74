package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lavallee/cub/internal/cache"
	"github.com/lavallee/cub/internal/tasksync"
	"github.com/lavallee/cub/internal/ui"
)

var (
	syncMessage string
	syncPull    bool
	syncPush    bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Commit, pull, and push task state on the sync branch",
	Long: `Commit the local tasks file to the sync branch without touching the
working tree or index. With --pull, reconcile with the remote first;
with --push, publish the branch afterwards. Flags combine:

  cub sync                  commit local task changes
  cub sync --pull           commit, then merge remote changes
  cub sync --pull --push    full round trip`,
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer e.close()

		ctx := cmd.Context()
		svc := e.syncService(e.sink.Component("sync"))

		sha, changed, err := svc.Commit(ctx, syncMessage)
		if err != nil {
			if errors.Is(err, tasksync.ErrNotInitialized) {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stderr, "Error committing: %v\n", err)
			os.Exit(1)
		}
		if changed {
			fmt.Printf("%s Committed %s\n", ui.RenderPass("✓"), shortSHA(sha))
		} else {
			fmt.Printf("%s Nothing to commit\n", ui.RenderAccent("·"))
		}

		if syncPull {
			result, err := svc.Pull(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error pulling: %v\n", err)
				os.Exit(1)
			}
			renderResult(result)
			if !result.Success {
				os.Exit(1)
			}
		}

		rebuildIndex(ctx, e, svc)

		if syncPush {
			result, err := svc.Push(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error pushing: %v\n", err)
				os.Exit(1)
			}
			renderResult(result)
			if !result.Success {
				os.Exit(1)
			}
		}
	},
}

func init() {
	syncCmd.Flags().StringVarP(&syncMessage, "message", "m", "Update tasks", "commit message")
	syncCmd.Flags().BoolVar(&syncPull, "pull", false, "merge remote changes after committing")
	syncCmd.Flags().BoolVar(&syncPush, "push", false, "push the sync branch after committing")

	syncCmd.AddCommand(syncInitCmd)
	syncCmd.AddCommand(syncStatusCmd)
	syncCmd.AddCommand(syncWatchCmd)
}

// renderResult prints a sync result with conflict details.
func renderResult(r *tasksync.Result) {
	if !r.Success {
		fmt.Fprintf(os.Stderr, "%s %s: %s\n", ui.RenderFail("✗"), r.Operation, r.Message)
		return
	}

	fmt.Printf("%s %s\n", ui.RenderPass("✓"), r.Message)
	if r.TasksUpdated > 0 {
		fmt.Printf("   Tasks updated: %d\n", r.TasksUpdated)
	}
	for _, c := range r.Conflicts {
		fmt.Printf("   %s %s resolved (%s wins)\n", ui.RenderWarn("⚠"), c.TaskID, c.Winner)
	}
}

// rebuildIndex refreshes the sqlite index from the branch tip. Failures are
// warnings; the index is derived data.
func rebuildIndex(ctx context.Context, e *env, svc *tasksync.Service) {
	tasks, tip, err := svc.TasksAtTip(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to read branch tip for index: %v\n", err)
		return
	}

	db, err := cache.Open(e.cfg.IndexPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to open task index: %v\n", err)
		return
	}
	defer db.Close()

	if err := db.ReplaceAll(ctx, tasks, tip); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to rebuild task index: %v\n", err)
	}
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
