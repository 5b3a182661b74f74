package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/lavallee/cub/internal/cache"
	"github.com/lavallee/cub/internal/tasksync"
	"github.com/lavallee/cub/internal/ui"
)

var statusVerbose bool

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync branch state relative to the remote",
	Long: `Classify the local sync branch against its remote tracking ref:
up-to-date, ahead, behind, or diverged. Read-only; never fetches.

With --verbose, also reports per-status task counts from the local
index and the last sync times.`,
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer e.close()

		ctx := cmd.Context()
		svc := e.syncService(e.sink.Component("sync"))

		status, err := svc.GetStatus(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		p := ui.NewStdoutPrinter()
		p.KeyValue("Branch", svc.Branch())
		p.KeyValue("Status", renderStatus(status))

		if status == tasksync.StatusUninitialized {
			p.Dim("Run 'cub sync init' to create the sync branch")
			return
		}

		if !statusVerbose {
			return
		}

		state := svc.GetState()
		if state.LastCommitSHA != "" {
			p.KeyValue("Last commit", shortSHA(state.LastCommitSHA))
		}
		if !state.LastSyncAt.IsZero() {
			p.KeyValue("Last sync", state.LastSyncAt.Local().Format(time.RFC1123))
		}
		if !state.LastPushAt.IsZero() {
			p.KeyValue("Last push", state.LastPushAt.Local().Format(time.RFC1123))
		}

		printIndexCounts(cmd, e, p)
	},
}

func init() {
	syncStatusCmd.Flags().BoolVarP(&statusVerbose, "verbose", "v", false, "include task counts and sync times")
}

// renderStatus colors a status for terminal output.
func renderStatus(s tasksync.Status) string {
	switch s {
	case tasksync.StatusUpToDate:
		return ui.RenderPass(s.String())
	case tasksync.StatusDiverged:
		return ui.RenderWarn(s.String())
	case tasksync.StatusUninitialized:
		return ui.RenderFail(s.String())
	default:
		return ui.RenderAccent(s.String())
	}
}

// printIndexCounts reports per-status task counts from the sqlite index.
func printIndexCounts(cmd *cobra.Command, e *env, p *ui.Printer) {
	if _, err := os.Stat(e.cfg.IndexPath()); os.IsNotExist(err) {
		p.Dim("Task index not built yet (run 'cub tasks index')")
		return
	}

	db, err := cache.Open(e.cfg.IndexPath())
	if err != nil {
		p.Warn("failed to open task index: %v", err)
		return
	}
	defer db.Close()

	ctx := cmd.Context()
	total, err := db.Count(ctx)
	if err != nil {
		p.Warn("failed to count tasks: %v", err)
		return
	}
	p.KeyValue("Tasks", fmt.Sprintf("%d", total))

	counts, err := db.CountByStatus(ctx)
	if err != nil {
		p.Warn("failed to count tasks by status: %v", err)
		return
	}
	statuses := make([]string, 0, len(counts))
	for s := range counts {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		p.Print("   %s: %d\n", s, counts[s])
	}
}
