package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lavallee/cub/internal/ui"
	"github.com/lavallee/cub/internal/watch"
)

var syncWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Auto-commit task file changes",
	Long: `Watch the local tasks file and commit edits to the sync branch after
a short quiet period. Rapid saves collapse into a single commit.

Runs until interrupted (Ctrl-C).`,
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer e.close()

		svc := e.syncService(e.sink.Component("sync"))

		w, err := watch.NewWithConfig(svc, e.cfg.TasksPath(), &watch.Config{
			DebounceInterval: watch.DefaultConfig().DebounceInterval,
			Message:          watch.DefaultConfig().Message,
			Logger:           e.sink.Component("watch"),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("%s Watching %s (Ctrl-C to stop)\n", ui.RenderAccent("👁"), e.cfg.TasksFile)
		if err := w.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}
