package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lavallee/cub/internal/cache"
	"github.com/lavallee/cub/internal/ui"
)

var tasksStatus string

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Query the task index",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks from the local index",
	Long: `List indexed tasks, most recently updated first. The index reflects
the sync branch tip as of its last rebuild; run 'cub tasks index' or
any sync command to refresh it.`,
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer e.close()

		db, err := cache.Open(e.cfg.IndexPath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening task index: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		ctx := cmd.Context()
		tasks, err := db.ListTasks(ctx, tasksStatus)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing tasks: %v\n", err)
			os.Exit(1)
		}
		if len(tasks) == 0 {
			fmt.Printf("%s No tasks indexed (run 'cub tasks index')\n", ui.RenderAccent("·"))
			return
		}

		p := ui.NewStdoutPrinter()
		rows := make([][]string, 0, len(tasks))
		for _, t := range tasks {
			rows = append(rows, []string{
				t.ID,
				t.Status,
				t.UpdatedAt.Local().Format(time.DateTime),
				t.Title,
			})
		}
		p.Table([]string{"ID", "STATUS", "UPDATED", "TITLE"}, rows)
	},
}

var tasksIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the task index from the sync branch tip",
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer e.close()

		ctx := cmd.Context()
		svc := e.syncService(e.sink.Component("sync"))

		tasks, tip, err := svc.TasksAtTip(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		db, err := cache.Open(e.cfg.IndexPath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening task index: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.ReplaceAll(ctx, tasks, tip); err != nil {
			fmt.Fprintf(os.Stderr, "Error rebuilding index: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Indexed %d tasks at %s\n", ui.RenderPass("✓"), len(tasks), shortSHA(tip))
	},
}

func init() {
	tasksListCmd.Flags().StringVar(&tasksStatus, "status", "", "filter by task status")

	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksIndexCmd)
}
