package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lavallee/cub/internal/counter"
	"github.com/lavallee/cub/internal/ui"
)

var idCmd = &cobra.Command{
	Use:   "id",
	Short: "Allocate and inspect task ID counters",
}

var idNextSpecCmd = &cobra.Command{
	Use:   "next-spec",
	Short: "Allocate the next spec number",
	Long: `Allocate the next spec number from the shared counter on the sync
branch. Allocation is a committed branch mutation, so two worktrees
can never receive the same number.`,
	Run: func(cmd *cobra.Command, args []string) {
		runAllocate(cmd, func(a *counter.Allocator) (uint64, error) {
			return a.AllocateSpecNumber(cmd.Context())
		})
	},
}

var idNextTaskCmd = &cobra.Command{
	Use:   "next-task",
	Short: "Allocate the next standalone task number",
	Run: func(cmd *cobra.Command, args []string) {
		runAllocate(cmd, func(a *counter.Allocator) (uint64, error) {
			return a.AllocateStandaloneNumber(cmd.Context())
		})
	},
}

var idShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current counter values",
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer e.close()

		alloc := e.allocator(e.sink.Component("counter"))
		state, err := alloc.ReadCounters(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading counters: %v\n", err)
			os.Exit(1)
		}

		p := ui.NewStdoutPrinter()
		p.KeyValue("Next spec number", fmt.Sprintf("%d", state.SpecNumber))
		p.KeyValue("Next task number", fmt.Sprintf("%d", state.StandaloneTaskNumber))
	},
}

// runAllocate runs an allocation and prints the issued number on stdout,
// keeping the output machine-readable for scripting.
func runAllocate(cmd *cobra.Command, alloc func(*counter.Allocator) (uint64, error)) {
	e, err := openEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer e.close()

	a := e.allocator(e.sink.Component("counter"))
	n, err := alloc(a)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error allocating: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(n)
}

func init() {
	idCmd.AddCommand(idNextSpecCmd)
	idCmd.AddCommand(idNextTaskCmd)
	idCmd.AddCommand(idShowCmd)
}
