package tasksync

import (
	"sort"

	"github.com/lavallee/cub/internal/task"
)

// mergeOutcome is the result of reconciling two task sets.
type mergeOutcome struct {
	// tasks is the merged task set.
	tasks []task.Task

	// conflicts lists tasks present on both sides with differing content,
	// in task-id order.
	conflicts []Conflict

	// updated counts records that changed relative to the local side:
	// remote-only additions plus conflicts the remote won.
	updated int
}

// mergeTasks reconciles local and remote task sets at per-task-id
// granularity. A task present on only one side is kept; a task present on
// both with different content resolves by comparing updated_at, later wins.
// Exact timestamp ties prefer remote: a fixed, deliberate tie-break that
// keeps resolution deterministic across worktrees. No task with no
// counterpart is ever dropped.
func mergeTasks(local, remote []task.Task) mergeOutcome {
	localByID := task.Index(local)
	remoteByID := task.Index(remote)

	ids := make([]string, 0, len(localByID)+len(remoteByID))
	for id := range localByID {
		ids = append(ids, id)
	}
	for id := range remoteByID {
		if _, ok := localByID[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var out mergeOutcome
	for _, id := range ids {
		localTask, haveLocal := localByID[id]
		remoteTask, haveRemote := remoteByID[id]

		switch {
		case haveLocal && !haveRemote:
			out.tasks = append(out.tasks, localTask)

		case !haveLocal && haveRemote:
			out.tasks = append(out.tasks, remoteTask)
			out.updated++

		case localTask.ContentEquals(remoteTask):
			out.tasks = append(out.tasks, localTask)

		default:
			winner, winnerTask := WinnerRemote, remoteTask
			if localTask.UpdatedAt.After(remoteTask.UpdatedAt) {
				winner, winnerTask = WinnerLocal, localTask
			}
			if winner == WinnerRemote {
				out.updated++
			}
			out.tasks = append(out.tasks, winnerTask)
			out.conflicts = append(out.conflicts, Conflict{
				TaskID:     id,
				Resolution: ResolutionLastWriteWins,
				Winner:     winner,
			})
		}
	}

	return out
}
