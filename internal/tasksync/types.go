package tasksync

import "time"

// Status classifies the relationship between the local sync branch and its
// remote counterpart.
type Status int

const (
	// StatusUninitialized means the sync branch does not exist locally.
	StatusUninitialized Status = iota

	// StatusNoRemote means the branch exists but no remote is configured.
	StatusNoRemote

	// StatusUpToDate means local and remote tips are equal.
	StatusUpToDate

	// StatusAhead means local has commits the remote lacks.
	StatusAhead

	// StatusBehind means the remote has commits local lacks.
	StatusBehind

	// StatusDiverged means both sides have unique commits.
	StatusDiverged
)

// String returns the status name used in CLI output.
func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusNoRemote:
		return "no-remote"
	case StatusUpToDate:
		return "up-to-date"
	case StatusAhead:
		return "ahead"
	case StatusBehind:
		return "behind"
	case StatusDiverged:
		return "diverged"
	default:
		return "unknown"
	}
}

// Conflict resolution constants. Last-write-wins is the only policy;
// exactly-equal timestamps prefer remote, a deliberate fixed tie-break.
const (
	ResolutionLastWriteWins = "last_write_wins"

	WinnerLocal  = "local"
	WinnerRemote = "remote"
)

// Conflict records one task-level conflict and how it was resolved.
// Conflicts are data, not errors: every conflict has a defined resolution.
type Conflict struct {
	TaskID     string `json:"task_id"`
	Resolution string `json:"resolution"`
	Winner     string `json:"winner"`
}

// Result reports the outcome of a sync operation.
type Result struct {
	Success      bool       `json:"success"`
	Operation    string     `json:"operation"`
	Message      string     `json:"message,omitempty"`
	TasksUpdated int        `json:"tasks_updated"`
	Conflicts    []Conflict `json:"conflicts,omitempty"`
}

// State is local-only bookkeeping for status display. It lives outside the
// shared branch and is never authoritative for correctness.
type State struct {
	BranchName    string    `json:"branch_name"`
	TasksFilePath string    `json:"tasks_file_path"`
	LastCommitSHA string    `json:"last_commit_sha,omitempty"`
	LastSyncAt    time.Time `json:"last_sync_at,omitempty"`
	LastPushAt    time.Time `json:"last_push_at,omitempty"`
}
