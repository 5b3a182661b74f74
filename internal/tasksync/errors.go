package tasksync

import "errors"

var (
	// ErrNotInitialized is returned when an operation requires the sync
	// branch but it has not been created yet.
	ErrNotInitialized = errors.New("sync branch not initialized (run 'cub sync init' first)")

	// ErrAlreadyInitialized is returned by Initialize when the sync
	// branch already exists. Re-initialization is a reported error, not
	// a silent success.
	ErrAlreadyInitialized = errors.New("sync branch already initialized")
)
