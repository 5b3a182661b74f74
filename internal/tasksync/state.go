package tasksync

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// loadState reads the local bookkeeping file. An absent or corrupt file
// yields the zero state; corruption is logged as a warning, never an error.
func loadState(path string, logger *log.Logger) State {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		if logger != nil {
			logger.Printf("WARNING: corrupt sync state at %s, treating as empty: %v", path, err)
		}
		return State{}
	}
	return s
}

// saveState writes the bookkeeping file atomically via a temp file rename.
func saveState(path string, s State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sync state: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp state file: %w", err)
	}
	return nil
}
