// Package watch provides the auto-commit watcher.
//
// The watcher monitors the local tasks file and commits edits to the sync
// branch after a short quiet period, so rapid saves collapse into one
// commit.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Committer commits the local tasks file to the sync branch.
type Committer interface {
	Commit(ctx context.Context, message string) (string, bool, error)
}

// Config holds configuration for the watcher.
type Config struct {
	// DebounceInterval is the quiet period required before committing.
	// Rapid saves within this window collapse into one commit.
	DebounceInterval time.Duration

	// Message is the commit message used for auto-commits.
	Message string

	// Logger for watcher activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 500 * time.Millisecond,
		Message:          "Auto-commit task changes",
		Logger:           log.New(os.Stderr, "[watch] ", log.LstdFlags),
	}
}

// Watcher monitors the tasks file and auto-commits changes.
type Watcher struct {
	committer Committer
	tasksFile string
	config    *Config

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	dirtyAt time.Time
	dirty   bool

	wg sync.WaitGroup
}

// New creates a watcher for the tasks file at tasksFile.
func New(committer Committer, tasksFile string) (*Watcher, error) {
	return NewWithConfig(committer, tasksFile, DefaultConfig())
}

// NewWithConfig creates a watcher with custom configuration.
func NewWithConfig(committer Committer, tasksFile string, config *Config) (*Watcher, error) {
	if committer == nil {
		return nil, fmt.Errorf("committer cannot be nil")
	}
	if tasksFile == "" {
		return nil, fmt.Errorf("tasksFile cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		committer: committer,
		tasksFile: tasksFile,
		config:    config,
		watcher:   fsw,
	}, nil
}

// Run watches until ctx is cancelled.
//
// The parent directory is watched rather than the file itself so that
// editors doing atomic rename saves keep triggering events.
func (w *Watcher) Run(ctx context.Context) error {
	dir := filepath.Dir(w.tasksFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create watch directory: %w", err)
	}
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.config.Logger.Printf("Watching %s", w.tasksFile)

	w.wg.Add(2)
	go w.watchFileEvents(ctx)
	go w.commitLoop(ctx)

	<-ctx.Done()
	if err := w.watcher.Close(); err != nil {
		w.config.Logger.Printf("Error closing watcher: %v", err)
	}
	w.wg.Wait()

	w.config.Logger.Println("Watcher stopped")
	return nil
}

// watchFileEvents marks the tasks file dirty on relevant events.
func (w *Watcher) watchFileEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.tasksFile) {
				continue
			}

			w.mu.Lock()
			w.dirty = true
			w.dirtyAt = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// commitLoop commits once the file has been quiet for the debounce window.
func (w *Watcher) commitLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.DebounceInterval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			w.mu.Lock()
			ready := w.dirty && time.Since(w.dirtyAt) >= w.config.DebounceInterval
			if ready {
				w.dirty = false
			}
			w.mu.Unlock()

			if !ready {
				continue
			}

			sha, changed, err := w.committer.Commit(ctx, w.config.Message)
			if err != nil {
				w.config.Logger.Printf("Auto-commit failed: %v", err)
				continue
			}
			if changed {
				w.config.Logger.Printf("Auto-committed %s", shortSHA(sha))
			}
		}
	}
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
