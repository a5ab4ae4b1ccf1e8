package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stridebuild/stride/pkg/execution"
)

// Store persists execution states under <workspace>/.stride/history, one JSON
// file per task. The recorded state becomes the "previous" side of the next
// detection pass.
type Store struct {
	dir string
}

// NewStore creates a history store rooted at the given workspace.
func NewStore(workspace string) *Store {
	return &Store{dir: filepath.Join(workspace, ".stride", "history")}
}

// Load returns the recorded execution state for a task. The second return
// value is false when no history exists yet; a missing history is not an
// error, it is the first-run fast path.
func (s *Store) Load(taskName string) (execution.PreviousExecutionState, bool, error) {
	data, err := os.ReadFile(s.path(taskName))
	if os.IsNotExist(err) {
		return execution.PreviousExecutionState{}, false, nil
	}
	if err != nil {
		return execution.PreviousExecutionState{}, false, fmt.Errorf("reading history for %s: %w", taskName, err)
	}

	var state execution.PreviousExecutionState
	if err := json.Unmarshal(data, &state); err != nil {
		return execution.PreviousExecutionState{}, false, fmt.Errorf("decoding history for %s: %w", taskName, err)
	}
	return state, true, nil
}

// Save records the execution state for a task, replacing any prior record.
// The write goes through a temp file and rename so a crash mid-write cannot
// leave a truncated history behind.
func (s *Store) Save(taskName string, state execution.PreviousExecutionState) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history for %s: %w", taskName, err)
	}

	tmp := s.path(taskName) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing history for %s: %w", taskName, err)
	}
	if err := os.Rename(tmp, s.path(taskName)); err != nil {
		return fmt.Errorf("committing history for %s: %w", taskName, err)
	}
	return nil
}

// Forget removes the recorded state for a task, forcing a full rebuild on the
// next run.
func (s *Store) Forget(taskName string) error {
	err := os.Remove(s.path(taskName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing history for %s: %w", taskName, err)
	}
	return nil
}

func (s *Store) path(taskName string) string {
	return filepath.Join(s.dir, taskName+".json")
}
