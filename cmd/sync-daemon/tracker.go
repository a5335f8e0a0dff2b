package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RunTracker persists the start time of the last sync run so restarts
// do not trigger an early run.
type RunTracker struct {
	stateFile string
}

func NewRunTracker(stateFile string) *RunTracker {
	return &RunTracker{stateFile: stateFile}
}

// LastRun returns the recorded time, or the zero time if none is recorded.
func (t *RunTracker) LastRun() time.Time {
	data, err := os.ReadFile(t.stateFile)
	if err != nil {
		return time.Time{}
	}
	last, err := time.Parse(time.RFC3339, strings.TrimSpace(string(data)))
	if err != nil {
		return time.Time{}
	}
	return last
}

// SetLastRun records the run time, replacing the state file atomically.
func (t *RunTracker) SetLastRun(at time.Time) error {
	dir := filepath.Dir(t.stateFile)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".daemon-state-*")
	if err != nil {
		return fmt.Errorf("creating state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(at.UTC().Format(time.RFC3339) + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing state file: %w", err)
	}
	return os.Rename(tmp.Name(), t.stateFile)
}
