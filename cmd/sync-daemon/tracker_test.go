package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRunTracker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", ".daemon-state")
	tracker := NewRunTracker(path)

	if !tracker.LastRun().IsZero() {
		t.Fatal("expected zero time without a state file")
	}

	at := time.Date(2025, 3, 4, 18, 30, 0, 0, time.UTC)
	if err := tracker.SetLastRun(at); err != nil {
		t.Fatalf("SetLastRun failed: %v", err)
	}
	if got := tracker.LastRun(); !got.Equal(at) {
		t.Errorf("LastRun() = %v, want %v", got, at)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the state file, found %d entries", len(entries))
	}
}

func TestRunTracker_CorruptState(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".daemon-state")
	if err := os.WriteFile(path, []byte("2025-03-04\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if !NewRunTracker(path).LastRun().IsZero() {
		t.Error("expected zero time for unparseable state")
	}
}
