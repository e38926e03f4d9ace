package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRunStopNoServer(t *testing.T) {
	t.Parallel()

	pidPath := filepath.Join(t.TempDir(), "nonexistent.pid")

	err := runStop(pidPath, false, 1)
	if err == nil {
		t.Fatal("expected error when no server running")
	}
	if !strings.Contains(err.Error(), "not running") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunStopStalePIDFile(t *testing.T) {
	t.Parallel()

	pidPath := filepath.Join(t.TempDir(), "stale.pid")

	// PID file pointing at a process that does not exist
	info := &PIDFile{
		PID:       9999999,
		StartTime: time.Now(),
		Version:   "0.1.0",
	}
	if err := WritePIDFile(pidPath, info); err != nil {
		t.Fatalf("failed to write test PID file: %v", err)
	}

	err := runStop(pidPath, false, 1)
	if err == nil {
		t.Fatal("expected error for stale PID file")
	}
	if !strings.Contains(err.Error(), "stale") {
		t.Errorf("unexpected error: %v", err)
	}

	// The stale file is cleaned up as a side effect
	if _, statErr := os.Stat(pidPath); !os.IsNotExist(statErr) {
		t.Error("stale PID file should be removed")
	}
}

func TestCheckProcessRunning(t *testing.T) {
	t.Parallel()

	if !checkProcessRunning(os.Getpid()) {
		t.Error("current process should be detected as running")
	}
	if checkProcessRunning(9999999) {
		t.Error("PID 9999999 should not be running")
	}
}
