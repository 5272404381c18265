package shared

import (
	"errors"
	"os"
	"sync"
)

var exitCleanup = struct {
	mu    sync.Mutex
	paths []string
}{}

// ReleaseFile removes path immediately. When that fails the path is queued for [RunExitCleanup].
//
// Returns true if the file is gone now.
func ReleaseFile(path string) bool {
	if path == "" {
		return true
	}
	if err := os.Remove(path); err == nil || errors.Is(err, os.ErrNotExist) {
		return true
	}
	RemoveOnExit(path)
	return false
}

// RemoveOnExit queues path for deletion by [RunExitCleanup].
func RemoveOnExit(path string) {
	exitCleanup.mu.Lock()
	defer exitCleanup.mu.Unlock()
	exitCleanup.paths = append(exitCleanup.paths, path)
}

// RunExitCleanup removes every queued path, ignoring failures, and returns the paths that could not be removed.
//
// Intended to be deferred from main.
func RunExitCleanup() []string {
	exitCleanup.mu.Lock()
	defer exitCleanup.mu.Unlock()

	var remaining []string
	for _, p := range exitCleanup.paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			remaining = append(remaining, p)
		}
	}
	exitCleanup.paths = nil
	return remaining
}
