package watcher

import "context"

// FileWatcher monitors source directories and reports debounced batches of changed files.
type FileWatcher interface {
	// Start begins watching, calling callback with each debounced batch.
	// Batches are sorted and contain each path once.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the file watcher and cleans up resources.
	Stop() error
}

// ChangeHandler rescans files reported by a FileWatcher.
type ChangeHandler interface {
	// HandleChanges processes one batch. Files that no longer exist are reported as removed.
	HandleChanges(ctx context.Context, files []string) (*ScanStats, error)
}

// Selector decides which files under a watched root are relevant.
// relPath is slash-separated and relative to that root.
type Selector interface {
	Selects(relPath string) bool
}

// ScanStats summarizes one rescan.
type ScanStats struct {
	FilesScanned int
	FilesRemoved int
	Declarations int
	Skipped      int
}
