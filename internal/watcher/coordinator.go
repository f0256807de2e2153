package watcher

import (
	"context"
	"log"
)

// WatchCoordinator routes debounced file batches from a FileWatcher to a ChangeHandler.
type WatchCoordinator struct {
	files   FileWatcher
	handler ChangeHandler
	ctx     context.Context
}

// NewWatchCoordinator creates a new watch coordinator.
func NewWatchCoordinator(files FileWatcher, handler ChangeHandler) *WatchCoordinator {
	return &WatchCoordinator{
		files:   files,
		handler: handler,
	}
}

// Start begins routing events to the handler.
// Blocks until context is cancelled or the watcher fails to start.
func (c *WatchCoordinator) Start(ctx context.Context) error {
	c.ctx = ctx

	if err := c.files.Start(ctx, c.handleFileChange); err != nil {
		c.cleanup()
		return err
	}

	<-ctx.Done()
	c.cleanup()
	return ctx.Err()
}

// cleanup stops the file watcher.
func (c *WatchCoordinator) cleanup() {
	if err := c.files.Stop(); err != nil {
		log.Printf("Warning: file watcher stop failed: %v", err)
	}
}

// handleFileChange processes one batch of changed files.
func (c *WatchCoordinator) handleFileChange(files []string) {
	if len(files) == 0 {
		return
	}

	log.Printf("Processing %d file change(s)...", len(files))

	stats, err := c.handler.HandleChanges(c.ctx, files)
	if err != nil {
		log.Printf("Error: rescan failed: %v", err)
		return
	}

	log.Printf("✓ Rescanned %d file(s) (%d declarations, %d skipped, %d removed)",
		stats.FilesScanned, stats.Declarations, stats.Skipped, stats.FilesRemoved)
}
