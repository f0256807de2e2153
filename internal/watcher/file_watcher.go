package watcher

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// Options configure a file watcher.
type Options struct {
	// Debounce is the quiet period after the last event before a batch fires.
	Debounce time.Duration
	// Selector filters files by their path relative to the watched root.
	// A nil Selector accepts every file.
	Selector Selector
	// Exclude lists files that never trigger a batch, such as our own output files.
	Exclude []string
}

// fileWatcher implements FileWatcher interface.
type fileWatcher struct {
	watcher       *fsnotify.Watcher
	roots         []string            // Absolute watched roots
	selector      Selector            // Relevance filter, may be nil
	exclude       map[string]bool     // Absolute paths that never trigger
	debounceTime  time.Duration       // Quiet period before firing callback
	callback      func(files []string)
	ctx           context.Context
	cancel        context.CancelFunc
	pending       map[string]bool // Changed files since the last batch
	pendingMu     sync.Mutex
	debounceTimer *time.Timer
	timerMu       sync.Mutex
	stopOnce      sync.Once     // Ensures Stop() is idempotent
	doneCh        chan struct{} // Signals watch goroutine has finished
}

// NewFileWatcher creates a watcher over dirs and all of their subdirectories.
func NewFileWatcher(dirs []string, opts Options) (FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	fw := &fileWatcher{
		watcher:      watcher,
		selector:     opts.Selector,
		exclude:      make(map[string]bool),
		debounceTime: opts.Debounce,
		pending:      make(map[string]bool),
		doneCh:       make(chan struct{}),
	}

	for _, path := range opts.Exclude {
		if abs, err := filepath.Abs(path); err == nil {
			fw.exclude[abs] = true
		}
	}

	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			watcher.Close()
			return nil, err
		}
		if err := fw.addDirectoriesRecursively(abs); err != nil {
			watcher.Close()
			return nil, err
		}
		fw.roots = append(fw.roots, abs)
	}

	return fw, nil
}

// Start begins watching for file changes.
func (fw *fileWatcher) Start(ctx context.Context, callback func(files []string)) error {
	if callback == nil {
		return nil
	}

	fw.callback = callback
	fw.ctx, fw.cancel = context.WithCancel(ctx)

	go fw.watch()
	return nil
}

// Stop stops the file watcher.
func (fw *fileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		if fw.cancel != nil {
			fw.cancel()
			// Wait for goroutine to finish (only if Start() was called)
			<-fw.doneCh
		} else {
			close(fw.doneCh)
		}

		err = fw.watcher.Close()
	})
	return err
}

// watch is the main event loop.
func (fw *fileWatcher) watch() {
	defer close(fw.doneCh)

	flushCh := make(chan struct{}, 1)

	for {
		select {
		case <-fw.ctx.Done():
			fw.stopDebounceTimer()
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			// New directories are watched too
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := fw.addDirectoriesRecursively(event.Name); err != nil {
						log.Printf("Warning: failed to watch new directory %s: %v", event.Name, err)
					}
					continue
				}
			}

			if !fw.shouldProcessEvent(event) {
				continue
			}

			fw.pendingMu.Lock()
			fw.pending[event.Name] = true
			fw.pendingMu.Unlock()

			fw.resetDebounceTimer(flushCh)

		case <-flushCh:
			fw.flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Warning: file watcher error: %v", err)
		}
	}
}

// flush hands the pending batch to the callback.
func (fw *fileWatcher) flush() {
	fw.pendingMu.Lock()
	if len(fw.pending) == 0 {
		fw.pendingMu.Unlock()
		return
	}

	files := make([]string, 0, len(fw.pending))
	for file := range fw.pending {
		files = append(files, file)
	}
	fw.pending = make(map[string]bool)
	fw.pendingMu.Unlock()

	slices.Sort(files)
	fw.callback(files)
}

// resetDebounceTimer restarts the quiet period.
func (fw *fileWatcher) resetDebounceTimer(flushCh chan struct{}) {
	fw.timerMu.Lock()
	defer fw.timerMu.Unlock()

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}

	fw.debounceTimer = time.AfterFunc(fw.debounceTime, func() {
		select {
		case flushCh <- struct{}{}:
		default:
		}
	})
}

// stopDebounceTimer stops the debounce timer if it exists.
func (fw *fileWatcher) stopDebounceTimer() {
	fw.timerMu.Lock()
	defer fw.timerMu.Unlock()

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
		fw.debounceTimer = nil
	}
}

// shouldProcessEvent keeps writes, creates, removes and renames of selected files.
func (fw *fileWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}

	if fw.exclude[event.Name] {
		return false
	}

	if fw.selector == nil {
		return true
	}

	rel, ok := fw.relativePath(event.Name)
	if !ok {
		return false
	}
	return fw.selector.Selects(rel)
}

// relativePath returns name relative to the innermost watched root containing it.
func (fw *fileWatcher) relativePath(name string) (string, bool) {
	best := ""
	for _, root := range fw.roots {
		if name == root || !strings.HasPrefix(name, root+string(filepath.Separator)) {
			continue
		}
		if len(root) > len(best) {
			best = root
		}
	}
	if best == "" {
		return "", false
	}

	rel, err := filepath.Rel(best, name)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// addDirectoriesRecursively adds all directories in the tree to the watcher.
func (fw *fileWatcher) addDirectoriesRecursively(rootPath string) error {
	return filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// If it's the root path, fail immediately
			if path == rootPath {
				return err
			}
			log.Printf("Warning: error accessing %s: %v", path, err)
			return nil
		}

		if !info.IsDir() {
			return nil
		}

		if err := fw.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to watch directory %s: %v", path, err)
		}
		return nil
	})
}
