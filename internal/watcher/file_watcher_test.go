package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for FileWatcher:
// - NewFileWatcher creates watcher successfully with valid directories
// - NewFileWatcher returns error with invalid directory
// - Single file change fires callback after debounce
// - Rapid changes to several files are batched into one sorted callback
// - Deduplication (same file modified twice appears once in batch)
// - File deleted triggers callback
// - Directory added triggers recursive watch
// - Selector filtering uses paths relative to the watched root
// - Excluded files never trigger a callback
// - Stop() cleanup, context cancellation and concurrent Stop() calls are safe

// cSelector accepts .c files outside of an "ignored" directory.
type cSelector struct{}

func (cSelector) Selects(relPath string) bool {
	return strings.HasSuffix(relPath, ".c") && !strings.HasPrefix(relPath, "ignored/")
}

type batchRecorder struct {
	mu      sync.Mutex
	batches [][]string
	called  chan struct{}
}

func newBatchRecorder() *batchRecorder {
	return &batchRecorder{called: make(chan struct{}, 10)}
}

func (r *batchRecorder) callback(files []string) {
	r.mu.Lock()
	r.batches = append(r.batches, files)
	r.mu.Unlock()
	r.called <- struct{}{}
}

func (r *batchRecorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.called:
	case <-time.After(2 * time.Second):
		t.Fatal("Callback not called after timeout")
	}
}

func (r *batchRecorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.batches...)
}

func startWatcher(t *testing.T, dir string, opts Options) (*batchRecorder, FileWatcher) {
	t.Helper()
	if opts.Debounce == 0 {
		opts.Debounce = 100 * time.Millisecond
	}
	w, err := NewFileWatcher([]string{dir}, opts)
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })

	rec := newBatchRecorder()
	require.NoError(t, w.Start(context.Background(), rec.callback))
	time.Sleep(100 * time.Millisecond) // let the watcher settle
	return rec, w
}

func TestNewFileWatcher_Success(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher([]string{t.TempDir()}, Options{})
	require.NoError(t, err)
	require.NotNil(t, w)
	require.NoError(t, w.Stop())
}

func TestNewFileWatcher_InvalidDirectory(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher([]string{filepath.Join(t.TempDir(), "nonexistent")}, Options{})
	assert.Error(t, err)
	assert.Nil(t, w)
}

func TestFileWatcher_SingleFileChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec, _ := startWatcher(t, dir, Options{Selector: cSelector{}})

	file := filepath.Join(dir, "a.c")
	require.NoError(t, os.WriteFile(file, []byte("int a[1] = {1};"), 0644))

	rec.wait(t)
	batches := rec.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{file}, batches[0])
}

func TestFileWatcher_BatchedAndSorted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec, _ := startWatcher(t, dir, Options{Selector: cSelector{}, Debounce: 300 * time.Millisecond})

	c := filepath.Join(dir, "c.c")
	a := filepath.Join(dir, "a.c")
	b := filepath.Join(dir, "b.c")
	for _, f := range []string{c, a, b} {
		require.NoError(t, os.WriteFile(f, []byte("x"), 0644))
		time.Sleep(30 * time.Millisecond) // within debounce window
	}
	require.NoError(t, os.WriteFile(a, []byte("y"), 0644))

	rec.wait(t)
	batches := rec.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{a, b, c}, batches[0])
}

func TestFileWatcher_FileDeleted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "gone.c")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	rec, _ := startWatcher(t, dir, Options{Selector: cSelector{}})
	require.NoError(t, os.Remove(file))

	rec.wait(t)
	assert.Contains(t, rec.snapshot()[0], file)
}

func TestFileWatcher_DirectoryAdded(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec, _ := startWatcher(t, dir, Options{Selector: cSelector{}})

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0755))
	time.Sleep(200 * time.Millisecond) // allow the new directory to be registered

	file := filepath.Join(sub, "nested.c")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	rec.wait(t)
	assert.Contains(t, rec.snapshot()[0], file)
}

func TestFileWatcher_SelectorFiltering(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "ignored"), 0755))
	rec, _ := startWatcher(t, dir, Options{Selector: cSelector{}})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored", "skip.c"), []byte("x"), 0644))
	kept := filepath.Join(dir, "keep.c")
	require.NoError(t, os.WriteFile(kept, []byte("x"), 0644))

	rec.wait(t)
	assert.Equal(t, []string{kept}, rec.snapshot()[0])
}

func TestFileWatcher_Exclude(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, "out.c")
	rec, _ := startWatcher(t, dir, Options{Selector: cSelector{}, Exclude: []string{out}})

	require.NoError(t, os.WriteFile(out, []byte("generated"), 0644))

	select {
	case <-rec.called:
		t.Fatal("excluded file triggered a callback")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestFileWatcher_StopAndCancel(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher([]string{t.TempDir()}, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx, func([]string) {}))
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.Stop()
			}()
		}
		wg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return")
	}
}

func TestFileWatcher_StopWithoutStart(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher([]string{t.TempDir()}, Options{})
	require.NoError(t, err)
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
