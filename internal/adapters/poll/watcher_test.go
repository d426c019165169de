package poll

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/rewatch/internal/domain/filter"
	"github.com/corey/rewatch/internal/ports"
)

const (
	testQuiet    = 30 * time.Millisecond
	testInterval = 50 * time.Millisecond
)

func newTestWatcher(t *testing.T) *Watcher {
	t.Helper()
	f := filter.New([]string{".git", "target"}, []string{".go"})
	w := NewWatcher(f, testQuiet, testInterval)
	t.Cleanup(func() { w.Stop() })
	return w
}

func waitForEvent(ch <-chan ports.ChangeEvent, timeout time.Duration) (ports.ChangeEvent, bool) {
	select {
	case ev := <-ch:
		return ev, true
	case <-time.After(timeout):
		return ports.ChangeEvent{}, false
	}
}

func TestWatcher_DetectsNewFile(t *testing.T) {
	dir := t.TempDir()

	w := newTestWatcher(t)
	require.NoError(t, w.Watch(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.go"), []byte("package main"), 0644))

	_, ok := waitForEvent(w.Events(), 2*time.Second)
	assert.True(t, ok, "expected event for new file")
}

func TestWatcher_DetectsModifiedFile(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(testFile, []byte("package main"), 0644))

	w := newTestWatcher(t)
	require.NoError(t, w.Watch(dir))

	// Different length so the size check catches it even on filesystems
	// with coarse mtime granularity.
	require.NoError(t, os.WriteFile(testFile, []byte("package main // edited"), 0644))

	_, ok := waitForEvent(w.Events(), 2*time.Second)
	assert.True(t, ok, "expected event for modified file")
}

func TestWatcher_DeleteIsNotATrigger(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "gone.go")
	require.NoError(t, os.WriteFile(testFile, []byte("package main"), 0644))

	w := newTestWatcher(t)
	require.NoError(t, w.Watch(dir))

	require.NoError(t, os.Remove(testFile))

	_, ok := waitForEvent(w.Events(), 500*time.Millisecond)
	assert.False(t, ok, "a deletion alone should not produce an event")
}

func TestWatcher_IgnoredDirsPruned(t *testing.T) {
	dir := t.TempDir()
	targetDir := filepath.Join(dir, "target", "debug")
	require.NoError(t, os.MkdirAll(targetDir, 0755))

	w := newTestWatcher(t)
	require.NoError(t, w.Watch(dir))

	os.WriteFile(filepath.Join(targetDir, "out.go"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)

	_, ok := waitForEvent(w.Events(), 500*time.Millisecond)
	assert.False(t, ok, "ignored or filtered paths should not produce events")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0644))

	_, ok = waitForEvent(w.Events(), 2*time.Second)
	assert.True(t, ok, "expected event for relevant file")
}

func TestWatcher_RootUnderIgnoredNameStillFires(t *testing.T) {
	// A watch root below a directory named like an ignore entry: only
	// names inside the tree may silence changes, never the root's own
	// ancestors.
	root := filepath.Join(t.TempDir(), "target", "app")
	require.NoError(t, os.MkdirAll(root, 0755))

	w := newTestWatcher(t)
	require.NoError(t, w.Watch(root))

	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0644))

	_, ok := waitForEvent(w.Events(), 2*time.Second)
	assert.True(t, ok, "expected event for a root nested under an ignored name")
}

func TestWatcher_BurstCollapsesToOneEvent(t *testing.T) {
	dir := t.TempDir()

	w := newTestWatcher(t)
	require.NoError(t, w.Watch(dir))

	// Several new files landing within one scan + debounce window.
	for i := 0; i < 4; i++ {
		name := filepath.Join(dir, "file"+string(rune('a'+i))+".go")
		require.NoError(t, os.WriteFile(name, []byte("package main"), 0644))
	}

	_, ok := waitForEvent(w.Events(), 2*time.Second)
	require.True(t, ok, "expected one event for the burst")

	_, ok = waitForEvent(w.Events(), 300*time.Millisecond)
	assert.False(t, ok, "burst should collapse to a single event")
}

func TestWatcher_RootRemovalReportsError(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "project")
	require.NoError(t, os.MkdirAll(root, 0755))

	w := newTestWatcher(t)
	require.NoError(t, w.Watch(root))

	require.NoError(t, os.RemoveAll(root))

	select {
	case err := <-w.Errors():
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a watch error after root removal")
	}
}

func TestWatcher_WatchMissingRootFails(t *testing.T) {
	w := newTestWatcher(t)
	err := w.Watch(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}

func TestWatcher_WatchFileRootFails(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.go")
	require.NoError(t, os.WriteFile(file, []byte("package main"), 0644))

	w := newTestWatcher(t)
	err := w.Watch(file)
	assert.Error(t, err)
}

func TestWatcher_StopCleanup(t *testing.T) {
	dir := t.TempDir()

	w := newTestWatcher(t)
	require.NoError(t, w.Watch(dir))
	require.NoError(t, w.Stop())

	os.WriteFile(filepath.Join(dir, "after.go"), []byte("package main"), 0644)

	_, ok := waitForEvent(w.Events(), 300*time.Millisecond)
	assert.False(t, ok, "events fired after Stop")

	assert.NoError(t, w.Stop())
}
