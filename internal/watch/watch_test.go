package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagesmith/internal/testutil"
)

func startWatcher(t *testing.T, opts Options) *atomic.Int32 {
	t.Helper()
	var count atomic.Int32
	opts.Debounce = 50 * time.Millisecond
	w, err := New(opts, func(context.Context) { count.Add(1) })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return &count
}

func TestWatcher_RebuildsOnChange(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"src/index.md": "a", "src/docs/page.md": "b"})
	count := startWatcher(t, Options{Dirs: []string{filepath.Join(root, "src")}})

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "docs", "page.md"), []byte("changed"), 0o600))
	require.Eventually(t, func() bool { return count.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	root := t.TempDir()
	count := startWatcher(t, Options{Dirs: []string{root}})

	for i := range 5 {
		require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte{byte('a' + i)}, 0o600))
	}
	require.Eventually(t, func() bool { return count.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), count.Load())
}

func TestWatcher_PicksUpNewDirectories(t *testing.T) {
	root := t.TempDir()
	count := startWatcher(t, Options{Dirs: []string{root}})

	require.NoError(t, os.MkdirAll(filepath.Join(root, "new"), 0o750))
	require.Eventually(t, func() bool { return count.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)

	before := count.Load()
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "new", "p.md"), []byte("x"), 0o600))
	require.Eventually(t, func() bool { return count.Load() > before }, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_Relevance(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	out := filepath.Join(src, "_site")
	cfgFile := filepath.Join(root, "pagesmith.yaml")
	require.NoError(t, os.MkdirAll(out, 0o750))

	w, err := New(Options{Dirs: []string{src}, Files: []string{cfgFile}, Ignore: []string{out}}, func(context.Context) {})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.fs.Close() })

	assert.True(t, w.relevant(filepath.Join(src, "index.md")))
	assert.True(t, w.relevant(cfgFile))
	assert.False(t, w.relevant(filepath.Join(root, "other.yaml")))
	assert.False(t, w.relevant(filepath.Join(out, "index.html")))
	assert.False(t, w.relevant(filepath.Join(src, ".index.md.swp")))
}

func TestShouldIgnoreEvent(t *testing.T) {
	for _, name := range []string{".hidden", "file~", "x.swp", "x.swx", "#autosave#", "Thumbs.db", ".DS_Store"} {
		assert.True(t, shouldIgnoreEvent(filepath.Join("/tmp", name)), name)
	}
	assert.False(t, shouldIgnoreEvent("/tmp/index.md"))
}
