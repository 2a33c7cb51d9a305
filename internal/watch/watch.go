// Package watch triggers site rebuilds when source files change.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
)

// DefaultDebounce is the quiet period after the last change before a
// rebuild starts.
const DefaultDebounce = 300 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Dirs are watched recursively; new subdirectories are picked up.
	Dirs []string
	// Files are watched through their parent directory.
	Files []string
	// Ignore lists directories whose events never trigger a rebuild.
	Ignore []string
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
}

// Watcher runs a rebuild function after filesystem changes. Bursts of events
// are debounced, and changes arriving during a rebuild queue exactly one
// follow-up rebuild.
type Watcher struct {
	opts    Options
	rebuild func(context.Context)
	fs      *fsnotify.Watcher
	files   map[string]bool
}

// New creates a watcher. Call Run to start processing events.
func New(opts Options, rebuild func(context.Context)) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRuntime, "create file watcher").Build()
	}
	w := &Watcher{opts: opts, rebuild: rebuild, fs: fw, files: make(map[string]bool)}
	for i, dir := range opts.Ignore {
		w.opts.Ignore[i] = absClean(dir)
	}
	for _, dir := range opts.Dirs {
		w.addDirsRecursive(absClean(dir))
	}
	for _, f := range opts.Files {
		abs := absClean(f)
		w.files[abs] = true
		if err := w.fs.Add(filepath.Dir(abs)); err != nil {
			slog.Warn("watch add failed", logfields.Path(abs), logfields.Error(err))
		}
	}
	return w, nil
}

// Run processes events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fs.Close() }()
	ctx, cancel := context.WithCancel(ctx)

	rebuildReq, trigger, stop := w.debouncer()
	defer stop()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.worker(ctx, rebuildReq)
	}()
	defer wg.Wait()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev, trigger)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event, trigger func()) {
	path := absClean(ev.Name)
	if !w.relevant(path) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(path); err == nil && fi.IsDir() {
			w.addDirsRecursive(path)
		}
	}
	slog.Debug("File change detected", logfields.Path(path), slog.String("op", ev.Op.String()))
	trigger()
}

// relevant reports whether an event on path should trigger a rebuild.
func (w *Watcher) relevant(path string) bool {
	if w.files[path] {
		return true
	}
	if shouldIgnoreEvent(path) || w.ignored(path) {
		return false
	}
	for _, dir := range w.opts.Dirs {
		dir = absClean(dir)
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) ignored(path string) bool {
	for _, dir := range w.opts.Ignore {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// debouncer returns the rebuild request channel and a trigger that fires it
// once the events have been quiet for the debounce period.
func (w *Watcher) debouncer() (chan struct{}, func(), func()) {
	var mu sync.Mutex
	var timer *time.Timer
	rebuildReq := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.opts.Debounce, func() {
			select {
			case rebuildReq <- struct{}{}:
			default:
			}
		})
	}
	stop := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}
	return rebuildReq, trigger, stop
}

// worker runs rebuilds one at a time. The buffered request channel holds at
// most one pending request, so changes during a rebuild coalesce into a
// single follow-up.
func (w *Watcher) worker(ctx context.Context, rebuildReq <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-rebuildReq:
			w.rebuild(ctx)
		}
	}
}

func (w *Watcher) addDirsRecursive(root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (strings.HasPrefix(d.Name(), ".") || w.ignored(path)) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			slog.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// shouldIgnoreEvent returns true for filesystem events that should not trigger rebuilds.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}

func absClean(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
