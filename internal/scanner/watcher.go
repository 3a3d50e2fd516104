package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period before changed files are re-parsed.
const DefaultDebounce = 500 * time.Millisecond

// Watcher invalidates Project entries when their files change on disk.
// Entries are dropped as soon as an event arrives; re-parsing waits for the
// burst of events to settle.
type Watcher struct {
	project  *Project
	fs       *fsnotify.Watcher
	debounce func(func())
	onChange func([]string)

	mu      sync.Mutex
	pending map[string]struct{}

	done chan struct{}
}

// WatchOption configures a Watcher.
type WatchOption func(*watchConfig)

type watchConfig struct {
	delay    time.Duration
	onChange func([]string)
}

// WithDebounce sets the quiet period before re-parsing.
func WithDebounce(d time.Duration) WatchOption {
	return func(c *watchConfig) { c.delay = d }
}

// OnChange registers a callback receiving the paths refreshed after a burst.
func OnChange(fn func(paths []string)) WatchOption {
	return func(c *watchConfig) { c.onChange = fn }
}

// Watch starts watching the project tree until ctx is done or Close is called.
func (p *Project) Watch(ctx context.Context, opts ...WatchOption) (*Watcher, error) {
	cfg := watchConfig{delay: DefaultDebounce}
	for _, opt := range opts {
		opt(&cfg)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		project:  p,
		fs:       fw,
		debounce: debounce.New(cfg.delay),
		onChange: cfg.onChange,
		pending:  make(map[string]struct{}),
		done:     make(chan struct{}),
	}
	if err := w.addRecursive(p.root); err != nil {
		fw.Close()
		return nil, err
	}
	go w.loop(ctx)
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.project.ignored(path, true) {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.fs.Close()
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.project.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !w.project.ignored(ev.Name, true) {
				_ = w.addRecursive(ev.Name)
			}
			return
		}
	}
	if !Supported(ev.Name) || w.project.ignored(ev.Name, false) {
		return
	}
	w.project.Invalidate(ev.Name)
	w.project.logger.Debug("invalidated", zap.String("path", ev.Name), zap.Stringer("op", ev.Op))

	w.mu.Lock()
	w.pending[filepath.Clean(ev.Name)] = struct{}{}
	w.mu.Unlock()
	w.debounce(w.flush)
}

// flush re-parses the files changed during the last burst.
func (w *Watcher) flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()
	sort.Strings(paths)

	for _, path := range paths {
		if _, err := w.project.Reload(path); err != nil {
			w.project.logger.Debug("changed file dropped from cache", zap.String("path", path), zap.Error(err))
		}
	}
	if w.onChange != nil && len(paths) > 0 {
		w.onChange(paths)
	}
}

// Close stops the watcher and waits for its event loop to exit.
func (w *Watcher) Close() error {
	err := w.fs.Close()
	<-w.done
	return err
}
