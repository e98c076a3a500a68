package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docseek/internal/logger"
)

// DefaultDebounce is how long the watcher waits for events to settle.
const DefaultDebounce = 500 * time.Millisecond

// ErrWatcherClosed is returned by Watch after Close.
var ErrWatcherClosed = errors.New("watcher closed")

// Watcher reports changed documentation files under a root path.
type Watcher struct {
	root          string
	single        bool
	debounce      time.Duration
	includeHidden bool

	mu      sync.Mutex
	closed  bool
	watcher *fsnotify.Watcher
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce sets the quiet period before a batch is emitted.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WatchHiddenFiles reports changes to dot-prefixed files and directories,
// matching the loader's WithHiddenFiles.
func WatchHiddenFiles(include bool) WatchOption {
	return func(w *Watcher) {
		w.includeHidden = include
	}
}

// NewWatcher creates a watcher for root, a file or directory.
func NewWatcher(root string, opts ...WatchOption) *Watcher {
	w := &Watcher{
		root:     filepath.Clean(root),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch starts watching and returns a channel of changed path batches.
// Each batch is sorted and deduplicated. The channel closes when ctx is done.
func (w *Watcher) Watch(ctx context.Context) (<-chan []string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrWatcherClosed
	}

	info, err := os.Stat(w.root)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	w.single = !info.IsDir()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	if w.single {
		err = fw.Add(filepath.Dir(w.root))
	} else {
		err = w.addTree(fw, w.root)
	}
	if err != nil {
		fw.Close() //nolint:errcheck
		return nil, fmt.Errorf("adding watch: %w", err)
	}
	w.watcher = fw

	out := make(chan []string)
	go w.loop(ctx, fw, out)
	return out, nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, out chan<- []string) {
	defer close(out)
	defer fw.Close() //nolint:errcheck

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if dir, isDir := w.newDirectory(event); isDir {
				if err := w.addTree(fw, dir); err != nil {
					logger.Warn("watcher: adding %s: %v", dir, err)
				}
				continue
			}
			if path, ok := w.handleFsEvent(event); ok {
				pending[path] = struct{}{}
				timer.Reset(w.debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher: %v", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}
			sort.Strings(batch)
			pending = make(map[string]struct{})

			select {
			case out <- batch:
			case <-ctx.Done():
				return
			}
		}
	}
}

// handleFsEvent maps an event to a changed document path.
// Chmod, directories, unsupported extensions and (by default) hidden
// files are ignored.
func (w *Watcher) handleFsEvent(event fsnotify.Event) (string, bool) {
	path := filepath.Clean(event.Name)
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return "", false
	}
	if w.single && path != w.root {
		return "", false
	}
	if w.hidden(filepath.Base(path)) || !IsSupported(path) {
		return "", false
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return "", false
	}
	return path, true
}

func (w *Watcher) newDirectory(event fsnotify.Event) (string, bool) {
	if w.single || !event.Has(fsnotify.Create) {
		return "", false
	}
	path := filepath.Clean(event.Name)
	if w.hidden(filepath.Base(path)) {
		return "", false
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return path, true
}

// addTree watches dir and the directories below it.
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && w.hidden(d.Name()) {
			return fs.SkipDir
		}
		return fw.Add(p)
	})
}

func (w *Watcher) hidden(name string) bool {
	return !w.includeHidden && isHidden(name)
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
