// Package watcher reports edits to grammar and theme files, debounced so
// an editor's save burst becomes one reload.
package watcher

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/tmlight/internal/log"
)

// DefaultDebounce is the quiet period before a change is reported.
const DefaultDebounce = 200 * time.Millisecond

// Change lists the watched files touched during one debounce window.
type Change struct {
	Paths []string
}

// Config holds watcher configuration options.
type Config struct {
	// Files are the paths to watch. Their parent directories are watched
	// so files replaced by rename are still seen.
	Files       []string
	DebounceDur time.Duration
}

// Watcher monitors a fixed set of files.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	files     map[string]struct{}
	debounce  time.Duration
	onChange  chan Change
	done      chan struct{}
}

// New creates a watcher; call Start to begin.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	debounce := cfg.DebounceDur
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	files := make(map[string]struct{}, len(cfg.Files))
	for _, f := range cfg.Files {
		files[cleanAbs(f)] = struct{}{}
	}
	return &Watcher{
		fsWatcher: fsw,
		files:     files,
		debounce:  debounce,
		onChange:  make(chan Change, 1),
		done:      make(chan struct{}),
	}, nil
}

// Start watches the parent directories of every file and returns the
// change channel.
func (w *Watcher) Start() (<-chan Change, error) {
	dirs := make(map[string]struct{})
	for f := range w.files {
		dirs[filepath.Dir(f)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.fsWatcher.Add(dir); err != nil {
			return nil, fmt.Errorf("watching directory %s: %w", dir, err)
		}
	}
	log.Debug(log.CatWatcher, "watching files", "files", len(w.files), "dirs", len(dirs))

	go w.loop()
	return w.onChange, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending = make(map[string]struct{})
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			path, relevant := w.relevant(event)
			if !relevant {
				continue
			}
			pending[path] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if len(pending) == 0 {
				continue
			}
			change := Change{Paths: make([]string, 0, len(pending))}
			for p := range pending {
				change.Paths = append(change.Paths, p)
			}
			sort.Strings(change.Paths)
			clear(pending)
			log.Debug(log.CatWatcher, "files changed", "paths", change.Paths)

			select {
			case w.onChange <- change:
			default:
				// Receiver is behind; merge into the queued change.
				select {
				case queued := <-w.onChange:
					change.Paths = mergePaths(queued.Paths, change.Paths)
				default:
				}
				select {
				case w.onChange <- change:
				default:
				}
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatWatcher, "watch error", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// relevant reports whether event touches a watched file. Editors often
// save by renaming a temp file over the original, which shows up as
// Create on the watched name.
func (w *Watcher) relevant(event fsnotify.Event) (string, bool) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return "", false
	}
	path := cleanAbs(event.Name)
	_, ok := w.files[path]
	return path, ok
}

func cleanAbs(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func mergePaths(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, p := range append(append([]string{}, a...), b...) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
