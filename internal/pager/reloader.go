package pager

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/zjrosen/tmlight/grammar"
	"github.com/zjrosen/tmlight/internal/log"
	"github.com/zjrosen/tmlight/internal/pubsub"
	"github.com/zjrosen/tmlight/internal/watcher"
)

// ReloaderOptions names the files a Reloader reacts to.
type ReloaderOptions struct {
	Registry *grammar.Registry
	// Grammars maps grammar file paths to the scope each one defines.
	Grammars map[string]string
	// Document is the file being viewed.
	Document string
	// Theme is the theme file; ReloadTheme is called when it changes.
	Theme       string
	ReloadTheme func() error
}

// Reloader turns watcher changes into grammar reloads and Reload events.
type Reloader struct {
	opts     ReloaderOptions
	grammars map[string]string
	broker   *pubsub.Broker[Reload]
}

// NewReloader creates a Reloader. Paths are compared in absolute form.
func NewReloader(opts ReloaderOptions) *Reloader {
	grammars := make(map[string]string, len(opts.Grammars))
	for path, scope := range opts.Grammars {
		grammars[absPath(path)] = scope
	}
	opts.Document = absPath(opts.Document)
	opts.Theme = absPath(opts.Theme)
	return &Reloader{
		opts:     opts,
		grammars: grammars,
		broker:   pubsub.NewBroker[Reload](),
	}
}

// Files lists every path the reloader cares about, for the watcher.
func (r *Reloader) Files() []string {
	files := make([]string, 0, len(r.grammars)+2)
	for path := range r.grammars {
		files = append(files, path)
	}
	if r.opts.Document != "" {
		files = append(files, r.opts.Document)
	}
	if r.opts.Theme != "" {
		files = append(files, r.opts.Theme)
	}
	return files
}

// Subscribe streams document and theme reloads.
func (r *Reloader) Subscribe(ctx context.Context) <-chan pubsub.Event[Reload] {
	return r.broker.Subscribe(ctx)
}

// Run handles changes until ctx is done or changes is closed.
func (r *Reloader) Run(ctx context.Context, changes <-chan watcher.Change) {
	defer r.broker.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			r.Handle(ctx, change)
		}
	}
}

// Handle reacts to one batch of changed files. Grammar reloads are
// reported through the registry's own events.
func (r *Reloader) Handle(ctx context.Context, change watcher.Change) {
	for _, path := range change.Paths {
		path = absPath(path)
		switch {
		case r.grammars[path] != "":
			scope := r.grammars[path]
			log.Info(log.CatWatcher, "Grammar changed", "scope", scope, "path", path)
			if r.opts.Registry == nil {
				continue
			}
			if _, err := r.opts.Registry.Reload(ctx, scope); err != nil {
				log.ErrorErr(log.CatWatcher, "Grammar reload failed", err, "scope", scope)
			}
		case path == r.opts.Theme:
			log.Info(log.CatWatcher, "Theme changed", "path", path)
			var err error
			if r.opts.ReloadTheme != nil {
				if err = r.opts.ReloadTheme(); err != nil {
					err = fmt.Errorf("reloading theme %s: %w", path, err)
				}
			}
			r.publish(path, err)
		case path == r.opts.Document:
			log.Debug(log.CatWatcher, "Document changed", "path", path)
			r.publish(path, nil)
		}
	}
}

func (r *Reloader) publish(path string, err error) {
	if err != nil {
		r.broker.Publish(pubsub.FailedEvent, Reload{Path: path, Err: err})
		return
	}
	r.broker.Publish(pubsub.UpdatedEvent, Reload{Path: path})
}

func absPath(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return filepath.Clean(abs)
	}
	return filepath.Clean(path)
}
