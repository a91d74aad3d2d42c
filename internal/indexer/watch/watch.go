// Package watch rebuilds the search index whenever the source tree changes.
// Rebuilds are wholesale; bursts of file events inside the debounce window
// collapse into a single rebuild.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 300 * time.Millisecond

type Options struct {
	Debounce time.Duration
	// Ignore lists directories whose events never trigger a rebuild, such as
	// the publish directory when it sits inside the source tree.
	Ignore []string
}

type Watcher struct {
	root    string
	opts    Options
	rebuild func(ctx context.Context) error
	logger  *slog.Logger
}

func New(root string, opts Options, rebuild func(ctx context.Context) error) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	ignore := make([]string, 0, len(opts.Ignore))
	for _, dir := range opts.Ignore {
		if abs, err := filepath.Abs(dir); err == nil {
			ignore = append(ignore, abs)
		}
	}
	opts.Ignore = ignore
	return &Watcher{
		root:    root,
		opts:    opts,
		rebuild: rebuild,
		logger:  slog.Default().With("component", "watch"),
	}
}

// Run watches until ctx is done. A failed rebuild is logged and the watcher
// keeps going; the last good artifact stays published.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fsw.Close()

	root, err := filepath.Abs(w.root)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", w.root, err)
	}
	if err := w.addRecursive(fsw, root); err != nil {
		return err
	}
	w.logger.Info("watching for changes", "root", root, "debounce", w.opts.Debounce)

	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.ignored(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				w.addIfDir(fsw, event.Name)
			}
			w.logger.Debug("change detected", "path", event.Name, "op", event.Op.String())
			timer.Reset(w.opts.Debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		case <-timer.C:
			start := time.Now()
			if err := w.rebuild(ctx); err != nil {
				w.logger.Error("rebuild failed", "error", err)
				continue
			}
			w.logger.Info("rebuild complete", "duration", time.Since(start))
		}
	}
}

func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.ignored(p) {
			return filepath.SkipDir
		}
		if err := fsw.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}

func (w *Watcher) addIfDir(fsw *fsnotify.Watcher, p string) {
	if err := w.addRecursive(fsw, p); err != nil {
		w.logger.Debug("not watching new path", "path", p, "error", err)
	}
}

// ignored reports hidden files, atomic-write temporaries and anything under
// an ignored directory.
func (w *Watcher) ignored(p string) bool {
	base := filepath.Base(p)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".tmp") || strings.HasSuffix(base, "~") {
		return true
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return false
	}
	for _, dir := range w.opts.Ignore {
		if abs == dir || strings.HasPrefix(abs, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
