// Package watch rebuilds whenever watched source directories change.
//
// Change events are debounced and builds run one at a time on the watch
// loop's goroutine, so the single-writer assumption of the build holds.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/vk/webflowkit/internal/ctxlog"
)

// DefaultDebounce is the quiet period after the last change before a rebuild.
const DefaultDebounce = 250 * time.Millisecond

// Watcher triggers Build when files in Dirs change.
type Watcher struct {
	Dirs     []string
	Debounce time.Duration
	Build    func(ctx context.Context) error
}

// Run blocks until ctx is cancelled. Build errors are logged and watching
// continues; only failures to set up the watcher are returned.
func (w *Watcher) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	seen := make(map[string]struct{}, len(w.Dirs))
	for _, dir := range w.Dirs {
		if err := addTree(ctx, fw, dir, seen); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	delay := w.Debounce
	if delay <= 0 {
		delay = DefaultDebounce
	}
	debounced := debounce.New(delay)
	trigger := make(chan struct{}, 1)
	fire := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	logger.Info("👀 Watching for changes...", "dirs", len(seen))
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			logger.Debug("Change detected.", "path", event.Name, "op", event.Op.String())
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addTree(ctx, fw, event.Name, seen); err != nil {
						logger.Warn("Failed to watch new directory", "dir", event.Name, "error", err)
					}
				}
			}
			debounced(fire)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("File watcher error", "error", err)

		case <-trigger:
			logger.Info("🔁 Rebuilding...")
			if err := w.Build(ctx); err != nil {
				logger.Error("Build failed, waiting for the next change", "error", err)
			}
		}
	}
}

// addTree watches root and every directory below it. fsnotify watches are
// not recursive.
func addTree(ctx context.Context, fw *fsnotify.Watcher, root string, seen map[string]struct{}) error {
	logger := ctxlog.FromContext(ctx)
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if _, dup := seen[p]; dup {
			return filepath.SkipDir
		}
		if err := fw.Add(p); err != nil {
			return err
		}
		seen[p] = struct{}{}
		logger.Debug("Watching directory.", "dir", p)
		return nil
	})
}

func relevant(event fsnotify.Event) bool {
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}
