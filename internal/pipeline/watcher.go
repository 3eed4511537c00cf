package pipeline

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/stackscope/internal/source"
)

// RunCallback receives the outcome of each watcher-triggered run.
type RunCallback func(sum *Summary, err error)

// Watch re-runs the analysis whenever a .dart or .py file under either
// source root changes, until ctx is cancelled. Bursts of events are
// collapsed into one run after the debounce window.
//
// Directories created at runtime are added to the watch list.
func (c *Coordinator) Watch(ctx context.Context, cb RunCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	exts := append(append([]string{}, UIExtensions...), BackendExtensions...)
	for _, p := range []source.Provider{c.ui, c.backend} {
		if p == nil {
			continue
		}
		if err := addDirsRecursive(w, p.Root(), c.skipDirs); err != nil {
			return err
		}
		c.logger.Info("watcher: started", slog.String("root", p.Root()))
	}

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(c.debounce)
			fire = timer.C
		} else {
			timer.Reset(c.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			c.logger.Info("watcher: stopped")
			return nil

		case <-fire:
			sum, runErr := c.Run(ctx)
			if runErr != nil {
				c.logger.Warn("watcher: run failed", slog.String("error", runErr.Error()))
			}
			if cb != nil {
				cb(sum, runErr)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name, c.skipDirs); addErr != nil {
						c.logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					schedule()
					continue
				}
			}
			if !source.HasExt(ev.Name, exts) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				c.logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and its subdirectories, except skipped ones,
// to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string, skipDirs []string) error {
	skip := make(map[string]bool, len(skipDirs))
	for _, d := range skipDirs {
		skip[d] = true
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skip[d.Name()] {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
