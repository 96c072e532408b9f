package commands

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/extsql/internal/manifest"
	"golang.org/x/sync/errgroup"
)

// watchManifest calls onChange after manifest files under path change,
// coalescing bursts of events within debounce. onChange runs on a single
// goroutine, never concurrently with itself. It returns when ctx is done.
func watchManifest(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	relevant := manifest.IsManifestFile
	if info.IsDir() {
		if err := watchDirRecursive(watcher, path); err != nil {
			return err
		}
	} else {
		// Editors often replace files, so the parent is watched instead.
		target := filepath.Clean(path)
		if err := watcher.Add(filepath.Dir(target)); err != nil {
			return err
		}
		relevant = func(name string) bool { return filepath.Clean(name) == target }
	}

	changed := make(chan struct{}, 1)
	eg, egctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		var debounceTimer *time.Timer
		defer func() {
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
		}()
		for {
			select {
			case <-egctx.Done():
				return nil

			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if event.Op&fsnotify.Create != 0 && info.IsDir() {
					if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
						if err := watchDirRecursive(watcher, event.Name); err != nil {
							logger.Warn("failed to watch directory", "dir", event.Name, "error", err)
						}
						continue
					}
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				if !relevant(event.Name) {
					continue
				}
				logger.Debug("manifest changed", "file", event.Name, "op", event.Op.String())

				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounce, func() {
					select {
					case changed <- struct{}{}:
					default:
					}
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				logger.Error("watcher error", "error", err)
			}
		}
	})

	eg.Go(func() error {
		for {
			select {
			case <-egctx.Done():
				return nil
			case <-changed:
				onChange()
			}
		}
	})

	return eg.Wait()
}

// watchDirRecursive adds a directory and all subdirectories to the watcher.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
