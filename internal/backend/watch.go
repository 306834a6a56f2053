package backend

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces bursts of filesystem events into one rebuild.
const debounceDelay = 300 * time.Millisecond

// Watch rebuilds whenever a Python, C or zig source changes under the
// project's package roots. The first build happens immediately. Build
// failures are reported through onBuild and do not stop the watch; only
// context cancellation does.
func (b *Backend) Watch(ctx context.Context, opts Options, onBuild func(*Result, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, dir := range b.watchRoots() {
		if err := watchDir(watcher, dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	onBuild(b.Build(ctx, opts))

	var debounce *time.Timer
	rebuild := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !isSourceFile(event.Name) {
				continue
			}
			b.logger.Debug("source changed", slog.String("path", event.Name))
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				select {
				case rebuild <- struct{}{}:
				default:
				}
			})
		case <-rebuild:
			onBuild(b.Build(ctx, opts))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			b.logger.Warn("watch error", slog.Any("error", err))
		}
	}
}

// watchRoots lists the directories to watch: the configured package roots,
// or the whole project dir when none are declared.
func (b *Backend) watchRoots() []string {
	if len(b.cfg.PackagesLocation) == 0 {
		return []string{b.cfg.ProjectDir}
	}
	var roots []string
	for _, dir := range b.cfg.PackagesLocation {
		roots = append(roots, filepath.Join(b.cfg.ProjectDir, dir))
	}
	return roots
}

// watchDir recursively adds a directory tree to the watcher, skipping
// hidden directories and Python caches.
func watchDir(watcher *fsnotify.Watcher, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		name := info.Name()
		if name == "__pycache__" || (len(name) > 1 && name[0] == '.') {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func isSourceFile(path string) bool {
	switch filepath.Ext(path) {
	case ".py", ".pyi", ".c", ".h", ".cc", ".cpp", ".cxx", ".zig":
		return true
	}
	return false
}
