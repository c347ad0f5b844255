// Package watch rebuilds an xRegistry package when its sources change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/metaformsystems/xregistry-oci/internal/logger"
	"github.com/metaformsystems/xregistry-oci/internal/oci"
)

var logWatch = logger.New("watch:watcher")

// RebuildFunc is called after a burst of source changes has settled. An
// error is logged and watching continues.
type RebuildFunc func(ctx context.Context) error

// Watcher watches a source directory tree
type Watcher struct {
	root     string
	debounce time.Duration
	rebuild  RebuildFunc
	exclude  []string
	ready    chan struct{}
}

// New creates a watcher for root. Events within debounce of each other
// cause a single rebuild. Directories in exclude, typically the build
// directory, are neither watched nor trigger rebuilds.
func New(root string, debounce time.Duration, rebuild RebuildFunc, exclude ...string) (*Watcher, error) {
	if root == "" {
		return nil, errors.New("root cannot be empty")
	}
	if rebuild == nil {
		return nil, errors.New("rebuild callback cannot be nil")
	}
	if debounce <= 0 {
		return nil, fmt.Errorf("debounce must be positive, got %s", debounce)
	}
	w := &Watcher{
		root:     root,
		debounce: debounce,
		rebuild:  rebuild,
		ready:    make(chan struct{}),
	}
	for _, dir := range exclude {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve excluded directory %s: %w", dir, err)
		}
		w.exclude = append(w.exclude, abs)
	}
	return w, nil
}

// Ready is closed once the directory tree is being watched
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is done. It returns nil on cancellation and an
// error only when watching cannot start or the event stream breaks.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.root); err != nil {
		return err
	}
	logger.LogInfo("watch", "Watching %s for changes (debounce: %s)", w.root, w.debounce)
	close(w.ready)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logWatch.Print("Context done, stopping watcher")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !w.relevant(fsw, event) {
				continue
			}
			logWatch.Printf("Change detected: %s %s", event.Op, event.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			logger.LogInfo("watch", "Sources changed, rebuilding")
			if err := w.rebuild(ctx); err != nil {
				logger.LogWarn("watch", "Rebuild failed: %v", err)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			logger.LogWarn("watch", "Watcher error: %v", err)
		}
	}
}

// relevant reports whether an event concerns a registry document or a
// directory. New directories are added to the watch.
func (w *Watcher) relevant(fsw *fsnotify.Watcher, event fsnotify.Event) bool {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return false
	}
	if w.excluded(event.Name) {
		return false
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(fsw, event.Name); err != nil {
				logWatch.Printf("Failed to watch new directory %s: %v", event.Name, err)
			}
			return true
		}
	}
	// Removed or renamed directories cannot be stat'ed; rebuild to be safe
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		return oci.IsArtifactFile(event.Name) || filepath.Ext(event.Name) == ""
	}
	return oci.IsArtifactFile(event.Name)
}

// excluded reports whether path is an excluded directory or lies below one
func (w *Watcher) excluded(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, dir := range w.exclude {
		if abs == dir || strings.HasPrefix(abs, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.excluded(path) {
			logWatch.Printf("Not watching excluded directory %s", path)
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		logWatch.Printf("Watching directory %s", path)
		return nil
	})
}
