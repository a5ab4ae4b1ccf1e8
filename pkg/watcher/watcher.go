package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stridebuild/stride/pkg/logging"
	"github.com/stridebuild/stride/pkg/pipeline"
)

// ChangeEvent represents a batch of file system changes under the watched
// input locations.
type ChangeEvent struct {
	Paths     []string
	Timestamp time.Time
}

// InputWatcher watches the declared input locations of a pipeline for
// changes, so watch mode can re-evaluate tasks when their inputs move.
type InputWatcher struct {
	watcher *fsnotify.Watcher
	roots   []string
	events  chan ChangeEvent
}

// NewInputWatcher creates a watcher over every input file property declared
// by any task of the pipeline.
func NewInputWatcher(workspace string, p *pipeline.Pipeline) (*InputWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	roots := make(map[string]bool)
	for i := range p.Tasks {
		for _, path := range p.Tasks[i].InputPaths() {
			if !filepath.IsAbs(path) {
				path = filepath.Join(workspace, path)
			}
			roots[path] = true
		}
	}

	iw := &InputWatcher{
		watcher: watcher,
		events:  make(chan ChangeEvent, 100),
	}
	for root := range roots {
		iw.roots = append(iw.roots, root)
	}
	return iw, nil
}

// Start begins watching for file changes
func (iw *InputWatcher) Start(ctx context.Context) error {
	for _, root := range iw.roots {
		if err := iw.watchTree(root); err != nil {
			logging.Warn("failed to watch input location", "path", root, "error", err)
		}
	}

	logging.Info("watching input locations", "count", len(iw.roots))
	go iw.processEvents(ctx)
	return nil
}

// watchTree registers root and every directory below it. fsnotify does not
// watch recursively by itself.
func (iw *InputWatcher) watchTree(root string) error {
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		// Watch the parent so the location shows up when it is created
		return iw.watcher.Add(filepath.Dir(root))
	}
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return iw.watcher.Add(filepath.Dir(root))
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip entries we can't access
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".stride") {
				return filepath.SkipDir
			}
			if addErr := iw.watcher.Add(path); addErr != nil {
				logging.Warn("failed to watch directory", "path", path, "error", addErr)
			}
		}
		return nil
	})
}

// processEvents batches raw fsnotify events to avoid one event per file.
func (iw *InputWatcher) processEvents(ctx context.Context) {
	var pending []string

	flushTimer := time.NewTimer(100 * time.Millisecond)
	flushTimer.Stop()

	flush := func() {
		if len(pending) == 0 {
			return
		}
		iw.events <- ChangeEvent{Paths: pending, Timestamp: time.Now()}
		pending = nil
	}

	for {
		select {
		case <-ctx.Done():
			iw.watcher.Close()
			close(iw.events)
			return

		case event, ok := <-iw.watcher.Events:
			if !ok {
				return
			}
			if strings.Contains(event.Name, string(filepath.Separator)+".stride"+string(filepath.Separator)) {
				continue
			}
			pending = append(pending, event.Name)
			flushTimer.Reset(100 * time.Millisecond)

			// New directories must be registered as they appear
			if event.Op.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					_ = iw.watcher.Add(event.Name)
				}
			}

		case <-flushTimer.C:
			flush()

		case err, ok := <-iw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (iw *InputWatcher) Events() <-chan ChangeEvent {
	return iw.events
}

// Stop stops the file watcher
func (iw *InputWatcher) Stop() error {
	return iw.watcher.Close()
}
