// Package watcher notifies the scheduler of files staged while serve runs.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/logger"
)

var _ driven.StagingWatcher = (*Watcher)(nil)

// DefaultDebounce is how long a path must stay quiet before it is emitted.
const DefaultDebounce = 2 * time.Second

// Watcher watches a directory tree with fsnotify. Bursts of writes to the
// same file are coalesced into one event.
type Watcher struct {
	root     string
	exts     []string
	debounce time.Duration
}

// New watches root for files with one of exts (lower case, with dot).
// A non-positive debounce uses DefaultDebounce.
func New(root string, exts []string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{root: root, exts: exts, debounce: debounce}
}

// Watch creates root if needed and starts watching it and every folder
// below it.
func (w *Watcher) Watch(ctx context.Context) (<-chan string, error) {
	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if _, err := w.addTree(fw, w.root); err != nil {
		fw.Close()
		return nil, err
	}

	out := make(chan string, 64)
	go w.loop(ctx, fw, out)
	return out, nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, out chan<- string) {
	defer close(out)
	defer fw.Close()

	pending := make(map[string]struct{})
	var quiet <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				// Files can land before the new folder is watched.
				files, err := w.addTree(fw, ev.Name)
				if err != nil {
					logger.Warn("watch %s: %v", ev.Name, err)
				}
				for _, f := range files {
					pending[f] = struct{}{}
				}
			} else if w.supported(ev.Name) {
				pending[ev.Name] = struct{}{}
			}
			if len(pending) > 0 {
				quiet = time.After(w.debounce)
			}

		case <-quiet:
			quiet = nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			slices.Sort(paths)
			for _, p := range paths {
				select {
				case out <- p:
				case <-ctx.Done():
					return
				}
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logger.Warn("watch %s: %v", w.root, err)
		}
	}
}

// addTree watches dir and its subfolders and returns the supported files
// already inside.
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		if w.supported(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return files, fmt.Errorf("watch %s: %w", dir, err)
	}
	return files, nil
}

func (w *Watcher) supported(path string) bool {
	return slices.Contains(w.exts, strings.ToLower(filepath.Ext(path)))
}
