package catalog

import (
	"errors"
	"fmt"

	"GiftFM/logger"

	"github.com/fsnotify/fsnotify"
)

// Watcher prunes catalog rows (and, through the prune callback, mapping
// entries) when audio files are removed from the library directory outside
// of the application.
type Watcher struct {
	catalog *Catalog
	watcher *fsnotify.Watcher
	onPrune func(path string) // invoked with the path of every pruned file
	done    chan struct{}
}

// NewWatcher starts watching the catalog's library directory.
func NewWatcher(c *Catalog, onPrune func(path string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create library watcher: %w", err)
	}
	if err := fsw.Add(c.LibraryDir()); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch library dir: %w", err)
	}

	w := &Watcher{
		catalog: c,
		watcher: fsw,
		onPrune: onPrune,
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	close(w.done)
	w.watcher.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.prune(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("library watcher error", logger.ErrorField(err))
		}
	}
}

func (w *Watcher) prune(path string) {
	f, err := w.catalog.DeleteByPath(path)
	if errors.Is(err, ErrNotFound) {
		return
	}
	if err != nil {
		logger.Warn("failed to prune catalog entry",
			logger.String("path", path), logger.ErrorField(err))
		return
	}
	logger.Info("audio file removed from library",
		logger.String("id", f.ID), logger.String("path", path))
	if w.onPrune != nil {
		w.onPrune(path)
	}
}
