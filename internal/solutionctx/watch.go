package solutionctx

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrWatcherFailed is returned when the filesystem watcher cannot start.
var ErrWatcherFailed = errors.New("failed to create filesystem watcher")

// Watcher reloads a Store when its context file is changed by another
// process, such as the context subcommands of the CLI.
type Watcher struct {
	store   *Store
	dir     string
	watcher *fsnotify.Watcher
	logger  *zap.Logger
	stop    chan struct{}
	done    chan struct{}
	started bool

	// reloaded receives after each reload; nil unless set by tests.
	reloaded chan struct{}
}

// NewWatcher creates a watcher for store over fileStore's directory.
func NewWatcher(store *Store, fileStore *FileStore, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}

	return &Watcher{
		store:   store,
		dir:     fileStore.Dir(),
		watcher: w,
		logger:  logger,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching. The directory is watched rather than the file
// because writes replace the file by rename.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.started = true
	go w.processEvents(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit. Safe to call
// more than once.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
		return
	default:
	}
	close(w.stop)
	_ = w.watcher.Close()
	if w.started {
		<-w.done
	}
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.store.Key() {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.reload(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("solution context watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload(event fsnotify.Event) {
	if err := w.store.Reload(); err != nil {
		w.logger.Warn("failed to reload solution context",
			zap.String("event", event.Op.String()),
			zap.Error(err))
	} else {
		w.logger.Debug("solution context reloaded", zap.String("event", event.Op.String()))
	}

	if w.reloaded != nil {
		select {
		case w.reloaded <- struct{}{}:
		default:
		}
	}
}
