// Package watcher watches a media directory and hands newly settled files
// to an analysis callback. It supports cross-platform fsnotify event
// handling.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/modalyze/modalyze/internal/media"
)

const (
	// settleDelay is how long a file must stay quiet after its last write
	// before it counts as fully copied. Media files arrive in many write
	// chunks, so the timer resets on every event.
	settleDelay = 2 * time.Second

	// queueSize bounds the number of settled files waiting for analysis.
	queueSize = 64
)

// Handler receives the path of each settled media file, one at a time.
type Handler func(ctx context.Context, path string)

// Watcher manages file watching for a single media directory.
type Watcher struct {
	dir       string
	mediaType media.Type
	handler   Handler
	watcher   *fsnotify.Watcher
	settle    time.Duration
	queue     chan string

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a watcher for dir that reports files of the given media type.
func New(dir string, t media.Type, handler Handler) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watcher: %s is not a directory", dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	return &Watcher{
		dir:       dir,
		mediaType: t,
		handler:   handler,
		watcher:   fsw,
		settle:    settleDelay,
		queue:     make(chan string, queueSize),
		pending:   make(map[string]*time.Timer),
	}, nil
}

// Start begins watching the directory. It returns once the watch is
// registered; events are processed until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watcher: watch %s: %w", w.dir, err)
	}
	log.Infof("watching %s for new %s files", w.dir, w.mediaType)

	go w.processEvents(ctx)
	go w.drainQueue(ctx)
	return nil
}

// Stop cancels pending settle timers and closes the underlying watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case errWatch, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("file watcher error: %v", errWatch)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	if !media.IsSupported(path, w.mediaType) {
		return
	}
	// Temporary sibling written while an oversized image is re-encoded.
	if strings.HasSuffix(path, "_preprocessed.jpg") {
		return
	}

	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		w.scheduleSettle(path)
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.cancelPending(path)
	}
}

// scheduleSettle arms (or pushes out) the quiet-period timer for path.
func (w *Watcher) scheduleSettle(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.settle)
		return
	}
	log.Debugf("new file detected: %s", filepath.Base(path))
	w.pending[path] = time.AfterFunc(w.settle, func() { w.settled(path) })
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
		delete(w.pending, path)
		log.Debugf("dropping %s, removed before it settled", filepath.Base(path))
	}
}

func (w *Watcher) settled(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		log.Debugf("skipping %s: %v", filepath.Base(path), err)
		return
	}
	select {
	case w.queue <- path:
	default:
		log.Warnf("analysis queue full, dropping %s", filepath.Base(path))
	}
}

// drainQueue runs the handler for settled files one at a time so watch mode
// never piles up concurrent batches.
func (w *Watcher) drainQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-w.queue:
			log.Infof("analyzing new file: %s", filepath.Base(path))
			w.handler(ctx, path)
		}
	}
}
