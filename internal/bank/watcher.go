package bank

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDelay coalesces bursts of file events into one reload.
const DefaultReloadDelay = 250 * time.Millisecond

// Watcher reloads a Catalog when anything under its user banks directory
// changes, then calls the reload callback.
type Watcher struct {
	catalog  *Catalog
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	delay    time.Duration
	onReload func()

	mu      sync.Mutex
	running bool
	done    chan struct{}
	stopped chan struct{}
}

// NewWatcher creates a watcher for catalog's user directory.
func NewWatcher(catalog *Catalog, onReload func(), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		catalog:  catalog,
		logger:   logger,
		watcher:  fw,
		delay:    DefaultReloadDelay,
		onReload: onReload,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// SetDelay changes the reload coalescing delay. Call before Start.
func (w *Watcher) SetDelay(d time.Duration) {
	w.delay = d
}

// Start creates the user directory if needed and begins watching it and
// each bank directory inside it.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	dir := w.catalog.UserDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			w.addDir(filepath.Join(dir, e.Name()))
		}
	}

	w.running = true
	go w.watch()
	return nil
}

func (w *Watcher) addDir(dir string) {
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Debug("failed to watch bank directory", "dir", dir, "error", err)
	}
}

func (w *Watcher) watch() {
	defer close(w.stopped)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.addDir(event.Name)
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.delay)
			} else {
				timer.Reset(w.delay)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := w.catalog.Reload(); err != nil {
				w.logger.Warn("failed to reload banks", "error", err)
				continue
			}
			w.logger.Info("banks reloaded", "banks", len(w.catalog.Names()))
			if w.onReload != nil {
				w.onReload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("bank watcher error", "error", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// Stop stops watching.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return nil
	}
	w.running = false
	close(w.done)
	<-w.stopped
	return w.watcher.Close()
}
