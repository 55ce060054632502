package store

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// StateWatcher watches the state file and reports the reloaded state after
// every external write.
type StateWatcher struct {
	watcher  *fsnotify.Watcher
	filePath string
	onChange func(*SharedState)
	logger   *slog.Logger
	done     chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewStateWatcher creates a watcher for filePath.
func NewStateWatcher(filePath string, onChange func(*SharedState), logger *slog.Logger) (*StateWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &StateWatcher{
		watcher:  watcher,
		filePath: filePath,
		onChange: onChange,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching the file for changes.
func (sw *StateWatcher) Start() error {
	sw.mu.Lock()
	if sw.running {
		sw.mu.Unlock()
		return nil
	}
	sw.running = true
	sw.mu.Unlock()

	// Watch the directory containing the file (more reliable for atomic renames)
	if err := sw.watcher.Add(filepath.Dir(sw.filePath)); err != nil {
		return err
	}

	go sw.watch()
	return nil
}

func (sw *StateWatcher) watch() {
	filename := filepath.Base(sw.filePath)

	for {
		select {
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				state, err := LoadSharedStateFrom(sw.filePath)
				if err != nil {
					sw.logger.Warn("failed to reload state", "error", err)
					continue
				}
				sw.logger.Debug("state file changed", "file", sw.filePath)
				if sw.onChange != nil {
					sw.onChange(state)
				}
			}

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Warn("state watcher error", "error", err)

		case <-sw.done:
			return
		}
	}
}

// Stop stops the watcher.
func (sw *StateWatcher) Stop() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if !sw.running {
		return nil
	}

	sw.running = false
	close(sw.done)
	return sw.watcher.Close()
}
