package daemon

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jmylchreest/keyclack/internal/config"
)

// ConfigWatcher polls the config file and reloads it when it changes. An
// invalid file is reported and the previous config stays current.
type ConfigWatcher struct {
	mu     sync.RWMutex
	logger *slog.Logger

	configPath    string
	lastModTime   time.Time
	currentConfig *config.Config
	pollInterval  time.Duration

	onReloadCallback func(newConfig *config.Config)
	onErrorCallback  func(err error)

	stopCh chan struct{}
	doneCh chan struct{}

	running bool
}

// NewConfigWatcher creates a watcher for the config file at path, or the
// default config path when empty.
func NewConfigWatcher(path string, logger *slog.Logger) *ConfigWatcher {
	if path == "" {
		path = config.ConfigPath()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigWatcher{
		logger:       logger,
		configPath:   path,
		pollInterval: time.Second,
	}
}

// SetPollInterval sets the polling interval for file changes.
func (w *ConfigWatcher) SetPollInterval(interval time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pollInterval = interval
}

// SetReloadCallback sets the callback invoked after a successful reload.
func (w *ConfigWatcher) SetReloadCallback(callback func(newConfig *config.Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReloadCallback = callback
}

// SetErrorCallback sets the callback invoked when a changed file fails to
// load or validate.
func (w *ConfigWatcher) SetErrorCallback(callback func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onErrorCallback = callback
}

// Start begins watching the config file for changes.
func (w *ConfigWatcher) Start(ctx context.Context, initialConfig *config.Config) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.currentConfig = initialConfig

	if info, err := os.Stat(w.configPath); err == nil {
		w.lastModTime = info.ModTime()
	}

	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	interval := w.pollInterval
	w.mu.Unlock()

	go w.watchLoop(ctx, interval)

	w.logger.Debug("config watcher started", "path", w.configPath, "interval", interval)
}

// Stop stops watching the config file.
func (w *ConfigWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh
	w.logger.Debug("config watcher stopped")
}

// CurrentConfig returns the last valid configuration.
func (w *ConfigWatcher) CurrentConfig() *config.Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.currentConfig
}

func (w *ConfigWatcher) watchLoop(ctx context.Context, interval time.Duration) {
	defer close(w.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.checkForChanges()
		}
	}
}

func (w *ConfigWatcher) checkForChanges() {
	w.mu.RLock()
	reloadCallback := w.onReloadCallback
	errorCallback := w.onErrorCallback
	lastModTime := w.lastModTime
	w.mu.RUnlock()

	info, err := os.Stat(w.configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Debug("failed to stat config file", "path", w.configPath, "error", err)
		}
		return
	}

	modTime := info.ModTime()
	if !modTime.After(lastModTime) {
		return
	}
	w.mu.Lock()
	w.lastModTime = modTime
	w.mu.Unlock()

	w.logger.Debug("config file changed", "path", w.configPath, "modTime", modTime)

	newConfig, err := config.LoadConfig(w.configPath)
	if err != nil {
		w.logger.Warn("config file changed but validation failed", "error", err)
		if errorCallback != nil {
			errorCallback(err)
		}
		return
	}

	w.mu.Lock()
	w.currentConfig = newConfig
	w.mu.Unlock()

	w.logger.Info("config reloaded successfully")
	if reloadCallback != nil {
		reloadCallback(newConfig)
	}
}
