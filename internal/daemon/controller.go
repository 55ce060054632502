package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/jmylchreest/keyclack/internal/audio"
	"github.com/jmylchreest/keyclack/internal/bank"
	"github.com/jmylchreest/keyclack/internal/config"
	"github.com/jmylchreest/keyclack/internal/keysource"
	"github.com/jmylchreest/keyclack/internal/model"
	"github.com/jmylchreest/keyclack/internal/store"
)

// EventSink receives engine events worth broadcasting, such as D-Bus
// signals.
type EventSink interface {
	EmitBankActivated(bank string, loaded, requested int) error
	EmitOutputUnavailable(reason string) error
}

// Controller applies user intent to the engine and keeps the shared state
// file in step with it.
type Controller struct {
	engine    *audio.Engine
	catalog   *bank.Catalog
	debouncer *keysource.Debouncer
	logger    *slog.Logger
	statePath string

	mu          sync.Mutex
	cfg         *config.Config
	state       *store.SharedState
	previewNext string
	sink        EventSink

	notices  chan func()
	doneCh   chan struct{}
	started  sync.Once
	stopOnce sync.Once
}

// NewController creates a controller. state is the persisted state loaded
// at startup and statePath where changes are written back; an empty
// statePath disables persistence.
func NewController(engine *audio.Engine, catalog *bank.Catalog, cfg *config.Config, state *store.SharedState, statePath string, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if state == nil {
		state = store.DefaultSharedState()
	}
	return &Controller{
		engine:    engine,
		catalog:   catalog,
		debouncer: keysource.NewDebouncer(cfg.Input.Debounce.Duration()),
		logger:    logger,
		statePath: statePath,
		cfg:       cfg,
		state:     state.Clone(),
		notices:   make(chan func(), 32),
		doneCh:    make(chan struct{}),
	}
}

// SetEventSink installs the broadcaster for engine events.
func (c *Controller) SetEventSink(sink EventSink) {
	c.mu.Lock()
	c.sink = sink
	c.mu.Unlock()
}

// Start starts the engine, applies the persisted settings and activates the
// last used bank. The engine stops when ctx is cancelled.
func (c *Controller) Start(ctx context.Context) error {
	c.engine.SetEventHandler(c.handleEvent)
	if err := c.engine.Start(ctx); err != nil {
		return fmt.Errorf("failed to start audio engine: %w", err)
	}
	c.started.Do(func() { go c.dispatchNotices() })

	c.mu.Lock()
	st := c.state.Clone()
	cfg := c.cfg
	c.mu.Unlock()

	c.logErr("set volume", c.engine.SetVolume(st.VolumeOr(cfg.VolumeFraction())))
	c.logErr("set mute", c.engine.SetMute(st.Muted))
	if !st.Enabled {
		c.logErr("pause", c.engine.Pause())
	}

	last := st.Bank
	if last == "" {
		last = cfg.Bank.Name
	}
	if last == "" {
		last = bank.DefaultBankName
	}
	entry, err := c.catalog.Restore(last)
	if err != nil {
		c.logger.Warn("no sound bank available", "error", err)
		return nil
	}
	if _, err := c.engine.ActivateBank(entry.Bank, entry.Resolver); err != nil {
		return fmt.Errorf("failed to activate bank %q: %w", entry.Bank.Name, err)
	}
	c.logger.Info("restoring sound bank", "bank", entry.Bank.Name, "source", entry.Source)
	return nil
}

// Shutdown stops the engine and waits for pending notices to drain.
func (c *Controller) Shutdown() {
	c.engine.Shutdown()
	c.stopOnce.Do(func() {
		c.started.Do(func() { close(c.doneCh) })
		close(c.notices)
	})
	<-c.doneCh
}

// HandleKey plays the sound for a key press. Repeats inside the debounce
// window and presses while disabled are ignored. A key press wakes an
// idle-paused engine.
func (c *Controller) HandleKey(code uint16) {
	if !c.debouncer.Allow(code, time.Now()) {
		return
	}
	c.mu.Lock()
	enabled := c.state.Enabled
	c.mu.Unlock()
	if !enabled {
		return
	}

	if c.engine.State() == audio.StatePaused {
		if err := c.engine.Resume(); err != nil {
			c.logger.Debug("failed to queue resume", "error", err)
			return
		}
	}
	if err := c.engine.Trigger(code); err != nil {
		c.logger.Debug("dropped key", "key", code, "error", err)
	}
}

// Preview plays sample index of the active bank.
func (c *Controller) Preview(index int) error {
	if c.engine.ActiveBank() == nil {
		return fmt.Errorf("no bank loaded: %w", audio.ErrEmptyBank)
	}
	return c.engine.Preview(index)
}

// SetVolume sets and persists the volume in [0, 1].
func (c *Controller) SetVolume(volume float64) error {
	if math.IsNaN(volume) || volume < 0 || volume > 1 {
		return fmt.Errorf("volume %g outside [0, 1]: %w", volume, model.ErrInvalidArgument)
	}
	if err := c.engine.SetVolume(volume); err != nil {
		return err
	}
	c.update(func(s *store.SharedState) { s.SetVolume(volume, store.SourceDaemon) })
	return nil
}

// SetMuted sets and persists mute.
func (c *Controller) SetMuted(muted bool) error {
	if err := c.engine.SetMute(muted); err != nil {
		return err
	}
	c.update(func(s *store.SharedState) { s.SetMuted(muted, store.SourceDaemon) })
	return nil
}

// SetEnabled turns key sounds on or off. Disabling pauses the output.
func (c *Controller) SetEnabled(enabled bool) error {
	var err error
	if enabled {
		err = c.engine.Resume()
	} else {
		err = c.engine.Pause()
	}
	if err != nil {
		return err
	}
	c.update(func(s *store.SharedState) { s.SetEnabled(enabled, store.SourceDaemon, "") })
	return nil
}

// SelectBank activates the named bank and remembers it. When preview on
// select is configured the first sample plays once the bank is live.
func (c *Controller) SelectBank(name string) error {
	entry, err := c.catalog.Find(name)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.cfg.Bank.PreviewOnSelect {
		c.previewNext = entry.Bank.Name
	}
	c.mu.Unlock()

	id, err := c.engine.ActivateBank(entry.Bank, entry.Resolver)
	if err != nil {
		return err
	}
	c.logger.Info("selected sound bank", "bank", name, "activation", id)
	c.update(func(s *store.SharedState) { s.SetBank(entry.Bank.Name, store.SourceDaemon) })
	return nil
}

// Pause suspends output without changing the enabled setting.
func (c *Controller) Pause() error {
	return c.engine.Pause()
}

// Resume restarts output.
func (c *Controller) Resume() error {
	return c.engine.Resume()
}

// ListBanks returns every bank name in the catalog.
func (c *Controller) ListBanks() []string {
	return c.catalog.Names()
}

// Status combines the engine status with the enabled setting.
func (c *Controller) Status() model.Status {
	es := c.engine.Status()
	c.mu.Lock()
	enabled := c.state.Enabled
	c.mu.Unlock()
	return model.Status{
		Enabled:         enabled,
		State:           es.State.String(),
		Bank:            es.Bank,
		ActivationID:    es.ActivationID,
		Loaded:          es.Loaded,
		Requested:       es.Requested,
		Volume:          es.Volume,
		Muted:           es.Muted,
		OutputAvailable: es.OutputAvailable,
		Polyphony:       es.Polyphony,
		ActiveVoices:    es.ActiveVoices,
		Triggered:       es.Triggered,
		Dropped:         es.Dropped,
		LastActivity:    es.LastActivity,
	}
}

// ApplyState brings the engine in line with a state file changed by
// another process. Nothing is written back.
func (c *Controller) ApplyState(next *store.SharedState) {
	if next == nil {
		return
	}
	c.mu.Lock()
	prev := c.state
	c.state = next.Clone()
	def := c.cfg.VolumeFraction()
	c.mu.Unlock()

	if next.Enabled != prev.Enabled {
		if next.Enabled {
			c.logErr("resume", c.engine.Resume())
		} else {
			c.logErr("pause", c.engine.Pause())
		}
	}
	if next.Muted != prev.Muted {
		c.logErr("set mute", c.engine.SetMute(next.Muted))
	}
	if v := next.VolumeOr(def); v != prev.VolumeOr(def) {
		c.logErr("set volume", c.engine.SetVolume(v))
	}
	if next.Bank != "" && next.Bank != prev.Bank {
		entry, err := c.catalog.Find(next.Bank)
		if err != nil {
			c.logger.Warn("state names an unknown bank", "bank", next.Bank)
			return
		}
		_, err = c.engine.ActivateBank(entry.Bank, entry.Resolver)
		c.logErr("activate bank", err)
	}
	c.logger.Debug("applied external state change")
}

// ApplyConfig applies the settings of a reloaded config that can change at
// runtime. Output, polyphony and idle settings take effect on restart.
func (c *Controller) ApplyConfig(cfg *config.Config) {
	c.mu.Lock()
	old := c.cfg
	c.cfg = cfg
	volumeUnset := c.state.Volume == nil
	c.mu.Unlock()

	c.debouncer.SetInterval(cfg.Input.Debounce.Duration())
	c.logErr("set pitch", c.engine.SetPitchBase(cfg.Audio.PitchBase))
	c.logErr("set pitch variance", c.engine.SetPitchVarianceEnabled(cfg.Audio.PitchVariance))
	if volumeUnset {
		c.logErr("set volume", c.engine.SetVolume(cfg.VolumeFraction()))
	}

	if old.Audio.Backend != cfg.Audio.Backend ||
		old.Audio.SampleRate != cfg.Audio.SampleRate ||
		old.Audio.Polyphony != cfg.Audio.Polyphony ||
		old.Idle != cfg.Idle {
		c.logger.Info("some config changes take effect after restart")
	}
}

// OnBanksReloaded re-activates the current bank if its files may have
// changed, or falls back when it was removed.
func (c *Controller) OnBanksReloaded() {
	active := c.engine.ActiveBank()
	if active == nil {
		return
	}
	entry, err := c.catalog.Find(active.Name)
	if errors.Is(err, bank.ErrNotFound) {
		entry, err = c.catalog.Restore("")
		if err != nil {
			c.logger.Warn("active bank removed and no fallback available", "bank", active.Name)
			return
		}
		c.logger.Info("active bank removed, falling back", "bank", active.Name, "fallback", entry.Bank.Name)
	} else if err != nil || entry.Source != bank.SourceUser {
		return
	}
	_, err = c.engine.ActivateBank(entry.Bank, entry.Resolver)
	c.logErr("activate bank", err)
}

// State returns a copy of the current shared state.
func (c *Controller) State() *store.SharedState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

func (c *Controller) update(mutate func(*store.SharedState)) {
	c.mu.Lock()
	mutate(c.state)
	snapshot := c.state.Clone()
	c.mu.Unlock()

	if c.statePath == "" {
		return
	}
	if err := store.SaveSharedStateTo(c.statePath, snapshot); err != nil {
		c.logger.Warn("failed to save state", "path", c.statePath, "error", err)
	}
}

// handleEvent runs on the engine goroutine; anything slow goes through the
// notice queue.
func (c *Controller) handleEvent(ev audio.Event) {
	switch ev.Type {
	case audio.EventBankActivated:
		loaded, requested := 0, 0
		if ev.Report != nil {
			loaded, requested = ev.Report.Loaded, ev.Report.Requested
			if ev.Report.Partial() {
				c.logger.Warn("bank partially loaded", "bank", ev.Bank, "loaded", loaded, "requested", requested)
			}
		}
		c.logger.Info("sound bank active", "bank", ev.Bank, "activation", ev.ActivationID, "samples", loaded)

		c.mu.Lock()
		preview := c.previewNext == ev.Bank
		if preview {
			c.previewNext = ""
		}
		c.mu.Unlock()
		if preview && loaded > 0 {
			c.logErr("preview", c.engine.Preview(0))
		}

		c.notify(func(s EventSink) error { return s.EmitBankActivated(ev.Bank, loaded, requested) })

	case audio.EventBankFailed:
		c.logger.Warn("sound bank failed to load", "bank", ev.Bank, "error", ev.Err)

	case audio.EventOutputUnavailable:
		reason := "output unavailable"
		if ev.Err != nil {
			reason = ev.Err.Error()
		}
		c.notify(func(s EventSink) error { return s.EmitOutputUnavailable(reason) })
	}
}

func (c *Controller) notify(send func(EventSink) error) {
	c.mu.Lock()
	sink := c.sink
	c.mu.Unlock()
	if sink == nil {
		return
	}
	select {
	case c.notices <- func() {
		if err := send(sink); err != nil {
			c.logger.Debug("failed to broadcast event", "error", err)
		}
	}:
	default:
		c.logger.Debug("event notice queue full")
	}
}

func (c *Controller) dispatchNotices() {
	defer close(c.doneCh)
	for fn := range c.notices {
		fn()
	}
}

func (c *Controller) logErr(action string, err error) {
	if err != nil {
		c.logger.Warn("engine request failed", "action", action, "error", err)
	}
}
