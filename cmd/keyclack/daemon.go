package main

import (
	"github.com/jmylchreest/keyclack/internal/config"
	"github.com/jmylchreest/keyclack/internal/dbus"
	"github.com/jmylchreest/keyclack/internal/model"
	"github.com/jmylchreest/keyclack/internal/store"
)

// connectDaemon returns a client for the running daemon, or nil with the
// reason when it cannot be reached.
func connectDaemon() (*dbus.Client, error) {
	client, err := dbus.NewClient()
	if err != nil {
		logger.Debug("daemon not reachable", "error", err)
		return nil, err
	}
	return client, nil
}

// updateStateFile applies mutate to the shared state file. A running
// keyclackd without D-Bus picks the change up through its state watcher.
func updateStateFile(mutate func(*store.SharedState)) error {
	if err := config.EnsureDataDir(); err != nil {
		return err
	}
	path := config.StatePath()
	state, err := store.LoadSharedStateFrom(path)
	if err != nil {
		return err
	}
	mutate(state)
	return store.SaveSharedStateTo(path, state)
}

// offlineStatus describes the persisted settings when no daemon runs.
func offlineStatus() (model.Status, error) {
	state, err := store.LoadSharedStateFrom(config.StatePath())
	if err != nil {
		return model.Status{}, err
	}
	bankName := state.Bank
	if bankName == "" {
		bankName = cfg.Bank.Name
	}
	return model.Status{
		Enabled:   state.Enabled,
		State:     "stopped",
		Bank:      bankName,
		Volume:    state.VolumeOr(cfg.VolumeFraction()),
		Muted:     state.Muted,
		Polyphony: cfg.Audio.Polyphony,
	}, nil
}
