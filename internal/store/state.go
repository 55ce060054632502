// Package store persists the settings shared between keyclack and keyclackd.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Change sources recorded in Transition.Source.
const (
	SourceCLI    = "cli"
	SourceDaemon = "daemon"
)

// Transition records the last change made to the shared state.
type Transition struct {
	Field     string `json:"field"`            // Which setting changed
	Source    string `json:"source,omitempty"` // "cli" or "daemon"
	Reason    string `json:"reason,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// SharedState contains the user-facing settings that survive restarts.
// keyclack keeps it at config.StatePath().
type SharedState struct {
	Enabled bool     `json:"enabled"`
	Muted   bool     `json:"muted"`
	Volume  *float64 `json:"volume,omitempty"` // 0-1; nil until first set
	Bank    string   `json:"bank,omitempty"`   // Last selected bank name

	LastTransition *Transition `json:"last_transition,omitempty"`
	UpdatedAt      int64       `json:"updated_at,omitempty"`

	SchemaVersion int `json:"schema_version"`
}

const (
	// CurrentSchemaVersion is the current version of the state schema.
	CurrentSchemaVersion = 1
)

// stateFileMutex protects concurrent access to the state file.
var stateFileMutex sync.RWMutex

// DefaultSharedState returns a new SharedState with default values.
func DefaultSharedState() *SharedState {
	return &SharedState{
		Enabled:       true,
		SchemaVersion: CurrentSchemaVersion,
	}
}

// LoadSharedStateFrom loads the shared state from path.
func LoadSharedStateFrom(path string) (*SharedState, error) {
	stateFileMutex.RLock()
	defer stateFileMutex.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSharedState(), nil
		}
		return nil, err
	}

	state := DefaultSharedState()
	if err := json.Unmarshal(data, state); err != nil {
		return DefaultSharedState(), nil
	}

	if state.SchemaVersion == 0 {
		state.SchemaVersion = CurrentSchemaVersion
	}

	return state, nil
}

// SaveSharedStateTo writes state to path atomically.
func SaveSharedStateTo(path string, state *SharedState) error {
	stateFileMutex.Lock()
	defer stateFileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	if state.SchemaVersion == 0 {
		state.SchemaVersion = CurrentSchemaVersion
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

// VolumeOr returns the stored volume, or def when none was ever stored.
func (s *SharedState) VolumeOr(def float64) float64 {
	if s.Volume == nil {
		return def
	}
	return *s.Volume
}

// SetEnabled turns keystroke sounds on or off.
func (s *SharedState) SetEnabled(enabled bool, source, reason string) {
	s.Enabled = enabled
	s.touch("enabled", source, reason)
}

// SetMuted mutes or unmutes triggers.
func (s *SharedState) SetMuted(muted bool, source string) {
	s.Muted = muted
	s.touch("muted", source, "")
}

// SetVolume stores the volume, clamped to [0, 1].
func (s *SharedState) SetVolume(volume float64, source string) {
	volume = min(max(volume, 0), 1)
	s.Volume = &volume
	s.touch("volume", source, "")
}

// SetBank records the selected bank.
func (s *SharedState) SetBank(name, source string) {
	s.Bank = name
	s.touch("bank", source, "")
}

// Clone returns a deep copy.
func (s *SharedState) Clone() *SharedState {
	c := *s
	if s.Volume != nil {
		v := *s.Volume
		c.Volume = &v
	}
	if s.LastTransition != nil {
		t := *s.LastTransition
		c.LastTransition = &t
	}
	return &c
}

func (s *SharedState) touch(field, source, reason string) {
	now := time.Now().Unix()
	s.UpdatedAt = now
	s.LastTransition = &Transition{
		Field:     field,
		Source:    source,
		Reason:    reason,
		Timestamp: now,
	}
}
