package model

import (
	"errors"
	"time"
)

// ErrInvalidArgument marks a setting rejected as out of range.
var ErrInvalidArgument = errors.New("invalid argument")

// Status is the daemon state reported to clients over D-Bus and printed by
// the CLI.
type Status struct {
	Enabled         bool      `json:"enabled" yaml:"enabled"`
	State           string    `json:"state" yaml:"state"`
	Bank            string    `json:"bank" yaml:"bank"`
	ActivationID    string    `json:"activation_id,omitempty" yaml:"activation_id,omitempty"`
	Loaded          int       `json:"loaded" yaml:"loaded"`
	Requested       int       `json:"requested" yaml:"requested"`
	Volume          float64   `json:"volume" yaml:"volume"`
	Muted           bool      `json:"muted" yaml:"muted"`
	OutputAvailable bool      `json:"output_available" yaml:"output_available"`
	Polyphony       int       `json:"polyphony" yaml:"polyphony"`
	ActiveVoices    int       `json:"active_voices" yaml:"active_voices"`
	Triggered       uint64    `json:"triggered" yaml:"triggered"`
	Dropped         uint64    `json:"dropped" yaml:"dropped"`
	LastActivity    time.Time `json:"last_activity,omitzero" yaml:"last_activity,omitempty"`
}

// PartialLoad reports whether the active bank is missing samples.
func (s Status) PartialLoad() bool {
	return s.Loaded < s.Requested
}
