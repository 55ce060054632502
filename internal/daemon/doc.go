// Package daemon wires the audio engine to keyclack's settings and inputs.
// It owns the Controller that every input (keys, D-Bus, state file) goes
// through, the idle monitor, and config hot-reload.
package daemon
