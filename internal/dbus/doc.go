// Package dbus exposes the keyclack daemon on the session bus.
//
// The daemon claims io.github.jmylchreest.keyclack and serves a small control
// interface at /io/github/jmylchreest/keyclack: key injection, preview,
// volume, mute, enable, bank selection and status. Clients such as the CLI
// and the TUI use Client to call it and to follow its signals.
package dbus
