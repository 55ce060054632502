package dbus

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/keyclack/internal/model"
)

// Signal is a decoded control signal.
type Signal struct {
	Name      string
	Bank      string
	Loaded    int
	Requested int
	Reason    string
}

// Client calls a running keyclackd over its own session bus connection.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// NewClient connects to the session bus. It fails when no daemon owns the
// bus name.
func NewClient() (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	var owned bool
	if err := conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, BusName).Store(&owned); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to query bus name: %w", err)
	}
	if !owned {
		_ = conn.Close()
		return nil, fmt.Errorf("keyclackd is not running (%s has no owner)", BusName)
	}

	return &Client{
		conn: conn,
		obj:  conn.Object(BusName, dbus.ObjectPath(Path)),
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) call(method string, args ...any) *dbus.Call {
	return c.obj.Call(Interface+"."+method, 0, args...)
}

// KeyDown injects a key press.
func (c *Client) KeyDown(code uint16) error {
	return c.call("KeyDown", code).Err
}

// Preview plays sample index of the active bank.
func (c *Client) Preview(index int) error {
	return c.call("Preview", int32(index)).Err
}

// SetVolume sets the daemon volume.
func (c *Client) SetVolume(volume float64) error {
	return c.call("SetVolume", volume).Err
}

// SetMuted mutes or unmutes.
func (c *Client) SetMuted(muted bool) error {
	return c.call("SetMuted", muted).Err
}

// SetEnabled enables or disables key sounds.
func (c *Client) SetEnabled(enabled bool) error {
	return c.call("SetEnabled", enabled).Err
}

// SelectBank activates a bank by name.
func (c *Client) SelectBank(name string) error {
	return c.call("SelectBank", name).Err
}

// Pause suspends output.
func (c *Client) Pause() error {
	return c.call("Pause").Err
}

// Resume restarts output.
func (c *Client) Resume() error {
	return c.call("Resume").Err
}

// ListBanks returns bank names known to the daemon.
func (c *Client) ListBanks() ([]string, error) {
	var names []string
	if err := c.call("ListBanks").Store(&names); err != nil {
		return nil, err
	}
	return names, nil
}

// Status returns the daemon status.
func (c *Client) Status() (model.Status, error) {
	var m map[string]dbus.Variant
	if err := c.call("GetStatus").Store(&m); err != nil {
		return model.Status{}, err
	}
	return StatusFromMap(m), nil
}

// Subscribe delivers control signals to handler until ctx is done.
func (c *Client) Subscribe(ctx context.Context, handler func(Signal)) error {
	if err := c.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(dbus.ObjectPath(Path)),
		dbus.WithMatchInterface(Interface),
	); err != nil {
		return fmt.Errorf("failed to add signal match: %w", err)
	}

	ch := make(chan *dbus.Signal, 16)
	c.conn.Signal(ch)

	go func() {
		defer c.conn.RemoveSignal(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-ch:
				if !ok {
					return
				}
				if decoded, ok := DecodeSignal(sig); ok {
					handler(decoded)
				}
			}
		}
	}()
	return nil
}

// DecodeSignal converts a raw bus signal into a Signal.
func DecodeSignal(sig *dbus.Signal) (Signal, bool) {
	if sig == nil || sig.Path != dbus.ObjectPath(Path) {
		return Signal{}, false
	}
	switch sig.Name {
	case Interface + ".BankActivated":
		if len(sig.Body) < 3 {
			return Signal{}, false
		}
		name, _ := sig.Body[0].(string)
		loaded, _ := sig.Body[1].(int32)
		requested, _ := sig.Body[2].(int32)
		return Signal{Name: "BankActivated", Bank: name, Loaded: int(loaded), Requested: int(requested)}, true
	case Interface + ".OutputUnavailable":
		if len(sig.Body) < 1 {
			return Signal{}, false
		}
		reason, _ := sig.Body[0].(string)
		return Signal{Name: "OutputUnavailable", Reason: reason}, true
	}
	return Signal{}, false
}
