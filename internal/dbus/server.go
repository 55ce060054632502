package dbus

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/keyclack/internal/audio"
	"github.com/jmylchreest/keyclack/internal/bank"
	"github.com/jmylchreest/keyclack/internal/model"
)

const (
	// Interface is the control interface name.
	Interface = "io.github.jmylchreest.keyclack"
	// Path is the control object path.
	Path = "/io/github/jmylchreest/keyclack"
	// BusName is the bus name to claim.
	BusName = "io.github.jmylchreest.keyclack"

	errorPrefix = Interface + ".Error."
)

// Controller is the daemon surface the server forwards calls to.
type Controller interface {
	HandleKey(code uint16)
	Preview(index int) error
	SetVolume(volume float64) error
	SetMuted(muted bool) error
	SetEnabled(enabled bool) error
	SelectBank(name string) error
	Pause() error
	Resume() error
	ListBanks() []string
	Status() model.Status
}

// Server implements the keyclack control interface.
type Server struct {
	conn   *dbus.Conn
	ctrl   Controller
	logger *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewServer creates a server forwarding to ctrl.
func NewServer(ctrl Controller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{ctrl: ctrl, logger: logger}
}

// Start connects to the session bus and exports the control object.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("server already running")
	}

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	if err := conn.Export(s, Path, Interface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: Path,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: controlMethods(),
				Signals: controlSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), Path,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue|dbus.NameFlagReplaceExisting)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", BusName)
	}

	s.conn = conn
	s.running = true
	s.logger.Info("D-Bus control server started", "interface", Interface, "path", Path)
	return nil
}

// Stop releases the bus name. The shared session connection stays open.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(BusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		_ = s.conn.Export(nil, Path, Interface)
	}
	s.logger.Info("D-Bus control server stopped")
	return nil
}

// KeyDown injects a key press.
// D-Bus method: KeyDown(q)
func (s *Server) KeyDown(code uint16) *dbus.Error {
	s.ctrl.HandleKey(code)
	return nil
}

// Preview plays a sample of the active bank.
// D-Bus method: Preview(i)
func (s *Server) Preview(index int32) *dbus.Error {
	s.logger.Debug("Preview called", "index", index)
	return toDBusError(s.ctrl.Preview(int(index)))
}

// SetVolume sets the output volume in [0, 1].
// D-Bus method: SetVolume(d)
func (s *Server) SetVolume(volume float64) *dbus.Error {
	s.logger.Debug("SetVolume called", "volume", volume)
	return toDBusError(s.ctrl.SetVolume(volume))
}

// SetMuted mutes or unmutes key sounds.
// D-Bus method: SetMuted(b)
func (s *Server) SetMuted(muted bool) *dbus.Error {
	s.logger.Debug("SetMuted called", "muted", muted)
	return toDBusError(s.ctrl.SetMuted(muted))
}

// SetEnabled turns key sounds on or off.
// D-Bus method: SetEnabled(b)
func (s *Server) SetEnabled(enabled bool) *dbus.Error {
	s.logger.Debug("SetEnabled called", "enabled", enabled)
	return toDBusError(s.ctrl.SetEnabled(enabled))
}

// SelectBank activates a bank by name.
// D-Bus method: SelectBank(s)
func (s *Server) SelectBank(name string) *dbus.Error {
	s.logger.Debug("SelectBank called", "bank", name)
	return toDBusError(s.ctrl.SelectBank(name))
}

// Pause suspends audio output.
// D-Bus method: Pause()
func (s *Server) Pause() *dbus.Error {
	return toDBusError(s.ctrl.Pause())
}

// Resume restarts audio output.
// D-Bus method: Resume()
func (s *Server) Resume() *dbus.Error {
	return toDBusError(s.ctrl.Resume())
}

// ListBanks returns the names of all known banks.
// D-Bus method: ListBanks() -> as
func (s *Server) ListBanks() ([]string, *dbus.Error) {
	return s.ctrl.ListBanks(), nil
}

// GetStatus returns the daemon status.
// D-Bus method: GetStatus() -> a{sv}
func (s *Server) GetStatus() (map[string]dbus.Variant, *dbus.Error) {
	return StatusToMap(s.ctrl.Status()), nil
}

// EmitBankActivated emits BankActivated(bank, loaded, requested).
func (s *Server) EmitBankActivated(name string, loaded, requested int) error {
	return s.emit("BankActivated", name, int32(loaded), int32(requested))
}

// EmitOutputUnavailable emits OutputUnavailable(reason).
func (s *Server) EmitOutputUnavailable(reason string) error {
	return s.emit("OutputUnavailable", reason)
}

func (s *Server) emit(member string, args ...any) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}
	if err := conn.Emit(Path, Interface+"."+member, args...); err != nil {
		return fmt.Errorf("failed to emit %s signal: %w", member, err)
	}
	s.logger.Debug("emitted signal", "signal", member)
	return nil
}

// Error names returned to callers.
const (
	ErrorQueueFull   = errorPrefix + "QueueFull"
	ErrorNotFound    = errorPrefix + "NotFound"
	ErrorUnavailable = errorPrefix + "OutputUnavailable"
	ErrorInvalid     = errorPrefix + "InvalidArgument"
	ErrorFailed      = errorPrefix + "Failed"
)

func toDBusError(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	name := ErrorFailed
	switch {
	case errors.Is(err, audio.ErrQueueFull):
		name = ErrorQueueFull
	case errors.Is(err, bank.ErrNotFound):
		name = ErrorNotFound
	case errors.Is(err, audio.ErrOutputUnavailable):
		name = ErrorUnavailable
	case errors.Is(err, audio.ErrInvalidKeyMapping), errors.Is(err, model.ErrInvalidArgument):
		name = ErrorInvalid
	}
	return dbus.NewError(name, []any{err.Error()})
}

func controlMethods() []introspect.Method {
	return []introspect.Method{
		{Name: "KeyDown", Args: []introspect.Arg{{Name: "code", Type: "q", Direction: "in"}}},
		{Name: "Preview", Args: []introspect.Arg{{Name: "index", Type: "i", Direction: "in"}}},
		{Name: "SetVolume", Args: []introspect.Arg{{Name: "volume", Type: "d", Direction: "in"}}},
		{Name: "SetMuted", Args: []introspect.Arg{{Name: "muted", Type: "b", Direction: "in"}}},
		{Name: "SetEnabled", Args: []introspect.Arg{{Name: "enabled", Type: "b", Direction: "in"}}},
		{Name: "SelectBank", Args: []introspect.Arg{{Name: "bank", Type: "s", Direction: "in"}}},
		{Name: "Pause"},
		{Name: "Resume"},
		{Name: "ListBanks", Args: []introspect.Arg{{Name: "banks", Type: "as", Direction: "out"}}},
		{Name: "GetStatus", Args: []introspect.Arg{{Name: "status", Type: "a{sv}", Direction: "out"}}},
	}
}

func controlSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "BankActivated",
			Args: []introspect.Arg{
				{Name: "bank", Type: "s"},
				{Name: "loaded", Type: "i"},
				{Name: "requested", Type: "i"},
			},
		},
		{
			Name: "OutputUnavailable",
			Args: []introspect.Arg{{Name: "reason", Type: "s"}},
		},
	}
}
