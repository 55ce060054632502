package dbus

import (
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/keyclack/internal/model"
)

// StatusToMap encodes a status as the a{sv} returned by GetStatus.
// LastActivity travels as unix milliseconds, zero when unset.
func StatusToMap(s model.Status) map[string]dbus.Variant {
	var last int64
	if !s.LastActivity.IsZero() {
		last = s.LastActivity.UnixMilli()
	}
	return map[string]dbus.Variant{
		"enabled":          dbus.MakeVariant(s.Enabled),
		"state":            dbus.MakeVariant(s.State),
		"bank":             dbus.MakeVariant(s.Bank),
		"activation_id":    dbus.MakeVariant(s.ActivationID),
		"loaded":           dbus.MakeVariant(int32(s.Loaded)),
		"requested":        dbus.MakeVariant(int32(s.Requested)),
		"volume":           dbus.MakeVariant(s.Volume),
		"muted":            dbus.MakeVariant(s.Muted),
		"output_available": dbus.MakeVariant(s.OutputAvailable),
		"polyphony":        dbus.MakeVariant(int32(s.Polyphony)),
		"active_voices":    dbus.MakeVariant(int32(s.ActiveVoices)),
		"triggered":        dbus.MakeVariant(s.Triggered),
		"dropped":          dbus.MakeVariant(s.Dropped),
		"last_activity":    dbus.MakeVariant(last),
	}
}

// StatusFromMap decodes a GetStatus reply. Missing or mistyped keys keep
// their zero value.
func StatusFromMap(m map[string]dbus.Variant) model.Status {
	var s model.Status
	s.Enabled = variantValue[bool](m, "enabled")
	s.State = variantValue[string](m, "state")
	s.Bank = variantValue[string](m, "bank")
	s.ActivationID = variantValue[string](m, "activation_id")
	s.Loaded = int(variantValue[int32](m, "loaded"))
	s.Requested = int(variantValue[int32](m, "requested"))
	s.Volume = variantValue[float64](m, "volume")
	s.Muted = variantValue[bool](m, "muted")
	s.OutputAvailable = variantValue[bool](m, "output_available")
	s.Polyphony = int(variantValue[int32](m, "polyphony"))
	s.ActiveVoices = int(variantValue[int32](m, "active_voices"))
	s.Triggered = variantValue[uint64](m, "triggered")
	s.Dropped = variantValue[uint64](m, "dropped")
	if ms := variantValue[int64](m, "last_activity"); ms > 0 {
		s.LastActivity = time.UnixMilli(ms)
	}
	return s
}

func variantValue[T any](m map[string]dbus.Variant, key string) T {
	var zero T
	v, ok := m[key]
	if !ok {
		return zero
	}
	if t, ok := v.Value().(T); ok {
		return t
	}
	return zero
}
