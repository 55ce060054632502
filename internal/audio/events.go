package audio

import "time"

// State is the engine lifecycle state.
type State int32

const (
	StateUninitialized State = iota
	StateReady
	StatePaused
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StatePaused:
		return "paused"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// EventType identifies an engine event.
type EventType int

const (
	EventBankActivated EventType = iota
	EventBankFailed
	EventLoadSuperseded
	EventOutputUnavailable
	EventOutputRestored
	EventPaused
	EventResumed
)

func (t EventType) String() string {
	switch t {
	case EventBankActivated:
		return "bank_activated"
	case EventBankFailed:
		return "bank_failed"
	case EventLoadSuperseded:
		return "load_superseded"
	case EventOutputUnavailable:
		return "output_unavailable"
	case EventOutputRestored:
		return "output_restored"
	case EventPaused:
		return "paused"
	case EventResumed:
		return "resumed"
	}
	return "unknown"
}

// Event reports something the control queue did that callers cannot see
// from the return value of the operation that caused it.
type Event struct {
	Type         EventType
	Time         time.Time
	ActivationID string
	Bank         string
	Report       *LoadReport
	Reason       string
	Err          error
}

// Status is a point-in-time view of the engine.
type Status struct {
	State           State
	Bank            string
	ActivationID    string
	Loaded          int
	Requested       int
	Volume          float64
	Muted           bool
	PitchBase       float64
	PitchVariance   bool
	OutputAvailable bool
	Polyphony       int
	ActiveVoices    int
	LastActivity    time.Time
	Triggered       uint64
	Processed       uint64
	Dropped         uint64
}
