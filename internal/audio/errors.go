package audio

import "errors"

// Engine and loader errors.
var (
	// ErrResourceUnavailable marks a sample file that could not be resolved
	// or decoded. Loading skips it and continues.
	ErrResourceUnavailable = errors.New("sample unavailable")

	// ErrOutputUnavailable is reported when the output device cannot be
	// started or resumed. Triggers are dropped until a resume succeeds.
	ErrOutputUnavailable = errors.New("audio output unavailable")

	// ErrInvalidKeyMapping marks a key that resolves past the loaded samples.
	ErrInvalidKeyMapping = errors.New("key maps past loaded samples")

	// ErrEmptyBank is reported when a bank finished loading with no samples.
	ErrEmptyBank = errors.New("bank has no playable samples")

	ErrQueueFull   = errors.New("control queue full")
	ErrNotRunning  = errors.New("engine not running")
	ErrSuperseded  = errors.New("bank activation superseded")
	ErrNilResolver = errors.New("resolver is nil")
	ErrNilBank     = errors.New("bank is nil")
)

// FileError records why one file of a bank was skipped.
type FileError struct {
	Name string
	Err  error
}

func (e FileError) Error() string {
	return e.Name + ": " + e.Err.Error()
}

func (e FileError) Unwrap() error {
	return e.Err
}
