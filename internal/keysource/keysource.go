// Package keysource turns raw keyboard input into debounced key codes.
package keysource

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrInterrupted is returned by a source when the user asked to stop, for
// example with Ctrl-C in raw terminal mode.
var ErrInterrupted = errors.New("input interrupted")

// Source produces key codes until ctx is done or input ends.
type Source interface {
	Run(ctx context.Context, emit func(code uint16)) error
}

// Debouncer drops a key that repeats within the interval of its previous
// press. Different keys are never suppressed.
type Debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	lastKey  uint16
	lastAt   time.Time
	hasLast  bool
}

// NewDebouncer creates a debouncer. A zero interval disables it.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Allow reports whether a press of code at now should be passed on.
func (d *Debouncer) Allow(code uint16, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.interval > 0 && d.hasLast && code == d.lastKey && now.Sub(d.lastAt) < d.interval {
		return false
	}
	d.lastKey = code
	d.lastAt = now
	d.hasLast = true
	return true
}

// SetInterval changes the repeat window.
func (d *Debouncer) SetInterval(interval time.Duration) {
	d.mu.Lock()
	d.interval = interval
	d.mu.Unlock()
}

// Filter wraps emit so only debounced presses get through.
func (d *Debouncer) Filter(emit func(uint16)) func(uint16) {
	return func(code uint16) {
		if d.Allow(code, time.Now()) {
			emit(code)
		}
	}
}
