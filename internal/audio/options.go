package audio

import (
	"log/slog"
	"math/rand/v2"
	"time"
)

// DefaultQueueCapacity is the control queue depth.
const DefaultQueueCapacity = 256

// PitchVariance is the half-width of the random pitch offset applied per
// trigger when variance is enabled.
const PitchVariance = 0.05

// DefaultVolume is the master gain of a new engine.
const DefaultVolume = 0.7

type options struct {
	polyphony      int
	queueCapacity  int
	quality        int
	maxSampleBytes int64
	output         Output
	logger         *slog.Logger
	random         func() float64
	now            func() time.Time
	idleTimeout    time.Duration
	volume         float64
	pitchBase      float64
	variance       bool
}

func defaultOptions() options {
	return options{
		polyphony:     DefaultPolyphony,
		queueCapacity: DefaultQueueCapacity,
		quality:       DefaultResampleQuality,
		random:        rand.Float64,
		now:           time.Now,
		volume:        DefaultVolume,
		pitchBase:     1.0,
		variance:      true,
	}
}

// Option configures an Engine.
type Option func(*options)

// WithPolyphony sets the number of voices.
func WithPolyphony(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.polyphony = n
		}
	}
}

// WithQueueCapacity sets the control queue depth.
func WithQueueCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueCapacity = n
		}
	}
}

// WithResampleQuality sets the beep resampler quality (1-64).
func WithResampleQuality(q int) Option {
	return func(o *options) {
		o.quality = q
	}
}

// WithMaxSampleBytes bounds the size of one encoded sample file.
func WithMaxSampleBytes(n int64) Option {
	return func(o *options) {
		o.maxSampleBytes = n
	}
}

// WithOutput sets the output backend. The default is a SpeakerOutput at
// DefaultSampleRate.
func WithOutput(out Output) Option {
	return func(o *options) {
		o.output = out
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithRandom replaces the source of pitch variance. fn must return values
// in [0, 1).
func WithRandom(fn func() float64) Option {
	return func(o *options) {
		if fn != nil {
			o.random = fn
		}
	}
}

// WithClock replaces time.Now for activity tracking.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIdleTimeout pauses output after d without a trigger. Zero disables
// idle pausing.
func WithIdleTimeout(d time.Duration) Option {
	return func(o *options) {
		o.idleTimeout = d
	}
}

// WithVolume sets the initial master gain.
func WithVolume(v float64) Option {
	return func(o *options) {
		o.volume = clampVolume(v)
	}
}

// WithPitchBase sets the initial base playback rate.
func WithPitchBase(rate float64) Option {
	return func(o *options) {
		o.pitchBase = clampRate(rate)
	}
}

// WithPitchVariance enables or disables per-trigger pitch variance.
func WithPitchVariance(enabled bool) Option {
	return func(o *options) {
		o.variance = enabled
	}
}
