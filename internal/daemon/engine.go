package daemon

import (
	"fmt"
	"log/slog"

	"github.com/gopxl/beep/v2"

	"github.com/jmylchreest/keyclack/internal/audio"
	"github.com/jmylchreest/keyclack/internal/config"
)

// NewEngine builds an audio engine from the [audio] and [idle] config
// sections.
func NewEngine(cfg *config.Config, logger *slog.Logger) (*audio.Engine, error) {
	out, err := audio.NewOutput(cfg.Audio.Backend, beep.SampleRate(cfg.Audio.SampleRate), cfg.Audio.Buffer.Duration())
	if err != nil {
		return nil, fmt.Errorf("failed to create audio output: %w", err)
	}
	return audio.NewEngine(
		audio.WithOutput(out),
		audio.WithLogger(logger),
		audio.WithPolyphony(cfg.Audio.Polyphony),
		audio.WithQueueCapacity(cfg.Audio.QueueCapacity),
		audio.WithResampleQuality(cfg.Audio.ResampleQuality),
		audio.WithPitchBase(cfg.Audio.PitchBase),
		audio.WithPitchVariance(cfg.Audio.PitchVariance),
		audio.WithVolume(cfg.VolumeFraction()),
		audio.WithIdleTimeout(cfg.Idle.Timeout.Duration()),
	), nil
}
