package audio

import (
	"math"
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

const (
	// DefaultPolyphony is the number of voices in a pool.
	DefaultPolyphony = 6

	// DefaultResampleQuality is passed to beep's resampler.
	DefaultResampleQuality = 4

	minRate = 0.25
	maxRate = 4.0
)

// VoiceStats counts what a voice has done since it was created.
type VoiceStats struct {
	Plays    uint64
	Steals   uint64
	LastRate float64
	Busy     bool
}

// Voice is one permanent input of the output mix. While idle it renders
// silence; Play replaces whatever it was rendering.
type Voice struct {
	id int

	mu       sync.Mutex
	src      beep.Streamer
	gain     float64
	plays    uint64
	steals   uint64
	lastRate float64
}

func newVoice(id int) *Voice {
	return &Voice{id: id, gain: 1}
}

// ID returns the voice's position in its pool.
func (v *Voice) ID() int {
	return v.id
}

// Stream implements beep.Streamer. It always fills samples, padding with
// silence, and never reports exhaustion so the mixer keeps the voice.
func (v *Voice) Stream(samples [][2]float64) (int, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	n := 0
	if v.src != nil {
		var ok bool
		n, ok = v.src.Stream(samples)
		if !ok || n < len(samples) {
			v.src = nil
		}
	}
	clear(samples[n:])
	return len(samples), true
}

// Err implements beep.Streamer.
func (v *Voice) Err() error {
	return nil
}

// Busy reports whether the voice is rendering a sample.
func (v *Voice) Busy() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.src != nil
}

// Stats returns a snapshot of the voice counters.
func (v *Voice) Stats() VoiceStats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return VoiceStats{
		Plays:    v.plays,
		Steals:   v.steals,
		LastRate: v.lastRate,
		Busy:     v.src != nil,
	}
}

func (v *Voice) setGain(gain float64) {
	v.mu.Lock()
	v.gain = gain
	v.mu.Unlock()
}

// start hard-stops the current render and begins s from its first frame.
// The gain in effect now is applied for the whole render.
func (v *Voice) start(s beep.Streamer, rate float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.src != nil {
		v.steals++
	}
	v.src = withGain(s, v.gain)
	v.plays++
	v.lastRate = rate
}

func (v *Voice) stop() {
	v.mu.Lock()
	v.src = nil
	v.mu.Unlock()
}

// withGain wraps s in a linear gain. Base 2 with a log2 exponent gives an
// exact multiplier.
func withGain(s beep.Streamer, gain float64) beep.Streamer {
	if gain == 1 {
		return s
	}
	return &effects.Volume{
		Streamer: s,
		Base:     2,
		Volume:   math.Log2(max(gain, 1e-6)),
		Silent:   gain <= 0,
	}
}

// VoicePool is a fixed set of voices chosen strictly round robin. All
// methods except Streamer belong to the engine's control queue.
type VoicePool struct {
	voices  []*Voice
	cursor  int
	outRate beep.SampleRate
	quality int
	mix     beep.Streamer
}

// NewVoicePool creates size voices rendering at outRate. A size below one
// uses DefaultPolyphony.
func NewVoicePool(size int, outRate beep.SampleRate, quality int) *VoicePool {
	if size < 1 {
		size = DefaultPolyphony
	}
	if quality < 1 || quality > 64 {
		quality = DefaultResampleQuality
	}

	p := &VoicePool{
		voices:  make([]*Voice, size),
		outRate: outRate,
		quality: quality,
	}
	streamers := make([]beep.Streamer, size)
	for i := range p.voices {
		p.voices[i] = newVoice(i)
		streamers[i] = p.voices[i]
	}
	p.mix = beep.Mix(streamers...)
	return p
}

// Size returns the pool capacity.
func (p *VoicePool) Size() int {
	return len(p.voices)
}

// Voice returns the voice at index i.
func (p *VoicePool) Voice(i int) *Voice {
	return p.voices[i]
}

// Cursor returns the index AcquireNext will hand out next.
func (p *VoicePool) Cursor() int {
	return p.cursor
}

// Streamer returns the mix of every voice, ready to hand to an output.
func (p *VoicePool) Streamer() beep.Streamer {
	return p.mix
}

// AcquireNext returns the voice at the cursor and advances it.
func (p *VoicePool) AcquireNext() *Voice {
	v := p.voices[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.voices)
	return v
}

// Play stops v and starts buffer on it from frame zero. rate is the pitch
// multiplier; conversion from the buffer's sample rate to the output rate is
// folded into the same resampler.
func (p *VoicePool) Play(v *Voice, buffer *beep.Buffer, rate float64) {
	rate = clampRate(rate)

	var s beep.Streamer = buffer.Streamer(0, buffer.Len())
	ratio := rate * float64(buffer.Format().SampleRate) / float64(p.outRate)
	if ratio != 1 {
		s = beep.ResampleRatio(p.quality, ratio, s)
	}
	v.start(s, rate)
}

// StopAll silences every voice.
func (p *VoicePool) StopAll() {
	for _, v := range p.voices {
		v.stop()
	}
}

// SetVolume sets the gain used by every voice's next render.
func (p *VoicePool) SetVolume(gain float64) {
	for _, v := range p.voices {
		v.setGain(gain)
	}
}

// Active returns how many voices are rendering.
func (p *VoicePool) Active() int {
	n := 0
	for _, v := range p.voices {
		if v.Busy() {
			n++
		}
	}
	return n
}

func clampRate(rate float64) float64 {
	if math.IsNaN(rate) || rate < minRate {
		return minRate
	}
	if rate > maxRate {
		return maxRate
	}
	return rate
}
