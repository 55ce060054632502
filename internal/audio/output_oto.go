package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/gopxl/beep/v2"
)

// OtoOutput drives an oto context directly with interleaved float32 stereo.
// oto allows one context per process, so only one OtoOutput may be started.
type OtoOutput struct {
	mu         sync.Mutex
	sampleRate beep.SampleRate
	buffer     time.Duration

	ctx     *oto.Context
	player  *oto.Player
	src     atomic.Pointer[beep.Streamer]
	frames  [][2]float64
	started bool
}

// NewOtoOutput creates an oto backend. A zero buffer lets oto choose.
func NewOtoOutput(rate beep.SampleRate, buffer time.Duration) *OtoOutput {
	return &OtoOutput{sampleRate: rate, buffer: buffer}
}

func (o *OtoOutput) SampleRate() beep.SampleRate {
	return o.sampleRate
}

func (o *OtoOutput) Start(src beep.Streamer) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.src.Store(&src)
	if o.ctx == nil {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   int(o.sampleRate),
			ChannelCount: 2,
			Format:       oto.FormatFloat32LE,
			BufferSize:   o.buffer,
		})
		if err != nil {
			return fmt.Errorf("failed to open oto context: %w", err)
		}
		<-ready
		o.ctx = ctx
	}
	if o.player == nil {
		o.player = o.ctx.NewPlayer(o)
	}
	o.player.Play()
	o.started = true
	return nil
}

// Read implements io.Reader for the oto player.
func (o *OtoOutput) Read(p []byte) (int, error) {
	const frameBytes = 8

	n := len(p) / frameBytes
	sp := o.src.Load()
	if sp == nil || n == 0 {
		clear(p)
		return len(p), nil
	}

	if cap(o.frames) < n {
		o.frames = make([][2]float64, n)
	}
	frames := o.frames[:n]
	got, _ := (*sp).Stream(frames)
	clear(frames[got:])

	for i, f := range frames {
		binary.LittleEndian.PutUint32(p[i*frameBytes:], math.Float32bits(float32(f[0])))
		binary.LittleEndian.PutUint32(p[i*frameBytes+4:], math.Float32bits(float32(f[1])))
	}
	clear(p[n*frameBytes:])
	return len(p), nil
}

func (o *OtoOutput) Suspend() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started {
		o.player.Pause()
		o.started = false
	}
	return nil
}

func (o *OtoOutput) Resume() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player == nil {
		return fmt.Errorf("oto output not started")
	}
	if !o.started {
		o.player.Play()
		o.started = true
	}
	return nil
}

func (o *OtoOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player != nil {
		o.player.Pause()
		if err := o.player.Close(); err != nil {
			return fmt.Errorf("failed to close oto player: %w", err)
		}
		o.player = nil
	}
	o.started = false
	o.src.Store(nil)
	return nil
}
