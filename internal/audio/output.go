package audio

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// Output renders a streamer on some device. The engine calls every method
// from its control queue.
type Output interface {
	// SampleRate is the rate the streamer passed to Start must produce.
	SampleRate() beep.SampleRate
	// Start opens the device and begins pulling from src.
	Start(src beep.Streamer) error
	// Suspend stops pulling without releasing the device.
	Suspend() error
	// Resume continues after Suspend.
	Resume() error
	// Close releases the device.
	Close() error
}

// Backend names accepted by NewOutput.
const (
	BackendSpeaker = "speaker"
	BackendOto     = "oto"
	BackendNull    = "null"
)

// DefaultSampleRate is the output rate used when none is configured.
const DefaultSampleRate = beep.SampleRate(44100)

// NewOutput builds the named backend.
func NewOutput(backend string, rate beep.SampleRate, buffer time.Duration) (Output, error) {
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	switch strings.ToLower(backend) {
	case "", BackendSpeaker:
		return NewSpeakerOutput(rate, buffer), nil
	case BackendOto:
		return NewOtoOutput(rate, buffer), nil
	case BackendNull:
		return NewNullOutput(rate, true), nil
	}
	return nil, fmt.Errorf("unknown audio backend %q", backend)
}

// SpeakerOutput plays through beep's speaker package.
type SpeakerOutput struct {
	mu          sync.Mutex
	sampleRate  beep.SampleRate
	buffer      time.Duration
	initialized bool
}

// NewSpeakerOutput creates a speaker backend. A zero buffer uses 10ms.
func NewSpeakerOutput(rate beep.SampleRate, buffer time.Duration) *SpeakerOutput {
	if buffer <= 0 {
		buffer = 10 * time.Millisecond
	}
	return &SpeakerOutput{sampleRate: rate, buffer: buffer}
}

func (o *SpeakerOutput) SampleRate() beep.SampleRate {
	return o.sampleRate
}

func (o *SpeakerOutput) Start(src beep.Streamer) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.initialized {
		if err := speaker.Init(o.sampleRate, o.sampleRate.N(o.buffer)); err != nil {
			return fmt.Errorf("failed to initialize speaker: %w", err)
		}
		o.initialized = true
	}
	speaker.Clear()
	speaker.Play(src)
	return nil
}

func (o *SpeakerOutput) Suspend() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.initialized {
		return nil
	}
	return speaker.Suspend()
}

func (o *SpeakerOutput) Resume() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.initialized {
		return fmt.Errorf("speaker not initialized")
	}
	return speaker.Resume()
}

func (o *SpeakerOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.initialized {
		speaker.Clear()
		speaker.Close()
		o.initialized = false
	}
	return nil
}

// NullOutput discards audio. In realtime mode it pulls from the source at
// the sample rate so voices advance as they would on a device; otherwise
// frames only move when Pull is called.
type NullOutput struct {
	mu         sync.Mutex
	sampleRate beep.SampleRate
	realtime   bool
	src        beep.Streamer
	running    bool
	pulled     int
	peak       float64
	stopCh     chan struct{}
	doneCh     chan struct{}
}

// NewNullOutput creates a device-less output.
func NewNullOutput(rate beep.SampleRate, realtime bool) *NullOutput {
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	return &NullOutput{sampleRate: rate, realtime: realtime}
}

func (o *NullOutput) SampleRate() beep.SampleRate {
	return o.sampleRate
}

func (o *NullOutput) Start(src beep.Streamer) error {
	o.mu.Lock()
	o.src = src
	o.running = true
	o.mu.Unlock()

	if o.realtime && o.stopCh == nil {
		o.stopCh = make(chan struct{})
		o.doneCh = make(chan struct{})
		go o.run()
	}
	return nil
}

func (o *NullOutput) run() {
	defer close(o.doneCh)

	const tick = 10 * time.Millisecond
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	frames := o.sampleRate.N(tick)
	for {
		select {
		case <-o.stopCh:
			return
		case <-ticker.C:
			o.Pull(frames)
		}
	}
}

// Pull renders n frames from the source if the output is running and
// returns them.
func (o *NullOutput) Pull(n int) [][2]float64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.running || o.src == nil || n <= 0 {
		return nil
	}
	samples := make([][2]float64, n)
	got, _ := o.src.Stream(samples)
	samples = samples[:got]
	o.pulled += got
	for _, s := range samples {
		o.peak = max(o.peak, abs(s[0]), abs(s[1]))
	}
	return samples
}

// Pulled returns the total number of frames rendered.
func (o *NullOutput) Pulled() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pulled
}

// Peak returns the largest absolute sample value rendered so far.
func (o *NullOutput) Peak() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.peak
}

// Running reports whether the output is pulling.
func (o *NullOutput) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

func (o *NullOutput) Suspend() error {
	o.mu.Lock()
	o.running = false
	o.mu.Unlock()
	return nil
}

func (o *NullOutput) Resume() error {
	o.mu.Lock()
	o.running = o.src != nil
	o.mu.Unlock()
	return nil
}

func (o *NullOutput) Close() error {
	o.mu.Lock()
	o.running = false
	o.src = nil
	o.mu.Unlock()

	if o.stopCh != nil {
		close(o.stopCh)
		<-o.doneCh
		o.stopCh = nil
	}
	return nil
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
