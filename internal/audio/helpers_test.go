package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"io/fs"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/keyclack/internal/model"
)

const testRate = 44100

// wavBytes builds a mono 16-bit PCM WAV whose frame i has value sample(i).
func wavBytes(rate, frames int, sample func(i int) int16) []byte {
	var b bytes.Buffer
	dataLen := uint32(frames * 2)

	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, 36+dataLen)
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(16))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1))
	_ = binary.Write(&b, binary.LittleEndian, uint32(rate))
	_ = binary.Write(&b, binary.LittleEndian, uint32(rate*2))
	_ = binary.Write(&b, binary.LittleEndian, uint16(2))
	_ = binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, dataLen)
	for i := range frames {
		_ = binary.Write(&b, binary.LittleEndian, sample(i))
	}
	return b.Bytes()
}

func constWAV(frames int, amp int16) []byte {
	return wavBytes(testRate, frames, func(int) int16 { return amp })
}

func rampWAV(frames int) []byte {
	return wavBytes(testRate, frames, func(i int) int16 { return int16(i * 16) })
}

func mustBuffer(t *testing.T, data []byte) *beep.Buffer {
	t.Helper()
	buf, err := decodeSample("test.wav", bytes.NewReader(data), DefaultMaxSampleBytes)
	require.NoError(t, err)
	return buf
}

// mapResolver serves files from memory.
type mapResolver map[string][]byte

func (m mapResolver) Open(name string) (io.ReadCloser, error) {
	data, ok := m[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// fiveFileBank returns a bank of five files with four round-robin samples
// and Enter mapped to the fifth.
func fiveFileBank(name string) (*model.SoundBank, mapResolver) {
	files := []string{"k1.wav", "k2.wav", "k3.wav", "k4.wav", "enter.wav"}
	res := mapResolver{}
	for i, f := range files {
		res[f] = constWAV(2000, int16(2000*(i+1)))
	}
	return model.NewSoundBank(name, "", files, 4, map[uint16]int{model.KeyReturn: 4}), res
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) last(typ EventType) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Type == typ {
			return l.events[i], true
		}
	}
	return Event{}, false
}

func (l *eventLog) count(typ EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func startEngine(t *testing.T, opts ...Option) (*Engine, *NullOutput, *eventLog) {
	t.Helper()
	out := NewNullOutput(testRate, false)
	base := []Option{
		WithOutput(out),
		WithLogger(discardLogger()),
		WithRandom(func() float64 { return 0.5 }),
	}
	e := NewEngine(append(base, opts...)...)
	events := &eventLog{}
	e.SetEventHandler(events.record)
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(e.Shutdown)
	return e, out, events
}

func waitQueue(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, e.Wait(ctx))
}

func activate(t *testing.T, e *Engine, bank *model.SoundBank, res Resolver) LoadReport {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	report, err := e.ActivateBankAndWait(ctx, bank, res)
	require.NoError(t, err)
	return report
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// flakyOutput fails Start and Resume while an error is set.
type flakyOutput struct {
	*NullOutput
	mu  sync.Mutex
	err error
}

func (f *flakyOutput) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *flakyOutput) failure() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *flakyOutput) Start(src beep.Streamer) error {
	if err := f.failure(); err != nil {
		return err
	}
	return f.NullOutput.Start(src)
}

func (f *flakyOutput) Resume() error {
	if err := f.failure(); err != nil {
		return err
	}
	return f.NullOutput.Resume()
}
