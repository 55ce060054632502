package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func stream(v *Voice, n int) [][2]float64 {
	samples := make([][2]float64, n)
	got, ok := v.Stream(samples)
	if got != n || !ok {
		panic("voice must always fill the buffer")
	}
	return samples
}

func TestVoicePool_AcquireNext_RoundRobin(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		size := rapid.IntRange(1, 16).Draw(rt, "size")
		triggers := rapid.IntRange(0, 200).Draw(rt, "triggers")

		pool := NewVoicePool(size, testRate, 0)
		counts := make([]int, size)
		for i := range triggers {
			v := pool.AcquireNext()
			if v.ID() != i%size {
				rt.Fatalf("trigger %d got voice %d, want %d", i, v.ID(), i%size)
			}
			counts[v.ID()]++
		}

		for id, c := range counts {
			want := triggers / size
			if id < triggers%size {
				want++
			}
			if c != want {
				rt.Fatalf("voice %d used %d times, want %d", id, c, want)
			}
		}
	})
}

func TestNewVoicePool_Defaults(t *testing.T) {
	pool := NewVoicePool(0, testRate, 0)
	assert.Equal(t, DefaultPolyphony, pool.Size())
	assert.Equal(t, DefaultResampleQuality, pool.quality)
	assert.Equal(t, 0, pool.Cursor())

	pool.AcquireNext()
	assert.Equal(t, 1, pool.Cursor())
}

func TestVoice_IdleRendersSilence(t *testing.T) {
	v := newVoice(0)
	samples := stream(v, 64)
	for _, s := range samples {
		assert.Equal(t, [2]float64{}, s)
	}
	assert.False(t, v.Busy())
	assert.NoError(t, v.Err())
}

func TestVoice_GoesIdleAfterSample(t *testing.T) {
	pool := NewVoicePool(1, testRate, 0)
	v := pool.AcquireNext()
	pool.Play(v, mustBuffer(t, constWAV(10, 16384)), 1)
	require.True(t, v.Busy())

	samples := stream(v, 16)
	for i := range 10 {
		assert.InDelta(t, 0.5, samples[i][0], 0.001, "frame %d", i)
	}
	for i := 10; i < 16; i++ {
		assert.Equal(t, [2]float64{}, samples[i], "frame %d", i)
	}
	assert.False(t, v.Busy())
}

func TestVoicePool_Play_HardStopsAndRestarts(t *testing.T) {
	pool := NewVoicePool(1, testRate, 0)
	ramp := mustBuffer(t, rampWAV(1000))
	v := pool.AcquireNext()

	pool.Play(v, ramp, 1)
	stream(v, 100)

	// The only voice is still busy, so the next trigger steals it and
	// starts over from frame zero.
	next := pool.AcquireNext()
	require.Same(t, v, next)
	pool.Play(next, ramp, 1)

	samples := stream(v, 3)
	assert.InDelta(t, 0, samples[0][0], 0.001)
	assert.InDelta(t, 16.0/32768, samples[1][0], 0.001)

	stats := v.Stats()
	assert.Equal(t, uint64(2), stats.Plays)
	assert.Equal(t, uint64(1), stats.Steals)
	assert.True(t, stats.Busy)
}

func TestVoicePool_Play_FinishedVoiceIsNotStolen(t *testing.T) {
	pool := NewVoicePool(1, testRate, 0)
	short := mustBuffer(t, constWAV(4, 1000))
	v := pool.AcquireNext()

	pool.Play(v, short, 1)
	stream(v, 8)
	pool.Play(pool.AcquireNext(), short, 1)

	assert.Equal(t, uint64(0), v.Stats().Steals)
}

func TestVoicePool_SetVolume(t *testing.T) {
	pool := NewVoicePool(3, testRate, 0)
	buf := mustBuffer(t, constWAV(10, 16384))

	// Applies to idle voices too, and is picked up by their next render.
	pool.SetVolume(0.5)
	for i := range pool.Size() {
		v := pool.Voice(i)
		v.mu.Lock()
		assert.Equal(t, 0.5, v.gain)
		v.mu.Unlock()
	}

	v := pool.AcquireNext()
	pool.Play(v, buf, 1)
	assert.InDelta(t, 0.25, stream(v, 1)[0][0], 0.001)

	pool.SetVolume(0)
	v = pool.AcquireNext()
	pool.Play(v, buf, 1)
	assert.Equal(t, [2]float64{}, stream(v, 1)[0])
}

func TestVoicePool_Play_ConvertsSampleRate(t *testing.T) {
	pool := NewVoicePool(1, testRate, 0)
	half := mustBuffer(t, wavBytes(testRate/2, 100, func(int) int16 { return 16384 }))
	v := pool.AcquireNext()
	pool.Play(v, half, 1)

	// 100 frames at 22050 Hz last about 200 frames at 44100 Hz.
	first := stream(v, 150)
	assert.True(t, v.Busy())
	assert.InDelta(t, 0.5, first[100][0], 0.01)

	stream(v, 200)
	assert.False(t, v.Busy())
}

func TestVoicePool_StopAll(t *testing.T) {
	pool := NewVoicePool(3, testRate, 0)
	buf := mustBuffer(t, constWAV(1000, 1000))
	for range 3 {
		pool.Play(pool.AcquireNext(), buf, 1)
	}
	assert.Equal(t, 3, pool.Active())

	pool.StopAll()
	assert.Equal(t, 0, pool.Active())
}

func TestVoicePool_Streamer_MixesVoices(t *testing.T) {
	pool := NewVoicePool(2, testRate, 0)
	buf := mustBuffer(t, constWAV(100, 8192))
	pool.Play(pool.AcquireNext(), buf, 1)
	pool.Play(pool.AcquireNext(), buf, 1)

	samples := make([][2]float64, 10)
	n, ok := pool.Streamer().Stream(samples)
	assert.True(t, ok)
	assert.Equal(t, 10, n)
	assert.InDelta(t, 0.5, samples[0][0], 0.001)
}

func TestClampRate(t *testing.T) {
	assert.Equal(t, 1.0, clampRate(1))
	assert.Equal(t, minRate, clampRate(0))
	assert.Equal(t, minRate, clampRate(-3))
	assert.Equal(t, maxRate, clampRate(100))
}
