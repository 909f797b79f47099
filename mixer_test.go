package ittrack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMixerPlayBufferMonoNearest(t *testing.T) {
	var m mixer
	data := []byte{byte(int8(64)), byte(int8(-64)), byte(int8(127))}
	m.PlayBuffer(0, data, SampleFormat{Bits: 8, Channels: 1}, voiceProperties{
		Volume: 1, Speed: 1, Panning: 0.5,
	})

	l, r := m.mixFrame()
	assert.InDelta(t, 64.0/128.0*0.5, l, 1e-9)
	assert.InDelta(t, 64.0/128.0*0.5, r, 1e-9)
}

func TestMixerPanningSplitsLeftRight(t *testing.T) {
	var m mixer
	data := []byte{byte(int8(100))}
	m.PlayBuffer(0, data, SampleFormat{Bits: 8, Channels: 1}, voiceProperties{
		Volume: 1, Speed: 1, Panning: 1, // hard right
	})

	l, r := m.mixFrame()
	assert.InDelta(t, 0, l, 1e-9)
	assert.InDelta(t, 100.0/128.0, r, 1e-9)
}

func TestMixerMuteSilencesButStillAdvances(t *testing.T) {
	var m mixer
	data := []byte{byte(int8(10)), byte(int8(20)), byte(int8(30))}
	m.PlayBuffer(0, data, SampleFormat{Bits: 8, Channels: 1}, voiceProperties{
		Volume: 1, Speed: 1, Panning: 0,
	})
	m.SetMute(1 << 0)

	l, r := m.mixFrame()
	assert.Equal(t, 0.0, l)
	assert.Equal(t, 0.0, r)
	assert.Equal(t, uint64(1)<<mixerFixedShift, m.voices[0].pos) // still advanced one frame
}

func TestMixerLoopingWraps(t *testing.T) {
	var m mixer
	data := []byte{byte(int8(1)), byte(int8(2)), byte(int8(3)), byte(int8(4))}
	m.PlayBuffer(0, data, SampleFormat{Bits: 8, Channels: 1}, voiceProperties{
		Volume: 1, Speed: 1, Panning: 0, Looping: true, LoopStart: 1, LoopEnd: 4,
	})

	for i := 0; i < 10; i++ {
		m.mixFrame()
	}
	require.True(t, m.voices[0].playing)
	frame := int(m.voices[0].pos >> mixerFixedShift)
	assert.GreaterOrEqual(t, frame, 1)
	assert.Less(t, frame, 4)
}

func TestMixerNonLoopingStopsAtEnd(t *testing.T) {
	var m mixer
	data := []byte{byte(int8(1)), byte(int8(2))}
	m.PlayBuffer(0, data, SampleFormat{Bits: 8, Channels: 1}, voiceProperties{
		Volume: 1, Speed: 1, Panning: 0,
	})

	for i := 0; i < 5; i++ {
		m.mixFrame()
	}
	assert.False(t, m.voices[0].playing)
}

func TestVoiceLinearInterpolation(t *testing.T) {
	v := &voice{
		data:    []byte{byte(int8(0)), byte(int8(127))},
		format:  SampleFormat{Bits: 8, Channels: 1},
		frames:  2,
		playing: true,
		pos:     mixerFixedOne / 2, // halfway between frame 0 and frame 1
		props:   voiceProperties{Interpolation: InterpolationLinear},
	}
	got := v.readSample()
	want := (0.0 + 127.0/128.0) / 2
	assert.InDelta(t, want, got, 1e-6)
}

func TestVoiceNearestInterpolationIgnoresFraction(t *testing.T) {
	v := &voice{
		data:    []byte{byte(int8(0)), byte(int8(127))},
		format:  SampleFormat{Bits: 8, Channels: 1},
		frames:  2,
		playing: true,
		pos:     mixerFixedOne / 2,
		props:   voiceProperties{Interpolation: InterpolationNone},
	}
	assert.InDelta(t, 0.0, v.readSample(), 1e-9)
}

func TestMixerAdvanceAlternatesLeftRight(t *testing.T) {
	var m mixer
	data := []byte{byte(int8(50))}
	m.PlayBuffer(0, data, SampleFormat{Bits: 8, Channels: 1}, voiceProperties{
		Volume: 1, Speed: 1, Panning: 0.25,
	})

	first := m.Advance()
	second := m.Advance()
	assert.NotEqual(t, first, second)
}
