package ittrack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternRowMajorIndexing(t *testing.T) {
	p := NewPattern(4)

	// A historical revision indexed column-major (channel*channels+row);
	// row-major is the contract (channel varies fastest within a row).
	p.Set(2, 1, Note{Initialized: true, Key: KeyA, Octave: 4})
	require.Equal(t, Note{Initialized: true, Key: KeyA, Octave: 4}, p.At(2, 1))
	assert.False(t, p.At(2, 0).Initialized)
	assert.False(t, p.At(0, 1).Initialized)
	assert.Equal(t, 1*PatternChannels+2, indexOf(p, 2, 1))
}

func indexOf(p *Pattern, channel, row int) int {
	return row*PatternChannels + channel
}

func TestPianoKeyIsPitched(t *testing.T) {
	assert.False(t, KeyNone.IsPitched())
	assert.False(t, KeyNoteCut.IsPitched())
	assert.False(t, KeyNoteOff.IsPitched())
	assert.False(t, KeyNoteFade.IsPitched())
	assert.True(t, KeyC.IsPitched())
	assert.True(t, KeyB.IsPitched())
}

func TestNoteNumber(t *testing.T) {
	n := Note{Key: KeyC, Octave: 5}
	assert.Equal(t, 60, n.NoteNumber())

	n = Note{Key: KeyCSharp, Octave: 5}
	assert.Equal(t, 61, n.NoteNumber())
}

func TestSampleFrames(t *testing.T) {
	s := &Sample{Format: SampleFormat{Bits: 16, Channels: 2}, Data: make([]byte, 16)}
	assert.Equal(t, 4, s.Frames())

	empty := &Sample{Format: SampleFormat{Bits: 0, Channels: 0}}
	assert.Equal(t, 0, empty.Frames())
}
