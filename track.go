// Package ittrack loads Impulse Tracker (.it) module files and plays them
// back through a small single-threaded synthesis engine.
package ittrack

import "fmt"

// PianoKey is a closed set of the twelve chromatic pitches plus the three
// special "no pitch" note actions an IT pattern cell can carry.
type PianoKey int

const (
	KeyNone PianoKey = iota - 4
	KeyNoteCut
	KeyNoteOff
	KeyNoteFade
	KeyC
	KeyCSharp
	KeyD
	KeyDSharp
	KeyE
	KeyF
	KeyFSharp
	KeyG
	KeyGSharp
	KeyA
	KeyASharp
	KeyB
)

var keyNames = map[PianoKey]string{
	KeyNone: "...", KeyNoteCut: "^^^", KeyNoteOff: "===", KeyNoteFade: "~~~",
	KeyC: "C-", KeyCSharp: "C#", KeyD: "D-", KeyDSharp: "D#", KeyE: "E-",
	KeyF: "F-", KeyFSharp: "F#", KeyG: "G-", KeyGSharp: "G#", KeyA: "A-",
	KeyASharp: "A#", KeyB: "B-",
}

func (k PianoKey) String() string {
	if s, ok := keyNames[k]; ok {
		return s
	}
	return fmt.Sprintf("PianoKey(%d)", int(k))
}

// IsPitched reports whether k carries a chromatic pitch (as opposed to
// None/NoteCut/NoteOff/NoteFade).
func (k PianoKey) IsPitched() bool { return k >= KeyC }

// EffectKind is the closed set of IT pattern effects. Opcode numbering
// follows the IT effect letter table: 1..26, with 0 reserved for None.
type EffectKind int

const (
	EffectNone EffectKind = iota
	EffectSetSpeed
	EffectPositionJump
	EffectPatternBreak
	EffectVolumeSlide
	EffectPortamentoDown
	EffectPortamentoUp
	EffectTonePortamento
	EffectVibrato
	EffectTremor
	EffectArpeggio
	EffectVolumeSlideVibrato
	EffectVolumeSlideTonePortamento
	EffectSetChannelVolume
	EffectChannelVolumeSlide
	EffectSampleOffset
	EffectPanningSlide
	EffectRetrigger
	EffectTremolo
	EffectSpecial
	EffectTempo
	EffectFineVibrato
	EffectSetGlobalVolume
	EffectGlobalVolumeSlide
	EffectSetPanning
	EffectPanbrello
	EffectMidiMacro

	numEffectKinds
)

// Effect is a tagged value: a kind plus the single parameter byte every
// non-None IT effect carries.
type Effect struct {
	Kind  EffectKind
	Param byte
}

// Note is one pattern cell. Initialized is false for a cell that carries no
// data at all (neither note, instrument, volume, nor effect bits were set
// when the row was decoded); such cells must be skipped entirely by the
// engine rather than treated as "play nothing".
type Note struct {
	Initialized bool
	Key         PianoKey
	Octave      uint8

	HasSample bool
	Sample    uint8

	HasVolume bool
	Volume    uint8

	Effect Effect
}

// NoteNumber returns octave*12 + (key-C), valid only when Key.IsPitched().
func (n Note) NoteNumber() int {
	return int(n.Octave)*12 + (int(n.Key) - int(KeyC))
}

// Pattern is a fixed 64-channel-wide, row-major grid of notes.
type Pattern struct {
	Rows  int
	Notes []Note // len == Channels*Rows, row-major: index = row*Channels + channel
}

// PatternChannels is always 64 for an IT pattern; rows use this to compute row-major
// offsets without plumbing a separate channel count through every call site.
const PatternChannels = 64

// NewPattern allocates a pattern with rows cleared to the zero Note
// (Initialized=false).
func NewPattern(rows int) *Pattern {
	return &Pattern{Rows: rows, Notes: make([]Note, rows*PatternChannels)}
}

// At returns the note at (channel, row). Row-major: row*channels + channel.
// A historical revision in the retrieved source indexed column-major
// (channel*channels + row) — that was a bug; this is the contract.
func (p *Pattern) At(channel, row int) Note {
	return p.Notes[row*PatternChannels+channel]
}

// Set stores a note at (channel, row).
func (p *Pattern) Set(channel, row int, n Note) {
	p.Notes[row*PatternChannels+channel] = n
}

// SampleFormat describes the PCM layout of a Sample's decoded data.
type SampleFormat struct {
	Bits       int // 8 or 16
	Channels   int // 1 or 2
	SampleRate int32
}

// BytesPerFrame returns the byte stride of one sample frame in this format.
func (f SampleFormat) BytesPerFrame() int {
	return f.Channels * (f.Bits / 8)
}

// Sample is one decoded IT instrument sample: signed PCM data plus loop and
// volume metadata, and a pitch multiplier fixed at load time.
type Sample struct {
	Name string

	Format SampleFormat
	Data   []byte // signed PCM, native byte order per Format.Bits

	Looping   bool
	LoopStart uint32
	LoopEnd   uint32

	GlobalVolume  uint8 // 0..64
	DefaultVolume uint8 // 0..64

	// Multiplier is native_rate / (2^((40-49)/12) * native_rate), a constant
	// collapsing runtime pitch computation to a single pow2. See DESIGN.md
	// for why this is algebraically independent of native_rate and why that
	// is carried forward unchanged rather than "fixed".
	Multiplier float64
}

// Frames returns the number of sample frames in Data.
func (s *Sample) Frames() int {
	bpf := s.Format.BytesPerFrame()
	if bpf == 0 {
		return 0
	}
	return len(s.Data) / bpf
}

// SeekRow is one dry-run-computed row timing entry within a SeekOrder.
type SeekRow struct {
	Start float64 // seconds from the start of the track
	Speed uint8
	Tempo uint8
}

// SeekOrder holds the per-row seek timing for one order position.
type SeekOrder struct {
	Start float64 // seconds from the start of the track; == Rows[0].Start when non-empty
	Rows  []SeekRow
}

// Track is the fully parsed, immutable representation of an IT module.
// It is constructed once by the loader and never mutated afterward; an
// Engine holds a read-only reference to it for its entire lifetime.
type Track struct {
	Title string

	Patterns []*Pattern
	Orders   []uint8
	Samples  []*Sample

	Tempo uint8
	Speed uint8

	GlobalVolume uint8
	MixVolume    uint8
	Pans         [PatternChannels]uint8

	LengthSeconds float64
	SeekTable     []SeekOrder
}

// Order sentinel values, per the IT order-list convention.
const (
	OrderSkip = 254
	OrderEnd  = 255
)
