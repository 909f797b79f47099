package ittrack

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Pattern mask bits, per the IT packed-row format. Grounded directly on
// mukunda--modlib/itmod.go's Pmask* constants.
const (
	pmaskNote       = 1
	pmaskIns        = 2
	pmaskVol        = 4
	pmaskEffect     = 8
	pmaskLastNote   = 16
	pmaskLastIns    = 32
	pmaskLastVol    = 64
	pmaskLastEffect = 128
)

type header struct {
	Title                [26]byte
	HighlightBeat        uint8
	HighlightMeasure     uint8
	NumOrders            uint16
	NumInstruments       uint16
	NumSamples           uint16
	NumPatterns          uint16
	TrackerTag           [4]byte
	Flags                uint16
	Special              uint16
	GlobalVolume         uint8
	MixVolume            uint8
	InitialSpeed         uint8
	InitialTempo         uint8
	Reserved             [12]byte
	Pans                 [PatternChannels]uint8
	Vols                 [PatternChannels]uint8
}

type sampleHeader struct {
	DosName       [12]byte
	_             uint8
	GlobalVolume  uint8
	Flags         uint8
	DefaultVolume uint8
	Name          [26]byte
	Cvt           uint8
	_             uint8 // default pan
	LengthFrames  uint32
	LoopStart     uint32
	LoopEnd       uint32
	SampleRate    int32
	_             [8]byte // sustain loop, unused
	DataPointer   uint32
}

const (
	sampleFlagLooping  = 1 << 4
	sampleFlag16Bit    = 1 << 1
	sampleFlagStereo   = 1 << 2
)

// FromBytes parses an Impulse Tracker (.it) file into a Track, or returns a
// typed *LoadError. It never panics on malformed input.
func FromBytes(data []byte) (*Track, error) {
	r := bytes.NewReader(data)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, &LoadError{Section: "header", Offset: 0, Err: ErrTruncated}
	}
	if string(magic[:]) != "IMPM" {
		return nil, &LoadError{Section: "header", Offset: 0, Err: ErrInvalidMagic}
	}

	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, &LoadError{Section: "header", Offset: 4, Err: fmt.Errorf("%w: %v", ErrTruncated, err)}
	}
	if h.Flags&4 != 0 {
		return nil, &LoadError{Section: "header", Offset: 4, Err: ErrInstrumentsUnsupported}
	}
	pos, _ := r.Seek(0, io.SeekCurrent)
	if pos != 0xC0 {
		return nil, &LoadError{Section: "header", Offset: pos, Err: ErrMalformedHeader}
	}

	orders := make([]byte, h.NumOrders)
	if _, err := io.ReadFull(r, orders); err != nil {
		return nil, &LoadError{Section: "orders", Offset: pos, Err: ErrTruncated}
	}

	// Instrument header table is out of scope (instruments are rejected
	// above); skip straight past it to the sample offset table.
	samplesTableAt := int64(0xC0) + int64(h.NumOrders) + int64(h.NumInstruments)*4
	if _, err := r.Seek(samplesTableAt, io.SeekStart); err != nil {
		return nil, &LoadError{Section: "samples", Offset: samplesTableAt, Err: ErrTruncated}
	}

	sampleOffsets := make([]uint32, h.NumSamples)
	if err := binary.Read(r, binary.LittleEndian, sampleOffsets); err != nil {
		return nil, &LoadError{Section: "samples", Offset: samplesTableAt, Err: ErrTruncated}
	}

	samples := make([]*Sample, h.NumSamples)
	for i, off := range sampleOffsets {
		s, err := loadSample(r, off)
		if err != nil {
			return nil, err
		}
		samples[i] = s
	}

	patternsTableAt := samplesTableAt + int64(h.NumSamples)*4
	if _, err := r.Seek(patternsTableAt, io.SeekStart); err != nil {
		return nil, &LoadError{Section: "patterns", Offset: patternsTableAt, Err: ErrTruncated}
	}
	patternOffsets := make([]uint32, h.NumPatterns)
	if err := binary.Read(r, binary.LittleEndian, patternOffsets); err != nil {
		return nil, &LoadError{Section: "patterns", Offset: patternsTableAt, Err: ErrTruncated}
	}

	patterns := make([]*Pattern, h.NumPatterns)
	for i, off := range patternOffsets {
		p, err := loadPattern(r, off)
		if err != nil {
			return nil, err
		}
		patterns[i] = p
	}

	t := &Track{
		Title:        cstr(h.Title[:]),
		Patterns:     patterns,
		Orders:       orders,
		Samples:      samples,
		Tempo:        h.InitialTempo,
		Speed:        h.InitialSpeed,
		GlobalVolume: h.GlobalVolume,
		MixVolume:    h.MixVolume,
	}
	copy(t.Pans[:], h.Pans[:])

	computeLengthAndSeekTable(t)

	return t, nil
}

func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func loadSample(r *bytes.Reader, offset uint32) (*Sample, error) {
	outerPos, _ := r.Seek(0, io.SeekCurrent)
	defer r.Seek(outerPos, io.SeekStart)

	if _, err := r.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, &LoadError{Section: "sample", Offset: int64(offset), Err: ErrTruncated}
	}

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, &LoadError{Section: "sample", Offset: int64(offset), Err: ErrTruncated}
	}
	if string(magic[:]) != "IMPS" {
		return nil, &LoadError{Section: "sample", Offset: int64(offset), Err: ErrInvalidSampleMagic}
	}

	var sh sampleHeader
	if err := binary.Read(r, binary.LittleEndian, &sh); err != nil {
		return nil, &LoadError{Section: "sample", Offset: int64(offset), Err: fmt.Errorf("%w: %v", ErrTruncated, err)}
	}

	format := SampleFormat{Bits: 8, Channels: 1, SampleRate: sh.SampleRate}
	if sh.Flags&sampleFlag16Bit != 0 {
		format.Bits = 16
	}
	if sh.Flags&sampleFlagStereo != 0 {
		format.Channels = 2
	}

	dataLen := int(sh.LengthFrames) * format.BytesPerFrame()
	if _, err := r.Seek(int64(sh.DataPointer), io.SeekStart); err != nil {
		return nil, &LoadError{Section: "sample data", Offset: int64(sh.DataPointer), Err: ErrTruncated}
	}
	raw := make([]byte, dataLen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, &LoadError{Section: "sample data", Offset: int64(sh.DataPointer), Err: ErrTruncated}
	}
	rebias(raw, format.Bits)

	s := &Sample{
		Name:          cstr(sh.Name[:]),
		Format:        format,
		Data:          raw,
		Looping:       sh.Flags&sampleFlagLooping != 0,
		LoopStart:     sh.LoopStart,
		LoopEnd:       sh.LoopEnd,
		GlobalVolume:  sh.GlobalVolume,
		DefaultVolume: sh.DefaultVolume,
	}
	s.Multiplier = 1.0 / calcSpeed(KeyC, 5, 1.0)
	return s, nil
}

// rebias converts unsigned 8-bit PCM (bias 128, the IT on-disk convention)
// to signed, outside the mixer's hot path. 16-bit samples are already
// signed and untouched.
func rebias(data []byte, bits int) {
	if bits != 8 {
		return
	}
	for i, b := range data {
		data[i] = byte(int(b) - 128)
	}
}

func loadPattern(r *bytes.Reader, offset uint32) (*Pattern, error) {
	if offset == 0 {
		return NewPattern(64), nil
	}

	outerPos, _ := r.Seek(0, io.SeekCurrent)
	defer r.Seek(outerPos, io.SeekStart)

	if _, err := r.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, &LoadError{Section: "pattern", Offset: int64(offset), Err: ErrTruncated}
	}

	var packedLen uint16
	var rows uint16
	var reserved [4]byte
	if err := binary.Read(r, binary.LittleEndian, &packedLen); err != nil {
		return nil, &LoadError{Section: "pattern", Offset: int64(offset), Err: ErrTruncated}
	}
	if err := binary.Read(r, binary.LittleEndian, &rows); err != nil {
		return nil, &LoadError{Section: "pattern", Offset: int64(offset), Err: ErrTruncated}
	}
	if _, err := io.ReadFull(r, reserved[:]); err != nil {
		return nil, &LoadError{Section: "pattern", Offset: int64(offset), Err: ErrTruncated}
	}

	packed := make([]byte, packedLen)
	if _, err := io.ReadFull(r, packed); err != nil {
		return nil, &LoadError{Section: "pattern", Offset: int64(offset), Err: ErrTruncated}
	}

	p := NewPattern(int(rows))

	dataRead := 0
	nextByte := func() (byte, bool) {
		if dataRead >= len(packed) {
			return 0, false
		}
		b := packed[dataRead]
		dataRead++
		return b, true
	}

	var lastMask, lastNote, lastIns, lastVol, lastEffect, lastEffectParam [PatternChannels]byte

	for row := 0; row < int(rows); row++ {
		for {
			chanVar, ok := nextByte()
			if !ok {
				return nil, &LoadError{Section: "pattern", Offset: int64(offset), Err: ErrTruncated}
			}
			if chanVar == 0 {
				break
			}

			channel := int(chanVar-1) & 63
			var n Note

			if chanVar&0x80 != 0 {
				m, ok := nextByte()
				if !ok {
					return nil, &LoadError{Section: "pattern", Offset: int64(offset), Err: ErrTruncated}
				}
				lastMask[channel] = m
			}
			mask := lastMask[channel]

			if mask == 0 {
				continue
			}
			n.Initialized = true

			if mask&pmaskNote != 0 {
				b, ok := nextByte()
				if !ok {
					return nil, &LoadError{Section: "pattern", Offset: int64(offset), Err: ErrTruncated}
				}
				lastNote[channel] = b
			}
			if mask&(pmaskNote|pmaskLastNote) != 0 {
				n.Key, n.Octave = translateNote(lastNote[channel])
			}

			if mask&pmaskIns != 0 {
				b, ok := nextByte()
				if !ok {
					return nil, &LoadError{Section: "pattern", Offset: int64(offset), Err: ErrTruncated}
				}
				lastIns[channel] = b
			}
			if mask&(pmaskIns|pmaskLastIns) != 0 {
				n.HasSample = true
				n.Sample = lastIns[channel] - 1
			}

			if mask&pmaskVol != 0 {
				b, ok := nextByte()
				if !ok {
					return nil, &LoadError{Section: "pattern", Offset: int64(offset), Err: ErrTruncated}
				}
				lastVol[channel] = b
			}
			if mask&(pmaskVol|pmaskLastVol) != 0 {
				n.HasVolume = true
				n.Volume = lastVol[channel]
			}

			if mask&pmaskEffect != 0 {
				op, ok := nextByte()
				if !ok {
					return nil, &LoadError{Section: "pattern", Offset: int64(offset), Err: ErrTruncated}
				}
				param, ok := nextByte()
				if !ok {
					return nil, &LoadError{Section: "pattern", Offset: int64(offset), Err: ErrTruncated}
				}
				lastEffect[channel] = op
				lastEffectParam[channel] = param
			}
			if mask&(pmaskEffect|pmaskLastEffect) != 0 {
				n.Effect = decodeEffect(lastEffect[channel], lastEffectParam[channel])
			}

			p.Set(channel, row, n)
		}
	}

	return p, nil
}

// translateNote converts a raw IT note byte to (key, octave). 255 is
// NoteOff, 254 is NoteCut, 253 is "no note" (caller leaves Initialized as
// set by other mask bits); anything else is octave*12+semitone.
func translateNote(raw byte) (PianoKey, uint8) {
	switch raw {
	case 255:
		return KeyNoteOff, 0
	case 254:
		return KeyNoteCut, 0
	case 253:
		return KeyNone, 0
	default:
		return KeyC + PianoKey(raw%12), raw / 12
	}
}
