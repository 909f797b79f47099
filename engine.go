package ittrack

import "math"

// SampleRate is the fixed output rate the engine's clock math assumes
// throughout §4.6 — the loader never reads a track-level sample rate, only
// per-sample native rates folded into Sample.Multiplier.
const SampleRate = 48000

// voiceMemory holds the per-channel effect memory described in §9: each
// effect family reuses the last nonzero parameter it was given rather than
// storing it on the note.
type voiceMemory struct {
	volume     byte
	portamento byte
	offset     byte
	highOffset uint32
}

// voiceState tracks the note-triggering side of one channel, layered over
// the mixer's voice (which only knows about raw playback properties).
type voiceState struct {
	enabled bool // pan < 128 in the track's channel table

	currentSample int // -1 = none
	noteVolume    uint8
	speed         float64 // current playback rate ratio, pre pitch_tuning
	panning       float64

	mem voiceMemory
}

// Engine is the single-threaded playback state machine. It holds an
// immutable reference to a Track and exclusively owns its mixer and voice
// state for its entire lifetime; see SPEC_FULL.md §5.
type Engine struct {
	track *Track

	mixer mixer

	currentHalfSample  uint32
	halfSamplesPerTick uint32

	currentTick  uint8
	currentSpeed uint8
	currentTempo uint8

	currentOrder int
	currentRow   int

	nextOrder, nextRow int
	shouldJump         bool

	globalVolume uint8
	pitchTuning  float64
	tempoTuning  float64

	Looping bool

	// Playing gates whether Advance steps the clock at all; false (paused)
	// returns silence without consuming rows, so resuming continues exactly
	// where playback left off. Shells toggle this for a pause hotkey.
	Playing bool

	// Mute is a per-channel bitmask (bit i = channel i); muted channels are
	// silenced at mix time but their effects still run, matching a DAW-style
	// solo/mute rather than disabling the channel outright.
	Mute uint64

	voices [PatternChannels]voiceState

	silent bool // true once a non-looping track has run off the end
}

// New constructs an Engine positioned at order 0, row 0, with the track's
// initial tempo/speed/global volume and one voice per channel, enabled
// according to the track's pan table (pan >= 128 marks a muted channel).
func New(t *Track) *Engine {
	e := &Engine{
		track:        t,
		currentSpeed: t.Speed,
		currentTempo: t.Tempo,
		globalVolume: t.GlobalVolume,
		pitchTuning:  1.0,
		tempoTuning:  1.0,
		Playing:      true,
	}
	for ch := 0; ch < PatternChannels; ch++ {
		e.voices[ch] = voiceState{
			enabled:       t.Pans[ch] < 128,
			currentSample: -1,
			panning:       panningFromByte(t.Pans[ch]),
		}
	}
	e.setTempo(e.currentTempo)
	if len(t.Orders) > 0 {
		e.dispatchRow()
	}
	return e
}

func panningFromByte(p uint8) float64 {
	if p >= 128 {
		return 0.5
	}
	return float64(p) / 64.0
}

// SetPitchTuning scales every calc_speed result (a global fine-tune, e.g.
// for the CLI's --pitch flag).
func (e *Engine) SetPitchTuning(v float64) { e.pitchTuning = v }

// SetTempoTuning scales half_samples_per_tick's conversion from tempo (the
// CLI's --tempo flag); it takes effect immediately, recomputing
// half_samples_per_tick for the current tempo.
func (e *Engine) SetTempoTuning(v float64) {
	e.tempoTuning = v
	e.setTempo(e.currentTempo)
}

// SetInterpolation changes every voice's resampling mode. It is an
// engine-wide setting, not per-channel state, so it applies uniformly and
// carries over to notes triggered afterwards.
func (e *Engine) SetInterpolation(mode Interpolation) {
	for i := range e.mixer.voices {
		e.mixer.voices[i].props.Interpolation = mode
	}
}

func (e *Engine) setTempo(v uint8) {
	e.currentTempo = v
	raw := (2.5 / float64(v)) * 2 * SampleRate
	e.halfSamplesPerTick = uint32(raw / e.tempoTuning)
	if e.halfSamplesPerTick == 0 {
		e.halfSamplesPerTick = 1
	}
}

// calcSpeed implements §4.6's pitch math: a closed-form playback-rate ratio
// for a (key, octave) pair scaled by a sample's native-rate multiplier.
// NoteCut silences resampling outright by returning a zero ratio.
func calcSpeed(key PianoKey, octave uint8, multiplier float64) float64 {
	if key == KeyNoteCut {
		return 0
	}
	note := 40 + (int(key) - int(KeyC)) + (int(octave)-5)*12
	ratio := math.Exp2(float64(note-49) / 12.0)
	return ratio * multiplier
}

// Advance produces one interleaved stereo channel value and steps the
// engine's clock, per SPEC_FULL.md §4.6's clock/row-advance pseudocode.
func (e *Engine) Advance() float32 {
	if e.silent || !e.Playing || len(e.track.Orders) == 0 {
		return 0
	}

	e.mixer.SetMute(e.Mute)
	out := e.mixer.Advance()

	e.currentHalfSample++
	if e.currentHalfSample >= e.halfSamplesPerTick {
		e.currentHalfSample = 0
		e.currentTick++
		if e.currentTick >= e.currentSpeed {
			e.currentTick = 0
			e.currentRow++

			if e.shouldJump {
				e.shouldJump = false
				e.currentRow = e.nextRow
				e.currentOrder = e.nextOrder
			}

			// OrderSkip markers and any order with no backing pattern consume
			// no row time, matching the dry-run's `continue` in
			// computeLengthAndSeekTable: keep landing on the next order until
			// one actually has a pattern and row to play, or the song ends.
			for {
				pat := e.currentPattern()
				if pat != nil && e.currentRow < pat.Rows {
					break
				}
				e.currentRow = 0
				e.currentOrder++
				if e.atEndOfSong() {
					if e.Looping {
						e.currentOrder = 0
					} else {
						e.silent = true
						return out
					}
				}
			}

			e.dispatchRow()
		} else {
			e.dispatchEffectsOnly()
		}
	}

	return out
}

// atEndOfSong reports whether currentOrder has run off the order list or
// landed on the 255 end marker.
func (e *Engine) atEndOfSong() bool {
	if e.currentOrder >= len(e.track.Orders) {
		return true
	}
	return e.track.Orders[e.currentOrder] == OrderEnd
}

// currentPattern resolves currentOrder to a *Pattern, skipping OrderSkip
// markers by treating them (and any order index with no backing pattern) as
// absent — the caller's len-check then advances past them.
func (e *Engine) currentPattern() *Pattern {
	if e.currentOrder >= len(e.track.Orders) {
		return nil
	}
	idx := e.track.Orders[e.currentOrder]
	if idx == OrderSkip || idx == OrderEnd || int(idx) >= len(e.track.Patterns) {
		return nil
	}
	return e.track.Patterns[idx]
}

// dispatchRow runs note-triggering (tick 0 only) followed by every
// channel's effect for tick 0.
func (e *Engine) dispatchRow() {
	pat := e.currentPattern()
	if pat == nil {
		return
	}
	for ch := 0; ch < PatternChannels; ch++ {
		vs := &e.voices[ch]
		if !vs.enabled {
			continue
		}
		n := pat.At(ch, e.currentRow)
		if !n.Initialized {
			continue
		}
		e.triggerNote(ch, n)
		e.applyEffect(ch, n.Effect, true)
	}
}

// dispatchEffectsOnly runs every channel's effect for a non-zero tick; note
// triggering only ever happens on tick 0.
func (e *Engine) dispatchEffectsOnly() {
	pat := e.currentPattern()
	if pat == nil {
		return
	}
	for ch := 0; ch < PatternChannels; ch++ {
		vs := &e.voices[ch]
		if !vs.enabled {
			continue
		}
		n := pat.At(ch, e.currentRow)
		if !n.Initialized {
			continue
		}
		e.applyEffect(ch, n.Effect, false)
	}
}

// triggerNote implements the "on row entry" note-resolution rules of §4.6.
func (e *Engine) triggerNote(ch int, n Note) {
	vs := &e.voices[ch]

	switch n.Key {
	case KeyNoteCut, KeyNoteOff, KeyNoteFade:
		vs.currentSample = -1
		vs.noteVolume = 0
		e.mixer.Stop(ch)
		return
	}

	sampleID := vs.currentSample
	if n.HasSample {
		sampleID = int(n.Sample)
	}

	if sampleID >= 0 && n.Key != KeyNone && sampleID < len(e.track.Samples) {
		sample := e.track.Samples[sampleID]
		volume := sample.DefaultVolume
		if n.HasVolume {
			volume = n.Volume
		}

		vs.speed = calcSpeed(n.Key, n.Octave, sample.Multiplier)
		vs.currentSample = sampleID
		vs.noteVolume = volume

		e.mixer.PlayBuffer(ch, sample.Data, sample.Format, voiceProperties{
			Volume:    e.voiceVolume(sample, volume),
			Speed:     vs.speed * e.pitchTuning,
			Panning:   vs.panning,
			Looping:   sample.Looping,
			LoopStart: sample.LoopStart,
			LoopEnd:   sample.LoopEnd,

			Interpolation: e.mixer.voices[ch].props.Interpolation,
		})
	} else if n.HasVolume && vs.currentSample >= 0 {
		sample := e.track.Samples[vs.currentSample]
		vs.noteVolume = n.Volume
		e.setVoiceVolume(ch, e.voiceVolume(sample, vs.noteVolume))
	}
}

// voiceVolume applies §4.6's volume formula:
// ((volume * sample.global_volume * 64 * engine.global_volume) >> 18) / 128
// scaled by track.mix_volume / 255.
func (e *Engine) voiceVolume(sample *Sample, volume uint8) float64 {
	raw := (uint32(volume) * uint32(sample.GlobalVolume) * 64 * uint32(e.globalVolume)) >> 18
	return (float64(raw) / 128.0) * (float64(e.track.MixVolume) / 255.0)
}

func (e *Engine) setVoiceVolume(ch int, volume float64) {
	props := e.mixer.voices[ch].props
	props.Volume = volume
	e.mixer.SetChannelProperties(ch, props)
}

func (e *Engine) setVoiceSpeed(ch int, speed float64) {
	props := e.mixer.voices[ch].props
	props.Speed = speed
	e.mixer.SetChannelProperties(ch, props)
}

func (e *Engine) setVoicePanning(ch int, panning float64) {
	e.voices[ch].panning = panning
	props := e.mixer.voices[ch].props
	props.Panning = panning
	e.mixer.SetChannelProperties(ch, props)
}

// applyEffect dispatches one decoded Effect. tickZero reports whether this
// call is the row's tick-0 dispatch; each effect body guards itself against
// the ticks it does not apply on, per §9.
func (e *Engine) applyEffect(ch int, eff Effect, tickZero bool) {
	switch eff.Kind {
	case EffectSetSpeed:
		if tickZero {
			e.currentSpeed = eff.Param
		}

	case EffectPositionJump:
		e.shouldJump = true
		e.nextOrder = int(eff.Param)
		e.nextRow = 0
		if e.nextOrder <= e.currentOrder && !e.Looping {
			e.silent = true
		}

	case EffectPatternBreak:
		e.shouldJump = true
		e.nextOrder = e.currentOrder + 1
		e.nextRow = int(eff.Param)

	case EffectVolumeSlide:
		e.applyVolumeSlide(ch, eff.Param, tickZero)

	case EffectPortamentoDown:
		e.applyPortamento(ch, eff.Param, tickZero, -1)

	case EffectPortamentoUp:
		e.applyPortamento(ch, eff.Param, tickZero, 1)

	case EffectSampleOffset:
		if tickZero {
			e.applySampleOffset(ch, eff.Param)
		}

	case EffectSpecial:
		e.applySpecial(ch, eff.Param)

	case EffectTempo:
		if tickZero && eff.Param > 0x20 {
			e.setTempo(eff.Param)
		}

	case EffectSetGlobalVolume:
		e.globalVolume = eff.Param

	case EffectSetPanning:
		e.setVoicePanning(ch, float64(eff.Param)/255.0)

	default:
		// TonePortamento, Vibrato, Tremor, Arpeggio, VolumeSlideVibrato,
		// VolumeSlideTonePortamento, SetChannelVolume, ChannelVolumeSlide,
		// PanningSlide, Retrigger, Tremolo, FineVibrato, GlobalVolumeSlide,
		// Panbrello, MidiMacro: recognized, no-op.
	}
}

// applyVolumeSlide implements §4.6's VolumeSlide rules: effect memory,
// fine-up/fine-down (tick 0 only) vs continuous (every tick but 0).
func (e *Engine) applyVolumeSlide(ch int, param byte, tickZero bool) {
	vs := &e.voices[ch]
	if vs.currentSample < 0 {
		return
	}

	if param == 0 {
		param = vs.mem.volume
	} else {
		vs.mem.volume = param
	}

	hi := param >> 4
	lo := param & 0x0F

	fineDown := hi == 0x0F
	fineUp := lo == 0x0F && hi != 0

	if fineDown || fineUp {
		if !tickZero {
			return
		}
	} else if tickZero {
		return
	}

	if fineDown {
		param &= 0x0F
	}

	nv := int(vs.noteVolume)
	if param < 16 {
		nv -= int(param)
	} else {
		nv += int(param) / 16
	}
	if nv < 0 {
		nv = 0
	}
	if nv > 64 {
		nv = 64
	}
	vs.noteVolume = uint8(nv)

	sample := e.track.Samples[vs.currentSample]
	e.setVoiceVolume(ch, e.voiceVolume(sample, vs.noteVolume))
}

// applyPortamento implements PortamentoDown/Up: fine (tick 0 only, high
// nibble >= 0xE) vs coarse (every tick but 0), with an extra-fine quarter
// multiplier for the 0xE? nibble. dir is -1 for Down, +1 for Up.
func (e *Engine) applyPortamento(ch int, param byte, tickZero bool, dir int) {
	vs := &e.voices[ch]

	if param == 0 {
		param = vs.mem.portamento
	} else {
		vs.mem.portamento = param
	}

	hi := param >> 4
	fine := hi >= 0x0E
	if fine {
		if !tickZero {
			return
		}
	} else if tickZero {
		return
	}

	multiplier := 1.0
	if fine && hi == 0x0E {
		multiplier = 0.25
	}
	if fine {
		param &= 0x0F
	}

	exponent := 4.0 * float64(param) * multiplier / 768.0 * float64(dir)
	vs.speed *= math.Exp2(exponent)
	e.setVoiceSpeed(ch, vs.speed*e.pitchTuning)
}

// applySampleOffset seeks the voice to frame param*256 + the high-offset
// memory set by a preceding Special 0xA? command.
func (e *Engine) applySampleOffset(ch int, param byte) {
	vs := &e.voices[ch]

	if param == 0 {
		param = vs.mem.offset
	} else {
		vs.mem.offset = param
	}

	e.mixer.SeekToSample(ch, uint32(param)*256+vs.mem.highOffset)
}

// applySpecial dispatches the Sxx sub-opcode space: 0x8y sets panning,
// 0xAy extends the next SampleOffset's range.
func (e *Engine) applySpecial(ch int, cmd byte) {
	vs := &e.voices[ch]

	switch cmd & 0xF0 {
	case 0x80:
		e.setVoicePanning(ch, float64(cmd&0x0F)/15.0)
	case 0xA0:
		vs.mem.highOffset = uint32(cmd&0x0F) * 65536
	}
}

// SeekSeconds jumps the engine's clock to the nearest row at or before
// target, using the track's precomputed seek table, and returns the actual
// timestamp landed on. Voice state is not retroactively corrected — the
// next dispatched row re-triggers whatever notes are active there.
func (e *Engine) SeekSeconds(target float64) float64 {
	order, row, speed, tempo, landed := e.track.SeekSeconds(target)

	e.currentOrder = order
	e.currentRow = row
	e.currentSpeed = speed
	e.setTempo(tempo)
	e.currentTick = 0
	e.currentHalfSample = 0
	e.shouldJump = false
	e.silent = false

	e.dispatchRow()
	return landed
}

// Position returns the engine's current order/row, for UI display.
func (e *Engine) Position() (order, row int) {
	return e.currentOrder, e.currentRow
}

// SpeedTempo returns the engine's current (not the track's initial)
// speed/tempo, which effects may have changed since playback started.
func (e *Engine) SpeedTempo() (speed, tempo uint8) {
	return e.currentSpeed, e.currentTempo
}

// IsPlaying reports whether the engine is unpaused and has not yet run off
// the end of a non-looping track.
func (e *Engine) IsPlaying() bool {
	return e.Playing && !e.silent
}

// Stop pauses the engine; Advance returns silence without consuming rows
// until Start is called again.
func (e *Engine) Stop() { e.Playing = false }

// Start resumes a paused engine.
func (e *Engine) Start() { e.Playing = true }

// NoteAt returns the decoded notes for every channel at (order, row), or
// nil if that position has no backing pattern (an out-of-range order, a
// skip marker, or a row past the pattern's length) — the CLI's scrolling
// pattern view uses the nil case to print a blank line.
func (e *Engine) NoteAt(order, row int) []Note {
	if order < 0 || order >= len(e.track.Orders) {
		return nil
	}
	idx := e.track.Orders[order]
	if idx == OrderSkip || idx == OrderEnd || int(idx) >= len(e.track.Patterns) {
		return nil
	}
	pat := e.track.Patterns[idx]
	if row < 0 || row >= pat.Rows {
		return nil
	}
	notes := make([]Note, PatternChannels)
	for ch := 0; ch < PatternChannels; ch++ {
		notes[ch] = pat.At(ch, row)
	}
	return notes
}

// Track exposes the immutable track the engine was constructed from, for
// shells that want its title, orders length, or other static metadata.
func (e *Engine) Track() *Track { return e.track }
